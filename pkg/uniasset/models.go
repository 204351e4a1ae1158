package uniasset

import "time"

// ProductType classifies a holding.
type ProductType string

const (
	ProductStock       ProductType = "Stock"
	ProductETF         ProductType = "ETF"
	ProductCrypto      ProductType = "Crypto"
	ProductDerivatives ProductType = "Derivatives"
	ProductCommodities ProductType = "Commodities"
	ProductCashYield   ProductType = "Cash / Yield"
	ProductOther       ProductType = "Other"
)

// ProductTypes lists every product type in display order.
var ProductTypes = []ProductType{
	ProductStock,
	ProductETF,
	ProductCrypto,
	ProductDerivatives,
	ProductCommodities,
	ProductCashYield,
	ProductOther,
}

// ParseProductType maps a loose label onto a ProductType. Model output and
// older clients use "Cash" and "Cash/Yield" for the cash bucket.
func ParseProductType(s string) (ProductType, bool) {
	switch normalizeLabel(s) {
	case "stock", "stocks", "equity":
		return ProductStock, true
	case "etf", "etfs", "fund":
		return ProductETF, true
	case "crypto", "cryptocurrency", "token":
		return ProductCrypto, true
	case "derivatives", "derivative", "option", "options", "futures":
		return ProductDerivatives, true
	case "commodities", "commodity":
		return ProductCommodities, true
	case "cash / yield", "cash/yield", "cash", "yield":
		return ProductCashYield, true
	case "other":
		return ProductOther, true
	}
	return "", false
}

// Asset is a single tracked holding.
type Asset struct {
	ID               string         `json:"id"`
	Platform         string         `json:"platform"`
	ProductType      ProductType    `json:"product_type"`
	Symbol           string         `json:"symbol"`
	Quantity         Amount         `json:"quantity"`
	UnitPrice        Amount         `json:"unit_price"`
	TotalValue       Amount         `json:"total_value"`
	Currency         string         `json:"currency"`
	ExposureTags     []string       `json:"exposure_tags"`
	ExpectedYieldAPY *Amount        `json:"expected_yield_apy,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	Change24h        *float64       `json:"change_24h,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	WalletAddress    string         `json:"wallet_address,omitempty"`
	IsAutoSynced     bool           `json:"is_auto_synced"`
	UpdateHistory    []ChangeRecord `json:"update_history"`
}

// FromWallet reports whether the asset was produced by wallet sync.
func (a Asset) FromWallet() bool {
	return a.WalletAddress != ""
}

// clone returns a deep copy so callers never alias store slices.
func (a Asset) clone() Asset {
	out := a
	out.ExposureTags = append([]string(nil), a.ExposureTags...)
	out.UpdateHistory = make([]ChangeRecord, len(a.UpdateHistory))
	for i, rec := range a.UpdateHistory {
		out.UpdateHistory[i] = ChangeRecord{
			Timestamp: rec.Timestamp,
			Changes:   append([]FieldChange(nil), rec.Changes...),
		}
	}
	if a.ExpectedYieldAPY != nil {
		out.ExpectedYieldAPY = amountPtr(*a.ExpectedYieldAPY)
	}
	if a.Change24h != nil {
		v := *a.Change24h
		out.Change24h = &v
	}
	return out
}

// ChangeRecord is one entry of an asset's update history.
type ChangeRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	Changes   []FieldChange `json:"changes"`
}

// FieldChange captures a single field delta. Values are rendered as strings
// so numeric and text fields share one shape.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// Tracked fields of the update history.
const (
	FieldQuantity  = "quantity"
	FieldUnitPrice = "unitPrice"
	FieldNotes     = "notes"
	FieldPlatform  = "platform"
)

// EventType tells whether a market event already happened.
type EventType string

const (
	EventPast     EventType = "past"
	EventUpcoming EventType = "upcoming"
)

// ImpactStrength grades how strongly an event moves its assets.
type ImpactStrength string

const (
	ImpactLow    ImpactStrength = "low"
	ImpactMedium ImpactStrength = "medium"
	ImpactHigh   ImpactStrength = "high"
)

// ImpactDirection is the expected sign of an event's impact.
type ImpactDirection string

const (
	DirectionPositive ImpactDirection = "positive"
	DirectionNegative ImpactDirection = "negative"
	DirectionMixed    ImpactDirection = "mixed"
	DirectionNeutral  ImpactDirection = "neutral"
)

// MarketEvent is a past or upcoming occurrence with an assessed impact.
type MarketEvent struct {
	ID             string          `json:"id"`
	Type           EventType       `json:"type"`
	Title          string          `json:"title"`
	Date           string          `json:"date"`
	AffectedAssets []string        `json:"affected_assets"`
	ImpactStrength ImpactStrength  `json:"impact_strength"`
	Direction      ImpactDirection `json:"direction"`
	Reasoning      string          `json:"reasoning"`
}

// Chain is a supported blockchain.
type Chain string

const (
	ChainEthereum Chain = "Ethereum"
	ChainSolana   Chain = "Solana"
	ChainBitcoin  Chain = "Bitcoin"
	ChainPolygon  Chain = "Polygon"
)

// Chains lists the supported chains.
var Chains = []Chain{ChainEthereum, ChainSolana, ChainBitcoin, ChainPolygon}

// ParseChain matches a chain name case-insensitively.
func ParseChain(s string) (Chain, bool) {
	for _, c := range Chains {
		if normalizeLabel(string(c)) == normalizeLabel(s) {
			return c, true
		}
	}
	return "", false
}

// Wallet is a connected on-chain address.
type Wallet struct {
	ID         string    `json:"id"`
	Address    string    `json:"address"`
	Chain      Chain     `json:"chain"`
	LastSynced time.Time `json:"last_synced"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one turn of the advisory transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// OperationLog is an audit entry for a store mutation.
type OperationLog struct {
	ID        int64   `json:"id"`
	Operation string  `json:"operation_type"`
	Symbol    *string `json:"symbol"`
	Wallet    *string `json:"wallet_address"`
	Details   *string `json:"details"`
	OldValue  *Amount `json:"old_value"`
	NewValue  *Amount `json:"new_value"`
	CreatedAt *string `json:"created_at"`
}

// Operation types recorded in the operation log.
const (
	OpAssetAdd      = "ASSET_ADD"
	OpAssetUpdate   = "ASSET_UPDATE"
	OpAssetDelete   = "ASSET_DELETE"
	OpWalletConnect = "WALLET_CONNECT"
	OpWalletRemove  = "WALLET_REMOVE"
	OpWalletSync    = "WALLET_SYNC"
)
