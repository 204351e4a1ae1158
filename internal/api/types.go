package api

import "uniasset/pkg/uniasset"

type draftPayload struct {
	Platform         string   `json:"platform" validate:"max=64"`
	ProductType      string   `json:"product_type" validate:"omitempty,product_type"`
	Symbol           string   `json:"symbol" validate:"max=32"`
	Quantity         float64  `json:"quantity" validate:"gte=0,lte=1e15"`
	UnitPrice        float64  `json:"unit_price" validate:"gte=0,lte=1e15"`
	TotalValue       float64  `json:"total_value" validate:"gte=0,lte=1e15"`
	Currency         string   `json:"currency" validate:"omitempty,iso4217"`
	ExposureTags     []string `json:"exposure_tags" validate:"max=10,dive,max=64"`
	ExpectedYieldAPY *float64 `json:"expected_yield_apy" validate:"omitempty,gte=0"`
	Notes            string   `json:"notes" validate:"max=1000"`
}

func (p draftPayload) toDraft() uniasset.AssetDraft {
	d := uniasset.NewDraft()
	d.Platform = p.Platform
	if pt, ok := uniasset.ParseProductType(p.ProductType); ok {
		d.ProductType = pt
	}
	d.Symbol = p.Symbol
	d.Quantity = uniasset.NewAmount(p.Quantity)
	d.UnitPrice = uniasset.NewAmount(p.UnitPrice)
	d.TotalValue = uniasset.NewAmount(p.TotalValue)
	if p.Currency != "" {
		d.Currency = p.Currency
	}
	if p.ExposureTags != nil {
		d.ExposureTags = p.ExposureTags
	}
	if p.ExpectedYieldAPY != nil {
		apy := uniasset.NewAmount(*p.ExpectedYieldAPY)
		d.ExpectedYieldAPY = &apy
	}
	d.Notes = p.Notes
	return d
}

type reconcilePayload struct {
	Draft draftPayload `json:"draft"`
	Field string       `json:"field" validate:"required,oneof=quantity unit_price total_value"`
	Value float64      `json:"value" validate:"gte=0,lte=1e15"`
}

type parsePayload struct {
	Draft         *draftPayload `json:"draft"`
	Text          string        `json:"text" validate:"max=4000"`
	Image         string        `json:"image" validate:"omitempty,base64"`
	ImageMIMEType string        `json:"image_mime_type" validate:"omitempty,oneof=image/png image/jpeg image/webp image/gif"`
}

type connectWalletPayload struct {
	Address string `json:"address" validate:"required,max=128"`
	Chain   string `json:"chain" validate:"omitempty,chain"`
}

type sendMessagePayload struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type healthResponse struct {
	Status      string `json:"status"`
	AIAvailable bool   `json:"ai_available"`
}

type walletAssetsResponse struct {
	Wallet uniasset.Wallet  `json:"wallet"`
	Assets []uniasset.Asset `json:"assets"`
}

type removeWalletResponse struct {
	Wallet        uniasset.Wallet `json:"wallet"`
	RemovedAssets int             `json:"removed_assets"`
}

type classifyResponse struct {
	Address string         `json:"address"`
	Valid   bool           `json:"valid"`
	Chain   uniasset.Chain `json:"chain,omitempty"`
	Demo    bool           `json:"demo"`
}

type refreshResponse struct {
	Added []uniasset.MarketEvent `json:"added"`
	Feed  uniasset.EventFeed     `json:"feed"`
}

// chatMessageView carries the markdown answer rendered to HTML next to the
// raw text.
type chatMessageView struct {
	uniasset.ChatMessage
	HTML string `json:"html"`
}

type transcriptResponse struct {
	Messages []chatMessageView `json:"messages"`
	Busy     bool              `json:"busy"`
}

type operationLogsResponse struct {
	Items  []uniasset.OperationLog `json:"items"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}
