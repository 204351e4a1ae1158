// Package mobile exposes the portfolio core through gomobile friendly
// signatures: strings, numbers and JSON documents only.
package mobile

import (
	"context"
	"encoding/json"

	"uniasset/pkg/gateway"
	"uniasset/pkg/uniasset"
)

// Core wraps the UniAsset core for gomobile bindings.
type Core struct {
	core *uniasset.Core
}

// Open starts a session with the demonstration portfolio and AI disabled.
func Open(dbPath string) (*Core, error) {
	return open(dbPath, nil)
}

// OpenWithAI starts a session whose AI features use provider with apiKey.
// An empty key leaves them disabled.
func OpenWithAI(dbPath, provider, apiKey string) (*Core, error) {
	return open(dbPath, gateway.New(gateway.Config{Provider: provider, APIKey: apiKey}))
}

func open(dbPath string, gw uniasset.AIGateway) (*Core, error) {
	core, err := uniasset.OpenWithOptions(uniasset.Options{DBPath: dbPath, Gateway: gw, SeedDemo: true})
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// AIAvailable reports whether AI features are configured.
func (c *Core) AIAvailable() bool {
	return c.core.AIAvailable()
}

// GetDashboardJSON returns the portfolio overview as JSON.
func (c *Core) GetDashboardJSON() (string, error) {
	return marshalJSON(c.core.Dashboard())
}

// GetAssetsJSON returns every asset as JSON.
func (c *Core) GetAssetsJSON() (string, error) {
	return marshalJSON(c.core.Assets())
}

// AddAssetJSON submits a draft and returns the stored asset.
func (c *Core) AddAssetJSON(draftJSON string) (string, error) {
	draft, err := decodeDraft(draftJSON)
	if err != nil {
		return "", err
	}
	asset, err := c.core.AddAsset(context.Background(), draft)
	if err != nil {
		return "", err
	}
	return marshalJSON(asset)
}

// UpdateAssetJSON edits asset id and returns it with its history.
func (c *Core) UpdateAssetJSON(id, draftJSON string) (string, error) {
	draft, err := decodeDraft(draftJSON)
	if err != nil {
		return "", err
	}
	asset, err := c.core.UpdateAsset(context.Background(), id, draft)
	if err != nil {
		return "", err
	}
	return marshalJSON(asset)
}

// DeleteAsset removes an asset by id.
func (c *Core) DeleteAsset(id string) error {
	return c.core.DeleteAsset(context.Background(), id)
}

// ReconcileJSON applies an edit of field (quantity, unit_price or
// total_value) to a draft and returns the reconciled draft.
func (c *Core) ReconcileJSON(draftJSON, field string, value float64) (string, error) {
	draft, err := decodeDraft(draftJSON)
	if err != nil {
		return "", err
	}
	out, err := draft.Reconcile(field, uniasset.NewAmount(value))
	if err != nil {
		return "", err
	}
	return marshalJSON(out)
}

// ClassifyAddress returns the chain name of address, or "" when invalid.
func (c *Core) ClassifyAddress(address string) string {
	chain, _ := uniasset.ClassifyAddress(address)
	return string(chain)
}

// ConnectWalletJSON connects a wallet; chain may be empty to detect it.
func (c *Core) ConnectWalletJSON(address, chain string) (string, error) {
	var requested uniasset.Chain
	if chain != "" {
		parsed, ok := uniasset.ParseChain(chain)
		if !ok {
			return "", uniasset.NewError(uniasset.ErrCodeValidation, "unsupported chain: "+chain)
		}
		requested = parsed
	}
	wallet, assets, err := c.core.ConnectWallet(context.Background(), address, requested)
	if err != nil {
		return "", err
	}
	return marshalJSON(walletAssets{Wallet: wallet, Assets: assets})
}

// SyncAllJSON refreshes every wallet.
func (c *Core) SyncAllJSON() (string, error) {
	result, err := c.core.SyncAll(context.Background())
	if err != nil {
		return "", err
	}
	return marshalJSON(result)
}

// RemoveWallet disconnects a wallet and returns how many assets went with it.
func (c *Core) RemoveWallet(id string) (int, error) {
	_, removed, err := c.core.RemoveWallet(context.Background(), id)
	return removed, err
}

// GetEventFeedJSON returns the market events with their exposure.
func (c *Core) GetEventFeedJSON() (string, error) {
	return marshalJSON(c.core.EventFeed())
}

// SendMessageJSON asks the advisor and returns the reply message.
func (c *Core) SendMessageJSON(text string) (string, error) {
	reply, err := c.core.SendMessage(context.Background(), text)
	if err != nil {
		return "", err
	}
	return marshalJSON(reply)
}

type walletAssets struct {
	Wallet uniasset.Wallet  `json:"wallet"`
	Assets []uniasset.Asset `json:"assets"`
}

func decodeDraft(data string) (uniasset.AssetDraft, error) {
	draft := uniasset.NewDraft()
	if data == "" {
		return draft, nil
	}
	if err := json.Unmarshal([]byte(data), &draft); err != nil {
		return draft, uniasset.WrapError(uniasset.ErrCodeInvalidInput, "invalid draft JSON", err)
	}
	return draft, nil
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
