package uniasset

import "context"

// ImageInput is an inline image handed to the AI gateway.
type ImageInput struct {
	MIMEType string
	Data     []byte
}

// AdvisoryRequest carries everything the advisor needs for one answer.
type AdvisoryRequest struct {
	Query     string
	Portfolio []Asset
	Events    []MarketEvent
	History   []ChatMessage
}

// AIGateway is the generative model behind parsing, advice, market
// insights and quote fallback. Implementations return an error wrapping
// ErrCodeAIUnavailable when no credential is configured.
type AIGateway interface {
	Available() bool
	ParseAssetEntry(ctx context.Context, text string, image *ImageInput) (AssetDraft, error)
	AdvisoryResponse(ctx context.Context, req AdvisoryRequest) (string, error)
	MarketInsights(ctx context.Context, portfolio []Asset) ([]MarketEvent, error)
	MarketData(ctx context.Context, symbol string) (Quote, error)
}

// disabledGateway stands in when no provider is configured.
type disabledGateway struct{}

func (disabledGateway) Available() bool { return false }

func (disabledGateway) ParseAssetEntry(context.Context, string, *ImageInput) (AssetDraft, error) {
	return AssetDraft{}, errAIUnavailable()
}

func (disabledGateway) AdvisoryResponse(context.Context, AdvisoryRequest) (string, error) {
	return "", errAIUnavailable()
}

func (disabledGateway) MarketInsights(context.Context, []Asset) ([]MarketEvent, error) {
	return nil, errAIUnavailable()
}

func (disabledGateway) MarketData(context.Context, string) (Quote, error) {
	return Quote{}, errAIUnavailable()
}

func errAIUnavailable() error {
	return NewError(ErrCodeAIUnavailable, "AI API key not configured")
}
