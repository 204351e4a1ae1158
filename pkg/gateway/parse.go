package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"google.golang.org/genai"

	"uniasset/pkg/uniasset"
)

// cleanupModelJSON strips markdown fences and surrounding prose from a model
// answer, keeping the outermost object or array.
func cleanupModelJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			trimmed = strings.Join(lines, "\n")
		}
	}
	openCh, closeCh := "{", "}"
	obj := strings.Index(trimmed, "{")
	arr := strings.Index(trimmed, "[")
	if arr >= 0 && (obj < 0 || arr < obj) {
		openCh, closeCh = "[", "]"
	}
	start := strings.Index(trimmed, openCh)
	end := strings.LastIndex(trimmed, closeCh)
	if start >= 0 && end > start {
		trimmed = trimmed[start : end+1]
	}
	return strings.TrimSpace(trimmed)
}

func decodeModelJSON(content string) (any, error) {
	var doc any
	if err := json.Unmarshal([]byte(cleanupModelJSON(content)), &doc); err != nil {
		return nil, uniasset.WrapError(uniasset.ErrCodeAIUnavailable, "model returned invalid JSON", err)
	}
	return doc, nil
}

// parseAssetDraft coerces a model answer into a draft. Unknown product
// types and negative numbers are dropped rather than rejected.
func parseAssetDraft(content string) (uniasset.AssetDraft, error) {
	doc, err := decodeModelJSON(content)
	if err != nil {
		return uniasset.AssetDraft{}, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return uniasset.AssetDraft{}, uniasset.NewError(uniasset.ErrCodeAIUnavailable, "model returned no asset object")
	}

	d := uniasset.AssetDraft{
		Platform:     stringField(obj, "platform"),
		Symbol:       strings.ToUpper(stringField(obj, "symbol")),
		Currency:     strings.ToUpper(stringField(obj, "currency")),
		ExposureTags: stringList(obj["exposureTags"]),
	}
	if pt, ok := uniasset.ParseProductType(stringField(obj, "productType")); ok {
		d.ProductType = pt
	}
	if v, ok := amountField(obj, "quantity"); ok {
		d.Quantity = v
	}
	if v, ok := amountField(obj, "unitPrice"); ok {
		d.UnitPrice = v
	}
	if v, ok := amountField(obj, "totalValue"); ok {
		d.TotalValue = v
	}
	return d, nil
}

// parseEvents accepts either a bare array or an object holding an "events"
// array.
func parseEvents(content string) ([]uniasset.MarketEvent, error) {
	doc, err := decodeModelJSON(content)
	if err != nil {
		return nil, err
	}
	items, ok := doc.([]any)
	if !ok {
		found, err := jsonpath.Get("$.events", doc)
		if err != nil {
			return nil, uniasset.WrapError(uniasset.ErrCodeAIUnavailable, "model returned no events", err)
		}
		if items, ok = found.([]any); !ok {
			return nil, uniasset.NewError(uniasset.ErrCodeAIUnavailable, "model returned no events")
		}
	}

	events := make([]uniasset.MarketEvent, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		events = append(events, uniasset.MarketEvent{
			Type:           uniasset.EventType(strings.ToLower(stringField(obj, "type"))),
			Title:          stringField(obj, "title"),
			Date:           stringField(obj, "date"),
			AffectedAssets: stringList(obj["affectedAssets"]),
			ImpactStrength: uniasset.ImpactStrength(strings.ToLower(stringField(obj, "impactStrength"))),
			Direction:      uniasset.ImpactDirection(strings.ToLower(stringField(obj, "direction"))),
			Reasoning:      stringField(obj, "reasoning"),
		})
	}
	return events, nil
}

func parseQuote(content string) (uniasset.Quote, error) {
	doc, err := decodeModelJSON(content)
	if err != nil {
		return uniasset.Quote{}, err
	}
	raw, err := jsonpath.Get("$.price", doc)
	if err != nil {
		return uniasset.Quote{}, uniasset.WrapError(uniasset.ErrCodeNotFound, "model returned no price", uniasset.ErrNoQuote)
	}
	price, ok := toFloat(raw)
	if !ok || price <= 0 {
		return uniasset.Quote{}, uniasset.WrapError(uniasset.ErrCodeNotFound, fmt.Sprintf("model returned invalid price %v", raw), uniasset.ErrNoQuote)
	}
	q := uniasset.Quote{Price: uniasset.NewAmount(price), Source: uniasset.SourceAI}
	if obj, ok := doc.(map[string]any); ok {
		q.Name = stringField(obj, "name")
		if pt, ok := uniasset.ParseProductType(stringField(obj, "productType")); ok {
			q.ProductType = pt
		}
	}
	return q, nil
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			items = []any{}
			for _, part := range strings.Split(s, ",") {
				items = append(items, part)
			}
		}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func amountField(obj map[string]any, key string) (uniasset.Amount, bool) {
	f, ok := toFloat(obj[key])
	if !ok || f < 0 {
		return uniasset.Amount{}, false
	}
	return uniasset.NewAmount(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, isFinite(n)
	case string:
		s := strings.NewReplacer(",", "", "$", "", " ", "").Replace(n)
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && isFinite(f)
	}
	return 0, false
}

// isFinite rejects the NaN and Inf spellings ParseFloat accepts.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func assetSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"platform":     {Type: genai.TypeString},
			"productType":  {Type: genai.TypeString, Enum: productTypeNames()},
			"symbol":       {Type: genai.TypeString},
			"quantity":     {Type: genai.TypeNumber},
			"unitPrice":    {Type: genai.TypeNumber},
			"totalValue":   {Type: genai.TypeNumber},
			"currency":     {Type: genai.TypeString},
			"exposureTags": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
	}
}

func eventsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"type":           {Type: genai.TypeString, Enum: []string{"past", "upcoming"}},
				"title":          {Type: genai.TypeString},
				"date":           {Type: genai.TypeString},
				"affectedAssets": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"impactStrength": {Type: genai.TypeString, Enum: []string{"low", "medium", "high"}},
				"direction":      {Type: genai.TypeString, Enum: []string{"positive", "negative", "mixed", "neutral"}},
				"reasoning":      {Type: genai.TypeString},
			},
			Required: []string{"type", "title", "date", "affectedAssets", "impactStrength", "direction", "reasoning"},
		},
	}
}

func quoteSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"price":       {Type: genai.TypeNumber},
			"name":        {Type: genai.TypeString},
			"productType": {Type: genai.TypeString, Enum: productTypeNames()},
		},
		Required: []string{"price"},
	}
}
