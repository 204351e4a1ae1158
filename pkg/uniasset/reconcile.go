package uniasset

import (
	"fmt"
	"time"
)

// AssetDraft is the editable form state of an asset. Any two of quantity,
// unit price and total value determine the third.
type AssetDraft struct {
	Platform         string      `json:"platform"`
	ProductType      ProductType `json:"product_type"`
	Symbol           string      `json:"symbol"`
	Quantity         Amount      `json:"quantity"`
	UnitPrice        Amount      `json:"unit_price"`
	TotalValue       Amount      `json:"total_value"`
	Currency         string      `json:"currency"`
	ExposureTags     []string    `json:"exposure_tags"`
	ExpectedYieldAPY *Amount     `json:"expected_yield_apy,omitempty"`
	Notes            string      `json:"notes,omitempty"`
}

// NewDraft returns an empty draft in the default currency.
func NewDraft() AssetDraft {
	return AssetDraft{Currency: defaultCurrency, ExposureTags: []string{}}
}

// DraftFromAsset returns the editable fields of an existing asset.
func DraftFromAsset(a Asset) AssetDraft {
	c := a.clone()
	return AssetDraft{
		Platform:         c.Platform,
		ProductType:      c.ProductType,
		Symbol:           c.Symbol,
		Quantity:         c.Quantity,
		UnitPrice:        c.UnitPrice,
		TotalValue:       c.TotalValue,
		Currency:         c.Currency,
		ExposureTags:     c.ExposureTags,
		ExpectedYieldAPY: c.ExpectedYieldAPY,
		Notes:            c.Notes,
	}
}

// Reconciliation fields accepted by Reconcile.
const (
	ReconcileQuantity   = "quantity"
	ReconcileUnitPrice  = "unit_price"
	ReconcileTotalValue = "total_value"
)

// WithQuantity sets the quantity and recomputes the total at a fixed price.
func (d AssetDraft) WithQuantity(q Amount) AssetDraft {
	d.Quantity = q
	d.TotalValue = q.Mul(d.UnitPrice)
	return d
}

// WithUnitPrice sets the unit price and recomputes the total.
func (d AssetDraft) WithUnitPrice(p Amount) AssetDraft {
	d.UnitPrice = p
	d.TotalValue = d.Quantity.Mul(p)
	return d
}

// WithTotalValue sets the total and derives the unit price. With no quantity
// the price cannot be derived and is reset to zero.
func (d AssetDraft) WithTotalValue(t Amount) AssetDraft {
	d.TotalValue = t
	if d.Quantity.IsPositive() {
		d.UnitPrice = t.Div(d.Quantity)
	} else {
		d.UnitPrice = Amount{}
	}
	return d
}

// Reconcile applies a single field edit by name.
func (d AssetDraft) Reconcile(field string, value Amount) (AssetDraft, error) {
	if value.IsNegative() {
		return d, NewError(ErrCodeValidation, field+" must not be negative")
	}
	switch field {
	case ReconcileQuantity:
		return d.WithQuantity(value), nil
	case ReconcileUnitPrice:
		return d.WithUnitPrice(value), nil
	case ReconcileTotalValue:
		return d.WithTotalValue(value), nil
	}
	return d, NewError(ErrCodeInvalidInput, "unknown reconcile field: "+field)
}

// Finalize validates a draft for submission and fills the missing member of
// the quantity/price/total triple. A draft without a symbol or quantity is
// rejected.
func (d AssetDraft) Finalize() (AssetDraft, error) {
	d.Symbol = normalizeSymbol(d.Symbol)
	if d.Symbol == "" {
		return d, NewError(ErrCodeValidation, "symbol is required")
	}
	if !d.Quantity.IsPositive() {
		return d, NewError(ErrCodeValidation, "quantity must be greater than zero")
	}
	if d.UnitPrice.IsNegative() || d.TotalValue.IsNegative() {
		return d, NewError(ErrCodeValidation, "price and total value must not be negative")
	}

	switch {
	case d.UnitPrice.IsPositive():
		d.TotalValue = d.Quantity.Mul(d.UnitPrice)
	case d.TotalValue.IsPositive():
		d.UnitPrice = d.TotalValue.Div(d.Quantity)
	}
	if d.Quantity.exceeds(MaxAmount) || d.UnitPrice.exceeds(MaxAmount) || d.TotalValue.exceeds(MaxAmount) {
		return d, NewError(ErrCodeValidation, fmt.Sprintf("quantity, price and total value must not exceed %.0f", MaxAmount))
	}

	if d.Platform == "" {
		d.Platform = "Other"
	}
	if d.ProductType == "" {
		d.ProductType = ProductOther
	} else if pt, ok := ParseProductType(string(d.ProductType)); ok {
		d.ProductType = pt
	} else {
		return d, NewError(ErrCodeValidation, "unknown product type: "+string(d.ProductType))
	}
	d.Currency = normalizeCurrency(d.Currency)
	d.ExposureTags = normalizeTags(d.ExposureTags)
	if len(d.ExposureTags) == 0 {
		d.ExposureTags = []string{"General"}
	}
	return d, nil
}

// MergeParsedDraft overlays an AI-parsed draft onto the current form. Only
// fields the parser filled are taken; the total comes from the parse, or from
// quantity x price when both were parsed, else zero.
func MergeParsedDraft(current, parsed AssetDraft) AssetDraft {
	out := current
	if parsed.Platform != "" {
		out.Platform = parsed.Platform
	}
	if parsed.ProductType != "" {
		out.ProductType = parsed.ProductType
	}
	if parsed.Symbol != "" {
		out.Symbol = normalizeSymbol(parsed.Symbol)
	}
	if !parsed.Quantity.IsZero() {
		out.Quantity = parsed.Quantity
	}
	if !parsed.UnitPrice.IsZero() {
		out.UnitPrice = parsed.UnitPrice
	}
	if parsed.Currency != "" {
		out.Currency = normalizeCurrency(parsed.Currency)
	}
	if len(parsed.ExposureTags) > 0 {
		out.ExposureTags = normalizeTags(parsed.ExposureTags)
	}
	if parsed.Notes != "" {
		out.Notes = parsed.Notes
	}

	switch {
	case parsed.TotalValue.IsPositive():
		out.TotalValue = parsed.TotalValue
	case parsed.Quantity.IsPositive() && parsed.UnitPrice.IsPositive():
		out.TotalValue = parsed.Quantity.Mul(parsed.UnitPrice)
	default:
		out.TotalValue = Amount{}
	}
	return out
}

func newAssetFromDraft(d AssetDraft, createdAt time.Time, change24h float64) Asset {
	return Asset{
		ID:               newID(),
		Platform:         d.Platform,
		ProductType:      d.ProductType,
		Symbol:           d.Symbol,
		Quantity:         d.Quantity,
		UnitPrice:        d.UnitPrice,
		TotalValue:       d.TotalValue,
		Currency:         d.Currency,
		ExposureTags:     append([]string(nil), d.ExposureTags...),
		ExpectedYieldAPY: d.ExpectedYieldAPY,
		Notes:            d.Notes,
		Change24h:        &change24h,
		CreatedAt:        createdAt,
		UpdateHistory:    []ChangeRecord{},
	}
}

// diffTracked lists the tracked-field deltas between an asset and its edit.
func diffTracked(old Asset, next AssetDraft) []FieldChange {
	var changes []FieldChange
	if !old.Quantity.Equal(next.Quantity) {
		changes = append(changes, FieldChange{Field: FieldQuantity, OldValue: old.Quantity.String(), NewValue: next.Quantity.String()})
	}
	if !old.UnitPrice.Equal(next.UnitPrice) {
		changes = append(changes, FieldChange{Field: FieldUnitPrice, OldValue: old.UnitPrice.String(), NewValue: next.UnitPrice.String()})
	}
	if old.Notes != next.Notes {
		changes = append(changes, FieldChange{Field: FieldNotes, OldValue: old.Notes, NewValue: next.Notes})
	}
	if old.Platform != next.Platform {
		changes = append(changes, FieldChange{Field: FieldPlatform, OldValue: old.Platform, NewValue: next.Platform})
	}
	return changes
}

// applyEdit returns the edited asset. Identity, creation time, wallet
// provenance and existing history are carried over; a history record is
// appended only when a tracked field changed.
func applyEdit(old Asset, next AssetDraft, at time.Time) (Asset, []FieldChange) {
	changes := diffTracked(old, next)
	out := old.clone()
	out.Platform = next.Platform
	out.ProductType = next.ProductType
	out.Symbol = next.Symbol
	out.Quantity = next.Quantity
	out.UnitPrice = next.UnitPrice
	out.TotalValue = next.TotalValue
	out.Currency = next.Currency
	out.ExposureTags = append([]string(nil), next.ExposureTags...)
	out.ExpectedYieldAPY = next.ExpectedYieldAPY
	out.Notes = next.Notes
	if len(changes) > 0 {
		out.UpdateHistory = append(out.UpdateHistory, ChangeRecord{Timestamp: at, Changes: changes})
	}
	return out, changes
}
