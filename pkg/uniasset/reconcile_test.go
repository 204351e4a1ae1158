package uniasset

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDraftReconciliation(t *testing.T) {
	d := NewDraft()
	d = d.WithQuantity(mustAmount("10"))
	d = d.WithUnitPrice(mustAmount("200"))
	if !d.TotalValue.Equal(mustAmount("2000")) {
		t.Fatalf("total after price = %s, want 2000", d.TotalValue)
	}

	d = d.WithTotalValue(mustAmount("2500"))
	if !d.UnitPrice.Equal(mustAmount("250")) {
		t.Fatalf("price after total = %s, want 250", d.UnitPrice)
	}

	d = d.WithQuantity(mustAmount("4"))
	if !d.TotalValue.Equal(mustAmount("1000")) {
		t.Fatalf("total after quantity = %s, want 1000", d.TotalValue)
	}
}

func TestWithTotalValueZeroQuantity(t *testing.T) {
	d := NewDraft().WithUnitPrice(mustAmount("5"))
	d = d.WithTotalValue(mustAmount("100"))
	if !d.UnitPrice.IsZero() {
		t.Fatalf("price = %s, want 0 when quantity is 0", d.UnitPrice)
	}
	if !d.TotalValue.Equal(mustAmount("100")) {
		t.Fatalf("total = %s", d.TotalValue)
	}
}

func TestReconcileByName(t *testing.T) {
	d := mustDraft(t, "AAPL", "10", "0")
	d, err := d.Reconcile(ReconcileUnitPrice, mustAmount("200"))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !d.TotalValue.Equal(mustAmount("2000")) {
		t.Fatalf("total = %s", d.TotalValue)
	}
	if _, err := d.Reconcile(ReconcileQuantity, mustAmount("-1")); !IsErrorCode(err, ErrCodeValidation) {
		t.Fatalf("negative quantity error = %v", err)
	}
	if _, err := d.Reconcile("fees", mustAmount("1")); !IsErrorCode(err, ErrCodeInvalidInput) {
		t.Fatalf("unknown field error = %v", err)
	}
}

func TestFinalizeDefaultsAndValidation(t *testing.T) {
	d := NewDraft()
	d.Symbol = " aapl "
	d.Quantity = mustAmount("10")
	d.TotalValue = mustAmount("2000")
	out, err := d.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if out.Symbol != "AAPL" || out.Platform != "Other" || out.ProductType != ProductOther || out.Currency != "USD" {
		t.Fatalf("defaults not applied: %+v", out)
	}
	if !out.UnitPrice.Equal(mustAmount("200")) {
		t.Fatalf("derived price = %s", out.UnitPrice)
	}
	if len(out.ExposureTags) != 1 || out.ExposureTags[0] != "General" {
		t.Fatalf("tags = %v", out.ExposureTags)
	}

	tests := []struct {
		name  string
		draft AssetDraft
	}{
		{"missing symbol", mustDraft(t, "", "1", "1")},
		{"zero quantity", mustDraft(t, "AAPL", "0", "1")},
		{"negative price", mustDraft(t, "AAPL", "1", "-1")},
		{"quantity above ceiling", mustDraft(t, "AAPL", "2e15", "1")},
		{"total above ceiling", mustDraft(t, "AAPL", "1e300", "1e300")},
	}
	for _, tt := range tests {
		if _, err := tt.draft.Finalize(); !IsErrorCode(err, ErrCodeValidation) {
			t.Fatalf("%s: err = %v", tt.name, err)
		}
	}
}

func TestFinalizePriceWinsOverStaleTotal(t *testing.T) {
	d := mustDraft(t, "MSFT", "3", "100")
	d.TotalValue = mustAmount("1")
	out, err := d.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !out.TotalValue.Equal(mustAmount("300")) {
		t.Fatalf("total = %s, want 300", out.TotalValue)
	}
}

func TestMergeParsedDraft(t *testing.T) {
	current := NewDraft()
	current.Platform = "Fidelity"
	current.Notes = "keep"

	parsed := AssetDraft{Symbol: "nvda", Quantity: mustAmount("2"), UnitPrice: mustAmount("850"), ExposureTags: []string{"AI", "AI", " Growth "}}
	merged := MergeParsedDraft(current, parsed)
	if merged.Platform != "Fidelity" || merged.Notes != "keep" {
		t.Fatalf("unparsed fields overwritten: %+v", merged)
	}
	if merged.Symbol != "NVDA" || !merged.TotalValue.Equal(mustAmount("1700")) {
		t.Fatalf("merged = %+v", merged)
	}
	if len(merged.ExposureTags) != 2 || merged.ExposureTags[1] != "Growth" {
		t.Fatalf("tags = %v", merged.ExposureTags)
	}

	onlyQty := MergeParsedDraft(current, AssetDraft{Quantity: mustAmount("5")})
	if !onlyQty.TotalValue.IsZero() {
		t.Fatalf("total = %s, want 0 without a parsed price", onlyQty.TotalValue)
	}
}

func TestApplyEditHistory(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	final, err := mustDraft(t, "AAPL", "10", "200").Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	asset := newAssetFromDraft(final, created, 1.5)

	same, changes := applyEdit(asset, final, created.Add(time.Hour))
	if len(changes) != 0 || len(same.UpdateHistory) != 0 {
		t.Fatalf("no-op edit recorded history: %v", same.UpdateHistory)
	}

	next := final.WithQuantity(mustAmount("15"))
	next.Notes = "added more"
	edited, changes := applyEdit(asset, next, created.Add(2*time.Hour))
	if len(changes) != 2 {
		t.Fatalf("changes = %+v", changes)
	}
	if changes[0].Field != FieldQuantity || changes[0].OldValue != "10" || changes[0].NewValue != "15" {
		t.Fatalf("quantity change = %+v", changes[0])
	}
	if len(edited.UpdateHistory) != 1 || !edited.CreatedAt.Equal(created) || edited.ID != asset.ID {
		t.Fatalf("edited = %+v", edited)
	}
	if !edited.TotalValue.Equal(mustAmount("3000")) {
		t.Fatalf("total = %s", edited.TotalValue)
	}
}

func TestAmountJSONOutOfRange(t *testing.T) {
	huge := mustAmount("1e300").Mul(mustAmount("1e300"))
	if _, err := json.Marshal(huge); err == nil {
		t.Fatalf("expected an error marshaling %s", huge)
	}
	data, err := json.Marshal(mustAmount("1e15"))
	if err != nil || string(data) != "1000000000000000" {
		t.Fatalf("marshal ceiling = %s, %v", data, err)
	}
}
