package uniasset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
)

const defaultCurrency = "USD"

var nowFunc = time.Now

func now() time.Time {
	return nowFunc().UTC()
}

func newID() string {
	return uuid.NewString()
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func normalizeCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		return defaultCurrency
	}
	return c
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeTags trims labels and drops blanks and duplicates, keeping the
// first occurrence order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.TrimSpace(tag)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// FormatMoney renders an amount in its currency, e.g. "$42,500.00". Codes
// unknown to the currency table fall back to "1234.56 XYZ".
func FormatMoney(a Amount, currency string) string {
	code := normalizeCurrency(currency)
	cur := money.GetCurrency(code)
	if cur == nil {
		return fmt.Sprintf("%s %s", a.Round(2).StringFixed(2), code)
	}
	minor := a.Decimal.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
