package fulfillment

import (
	"context"
	"errors"
	"strings"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

// Normalize canonicalizes an activation code for comparison: trim, uppercase
// and strip internal whitespace, so "  abc 123 " and "ABC123" compare equal.
func Normalize(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(code)) {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Matcher resolves a claim's activation code against the sales ledger.
// Read-only; it never writes.
type Matcher struct {
	sales SalesStore
}

func NewMatcher(sales SalesStore) *Matcher {
	return &Matcher{sales: sales}
}

// Match tries the cheapest strategy first: exact match (index-friendly),
// then case-insensitive, then a normalized full-ledger scan. Returns
// ErrCodeNotFound when every strategy misses, or a RetryableError when the
// store itself fails.
func (m *Matcher) Match(ctx context.Context, code string) (models.SalesRecord, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return models.SalesRecord{}, ErrCodeNotFound
	}

	rec, err := m.sales.FindExact(ctx, trimmed)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrCodeNotFound) {
		return models.SalesRecord{}, retryable("sales exact lookup", err)
	}

	rec, err = m.sales.FindFold(ctx, trimmed)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrCodeNotFound) {
		return models.SalesRecord{}, retryable("sales fold lookup", err)
	}

	normalized := Normalize(code)
	records, err := m.sales.All(ctx)
	if err != nil {
		return models.SalesRecord{}, retryable("sales ledger scan", err)
	}
	for _, r := range records {
		if Normalize(r.ActivationCode) == normalized {
			return r, nil
		}
	}

	return models.SalesRecord{}, ErrCodeNotFound
}

// IsAlreadyClaimed reports whether the matched record was claimed before.
func (m *Matcher) IsAlreadyClaimed(rec models.SalesRecord) bool {
	return rec.Status == models.SalesClaimed
}
