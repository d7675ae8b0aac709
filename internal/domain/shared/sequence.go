package shared

import (
	"context"
	"fmt"
	"time"
)

// SequenceGenerator hands out monotonically increasing numbers per
// scope from a durable counter. Implementations must increment
// atomically at the storage layer; deriving the next number from a
// count query races under concurrent creates and must never be used.
type SequenceGenerator interface {
	// Next returns the next number for the scope, starting at 1
	Next(ctx context.Context, scope string) (int64, error)
}

// DailyScope builds a per-day sequence scope so document numbering
// restarts every day, e.g. "SI:20260825".
func DailyScope(prefix string, t time.Time) string {
	return fmt.Sprintf("%s:%s", prefix, t.Format("20060102"))
}

// FormatDocumentNumber renders a document number as
// {prefix}-{YYYYMMDD}-{5-digit}, e.g. "SI-20260825-00042".
func FormatDocumentNumber(prefix string, t time.Time, value int64) string {
	return fmt.Sprintf("%s-%s-%05d", prefix, t.Format("20060102"), value)
}
