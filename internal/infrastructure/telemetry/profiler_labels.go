package telemetry

import (
	"context"
	"maps"
	"runtime/pprof"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Label keys used to slice profiles in the Pyroscope UI.
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelRegion    = "region"
	ProfilingLabelComponent = "component"
)

// MaxLabelValueLength caps label values to keep profile cardinality
// bounded.
const MaxLabelValueLength = 128

// HighCardinalityLabels lists label keys that are always filtered out.
// Entity identifiers are unbounded in a busy ledger and would blow up
// Pyroscope's memory if attached to profiles. Do not modify at runtime.
var HighCardinalityLabels = map[string]bool{
	"party_id":    true,
	"document_id": true,
	"payment_id":  true,
	"request_id":  true,
	"trace_id":    true,
	"span_id":     true,
}

// WithProfilingLabels runs fn with the given labels attached to its
// profiling samples. Labels are sanitized first: high-cardinality keys
// are dropped, long values truncated, keys normalized to snake_case.
// The map is copied, so the caller may reuse it afterwards.
//
//	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("create_payment", nil), func(c context.Context) {
//	    settleAllocations(c)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// WithPprofLabels is the same as WithProfilingLabels but goes through
// Go's native pprof API, for callers that need the labels visible to
// standard profiling tools rather than the Pyroscope SDK.
func WithPprofLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pprof.Do(ctx, pprof.Labels(pairs...), fn)
}

// labelPairs copies, sanitizes and flattens labels into the key/value
// slice the profiling APIs take, sorted by key for determinism.
func labelPairs(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || HighCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		if sanitized := sanitizeLabelKey(key); sanitized != "" {
			pairs = append(pairs, sanitized, value)
		}
	}
	return pairs
}

// sanitizeLabelKey normalizes a key to snake_case, dropping anything
// that is not alphanumeric or underscore.
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_':
			b.WriteByte(c)
		case c == ' ' || c == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// OperationLabels builds a label set for a named operation.
func OperationLabels(operation string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+1)
	labels[ProfilingLabelOperation] = operation
	maps.Copy(labels, extra)
	return labels
}

// RegionLabels builds a label set for a code region such as a cache
// rebuild or a bulk recompute.
func RegionLabels(region string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+1)
	labels[ProfilingLabelRegion] = region
	maps.Copy(labels, extra)
	return labels
}
