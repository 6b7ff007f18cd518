// Package views names the rendered pages that depend on alert and batch data
// and invalidates their cached copies when that data changes.
package views

import "context"

// Paths of the cached views.
const (
	AdminPath       = "/admin"
	tracePathPrefix = "/trace/"
)

// TracePath returns the public trace page path for a batch number.
func TracePath(batchNo string) string {
	return tracePathPrefix + batchNo
}

// Invalidator marks views stale after the data behind them changes.
// Implementations log failures instead of returning them: a stale page must
// never fail the write that caused it.
type Invalidator interface {
	Invalidate(ctx context.Context, paths ...string)
}

// Cache stores rendered view payloads keyed by path.
type Cache interface {
	Invalidator
	// Get decodes the cached payload for path into dst. Returns false on a miss.
	Get(ctx context.Context, path string, dst any) (bool, error)
	Set(ctx context.Context, path string, value any) error
}

// Dedupe drops empty and repeated paths, keeping first-seen order.
func Dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
