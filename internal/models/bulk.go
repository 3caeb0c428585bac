package models

// BulkFailure describes one item that failed inside a bulk operation.
type BulkFailure struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// BulkResult reports the outcome of a sequential bulk operation. Bulk
// operations are best-effort: items before a failure have taken effect and
// items after it were still attempted, so both lists may be populated.
type BulkResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// AllSucceeded reports whether every item went through.
func (r BulkResult) AllSucceeded() bool {
	return len(r.Failed) == 0
}
