package models

// TermState is the lifecycle state of one search term inside a run.
type TermState string

const (
	TermPending    TermState = "PENDING"
	TermNavigating TermState = "NAVIGATING"
	TermExtracting TermState = "EXTRACTING"
	TermRetrying   TermState = "RETRYING"
	TermDone       TermState = "DONE"
	TermFailed     TermState = "FAILED"
	TermCancelled  TermState = "CANCELLED"
)

// TermResult describes how a single search term ended.
type TermResult struct {
	Term string `json:"term"`

	// State is the final state (DONE, FAILED or CANCELLED).
	State TermState `json:"state"`

	// Count is the number of unique records the term produced before the
	// run-wide merge.
	Count int `json:"count"`

	// Passes is the number of extraction passes performed.
	Passes int `json:"passes"`

	// Insufficient counts candidates discarded by the validation gate.
	Insufficient int `json:"insufficient"`

	Error string `json:"error,omitempty"`
}

// RunSummary is handed to the exporter once a run finishes.
type RunSummary struct {
	// Site is the adapter name ("linkedin", "mercadolibre").
	Site string `json:"site"`

	// Success is false when the browser could not be launched or when every
	// term failed without producing a single record.
	Success bool `json:"success"`

	// ItemCount is the size of the de-duplicated accepted set.
	ItemCount int `json:"item_count"`

	ElapsedMs int64 `json:"elapsed_ms"`

	// Errors lists term-scoped and setup errors, never raised past the run.
	Errors []string `json:"errors"`

	// PerTerm maps each search term to the records it contributed.
	PerTerm map[string]int `json:"per_term"`

	Terms []TermResult `json:"terms,omitempty"`

	// Insufficient is the total of discarded candidates across terms.
	Insufficient int `json:"insufficient"`

	// NewItems is the number of records not seen by previous runs. Only set
	// when the history store is enabled.
	NewItems int `json:"new_items,omitempty"`

	// CapReached is true when the global item cap stopped the run early.
	CapReached bool `json:"cap_reached"`
}
