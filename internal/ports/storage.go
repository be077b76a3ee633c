// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. The parser core depends
// only on these types, never on a concrete cache or watcher.
package ports

// SummaryStore persists parse summaries so unchanged targets are not reparsed.
// The backing store (bbolt) keys summaries by a content hash; a summary is only
// ever looked up for the exact language and source bytes that produced it.
//
// Crash safety: Put must be transactional. A crash mid-write must not corrupt
// previously committed summaries.
type SummaryStore interface {
	// Get returns the summary stored under key.
	// Returns nil, nil if nothing is stored (cache miss).
	Get(key string) (*Summary, error)

	// Put stores a summary under key, replacing any previous value.
	Put(key string, summary *Summary) error

	// Delete removes a summary. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases the underlying database.
	Close() error
}

// Summary is the cacheable outcome of parsing one target.
type Summary struct {
	Language    string       `json:"language"`
	Grammar     GrammarID    `json:"grammar"`
	Path        string       `json:"path"`
	RootKind    string       `json:"root_kind"`
	HasError    bool         `json:"has_error"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Sexp        string       `json:"sexp,omitempty"`
}
