package domain

import "context"

// Catalog is the read-only index over the loaded product catalog.
// Implementations must be safe for unrestricted concurrent reads.
type Catalog interface {
	FindByCode(code string) (CatalogEntry, bool)
	Entries() []CatalogEntry
	Size() int
}

// TermClient is the remote text-generation service that turns a product
// name into search terms. Returns the raw completion text; parsing is the
// caller's concern.
type TermClient interface {
	Complete(ctx context.Context, productName, priceHint string) (string, error)
}

// TermCache is the durable map from normalized product name to the
// 5-term search list. Entries are never invalidated, only overwritten.
type TermCache interface {
	Get(key string) ([]string, bool)
	Put(key string, terms []string) error
}

// Ledger is the persistent per-iteration substitute selection store.
type Ledger interface {
	Record(iteration int) SelectionRecord
	SaveSelection(iteration int, subs []Substitute) error
	CompletedCount() int
	TotalCount() int
}

// WorkList is the upstream list of products awaiting substitute selection.
type WorkList interface {
	Item(iteration int) (WorkItem, bool)
	Len() int
}
