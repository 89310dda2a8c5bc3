/*
store.go - Persistence interface for records

PURPOSE:
  Defines the interface between the domain services and the database.
  Every record collection (transactions, expenses, projects, withdrawals)
  is the same five operations over a different record type.

CONTRACT:
  - Create stores a record whose ID the caller already assigned
  - Get, Update and Delete on an unknown id return a NotFoundError
  - List returns records in insertion order, which is the natural order
    for "approve all"
  - Update overwrites the whole record (last write wins, no versioning)

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite tables per record type
  - generic/store/memory.go: In-memory for testing and DATA_BACKEND=memory

SEE ALSO:
  - finance/service.go: Uses Collection for each record type
*/
package generic

import "context"

// =============================================================================
// COLLECTION - Interface for record persistence
// =============================================================================

// Record is anything stored in a Collection.
type Record interface {
	RecordID() string
}

// Collection persists one record type.
type Collection[T Record] interface {
	Create(ctx context.Context, rec T) error
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context) ([]T, error)
	Update(ctx context.Context, rec T) error
	Delete(ctx context.Context, id string) error
}
