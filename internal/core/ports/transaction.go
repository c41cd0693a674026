package ports

// Transaction is an all-or-nothing set of read/write operations against the
// persistence backing. It must either be committed explicitly or discarded
// on any failure.
type Transaction interface {
	Commit() error
	Discard()
}
