package catalog

import "context"

// Transactor runs fn as one atomic unit against the record store. Repository
// calls made with the context passed to fn join the same transaction. If fn
// returns an error, none of its writes become visible.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
