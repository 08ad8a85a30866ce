package repositories

import "context"

// UnitOfWork executes a function within a single transactional scope.
// Repositories called with the derived context share one database
// transaction; an error rolls everything back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
