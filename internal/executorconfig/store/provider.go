package store

import "github.com/kandev/executorconfig/internal/db"

// Provide creates the SQL repository on a shared pool. The pool stays owned by
// the caller; the cleanup only releases the repository.
func Provide(pool *db.Pool) (*SQLRepository, func() error, error) {
	repo, err := NewSQLRepository(pool)
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}
