// Package ledger is the read side of the transaction history. Committed
// sales are appended by the order engine; this package answers queries over
// them.
package ledger

import (
	"context"
	"errors"
	"sort"

	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/state"
)

var ErrNotFound = errors.New("transaction not found")

type Ledger struct {
	repo *state.Repo
}

func New(repo *state.Repo) *Ledger {
	return &Ledger{repo: repo}
}

// All returns every transaction, newest first.
func (l *Ledger) All(ctx context.Context) ([]domain.Transaction, error) {
	transactions, err := l.repo.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})
	return transactions, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	transactions, err := l.repo.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	for _, tx := range transactions {
		if tx.ID == id {
			found := tx
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// Completed returns only completed transactions, newest first. Reports and
// customer aggregates count nothing else.
func (l *Ledger) Completed(ctx context.Context) ([]domain.Transaction, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	completed := make([]domain.Transaction, 0, len(all))
	for _, tx := range all {
		if tx.Status == domain.StatusCompleted {
			completed = append(completed, tx)
		}
	}
	return completed, nil
}

func (l *Ledger) ByCustomer(ctx context.Context, customerID string) ([]domain.Transaction, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Transaction, 0, 8)
	for _, tx := range all {
		if tx.CustomerID == customerID {
			matched = append(matched, tx)
		}
	}
	return matched, nil
}

// Recent returns the newest transactions up to limit.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 5
	}
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
