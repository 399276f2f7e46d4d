// Package directory manages the customer list. The totalOrders and
// totalSpent fields returned here are always recomputed from the completed
// transactions, never read back from storage.
package directory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/ident"
	"wumikay/pos/internal/ledger"
	"wumikay/pos/internal/state"
)

var (
	ErrNotFound        = errors.New("customer not found")
	ErrInvalidCustomer = errors.New("invalid customer")
)

const (
	SortByName       = "name"
	SortByTotalSpent = "totalSpent"
	SortByOrders     = "totalOrders"
	SortByCreatedAt  = "createdAt"
)

type Directory struct {
	repo   *state.Repo
	ledger *ledger.Ledger
	now    func() time.Time
}

func New(repo *state.Repo, lgr *ledger.Ledger) *Directory {
	return &Directory{repo: repo, ledger: lgr, now: func() time.Time { return time.Now().UTC() }}
}

// List returns all customers with fresh aggregates, ordered by sortBy.
// Unknown sort keys fall back to name order.
func (d *Directory) List(ctx context.Context, sortBy string) ([]domain.Customer, error) {
	customers, err := d.repo.Customers(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.applyAggregates(ctx, customers); err != nil {
		return nil, err
	}

	switch sortBy {
	case SortByTotalSpent:
		sort.Slice(customers, func(i, j int) bool { return customers[i].TotalSpent > customers[j].TotalSpent })
	case SortByOrders:
		sort.Slice(customers, func(i, j int) bool { return customers[i].TotalOrders > customers[j].TotalOrders })
	case SortByCreatedAt:
		sort.Slice(customers, func(i, j int) bool { return customers[i].CreatedAt.After(customers[j].CreatedAt) })
	default:
		sort.Slice(customers, func(i, j int) bool {
			return strings.ToLower(customers[i].Name) < strings.ToLower(customers[j].Name)
		})
	}
	return customers, nil
}

func (d *Directory) Get(ctx context.Context, id string) (*domain.Customer, error) {
	customers, err := d.repo.Customers(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range customers {
		if c.ID == id {
			single := []domain.Customer{c}
			if err := d.applyAggregates(ctx, single); err != nil {
				return nil, err
			}
			return &single[0], nil
		}
	}
	return nil, ErrNotFound
}

// Search matches name, email and phone case-insensitively.
func (d *Directory) Search(ctx context.Context, query string) ([]domain.Customer, error) {
	customers, err := d.List(ctx, SortByName)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return customers, nil
	}

	matched := make([]domain.Customer, 0, len(customers))
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Email), q) ||
			strings.Contains(strings.ToLower(c.Phone), q) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (d *Directory) Create(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidCustomer
	}

	customer := domain.Customer{
		ID:          ident.New("cst"),
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
		DateOfBirth: strings.TrimSpace(req.DateOfBirth),
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   d.now(),
	}

	_, err := d.repo.MutateCustomers(ctx, func(customers []domain.Customer) ([]domain.Customer, error) {
		return append(customers, customer), nil
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (d *Directory) Update(ctx context.Context, id string, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	var updated *domain.Customer
	_, err := d.repo.MutateCustomers(ctx, func(customers []domain.Customer) ([]domain.Customer, error) {
		for i := range customers {
			if customers[i].ID != id {
				continue
			}
			c := &customers[i]
			if req.Name != nil {
				if strings.TrimSpace(*req.Name) == "" {
					return nil, ErrInvalidCustomer
				}
				c.Name = strings.TrimSpace(*req.Name)
			}
			if req.Email != nil {
				c.Email = strings.TrimSpace(*req.Email)
			}
			if req.Phone != nil {
				c.Phone = strings.TrimSpace(*req.Phone)
			}
			if req.Address != nil {
				c.Address = strings.TrimSpace(*req.Address)
			}
			if req.DateOfBirth != nil {
				c.DateOfBirth = strings.TrimSpace(*req.DateOfBirth)
			}
			if req.Notes != nil {
				c.Notes = strings.TrimSpace(*req.Notes)
			}
			at := d.now()
			c.UpdatedAt = &at
			saved := *c
			updated = &saved
			return customers, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	single := []domain.Customer{*updated}
	if err := d.applyAggregates(ctx, single); err != nil {
		return nil, err
	}
	return &single[0], nil
}

// Delete removes a customer. Their past transactions stay in the ledger
// untouched.
func (d *Directory) Delete(ctx context.Context, id string) error {
	_, err := d.repo.MutateCustomers(ctx, func(customers []domain.Customer) ([]domain.Customer, error) {
		for i := range customers {
			if customers[i].ID == id {
				return append(customers[:i], customers[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
	return err
}

func (d *Directory) applyAggregates(ctx context.Context, customers []domain.Customer) error {
	completed, err := d.ledger.Completed(ctx)
	if err != nil {
		return err
	}

	orders := make(map[string]int, len(customers))
	spent := make(map[string]float64, len(customers))
	for _, tx := range completed {
		if tx.CustomerID == "" {
			continue
		}
		orders[tx.CustomerID]++
		spent[tx.CustomerID] += tx.Total
	}

	for i := range customers {
		customers[i].TotalOrders = orders[customers[i].ID]
		customers[i].TotalSpent = spent[customers[i].ID]
	}
	return nil
}
