// Package catalog manages the product list: CRUD, search, categories and
// low-stock reporting.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/ident"
	"wumikay/pos/internal/state"
)

var (
	ErrNotFound       = errors.New("product not found")
	ErrInvalidProduct = errors.New("invalid product")
)

//go:embed sample_products.json
var sampleProductsJSON []byte

type Manager struct {
	repo *state.Repo
	now  func() time.Time
}

func NewManager(repo *state.Repo) *Manager {
	return &Manager{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (m *Manager) List(ctx context.Context) ([]domain.Product, error) {
	products, err := m.repo.Products(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
	return products, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*domain.Product, error) {
	products, err := m.repo.Products(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Manager) Create(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	if strings.TrimSpace(req.Name) == "" || req.Price < 0 || req.Quantity < 0 {
		return nil, ErrInvalidProduct
	}

	threshold := 0
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, ErrInvalidProduct
		}
		threshold = *req.LowStockThreshold
	} else {
		settings, err := m.repo.BusinessSettings(ctx)
		if err != nil {
			return nil, err
		}
		threshold = settings.DefaultLowStockThreshold
	}

	now := m.now()
	product := domain.Product{
		ID:                ident.New("prd"),
		Name:              strings.TrimSpace(req.Name),
		Description:       strings.TrimSpace(req.Description),
		Price:             req.Price,
		Quantity:          req.Quantity,
		Category:          strings.TrimSpace(req.Category),
		Barcode:           strings.TrimSpace(req.Barcode),
		LowStockThreshold: threshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err := m.repo.MutateProducts(ctx, func(products []domain.Product) ([]domain.Product, error) {
		return append(products, product), nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (m *Manager) Update(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	var updated *domain.Product
	_, err := m.repo.MutateProducts(ctx, func(products []domain.Product) ([]domain.Product, error) {
		for i := range products {
			if products[i].ID != id {
				continue
			}
			p := &products[i]
			if req.Name != nil {
				if strings.TrimSpace(*req.Name) == "" {
					return nil, ErrInvalidProduct
				}
				p.Name = strings.TrimSpace(*req.Name)
			}
			if req.Description != nil {
				p.Description = strings.TrimSpace(*req.Description)
			}
			if req.Price != nil {
				if *req.Price < 0 {
					return nil, ErrInvalidProduct
				}
				p.Price = *req.Price
			}
			if req.Quantity != nil {
				if *req.Quantity < 0 {
					return nil, ErrInvalidProduct
				}
				p.Quantity = *req.Quantity
			}
			if req.Category != nil {
				p.Category = strings.TrimSpace(*req.Category)
			}
			if req.Barcode != nil {
				p.Barcode = strings.TrimSpace(*req.Barcode)
			}
			if req.LowStockThreshold != nil {
				if *req.LowStockThreshold < 0 {
					return nil, ErrInvalidProduct
				}
				p.LowStockThreshold = *req.LowStockThreshold
			}
			p.UpdatedAt = m.now()
			saved := *p
			updated = &saved
			return products, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	_, err := m.repo.MutateProducts(ctx, func(products []domain.Product) ([]domain.Product, error) {
		for i := range products {
			if products[i].ID == id {
				return append(products[:i], products[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
	return err
}

// Search matches the query case-insensitively against name, category and
// barcode. An empty query returns the full catalog.
func (m *Manager) Search(ctx context.Context, query string) ([]domain.Product, error) {
	products, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return products, nil
	}

	matched := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Category), q) ||
			strings.Contains(strings.ToLower(p.Barcode), q) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Categories returns the distinct non-empty categories, sorted.
func (m *Manager) Categories(ctx context.Context) ([]string, error) {
	products, err := m.repo.Products(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(products))
	categories := make([]string, 0, len(products))
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

// LowStock returns products at or below their threshold, lowest quantity
// first.
func (m *Manager) LowStock(ctx context.Context) ([]domain.Product, error) {
	products, err := m.repo.Products(ctx)
	if err != nil {
		return nil, err
	}

	low := make([]domain.Product, 0, 8)
	for _, p := range products {
		if p.LowStock() {
			low = append(low, p)
		}
	}
	sort.Slice(low, func(i, j int) bool { return low[i].Quantity < low[j].Quantity })
	return low, nil
}

// LoadSamples replaces the whole catalog with the bundled demo products.
func (m *Manager) LoadSamples(ctx context.Context) ([]domain.Product, error) {
	var samples []domain.Product
	if err := json.Unmarshal(sampleProductsJSON, &samples); err != nil {
		return nil, err
	}

	now := m.now()
	for i := range samples {
		samples[i].ID = ident.New("prd")
		samples[i].CreatedAt = now
		samples[i].UpdatedAt = now
	}

	return m.repo.MutateProducts(ctx, func([]domain.Product) ([]domain.Product, error) {
		return samples, nil
	})
}
