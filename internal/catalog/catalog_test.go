package catalog

import (
	"context"
	"errors"
	"testing"

	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/kv"
	"wumikay/pos/internal/state"
)

func newManager(t *testing.T) (*Manager, *state.Repo) {
	t.Helper()
	repo := state.NewRepo(kv.NewMemory())
	return NewManager(repo), repo
}

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestCreateAndGet(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, domain.ProductCreateRequest{
		Name:              "  Peak Milk 400g  ",
		Price:             1850,
		Quantity:          24,
		Category:          "Dairy",
		Barcode:           "6154000012345",
		LowStockThreshold: intPtr(6),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Peak Milk 400g" {
		t.Fatalf("name not trimmed: %q", created.Name)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("missing id or timestamps: %+v", created)
	}
	if created.LowStockThreshold != 6 {
		t.Fatalf("threshold: %d", created.LowStockThreshold)
	}

	got, err := manager.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Barcode != "6154000012345" {
		t.Fatalf("barcode: %q", got.Barcode)
	}
}

func TestCreateDefaultsThresholdFromSettings(t *testing.T) {
	manager, _ := newManager(t)

	created, err := manager.Create(context.Background(), domain.ProductCreateRequest{
		Name:  "Indomie Carton",
		Price: 9500,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.LowStockThreshold != 10 {
		t.Fatalf("expected default threshold 10, got %d", created.LowStockThreshold)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	cases := []domain.ProductCreateRequest{
		{Name: "   ", Price: 100},
		{Name: "Negative Price", Price: -1},
		{Name: "Negative Stock", Price: 100, Quantity: -1},
		{Name: "Negative Threshold", Price: 100, LowStockThreshold: intPtr(-1)},
	}
	for _, req := range cases {
		if _, err := manager.Create(ctx, req); !errors.Is(err, ErrInvalidProduct) {
			t.Fatalf("expected ErrInvalidProduct for %+v, got %v", req, err)
		}
	}
}

func TestUpdatePartialFields(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, domain.ProductCreateRequest{Name: "Milo Tin", Price: 3200, Quantity: 10, Category: "Beverages"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := manager.Update(ctx, created.ID, domain.ProductUpdateRequest{
		Price:    floatPtr(3000),
		Quantity: intPtr(8),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 3000 || updated.Quantity != 8 {
		t.Fatalf("updated fields: %+v", updated)
	}
	if updated.Name != "Milo Tin" || updated.Category != "Beverages" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("UpdatedAt went backwards: %v vs %v", updated.UpdatedAt, created.UpdatedAt)
	}

	if _, err := manager.Update(ctx, created.ID, domain.ProductUpdateRequest{Name: strPtr("  ")}); !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("expected ErrInvalidProduct for blank name, got %v", err)
	}
	if _, err := manager.Update(ctx, "prd-missing", domain.ProductUpdateRequest{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	created, err := manager.Create(ctx, domain.ProductCreateRequest{Name: "Dettol Soap", Price: 450})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := manager.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := manager.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := manager.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for double delete, got %v", err)
	}
}

func TestListSortsByName(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	for _, name := range []string{"zobo Drink", "Amala Flour", "eva Water"} {
		if _, err := manager.Create(ctx, domain.ProductCreateRequest{Name: name, Price: 100}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	products, err := manager.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if products[0].Name != "Amala Flour" || products[1].Name != "eva Water" || products[2].Name != "zobo Drink" {
		t.Fatalf("sort order wrong: %v %v %v", products[0].Name, products[1].Name, products[2].Name)
	}
}

func TestSearchMatchesNameCategoryBarcode(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	if _, err := manager.Create(ctx, domain.ProductCreateRequest{Name: "Coca-Cola 50cl", Price: 300, Category: "Beverages", Barcode: "5449000000996"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := manager.Create(ctx, domain.ProductCreateRequest{Name: "Sunlight Detergent", Price: 900, Category: "Household"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	byName, err := manager.Search(ctx, "coca")
	if err != nil || len(byName) != 1 {
		t.Fatalf("name search: %v %d", err, len(byName))
	}
	byCategory, err := manager.Search(ctx, "BEVER")
	if err != nil || len(byCategory) != 1 {
		t.Fatalf("category search: %v %d", err, len(byCategory))
	}
	byBarcode, err := manager.Search(ctx, "544900")
	if err != nil || len(byBarcode) != 1 {
		t.Fatalf("barcode search: %v %d", err, len(byBarcode))
	}
	all, err := manager.Search(ctx, "   ")
	if err != nil || len(all) != 2 {
		t.Fatalf("blank search should list all: %v %d", err, len(all))
	}
	none, err := manager.Search(ctx, "garri")
	if err != nil || len(none) != 0 {
		t.Fatalf("miss search: %v %d", err, len(none))
	}
}

func TestCategoriesDistinctSorted(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	for _, c := range []string{"Food", "Beverages", "Food", ""} {
		if _, err := manager.Create(ctx, domain.ProductCreateRequest{Name: "x " + c, Price: 10, Category: c}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	categories, err := manager.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(categories) != 2 || categories[0] != "Beverages" || categories[1] != "Food" {
		t.Fatalf("categories: %v", categories)
	}
}

func TestLowStockSortedByQuantity(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	mk := func(name string, qty, threshold int) {
		t.Helper()
		if _, err := manager.Create(ctx, domain.ProductCreateRequest{Name: name, Price: 100, Quantity: qty, LowStockThreshold: intPtr(threshold)}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	mk("At Threshold", 5, 5)
	mk("Well Stocked", 50, 5)
	mk("Empty", 0, 5)

	low, err := manager.LowStock(ctx)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 2 {
		t.Fatalf("expected 2 low-stock products, got %d", len(low))
	}
	if low[0].Name != "Empty" || low[1].Name != "At Threshold" {
		t.Fatalf("order wrong: %v %v", low[0].Name, low[1].Name)
	}
}

func TestLoadSamplesReplacesCatalog(t *testing.T) {
	manager, repo := newManager(t)
	ctx := context.Background()

	if _, err := manager.Create(ctx, domain.ProductCreateRequest{Name: "Old Product", Price: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	samples, err := manager.LoadSamples(ctx)
	if err != nil {
		t.Fatalf("load samples: %v", err)
	}
	if len(samples) == 0 {
		t.Fatalf("expected sample products")
	}
	for _, p := range samples {
		if p.ID == "" || p.Name == "" || p.CreatedAt.IsZero() {
			t.Fatalf("sample missing fields: %+v", p)
		}
		if p.Name == "Old Product" {
			t.Fatalf("old catalog survived the sample load")
		}
	}

	stored, err := repo.Products(ctx)
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(stored) != len(samples) {
		t.Fatalf("stored %d, returned %d", len(stored), len(samples))
	}
}
