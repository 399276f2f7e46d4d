package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wumikay/pos/internal/directory"
	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/kv"
	"wumikay/pos/internal/ledger"
	"wumikay/pos/internal/state"
)

func mustRange(t *testing.T, preset string, now time.Time) Range {
	t.Helper()
	rng, err := ResolveRange(preset, now, "", "")
	if err != nil {
		t.Fatalf("resolve %s: %v", preset, err)
	}
	return rng
}

func TestResolveRangePresets(t *testing.T) {
	// Wednesday, 2025-06-18.
	now := time.Date(2025, 6, 18, 14, 30, 0, 0, time.UTC)

	today := mustRange(t, PresetToday, now)
	if !today.From.Equal(time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("today from: %v", today.From)
	}
	if !today.To.Equal(time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("today to: %v", today.To)
	}

	yesterday := mustRange(t, PresetYesterday, now)
	if !yesterday.From.Equal(time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC)) || !yesterday.To.Equal(today.From) {
		t.Fatalf("yesterday range: %+v", yesterday)
	}

	// Weeks start on Sunday, so this week starts 2025-06-15.
	thisWeek := mustRange(t, PresetThisWeek, now)
	if !thisWeek.From.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("thisWeek from: %v", thisWeek.From)
	}
	if thisWeek.From.Weekday() != time.Sunday {
		t.Fatalf("week must start on Sunday, got %v", thisWeek.From.Weekday())
	}
	if !thisWeek.To.Equal(thisWeek.From.AddDate(0, 0, 7)) {
		t.Fatalf("thisWeek to: %v", thisWeek.To)
	}

	lastWeek := mustRange(t, PresetLastWeek, now)
	if !lastWeek.From.Equal(time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)) || !lastWeek.To.Equal(thisWeek.From) {
		t.Fatalf("lastWeek range: %+v", lastWeek)
	}

	thisMonth := mustRange(t, PresetThisMonth, now)
	if !thisMonth.From.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("thisMonth from: %v", thisMonth.From)
	}

	lastMonth := mustRange(t, PresetLastMonth, now)
	if !lastMonth.From.Equal(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)) || !lastMonth.To.Equal(thisMonth.From) {
		t.Fatalf("lastMonth range: %+v", lastMonth)
	}
}

func TestResolveRangeCustom(t *testing.T) {
	now := time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)

	rng, err := ResolveRange(PresetCustom, now, "2025-06-01", "2025-06-10")
	if err != nil {
		t.Fatalf("custom: %v", err)
	}
	// Both endpoints inclusive, so To is the day after the last date.
	if !rng.To.Equal(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("custom to: %v", rng.To)
	}

	if _, err := ResolveRange(PresetCustom, now, "2025-06-10", "2025-06-01"); !errors.Is(err, ErrBadRange) {
		t.Fatalf("expected ErrBadRange for reversed dates, got %v", err)
	}
	if _, err := ResolveRange(PresetCustom, now, "June 1", "2025-06-10"); !errors.Is(err, ErrBadRange) {
		t.Fatalf("expected ErrBadRange for unparseable date, got %v", err)
	}
	if _, err := ResolveRange("fortnight", now, "", ""); !errors.Is(err, ErrBadRange) {
		t.Fatalf("expected ErrBadRange for unknown preset, got %v", err)
	}
}

func sampleTransactions() []domain.Transaction {
	return []domain.Transaction{
		{
			ID: "txn-1", CustomerID: "c1", CustomerName: "Ada Obi",
			Items:    []domain.OrderItem{{ProductID: "p1", ProductName: "Rice 5kg", Quantity: 2, Price: 1000, Total: 2000}},
			Subtotal: 2000, Total: 2000, PaymentMethod: domain.PaymentCash,
			Status: domain.StatusCompleted, CreatedAt: time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC), CreatedBy: "admin",
		},
		{
			ID: "txn-2", CustomerName: domain.WalkInCustomerName,
			Items:    []domain.OrderItem{{ProductID: "p2", ProductName: "Beans 1kg", Quantity: 1, Price: 500, Total: 500}},
			Subtotal: 500, POSCharge: 150, Total: 650, PaymentMethod: domain.PaymentPOS,
			Status: domain.StatusCompleted, CreatedAt: time.Date(2025, 6, 16, 15, 0, 0, 0, time.UTC), CreatedBy: "cashier",
		},
		{
			ID: "txn-3", CustomerID: "c1", CustomerName: "Ada Obi",
			Items:    []domain.OrderItem{{ProductID: "p1", ProductName: "Rice 5kg", Quantity: 1, Price: 1000, Total: 1000}},
			Subtotal: 1000, Total: 1000, PaymentMethod: domain.PaymentCash,
			Status: domain.StatusCompleted, CreatedAt: time.Date(2025, 6, 18, 11, 0, 0, 0, time.UTC), CreatedBy: "admin",
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTransactions())
	if s.TotalRevenue != 3650 {
		t.Fatalf("revenue: %v", s.TotalRevenue)
	}
	if s.TotalOrders != 3 {
		t.Fatalf("orders: %d", s.TotalOrders)
	}
	if s.TotalItemsSold != 4 {
		t.Fatalf("items: %d", s.TotalItemsSold)
	}
	if got := s.AverageOrderValue; got < 1216.66 || got > 1216.67 {
		t.Fatalf("average: %v", got)
	}
}

func TestSummarizeEmptyHasZeroAverage(t *testing.T) {
	s := Summarize(nil)
	if s.AverageOrderValue != 0 || s.TotalOrders != 0 {
		t.Fatalf("expected all-zero summary, got %+v", s)
	}
}

func TestDailySeriesZeroFillsGaps(t *testing.T) {
	rng := Range{
		From: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC),
	}
	points := DailySeries(FilterByRange(sampleTransactions(), rng), rng)
	if len(points) != 7 {
		t.Fatalf("expected 7 daily points, got %d", len(points))
	}
	if points[0].Date != "2025-06-15" || points[0].Revenue != 0 {
		t.Fatalf("expected zero opening day, got %+v", points[0])
	}
	if points[1].Date != "2025-06-16" || points[1].Revenue != 2650 || points[1].Orders != 2 {
		t.Fatalf("expected 2650 across 2 orders on the 16th, got %+v", points[1])
	}
	if points[3].Revenue != 1000 || points[3].Orders != 1 {
		t.Fatalf("expected 1000 on the 18th, got %+v", points[3])
	}
	if points[6].Revenue != 0 || points[6].Orders != 0 {
		t.Fatalf("expected zero closing day, got %+v", points[6])
	}
}

func TestFilterByRangeIsHalfOpen(t *testing.T) {
	rng := Range{
		From: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC),
	}
	got := FilterByRange(sampleTransactions(), rng)
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions on the 16th, got %d", len(got))
	}
}

func TestProductBreakdownOrdersByRevenue(t *testing.T) {
	rows := ProductBreakdown(sampleTransactions())
	if len(rows) != 2 {
		t.Fatalf("expected 2 products, got %d", len(rows))
	}
	if rows[0].ProductID != "p1" || rows[0].QuantitySold != 3 || rows[0].Revenue != 3000 {
		t.Fatalf("top product wrong: %+v", rows[0])
	}
	if rows[1].ProductID != "p2" || rows[1].Revenue != 500 {
		t.Fatalf("second product wrong: %+v", rows[1])
	}
}

func TestCustomerBreakdownCoversZeroOrderCustomers(t *testing.T) {
	repo := state.NewRepo(kv.NewMemory())
	ctx := context.Background()

	if _, err := repo.MutateCustomers(ctx, func([]domain.Customer) ([]domain.Customer, error) {
		return []domain.Customer{
			{ID: "c1", Name: "Ada Obi"},
			{ID: "c2", Name: "Bola Ade"},
		}, nil
	}); err != nil {
		t.Fatalf("seed customers: %v", err)
	}
	if _, err := repo.MutateTransactions(ctx, func([]domain.Transaction) ([]domain.Transaction, error) {
		return sampleTransactions(), nil
	}); err != nil {
		t.Fatalf("seed transactions: %v", err)
	}

	lgr := ledger.New(repo)
	engine := NewEngine(lgr, directory.New(repo, lgr))

	rows, err := engine.CustomerBreakdown(ctx)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected a row per customer, got %d", len(rows))
	}
	if rows[0].CustomerID != "c1" || rows[0].Orders != 2 || rows[0].Spent != 3000 {
		t.Fatalf("top customer wrong: %+v", rows[0])
	}
	if rows[0].AverageOrderValue != 1500 {
		t.Fatalf("average: %v", rows[0].AverageOrderValue)
	}
	// A customer with no sales still gets a zero row, never a division fault.
	if rows[1].CustomerID != "c2" || rows[1].Orders != 0 || rows[1].Spent != 0 || rows[1].AverageOrderValue != 0 {
		t.Fatalf("zero-order customer wrong: %+v", rows[1])
	}
}

func TestCSVOutput(t *testing.T) {
	out, err := CSV(sampleTransactions()[:1])
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Date,Transaction ID,Customer") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	row := lines[1]
	if !strings.HasPrefix(row, "2025-06-16,txn-1,Ada Obi,2,2000.00,0.00,2000.00,Cash,Completed,admin") {
		t.Fatalf("unexpected row: %q", row)
	}
}
