// Package report computes sales analytics over the completed transactions:
// range presets, summary totals, zero-filled daily series, product and
// customer breakdowns, and CSV export.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"wumikay/pos/internal/directory"
	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/ledger"
)

const dateLayout = "2006-01-02"

var ErrBadRange = errors.New("invalid report range")

const (
	PresetToday     = "today"
	PresetYesterday = "yesterday"
	PresetThisWeek  = "thisWeek"
	PresetLastWeek  = "lastWeek"
	PresetThisMonth = "thisMonth"
	PresetLastMonth = "lastMonth"
	PresetCustom    = "custom"
)

// Range is a half-open interval [From, To) aligned to day boundaries.
type Range struct {
	From time.Time
	To   time.Time
}

// ResolveRange turns a preset name into a concrete range relative to now.
// Weeks start on Sunday. Custom ranges take from/to as 2006-01-02 dates,
// both inclusive.
func ResolveRange(preset string, now time.Time, customFrom string, customTo string) (Range, error) {
	day := startOfDay(now)

	switch preset {
	case PresetToday:
		return Range{From: day, To: day.AddDate(0, 0, 1)}, nil
	case PresetYesterday:
		return Range{From: day.AddDate(0, 0, -1), To: day}, nil
	case PresetThisWeek:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return Range{From: start, To: start.AddDate(0, 0, 7)}, nil
	case PresetLastWeek:
		start := day.AddDate(0, 0, -int(day.Weekday())-7)
		return Range{From: start, To: start.AddDate(0, 0, 7)}, nil
	case PresetThisMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return Range{From: start, To: start.AddDate(0, 1, 0)}, nil
	case PresetLastMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location()).AddDate(0, -1, 0)
		return Range{From: start, To: start.AddDate(0, 1, 0)}, nil
	case PresetCustom:
		from, err := time.ParseInLocation(dateLayout, customFrom, now.Location())
		if err != nil {
			return Range{}, fmt.Errorf("%w: from %q", ErrBadRange, customFrom)
		}
		to, err := time.ParseInLocation(dateLayout, customTo, now.Location())
		if err != nil {
			return Range{}, fmt.Errorf("%w: to %q", ErrBadRange, customTo)
		}
		if to.Before(from) {
			return Range{}, ErrBadRange
		}
		return Range{From: from, To: to.AddDate(0, 0, 1)}, nil
	default:
		return Range{}, fmt.Errorf("%w: preset %q", ErrBadRange, preset)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

type Summary struct {
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalOrders       int     `json:"totalOrders"`
	TotalItemsSold    int     `json:"totalItemsSold"`
	AverageOrderValue float64 `json:"averageOrderValue"`
}

type DailyPoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type ProductSales struct {
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	QuantitySold int     `json:"quantitySold"`
	Revenue      float64 `json:"revenue"`
}

type CustomerSales struct {
	CustomerID        string  `json:"customerId"`
	CustomerName      string  `json:"customerName"`
	Orders            int     `json:"orders"`
	Spent             float64 `json:"spent"`
	AverageOrderValue float64 `json:"averageOrderValue"`
}

type Engine struct {
	ledger    *ledger.Ledger
	directory *directory.Directory
}

func NewEngine(lgr *ledger.Ledger, dir *directory.Directory) *Engine {
	return &Engine{ledger: lgr, directory: dir}
}

// Sales returns the completed transactions whose creation time falls inside
// the range, newest first.
func (e *Engine) Sales(ctx context.Context, rng Range) ([]domain.Transaction, error) {
	completed, err := e.ledger.Completed(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByRange(completed, rng), nil
}

func FilterByRange(transactions []domain.Transaction, rng Range) []domain.Transaction {
	matched := make([]domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		at := tx.CreatedAt.In(rng.From.Location())
		if !at.Before(rng.From) && at.Before(rng.To) {
			matched = append(matched, tx)
		}
	}
	return matched
}

// Summarize totals a set of transactions. An empty set yields a zero
// average rather than a division by zero.
func Summarize(transactions []domain.Transaction) Summary {
	s := Summary{}
	for _, tx := range transactions {
		s.TotalRevenue += tx.Total
		s.TotalOrders++
		for _, item := range tx.Items {
			s.TotalItemsSold += item.Quantity
		}
	}
	if s.TotalOrders > 0 {
		s.AverageOrderValue = s.TotalRevenue / float64(s.TotalOrders)
	}
	return s
}

// DailySeries buckets revenue and order counts by calendar day, emitting a
// zero point for every day of the range so charts have no gaps.
func DailySeries(transactions []domain.Transaction, rng Range) []DailyPoint {
	revenue := make(map[string]float64)
	orders := make(map[string]int)
	for _, tx := range transactions {
		key := tx.CreatedAt.In(rng.From.Location()).Format(dateLayout)
		revenue[key] += tx.Total
		orders[key]++
	}

	points := make([]DailyPoint, 0, 31)
	for day := rng.From; day.Before(rng.To); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		points = append(points, DailyPoint{
			Date:    key,
			Revenue: revenue[key],
			Orders:  orders[key],
		})
	}
	return points
}

// ProductBreakdown aggregates quantity and revenue per product, highest
// revenue first.
func ProductBreakdown(transactions []domain.Transaction) []ProductSales {
	byProduct := make(map[string]*ProductSales)
	for _, tx := range transactions {
		for _, item := range tx.Items {
			entry, ok := byProduct[item.ProductID]
			if !ok {
				entry = &ProductSales{ProductID: item.ProductID, ProductName: item.ProductName}
				byProduct[item.ProductID] = entry
			}
			entry.QuantitySold += item.Quantity
			entry.Revenue += item.Total
		}
	}

	out := make([]ProductSales, 0, len(byProduct))
	for _, entry := range byProduct {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue == out[j].Revenue {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].Revenue > out[j].Revenue
	})
	return out
}

// CustomerBreakdown reports all-time orders and spend for every customer on
// file, highest spend first. Customers with no completed sales appear with
// zero rows. Walk-in sales carry no customer and are not represented.
func (e *Engine) CustomerBreakdown(ctx context.Context) ([]CustomerSales, error) {
	customers, err := e.directory.List(ctx, directory.SortByTotalSpent)
	if err != nil {
		return nil, err
	}

	out := make([]CustomerSales, 0, len(customers))
	for _, c := range customers {
		row := CustomerSales{
			CustomerID:   c.ID,
			CustomerName: c.Name,
			Orders:       c.TotalOrders,
			Spent:        c.TotalSpent,
		}
		if row.Orders > 0 {
			row.AverageOrderValue = row.Spent / float64(row.Orders)
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spent == out[j].Spent {
			return out[i].CustomerName < out[j].CustomerName
		}
		return out[i].Spent > out[j].Spent
	})
	return out, nil
}

// CSV renders transactions as a spreadsheet, one row per transaction.
func CSV(transactions []domain.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Date", "Transaction ID", "Customer", "Items", "Subtotal", "POS Charge", "Total", "Payment Method", "Status", "Cashier"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, tx := range transactions {
		itemCount := 0
		for _, item := range tx.Items {
			itemCount += item.Quantity
		}
		row := []string{
			tx.CreatedAt.Format(dateLayout),
			tx.ID,
			tx.CustomerName,
			strconv.Itoa(itemCount),
			formatAmount(tx.Subtotal),
			formatAmount(tx.POSCharge),
			formatAmount(tx.Total),
			tx.PaymentMethod,
			tx.Status,
			tx.CreatedBy,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
