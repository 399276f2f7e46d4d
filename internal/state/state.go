// Package state is the typed view over the key-value store. Every logical
// collection of the console lives under one well-known key as a single JSON
// document, mirroring how the data is shaped on the wire.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/kv"
)

const (
	KeyProducts             = "products"
	KeyCustomers            = "customers"
	KeyTransactions         = "transactions"
	KeyUsers                = "users"
	KeyBusinessSettings     = "businessSettings"
	KeyPrinterSettings      = "printerSettings"
	KeyNotificationSettings = "notificationSettings"
	KeyActivityLog          = "activityLog"
)

// PersistedKeys lists every key the repository manages, in export order.
var PersistedKeys = []string{
	KeyProducts,
	KeyCustomers,
	KeyTransactions,
	KeyUsers,
	KeyBusinessSettings,
	KeyPrinterSettings,
	KeyNotificationSettings,
	KeyActivityLog,
}

func DefaultBusinessSettings() domain.BusinessSettings {
	return domain.BusinessSettings{
		BusinessName:             "WumiKay Ventures",
		BusinessAddress:          "",
		PhoneNumbers:             "",
		EmailAddress:             "",
		POSChargeAmount:          150.00,
		CurrencySymbol:           "₦",
		TaxRate:                  0.075,
		DefaultLowStockThreshold: 10,
	}
}

func DefaultPrinterSettings() domain.PrinterSettings {
	return domain.PrinterSettings{
		PrinterName:   "",
		PaperWidthMM:  80,
		AutoPrint:     false,
		CopiesPerSale: 1,
	}
}

func DefaultNotificationSettings() domain.NotificationSettings {
	return domain.NotificationSettings{
		LowStockAlerts:    true,
		SaleConfirmations: true,
		DailySummary:      false,
	}
}

// Listener observes key changes. Handlers run synchronously after a
// successful write, so they must be cheap.
type Listener func(key string)

// Repo serializes every read-modify-write against the backing store with a
// single mutex. The store itself only sees whole-document swaps, which keeps
// all four backends interchangeable.
type Repo struct {
	store kv.Store

	mu sync.Mutex

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func NewRepo(store kv.Store) *Repo {
	return &Repo{store: store, listeners: make(map[int]Listener)}
}

// Subscribe registers a change listener and returns a function that removes
// it.
func (r *Repo) Subscribe(fn Listener) func() {
	r.lmu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.lmu.Unlock()

	return func() {
		r.lmu.Lock()
		delete(r.listeners, id)
		r.lmu.Unlock()
	}
}

func (r *Repo) notify(key string) {
	r.lmu.Lock()
	fns := make([]Listener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.lmu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

func getList[T any](ctx context.Context, r *Repo, key string) ([]T, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []T{}, nil
		}
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func putValue(ctx context.Context, r *Repo, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return err
	}
	r.notify(key)
	return nil
}

// mutateList reads a list, applies fn, and writes the result back while
// holding the repo mutex. fn returning an error aborts without writing.
func mutateList[T any](ctx context.Context, r *Repo, key string, fn func([]T) ([]T, error)) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := getList[T](ctx, r, key)
	if err != nil {
		return nil, err
	}
	next, err := fn(items)
	if err != nil {
		return nil, err
	}
	if err := putValue(ctx, r, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (r *Repo) Products(ctx context.Context) ([]domain.Product, error) {
	return getList[domain.Product](ctx, r, KeyProducts)
}

func (r *Repo) SaveProducts(ctx context.Context, products []domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return putValue(ctx, r, KeyProducts, products)
}

func (r *Repo) MutateProducts(ctx context.Context, fn func([]domain.Product) ([]domain.Product, error)) ([]domain.Product, error) {
	return mutateList(ctx, r, KeyProducts, fn)
}

func (r *Repo) Customers(ctx context.Context) ([]domain.Customer, error) {
	return getList[domain.Customer](ctx, r, KeyCustomers)
}

func (r *Repo) MutateCustomers(ctx context.Context, fn func([]domain.Customer) ([]domain.Customer, error)) ([]domain.Customer, error) {
	return mutateList(ctx, r, KeyCustomers, fn)
}

func (r *Repo) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	return getList[domain.Transaction](ctx, r, KeyTransactions)
}

func (r *Repo) MutateTransactions(ctx context.Context, fn func([]domain.Transaction) ([]domain.Transaction, error)) ([]domain.Transaction, error) {
	return mutateList(ctx, r, KeyTransactions, fn)
}

func (r *Repo) Users(ctx context.Context) ([]domain.User, error) {
	return getList[domain.User](ctx, r, KeyUsers)
}

func (r *Repo) MutateUsers(ctx context.Context, fn func([]domain.User) ([]domain.User, error)) ([]domain.User, error) {
	return mutateList(ctx, r, KeyUsers, fn)
}

func (r *Repo) ActivityLogs(ctx context.Context) ([]domain.ActivityLog, error) {
	return getList[domain.ActivityLog](ctx, r, KeyActivityLog)
}

// maxActivityLogEntries caps the stored log; the oldest entries fall off
// once the cap is reached.
const maxActivityLogEntries = 500

func (r *Repo) AppendActivityLog(ctx context.Context, entry domain.ActivityLog) error {
	_, err := mutateList(ctx, r, KeyActivityLog, func(logs []domain.ActivityLog) ([]domain.ActivityLog, error) {
		logs = append(logs, entry)
		if len(logs) > maxActivityLogEntries {
			logs = logs[len(logs)-maxActivityLogEntries:]
		}
		return logs, nil
	})
	return err
}

// CommitSale appends a transaction and adjusts product stock in one
// serialized step, so concurrent checkouts cannot double-spend stock.
func (r *Repo) CommitSale(ctx context.Context, tx domain.Transaction, stock func([]domain.Product) ([]domain.Product, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := getList[domain.Product](ctx, r, KeyProducts)
	if err != nil {
		return err
	}
	adjusted, err := stock(products)
	if err != nil {
		return err
	}

	transactions, err := getList[domain.Transaction](ctx, r, KeyTransactions)
	if err != nil {
		return err
	}
	transactions = append(transactions, tx)

	if err := putValue(ctx, r, KeyProducts, adjusted); err != nil {
		return err
	}
	return putValue(ctx, r, KeyTransactions, transactions)
}

func (r *Repo) BusinessSettings(ctx context.Context) (domain.BusinessSettings, error) {
	settings := DefaultBusinessSettings()
	if err := r.getObject(ctx, KeyBusinessSettings, &settings); err != nil {
		return settings, err
	}
	return settings, nil
}

func (r *Repo) SaveBusinessSettings(ctx context.Context, settings domain.BusinessSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return putValue(ctx, r, KeyBusinessSettings, settings)
}

func (r *Repo) PrinterSettings(ctx context.Context) (domain.PrinterSettings, error) {
	settings := DefaultPrinterSettings()
	if err := r.getObject(ctx, KeyPrinterSettings, &settings); err != nil {
		return settings, err
	}
	return settings, nil
}

func (r *Repo) SavePrinterSettings(ctx context.Context, settings domain.PrinterSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return putValue(ctx, r, KeyPrinterSettings, settings)
}

func (r *Repo) NotificationSettings(ctx context.Context) (domain.NotificationSettings, error) {
	settings := DefaultNotificationSettings()
	if err := r.getObject(ctx, KeyNotificationSettings, &settings); err != nil {
		return settings, err
	}
	return settings, nil
}

func (r *Repo) SaveNotificationSettings(ctx context.Context, settings domain.NotificationSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return putValue(ctx, r, KeyNotificationSettings, settings)
}

// getObject decodes a single-document key into dst, leaving dst untouched
// when the key is absent so callers keep their defaults.
func (r *Repo) getObject(ctx context.Context, key string, dst any) error {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Raw returns the stored JSON document for a key, or nil when absent. Used
// by the backup exporter, which copies documents without decoding them.
func (r *Repo) Raw(ctx context.Context, key string) (json.RawMessage, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (r *Repo) SetRaw(ctx context.Context, key string, value json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Set(ctx, key, value); err != nil {
		return err
	}
	r.notify(key)
	return nil
}

// Wipe removes every managed key.
func (r *Repo) Wipe(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range PersistedKeys {
		if err := r.store.Delete(ctx, key); err != nil {
			return err
		}
		r.notify(key)
	}
	return nil
}
