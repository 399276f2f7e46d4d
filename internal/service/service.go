// Package service orchestrates the domain managers behind the HTTP API:
// it attaches the acting user, writes the activity log, raises operator
// notifications, and assembles the dashboard.
package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"wumikay/pos/internal/backup"
	"wumikay/pos/internal/catalog"
	"wumikay/pos/internal/directory"
	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/ident"
	"wumikay/pos/internal/ledger"
	"wumikay/pos/internal/notify"
	"wumikay/pos/internal/order"
	"wumikay/pos/internal/report"
	"wumikay/pos/internal/state"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

var (
	ErrInvalidUser  = fmt.Errorf("invalid user")
	ErrUserExists   = fmt.Errorf("username already taken")
	ErrUserNotFound = fmt.Errorf("user not found")
	ErrWeakPassword = fmt.Errorf("password too short")
)

const minPasswordChars = 6

type Service struct {
	repo      *state.Repo
	writes    atomic.Uint64
	Catalog   *catalog.Manager
	Directory *directory.Directory
	Ledger    *ledger.Ledger
	Orders    *order.Engine
	Reports   *report.Engine
	Backups   *backup.Manager
	Notifier  *notify.Center
}

func New(repo *state.Repo, notifier *notify.Center) *Service {
	lgr := ledger.New(repo)
	dir := directory.New(repo, lgr)
	s := &Service{
		repo:      repo,
		Catalog:   catalog.NewManager(repo),
		Directory: dir,
		Ledger:    lgr,
		Orders:    order.NewEngine(repo),
		Reports:   report.NewEngine(lgr, dir),
		Backups:   backup.NewManager(repo),
		Notifier:  notifier,
	}
	// Listeners run under the repo lock, so the handler only bumps a counter.
	repo.Subscribe(func(string) { s.writes.Add(1) })
	return s
}

// StateWrites reports how many document writes the repository has made since
// startup. Surfaced on the health endpoint.
func (s *Service) StateWrites() uint64 {
	return s.writes.Load()
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	product, err := s.Catalog.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, domain.ActivityProduct, fmt.Sprintf("Added product %q", product.Name))
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	product, err := s.Catalog.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, domain.ActivityProduct, fmt.Sprintf("Updated product %q", product.Name))
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.Catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Catalog.Delete(ctx, id); err != nil {
		return err
	}
	s.logActivity(ctx, domain.ActivityProduct, fmt.Sprintf("Deleted product %q", product.Name))
	return nil
}

func (s *Service) LoadSampleProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.Catalog.LoadSamples(ctx)
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, domain.ActivitySystem, fmt.Sprintf("Loaded %d sample products", len(products)))
	s.Notifier.Info("Sample products loaded")
	return products, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	customer, err := s.Directory.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, domain.ActivityCustomer, fmt.Sprintf("Added customer %q", customer.Name))
	return customer, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	customer, err := s.Directory.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, domain.ActivityCustomer, fmt.Sprintf("Updated customer %q", customer.Name))
	return customer, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	customer, err := s.Directory.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Directory.Delete(ctx, id); err != nil {
		return err
	}
	s.logActivity(ctx, domain.ActivityCustomer, fmt.Sprintf("Deleted customer %q", customer.Name))
	return nil
}

// Checkout commits a sale, records it in the activity log, and raises the
// configured notifications.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutResponse, error) {
	actor, _ := ActorFromContext(ctx)
	resp, err := s.Orders.Commit(ctx, req, actor.Username)
	if err != nil {
		return nil, err
	}

	tx := resp.Transaction
	s.logActivity(ctx, domain.ActivityOrder, fmt.Sprintf("Sale %s for %s, total %.2f", tx.ID, tx.CustomerName, tx.Total))

	settings, err := s.repo.NotificationSettings(ctx)
	if err != nil {
		log.Printf("[service] WARN: failed to load notification settings: %v", err)
		return resp, nil
	}
	if settings.SaleConfirmations {
		s.Notifier.Success(fmt.Sprintf("Sale completed: %.2f", tx.Total))
	}
	if settings.LowStockAlerts {
		for _, item := range tx.Items {
			product, err := s.Catalog.Get(ctx, item.ProductID)
			if err != nil {
				continue
			}
			if product.LowStock() {
				s.Notifier.Warning(fmt.Sprintf("%s is low on stock (%d left)", product.Name, product.Quantity))
			}
		}
	}

	return resp, nil
}

// Dashboard assembles the landing-page summary.
func (s *Service) Dashboard(ctx context.Context, now time.Time) (*domain.DashboardSummary, error) {
	rng, err := report.ResolveRange(report.PresetToday, now, "", "")
	if err != nil {
		return nil, err
	}
	todaySales, err := s.Reports.Sales(ctx, rng)
	if err != nil {
		return nil, err
	}
	today := report.Summarize(todaySales)

	products, err := s.repo.Products(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return nil, err
	}
	low, err := s.Catalog.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.Ledger.Recent(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardSummary{
		TodayRevenue:       today.TotalRevenue,
		TodayOrders:        today.TotalOrders,
		TotalProducts:      len(products),
		TotalCustomers:     len(customers),
		LowStockProducts:   low,
		RecentTransactions: recent,
	}, nil
}

func (s *Service) BusinessSettings(ctx context.Context) (domain.BusinessSettings, error) {
	return s.repo.BusinessSettings(ctx)
}

func (s *Service) SaveBusinessSettings(ctx context.Context, settings domain.BusinessSettings) error {
	if strings.TrimSpace(settings.BusinessName) == "" || settings.POSChargeAmount < 0 || settings.TaxRate < 0 {
		return fmt.Errorf("invalid business settings")
	}
	if err := s.repo.SaveBusinessSettings(ctx, settings); err != nil {
		return err
	}
	s.logActivity(ctx, domain.ActivitySystem, "Updated business settings")
	return nil
}

func (s *Service) PrinterSettings(ctx context.Context) (domain.PrinterSettings, error) {
	return s.repo.PrinterSettings(ctx)
}

func (s *Service) SavePrinterSettings(ctx context.Context, settings domain.PrinterSettings) error {
	if settings.PaperWidthMM < 0 || settings.CopiesPerSale < 1 {
		return fmt.Errorf("invalid printer settings")
	}
	if err := s.repo.SavePrinterSettings(ctx, settings); err != nil {
		return err
	}
	s.logActivity(ctx, domain.ActivitySystem, "Updated printer settings")
	return nil
}

func (s *Service) NotificationSettings(ctx context.Context) (domain.NotificationSettings, error) {
	return s.repo.NotificationSettings(ctx)
}

func (s *Service) SaveNotificationSettings(ctx context.Context, settings domain.NotificationSettings) error {
	if err := s.repo.SaveNotificationSettings(ctx, settings); err != nil {
		return err
	}
	s.logActivity(ctx, domain.ActivitySystem, "Updated notification settings")
	return nil
}

func (s *Service) ExportData(ctx context.Context) ([]byte, error) {
	data, err := s.Backups.Export(ctx)
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, domain.ActivitySystem, "Exported data backup")
	return data, nil
}

func (s *Service) ImportData(ctx context.Context, data []byte) error {
	if err := s.Backups.Import(ctx, data); err != nil {
		return err
	}
	s.logActivity(ctx, domain.ActivitySystem, "Imported data backup")
	s.Notifier.Success("Data imported")
	return nil
}

func (s *Service) WipeData(ctx context.Context) error {
	actor, _ := ActorFromContext(ctx)
	if err := s.Backups.Wipe(ctx); err != nil {
		return err
	}
	// Wiping clears the activity log too, so this entry survives as the
	// first record of the fresh state.
	s.logActivity(ctx, domain.ActivitySystem, fmt.Sprintf("All data wiped by %s", actor.Username))
	return nil
}

// ActivityLogs returns the newest entries up to limit.
func (s *Service) ActivityLogs(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	logs, err := s.repo.ActivityLogs(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// ListUsers returns all users with passwords blanked.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Service) CreateUser(ctx context.Context, username string, password string, role string, fullName string, email string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(role) == "" {
		return nil, ErrInvalidUser
	}
	if len(password) < minPasswordChars {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := domain.User{
		ID:        ident.New("usr"),
		Username:  username,
		Password:  string(hash),
		Role:      role,
		FullName:  strings.TrimSpace(fullName),
		Email:     strings.TrimSpace(email),
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}

	_, err = s.repo.MutateUsers(ctx, func(users []domain.User) ([]domain.User, error) {
		for _, existing := range users {
			if strings.EqualFold(existing.Username, username) {
				return nil, ErrUserExists
			}
		}
		return append(users, user), nil
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, domain.ActivityUser, fmt.Sprintf("Created user %q with role %s", username, role))
	created := user
	created.Password = ""
	return &created, nil
}

func (s *Service) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if len(password) < minPasswordChars {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.repo.MutateUsers(ctx, func(users []domain.User) ([]domain.User, error) {
		for i := range users {
			if strings.EqualFold(users[i].Username, username) {
				users[i].Password = string(hash)
				at := time.Now().UTC()
				users[i].UpdatedAt = &at
				return users, nil
			}
		}
		return nil, ErrUserNotFound
	})
	if err != nil {
		return err
	}
	s.logActivity(ctx, domain.ActivityUser, fmt.Sprintf("Changed password for %q", username))
	return nil
}

func (s *Service) SetUserActive(ctx context.Context, username string, active bool) error {
	_, err := s.repo.MutateUsers(ctx, func(users []domain.User) ([]domain.User, error) {
		for i := range users {
			if strings.EqualFold(users[i].Username, username) {
				users[i].IsActive = active
				at := time.Now().UTC()
				users[i].UpdatedAt = &at
				return users, nil
			}
		}
		return nil, ErrUserNotFound
	})
	if err != nil {
		return err
	}
	label := "disabled"
	if active {
		label = "enabled"
	}
	s.logActivity(ctx, domain.ActivityUser, fmt.Sprintf("User %q %s", username, label))
	return nil
}

// SeedUsers installs the default accounts when the user list is empty.
// Passwords are stored plaintext here and upgraded to bcrypt on first login.
func (s *Service) SeedUsers(ctx context.Context) error {
	_, err := s.repo.MutateUsers(ctx, func(users []domain.User) ([]domain.User, error) {
		if len(users) > 0 {
			return users, nil
		}
		now := time.Now().UTC()
		return []domain.User{
			{
				ID:        ident.New("usr"),
				Username:  "admin",
				Password:  "admin123",
				Role:      domain.RoleAdmin,
				FullName:  "Administrator",
				CreatedAt: now,
				IsActive:  true,
			},
			{
				ID:        ident.New("usr"),
				Username:  "cashier",
				Password:  "cashier123",
				Role:      domain.RoleCashier,
				FullName:  "Cashier",
				CreatedAt: now,
				IsActive:  true,
			},
		}, nil
	})
	return err
}

// RecordLogin appends a login event to the activity log.
func (s *Service) RecordLogin(ctx context.Context, username string) {
	s.logActivity(ctx, domain.ActivityLogin, fmt.Sprintf("%s logged in", username))
}

// RecordLogout appends a logout event to the activity log. Tokens are
// stateless, so discarding the credential is the client's side of logout.
func (s *Service) RecordLogout(ctx context.Context, username string) {
	s.logActivity(ctx, domain.ActivityLogin, fmt.Sprintf("%s logged out", username))
}

func (s *Service) logActivity(ctx context.Context, category string, details string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	err := s.repo.AppendActivityLog(ctx, domain.ActivityLog{
		ID:        ident.New("act"),
		UserID:    actor.UserID,
		Username:  actor.Username,
		Action:    category,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Category:  category,
	})
	if err != nil {
		log.Printf("[activity] WARN: failed to write activity log category=%s: %v", category, err)
	}
}
