package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/kv"
	"wumikay/pos/internal/notify"
	"wumikay/pos/internal/state"
)

func newTestService(t *testing.T) (*Service, *state.Repo, *notify.Center) {
	t.Helper()
	repo := state.NewRepo(kv.NewMemory())
	notifier := notify.NewCenterTTL(time.Minute)
	t.Cleanup(notifier.Stop)
	return New(repo, notifier), repo, notifier
}

func actorCtx(username string) context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "usr-1", Username: username, Role: domain.RoleAdmin})
}

func seedProduct(t *testing.T, svc *Service, name string, price float64, qty int, threshold int) *domain.Product {
	t.Helper()
	product, err := svc.Catalog.Create(context.Background(), domain.ProductCreateRequest{
		Name: name, Price: price, Quantity: qty, LowStockThreshold: &threshold,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
	return product
}

func TestActorContextRoundTrip(t *testing.T) {
	actor := domain.Actor{UserID: "usr-1", Username: "admin", Role: domain.RoleAdmin}
	ctx := WithActor(context.Background(), actor)

	got, ok := ActorFromContext(ctx)
	if !ok || got != actor {
		t.Fatalf("actor round trip: %+v ok=%v", got, ok)
	}

	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatalf("expected no actor on bare context")
	}
}

func TestSeedUsersOnlyWhenEmpty(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.SeedUsers(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	users, err := repo.Users(ctx)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 seeded users, got %d", len(users))
	}

	var admin, cashier *domain.User
	for i := range users {
		switch users[i].Username {
		case "admin":
			admin = &users[i]
		case "cashier":
			cashier = &users[i]
		}
	}
	if admin == nil || cashier == nil {
		t.Fatalf("missing seed accounts: %+v", users)
	}
	if admin.Role != domain.RoleAdmin || cashier.Role != domain.RoleCashier {
		t.Fatalf("seed roles: %s %s", admin.Role, cashier.Role)
	}
	if !admin.IsActive || !cashier.IsActive {
		t.Fatalf("seed accounts must be active")
	}

	// Seeding again must not duplicate or reset accounts.
	if err := svc.SeedUsers(ctx); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	users, _ = repo.Users(ctx)
	if len(users) != 2 {
		t.Fatalf("reseed duplicated users: %d", len(users))
	}
}

func TestCreateUserHashesAndRejectsDuplicates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := actorCtx("admin")

	created, err := svc.CreateUser(ctx, "bola", "secret99", domain.RoleManager, "Bola Ade", "bola@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.Password != "" {
		t.Fatalf("returned user must not carry a password")
	}

	users, _ := repo.Users(context.Background())
	if len(users) != 1 {
		t.Fatalf("users: %d", len(users))
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("stored password not bcrypt: %q", users[0].Password)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("secret99")); err != nil {
		t.Fatalf("hash does not match password: %v", err)
	}

	if _, err := svc.CreateUser(ctx, "BOLA", "secret99", domain.RoleCashier, "", ""); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for case-folded duplicate, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, "tunde", "short", domain.RoleCashier, "", ""); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, "  ", "secret99", domain.RoleCashier, "", ""); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser for blank username, got %v", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := actorCtx("admin")

	if _, err := svc.CreateUser(ctx, "bola", "secret99", domain.RoleCashier, "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.UpdateUserPassword(ctx, "bola", "newsecret"); err != nil {
		t.Fatalf("update password: %v", err)
	}

	users, _ := repo.Users(context.Background())
	if err := bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("newsecret")); err != nil {
		t.Fatalf("new password does not verify: %v", err)
	}
	if users[0].UpdatedAt == nil {
		t.Fatalf("UpdatedAt not set")
	}

	if err := svc.UpdateUserPassword(ctx, "ghost", "newsecret"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.UpdateUserPassword(ctx, "bola", "tiny"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestSetUserActive(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := actorCtx("admin")

	if _, err := svc.CreateUser(ctx, "bola", "secret99", domain.RoleCashier, "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.SetUserActive(ctx, "bola", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	users, _ := repo.Users(context.Background())
	if users[0].IsActive {
		t.Fatalf("user still active")
	}
	if err := svc.SetUserActive(ctx, "ghost", false); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListUsersBlanksPasswords(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := actorCtx("admin")

	if err := svc.SeedUsers(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, u := range users {
		if u.Password != "" {
			t.Fatalf("password leaked for %s", u.Username)
		}
	}
	if users[0].Username != "admin" || users[1].Username != "cashier" {
		t.Fatalf("expected username order, got %v %v", users[0].Username, users[1].Username)
	}
}

func TestCheckoutLogsAndNotifies(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	ctx := actorCtx("cashier")

	product := seedProduct(t, svc, "Rice 5kg", 1000, 6, 5)

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items:          []domain.CheckoutItem{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:  domain.PaymentCash,
		CashAmountPaid: 2000,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.Transaction.CreatedBy != "cashier" {
		t.Fatalf("sale attribution: %q", resp.Transaction.CreatedBy)
	}

	// Stock drops from 6 to 4, below the threshold of 5, so a low-stock
	// warning joins the sale confirmation.
	active := notifier.Active()
	if len(active) != 2 {
		t.Fatalf("expected sale confirmation plus low stock warning, got %+v", active)
	}
	kinds := map[string]bool{}
	for _, n := range active {
		kinds[n.Type] = true
	}
	if !kinds[domain.NotifySuccess] || !kinds[domain.NotifyWarning] {
		t.Fatalf("notification kinds: %+v", active)
	}

	logs, err := repo.ActivityLogs(context.Background())
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	found := false
	for _, entry := range logs {
		if entry.Category == domain.ActivityOrder && entry.Username == "cashier" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no order activity entry: %+v", logs)
	}
}

func TestCheckoutRespectsNotificationSettings(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	ctx := actorCtx("cashier")

	settings, _ := repo.NotificationSettings(context.Background())
	settings.SaleConfirmations = false
	settings.LowStockAlerts = false
	if err := repo.SaveNotificationSettings(context.Background(), settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	product := seedProduct(t, svc, "Rice 5kg", 1000, 2, 5)
	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items:          []domain.CheckoutItem{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:  domain.PaymentCash,
		CashAmountPaid: 1000,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if got := notifier.Active(); len(got) != 0 {
		t.Fatalf("notifications raised despite being disabled: %+v", got)
	}
}

func TestDashboard(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := actorCtx("admin")

	product := seedProduct(t, svc, "Rice 5kg", 1000, 10, 2)
	seedProduct(t, svc, "Empty Shelf", 500, 0, 5)
	if _, err := svc.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Ada Obi"}); err != nil {
		t.Fatalf("customer: %v", err)
	}

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items:          []domain.CheckoutItem{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:  domain.PaymentCash,
		CashAmountPaid: 2000,
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	dash, err := svc.Dashboard(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.TodayRevenue != 2000 || dash.TodayOrders != 1 {
		t.Fatalf("today: %+v", dash)
	}
	if dash.TotalProducts != 2 || dash.TotalCustomers != 1 {
		t.Fatalf("counts: %+v", dash)
	}
	if len(dash.LowStockProducts) != 1 || dash.LowStockProducts[0].Name != "Empty Shelf" {
		t.Fatalf("low stock: %+v", dash.LowStockProducts)
	}
	if len(dash.RecentTransactions) != 1 {
		t.Fatalf("recent: %+v", dash.RecentTransactions)
	}
}

func TestSaveBusinessSettingsValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := actorCtx("admin")

	settings, _ := svc.BusinessSettings(ctx)
	settings.BusinessName = ""
	if err := svc.SaveBusinessSettings(ctx, settings); err == nil {
		t.Fatalf("expected error for blank name")
	}
	settings.BusinessName = "Shop"
	settings.POSChargeAmount = -1
	if err := svc.SaveBusinessSettings(ctx, settings); err == nil {
		t.Fatalf("expected error for negative POS charge")
	}
	settings.POSChargeAmount = 100
	if err := svc.SaveBusinessSettings(ctx, settings); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestSavePrinterSettingsValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := actorCtx("admin")

	settings, _ := svc.PrinterSettings(ctx)
	settings.CopiesPerSale = 0
	if err := svc.SavePrinterSettings(ctx, settings); err == nil {
		t.Fatalf("expected error for zero copies")
	}
	settings.CopiesPerSale = 2
	if err := svc.SavePrinterSettings(ctx, settings); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestWipeDataLeavesSingleLogEntry(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := actorCtx("admin")

	seedProduct(t, svc, "Rice 5kg", 1000, 5, 2)
	if err := svc.WipeData(ctx); err != nil {
		t.Fatalf("wipe: %v", err)
	}

	products, _ := repo.Products(context.Background())
	if len(products) != 0 {
		t.Fatalf("catalog survived wipe: %+v", products)
	}
	logs, _ := repo.ActivityLogs(context.Background())
	if len(logs) != 1 || logs[0].Category != domain.ActivitySystem {
		t.Fatalf("expected the wipe entry alone, got %+v", logs)
	}
}

func TestActivityLogsNewestFirstAndLimited(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := actorCtx("admin")

	for i := 0; i < 3; i++ {
		seedProduct(t, svc, "Product", 100, 1, 1)
		svc.RecordLogin(ctx, "admin")
	}

	logs, err := svc.ActivityLogs(ctx, 2)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("limit ignored: %d", len(logs))
	}
	if logs[0].Timestamp.Before(logs[1].Timestamp) {
		t.Fatalf("not newest first: %+v", logs)
	}
}

func TestExportImportData(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := actorCtx("admin")

	seedProduct(t, svc, "Rice 5kg", 1000, 5, 2)
	data, err := svc.ExportData(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	other, otherRepo, _ := newTestService(t)
	if err := other.ImportData(ctx, data); err != nil {
		t.Fatalf("import: %v", err)
	}
	products, _ := otherRepo.Products(context.Background())
	if len(products) != 1 || products[0].Name != "Rice 5kg" {
		t.Fatalf("imported products: %+v", products)
	}
}
