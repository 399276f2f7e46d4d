// Package httpapi exposes the console over HTTP. Routing uses the standard
// mux with method switches inside each handler; every route except login and
// health requires a bearer token.
package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"wumikay/pos/internal/backup"
	"wumikay/pos/internal/catalog"
	"wumikay/pos/internal/directory"
	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/ledger"
	"wumikay/pos/internal/order"
	"wumikay/pos/internal/receipt"
	"wumikay/pos/internal/report"
	"wumikay/pos/internal/service"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	return a.csrfTokenForHour(now.Truncate(time.Hour).Unix())
}

// validateCSRFToken accepts tokens from the current or previous hour bucket,
// giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/logout", a.requireAuth(a.handleLogout))
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts))
	mux.HandleFunc("/api/v1/products/sample-data", a.requireAuth(a.handleSampleData))
	mux.HandleFunc("/api/v1/products/low-stock", a.requireAuth(a.handleLowStock))
	mux.HandleFunc("/api/v1/products/categories", a.requireAuth(a.handleCategories))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions))

	mux.HandleFunc("/api/v1/customers", a.requireAuth(a.handleCustomers))
	mux.HandleFunc("/api/v1/customers/", a.requireAuth(a.handleCustomerActions))

	mux.HandleFunc("/api/v1/checkout", a.requireAuth(a.handleCheckout))
	mux.HandleFunc("/api/v1/checkout/preview", a.requireAuth(a.handleCheckoutPreview))

	mux.HandleFunc("/api/v1/transactions", a.requireAuth(a.handleTransactions))
	mux.HandleFunc("/api/v1/transactions/", a.requireAuth(a.handleTransactionActions))

	mux.HandleFunc("/api/v1/reports/sales", a.requireAuth(a.handleSalesReport))
	mux.HandleFunc("/api/v1/reports/customers", a.requireAuth(a.handleCustomerReport))
	mux.HandleFunc("/api/v1/dashboard", a.requireAuth(a.handleDashboard))

	mux.HandleFunc("/api/v1/settings/business", a.requireAuth(a.handleBusinessSettings))
	mux.HandleFunc("/api/v1/settings/printer", a.requireAuth(a.handlePrinterSettings))
	mux.HandleFunc("/api/v1/settings/notifications", a.requireAuth(a.handleNotificationSettings))

	mux.HandleFunc("/api/v1/notifications", a.requireAuth(a.handleNotifications))
	mux.HandleFunc("/api/v1/notifications/", a.requireAuth(a.handleNotificationActions))
	mux.HandleFunc("/api/v1/activity-logs", a.requireAuth(a.handleActivityLogs))

	mux.HandleFunc("/api/v1/users", a.requireAuth(a.handleUsers))
	mux.HandleFunc("/api/v1/users/", a.requireAuth(a.handleUserActions))

	mux.HandleFunc("/api/v1/backup/export", a.requireAuth(a.handleExport))
	mux.HandleFunc("/api/v1/backup/import", a.requireAuth(a.handleImport))
	mux.HandleFunc("/api/v1/backup/wipe", a.requireAuth(a.handleWipe))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"at":          time.Now().UTC().Format(time.RFC3339),
		"stateWrites": a.service.StateWrites(),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	actor := domain.Actor{Username: resp.Username, Role: resp.Role}
	a.service.RecordLogin(service.WithActor(r.Context(), actor), resp.Username)

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	actor, _ := service.ActorFromContext(r.Context())
	a.service.RecordLogout(r.Context(), actor.Username)

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// csrfExemptPaths lists paths exempt from CSRF validation. Login is called
// before a token can be fetched.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch && method != http.MethodDelete {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query().Get("q")
		products, err := a.service.Catalog.Search(r.Context(), query)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
			filtered := make([]domain.Product, 0, len(products))
			for _, p := range products {
				if strings.EqualFold(p.Category, category) {
					filtered = append(filtered, p)
				}
			}
			products = filtered
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSampleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	products, err := a.service.LoadSampleProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	products, err := a.service.Catalog.LowStock(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	categories, err := a.service.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/products/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, errors.New("unknown product path"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := a.service.Catalog.Get(r.Context(), id)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodPatch, http.MethodPut:
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.UpdateProduct(r.Context(), id, req)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodDelete:
		if err := a.service.DeleteProduct(r.Context(), id); err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		var (
			customers []domain.Customer
			err       error
		)
		if query != "" {
			customers, err = a.service.Directory.Search(r.Context(), query)
		} else {
			customers, err = a.service.Directory.List(r.Context(), r.URL.Query().Get("sort"))
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
	case http.MethodPost:
		var req domain.CustomerCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		customer, err := a.service.CreateCustomer(r.Context(), req)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"customer": customer})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/customers/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, errors.New("unknown customer path"))
		return
	}

	if action == "transactions" {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		transactions, err := a.service.Ledger.ByCustomer(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, errors.New("unknown customer path"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		customer, err := a.service.Directory.Get(r.Context(), id)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
	case http.MethodPatch, http.MethodPut:
		var req domain.CustomerUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		customer, err := a.service.UpdateCustomer(r.Context(), id, req)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
	case http.MethodDelete:
		if err := a.service.DeleteCustomer(r.Context(), id); err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.Checkout(r.Context(), req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleCheckoutPreview computes totals and outstanding amounts without
// committing anything, so the register can show the running numbers.
func (a *API) handleCheckoutPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	products, err := a.service.Catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	cart := order.NewCart()
	for _, item := range req.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("unknown product %s", item.ProductID))
			return
		}
		if err := cart.SetQuantity(product, item.Quantity); err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("%w: %s", err, product.Name))
			return
		}
		if item.EditablePrice != nil {
			if err := cart.SetEditablePrice(product.ID, *item.EditablePrice); err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
		}
	}

	settings, err := a.service.BusinessSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	totals := order.ComputeTotals(cart.Items(), req.PaymentMethod, settings)
	split := order.ReconcileSplitPayment(totals.Total, req.CashAmountPaid, req.POSAmountPaid)

	writeJSON(w, http.StatusOK, map[string]any{
		"items":      cart.Items(),
		"subtotal":   totals.Subtotal,
		"posCharge":  totals.POSCharge,
		"total":      totals.Total,
		"paid":       split.Paid,
		"amountLeft": split.AmountLeft,
		"change":     split.Change,
	})
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	transactions, err := a.service.Ledger.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if limit := parsePositiveLimit(r.URL.Query().Get("limit"), 0, 0); limit > 0 && len(transactions) > limit {
		transactions = transactions[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

func (a *API) handleTransactionActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/transactions/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, errors.New("unknown transaction path"))
		return
	}
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	tx, err := a.service.Ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	switch action {
	case "":
		writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
	case "receipt":
		settings, err := a.service.BusinessSettings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		change := tx.CashAmountPaid + tx.POSAmountPaid - tx.Total
		if change < 0 {
			change = 0
		}
		switch r.URL.Query().Get("format") {
		case "text":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, receipt.Text(*tx, settings, change))
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, receipt.HTML(*tx, settings, change))
		}
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown transaction path"))
	}
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	preset := q.Get("range")
	if preset == "" {
		preset = report.PresetToday
	}
	rng, err := report.ResolveRange(preset, time.Now(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sales, err := a.service.Reports.Sales(r.Context(), rng)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if q.Get("format") == "csv" {
		data, err := report.CSV(sales)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"sales-%s.csv\"", rng.From.Format("2006-01-02")))
		_, _ = w.Write(data)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"range": map[string]string{
			"from": rng.From.Format("2006-01-02"),
			"to":   rng.To.AddDate(0, 0, -1).Format("2006-01-02"),
		},
		"summary":          report.Summarize(sales),
		"dailySeries":      report.DailySeries(sales, rng),
		"productBreakdown": report.ProductBreakdown(sales),
		"transactions":     sales,
	})
}

func (a *API) handleCustomerReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	breakdown, err := a.service.Reports.CustomerBreakdown(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": breakdown})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	summary, err := a.service.Dashboard(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleBusinessSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := a.service.BusinessSettings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	case http.MethodPut:
		var settings domain.BusinessSettings
		if err := decodeJSON(r, &settings); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.SaveBusinessSettings(r.Context(), settings); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handlePrinterSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := a.service.PrinterSettings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	case http.MethodPut:
		var settings domain.PrinterSettings
		if err := decodeJSON(r, &settings); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.SavePrinterSettings(r.Context(), settings); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleNotificationSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := a.service.NotificationSettings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	case http.MethodPut:
		var settings domain.NotificationSettings
		if err := decodeJSON(r, &settings); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.SaveNotificationSettings(r.Context(), settings); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": a.service.Notifier.Active()})
}

func (a *API) handleNotificationActions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/notifications/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, errors.New("unknown notification path"))
		return
	}
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	a.service.Notifier.Dismiss(id)
	writeJSON(w, http.StatusOK, map[string]any{"dismissed": id})
}

func (a *API) handleActivityLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 1000)
	logs, err := a.service.ActivityLogs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.service.ListUsers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
			FullName string `json:"fullName"`
			Email    string `json:"email"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := a.service.CreateUser(r.Context(), req.Username, req.Password, req.Role, req.FullName, req.Email)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleUserActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	username, action, _ := strings.Cut(rest, "/")
	if username == "" {
		writeError(w, http.StatusNotFound, errors.New("unknown user path"))
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	switch action {
	case "password":
		var req struct {
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.UpdateUserPassword(r.Context(), username, req.Password); err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updated": username})
	case "active":
		var req struct {
			Active bool `json:"active"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.SetUserActive(r.Context(), username, req.Active); err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updated": username})
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown user path"))
	}
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	data, err := a.service.ExportData(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"pos-backup-%s.json\"", time.Now().UTC().Format("2006-01-02")))
	_, _ = w.Write(data)
}

func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.ImportData(r.Context(), data); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": true})
}

// wipeConfirmPhrase must be echoed back by the client before a wipe runs.
const wipeConfirmPhrase = "DELETE ALL DATA"

func (a *API) handleWipe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req struct {
		Confirm string `json:"confirm"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Confirm != wipeConfirmPhrase {
		writeError(w, http.StatusBadRequest, fmt.Errorf("confirmation phrase mismatch, expected %q", wipeConfirmPhrase))
		return
	}
	if err := a.service.WipeData(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wiped": true})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// statusForError maps the domain sentinel errors to HTTP statuses so the
// handlers stay free of error-matching boilerplate.
func statusForError(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, directory.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, order.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, directory.ErrInvalidCustomer),
		errors.Is(err, service.ErrInvalidUser),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, backup.ErrBadFormat):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, order.ErrOutOfStock),
		errors.Is(err, order.ErrInsufficientStock),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidPrice),
		errors.Is(err, order.ErrInvalidPayment),
		errors.Is(err, order.ErrPaymentShort):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 4xx messages are user-facing; 5xx messages stay generic so internal
	// details never leak to clients.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
