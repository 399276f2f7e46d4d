package domain

import "time"

type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Price             float64   `json:"price"`
	Quantity          int       `json:"quantity"`
	Category          string    `json:"category"`
	Barcode           string    `json:"barcode,omitempty"`
	LowStockThreshold int       `json:"lowStockThreshold"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// LowStock reports whether the product's stock has fallen to or below its
// configured threshold.
func (p Product) LowStock() bool {
	return p.Quantity <= p.LowStockThreshold
}

type ProductCreateRequest struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Price             float64 `json:"price"`
	Quantity          int     `json:"quantity"`
	Category          string  `json:"category"`
	Barcode           string  `json:"barcode,omitempty"`
	LowStockThreshold *int    `json:"lowStockThreshold,omitempty"`
}

type ProductUpdateRequest struct {
	Name              *string  `json:"name,omitempty"`
	Description       *string  `json:"description,omitempty"`
	Price             *float64 `json:"price,omitempty"`
	Quantity          *int     `json:"quantity,omitempty"`
	Category          *string  `json:"category,omitempty"`
	Barcode           *string  `json:"barcode,omitempty"`
	LowStockThreshold *int     `json:"lowStockThreshold,omitempty"`
}

type Customer struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	DateOfBirth string     `json:"dateOfBirth,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`

	// TotalOrders and TotalSpent are derived aggregates. They are recomputed
	// from the transaction ledger on every read and never trusted from
	// storage, so a missed increment can never make them drift.
	TotalOrders int     `json:"totalOrders"`
	TotalSpent  float64 `json:"totalSpent"`
}

type CustomerCreateRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type CustomerUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// OrderItem is a cart line while an order is being assembled and a transaction
// line once committed. Price is the product's price snapshotted at add time;
// EditablePrice, when set, is an operator override used for total
// computation instead of the snapshot.
type OrderItem struct {
	ProductID     string   `json:"productId"`
	ProductName   string   `json:"productName"`
	Quantity      int      `json:"quantity"`
	Price         float64  `json:"price"`
	EditablePrice *float64 `json:"editablePrice,omitempty"`
	Total         float64  `json:"total"`
}

// EffectivePrice is the unit price used for totals: the operator override if
// one is set, the snapshot price otherwise.
func (i OrderItem) EffectivePrice() float64 {
	if i.EditablePrice != nil {
		return *i.EditablePrice
	}
	return i.Price
}

type Transaction struct {
	ID             string      `json:"id"`
	CustomerID     string      `json:"customerId,omitempty"`
	CustomerName   string      `json:"customerName,omitempty"`
	Items          []OrderItem `json:"items"`
	Subtotal       float64     `json:"subtotal"`
	POSCharge      float64     `json:"posCharge"`
	Total          float64     `json:"total"`
	PaymentMethod  string      `json:"paymentMethod"`
	CashAmountPaid float64     `json:"cashAmountPaid,omitempty"`
	POSAmountPaid  float64     `json:"posAmountPaid,omitempty"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	CreatedBy      string      `json:"createdBy"`
}

type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Password  string     `json:"password"`
	Role      string     `json:"role"`
	FullName  string     `json:"fullName"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	IsActive  bool       `json:"isActive"`
}

type BusinessSettings struct {
	BusinessName             string  `json:"businessName"`
	BusinessAddress          string  `json:"businessAddress"`
	PhoneNumbers             string  `json:"phoneNumbers"`
	EmailAddress             string  `json:"emailAddress"`
	POSChargeAmount          float64 `json:"posChargeAmount"`
	CurrencySymbol           string  `json:"currencySymbol"`
	TaxRate                  float64 `json:"taxRate"`
	DefaultLowStockThreshold int     `json:"defaultLowStockThreshold"`
}

type PrinterSettings struct {
	PrinterName   string `json:"printerName"`
	PaperWidthMM  int    `json:"paperWidthMm"`
	AutoPrint     bool   `json:"autoPrint"`
	CopiesPerSale int    `json:"copiesPerSale"`
}

type NotificationSettings struct {
	LowStockAlerts    bool `json:"lowStockAlerts"`
	SaleConfirmations bool `json:"saleConfirmations"`
	DailySummary      bool `json:"dailySummary"`
}

type ActivityLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Username    string `json:"username"`
	FullName    string `json:"fullName"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}

// Actor is the authenticated operator attached to a request context.
type Actor struct {
	UserID   string
	Username string
	Role     string
}

type CheckoutItem struct {
	ProductID     string   `json:"productId"`
	Quantity      int      `json:"quantity"`
	EditablePrice *float64 `json:"editablePrice,omitempty"`
}

type CheckoutRequest struct {
	CustomerID     string         `json:"customerId,omitempty"`
	Items          []CheckoutItem `json:"items"`
	PaymentMethod  string         `json:"paymentMethod"`
	CashAmountPaid float64        `json:"cashAmountPaid"`
	POSAmountPaid  float64        `json:"posAmountPaid"`
}

type CheckoutResponse struct {
	Transaction Transaction `json:"transaction"`
	Change      float64     `json:"change"`
}

type DashboardSummary struct {
	TodayRevenue       float64       `json:"todayRevenue"`
	TodayOrders        int           `json:"todayOrders"`
	TotalProducts      int           `json:"totalProducts"`
	TotalCustomers     int           `json:"totalCustomers"`
	LowStockProducts   []Product     `json:"lowStockProducts"`
	RecentTransactions []Transaction `json:"recentTransactions"`
}

type Notification struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

const (
	PaymentCash  = "Cash"
	PaymentPOS   = "POS"
	PaymentSplit = "Split"
)

const (
	StatusCompleted = "Completed"
	StatusPending   = "Pending"
	StatusCancelled = "Cancelled"
)

const (
	RoleAdmin   = "Admin"
	RoleCashier = "Cashier"
	RoleManager = "Manager"
)

const (
	NotifySuccess = "success"
	NotifyError   = "error"
	NotifyInfo    = "info"
	NotifyWarning = "warning"
)

const (
	ActivityLogin    = "Login"
	ActivityProduct  = "Product"
	ActivityOrder    = "Order"
	ActivityCustomer = "Customer"
	ActivityUser     = "User"
	ActivitySystem   = "System"
)

const WalkInCustomerName = "Walk-in Customer"
