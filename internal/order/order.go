// Package order implements the cart and the checkout path. A cart is built
// against a snapshot of the catalog, validated line by line, and committed
// as a completed transaction with the matching stock decrement in a single
// serialized step.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/ident"
	"wumikay/pos/internal/state"
)

var (
	ErrOutOfStock        = errors.New("product out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrProductNotFound   = errors.New("product not found in catalog")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidPayment    = errors.New("invalid payment")
	ErrPaymentShort      = errors.New("payment does not cover total")
)

// Cart accumulates order lines. It is not safe for concurrent use; each
// checkout builds its own.
type Cart struct {
	items []domain.OrderItem
}

func NewCart() *Cart {
	return &Cart{}
}

func (c *Cart) Items() []domain.OrderItem {
	out := make([]domain.OrderItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

// AddItem adds one unit of the product, or increments an existing line.
// The line quantity can never exceed the product's current stock.
func (c *Cart) AddItem(product domain.Product) error {
	if product.Quantity <= 0 {
		return ErrOutOfStock
	}
	for i := range c.items {
		if c.items[i].ProductID == product.ID {
			if c.items[i].Quantity+1 > product.Quantity {
				return ErrInsufficientStock
			}
			c.items[i].Quantity++
			c.retotal(i)
			return nil
		}
	}

	line := domain.OrderItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    1,
		Price:       product.Price,
	}
	c.items = append(c.items, line)
	c.retotal(len(c.items) - 1)
	return nil
}

// SetQuantity sets a line's quantity. Zero or negative removes the line.
func (c *Cart) SetQuantity(product domain.Product, quantity int) error {
	if quantity <= 0 {
		c.RemoveItem(product.ID)
		return nil
	}
	if quantity > product.Quantity {
		return ErrInsufficientStock
	}
	for i := range c.items {
		if c.items[i].ProductID == product.ID {
			c.items[i].Quantity = quantity
			c.retotal(i)
			return nil
		}
	}
	line := domain.OrderItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		Price:       product.Price,
	}
	c.items = append(c.items, line)
	c.retotal(len(c.items) - 1)
	return nil
}

// SetEditablePrice overrides the unit price of a line for this sale only.
func (c *Cart) SetEditablePrice(productID string, price float64) error {
	if price < 0 {
		return ErrInvalidPrice
	}
	for i := range c.items {
		if c.items[i].ProductID == productID {
			p := price
			c.items[i].EditablePrice = &p
			c.retotal(i)
			return nil
		}
	}
	return ErrProductNotFound
}

func (c *Cart) RemoveItem(productID string) {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

func (c *Cart) retotal(i int) {
	c.items[i].Total = c.items[i].EffectivePrice() * float64(c.items[i].Quantity)
}

// Totals carries the computed amounts of a cart under a payment method.
type Totals struct {
	Subtotal  float64
	POSCharge float64
	Total     float64
}

// ComputeTotals sums the line totals and applies the card machine surcharge
// when any part of the payment goes through the POS terminal.
func ComputeTotals(items []domain.OrderItem, paymentMethod string, settings domain.BusinessSettings) Totals {
	t := Totals{}
	for _, item := range items {
		t.Subtotal += item.Total
	}
	if paymentMethod == domain.PaymentPOS || paymentMethod == domain.PaymentSplit {
		t.POSCharge = settings.POSChargeAmount
	}
	t.Total = t.Subtotal + t.POSCharge
	return t
}

// SplitState describes how much of a split payment remains outstanding.
type SplitState struct {
	Paid       float64
	AmountLeft float64
	Change     float64
}

// ReconcileSplitPayment reports the outstanding amount and change for the
// cash plus POS amounts entered so far.
func ReconcileSplitPayment(total float64, cashPaid float64, posPaid float64) SplitState {
	s := SplitState{Paid: cashPaid + posPaid}
	if s.Paid < total {
		s.AmountLeft = total - s.Paid
	} else {
		s.Change = s.Paid - total
	}
	return s
}

// Engine commits checkouts against the shared state repository.
type Engine struct {
	repo *state.Repo
	now  func() time.Time
}

func NewEngine(repo *state.Repo) *Engine {
	return &Engine{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Commit validates the checkout request against current stock and payment
// rules, then appends the completed transaction and decrements stock
// atomically. Stock is floored at zero so an oversell observed between
// validation and commit can never drive a quantity negative.
func (e *Engine) Commit(ctx context.Context, req domain.CheckoutRequest, cashier string) (*domain.CheckoutResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	switch req.PaymentMethod {
	case domain.PaymentCash, domain.PaymentPOS, domain.PaymentSplit:
	default:
		return nil, ErrInvalidPayment
	}

	products, err := e.repo.Products(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	cart := NewCart()
	for _, item := range req.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if product.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
		}
		if err := cart.SetQuantity(product, item.Quantity); err != nil {
			return nil, fmt.Errorf("%w: %s", err, product.Name)
		}
		if item.EditablePrice != nil {
			if err := cart.SetEditablePrice(product.ID, *item.EditablePrice); err != nil {
				return nil, err
			}
		}
	}

	settings, err := e.repo.BusinessSettings(ctx)
	if err != nil {
		return nil, err
	}
	totals := ComputeTotals(cart.Items(), req.PaymentMethod, settings)

	var cashPaid, posPaid float64
	switch req.PaymentMethod {
	case domain.PaymentCash:
		cashPaid = req.CashAmountPaid
	case domain.PaymentPOS:
		// A straight card sale is charged the exact total.
		posPaid = totals.Total
	case domain.PaymentSplit:
		cashPaid = req.CashAmountPaid
		posPaid = req.POSAmountPaid
	}

	paid := cashPaid + posPaid
	if paid <= 0 {
		return nil, ErrInvalidPayment
	}
	if paid < totals.Total {
		return nil, ErrPaymentShort
	}
	change := paid - totals.Total

	customerID := strings.TrimSpace(req.CustomerID)
	customerName := domain.WalkInCustomerName
	if customerID != "" {
		customers, err := e.repo.Customers(ctx)
		if err != nil {
			return nil, err
		}
		found := false
		for _, c := range customers {
			if c.ID == customerID {
				customerName = c.Name
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown customer %s", customerID)
		}
	}

	// The stored lines carry the price the sale was actually made at; the
	// per-sale override does not outlive the cart.
	items := cart.Items()
	for i := range items {
		items[i].Price = items[i].EffectivePrice()
		items[i].EditablePrice = nil
	}

	tx := domain.Transaction{
		ID:             ident.New("txn"),
		CustomerID:     customerID,
		CustomerName:   customerName,
		Items:          items,
		Subtotal:       totals.Subtotal,
		POSCharge:      totals.POSCharge,
		Total:          totals.Total,
		PaymentMethod:  req.PaymentMethod,
		CashAmountPaid: cashPaid,
		POSAmountPaid:  posPaid,
		Status:         domain.StatusCompleted,
		CreatedAt:      e.now(),
		CreatedBy:      cashier,
	}

	err = e.repo.CommitSale(ctx, tx, func(current []domain.Product) ([]domain.Product, error) {
		for _, line := range tx.Items {
			for i := range current {
				if current[i].ID != line.ProductID {
					continue
				}
				current[i].Quantity -= line.Quantity
				if current[i].Quantity < 0 {
					current[i].Quantity = 0
				}
				current[i].UpdatedAt = tx.CreatedAt
				break
			}
		}
		return current, nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.CheckoutResponse{Transaction: tx, Change: change}, nil
}
