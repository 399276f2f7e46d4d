// Package receipt renders committed transactions for printing, both as
// plain text for thermal printers and as printable HTML.
package receipt

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"wumikay/pos/internal/domain"
)

// line is a pre-formatted receipt row.
type line struct {
	Name     string
	Quantity int
	Price    string
	Total    string
}

type view struct {
	BusinessName    string
	BusinessAddress string
	PhoneNumbers    string
	TransactionID   string
	Date            string
	Cashier         string
	Customer        string
	Lines           []line
	Subtotal        string
	POSCharge       string
	HasPOSCharge    bool
	Total           string
	PaymentMethod   string
	CashPaid        string
	POSPaid         string
	IsSplit         bool
	Change          string
	HasChange       bool
}

func buildView(tx domain.Transaction, settings domain.BusinessSettings, change float64) view {
	v := view{
		BusinessName:    settings.BusinessName,
		BusinessAddress: settings.BusinessAddress,
		PhoneNumbers:    settings.PhoneNumbers,
		TransactionID:   tx.ID,
		Date:            tx.CreatedAt.Format("02 Jan 2006 15:04"),
		Cashier:         tx.CreatedBy,
		Customer:        tx.CustomerName,
		Subtotal:        Amount(tx.Subtotal, settings.CurrencySymbol),
		POSCharge:       Amount(tx.POSCharge, settings.CurrencySymbol),
		HasPOSCharge:    tx.POSCharge > 0,
		Total:           Amount(tx.Total, settings.CurrencySymbol),
		PaymentMethod:   tx.PaymentMethod,
		CashPaid:        Amount(tx.CashAmountPaid, settings.CurrencySymbol),
		POSPaid:         Amount(tx.POSAmountPaid, settings.CurrencySymbol),
		IsSplit:         tx.PaymentMethod == domain.PaymentSplit,
		Change:          Amount(change, settings.CurrencySymbol),
		HasChange:       change > 0,
	}
	for _, item := range tx.Items {
		v.Lines = append(v.Lines, line{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    Amount(item.EffectivePrice(), settings.CurrencySymbol),
			Total:    Amount(item.Total, settings.CurrencySymbol),
		})
	}
	return v
}

// Amount formats a money value with the currency symbol and thousands
// separators, e.g. "₦1,150.00".
func Amount(value float64, symbol string) string {
	negative := value < 0
	if negative {
		value = -value
	}
	s := fmt.Sprintf("%.2f", value)
	dot := strings.IndexByte(s, '.')
	whole, frac := s[:dot], s[dot:]

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := symbol + b.String() + frac
	if negative {
		out = "-" + out
	}
	return out
}

// Text renders a receipt for a fixed-width thermal printer.
func Text(tx domain.Transaction, settings domain.BusinessSettings, change float64) string {
	v := buildView(tx, settings, change)
	var b strings.Builder

	center := func(s string) {
		if pad := (32 - len([]rune(s))) / 2; pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(s)
		b.WriteByte('\n')
	}
	rule := func() { b.WriteString(strings.Repeat("-", 32) + "\n") }
	row := func(left, right string) {
		gap := 32 - len([]rune(left)) - len([]rune(right))
		if gap < 1 {
			gap = 1
		}
		b.WriteString(left + strings.Repeat(" ", gap) + right + "\n")
	}

	center(v.BusinessName)
	if v.BusinessAddress != "" {
		center(v.BusinessAddress)
	}
	if v.PhoneNumbers != "" {
		center(v.PhoneNumbers)
	}
	rule()
	row("Receipt", v.TransactionID)
	row("Date", v.Date)
	row("Cashier", v.Cashier)
	row("Customer", v.Customer)
	rule()
	for _, l := range v.Lines {
		b.WriteString(l.Name + "\n")
		row(fmt.Sprintf("  %d x %s", l.Quantity, l.Price), l.Total)
	}
	rule()
	row("Subtotal", v.Subtotal)
	if v.HasPOSCharge {
		row("POS Charge", v.POSCharge)
	}
	row("TOTAL", v.Total)
	rule()
	row("Payment", v.PaymentMethod)
	if v.IsSplit {
		row("Cash", v.CashPaid)
		row("POS", v.POSPaid)
	}
	if v.HasChange {
		row("Change", v.Change)
	}
	rule()
	center("Thank you for your patronage!")

	return b.String()
}

// receiptHTMLTmpl renders the printable receipt. User-controlled fields are
// auto-escaped by html/template.
var receiptHTMLTmpl = template.Must(template.New("receipt").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Receipt {{.TransactionID}}</title>
  <style>
    body { font-family: monospace; width: 300px; margin: 16px auto; }
    .center { text-align: center; }
    table { width: 100%; border-collapse: collapse; }
    td { padding: 2px 0; font-size: 12px; }
    td.amount { text-align: right; }
    hr { border: none; border-top: 1px dashed #000; }
    .total td { font-weight: bold; font-size: 14px; }
  </style>
</head>
<body onload="window.print()">
  <div class="center">
    <h3>{{.BusinessName}}</h3>
    {{if .BusinessAddress}}<div>{{.BusinessAddress}}</div>{{end}}
    {{if .PhoneNumbers}}<div>{{.PhoneNumbers}}</div>{{end}}
  </div>
  <hr />
  <table>
    <tr><td>Receipt</td><td class="amount">{{.TransactionID}}</td></tr>
    <tr><td>Date</td><td class="amount">{{.Date}}</td></tr>
    <tr><td>Cashier</td><td class="amount">{{.Cashier}}</td></tr>
    <tr><td>Customer</td><td class="amount">{{.Customer}}</td></tr>
  </table>
  <hr />
  <table>
    {{range .Lines}}
    <tr><td colspan="2">{{.Name}}</td></tr>
    <tr><td>&nbsp;&nbsp;{{.Quantity}} x {{.Price}}</td><td class="amount">{{.Total}}</td></tr>
    {{end}}
  </table>
  <hr />
  <table>
    <tr><td>Subtotal</td><td class="amount">{{.Subtotal}}</td></tr>
    {{if .HasPOSCharge}}<tr><td>POS Charge</td><td class="amount">{{.POSCharge}}</td></tr>{{end}}
    <tr class="total"><td>TOTAL</td><td class="amount">{{.Total}}</td></tr>
    <tr><td>Payment</td><td class="amount">{{.PaymentMethod}}</td></tr>
    {{if .IsSplit}}
    <tr><td>Cash</td><td class="amount">{{.CashPaid}}</td></tr>
    <tr><td>POS</td><td class="amount">{{.POSPaid}}</td></tr>
    {{end}}
    {{if .HasChange}}<tr><td>Change</td><td class="amount">{{.Change}}</td></tr>{{end}}
  </table>
  <hr />
  <div class="center">Thank you for your patronage!</div>
</body>
</html>
`))

// HTML renders the printable receipt page.
func HTML(tx domain.Transaction, settings domain.BusinessSettings, change float64) string {
	var buf bytes.Buffer
	if err := receiptHTMLTmpl.Execute(&buf, buildView(tx, settings, change)); err != nil {
		return "<!doctype html><html><body><p>Receipt rendering error.</p></body></html>"
	}
	return buf.String()
}
