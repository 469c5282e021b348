package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order meta keys shared with the Provider linkage.
const (
	MetaBillingID  = "_abacatepay_billing_id"
	MetaBillingURL = "_abacatepay_billing_url"
	MetaPixID      = "_abacatepay_pix_id"
	MetaTaxID      = "_billing_cpf"
)

// Order is the subset of a shop order this service reads and mutates.
type Order struct {
	ID           int64
	Status       OrderStatus
	Currency     string
	Customer     Customer
	Items        []LineItem
	Meta         map[string]string
	Notes        []OrderNote
	StockReduced bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Customer holds billing contact fields.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// LineItem is one ordered product.
type LineItem struct {
	ProductID   int64
	Name        string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Total is UnitPrice times Quantity.
func (i LineItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderNote is an append-only audit entry.
type OrderNote struct {
	ID        int64
	Note      string
	CreatedAt time.Time
}

// Total sums all line totals.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total())
	}
	return total
}

// BillingID returns the linked Provider billing id, if any.
func (o Order) BillingID() string {
	return o.Meta[MetaBillingID]
}

// BillingURL returns the hosted payment URL, if any.
func (o Order) BillingURL() string {
	return o.Meta[MetaBillingURL]
}

// PixID returns the linked PIX charge id, if any.
func (o Order) PixID() string {
	return o.Meta[MetaPixID]
}

// OrderChange is one logical update applied atomically by the store.
// Empty Status leaves the status untouched. Meta values are set once.
// A non-empty OnlyFrom makes the whole change conditional on the current status.
type OrderChange struct {
	OrderID     int64
	Status      OrderStatus
	OnlyFrom    []OrderStatus
	Notes       []string
	Meta        map[string]string
	ReduceStock bool
}

// Allows reports whether the change may apply to an order in status current.
func (c OrderChange) Allows(current OrderStatus) bool {
	if len(c.OnlyFrom) == 0 {
		return true
	}
	for _, status := range c.OnlyFrom {
		if status == current {
			return true
		}
	}
	return false
}

// ChangeResult reports what Save actually did.
type ChangeResult struct {
	PreviousStatus OrderStatus
	Status         OrderStatus
	StockReduced   bool
}

// MinorUnits converts an amount to integer cents, truncating fractions of a cent.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Truncate(0).IntPart()
}
