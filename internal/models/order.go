package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks payment bookkeeping independently of fulfilment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

var validPaymentStatuses = map[PaymentStatus]struct{}{
	PaymentPending:  {},
	PaymentPaid:     {},
	PaymentFailed:   {},
	PaymentRefunded: {},
}

// IsValid reports whether s is a known payment status.
func (s PaymentStatus) IsValid() bool {
	_, ok := validPaymentStatuses[s]
	return ok
}

// Address is where an order is delivered.
type Address struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code" validate:"required"`
	Country string `json:"country"`
}

// UnmarshalJSON also accepts zipCode for zip_code.
func (a *Address) UnmarshalJSON(data []byte) error {
	type plain Address
	var aux struct {
		plain
		ZipCodeAlt string `json:"zipCode"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Address(aux.plain)
	if a.ZipCode == "" {
		a.ZipCode = aux.ZipCodeAlt
	}
	return nil
}

// OrderItem is one line of an order. SellerID, ProductName and Price are
// snapshots taken when the order was placed.
type OrderItem struct {
	ID          uint            `json:"-" gorm:"primaryKey"`
	OrderID     string          `json:"-" gorm:"index;type:varchar(36);not null"`
	ProductID   string          `json:"product_id" gorm:"index;type:varchar(36);not null"`
	ProductName string          `json:"product_name"`
	SellerID    string          `json:"seller_id" gorm:"index;type:varchar(36);not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
}

// Subtotal is the line's price snapshot times its quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a customer order. OrderNumber is written once on insert and never updated.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber     string          `json:"order_number" gorm:"<-:create;uniqueIndex;type:varchar(32);not null"`
	CustomerID      string          `json:"customer_id" gorm:"index;type:varchar(36);not null"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	DeliveryAddress Address         `json:"delivery_address" gorm:"embedded;embeddedPrefix:delivery_"`
	Notes           string          `json:"notes"`
	Status          OrderStatus     `json:"status" gorm:"index;type:varchar(20);not null"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);not null"`
	PaymentMethod   PaymentMethod   `json:"payment_method" gorm:"type:varchar(20);not null"`
	PaymentID       string          `json:"payment_id,omitempty"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	OrderedAt       time.Time       `json:"ordered_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasSeller reports whether any line item was sold by sellerID.
func (o *Order) HasSeller(sellerID string) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// OrderFilter restricts order listings. Empty fields are ignored.
type OrderFilter struct {
	CustomerID string
	SellerID   string
	Status     OrderStatus
}
