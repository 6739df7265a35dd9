package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPaymentPending OrderStatus = "payment_pending"
	OrderPaidInEscrow   OrderStatus = "paid_in_escrow"
	OrderDispatched     OrderStatus = "dispatched"
	OrderDelivered      OrderStatus = "delivered"
	OrderReleased       OrderStatus = "released"
	OrderRefunded       OrderStatus = "refunded"
)

// orderTransitions lists every allowed from -> to move. Anything absent is rejected.
var orderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderPaymentPending: {OrderPaidInEscrow: true},
	OrderPaidInEscrow:   {OrderDispatched: true, OrderRefunded: true},
	OrderDispatched:     {OrderDelivered: true, OrderRefunded: true},
	OrderDelivered:      {OrderReleased: true, OrderRefunded: true},
	OrderReleased:       {},
	OrderRefunded:       {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return orderTransitions[from][to]
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderReleased || s == OrderRefunded
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

const (
	PaymentPercentageFull    = 100
	PaymentPercentageDeposit = 20
)

// Order is the financial/logistics record created once a reservation or cart
// proceeds to payment. Amounts and PaymentPercentage are fixed at creation.
type Order struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ReservationID     *uuid.UUID      `gorm:"column:reservation_id;type:uuid;uniqueIndex" json:"reservation_id"`
	ExternalID        *string         `gorm:"column:external_id;uniqueIndex" json:"external_id,omitempty"`
	BuyerID           uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	Currency          string          `gorm:"column:currency;type:char(3);not null" json:"currency"`
	InventoryType     InventoryType   `gorm:"column:inventory_type;type:varchar(32);not null" json:"inventory_type"`
	Status            OrderStatus     `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	PaymentPercentage int             `gorm:"column:payment_percentage;not null" json:"payment_percentage"`
	Subtotal          decimal.Decimal `gorm:"column:subtotal;type:decimal(18,2);not null" json:"subtotal"`
	PlatformFeeTotal  decimal.Decimal `gorm:"column:platform_fee_total;type:decimal(18,2);not null" json:"platform_fee_total"`
	Total             decimal.Decimal `gorm:"column:total;type:decimal(18,2);not null" json:"total"`
	PaymentAmount     decimal.Decimal `gorm:"column:payment_amount;type:decimal(18,2);not null" json:"payment_amount"`
	RemainingBalance  decimal.Decimal `gorm:"column:remaining_balance;type:decimal(18,2);not null" json:"remaining_balance"`
	Carrier           *string         `gorm:"column:carrier" json:"carrier,omitempty"`
	TrackingReference *string         `gorm:"column:tracking_reference" json:"tracking_reference,omitempty"`
	RefundReason      *string         `gorm:"column:refund_reason" json:"refund_reason,omitempty"`
	PaidAt            *time.Time      `gorm:"column:paid_at" json:"paid_at,omitempty"`
	DispatchedAt      *time.Time      `gorm:"column:dispatched_at" json:"dispatched_at,omitempty"`
	DeliveredAt       *time.Time      `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	ReleasedAt        *time.Time      `gorm:"column:released_at" json:"released_at,omitempty"`
	RefundedAt        *time.Time      `gorm:"column:refunded_at" json:"refunded_at,omitempty"`
	Items             []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// SellerIDs returns the distinct sellers across the order's line items.
func (o *Order) SellerIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(o.Items))
	out := make([]uuid.UUID, 0, len(o.Items))
	for _, it := range o.Items {
		if !seen[it.SellerID] {
			seen[it.SellerID] = true
			out = append(out, it.SellerID)
		}
	}
	return out
}

// OrderItem is one line of an order. Category, inventory type and fee are
// snapshots taken at order creation.
type OrderItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	ListingID     uuid.UUID       `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	SellerID      uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Category      string          `gorm:"column:category;not null" json:"category"`
	Subcategory   *string         `gorm:"column:subcategory" json:"subcategory"`
	InventoryType InventoryType   `gorm:"column:inventory_type;type:varchar(32);not null" json:"inventory_type"`
	Quantity      int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:decimal(18,2);not null" json:"unit_price"`
	FeePerUnit    decimal.Decimal `gorm:"column:fee_per_unit;type:decimal(18,2);not null" json:"fee_per_unit"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
