package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Packaging string

const (
	PackagingBottle Packaging = "bottle"
	PackagingCase   Packaging = "case"
)

func (p Packaging) Valid() bool {
	return p == PackagingBottle || p == PackagingCase
}

// InventoryType says where a listing's stock is held. It drives the payment
// percentage policy and decides which listings may share an order.
type InventoryType string

const (
	InventoryBondedWarehouse InventoryType = "bonded_warehouse"
	InventoryThroughBrand    InventoryType = "through_brand"
	InventoryOther           InventoryType = "other"
)

func (t InventoryType) Valid() bool {
	switch t {
	case InventoryBondedWarehouse, InventoryThroughBrand, InventoryOther:
		return true
	}
	return false
}

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

type Visibility string

const (
	VisibilityDraft Visibility = "draft"
	VisibilityIdle  Visibility = "idle"
	VisibilityLive  Visibility = "live"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityDraft, VisibilityIdle, VisibilityLive:
		return true
	}
	return false
}

// Listing is a sellable unit of stock. QuantityAvailable is only ever changed
// through the stock ledger.
type Listing struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SellerID          uuid.UUID        `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Title             string           `gorm:"column:title;not null" json:"title"`
	Category          string           `gorm:"column:category;not null" json:"category"`
	Subcategory       *string          `gorm:"column:subcategory" json:"subcategory"`
	Packaging         Packaging        `gorm:"column:packaging;type:varchar(16);not null" json:"packaging"`
	QuantityAvailable int              `gorm:"column:quantity_available;not null;default:0" json:"quantity_available"`
	MinQuantity       int              `gorm:"column:min_quantity;not null;default:1" json:"min_quantity"`
	UnitPrice         decimal.Decimal  `gorm:"column:unit_price;type:decimal(18,2);not null" json:"unit_price"`
	Currency          string           `gorm:"column:currency;type:char(3);not null" json:"currency"`
	InventoryType     InventoryType    `gorm:"column:inventory_type;type:varchar(32);not null" json:"inventory_type"`
	Status            ModerationStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'" json:"status"`
	Visibility        Visibility       `gorm:"column:visibility;type:varchar(16);not null;default:'draft'" json:"visibility"`
	RejectionReason   *string          `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Tradable reports whether the listing may accept reservations and orders.
func (l *Listing) Tradable() bool {
	return l.Status == ModerationApproved && l.Visibility == VisibilityLive
}

// SubcategoryValue returns the subcategory or "" when unset.
func (l *Listing) SubcategoryValue() string {
	if l.Subcategory == nil {
		return ""
	}
	return *l.Subcategory
}
