package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LedgerDirection string

const (
	LedgerDebit  LedgerDirection = "debit"
	LedgerCredit LedgerDirection = "credit"
)

// StockLedgerEntry is an append-only record of one stock movement caused by an
// order transition. (order_id, listing_id, transition) identifies it uniquely.
type StockLedgerEntry struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_ledger_order_listing_transition" json:"order_id"`
	ListingID  uuid.UUID       `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_ledger_order_listing_transition;index" json:"listing_id"`
	Transition OrderStatus     `gorm:"column:transition;type:varchar(20);not null;uniqueIndex:idx_ledger_order_listing_transition" json:"transition"`
	Direction  LedgerDirection `gorm:"column:direction;type:varchar(8);not null" json:"direction"`
	Quantity   int             `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (StockLedgerEntry) TableName() string {
	return "stock_ledger_entries"
}

func (e *StockLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Signed returns the entry quantity as a stock delta seen from the order:
// positive for debits, negative for credits.
func (e StockLedgerEntry) Signed() int {
	if e.Direction == LedgerCredit {
		return -e.Quantity
	}
	return e.Quantity
}
