package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a buyer's time-boxed claim on a quantity of one listing.
// It never holds stock; expiry is derived at read time, never stored.
type Reservation struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID       uuid.UUID         `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	BuyerID         uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	SellerID        uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Quantity        int               `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice       decimal.Decimal   `gorm:"column:unit_price;type:decimal(18,2);not null" json:"unit_price"`
	Currency        string            `gorm:"column:currency;type:char(3);not null" json:"currency"`
	Status          ReservationStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'" json:"status"`
	ExpiresAt       time.Time         `gorm:"column:expires_at;not null" json:"expires_at"`
	ExtendedUntil   *time.Time        `gorm:"column:extended_until" json:"extended_until,omitempty"`
	ExtensionReason *string           `gorm:"column:extension_reason" json:"extension_reason,omitempty"`
	ConfirmedAt     *time.Time        `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time        `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy     *uuid.UUID        `gorm:"column:cancelled_by;type:uuid" json:"cancelled_by,omitempty"`
	CreatedAt       time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// EffectiveExpiry is extended_until when set, else expires_at.
func (r *Reservation) EffectiveExpiry() time.Time {
	return EffectiveExpiry(r.ExpiresAt, r.ExtendedUntil)
}

// ExpiredAt reports whether the reservation is expired at now.
func (r *Reservation) ExpiredAt(now time.Time) bool {
	return IsExpired(r.Status, r.ExpiresAt, r.ExtendedUntil, now)
}

func EffectiveExpiry(expiresAt time.Time, extendedUntil *time.Time) time.Time {
	if extendedUntil != nil {
		return *extendedUntil
	}
	return expiresAt
}

// IsExpired is true only for a pending reservation strictly past its
// effective expiry. Confirmed and cancelled reservations never expire.
func IsExpired(status ReservationStatus, expiresAt time.Time, extendedUntil *time.Time, now time.Time) bool {
	if status != ReservationPending {
		return false
	}
	return now.After(EffectiveExpiry(expiresAt, extendedUntil))
}
