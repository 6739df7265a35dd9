package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlatformFee is a per-unit fee rule. An empty Subcategory is the category
// default; it is stored as '' rather than NULL so the unique index holds.
type PlatformFee struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Category    string          `gorm:"column:category;not null;uniqueIndex:idx_platform_fee_category_sub" json:"category"`
	Subcategory string          `gorm:"column:subcategory;not null;default:'';uniqueIndex:idx_platform_fee_category_sub" json:"subcategory"`
	FeePerUnit  decimal.Decimal `gorm:"column:fee_per_unit;type:decimal(18,2);not null" json:"fee_per_unit"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (PlatformFee) TableName() string {
	return "platform_fees"
}

func (f *PlatformFee) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
