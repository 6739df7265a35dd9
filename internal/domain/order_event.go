package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderEvent is one applied order status change.
type OrderEvent struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID      `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	FromStatus *OrderStatus   `gorm:"column:from_status;type:varchar(20)" json:"from_status"`
	ToStatus   OrderStatus    `gorm:"column:to_status;type:varchar(20);not null" json:"to_status"`
	ActorID    *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	EventData  datatypes.JSON `gorm:"column:event_data;type:jsonb" json:"event_data"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (OrderEvent) TableName() string {
	return "order_events"
}

func (e *OrderEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
