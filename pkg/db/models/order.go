package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mgardella/storefront-backend/pkg/enums"
)

// Order is created exactly once per checkout. Total is immutable after
// creation; status is only moved by admin action.
type Order struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Total     decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Lines     []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
