package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderNote is an append-only annotation on an order. Notes are never edited
// in place.
type OrderNote struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	AuthorID  *uuid.UUID `gorm:"column:author_id;type:uuid"`
	Body      string     `gorm:"column:body;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
