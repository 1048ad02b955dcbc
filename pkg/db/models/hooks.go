package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are generated application-side so the models create cleanly on
// every dialect the repo touches (Postgres in production, sqlite in tests).
// Callers that pre-assign an ID keep it.

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (m *Appointment) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *Cart) BeforeCreate(*gorm.DB) error                 { ensureID(&m.ID); return nil }
func (m *CartItem) BeforeCreate(*gorm.DB) error             { ensureID(&m.ID); return nil }
func (m *CartServiceItem) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
func (m *CatalogService) BeforeCreate(*gorm.DB) error       { ensureID(&m.ID); return nil }
func (m *Coupon) BeforeCreate(*gorm.DB) error               { ensureID(&m.ID); return nil }
func (m *Customer) BeforeCreate(*gorm.DB) error             { ensureID(&m.ID); return nil }
func (m *InventoryTransaction) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *MpesaCallback) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (m *MpesaTransaction) BeforeCreate(*gorm.DB) error     { ensureID(&m.ID); return nil }
func (m *Notification) BeforeCreate(*gorm.DB) error         { ensureID(&m.ID); return nil }
func (m *Order) BeforeCreate(*gorm.DB) error                { ensureID(&m.ID); return nil }
func (m *OrderCancellation) BeforeCreate(*gorm.DB) error    { ensureID(&m.ID); return nil }
func (m *OrderItem) BeforeCreate(*gorm.DB) error            { ensureID(&m.ID); return nil }
func (m *OrderNote) BeforeCreate(*gorm.DB) error            { ensureID(&m.ID); return nil }
func (m *OrderServiceItem) BeforeCreate(*gorm.DB) error     { ensureID(&m.ID); return nil }
func (m *OrderStatusEntry) BeforeCreate(*gorm.DB) error     { ensureID(&m.ID); return nil }
func (m *OutboxDLQ) BeforeCreate(*gorm.DB) error            { ensureID(&m.ID); return nil }
func (m *OutboxEvent) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *PaymentTransaction) BeforeCreate(*gorm.DB) error   { ensureID(&m.ID); return nil }
func (m *Product) BeforeCreate(*gorm.DB) error              { ensureID(&m.ID); return nil }
func (m *ShipmentTracking) BeforeCreate(*gorm.DB) error     { ensureID(&m.ID); return nil }
func (m *ShipmentCheckpoint) BeforeCreate(*gorm.DB) error   { ensureID(&m.ID); return nil }
