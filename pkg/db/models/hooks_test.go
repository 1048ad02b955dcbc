package models

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func allModels() []any {
	return []any{
		&Customer{}, &Product{}, &CatalogService{}, &Coupon{},
		&Cart{}, &CartItem{}, &CartServiceItem{},
		&Order{}, &OrderItem{}, &OrderServiceItem{}, &OrderStatusEntry{},
		&OrderNote{}, &OrderCancellation{}, &Appointment{},
		&ShipmentTracking{}, &ShipmentCheckpoint{},
		&InventoryTransaction{}, &PaymentTransaction{},
		&MpesaTransaction{}, &MpesaCallback{},
		&Notification{}, &OutboxEvent{}, &OutboxDLQ{},
	}
}

// The whole model set must migrate on sqlite: the domain test harnesses
// AutoMigrate these structs, so a Postgres-only DDL fragment in a tag breaks
// every suite at setup.
func TestModelsMigrateOnSQLite(t *testing.T) {
	dsn := "file:models_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func TestBeforeCreateAssignsID(t *testing.T) {
	dsn := "file:models_ids_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&Customer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	first := Customer{FullName: "Amina Odhiambo", Email: "amina@example.com", IsActive: true}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}

	second := Customer{FullName: "Wanjiru Kamau", Email: "wanjiru@example.com", IsActive: true}
	if err := db.Create(&second).Error; err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected distinct ids")
	}

	pinned := uuid.New()
	third := Customer{ID: pinned, FullName: "Baraka Mwangi", Email: "baraka@example.com", IsActive: true}
	if err := db.Create(&third).Error; err != nil {
		t.Fatalf("create third: %v", err)
	}
	if third.ID != pinned {
		t.Fatal("expected pre-assigned id to survive")
	}
}
