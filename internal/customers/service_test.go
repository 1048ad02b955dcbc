package customers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/afyakart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:customers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Customer{}))
	return db
}

func TestGetProfileReturnsActiveCustomer(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	phone := "254712345678"
	customer := models.Customer{
		ID:       uuid.New(),
		Email:    "amina@example.com",
		FullName: "Amina Odhiambo",
		Phone:    &phone,
		IsActive: true,
	}
	require.NoError(t, db.Create(&customer).Error)

	got, err := svc.GetProfile(context.Background(), customer.ID)
	require.NoError(t, err)
	require.Equal(t, customer.ID, got.ID)
	require.Equal(t, "amina@example.com", got.Email)
}

func TestGetProfileUnknownCustomer(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	_, err = svc.GetProfile(context.Background(), uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestGetProfileInactiveCustomerHidden(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	customer := models.Customer{
		ID:       uuid.New(),
		Email:    "dormant@example.com",
		FullName: "Dormant Account",
		IsActive: false,
	}
	require.NoError(t, db.Create(&customer).Error)

	_, err = svc.GetProfile(context.Background(), customer.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
