package mpesa

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/afyakart/storefront-backend/internal/orders"
	"github.com/afyakart/storefront-backend/pkg/db/models"
	"github.com/afyakart/storefront-backend/pkg/enums"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
	"github.com/afyakart/storefront-backend/pkg/outbox"
	"github.com/afyakart/storefront-backend/pkg/types"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeDaraja struct {
	pushResp  *STKPushResponse
	pushErr   error
	queryResp *QueryResponse
	queryErr  error
	pushes    []STKPushRequest
}

func (f *fakeDaraja) STKPush(_ context.Context, req STKPushRequest) (*STKPushResponse, error) {
	f.pushes = append(f.pushes, req)
	return f.pushResp, f.pushErr
}

func (f *fakeDaraja) QueryStatus(_ context.Context, _ string) (*QueryResponse, error) {
	return f.queryResp, f.queryErr
}

type fakeSettler struct {
	settled []orders.SettleInput
	failed  []orders.SettleInput
}

func (f *fakeSettler) Settle(_ context.Context, tx *gorm.DB, input orders.SettleInput) error {
	if tx == nil {
		panic("settle outside transaction")
	}
	f.settled = append(f.settled, input)
	return nil
}

func (f *fakeSettler) FailPayment(_ context.Context, tx *gorm.DB, input orders.SettleInput) error {
	if tx == nil {
		panic("fail payment outside transaction")
	}
	f.failed = append(f.failed, input)
	return nil
}

type fakePublisher struct {
	events []outbox.DomainEvent
}

func (f *fakePublisher) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type orderStoreDB struct {
	db *gorm.DB
}

func (s orderStoreDB) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:mpesa_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Order{},
		&models.MpesaTransaction{},
		&models.MpesaCallback{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, daraja *fakeDaraja) (Service, *fakeSettler, *fakePublisher) {
	t.Helper()
	settler := &fakeSettler{}
	publisher := &fakePublisher{}
	svc, err := NewService(
		NewRepository(db),
		daraja,
		settler,
		orderStoreDB{db: db},
		gormTxRunner{db: db},
		publisher,
		nil,
	)
	require.NoError(t, err)
	return svc, settler, publisher
}

func seedOrder(t *testing.T, db *gorm.DB, total string) models.Order {
	t.Helper()
	order := models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-" + uuid.NewString()[:8],
		CustomerID:      uuid.New(),
		Status:          enums.OrderStatusPending,
		ShippingAddress: types.Address{Street: "1 Moi Ave", City: "Nairobi", State: "Nairobi", PostalCode: "00100", Country: "KE"},
		BillingAddress:  types.Address{Street: "1 Moi Ave", City: "Nairobi", State: "Nairobi", PostalCode: "00100", Country: "KE"},
		PaymentMethod:   enums.PaymentMethodMpesa,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentCurrency: "KES",
		Subtotal:        decimal.RequireFromString(total),
		Tax:             decimal.Zero,
		ShippingCost:    decimal.Zero,
		Total:           decimal.RequireFromString(total),
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "0712345678", want: "254712345678"},
		{in: "0112345678", want: "254112345678"},
		{in: "+254 712 345 678", want: "254712345678"},
		{in: "254712345678", want: "254712345678"},
		{in: "712345678", want: "254712345678"},
		{in: "0712-345-678", want: "254712345678"},
		{in: "5551234", wantErr: true},
		{in: "07123", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestInitiateRejectsOverLimitBeforePersisting(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newTestService(t, db, &fakeDaraja{})
	order := seedOrder(t, db, "71000.00")

	_, err := svc.InitiateSTKPush(context.Background(), InitiateInput{
		OrderID:     &order.ID,
		PhoneNumber: "0712345678",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	var count int64
	require.NoError(t, db.Model(&models.MpesaTransaction{}).Count(&count).Error)
	assert.Zero(t, count, "validation failures must not create rows")
}

func TestInitiateRejectsPaidOrder(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newTestService(t, db, &fakeDaraja{})
	order := seedOrder(t, db, "500.00")
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("payment_status", enums.PaymentStatusCompleted).Error)

	_, err := svc.InitiateSTKPush(context.Background(), InitiateInput{
		OrderID:     &order.ID,
		PhoneNumber: "0712345678",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestInitiateAcceptedRecordsIdentifiers(t *testing.T) {
	db := newTestDB(t)
	daraja := &fakeDaraja{pushResp: &STKPushResponse{
		MerchantRequestID:   "merchant-1",
		CheckoutRequestID:   "ws_CO_TEST_1",
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Enter your M-PESA PIN",
		Raw:                 `{"ResponseCode":"0"}`,
	}}
	svc, _, publisher := newTestService(t, db, daraja)
	order := seedOrder(t, db, "2500.00")

	result, err := svc.InitiateSTKPush(context.Background(), InitiateInput{
		OrderID:     &order.ID,
		PhoneNumber: "0712345678",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.CheckoutRequestID)
	assert.Equal(t, "ws_CO_TEST_1", *result.CheckoutRequestID)

	require.Len(t, daraja.pushes, 1)
	assert.Equal(t, "254712345678", daraja.pushes[0].PhoneNumber)
	assert.Equal(t, 2500, daraja.pushes[0].Amount)

	txn := result.Transaction
	require.NotNil(t, txn.CheckoutRequestID)
	assert.Equal(t, "ws_CO_TEST_1", *txn.CheckoutRequestID)
	assert.Equal(t, enums.MpesaStatusPending, txn.Status)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, enums.EventPaymentInitiated, publisher.events[0].EventType)
}

func TestInitiateStandaloneAmount(t *testing.T) {
	db := newTestDB(t)
	daraja := &fakeDaraja{pushResp: &STKPushResponse{
		MerchantRequestID:   "merchant-2",
		CheckoutRequestID:   "ws_CO_TEST_2",
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		Raw:                 `{"ResponseCode":"0"}`,
	}}
	svc, _, publisher := newTestService(t, db, daraja)

	result, err := svc.InitiateSTKPush(context.Background(), InitiateInput{
		Amount:      decimal.NewFromInt(500),
		PhoneNumber: "0712345678",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, daraja.pushes, 1)
	assert.Equal(t, 500, daraja.pushes[0].Amount)
	assert.Equal(t, "AFYAKART", daraja.pushes[0].AccountReference)

	txn := result.Transaction
	assert.Nil(t, txn.OrderID)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(500)))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, txn.ID, publisher.events[0].AggregateID)
	assert.Nil(t, publisher.events[0].Actor)
}

func TestInitiateStandaloneRequiresPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	daraja := &fakeDaraja{}
	svc, _, _ := newTestService(t, db, daraja)

	_, err := svc.InitiateSTKPush(context.Background(), InitiateInput{
		PhoneNumber: "0712345678",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
	assert.Empty(t, daraja.pushes)
}

func TestInitiateRejectedMarksFailed(t *testing.T) {
	db := newTestDB(t)
	daraja := &fakeDaraja{pushResp: &STKPushResponse{
		ResponseCode:        "1",
		ResponseDescription: "Invalid Amount",
	}}
	svc, _, publisher := newTestService(t, db, daraja)
	order := seedOrder(t, db, "500.00")

	result, err := svc.InitiateSTKPush(context.Background(), InitiateInput{
		OrderID:     &order.ID,
		PhoneNumber: "0712345678",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Invalid Amount", result.Message)
	assert.Equal(t, enums.MpesaStatusFailed, result.Transaction.Status)
	assert.Empty(t, publisher.events)
}

func seedPendingPush(t *testing.T, db *gorm.DB, orderID uuid.UUID, checkoutID string) models.MpesaTransaction {
	t.Helper()
	txn := models.MpesaTransaction{
		ID:                uuid.New(),
		CheckoutRequestID: &checkoutID,
		PhoneNumber:       "254712345678",
		Amount:            decimal.RequireFromString("2500.00"),
		Status:            enums.MpesaStatusPending,
		OrderID:           &orderID,
	}
	require.NoError(t, db.Create(&txn).Error)
	return txn
}

func successCallback(checkoutID, receipt string) []byte {
	return []byte(fmt.Sprintf(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "merchant-1",
				"CheckoutRequestID": %q,
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 2500.00},
						{"Name": "MpesaReceiptNumber", "Value": %q},
						{"Name": "TransactionDate", "Value": 20260829143000},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`, checkoutID, receipt))
}

func failureCallback(checkoutID string, code int, desc string) []byte {
	return []byte(fmt.Sprintf(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "merchant-1",
				"CheckoutRequestID": %q,
				"ResultCode": %d,
				"ResultDesc": %q
			}
		}
	}`, checkoutID, code, desc))
}

func TestProcessCallbackSuccessSettlesOrder(t *testing.T) {
	db := newTestDB(t)
	svc, settler, _ := newTestService(t, db, &fakeDaraja{})
	order := seedOrder(t, db, "2500.00")
	seedPendingPush(t, db, order.ID, "ws_CO_TEST_1")

	require.NoError(t, svc.ProcessCallback(context.Background(), successCallback("ws_CO_TEST_1", "QLH7XR12AB")))

	var txn models.MpesaTransaction
	require.NoError(t, db.First(&txn, "checkout_request_id = ?", "ws_CO_TEST_1").Error)
	assert.Equal(t, enums.MpesaStatusSuccess, txn.Status)
	require.NotNil(t, txn.MpesaReceiptNumber)
	assert.Equal(t, "QLH7XR12AB", *txn.MpesaReceiptNumber)
	require.NotNil(t, txn.TransactionDate)

	require.Len(t, settler.settled, 1)
	assert.Equal(t, order.ID, settler.settled[0].OrderID)
	assert.Equal(t, "QLH7XR12AB", settler.settled[0].TransactionID)
	assert.True(t, settler.settled[0].Amount.Equal(decimal.RequireFromString("2500.00")))

	var callback models.MpesaCallback
	require.NoError(t, db.First(&callback, "checkout_request_id = ?", "ws_CO_TEST_1").Error)
	assert.True(t, callback.Processed)
	assert.Nil(t, callback.ProcessingError)
}

func TestProcessCallbackRedeliveryIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc, settler, _ := newTestService(t, db, &fakeDaraja{})
	order := seedOrder(t, db, "2500.00")
	seedPendingPush(t, db, order.ID, "ws_CO_TEST_1")

	payload := successCallback("ws_CO_TEST_1", "QLH7XR12AB")
	require.NoError(t, svc.ProcessCallback(context.Background(), payload))
	require.NoError(t, svc.ProcessCallback(context.Background(), payload))

	var callbackCount int64
	require.NoError(t, db.Model(&models.MpesaCallback{}).Count(&callbackCount).Error)
	assert.Equal(t, int64(2), callbackCount, "every delivery is stored")

	assert.Len(t, settler.settled, 1, "side effects run once")
}

func TestProcessCallbackUnmatchedRecordsError(t *testing.T) {
	db := newTestDB(t)
	svc, settler, _ := newTestService(t, db, &fakeDaraja{})

	require.NoError(t, svc.ProcessCallback(context.Background(), successCallback("ws_CO_UNKNOWN", "QLH7XR12AB")))

	var callback models.MpesaCallback
	require.NoError(t, db.First(&callback, "checkout_request_id = ?", "ws_CO_UNKNOWN").Error)
	assert.False(t, callback.Processed)
	require.NotNil(t, callback.ProcessingError)
	assert.Equal(t, "Transaction not found", *callback.ProcessingError)
	assert.Empty(t, settler.settled)
}

func TestProcessCallbackUnparseableStillRetained(t *testing.T) {
	db := newTestDB(t)
	svc, settler, _ := newTestService(t, db, &fakeDaraja{})

	raw := []byte(`{"Body": truncated`)
	err := svc.ProcessCallback(context.Background(), raw)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	var callbacks []models.MpesaCallback
	require.NoError(t, db.Find(&callbacks).Error)
	require.Len(t, callbacks, 1)
	assert.Equal(t, string(raw), callbacks[0].CallbackData)
	assert.False(t, callbacks[0].Processed)
	require.NotNil(t, callbacks[0].ProcessingError)
	assert.Equal(t, "unparseable payload", *callbacks[0].ProcessingError)
	assert.Empty(t, settler.settled)
}

func TestProcessCallbackMissingCheckoutIDStillRetained(t *testing.T) {
	db := newTestDB(t)
	svc, settler, _ := newTestService(t, db, &fakeDaraja{})

	raw := []byte(`{"Body":{"stkCallback":{"MerchantRequestID":"m-1","ResultCode":0,"ResultDesc":"ok"}}}`)
	err := svc.ProcessCallback(context.Background(), raw)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	var callbacks []models.MpesaCallback
	require.NoError(t, db.Find(&callbacks).Error)
	require.Len(t, callbacks, 1)
	require.NotNil(t, callbacks[0].ProcessingError)
	assert.Equal(t, "missing CheckoutRequestID", *callbacks[0].ProcessingError)
	assert.Empty(t, settler.settled)
}

func TestProcessCallbackCancelledByUser(t *testing.T) {
	db := newTestDB(t)
	svc, settler, _ := newTestService(t, db, &fakeDaraja{})
	order := seedOrder(t, db, "2500.00")
	seedPendingPush(t, db, order.ID, "ws_CO_TEST_1")

	require.NoError(t, svc.ProcessCallback(context.Background(),
		failureCallback("ws_CO_TEST_1", 1032, "Request cancelled by user")))

	var txn models.MpesaTransaction
	require.NoError(t, db.First(&txn, "checkout_request_id = ?", "ws_CO_TEST_1").Error)
	assert.Equal(t, enums.MpesaStatusCancelled, txn.Status)
	require.NotNil(t, txn.ResultCode)
	assert.Equal(t, 1032, *txn.ResultCode)

	assert.Empty(t, settler.settled)
	require.Len(t, settler.failed, 1)
	assert.Equal(t, order.ID, settler.failed[0].OrderID)
}

func TestQueryStatusReconcilesTimeout(t *testing.T) {
	db := newTestDB(t)
	daraja := &fakeDaraja{queryResp: &QueryResponse{
		ResponseCode: "0",
		ResultCode:   "1037",
		ResultDesc:   "DS timeout user cannot be reached",
	}}
	svc, settler, _ := newTestService(t, db, daraja)
	order := seedOrder(t, db, "2500.00")
	seedPendingPush(t, db, order.ID, "ws_CO_TEST_1")

	txn, err := svc.QueryTransactionStatus(context.Background(), "ws_CO_TEST_1")
	require.NoError(t, err)
	assert.Equal(t, enums.MpesaStatusTimeout, txn.Status)

	// timeout keeps the order payable
	assert.Empty(t, settler.settled)
	assert.Empty(t, settler.failed)
}

func TestQueryStatusSettlesMissedCallback(t *testing.T) {
	db := newTestDB(t)
	daraja := &fakeDaraja{queryResp: &QueryResponse{
		ResponseCode: "0",
		ResultCode:   "0",
		ResultDesc:   "The service request is processed successfully.",
	}}
	svc, settler, _ := newTestService(t, db, daraja)
	order := seedOrder(t, db, "2500.00")
	seedPendingPush(t, db, order.ID, "ws_CO_TEST_1")

	txn, err := svc.QueryTransactionStatus(context.Background(), "ws_CO_TEST_1")
	require.NoError(t, err)
	assert.Equal(t, enums.MpesaStatusSuccess, txn.Status)
	require.Len(t, settler.settled, 1)
	assert.Equal(t, order.ID, settler.settled[0].OrderID)
}
