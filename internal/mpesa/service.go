package mpesa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/afyakart/storefront-backend/internal/orders"
	"github.com/afyakart/storefront-backend/pkg/db/models"
	"github.com/afyakart/storefront-backend/pkg/enums"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
	"github.com/afyakart/storefront-backend/pkg/logger"
	"github.com/afyakart/storefront-backend/pkg/outbox"
	"github.com/afyakart/storefront-backend/pkg/types"
)

// maxTransactionAmount is the Safaricom per-transaction ceiling in KES.
var maxTransactionAmount = decimal.NewFromInt(70000)

const (
	resultCodeSuccess   = 0
	resultCodeCancelled = 1032
	resultCodeTimeout   = 1037
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type darajaAPI interface {
	STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResponse, error)
}

type orderSettler interface {
	Settle(ctx context.Context, tx *gorm.DB, input orders.SettleInput) error
	FailPayment(ctx context.Context, tx *gorm.DB, input orders.SettleInput) error
}

type orderStore interface {
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InitiateInput starts an STK push against an order's balance.
// InitiateInput starts a push either against an order (amount taken from the
// order total) or as a standalone charge for the given amount.
type InitiateInput struct {
	OrderID          *uuid.UUID
	Amount           decimal.Decimal
	PhoneNumber      string
	AccountReference *string
	TransactionDesc  *string
}

// InitiateResult reports the outcome of the push request.
type InitiateResult struct {
	Transaction       *models.MpesaTransaction `json:"transaction"`
	Success           bool                     `json:"success"`
	Message           string                   `json:"message"`
	CheckoutRequestID *string                  `json:"checkout_request_id,omitempty"`
	CustomerMessage   *string                  `json:"customer_message,omitempty"`
}

// PaymentInitiatedEvent is emitted when Daraja accepts a push.
type PaymentInitiatedEvent struct {
	TransactionID     uuid.UUID       `json:"transaction_id"`
	OrderID           *uuid.UUID      `json:"order_id,omitempty"`
	CheckoutRequestID string          `json:"checkout_request_id"`
	PhoneNumber       string          `json:"phone_number"`
	Amount            decimal.Decimal `json:"amount"`
}

// Service drives the STK push lifecycle: initiation, asynchronous callback
// reconciliation and the synchronous status poll fallback.
type Service interface {
	InitiateSTKPush(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	ProcessCallback(ctx context.Context, payload []byte) error
	QueryTransactionStatus(ctx context.Context, checkoutRequestID string) (*models.MpesaTransaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.MpesaTransaction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.MpesaTransaction, error)
}

type service struct {
	repo   *Repository
	client darajaAPI
	orders orderSettler
	store  orderStore
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds the payment gateway adapter.
func NewService(
	repo *Repository,
	client darajaAPI,
	settler orderSettler,
	store orderStore,
	tx txRunner,
	publisher outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("mpesa repository required")
	}
	if client == nil {
		return nil, fmt.Errorf("daraja client required")
	}
	if settler == nil {
		return nil, fmt.Errorf("order settler required")
	}
	if store == nil {
		return nil, fmt.Errorf("order store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		client: client,
		orders: settler,
		store:  store,
		tx:     tx,
		outbox: publisher,
		logg:   logg,
	}, nil
}

// InitiateSTKPush validates everything locally, persists a pending record,
// then calls Daraja. The record is committed before the network call so a
// transport failure still leaves an auditable pending row.
func (s *service) InitiateSTKPush(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	phone, err := NormalizePhone(input.PhoneNumber)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	amount := input.Amount
	accountReference := "AFYAKART"
	transactionDesc := "AfyaKart payment"
	if input.OrderID != nil {
		order, err = s.store.FindOrder(ctx, *input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.PaymentStatus == enums.PaymentStatusCompleted {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		amount = order.Total
		accountReference = "ORDER-" + order.OrderNumber
		transactionDesc = "Payment for order " + order.OrderNumber
	}

	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than 0")
	}
	if amount.GreaterThan(maxTransactionAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds the M-Pesa transaction limit")
	}

	if input.AccountReference != nil && strings.TrimSpace(*input.AccountReference) != "" {
		accountReference = strings.TrimSpace(*input.AccountReference)
	}
	if input.TransactionDesc != nil && strings.TrimSpace(*input.TransactionDesc) != "" {
		transactionDesc = strings.TrimSpace(*input.TransactionDesc)
	}

	txn := models.MpesaTransaction{
		ID:               uuid.New(),
		PhoneNumber:      phone,
		Amount:           amount,
		Status:           enums.MpesaStatusPending,
		OrderID:          input.OrderID,
		AccountReference: &accountReference,
		TransactionDesc:  &transactionDesc,
	}
	if err := s.repo.CreateTransaction(ctx, &txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create mpesa transaction")
	}

	resp, err := s.client.STKPush(ctx, STKPushRequest{
		PhoneNumber:      phone,
		Amount:           int(amount.Round(0).IntPart()),
		AccountReference: accountReference,
		TransactionDesc:  transactionDesc,
	})
	if err != nil {
		// transport failure: the row stays pending for later reconciliation
		return nil, err
	}

	if resp.Accepted() {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if uerr := repo.UpdateTransaction(ctx, txn.ID, map[string]any{
				"merchant_request_id": resp.MerchantRequestID,
				"checkout_request_id": resp.CheckoutRequestID,
				"api_response":        resp.Raw,
			}); uerr != nil {
				return uerr
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventPaymentInitiated,
				AggregateType: enums.AggregatePayment,
				AggregateID:   txn.ID,
				Version:       1,
				Data: PaymentInitiatedEvent{
					TransactionID:     txn.ID,
					OrderID:           input.OrderID,
					CheckoutRequestID: resp.CheckoutRequestID,
					PhoneNumber:       phone,
					Amount:            amount,
				},
			}
			if order != nil {
				event.AggregateID = order.ID
				event.Actor = &outbox.ActorRef{CustomerID: order.CustomerID, Role: "customer"}
			}
			return s.outbox.Emit(ctx, tx, event)
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stk push acceptance")
		}
	} else {
		message := resp.ResponseDescription
		if message == "" {
			message = "STK push failed"
		}
		if uerr := s.repo.UpdateTransaction(ctx, txn.ID, map[string]any{
			"status":       enums.MpesaStatusFailed,
			"result_desc":  message,
			"api_response": resp.Raw,
		}); uerr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, uerr, "record stk push rejection")
		}
	}

	updated, err := s.repo.FindTransaction(ctx, txn.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload mpesa transaction")
	}

	result := &InitiateResult{Transaction: updated, Success: resp.Accepted()}
	if resp.Accepted() {
		result.Message = "STK push initiated successfully"
		result.CheckoutRequestID = &resp.CheckoutRequestID
		if resp.CustomerMessage != "" {
			result.CustomerMessage = &resp.CustomerMessage
		}
	} else {
		result.Message = resp.ResponseDescription
		if result.Message == "" {
			result.Message = "STK push failed"
		}
	}
	return result, nil
}

// callbackEnvelope mirrors Daraja's STK callback body.
type callbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ProcessCallback reconciles an asynchronous delivery from Daraja. The raw
// payload is committed first in its own transaction so no delivery is ever
// lost, even one that fails to parse. Matching and settlement then run in a
// second transaction under the transaction row lock. Redeliveries of settled
// pushes are acknowledged without re-applying side effects.
func (s *service) ProcessCallback(ctx context.Context, payload []byte) error {
	record := models.MpesaCallback{
		ID:           uuid.New(),
		CallbackData: string(payload),
	}

	var envelope callbackEnvelope
	parseErr := json.Unmarshal(payload, &envelope)
	stk := envelope.Body.StkCallback
	if parseErr != nil {
		record.ProcessingError = ptr("unparseable payload")
	} else {
		resultCode := stk.ResultCode
		record.MerchantRequestID = &stk.MerchantRequestID
		record.CheckoutRequestID = &stk.CheckoutRequestID
		record.ResultCode = &resultCode
		record.ResultDesc = &stk.ResultDesc
		if stk.CheckoutRequestID == "" {
			record.ProcessingError = ptr("missing CheckoutRequestID")
		}
	}

	if err := s.repo.CreateCallback(ctx, &record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store callback")
	}
	if parseErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "parse callback payload")
	}
	if stk.CheckoutRequestID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback missing CheckoutRequestID")
	}

	meta := extractMetadata(stk.CallbackMetadata.Item)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		txn, err := repo.FindTransactionByCheckoutID(ctx, stk.CheckoutRequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repo.UpdateCallback(ctx, record.ID, map[string]any{
					"processing_error": "Transaction not found",
				})
			}
			return err
		}

		if txn.Status.IsTerminal() {
			// redelivery of an already reconciled push
			return repo.UpdateCallback(ctx, record.ID, map[string]any{"processed": true})
		}

		status := statusForResultCode(stk.ResultCode)
		updates := map[string]any{
			"status":       status,
			"result_code":  stk.ResultCode,
			"result_desc":  stk.ResultDesc,
			"api_response": string(payload),
		}
		callbackUpdates := map[string]any{"processed": true}

		if status == enums.MpesaStatusSuccess {
			if meta.receipt != nil {
				updates["mpesa_receipt_number"] = *meta.receipt
				callbackUpdates["mpesa_receipt_number"] = *meta.receipt
			}
			if meta.transactionDate != nil {
				updates["transaction_date"] = *meta.transactionDate
				callbackUpdates["transaction_date"] = *meta.transactionDate
			}
			if meta.phone != nil {
				callbackUpdates["phone_number"] = *meta.phone
			}
			if meta.amount != nil {
				callbackUpdates["amount"] = *meta.amount
			}
		}

		if err := repo.UpdateTransaction(ctx, txn.ID, updates); err != nil {
			return err
		}
		if err := repo.UpdateCallback(ctx, record.ID, callbackUpdates); err != nil {
			return err
		}

		if txn.OrderID == nil {
			return nil
		}

		details := types.JSONMap{
			"checkout_request_id": stk.CheckoutRequestID,
			"result_code":         stk.ResultCode,
			"result_desc":         stk.ResultDesc,
		}
		switch status {
		case enums.MpesaStatusSuccess:
			receipt := txn.ID.String()
			if meta.receipt != nil {
				receipt = *meta.receipt
			}
			amount := txn.Amount
			if meta.amount != nil {
				amount = *meta.amount
			}
			paidAt := time.Now()
			if meta.transactionDate != nil {
				paidAt = *meta.transactionDate
			}
			return s.orders.Settle(ctx, tx, orders.SettleInput{
				OrderID:       *txn.OrderID,
				TransactionID: receipt,
				Amount:        amount,
				Method:        enums.PaymentMethodMpesa,
				Details:       &details,
				PaidAt:        paidAt,
			})
		default:
			return s.orders.FailPayment(ctx, tx, orders.SettleInput{
				OrderID:       *txn.OrderID,
				TransactionID: stk.CheckoutRequestID,
				Amount:        txn.Amount,
				Method:        enums.PaymentMethodMpesa,
				Details:       &details,
			})
		}
	})
	if err != nil {
		// keep the raw delivery with the failure reason; the caller still acks
		reason := err.Error()
		_ = s.repo.UpdateCallback(ctx, record.ID, map[string]any{"processing_error": reason})
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile callback")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"checkout_request_id": stk.CheckoutRequestID,
			"result_code":         stk.ResultCode,
		}), "mpesa callback processed")
	}
	return nil
}

// QueryTransactionStatus polls Daraja for pushes whose callback never
// arrived and reconciles the local row the same way a callback would.
func (s *service) QueryTransactionStatus(ctx context.Context, checkoutRequestID string) (*models.MpesaTransaction, error) {
	checkoutRequestID = strings.TrimSpace(checkoutRequestID)
	if checkoutRequestID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout request id is required")
	}

	resp, err := s.client.QueryStatus(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	resultCode, err := strconv.Atoi(strings.TrimSpace(resp.ResultCode))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("unparseable result code %q", resp.ResultCode))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindTransactionByCheckoutID(ctx, checkoutRequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return err
		}
		if txn.Status.IsTerminal() {
			return nil
		}

		status := statusForResultCode(resultCode)
		if err := repo.UpdateTransaction(ctx, txn.ID, map[string]any{
			"status":      status,
			"result_code": resultCode,
			"result_desc": resp.ResultDesc,
		}); err != nil {
			return err
		}

		if txn.OrderID == nil {
			return nil
		}
		details := types.JSONMap{
			"checkout_request_id": checkoutRequestID,
			"result_code":         resultCode,
			"result_desc":         resp.ResultDesc,
			"source":              "status_query",
		}
		switch status {
		case enums.MpesaStatusSuccess:
			return s.orders.Settle(ctx, tx, orders.SettleInput{
				OrderID:       *txn.OrderID,
				TransactionID: checkoutRequestID,
				Amount:        txn.Amount,
				Method:        enums.PaymentMethodMpesa,
				Details:       &details,
			})
		case enums.MpesaStatusFailed:
			return s.orders.FailPayment(ctx, tx, orders.SettleInput{
				OrderID:       *txn.OrderID,
				TransactionID: checkoutRequestID,
				Amount:        txn.Amount,
				Method:        enums.PaymentMethodMpesa,
				Details:       &details,
			})
		default:
			// cancelled and timeout leave the order payment pending for retry
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	txn, err := s.repo.FindTransactionByCheckoutID(ctx, checkoutRequestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload transaction")
	}
	return txn, nil
}

func (s *service) GetTransaction(ctx context.Context, id uuid.UUID) (*models.MpesaTransaction, error) {
	txn, err := s.repo.FindTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return txn, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.MpesaTransaction, error) {
	txns, err := s.repo.ListTransactionsByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}

func statusForResultCode(code int) enums.MpesaStatus {
	switch code {
	case resultCodeSuccess:
		return enums.MpesaStatusSuccess
	case resultCodeCancelled:
		return enums.MpesaStatusCancelled
	case resultCodeTimeout:
		return enums.MpesaStatusTimeout
	default:
		return enums.MpesaStatusFailed
	}
}

type callbackMetadata struct {
	receipt         *string
	transactionDate *time.Time
	phone           *string
	amount          *decimal.Decimal
}

// extractMetadata walks the name/value items Daraja attaches to successful
// callbacks. Values arrive untyped; numbers and strings both occur.
func extractMetadata(items []struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}) callbackMetadata {
	var meta callbackMetadata
	for _, item := range items {
		switch item.Name {
		case "MpesaReceiptNumber":
			if v := rawString(item.Value); v != "" {
				meta.receipt = &v
			}
		case "TransactionDate":
			if v := rawString(item.Value); v != "" {
				if parsed, err := time.ParseInLocation(timestampLayout, v, time.Local); err == nil {
					meta.transactionDate = &parsed
				}
			}
		case "PhoneNumber":
			if v := rawString(item.Value); v != "" {
				meta.phone = &v
			}
		case "Amount":
			if v := rawString(item.Value); v != "" {
				if parsed, err := decimal.NewFromString(v); err == nil {
					meta.amount = &parsed
				}
			}
		}
	}
	return meta
}

// rawString renders a JSON scalar as its string form, trimming quotes and
// insignificant numeric formatting.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}
	return strings.Trim(string(raw), `"`)
}

func ptr[T any](v T) *T {
	return &v
}
