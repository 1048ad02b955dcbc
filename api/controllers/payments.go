package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/afyakart/storefront-backend/api/responses"
	"github.com/afyakart/storefront-backend/api/validators"
	"github.com/afyakart/storefront-backend/internal/mpesa"
	"github.com/afyakart/storefront-backend/internal/orders"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
	"github.com/afyakart/storefront-backend/pkg/logger"
	"github.com/afyakart/storefront-backend/pkg/metrics"
)

const callbackBodyLimit = 1 << 16

type stkPushRequest struct {
	OrderID          *uuid.UUID       `json:"order_id,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	PhoneNumber      string           `json:"phone_number" validate:"required"`
	AccountReference *string          `json:"account_reference,omitempty"`
	TransactionDesc  *string          `json:"transaction_desc,omitempty"`
}

// MpesaSTKPush asks Daraja to prompt the customer's handset for payment.
func MpesaSTKPush(svc mpesa.Service, ordersSvc orders.Service, mets *metrics.StorefrontMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req stkPushRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.OrderID == nil && req.Amount == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order_id or amount is required"))
			return
		}
		// the order must belong to the caller before any money moves
		if req.OrderID != nil {
			if _, err := ordersSvc.Get(r.Context(), customerID, *req.OrderID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := mpesa.InitiateInput{
			OrderID:          req.OrderID,
			PhoneNumber:      req.PhoneNumber,
			AccountReference: req.AccountReference,
			TransactionDesc:  req.TransactionDesc,
		}
		if req.Amount != nil {
			input.Amount = *req.Amount
		}
		result, err := svc.InitiateSTKPush(r.Context(), input)
		if err != nil {
			mets.IncSTKPush("failed")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mets.IncSTKPush("accepted")
		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// MpesaCallback receives asynchronous payment results from Daraja. The
// envelope below is always returned, even when processing fails: any non-ack
// response makes Daraja redeliver, and the failure is already recorded on the
// callback row for later inspection.
func MpesaCallback(svc mpesa.Service, mets *metrics.StorefrontMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, callbackBodyLimit))
		if err != nil {
			mets.IncCallback("failed")
			if logg != nil {
				logg.Error(r.Context(), "mpesa callback read failed", err)
			}
			responses.WriteSuccess(w, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
			return
		}
		if err := svc.ProcessCallback(r.Context(), payload); err != nil {
			mets.IncCallback("failed")
			if logg != nil {
				logg.Error(r.Context(), "mpesa callback processing failed", err)
			}
		} else {
			mets.IncCallback("processed")
		}
		responses.WriteSuccess(w, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
	}
}

// MpesaQueryStatus polls Daraja for a push whose callback has not arrived.
func MpesaQueryStatus(svc mpesa.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := customerIDFromRequest(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		checkoutRequestID := strings.TrimSpace(r.URL.Query().Get("checkout_request_id"))
		if checkoutRequestID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "checkout_request_id is required"))
			return
		}
		txn, err := svc.QueryTransactionStatus(r.Context(), checkoutRequestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

// MpesaTransactionsByOrder lists payment attempts made against an order.
func MpesaTransactionsByOrder(svc mpesa.Service, ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := ordersSvc.Get(r.Context(), customerID, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txns, err := svc.ListByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txns)
	}
}
