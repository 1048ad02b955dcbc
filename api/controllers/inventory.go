package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/afyakart/storefront-backend/api/responses"
	"github.com/afyakart/storefront-backend/api/validators"
	"github.com/afyakart/storefront-backend/internal/inventory"
	"github.com/afyakart/storefront-backend/pkg/enums"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
	"github.com/afyakart/storefront-backend/pkg/logger"
	"github.com/afyakart/storefront-backend/pkg/pagination"
)

type stockAdjustmentRequest struct {
	Movement string           `json:"movement" validate:"required"`
	Quantity int              `json:"quantity" validate:"required"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
	// AllowNegative permits a correction that leaves stock below zero.
	AllowNegative bool `json:"allow_negative,omitempty"`
}

// StaffAdjustStock records a manual stock movement against a product.
func StaffAdjustStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := customerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req stockAdjustmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movement, err := enums.ParseInventoryMovement(req.Movement)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement"))
			return
		}

		txn, err := svc.Adjust(r.Context(), inventory.ApplyInput{
			ProductID:     productID,
			Movement:      movement,
			Quantity:      req.Quantity,
			RefKind:       enums.InventoryRefKindAdjustment,
			UnitCost:      req.UnitCost,
			Notes:         req.Notes,
			PerformedByID: &actorID,
			AllowNegative: req.AllowNegative,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// StaffListStockMovements returns the ledger for a product, newest first.
func StaffListStockMovements(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txns, err := svc.ListByProduct(r.Context(), productID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txns)
	}
}
