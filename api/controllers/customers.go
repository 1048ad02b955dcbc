package controllers

import (
	"net/http"

	"github.com/afyakart/storefront-backend/api/responses"
	"github.com/afyakart/storefront-backend/internal/customers"
	"github.com/afyakart/storefront-backend/pkg/logger"
)

// CustomerProfile returns the authenticated customer's identity record.
func CustomerProfile(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.GetProfile(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}
