package controllers

import (
	"net/http"
	"strings"

	"github.com/brewcart/brewcart-backend/api/responses"
	"github.com/brewcart/brewcart-backend/api/validators"
	"github.com/brewcart/brewcart-backend/internal/checkout"
	"github.com/brewcart/brewcart-backend/internal/payments"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/logger"
)

// StorefrontCheckout places a guest order. Replays are handled by the idempotency middleware.
func StorefrontCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checkout service"))
			return
		}
		slug, err := storeSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkout.PlaceOrderInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PlaceOrder(r.Context(), slug, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

// StorefrontTrackOrder shows an order to a customer who knows its id and phone number.
func StorefrontTrackOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checkout service"))
			return
		}
		slug, err := storeSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		phone := strings.TrimSpace(r.URL.Query().Get("phone"))
		if phone == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "phone is required"))
			return
		}

		tracking, err := svc.TrackOrder(r.Context(), slug, orderID, phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tracking)
	}
}

// StorefrontPaymentMethods lists the methods a store accepts at checkout.
func StorefrontPaymentMethods(stores activeStoreResolver, svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stores == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payment methods"))
			return
		}
		slug, err := storeSlug(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := stores.ResolveActive(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		options, err := svc.ListAvailable(r.Context(), store.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}
