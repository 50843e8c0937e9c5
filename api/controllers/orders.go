package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omoshop/shop-backend/api/responses"
	"github.com/omoshop/shop-backend/api/validators"
	"github.com/omoshop/shop-backend/internal/checkout"
	internalorders "github.com/omoshop/shop-backend/internal/orders"
	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
	"github.com/omoshop/shop-backend/pkg/logger"
	"github.com/omoshop/shop-backend/pkg/pagination"
)

// PlaceOrder converts the caller's cart into an order. Inventory is
// decremented and the cart cleared as part of the same workflow.
func PlaceOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := validators.ParseQueryUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressID, err := validators.ParseOptionalQueryUUID(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithUserID(ctx, userID.String())
		}

		var addressRef *uuid.UUID
		if addressID != uuid.Nil {
			id := addressID
			addressRef = &id
		}

		order, err := svc.PlaceOrder(ctx, userID, addressRef)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// the workflow returns the persisted order with its items attached
		responses.WriteSuccess(w, "Order placed successfully!", internalorders.ToDTO(order))
	}
}

// GetOrder returns a single order projection by ID.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "Order found!", order)
	}
}

// UserOrders returns the caller's order history, newest first, keyset paged.
func UserOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := validators.ParsePathUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListUserOrders(r.Context(), userID, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "", list)
	}
}
