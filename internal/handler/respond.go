package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/canteen-preorder/internal/domain/auth"
	"github.com/xenking/canteen-preorder/internal/domain/cart"
	"github.com/xenking/canteen-preorder/internal/domain/order"
	"github.com/xenking/canteen-preorder/internal/domain/product"
	"github.com/xenking/canteen-preorder/internal/domain/stall"
	"github.com/xenking/canteen-preorder/internal/domain/student"
)

// errorResponse is the uniform error payload of the API.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Code: status, Message: msg})
}

// respondDomainError maps domain errors onto HTTP statuses. Anything not
// recognized is treated as a store failure: logged and surfaced as 503 so
// the caller knows a retry may help.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		mixedErr      *order.MixedStallCartError
		stallErr      *order.StallUnavailableError
		productErr    *order.ProductUnavailableError
		transitionErr *order.IllegalTransitionError
	)

	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &mixedErr),
		errors.As(err, &transitionErr),
		errors.Is(err, order.ErrUnpaid):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &stallErr),
		errors.As(err, &productErr),
		errors.Is(err, cart.ErrProductUnavailable):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, stall.ErrNotFound),
		errors.Is(err, student.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		zctx.From(r.Context()).Error("store failure", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "data store unavailable, try again")
	}
}
