package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/xenking/canteen-preorder/internal/domain/auth"
	"github.com/xenking/canteen-preorder/internal/domain/cart"
	"github.com/xenking/canteen-preorder/internal/domain/order"
)

type orderItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type orderDTO struct {
	ID            string         `json:"id"`
	StallID       string         `json:"stall_id"`
	Items         []orderItemDTO `json:"items,omitempty"`
	TotalAmount   string         `json:"total_amount"`
	PickupSlot    time.Time      `json:"pickup_time_slot"`
	Token         string         `json:"order_token"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

type submitOrderRequest struct {
	StallID    string    `json:"stall_id"`
	PickupSlot time.Time `json:"pickup_time_slot"`
	Notes      string    `json:"notes"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

func toOrderDTO(o *order.Order) orderDTO {
	dto := orderDTO{
		ID:            o.ID,
		StallID:       o.StallID,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		PickupSlot:    o.PickupSlot,
		Token:         o.Token,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		dto.Items = append(dto.Items, orderItemDTO{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Subtotal:  it.Subtotal().StringFixed(2),
		})
	}
	return dto
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := requireRole(w, r, auth.RoleStudent)
	if !ok {
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StallID == "" || req.PickupSlot.IsZero() {
		respondError(w, http.StatusBadRequest, "stall_id and pickup_time_slot are required")
		return
	}

	var created *order.Order
	err := h.carts.With(p.ID, func(c *cart.Cart) error {
		o, err := h.orderSvc.Submit(r.Context(), order.SubmitRequest{
			Cart:       c,
			StudentID:  p.SubjectID,
			StallID:    req.StallID,
			PickupSlot: req.PickupSlot,
			Notes:      req.Notes,
		})
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderDTO(created))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var (
		orders []order.Order
		err    error
	)
	switch p.Role {
	case auth.RoleStudent:
		orders, err = h.orders.ListByStudent(r.Context(), p.SubjectID)
	case auth.RoleStall:
		orders, err = h.orders.ListByStall(r.Context(), p.SubjectID)
	default:
		respondError(w, http.StatusForbidden, "unknown account type")
		return
	}
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	out := make([]orderDTO, len(orders))
	for i := range orders {
		out[i] = toOrderDTO(&orders[i])
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if !h.canSee(w, r, o) {
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(o))
}

func (h *Handler) getOrderByToken(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if !h.canSee(w, r, o) {
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(o))
}

// transitionOrder moves an order through its lifecycle. Stall owners drive
// the happy path; students may only cancel their own order.
func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	next := order.Status(req.Status)

	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	switch p.Role {
	case auth.RoleStall:
		if o.StallID != p.SubjectID {
			respondError(w, http.StatusForbidden, "order belongs to another stall")
			return
		}
	case auth.RoleStudent:
		if o.StudentID != p.SubjectID || next != order.StatusCancelled {
			respondError(w, http.StatusForbidden, "students may only cancel their own orders")
			return
		}
	}

	updated, err := h.orderSvc.Transition(r.Context(), o.ID, next)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(updated))
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := requireRole(w, r, auth.RoleStall)
	if !ok {
		return
	}

	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if o.StallID != p.SubjectID {
		respondError(w, http.StatusForbidden, "order belongs to another stall")
		return
	}

	updated, err := h.orderSvc.MarkPaid(r.Context(), o.ID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(updated))
}

// canSee enforces that only the ordering student or the fulfilling stall
// can read an order.
func (h *Handler) canSee(w http.ResponseWriter, r *http.Request, o *order.Order) bool {
	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return false
	}
	if p.Role == auth.RoleStudent && o.StudentID != p.SubjectID {
		respondError(w, http.StatusForbidden, "not your order")
		return false
	}
	if p.Role == auth.RoleStall && o.StallID != p.SubjectID {
		respondError(w, http.StatusForbidden, "order belongs to another stall")
		return false
	}
	return true
}
