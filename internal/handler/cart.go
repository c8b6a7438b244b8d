package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/xenking/canteen-preorder/internal/domain/auth"
	"github.com/xenking/canteen-preorder/internal/domain/cart"
)

type cartLineDTO struct {
	Product  productDTO `json:"product"`
	Quantity int        `json:"quantity"`
	Subtotal string     `json:"subtotal"`
}

type cartDTO struct {
	Lines []cartLineDTO `json:"lines"`
	Total string        `json:"total"`
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func toCartDTO(c *cart.Cart) cartDTO {
	lines := c.Lines()
	dto := cartDTO{
		Lines: make([]cartLineDTO, len(lines)),
		Total: c.Total().StringFixed(2),
	}
	for i, l := range lines {
		dto.Lines[i] = cartLineDTO{
			Product:  toProductDTO(l.Product),
			Quantity: l.Quantity,
			Subtotal: l.Subtotal().StringFixed(2),
		}
	}
	return dto
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	p, ok := requireRole(w, r, auth.RoleStudent)
	if !ok {
		return
	}

	var dto cartDTO
	_ = h.carts.With(p.ID, func(c *cart.Cart) error {
		dto = toCartDTO(c)
		return nil
	})
	respondJSON(w, http.StatusOK, dto)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	p, ok := requireRole(w, r, auth.RoleStudent)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	prod, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	var dto cartDTO
	err = h.carts.With(p.ID, func(c *cart.Cart) error {
		if err := c.Add(*prod, req.Quantity); err != nil {
			return err
		}
		dto = toCartDTO(c)
		return nil
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	p, ok := requireRole(w, r, auth.RoleStudent)
	if !ok {
		return
	}

	qty := 1
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid quantity")
			return
		}
		qty = parsed
	}

	var dto cartDTO
	err := h.carts.With(p.ID, func(c *cart.Cart) error {
		if err := c.Remove(r.PathValue("id"), qty); err != nil {
			return err
		}
		dto = toCartDTO(c)
		return nil
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto)
}
