package handler

import (
	"net/http"

	"github.com/xenking/canteen-preorder/internal/domain/auth"
	"github.com/xenking/canteen-preorder/internal/domain/product"
	"github.com/xenking/canteen-preorder/internal/domain/stall"
)

type stallDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	FloorNumber   int      `json:"floor_number"`
	OpeningTime   string   `json:"opening_time,omitempty"`
	ClosingTime   string   `json:"closing_time,omitempty"`
	OperatingDays []string `json:"operating_days,omitempty"`
	IsRegistered  bool     `json:"is_registered"`
	IsActive      bool     `json:"is_active"`
}

type productDTO struct {
	ID          string `json:"id"`
	StallID     string `json:"stall_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	PrepMinutes int    `json:"prep_minutes,omitempty"`
	Available   bool   `json:"available"`
	ImageURL    string `json:"image_url,omitempty"`
}

func toStallDTO(s stall.Stall) stallDTO {
	return stallDTO{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		FloorNumber:   s.FloorNumber,
		OpeningTime:   s.OpeningTime,
		ClosingTime:   s.ClosingTime,
		OperatingDays: s.OperatingDays,
		IsRegistered:  s.IsRegistered,
		IsActive:      s.IsActive,
	}
}

// getOwnStall returns the stall registered under the caller's owner email,
// including its registration state.
func (h *Handler) getOwnStall(w http.ResponseWriter, r *http.Request) {
	p, ok := requireRole(w, r, auth.RoleStall)
	if !ok {
		return
	}

	s, err := h.stalls.GetByOwner(r.Context(), p.Email)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toStallDTO(*s))
}

// registerStall completes registration for the caller's stall. Together
// with the active flag this is what makes a stall orderable.
func (h *Handler) registerStall(w http.ResponseWriter, r *http.Request) {
	p, ok := requireRole(w, r, auth.RoleStall)
	if !ok {
		return
	}

	s, err := h.stalls.GetByOwner(r.Context(), p.Email)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if !s.IsRegistered {
		if err := h.stalls.SetRegistered(r.Context(), s.ID, true); err != nil {
			h.respondDomainError(w, r, err)
			return
		}
		s.IsRegistered = true
	}
	respondJSON(w, http.StatusOK, toStallDTO(*s))
}

func toProductDTO(p product.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		StallID:     p.StallID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Category:    p.Category,
		PrepMinutes: p.PrepMinutes,
		Available:   p.Available,
		ImageURL:    p.ImageURL,
	}
}

func (h *Handler) listStalls(w http.ResponseWriter, r *http.Request) {
	stalls, err := h.stalls.ListActive(r.Context())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	out := make([]stallDTO, len(stalls))
	for i, s := range stalls {
		out[i] = toStallDTO(s)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) listStallProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListByStall(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductDTOs(products))
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListAvailable(r.Context())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductDTOs(products))
}

func toProductDTOs(products []product.Product) []productDTO {
	out := make([]productDTO, len(products))
	for i, p := range products {
		out[i] = toProductDTO(p)
	}
	return out
}
