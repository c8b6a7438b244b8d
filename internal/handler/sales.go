package handler

import (
	"net/http"
	"strconv"

	"github.com/xenking/canteen-preorder/internal/domain/auth"
)

type reportDTO struct {
	StallID      string `json:"stall_id"`
	Date         string `json:"report_date"`
	TotalOrders  int    `json:"total_orders"`
	TotalRevenue string `json:"total_revenue"`
}

const defaultReportDays = 7

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	p, ok := requireRole(w, r, auth.RoleStall)
	if !ok {
		return
	}

	stallID := r.PathValue("id")
	if stallID != p.SubjectID {
		respondError(w, http.StatusForbidden, "reports belong to another stall")
		return
	}

	days := defaultReportDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = parsed
	}

	reports, err := h.salesAgg.ReportRange(r.Context(), stallID, days)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	out := make([]reportDTO, len(reports))
	for i, rep := range reports {
		out[i] = reportDTO{
			StallID:      rep.StallID,
			Date:         rep.Date.Format("2006-01-02"),
			TotalOrders:  rep.TotalOrders,
			TotalRevenue: rep.TotalRevenue.StringFixed(2),
		}
	}
	respondJSON(w, http.StatusOK, out)
}
