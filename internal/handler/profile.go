package handler

import (
	"net/http"

	"github.com/xenking/canteen-preorder/internal/domain/auth"
	"github.com/xenking/canteen-preorder/internal/domain/student"
)

type profileDTO struct {
	UserID     string `json:"user_id"`
	StudentID  string `json:"student_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
	Year       int    `json:"year,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func toProfileDTO(p *student.Profile) profileDTO {
	return profileDTO{
		UserID:     p.UserID,
		StudentID:  p.StudentID,
		Name:       p.Name,
		Email:      p.Email,
		Department: p.Department,
		Year:       p.Year,
		Phone:      p.Phone,
	}
}

// getProfile returns the calling student's canteen profile.
func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := requireRole(w, r, auth.RoleStudent)
	if !ok {
		return
	}

	profile, err := h.students.GetByUser(r.Context(), p.SubjectID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfileDTO(profile))
}
