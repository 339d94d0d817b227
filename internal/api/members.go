package api

import (
	"net/http"

	"github.com/erazemk/knjiznica/internal/desk"
	"github.com/erazemk/knjiznica/internal/model"
)

// MembersHandler handles member endpoints.
type MembersHandler struct {
	Library Library
}

type createMemberRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// List handles GET /api/members. The optional q parameter filters by name,
// email or phone.
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Library.GetSnapshot(r.Context())
	if err != nil {
		storeError(w, err, "failed to list members")
		return
	}
	jsonResponse(w, http.StatusOK, desk.FilterMembers(snapshot.Members, r.URL.Query().Get("q")))
}

// Create handles POST /api/members.
func (h *MembersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := h.Library.CreateMember(r.Context(), model.MemberFields{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		storeError(w, err, "failed to create member")
		return
	}
	jsonResponse(w, http.StatusCreated, member)
}
