package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/services"
)

// MembershipHandler, kanal üyeliği endpoint'lerini yöneten struct.
type MembershipHandler struct {
	membershipService services.MembershipService
}

// NewMembershipHandler, constructor.
func NewMembershipHandler(membershipService services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// Join godoc
// POST /api/channels/{id}/join
// Kullanıcıyı kanala üye yapar ve yeni üyelik kaydını döner.
func (h *MembershipHandler) Join(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	membership, err := h.membershipService.Join(r.Context(), user.ID, channelID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, membership)
}

// Leave godoc
// DELETE /api/channels/{id}/leave
// Kullanıcının üyelik kaydını siler.
func (h *MembershipHandler) Leave(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.membershipService.Leave(r.Context(), user.ID, channelID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "left channel"})
}

// Roster godoc
// GET /api/channels/{id}/members
// Kanal üye listesini döner. "manage members" yetkisi veya platform admin gerektirir.
func (h *MembershipHandler) Roster(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	members, err := h.membershipService.Roster(r.Context(), user, channelID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, members)
}

// UpdateRoles godoc
// PUT /api/channels/{id}/members/{userId}/roles
// Body: { "roles": "moderator member" } — space-delimited, boş string geçerli.
//
// Hedef üyenin rol setini komple değiştirir. "manage members" yetkisi
// veya platform admin gerektirir.
func (h *MembershipHandler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")
	targetUserID := r.PathValue("userId")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.UpdateMemberRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	roles, err := req.ParsedRoles()
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	membership, err := h.membershipService.UpdateRoles(r.Context(), user, channelID, targetUserID, roles)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, membership)
}
