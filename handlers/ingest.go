package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/services"
)

// IngestHandler, chat backend'in event beslediği endpoint'leri yönetir.
//
// Bu endpoint'ler kullanıcı auth'u DEĞİL shared token (X-Ingest-Token)
// ile korunur — çağıran bir insan değil, upstream sistemdir. Aynı
// payload'lar Kafka consumer'dan da gelir; handler sadece HTTP sarmalıdır.
type IngestHandler struct {
	readStateService  services.ReadStateService
	membershipService services.MembershipService
}

// NewIngestHandler, constructor.
func NewIngestHandler(
	readStateService services.ReadStateService,
	membershipService services.MembershipService,
) *IngestHandler {
	return &IngestHandler{
		readStateService:  readStateService,
		membershipService: membershipService,
	}
}

// PostEvent godoc
// POST /api/ingest/posts
// Body: { "channel_id": "...", "author_id": "...", "posted_at": 1724200000000,
//
//	"mention_user_ids": ["..."], "mention_all": false }
//
// Post'u kanalın tüm üyelerine (yazar hariç) fan-out eder.
func (h *IngestHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var req models.PostEventRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.readStateService.ApplyPostEvent(r.Context(), &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "post event applied"})
}

// RolesEvent godoc
// POST /api/ingest/roles
// Body: { "channel_id": "...", "user_id": "...", "roles": "moderator member" }
//
// Üyenin rol setini chat backend'deki güncel hale çeker.
func (h *IngestHandler) RolesEvent(w http.ResponseWriter, r *http.Request) {
	var req models.RolesEventRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	roles, err := models.ParseRoles(req.Roles)
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.membershipService.ReconcileRoles(r.Context(), req.ChannelID, req.UserID, roles); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "roles reconciled"})
}
