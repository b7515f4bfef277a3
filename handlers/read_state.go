package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/services"
)

// ReadStateHandler, okundu/okunmadı endpoint'lerini yöneten struct.
type ReadStateHandler struct {
	readStateService services.ReadStateService
}

// NewReadStateHandler, constructor.
func NewReadStateHandler(readStateService services.ReadStateService) *ReadStateHandler {
	return &ReadStateHandler{readStateService: readStateService}
}

// View godoc
// POST /api/channels/{id}/view
// Body: { "viewed_at": 1724200000000 } — opsiyonel, yoksa server saati.
//
// Kanalı görüntülendi olarak işler ve yeni badge state'ini döner.
// Stale timestamp (kayıttaki son görüntülemeden eski) 409 döner —
// client güncel state'i çekip tekrar denemelidir.
func (h *ReadStateHandler) View(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	// Body opsiyonel — boş body server saati anlamına gelir
	var req models.ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	badge, err := h.readStateService.RecordView(r.Context(), user.ID, channelID, req.ViewedAt)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, badge)
}

// MarkUnread godoc
// POST /api/channels/{id}/unread
// Kanalı manuel olarak okunmamış işaretler ve yeni badge state'ini döner.
func (h *ReadStateHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	badge, err := h.readStateService.MarkManuallyUnread(r.Context(), user.ID, channelID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, badge)
}

// GetState godoc
// GET /api/channels/{id}/read-state
// Tek kanalın badge state'ini döner.
func (h *ReadStateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")

	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	badge, err := h.readStateService.GetState(r.Context(), user.ID, channelID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, badge)
}

// GetSummary godoc
// GET /api/unreads
// Kullanıcının tüm kanallarının badge listesini döner — sidebar bununla çizilir.
func (h *ReadStateHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	badges, err := h.readStateService.GetSummary(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, badges)
}

// GetTotals godoc
// GET /api/unreads/totals
// Uygulama ikonu badge'i için toplam sayıları döner.
func (h *ReadStateHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	totals, err := h.readStateService.Totals(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, totals)
}
