package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/services"
)

// ChannelHandler, kanal registry endpoint'lerini yöneten struct.
type ChannelHandler struct {
	channelService services.ChannelService
}

// NewChannelHandler, constructor.
func NewChannelHandler(channelService services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

// List godoc
// GET /api/channels
// Kayıtlı tüm kanalları döner.
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channelService.GetAll(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, channels)
}

// Get godoc
// GET /api/channels/{id}
//
// r.PathValue("id") — Go 1.22+ ile gelen path parameter desteği.
// Route tanımında {id} olarak yazılan parametreyi çeker.
// Eski yöntem: gorilla/mux veya chi router gerekiyordu.
// Go 1.22'den itibaren standart kütüphane bunu destekliyor.
func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	channel, err := h.channelService.GetByID(r.Context(), id)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, channel)
}

// Create godoc
// POST /api/channels
// Yeni kanal oluşturur. Platform admin gerektirir (middleware).
func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	channel, err := h.channelService.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, channel)
}

// Delete godoc
// DELETE /api/channels/{id}
// Kanalı ve üyelik kayıtlarını siler. Platform admin gerektirir (middleware).
func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.channelService.Delete(r.Context(), id); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "channel deleted"})
}
