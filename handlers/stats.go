// Package handlers, HTTP request handler'larını içerir.
//
// StatsHandler, public (auth gerektirmeyen) istatistik endpoint'lerini yönetir.
// Kayıtlı kullanıcı/kanal/üyelik sayıları ile anlık online kullanıcı
// sayısını döner. Operasyonel gösterge panelleri için tasarlandı.
package handlers

import (
	"net/http"

	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/repository"
	"github.com/akinalp/rozet/ws"
)

// StatsResponse, public istatistik endpoint'inin response formatı.
type StatsResponse struct {
	TotalUsers       int `json:"total_users"`
	TotalChannels    int `json:"total_channels"`
	TotalMemberships int `json:"total_memberships"`
	OnlineUsers      int `json:"online_users"`
}

// StatsHandler, istatistik endpoint'lerini yöneten handler.
// Dependency olarak repository'leri ve hub'ı alır — Count() metotları
// zaten mevcut, ayrı bir service katmanı gerektirmez.
type StatsHandler struct {
	userRepo       repository.UserRepository
	channelRepo    repository.ChannelRepository
	membershipRepo repository.MembershipRepository
	hub            ws.EventPublisher
}

// NewStatsHandler, constructor. main.go'da wire-up edilir.
func NewStatsHandler(
	userRepo repository.UserRepository,
	channelRepo repository.ChannelRepository,
	membershipRepo repository.MembershipRepository,
	hub ws.EventPublisher,
) *StatsHandler {
	return &StatsHandler{
		userRepo:       userRepo,
		channelRepo:    channelRepo,
		membershipRepo: membershipRepo,
		hub:            hub,
	}
}

// GetPublicStats, servis sayaçlarını döner.
// Auth gerekmez — izleme araçlarından çağrılır.
//
// GET /api/stats
// Response: { "success": true, "data": { "total_users": 42, ... } }
func (h *StatsHandler) GetPublicStats(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.Count(r.Context())
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	channels, err := h.channelRepo.Count(r.Context())
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	memberships, err := h.membershipRepo.Count(r.Context())
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	pkg.JSON(w, http.StatusOK, StatsResponse{
		TotalUsers:       users,
		TotalChannels:    channels,
		TotalMemberships: memberships,
		OnlineUsers:      len(h.hub.GetOnlineUserIDs()),
	})
}
