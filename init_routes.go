// Package main — HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ları burada tanımlıdır:
//   - auth: JWT token doğrulaması (badge okuyan client'lar)
//   - authAdmin: auth + platform admin yetkisi (kanal registry yönetimi)
//   - ingestOnly: X-Ingest-Token doğrulaması (chat backend)
//
// Kanal İÇİ yetki (rol güncelleme, roster) route katmanında DEĞİL
// service katmanında kontrol edilir — capability, çağıranın o kanaldaki
// üyelik kaydından türetilir ve route bunu bilemez.
package main

import (
	"net/http"

	"github.com/akinalp/rozet/middleware"
	"github.com/akinalp/rozet/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: Literal path'ler parametrik path'lerden ÖNCE
// tanımlanmalı. Örnek: "/api/unreads/totals" → "/api/channels/{id}"
// ile çakışmaz ama aynı prefix altında literal segment'ler öne alınır.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	authService services.AuthService,
	repos *Repositories,
	ingestToken string,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService, repos.User)
	platformAdminMw := middleware.NewPlatformAdminMiddleware()
	ingestMw := middleware.NewIngestMiddleware(ingestToken)

	// ─── Middleware Chain Helpers ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}
	authAdmin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(platformAdminMw.Require(http.HandlerFunc(handler)))
	}
	ingestOnly := func(handler http.HandlerFunc) http.Handler {
		return ingestMw.Require(http.HandlerFunc(handler))
	}

	// Auth
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Auth.Refresh)
	mux.Handle("POST /api/auth/logout", auth(h.Auth.Logout))
	mux.HandleFunc("POST /api/auth/forgot-password", h.Auth.ForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", h.Auth.ResetPassword)

	// User
	mux.Handle("GET /api/users/me", auth(h.Auth.Me))
	mux.Handle("PUT /api/users/me/password", auth(h.Auth.ChangePassword))

	// Channel registry — create/delete platform admin gerektirir
	mux.Handle("GET /api/channels", auth(h.Channel.List))
	mux.Handle("POST /api/channels", authAdmin(h.Channel.Create))
	mux.Handle("GET /api/channels/{id}", auth(h.Channel.Get))
	mux.Handle("DELETE /api/channels/{id}", authAdmin(h.Channel.Delete))

	// Membership lifecycle
	mux.Handle("POST /api/channels/{id}/join", auth(h.Membership.Join))
	mux.Handle("DELETE /api/channels/{id}/leave", auth(h.Membership.Leave))
	mux.Handle("GET /api/channels/{id}/members", auth(h.Membership.Roster))
	mux.Handle("PUT /api/channels/{id}/members/{userId}/roles", auth(h.Membership.UpdateRoles))

	// Read state — view/unread geçişleri ve badge sorguları
	mux.Handle("POST /api/channels/{id}/view", auth(h.ReadState.View))
	mux.Handle("POST /api/channels/{id}/unread", auth(h.ReadState.MarkUnread))
	mux.Handle("GET /api/channels/{id}/read-state", auth(h.ReadState.GetState))
	mux.Handle("GET /api/unreads", auth(h.ReadState.GetSummary))
	mux.Handle("GET /api/unreads/totals", auth(h.ReadState.GetTotals))

	// Ingest — chat backend'in event beslediği yüzey
	mux.Handle("POST /api/ingest/posts", ingestOnly(h.Ingest.PostEvent))
	mux.Handle("POST /api/ingest/roles", ingestOnly(h.Ingest.RolesEvent))

	// Stats — public
	mux.HandleFunc("GET /api/stats", h.Stats.GetPublicStats)

	// WebSocket — token query parameter ile authenticate edilir.
	// Upgrade sırasında tarayıcılar custom header gönderemez, bu yüzden
	// JWT, ws://server/ws?token=JWT şeklinde taşınır ve WS handler
	// kendi içinde doğrular.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
