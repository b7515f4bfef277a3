// Package main — Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Her handler, ihtiyaç duyduğu service interface'lerini constructor'dan alır.
// Handler'lar "thin"dir — sadece HTTP parse + service call + response write.
package main

import (
	"github.com/akinalp/rozet/handlers"
	"github.com/akinalp/rozet/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Channel    *handlers.ChannelHandler
	Membership *handlers.MembershipHandler
	ReadState  *handlers.ReadStateHandler
	Ingest     *handlers.IngestHandler
	Stats      *handlers.StatsHandler
	WS         *ws.Handler
}

// initHandlers, tüm handler'ları service ve rate limiter dependency'leri ile oluşturur.
func initHandlers(svcs *Services, repos *Repositories, limiters *RateLimiters, hub *ws.Hub) *Handlers {
	return &Handlers{
		Auth:       handlers.NewAuthHandler(svcs.Auth, limiters.Login),
		Channel:    handlers.NewChannelHandler(svcs.Channel),
		Membership: handlers.NewMembershipHandler(svcs.Membership),
		ReadState:  handlers.NewReadStateHandler(svcs.ReadState),
		Ingest:     handlers.NewIngestHandler(svcs.ReadState, svcs.Membership),
		Stats:      handlers.NewStatsHandler(repos.User, repos.Channel, repos.Membership, hub),
		WS:         ws.NewHandler(hub, svcs.Auth),
	}
}
