// Package main — Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
//
// Paylaşılan iki instance önemlidir:
//   - locks: ReadStateService ve MembershipService AYNI KeyedMutex'i
//     kullanmalıdır — aynı (user, channel) kaydına dokunan view, post
//     fan-out ve leave operasyonları tek writer'a serialize edilir.
//   - summaryCache: kayda yazan her service aynı cache'i düşürür,
//     yoksa bir service'in yazması diğerinin bayat özetini yaşatır.
package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/akinalp/rozet/config"
	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg/cache"
	"github.com/akinalp/rozet/pkg/email"
	"github.com/akinalp/rozet/pkg/lock"
	"github.com/akinalp/rozet/pkg/ratelimit"
	"github.com/akinalp/rozet/services"
	"github.com/akinalp/rozet/ws"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth       services.AuthService
	Channel    services.ChannelService
	Membership services.MembershipService
	ReadState  services.ReadStateService
}

// RateLimiters, rate limiter instance'larını tutan container.
type RateLimiters struct {
	Login *ratelimit.LoginRateLimiter
}

// summaryCacheTTL, badge özetlerinin cache'te kalma süresi.
// Kısa tutulur — yazmalar cache'i zaten düşürür, TTL yalnızca
// kaçırılmış bir invalidation'a karşı üst sınırdır.
const summaryCacheTTL = 30 * time.Second

// initServices, tüm service'leri ve rate limiter'ları oluşturur.
func initServices(db *sql.DB, repos *Repositories, hub ws.EventPublisher, cfg *config.Config) (*Services, *RateLimiters) {
	// ─── Paylaşılan dependency'ler ───
	locks := lock.NewKeyedMutex()
	summaryCache := cache.New[string, []models.ChannelBadge](summaryCacheTTL, time.Minute)

	// ─── Email service (opsiyonel) ───
	var emailSender email.EmailSender
	if cfg.Email.ResendAPIKey != "" && cfg.Email.FromEmail != "" && cfg.Email.AppURL != "" {
		emailSender = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Email.AppURL)
		log.Printf("[main] email service enabled (from=%s)", cfg.Email.FromEmail)
	} else {
		log.Println("[main] email service disabled — reset tokens will be logged")
	}

	svcs := &Services{
		Auth: services.NewAuthService(
			db, repos.User, repos.Session, repos.ResetToken, emailSender,
			cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry,
		),
		Channel:    services.NewChannelService(repos.Channel, repos.Membership, summaryCache, hub),
		Membership: services.NewMembershipService(repos.Channel, repos.Membership, locks, summaryCache, hub),
		ReadState:  services.NewReadStateService(db, repos.Channel, repos.Membership, locks, summaryCache, hub),
	}

	limiters := &RateLimiters{
		Login: ratelimit.NewLoginRateLimiter(5, 2*time.Minute),
	}

	return svcs, limiters
}
