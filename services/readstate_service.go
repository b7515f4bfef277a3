package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/rozet/database"
	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/pkg/cache"
	"github.com/akinalp/rozet/pkg/lock"
	"github.com/akinalp/rozet/repository"
	"github.com/akinalp/rozet/ws"
)

// ReadStateService, okundu/okunmadı takibinin iş mantığı interface'i.
//
// Servisin kalbi burasıdır. Her operasyon aynı deseni izler:
// kayıt lock altında okunur, model method'u ile bellekte dönüştürülür,
// komple geri yazılır, kullanıcının summary cache'i düşürülür ve yeni
// badge WS üzerinden push edilir. State geçişlerinin kuralları model
// katmanında yaşar — bu servis sıralama, transaction ve yayın işidir.
//
// Update operasyonları yeni badge state'ini DÖNER: HTTP çağıranı
// response'tan, WS dinleyicileri push'tan aynı gerçeği okur, kimse
// ikinci bir fetch yapmak zorunda kalmaz.
type ReadStateService interface {
	// RecordView, kullanıcının kanalı görüntülemesini işler.
	// viewedAt nil ise server saati kullanılır. Geriye giden timestamp
	// ve server saatini maxViewSkew'den fazla aşan timestamp
	// pkg.ErrInvalidTimestamp döner (HTTP 409) — client state'i yeniden
	// çekip tekrar denemelidir.
	RecordView(ctx context.Context, userID, channelID string, viewedAt *int64) (*models.ChannelBadge, error)

	// MarkManuallyUnread, kanalı "sonra döneceğim" işareti ile okunmamış yapar.
	MarkManuallyUnread(ctx context.Context, userID, channelID string) (*models.ChannelBadge, error)

	// GetState, tek kanalın badge state'ini döner.
	GetState(ctx context.Context, userID, channelID string) (*models.ChannelBadge, error)

	// GetSummary, kullanıcının tüm kanallarının badge listesini döner.
	// Sidebar render'ı bu listeyle yapılır; sonuç kısa ömürlü cache'lenir.
	GetSummary(ctx context.Context, userID string) ([]models.ChannelBadge, error)

	// Totals, uygulama ikonu badge'i için toplam sayıları döner.
	Totals(ctx context.Context, userID string) (models.BadgeTotals, error)

	// ApplyPostEvent, chat backend'den gelen post event'ini kanalın tüm
	// üyelerine (yazar hariç) fan-out eder.
	ApplyPostEvent(ctx context.Context, req *models.PostEventRequest) error
}

// readStateService, ReadStateService'in implementasyonu.
//
// db alanı sadece ApplyPostEvent için tutulur: fan-out tek transaction'da
// çalışır, geçici bir MembershipRepository tx üzerinde açılır. Tekil
// operasyonlar normal repo üzerinden gider.
type readStateService struct {
	db             *sql.DB
	channelRepo    repository.ChannelRepository
	membershipRepo repository.MembershipRepository
	locks          *lock.KeyedMutex
	summaryCache   *cache.TTLCache[string, []models.ChannelBadge]
	hub            ws.EventPublisher
}

// NewReadStateService, constructor — interface döner.
// locks ve summaryCache, MembershipService ile paylaşılan instance'lardır.
func NewReadStateService(
	db *sql.DB,
	channelRepo repository.ChannelRepository,
	membershipRepo repository.MembershipRepository,
	locks *lock.KeyedMutex,
	summaryCache *cache.TTLCache[string, []models.ChannelBadge],
	hub ws.EventPublisher,
) ReadStateService {
	return &readStateService{
		db:             db,
		channelRepo:    channelRepo,
		membershipRepo: membershipRepo,
		locks:          locks,
		summaryCache:   summaryCache,
		hub:            hub,
	}
}

// maxViewSkew, client saatinin server saatinden ne kadar ileri
// olabileceğinin üst sınırı. Offline'da görüntülenen kanallar geç sync
// edilirken GEÇMİŞ bir viewed_at gönderir — bunlar serbesttir. İleri
// yönde ise yalnızca makul saat sapması tolere edilir: sınırsız kabul
// edilseydi tek bir bozuk istek LastViewedAt'i yıllarca ileri yazar ve
// monotonluk kuralı sonraki her gerçek görüntülemeyi sonsuza dek
// reddederdi.
const maxViewSkew = 2 * time.Minute

// RecordView, görüntülemeyi işler ve yeni badge'i döner.
func (s *readStateService) RecordView(ctx context.Context, userID, channelID string, viewedAt *int64) (*models.ChannelBadge, error) {
	serverNow := time.Now().UnixMilli()
	now := serverNow
	if viewedAt != nil {
		if *viewedAt > serverNow+maxViewSkew.Milliseconds() {
			return nil, fmt.Errorf("%w: view timestamp %d is beyond server time %d", pkg.ErrInvalidTimestamp, *viewedAt, serverNow)
		}
		now = *viewedAt
	}

	key := membershipKey(userID, channelID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	membership, err := s.membershipRepo.Get(ctx, userID, channelID)
	if err != nil {
		return nil, err // ErrChannelNotFound olabilir
	}

	if err := membership.ApplyView(now); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrInvalidTimestamp, err.Error())
	}

	if err := s.membershipRepo.Update(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to persist view: %w", err)
	}

	return s.publishBadge(membership), nil
}

// MarkManuallyUnread, manuel unread bayrağını kaldırır ve yeni badge'i döner.
func (s *readStateService) MarkManuallyUnread(ctx context.Context, userID, channelID string) (*models.ChannelBadge, error) {
	key := membershipKey(userID, channelID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	membership, err := s.membershipRepo.Get(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}

	membership.MarkUnread()

	if err := s.membershipRepo.Update(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to persist manual unread: %w", err)
	}

	return s.publishBadge(membership), nil
}

// GetState, tek kanalın hesaplanmış badge state'ini döner.
func (s *readStateService) GetState(ctx context.Context, userID, channelID string) (*models.ChannelBadge, error) {
	membership, err := s.membershipRepo.Get(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}

	badge := membership.Badge()
	return &badge, nil
}

// GetSummary, kullanıcının tüm badge'lerini döner.
//
// Sidebar her poll'da burayı çağırır — sonuç TTL cache'te tutulur.
// Kayıtlara yazan HER operasyon o kullanıcının cache girdisini düşürür,
// bu yüzden cache'ten dönen liste en fazla TTL kadar eskidir ve yazma
// sonrası ilk okuma her zaman tazedir.
func (s *readStateService) GetSummary(ctx context.Context, userID string) ([]models.ChannelBadge, error) {
	if badges, ok := s.summaryCache.Get(userID); ok {
		return badges, nil
	}

	memberships, err := s.membershipRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	badges := make([]models.ChannelBadge, 0, len(memberships))
	for i := range memberships {
		badges = append(badges, memberships[i].Badge())
	}

	s.summaryCache.Set(userID, badges)

	return badges, nil
}

// Totals, toplam badge sayılarını döner. Hesap SQL'de yapılır —
// kayıtları Go'ya taşıyıp saymak yerine tek aggregate sorgu.
func (s *readStateService) Totals(ctx context.Context, userID string) (models.BadgeTotals, error) {
	return s.membershipRepo.Totals(ctx, userID)
}

// ApplyPostEvent, post event'ini kanalın üyelerine fan-out eder.
//
// Akış:
//  1. Üye listesi çekilir, yazar çıkarılır.
//  2. Tüm üyelerin lock'ları SIRALI alınır. ListMemberIDs user_id sıralı
//     döner — lock'lar her zaman aynı sırada alındığı için iki eşzamanlı
//     fan-out birbirini deadlock'a sokamaz.
//  3. Tek transaction içinde her üyenin kaydı okunur, ApplyPost ile
//     dönüştürülür, geri yazılır. Üyelerin yarısı güncellenmiş bir kanal
//     görünmez — ya hepsi ya hiçbiri.
//  4. Commit sonrası cache düşürülür ve badge'ler push edilir.
//
// Listeleme ile lock alma arasında ayrılan üye olabilir — kaydı
// transaction içinde bulunamazsa sessizce atlanır.
func (s *readStateService) ApplyPostEvent(ctx context.Context, req *models.PostEventRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if _, err := s.channelRepo.GetByID(ctx, req.ChannelID); err != nil {
		return err // ErrChannelNotFound olabilir
	}

	memberIDs, err := s.membershipRepo.ListMemberIDs(ctx, req.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to list channel members: %w", err)
	}

	// Yazar kendi post'u ile okunmamış olmaz
	targets := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != req.AuthorID {
			targets = append(targets, id)
		}
	}

	if len(targets) == 0 {
		return nil
	}

	for _, id := range targets {
		s.locks.Lock(membershipKey(id, req.ChannelID))
	}
	defer func() {
		for _, id := range targets {
			s.locks.Unlock(membershipKey(id, req.ChannelID))
		}
	}()

	type badgePush struct {
		userID string
		badge  models.ChannelBadge
	}
	var updated []badgePush

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteMembershipRepo(tx)

		for _, userID := range targets {
			membership, err := repo.Get(ctx, userID, req.ChannelID)
			if err != nil {
				if errors.Is(err, pkg.ErrNotFound) {
					continue // üye listelendikten sonra ayrılmış
				}
				return err
			}

			membership.ApplyPost(req.PostedAt, req.IsMentionFor(userID))

			if err := repo.Update(ctx, membership); err != nil {
				return fmt.Errorf("failed to persist post for %s: %w", userID, err)
			}

			updated = append(updated, badgePush{userID: userID, badge: membership.Badge()})
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("post fan-out failed: %w", err)
	}

	for _, u := range updated {
		s.summaryCache.Delete(u.userID)
		s.hub.BroadcastToUser(u.userID, ws.Event{
			Op:   ws.OpBadgeUpdate,
			Data: u.badge,
		})
	}

	return nil
}

// ─── Private Helpers ───

// publishBadge, tekil bir kayıt güncellemesinin ortak kuyruğu:
// cache düşür, badge'i push et, çağırana dön.
func (s *readStateService) publishBadge(membership *models.ChannelMembership) *models.ChannelBadge {
	badge := membership.Badge()

	s.summaryCache.Delete(membership.UserID)

	s.hub.BroadcastToUser(membership.UserID, ws.Event{
		Op:   ws.OpBadgeUpdate,
		Data: badge,
	})

	return &badge
}
