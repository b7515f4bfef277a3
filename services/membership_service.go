package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/pkg/cache"
	"github.com/akinalp/rozet/pkg/lock"
	"github.com/akinalp/rozet/repository"
	"github.com/akinalp/rozet/ws"
)

// MembershipService, kanal üyeliği iş mantığı interface'i.
//
// Rol güncellemenin iki yolu vardır:
//   - UpdateRoles: authenticated API. Çağıranın o kanalda "manage members"
//     yetkisi (veya platform admin) olmalıdır.
//   - ReconcileRoles: trusted ingest (chat backend). Yetki kontrolü YOK —
//     ingest middleware'i shared token ile korur.
type MembershipService interface {
	Join(ctx context.Context, userID, channelID string) (*models.ChannelMembership, error)
	Leave(ctx context.Context, userID, channelID string) error
	Roster(ctx context.Context, actor *models.User, channelID string) ([]models.ChannelMemberInfo, error)
	UpdateRoles(ctx context.Context, actor *models.User, channelID, targetUserID string, roles []models.ChannelRole) (*models.ChannelMembership, error)
	ReconcileRoles(ctx context.Context, channelID, userID string, roles []models.ChannelRole) error
}

// membershipKey, (user, channel) çifti için lock anahtarı üretir.
// Aynı kaydı değiştiren tüm servisler (membership + readstate) aynı
// KeyedMutex instance'ını ve aynı anahtar formatını kullanır.
func membershipKey(userID, channelID string) string {
	return userID + ":" + channelID
}

// membershipService, MembershipService'in implementasyonu.
type membershipService struct {
	channelRepo    repository.ChannelRepository
	membershipRepo repository.MembershipRepository
	locks          *lock.KeyedMutex
	summaryCache   *cache.TTLCache[string, []models.ChannelBadge]
	hub            ws.EventPublisher
}

// NewMembershipService, constructor — interface döner.
func NewMembershipService(
	channelRepo repository.ChannelRepository,
	membershipRepo repository.MembershipRepository,
	locks *lock.KeyedMutex,
	summaryCache *cache.TTLCache[string, []models.ChannelBadge],
	hub ws.EventPublisher,
) MembershipService {
	return &membershipService{
		channelRepo:    channelRepo,
		membershipRepo: membershipRepo,
		locks:          locks,
		summaryCache:   summaryCache,
		hub:            hub,
	}
}

// Join, kullanıcıyı kanala üye yapar.
//
// Yeni üyelik "okunmuş" başlar: her iki watermark sıfır, sayaçlar sıfır.
// Katılımdan önceki mesaj geçmişi üyeye okunmamış olarak YANSITILMAZ —
// üye kanalın geçmişini değil, katılımdan sonraki aktiviteyi takip eder.
func (s *membershipService) Join(ctx context.Context, userID, channelID string) (*models.ChannelMembership, error) {
	// Kanal registry'de var mı? FK hatası yerine anlamlı 404 dönmek için
	// önce kontrol edilir.
	if _, err := s.channelRepo.GetByID(ctx, channelID); err != nil {
		return nil, err
	}

	membership := &models.ChannelMembership{
		UserID:    userID,
		ChannelID: channelID,
		Roles:     models.DefaultRoles(),
	}

	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, err // ErrAlreadyExists olabilir
	}

	s.summaryCache.Delete(userID)

	// Kullanıcının diğer tab'ları yeni kanalı sidebar'a eklesin
	s.hub.BroadcastToUser(userID, ws.Event{
		Op:   ws.OpMembershipCreate,
		Data: membership,
	})

	return membership, nil
}

// Leave, kullanıcının üyelik kaydını siler.
//
// Lock alınır: aynı kayda dokunan bir view/post geçişi ile yarışmasın.
// Kayıt yoksa ErrChannelNotFound döner — leave idempotent DEĞİLDİR,
// client zaten üye olmadığı kanaldan ayrılmaya çalışıyorsa bug'dır.
func (s *membershipService) Leave(ctx context.Context, userID, channelID string) error {
	key := membershipKey(userID, channelID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	if err := s.membershipRepo.Delete(ctx, userID, channelID); err != nil {
		return err
	}

	s.summaryCache.Delete(userID)

	s.hub.BroadcastToUser(userID, ws.Event{
		Op:   ws.OpMembershipDelete,
		Data: map[string]string{"channel_id": channelID},
	})

	return nil
}

// Roster, kanalın üye listesini rolleriyle döner.
// Admin yüzeyidir: çağıranın kanalda "manage members" yetkisi veya
// platform admin olması gerekir.
func (s *membershipService) Roster(ctx context.Context, actor *models.User, channelID string) ([]models.ChannelMemberInfo, error) {
	if _, err := s.channelRepo.GetByID(ctx, channelID); err != nil {
		return nil, err
	}

	if err := s.requireCapability(ctx, actor, channelID, models.CapManageMembers); err != nil {
		return nil, err
	}

	members, err := s.membershipRepo.ListForChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel members: %w", err)
	}

	if members == nil {
		members = []models.ChannelMemberInfo{}
	}

	return members, nil
}

// UpdateRoles, bir üyenin rol setini API üzerinden günceller.
// Boş rol listesi geçerlidir — rolsüz üye hiçbir yetkiye sahip olmaz
// ama kaydı yaşamaya devam eder.
func (s *membershipService) UpdateRoles(ctx context.Context, actor *models.User, channelID, targetUserID string, roles []models.ChannelRole) (*models.ChannelMembership, error) {
	if err := s.requireCapability(ctx, actor, channelID, models.CapManageMembers); err != nil {
		return nil, err
	}

	return s.setRoles(ctx, channelID, targetUserID, roles)
}

// ReconcileRoles, chat backend'den gelen rol reconcile event'ini işler.
// Trusted path — yetki kontrolü ingest middleware'inde yapılmıştır.
func (s *membershipService) ReconcileRoles(ctx context.Context, channelID, userID string, roles []models.ChannelRole) error {
	_, err := s.setRoles(ctx, channelID, userID, roles)
	return err
}

// ─── Private Helpers ───

// setRoles, rol güncellemenin ortak yolu: lock altında oku-değiştir-yaz.
func (s *membershipService) setRoles(ctx context.Context, channelID, userID string, roles []models.ChannelRole) (*models.ChannelMembership, error) {
	key := membershipKey(userID, channelID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	membership, err := s.membershipRepo.Get(ctx, userID, channelID)
	if err != nil {
		return nil, err // ErrChannelNotFound olabilir
	}

	membership.Roles = roles

	if err := s.membershipRepo.Update(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to update member roles: %w", err)
	}

	s.summaryCache.Delete(userID)

	s.hub.BroadcastToUser(userID, ws.Event{
		Op:   ws.OpRolesUpdate,
		Data: membership,
	})

	return membership, nil
}

// requireCapability, çağıranın kanalda istenen yetkiye sahip olduğunu doğrular.
//
// Platform admin her kanalda her yetkiye sahiptir. Diğer kullanıcılar
// için üyelik kaydındaki rol setinin birleşik yetki maskesi kontrol
// edilir. Üye olmayan çağıran yetkisizdir — kanalın varlığı bile
// sızdırılmaz değil (404 yerine 403), çünkü kanal listesi zaten public.
func (s *membershipService) requireCapability(ctx context.Context, actor *models.User, channelID string, want models.Capability) error {
	if actor.IsPlatformAdmin {
		return nil
	}

	membership, err := s.membershipRepo.Get(ctx, actor.ID, channelID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: not a member of this channel", pkg.ErrForbidden)
		}
		return err
	}

	if !models.RolesCapabilities(membership.Roles).Has(want) {
		return fmt.Errorf("%w: missing required channel capability", pkg.ErrForbidden)
	}

	return nil
}
