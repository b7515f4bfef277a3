package services

import (
	"context"
	"fmt"

	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/pkg/cache"
	"github.com/akinalp/rozet/repository"
	"github.com/akinalp/rozet/ws"
	"github.com/google/uuid"
)

// ChannelService, kanal registry iş mantığı interface'i.
//
// Kanal burada "ince" bir kayıttır: içerik chat backend'de yaşar, biz
// sadece membership kayıtlarının bağlanacağı kimliği tutarız. Create ve
// Delete platform admin korumalıdır (middleware katmanında kontrol edilir).
type ChannelService interface {
	GetAll(ctx context.Context) ([]models.Channel, error)
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	Create(ctx context.Context, req *models.CreateChannelRequest) (*models.Channel, error)
	Delete(ctx context.Context, id string) error
}

// channelService, ChannelService'in implementasyonu.
// Tüm dependency'ler interface olarak tutulur (Dependency Inversion).
type channelService struct {
	channelRepo    repository.ChannelRepository
	membershipRepo repository.MembershipRepository
	summaryCache   *cache.TTLCache[string, []models.ChannelBadge]
	hub            ws.EventPublisher
}

// NewChannelService, constructor — interface döner.
// summaryCache, ReadStateService ile paylaşılan instance'tır: kanal
// silmek üyelik kayıtlarını da sildiği için üyelerin cache'i burada düşer.
func NewChannelService(
	channelRepo repository.ChannelRepository,
	membershipRepo repository.MembershipRepository,
	summaryCache *cache.TTLCache[string, []models.ChannelBadge],
	hub ws.EventPublisher,
) ChannelService {
	return &channelService{
		channelRepo:    channelRepo,
		membershipRepo: membershipRepo,
		summaryCache:   summaryCache,
		hub:            hub,
	}
}

// GetAll, kayıtlı tüm kanalları isme göre sıralı döner.
func (s *channelService) GetAll(ctx context.Context) ([]models.Channel, error) {
	channels, err := s.channelRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels: %w", err)
	}

	if channels == nil {
		channels = []models.Channel{} // null yerine boş dizi — frontend parsing kolaylığı
	}

	return channels, nil
}

// GetByID, tek bir kanalı döner.
func (s *channelService) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	return s.channelRepo.GetByID(ctx, id)
}

// Create, registry'ye yeni bir kanal ekler ve tüm bağlı kullanıcılara bildirir.
//
// ID'yi biz üretiriz (uuid) — chat backend provisioning sırasında bu ID
// ile konfigüre edilir ve ingest event'lerinde aynı ID'yi kullanır.
func (s *channelService) Create(ctx context.Context, req *models.CreateChannelRequest) (*models.Channel, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	channel := &models.Channel{
		ID:   uuid.New().String(),
		Name: req.Name,
	}
	if req.Topic != "" {
		channel.Topic = &req.Topic
	}

	if err := s.channelRepo.Create(ctx, channel); err != nil {
		return nil, err // ErrAlreadyExists olabilir
	}

	// WebSocket broadcast — tüm bağlı kullanıcılar yeni kanalı görür
	s.hub.BroadcastToAll(ws.Event{
		Op:   ws.OpChannelCreate,
		Data: channel,
	})

	return channel, nil
}

// Delete, bir kanalı registry'den siler.
//
// DB'de membership kayıtları cascade ile silinir. Silinen kanalın
// üyelerinin summary cache'i düşürülür — yoksa TTL dolana kadar hayalet
// badge görünür.
func (s *channelService) Delete(ctx context.Context, id string) error {
	// Cascade'den ÖNCE üye listesini al — silindikten sonra kimse kalmaz.
	memberIDs, err := s.membershipRepo.ListMemberIDs(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list channel members: %w", err)
	}

	if err := s.channelRepo.Delete(ctx, id); err != nil {
		return err // ErrChannelNotFound olabilir
	}

	for _, userID := range memberIDs {
		s.summaryCache.Delete(userID)
	}

	s.hub.BroadcastToAll(ws.Event{
		Op:   ws.OpChannelDelete,
		Data: map[string]string{"id": id},
	})

	return nil
}
