package repository

import (
	"context"

	"github.com/akinalp/rozet/models"
)

// MembershipRepository, üyelik + okuma durumu kayıtları için interface.
//
// Kayıt anahtarı (user_id, channel_id) — kanal başına üye başına tek satır.
// Update tüm mutable alanları yazar: kayıt state'i model method'ları ile
// bellekte dönüştürülür, sonra komple persist edilir. Alan bazlı UPDATE'ler
// yerine bu yaklaşım seçildi çünkü geçişler (view, post, unread) birden
// fazla alanı birlikte değiştirir ve invariant'ın yarısı yazılmış bir satır
// asla görünmemelidir.
type MembershipRepository interface {
	// Create, sıfırlanmış sayaçlarla yeni üyelik kaydı oluşturur.
	// Aynı (user, channel) çifti için kayıt varsa pkg.ErrAlreadyExists döner.
	Create(ctx context.Context, m *models.ChannelMembership) error

	// Get, tek bir üyelik kaydını döner. Yoksa pkg.ErrChannelNotFound.
	Get(ctx context.Context, userID, channelID string) (*models.ChannelMembership, error)

	// Update, kaydın tüm mutable alanlarını yazar.
	// Kayıt yoksa pkg.ErrChannelNotFound döner.
	Update(ctx context.Context, m *models.ChannelMembership) error

	// Delete, üyelik kaydını siler. Yoksa pkg.ErrChannelNotFound döner.
	Delete(ctx context.Context, userID, channelID string) error

	// ListForUser, kullanıcının tüm üyelik kayıtlarını döner (badge özeti için).
	ListForUser(ctx context.Context, userID string) ([]models.ChannelMembership, error)

	// ListMemberIDs, kanalın üye ID'lerini döner — post fan-out bu listeyi gezer.
	ListMemberIDs(ctx context.Context, channelID string) ([]string, error)

	// ListForChannel, kanal roster'ını kullanıcı bilgileriyle döner.
	ListForChannel(ctx context.Context, channelID string) ([]models.ChannelMemberInfo, error)

	// Totals, kullanıcının toplam badge sayılarını SQL'de hesaplar.
	Totals(ctx context.Context, userID string) (models.BadgeTotals, error)

	// Count, toplam üyelik kaydı sayısı (stats için).
	Count(ctx context.Context) (int, error)
}
