package repository

import (
	"context"

	"github.com/akinalp/rozet/models"
)

// ChannelRepository, kanal kayıt defteri veritabanı işlemleri için interface.
// Her method context.Context alır — HTTP isteği iptal edilirse sorgu da durur.
//
// Kayıt defteri bilinçli olarak küçüktür: kanal içeriği (mesajlar) chat
// backend'de yaşar, burada sadece channel_id'nin gerçek bir foreign key
// olması için kimlik tutulur.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	GetAll(ctx context.Context) ([]models.Channel, error)
	// Delete, kanalı siler. FK cascade ile üyelik kayıtları da silinir.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
