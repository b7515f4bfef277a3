// Package ingest — Kafka consumer: chat backend'den event akışı.
//
// HTTP ingest endpoint'lerinin (handlers/ingest.go) event-stream ikizi.
// Chat backend post ve rol event'lerini bir Kafka topic'ine yazıyorsa,
// bu consumer aynı JSON payload'larını okuyup aynı service çağrılarına
// dönüştürür — iki transport, tek iş mantığı.
//
// Consumer opsiyoneldir: KAFKA_BROKERS boşsa main.go hiç başlatmaz ve
// event'ler yalnızca HTTP'den gelir (email service'in opsiyonelliği ile
// aynı desen).
//
// Teslim semantiği at-least-once'tır. Tekrar işlenen bir post event'i
// sayaçları ikinci kez artırır — upstream'in event'leri tek kez yazması
// beklenir; watermark alanları (LastPostAt) tekrar karşısında zaten
// güvenlidir çünkü max() ile ilerler.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/akinalp/rozet/config"
	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/services"
)

// Event tipleri — envelope'un "type" alanında taşınır.
const (
	eventTypePost  = "post"
	eventTypeRoles = "roles"
)

// envelope, topic'teki her mesajın dış katmanı.
// Data alanı tipe göre PostEventRequest veya RolesEventRequest'tir;
// tip okunana kadar parse edilmemesi için json.RawMessage tutulur.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// messageReader, kafka.Reader'ın consumer'ın kullandığı alt kümesi.
// Testler gerçek broker yerine fake reader enjekte eder.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer, Kafka topic'inden event okuyup service katmanına dağıtır.
type Consumer struct {
	reader            messageReader
	readStateService  services.ReadStateService
	membershipService services.MembershipService
}

// NewConsumer, constructor. Reader konfigürasyonu:
// GroupID ile consumer group offset'leri broker'da tutulur — restart
// sonrası kaldığı yerden devam eder. StartOffset yalnızca grubun hiç
// offset'i yokken geçerlidir ve LastOffset seçilir: taze bir deploy
// topic'in tüm geçmişini replay etmez.
func NewConsumer(
	cfg config.KafkaConfig,
	readStateService services.ReadStateService,
	membershipService services.MembershipService,
) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
	})

	return &Consumer{
		reader:            reader,
		readStateService:  readStateService,
		membershipService: membershipService,
	}
}

// Run, consume loop'udur. main.go'da `go consumer.Run(ctx)` ile başlatılır
// ve ctx iptal edilene kadar döner.
//
// Poison-pill koruması: bozuk bir mesaj loop'u ASLA öldürmez. Parse veya
// işleme hatası log'a düşer ve sonraki mesaja geçilir — tek bozuk event
// yüzünden badge akışının tamamen durması kabul edilemez.
func (c *Consumer) Run(ctx context.Context) {
	log.Println("[ingest] kafka consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Println("[ingest] kafka consumer stopped")
				return
			}
			log.Printf("[ingest] read error: %v", err)
			continue
		}

		if err := c.handleMessage(ctx, msg.Value); err != nil {
			log.Printf("[ingest] skipping message (topic=%s partition=%d offset=%d): %v",
				msg.Topic, msg.Partition, msg.Offset, err)
		}
	}
}

// Close, reader'ı kapatır ve group offset'lerini commit'ler.
// Graceful shutdown sırasında ctx iptalinden sonra çağrılır.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// handleMessage, tek bir topic mesajını parse edip ilgili service
// çağrısına dönüştürür. Error dönmesi mesajın atlandığı anlamına gelir —
// caller log'lar, loop devam eder.
func (c *Consumer) handleMessage(ctx context.Context, value []byte) error {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("malformed envelope: %w", err)
	}

	switch env.Type {
	case eventTypePost:
		var req models.PostEventRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return fmt.Errorf("malformed post event: %w", err)
		}
		if err := c.readStateService.ApplyPostEvent(ctx, &req); err != nil {
			return fmt.Errorf("post event failed: %w", err)
		}
		return nil

	case eventTypeRoles:
		var req models.RolesEventRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return fmt.Errorf("malformed roles event: %w", err)
		}
		if err := req.Validate(); err != nil {
			return fmt.Errorf("invalid roles event: %w", err)
		}
		roles, err := models.ParseRoles(req.Roles)
		if err != nil {
			return fmt.Errorf("invalid roles event: %w", err)
		}
		if err := c.membershipService.ReconcileRoles(ctx, req.ChannelID, req.UserID, roles); err != nil {
			return fmt.Errorf("roles event failed: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
}
