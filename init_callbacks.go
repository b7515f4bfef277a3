// Package main — WebSocket Hub callback wire-up.
//
// registerHubCallbacks, Hub'ın ready/view/unread callback'lerini ayarlar.
//
// Bu callback'ler neden burada (main package'da)?
// Hub ws paketinde yaşıyor, ama badge hesabı service katmanında.
// Hub'ın service'lere bağımlı olmasını istemiyoruz (Dependency Inversion).
// main package wire-up noktasıdır — tüm katmanları birbirine bağlar.
//
// Client'ın channel_view / channel_unread event'leri HTTP'deki
// POST /view ve POST /unread ile AYNI service metodlarına düşer:
// hangi transport'tan gelirse gelsin geçiş kuralları tek yerde yaşar.
package main

import (
	"context"
	"log"

	"github.com/akinalp/rozet/services"
	"github.com/akinalp/rozet/ws"
)

// registerHubCallbacks, tüm Hub callback'lerini register eder.
func registerHubCallbacks(hub *ws.Hub, readStateService services.ReadStateService) {
	// Ready snapshot — bağlantı kurulduğunda client'a gönderilen ilk
	// event. Tam badge özeti taşır: client sidebar'ı sıfırdan render
	// eder, sonrasında yalnızca badge_update delta'ları uygulanır.
	hub.OnReadyData(func(userID string) any {
		badges, err := readStateService.GetSummary(context.Background(), userID)
		if err != nil {
			log.Printf("[ws] failed to build ready snapshot for %s: %v", userID, err)
			return nil
		}
		return badges
	})

	// channel_view — kullanıcı kanalı WS üzerinden açtı.
	// Sonuç badge'i ayrıca publish edilmez: RecordView zaten
	// badge_update'i kullanıcının tüm bağlantılarına push eder.
	hub.OnChannelView(func(userID, channelID string, viewedAt *int64) {
		if _, err := readStateService.RecordView(context.Background(), userID, channelID, viewedAt); err != nil {
			log.Printf("[ws] channel_view failed (user=%s channel=%s): %v", userID, channelID, err)
		}
	})

	// channel_unread — kullanıcı kanalı manuel okunmamış işaretledi.
	hub.OnChannelUnread(func(userID, channelID string) {
		if _, err := readStateService.MarkManuallyUnread(context.Background(), userID, channelID); err != nil {
			log.Printf("[ws] channel_unread failed (user=%s channel=%s): %v", userID, channelID, err)
		}
	})
}
