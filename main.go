// Package main, rozet backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Database'i başlat (embedded migration'lar ile)
//  3. Repository'leri oluştur (DB bağlantısı ile)
//  4. WebSocket Hub'ı başlat
//  5. Service'leri oluştur (repository'ler + hub ile)
//  6. Hub callback'lerini bağla
//  7. Handler'ları oluştur (service'ler ile)
//  8. HTTP router'ı kur, route'ları bağla
//  9. Kafka consumer'ı başlat (konfigüre edilmişse)
//
// 10. CORS yapılandır
// 11. HTTP Server'ı başlat
// 12. Graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/rozet/config"
	"github.com/akinalp/rozet/database"
	"github.com/akinalp/rozet/ingest"
	"github.com/akinalp/rozet/ws"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] rozet server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	// ─── 2. Database ───
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		log.Fatalf("[main] failed to load embedded migrations: %v", err)
	}

	db, err := database.New(cfg.Database.Path, migrations)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Repository Layer ───
	repos := initRepositories(db.Conn)

	// ─── 4. WebSocket Hub ───
	hub := ws.NewHub()
	go hub.Run()

	// ─── 5. Service Layer ───
	svcs, limiters := initServices(db.Conn, repos, hub, cfg)

	// ─── 6. Hub Callbacks ───
	// Callback'ler service'lerden SONRA bağlanır — ready snapshot ve
	// view/unread geçişleri ReadStateService üzerinden akar.
	registerHubCallbacks(hub, svcs.ReadState)

	// ─── 7. Handler Layer ───
	h := initHandlers(svcs, repos, limiters, hub)

	// ─── 8. Routes ───
	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Auth, repos, cfg.Ingest.Token)

	// ─── 9. Kafka Consumer (opsiyonel) ───
	// Chat backend event'leri bir topic'e yazıyorsa buradan akar;
	// yazmıyorsa HTTP ingest endpoint'leri tek kaynaktır.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	var consumer *ingest.Consumer
	if cfg.Kafka.Enabled() {
		consumer = ingest.NewConsumer(cfg.Kafka, svcs.ReadState, svcs.Membership)
		go consumer.Run(consumerCtx)
		log.Printf("[main] kafka ingest enabled (brokers=%v topic=%s)", cfg.Kafka.Brokers, cfg.Kafka.Topic)
	} else {
		log.Println("[main] kafka ingest disabled — http ingest only")
	}

	// ─── 10. CORS ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:1420", "tauri://localhost"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Ingest-Token"},
		AllowCredentials: true,
	})

	handler := corsHandler.Handler(mux)

	// ─── 11. HTTP Server ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 12. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Sıra önemli: önce consumer durur (yeni event gelmesin), sonra WS
	// bağlantıları kapanır (client'lar "server shutting down" bilir),
	// en son HTTP server mevcut request'lerin bitmesini bekler.
	if consumer != nil {
		stopConsumer()
		if err := consumer.Close(); err != nil {
			log.Printf("[main] kafka consumer close error: %v", err)
		}
	}

	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
