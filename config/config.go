// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Tüm ayarlar tek bir Config nesnesinde toplanır — her yerde ayrı ayrı
// os.Getenv() çağırmak yerine main.go wire-up sırasında bir kez yüklenir
// ve ihtiyaç duyan katmanlara alan alan dağıtılır.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — her struct tek bir concern'ü temsil eder.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Email    EmailConfig
	Ingest   IngestConfig
	Kafka    KafkaConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/rozet.db)
}

// JWTConfig, JWT token ayarları.
type JWTConfig struct {
	Secret             string // Token imzalama anahtarı — GİZLİ TUTULMALI
	AccessTokenExpiry  int    // Dakika cinsinden (varsayılan: 15)
	RefreshTokenExpiry int    // Gün cinsinden (varsayılan: 7)
}

// EmailConfig, şifre sıfırlama email'leri için Resend ayarları.
// ResendAPIKey boşsa email gönderimi devre dışıdır — reset token
// log'a düşer (lokal geliştirme senaryosu).
type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string // Resend'de doğrulanmış domain altında olmalı
	AppURL       string // Reset linklerinde kullanılan public URL
}

// IngestConfig, chat backend'in event beslediği ingest API ayarları.
// Token, X-Ingest-Token header'ı ile karşılaştırılan shared secret'tır.
type IngestConfig struct {
	Token string
}

// KafkaConfig, opsiyonel Kafka ingest consumer ayarları.
// Brokers boşsa consumer başlatılmaz — event'ler yalnızca HTTP
// ingest endpoint'lerinden gelir.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Enabled, Kafka consumer'ın başlatılıp başlatılmayacağını söyler.
func (c *KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
//
// JWT_SECRET ve INGEST_TOKEN zorunludur — ikisi de yoksa uygulama
// hiç başlamadan hata verir. Yanlışlıkla secret'sız production
// deploy'u bu şekilde engellenir.
func Load() (*Config, error) {
	// .env dosyasını yükle — dosya yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9092"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	accessExpiry, err := strconv.Atoi(getEnv("JWT_ACCESS_EXPIRY_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRY_MINUTES: %w", err)
	}

	refreshExpiry, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRY_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRY_DAYS: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	ingestToken := getEnv("INGEST_TOKEN", "")
	if ingestToken == "" {
		return nil, fmt.Errorf("INGEST_TOKEN environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/rozet.db"),
		},
		JWT: JWTConfig{
			Secret:             jwtSecret,
			AccessTokenExpiry:  accessExpiry,
			RefreshTokenExpiry: refreshExpiry,
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("EMAIL_FROM", ""),
			AppURL:       getEnv("APP_URL", ""),
		},
		Ingest: IngestConfig{
			Token: ingestToken,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "rozet-events"),
			GroupID: getEnv("KAFKA_GROUP_ID", "rozet"),
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9092").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// splitList, virgülle ayrılmış env değerini listeye çevirir.
// Boş girdiler atlanır: "a, ,b" → ["a", "b"], "" → nil.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
