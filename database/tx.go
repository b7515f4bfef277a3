// Package database — Transaction yönetimi.
//
// WithTx, birden fazla DB operasyonunun atomik (all-or-nothing)
// çalışmasını sağlar. Bu servisteki ana kullanıcı post fan-out'udur:
// bir post event'i kanalın N üyelik kaydına dokunur ve üyelerin yarısı
// güncellenmiş bir kanal asla görünmemelidir — ya hepsi ya hiçbiri.
//
// Kullanım:
//
//	err := database.WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
//	    repo := repository.NewSQLiteMembershipRepo(tx)
//	    // ... her üye için oku-dönüştür-yaz; error dönersen ROLLBACK
//	    return nil // → COMMIT
//	})
//
// Repository'ler *sql.DB yerine TxQuerier interface'i kabul eder —
// normal operasyonlarda *sql.DB, fan-out içinde *sql.Tx geçilir,
// aynı SQL kodu iki modda da çalışır.
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxQuerier, hem *sql.DB hem *sql.Tx tarafından karşılanan interface.
//
// database/sql bu interface'i tanımlamaz; biz tanımlarız ve Go'nun
// implicit interface'leri sayesinde iki tip de otomatik karşılar.
type TxQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx, verilen fonksiyonu bir SQL transaction içinde çalıştırır.
//
// fn nil dönerse COMMIT, error dönerse ROLLBACK. fn panic atarsa
// ROLLBACK yapılır ve panic tekrar fırlatılır — rollback yapılmadan
// açık kalan bir transaction SQLite'ta yazma lock'unu tutmaya devam
// eder ve sonraki tüm yazmaları bloklar.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}

		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return
}
