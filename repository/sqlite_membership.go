// Package repository — MembershipRepository'nin SQLite implementasyonu.
//
// channel_memberships tablosu servisin kalbidir: her satır bir üyenin bir
// kanaldaki okuma durumu. Yazma yolu her zaman Get → model geçişi → Update
// şeklindedir; bu dosya sadece satırları taşır, state geçiş kuralları
// models.ChannelMembership'te yaşar.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/rozet/database"
	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
)

// sqliteMembershipRepo, MembershipRepository interface'inin SQLite implementasyonu.
type sqliteMembershipRepo struct {
	db database.TxQuerier
}

// NewSQLiteMembershipRepo, constructor.
// TxQuerier alır: post fan-out tüm kanal üyelerini tek transaction içinde
// güncellediği için repo *sql.Tx üzerine de kurulabilmelidir.
func NewSQLiteMembershipRepo(db database.TxQuerier) MembershipRepository {
	return &sqliteMembershipRepo{db: db}
}

func (r *sqliteMembershipRepo) Create(ctx context.Context, m *models.ChannelMembership) error {
	query := `
		INSERT INTO channel_memberships
			(user_id, channel_id, last_post_at, last_viewed_at, manually_unread, mentions_count, message_count, roles)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		m.UserID,
		m.ChannelID,
		m.LastPostAt,
		m.LastViewedAt,
		m.ManuallyUnread,
		m.MentionsCount,
		m.MessageCount,
		models.FormatRoles(m.Roles),
	).Scan(&m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: already a member of this channel", pkg.ErrAlreadyExists)
		}
		// FK violation → kanal veya kullanıcı yok
		if containsString(err.Error(), "FOREIGN KEY constraint failed") {
			return pkg.ErrChannelNotFound
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}

	return nil
}

func (r *sqliteMembershipRepo) Get(ctx context.Context, userID, channelID string) (*models.ChannelMembership, error) {
	query := `
		SELECT user_id, channel_id, last_post_at, last_viewed_at, manually_unread,
		       mentions_count, message_count, roles, created_at, updated_at
		FROM channel_memberships
		WHERE user_id = ? AND channel_id = ?`

	m, err := scanMembership(r.db.QueryRowContext(ctx, query, userID, channelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return m, nil
}

// Update, kaydın tüm mutable alanlarını tek statement'ta yazar.
// Model geçişleri invariant'ı bellekte korur; burada satır atomik değişir,
// yarısı güncellenmiş bir kayıt hiçbir okuyucuya görünmez.
func (r *sqliteMembershipRepo) Update(ctx context.Context, m *models.ChannelMembership) error {
	query := `
		UPDATE channel_memberships
		SET last_post_at = ?, last_viewed_at = ?, manually_unread = ?,
		    mentions_count = ?, message_count = ?, roles = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND channel_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		m.LastPostAt,
		m.LastViewedAt,
		m.ManuallyUnread,
		m.MentionsCount,
		m.MessageCount,
		models.FormatRoles(m.Roles),
		m.UserID,
		m.ChannelID,
	)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrChannelNotFound
	}

	return nil
}

func (r *sqliteMembershipRepo) Delete(ctx context.Context, userID, channelID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM channel_memberships WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrChannelNotFound
	}

	return nil
}

func (r *sqliteMembershipRepo) ListForUser(ctx context.Context, userID string) ([]models.ChannelMembership, error) {
	query := `
		SELECT user_id, channel_id, last_post_at, last_viewed_at, manually_unread,
		       mentions_count, message_count, roles, created_at, updated_at
		FROM channel_memberships
		WHERE user_id = ?
		ORDER BY channel_id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships for user: %w", err)
	}
	defer rows.Close()

	var memberships []models.ChannelMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}

	return memberships, nil
}

func (r *sqliteMembershipRepo) ListMemberIDs(ctx context.Context, channelID string) ([]string, error) {
	query := `
		SELECT user_id FROM channel_memberships
		WHERE channel_id = ?
		ORDER BY user_id ASC`

	rows, err := r.db.QueryContext(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member ids: %w", err)
	}

	return ids, nil
}

func (r *sqliteMembershipRepo) ListForChannel(ctx context.Context, channelID string) ([]models.ChannelMemberInfo, error) {
	query := `
		SELECT cm.user_id, u.username, u.display_name, cm.roles, cm.created_at
		FROM channel_memberships cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.channel_id = ?
		ORDER BY u.username ASC`

	rows, err := r.db.QueryContext(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel members: %w", err)
	}
	defer rows.Close()

	var members []models.ChannelMemberInfo
	for rows.Next() {
		var info models.ChannelMemberInfo
		if err := rows.Scan(&info.UserID, &info.Username, &info.DisplayName, &info.Roles, &info.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan channel member: %w", err)
		}
		members = append(members, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate channel members: %w", err)
	}

	return members, nil
}

// Totals, kullanıcının tüm kanallarının toplamını SQL'de hesaplar.
// Unread tanımı model ile aynıdır: last_post_at > last_viewed_at VEYA manually_unread.
func (r *sqliteMembershipRepo) Totals(ctx context.Context, userID string) (models.BadgeTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN last_post_at > last_viewed_at OR manually_unread THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(mentions_count), 0)
		FROM channel_memberships
		WHERE user_id = ?`

	var totals models.BadgeTotals
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&totals.UnreadChannels, &totals.Mentions)
	if err != nil {
		return models.BadgeTotals{}, fmt.Errorf("failed to compute badge totals: %w", err)
	}

	return totals, nil
}

func (r *sqliteMembershipRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channel_memberships`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

// rowScanner, *sql.Row ve *sql.Rows'un ortak Scan method'unu soyutlar —
// tek satır ve çok satır sorguları aynı scan koduna akar.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (*models.ChannelMembership, error) {
	m := &models.ChannelMembership{}
	var roles string

	err := row.Scan(
		&m.UserID, &m.ChannelID, &m.LastPostAt, &m.LastViewedAt, &m.ManuallyUnread,
		&m.MentionsCount, &m.MessageCount, &roles, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := models.ParseRoles(roles)
	if err != nil {
		// DB'ye sadece FormatRoles ile yazılır — buraya düşmek veri bozulması demektir
		return nil, fmt.Errorf("corrupt roles column for %s/%s: %w", m.UserID, m.ChannelID, err)
	}
	m.Roles = parsed

	return m, nil
}
