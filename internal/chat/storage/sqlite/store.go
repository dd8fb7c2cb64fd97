// Package sqlite provides SQLite-backed persistence for chat transcripts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/relooped/supportchat/internal/chat/storage"
	"github.com/relooped/supportchat/internal/chat/storage/sqlite/migrations"
	"github.com/relooped/supportchat/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for chat transcripts.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a transcript store at the provided path and applies embedded
// migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// SaveTranscript atomically replaces the stored transcript for the room.
func (s *Store) SaveTranscript(ctx context.Context, transcript storage.Transcript) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	roomID := strings.TrimSpace(transcript.RoomID)
	if roomID == "" {
		return fmt.Errorf("room id is required")
	}
	if strings.TrimSpace(transcript.CustomerRef) == "" {
		return fmt.Errorf("customer ref is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transcript transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO transcripts (room_id, customer_ref, customer_name, admin_ref, admin_name, support_type, description, ended_by, started_at, ended_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(room_id) DO UPDATE SET
    admin_ref = excluded.admin_ref,
    admin_name = excluded.admin_name,
    ended_by = excluded.ended_by,
    ended_at = excluded.ended_at`,
		roomID,
		transcript.CustomerRef,
		transcript.CustomerName,
		transcript.AdminRef,
		transcript.AdminName,
		transcript.SupportType,
		transcript.Description,
		transcript.EndedBy,
		toMillis(transcript.StartedAt),
		toMillis(transcript.EndedAt),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert transcript %s: %w", roomID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM transcript_messages WHERE room_id = ?", roomID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear transcript messages %s: %w", roomID, err)
	}
	for seq, message := range transcript.Messages {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO transcript_messages (room_id, seq, message_id, sender_type, body, sent_at)
VALUES (?, ?, ?, ?, ?, ?)`,
			roomID,
			seq,
			message.MessageID,
			message.SenderType,
			message.Body,
			toMillis(message.SentAt),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert transcript message %s/%d: %w", roomID, seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transcript %s: %w", roomID, err)
	}
	return nil
}

// GetTranscript loads one stored transcript with its ordered message log.
func (s *Store) GetTranscript(ctx context.Context, roomID string) (storage.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return storage.Transcript{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Transcript{}, fmt.Errorf("storage is not configured")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return storage.Transcript{}, fmt.Errorf("room id is required")
	}

	var transcript storage.Transcript
	var startedAt, endedAt int64
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT room_id, customer_ref, customer_name, admin_ref, admin_name, support_type, description, ended_by, started_at, ended_at
FROM transcripts WHERE room_id = ?`, roomID)
	err := row.Scan(
		&transcript.RoomID,
		&transcript.CustomerRef,
		&transcript.CustomerName,
		&transcript.AdminRef,
		&transcript.AdminName,
		&transcript.SupportType,
		&transcript.Description,
		&transcript.EndedBy,
		&startedAt,
		&endedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.Transcript{}, storage.ErrNotFound
		}
		return storage.Transcript{}, fmt.Errorf("scan transcript %s: %w", roomID, err)
	}
	transcript.StartedAt = fromMillis(startedAt)
	transcript.EndedAt = fromMillis(endedAt)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT message_id, sender_type, body, sent_at
FROM transcript_messages WHERE room_id = ? ORDER BY seq`, roomID)
	if err != nil {
		return storage.Transcript{}, fmt.Errorf("query transcript messages %s: %w", roomID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var message storage.Message
		var sentAt int64
		if err := rows.Scan(&message.MessageID, &message.SenderType, &message.Body, &sentAt); err != nil {
			return storage.Transcript{}, fmt.Errorf("scan transcript message: %w", err)
		}
		message.SentAt = fromMillis(sentAt)
		transcript.Messages = append(transcript.Messages, message)
	}
	if err := rows.Err(); err != nil {
		return storage.Transcript{}, fmt.Errorf("iterate transcript messages: %w", err)
	}
	return transcript, nil
}
