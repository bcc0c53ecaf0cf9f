// Package pg persists message records in postgres. The append timestamp is
// assigned by the database, never by the client.
package pg

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/quill-chat/quill/internal/config"
	"github.com/quill-chat/quill/internal/domain"
)

type Storage struct {
	db *sql.DB
}

func New(cfg config.Pg, password string) (*Storage, error) {
	db, err := Connect(cfg, password)
	if err != nil {
		return nil, err
	}
	s := &Storage{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func Connect(cfg config.Pg, password string) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, password, cfg.Dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	return db, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

// The check constraint mirrors the record invariant: content XOR image_ref.
func (s *Storage) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			channel_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			author_name TEXT NOT NULL,
			author_avatar TEXT NOT NULL DEFAULT '',
			content TEXT,
			image_ref TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK ((content IS NULL) <> (image_ref IS NULL))
		)`)
	if err != nil {
		return fmt.Errorf("ensure messages table: %w", err)
	}
	return nil
}

func (s *Storage) AppendRecord(ctx context.Context, channel domain.ChannelId, msg domain.Message) error {
	content := sql.NullString{String: msg.Content, Valid: !msg.IsImage()}
	imageRef := sql.NullString{String: msg.ImageRef, Valid: msg.IsImage()}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (channel_id, author_id, author_name, author_avatar, content, image_ref)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		channel, msg.Author.Id, msg.Author.Name, msg.Author.AvatarRef, content, imageRef)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}
