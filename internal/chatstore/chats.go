package chatstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"peerd/pkg/types"
)

// ListChats returns all chats, most recently updated first.
func (s *Store) ListChats(ctx context.Context) ([]types.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, model, created_at, updated_at FROM chats ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("chatstore: list chats: %w", err)
	}
	defer rows.Close()

	var out []types.Chat
	for rows.Next() {
		var c types.Chat
		if err := rows.Scan(&c.ID, &c.Title, &c.Model, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("chatstore: scan chat: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateChat inserts a new chat and returns it.
func (s *Store) CreateChat(ctx context.Context, title, model string) (types.Chat, error) {
	c := types.Chat{
		ID:        uuid.NewString(),
		Title:     title,
		Model:     model,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, title, model, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Model, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return types.Chat{}, fmt.Errorf("chatstore: create chat: %w", err)
	}
	return c, nil
}

// GetChat returns one chat and its messages in order.
func (s *Store) GetChat(ctx context.Context, id string) (types.Chat, []types.ChatMessage, error) {
	var c types.Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, model, created_at, updated_at FROM chats WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Model, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return types.Chat{}, nil, NotFoundError{Entity: "chat", Key: id}
	}
	if err != nil {
		return types.Chat{}, nil, fmt.Errorf("chatstore: get chat: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, role, content, created_at FROM messages WHERE chat_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return types.Chat{}, nil, fmt.Errorf("chatstore: get messages: %w", err)
	}
	defer rows.Close()

	var msgs []types.ChatMessage
	for rows.Next() {
		var m types.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return types.Chat{}, nil, fmt.Errorf("chatstore: scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return c, msgs, rows.Err()
}

// UpdateChat changes title and/or model association; nil leaves a field as is.
func (s *Store) UpdateChat(ctx context.Context, id string, title, model *string) (types.Chat, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE chats SET
                title = COALESCE(?, title),
                model = COALESCE(?, model),
                updated_at = CURRENT_TIMESTAMP
             WHERE id = ?`, title, model, id)
		if err != nil {
			return fmt.Errorf("chatstore: update chat: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return NotFoundError{Entity: "chat", Key: id}
		}
		return nil
	})
	if err != nil {
		return types.Chat{}, err
	}
	c, _, err := s.GetChat(ctx, id)
	return c, err
}

// DeleteChat removes a chat and, via cascade, its messages.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("chatstore: delete chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFoundError{Entity: "chat", Key: id}
	}
	return nil
}

// AddMessage appends a message to a chat and bumps the chat's updated_at.
func (s *Store) AddMessage(ctx context.Context, chatID, role, content string) (types.ChatMessage, error) {
	m := types.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM chats WHERE id = ?`, chatID).Scan(&exists); err != nil {
			return fmt.Errorf("chatstore: check chat: %w", err)
		}
		if exists == 0 {
			return NotFoundError{Entity: "chat", Key: chatID}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.ChatID, m.Role, m.Content, m.CreatedAt); err != nil {
			return fmt.Errorf("chatstore: add message: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE chats SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, chatID); err != nil {
			return fmt.Errorf("chatstore: touch chat: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.ChatMessage{}, err
	}
	return m, nil
}

// DeleteMessage removes one message from a chat.
func (s *Store) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id = ? AND chat_id = ?`, messageID, chatID)
	if err != nil {
		return fmt.Errorf("chatstore: delete message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFoundError{Entity: "message", Key: messageID}
	}
	return nil
}
