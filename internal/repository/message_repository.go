package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"squadhub/internal/domain"
	"squadhub/pkg/database"
)

type messageRepository struct {
	db *database.PostgresDB
}

func NewMessageRepository(db *database.PostgresDB) MessageRepository {
	return &messageRepository{db: db}
}

// Append inserts the message. Team channel messages advance last_active in
// the same transaction and fail with domain.ErrNotFound once the team is gone.
func (r *messageRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if teamID, ok := msg.ChannelID.TeamID(); ok {
			tag, err := database.Exec(ctx, tx, database.PSQL.
				Update("recruitment_posts").
				Set("last_active", msg.CreatedAt).
				Where(sq.Eq{"id": teamID}))
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrNotFound
			}
		}
		seq, err := insertMessage(ctx, tx, msg)
		if err != nil {
			return err
		}
		msg.Seq = seq
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListRecent selects the newest rows descending and flips them
func (r *messageRepository) ListRecent(ctx context.Context, channel domain.ChannelID, limit int) ([]domain.ChatMessage, error) {
	q := database.PSQL.
		Select("id", "channel_id", "seq", "text", "sender_id", "sender_name", "is_system", "created_at").
		From("chat_messages").
		Where(sq.Eq{"channel_id": string(channel)}).
		OrderBy("created_at DESC", "seq DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := database.Query(ctx, r.db.Pool, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var ch string
		if err := rows.Scan(&m.ID, &ch, &m.Seq, &m.Text, &m.SenderID, &m.SenderName, &m.IsSystem, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.ChannelID = domain.ChannelID(ch)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func insertMessage(ctx context.Context, q database.Querier, msg *domain.ChatMessage) (int64, error) {
	var seq int64
	err := database.QueryRow(ctx, q, database.PSQL.
		Insert("chat_messages").
		Columns("id", "channel_id", "text", "sender_id", "sender_name", "is_system", "created_at").
		Values(msg.ID, string(msg.ChannelID), msg.Text, msg.SenderID, msg.SenderName, msg.IsSystem, msg.CreatedAt).
		Suffix("RETURNING seq")).Scan(&seq)
	return seq, err
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
