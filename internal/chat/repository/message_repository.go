package repository

import (
	"context"

	"petshop_service/internal/chat/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// MessageRepository definition chats table store
type MessageRepository interface {
	// Insert 寫入一筆訊息, 回填 server 配發的 id
	Insert(ctx context.Context, msg *domain.Message) error
	// FindConversation 雙向 OR 查詢, created_at 升冪
	FindConversation(ctx context.Context, userA, userB string) ([]domain.Message, error)
	// MarkConversationRead sender→receiver 方向的未讀全部改已讀, 回傳筆數
	MarkConversationRead(ctx context.Context, senderID, receiverID string) (int64, error)
	// CountUnread receiver 視角的未讀數
	CountUnread(ctx context.Context, receiverID, senderID string) (int, error)
	// FindAll 全表掃描, admin 端 unread bucketing 用
	FindAll(ctx context.Context) ([]domain.Message, error)
	// ListCorrespondentIDs 與 admin 對話過的 customer id 集合
	ListCorrespondentIDs(ctx context.Context, adminID string) ([]string, error)
}

type messageRepository struct {
	db *pgxpool.Pool
}

// NewPgMessageRepository create a MessageRepository
func NewPgMessageRepository(db *pgxpool.Pool) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO chats(sender_id, receiver_id, message, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		msg.SenderID, msg.ReceiverID, msg.Content, msg.IsRead, msg.CreatedAt,
	)
	return row.Scan(&msg.ID)
}

func (r *messageRepository) FindConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, sender_id, receiver_id, message, is_read, created_at
		 FROM chats
		 WHERE (sender_id = $1 AND receiver_id = $2)
		    OR (sender_id = $2 AND receiver_id = $1)
		 ORDER BY created_at ASC`,
		userA, userB,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE chats SET is_read = TRUE
		 WHERE sender_id = $1 AND receiver_id = $2 AND is_read = FALSE`,
		senderID, receiverID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *messageRepository) CountUnread(ctx context.Context, receiverID, senderID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM chats
		 WHERE receiver_id = $1 AND sender_id = $2 AND is_read = FALSE`,
		receiverID, senderID,
	).Scan(&count)
	return count, err
}

func (r *messageRepository) FindAll(ctx context.Context) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, sender_id, receiver_id, message, is_read, created_at FROM chats`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *messageRepository) ListCorrespondentIDs(ctx context.Context, adminID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT sender_id FROM chats WHERE receiver_id = $1 AND sender_id <> $1
		 UNION
		 SELECT DISTINCT receiver_id FROM chats WHERE sender_id = $1 AND receiver_id <> $1`,
		adminID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
