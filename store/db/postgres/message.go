package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/solarstories/chatbot/store"
)

func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	fields := []string{"uid", "conversation_id", "role", "content", "message_type", "timestamp"}
	args := []any{create.UID, create.ConversationID, string(create.Role), create.Content, string(create.Type), create.CreatedTs}

	stmt := `INSERT INTO messages (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING message_id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create message")
	}
	return create, nil
}

func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "message_id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}
	if find.Type != nil {
		where, args = append(where, "message_type = "+placeholder(len(args)+1)), append(args, string(*find.Type))
	}

	// message_id is the tiebreaker: timestamps have second resolution and
	// turns within one exchange can share one.
	query := `SELECT message_id, uid, conversation_id, role, content, message_type, timestamp
		FROM messages WHERE ` + strings.Join(where, " AND ") + ` ORDER BY timestamp ASC, message_id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		m := &store.Message{}
		var role, msgType string
		if err := rows.Scan(&m.ID, &m.UID, &m.ConversationID, &role, &m.Content, &msgType, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		m.Role = store.MessageRole(role)
		m.Type = store.MessageType(msgType)
		list = append(list, m)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate messages")
	}
	return list, nil
}
