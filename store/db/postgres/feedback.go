package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/solarstories/chatbot/store"
)

func (d *DB) CreateFeedback(ctx context.Context, create *store.Feedback) (*store.Feedback, error) {
	var conversationID sql.NullInt32
	if create.ConversationID != nil {
		conversationID = sql.NullInt32{Int32: *create.ConversationID, Valid: true}
	}
	var rating sql.NullInt32
	if create.Rating != nil {
		rating = sql.NullInt32{Int32: *create.Rating, Valid: true}
	}

	fields := []string{"conversation_id", "feedback_text", "rating", "timestamp"}
	args := []any{conversationID, create.Text, rating, create.CreatedTs}

	stmt := `INSERT INTO feedback (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING feedback_id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create feedback")
	}
	return create, nil
}

func (d *DB) ListFeedback(ctx context.Context, find *store.FindFeedback) ([]*store.Feedback, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}

	query := `SELECT feedback_id, conversation_id, feedback_text, rating, timestamp
		FROM feedback WHERE ` + strings.Join(where, " AND ") + ` ORDER BY timestamp ASC, feedback_id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list feedback")
	}
	defer rows.Close()

	list := make([]*store.Feedback, 0)
	for rows.Next() {
		f := &store.Feedback{}
		var conversationID, rating sql.NullInt32
		if err := rows.Scan(&f.ID, &conversationID, &f.Text, &rating, &f.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan feedback")
		}
		if conversationID.Valid {
			f.ConversationID = &conversationID.Int32
		}
		if rating.Valid {
			f.Rating = &rating.Int32
		}
		list = append(list, f)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate feedback")
	}
	return list, nil
}
