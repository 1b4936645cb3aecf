package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/solarstories/chatbot/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	infoJSON, err := marshalUsecaseInfo(create.UsecaseInfo)
	if err != nil {
		return nil, err
	}

	fields := []string{"start_time", "proficiency", "chatbot_version", "usecase", "consent_given", "usecase_specific_info"}
	args := []any{create.StartTs, create.Proficiency, create.ChatbotVersion, create.Usecase, create.ConsentGiven, infoJSON}

	stmt := `INSERT INTO conversations (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)`
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get conversation id")
	}
	create.ID = int32(id)
	return create, nil
}

func (d *DB) GetConversation(ctx context.Context, find *store.FindConversation) (*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}

	query := `SELECT conversation_id, start_time, initial_rating, final_rating, proficiency, chatbot_version, usecase, age_group, gender, highest_degree, consent_given, usecase_specific_info
		FROM conversations WHERE ` + strings.Join(where, " AND ")
	conversation, err := scanConversation(d.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get conversation")
	}
	return conversation, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}

	if update.Proficiency != nil {
		set, args = append(set, "proficiency = "+placeholder(len(args)+1)), append(args, *update.Proficiency)
	}
	if update.ConsentGiven != nil {
		set, args = append(set, "consent_given = "+placeholder(len(args)+1)), append(args, *update.ConsentGiven)
	}
	if update.InitialRating != nil {
		set, args = append(set, "initial_rating = "+placeholder(len(args)+1)), append(args, *update.InitialRating)
	}
	if update.FinalRating != nil {
		set, args = append(set, "final_rating = "+placeholder(len(args)+1)), append(args, *update.FinalRating)
	}
	if update.AgeGroup != nil {
		set, args = append(set, "age_group = "+placeholder(len(args)+1)), append(args, *update.AgeGroup)
	}
	if update.Gender != nil {
		set, args = append(set, "gender = "+placeholder(len(args)+1)), append(args, *update.Gender)
	}
	if update.HighestDegree != nil {
		set, args = append(set, "highest_degree = "+placeholder(len(args)+1)), append(args, *update.HighestDegree)
	}
	if update.UsecaseInfo != nil {
		infoJSON, err := marshalUsecaseInfo(*update.UsecaseInfo)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "usecase_specific_info = "+placeholder(len(args)+1)), append(args, infoJSON)
	}

	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE conversations SET ` + strings.Join(set, ", ") + ` WHERE conversation_id = ` + placeholder(len(args))
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update conversation")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, nil
	}

	return d.GetConversation(ctx, &store.FindConversation{ID: &update.ID})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*store.Conversation, error) {
	c := &store.Conversation{}
	var initialRating, finalRating sql.NullInt32
	var ageGroup, gender, highestDegree sql.NullString
	var infoJSON string

	if err := row.Scan(
		&c.ID, &c.StartTs, &initialRating, &finalRating, &c.Proficiency, &c.ChatbotVersion,
		&c.Usecase, &ageGroup, &gender, &highestDegree, &c.ConsentGiven, &infoJSON,
	); err != nil {
		return nil, err
	}

	if initialRating.Valid {
		c.InitialRating = &initialRating.Int32
	}
	if finalRating.Valid {
		c.FinalRating = &finalRating.Int32
	}
	if ageGroup.Valid {
		c.AgeGroup = &ageGroup.String
	}
	if gender.Valid {
		c.Gender = &gender.String
	}
	if highestDegree.Valid {
		c.HighestDegree = &highestDegree.String
	}

	if err := unmarshalUsecaseInfo(infoJSON, &c.UsecaseInfo); err != nil {
		return nil, err
	}
	return c, nil
}

func marshalUsecaseInfo(info map[string]any) (string, error) {
	if info == nil {
		info = map[string]any{}
	}
	buf, err := json.Marshal(info)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal usecase info")
	}
	return string(buf), nil
}

func unmarshalUsecaseInfo(raw string, out *map[string]any) error {
	if raw == "" {
		*out = map[string]any{}
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		// A non-object value is treated as empty, per the original behavior.
		*out = map[string]any{}
	}
	if *out == nil {
		*out = map[string]any{}
	}
	return nil
}
