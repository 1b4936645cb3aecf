package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/solarstories/chatbot/internal/errors"
	"github.com/solarstories/chatbot/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// CreateConversation inserts one conversation row and returns it with the
// assigned ID.
func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	if create.StartTs == 0 {
		create.StartTs = time.Now().Unix()
	}
	conversation, err := s.driver.CreateConversation(ctx, create)
	if err != nil {
		return nil, errors.Persistence("failed to create conversation", err)
	}
	return conversation, nil
}

// GetConversation returns the matching conversation or a NotFound error.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	conversation, err := s.driver.GetConversation(ctx, find)
	if err != nil {
		return nil, errors.Persistence("failed to get conversation", err)
	}
	if conversation == nil {
		return nil, errors.NotFound("conversation not found")
	}
	return conversation, nil
}

// CreateMessage appends one message to an existing conversation.
func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	if create.Content == "" {
		return nil, errors.Validation("message content must not be empty")
	}
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	// Surface a missing conversation as NotFound rather than a driver-specific
	// foreign-key violation.
	if _, err := s.GetConversation(ctx, &FindConversation{ID: &create.ConversationID}); err != nil {
		return nil, err
	}
	message, err := s.driver.CreateMessage(ctx, create)
	if err != nil {
		return nil, errors.Persistence("failed to create message", err)
	}
	return message, nil
}

// ListMessages returns messages in insertion order.
func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	messages, err := s.driver.ListMessages(ctx, find)
	if err != nil {
		return nil, errors.Persistence("failed to list messages", err)
	}
	return messages, nil
}

// CreateFeedback inserts one feedback row. The conversation reference is
// optional; feedback may arrive without an active conversation.
func (s *Store) CreateFeedback(ctx context.Context, create *Feedback) (*Feedback, error) {
	if create.Text == "" {
		return nil, errors.Validation("feedback text must not be empty")
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	feedback, err := s.driver.CreateFeedback(ctx, create)
	if err != nil {
		return nil, errors.Persistence("failed to create feedback", err)
	}
	return feedback, nil
}

// ListFeedback returns feedback rows in insertion order.
func (s *Store) ListFeedback(ctx context.Context, find *FindFeedback) ([]*Feedback, error) {
	feedback, err := s.driver.ListFeedback(ctx, find)
	if err != nil {
		return nil, errors.Persistence("failed to list feedback", err)
	}
	return feedback, nil
}

// SetInitialRating records the initial confidence rating. The write is an
// unconditional overwrite; a repeated submit replaces the previous value.
func (s *Store) SetInitialRating(ctx context.Context, conversationID int32, value int32) error {
	_, err := s.updateExisting(ctx, &UpdateConversation{ID: conversationID, InitialRating: &value})
	return err
}

// SetFinalRating records the final confidence rating, overwriting any
// previous value.
func (s *Store) SetFinalRating(ctx context.Context, conversationID int32, value int32) error {
	_, err := s.updateExisting(ctx, &UpdateConversation{ID: conversationID, FinalRating: &value})
	return err
}

// UpdateDemographics patches the demographic snapshot and the consent flag.
func (s *Store) UpdateDemographics(ctx context.Context, conversationID int32, ageGroup, gender, highestDegree *string, consentGiven bool) error {
	_, err := s.updateExisting(ctx, &UpdateConversation{
		ID:            conversationID,
		AgeGroup:      ageGroup,
		Gender:        gender,
		HighestDegree: highestDegree,
		ConsentGiven:  &consentGiven,
	})
	return err
}

// MergeUsecaseInfo shallow-merges the partial map over the stored use-case
// attributes and returns the merged result. New keys overwrite same-named
// existing keys; all other keys survive.
//
// This is a read-modify-write without a row lock. Two concurrent merges on the
// same conversation can lose one side's keys; the study flow is single-writer
// per session, so the race is accepted.
func (s *Store) MergeUsecaseInfo(ctx context.Context, conversationID int32, partial map[string]any) (map[string]any, error) {
	conversation, err := s.GetConversation(ctx, &FindConversation{ID: &conversationID})
	if err != nil {
		return nil, err
	}

	merged := make(map[string]any, len(conversation.UsecaseInfo)+len(partial))
	for k, v := range conversation.UsecaseInfo {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}

	if _, err := s.updateExisting(ctx, &UpdateConversation{ID: conversationID, UsecaseInfo: &merged}); err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *Store) updateExisting(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	conversation, err := s.driver.UpdateConversation(ctx, update)
	if err != nil {
		return nil, errors.Persistence("failed to update conversation", err)
	}
	if conversation == nil {
		return nil, errors.NotFound("conversation not found")
	}
	return conversation, nil
}
