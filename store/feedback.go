package store

// Feedback is a free-text end-of-session submission, optionally star-rated.
// A conversation may have zero, one, or many feedback rows; submissions are
// not deduplicated. ConversationID may be nil for degraded paths where no
// conversation is active.
type Feedback struct {
	ID             int32
	ConversationID *int32
	Text           string
	Rating         *int32
	CreatedTs      int64
}

type FindFeedback struct {
	ConversationID *int32
}
