package store

// Conversation is one participant's full study session.
type Conversation struct {
	ID             int32
	StartTs        int64
	Proficiency    string
	ChatbotVersion string
	Usecase        string
	ConsentGiven   bool
	InitialRating  *int32
	FinalRating    *int32
	AgeGroup       *string
	Gender         *string
	HighestDegree  *string
	// UsecaseInfo is the open-ended per-use-case attribute map,
	// stored as a JSON column.
	UsecaseInfo map[string]any
}

type FindConversation struct {
	ID *int32
}

// UpdateConversation patches single columns of a conversation row.
// Nil fields are left untouched.
type UpdateConversation struct {
	ID            int32
	Proficiency   *string
	ConsentGiven  *bool
	InitialRating *int32
	FinalRating   *int32
	AgeGroup      *string
	Gender        *string
	HighestDegree *string
	UsecaseInfo   *map[string]any
}
