package model

import "time"

type ClosedAnswer struct {
	QuestionID string `json:"questionId"`
	Value      int    `json:"value"`
}

// Response is one user's submission for a test. At most one exists per (test, user).
type Response struct {
	ID            string         `json:"id"`
	TestID        string         `json:"testId"`
	UserID        string         `json:"userId"`
	ClosedAnswers []ClosedAnswer `json:"closedAnswers"`
	OpenAnswer    *string        `json:"openAnswer"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// RawAnswer is a stored closed answer as read back for aggregation.
// Value keeps whatever BSON type was persisted so legacy or hand-edited
// documents can be filtered instead of failing the whole read.
type RawAnswer struct {
	QuestionID string
	Value      interface{}
}
