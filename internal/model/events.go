package model

import "time"

// TopicResponseSubmitted carries ResponseSubmittedEvent payloads
const TopicResponseSubmitted = "responses.submitted"

// ResponseSubmittedEvent is published after a response has been stored
type ResponseSubmittedEvent struct {
	ResponseID  string    `json:"responseId"`
	TestID      string    `json:"testId"`
	UserID      string    `json:"userId"`
	AnswerCount int       `json:"answerCount"`
	SubmittedAt time.Time `json:"submittedAt"`
}
