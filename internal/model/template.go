package model

import "time"

// QuestionType tags a closed question as one of the two IPA dimensions
type QuestionType string

const (
	QuestionTypeImportance  QuestionType = "importance"
	QuestionTypePerformance QuestionType = "performance"
)

// Valid reports whether t is one of the known dimensions
func (t QuestionType) Valid() bool {
	return t == QuestionTypeImportance || t == QuestionTypePerformance
}

// ClosedQuestion is a Likert (1-5) question inside a template
type ClosedQuestion struct {
	ID   string       `json:"id"`
	Text string       `json:"text"`
	Type QuestionType `json:"type"`
}

type OpenQuestion struct {
	Text string `json:"text"`
}

// Template is a reusable question set that tests are created from
type Template struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	ClosedQuestions []ClosedQuestion `json:"closedQuestions"`
	OpenQuestion    *OpenQuestion    `json:"openQuestion,omitempty"`
	CreatedBy       string           `json:"createdBy"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Question returns the closed question with the given id, or nil
func (t *Template) Question(id string) *ClosedQuestion {
	for i := range t.ClosedQuestions {
		if t.ClosedQuestions[i].ID == id {
			return &t.ClosedQuestions[i]
		}
	}
	return nil
}
