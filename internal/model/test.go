package model

import "time"

// Test is a time-windowed instance of a template
type Test struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TemplateID  string    `json:"templateId"`
	CreatedBy   string    `json:"createdBy"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TestWithTemplate is what a respondent needs to render a test
type TestWithTemplate struct {
	Test     *Test     `json:"test"`
	Template *Template `json:"template"`
}

// TestPage is one page of an admin test listing
type TestPage struct {
	Items       []*Test `json:"items"`
	Total       int64   `json:"total"`
	Page        int     `json:"page"`
	RowsPerPage int     `json:"rowsPerPage"`
}
