package model

import "time"

// GroupTest is a test assignment on a group
type GroupTest struct {
	TestID     string     `json:"testId"`
	AssignedAt time.Time  `json:"assignedAt"`
	DueAt      *time.Time `json:"dueAt,omitempty"`
}

type Group struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Members     []string    `json:"members"`
	Tests       []GroupTest `json:"tests"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// HasMember reports whether userID belongs to the group
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// GroupSummary is the list view of a group
type GroupSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MemberCount int       `json:"memberCount"`
	TestCount   int       `json:"testCount"`
	CreatedAt   time.Time `json:"createdAt"`
}
