package models

import "time"

type QueryRecord struct {
	ID              string
	ClientID        string
	SessionID       string
	QueryText       string
	Answer          string
	Confidence      float64
	ConfidenceLevel string
	SourceCount     int
	Refused         bool
	CreatedAt       time.Time
}

type QuerySource struct {
	ID         int
	QueryID    string
	EntityType string
	EntityID   string
	EntityName string
	DateRange  string
}

type Feedback struct {
	ID            int
	QueryID       string
	Helpful       bool
	IssueCategory string
	Comment       string
	CreatedAt     time.Time
}
