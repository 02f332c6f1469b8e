package models

import "time"

// Result is the immutable record of one successful solve.
type Result struct {
	ID         string
	UserID     string
	InputRef   string
	OutputText string
	CreatedAt  time.Time
	ExpiresAt  *time.Time
}
