// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account. The solve path only needs ID and Role; the rest mirrors
// what the account collaborator stores.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
	LastLogin time.Time

	Entitlement
}
