// Package models contains the domain structures shared by the storage layer,
// the provider adapters and the business services: users, ledger payments,
// normalized vendor orders and import statistics.
package models

import "time"

// User is an identity record. The unique key is the lower-cased e-mail;
// users are created either through registration or on first sight of a paid
// vendor order carrying their e-mail.
type User struct {
	UID           string        // Opaque identifier (UUID)
	Email         string        // Stored lower-cased, unique
	Username      string        // Unique login name; synthesized for imported users
	Name          *string       // Display name, nil until known
	Image         *string       // Avatar URL, nil until known
	PasswordHash  *string       // nil for users created by import
	Role          string        // "admin" or "user"
	EmailVerified *time.Time    // Set on registration or first paid order
	Metadata      *UserMetadata // Provider linkage and last-payment info
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
