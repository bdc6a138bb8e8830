package models

import (
	"time"
)

// Event types published to the notification broker
const (
	EventUserRegistered = "user.registered"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
)

// Event is a broadcast notification about a user account change
type Event struct {
	Type   string    `json:"type"`
	UserID int64     `json:"user_id"`
	Name   string    `json:"name,omitempty"`
	At     time.Time `json:"at"`
}
