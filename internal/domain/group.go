// Package domain contains the core data types for the campus rides API.
// It has no dependencies on the database or HTTP layers and is imported by
// every other internal package (repo, service, handler).
package domain

import (
	"slices"
	"time"
)

// GroupIDLength is the number of characters in a generated group id.
const GroupIDLength = 10

// Group is a named set of users coordinating rides toward a shared destination.
// OwnerID is always present in Members once the group exists.
type Group struct {
	ID          string
	Name        string
	Destination string
	Description string
	Color       string
	ImageURL    *string // nil until an image upload completes
	OwnerID     string
	Members     []string
	Version     int64
	CreatedAt   time.Time
}

// HasMember reports whether userID is in the member list.
func (g Group) HasMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}

// NewGroup carries the user-supplied fields for group creation.
// Image is optional; when set it is uploaded before the group is written.
type NewGroup struct {
	Name        string
	Destination string
	Description string
	Color       string
	OwnerID     string
	Image       *Upload
}
