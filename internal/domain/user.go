package domain

import "time"

// User is the locally cached profile of an account held by the external
// auth provider. It is refreshed from token claims on every request.
type User struct {
	ID            string
	Name          string
	Email         string
	ProfilePicURL *string
	UpdatedAt     time.Time
}

// AsRider returns the roster representation of the user.
func (u User) AsRider() Rider {
	return Rider{ID: u.ID, Name: u.Name, ProfilePicURL: u.ProfilePicURL}
}
