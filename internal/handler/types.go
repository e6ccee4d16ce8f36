package handler

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/live"
)

// Group is the API representation of domain.Group.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	ImageURL    *string   `json:"image_url"`
	OwnerID     string    `json:"owner_id"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

// GroupRequest is the JSON form of a create-group request. Multipart
// requests carry the same fields plus an optional image part.
type GroupRequest struct {
	Name        string `json:"name"`
	Destination string `json:"destination"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// Rider is the API representation of a roster entry.
type Rider struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ProfilePicURL *string `json:"profile_pic_url,omitempty"`
}

// Ride is the API representation of domain.Ride with its derived seat state.
type Ride struct {
	ID            openapi_types.UUID `json:"id"`
	GroupID       string             `json:"group_id"`
	Driver        Rider              `json:"driver"`
	CarID         string             `json:"car_id"`
	MaxRiders     int                `json:"max_riders"`
	Riders        []Rider            `json:"riders"`
	Vibe          string             `json:"vibe"`
	StartDateTime string             `json:"start_date_time"`
	SeatsLeft     int                `json:"seats_left"`
	Full          bool               `json:"full"`
	CreatedAt     time.Time          `json:"created_at"`
}

// RideRequest is the body of create-ride and edit-ride requests.
type RideRequest struct {
	CarID         string `json:"car_id"`
	MaxRiders     int    `json:"max_riders"`
	Vibe          string `json:"vibe"`
	StartDateTime string `json:"start_date_time"`
}

// List is a page of results. NextCursor is omitted on the last page.
type List[T any] struct {
	Data       []T    `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// BookedRide is the ride side of a booking.
type BookedRide struct {
	ID            openapi_types.UUID `json:"id"`
	Status        string             `json:"status"`
	StartDateTime time.Time          `json:"start_date_time"`
	EndDateTime   time.Time          `json:"end_date_time"`
}

// Booking is one entry of a rider's booking list.
type Booking struct {
	ID          openapi_types.UUID `json:"id"`
	RideID      openapi_types.UUID `json:"ride_id"`
	Status      string             `json:"status"`
	SeatsBooked int                `json:"seats_booked"`
	BookingTime time.Time          `json:"booking_time"`
	Ride        *BookedRide        `json:"ride"`
}

// Bookings is the partitioned booking list.
type Bookings struct {
	Current  []Booking `json:"current"`
	Previous []Booking `json:"previous"`
}

// LiveMessage is one frame sent on a live ride socket.
type LiveMessage struct {
	Type   string             `json:"type"`
	RideID openapi_types.UUID `json:"ride_id"`
	Ride   *Ride              `json:"ride,omitempty"`
}

func groupToResponse(g domain.Group) Group {
	members := g.Members
	if members == nil {
		members = []string{}
	}
	return Group{
		ID:          g.ID,
		Name:        g.Name,
		Destination: g.Destination,
		Description: g.Description,
		Color:       g.Color,
		ImageURL:    g.ImageURL,
		OwnerID:     g.OwnerID,
		Members:     members,
		CreatedAt:   g.CreatedAt,
	}
}

func riderToResponse(r domain.Rider) Rider {
	return Rider{ID: r.ID, Name: r.Name, ProfilePicURL: r.ProfilePicURL}
}

func rideToResponse(r domain.Ride) Ride {
	riders := make([]Rider, len(r.Riders))
	for i, x := range r.Riders {
		riders[i] = riderToResponse(x)
	}
	return Ride{
		ID:            r.ID,
		GroupID:       r.GroupID,
		Driver:        riderToResponse(r.Driver),
		CarID:         r.CarID,
		MaxRiders:     r.MaxRiders,
		Riders:        riders,
		Vibe:          r.Vibe,
		StartDateTime: r.StartDateTime,
		SeatsLeft:     r.SeatsLeft(),
		Full:          r.IsFull(),
		CreatedAt:     r.CreatedAt,
	}
}

func bookingsToResponse(views []domain.BookingView) []Booking {
	out := make([]Booking, len(views))
	for i, v := range views {
		b := Booking{
			ID:          v.Booking.ID,
			RideID:      v.Booking.RideID,
			Status:      string(v.Booking.Status),
			SeatsBooked: v.Booking.SeatsBooked,
			BookingTime: v.Booking.BookingTime,
		}
		if v.Ride != nil {
			b.Ride = &BookedRide{
				ID:            v.Ride.ID,
				Status:        string(v.Ride.Status),
				StartDateTime: v.Ride.StartDateTime,
				EndDateTime:   v.Ride.EndDateTime,
			}
		}
		out[i] = b
	}
	return out
}

func liveToMessage(ev live.Event) LiveMessage {
	msg := LiveMessage{Type: string(ev.Type), RideID: ev.RideID}
	if ev.Ride != nil {
		r := rideToResponse(*ev.Ride)
		msg.Ride = &r
	}
	return msg
}
