package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a Booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingPending   BookingStatus = "pending"
	BookingCancelled BookingStatus = "cancelled"
)

// BookedRideStatus is the lifecycle state of the ride a booking points at.
type BookedRideStatus string

const (
	BookedRideNotStarted         BookedRideStatus = "not_started"
	BookedRideWaitingForCustomer BookedRideStatus = "waiting_for_customer"
	BookedRideStarted            BookedRideStatus = "started"
	BookedRideFinished           BookedRideStatus = "finished"
	BookedRideCancelled          BookedRideStatus = "cancelled"
)

// Active reports whether the ride has not yet reached a terminal state.
func (s BookedRideStatus) Active() bool {
	switch s {
	case BookedRideNotStarted, BookedRideWaitingForCustomer, BookedRideStarted:
		return true
	}
	return false
}

// Terminal reports whether the ride is finished or cancelled.
func (s BookedRideStatus) Terminal() bool {
	return s == BookedRideFinished || s == BookedRideCancelled
}

// Booking is a user's reservation against a ride. Bookings are created by an
// external flow; this service only reads them.
type Booking struct {
	ID          uuid.UUID
	RiderID     string
	RideID      uuid.UUID
	Status      BookingStatus
	SeatsBooked int
	BookingTime time.Time
}

// BookedRide is the ride side of a booking.
type BookedRide struct {
	ID            uuid.UUID
	Status        BookedRideStatus
	StartDateTime time.Time
	EndDateTime   time.Time
}

// BookingView joins a booking with its ride. Ride is nil when the booking is
// not confirmed or the ride could not be loaded.
type BookingView struct {
	Booking Booking
	Ride    *BookedRide
}

// BookingPartition splits a user's bookings by whether the ride is still ahead.
type BookingPartition struct {
	Current  []BookingView
	Previous []BookingView
}

// PartitionBookings sorts views into current and previous relative to now.
//
// A view is current when its ride is active and ends after now. It is previous
// when its ride is terminal or has already ended. Views without a ride are in
// neither list, and so is an unrecognised status whose end is still ahead.
func PartitionBookings(views []BookingView, now time.Time) BookingPartition {
	p := BookingPartition{Current: []BookingView{}, Previous: []BookingView{}}
	for _, v := range views {
		if v.Ride == nil {
			continue
		}
		ended := !v.Ride.EndDateTime.After(now)
		switch {
		case v.Ride.Status.Active() && !ended:
			p.Current = append(p.Current, v)
		case v.Ride.Status.Terminal() || ended:
			p.Previous = append(p.Previous, v)
		}
	}
	return p
}
