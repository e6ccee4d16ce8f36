package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/repo"
)

// BookingService builds the rider-facing view of bookings.
type BookingService struct {
	bookings repo.BookingRepo
	opts     options
}

// NewBookingService constructs a BookingService backed by the provided repo.
func NewBookingService(bookings repo.BookingRepo, opts ...Option) *BookingService {
	return &BookingService{bookings: bookings, opts: newOptions(opts)}
}

// ListForRider loads riderID's bookings, joins confirmed ones with their
// ride, and partitions them into current and previous.
//
// Unconfirmed bookings and bookings whose ride no longer exists carry no ride
// and so appear in neither list. Any other load failure is returned.
func (s *BookingService) ListForRider(ctx context.Context, riderID string) (domain.BookingPartition, error) {
	bookings, err := s.bookings.ListByRider(ctx, riderID)
	if err != nil {
		return domain.BookingPartition{}, fmt.Errorf("service.BookingService.ListForRider: %w", err)
	}

	views := make([]domain.BookingView, 0, len(bookings))
	for _, b := range bookings {
		v := domain.BookingView{Booking: b}
		if b.Status == domain.BookingConfirmed {
			ride, err := s.bookings.GetRide(ctx, b.RideID)
			switch {
			case err == nil:
				v.Ride = &ride
			case errors.Is(err, domain.ErrNotFound):
				s.opts.log.WarnContext(ctx, "booking references missing ride", "booking_id", b.ID, "ride_id", b.RideID)
			default:
				return domain.BookingPartition{}, fmt.Errorf("service.BookingService.ListForRider: %w", err)
			}
		}
		views = append(views, v)
	}

	return domain.PartitionBookings(views, s.opts.now()), nil
}
