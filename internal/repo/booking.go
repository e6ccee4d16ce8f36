package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/campusride/internal/domain"
)

// BookingRepo defines read access to bookings and the rides they reference.
// Bookings are written by an external flow, so there are no write methods.
type BookingRepo interface {
	// ListByRider returns all bookings held by riderID, newest booking first.
	ListByRider(ctx context.Context, riderID string) ([]domain.Booking, error)

	// GetRide retrieves the ride a booking points at.
	// Returns domain.ErrNotFound if it does not exist.
	GetRide(ctx context.Context, rideID uuid.UUID) (domain.BookedRide, error)
}

// pgBookingRepo is the Postgres implementation of BookingRepo.
type pgBookingRepo struct {
	db db
}

// NewBookingRepo constructs a BookingRepo backed by the provided db connection.
func NewBookingRepo(db db) BookingRepo {
	return &pgBookingRepo{db: db}
}

func (r *pgBookingRepo) ListByRider(ctx context.Context, riderID string) ([]domain.Booking, error) {
	const q = `
		SELECT id, rider_id, ride_id, status, seats_booked, booking_time
		FROM bookings
		WHERE rider_id = @rider_id
		ORDER BY booking_time DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"rider_id": riderID})
	if err != nil {
		return nil, fmt.Errorf("repo.BookingRepo.ListByRider: %w", err)
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		var (
			b          domain.Booking
			id, rideID pgtype.UUID
			status     string
		)
		if err := rows.Scan(&id, &b.RiderID, &rideID, &status, &b.SeatsBooked, &b.BookingTime); err != nil {
			return nil, fmt.Errorf("repo.BookingRepo.ListByRider: scan: %w", err)
		}
		b.ID = uuid.UUID(id.Bytes)
		b.RideID = uuid.UUID(rideID.Bytes)
		b.Status = domain.BookingStatus(status)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.BookingRepo.ListByRider: rows: %w", err)
	}
	return bookings, nil
}

func (r *pgBookingRepo) GetRide(ctx context.Context, rideID uuid.UUID) (domain.BookedRide, error) {
	const q = `
		SELECT id, status, start_date_time, end_date_time
		FROM booked_rides
		WHERE id = @id`

	var (
		ride   domain.BookedRide
		id     pgtype.UUID
		status string
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": rideID}).Scan(&id, &status, &ride.StartDateTime, &ride.EndDateTime)
	if err != nil {
		return domain.BookedRide{}, fmt.Errorf("repo.BookingRepo.GetRide: %w", translate(err))
	}
	ride.ID = uuid.UUID(id.Bytes)
	ride.Status = domain.BookedRideStatus(status)
	return ride, nil
}
