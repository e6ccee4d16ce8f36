package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/repo"
)

// seedBooking inserts a booked ride and one booking against it. Bookings are
// written by an external flow so the repo has no insert method of its own.
func seedBooking(t *testing.T, tx pgx.Tx, riderID string, status domain.BookingStatus, at time.Time) (bookingID, rideID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	err := tx.QueryRow(ctx, `
		INSERT INTO booked_rides (status, start_date_time, end_date_time)
		VALUES ('not_started', @start, @end)
		RETURNING id`,
		pgx.NamedArgs{"start": at, "end": at.Add(time.Hour)},
	).Scan(&rideID)
	require.NoError(t, err)

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (rider_id, ride_id, status, seats_booked, booking_time)
		VALUES (@rider_id, @ride_id, @status, 1, @at)
		RETURNING id`,
		pgx.NamedArgs{"rider_id": riderID, "ride_id": rideID, "status": string(status), "at": at},
	).Scan(&bookingID)
	require.NoError(t, err)
	return bookingID, rideID
}

func TestBookingRepo_ListByRider(t *testing.T) {
	tx := newTx(t)
	r := repo.NewBookingRepo(tx)
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	older, _ := seedBooking(t, tx, "u1", domain.BookingConfirmed, base)
	newer, _ := seedBooking(t, tx, "u1", domain.BookingPending, base.Add(24*time.Hour))
	seedBooking(t, tx, "u2", domain.BookingConfirmed, base)

	got, err := r.ListByRider(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer, got[0].ID)
	assert.Equal(t, older, got[1].ID)
	assert.Equal(t, domain.BookingPending, got[0].Status)
}

func TestBookingRepo_ListByRider_Empty(t *testing.T) {
	r := repo.NewBookingRepo(newTx(t))

	got, err := r.ListByRider(context.Background(), "nobody")

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBookingRepo_GetRide(t *testing.T) {
	tx := newTx(t)
	r := repo.NewBookingRepo(tx)
	at := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	_, rideID := seedBooking(t, tx, "u1", domain.BookingConfirmed, at)

	ride, err := r.GetRide(context.Background(), rideID)

	require.NoError(t, err)
	assert.Equal(t, rideID, ride.ID)
	assert.Equal(t, domain.BookedRideNotStarted, ride.Status)
	assert.True(t, ride.EndDateTime.Equal(at.Add(time.Hour)))
}

func TestBookingRepo_GetRide_NotFound(t *testing.T) {
	r := repo.NewBookingRepo(newTx(t))

	_, err := r.GetRide(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
