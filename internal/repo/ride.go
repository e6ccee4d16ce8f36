package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/campusride/internal/domain"
)

// RideRepo defines the persistence operations for Rides.
// Every operation is scoped by groupID because rides live under their group.
type RideRepo interface {
	// Create inserts a new ride and returns it with the DB-generated id,
	// version, and created_at populated.
	// Returns domain.ErrNotFound if the parent group does not exist.
	Create(ctx context.Context, ride domain.Ride) (domain.Ride, error)

	// Get retrieves a ride by id under the given group.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, groupID string, rideID uuid.UUID) (domain.Ride, error)

	// ListByGroup returns the rides of a group ordered by start_date_time.
	ListByGroup(ctx context.Context, groupID string, p domain.PageParams) (domain.Page[domain.Ride], error)

	// Update overwrites the roster and the driver-editable fields if the stored
	// version still equals ride.Version. The driver and created_at never change.
	// Returns domain.ErrConflict on a stale version and domain.ErrNotFound when
	// the ride no longer exists.
	Update(ctx context.Context, ride domain.Ride) (domain.Ride, error)

	// Delete removes a ride. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, groupID string, rideID uuid.UUID) error
}

// pgRideRepo is the Postgres implementation of RideRepo.
type pgRideRepo struct {
	db db
}

// NewRideRepo constructs a RideRepo backed by the provided db connection.
func NewRideRepo(db db) RideRepo {
	return &pgRideRepo{db: db}
}

const rideColumns = `id, group_id, driver, car_id, max_riders, riders, vibe, start_date_time, version, created_at`

func (r *pgRideRepo) Create(ctx context.Context, ride domain.Ride) (domain.Ride, error) {
	const q = `
		INSERT INTO rides (group_id, driver, car_id, max_riders, riders, vibe, start_date_time)
		VALUES (@group_id, @driver, @car_id, @max_riders, @riders, @vibe, @start_date_time)
		RETURNING ` + rideColumns

	driver, err := json.Marshal(ride.Driver)
	if err != nil {
		return domain.Ride{}, fmt.Errorf("repo.RideRepo.Create: driver: %w", err)
	}
	riders, err := marshalRiders(ride.Riders)
	if err != nil {
		return domain.Ride{}, fmt.Errorf("repo.RideRepo.Create: riders: %w", err)
	}

	args := pgx.NamedArgs{
		"group_id":        ride.GroupID,
		"driver":          driver,
		"car_id":          ride.CarID,
		"max_riders":      ride.MaxRiders,
		"riders":          riders,
		"vibe":            ride.Vibe,
		"start_date_time": ride.StartDateTime,
	}

	result, err := scanRide(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Ride{}, fmt.Errorf("repo.RideRepo.Create: %w", translate(err))
	}
	return result, nil
}

func (r *pgRideRepo) Get(ctx context.Context, groupID string, rideID uuid.UUID) (domain.Ride, error) {
	const q = `SELECT ` + rideColumns + ` FROM rides WHERE group_id = @group_id AND id = @id`

	result, err := scanRide(r.db.QueryRow(ctx, q, pgx.NamedArgs{"group_id": groupID, "id": rideID}))
	if err != nil {
		return domain.Ride{}, fmt.Errorf("repo.RideRepo.Get: %w", translate(err))
	}
	return result, nil
}

func (r *pgRideRepo) ListByGroup(ctx context.Context, groupID string, p domain.PageParams) (domain.Page[domain.Ride], error) {
	const q = `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE group_id = @group_id
		  AND (@after_id::uuid IS NULL OR (start_date_time, id) > (@after_key, @after_id::uuid))
		ORDER BY start_date_time, id
		LIMIT @limit`

	args := pgx.NamedArgs{
		"group_id":  groupID,
		"after_key": p.Cursor.SortKey,
		"after_id":  nullable(p.Cursor.ID),
		"limit":     p.Limit + 1,
	}
	if !p.Cursor.IsZero() {
		if _, err := uuid.Parse(p.Cursor.ID); err != nil {
			return domain.Page[domain.Ride]{}, fmt.Errorf("repo.RideRepo.ListByGroup: %w: malformed cursor", domain.ErrValidation)
		}
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return domain.Page[domain.Ride]{}, fmt.Errorf("repo.RideRepo.ListByGroup: %w", err)
	}
	defer rows.Close()

	rides := []domain.Ride{}
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return domain.Page[domain.Ride]{}, fmt.Errorf("repo.RideRepo.ListByGroup: scan: %w", err)
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Ride]{}, fmt.Errorf("repo.RideRepo.ListByGroup: rows: %w", err)
	}

	page := domain.Page[domain.Ride]{Items: rides}
	if len(rides) > p.Limit {
		page.Items = rides[:p.Limit]
		last := page.Items[p.Limit-1]
		page.Next = domain.Cursor{SortKey: last.StartDateTime, ID: last.ID.String()}.Encode()
	}
	return page, nil
}

func (r *pgRideRepo) Update(ctx context.Context, ride domain.Ride) (domain.Ride, error) {
	const q = `
		UPDATE rides
		SET car_id          = @car_id,
		    max_riders      = @max_riders,
		    riders          = @riders,
		    vibe            = @vibe,
		    start_date_time = @start_date_time,
		    version         = version + 1
		WHERE group_id = @group_id AND id = @id AND version = @version
		RETURNING ` + rideColumns

	riders, err := marshalRiders(ride.Riders)
	if err != nil {
		return domain.Ride{}, fmt.Errorf("repo.RideRepo.Update: riders: %w", err)
	}

	args := pgx.NamedArgs{
		"group_id":        ride.GroupID,
		"id":              ride.ID,
		"version":         ride.Version,
		"car_id":          ride.CarID,
		"max_riders":      ride.MaxRiders,
		"riders":          riders,
		"vibe":            ride.Vibe,
		"start_date_time": ride.StartDateTime,
	}

	result, err := scanRide(r.db.QueryRow(ctx, q, args))
	if err != nil {
		err = translate(err)
		if errors.Is(err, domain.ErrNotFound) {
			err = r.staleOrMissing(ctx, ride.GroupID, ride.ID)
		}
		return domain.Ride{}, fmt.Errorf("repo.RideRepo.Update: %w", err)
	}
	return result, nil
}

// staleOrMissing explains why a versioned update matched no rows.
func (r *pgRideRepo) staleOrMissing(ctx context.Context, groupID string, rideID uuid.UUID) error {
	const q = `SELECT EXISTS (SELECT 1 FROM rides WHERE group_id = @group_id AND id = @id)`

	var exists bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"group_id": groupID, "id": rideID}).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return domain.ErrConflict
	}
	return domain.ErrNotFound
}

func (r *pgRideRepo) Delete(ctx context.Context, groupID string, rideID uuid.UUID) error {
	const q = `DELETE FROM rides WHERE group_id = @group_id AND id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"group_id": groupID, "id": rideID})
	if err != nil {
		return fmt.Errorf("repo.RideRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.RideRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// marshalRiders encodes a roster as a JSON array. A nil roster is stored as
// [] rather than null.
func marshalRiders(riders []domain.Rider) ([]byte, error) {
	if riders == nil {
		riders = []domain.Rider{}
	}
	return json.Marshal(riders)
}

// scanRide maps a single database row into a domain.Ride, decoding the
// driver and riders JSONB columns.
func scanRide(s scanner) (domain.Ride, error) {
	var (
		ride           domain.Ride
		id             pgtype.UUID
		driver, roster []byte
	)
	err := s.Scan(&id, &ride.GroupID, &driver, &ride.CarID, &ride.MaxRiders,
		&roster, &ride.Vibe, &ride.StartDateTime, &ride.Version, &ride.CreatedAt)
	if err != nil {
		return domain.Ride{}, err
	}
	ride.ID = uuid.UUID(id.Bytes)
	if err := json.Unmarshal(driver, &ride.Driver); err != nil {
		return domain.Ride{}, fmt.Errorf("decode driver: %w", err)
	}
	if err := json.Unmarshal(roster, &ride.Riders); err != nil {
		return domain.Ride{}, fmt.Errorf("decode riders: %w", err)
	}
	if ride.Riders == nil {
		ride.Riders = []domain.Rider{}
	}
	return ride, nil
}
