package service

import (
	"context"
	"fmt"
	"html"
	"slices"

	"github.com/google/uuid"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/notify"
	"github.com/pkordes/campusride/internal/repo"
)

// RideFeed receives every committed roster change for live subscribers.
type RideFeed interface {
	RideChanged(ride domain.Ride)
	RideDeleted(groupID string, rideID uuid.UUID)
}

// Notifier queues an email without waiting for delivery.
type Notifier interface {
	Notify(msg notify.Message)
}

type nopFeed struct{}

func (nopFeed) RideChanged(domain.Ride)       {}
func (nopFeed) RideDeleted(string, uuid.UUID) {}

type nopNotifier struct{}

func (nopNotifier) Notify(notify.Message) {}

// RideService implements business logic for Ride operations.
// Roster changes run as optimistic transactions on the ride's version so
// concurrent joins and leaves never overwrite each other.
type RideService struct {
	rides repo.RideRepo
	users repo.UserRepo
	opts  options
}

// NewRideService constructs a RideService. users is used to look up the
// driver's email for roster notifications.
func NewRideService(rides repo.RideRepo, users repo.UserRepo, opts ...Option) *RideService {
	return &RideService{rides: rides, users: users, opts: newOptions(opts)}
}

// Create writes a new ride. A nil roster is stored as empty.
// Neither driver membership nor MaxRiders is checked here; callers do that.
func (s *RideService) Create(ctx context.Context, ride domain.Ride) (domain.Ride, error) {
	if ride.Riders == nil {
		ride.Riders = []domain.Rider{}
	}
	created, err := s.rides.Create(ctx, ride)
	if err != nil {
		return domain.Ride{}, fmt.Errorf("service.RideService.Create: %w", err)
	}
	s.opts.log.InfoContext(ctx, "ride created",
		"group_id", created.GroupID, "ride_id", created.ID, "driver_id", created.Driver.ID)
	return created, nil
}

// Get returns a single ride.
func (s *RideService) Get(ctx context.Context, groupID string, rideID uuid.UUID) (domain.Ride, error) {
	ride, err := s.rides.Get(ctx, groupID, rideID)
	if err != nil {
		return domain.Ride{}, fmt.Errorf("service.RideService.Get: %w", err)
	}
	return ride, nil
}

// List returns one page of a group's rides ordered by start time.
func (s *RideService) List(ctx context.Context, groupID string, p domain.PageParams) (domain.Page[domain.Ride], error) {
	page, err := s.rides.ListByGroup(ctx, groupID, p)
	if err != nil {
		return domain.Page[domain.Ride]{}, fmt.Errorf("service.RideService.List: %w", err)
	}
	if page.Items == nil {
		page.Items = []domain.Ride{}
	}
	return page, nil
}

// Join appends rider to the roster.
//
// Returns domain.ErrAlreadyInRide without writing when rider is the driver or
// already listed, and domain.ErrNotFound when the ride does not exist.
// Capacity is not checked: callers gate on Ride.HasCapacity before joining.
func (s *RideService) Join(ctx context.Context, groupID string, rideID uuid.UUID, rider domain.Rider) (domain.Ride, error) {
	ride, err := s.transact(ctx, groupID, rideID, func(r *domain.Ride) error {
		if r.IsParticipant(rider.ID) {
			return domain.ErrAlreadyInRide
		}
		r.Riders = append(r.Riders, rider)
		return nil
	})
	if err != nil {
		return domain.Ride{}, fmt.Errorf("service.RideService.Join: %w", err)
	}

	s.opts.log.InfoContext(ctx, "rider joined", "ride_id", rideID, "rider_id", rider.ID, "riders", len(ride.Riders))
	s.opts.feed.RideChanged(ride)
	s.notifyDriver(ctx, ride, rider.Name, "joined")
	return ride, nil
}

// Leave removes userID from the roster.
//
// A driver who is not also on the rider list is rejected with
// domain.ErrNotInRide. Any other user not on the roster leaves successfully
// with nothing written.
func (s *RideService) Leave(ctx context.Context, groupID string, rideID uuid.UUID, userID string) (domain.Ride, error) {
	var leaver domain.Rider
	ride, err := s.transact(ctx, groupID, rideID, func(r *domain.Ride) error {
		leaver = domain.Rider{}
		if !r.HasRider(userID) && r.Driver.ID == userID {
			return domain.ErrNotInRide
		}
		i := slices.IndexFunc(r.Riders, func(x domain.Rider) bool { return x.ID == userID })
		if i < 0 {
			return errUnchanged
		}
		leaver = r.Riders[i]
		r.Riders = slices.Delete(slices.Clone(r.Riders), i, i+1)
		return nil
	})
	if err != nil {
		return domain.Ride{}, fmt.Errorf("service.RideService.Leave: %w", err)
	}
	if leaver.ID == "" {
		return ride, nil
	}

	s.opts.log.InfoContext(ctx, "rider left", "ride_id", rideID, "rider_id", userID, "riders", len(ride.Riders))
	s.opts.feed.RideChanged(ride)
	s.notifyDriver(ctx, ride, leaver.Name, "left")
	return ride, nil
}

// Edit overwrites the driver-editable fields. The driver, roster, and
// timestamps are untouched. Returns domain.ErrNotFound when the ride does not
// exist and domain.ErrValidation when MaxRiders would fall below the riders
// already on the roster.
func (s *RideService) Edit(ctx context.Context, groupID string, rideID uuid.UUID, d domain.RideDetails) (domain.Ride, error) {
	ride, err := s.transact(ctx, groupID, rideID, func(r *domain.Ride) error {
		if d.MaxRiders < len(r.Riders) {
			return fmt.Errorf("%w: Max riders cannot be below the %d riders already booked", domain.ErrValidation, len(r.Riders))
		}
		r.CarID = d.CarID
		r.MaxRiders = d.MaxRiders
		r.Vibe = d.Vibe
		r.StartDateTime = d.StartDateTime
		return nil
	})
	if err != nil {
		return domain.Ride{}, fmt.Errorf("service.RideService.Edit: %w", err)
	}
	s.opts.feed.RideChanged(ride)
	return ride, nil
}

// Delete removes the ride. Ownership is the caller's concern.
func (s *RideService) Delete(ctx context.Context, groupID string, rideID uuid.UUID) error {
	if err := s.rides.Delete(ctx, groupID, rideID); err != nil {
		return fmt.Errorf("service.RideService.Delete: %w", err)
	}
	s.opts.log.InfoContext(ctx, "ride deleted", "group_id", groupID, "ride_id", rideID)
	s.opts.feed.RideDeleted(groupID, rideID)
	return nil
}

// transact runs mutate against the ride inside the optimistic retry loop.
// mutate must clone before changing shared slices: on retry it receives a
// freshly read ride.
func (s *RideService) transact(ctx context.Context, groupID string, rideID uuid.UUID, mutate func(*domain.Ride) error) (domain.Ride, error) {
	return casTx[domain.Ride]{
		entity: "ride",
		read: func(ctx context.Context) (domain.Ride, error) {
			return s.rides.Get(ctx, groupID, rideID)
		},
		mutate: mutate,
		write:  s.rides.Update,
	}.run(ctx, s.opts)
}

// notifyDriver emails the driver about a roster change. Lookup failures are
// logged and never fail the roster operation that already committed.
func (s *RideService) notifyDriver(ctx context.Context, ride domain.Ride, riderName, verb string) {
	driver, err := s.users.GetByID(ctx, ride.Driver.ID)
	if err != nil {
		s.opts.log.WarnContext(ctx, "skip roster email: driver lookup failed", "driver_id", ride.Driver.ID, "error", err)
		return
	}
	if driver.Email == "" {
		return
	}
	s.opts.notifier.Notify(notify.Message{
		To:      driver.Email,
		Subject: fmt.Sprintf("%s %s your ride", riderName, verb),
		HTML: fmt.Sprintf("<p>%s %s your ride. %d of %d seats are taken.</p>",
			html.EscapeString(riderName), verb, len(ride.Riders), ride.MaxRiders),
	})
}
