package service_test

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/notify"
	"github.com/pkordes/campusride/internal/repo"
	"github.com/pkordes/campusride/internal/service"
)

// These fakes stand in for Postgres with the same versioned-write contract:
// a write whose version does not match the stored one fails with
// domain.ErrConflict. Every read returns a deep copy, like a real query.

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// fastTx retries without sleeping so contention tests finish quickly.
func fastTx(retries uint64) service.Option {
	return service.WithTxPolicy(service.TxPolicy{MaxRetries: retries, BaseDelay: time.Nanosecond})
}

// ---- rides -----------------------------------------------------------------

type memRides struct {
	mu    sync.Mutex
	rides map[uuid.UUID]domain.Ride

	// onRead, when set, runs after every successful Get with the copy returned.
	onRead func(ride domain.Ride)
	// beforeWrite, when set, runs before every Update is applied.
	beforeWrite func(ride domain.Ride)

	reads, writes int
}

var _ repo.RideRepo = (*memRides)(nil)

func newMemRides() *memRides {
	return &memRides{rides: map[uuid.UUID]domain.Ride{}}
}

func cloneRide(r domain.Ride) domain.Ride {
	r.Riders = slices.Clone(r.Riders)
	if r.Riders == nil {
		r.Riders = []domain.Rider{}
	}
	return r
}

func (m *memRides) Create(_ context.Context, ride domain.Ride) (domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride.ID = uuid.New()
	ride.Version = 1
	ride.CreatedAt = time.Now()
	m.rides[ride.ID] = cloneRide(ride)
	return cloneRide(ride), nil
}

func (m *memRides) Get(_ context.Context, groupID string, rideID uuid.UUID) (domain.Ride, error) {
	m.mu.Lock()
	ride, ok := m.rides[rideID]
	m.reads++
	m.mu.Unlock()
	if !ok || ride.GroupID != groupID {
		return domain.Ride{}, domain.ErrNotFound
	}
	out := cloneRide(ride)
	if m.onRead != nil {
		m.onRead(out)
	}
	return out, nil
}

func (m *memRides) ListByGroup(_ context.Context, groupID string, p domain.PageParams) (domain.Page[domain.Ride], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ride
	for _, r := range m.rides {
		if r.GroupID == groupID {
			out = append(out, cloneRide(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDateTime < out[j].StartDateTime })
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return domain.Page[domain.Ride]{Items: out}, nil
}

func (m *memRides) Update(_ context.Context, ride domain.Ride) (domain.Ride, error) {
	if m.beforeWrite != nil {
		m.beforeWrite(ride)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rides[ride.ID]
	if !ok || stored.GroupID != ride.GroupID {
		return domain.Ride{}, domain.ErrNotFound
	}
	if stored.Version != ride.Version {
		return domain.Ride{}, domain.ErrConflict
	}
	// Driver and created_at are not writable.
	ride.Driver, ride.CreatedAt = stored.Driver, stored.CreatedAt
	ride.Version++
	m.rides[ride.ID] = cloneRide(ride)
	m.writes++
	return cloneRide(ride), nil
}

func (m *memRides) Delete(_ context.Context, groupID string, rideID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.GroupID != groupID {
		return domain.ErrNotFound
	}
	delete(m.rides, rideID)
	return nil
}

// stored returns the current committed ride, bypassing hooks.
func (m *memRides) stored(id uuid.UUID) domain.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRide(m.rides[id])
}

// ---- groups ----------------------------------------------------------------

type memGroups struct {
	mu     sync.Mutex
	groups map[string]domain.Group

	beforeWrite func(g domain.Group)
	creates     int
}

var _ repo.GroupRepo = (*memGroups)(nil)

func newMemGroups() *memGroups {
	return &memGroups{groups: map[string]domain.Group{}}
}

func cloneGroup(g domain.Group) domain.Group {
	g.Members = slices.Clone(g.Members)
	return g
}

func (m *memGroups) Create(_ context.Context, g domain.Group) (domain.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if _, taken := m.groups[g.ID]; taken {
		return domain.Group{}, domain.ErrConflict
	}
	g.Version = 1
	g.CreatedAt = time.Now()
	m.groups[g.ID] = cloneGroup(g)
	return cloneGroup(g), nil
}

func (m *memGroups) Get(_ context.Context, id string) (domain.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (m *memGroups) UpdateMembers(_ context.Context, g domain.Group) (domain.Group, error) {
	if m.beforeWrite != nil {
		m.beforeWrite(g)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.groups[g.ID]
	if !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	if stored.Version != g.Version {
		return domain.Group{}, domain.ErrConflict
	}
	stored.Members = slices.Clone(g.Members)
	stored.Version++
	m.groups[g.ID] = stored
	return cloneGroup(stored), nil
}

func (m *memGroups) SetImageURL(_ context.Context, id, url string) (domain.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.groups[id]
	if !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	stored.ImageURL = &url
	stored.Version++
	m.groups[id] = stored
	return cloneGroup(stored), nil
}

func (m *memGroups) ListForMember(_ context.Context, userID string, p domain.PageParams) (domain.Page[domain.Group], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Group
	for _, g := range m.groups {
		if g.HasMember(userID) {
			out = append(out, cloneGroup(g))
		}
	}
	return domain.Page[domain.Group]{Items: out}, nil
}

// ---- users -----------------------------------------------------------------

// mockUserRepo is a function-field test double for repo.UserRepo.
type mockUserRepo struct {
	upsert  func(ctx context.Context, u domain.User) (domain.User, error)
	getByID func(ctx context.Context, id string) (domain.User, error)
}

var _ repo.UserRepo = (*mockUserRepo)(nil)

func (m *mockUserRepo) Upsert(ctx context.Context, u domain.User) (domain.User, error) {
	return m.upsert(ctx, u)
}
func (m *mockUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	if m.getByID == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return m.getByID(ctx, id)
}

// ---- collaborators ---------------------------------------------------------

type fakeStore struct {
	keys []string
	err  error
}

func (s *fakeStore) Upload(_ context.Context, key string, u domain.Upload) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := io.ReadAll(u.Body); err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	return "https://cdn.example.com/" + key, nil
}

type recordingFeed struct {
	mu      sync.Mutex
	changed []domain.Ride
	deleted []uuid.UUID
}

func (f *recordingFeed) RideChanged(r domain.Ride) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, r)
}

func (f *recordingFeed) RideDeleted(_ string, id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (n *recordingNotifier) Notify(msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

// ---- fixtures --------------------------------------------------------------

func rider(id string) domain.Rider {
	return domain.Rider{ID: id, Name: strings.ToUpper(id)}
}

func riderIDs(r domain.Ride) []string {
	ids := make([]string, len(r.Riders))
	for i, x := range r.Riders {
		ids[i] = x.ID
	}
	return ids
}

// commit applies change directly to the stored ride and bumps its version,
// simulating a write by another client.
func (m *memRides) commit(id uuid.UUID, change func(r *domain.Ride)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := cloneRide(m.rides[id])
	change(&r)
	r.Version++
	m.rides[id] = r
}

// seed stores ride as-is and returns it with an id and version.
func (m *memRides) seed(ride domain.Ride) domain.Ride {
	created, _ := m.Create(context.Background(), ride)
	return created
}

func (m *memGroups) seed(g domain.Group) domain.Group {
	created, _ := m.Create(context.Background(), g)
	return created
}
