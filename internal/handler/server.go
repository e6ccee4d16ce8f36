// Package handler implements the HTTP handlers for the campus rides API.
// All handlers are methods on Server. Methods are split into resource files
// (health.go, group.go, ride.go, ...) but share the same Server struct so they
// can reach its dependencies. Routes mounts them on a chi router.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/live"
)

// GroupServicer defines the group operations the handlers depend on.
// Defining the interface here, in the consumer package, lets handler tests
// inject a mock without touching the database or service layer.
type GroupServicer interface {
	Create(ctx context.Context, ng domain.NewGroup) (domain.Group, error)
	Get(ctx context.Context, id string) (domain.Group, error)
	ListForMember(ctx context.Context, userID string, p domain.PageParams) (domain.Page[domain.Group], error)
	AddMember(ctx context.Context, groupID, userID string) (domain.Group, error)
}

// RideServicer defines the ride and roster operations the handlers depend on.
type RideServicer interface {
	Create(ctx context.Context, ride domain.Ride) (domain.Ride, error)
	Get(ctx context.Context, groupID string, rideID uuid.UUID) (domain.Ride, error)
	List(ctx context.Context, groupID string, p domain.PageParams) (domain.Page[domain.Ride], error)
	Join(ctx context.Context, groupID string, rideID uuid.UUID, rider domain.Rider) (domain.Ride, error)
	Leave(ctx context.Context, groupID string, rideID uuid.UUID, userID string) (domain.Ride, error)
	Edit(ctx context.Context, groupID string, rideID uuid.UUID, d domain.RideDetails) (domain.Ride, error)
	Delete(ctx context.Context, groupID string, rideID uuid.UUID) error
}

// BookingServicer defines the booking read the handlers depend on.
type BookingServicer interface {
	ListForRider(ctx context.Context, riderID string) (domain.BookingPartition, error)
}

// RideSubscriber opens live subscriptions on ride topics.
type RideSubscriber interface {
	Subscribe(topic string) (<-chan live.Event, func())
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies shared by every handler.
type Server struct {
	groups   GroupServicer
	rides    RideServicer
	bookings BookingServicer
	feed     RideSubscriber
	db       Pinger
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for unexpected failures.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.log = l } }

// WithPinger makes /healthz check the database.
func WithPinger(p Pinger) Option { return func(s *Server) { s.db = p } }

// WithAllowedOrigins restricts which browser origins may open a live socket.
// An empty list accepts any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) == 0 {
			s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
			return
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, origin)
		}
	}
}

// NewServer constructs the Server with all its dependencies.
func NewServer(groups GroupServicer, rides RideServicer, bookings BookingServicer, feed RideSubscriber, opts ...Option) *Server {
	s := &Server{
		groups:   groups,
		rides:    rides,
		bookings: bookings,
		feed:     feed,
		log:      slog.Default(),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns a router serving the whole API. Every route but /healthz
// runs behind the protect middlewares, which must authenticate the caller.
func (s *Server) Routes(protect ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", s.GetHealth)

	r.Group(func(r chi.Router) {
		r.Use(protect...)

		r.Get("/me/bookings", s.ListMyBookings)

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", s.CreateGroup)
			r.Get("/", s.ListGroups)

			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/", s.GetGroup)
				r.Post("/members", s.JoinGroup)

				r.Route("/rides", func(r chi.Router) {
					r.Post("/", s.CreateRide)
					r.Get("/", s.ListRides)

					r.Route("/{rideID}", func(r chi.Router) {
						r.Get("/", s.GetRide)
						r.Put("/", s.EditRide)
						r.Delete("/", s.DeleteRide)
						r.Post("/join", s.JoinRide)
						r.Post("/leave", s.LeaveRide)
						r.Get("/live", s.RideLive)
					})
				})
			})
		})
	})
	return r
}
