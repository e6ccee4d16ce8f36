package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/campusride/internal/domain"
)

// CreateRide handles POST /groups/{groupID}/rides.
// The caller drives; they must be a member of the group.
func (s *Server) CreateRide(w http.ResponseWriter, r *http.Request) {
	u, err := caller(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	groupID, err := groupParams(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	req, ok := s.decodeRide(w, r)
	if !ok {
		return
	}
	if err := s.requireMember(r, groupID, u.ID); err != nil {
		s.fail(w, r, err)
		return
	}

	ride, err := s.rides.Create(r.Context(), domain.Ride{
		GroupID:       groupID,
		Driver:        u.AsRider(),
		CarID:         req.CarID,
		MaxRiders:     req.MaxRiders,
		Riders:        []domain.Rider{},
		Vibe:          req.Vibe,
		StartDateTime: req.StartDateTime,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rideToResponse(ride))
}

// ListRides handles GET /groups/{groupID}/rides.
// Rides come ordered by start time, with ?limit= and ?cursor=.
func (s *Server) ListRides(w http.ResponseWriter, r *http.Request) {
	u, err := caller(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	groupID, err := groupParams(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	p, err := pageParams(r)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.fail(w, r, err)
			return
		}
		badRequest(w, err.Error())
		return
	}
	if err := s.requireMember(r, groupID, u.ID); err != nil {
		s.fail(w, r, err)
		return
	}

	page, err := s.rides.List(r.Context(), groupID, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := make([]Ride, len(page.Items))
	for i, ride := range page.Items {
		data[i] = rideToResponse(ride)
	}
	writeJSON(w, http.StatusOK, List[Ride]{Data: data, NextCursor: page.Next})
}

// GetRide handles GET /groups/{groupID}/rides/{rideID}.
func (s *Server) GetRide(w http.ResponseWriter, r *http.Request) {
	_, groupID, rideID, ok := s.memberRideRequest(w, r)
	if !ok {
		return
	}
	ride, err := s.rides.Get(r.Context(), groupID, rideID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rideToResponse(ride))
}

// EditRide handles PUT /groups/{groupID}/rides/{rideID}. Driver only.
func (s *Server) EditRide(w http.ResponseWriter, r *http.Request) {
	u, groupID, rideID, ok := s.memberRideRequest(w, r)
	if !ok {
		return
	}
	req, ok := s.decodeRide(w, r)
	if !ok {
		return
	}
	if err := s.requireDriver(r, groupID, rideID, u.ID); err != nil {
		s.fail(w, r, err)
		return
	}

	ride, err := s.rides.Edit(r.Context(), groupID, rideID, domain.RideDetails{
		CarID:         req.CarID,
		MaxRiders:     req.MaxRiders,
		Vibe:          req.Vibe,
		StartDateTime: req.StartDateTime,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rideToResponse(ride))
}

// DeleteRide handles DELETE /groups/{groupID}/rides/{rideID}. Driver only.
func (s *Server) DeleteRide(w http.ResponseWriter, r *http.Request) {
	u, groupID, rideID, ok := s.memberRideRequest(w, r)
	if !ok {
		return
	}
	if err := s.requireDriver(r, groupID, rideID, u.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.rides.Delete(r.Context(), groupID, rideID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JoinRide handles POST /groups/{groupID}/rides/{rideID}/join.
// The roster operation itself does not check capacity, so a full ride is
// refused here before joining. Two callers racing for the last seat can both
// pass this check.
func (s *Server) JoinRide(w http.ResponseWriter, r *http.Request) {
	u, groupID, rideID, ok := s.memberRideRequest(w, r)
	if !ok {
		return
	}
	ride, err := s.rides.Get(r.Context(), groupID, rideID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ride.IsParticipant(u.ID) {
		s.fail(w, r, domain.ErrAlreadyInRide)
		return
	}
	if !ride.HasCapacity() {
		s.fail(w, r, domain.ErrRideFull)
		return
	}

	ride, err = s.rides.Join(r.Context(), groupID, rideID, u.AsRider())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rideToResponse(ride))
}

// LeaveRide handles POST /groups/{groupID}/rides/{rideID}/leave.
func (s *Server) LeaveRide(w http.ResponseWriter, r *http.Request) {
	u, groupID, rideID, ok := s.memberRideRequest(w, r)
	if !ok {
		return
	}
	ride, err := s.rides.Leave(r.Context(), groupID, rideID, u.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rideToResponse(ride))
}

// memberRideRequest resolves the caller and path of a ride route and checks
// group membership. On failure the response is already written.
func (s *Server) memberRideRequest(w http.ResponseWriter, r *http.Request) (domain.User, string, uuid.UUID, bool) {
	u, err := caller(r)
	if err != nil {
		s.fail(w, r, err)
		return domain.User{}, "", uuid.Nil, false
	}
	groupID, rideID, err := rideParams(r)
	if err != nil {
		badRequest(w, err.Error())
		return domain.User{}, "", uuid.Nil, false
	}
	if err := s.requireMember(r, groupID, u.ID); err != nil {
		s.fail(w, r, err)
		return domain.User{}, "", uuid.Nil, false
	}
	return u, groupID, rideID, true
}

// requireDriver checks userID drives the ride.
func (s *Server) requireDriver(r *http.Request, groupID string, rideID uuid.UUID, userID string) error {
	ride, err := s.rides.Get(r.Context(), groupID, rideID)
	if err != nil {
		return err
	}
	if ride.Driver.ID != userID {
		return fmt.Errorf("%w: only the driver can change this ride", domain.ErrForbidden)
	}
	return nil
}

// decodeRide reads and checks a RideRequest. On failure the response is
// already written.
func (s *Server) decodeRide(w http.ResponseWriter, r *http.Request) (RideRequest, bool) {
	var req RideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, err)
		} else {
			badRequest(w, "invalid request body: "+err.Error())
		}
		return RideRequest{}, false
	}
	if req.MaxRiders < 1 {
		s.fail(w, r, fmt.Errorf("%w: Max riders must be at least 1", domain.ErrValidation))
		return RideRequest{}, false
	}
	return req, true
}
