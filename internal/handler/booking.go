package handler

import "net/http"

// ListMyBookings handles GET /me/bookings.
// Returns the caller's bookings split into current and previous.
func (s *Server) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	u, err := caller(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.bookings.ListForRider(r.Context(), u.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Bookings{
		Current:  bookingsToResponse(p.Current),
		Previous: bookingsToResponse(p.Previous),
	})
}
