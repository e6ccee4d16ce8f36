package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pkordes/campusride/internal/live"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// RideLive handles GET /groups/{groupID}/rides/{rideID}/live.
//
// After the WebSocket upgrade it sends the current ride, then one frame per
// committed change. A slow client skips intermediate states and receives the
// latest. The socket closes after a "deleted" frame, when the client goes
// away, or when the server shuts the subscription down.
func (s *Server) RideLive(w http.ResponseWriter, r *http.Request) {
	_, groupID, rideID, ok := s.memberRideRequest(w, r)
	if !ok {
		return
	}

	// Subscribe before the initial read so no change falls between them.
	events, unsubscribe := s.feed.Subscribe(live.RideTopic(groupID, rideID))
	defer unsubscribe()

	ride, err := s.rides.Get(r.Context(), groupID, rideID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		s.log.DebugContext(r.Context(), "live upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The read loop only services control frames and notices disconnects.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(msg LiveMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		return conn.WriteJSON(msg)
	}

	if err := send(liveToMessage(live.Event{Type: live.EventUpdated, RideID: ride.ID, Ride: &ride})); err != nil {
		return
	}

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				closeLive(conn, websocket.CloseGoingAway, "server shutting down")
				return
			}
			if err := send(liveToMessage(ev)); err != nil {
				return
			}
			if ev.Type == live.EventDeleted {
				closeLive(conn, websocket.CloseNormalClosure, "ride deleted")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}

func closeLive(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(liveWriteWait))
}
