package webd

import (
	"encoding/json"
	"log/slog"

	"github.com/olahol/melody"
	"github.com/rotblauer/catfuse/api"
	"github.com/rotblauer/catfuse/types/activity"
	"github.com/rotblauer/catfuse/types/sample"
)

type websocketAction string

var (
	websocketActionEstimate websocketAction = "estimate"
	websocketActionFinalize websocketAction = "finalize"
)

// fusedEvent is what websocket clients receive.
type fusedEvent struct {
	Action    websocketAction       `json:"action"`
	SessionID string                `json:"sessionId"`
	Estimate  *sample.FusedLocation `json:"estimate,omitempty"`
	Activity  activity.Activity     `json:"activity"`
}

// initMelody sets up the websocket handler.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	// Greet new clients with the current estimate of every live session.
	s.melodyInstance.HandleConnect(func(ms *melody.Session) {
		s.logger.Debug("Websocket connected", "remote", ms.Request.RemoteAddr)
		s.sessions.each(func(id string, e *sessionEntry) {
			var (
				est sample.FusedLocation
				ok  bool
				act activity.Activity
			)
			e.with(func(session *api.Session) {
				est, ok = session.CurrentEstimate()
				act = session.CurrentActivity()
			})
			if !ok {
				return
			}
			b, err := json.Marshal(fusedEvent{
				Action:    websocketActionEstimate,
				SessionID: id,
				Estimate:  &est,
				Activity:  act,
			})
			if err != nil {
				return
			}
			_ = ms.Write(b)
		})
	})

	// Incoming messages are not part of the protocol. Log and drop.
	s.melodyInstance.HandleMessage(func(ms *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", ms.Request.RemoteAddr, "len", len(msg))
	})

	s.melodyInstance.HandleDisconnect(func(ms *melody.Session) {
		s.logger.Debug("Websocket disconnected", "remote", ms.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(ms *melody.Session, e error) {
		s.logger.Warn("Websocket error", "remote", ms.Request.RemoteAddr, "error", e)
	})

	// Broadcast session events to all connected clients.
	events := make(chan fusedEvent, 16)
	sub := s.feedFused.Subscribe(events)
	s.feedSub = sub
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case ev := <-events:
				b, err := json.Marshal(ev)
				if err != nil {
					slog.Error("Failed to marshal session event", "error", err)
					continue
				}
				if s.melodyInstance.IsClosed() {
					return
				}
				if err := s.melodyInstance.Broadcast(b); err != nil {
					s.logger.Warn("Failed to broadcast session event", "error", err)
				}
			case err := <-sub.Err():
				if err != nil {
					slog.Error("Session event subscription failed", "error", err)
				}
				return
			}
		}
	}()
}
