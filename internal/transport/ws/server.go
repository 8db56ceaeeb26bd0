// Package ws streams simulation events to websocket subscribers. A
// client sends one SUBSCRIBE message and then only receives: WELCOME,
// replayed history from its cursor, and every batch published afterwards.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fragsim.gg/internal/protocol"
	"fragsim.gg/internal/sim/manager"
	"fragsim.gg/internal/sim/match"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
	outQueueSize     = 64
)

type Server struct {
	mgr *manager.Manager
	log *log.Logger

	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan []byte]struct{}
}

func NewServer(mgr *manager.Manager, logger *log.Logger) *Server {
	return &Server{
		mgr: mgr,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[uuid.UUID]map[chan []byte]struct{}{},
	}
}

// Publish fans a batch of freshly appended events out to the sim's
// subscribers. total is the event log length after the append. Slow
// subscribers drop the batch rather than block the caller.
func (s *Server) Publish(simID uuid.UUID, total int, fresh []match.Event) {
	if len(fresh) == 0 {
		return
	}
	batch, err := s.encodeBatch(simID, total-len(fresh), fresh)
	if err != nil {
		s.log.Printf("ws: encode batch for %s: %v", simID, err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs[simID] {
		select {
		case ch <- batch:
		default:
			// Queue full; the subscriber can resubscribe from its cursor.
		}
	}
}

func (s *Server) encodeBatch(simID uuid.UUID, baseCursor int, events []match.Event) ([]byte, error) {
	msgs, err := protocol.EncodeEvents(events)
	if err != nil {
		return nil, err
	}
	items := make([]protocol.EventBatchItem, len(msgs))
	for i, m := range msgs {
		items[i] = protocol.EventBatchItem{Cursor: uint64(baseCursor + i), Event: m}
	}
	return json.Marshal(protocol.EventBatchMsg{
		Type:            protocol.TypeEvents,
		ProtocolVersion: protocol.Version,
		SimulationID:    simID.String(),
		Events:          items,
		NextCursor:      uint64(baseCursor + len(items)),
	})
}

func (s *Server) subscribe(simID uuid.UUID, ch chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[simID] == nil {
		s.subs[simID] = map[chan []byte]struct{}{}
	}
	s.subs[simID][ch] = struct{}{}
}

func (s *Server) unsubscribe(simID uuid.UUID, ch chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs[simID], ch)
	if len(s.subs[simID]) == 0 {
		delete(s.subs, simID)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		simID, out, ok := s.handshake(conn)
		if !ok {
			return
		}
		defer s.unsubscribe(simID, out)

		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-done:
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop: subscribers send nothing after SUBSCRIBE; this
		// only notices disconnects.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				close(done)
				return
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (uuid.UUID, chan []byte, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return uuid.Nil, nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeSubscribe {
		s.writeError(conn, protocol.ErrBadRequest, "expected SUBSCRIBE")
		return uuid.Nil, nil, false
	}

	var sub protocol.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		s.writeError(conn, protocol.ErrBadRequest, "malformed SUBSCRIBE")
		return uuid.Nil, nil, false
	}
	if sub.ProtocolVersion != "" && sub.ProtocolVersion != protocol.Version {
		s.writeError(conn, protocol.ErrBadRequest, "bad protocol_version")
		return uuid.Nil, nil, false
	}

	simID, err := uuid.Parse(sub.SimulationID)
	if err != nil {
		s.writeError(conn, protocol.ErrBadRequest, "bad simulation_id")
		return uuid.Nil, nil, false
	}

	// Register before reading history so events published during the
	// replay queue up instead of vanishing. A batch queued while it is
	// also still in history reaches the client twice; cursors make the
	// duplicate skippable, a gap would not be recoverable.
	out := make(chan []byte, outQueueSize)
	s.subscribe(simID, out)

	history, err := s.mgr.Events(simID, match.EventFilter{})
	if err != nil {
		s.unsubscribe(simID, out)
		s.writeError(conn, protocol.ErrSimNotFound, "unknown simulation")
		return uuid.Nil, nil, false
	}

	if err := writeJSON(conn, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SimulationID:    simID.String(),
		NextCursor:      uint64(len(history)),
	}); err != nil {
		s.unsubscribe(simID, out)
		return uuid.Nil, nil, false
	}

	// Replay from the requested cursor before live delivery starts.
	if since := int(sub.SinceCursor); since < len(history) {
		batch, err := s.encodeBatch(simID, since, history[since:])
		if err != nil {
			s.log.Printf("ws: replay for %s: %v", simID, err)
			s.unsubscribe(simID, out)
			return uuid.Nil, nil, false
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, batch); err != nil {
			s.unsubscribe(simID, out)
			return uuid.Nil, nil, false
		}
	}

	return simID, out, true
}

func (s *Server) writeError(conn *websocket.Conn, code, message string) {
	_ = writeJSON(conn, protocol.StreamErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
