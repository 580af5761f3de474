package api

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"arena-brawl/internal/metrics"
	"arena-brawl/internal/protocol"
	"arena-brawl/internal/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

var (
	errSessionClosed = errors.New("session closed")
	errSlowConsumer  = errors.New("send buffer full")
	errRateLimited   = errors.New("too many messages")
)

// Session is one websocket connection. It owns the player id for the
// lifetime of the socket and remembers which room, if any, it sits in.
type Session struct {
	id      string
	ip      string
	conn    *websocket.Conn
	codec   protocol.Codec
	limiter *rate.Limiter
	hub     *Hub
	log     *zap.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	room *room.Room
}

// ID returns the player id assigned on connect.
func (s *Session) ID() string { return s.id }

// Send encodes a message and queues it for the writer. It never blocks; a
// client that cannot keep up is disconnected.
func (s *Session) Send(msgType string, payload any) error {
	frame, err := s.codec.Encode(msgType, payload)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.send <- frame:
		return nil
	default:
		s.log.Warn("slow consumer disconnected", zap.String("type", msgType))
		go s.close()
		return errSlowConsumer
	}
}

// Detach forgets roomID if it is the current room.
func (s *Session) Detach(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room != nil && s.room.ID() == roomID {
		s.room = nil
	}
}

// Room returns the room the session is seated in, or nil.
func (s *Session) Room() *room.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *Session) setRoom(r *room.Room) {
	s.mu.Lock()
	s.room = r
	s.mu.Unlock()
}

func (s *Session) takeRoom() *room.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.room
	s.room = nil
	return r
}

// readPump decodes frames until the socket fails, then tears the session
// down.
func (s *Session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(s.hub.limits.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		metrics.RecordWSMessage("in")

		if !s.limiter.Allow() {
			metrics.RecordConnectionRejected("message_rate")
			s.fail("rate_limited", errRateLimited)
			continue
		}

		msg, err := s.codec.Decode(data)
		if err != nil {
			if protocol.IsClientError(err) {
				s.fail("invalid_message", err)
			}
			continue
		}
		s.dispatch(msg)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	frameType := websocket.TextMessage
	if s.codec.Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(frameType, frame); err != nil {
				s.close()
				return
			}
			metrics.RecordWSMessage("out")
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// dispatch routes lobby messages to the registry and everything else to the
// current room.
func (s *Session) dispatch(msg protocol.Inbound) {
	var err error
	switch m := msg.(type) {
	case protocol.CreateRoom:
		err = s.enter(func() (*room.Room, error) { return s.hub.registry.Create(s, m) })
	case protocol.JoinRoom:
		err = s.enter(func() (*room.Room, error) { return s.hub.registry.Join(s, m) })
	case protocol.GetPublicRooms:
		err = s.Send(protocol.TypePublicRoomsList, protocol.PublicRoomsList{Rooms: s.hub.registry.ListPublic()})
	case protocol.LeaveRoom:
		r := s.takeRoom()
		if r == nil {
			err = room.ErrNotInRoom
			break
		}
		r.Leave(s.id)
	default:
		r := s.Room()
		if r == nil {
			err = room.ErrNotInRoom
			break
		}
		r.Handle(s.id, msg)
	}
	if err != nil && !errors.Is(err, errSessionClosed) && !errors.Is(err, errSlowConsumer) {
		s.fail(room.ErrorKind(err), err)
	}
}

func (s *Session) enter(open func() (*room.Room, error)) error {
	if s.Room() != nil {
		return room.ErrAlreadyJoined
	}
	r, err := open()
	if err != nil {
		return err
	}
	s.setRoom(r)
	return nil
}

// fail reports err to the client as a roomError.
func (s *Session) fail(kind string, err error) {
	metrics.RecordRoomError(kind)
	_ = s.Send(protocol.TypeRoomError, protocol.RoomError{Message: err.Error()})
}

// close leaves the current room and unregisters the session. Safe to call
// more than once.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if r := s.takeRoom(); r != nil {
			r.Leave(s.id)
		}
		s.hub.unregister(s)
		s.log.Debug("session closed")
	})
}
