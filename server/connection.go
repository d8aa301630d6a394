package server

import (
	"errors"
	"sync/atomic"

	"github.com/segmentio/ksuid"
	"nhooyr.io/websocket"

	"mixer/avatar"
	"mixer/mixer"
)

var (
	ErrUnknownPeer    = errors.New("unknown peer")
	ErrSendQueueFull  = errors.New("send queue full")
	errConnectionGone = errors.New("connection closed")
)

// connection is one websocket client and the mixer state behind it.
type connection struct {
	id       ksuid.KSUID
	c        *websocket.Conn
	messages chan []byte
	closed   atomic.Bool

	ignoreRadius atomic.Bool
	avatar       *avatar.Data
	session      *mixer.Session
}

func (c *connection) ID() ksuid.KSUID {
	return c.id
}

func (c *connection) IgnoreRadiusEnabled() bool {
	return c.ignoreRadius.Load()
}

// send queues b for the write loop. A client that cannot keep up is dropped
// rather than stalling the tick.
func (c *connection) send(b []byte) error {
	if c.closed.Load() {
		return errConnectionGone
	}
	select {
	case c.messages <- b:
		return nil
	default:
		c.c.Close(websocket.StatusPolicyViolation, "write would block")
		return ErrSendQueueFull
	}
}
