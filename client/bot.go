// Package client is a headless avatar client. It drives a session on the
// mixer the same way an interactive client would and keeps track of the other
// avatars the mixer sends back.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"mixer/avatar"
	"mixer/protocol"
	"mixer/world"
)

// Other is the last thing heard about another avatar.
type Other struct {
	Sequence         protocol.SequenceNumber
	Position         world.Vector
	SkeletonModelURL string
	TraitVersion     protocol.TraitVersion
}

type Bot struct {
	Events chan []byte

	logger       *zap.Logger
	seq          protocol.SequenceNumber
	traitVersion protocol.TraitVersion
	position     world.Vector

	mu     sync.RWMutex
	others map[ksuid.KSUID]Other
	kills  map[ksuid.KSUID]protocol.KillAvatarReason
}

// NewBot queues the identity packet; nothing is written until WriteMessages
// runs.
func NewBot(displayName string, logger *zap.Logger) *Bot {
	b := &Bot{
		Events:       make(chan []byte, 1024),
		logger:       logger,
		traitVersion: protocol.DefaultTraitVersion,
		others:       make(map[ksuid.KSUID]Other),
		kills:        make(map[ksuid.KSUID]protocol.KillAvatarReason),
	}
	b.Events <- protocol.EncodeAvatarIdentity(displayName)
	return b
}

// Move sends a new avatar state at position.
func (b *Bot) Move(position world.Vector, rest []byte) {
	b.position = position
	b.seq++
	b.Events <- protocol.EncodeAvatarData(b.seq, avatar.EncodeState(position, rest))
}

func (b *Bot) Position() world.Vector {
	return b.position
}

// SetSkeletonModelURL sends the trait under the next version.
func (b *Bot) SetSkeletonModelURL(u string) error {
	b.traitVersion++
	frame, err := protocol.EncodeTraits(b.traitVersion, protocol.TraitFrame{
		Type:    protocol.SkeletonModelURL,
		Payload: []byte(u),
	})
	if err != nil {
		return fmt.Errorf("skeleton model url: %w", err)
	}
	b.Events <- frame
	return nil
}

func (b *Bot) SetViewFrustums(frustums ...world.ConicalFrustum) error {
	frame, err := protocol.EncodeViewFrustums(frustums)
	if err != nil {
		return fmt.Errorf("view frustums: %w", err)
	}
	b.Events <- frame
	return nil
}

func (b *Bot) SetIgnoreRadius(enabled bool) {
	b.Events <- protocol.EncodeSetIgnoreRadius(enabled)
}

// Others returns a copy of every avatar currently known.
func (b *Bot) Others() map[ksuid.KSUID]Other {
	b.mu.RLock()
	defer b.mu.RUnlock()
	others := make(map[ksuid.KSUID]Other, len(b.others))
	for id, o := range b.others {
		others[id] = o
	}
	return others
}

// LastKill reports the reason given when id was last removed.
func (b *Bot) LastKill(id ksuid.KSUID) (protocol.KillAvatarReason, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	reason, ok := b.kills[id]
	return reason, ok
}

// WriteMessages writes queued packets to the server until ctx is done.
func (b *Bot) WriteMessages(ctx context.Context, c *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-b.Events:
			if err := c.Write(ctx, websocket.MessageBinary, event); err != nil {
				return err
			}
		}
	}
}

// ReadMessages applies server packets until the connection fails.
func (b *Bot) ReadMessages(ctx context.Context, c *websocket.Conn) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageBinary {
			continue
		}
		if err := b.handle(data); err != nil {
			b.logger.Warn("bad packet from server", zap.Error(err))
		}
	}
}

func (b *Bot) handle(data []byte) error {
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch msg.Kind {
	case protocol.KindBulkAvatarData:
		id, seq, state, err := protocol.DecodeBulkAvatarData(msg.Body)
		if err != nil {
			return err
		}
		o := b.others[id]
		o.Sequence = seq
		if position, ok := avatar.DecodePosition(state); ok {
			o.Position = position
		}
		b.others[id] = o
		delete(b.kills, id)

	case protocol.KindBulkAvatarTraits:
		id, version, frames, err := protocol.DecodeBulkAvatarTraits(msg.Body)
		if err != nil {
			return err
		}
		o := b.others[id]
		o.TraitVersion = version
		for _, f := range frames {
			if f.Type == protocol.SkeletonModelURL {
				o.SkeletonModelURL = string(f.Payload)
			}
		}
		b.others[id] = o

	case protocol.KindKillAvatar:
		id, reason, err := protocol.DecodeKillAvatar(msg.Body)
		if err != nil {
			return err
		}
		delete(b.others, id)
		b.kills[id] = reason

	default:
		return fmt.Errorf("%w: %s", protocol.ErrUnknownMessageKind, msg.Kind)
	}
	return nil
}
