// Package mixer keeps the server-side state for one connected participant:
// the inbound queue, sequence and trait version tracking, the interest
// snapshot, per-peer broadcast bookkeeping and the ignore set.
//
// A Session is processed by one goroutine at a time. Enqueue, the interest
// manager and Stats are the exceptions and may be used concurrently.
package mixer

import (
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"mixer/metrics"
	"mixer/protocol"
)

type LocalID = uint16

// AvatarState decodes and holds a participant's avatar. The mixer treats
// pose bytes as opaque.
type AvatarState interface {
	ParseData(b []byte) (int, error)
	SetSkeletonModelURL(u *url.URL)
	DisplayName() string
	AverageBytesReceivedPerSecond() float64
	ReceiveRate() float64
}

// Peer is the transport's handle on a connected participant.
type Peer interface {
	ID() ksuid.KSUID
	IgnoreRadiusEnabled() bool
}

// Sender delivers one encoded frame to a peer.
type Sender interface {
	SendTo(peer Peer, b []byte) error
}

type Session struct {
	id      ksuid.KSUID
	localID LocalID
	avatar  AvatarState
	sender  Sender
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Collectors

	queue                    *PacketQueue
	sequence                 SequenceTracker
	receivedTraitVersions    TraitVersionTable
	lastReceivedTraitsChange time.Time
	InterestManager
	broadcastBook
	ignoring map[ksuid.KSUID]struct{}

	numProtocolViolations       atomic.Uint64
	numAvatarsSentLastFrame     atomic.Int64
	recentOtherAvatarsInView    atomic.Int64
	recentOtherAvatarsOutOfView atomic.Int64
	otherAvatarStarves          *metrics.RateMeter
	otherAvatarSkips            *metrics.RateMeter
	outboundBytes               *metrics.RateMeter
}

type Option func(*Session)

func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

func NewSession(id ksuid.KSUID, localID LocalID, avatar AvatarState, sender Sender, opts ...Option) *Session {
	s := &Session{
		id:                    id,
		localID:               localID,
		avatar:                avatar,
		sender:                sender,
		clock:                 clock.New(),
		logger:                zap.NewNop(),
		queue:                 NewPacketQueue(),
		receivedTraitVersions: newTraitVersionTable(protocol.DefaultTraitVersion),
		broadcastBook:         newBroadcastBook(),
		ignoring:              make(map[ksuid.KSUID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollectors(nil)
	}
	s.logger = s.logger.With(zap.Stringer("session", id), zap.Uint16("local_id", localID))
	s.otherAvatarStarves = metrics.NewRateMeter(s.clock)
	s.otherAvatarSkips = metrics.NewRateMeter(s.clock)
	s.outboundBytes = metrics.NewRateMeter(s.clock)
	return s
}

func (s *Session) ID() ksuid.KSUID {
	return s.id
}

func (s *Session) LocalID() LocalID {
	return s.localID
}

func (s *Session) Avatar() AvatarState {
	return s.avatar
}

// QueuePacket hands a message from the network to the next ProcessPackets.
func (s *Session) QueuePacket(msg protocol.Message, owner Peer) {
	s.queue.Enqueue(msg, owner)
}

func (s *Session) QueueLen() int {
	return s.queue.Len()
}

// ProcessPackets drains the queue and handles every message in arrival order.
// Malformed messages are counted and dropped. It returns how many messages
// were drained.
func (s *Session) ProcessPackets() int {
	messages, owner := s.queue.DrainAll()
	if len(messages) == 0 {
		return 0
	}

	for _, msg := range messages {
		if err := s.dispatch(msg); err != nil {
			s.numProtocolViolations.Add(1)
			s.metrics.ProtocolViolations.WithLabelValues(msg.Kind.String()).Inc()
			fields := []zap.Field{zap.Stringer("kind", msg.Kind), zap.Int("bytes", len(msg.Body)), zap.Error(err)}
			if owner != nil {
				fields = append(fields, zap.Stringer("owner", owner.ID()))
			}
			s.logger.Debug("dropping message", fields...)
		}
	}
	s.metrics.PacketsProcessed.Add(float64(len(messages)))
	return len(messages)
}

func (s *Session) dispatch(msg protocol.Message) error {
	switch msg.Kind {
	case protocol.KindAvatarData:
		return s.parseData(msg.Body)
	case protocol.KindSetAvatarTraits:
		return s.processSetTraitsMessage(msg.Body)
	}
	return fmt.Errorf("%v: %w", msg.Kind, protocol.ErrUnknownMessageKind)
}

func (s *Session) parseData(body []byte) error {
	r := protocol.NewReader(body)
	seq, err := r.Uint16()
	if err != nil {
		return fmt.Errorf("avatar data sequence number: %w", err)
	}
	if s.sequence.Observe(seq) {
		s.metrics.OutOfOrderSends.Inc()
	}
	if _, err := s.avatar.ParseData(r.Rest()); err != nil {
		if errors.Is(err, protocol.ErrProtocolViolation) {
			return err
		}
		return fmt.Errorf("avatar data: %v: %w", err, protocol.ErrProtocolViolation)
	}
	return nil
}

// LastReceivedSequenceNumber is the sequence number of the newest avatar data.
func (s *Session) LastReceivedSequenceNumber() protocol.SequenceNumber {
	return s.sequence.Last()
}
