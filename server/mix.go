package server

import (
	"context"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mixer/protocol"
)

// Tick drains every session's queue in parallel, then fans avatar data and
// traits out to each viewer.
func (s *Server) Tick(ctx context.Context) error {
	start := s.clock.Now()
	conns, departed := s.snapshot()
	s.forget(conns, departed)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Mixer.Workers, 1))
	for _, conn := range conns {
		conn := conn
		g.Go(func() error {
			conn.session.ProcessPackets()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	now := s.clock.Now()
	for _, viewer := range conns {
		s.broadcastTo(viewer, conns, now)
	}
	s.metrics.TickDuration.Observe(s.clock.Since(start).Seconds())
	return nil
}

func (s *Server) snapshot() ([]*connection, []ksuid.KSUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns := make([]*connection, 0, len(s.connections))
	for _, conn := range s.connections {
		conns = append(conns, conn)
	}
	departed := s.departed
	s.departed = nil
	return conns, departed
}

// forget removes departed peers from every remaining session and tells the
// clients that had been sent their avatar.
func (s *Server) forget(conns []*connection, departed []ksuid.KSUID) {
	for _, id := range departed {
		for _, conn := range conns {
			if conn.session.LastBroadcastTime(id) != 0 {
				if err := conn.send(protocol.EncodeKillAvatar(id, protocol.AvatarDisconnected)); err != nil {
					s.logger.Debug("kill avatar notice", zap.Stringer("session", conn.id), zap.Error(err))
				}
			}
			conn.session.RemovePeer(id)
			conn.session.RemoveFromIgnoring(id)
		}
	}
}

// applyBubble keeps viewer's side of the ignore set in step with personal
// space: while either avatar has its radius on and the bubbles touch, they
// ignore each other.
func (s *Server) applyBubble(viewer, other *connection) {
	if viewer.IgnoreRadiusEnabled() || other.IgnoreRadiusEnabled() {
		margin := s.cfg.Mixer.BubbleMargin
		if viewer.avatar.Bounds().Expand(margin).Touches(other.avatar.Bounds().Expand(margin)) {
			if err := viewer.session.IgnoreOther(viewer, other); err != nil {
				s.logger.Debug("ignore other", zap.Stringer("session", viewer.id), zap.Error(err))
			}
			return
		}
	}
	viewer.session.RemoveFromIgnoring(other.id)
}

func (s *Server) broadcastTo(viewer *connection, conns []*connection, now time.Time) {
	nowMicros := uint64(now.UnixMicro())
	var sent, inView, outOfView int

	for _, other := range conns {
		if other == viewer {
			continue
		}
		s.applyBubble(viewer, other)
		if viewer.session.IsIgnoring(other.id) || other.session.IsIgnoring(viewer.id) {
			viewer.session.IncrementNumOtherAvatarSkips()
			continue
		}
		if !viewer.session.OtherAvatarInView(other.avatar.Bounds()) {
			outOfView++
			viewer.session.IncrementNumOtherAvatarSkips()
			continue
		}
		inView++

		s.sendTraits(viewer, other, now)

		state := other.avatar.State()
		seq := other.session.LastReceivedSequenceNumber()
		if state == nil || (viewer.session.LastBroadcastTime(other.id) != 0 &&
			viewer.session.LastBroadcastSequenceNumber(other.id) == seq) {
			viewer.session.IncrementNumOtherAvatarStarves()
			continue
		}

		frame := protocol.EncodeBulkAvatarData(other.id, seq, state)
		if err := viewer.send(frame); err != nil {
			s.logger.Debug("avatar data", zap.Stringer("session", viewer.id), zap.Error(err))
			continue
		}
		viewer.session.SetLastBroadcastTime(other.id, nowMicros)
		viewer.session.SetLastBroadcastSequenceNumber(other.id, seq)
		viewer.session.SetLastOtherAvatarEncodeTime(other.id, nowMicros)
		viewer.session.RecordSentAvatarData(len(frame))
		s.metrics.BroadcastBytes.Add(float64(len(frame)))
		sent++
	}

	viewer.session.SetNumAvatarsSentLastFrame(sent)
	viewer.session.SetRecentOtherAvatarsInView(inView)
	viewer.session.SetRecentOtherAvatarsOutOfView(outOfView)
}

// sendTraits forwards any of other's traits that changed since they were
// last sent to viewer.
func (s *Server) sendTraits(viewer, other *connection, now time.Time) {
	changed := other.session.LastReceivedTraitsChange()
	if changed.IsZero() || !changed.After(viewer.session.LastOtherAvatarTraitsSendPoint(other.id)) {
		return
	}

	for t := protocol.TraitType(0); t < protocol.TotalTraitTypes; t++ {
		version := other.session.ReceivedTraitVersion(t)
		if version <= viewer.session.LastSentTraitVersion(other.id, t) {
			continue
		}
		frame, err := protocol.EncodeBulkAvatarTraits(other.id, version, protocol.TraitFrame{
			Type:    t,
			Payload: s.traitPayload(other, t),
		})
		if err != nil {
			s.logger.Warn("encode traits", zap.Stringer("trait", t), zap.Error(err))
			continue
		}
		if err := viewer.send(frame); err != nil {
			s.logger.Debug("avatar traits", zap.Stringer("session", viewer.id), zap.Error(err))
			return
		}
		viewer.session.SetLastSentTraitVersion(other.id, t, version)
	}
	viewer.session.SetLastOtherAvatarTraitsSendPoint(other.id, now)
}

func (s *Server) traitPayload(conn *connection, t protocol.TraitType) []byte {
	switch t {
	case protocol.SkeletonModelURL:
		if u := conn.avatar.SkeletonModelURL(); u != nil {
			return []byte(u.String())
		}
	}
	return nil
}
