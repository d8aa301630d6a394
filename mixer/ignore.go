package mixer

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"mixer/protocol"
)

// IgnoreOther stops this session exchanging avatar data with other. The first
// call tells self's client to drop other's avatar and resets the broadcast
// time so a later reappearance is a full resend. Repeat calls do nothing.
func (s *Session) IgnoreOther(self, other Peer) error {
	otherID := other.ID()
	if s.IsIgnoring(otherID) {
		return nil
	}
	s.ignoring[otherID] = struct{}{}

	reason := protocol.YourAvatarEnteredTheirBubble
	if self.IgnoreRadiusEnabled() {
		reason = protocol.TheirAvatarEnteredYourBubble
	}
	s.SetLastBroadcastTime(otherID, 0)

	s.metrics.KillNotices.Inc()
	if err := s.sender.SendTo(self, protocol.EncodeKillAvatar(otherID, reason)); err != nil {
		return fmt.Errorf("kill avatar notice for %s: %w", otherID, err)
	}
	s.logger.Debug("ignoring peer",
		zap.Stringer("other", otherID),
		zap.Uint8("reason", uint8(reason)))
	return nil
}

// RemoveFromIgnoring lets other's updates through again. No notice is sent.
func (s *Session) RemoveFromIgnoring(other ksuid.KSUID) {
	delete(s.ignoring, other)
}

func (s *Session) IsIgnoring(other ksuid.KSUID) bool {
	_, ok := s.ignoring[other]
	return ok
}
