package mixer

import (
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"mixer/protocol"
)

// TraitVersionTable holds one version per known simple trait type.
type TraitVersionTable [protocol.TotalTraitTypes]protocol.TraitVersion

func newTraitVersionTable(v protocol.TraitVersion) TraitVersionTable {
	var t TraitVersionTable
	for i := range t {
		t[i] = v
	}
	return t
}

// processSetTraitsMessage applies every frame whose type has not yet seen the
// packet's version and skips the rest. Frames applied before a malformed
// frame stay applied.
func (s *Session) processSetTraitsMessage(body []byte) error {
	r := protocol.NewReader(body)

	packetVersion, err := r.Int32()
	if err != nil {
		return fmt.Errorf("trait packet version: %w", err)
	}

	anyTraitsChanged := false
	defer func() {
		if anyTraitsChanged {
			s.lastReceivedTraitsChange = s.clock.Now()
		}
	}()

	for r.Len() > 0 {
		rawType, err := r.Uint8()
		if err != nil {
			return err
		}
		traitSize, err := r.Uint16()
		if err != nil {
			return fmt.Errorf("trait %d size: %w", rawType, err)
		}
		traitType := protocol.TraitType(rawType)
		if traitType >= protocol.TotalTraitTypes {
			return fmt.Errorf("trait type %d: %w", rawType, protocol.ErrUnknownTraitType)
		}
		if int(traitSize) > r.Len() {
			return fmt.Errorf("trait %v declares %d bytes, %d left: %w", traitType, traitSize, r.Len(), protocol.ErrTraitOverrun)
		}

		if packetVersion <= s.receivedTraitVersions[traitType] {
			if err := r.Skip(int(traitSize)); err != nil {
				return err
			}
			s.metrics.TraitFrames.WithLabelValues("skipped").Inc()
			continue
		}

		payload, err := r.Bytes(int(traitSize))
		if err != nil {
			return err
		}
		changed, err := s.applyTrait(traitType, payload)
		if err != nil {
			return fmt.Errorf("trait %v version %d: %w", traitType, packetVersion, err)
		}
		s.receivedTraitVersions[traitType] = packetVersion
		s.metrics.TraitFrames.WithLabelValues("applied").Inc()
		if changed {
			anyTraitsChanged = true
			s.logger.Debug("trait applied",
				zap.Stringer("trait", traitType),
				zap.Int32("version", packetVersion))
		}
	}
	return nil
}

// applyTrait decodes payload for the trait types that carry data the mixer
// keeps. A type without a branch here is version-gated only.
func (s *Session) applyTrait(traitType protocol.TraitType, payload []byte) (bool, error) {
	switch traitType {
	case protocol.SkeletonModelURL:
		u, err := url.Parse(string(payload))
		if err != nil {
			return false, fmt.Errorf("skeleton model url: %v: %w", err, protocol.ErrProtocolViolation)
		}
		s.avatar.SetSkeletonModelURL(u)
		return true, nil
	}
	return false, nil
}

// ReceivedTraitVersion is the newest version applied for traitType.
func (s *Session) ReceivedTraitVersion(traitType protocol.TraitType) protocol.TraitVersion {
	if traitType >= protocol.TotalTraitTypes {
		return protocol.DefaultTraitVersion
	}
	return s.receivedTraitVersions[traitType]
}

// LastReceivedTraitsChange is the monotonic time of the last trait message
// that changed anything, or the zero time.
func (s *Session) LastReceivedTraitsChange() time.Time {
	return s.lastReceivedTraitsChange
}
