package mixer

import (
	"time"

	"github.com/segmentio/ksuid"

	"mixer/protocol"
)

// broadcastBook is what this session last sent about each other peer. The
// outer scheduler reads and writes it once per mix cycle; entries appear on
// first write and an absent entry reads as the default.
type broadcastBook struct {
	lastBroadcastTimes           map[ksuid.KSUID]uint64
	lastBroadcastSequenceNumbers map[ksuid.KSUID]protocol.SequenceNumber
	lastOtherAvatarEncodeTimes   map[ksuid.KSUID]uint64
	lastSentTraitsTimestamps     map[ksuid.KSUID]time.Time
	sentTraitVersions            map[ksuid.KSUID]*TraitVersionTable
}

func newBroadcastBook() broadcastBook {
	return broadcastBook{
		lastBroadcastTimes:           make(map[ksuid.KSUID]uint64),
		lastBroadcastSequenceNumbers: make(map[ksuid.KSUID]protocol.SequenceNumber),
		lastOtherAvatarEncodeTimes:   make(map[ksuid.KSUID]uint64),
		lastSentTraitsTimestamps:     make(map[ksuid.KSUID]time.Time),
		sentTraitVersions:            make(map[ksuid.KSUID]*TraitVersionTable),
	}
}

// LastBroadcastTime is in microseconds; 0 means never sent.
func (b *broadcastBook) LastBroadcastTime(peer ksuid.KSUID) uint64 {
	return b.lastBroadcastTimes[peer]
}

func (b *broadcastBook) SetLastBroadcastTime(peer ksuid.KSUID, micros uint64) {
	b.lastBroadcastTimes[peer] = micros
}

func (b *broadcastBook) LastBroadcastSequenceNumber(peer ksuid.KSUID) protocol.SequenceNumber {
	return b.lastBroadcastSequenceNumbers[peer]
}

func (b *broadcastBook) SetLastBroadcastSequenceNumber(peer ksuid.KSUID, seq protocol.SequenceNumber) {
	b.lastBroadcastSequenceNumbers[peer] = seq
}

func (b *broadcastBook) LastOtherAvatarEncodeTime(peer ksuid.KSUID) uint64 {
	return b.lastOtherAvatarEncodeTimes[peer]
}

func (b *broadcastBook) SetLastOtherAvatarEncodeTime(peer ksuid.KSUID, micros uint64) {
	b.lastOtherAvatarEncodeTimes[peer] = micros
}

// LastOtherAvatarTraitsSendPoint is the zero time until traits were sent to peer.
func (b *broadcastBook) LastOtherAvatarTraitsSendPoint(peer ksuid.KSUID) time.Time {
	return b.lastSentTraitsTimestamps[peer]
}

func (b *broadcastBook) SetLastOtherAvatarTraitsSendPoint(peer ksuid.KSUID, t time.Time) {
	b.lastSentTraitsTimestamps[peer] = t
}

// LastSentTraitVersion is protocol.NullTraitVersion until a version was
// recorded for peer.
func (b *broadcastBook) LastSentTraitVersion(peer ksuid.KSUID, traitType protocol.TraitType) protocol.TraitVersion {
	versions, ok := b.sentTraitVersions[peer]
	if !ok || traitType >= protocol.TotalTraitTypes {
		return protocol.NullTraitVersion
	}
	return versions[traitType]
}

func (b *broadcastBook) SetLastSentTraitVersion(peer ksuid.KSUID, traitType protocol.TraitType, version protocol.TraitVersion) {
	if traitType >= protocol.TotalTraitTypes {
		return
	}
	versions, ok := b.sentTraitVersions[peer]
	if !ok {
		t := newTraitVersionTable(protocol.NullTraitVersion)
		versions = &t
		b.sentTraitVersions[peer] = versions
	}
	versions[traitType] = version
}

// RemovePeer forgets everything recorded about peer.
func (b *broadcastBook) RemovePeer(peer ksuid.KSUID) {
	delete(b.lastBroadcastTimes, peer)
	delete(b.lastBroadcastSequenceNumbers, peer)
	delete(b.lastOtherAvatarEncodeTimes, peer)
	delete(b.lastSentTraitsTimestamps, peer)
	delete(b.sentTraitVersions, peer)
}
