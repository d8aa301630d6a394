package mixer

import (
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"

	"mixer/protocol"
)

func TestBroadcastDefaults(t *testing.T) {
	f := newFixture()
	x := ksuid.New()

	assert.Zero(t, f.session.LastBroadcastTime(x))
	assert.Zero(t, f.session.LastBroadcastSequenceNumber(x))
	assert.Zero(t, f.session.LastOtherAvatarEncodeTime(x))
	assert.True(t, f.session.LastOtherAvatarTraitsSendPoint(x).IsZero())
	assert.Equal(t, protocol.NullTraitVersion, f.session.LastSentTraitVersion(x, protocol.SkeletonModelURL))
	assert.Less(t, protocol.NullTraitVersion, protocol.DefaultTraitVersion)

	// reads never allocate an entry
	assert.Empty(t, f.session.sentTraitVersions)
	assert.Empty(t, f.session.lastBroadcastTimes)
}

func TestBroadcastSetters(t *testing.T) {
	f := newFixture()
	x, y := ksuid.New(), ksuid.New()

	f.session.SetLastBroadcastTime(x, 1234)
	f.session.SetLastBroadcastSequenceNumber(x, 77)
	f.session.SetLastOtherAvatarEncodeTime(x, 99)
	sentAt := f.clock.Now().Add(time.Minute)
	f.session.SetLastOtherAvatarTraitsSendPoint(x, sentAt)

	assert.Equal(t, uint64(1234), f.session.LastBroadcastTime(x))
	assert.Equal(t, protocol.SequenceNumber(77), f.session.LastBroadcastSequenceNumber(x))
	assert.Equal(t, uint64(99), f.session.LastOtherAvatarEncodeTime(x))
	assert.Equal(t, sentAt, f.session.LastOtherAvatarTraitsSendPoint(x))

	assert.Zero(t, f.session.LastBroadcastTime(y))
	assert.Zero(t, f.session.LastBroadcastSequenceNumber(y))
}

func TestLastSentTraitVersionPerPeer(t *testing.T) {
	f := newFixture()
	x, y := ksuid.New(), ksuid.New()

	f.session.SetLastSentTraitVersion(x, protocol.SkeletonModelURL, 7)
	assert.Equal(t, protocol.TraitVersion(7), f.session.LastSentTraitVersion(x, protocol.SkeletonModelURL))
	assert.Equal(t, protocol.NullTraitVersion, f.session.LastSentTraitVersion(y, protocol.SkeletonModelURL))
	assert.Len(t, f.session.sentTraitVersions, 1)

	// out of range types are ignored rather than panicking
	f.session.SetLastSentTraitVersion(x, protocol.TotalTraitTypes, 3)
	assert.Equal(t, protocol.NullTraitVersion, f.session.LastSentTraitVersion(x, protocol.TotalTraitTypes))
}

func TestRemovePeer(t *testing.T) {
	f := newFixture()
	x := ksuid.New()
	f.session.SetLastBroadcastTime(x, 1)
	f.session.SetLastBroadcastSequenceNumber(x, 2)
	f.session.SetLastOtherAvatarEncodeTime(x, 3)
	f.session.SetLastOtherAvatarTraitsSendPoint(x, f.clock.Now())
	f.session.SetLastSentTraitVersion(x, protocol.SkeletonModelURL, 4)

	f.session.RemovePeer(x)

	assert.Empty(t, f.session.lastBroadcastTimes)
	assert.Empty(t, f.session.lastBroadcastSequenceNumbers)
	assert.Empty(t, f.session.lastOtherAvatarEncodeTimes)
	assert.Empty(t, f.session.lastSentTraitsTimestamps)
	assert.Empty(t, f.session.sentTraitVersions)
}
