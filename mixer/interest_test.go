package mixer

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixer/protocol"
	"mixer/world"
)

func boxAt(x, y, z float64) world.Box {
	return world.NewBox(world.Vector{X: x - 0.5, Y: y - 0.5, Z: z - 0.5}, world.Vector{X: 1, Y: 1, Z: 1})
}

func frustumPacket(t *testing.T, frustums ...world.ConicalFrustum) []byte {
	t.Helper()
	b, err := protocol.EncodeViewFrustums(frustums)
	require.NoError(t, err)
	return b[1:]
}

func lookingAlong(dir world.Vector) world.ConicalFrustum {
	return world.NewConicalFrustum(world.Vector{}, dir, math.Pi/6, 100, 0.5)
}

func TestInterestEmptyBeforeFirstPacket(t *testing.T) {
	var m InterestManager
	assert.False(t, m.OtherAvatarInView(boxAt(0, 0, 0)))
	assert.Nil(t, m.Frustums())
}

func TestInterestZeroFrustums(t *testing.T) {
	var m InterestManager
	require.NoError(t, m.ReadViewFrustumPacket(frustumPacket(t, lookingAlong(world.Vector{Z: -1}))))
	require.True(t, m.OtherAvatarInView(boxAt(0, 0, -10)))

	require.NoError(t, m.ReadViewFrustumPacket([]byte{0}))
	for _, box := range []world.Box{boxAt(0, 0, 0), boxAt(0, 0, -10), boxAt(5, 5, 5)} {
		assert.False(t, m.OtherAvatarInView(box))
	}
}

func TestInterestAnyFrustum(t *testing.T) {
	var m InterestManager
	require.NoError(t, m.ReadViewFrustumPacket(frustumPacket(t,
		lookingAlong(world.Vector{Z: -1}),
		lookingAlong(world.Vector{X: 1}),
	)))

	assert.Len(t, m.Frustums(), 2)
	assert.True(t, m.OtherAvatarInView(boxAt(0, 0, -20)))
	assert.True(t, m.OtherAvatarInView(boxAt(20, 0, 0)))
	assert.False(t, m.OtherAvatarInView(boxAt(-20, 0, 0)))
}

func TestInterestReplacesSnapshot(t *testing.T) {
	var m InterestManager
	require.NoError(t, m.ReadViewFrustumPacket(frustumPacket(t, lookingAlong(world.Vector{Z: -1}))))
	require.NoError(t, m.ReadViewFrustumPacket(frustumPacket(t, lookingAlong(world.Vector{Z: 1}))))

	assert.Len(t, m.Frustums(), 1)
	assert.False(t, m.OtherAvatarInView(boxAt(0, 0, -20)))
	assert.True(t, m.OtherAvatarInView(boxAt(0, 0, 20)))
}

func TestInterestTruncatedKeepsPrevious(t *testing.T) {
	var m InterestManager
	require.NoError(t, m.ReadViewFrustumPacket(frustumPacket(t, lookingAlong(world.Vector{Z: -1}))))

	b := frustumPacket(t, lookingAlong(world.Vector{Z: 1}), lookingAlong(world.Vector{Z: 1}))
	err := m.ReadViewFrustumPacket(b[:len(b)-1])
	assert.ErrorIs(t, err, protocol.ErrProtocolViolation)

	assert.Len(t, m.Frustums(), 1)
	assert.True(t, m.OtherAvatarInView(boxAt(0, 0, -20)))

	assert.ErrorIs(t, m.ReadViewFrustumPacket(nil), protocol.ErrShortBuffer)
}

// A reader racing a writer sees either the old snapshot or the new one.
func TestInterestSnapshotIsAllOrNothing(t *testing.T) {
	var m InterestManager
	front := lookingAlong(world.Vector{Z: -1})
	back := lookingAlong(world.Vector{Z: 1})
	frontBox, backBox := boxAt(0, 0, -20), boxAt(0, 0, 20)

	old := frustumPacket(t, front, front, front)
	next := frustumPacket(t, back, back, back)
	require.NoError(t, m.ReadViewFrustumPacket(old))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			if i%2 == 0 {
				_ = m.ReadViewFrustumPacket(next)
			} else {
				_ = m.ReadViewFrustumPacket(old)
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		snapshot := m.Frustums()
		require.Len(t, snapshot, 3)
		first := snapshot[0].Intersects(frontBox)
		for j := range snapshot {
			assert.Equal(t, first, snapshot[j].Intersects(frontBox))
			assert.Equal(t, !first, snapshot[j].Intersects(backBox))
		}
	}
	wg.Wait()
}

func TestSessionInterestIsPromoted(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.session.ReadViewFrustumPacket(frustumPacket(t, lookingAlong(world.Vector{Z: -1}))))
	assert.True(t, f.session.OtherAvatarInView(boxAt(0, 0, -5)))
}
