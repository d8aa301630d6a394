package avatar

import (
	"net/url"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixer/world"
)

func TestParseDataCopies(t *testing.T) {
	d := New(ksuid.New(), clock.NewMock())

	in := []byte{1, 2, 3}
	n, err := d.ParseData(in)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	in[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, d.State())
}

func TestReceiveRates(t *testing.T) {
	mock := clock.NewMock()
	d := New(ksuid.New(), mock)

	for i := 0; i < 2; i++ {
		_, _ = d.ParseData(make([]byte, 500))
		mock.Add(time.Second)
	}
	assert.InDelta(t, 500, d.AverageBytesReceivedPerSecond(), 0.001)
	assert.InDelta(t, 1, d.ReceiveRate(), 0.001)
}

func TestSkeletonModelURL(t *testing.T) {
	d := New(ksuid.New(), clock.NewMock())
	assert.Nil(t, d.SkeletonModelURL())

	u, err := url.Parse("http://a/model.fst")
	require.NoError(t, err)
	d.SetSkeletonModelURL(u)

	got := d.SkeletonModelURL()
	assert.Equal(t, "http://a/model.fst", got.String())

	got.Host = "b"
	assert.Equal(t, "http://a/model.fst", d.SkeletonModelURL().String())
}

func TestPositionAndBounds(t *testing.T) {
	d := New(ksuid.New(), clock.NewMock())

	_, err := d.ParseData(EncodeState(world.Vector{X: 1, Y: 2, Z: 3}, []byte("pose")))
	require.NoError(t, err)
	assert.Equal(t, world.Vector{X: 1, Y: 2, Z: 3}, d.Position())
	center := d.Bounds().Center()
	assert.InDelta(t, 1, center.X, 1e-9)
	assert.InDelta(t, 2, center.Y, 1e-9)
	assert.InDelta(t, 3, center.Z, 1e-9)

	// too short to carry a position: the avatar stays put
	_, err = d.ParseData([]byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, world.Vector{X: 1, Y: 2, Z: 3}, d.Position())
	assert.Equal(t, []byte{1, 2}, d.State())
}
