package metrics

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateMeterAverage(t *testing.T) {
	mock := clock.NewMock()
	r := NewRateMeter(mock)

	for i := 0; i < 4; i++ {
		r.Add(100)
		mock.Add(time.Second)
	}
	// 400 over 4 seconds
	assert.InDelta(t, 100, r.Rate(), 0.001)
	assert.Equal(t, float64(400), r.Total())
}

func TestRateMeterFloorsSpanAtOneSecond(t *testing.T) {
	mock := clock.NewMock()
	r := NewRateMeter(mock)

	r.Add(50)
	assert.InDelta(t, 50, r.Rate(), 0.001)
}

func TestRateMeterForgetsOldBuckets(t *testing.T) {
	mock := clock.NewMock()
	r := NewRateMeter(mock)

	r.Add(1000)
	mock.Add(window * time.Second)
	assert.Zero(t, r.Rate())
	assert.Equal(t, float64(1000), r.Total())
}

func TestCollectorsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	c.ProtocolViolations.WithLabelValues("AvatarData").Inc()
	c.TraitFrames.WithLabelValues("applied").Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.ProtocolViolations.WithLabelValues("AvatarData")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.TraitFrames.WithLabelValues("applied")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	// unregistered collectors still work
	assert.NotPanics(t, func() { NewCollectors(nil).OutOfOrderSends.Inc() })
}
