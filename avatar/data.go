// Package avatar holds the server's view of one participant's avatar. Pose
// bytes are kept opaque; only the skeleton URL and display name are typed.
package avatar

import (
	"encoding/binary"
	"math"
	"net/url"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/segmentio/ksuid"

	"mixer/metrics"
	"mixer/world"
)

// PositionSize is the leading global position in avatar state: three float32s.
const PositionSize = 12

// Dimensions of the box used for interest and bubble tests.
var Dimensions = world.Vector{X: 0.6, Y: 1.8, Z: 0.6}

// EncodeState builds avatar state bytes: the position followed by the opaque rest.
func EncodeState(position world.Vector, rest []byte) []byte {
	b := make([]byte, 0, PositionSize+len(rest))
	for _, v := range []float64{position.X, position.Y, position.Z} {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v)))
	}
	return append(b, rest...)
}

type Data struct {
	mu               sync.RWMutex
	id               ksuid.KSUID
	displayName      string
	skeletonModelURL *url.URL
	state            []byte
	position         world.Vector

	bytesReceived   *metrics.RateMeter
	packetsReceived *metrics.RateMeter
}

func New(id ksuid.KSUID, c clock.Clock) *Data {
	return &Data{
		id:              id,
		bytesReceived:   metrics.NewRateMeter(c),
		packetsReceived: metrics.NewRateMeter(c),
	}
}

func (d *Data) ID() ksuid.KSUID {
	return d.id
}

// ParseData stores a copy of b as the current avatar state and returns the
// number of bytes consumed. A state long enough to carry a finite position
// moves the avatar; anything else keeps the last position.
func (d *Data) ParseData(b []byte) (int, error) {
	state := make([]byte, len(b))
	copy(state, b)

	d.mu.Lock()
	d.state = state
	if p, ok := DecodePosition(b); ok {
		d.position = p
	}
	d.mu.Unlock()

	d.bytesReceived.Add(float64(len(b)))
	d.packetsReceived.Add(1)
	return len(b), nil
}

// State returns the last parsed state. The slice must not be modified.
func (d *Data) State() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// DecodePosition reads the position prefix of an avatar state. It fails on a
// short state or a non-finite coordinate.
func DecodePosition(b []byte) (world.Vector, bool) {
	if len(b) < PositionSize {
		return world.Vector{}, false
	}
	var v [3]float64
	for i := range v {
		f := float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return world.Vector{}, false
		}
		v[i] = f
	}
	return world.Vector{X: v[0], Y: v[1], Z: v[2]}, true
}

func (d *Data) Position() world.Vector {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.position
}

// Bounds is the avatar's box, centred on its position.
func (d *Data) Bounds() world.Box {
	return world.NewBox(d.Position().Sub(Dimensions.Scale(0.5)), Dimensions)
}

func (d *Data) SetSkeletonModelURL(u *url.URL) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.skeletonModelURL = u
}

func (d *Data) SkeletonModelURL() *url.URL {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.skeletonModelURL == nil {
		return nil
	}
	u := *d.skeletonModelURL
	return &u
}

func (d *Data) SetDisplayName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.displayName = name
}

func (d *Data) DisplayName() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.displayName
}

func (d *Data) AverageBytesReceivedPerSecond() float64 {
	return d.bytesReceived.Rate()
}

// ReceiveRate is avatar data packets per second.
func (d *Data) ReceiveRate() float64 {
	return d.packetsReceived.Rate()
}
