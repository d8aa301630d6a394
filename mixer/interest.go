package mixer

import (
	"fmt"
	"sync/atomic"

	"mixer/protocol"
	"mixer/world"
)

// InterestManager answers whether a box is visible from any of a viewer's
// frustums. The snapshot is replaced whole and never mutated, so readers on
// other sessions' workers always see one complete set.
type InterestManager struct {
	frustums atomic.Pointer[[]world.ConicalFrustum]
}

// ReadViewFrustumPacket decodes a count byte and that many frustum records
// and publishes them. On error the previous snapshot stays in place.
func (m *InterestManager) ReadViewFrustumPacket(buf []byte) error {
	r := protocol.NewReader(buf)
	count, err := r.Uint8()
	if err != nil {
		return fmt.Errorf("frustum count: %w", err)
	}

	frustums := make([]world.ConicalFrustum, 0, count)
	for i := 0; i < int(count); i++ {
		record, err := r.Bytes(world.FrustumRecordSize)
		if err != nil {
			return fmt.Errorf("frustum %d of %d: %w", i, count, err)
		}
		f, err := world.DecodeConicalFrustum(record)
		if err != nil {
			return fmt.Errorf("frustum %d of %d: %v: %w", i, count, err, protocol.ErrProtocolViolation)
		}
		frustums = append(frustums, f)
	}
	m.frustums.Store(&frustums)
	return nil
}

// OtherAvatarInView is false until the first frustum packet arrives and
// whenever the last one held no frustums.
func (m *InterestManager) OtherAvatarInView(box world.Box) bool {
	frustums := m.frustums.Load()
	if frustums == nil {
		return false
	}
	for i := range *frustums {
		if (*frustums)[i].Intersects(box) {
			return true
		}
	}
	return false
}

// Frustums returns the current snapshot. Callers must not modify it.
func (m *InterestManager) Frustums() []world.ConicalFrustum {
	frustums := m.frustums.Load()
	if frustums == nil {
		return nil
	}
	return *frustums
}
