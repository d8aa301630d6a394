package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/segmentio/ksuid"

	"mixer/world"
)

// Message is one decoded frame: its kind and the body that follows the kind byte.
type Message struct {
	Kind Kind
	Body []byte
}

// DecodeMessage splits a frame into kind and body. The body aliases b.
func DecodeMessage(b []byte) (Message, error) {
	if len(b) < kindSize {
		return Message{}, ErrEmptyFrame
	}
	return Message{Kind: Kind(b[0]), Body: b[kindSize:]}, nil
}

func Encode(kind Kind, body []byte) []byte {
	b := make([]byte, 0, kindSize+len(body))
	b = append(b, byte(kind))
	return append(b, body...)
}

func EncodeAvatarData(seq SequenceNumber, state []byte) []byte {
	b := make([]byte, 0, kindSize+sequenceSize+len(state))
	b = append(b, byte(KindAvatarData))
	b = binary.LittleEndian.AppendUint16(b, seq)
	return append(b, state...)
}

// TraitFrame is one entry of a SetAvatarTraits body.
type TraitFrame struct {
	Type    TraitType
	Payload []byte
}

func EncodeTraits(version TraitVersion, frames ...TraitFrame) ([]byte, error) {
	return appendTraits([]byte{byte(KindSetAvatarTraits)}, version, frames)
}

// EncodeBulkAvatarTraits forwards another avatar's traits, prefixed with its identity.
func EncodeBulkAvatarTraits(id ksuid.KSUID, version TraitVersion, frames ...TraitFrame) ([]byte, error) {
	b := make([]byte, 0, kindSize+IDSize+versionSize)
	b = append(b, byte(KindBulkAvatarTraits))
	b = append(b, id.Bytes()...)
	return appendTraits(b, version, frames)
}

// DecodeTraits parses a trait body into its version and frames. Payloads alias body.
func DecodeTraits(body []byte) (TraitVersion, []TraitFrame, error) {
	r := NewReader(body)
	version, err := r.Int32()
	if err != nil {
		return 0, nil, err
	}
	var frames []TraitFrame
	for r.Len() > 0 {
		traitType, err := r.Uint8()
		if err != nil {
			return 0, nil, err
		}
		size, err := r.Uint16()
		if err != nil {
			return 0, nil, err
		}
		if int(size) > r.Len() {
			return 0, nil, ErrTraitOverrun
		}
		payload, err := r.Bytes(int(size))
		if err != nil {
			return 0, nil, err
		}
		frames = append(frames, TraitFrame{Type: TraitType(traitType), Payload: payload})
	}
	return version, frames, nil
}

func appendTraits(b []byte, version TraitVersion, frames []TraitFrame) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, uint32(version))
	for _, f := range frames {
		if len(f.Payload) > int(^TraitWireSize(0)) {
			return nil, fmt.Errorf("trait %v payload of %d bytes does not fit the wire size", f.Type, len(f.Payload))
		}
		b = append(b, byte(f.Type))
		b = binary.LittleEndian.AppendUint16(b, TraitWireSize(len(f.Payload)))
		b = append(b, f.Payload...)
	}
	return b, nil
}

func EncodeViewFrustums(frustums []world.ConicalFrustum) ([]byte, error) {
	if len(frustums) > 255 {
		return nil, fmt.Errorf("%d frustums, at most 255 fit", len(frustums))
	}
	b := make([]byte, 0, kindSize+1+len(frustums)*world.FrustumRecordSize)
	b = append(b, byte(KindViewFrustum), byte(len(frustums)))
	for i := range frustums {
		b = frustums[i].Encode(b)
	}
	return b, nil
}

func EncodeKillAvatar(id ksuid.KSUID, reason KillAvatarReason) []byte {
	b := make([]byte, 0, kindSize+IDSize+1)
	b = append(b, byte(KindKillAvatar))
	b = append(b, id.Bytes()...)
	return append(b, byte(reason))
}

func DecodeKillAvatar(body []byte) (ksuid.KSUID, KillAvatarReason, error) {
	r := NewReader(body)
	raw, err := r.Bytes(IDSize)
	if err != nil {
		return ksuid.Nil, NoReason, err
	}
	reason, err := r.Uint8()
	if err != nil {
		return ksuid.Nil, NoReason, err
	}
	id, err := ksuid.FromBytes(raw)
	if err != nil {
		return ksuid.Nil, NoReason, fmt.Errorf("kill avatar id: %v: %w", err, ErrProtocolViolation)
	}
	return id, KillAvatarReason(reason), nil
}

// EncodeBulkAvatarData prefixes a sender's avatar state with its identity
// for fan-out to other clients.
func EncodeBulkAvatarData(id ksuid.KSUID, seq SequenceNumber, state []byte) []byte {
	b := make([]byte, 0, kindSize+IDSize+sequenceSize+len(state))
	b = append(b, byte(KindBulkAvatarData))
	b = append(b, id.Bytes()...)
	b = binary.LittleEndian.AppendUint16(b, seq)
	return append(b, state...)
}

func DecodeBulkAvatarData(body []byte) (ksuid.KSUID, SequenceNumber, []byte, error) {
	r := NewReader(body)
	raw, err := r.Bytes(IDSize)
	if err != nil {
		return ksuid.Nil, 0, nil, err
	}
	seq, err := r.Uint16()
	if err != nil {
		return ksuid.Nil, 0, nil, err
	}
	id, err := ksuid.FromBytes(raw)
	if err != nil {
		return ksuid.Nil, 0, nil, fmt.Errorf("bulk avatar id: %v: %w", err, ErrProtocolViolation)
	}
	return id, seq, r.Rest(), nil
}

func DecodeBulkAvatarTraits(body []byte) (ksuid.KSUID, TraitVersion, []TraitFrame, error) {
	r := NewReader(body)
	raw, err := r.Bytes(IDSize)
	if err != nil {
		return ksuid.Nil, 0, nil, err
	}
	id, err := ksuid.FromBytes(raw)
	if err != nil {
		return ksuid.Nil, 0, nil, fmt.Errorf("bulk avatar traits id: %v: %w", err, ErrProtocolViolation)
	}
	version, frames, err := DecodeTraits(r.Rest())
	if err != nil {
		return ksuid.Nil, 0, nil, err
	}
	return id, version, frames, nil
}

func EncodeAvatarIdentity(displayName string) []byte {
	return Encode(KindAvatarIdentity, []byte(displayName))
}

func EncodeSetIgnoreRadius(enabled bool) []byte {
	var v byte
	if enabled {
		v = 1
	}
	return []byte{byte(KindSetIgnoreRadius), v}
}
