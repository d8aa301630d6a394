package protocol

import (
	"fmt"
	"math"
)

// Kind is the first byte of every frame on the wire.
type Kind uint8

const (
	KindAvatarData Kind = iota + 1
	KindSetAvatarTraits
	KindViewFrustum
	KindKillAvatar
	KindBulkAvatarData
	KindAvatarIdentity
	KindSetIgnoreRadius
	KindBulkAvatarTraits
)

func (k Kind) String() string {
	switch k {
	case KindAvatarData:
		return "AvatarData"
	case KindSetAvatarTraits:
		return "SetAvatarTraits"
	case KindViewFrustum:
		return "ViewFrustum"
	case KindKillAvatar:
		return "KillAvatar"
	case KindBulkAvatarData:
		return "BulkAvatarData"
	case KindAvatarIdentity:
		return "AvatarIdentity"
	case KindSetIgnoreRadius:
		return "SetIgnoreRadius"
	case KindBulkAvatarTraits:
		return "BulkAvatarTraits"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// SequenceNumber wraps from MaxSequenceNumber back to 0.
type SequenceNumber = uint16

const MaxSequenceNumber SequenceNumber = math.MaxUint16

// TraitType indexes the simple trait version tables.
type TraitType uint8

const (
	SkeletonModelURL TraitType = iota

	// TotalTraitTypes is the number of known simple trait types.
	TotalTraitTypes
)

func (t TraitType) String() string {
	switch t {
	case SkeletonModelURL:
		return "SkeletonModelURL"
	}
	return fmt.Sprintf("TraitType(%d)", uint8(t))
}

type (
	TraitVersion  = int32
	TraitWireSize = uint16
)

const (
	// DefaultTraitVersion is what a session holds before any trait arrives.
	DefaultTraitVersion TraitVersion = 0
	// NullTraitVersion marks a trait never sent to a peer. Always below
	// DefaultTraitVersion so the first send counts as new.
	NullTraitVersion TraitVersion = -1
)

// KillAvatarReason tells a client why another avatar went away.
type KillAvatarReason uint8

const (
	NoReason KillAvatarReason = iota
	AvatarDisconnected
	AvatarIgnored
	TheirAvatarEnteredYourBubble
	YourAvatarEnteredTheirBubble
)

const (
	kindSize     = 1
	sequenceSize = 2
	versionSize  = 4
	// IDSize is the encoded size of a session identity.
	IDSize = 20
)
