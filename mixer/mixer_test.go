package mixer

import (
	"errors"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/segmentio/ksuid"

	"mixer/avatar"
)

type fakePeer struct {
	id           ksuid.KSUID
	ignoreRadius bool
}

func newPeer() *fakePeer {
	return &fakePeer{id: ksuid.New()}
}

func (p *fakePeer) ID() ksuid.KSUID           { return p.id }
func (p *fakePeer) IgnoreRadiusEnabled() bool { return p.ignoreRadius }

type sent struct {
	to ksuid.KSUID
	b  []byte
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeSender) SendTo(peer Peer, b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{to: peer.ID(), b: append([]byte(nil), b...)})
	return nil
}

var errSendFailed = errors.New("send failed")

type fixture struct {
	peer    *fakePeer
	sender  *fakeSender
	clock   *clock.Mock
	avatar  *avatar.Data
	session *Session
}

func newFixture() *fixture {
	f := &fixture{
		peer:   newPeer(),
		sender: &fakeSender{},
		clock:  clock.NewMock(),
	}
	f.avatar = avatar.New(f.peer.id, f.clock)
	f.session = NewSession(f.peer.id, 1, f.avatar, f.sender, WithClock(f.clock))
	return f
}
