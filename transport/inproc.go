package transport

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/crosstate/storesync/syncmsg"
)

// Bus is an in-process Listener and Dialer pair. Connect creates a linked
// pair of ports and hands the far end to every registered connection
// handler.
//
// PostMessage round-trips the envelope through JSON before delivery, so
// payloads cross the same serialization boundary they would on a real
// channel: structs arrive as maps, numbers as float64. Delivery is
// synchronous in the sender's goroutine, matching the cooperative
// single-threaded execution model of the contexts being simulated.
type Bus struct {
	mu       sync.Mutex
	handlers []func(port Port)
}

// NewBus creates an empty in-process bus.
func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) HandleConnection(fn func(port Port)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
}

func (b *Bus) Connect(name string) (Port, error) {
	local := &pipePort{name: name}
	remote := &pipePort{name: name}
	local.peer = remote
	remote.peer = local

	b.mu.Lock()
	handlers := make([]func(port Port), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(remote)
	}
	return local, nil
}

type pipePort struct {
	name string
	peer *pipePort

	mu           sync.Mutex
	closed       bool
	onMessage    []func(env syncmsg.Envelope)
	onDisconnect []func()
	backlog      []syncmsg.Envelope
}

func (p *pipePort) Name() string {
	return p.name
}

// OnMessage registers a listener. Envelopes that arrived before the first
// listener existed are flushed to it in arrival order; a channel endpoint
// always gets the messages sent between connect and listener registration.
func (p *pipePort) OnMessage(fn func(env syncmsg.Envelope)) {
	p.mu.Lock()
	p.onMessage = append(p.onMessage, fn)
	backlog := p.backlog
	p.backlog = nil
	p.mu.Unlock()

	for _, env := range backlog {
		fn(env)
	}
}

func (p *pipePort) OnDisconnect(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDisconnect = append(p.onDisconnect, fn)
}

func (p *pipePort) PostMessage(env syncmsg.Envelope) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.mu.Unlock()

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	var wire syncmsg.Envelope
	if err := json.Unmarshal(raw, &wire); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	p.peer.deliver(wire)
	return nil
}

func (p *pipePort) Close() error {
	p.disconnect()
	p.peer.disconnect()
	return nil
}

func (p *pipePort) deliver(env syncmsg.Envelope) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if len(p.onMessage) == 0 {
		p.backlog = append(p.backlog, env)
		p.mu.Unlock()
		return
	}
	listeners := make([]func(env syncmsg.Envelope), len(p.onMessage))
	copy(listeners, p.onMessage)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(env)
	}
}

func (p *pipePort) disconnect() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	listeners := make([]func(), len(p.onDisconnect))
	copy(listeners, p.onDisconnect)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
