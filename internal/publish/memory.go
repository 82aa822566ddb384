package publish

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps every published cycle summary in process memory so tests can
// assert on what the runner reported, without a broker.
type Memory struct {
	mu       sync.RWMutex
	messages []PublishedMessage
}

// PublishedMessage is one recorded publish: the topic it was addressed to
// and the payload as handed in, unmarshaled.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// NewMemory returns a recording publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish records the message. The returned ID is "memory-<n>" where n is
// the 1-based position of the message.
func (p *Memory) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, PublishedMessage{Topic: topic, Payload: payload})
	return fmt.Sprintf("memory-%d", len(p.messages)), nil
}

// Messages returns the recorded publishes. The slice is a copy; mutating it
// does not disturb later assertions.
func (p *Memory) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
