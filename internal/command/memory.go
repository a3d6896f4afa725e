package command

import (
	"context"
	"sync"

	"github.com/vikasavnish/tradehub/internal/models"
)

type memoryChannel struct {
	mu     sync.Mutex
	queue  []models.Command
	closed bool
}

func (c *memoryChannel) Push(_ context.Context, cmd models.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.queue = append(c.queue, cmd)
	return nil
}

func (c *memoryChannel) Drain(context.Context) ([]models.Command, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil, nil
	}
	out := c.queue
	c.queue = nil
	return out, nil
}

func (c *memoryChannel) close() []models.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	out := c.queue
	c.queue = nil
	return out
}

// MemoryBroker keeps channels in process memory
type MemoryBroker struct {
	mu       sync.Mutex
	channels map[uint]*memoryChannel
}

// NewMemoryBroker creates an empty broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{channels: make(map[uint]*memoryChannel)}
}

func (b *MemoryBroker) Open(_ context.Context, accountID uint) (Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.channels[accountID]; ok {
		old.close()
	}
	ch := &memoryChannel{}
	b.channels[accountID] = ch
	return ch, nil
}

func (b *MemoryBroker) Attach(accountID uint) Channel {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[accountID]
	if !ok {
		ch = &memoryChannel{}
		b.channels[accountID] = ch
	}
	return ch
}

func (b *MemoryBroker) Release(_ context.Context, accountID uint) ([]models.Command, error) {
	b.mu.Lock()
	ch, ok := b.channels[accountID]
	delete(b.channels, accountID)
	b.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return ch.close(), nil
}

// Len reports how many channels are open
func (b *MemoryBroker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.channels)
}
