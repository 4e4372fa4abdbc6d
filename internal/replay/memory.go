package replay

import (
	"sync"

	"github.com/rzbill/geyserd/internal/message"
)

// Memory is an in-process Store holding shared message pointers.
type Memory struct {
	mu   sync.RWMutex
	win  window
	msgs []*message.Message
	head int
}

// NewMemory returns a window over the last storedSlots slots holding at most
// maxMessages messages. storedSlots == 0 disables replay.
func NewMemory(storedSlots uint64, maxMessages int) *Memory {
	return &Memory{win: newWindow(storedSlots, maxMessages)}
}

func (m *Memory) Append(msg *message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.win.enabled() {
		return nil
	}
	m.msgs = append(m.msgs, msg)
	dropped := m.win.push(entry{seq: msg.Seq, slot: msg.Slot})
	for range dropped {
		m.msgs[m.head] = nil
		m.head++
	}
	if m.head > 1024 && m.head*2 > len(m.msgs) {
		n := copy(m.msgs, m.msgs[m.head:])
		clear(m.msgs[n:])
		m.msgs = m.msgs[:n]
		m.head = 0
	}
	return nil
}

func (m *Memory) Range(fromSlot uint64, fn func(*message.Message) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.win.check(fromSlot); err != nil {
		return err
	}
	for _, msg := range m.msgs[m.head:] {
		if msg.Slot < fromSlot {
			continue
		}
		if !fn(msg) {
			return nil
		}
	}
	return nil
}

func (m *Memory) FirstSlot() (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.win.firstSlot()
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.msgs) - m.head
}

func (m *Memory) Close() error { return nil }
