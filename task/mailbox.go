package task

import (
	"sync"

	"gopkg.in/eapache/queue.v1"
)

// mailbox is an unbounded FIFO shared by one producing task and the
// consuming main loop. Once closed it accepts nothing more.
type mailbox struct {
	mu     sync.Mutex
	q      *queue.Queue
	closed bool
	err    error
}

func newMailbox() *mailbox {
	return &mailbox{q: queue.New()}
}

func (m *mailbox) push(msg Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.q.Add(msg)
	return true
}

// close seals the mailbox. A non-nil err marks the producer as failed.
func (m *mailbox) close(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.err = err
}

// take removes up to max messages, or all of them when max <= 0. If the
// producer failed, everything still buffered is dropped instead and the
// number dropped is returned.
func (m *mailbox) take(max int) (msgs []Message, dropped int, closed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed && m.err != nil {
		dropped = m.q.Length()
		m.q = queue.New()
		return nil, dropped, true, m.err
	}

	n := m.q.Length()
	if max > 0 && max < n {
		n = max
	}
	msgs = make([]Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, m.q.Remove().(Message))
	}
	return msgs, 0, m.closed, nil
}

// discard drops everything and seals the mailbox.
func (m *mailbox) discard() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.q.Length()
	m.q = queue.New()
	m.closed = true
	return n
}
