package websocket

import (
	"errors"
	"sync"
	"time"
)

// MockMessage is a frame read from or written to a MockConnection
type MockMessage struct {
	Type int
	Data []byte
	Err  error
}

// MockConnection replays queued frames and records written ones. Once the
// queue is exhausted ReadMessage fails as a dropped peer would.
type MockConnection struct {
	mu sync.Mutex

	reads   []MockMessage
	written []MockMessage
	closed  bool

	WriteErr  error
	ReadLimit int64
}

func NewMockConnection(frames ...string) *MockConnection {
	m := &MockConnection{}
	for _, f := range frames {
		m.reads = append(m.reads, MockMessage{Type: 1, Data: []byte(f)})
	}
	return m
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.written = append(m.written, MockMessage{Type: messageType, Data: data})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || len(m.reads) == 0 {
		return 0, nil, errors.New("connection closed")
	}
	msg := m.reads[0]
	m.reads = m.reads[1:]
	return msg.Type, msg.Data, msg.Err
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *MockConnection) SetWriteDeadline(time.Time) error { return nil }
func (m *MockConnection) SetPongHandler(func(string) error) {}
func (m *MockConnection) RemoteAddr() string                { return "127.0.0.1:50000" }

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

// Written returns the frames of the given type in write order
func (m *MockConnection) Written(messageType int) []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockMessage
	for _, w := range m.written {
		if w.Type == messageType {
			out = append(out, w)
		}
	}
	return out
}

func (m *MockConnection) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
