package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survey-api/pkg/logger"
)

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	kinds   []int
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("use of closed network connection")
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) textFrames() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for i, data := range f.written {
		if f.kinds[i] != websocket.TextMessage {
			continue
		}
		var m Message
		_ = json.Unmarshal(data, &m)
		out = append(out, m)
	}
	return out
}

func TestClient_FlushesBeforeClosing(t *testing.T) {
	conn := newFakeConn()
	c := NewClient(conn, logger.NewNop())

	require.NoError(t, c.SendJSON(Message{Type: TypeAuthenticated}))
	require.NoError(t, c.SendJSON(Message{Type: TypeRedirect, Location: "/login"}))
	c.Close()

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}

	frames := conn.textFrames()
	require.Len(t, frames, 2)
	assert.Equal(t, TypeAuthenticated, frames[0].Type)
	assert.Equal(t, "/login", frames[1].Location)
	assert.ErrorIs(t, c.SendJSON(Message{Type: TypeAuthenticated}), ErrClientClosed)
}

func TestClient_StopsOnContextCancel(t *testing.T) {
	conn := newFakeConn()
	c := NewClient(conn, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("done not closed")
	}
}
