package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"hoodlink/internal/models"
	"hoodlink/internal/socketio"
	"hoodlink/internal/socketio/socketiotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startManager(t *testing.T, grace time.Duration) (*Manager, *socketiotest.Server) {
	t.Helper()
	srv := socketiotest.NewServer()
	t.Cleanup(srv.Close)

	m := NewManager(Config{
		Socket:               socketio.Options{URL: srv.URL},
		LeaveGrace:           grace,
		MaxReconnectInterval: 200 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		m.Stop()
	})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer waitCancel()
	require.NoError(t, m.WaitConnected(waitCtx))
	return m, srv
}

func expectEvent(t *testing.T, srv *socketiotest.Server, name string) socketio.Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-srv.Received():
			if ev.Name == name {
				return ev
			}
		case <-timeout:
			t.Fatalf("server never received %s", name)
			return socketio.Event{}
		}
	}
}

func expectNoEvent(t *testing.T, srv *socketiotest.Server, name string, wait time.Duration) {
	t.Helper()
	timeout := time.After(wait)
	for {
		select {
		case ev := <-srv.Received():
			if ev.Name == name {
				t.Fatalf("unexpected %s", name)
			}
		case <-timeout:
			return
		}
	}
}

func roomOf(t *testing.T, ev socketio.Event) string {
	t.Helper()
	var req models.RoomRequest
	require.NoError(t, ev.Decode(&req))
	return req.RoomID
}

func TestJoin_RefCountedSingleJoinAndLeave(t *testing.T) {
	m, srv := startManager(t, -1)

	room := ConversationRoom("5_9", "5")
	releaseA := m.Join(room)
	releaseB := m.Join(room)

	assert.Equal(t, "5_9", roomOf(t, expectEvent(t, srv, models.EventJoinRoom)))
	expectNoEvent(t, srv, models.EventJoinRoom, 100*time.Millisecond)
	assert.Equal(t, 2, m.Stats().Rooms["5_9"])

	releaseA()
	releaseA()
	expectNoEvent(t, srv, models.EventLeaveRoom, 100*time.Millisecond)
	assert.Equal(t, 1, m.Stats().Rooms["5_9"])

	releaseB()
	assert.Equal(t, "5_9", roomOf(t, expectEvent(t, srv, models.EventLeaveRoom)))
	_, present := m.Stats().Rooms["5_9"]
	assert.False(t, present)
}

func TestJoin_RejoinWithinGraceCancelsLeave(t *testing.T) {
	m, srv := startManager(t, 200*time.Millisecond)

	room := BusinessChatRoom("7_business-3", "3", "7")
	release := m.Join(room)
	expectEvent(t, srv, models.EventJoinBusinessRoom)

	release()
	again := m.Join(room)
	defer again()

	expectNoEvent(t, srv, models.EventLeaveBusinessRoom, 400*time.Millisecond)
	expectNoEvent(t, srv, models.EventJoinBusinessRoom, 50*time.Millisecond)
}

func TestJoin_LeaveAfterGrace(t *testing.T) {
	m, srv := startManager(t, 50*time.Millisecond)

	release := m.Join(PostRoom("44"))
	assert.Equal(t, "post_44", roomOf(t, expectEvent(t, srv, models.EventJoinRoom)))
	release()
	assert.Equal(t, "post_44", roomOf(t, expectEvent(t, srv, models.EventLeaveRoom)))
}

func TestOn_DispatchOrderAndUnsubscribe(t *testing.T) {
	m, srv := startManager(t, -1)

	var mu sync.Mutex
	var got []string
	record := func(tag string) Handler {
		return func(_ context.Context, ev socketio.Event) {
			var body struct {
				N int `json:"n"`
			}
			_ = json.Unmarshal(ev.Args[0], &body)
			mu.Lock()
			got = append(got, tag+":"+string(rune('0'+body.N)))
			mu.Unlock()
		}
	}
	unsubA := m.On("ping_test", record("a"))
	unsubB := m.On("ping_test", record("b"))
	defer unsubB()

	srv.Emit("ping_test", map[string]int{"n": 1})
	srv.Emit("ping_test", map[string]int{"n": 2})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 4
	}, 2*time.Second, 10*time.Millisecond)

	unsubA()
	srv.Emit("ping_test", map[string]int{"n": 3})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a:1", "b:1", "a:2", "b:2", "b:3"}, got)
}

func TestEmit_NotConnected(t *testing.T) {
	m := NewManager(Config{Socket: socketio.Options{URL: "http://127.0.0.1:1"}})
	assert.ErrorIs(t, m.Emit(models.EventTyping, nil), models.ErrNotConnected)
	assert.False(t, m.Connected())
}

func TestJoinBeforeConnect_EmittedOnConnect(t *testing.T) {
	srv := socketiotest.NewServer()
	defer srv.Close()

	m := NewManager(Config{Socket: socketio.Options{URL: srv.URL}, LeaveGrace: -1})
	release := m.Join(PersonalRoom("12"))
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	assert.Equal(t, "12", roomOf(t, expectEvent(t, srv, models.EventJoinRoom)))
}

func TestRun_ReconnectRejoinsActiveRooms(t *testing.T) {
	m, srv := startManager(t, -1)

	var mu sync.Mutex
	calls := 0
	m.OnConnect(func(context.Context) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	release := m.Join(ConversationRoom("1_2", "1"))
	defer release()
	expectEvent(t, srv, models.EventJoinRoom)

	srv.DropAll()
	assert.Equal(t, "1_2", roomOf(t, expectEvent(t, srv, models.EventJoinRoom)))
	require.Eventually(t, func() bool { return srv.Dials() >= 2 && m.Connected() }, 3*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, m.Stats().Reconnects, 1)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

type recordingConn struct {
	mu     sync.Mutex
	emits  []string
	events chan socketio.Event
	done   chan struct{}
}

func newRecordingConn() *recordingConn {
	return &recordingConn{events: make(chan socketio.Event), done: make(chan struct{})}
}

func (c *recordingConn) ID() string { return "rec" }

func (c *recordingConn) Emit(event string, payload any) error {
	time.Sleep(time.Millisecond)
	c.mu.Lock()
	c.emits = append(c.emits, event)
	c.mu.Unlock()
	return nil
}

func (c *recordingConn) Events() <-chan socketio.Event { return c.events }
func (c *recordingConn) Done() <-chan struct{}         { return c.done }
func (c *recordingConn) Err() error                    { return nil }
func (c *recordingConn) Close() error                  { return nil }

func (c *recordingConn) Emitted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.emits...)
}

func startRecording(t *testing.T) (*Manager, *recordingConn) {
	t.Helper()
	conn := newRecordingConn()
	m := NewManager(Config{
		LeaveGrace: -1,
		Dial: func(context.Context, socketio.Options) (Conn, error) {
			return conn, nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer waitCancel()
	require.NoError(t, m.WaitConnected(waitCtx))
	return m, conn
}

func TestJoin_ConcurrentFirstJoinsEmitOnce(t *testing.T) {
	m, conn := startRecording(t)
	room := ConversationRoom("5_9", "5")

	var wg sync.WaitGroup
	releases := make([]func(), 20)
	for i := range releases {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			releases[i] = m.Join(room)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []string{models.EventJoinRoom}, conn.Emitted())
	assert.Equal(t, 20, m.Stats().Rooms["5_9"])

	for _, release := range releases {
		wg.Add(1)
		go func(release func()) {
			defer wg.Done()
			release()
		}(release)
	}
	wg.Wait()
	assert.Equal(t, []string{models.EventJoinRoom, models.EventLeaveRoom}, conn.Emitted())
}

func TestJoin_ConcurrentChurnKeepsJoinLeaveAlternating(t *testing.T) {
	m, conn := startRecording(t)
	room := ConversationRoom("5_9", "5")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				m.Join(room)()
			}
		}()
	}
	wg.Wait()

	emitted := conn.Emitted()
	require.NotEmpty(t, emitted)
	for i, name := range emitted {
		if i%2 == 0 {
			assert.Equal(t, models.EventJoinRoom, name, "emit %d", i)
		} else {
			assert.Equal(t, models.EventLeaveRoom, name, "emit %d", i)
		}
	}
	assert.Equal(t, models.EventLeaveRoom, emitted[len(emitted)-1])
	_, present := m.Stats().Rooms["5_9"]
	assert.False(t, present)
}
