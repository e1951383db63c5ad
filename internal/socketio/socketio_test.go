package socketio_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"hoodlink/internal/socketio"
	"hoodlink/internal/socketio/socketiotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePacket(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		typ   socketio.PacketType
		ns    string
		id    int
		hasID bool
		data  string
	}{
		{"connect", "0", socketio.PacketConnect, "/", 0, false, ""},
		{"connect with auth", `0{"token":"t"}`, socketio.PacketConnect, "/", 0, false, `{"token":"t"}`},
		{"event", `2["hello",1]`, socketio.PacketEvent, "/", 0, false, `["hello",1]`},
		{"event with ack id", `212["hello"]`, socketio.PacketEvent, "/", 12, true, `["hello"]`},
		{"namespaced event", `2/admin,["x"]`, socketio.PacketEvent, "/admin", 0, false, `["x"]`},
		{"connect error", `4{"message":"no"}`, socketio.PacketConnectError, "/", 0, false, `{"message":"no"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := socketio.DecodePacket([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.typ, p.Type)
			assert.Equal(t, tt.ns, p.Namespace)
			assert.Equal(t, tt.hasID, p.HasID)
			assert.Equal(t, tt.id, p.ID)
			assert.Equal(t, tt.data, string(p.Data))
		})
	}
}

func TestDecodePacket_Rejects(t *testing.T) {
	for _, in := range []string{"", "9", `2[broken`, `51-["bin"]`} {
		_, err := socketio.DecodePacket([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestEventPacketRoundTrip(t *testing.T) {
	p, err := socketio.NewEventPacket("send_message", map[string]string{"room_id": "1_2"})
	require.NoError(t, err)
	assert.Equal(t, `2["send_message",{"room_id":"1_2"}]`, string(p.Encode()))

	decoded, err := socketio.DecodePacket(p.Encode())
	require.NoError(t, err)
	ev, err := socketio.EventFromPacket(decoded)
	require.NoError(t, err)
	assert.Equal(t, "send_message", ev.Name)

	var body map[string]string
	require.NoError(t, ev.Decode(&body))
	assert.Equal(t, "1_2", body["room_id"])
}

func TestClient_EmitAndReceive(t *testing.T) {
	srv := socketiotest.NewServer()
	srv.Token = "secret"
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := socketio.Dial(ctx, socketio.Options{URL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	assert.NotEmpty(t, c.ID())

	require.NoError(t, c.Emit("join_room", map[string]string{"room_id": "1_2"}))
	select {
	case ev := <-srv.Received():
		assert.Equal(t, "join_room", ev.Name)
		assert.JSONEq(t, `{"room_id":"1_2"}`, string(ev.Args[0]))
	case <-ctx.Done():
		t.Fatal("server never received join_room")
	}

	srv.Ping()
	srv.Emit("receive_message", map[string]any{"room_id": "1_2", "text": "hi"})
	select {
	case ev := <-c.Events():
		assert.Equal(t, "receive_message", ev.Name)
		var msg map[string]any
		require.NoError(t, json.Unmarshal(ev.Args[0], &msg))
		assert.Equal(t, "hi", msg["text"])
	case <-ctx.Done():
		t.Fatal("client never received receive_message")
	}
}

func TestClient_RejectedToken(t *testing.T) {
	srv := socketiotest.NewServer()
	srv.Token = "secret"
	defer srv.Close()

	_, err := socketio.Dial(context.Background(), socketio.Options{URL: srv.URL, Token: "wrong"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestClient_DoneAfterServerDrop(t *testing.T) {
	srv := socketiotest.NewServer()
	defer srv.Close()

	c, err := socketio.Dial(context.Background(), socketio.Options{URL: srv.URL})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return srv.Connections() == 1 }, 2*time.Second, 10*time.Millisecond)
	srv.DropAll()

	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("client did not notice the dropped connection")
	}
	assert.Error(t, c.Err())
	assert.ErrorIs(t, c.Emit("x", nil), socketio.ErrClosed)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	srv := socketiotest.NewServer()
	defer srv.Close()

	c, err := socketio.Dial(context.Background(), socketio.Options{URL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	<-c.Done()
	assert.ErrorIs(t, c.Err(), socketio.ErrClosed)

	// The events channel is closed once the read pump exits.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-c.Events():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
