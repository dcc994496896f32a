package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testSession(interval time.Duration) *Session {
	s := New(7, nil, interval)
	// No socket behind the session; keep writes from reaching it.
	s.connected.Store(false)
	return s
}

func TestCompressRoundTrip(t *testing.T) {
	tests := []struct {
		value float64
		want  int
	}{
		{0, 0},
		{1.234, 123},
		{1.235, 124},
		{55.5, 5550},
	}
	for _, tt := range tests {
		if got := Compress(tt.value); got != tt.want {
			t.Errorf("Compress(%v) = %d, want %d", tt.value, got, tt.want)
		}
	}
	if got := Decompress(5550); got != 55.5 {
		t.Errorf("Decompress(5550) = %v, want 55.5", got)
	}
}

func TestSessionEventEncoding(t *testing.T) {
	s := testSession(time.Minute)

	callID := int64(3)
	tests := []struct {
		name string
		raw  json.RawMessage
		want string
	}{
		{"bare", s.encode("end", nil, nil), `["end"]`},
		{"with data", s.encode("ready", 5, nil), `["ready",5]`},
		{"with call id", s.encode("whoami", nil, &callID), `["whoami",null,3]`},
	}
	for _, tt := range tests {
		if string(tt.raw) != tt.want {
			t.Errorf("%s: encoded %s, want %s", tt.name, tt.raw, tt.want)
		}
	}
}

func TestSessionOutboxPreservesOrder(t *testing.T) {
	s := testSession(time.Minute)

	s.AddEvent("first", 1)
	s.AddEvents([]Event{{Name: "second", Data: 2}, {Name: "third", Data: 3}})
	s.AddEvent("fourth", nil)

	want := []string{`["first",1]`, `["second",2]`, `["third",3]`, `["fourth"]`}
	if len(s.outbox) != len(want) {
		t.Fatalf("outbox holds %d events, want %d", len(s.outbox), len(want))
	}
	for i, raw := range s.outbox {
		if string(raw) != want[i] {
			t.Errorf("outbox[%d] = %s, want %s", i, raw, want[i])
		}
	}
}

func TestSessionDispatch(t *testing.T) {
	s := testSession(0)

	var got []string
	s.On("room:talk", func(data json.RawMessage, _ func(any)) {
		var content string
		json.Unmarshal(data, &content)
		got = append(got, content)
	})

	s.dispatch([]byte(`[["room:talk","hello"],["room:talk","again"]]`))

	if len(got) != 2 || got[0] != "hello" || got[1] != "again" {
		t.Errorf("dispatched = %v, want both messages in order", got)
	}
}

func TestSessionHandlerRemoval(t *testing.T) {
	s := testSession(0)

	calls := 0
	h := s.On("room:leave", func(json.RawMessage, func(any)) { calls++ })
	keep := 0
	s.On("room:leave", func(json.RawMessage, func(any)) { keep++ })

	s.dispatch([]byte(`[["room:leave"]]`))
	s.Off(h)
	s.dispatch([]byte(`[["room:leave"]]`))

	if calls != 1 {
		t.Errorf("removed handler ran %d times, want 1", calls)
	}
	if keep != 2 {
		t.Errorf("remaining handler ran %d times, want 2", keep)
	}
}

func TestSessionCallbackResolution(t *testing.T) {
	s := testSession(time.Minute)

	var result string
	s.AddEventWithCallback("room:join", map[string]string{"name": "arena"}, func(raw json.RawMessage) {
		json.Unmarshal(raw, &result)
	})

	// The callback consumed the first answer; a replay must not fire again.
	s.dispatch([]byte(`[[1,"ok"]]`))
	if result != "ok" {
		t.Fatalf("callback result = %q, want %q", result, "ok")
	}

	result = ""
	s.dispatch([]byte(`[[1,"replayed"]]`))
	if result != "" {
		t.Errorf("resolved callback fired again with %q", result)
	}
}

func TestSessionActivityFlag(t *testing.T) {
	s := testSession(0)
	if !s.IsActive() {
		t.Fatal("fresh session inactive")
	}

	s.dispatch([]byte(`[["activity",false]]`))
	if s.IsActive() {
		t.Error("session active after activity=false")
	}

	s.dispatch([]byte(`[["activity",true]]`))
	if !s.IsActive() {
		t.Error("session inactive after activity=true")
	}
}

func TestGroupMembership(t *testing.T) {
	a := testSession(0)
	b := testSession(0)
	g := NewGroup(a)

	g.Add(b)
	g.Add(b)
	if g.Len() != 2 {
		t.Fatalf("group has %d members, want 2", g.Len())
	}

	g.Remove(a)
	if g.Len() != 1 || g.Contains(a) {
		t.Errorf("group still contains removed session")
	}
}

// dialSession runs a session over a real socket and hands back the client
// side, for tests that need frames to actually travel.
func dialSession(t *testing.T, interval time.Duration) (*Session, *websocket.Conn) {
	t.Helper()
	sessions := make(chan *Session, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s := New(9, conn, interval)
		sessions <- s
		s.Run()
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })
	s := <-sessions
	t.Cleanup(s.Close)
	return s, client
}

func TestSetIntervalStartsFlushing(t *testing.T) {
	// Lobby sessions start intervalless; joining a game switches them to a
	// flush interval after Run is already pumping.
	s, client := dialSession(t, 0)

	s.SetInterval(FlushInterval)
	s.AddEvent("game:start", nil)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, frame, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("queued event never flushed: %v", err)
		}
		if strings.Contains(string(frame), "game:start") {
			return
		}
	}
}

func TestPingIdleUntilStarted(t *testing.T) {
	_, client := dialSession(t, 0)

	client.SetReadDeadline(time.Now().Add(1300 * time.Millisecond))
	if _, frame, err := client.ReadMessage(); err == nil {
		t.Fatalf("idle session sent %s without StartPing", frame)
	}
}

func TestStartPingSendsPings(t *testing.T) {
	s, client := dialSession(t, 0)

	s.StartPing()
	defer s.StopPing()

	client.SetReadDeadline(time.Now().Add(2500 * time.Millisecond))
	_, frame, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("no ping after StartPing: %v", err)
	}
	if !strings.Contains(string(frame), `"ping"`) {
		t.Errorf("frame = %s, want a ping", frame)
	}
}
