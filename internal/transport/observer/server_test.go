package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"colonylink.ai/internal/protocol"
	"colonylink.ai/internal/sim/encoding"
	"colonylink.ai/internal/sim/world"
	"colonylink.ai/internal/sim/worldtest"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	w := worldtest.NewWorld(t, "../../../configs", world.WorldConfig{ID: "obs", Seed: 3, Width: 20, Height: 20})
	s := NewServer(w, []string{"raid", "weather"}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.WSHandler())
	mux.HandleFunc("/state", s.BootstrapHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return s, srv
}

func dial(t *testing.T, srv *httptest.Server, sub protocol.SubscribeMsg) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	b, _ := json.Marshal(sub)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

func waitSubscribers(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Stats().Subscribers != n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.Stats().Subscribers; got != n {
		t.Fatalf("subscribers=%d want=%d", got, n)
	}
}

func readCommand(t *testing.T, conn *websocket.Conn) protocol.CommandMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg protocol.CommandMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func TestServer_FansOutCommands(t *testing.T) {
	s, srv := newTestServer(t)
	conn := dial(t, srv, protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version})
	waitSubscribers(t, s, 1)

	if err := s.WriteCommand(protocol.CommandEntry{ID: "c1", Tick: 5, Raw: "raid", Name: "raid"}); err != nil {
		t.Fatalf("WriteCommand: %v", err)
	}
	msg := readCommand(t, conn)
	if msg.Type != protocol.TypeCommand || msg.ProtocolVersion != protocol.Version {
		t.Fatalf("envelope=%+v", msg)
	}
	if msg.Entry.ID != "c1" || msg.Entry.Tick != 5 || msg.Entry.Name != "raid" {
		t.Fatalf("entry=%+v", msg.Entry)
	}
	if st := s.Stats(); st.SentTotal != 1 || st.DropTotal != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestServer_FailuresOnlyFilter(t *testing.T) {
	s, srv := newTestServer(t)
	conn := dial(t, srv, protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, FailuresOnly: true})
	waitSubscribers(t, s, 1)

	_ = s.WriteCommand(protocol.CommandEntry{ID: "ok", Name: "raid"})
	_ = s.WriteCommand(protocol.CommandEntry{ID: "bad", Name: "dance", Code: "E_UNKNOWN_COMMAND"})

	msg := readCommand(t, conn)
	if msg.Entry.ID != "bad" {
		t.Fatalf("first delivered=%s want=bad", msg.Entry.ID)
	}
}

func TestServer_RejectsBadSubscribe(t *testing.T) {
	s, srv := newTestServer(t)
	conn := dial(t, srv, protocol.SubscribeMsg{Type: "HELLO", ProtocolVersion: protocol.Version})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v want policy violation close", err)
	}
	if got := s.Stats().Subscribers; got != 0 {
		t.Fatalf("subscribers=%d want=0", got)
	}
}

func TestServer_SlowSubscriberDrops(t *testing.T) {
	s := &Server{subs: map[string]*subscriber{}}
	s.join(&subscriber{out: make(chan []byte, 1)})

	_ = s.WriteCommand(protocol.CommandEntry{ID: "a"})
	_ = s.WriteCommand(protocol.CommandEntry{ID: "b"})
	_ = s.WriteCommand(protocol.CommandEntry{ID: "c"})

	st := s.Stats()
	if st.SentTotal != 1 || st.DropTotal != 2 {
		t.Fatalf("stats=%+v want sent=1 drop=2", st)
	}
}

func TestServer_LoopbackOnly(t *testing.T) {
	s, _ := newTestServer(t)
	for name, h := range map[string]http.HandlerFunc{"ws": s.WSHandler(), "state": s.BootstrapHandler()} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.2.3:4567"
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: code=%d want=%d", name, rec.Code, http.StatusForbidden)
		}
	}
}

func TestServer_Bootstrap(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/state")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var b BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.ColonyID != "obs" || b.MapSize != [2]int{20, 20} || b.Weather != "Clear" {
		t.Fatalf("bootstrap=%+v", b)
	}
	if len(b.Commands) != 2 || b.ProtocolVersion != protocol.Version {
		t.Fatalf("bootstrap=%+v", b)
	}
	if _, err := encoding.DecodeRLE(b.TerrainRLE, 20*20); err != nil {
		t.Fatalf("terrain: %v", err)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:80":     true,
		"10.0.0.1:80":  false,
		"garbage":      false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want=%v", in, got, want)
		}
	}
}
