package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"colonylink.ai/internal/protocol"
	"colonylink.ai/internal/sim/world"
)

const subscriberQueue = 256

// Server fans command entries out to loopback websocket observers. It is a command sink:
// WriteCommand never blocks, and a slow observer loses entries instead of stalling the tick.
type Server struct {
	world    *world.World
	log      *log.Logger
	commands []string

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu   sync.Mutex
	subs map[string]*subscriber

	sentTotal atomic.Uint64
	dropTotal atomic.Uint64
}

type subscriber struct {
	out          chan []byte
	failuresOnly atomic.Bool
}

type Stats struct {
	Subscribers int
	SentTotal   uint64
	DropTotal   uint64
}

// BootstrapResponse describes the colony an observer is about to follow.
type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	ColonyID        string   `json:"colony_id"`
	Tick            uint64   `json:"tick"`
	Paused          bool     `json:"paused"`
	TickRateHz      int      `json:"tick_rate_hz"`
	Seed            int64    `json:"seed"`
	MapSize         [2]int   `json:"map_size"`
	TerrainRLE      string   `json:"terrain_rle"`
	Weather         string   `json:"weather"`
	Commands        []string `json:"commands"`
}

func NewServer(w *world.World, commands []string, logger *log.Logger) *Server {
	return &Server{
		world:    w,
		log:      logger,
		commands: append([]string(nil), commands...),
		subs:     map[string]*subscriber{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.world.Config()
		m := s.world.Metrics()
		resp := BootstrapResponse{
			ProtocolVersion: protocol.Version,
			ColonyID:        cfg.ID,
			Tick:            s.world.CurrentTick(),
			Paused:          s.world.Paused(),
			TickRateHz:      cfg.TickRateHz,
			Seed:            cfg.Seed,
			MapSize:         [2]int{cfg.Width, cfg.Height},
			TerrainRLE:      s.world.TerrainRLE(),
			Weather:         m.Weather,
			Commands:        s.commands,
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

// WriteCommand publishes e to every subscriber whose filter accepts it.
func (s *Server) WriteCommand(e protocol.CommandEntry) error {
	b, err := json.Marshal(protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		Entry:           e,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.failuresOnly.Load() && e.OK() {
			continue
		}
		select {
		case sub.out <- b:
			s.sentTotal.Add(1)
		default:
			s.dropTotal.Add(1)
		}
	}
	return nil
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	n := len(s.subs)
	s.mu.Unlock()
	return Stats{Subscribers: n, SentTotal: s.sentTotal.Load(), DropTotal: s.dropTotal.Load()}
}

func (s *Server) join(sub *subscriber) string {
	sid := fmt.Sprintf("O%d", s.nextID.Add(1))
	s.mu.Lock()
	s.subs[sid] = sub
	s.mu.Unlock()
	return sid
}

func (s *Server) leave(sid string) {
	s.mu.Lock()
	delete(s.subs, sid)
	s.mu.Unlock()
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sb := &subscriber{out: make(chan []byte, subscriberQueue)}
		sb.failuresOnly.Store(sub.FailuresOnly)
		sid := s.join(sb)
		defer s.leave(sid)
		if s.log != nil {
			s.log.Printf("observer %s subscribed remote=%s failures_only=%v", sid, r.RemoteAddr, sub.FailuresOnly)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sb.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: a later SUBSCRIBE replaces the filter.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(msg); ok {
				sb.failuresOnly.Store(sub.FailuresOnly)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func parseSubscribe(msg []byte) (protocol.SubscribeMsg, bool) {
	var sub protocol.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != protocol.TypeSubscribe || sub.ProtocolVersion != protocol.Version {
		return sub, false
	}
	return sub, true
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
