package tcp

import (
	"errors"
	"io"
	"log"
	"net"
	"sort"
	"testing"
	"time"

	"colonylink.ai/internal/protocol"
)

func startLoopback(t *testing.T, cfg Config) *Listener {
	t.Helper()
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	l, err := Start(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func dial(t *testing.T, l *Listener) net.Conn {
	t.Helper()
	c, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// pollUntil retries PollOnce while the kernel finishes queueing the connection.
func pollUntil(t *testing.T, l *Listener) *Payload {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p := l.PollOnce(); p != nil {
			return p
		}
	}
	return nil
}

func TestPollOnce_NoPendingReturnsImmediately(t *testing.T) {
	l := startLoopback(t, Config{})
	start := time.Now()
	if p := l.PollOnce(); p != nil {
		t.Fatalf("payload=%+v want nil", p)
	}
	if d := time.Since(start); d > 500*time.Millisecond {
		t.Fatalf("PollOnce took %v with no client", d)
	}
}

func TestPollOnce_ReadsOnePayload(t *testing.T) {
	l := startLoopback(t, Config{})
	c := dial(t, l)
	if _, err := c.Write([]byte("raid")); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := pollUntil(t, l)
	if p == nil || string(p.Data) != "raid" {
		t.Fatalf("payload=%+v want raid", p)
	}
	if p.Remote == "" {
		t.Fatalf("remote not recorded")
	}
	// The server closes after one read.
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.Read(make([]byte, 1)); err == nil {
		t.Fatalf("expected closed connection")
	}
}

func TestPollOnce_ZeroBytesIsNil(t *testing.T) {
	l := startLoopback(t, Config{})
	c := dial(t, l)
	_ = c.Close()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if p := l.PollOnce(); p != nil {
			t.Fatalf("payload=%+v want nil", p)
		}
	}
}

func TestPollOnce_TruncatesToBufferSize(t *testing.T) {
	l := startLoopback(t, Config{ReceiveBufferSize: 4})
	c := dial(t, l)
	if _, err := c.Write([]byte("itempods:Steel")); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := pollUntil(t, l)
	if p == nil || string(p.Data) != "item" {
		t.Fatalf("payload=%+v want item", p)
	}
}

func TestPollOnce_OneConnectionPerPoll(t *testing.T) {
	l := startLoopback(t, Config{})
	a := dial(t, l)
	b := dial(t, l)
	_, _ = a.Write([]byte("boom"))
	_, _ = b.Write([]byte("retreat"))

	first := pollUntil(t, l)
	second := pollUntil(t, l)
	if first == nil || second == nil {
		t.Fatalf("first=%+v second=%+v", first, second)
	}
	got := []string{string(first.Data), string(second.Data)}
	sort.Strings(got)
	if got[0] != "boom" || got[1] != "retreat" {
		t.Fatalf("payloads=%v", got)
	}
}

func TestPollOnce_SilentPeerBlocksWithoutTimeout(t *testing.T) {
	l := startLoopback(t, Config{})
	c := dial(t, l)

	done := make(chan *Payload, 1)
	go func() { done <- pollUntil(t, l) }()

	select {
	case p := <-done:
		t.Fatalf("PollOnce returned %+v before the peer wrote", p)
	case <-time.After(200 * time.Millisecond):
	}

	if _, err := c.Write([]byte("zzzt")); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case p := <-done:
		if p == nil || string(p.Data) != "zzzt" {
			t.Fatalf("payload=%+v want zzzt", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("PollOnce did not return after the peer wrote")
	}
}

func TestPollOnce_ReadTimeoutReleasesSilentPeer(t *testing.T) {
	l := startLoopback(t, Config{ReadTimeout: 50 * time.Millisecond})
	_ = dial(t, l)

	start := time.Now()
	var got *Payload
	for i := 0; i < 50 && got == nil && time.Since(start) < time.Second; i++ {
		got = l.PollOnce()
	}
	if got == nil {
		t.Fatalf("expected a read failure payload")
	}
	if len(got.Data) != 0 || !errors.Is(got.Err, protocol.ErrRead) {
		t.Fatalf("payload=%+v want empty data and ErrRead", got)
	}
	if protocol.CodeOf(got.Err) != protocol.CodeRead {
		t.Fatalf("code=%s want=%s", protocol.CodeOf(got.Err), protocol.CodeRead)
	}
	if p := l.PollOnce(); p != nil {
		t.Fatalf("second poll=%+v want nil", p)
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Fatalf("silent peer held the poll for %v", d)
	}
}

func TestStart_BindFailure(t *testing.T) {
	l := startLoopback(t, Config{})
	_, err := Start(Config{Addr: l.Addr().String()}, log.New(io.Discard, "", 0))
	if err == nil {
		t.Fatalf("expected bind error")
	}
	if !errors.Is(err, protocol.ErrBind) {
		t.Fatalf("err=%v want ErrBind", err)
	}
	if protocol.CodeOf(err) != protocol.CodeBind {
		t.Fatalf("code=%s want=%s", protocol.CodeOf(err), protocol.CodeBind)
	}
}
