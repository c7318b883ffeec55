package indexdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"colonylink.ai/internal/protocol"
	"colonylink.ai/internal/sim/catalogs"
	"colonylink.ai/internal/sim/tuning"
)

// IngestQueueCapacity is the number of events buffered ahead of the flush loop.
const IngestQueueCapacity = 4096

// IngestConfig configures the remote index backend: batches of events POSTed as JSON
// to an ingest endpoint.
type IngestConfig struct {
	Endpoint      string
	Token         string
	ColonyID      string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	// MaxRetained caps how many unsent events survive failed flushes.
	MaxRetained int
	Logger      *log.Logger
}

type IngestIndex struct {
	cfg        IngestConfig
	httpClient *http.Client

	ch   chan ingestEvent
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	sentTotal         atomic.Uint64
	flushFailTotal    atomic.Uint64
	queueDroppedTotal atomic.Uint64
	retainDropTotal   atomic.Uint64
}

type IngestStats struct {
	QueueDepth        int
	QueueCapacity     int
	SentTotal         uint64
	FlushFailTotal    uint64
	QueueDroppedTotal uint64
	RetainDropTotal   uint64
}

type ingestEvent struct {
	Kind     string `json:"kind"`
	ColonyID string `json:"colony_id"`
	Payload  any    `json:"payload"`
}

type ingestCatalogPayload struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	JSON      string `json:"json"`
	UpdatedAt string `json:"updated_at"`
}

func OpenIngest(cfg IngestConfig) (*IngestIndex, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.ColonyID = strings.TrimSpace(cfg.ColonyID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty ingest endpoint")
	}
	if cfg.ColonyID == "" {
		return nil, fmt.Errorf("empty colony id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.MaxRetained <= 0 {
		cfg.MaxRetained = cfg.BatchSize * 16
	}

	d := &IngestIndex{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		ch:         make(chan ingestEvent, IngestQueueCapacity),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

func (d *IngestIndex) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *IngestIndex) WriteCommand(e protocol.CommandEntry) error {
	d.enqueue(ingestEvent{Kind: "command", ColonyID: d.cfg.ColonyID, Payload: e})
	return nil
}

func (d *IngestIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if d == nil || d.closed.Load() || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range catalogRows(configDir, cats, tune) {
		d.enqueue(ingestEvent{Kind: "catalog", ColonyID: d.cfg.ColonyID, Payload: ingestCatalogPayload{
			Name:      r.name,
			Digest:    r.digest,
			JSON:      string(r.data),
			UpdatedAt: now,
		}})
	}
	return nil
}

func (d *IngestIndex) Stats() IngestStats {
	if d == nil {
		return IngestStats{}
	}
	return IngestStats{
		QueueDepth:        len(d.ch),
		QueueCapacity:     cap(d.ch),
		SentTotal:         d.sentTotal.Load(),
		FlushFailTotal:    d.flushFailTotal.Load(),
		QueueDroppedTotal: d.queueDroppedTotal.Load(),
		RetainDropTotal:   d.retainDropTotal.Load(),
	}
}

func (d *IngestIndex) enqueue(ev ingestEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- ev:
	default:
		d.queueDroppedTotal.Add(1)
		d.printf("ingest queue full; drop kind=%s colony=%s", ev.Kind, ev.ColonyID)
	}
}

// loop batches events and flushes on size or interval. A failed batch is kept, up to
// MaxRetained events, and retried only on the flush interval until a send succeeds.
func (d *IngestIndex) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]ingestEvent, 0, d.cfg.BatchSize)
	backoff := false
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			d.flushFailTotal.Add(1)
			d.printf("ingest flush failed batch=%d err=%v", len(batch), err)
			if over := len(batch) - d.cfg.MaxRetained; over > 0 {
				d.retainDropTotal.Add(uint64(over))
				batch = append(batch[:0], batch[over:]...)
			}
			backoff = true
			return
		}
		d.sentTotal.Add(uint64(len(batch)))
		batch = batch[:0]
		backoff = false
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if !backoff && len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *IngestIndex) sendBatch(events []ingestEvent) error {
	body := struct {
		Events []ingestEvent `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	if d.cfg.Token != "" {
		req.Header.Set("x-cl-index-token", d.cfg.Token)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func (d *IngestIndex) printf(format string, args ...any) {
	if d != nil && d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
