package main

import (
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"colonylink.ai/internal/control"
	"colonylink.ai/internal/persistence/indexdb"
	"colonylink.ai/internal/sim/catalogs"
	"colonylink.ai/internal/sim/tuning"
)

// runtimeIndex is the read-model sink the server writes commands and catalogs to.
type runtimeIndex interface {
	control.Sink
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
}

type indexSettings struct {
	Backend string `env:"CL_INDEX_BACKEND" envDefault:"sqlite"`

	IngestURL         string `env:"CL_INDEX_INGEST_URL"`
	IngestToken       string `env:"CL_INDEX_INGEST_TOKEN"`
	IngestFlushMS     int    `env:"CL_INDEX_INGEST_FLUSH_MS" envDefault:"500"`
	IngestBatchSize   int    `env:"CL_INDEX_INGEST_BATCH_SIZE" envDefault:"64"`
	IngestMaxRetained int    `env:"CL_INDEX_INGEST_MAX_RETAINED"`
	IngestTimeoutMS   int    `env:"CL_INDEX_INGEST_TIMEOUT_MS" envDefault:"10000"`
}

func loadIndexSettings() (indexSettings, error) {
	var s indexSettings
	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("index settings: %w", err)
	}
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	s.IngestURL = strings.TrimSpace(s.IngestURL)
	s.IngestToken = strings.TrimSpace(s.IngestToken)
	if s.Backend == "" {
		s.Backend = "sqlite"
	}
	return s, nil
}

// validateIngest checks the HTTP backend settings. The batch must fit the writer
// queue and retention must hold at least one batch.
func (s indexSettings) validateIngest() error {
	if s.IngestURL == "" {
		return fmt.Errorf("CL_INDEX_BACKEND=%s but CL_INDEX_INGEST_URL is empty", s.Backend)
	}
	u, err := url.Parse(s.IngestURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CL_INDEX_INGEST_URL must be an http(s) url, got %q", s.IngestURL)
	}
	if s.IngestBatchSize < 1 || s.IngestBatchSize > indexdb.IngestQueueCapacity {
		return fmt.Errorf("CL_INDEX_INGEST_BATCH_SIZE=%d out of range [1,%d]", s.IngestBatchSize, indexdb.IngestQueueCapacity)
	}
	if s.IngestFlushMS < 10 || s.IngestFlushMS > 60_000 {
		return fmt.Errorf("CL_INDEX_INGEST_FLUSH_MS=%d out of range [10,60000]", s.IngestFlushMS)
	}
	if s.IngestTimeoutMS < 1 {
		return fmt.Errorf("CL_INDEX_INGEST_TIMEOUT_MS=%d must be positive", s.IngestTimeoutMS)
	}
	if s.IngestMaxRetained != 0 && s.IngestMaxRetained < s.IngestBatchSize {
		return fmt.Errorf("CL_INDEX_INGEST_MAX_RETAINED=%d below batch size %d", s.IngestMaxRetained, s.IngestBatchSize)
	}
	return nil
}

func openRuntimeIndex(colonyDir, colonyID string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}
	s, err := loadIndexSettings()
	if err != nil {
		return nil, err
	}

	switch s.Backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(colonyDir, "index", "colony.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "http", "ingest":
		if err := s.validateIngest(); err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Printf("index backend: ingest url=%s batch=%d flush_ms=%d", s.IngestURL, s.IngestBatchSize, s.IngestFlushMS)
		}
		idx, err := indexdb.OpenIngest(indexdb.IngestConfig{
			Endpoint:      s.IngestURL,
			Token:         s.IngestToken,
			ColonyID:      colonyID,
			BatchSize:     s.IngestBatchSize,
			FlushInterval: time.Duration(s.IngestFlushMS) * time.Millisecond,
			HTTPTimeout:   time.Duration(s.IngestTimeoutMS) * time.Millisecond,
			MaxRetained:   s.IngestMaxRetained,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported CL_INDEX_BACKEND: %s", s.Backend)
	}
}
