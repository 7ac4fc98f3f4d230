package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron"

	"seoul-dashboard/internal/config"
)

var ErrUnavailable = errors.New("district boundaries unavailable")

const maxDocumentBytes = 32 << 20

// Store holds the most recently fetched boundary document. A failed refresh
// leaves the previous document in place.
type Store struct {
	mu        sync.RWMutex
	fc        *FeatureCollection
	fetchedAt time.Time

	source  string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func NewStore(cfg config.GeoConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source:  cfg.Source,
		timeout: cfg.FetchTimeout,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		logger:  logger,
	}
}

// Set installs a parsed collection directly.
func (s *Store) Set(fc *FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fc = fc
	s.fetchedAt = time.Now()
}

func (s *Store) Collection() (*FeatureCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fc == nil {
		return nil, ErrUnavailable
	}
	return s.fc, nil
}

func (s *Store) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Refresh fetches and parses the boundary document from the configured
// source, an http(s) URL or a local path.
func (s *Store) Refresh(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	body, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("fetch boundaries: %w", err)
	}
	defer body.Close()

	fc, err := Parse(io.LimitReader(body, maxDocumentBytes))
	if err != nil {
		return fmt.Errorf("parse boundaries: %w", err)
	}

	s.Set(fc)
	s.logger.Info("district boundaries loaded",
		"source", s.source,
		"features", len(fc.Features),
	)
	return nil
}

func (s *Store) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(s.source, "http://") && !strings.HasPrefix(s.source, "https://") {
		return os.Open(s.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

// Schedule refreshes the document on a cron spec such as "@every 1h".
// The caller stops the returned scheduler.
func (s *Store) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	err := c.AddFunc(spec, func() {
		if err := s.Refresh(context.Background()); err != nil {
			s.logger.Warn("boundary refresh failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule boundary refresh %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
