package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DexPilot/internal/domain/models"
	domrepo "DexPilot/internal/domain/repository"
)

// Sink receives validated snapshots; ingestion never fails.
type Sink interface {
	Ingest(s *models.MarketSnapshot)
}

// SnapshotPipeline sits between the feed and the snapshot windows. It
// validates, throttles per venue/pair, optionally transforms, and buffers so
// a burst from the feed never blocks the read loop.
type SnapshotPipeline struct {
	sink     Sink
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.MarketSnapshot
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per venue/pair last accepted time
	// optional format transform hook
	transform func(*models.MarketSnapshot) *models.MarketSnapshot
}

type PipelineOption func(*SnapshotPipeline)

// WithMaxRPS sets the max snapshots per second per venue/pair.
func WithMaxRPS(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the buffer between the feed and ingestion.
func WithBufferSize(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook applied before ingestion.
func WithTransform(fn func(*models.MarketSnapshot) *models.MarketSnapshot) PipelineOption {
	return func(p *SnapshotPipeline) { p.transform = fn }
}

// NewSnapshotPipeline creates a new pipeline.
func NewSnapshotPipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *SnapshotPipeline {
	p := &SnapshotPipeline{
		sink:     sink,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per venue/pair
		bufSize:  1000, // default buffer
		bufCh:    make(chan *models.MarketSnapshot, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.MarketSnapshot, p.bufSize)
	}
	return p
}

// Start launches background draining of buffered snapshots.
func (p *SnapshotPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case s := <-p.bufCh:
				if s == nil {
					continue
				}
				start := time.Now()
				p.sink.Ingest(s)
				p.metrics.RecordLatency("pipeline_ingest", time.Since(start).Seconds())
			}
		}
	}()
}

// Stop stops the background draining.
func (p *SnapshotPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and buffers one snapshot.
func (p *SnapshotPipeline) Process(ctx context.Context, s *models.MarketSnapshot) error {
	start := time.Now()
	if err := validateSnapshot(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		s = p.transform(s)
		if err := validateSnapshot(s); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	key := s.Venue + ":" + s.Pair
	if !p.allow(key, start) {
		// throttled; drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	select {
	case p.bufCh <- s:
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
	return nil
}

func validateSnapshot(s *models.MarketSnapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot nil")
	}
	if s.Pair == "" {
		return fmt.Errorf("pair empty")
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if s.LastPrice < 0 || s.Volume24h < 0 || s.PoolLiquidity < 0 {
		return fmt.Errorf("negative price/volume/liquidity")
	}
	for _, l := range append(append([]models.PriceLevel{}, s.Bids...), s.Asks...) {
		if l.Price < 0 || l.Size < 0 {
			return fmt.Errorf("negative book level")
		}
	}
	return nil
}

func (p *SnapshotPipeline) allow(key string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[key]
	if last.IsZero() {
		p.lastSeen[key] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[key] = now
	return true
}
