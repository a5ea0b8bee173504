package usecase

import (
	"context"

	"DexPilot/internal/domain/models"
	drepo "DexPilot/internal/domain/repository"
	mid "DexPilot/internal/middleware"
)

// SnapshotCollector drives the snapshot stream into the pipeline, reconnecting
// on stream errors.
type SnapshotCollector struct {
	stream  drepo.SnapshotStream
	pipe    *mid.SnapshotPipeline
	metrics drepo.Metrics
}

// NewSnapshotCollector creates a new SnapshotCollector instance.
func NewSnapshotCollector(stream drepo.SnapshotStream, pipe *mid.SnapshotPipeline, metrics drepo.Metrics) *SnapshotCollector {
	return &SnapshotCollector{stream: stream, pipe: pipe, metrics: metrics}
}

// IsConnected returns true if the snapshot stream is connected.
func (c *SnapshotCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SnapshotCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	snapCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, snapCh, errCh)
	return nil
}

func (c *SnapshotCollector) consume(ctx context.Context, snapCh <-chan *models.MarketSnapshot, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case s := <-snapCh:
			if s == nil {
				continue
			}
			_ = c.pipe.Process(ctx, s)
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *SnapshotCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.stream.Close()
}
