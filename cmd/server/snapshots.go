package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"merchantboard.ai/internal/persistence/snapshot"
	"merchantboard.ai/internal/sim/merchant"
)

type snapshotRecorder interface {
	RecordSnapshot(path string, h snapshot.Header)
}

// snapshotter writes hub snapshots on demand, on a cron schedule and once
// more on shutdown.
type snapshotter struct {
	hub      *merchant.Hub
	dir      string
	serverID string
	index    snapshotRecorder
	logger   *log.Logger

	mu   sync.Mutex // one write at a time
	cron *cron.Cron

	written  atomic.Uint64
	failed   atomic.Uint64
	lastUnix atomic.Int64
}

func newSnapshotter(h *merchant.Hub, dir, serverID string, index snapshotRecorder, logger *log.Logger) *snapshotter {
	return &snapshotter{hub: h, dir: dir, serverID: serverID, index: index, logger: logger}
}

func (s *snapshotter) Write(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.hub.Snapshot(ctx, s.serverID)
	if err != nil {
		s.failed.Add(1)
		return "", err
	}
	path := filepath.Join(s.dir, snapshot.FileName(snap.Header.CreatedAt))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		s.failed.Add(1)
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if s.index != nil {
		s.index.RecordSnapshot(path, snap.Header)
	}
	s.written.Add(1)
	s.lastUnix.Store(snap.Header.CreatedAt)
	return path, nil
}

// Schedule registers spec (cron with seconds). An empty spec disables it.
func (s *snapshotter) Schedule(ctx context.Context, spec string) error {
	if spec == "" {
		s.logger.Printf("scheduled snapshots disabled")
		return nil
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() {
		ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		path, err := s.Write(ctx2)
		if err != nil {
			s.logger.Printf("snapshot: %v", err)
			return
		}
		s.logger.Printf("snapshot written: %s", filepath.Base(path))
	}); err != nil {
		return fmt.Errorf("register snapshot schedule: %w", err)
	}
	s.cron = c
	c.Start()
	return nil
}

// Stop waits for a running scheduled write to finish.
func (s *snapshotter) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// restoreLatest stages explicit or latest snapshot players on the hub.
func restoreLatest(h *merchant.Hub, cfg serverConfig, logger *log.Logger) error {
	path := cfg.Snapshot
	if path == "" && cfg.LoadLatest {
		p, err := snapshot.Latest(cfg.snapshotDir())
		if err != nil {
			return err
		}
		path = p
	}
	if path == "" {
		return nil
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.ServerID != "" && snap.Header.ServerID != cfg.ServerID {
		return fmt.Errorf("snapshot server id mismatch: flag=%s snap=%s", cfg.ServerID, snap.Header.ServerID)
	}
	n := h.Restore(snap)
	logger.Printf("staged %d players from snapshot=%s", n, filepath.Base(path))
	return nil
}
