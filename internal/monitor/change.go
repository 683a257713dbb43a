package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/IshaanNene/storetrends/internal/storage"
	"github.com/IshaanNene/storetrends/internal/types"
)

// ChangeType identifies what kind of chart change occurred.
type ChangeType string

const (
	ChangeEntered ChangeType = "entered"
	ChangeLeft    ChangeType = "left"
	ChangeMoved   ChangeType = "moved"
	ChangePrice   ChangeType = "price"
)

// Change is one difference between two snapshots of the same region.
type Change struct {
	Region    string     `json:"region"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Type      ChangeType `json:"type"`
	OldRank   int        `json:"old_rank,omitempty"`
	NewRank   int        `json:"new_rank,omitempty"`
	OldValue  string     `json:"old_value,omitempty"`
	NewValue  string     `json:"new_value,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ChangeDetector compares snapshots against the last one seen per region.
type ChangeDetector struct {
	stateDir string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewChangeDetector creates a change detector keeping state under stateDir.
func NewChangeDetector(stateDir string, logger *slog.Logger) (*ChangeDetector, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &ChangeDetector{
		stateDir: stateDir,
		logger:   logger.With("component", "change_detector"),
	}, nil
}

// Detect compares snap with the previous snapshot for its region and records
// snap as the new baseline. The first snapshot of a region yields no changes.
func (cd *ChangeDetector) Detect(snap *storage.Snapshot) ([]Change, error) {
	cd.mu.Lock()
	defer cd.mu.Unlock()

	prev, err := cd.load(snap.Region.Code)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cd.logger.Info("baseline recorded", "region", snap.Region.Code, "listings", snap.Count)
		return nil, cd.save(snap)
	case err != nil:
		return nil, err
	}

	if prev.Checksum == snap.Checksum {
		cd.logger.Debug("chart unchanged", "region", snap.Region.Code, "checksum", snap.Checksum)
		return nil, nil
	}

	changes := Diff(prev, snap)
	return changes, cd.save(snap)
}

func (cd *ChangeDetector) load(code string) (*storage.Snapshot, error) {
	data, err := os.ReadFile(cd.statePath(code))
	if err != nil {
		return nil, err
	}
	var snap storage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode state for %s: %w", code, err)
	}
	return &snap, nil
}

func (cd *ChangeDetector) save(snap *storage.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(cd.statePath(snap.Region.Code), data, 0o644)
}

func (cd *ChangeDetector) statePath(code string) string {
	return filepath.Join(cd.stateDir, code+".json")
}

// Diff lists listings that entered, left, moved rank or changed price between old and new.
// Changes follow the new chart's order, then departures in the old chart's order.
func Diff(old, new *storage.Snapshot) []Change {
	now := time.Now()
	before := make(map[string]*types.Listing, len(old.Listings))
	for _, l := range old.Listings {
		before[l.ID] = l
	}

	var changes []Change
	seen := make(map[string]bool, len(new.Listings))
	for _, l := range new.Listings {
		seen[l.ID] = true
		base := Change{Region: new.Region.Code, ID: l.ID, Title: l.Title, NewRank: l.Rank, Timestamp: now}

		prev, ok := before[l.ID]
		if !ok {
			c := base
			c.Type = ChangeEntered
			changes = append(changes, c)
			continue
		}
		if prev.Rank != l.Rank {
			c := base
			c.Type = ChangeMoved
			c.OldRank = prev.Rank
			changes = append(changes, c)
		}
		if prev.Price != l.Price {
			c := base
			c.Type = ChangePrice
			c.OldValue = prev.Price
			c.NewValue = l.Price
			changes = append(changes, c)
		}
	}

	for _, l := range old.Listings {
		if !seen[l.ID] {
			changes = append(changes, Change{
				Region:    old.Region.Code,
				ID:        l.ID,
				Title:     l.Title,
				Type:      ChangeLeft,
				OldRank:   l.Rank,
				Timestamp: now,
			})
		}
	}
	return changes
}

// --- Scheduled Re-Checks ---

// Scheduler runs a check immediately and then on every interval until stopped.
type Scheduler struct {
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a new scheduler.
func NewScheduler(interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		logger:   logger.With("component", "watch_scheduler"),
	}
}

// Start begins running check in the background. Errors are logged and do not stop the loop.
func (s *Scheduler) Start(ctx context.Context, check func(ctx context.Context) error) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for run := 1; ; run++ {
			s.logger.Info("running check", "run", run)
			if err := check(ctx); err != nil {
				s.logger.Error("check failed", "run", run, "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the scheduler and waits for an in-flight check to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// --- Notification System ---

// NotificationChannel delivers detected changes.
type NotificationChannel interface {
	Send(ctx context.Context, changes []Change) error
	Type() string
}

// Notifier fans detected changes out to every registered channel.
type Notifier struct {
	channels []NotificationChannel
	logger   *slog.Logger
}

// NewNotifier creates a new change notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger: logger.With("component", "notifier"),
	}
}

// AddChannel registers a notification channel.
func (n *Notifier) AddChannel(ch NotificationChannel) {
	n.channels = append(n.channels, ch)
}

// Notify sends changes to all registered channels.
func (n *Notifier) Notify(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}
	for _, ch := range n.channels {
		if err := ch.Send(ctx, changes); err != nil {
			n.logger.Error("notification failed", "channel", ch.Type(), "error", err)
		}
	}
}

// LogChannel writes each change as a structured log line.
type LogChannel struct {
	Logger *slog.Logger
}

func (l *LogChannel) Type() string { return "log" }

func (l *LogChannel) Send(ctx context.Context, changes []Change) error {
	for _, c := range changes {
		l.Logger.Info("chart change",
			"region", c.Region,
			"type", c.Type,
			"id", c.ID,
			"title", c.Title,
			"old_rank", c.OldRank,
			"new_rank", c.NewRank,
			"old", c.OldValue,
			"new", c.NewValue,
		)
	}
	return nil
}

// WebhookChannel posts changes as JSON to a URL.
type WebhookChannel struct {
	URL    string
	Client *http.Client
}

func (w *WebhookChannel) Type() string { return "webhook" }

func (w *WebhookChannel) Send(ctx context.Context, changes []Change) error {
	body, err := json.Marshal(map[string]any{
		"changes":   changes,
		"count":     len(changes),
		"timestamp": time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
