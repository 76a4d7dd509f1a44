package hardware

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TagFunc receives accepted tag scans.
type TagFunc func(ctx context.Context, tagID string)

// RFIDReader reads tag identifiers line by line from a serial-style device
// and debounces repeated scans of the same tag. Most USB RFID readers
// present exactly this interface.
type RFIDReader struct {
	path     string
	cooldown time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	lastTag  string
	lastRead time.Time
}

// NewRFIDReader builds a reader for the given device path.
func NewRFIDReader(path string, cooldown time.Duration, logger *zap.Logger) *RFIDReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	return &RFIDReader{
		path:     path,
		cooldown: cooldown,
		logger:   logger,
	}
}

// accept applies the same-tag cooldown. A different tag is always accepted.
func (r *RFIDReader) accept(tagID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tagID == r.lastTag && now.Sub(r.lastRead) < r.cooldown {
		return false
	}
	r.lastTag = tagID
	r.lastRead = now
	return true
}

// Run reads tags until ctx is cancelled, invoking fn for each accepted
// scan. The device is reopened after read errors.
func (r *RFIDReader) Run(ctx context.Context, fn TagFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.readOnce(ctx, fn); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			r.logger.Warn("rfid device unavailable, retrying", zap.String("device", r.path), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (r *RFIDReader) readOnce(ctx context.Context, fn TagFunc) error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	go func() {
		<-ctx.Done()
		f.Close()
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		tagID := strings.TrimSpace(scanner.Text())
		if tagID == "" {
			continue
		}
		if !r.accept(tagID, time.Now()) {
			r.logger.Debug("tag scan debounced", zap.String("tag", tagID))
			continue
		}

		r.logger.Info("tag scanned", zap.String("tag", tagID))
		fn(ctx, tagID)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return scanner.Err()
}
