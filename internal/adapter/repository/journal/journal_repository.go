package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/V4T54L/defect-lens/internal/domain"
)

const (
	segmentPrefix = "safety-"
	segmentSuffix = ".jsonl"
	filePerm      = 0644
	maxLineBytes  = 1024 * 1024
)

// ErrEntryTooLarge is returned when a single entry cannot fit within the disk budget.
var ErrEntryTooLarge = errors.New("journal entry exceeds max disk size")

type segment struct {
	path string
	seq  uint64
	size int64
}

// Repository is an append-only safety log stored as JSON Lines segments.
// When the disk budget is exceeded the oldest closed segments are removed.
type Repository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu       sync.Mutex
	segments []segment // oldest first; the last one is open for writing
	current  *os.File
	total    int64
}

// NewRepository opens the journal in dir, creating it if needed.
func NewRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*Repository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory %s: %w", dir, err)
	}

	r := &Repository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "safety_journal"),
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	if err := r.openTail(); err != nil {
		return nil, err
	}

	return r, nil
}

// Append writes entry to the current segment, rotating and pruning as needed.
func (r *Repository) Append(ctx context.Context, entry domain.SafetyLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal safety log for journal: %w", err)
	}
	data = append(data, '\n')
	size := int64(len(data))
	if size > r.maxTotalSize {
		return fmt.Errorf("%w (%d > %d)", ErrEntryTooLarge, size, r.maxTotalSize)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		if err := r.rotate(); err != nil {
			return err
		}
	}

	tail := &r.segments[len(r.segments)-1]
	if tail.size > 0 && tail.size+size > r.maxSegmentSize {
		if err := r.rotate(); err != nil {
			return err
		}
		tail = &r.segments[len(r.segments)-1]
	}
	r.prune(size)

	n, err := r.current.Write(data)
	tail.size += int64(n)
	r.total += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write to journal segment: %w", err)
	}
	return nil
}

// Replay calls handler for every entry, oldest first. Undecodable lines are skipped.
func (r *Repository) Replay(ctx context.Context, handler func(entry domain.SafetyLog) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, seg := range r.segments {
		if err := r.replaySegment(ctx, seg.path, handler); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) replaySegment(ctx context.Context, path string, handler func(entry domain.SafetyLog) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var entry domain.SafetyLog
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			r.logger.Warn("Failed to decode journal line, skipping", "error", err, "segment", path)
			continue
		}
		if err := handler(entry); err != nil {
			return fmt.Errorf("replay handler failed: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error scanning segment %s: %w", path, err)
	}
	return nil
}

// Truncate removes every segment and starts a fresh one.
func (r *Repository) Truncate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeCurrent()
	for _, seg := range r.segments {
		if err := os.Remove(seg.path); err != nil && !os.IsNotExist(err) {
			r.logger.Error("Failed to remove journal segment", "path", seg.path, "error", err)
		}
	}
	r.segments = nil
	r.total = 0

	r.logger.Info("Journal truncated")
	return r.rotate()
}

// Close syncs and closes the open segment.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	if err := r.current.Sync(); err != nil {
		r.logger.Error("Failed to sync journal segment", "error", err)
	}
	err := r.current.Close()
	r.current = nil
	return err
}

// prune drops the oldest closed segments until incoming bytes fit the budget.
func (r *Repository) prune(incoming int64) {
	for r.total+incoming > r.maxTotalSize && len(r.segments) > 1 {
		oldest := r.segments[0]
		if err := os.Remove(oldest.path); err != nil && !os.IsNotExist(err) {
			r.logger.Error("Failed to remove journal segment", "path", oldest.path, "error", err)
			return
		}
		r.segments = r.segments[1:]
		r.total -= oldest.size
		r.logger.Info("Pruned journal segment", "path", oldest.path, "size", oldest.size)
	}
}

func (r *Repository) rotate() error {
	r.closeCurrent()

	var seq uint64 = 1
	if n := len(r.segments); n > 0 {
		seq = r.segments[n-1].seq + 1
	}
	path := filepath.Join(r.dir, segmentName(seq))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create journal segment %s: %w", path, err)
	}

	r.current = f
	r.segments = append(r.segments, segment{path: path, seq: seq})
	r.logger.Debug("Rotated to new journal segment", "path", path)
	return nil
}

func (r *Repository) closeCurrent() {
	if r.current == nil {
		return
	}
	if err := r.current.Sync(); err != nil {
		r.logger.Error("Failed to sync journal segment", "error", err)
	}
	if err := r.current.Close(); err != nil {
		r.logger.Error("Failed to close journal segment", "error", err)
	}
	r.current = nil
}

func (r *Repository) openTail() error {
	if len(r.segments) == 0 {
		return r.rotate()
	}

	tail := r.segments[len(r.segments)-1]
	if tail.size >= r.maxSegmentSize {
		return r.rotate()
	}

	f, err := os.OpenFile(tail.path, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open journal segment %s: %w", tail.path, err)
	}
	r.current = f
	r.logger.Info("Opened existing journal segment", "path", tail.path, "size", tail.size)
	return nil
}

func (r *Repository) load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("failed to read journal directory: %w", err)
	}

	for _, entry := range entries {
		seq, ok := parseSegmentName(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		r.segments = append(r.segments, segment{
			path: filepath.Join(r.dir, entry.Name()),
			seq:  seq,
			size: info.Size(),
		})
		r.total += info.Size()
	}
	sort.Slice(r.segments, func(i, j int) bool { return r.segments[i].seq < r.segments[j].seq })
	return nil
}

func segmentName(seq uint64) string {
	return fmt.Sprintf("%s%020d%s", segmentPrefix, seq, segmentSuffix)
}

func parseSegmentName(name string) (uint64, bool) {
	if !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentSuffix) {
		return 0, false
	}
	seq, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, segmentPrefix), segmentSuffix), 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
