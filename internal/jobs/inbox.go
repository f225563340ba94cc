package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cloo-solutions/plancheck/internal/domain"
)

const (
	// MaxRetries is the number of attempts a bundle gets before it is moved
	// to the failed folder.
	MaxRetries = 3

	DoneDir   = "done"
	FailedDir = "failed"
)

// BundleIngester ingests one element bundle by reference.
type BundleIngester interface {
	IngestRef(ctx context.Context, ref string) (domain.IngestResult, error)
}

// InboxProcessor ingests *.json element bundles dropped into a directory.
// Ingested bundles move to done/, bundles that keep failing move to
// failed/ together with a .err file holding the last error. Producers
// should write to a .tmp name and rename it into place once complete.
type InboxProcessor struct {
	dir      string
	ingester BundleIngester
	logger   *zap.Logger

	mu       sync.Mutex
	attempts map[string]int
}

// NewInboxProcessor creates the inbox folders if needed.
func NewInboxProcessor(dir string, ingester BundleIngester, logger *zap.Logger) (*InboxProcessor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, sub := range []string{DoneDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create inbox folder: %w", err)
		}
	}
	return &InboxProcessor{
		dir:      dir,
		ingester: ingester,
		logger:   logger,
		attempts: make(map[string]int),
	}, nil
}

// Dir returns the watched directory.
func (p *InboxProcessor) Dir() string {
	return p.dir
}

// ProcessJobs implements the JobProcessor interface
func (p *InboxProcessor) ProcessJobs(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending, err := p.pending()
	if err != nil {
		return fmt.Errorf("failed to list inbox: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	p.logger.Info("processing inbox bundles", zap.Int("count", len(pending)))
	for _, name := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processBundle(ctx, name); err != nil {
			p.logger.Error("error processing bundle", zap.String("bundle", name), zap.Error(err))
		}
	}
	return nil
}

func (p *InboxProcessor) pending() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsBundleFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// IsBundleFile reports whether a file name looks like an element bundle.
func IsBundleFile(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), ".json") && !strings.HasPrefix(base, ".")
}

func (p *InboxProcessor) processBundle(ctx context.Context, name string) error {
	path := filepath.Join(p.dir, name)
	res, err := p.ingester.IngestRef(ctx, path)
	if err != nil {
		return p.handleFailure(name, err)
	}

	delete(p.attempts, name)
	if err := os.Rename(path, filepath.Join(p.dir, DoneDir, name)); err != nil {
		return fmt.Errorf("failed to move bundle to %s: %w", DoneDir, err)
	}
	p.logger.Info("bundle completed",
		zap.String("bundle", name),
		zap.Int("parents", res.Parents),
		zap.Int("children", res.Children),
		zap.Int("tables", res.Tables))
	return nil
}

// handleFailure retries a bundle on later passes until MaxRetries is
// reached. Validation errors are not retried, except for a bundle whose
// JSON ends early: it may still be mid-write.
func (p *InboxProcessor) handleFailure(name string, jobErr error) error {
	p.attempts[name]++
	attempt := p.attempts[name]

	permanent := isPermanent(jobErr)
	if !permanent && attempt < MaxRetries {
		p.logger.Warn("bundle will be retried",
			zap.String("bundle", name),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", MaxRetries),
			zap.Error(jobErr))
		return nil
	}

	delete(p.attempts, name)
	failed := filepath.Join(p.dir, FailedDir, name)
	if err := os.Rename(filepath.Join(p.dir, name), failed); err != nil {
		return fmt.Errorf("failed to move bundle to %s: %w", FailedDir, err)
	}
	msg := fmt.Sprintf("attempts: %d\nerror: %v\n", attempt, jobErr)
	if err := os.WriteFile(failed+".err", []byte(msg), 0o644); err != nil {
		return fmt.Errorf("failed to write error file: %w", err)
	}
	p.logger.Error("bundle failed", zap.String("bundle", name), zap.Int("attempts", attempt), zap.Error(jobErr))
	return nil
}

func isPermanent(err error) bool {
	if errors.Is(err, domain.ErrIncompleteBundle) {
		return false
	}
	var de *domain.DomainError
	return errors.As(err, &de) && de.Code == domain.ErrCodeValidation
}
