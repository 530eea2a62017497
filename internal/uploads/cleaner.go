package uploads

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/auditlog"
	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/fsops"
	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Report is the result of one batch delete. Removed is always a subset of
// Candidates; Candidates holds every path recognized as a local upload,
// including files that were already absent. Ordering of both lists is
// unspecified: input URLs are deduplicated into a set and processed in map
// iteration order.
type Report struct {
	RunID      string   `json:"run_id"`
	Removed    []string `json:"removed"`
	Candidates []string `json:"candidates"`
}

// GCLogger interface for structured logging in the cleaner
type GCLogger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// gcStdLogger wraps standard log.Logger to implement GCLogger
type gcStdLogger struct {
	*log.Logger
}

func (l *gcStdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *gcStdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *gcStdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Metrics interface for cleaner metrics
type Metrics interface {
	CandidatesTotal() prometheus.Counter
	FilesRemovedTotal() prometheus.Counter
	DeleteErrorsTotal() prometheus.Counter
}

// gcMetrics wraps the global metrics to implement Metrics
type gcMetrics struct{}

func (m *gcMetrics) CandidatesTotal() prometheus.Counter   { return metrics.CandidatesTotal }
func (m *gcMetrics) FilesRemovedTotal() prometheus.Counter { return metrics.FilesRemovedTotal }
func (m *gcMetrics) DeleteErrorsTotal() prometheus.Counter { return metrics.DeleteErrorsTotal }

// Cleaner deletes local upload files referenced by URLs
type Cleaner struct {
	resolver *Resolver
	deleter  fsops.Deleter
	logger   GCLogger
	metrics  Metrics
	db       *auditlog.DB // optional deletion history
	dryRun   bool
}

// NewCleaner creates a new Cleaner. db may be nil when no audit history is
// wanted; logger nil falls back to log.Default().
func NewCleaner(resolver *Resolver, logger *log.Logger, dryRun bool, db *auditlog.DB) *Cleaner {
	metrics.Init()
	gcLogger := &gcStdLogger{Logger: logger}
	if logger == nil {
		gcLogger.Logger = log.Default()
	}
	return &Cleaner{
		resolver: resolver,
		deleter:  fsops.OSDeleter{},
		logger:   gcLogger,
		metrics:  &gcMetrics{},
		db:       db,
		dryRun:   dryRun,
	}
}

// SetDeleter replaces the filesystem deleter (used by tests)
func (c *Cleaner) SetDeleter(d fsops.Deleter) {
	c.deleter = d
}

// DeleteLocalUploads resolves every URL, filters through the containment
// guard and deletes the existing files. The operation is total: it never
// returns an error, per-file failures are absorbed and show up only as
// omission from Removed. Callers that need a failure signal compare
// Candidates against Removed.
func (c *Cleaner) DeleteLocalUploads(urls []string) Report {
	// Deduplicate; blank entries are dropped silently
	unique := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			continue
		}
		unique[u] = struct{}{}
	}

	// Slices start non-nil so an empty report marshals as [] rather
	// than null
	report := Report{
		RunID:      uuid.NewString(),
		Removed:    []string{},
		Candidates: []string{},
	}

	c.logger.Info("Starting uploads GC",
		"run_id", report.RunID,
		"urls", len(urls),
		"unique", len(unique),
		"dry_run", c.dryRun,
	)

	for u := range unique {
		path, ok := c.resolver.Resolve(u)
		if !ok {
			// Not a local upload (external domain, data: URI, traversal
			// attempt, malformed input); contributes to neither list
			continue
		}

		report.Candidates = append(report.Candidates, path)
		c.metrics.CandidatesTotal().Inc()

		// Existence follows symlinks: a dangling link counts as missing
		if _, err := os.Stat(path); err != nil {
			c.record(report.RunID, auditlog.ActionMissing, u, path, "")
			continue
		}

		info, err := os.Lstat(path)
		if err != nil {
			c.record(report.RunID, auditlog.ActionMissing, u, path, "")
			continue
		}

		// Only file entries are ever unlinked. A URL may resolve to a
		// directory (or to the uploads root itself, via /uploads/); such
		// a path is still a candidate but is never deleted. The check is
		// on the entry itself: deleting a symlink removes the link, so a
		// link to a directory is fine
		if info.IsDir() {
			c.logger.Error("Refusing to delete directory", "path", path)
			c.record(report.RunID, auditlog.ActionError, u, path, "is a directory")
			c.metrics.DeleteErrorsTotal().Inc()
			continue
		}

		if c.dryRun {
			c.logger.Info("[DRY RUN] Would delete upload", "path", path)
			report.Removed = append(report.Removed, path)
			c.record(report.RunID, auditlog.ActionDryRun, u, path, "")
			continue
		}

		if err := c.deleter.Remove(path); err != nil {
			// Losing the existence-check/delete race to another actor is
			// success of intent: the file is gone either way
			if os.IsNotExist(err) {
				c.logger.Info("Upload already deleted (race)", "path", path)
			} else {
				c.logger.Error("Failed to delete upload", "path", path, "error", err)
				c.record(report.RunID, auditlog.ActionError, u, path, err.Error())
				c.metrics.DeleteErrorsTotal().Inc()
				continue
			}
		}

		report.Removed = append(report.Removed, path)
		c.metrics.FilesRemovedTotal().Inc()
		c.record(report.RunID, auditlog.ActionRemoved, u, path, "")
	}

	c.logger.Info("Uploads GC complete",
		"run_id", report.RunID,
		"removed", len(report.Removed),
		"candidates", len(report.Candidates),
	)

	return report
}

// record writes one audit row; a history write failure never fails the batch
func (c *Cleaner) record(runID, action, url, path, errorMsg string) {
	if c.db == nil {
		return
	}
	if err := c.db.Record(runID, action, url, path, errorMsg); err != nil {
		c.logger.Error("Failed to record audit event", "error", err)
	}
}

// DeleteLocalUploads is the convenience entry point for library callers:
// real filesystem deleter, no audit history, default logger
func DeleteLocalUploads(root string, urls []string) (Report, error) {
	resolver, err := NewResolver(root)
	if err != nil {
		return Report{}, err
	}
	cleaner := NewCleaner(resolver, nil, false, nil)
	return cleaner.DeleteLocalUploads(urls), nil
}
