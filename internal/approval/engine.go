package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"longbox/internal/config"
	"longbox/internal/logging"
	"longbox/internal/services"
)

// Dependencies bundles the collaborators an Engine consumes. Files, Parser,
// Sources and Writer are required.
type Dependencies struct {
	Files       FileSource
	Parser      FilenameParser
	Cleaner     NameCleaner
	Sources     []SeriesSource
	Writer      MetadataWriter
	Renamer     RenameResolver
	Invalidator Invalidator
	Store       SessionStore
	Clock       Clock
}

// Engine runs approval sessions.
type Engine struct {
	store       SessionStore
	files       FileSource
	parser      FilenameParser
	cleaner     NameCleaner
	sources     []SeriesSource
	writer      MetadataWriter
	renamer     RenameResolver
	invalidator Invalidator
	logger      *slog.Logger
	now         Clock

	autoApproveThreshold float64
	issueMatchThreshold  float64
	previewFilenames     int
	sweepInterval        time.Duration

	background sync.WaitGroup
}

// NewEngine constructs an engine from configuration and collaborators. A nil
// store becomes a MemoryStore using the configured session TTL.
func NewEngine(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "approval", "new engine", "config is required", nil)
	}
	switch {
	case deps.Files == nil:
		return nil, services.Wrap(services.ErrConfiguration, "approval", "new engine", "file source is required", nil)
	case deps.Parser == nil:
		return nil, services.Wrap(services.ErrConfiguration, "approval", "new engine", "filename parser is required", nil)
	case len(deps.Sources) == 0:
		return nil, services.Wrap(services.ErrConfiguration, "approval", "new engine", "at least one series source is required", nil)
	case deps.Writer == nil:
		return nil, services.Wrap(services.ErrConfiguration, "approval", "new engine", "metadata writer is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	store := deps.Store
	if store == nil {
		store = NewMemoryStore(cfg.SessionTTL(), clock)
	}
	return &Engine{
		store:                store,
		files:                deps.Files,
		parser:               deps.Parser,
		cleaner:              deps.Cleaner,
		sources:              append([]SeriesSource(nil), deps.Sources...),
		writer:               deps.Writer,
		renamer:              deps.Renamer,
		invalidator:          deps.Invalidator,
		logger:               logging.NewComponentLogger(logger, "approval"),
		now:                  clock,
		autoApproveThreshold: cfg.Approval.AutoApproveThreshold,
		issueMatchThreshold:  cfg.Approval.IssueMatchThreshold,
		previewFilenames:     cfg.Approval.PreviewFilenames,
		sweepInterval:        cfg.SweepInterval(),
	}, nil
}

// AutoApproveThreshold returns the confidence at which fields and candidates
// are approved without operator input.
func (e *Engine) AutoApproveThreshold() float64 { return e.autoApproveThreshold }

// CreateSession groups fileIDs into series groups and searches the first group.
func (e *Engine) CreateSession(ctx context.Context, fileIDs []string, opts SessionOptions) (*Session, error) {
	return e.CreateSessionWithProgress(ctx, fileIDs, opts, nil)
}

// CreateSessionWithProgress is CreateSession with progress reported to fn.
func (e *Engine) CreateSessionWithProgress(ctx context.Context, fileIDs []string, opts SessionOptions, fn ProgressFunc) (*Session, error) {
	progress := func(message, detail string) {
		if fn != nil {
			fn(message, detail)
		}
	}
	ids := dedupe(fileIDs)
	if len(ids) == 0 {
		return nil, services.Wrap(services.ErrValidation, "approval", "create session", "at least one file id is required", nil)
	}

	session := &Session{
		ID:            uuid.NewString(),
		FileIDs:       ids,
		Status:        StatusSeriesReview,
		UseLLMCleanup: opts.UseLLMCleanup,
		files:         make(map[string]File, len(ids)),
		hints:         make(map[string]ParsedName, len(ids)),
	}
	ctx = services.WithSessionID(ctx, session.ID)
	logger := logging.WithContext(ctx, e.logger)

	progress("Loading files", fmt.Sprintf("%d files", len(ids)))
	files := make([]File, 0, len(ids))
	for _, id := range ids {
		file, err := e.files.File(ctx, id)
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, "approval", "create session", "load file "+id, err)
		}
		file.ID = id
		session.files[id] = file
		files = append(files, file)
	}

	progress("Grouping files", fmt.Sprintf("%d files", len(files)))
	e.groupFiles(ctx, session, files, progress)

	if group := session.CurrentGroup(); group != nil {
		progress("Searching series", group.Query)
		e.searchGroup(ctx, group, group.Query)
	}

	if err := e.store.Create(session); err != nil {
		return nil, err
	}
	logger.Info("approval session created",
		logging.Int("files", len(ids)),
		logging.Int("groups", len(session.SeriesGroups)),
		logging.Bool("llm_cleanup", opts.UseLLMCleanup),
	)
	progress("Ready", fmt.Sprintf("%d series groups", len(session.SeriesGroups)))
	return session.Clone(), nil
}

// GetSession returns a deep copy of the session.
func (e *Engine) GetSession(_ context.Context, sessionID string) (*Session, error) {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return nil, sessionNotFound(sessionID)
	}
	return session, nil
}

// DeleteSession removes a session. Applying sessions cannot be deleted.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	if err := e.store.Delete(sessionID); err != nil {
		return err
	}
	logging.WithContext(services.WithSessionID(ctx, sessionID), e.logger).Info("approval session deleted")
	return nil
}

// StartSweeper removes expired sessions every sweep interval until ctx ends.
func (e *Engine) StartSweeper(ctx context.Context) {
	interval := e.sweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.Sweep()
			}
		}
	}()
}

// Sweep removes expired sessions now and returns how many were removed.
func (e *Engine) Sweep() int {
	removed := e.store.Sweep(e.now())
	if len(removed) > 0 {
		e.logger.Info("expired approval sessions swept",
			logging.Int("count", len(removed)),
			logging.Strings("session_ids", removed),
		)
	}
	return len(removed)
}

// Wait blocks until background work (sweeper, invalidation) has finished.
func (e *Engine) Wait() {
	e.background.Wait()
}

// update runs fn for op under the session's writer lock after checking the
// transition table. The session status is advanced on success.
func (e *Engine) update(ctx context.Context, sessionID string, op operation, fn func(context.Context, *Session) error) (*Session, error) {
	ctx = services.WithSessionID(ctx, sessionID)
	return e.store.Update(sessionID, func(s *Session) error {
		next, err := lookupTransition(s.Status, op)
		if err != nil {
			return err
		}
		before := s.Status
		if fn != nil {
			if err := fn(ctx, s); err != nil {
				return err
			}
		}
		// fn may already have chained a follow-up transition.
		if s.Status == before {
			s.Status = next.next
		}
		return nil
	})
}

// advance applies a chained transition inside an update, running its effect
// before the status changes.
func (e *Engine) advance(ctx context.Context, s *Session, op operation) error {
	next, err := lookupTransition(s.Status, op)
	if err != nil {
		return err
	}
	switch next.effect {
	case effectBuildFileChanges:
		e.buildAllFileChanges(ctx, s)
	}
	s.Status = next.next
	return nil
}

func (e *Engine) source(name string) SeriesSource {
	for _, src := range e.sources {
		if strings.EqualFold(src.Name(), name) {
			return src
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func outOfRange(op, message string) error {
	return services.Wrap(services.ErrOutOfRange, "approval", op, message, nil)
}

func invalidState(op, message string) error {
	return services.Wrap(services.ErrInvalidState, "approval", op, message, nil)
}
