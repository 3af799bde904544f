package approval

import (
	"context"
	"fmt"

	"longbox/internal/logging"
	"longbox/internal/services"
)

// ApplyChanges writes approved values file by file. One file's failure never
// stops the batch; the session reaches complete with the breakdown recorded.
// Rejected files are not written and are absent from the result.
func (e *Engine) ApplyChanges(ctx context.Context, sessionID string) (*ApplyResult, error) {
	snapshot, err := e.update(ctx, sessionID, opBeginApply, nil)
	if err != nil {
		return nil, err
	}
	ctx = services.WithSessionID(ctx, sessionID)
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("apply started", logging.Int("files", len(snapshot.FileChanges)))

	result, err := e.writeAll(ctx, snapshot)
	if err != nil {
		failMessage := err.Error()
		if _, ferr := e.update(ctx, sessionID, opFail, func(_ context.Context, s *Session) error {
			s.Error = failMessage
			s.Result = result
			return nil
		}); ferr != nil {
			logger.Error("record apply failure", logging.Error(ferr))
		}
		logging.ErrorWithContext(logger, "apply aborted", "apply_aborted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the failing file and start a new session"),
		)
		return result, err
	}

	if _, err := e.update(ctx, sessionID, opFinishApply, func(_ context.Context, s *Session) error {
		s.Result = result
		return nil
	}); err != nil {
		return result, err
	}

	logger.Info("apply completed",
		logging.Int("processed", result.Processed),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", result.Skipped),
	)
	e.invalidate(ctx, snapshot, result.SucceededIDs)
	return result, nil
}

// writeAll runs the sequential write loop. A panicking writer aborts the run
// with an error; ordinary write errors are recorded per file.
func (e *Engine) writeAll(ctx context.Context, s *Session) (result *ApplyResult, err error) {
	result = &ApplyResult{Errors: []ApplyError{}, SucceededIDs: []string{}}
	var current string
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrWrite, "approval", "apply", fmt.Sprintf("writer panicked on file %s", current), fmt.Errorf("%v", r))
		}
	}()

	for i := range s.FileChanges {
		change := &s.FileChanges[i]
		if change.Status == FileRejected {
			continue
		}
		fields := change.ApprovedFields()
		if len(fields) == 0 {
			result.Skipped++
			continue
		}
		current = change.FileID
		fileCtx := services.WithFileID(ctx, change.FileID)
		result.Processed++
		if werr := e.writer.ApplyFields(fileCtx, change.FileID, fields); werr != nil {
			result.Failed++
			result.Errors = append(result.Errors, ApplyError{FileID: change.FileID, Error: werr.Error()})
			logging.WarnWithContext(logging.WithContext(fileCtx, e.logger), "file write failed", "apply_write_failed",
				logging.Error(services.Wrap(services.ErrWrite, "approval", "apply", change.FileID, werr)),
				logging.String(logging.FieldErrorHint, "check the archive is writable and not corrupt"),
				logging.String(logging.FieldImpact, "file keeps its previous metadata"),
			)
			continue
		}
		result.Succeeded++
		result.SucceededIDs = append(result.SucceededIDs, change.FileID)
	}
	return result, nil
}

// invalidate notifies downstream caches in the background. Failures are
// logged only.
func (e *Engine) invalidate(ctx context.Context, s *Session, fileIDs []string) {
	if e.invalidator == nil || len(fileIDs) == 0 {
		return
	}
	seriesIDs := changedSeries(s, fileIDs)
	ctx = context.WithoutCancel(ctx)
	logger := logging.WithContext(ctx, e.logger)

	e.background.Add(1)
	go func() {
		defer e.background.Done()
		if err := e.invalidator.NotifyFilesChanged(ctx, fileIDs); err != nil {
			logging.WarnWithContext(logger, "file invalidation failed", "invalidation_failed",
				logging.Error(err),
				logging.Int("files", len(fileIDs)),
				logging.String(logging.FieldImpact, "downstream views may show stale metadata until refreshed"),
			)
		}
		if len(seriesIDs) == 0 {
			return
		}
		if err := e.invalidator.NotifySeriesChanged(ctx, seriesIDs); err != nil {
			logging.WarnWithContext(logger, "series invalidation failed", "invalidation_failed",
				logging.Error(err),
				logging.Strings("series_ids", seriesIDs),
				logging.String(logging.FieldImpact, "downstream views may show stale metadata until refreshed"),
			)
		}
	}()
}

// changedSeries collects the series touched by each written file: the
// matched issue's series and the group's selected series, which differ when
// issues were matched against an override series.
func changedSeries(s *Session, fileIDs []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range fileIDs {
		if change := s.FileChange(id); change != nil && change.MatchedIssue != nil {
			add(change.MatchedIssue.SeriesID)
		}
		if group := s.GroupOfFile(id); group != nil && group.SelectedSeries != nil {
			add(group.SelectedSeries.ID)
		}
	}
	return out
}
