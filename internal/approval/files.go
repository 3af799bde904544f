package approval

import (
	"context"
	"slices"

	"longbox/internal/logging"
	"longbox/internal/services"
)

// FieldUpdate changes one field of a file change. Nil members are left as is.
type FieldUpdate struct {
	Field    FieldName `json:"field"`
	Approved *bool     `json:"approved,omitempty"`
	Edited   *string   `json:"edited,omitempty"`
	// ClearEdit drops a previous edit so the proposed value applies again.
	ClearEdit bool `json:"clear_edit,omitempty"`
}

// ManualSelectIssue forces a file onto issueID from the named source and
// rebuilds its field diffs with full confidence.
func (e *Engine) ManualSelectIssue(ctx context.Context, sessionID, fileID, source, issueID string) (*Session, error) {
	return e.update(ctx, sessionID, opManualSelectIssue, func(ctx context.Context, s *Session) error {
		change, err := fileChangeFor(s, fileID, opManualSelectIssue)
		if err != nil {
			return err
		}
		src := e.source(source)
		if src == nil {
			return services.Wrap(services.ErrInvalidTarget, "approval", string(opManualSelectIssue), "unknown source "+source, nil)
		}
		issue, err := src.Issue(services.WithFileID(ctx, fileID), issueID)
		if err != nil {
			return services.Wrap(services.ErrProvider, "approval", string(opManualSelectIssue), "fetch issue "+issueID, err)
		}
		if issue.Source == "" {
			issue.Source = src.Name()
		}

		var series *CandidateSeries
		if group := s.GroupOfFile(fileID); group != nil && group.SelectedSeries != nil &&
			(group.SelectedSeries.ID == issue.SeriesID || group.IssueMatchingSeriesID == issue.SeriesID) {
			series = group.SelectedSeries
		}
		file := s.files[fileID]
		*change = FileChange{
			FileID:       fileID,
			Filename:     file.Filename,
			Status:       FileManual,
			MatchedIssue: issueRef(issue, 1),
			Fields:       e.buildFieldDiffs(file.Fields, proposedValues(series, issue), 1, 1),
		}
		e.refreshRenamePreview(change, file)
		logging.WithContext(services.WithFileID(ctx, fileID), e.logger).Info("issue selected manually",
			logging.String("source", src.Name()),
			logging.String("issue_id", issueID),
		)
		return nil
	})
}

// UpdateFieldApprovals toggles approval and edits on named fields of a file.
// All updates apply or none do; the file status is unchanged.
func (e *Engine) UpdateFieldApprovals(ctx context.Context, sessionID, fileID string, updates []FieldUpdate) (*Session, error) {
	return e.update(ctx, sessionID, opUpdateFields, func(_ context.Context, s *Session) error {
		change, err := fileChangeFor(s, fileID, opUpdateFields)
		if err != nil {
			return err
		}
		for _, u := range updates {
			diff, ok := change.Fields[u.Field]
			if !ok {
				return outOfRange(string(opUpdateFields), "file "+fileID+" has no field "+string(u.Field))
			}
			if u.ClearEdit {
				diff.Edited = nil
			}
			if u.Edited != nil {
				edited := *u.Edited
				diff.Edited = &edited
			}
			if u.Approved != nil {
				diff.Approved = *u.Approved
			}
			change.Fields[u.Field] = diff
		}
		e.refreshRenamePreview(change, s.files[fileID])
		return nil
	})
}

// RegenerateRenamePreview renders the rename preview from a supplied field
// snapshot. A nil snapshot uses the file's current values overlaid with its
// approved changes.
func (e *Engine) RegenerateRenamePreview(ctx context.Context, sessionID, fileID string, fields map[FieldName]string) (*Session, error) {
	return e.update(ctx, sessionID, opRegeneratePreview, func(_ context.Context, s *Session) error {
		change, err := fileChangeFor(s, fileID, opRegeneratePreview)
		if err != nil {
			return err
		}
		if e.renamer == nil {
			return services.Wrap(services.ErrConfiguration, "approval", string(opRegeneratePreview), "no rename resolver configured", nil)
		}
		if fields == nil {
			fields = effectiveFields(s.files[fileID], change)
		}
		preview, err := e.renamer.Preview(fields)
		if err != nil {
			return services.Wrap(services.ErrValidation, "approval", string(opRegeneratePreview), "render preview", err)
		}
		change.RenamePreview = &preview
		return nil
	})
}

// RejectFile excludes a file from apply.
func (e *Engine) RejectFile(ctx context.Context, sessionID, fileID string) (*Session, error) {
	return e.update(ctx, sessionID, opRejectFile, func(_ context.Context, s *Session) error {
		change, err := fileChangeFor(s, fileID, opRejectFile)
		if err != nil {
			return err
		}
		reject(change)
		return nil
	})
}

// RejectAllFiles excludes every file from apply.
func (e *Engine) RejectAllFiles(ctx context.Context, sessionID string) (*Session, error) {
	return e.update(ctx, sessionID, opRejectAllFiles, func(_ context.Context, s *Session) error {
		for i := range s.FileChanges {
			reject(&s.FileChanges[i])
		}
		return nil
	})
}

// AcceptAllFiles restores rejected files and approves every field whose value
// would change.
func (e *Engine) AcceptAllFiles(ctx context.Context, sessionID string) (*Session, error) {
	return e.update(ctx, sessionID, opAcceptAllFiles, func(_ context.Context, s *Session) error {
		for i := range s.FileChanges {
			change := &s.FileChanges[i]
			if change.Status == FileRejected {
				change.Status = change.restoreStatus
				if change.Status == "" {
					change.Status = FileUnmatched
				}
				change.restoreStatus = ""
			}
			for name, diff := range change.Fields {
				if diff.Value() != diff.Current {
					diff.Approved = true
					change.Fields[name] = diff
				}
			}
			e.refreshRenamePreview(change, s.files[change.FileID])
		}
		return nil
	})
}

// MoveFileToSeriesGroup moves a file into another group and rebuilds its
// change against that group's selected series, or leaves it unmatched.
func (e *Engine) MoveFileToSeriesGroup(ctx context.Context, sessionID, fileID, targetGroupID string) (*Session, error) {
	return e.update(ctx, sessionID, opMoveFile, func(ctx context.Context, s *Session) error {
		if _, err := fileChangeFor(s, fileID, opMoveFile); err != nil {
			return err
		}
		target := s.Group(targetGroupID)
		if target == nil {
			return services.Wrap(services.ErrInvalidTarget, "approval", string(opMoveFile), "unknown group "+targetGroupID, nil)
		}
		from := s.GroupOfFile(fileID)
		if from == nil {
			return outOfRange(string(opMoveFile), "file "+fileID+" is not in any group")
		}
		if from.ID == target.ID {
			return services.Wrap(services.ErrInvalidTarget, "approval", string(opMoveFile), "file "+fileID+" is already in group "+target.ID, nil)
		}
		from.FileIDs = slices.DeleteFunc(from.FileIDs, func(id string) bool { return id == fileID })
		target.FileIDs = append(target.FileIDs, fileID)
		e.refreshPreviews(s)
		e.rebuildFiles(ctx, s, []string{fileID})
		logging.WithContext(services.WithFileID(ctx, fileID), e.logger).Info("file moved between series groups",
			logging.String("from_group", from.ID),
			logging.String("to_group", target.ID),
		)
		return nil
	})
}

func fileChangeFor(s *Session, fileID string, op operation) (*FileChange, error) {
	change := s.FileChange(fileID)
	if change == nil {
		return nil, outOfRange(string(op), "unknown file "+fileID)
	}
	return change, nil
}

func reject(change *FileChange) {
	if change.Status == FileRejected {
		return
	}
	change.restoreStatus = change.Status
	change.Status = FileRejected
}
