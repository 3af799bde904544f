package approval

import (
	"context"
	"strings"

	"longbox/internal/logging"
)

// ApproveSeries selects seriesID for the current group and advances review.
// issueMatchingSeriesID names the series whose issue list is used for issue
// matching; empty means seriesID. Approving the last group builds file
// changes for every file and moves the session to file_review.
func (e *Engine) ApproveSeries(ctx context.Context, sessionID, groupID, seriesID, issueMatchingSeriesID string) (*Session, error) {
	return e.update(ctx, sessionID, opApproveSeries, func(ctx context.Context, s *Session) error {
		group, err := currentGroupFor(s, groupID, opApproveSeries)
		if err != nil {
			return err
		}
		if err := selectSeries(group, seriesID, issueMatchingSeriesID, opApproveSeries); err != nil {
			return err
		}
		logging.WithContext(ctx, e.logger).Info("series approved",
			logging.String(logging.FieldGroupID, group.ID),
			logging.String("series_id", seriesID),
			logging.String("series_name", group.SelectedSeries.Name),
		)
		return e.advanceSeriesReview(ctx, s)
	})
}

// SkipSeries leaves the current group without a series and advances review.
// Files in a skipped group are unmatched in file_review.
func (e *Engine) SkipSeries(ctx context.Context, sessionID string) (*Session, error) {
	return e.update(ctx, sessionID, opSkipSeries, func(ctx context.Context, s *Session) error {
		group := s.CurrentGroup()
		if group == nil {
			return outOfRange(string(opSkipSeries), "no current group")
		}
		group.Status = GroupSkipped
		group.SelectedSeries = nil
		group.IssueMatchingSeriesID = ""
		logging.WithContext(ctx, e.logger).Info("series skipped", logging.String(logging.FieldGroupID, group.ID))
		return e.advanceSeriesReview(ctx, s)
	})
}

// advanceSeriesReview moves to the next group, searching it, or finishes
// series review once every group is decided.
func (e *Engine) advanceSeriesReview(ctx context.Context, s *Session) error {
	s.CurrentSeriesIndex++
	if s.CurrentSeriesIndex >= len(s.SeriesGroups) {
		s.CurrentSeriesIndex = len(s.SeriesGroups)
		return e.advance(ctx, s, opFinishSeriesReview)
	}
	next := s.CurrentGroup()
	e.searchGroup(ctx, next, next.Query)
	return nil
}

// ResetSeriesGroup returns a group to pending during file review and rebuilds
// the changes of the files it currently holds, discarding their approvals and
// edits. The group is then resolved with ApproveResetSeries.
func (e *Engine) ResetSeriesGroup(ctx context.Context, sessionID, groupID string) (*Session, error) {
	return e.update(ctx, sessionID, opResetSeriesGroup, func(ctx context.Context, s *Session) error {
		group := s.Group(groupID)
		if group == nil {
			return outOfRange(string(opResetSeriesGroup), "unknown group "+groupID)
		}
		group.Status = GroupPending
		group.SelectedSeries = nil
		group.IssueMatchingSeriesID = ""
		e.rebuildFiles(ctx, s, group.FileIDs)
		logging.WithContext(ctx, e.logger).Info("series group reset",
			logging.String(logging.FieldGroupID, group.ID),
			logging.Int("files", len(group.FileIDs)),
		)
		return nil
	})
}

// ApproveResetSeries selects a series for a reset group and rebuilds only
// that group's files.
func (e *Engine) ApproveResetSeries(ctx context.Context, sessionID, groupID, seriesID, issueMatchingSeriesID string) (*Session, error) {
	return e.update(ctx, sessionID, opApproveResetSeries, func(ctx context.Context, s *Session) error {
		group := s.Group(groupID)
		if group == nil {
			return outOfRange(string(opApproveResetSeries), "unknown group "+groupID)
		}
		if group.Status != GroupPending {
			return invalidState(string(opApproveResetSeries), "group "+groupID+" has not been reset")
		}
		if err := selectSeries(group, seriesID, issueMatchingSeriesID, opApproveResetSeries); err != nil {
			return err
		}
		e.rebuildFiles(ctx, s, group.FileIDs)
		logging.WithContext(ctx, e.logger).Info("reset series approved",
			logging.String(logging.FieldGroupID, group.ID),
			logging.String("series_id", seriesID),
		)
		return nil
	})
}

func currentGroupFor(s *Session, groupID string, op operation) (*SeriesGroup, error) {
	if s.Group(groupID) == nil {
		return nil, outOfRange(string(op), "unknown group "+groupID)
	}
	group := s.CurrentGroup()
	if group == nil || group.ID != groupID {
		return nil, invalidState(string(op), "group "+groupID+" is not under review")
	}
	return group, nil
}

func selectSeries(group *SeriesGroup, seriesID, issueMatchingSeriesID string, op operation) error {
	candidate, ok := findCandidate(group, seriesID)
	if !ok {
		return outOfRange(string(op), "series "+seriesID+" is not a search result for group "+group.ID)
	}
	group.SelectedSeries = &candidate
	group.Status = GroupApproved
	group.IssueMatchingSeriesID = strings.TrimSpace(issueMatchingSeriesID)
	if group.IssueMatchingSeriesID == "" {
		group.IssueMatchingSeriesID = candidate.ID
	}
	return nil
}
