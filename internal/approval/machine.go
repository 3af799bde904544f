package approval

import (
	"fmt"

	"longbox/internal/services"
)

type operation string

const (
	opSearchSeries       operation = "search_series"
	opSearchSeriesGroup  operation = "search_series_group"
	opApproveSeries      operation = "approve_series"
	opSkipSeries         operation = "skip_series"
	opFinishSeriesReview operation = "finish_series_review"
	opResetSeriesGroup   operation = "reset_series_group"
	opApproveResetSeries operation = "approve_reset_series"
	opManualSelectIssue  operation = "manual_select_issue"
	opUpdateFields       operation = "update_field_approvals"
	opRegeneratePreview  operation = "regenerate_rename_preview"
	opRejectFile         operation = "reject_file"
	opAcceptAllFiles     operation = "accept_all_files"
	opRejectAllFiles     operation = "reject_all_files"
	opMoveFile           operation = "move_file_to_series_group"
	opBeginApply         operation = "begin_apply"
	opFinishApply        operation = "finish_apply"
	opFail               operation = "fail"
)

type effect int

const (
	effectNone effect = iota
	// effectBuildFileChanges materializes file changes for every file.
	effectBuildFileChanges
)

type transition struct {
	next   SessionStatus
	effect effect
}

func stay(status SessionStatus) transition { return transition{next: status} }

var transitions = map[SessionStatus]map[operation]transition{
	StatusSeriesReview: {
		opSearchSeries:       stay(StatusSeriesReview),
		opApproveSeries:      stay(StatusSeriesReview),
		opSkipSeries:         stay(StatusSeriesReview),
		opFinishSeriesReview: {next: StatusFileReview, effect: effectBuildFileChanges},
		opFail:               {next: StatusError},
	},
	StatusFileReview: {
		opSearchSeries:       stay(StatusFileReview),
		opSearchSeriesGroup:  stay(StatusFileReview),
		opResetSeriesGroup:   stay(StatusFileReview),
		opApproveResetSeries: stay(StatusFileReview),
		opManualSelectIssue:  stay(StatusFileReview),
		opUpdateFields:       stay(StatusFileReview),
		opRegeneratePreview:  stay(StatusFileReview),
		opRejectFile:         stay(StatusFileReview),
		opAcceptAllFiles:     stay(StatusFileReview),
		opRejectAllFiles:     stay(StatusFileReview),
		opMoveFile:           stay(StatusFileReview),
		opBeginApply:         {next: StatusApplying},
		opFail:               {next: StatusError},
	},
	StatusApplying: {
		opFinishApply: {next: StatusComplete},
		opFail:        {next: StatusError},
	},
}

// lookupTransition returns the transition for op from status or an
// ErrInvalidState error when the pair is not in the table.
func lookupTransition(status SessionStatus, op operation) (transition, error) {
	if next, ok := transitions[status][op]; ok {
		return next, nil
	}
	return transition{}, services.Wrap(
		services.ErrInvalidState,
		"approval",
		string(op),
		fmt.Sprintf("not allowed while session is %s", status),
		nil,
	)
}

// allowed reports whether op may run while the session is in status.
func allowed(status SessionStatus, op operation) bool {
	_, err := lookupTransition(status, op)
	return err == nil
}
