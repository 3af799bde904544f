package approval

import (
	"context"
	"errors"
	"testing"

	"longbox/internal/services"
)

func TestMoveFileAdjustsCountsAndRebuilds(t *testing.T) {
	h, session := scenarioA(t)
	ctx := context.Background()
	batman, superman := session.SeriesGroups[0], session.SeriesGroups[1]

	session, err := h.engine.MoveFileToSeriesGroup(ctx, session.ID, "file-batman_002", superman.ID)
	if err != nil {
		t.Fatalf("MoveFileToSeriesGroup: %v", err)
	}
	if got := len(session.Group(batman.ID).FileIDs); got != len(batman.FileIDs)-1 {
		t.Fatalf("source count = %d", got)
	}
	target := session.Group(superman.ID)
	if len(target.FileIDs) != len(superman.FileIDs)+1 || target.FileIDs[len(target.FileIDs)-1] != "file-batman_002" {
		t.Fatalf("target files = %v", target.FileIDs)
	}
	// Superman has no issue #002, so the moved file cannot match.
	fc := session.FileChange("file-batman_002")
	if fc.Status != FileUnmatched || len(fc.Fields) != 0 {
		t.Fatalf("moved file change = %+v", fc)
	}
	if len(target.Filenames) != 2 {
		t.Fatalf("target previews = %v", target.Filenames)
	}
	counts := groupFileUnion(session)
	if len(counts) != 3 {
		t.Fatalf("union after move = %v", counts)
	}
	for id, n := range counts {
		if n != 1 {
			t.Fatalf("file %s appears %d times", id, n)
		}
	}
}

func TestMoveFileIntoApprovedGroupMatches(t *testing.T) {
	h, session := scenarioA(t)
	ctx := context.Background()
	session, err := h.engine.MoveFileToSeriesGroup(ctx, session.ID, "file-superman_001", session.SeriesGroups[0].ID)
	if err != nil {
		t.Fatalf("MoveFileToSeriesGroup: %v", err)
	}
	fc := session.FileChange("file-superman_001")
	if fc.Status != FileMatched || fc.MatchedIssue.ID != "bat-x-1" {
		t.Fatalf("moved file change = %+v", fc)
	}
	if len(session.Group(session.SeriesGroups[1].ID).FileIDs) != 0 {
		t.Fatal("source group should be empty but kept")
	}
}

func TestMoveFileToSameOrUnknownGroupIsRejected(t *testing.T) {
	h, session := scenarioA(t)
	ctx := context.Background()
	before, _ := h.engine.GetSession(ctx, session.ID)

	_, err := h.engine.MoveFileToSeriesGroup(ctx, session.ID, "file-batman_001", session.SeriesGroups[0].ID)
	if !errors.Is(err, services.ErrInvalidTarget) {
		t.Fatalf("same group err = %v", err)
	}
	_, err = h.engine.MoveFileToSeriesGroup(ctx, session.ID, "file-batman_001", "g-42")
	if !errors.Is(err, services.ErrInvalidTarget) {
		t.Fatalf("unknown group err = %v", err)
	}
	_, err = h.engine.MoveFileToSeriesGroup(ctx, session.ID, "file-nope", session.SeriesGroups[1].ID)
	if !errors.Is(err, services.ErrOutOfRange) {
		t.Fatalf("unknown file err = %v", err)
	}

	after, _ := h.engine.GetSession(ctx, session.ID)
	for i := range before.SeriesGroups {
		if len(before.SeriesGroups[i].FileIDs) != len(after.SeriesGroups[i].FileIDs) {
			t.Fatalf("group %d changed after rejected move", i)
		}
	}
	if after.FileChange("file-batman_001").Status != FileMatched {
		t.Fatal("file change altered by rejected move")
	}
}

func TestMoveFileNotAllowedDuringSeriesReview(t *testing.T) {
	h := newHarness(t, "batman_001.cbz", "superman_001.cbz")
	session := h.create(t, "file-batman_001", "file-superman_001")
	_, err := h.engine.MoveFileToSeriesGroup(context.Background(), session.ID, "file-batman_001", session.SeriesGroups[1].ID)
	if !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
}

func TestResetAndReapproveGroup(t *testing.T) {
	h, session := scenarioA(t)
	ctx := context.Background()
	batman := session.SeriesGroups[0]

	no := false
	if _, err := h.engine.UpdateFieldApprovals(ctx, session.ID, "file-batman_001", []FieldUpdate{{Field: FieldSeries, Approved: &no}}); err != nil {
		t.Fatalf("UpdateFieldApprovals: %v", err)
	}
	session, err := h.engine.ResetSeriesGroup(ctx, session.ID, batman.ID)
	if err != nil {
		t.Fatalf("ResetSeriesGroup: %v", err)
	}
	group := session.Group(batman.ID)
	if group.Status != GroupPending || group.SelectedSeries != nil {
		t.Fatalf("reset group = %+v", group)
	}
	if session.CurrentSeriesIndex != len(session.SeriesGroups) || session.Status != StatusFileReview {
		t.Fatalf("reset moved the session: %s/%d", session.Status, session.CurrentSeriesIndex)
	}
	for _, id := range batman.FileIDs {
		if fc := session.FileChange(id); fc.Status != FileUnmatched {
			t.Fatalf("file %s status = %s after reset", id, fc.Status)
		}
	}
	if fc := session.FileChange("file-superman_001"); fc.Status != FileMatched {
		t.Fatalf("other group's file changed: %s", fc.Status)
	}

	session, err = h.engine.SearchSeriesCustom(ctx, session.ID, "batman")
	if err != nil {
		t.Fatalf("SearchSeriesCustom in file review: %v", err)
	}
	if len(session.Group(batman.ID).SearchResults) != 2 {
		t.Fatalf("reset group not searched: %+v", session.Group(batman.ID))
	}
	if _, err := h.engine.ApproveSeries(ctx, session.ID, batman.ID, "bat-x", ""); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("main approve flow should be closed, err = %v", err)
	}
	session, err = h.engine.ApproveResetSeries(ctx, session.ID, batman.ID, "bat-x", "")
	if err != nil {
		t.Fatalf("ApproveResetSeries: %v", err)
	}
	fc := session.FileChange("file-batman_001")
	if fc.Status != FileMatched || !fc.Fields[FieldSeries].Approved {
		t.Fatalf("rebuilt change should have fresh approvals: %+v", fc)
	}
	if _, err := h.engine.ApproveResetSeries(ctx, session.ID, batman.ID, "bat-x", ""); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("approving a non-reset group err = %v", err)
	}
}

func TestResetSeriesGroupUnknownGroup(t *testing.T) {
	h, session := scenarioA(t)
	if _, err := h.engine.ResetSeriesGroup(context.Background(), session.ID, "g-77"); !errors.Is(err, services.ErrOutOfRange) {
		t.Fatalf("err = %v, want out of range", err)
	}
}

func TestSearchSeriesGroupRequiresResetGroup(t *testing.T) {
	h, session := scenarioA(t)
	ctx := context.Background()
	if _, err := h.engine.SearchSeriesGroup(ctx, session.ID, session.SeriesGroups[0].ID, "Batman"); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
	if _, err := h.engine.ResetSeriesGroup(ctx, session.ID, session.SeriesGroups[1].ID); err != nil {
		t.Fatalf("ResetSeriesGroup: %v", err)
	}
	session, err := h.engine.SearchSeriesGroup(ctx, session.ID, session.SeriesGroups[1].ID, "")
	if err != nil {
		t.Fatalf("SearchSeriesGroup: %v", err)
	}
	if got := session.SeriesGroups[1]; got.Query != "superman" || len(got.SearchResults) != 1 {
		t.Fatalf("group = %+v", got)
	}
}

func TestManualSelectIssue(t *testing.T) {
	h, session := scenarioA(t)
	ctx := context.Background()
	session, err := h.engine.ManualSelectIssue(ctx, session.ID, "file-batman_001", "fake", "bat-x-2")
	if err != nil {
		t.Fatalf("ManualSelectIssue: %v", err)
	}
	fc := session.FileChange("file-batman_001")
	if fc.Status != FileManual || fc.MatchedIssue.ID != "bat-x-2" {
		t.Fatalf("change = %+v", fc)
	}
	for name, diff := range fc.Fields {
		if diff.Confidence != 1 {
			t.Fatalf("field %s confidence = %v", name, diff.Confidence)
		}
	}
	if fc.Fields[FieldVolume].Proposed != "2016" {
		t.Fatalf("volume from selected series = %+v", fc.Fields[FieldVolume])
	}

	if _, err := h.engine.ManualSelectIssue(ctx, session.ID, "file-batman_001", "nowhere", "x"); !errors.Is(err, services.ErrInvalidTarget) {
		t.Fatalf("unknown source err = %v", err)
	}
	if _, err := h.engine.ManualSelectIssue(ctx, session.ID, "file-batman_001", "fake", "missing"); !errors.Is(err, services.ErrProvider) {
		t.Fatalf("missing issue err = %v", err)
	}
	got, _ := h.engine.GetSession(ctx, session.ID)
	if got.FileChange("file-batman_001").MatchedIssue.ID != "bat-x-2" {
		t.Fatal("failed manual select altered the file")
	}
}

func TestUpdateFieldApprovalsIsAllOrNothing(t *testing.T) {
	h, session := scenarioA(t)
	ctx := context.Background()
	no := false
	edit := "Custom"
	_, err := h.engine.UpdateFieldApprovals(ctx, session.ID, "file-batman_001", []FieldUpdate{
		{Field: FieldSeries, Approved: &no, Edited: &edit},
		{Field: "colorist", Approved: &no},
	})
	if !errors.Is(err, services.ErrOutOfRange) {
		t.Fatalf("err = %v, want out of range", err)
	}
	got, _ := h.engine.GetSession(ctx, session.ID)
	diff := got.FileChange("file-batman_001").Fields[FieldSeries]
	if !diff.Approved || diff.Edited != nil {
		t.Fatalf("partial update leaked: %+v", diff)
	}

	got, err = h.engine.UpdateFieldApprovals(ctx, session.ID, "file-batman_001", []FieldUpdate{{Field: FieldSeries, Edited: &edit}})
	if err != nil {
		t.Fatalf("UpdateFieldApprovals: %v", err)
	}
	fc := got.FileChange("file-batman_001")
	if fc.Status != FileMatched || fc.Fields[FieldSeries].Value() != "Custom" {
		t.Fatalf("change = %+v", fc)
	}
	if fc.RenamePreview == nil || *fc.RenamePreview != "Custom 1.cbz" {
		t.Fatalf("preview not refreshed: %v", fc.RenamePreview)
	}
	got, _ = h.engine.UpdateFieldApprovals(ctx, session.ID, "file-batman_001", []FieldUpdate{{Field: FieldSeries, ClearEdit: true}})
	if got.FileChange("file-batman_001").Fields[FieldSeries].Edited != nil {
		t.Fatal("ClearEdit left the edit in place")
	}
}

func TestRegenerateRenamePreview(t *testing.T) {
	h, session := scenarioA(t)
	ctx := context.Background()
	session, err := h.engine.RegenerateRenamePreview(ctx, session.ID, "file-batman_001", map[FieldName]string{
		FieldSeries: "Detective Comics",
		FieldNumber: "27",
	})
	if err != nil {
		t.Fatalf("RegenerateRenamePreview: %v", err)
	}
	if p := session.FileChange("file-batman_001").RenamePreview; p == nil || *p != "Detective Comics 27.cbz" {
		t.Fatalf("preview = %v", p)
	}
	if _, err := h.engine.RegenerateRenamePreview(ctx, session.ID, "file-missing", nil); !errors.Is(err, services.ErrOutOfRange) {
		t.Fatalf("unknown file err = %v", err)
	}
}

func TestRejectAllThenAcceptAllRestoresStatuses(t *testing.T) {
	h, session := scenarioA(t)
	ctx := context.Background()
	if _, err := h.engine.ManualSelectIssue(ctx, session.ID, "file-superman_001", "fake", "sup-y-1"); err != nil {
		t.Fatalf("ManualSelectIssue: %v", err)
	}
	no := false
	if _, err := h.engine.UpdateFieldApprovals(ctx, session.ID, "file-batman_001", []FieldUpdate{{Field: FieldTitle, Approved: &no}}); err != nil {
		t.Fatalf("UpdateFieldApprovals: %v", err)
	}

	session, err := h.engine.RejectAllFiles(ctx, session.ID)
	if err != nil {
		t.Fatalf("RejectAllFiles: %v", err)
	}
	for _, fc := range session.FileChanges {
		if fc.Status != FileRejected {
			t.Fatalf("file %s status = %s", fc.FileID, fc.Status)
		}
	}

	session, err = h.engine.AcceptAllFiles(ctx, session.ID)
	if err != nil {
		t.Fatalf("AcceptAllFiles: %v", err)
	}
	if got := session.FileChange("file-superman_001").Status; got != FileManual {
		t.Fatalf("superman status = %s, want manual", got)
	}
	if got := session.FileChange("file-batman_001").Status; got != FileMatched {
		t.Fatalf("batman status = %s, want matched", got)
	}
	if !session.FileChange("file-batman_001").Fields[FieldTitle].Approved {
		t.Fatal("accept all should approve every changing field")
	}
}

func TestFieldOperationsUnknownFile(t *testing.T) {
	h, session := scenarioA(t)
	ctx := context.Background()
	if _, err := h.engine.RejectFile(ctx, session.ID, "file-unknown"); !errors.Is(err, services.ErrOutOfRange) {
		t.Fatalf("RejectFile err = %v", err)
	}
	if _, err := h.engine.UpdateFieldApprovals(ctx, session.ID, "file-unknown", nil); !errors.Is(err, services.ErrOutOfRange) {
		t.Fatalf("UpdateFieldApprovals err = %v", err)
	}
}
