package approval

import (
	"context"
	"errors"
	"testing"
)

func TestMergeIssueKeepsIdentity(t *testing.T) {
	listing := Issue{ID: "1", Source: "fake", SeriesID: "s", Number: "1", Title: "Listing", Year: 2016}
	detail := Issue{ID: "other", Number: "99", Title: "Detail", Writer: "Tom King", Month: 6}

	got := mergeIssue(listing, detail)
	if got.ID != "1" || got.Number != "1" || got.SeriesID != "s" {
		t.Fatalf("identity fields changed: %#v", got)
	}
	if got.Title != "Detail" || got.Writer != "Tom King" || got.Year != 2016 || got.Month != 6 {
		t.Fatalf("unexpected merge %#v", got)
	}
}

func TestMatchedFilesUseIssueDetail(t *testing.T) {
	h := newHarness(t, "batman_001.cbz")
	h.source.details["bat-x-1"] = Issue{ID: "bat-x-1", Writer: "Tom King", Penciller: "David Finch"}
	session := h.create(t, "file-batman_001")

	session, err := h.engine.ApproveSeries(context.Background(), session.ID, session.SeriesGroups[0].ID, "bat-x", "")
	if err != nil {
		t.Fatalf("ApproveSeries: %v", err)
	}
	change := session.FileChange("file-batman_001")
	if change == nil || change.Status != FileMatched {
		t.Fatalf("expected matched change, got %#v", change)
	}
	if got := change.Fields[FieldWriter].Proposed; got != "Tom King" {
		t.Fatalf("expected writer from detail, got %q", got)
	}
	if got := change.Fields[FieldTitle].Proposed; got != "I Am Gotham" {
		t.Fatalf("expected listing title kept, got %q", got)
	}
}

func TestIssueDetailFailureKeepsListing(t *testing.T) {
	h := newHarness(t, "batman_002.cbz")
	h.source.detailErr = errors.New("detail endpoint down")
	session := h.create(t, "file-batman_002")

	session, err := h.engine.ApproveSeries(context.Background(), session.ID, session.SeriesGroups[0].ID, "bat-x", "")
	if err != nil {
		t.Fatalf("ApproveSeries: %v", err)
	}
	change := session.FileChange("file-batman_002")
	if change == nil || change.Status != FileMatched {
		t.Fatalf("expected matched change, got %#v", change)
	}
	if _, ok := change.Fields[FieldWriter]; ok {
		t.Fatal("expected no writer without detail")
	}
}
