package comicinfo_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"longbox/internal/approval"
	"longbox/internal/comicinfo"
	"longbox/internal/testsupport"
)

const existingInfo = `<?xml version="1.0" encoding="utf-8"?>
<ComicInfo xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <Series>Batman</Series>
  <Number>1</Number>
  <Notes>Scanned by someone</Notes>
  <Pages><Page Image="0" Type="FrontCover" /></Pages>
</ComicInfo>`

func TestReadMissingComicInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Saga 001.cbz")
	testsupport.WriteCBZ(t, path, nil)

	fields, err := comicinfo.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("expected no fields, got %v", fields)
	}
}

func TestUpdatePreservesEntriesAndUnknownElements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batman_001.cbz")
	page := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	testsupport.WriteCBZ(t, path, map[string][]byte{
		"page001.jpg":       page,
		comicinfo.EntryName: []byte(existingInfo),
	})

	err := comicinfo.Update(context.Background(), path, map[approval.FieldName]string{
		approval.FieldSeries:  "Batman & Robin",
		approval.FieldNumber:  "",
		approval.FieldYear:    "2016",
		approval.FieldSummary: "Gotham <burns>",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if got := testsupport.ReadZipEntry(t, path, "page001.jpg"); !bytes.Equal(got, page) {
		t.Fatalf("page bytes changed: %v", got)
	}
	raw := string(testsupport.ReadZipEntry(t, path, comicinfo.EntryName))
	if !strings.Contains(raw, "<Notes>Scanned by someone</Notes>") || !strings.Contains(raw, `<Page Image="0" Type="FrontCover"`) {
		t.Fatalf("unmanaged elements lost:\n%s", raw)
	}
	if strings.Index(raw, "<Series>") > strings.Index(raw, "<Year>") {
		t.Fatalf("expected schema element order:\n%s", raw)
	}

	fields, err := comicinfo.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := map[approval.FieldName]string{
		approval.FieldSeries:  "Batman & Robin",
		approval.FieldYear:    "2016",
		approval.FieldSummary: "Gotham <burns>",
	}
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("field %s = %q, want %q", k, fields[k], v)
		}
	}
}

func TestUpdateLeavesFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.cbz")
	testsupport.WriteCBZ(t, path, map[string][]byte{comicinfo.EntryName: []byte("<ComicInfo><Series>")})

	before := testsupport.ReadZipEntry(t, path, comicinfo.EntryName)
	if err := comicinfo.Update(context.Background(), path, map[approval.FieldName]string{approval.FieldSeries: "X"}); err == nil {
		t.Fatal("expected parse error")
	}
	after := testsupport.ReadZipEntry(t, path, comicinfo.EntryName)
	if !bytes.Equal(before, after) {
		t.Fatal("archive changed after failed update")
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".longbox-*"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

type mapResolver map[string]string

func (m mapResolver) Path(_ context.Context, id string) (string, error) {
	path, ok := m[id]
	if !ok {
		return "", errors.New("unknown file")
	}
	return path, nil
}

func TestWriterApplyFields(t *testing.T) {
	dir := t.TempDir()
	cbz := filepath.Join(dir, "saga_001.cbz")
	testsupport.WriteCBZ(t, cbz, nil)
	resolver := mapResolver{"a": cbz, "b": filepath.Join(dir, "saga_002.cbr")}

	w, err := comicinfo.NewWriter(resolver)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	ctx := context.Background()
	if err := w.ApplyFields(ctx, "a", map[approval.FieldName]string{approval.FieldSeries: "Saga"}); err != nil {
		t.Fatalf("ApplyFields failed: %v", err)
	}
	fields, err := comicinfo.Read(cbz)
	if err != nil || fields[approval.FieldSeries] != "Saga" {
		t.Fatalf("expected written series, got %v (err=%v)", fields, err)
	}
	if err := w.ApplyFields(ctx, "b", map[approval.FieldName]string{approval.FieldSeries: "Saga"}); err == nil {
		t.Fatal("expected cbr to be rejected")
	}
	if err := w.ApplyFields(ctx, "missing", nil); err == nil {
		t.Fatal("expected unknown id to fail")
	}
}
