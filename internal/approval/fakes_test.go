package approval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"longbox/internal/filename"
	"longbox/internal/testsupport"
)

type fakeFiles struct {
	files map[string]File
}

func newFakeFiles(names ...string) *fakeFiles {
	f := &fakeFiles{files: make(map[string]File)}
	for _, name := range names {
		f.add(name, nil)
	}
	return f
}

func (f *fakeFiles) add(name string, fields map[FieldName]string) string {
	id := "file-" + strings.TrimSuffix(name, filepath.Ext(name))
	if fields == nil {
		fields = map[FieldName]string{}
	}
	f.files[id] = File{ID: id, Path: "/library/" + name, Filename: name, Fields: fields}
	return id
}

func (f *fakeFiles) File(_ context.Context, id string) (File, error) {
	file, ok := f.files[id]
	if !ok {
		return File{}, errors.New("no such file")
	}
	return file, nil
}

type fakeSource struct {
	mu        sync.Mutex
	name      string
	results   map[string][]CandidateSeries
	issues    map[string][]Issue
	details   map[string]Issue
	detailErr error
	searchErr error
	issuesErr error
	queries   []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		name:    "fake",
		results: make(map[string][]CandidateSeries),
		issues:  make(map[string][]Issue),
		details: make(map[string]Issue),
	}
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) SearchSeries(_ context.Context, query string, _ SearchOptions) ([]CandidateSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return append([]CandidateSeries(nil), s.results[strings.ToLower(query)]...), nil
}

func (s *fakeSource) Issues(_ context.Context, seriesID string) ([]Issue, error) {
	if s.issuesErr != nil {
		return nil, s.issuesErr
	}
	return append([]Issue(nil), s.issues[seriesID]...), nil
}

func (s *fakeSource) Issue(_ context.Context, issueID string) (Issue, error) {
	if s.detailErr != nil {
		return Issue{}, s.detailErr
	}
	if detail, ok := s.details[issueID]; ok {
		return detail, nil
	}
	for _, list := range s.issues {
		for _, issue := range list {
			if issue.ID == issueID {
				return issue, nil
			}
		}
	}
	return Issue{}, errors.New("issue not found")
}

func (s *fakeSource) searchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

type fakeWriter struct {
	mu     sync.Mutex
	fail   map[string]error
	writes map[string]map[FieldName]string
	order  []string
	panic  string

	// entered receives each file id before the write; block holds the write
	// until it is closed. Both are optional.
	entered chan string
	block   chan struct{}
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{fail: map[string]error{}, writes: map[string]map[FieldName]string{}}
}

func (w *fakeWriter) ApplyFields(_ context.Context, fileID string, fields map[FieldName]string) error {
	if w.entered != nil {
		w.entered <- fileID
	}
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.panic == fileID {
		panic("archive exploded")
	}
	w.order = append(w.order, fileID)
	if err := w.fail[fileID]; err != nil {
		return err
	}
	w.writes[fileID] = fields
	return nil
}

type fakeRenamer struct{}

func (fakeRenamer) Preview(fields map[FieldName]string) (string, error) {
	if fields[FieldSeries] == "" {
		return "", nil
	}
	return fields[FieldSeries] + " " + fields[FieldNumber] + ".cbz", nil
}

type fakeInvalidator struct {
	mu     sync.Mutex
	files  []string
	series []string
	err    error
}

func (f *fakeInvalidator) NotifyFilesChanged(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, ids...)
	return f.err
}

func (f *fakeInvalidator) NotifySeriesChanged(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series = append(f.series, ids...)
	return f.err
}

type harness struct {
	engine      *Engine
	files       *fakeFiles
	source      *fakeSource
	writer      *fakeWriter
	invalidator *fakeInvalidator
	clock       *testsupport.Clock
	store       *MemoryStore
}

// newHarness wires an engine with Batman (bat-x) and Superman (sup-y) results
// and two issues per series.
func newHarness(t *testing.T, names ...string) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	clock := testsupport.NewClock()
	files := newFakeFiles(names...)
	source := newFakeSource()
	source.results["batman"] = []CandidateSeries{
		{ID: "bat-x", Name: "Batman", Publisher: "DC Comics", Year: 2016, Confidence: 0.9},
		{ID: "bat-old", Name: "Batman", Publisher: "DC Comics", Year: 1940, Confidence: 0.6},
	}
	source.results["superman"] = []CandidateSeries{
		{ID: "sup-y", Name: "Superman", Publisher: "DC Comics", Year: 2018, Confidence: 0.85},
	}
	source.issues["bat-x"] = []Issue{
		{ID: "bat-x-1", SeriesID: "bat-x", SeriesName: "Batman", Number: "1", Title: "I Am Gotham", Year: 2016},
		{ID: "bat-x-2", SeriesID: "bat-x", SeriesName: "Batman", Number: "2", Title: "I Am Gotham Part Two", Year: 2016},
	}
	source.issues["sup-y"] = []Issue{
		{ID: "sup-y-1", SeriesID: "sup-y", SeriesName: "Superman", Number: "1", Title: "The Unity Saga", Year: 2018},
	}
	writer := newFakeWriter()
	invalidator := &fakeInvalidator{}
	store := NewMemoryStore(cfg.SessionTTL(), clock.Now)

	engine, err := NewEngine(cfg, Dependencies{
		Files:       files,
		Parser:      filename.NewParser(),
		Sources:     []SeriesSource{source},
		Writer:      writer,
		Renamer:     fakeRenamer{},
		Invalidator: invalidator,
		Store:       store,
		Clock:       clock.Now,
	}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(engine.Wait)
	return &harness{
		engine:      engine,
		files:       files,
		source:      source,
		writer:      writer,
		invalidator: invalidator,
		clock:       clock,
		store:       store,
	}
}

func (h *harness) create(t *testing.T, ids ...string) *Session {
	t.Helper()
	session, err := h.engine.CreateSession(context.Background(), ids, SessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return session
}

// scenarioA creates the three-file Batman/Superman session and approves both groups.
func scenarioA(t *testing.T) (*harness, *Session) {
	t.Helper()
	h := newHarness(t, "batman_001.cbz", "batman_002.cbz", "superman_001.cbz")
	session := h.create(t, "file-batman_001", "file-batman_002", "file-superman_001")
	ctx := context.Background()
	var err error
	session, err = h.engine.ApproveSeries(ctx, session.ID, session.SeriesGroups[0].ID, "bat-x", "")
	if err != nil {
		t.Fatalf("ApproveSeries batman: %v", err)
	}
	session, err = h.engine.ApproveSeries(ctx, session.ID, session.SeriesGroups[1].ID, "sup-y", "")
	if err != nil {
		t.Fatalf("ApproveSeries superman: %v", err)
	}
	return h, session
}

func groupFileUnion(s *Session) map[string]int {
	counts := make(map[string]int)
	for _, g := range s.SeriesGroups {
		for _, id := range g.FileIDs {
			counts[id]++
		}
	}
	return counts
}
