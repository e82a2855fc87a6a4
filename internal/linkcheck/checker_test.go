package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// docModule builds a single-package module whose classes carry the given
// documentation, keyed by class name.
func docModule(t *testing.T, docs map[string]string) *model.Documentable {
	t.Helper()
	jvm := platform.New("jvm", platform.KindJVM, nil)
	root := model.NewModule("mylib")
	pkg := model.New(model.KindPackage, "com.example", root.Identity.Child("com.example"))
	root.AddChild(pkg)

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cls := model.New(model.KindClass, name, pkg.Identity.Child(name))
		cls.SetFacts(jvm, model.Facts{Documentation: docs[name]})
		pkg.AddChild(cls)
	}
	return root
}

func newTestChecker(t *testing.T, opts ...Option) *Checker {
	t.Helper()
	cfg := &config.LinkCheckConfig{Enabled: true, Timeout: "2s"}
	c, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*BrokenLinkEvent
}

func (p *recordingPublisher) PublishBroken(_ context.Context, e *BrokenLinkEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) recorded() []*BrokenLinkEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*BrokenLinkEvent(nil), p.events...)
}

func TestVerifyEndpointFallsBackToGetWhenHeadFails(t *testing.T) {
	var headCalls, getCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			headCalls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		case http.MethodGet:
			getCalls.Add(1)
			_, _ = w.Write([]byte("ok"))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)

	c := &Checker{httpClient: srv.Client()}
	status, err := c.verifyEndpoint(context.Background(), srv.URL+"/path")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if headCalls.Load() != 1 || getCalls.Load() != 1 {
		t.Fatalf("calls = %d HEAD, %d GET, want 1 and 1", headCalls.Load(), getCalls.Load())
	}
}

func TestVerifyEndpointTreatsRateLimitAsValid(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := &Checker{httpClient: srv.Client()}
	status, err := c.verifyEndpoint(context.Background(), srv.URL+"/rate-limited")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", status, http.StatusTooManyRequests)
	}
	// Rate limits are conclusive on HEAD; no GET retry.
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestVerifyEndpointTreatsAuthWallAsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := &Checker{httpClient: srv.Client()}
	status, err := c.verifyEndpoint(context.Background(), srv.URL+"/private")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestVerifyEndpointReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := &Checker{httpClient: srv.Client()}
	status, err := c.verifyEndpoint(context.Background(), srv.URL+"/boom")
	if err == nil {
		t.Fatalf("expected error, got nil (status %d)", status)
	}
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", status, http.StatusInternalServerError)
	}
}

func TestVerifyScansFragmentAnchors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>
			<h2 id="install">Install</h2>
			<a name="legacy"></a>
		</body></html>`))
	}))
	t.Cleanup(srv.Close)

	c := &Checker{httpClient: srv.Client()}
	ctx := context.Background()

	if _, err := c.verify(ctx, srv.URL+"/page#install"); err != nil {
		t.Errorf("id anchor: expected no error, got %v", err)
	}
	if _, err := c.verify(ctx, srv.URL+"/page#legacy"); err != nil {
		t.Errorf("name anchor: expected no error, got %v", err)
	}
	_, err := c.verify(ctx, srv.URL+"/page#missing")
	if err == nil || !strings.Contains(err.Error(), "anchor") {
		t.Errorf("missing anchor: expected anchor error, got %v", err)
	}
}

func TestVerifySkipsFragmentScanOnNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	t.Cleanup(srv.Close)

	c := &Checker{httpClient: srv.Client()}
	if _, err := c.verify(context.Background(), srv.URL+"/manual.pdf#chapter-2"); err != nil {
		t.Fatalf("expected no error for non-HTML fragment target, got %v", err)
	}
}

func TestCheckVerifiesDistinctURLsOnce(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(srv.Close)

	root := docModule(t, map[string]string{
		"Alpha": "See [shared](" + srv.URL + "/shared).",
		"Beta":  "Also [shared](" + srv.URL + "/shared).",
	})

	c := newTestChecker(t, WithHTTPClient(srv.Client()), WithConcurrency(2))
	rep, err := c.Check(context.Background(), root, "run-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.Links != 1 {
		t.Errorf("Links = %d, want 1", rep.Links)
	}
	if rep.Broken() != 0 {
		t.Errorf("Broken = %d, want 0: %+v", rep.Broken(), rep.Findings)
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1", calls.Load())
	}
}

func TestCheckReportsBrokenLinkPerSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	root := docModule(t, map[string]string{
		"Alpha": "See [gone](" + srv.URL + "/gone).",
		"Beta":  "Also [gone](" + srv.URL + "/gone).",
	})

	pub := &recordingPublisher{}
	c := newTestChecker(t, WithHTTPClient(srv.Client()), WithPublisher(pub))
	rep, err := c.Check(context.Background(), root, "run-2")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.Broken() != 2 {
		t.Fatalf("Broken = %d, want 2: %+v", rep.Broken(), rep.Findings)
	}
	if rep.Findings[0].Source != "mylib/com.example/Alpha" ||
		rep.Findings[1].Source != "mylib/com.example/Beta" {
		t.Errorf("finding sources = %q, %q, want Alpha then Beta",
			rep.Findings[0].Source, rep.Findings[1].Source)
	}
	if rep.Findings[0].Status != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", rep.Findings[0].Status, http.StatusNotFound)
	}

	events := pub.recorded()
	if len(events) != 2 {
		t.Fatalf("published events = %d, want 2", len(events))
	}
	if events[0].Module != "mylib" || events[0].RunID != "run-2" {
		t.Errorf("event = %+v, want module mylib and run-2", events[0])
	}

	d := rep.Findings[0].Diagnostic()
	if d.Severity != diag.SeverityWarning {
		t.Errorf("diagnostic severity = %v, want warning", d.Severity)
	}
	if !strings.Contains(d.Message, srv.URL+"/gone") ||
		!strings.Contains(d.Message, "mylib/com.example/Alpha") {
		t.Errorf("diagnostic message %q missing URL or source", d.Message)
	}
}

func TestCheckAnswersFromFreshCache(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(srv.Close)

	brokenURL := srv.URL + "/cached-broken"
	cache := NewMemoryCache(0, 0)
	if err := cache.Put(context.Background(), &Entry{
		URL:    brokenURL,
		Status: http.StatusNotFound,
		Valid:  false,
		Error:  "HTTP 404: Not Found",
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	root := docModule(t, map[string]string{
		"Alpha": "See [cached](" + brokenURL + ").",
	})

	c := newTestChecker(t, WithHTTPClient(srv.Client()), WithCache(cache))
	rep, err := c.Check(context.Background(), root, "run-3")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("server calls = %d, want 0", calls.Load())
	}
	if rep.FromCache != 1 {
		t.Errorf("FromCache = %d, want 1", rep.FromCache)
	}
	if rep.Broken() != 1 || !rep.Findings[0].FromCache {
		t.Fatalf("Findings = %+v, want 1 cached finding", rep.Findings)
	}
}

func TestCheckFailureTrackingAccumulates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	// Failure TTL of zero duration is not possible; age the seeded entry
	// past a tiny window instead.
	cache := NewMemoryCache(time.Hour, time.Nanosecond)
	url := srv.URL + "/flaky"
	if err := cache.Put(context.Background(), &Entry{
		URL: url, Valid: false, Status: http.StatusNotFound,
		Error: "HTTP 404", FailureCount: 2,
		FirstFailedAt: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	c := newTestChecker(t, WithHTTPClient(srv.Client()), WithCache(cache))
	entry, fromCache := c.checkURL(context.Background(), url)
	if fromCache {
		t.Fatalf("expected stale entry to be rechecked")
	}
	if entry.FailureCount != 3 {
		t.Errorf("FailureCount = %d, want 3", entry.FailureCount)
	}
	if entry.FirstFailedAt.IsZero() || time.Since(entry.FirstFailedAt) < 30*time.Minute {
		t.Errorf("FirstFailedAt = %v, want preserved from first failure", entry.FirstFailedAt)
	}
	if !entry.ConsecutiveFail {
		t.Errorf("ConsecutiveFail = false, want true")
	}
}

func TestNewRejectsDisabledConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	_, err := New(&config.LinkCheckConfig{Enabled: false})
	if err == nil {
		t.Fatalf("expected error for disabled config")
	}
	if !errors.IsCategory(err, errors.CategoryLinkCheck) {
		t.Errorf("error category = %v, want linkcheck", errors.GetCategory(err))
	}
}

func TestCheckEmptyModelReportsNothing(t *testing.T) {
	c := newTestChecker(t)
	rep, err := c.Check(context.Background(), model.NewModule("empty"), "run-4")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.Links != 0 || rep.Broken() != 0 {
		t.Errorf("report = %+v, want empty", rep)
	}
}
