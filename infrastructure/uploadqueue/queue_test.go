package uploadqueue

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func pdfFile(name string) File {
	return MemoryFile(name, []byte("%PDF-1.4 "+name))
}

func instantUpload(failing ...string) UploadFunc {
	return func(ctx context.Context, f File, body io.Reader, progress func(sent, total int64)) (Outcome, error) {
		data, err := io.ReadAll(body)
		if err != nil {
			return Outcome{}, err
		}
		progress(int64(len(data)), f.Size)
		for _, name := range failing {
			if f.Name == name {
				return Outcome{}, errors.New("Request failed (500)")
			}
		}
		return Outcome{Message: "ingested " + f.Name, Steps: []string{"chunked"}}, nil
	}
}

func statuses(items []Item) map[string]Status {
	out := make(map[string]Status, len(items))
	for _, it := range items {
		out[it.Name] = it.Status
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEnqueueFiltersExtensionsAndDuplicates(t *testing.T) {
	q := New(instantUpload(), Options{AcceptedExt: []string{".pdf"}})

	added, skipped := q.Enqueue(pdfFile("a.pdf"), pdfFile("B.PDF"), MemoryFile("notes.txt", []byte("x")))
	if len(added) != 2 {
		t.Fatalf("expected 2 added, got %d", len(added))
	}
	if diff := cmp.Diff([]string{"notes.txt"}, skipped); diff != "" {
		t.Fatalf("skipped mismatch (-want +got):\n%s", diff)
	}

	added, skipped = q.Enqueue(pdfFile("a.pdf"))
	if len(added) != 0 || len(skipped) != 1 {
		t.Fatalf("duplicate enqueue must be a no-op, added=%v skipped=%v", added, skipped)
	}
	if got := len(q.Items()); got != 2 {
		t.Fatalf("queue length = %d, want 2", got)
	}
	for _, it := range q.Items() {
		if it.Status != StatusReady || it.ID == "" {
			t.Fatalf("unexpected item %+v", it)
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	var succeeded atomic.Int32
	var finished atomic.Int32
	q := New(instantUpload("b.pdf"), Options{
		AcceptedExt: []string{".pdf"},
		OnSuccess:   func(Item) { succeeded.Add(1) },
		OnFinish:    func(Item) { finished.Add(1) },
	})
	q.Enqueue(pdfFile("a.pdf"), pdfFile("b.pdf"), pdfFile("c.pdf"))

	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	q.Wait()

	want := map[string]Status{"a.pdf": StatusDone, "b.pdf": StatusError, "c.pdf": StatusDone}
	if diff := cmp.Diff(want, statuses(q.Items())); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
	for _, it := range q.Items() {
		switch it.Status {
		case StatusDone:
			if it.Progress != 100 || it.Message != "ingested "+it.Name {
				t.Fatalf("unexpected done item %+v", it)
			}
		case StatusError:
			if it.Err != "Request failed (500)" {
				t.Fatalf("unexpected error text %q", it.Err)
			}
		}
	}
	if succeeded.Load() != 2 || finished.Load() != 3 {
		t.Fatalf("hooks: success=%d finish=%d", succeeded.Load(), finished.Load())
	}
	if q.Running() {
		t.Fatalf("loop should stop when the queue drains")
	}
}

func TestRunWithNothingReady(t *testing.T) {
	q := New(instantUpload(), Options{})
	if err := q.Run(context.Background()); !errors.Is(err, ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles, got %v", err)
	}
}

// gatedUpload blocks every upload until its context ends or the gate opens.
type gatedUpload struct {
	gate     chan struct{}
	active   atomic.Int32
	peak     atomic.Int32
	started  chan string
	canceled atomic.Int32
}

func newGatedUpload() *gatedUpload {
	return &gatedUpload{gate: make(chan struct{}), started: make(chan string, 16)}
}

func (g *gatedUpload) upload(ctx context.Context, f File, body io.Reader, progress func(sent, total int64)) (Outcome, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	progress(f.Size/2, f.Size)
	g.started <- f.Name
	select {
	case <-ctx.Done():
		g.canceled.Add(1)
		return Outcome{}, context.Cause(ctx)
	case <-g.gate:
		return Outcome{Message: "ok"}, nil
	}
}

func TestConcurrencyIsBounded(t *testing.T) {
	g := newGatedUpload()
	q := New(g.upload, Options{Concurrency: 2})
	q.Enqueue(pdfFile("1.pdf"), pdfFile("2.pdf"), pdfFile("3.pdf"), pdfFile("4.pdf"), pdfFile("5.pdf"))
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	<-g.started
	<-g.started
	waitFor(t, func() bool { return q.Counts().Uploading == 2 })
	if c := q.Counts(); c.Ready != 3 {
		t.Fatalf("expected 3 ready while 2 upload, got %+v", c)
	}
	for _, it := range q.Items() {
		if it.Status == StatusUploading && (it.Progress < 1 || it.Progress > 99) {
			t.Fatalf("uploading progress out of range: %+v", it)
		}
	}
	close(g.gate)
	q.Wait()
	if c := q.Counts(); c.Done != 5 {
		t.Fatalf("expected all done, got %+v", c)
	}
	if p := g.peak.Load(); p > 2 {
		t.Fatalf("peak concurrency %d exceeds 2", p)
	}
}

func TestCancelNeverReachesDone(t *testing.T) {
	g := newGatedUpload()
	var finishes sync.Map
	q := New(g.upload, Options{
		Concurrency: 1,
		OnFinish: func(it Item) {
			n, _ := finishes.LoadOrStore(it.Name, new(atomic.Int32))
			n.(*atomic.Int32).Add(1)
		},
	})
	added, _ := q.Enqueue(pdfFile("slow.pdf"), pdfFile("next.pdf"))
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if name := <-g.started; name != "slow.pdf" {
		t.Fatalf("unexpected first upload %q", name)
	}

	if !q.Cancel(added[0].ID) {
		t.Fatalf("cancel of uploading item returned false")
	}
	if it, _ := q.Get(added[0].ID); it.Status != StatusCanceled || it.Err != "Stopped" {
		t.Fatalf("expected canceled/Stopped immediately, got %+v", it)
	}
	if q.Cancel(added[0].ID) {
		t.Fatalf("second cancel must be a no-op")
	}

	// The next item still runs after a cancel.
	if name := <-g.started; name != "next.pdf" {
		t.Fatalf("unexpected second upload %q", name)
	}
	close(g.gate)
	q.Wait()

	got := statuses(q.Items())
	if got["slow.pdf"] != StatusCanceled || got["next.pdf"] != StatusDone {
		t.Fatalf("unexpected statuses %v", got)
	}
	if g.canceled.Load() != 1 {
		t.Fatalf("expected the in-flight upload to observe cancellation")
	}
	n, _ := finishes.Load("slow.pdf")
	if n.(*atomic.Int32).Load() != 1 {
		t.Fatalf("expected one finish for the canceled item")
	}
}

func TestCancelAllStopsClaimingReadyItems(t *testing.T) {
	g := newGatedUpload()
	q := New(g.upload, Options{Concurrency: 2})
	q.Enqueue(pdfFile("a.pdf"), pdfFile("b.pdf"), pdfFile("c.pdf"))
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	<-g.started
	<-g.started
	waitFor(t, func() bool { return q.Counts().Uploading == 2 })

	if n := q.CancelAll(); n != 2 {
		t.Fatalf("CancelAll canceled %d, want 2", n)
	}
	q.Wait()
	want := Counts{Ready: 1, Canceled: 2}
	if diff := cmp.Diff(want, q.Counts()); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestRetryAfterError(t *testing.T) {
	var attempts atomic.Int32
	upload := func(ctx context.Context, f File, body io.Reader, progress func(sent, total int64)) (Outcome, error) {
		data, _ := io.ReadAll(body)
		if !bytes.HasPrefix(data, []byte("%PDF")) {
			return Outcome{}, errors.New("body not resent")
		}
		if attempts.Add(1) == 1 {
			return Outcome{}, errors.New("backend unavailable")
		}
		return Outcome{Message: "ok"}, nil
	}
	q := New(upload, Options{})
	added, _ := q.Enqueue(pdfFile("flaky.pdf"))
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	q.Wait()
	if it, _ := q.Get(added[0].ID); it.Status != StatusError {
		t.Fatalf("expected error after first attempt, got %+v", it)
	}

	if err := q.Retry(added[0].ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if it, _ := q.Get(added[0].ID); it.Status != StatusReady || it.Err != "" || it.Progress != 0 {
		t.Fatalf("expected clean ready item, got %+v", it)
	}
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	q.Wait()
	it, _ := q.Get(added[0].ID)
	if it.Status != StatusDone || it.Attempts != 2 {
		t.Fatalf("expected done on second attempt, got %+v", it)
	}
	if err := q.Retry("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClearFinishedKeepsFailures(t *testing.T) {
	q := New(instantUpload("bad.pdf"), Options{})
	q.Enqueue(pdfFile("good.pdf"), pdfFile("bad.pdf"))
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	q.Wait()
	q.Enqueue(pdfFile("later.pdf"))

	if n := q.ClearFinished(); n != 1 {
		t.Fatalf("ClearFinished removed %d, want 1", n)
	}
	want := map[string]Status{"bad.pdf": StatusError, "later.pdf": StatusReady}
	if diff := cmp.Diff(want, statuses(q.Items())); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveRejectsUploadingItem(t *testing.T) {
	g := newGatedUpload()
	q := New(g.upload, Options{Concurrency: 1})
	added, _ := q.Enqueue(pdfFile("a.pdf"), pdfFile("b.pdf"))
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	<-g.started

	if err := q.Remove(added[0].ID); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := q.Remove(added[1].ID); err != nil {
		t.Fatalf("remove ready: %v", err)
	}
	close(g.gate)
	q.Wait()
	if diff := cmp.Diff(map[string]Status{"a.pdf": StatusDone}, statuses(q.Items())); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestParentContextCancelStopsUploads(t *testing.T) {
	g := newGatedUpload()
	defer close(g.gate)
	q := New(g.upload, Options{Concurrency: 1})
	q.Enqueue(pdfFile("a.pdf"), pdfFile("b.pdf"))
	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	<-g.started
	cancel()
	q.Wait()

	want := map[string]Status{"a.pdf": StatusCanceled, "b.pdf": StatusReady}
	if diff := cmp.Diff(want, statuses(q.Items())); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestEnqueueWhileRunningIsPickedUp(t *testing.T) {
	g := newGatedUpload()
	q := New(g.upload, Options{Concurrency: 1})
	q.Enqueue(pdfFile("first.pdf"))
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	<-g.started
	q.Enqueue(pdfFile("second.pdf"))
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("run while running: %v", err)
	}
	close(g.gate)
	<-g.started
	q.Wait()
	if c := q.Counts(); c.Done != 2 {
		t.Fatalf("expected both done, got %+v", c)
	}
}

func TestSpoolAndCleanup(t *testing.T) {
	dir := t.TempDir()
	f, err := Spool(dir, "report.pdf", strings.NewReader("%PDF-1.4 body"), 1024)
	if err != nil {
		t.Fatalf("spool: %v", err)
	}
	if f.Name != "report.pdf" || f.Size != int64(len("%PDF-1.4 body")) {
		t.Fatalf("unexpected spooled file %+v", f)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected one spooled file, got %d", len(entries))
	}

	q := New(instantUpload(), Options{})
	added, _ := q.Enqueue(f)
	if err := q.Remove(added[0].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries, _ = os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected spooled file removed, found %d", len(entries))
	}

	if _, err := Spool(dir, "big.pdf", strings.NewReader(strings.Repeat("x", 2048)), 1024); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	entries, _ = os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("oversized spool must not leave files behind")
	}
}

func TestCountPages(t *testing.T) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 0; i < 3; i++ {
		doc.AddPage()
		doc.Cell(40, 10, "page")
	}
	path := filepath.Join(t.TempDir(), "three.pdf")
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	f, err := DiskFile(path, "")
	if err != nil {
		t.Fatalf("disk file: %v", err)
	}
	if got := CountPages(f); got != 3 {
		t.Fatalf("pages = %d, want 3", got)
	}
	if got := CountPages(pdfFile("broken.pdf")); got != 0 {
		t.Fatalf("broken pdf pages = %d, want 0", got)
	}
	if got := CountPages(MemoryFile("notes.txt", []byte("hi"))); got != 0 {
		t.Fatalf("non-pdf pages = %d, want 0", got)
	}
}
