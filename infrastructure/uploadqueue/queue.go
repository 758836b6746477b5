// Package uploadqueue drives file uploads with per-item progress, real
// cancellation, retry and bounded concurrency.
package uploadqueue

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Status of a queue item.
type Status string

const (
	StatusReady     Status = "ready"
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether s is done, error or canceled.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCanceled
}

var (
	// ErrCanceled is the cancellation cause of an upload stopped by Cancel
	// or CancelAll.
	ErrCanceled = errors.New("upload canceled")
	// ErrNoFiles is returned by Run when nothing is ready to upload.
	ErrNoFiles = errors.New("no files ready to upload")
	// ErrNotFound is returned for an unknown item id.
	ErrNotFound = errors.New("upload item not found")
	// ErrBusy is returned when an operation needs an item that is not
	// uploading.
	ErrBusy = errors.New("upload item is in progress")
)

const defaultConcurrency = 3

// Item is a snapshot of one queued upload.
type Item struct {
	ID         string
	Name       string
	Target     string
	Size       int64
	Pages      int
	Progress   int
	Status     Status
	Err        string
	Message    string
	Steps      []string
	Attempts   int
	AddedAt    time.Time
	FinishedAt time.Time
}

// Outcome is what a successful upload reports.
type Outcome struct {
	Message string
	Steps   []string
}

// UploadFunc sends one file. It must honour ctx so Cancel aborts the
// request, and should call progress as bytes go out.
type UploadFunc func(ctx context.Context, f File, body io.Reader, progress func(sent, total int64)) (Outcome, error)

// Options configures a Queue.
type Options struct {
	// Concurrency bounds simultaneous uploads. Zero means 3.
	Concurrency int
	// AcceptedExt lists accepted extensions such as ".pdf". Empty accepts
	// everything.
	AcceptedExt []string
	// ErrorMessage renders an upload error for display.
	ErrorMessage func(error) string
	// OnSuccess runs once for each item that reaches done.
	OnSuccess func(Item)
	// OnFinish runs once for each terminal transition.
	OnFinish func(Item)
}

type entry struct {
	Item
	file   File
	cancel context.CancelCauseFunc
}

// Counts tallies items per status.
type Counts struct {
	Ready     int `json:"ready"`
	Uploading int `json:"uploading"`
	Done      int `json:"done"`
	Error     int `json:"error"`
	Canceled  int `json:"canceled"`
}

// Total is the number of items in the queue.
func (c Counts) Total() int {
	return c.Ready + c.Uploading + c.Done + c.Error + c.Canceled
}

// Queue is safe for concurrent use.
type Queue struct {
	upload UploadFunc
	opts   Options
	sem    *semaphore.Weighted

	mu      sync.Mutex
	items   []*entry
	running bool
	paused  bool
	done    chan struct{}
	wake    chan struct{}
}

// New builds an idle queue.
func New(upload UploadFunc, opts Options) *Queue {
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.ErrorMessage == nil {
		opts.ErrorMessage = func(err error) string { return err.Error() }
	}
	done := make(chan struct{})
	close(done)
	return &Queue{
		upload: upload,
		opts:   opts,
		sem:    semaphore.NewWeighted(int64(opts.Concurrency)),
		done:   done,
		wake:   make(chan struct{}, 1),
	}
}

// Concurrency is the configured worker bound.
func (q *Queue) Concurrency() int {
	return q.opts.Concurrency
}

// Accepts reports whether name has an accepted extension.
func (q *Queue) Accepts(name string) bool {
	if len(q.opts.AcceptedExt) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range q.opts.AcceptedExt {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// Enqueue appends accepted files as ready. Files with a rejected extension
// or a name already in the queue are skipped and their cleanup runs.
func (q *Queue) Enqueue(files ...File) (added []Item, skipped []string) {
	accepted := make([]File, 0, len(files))
	for _, f := range files {
		if f.Name == "" || f.Open == nil || !q.Accepts(f.Name) {
			skipped = append(skipped, f.Name)
			runCleanup(f)
			continue
		}
		accepted = append(accepted, f)
	}

	pages := make([]int, len(accepted))
	for i, f := range accepted {
		pages[i] = CountPages(f)
	}

	q.mu.Lock()
	var rejected []File
	for i, f := range accepted {
		if q.hasName(f.Name) {
			skipped = append(skipped, f.Name)
			rejected = append(rejected, f)
			continue
		}
		e := &entry{
			Item: Item{
				ID:      uuid.NewString(),
				Name:    f.Name,
				Target:  f.Target,
				Size:    f.Size,
				Pages:   pages[i],
				Status:  StatusReady,
				AddedAt: time.Now(),
			},
			file: f,
		}
		q.items = append(q.items, e)
		added = append(added, e.snapshot())
	}
	q.mu.Unlock()

	for _, f := range rejected {
		runCleanup(f)
	}
	if len(added) > 0 {
		q.signal()
	}
	return added, skipped
}

func (q *Queue) hasName(name string) bool {
	for _, e := range q.items {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Run starts the upload loop under ctx if it is not already running. Items
// enqueued or retried while the loop runs are picked up by it. Canceling
// ctx stops the loop and aborts in-flight uploads.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	q.paused = false
	if q.countLocked(StatusReady) == 0 {
		q.mu.Unlock()
		return ErrNoFiles
	}
	if q.running {
		q.mu.Unlock()
		q.signal()
		return nil
	}
	q.running = true
	done := make(chan struct{})
	q.done = done
	q.mu.Unlock()

	go q.loop(ctx, done)
	return nil
}

// Running reports whether the upload loop is active.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Wait blocks until the current loop has finished every item it started.
func (q *Queue) Wait() {
	q.mu.Lock()
	done := q.done
	q.mu.Unlock()
	<-done
}

func (q *Queue) loop(ctx context.Context, done chan struct{}) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(done)
	}()

	for {
		if err := q.sem.Acquire(ctx, 1); err != nil {
			q.stop()
			return
		}
		if ctx.Err() != nil {
			q.sem.Release(1)
			q.stop()
			return
		}
		q.mu.Lock()
		var e *entry
		if !q.paused {
			e = q.nextReady()
		}
		if e == nil {
			if q.countLocked(StatusUploading) == 0 {
				// running flips under the same lock Run checks.
				q.running = false
				q.mu.Unlock()
				q.sem.Release(1)
				return
			}
			q.mu.Unlock()
			q.sem.Release(1)
			select {
			case <-q.wake:
			case <-ctx.Done():
				q.stop()
				return
			}
			continue
		}

		uctx, cancel := context.WithCancelCause(ctx)
		e.Status = StatusUploading
		e.Progress = 0
		e.Err = ""
		e.Attempts++
		e.cancel = cancel
		attempt := e.Attempts
		q.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer q.sem.Release(1)
			q.process(uctx, cancel, e, attempt)
			q.signal()
		}()
	}
}

func (q *Queue) stop() {
	q.mu.Lock()
	q.running = false
	q.mu.Unlock()
}

func (q *Queue) nextReady() *entry {
	for _, e := range q.items {
		if e.Status == StatusReady {
			return e
		}
	}
	return nil
}

func (q *Queue) process(ctx context.Context, cancel context.CancelCauseFunc, e *entry, attempt int) {
	defer cancel(nil)

	outcome, err := q.send(ctx, e, attempt)

	q.mu.Lock()
	if e.Attempts != attempt || e.Status != StatusUploading {
		// Cancel already settled this attempt.
		q.mu.Unlock()
		return
	}
	e.cancel = nil
	e.FinishedAt = time.Now()
	switch {
	case err == nil:
		e.Status = StatusDone
		e.Progress = 100
		e.Message = outcome.Message
		e.Steps = outcome.Steps
	case ctx.Err() != nil:
		e.Status = StatusCanceled
		e.Err = "Stopped"
	default:
		e.Status = StatusError
		e.Err = q.opts.ErrorMessage(err)
	}
	item := e.snapshot()
	q.mu.Unlock()

	if item.Status == StatusDone && q.opts.OnSuccess != nil {
		q.opts.OnSuccess(item)
	}
	q.finished(item)
}

func (q *Queue) send(ctx context.Context, e *entry, attempt int) (Outcome, error) {
	body, err := e.file.Open()
	if err != nil {
		return Outcome{}, err
	}
	defer body.Close()
	return q.upload(ctx, e.file, body, func(sent, total int64) {
		if total <= 0 {
			return
		}
		pct := int(sent * 100 / total)
		q.mu.Lock()
		defer q.mu.Unlock()
		if e.Attempts == attempt && e.Status == StatusUploading {
			// 100 is reserved for done.
			e.Progress = min(max(pct, e.Progress), 99)
		}
	})
}

func (q *Queue) finished(item Item) {
	if q.opts.OnFinish != nil {
		q.opts.OnFinish(item)
	}
}

// Cancel aborts an uploading item, which becomes canceled immediately.
// Other items are left alone; unknown ids and items that are not uploading
// are a no-op.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	e := q.find(id)
	if e == nil || e.Status != StatusUploading {
		q.mu.Unlock()
		return false
	}
	item := q.cancelLocked(e)
	q.mu.Unlock()
	q.finished(item)
	return true
}

// CancelAll aborts every uploading item and stops the loop from claiming
// further ready items until the next Run.
func (q *Queue) CancelAll() int {
	q.mu.Lock()
	q.paused = true
	var items []Item
	for _, e := range q.items {
		if e.Status == StatusUploading {
			items = append(items, q.cancelLocked(e))
		}
	}
	q.mu.Unlock()
	q.signal()
	for _, item := range items {
		q.finished(item)
	}
	return len(items)
}

func (q *Queue) cancelLocked(e *entry) Item {
	if e.cancel != nil {
		e.cancel(ErrCanceled)
		e.cancel = nil
	}
	e.Status = StatusCanceled
	e.Err = "Stopped"
	e.FinishedAt = time.Now()
	return e.snapshot()
}

// Retry moves an error or canceled item back to ready. Call Run to upload
// it again.
func (q *Queue) Retry(id string) error {
	q.mu.Lock()
	e := q.find(id)
	if e == nil {
		q.mu.Unlock()
		return ErrNotFound
	}
	if e.Status != StatusError && e.Status != StatusCanceled {
		q.mu.Unlock()
		return nil
	}
	e.Status = StatusReady
	e.Progress = 0
	e.Err = ""
	e.FinishedAt = time.Time{}
	q.mu.Unlock()
	q.signal()
	return nil
}

// RetryFailed moves every error and canceled item back to ready.
func (q *Queue) RetryFailed() int {
	q.mu.Lock()
	n := 0
	for _, e := range q.items {
		if e.Status == StatusError || e.Status == StatusCanceled {
			e.Status = StatusReady
			e.Progress = 0
			e.Err = ""
			e.FinishedAt = time.Time{}
			n++
		}
	}
	q.mu.Unlock()
	if n > 0 {
		q.signal()
	}
	return n
}

// Remove deletes an item that is not uploading.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	idx := slices.IndexFunc(q.items, func(e *entry) bool { return e.ID == id })
	if idx < 0 {
		q.mu.Unlock()
		return ErrNotFound
	}
	e := q.items[idx]
	if e.Status == StatusUploading {
		q.mu.Unlock()
		return ErrBusy
	}
	q.items = slices.Delete(q.items, idx, idx+1)
	q.mu.Unlock()
	runCleanup(e.file)
	return nil
}

// ClearFinished removes every done item. Error and canceled items stay
// for retry.
func (q *Queue) ClearFinished() int {
	return q.removeWhere(func(e *entry) bool { return e.Status == StatusDone })
}

// Clear removes every item that is not uploading.
func (q *Queue) Clear() int {
	return q.removeWhere(func(e *entry) bool { return e.Status != StatusUploading })
}

func (q *Queue) removeWhere(match func(*entry) bool) int {
	q.mu.Lock()
	var removed []*entry
	q.items = slices.DeleteFunc(q.items, func(e *entry) bool {
		if match(e) {
			removed = append(removed, e)
			return true
		}
		return false
	})
	q.mu.Unlock()
	for _, e := range removed {
		runCleanup(e.file)
	}
	return len(removed)
}

// Close cancels uploads, waits for the loop and drops every item.
func (q *Queue) Close() {
	q.CancelAll()
	q.Wait()
	q.removeWhere(func(*entry) bool { return true })
}

// Items returns snapshots in queue order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.items))
	for i, e := range q.items {
		out[i] = e.snapshot()
	}
	return out
}

// Get returns one item.
func (q *Queue) Get(id string) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e := q.find(id); e != nil {
		return e.snapshot(), true
	}
	return Item{}, false
}

// Counts tallies items per status.
func (q *Queue) Counts() Counts {
	q.mu.Lock()
	defer q.mu.Unlock()
	var c Counts
	for _, e := range q.items {
		switch e.Status {
		case StatusReady:
			c.Ready++
		case StatusUploading:
			c.Uploading++
		case StatusDone:
			c.Done++
		case StatusError:
			c.Error++
		case StatusCanceled:
			c.Canceled++
		}
	}
	return c
}

func (q *Queue) countLocked(s Status) int {
	n := 0
	for _, e := range q.items {
		if e.Status == s {
			n++
		}
	}
	return n
}

func (q *Queue) find(id string) *entry {
	for _, e := range q.items {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (e *entry) snapshot() Item {
	it := e.Item
	it.Steps = slices.Clone(e.Steps)
	return it
}

func runCleanup(f File) {
	if f.Cleanup != nil {
		f.Cleanup()
	}
}
