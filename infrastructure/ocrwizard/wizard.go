// Package ocrwizard is the three-step work-order recognition flow: pick an
// image, extract work orders with OCR, then review and edit them while each
// entry is looked up against the project records.
package ocrwizard

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
)

// Step is the wizard position.
type Step string

const (
	AwaitingImage Step = "awaiting_image"
	Extracting    Step = "extracting"
	Reviewing     Step = "reviewing"
)

var (
	ErrNoImage      = errors.New("choose an image first")
	ErrNotImage     = errors.New("the selected file is not an image")
	ErrNoWorkOrders = errors.New("no work orders found, try another image")
	ErrWrongStep    = errors.New("not available at this step")
	ErrSuperseded   = errors.New("superseded by a newer request")
)

const (
	msgNoWorkOrders     = "No work orders found. Try another image."
	msgExtractionFailed = "Upload or extraction failed. Please try again."
)

// Sort fields accepted by SortBy.
const (
	SortDate      = "date"
	SortWorkOrder = "work_order"
	SortClient    = "client"
	SortProject   = "project"
)

// Service is the backend surface the wizard needs.
type Service interface {
	RecognizeWorkOrders(ctx context.Context, image backend.Upload) (backend.Recognized, error)
	LookupWorkOrders(ctx context.Context, workOrders []string) ([]backend.ProjectMatch, error)
}

// Image is the picture submitted for extraction.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Row is one reviewed entry with its lookup result.
type Row struct {
	Index     int
	WorkOrder string
	Match     backend.ProjectMatch
	Found     bool
	Pending   bool
}

// State is a consistent copy of the wizard for rendering.
type State struct {
	Step      Step
	ImageName string
	Entries   []string
	Rows      []Row
	Message   string
	LookupErr string
	Looking   bool
	SortField string
	SortDir   listing.SortDir
}

type result struct {
	match   backend.ProjectMatch
	found   bool
	pending bool
}

// Wizard is safe for concurrent use.
type Wizard struct {
	svc   Service
	base  context.Context
	delay time.Duration

	mu         sync.Mutex
	step       Step
	image      *Image
	entries    []string
	results    []result
	message    string
	lookupErr  string
	looking    bool
	extractSeq uint64
	lookupSeq  uint64
	cancel     context.CancelFunc
	timer      *time.Timer
	sortField  string
	sortDir    listing.SortDir
}

// New builds a wizard. base bounds lookups started by ScheduleLookup;
// delay is the debounce applied by ScheduleLookup.
func New(base context.Context, svc Service, delay time.Duration) *Wizard {
	return &Wizard{svc: svc, base: base, delay: delay, step: AwaitingImage, sortDir: listing.Asc}
}

// SetImage selects the image. Only valid while awaiting an image.
func (w *Wizard) SetImage(img Image) error {
	if len(img.Data) == 0 {
		return ErrNoImage
	}
	if img.ContentType == "" || img.ContentType == "application/octet-stream" {
		img.ContentType = http.DetectContentType(img.Data)
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return ErrNotImage
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != AwaitingImage {
		return ErrWrongStep
	}
	w.image = &img
	w.message = ""
	return nil
}

// Submit extracts work orders from the selected image and moves to review.
// An empty extraction or an OCR failure returns to AwaitingImage with a
// message. On success the first lookup runs before Submit returns.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.step != AwaitingImage {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if w.image == nil {
		w.mu.Unlock()
		return ErrNoImage
	}
	img := *w.image
	w.step = Extracting
	w.message = ""
	w.extractSeq++
	token := w.extractSeq
	w.mu.Unlock()

	rec, err := w.svc.RecognizeWorkOrders(ctx, backend.Upload{
		Name:        img.Name,
		ContentType: img.ContentType,
		Size:        int64(len(img.Data)),
		Body:        bytes.NewReader(img.Data),
	})

	w.mu.Lock()
	if token != w.extractSeq || w.step != Extracting {
		w.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		w.step = AwaitingImage
		w.message = msgExtractionFailed
		if backend.IsCanceled(err) {
			w.message = "Stopped"
		}
		w.mu.Unlock()
		return err
	}
	orders := NormalizeAll(ParseWorkOrders(rec))
	if len(orders) == 0 {
		w.step = AwaitingImage
		w.message = msgNoWorkOrders
		w.mu.Unlock()
		return ErrNoWorkOrders
	}
	w.step = Reviewing
	w.entries = orders
	w.results = make([]result, len(orders))
	for i := range w.results {
		w.results[i].pending = true
	}
	w.mu.Unlock()

	if err := w.Lookup(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return err
	}
	return nil
}

// Edit replaces entry i. Call Lookup or ScheduleLookup afterwards.
func (w *Wizard) Edit(i int, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != Reviewing {
		return ErrWrongStep
	}
	if i < 0 || i >= len(w.entries) {
		return errors.New("entry out of range")
	}
	w.entries[i] = strings.TrimSpace(text)
	w.results[i] = result{pending: true}
	w.invalidateLocked()
	return nil
}

// Add appends an entry typed by the user.
func (w *Wizard) Add(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("enter a work order")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != Reviewing {
		return ErrWrongStep
	}
	w.entries = append(w.entries, text)
	w.results = append(w.results, result{pending: true})
	w.invalidateLocked()
	return nil
}

// Remove deletes entry i.
func (w *Wizard) Remove(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != Reviewing {
		return ErrWrongStep
	}
	if i < 0 || i >= len(w.entries) {
		return errors.New("entry out of range")
	}
	w.entries = slices.Delete(w.entries, i, i+1)
	w.results = slices.Delete(w.results, i, i+1)
	w.invalidateLocked()
	return nil
}

// invalidateLocked discards any in-flight lookup; it was issued for entries
// that no longer exist.
func (w *Wizard) invalidateLocked() {
	w.lookupSeq++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.looking = false
}

// Lookup resolves every entry now. A newer lookup supersedes this one: its
// results are discarded and ErrSuperseded returned. On failure the previous
// results stay and the error is kept for display.
func (w *Wizard) Lookup(ctx context.Context) error {
	w.mu.Lock()
	if w.step != Reviewing {
		w.mu.Unlock()
		return ErrWrongStep
	}
	w.lookupSeq++
	token := w.lookupSeq
	if w.cancel != nil {
		w.cancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	wos := make([]string, 0, len(w.entries))
	for _, e := range w.entries {
		if e != "" {
			wos = append(wos, e)
		}
	}
	w.looking = true
	w.mu.Unlock()
	defer cancel()

	var (
		matches []backend.ProjectMatch
		err     error
	)
	if len(wos) > 0 {
		matches, err = w.svc.LookupWorkOrders(lctx, wos)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if token != w.lookupSeq {
		return ErrSuperseded
	}
	w.cancel = nil
	w.looking = false
	if err != nil {
		w.lookupErr = backend.UserMessage(err)
		return err
	}
	w.lookupErr = ""
	w.results = associate(w.entries, wos, matches)
	return nil
}

// associate pairs matches with entries by work order, falling back to the
// position among the non-empty entries that were sent.
func associate(entries, sent []string, matches []backend.ProjectMatch) []result {
	out := make([]result, len(entries))
	pos := 0
	for i, e := range entries {
		if e == "" {
			out[i] = result{pending: true}
			continue
		}
		idx := slices.IndexFunc(matches, func(m backend.ProjectMatch) bool {
			return strings.EqualFold(strings.TrimSpace(m.WorkOrder), e)
		})
		if idx < 0 && len(matches) == len(sent) && pos < len(matches) {
			idx = pos
		}
		pos++
		if idx < 0 {
			out[i] = result{match: notFound(e)}
			continue
		}
		m := matches[idx]
		out[i] = result{match: m, found: m.Found()}
	}
	return out
}

func notFound(wo string) backend.ProjectMatch {
	return backend.ProjectMatch{
		WorkOrder: wo,
		ProjectWO: backend.NotFound,
		Client:    backend.NotFound,
		Project:   backend.NotFound,
		PR:        backend.NotFound,
		Date:      backend.NotFound,
	}
}

// ScheduleLookup runs Lookup after the debounce delay, restarting the delay
// on every call. A negative delay looks up immediately in the background.
func (w *Wizard) ScheduleLookup() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	delay := max(w.delay, 0)
	w.timer = time.AfterFunc(delay, func() {
		_ = w.Lookup(w.base)
	})
}

// SortBy orders the review rows by field, flipping direction when field is
// already the sort field. Unknown fields are ignored.
func (w *Wizard) SortBy(field string) {
	switch field {
	case SortDate, SortWorkOrder, SortClient, SortProject:
	default:
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sortField == field {
		w.sortDir = w.sortDir.Flip()
		return
	}
	w.sortField = field
	w.sortDir = listing.Asc
}

// StartOver discards everything and returns to AwaitingImage.
func (w *Wizard) StartOver() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

func (w *Wizard) resetLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.extractSeq++
	w.lookupSeq++
	w.step = AwaitingImage
	w.image = nil
	w.entries = nil
	w.results = nil
	w.message = ""
	w.lookupErr = ""
	w.looking = false
	w.sortField = ""
	w.sortDir = listing.Asc
}

// Close stops pending lookups.
func (w *Wizard) Close() {
	w.StartOver()
}

// State returns a copy of the wizard with rows in display order.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := State{
		Step:      w.step,
		Entries:   slices.Clone(w.entries),
		Message:   w.message,
		LookupErr: w.lookupErr,
		Looking:   w.looking,
		SortField: w.sortField,
		SortDir:   w.sortDir,
	}
	if w.image != nil {
		st.ImageName = w.image.Name
	}
	st.Rows = make([]Row, len(w.entries))
	for i, e := range w.entries {
		r := w.results[i]
		st.Rows[i] = Row{Index: i, WorkOrder: e, Match: r.match, Found: r.found, Pending: r.pending}
	}
	if w.sortField != "" {
		sortRows(st.Rows, w.sortField, w.sortDir)
	}
	return st
}

func sortRows(rows []Row, field string, dir listing.SortDir) {
	value := func(r Row) string {
		switch field {
		case SortDate:
			return r.Match.Date
		case SortClient:
			return r.Match.Client
		case SortProject:
			return r.Match.Project
		default:
			return r.WorkOrder
		}
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		// Unmatched rows stay at the bottom in either direction.
		if a.Found != b.Found && field != SortWorkOrder {
			if a.Found {
				return -1
			}
			return 1
		}
		c := strings.Compare(strings.ToLower(value(a)), strings.ToLower(value(b)))
		if dir == listing.Desc {
			return -c
		}
		return c
	})
}
