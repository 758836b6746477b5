// Package workspace holds the per-session state behind every screen: list
// controllers, upload queues, the OCR wizard, the Ask AI conversation and
// the selected database.
package workspace

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/events"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/graph"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/ocrwizard"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/uploadqueue"
)

// Upload parameter keys carried on uploadqueue.File.Params.
const (
	ParamMode   = "mode"
	ParamPrefix = "prefix"
	ParamIndex  = "index"
	ParamDB     = "db"
)

// Options configures a workspace.
type Options struct {
	Email string
	Role  string
	// Backend must already act as Email.
	Backend *backend.Client
	Graph   *graph.Client
	// UploadConcurrency bounds each upload queue.
	UploadConcurrency int
	AcceptedExt       []string
	LookupDelay       time.Duration
	// OnUploadFinished receives every terminal upload transition.
	OnUploadFinished func(channel string, item uploadqueue.Item)
}

// Workspace is safe for concurrent use by the requests of one session.
type Workspace struct {
	Email   string
	Role    string
	Backend *backend.Client
	Bus     events.Bus

	Databases *listing.Controller[string]
	S3        *listing.Controller[backend.S3Object]
	Reports   *listing.Controller[string]
	CoreBoxes *listing.Controller[backend.CoreBox]
	Contacts  *listing.Controller[graph.Contact]

	DatabaseUploads *uploadqueue.Queue
	S3Uploads       *uploadqueue.Queue
	OCR             *ocrwizard.Wizard
	Chat            *Conversation

	databaseList *listing.LocalSource[string]
	s3List       *listing.LocalSource[backend.S3Object]
	reportList   *listing.LocalSource[string]
	contactList  *listing.LocalSource[graph.Contact]
	graph        *graph.Client

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	selectedDB    string
	graphToken    string
	contactSource string
	closed        bool
	unsubscribe   []func()
}

// New builds a workspace whose background work lives until Close.
func New(opts Options) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())
	ws := &Workspace{
		Email:         opts.Email,
		Role:          opts.Role,
		Backend:       opts.Backend,
		graph:         opts.Graph,
		ctx:           ctx,
		cancel:        cancel,
		contactSource: graph.SourceDirectory,
	}

	ws.databaseList = newDatabaseSource(opts.Backend)
	ws.Databases = listing.New(ws.databaseList.Fetch, identity, listing.Options{DefaultSort: "name"})

	ws.s3List = newS3Source(opts.Backend)
	ws.S3 = listing.New(ws.s3List.Fetch, s3Key, listing.Options{DefaultSort: "modified", DefaultDir: listing.Desc, MaxPageSize: 200})

	ws.reportList = newReportSource(opts.Backend)
	ws.Reports = listing.New(ws.reportList.Fetch, identity, listing.Options{DefaultSort: "name"})

	ws.CoreBoxes = listing.New(coreBoxFetch(opts.Backend), CoreBoxKey, listing.Options{
		DefaultSort: CoreBoxDefaultSort,
		DefaultDir:  listing.Desc,
		MaxPageSize: CoreBoxMaxPageSize,
	})

	ws.contactList = newContactSource(ws)
	ws.Contacts = listing.New(ws.contactList.Fetch, ContactKey, listing.Options{DefaultSort: "name", PageSize: 50, MaxPageSize: 200})

	ws.DatabaseUploads = uploadqueue.New(ws.ingest, uploadqueue.Options{
		Concurrency:  opts.UploadConcurrency,
		AcceptedExt:  opts.AcceptedExt,
		ErrorMessage: backend.UserMessage,
		OnSuccess: func(it uploadqueue.Item) {
			events.Publish(&ws.Bus, events.UploadSucceeded{Channel: events.ChannelDatabase, Target: it.Target, File: it.Name})
		},
		OnFinish: finishHook(events.ChannelDatabase, opts.OnUploadFinished),
	})
	ws.S3Uploads = uploadqueue.New(ws.uploadS3, uploadqueue.Options{
		Concurrency:  opts.UploadConcurrency,
		AcceptedExt:  opts.AcceptedExt,
		ErrorMessage: backend.UserMessage,
		OnSuccess: func(it uploadqueue.Item) {
			events.Publish(&ws.Bus, events.UploadSucceeded{Channel: events.ChannelS3, Target: it.Target, File: it.Name})
		},
		OnFinish: finishHook(events.ChannelS3, opts.OnUploadFinished),
	})

	ws.OCR = ocrwizard.New(ctx, opts.Backend, opts.LookupDelay)
	ws.Chat = newConversation(opts.Backend, opts.Email)

	ws.unsubscribe = append(ws.unsubscribe,
		events.Subscribe(&ws.Bus, ws.onDatabaseSelected),
		events.Subscribe(&ws.Bus, ws.onHistoryLoaded),
		events.Subscribe(&ws.Bus, ws.onUploadSucceeded),
	)
	return ws
}

func finishHook(channel string, fn func(string, uploadqueue.Item)) func(uploadqueue.Item) {
	if fn == nil {
		return nil
	}
	return func(it uploadqueue.Item) { fn(channel, it) }
}

func (ws *Workspace) ingest(ctx context.Context, f uploadqueue.File, body io.Reader, progress func(sent, total int64)) (uploadqueue.Outcome, error) {
	res, err := ws.Backend.ProcessFile(ctx, f.Target, f.Params[ParamMode], ws.Email, backend.Upload{
		Name:        f.Name,
		ContentType: f.ContentType,
		Size:        f.Size,
		Body:        body,
	}, progress)
	if err != nil {
		return uploadqueue.Outcome{}, err
	}
	return uploadqueue.Outcome{Message: res.Message, Steps: res.Steps}, nil
}

func (ws *Workspace) uploadS3(ctx context.Context, f uploadqueue.File, body io.Reader, progress func(sent, total int64)) (uploadqueue.Outcome, error) {
	res, err := ws.Backend.S3Upload(ctx, backend.S3UploadOptions{
		DB:     f.Params[ParamDB],
		Prefix: f.Target,
		Index:  f.Params[ParamIndex] == "1",
		Mode:   f.Params[ParamMode],
		User:   ws.Email,
	}, backend.Upload{
		Name:        f.Name,
		ContentType: f.ContentType,
		Size:        f.Size,
		Body:        body,
	}, progress)
	if err != nil {
		return uploadqueue.Outcome{}, err
	}
	return uploadqueue.Outcome{Message: "Uploaded " + res.Key}, nil
}

// Context is canceled when the workspace closes. Uploads and debounced
// lookups run under it so they outlive the request that started them.
func (ws *Workspace) Context() context.Context {
	return ws.ctx
}

// StartUploads runs q under the workspace context.
func (ws *Workspace) StartUploads(q *uploadqueue.Queue) error {
	return q.Run(ws.ctx)
}

// SelectDatabase makes db the active document database.
func (ws *Workspace) SelectDatabase(db string) {
	events.Publish(&ws.Bus, events.DatabaseSelected{Name: db})
}

// SelectedDatabase returns the active document database.
func (ws *Workspace) SelectedDatabase() string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.selectedDB
}

// LoadHistory shows a past exchange in the chat view.
func (ws *Workspace) LoadHistory(item backend.HistoryItem) {
	events.Publish(&ws.Bus, events.HistoryLoaded{
		Database: ws.SelectedDatabase(),
		Question: item.Question,
		Answer:   item.Answer,
	})
}

func (ws *Workspace) onDatabaseSelected(m events.DatabaseSelected) {
	ws.mu.Lock()
	changed := ws.selectedDB != m.Name
	ws.selectedDB = m.Name
	ws.mu.Unlock()
	if changed {
		ws.Chat.Reset()
	}
}

func (ws *Workspace) onHistoryLoaded(m events.HistoryLoaded) {
	ws.Chat.Load(m.Question, m.Answer)
}

func (ws *Workspace) onUploadSucceeded(m events.UploadSucceeded) {
	switch m.Channel {
	case events.ChannelDatabase:
		ws.databaseList.Invalidate()
	case events.ChannelS3:
		ws.s3List.Invalidate()
	}
}

// InvalidateDatabases forces the next database refresh to reload.
func (ws *Workspace) InvalidateDatabases() { ws.databaseList.Invalidate() }

// InvalidateS3 forces the next S3 refresh to reload.
func (ws *Workspace) InvalidateS3() { ws.s3List.Invalidate() }

// InvalidateReports forces the next report list refresh to reload.
func (ws *Workspace) InvalidateReports() { ws.reportList.Invalidate() }

// AllDatabases returns every document database, loading the list if needed.
func (ws *Workspace) AllDatabases(ctx context.Context) ([]string, error) {
	return ws.databaseList.All(ctx)
}

// S3Object finds key in the S3 listing, loading it if needed.
func (ws *Workspace) S3Object(ctx context.Context, key string) (backend.S3Object, bool, error) {
	objects, err := ws.s3List.All(ctx)
	if err != nil {
		return backend.S3Object{}, false, err
	}
	for _, o := range objects {
		if o.Key == key {
			return o, true, nil
		}
	}
	return backend.S3Object{}, false, nil
}

// SetGraphToken records the Graph access token forwarded by the identity
// provider. A new token invalidates the contact list.
func (ws *Workspace) SetGraphToken(token string) {
	ws.mu.Lock()
	changed := token != "" && token != ws.graphToken
	if token != "" {
		ws.graphToken = token
	}
	ws.mu.Unlock()
	if changed {
		ws.contactList.Invalidate()
	}
}

// SetContactSource switches between Directory, My Contacts and Both.
func (ws *Workspace) SetContactSource(source string) {
	switch source {
	case graph.SourceDirectory, graph.SourceMyContacts, graph.SourceBoth:
	default:
		source = graph.SourceDirectory
	}
	ws.mu.Lock()
	changed := source != ws.contactSource
	ws.contactSource = source
	ws.mu.Unlock()
	if changed {
		ws.contactList.Invalidate()
		ws.Contacts.SetPage(1)
	}
}

// ContactSource is the active contact source.
func (ws *Workspace) ContactSource() string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.contactSource
}

// AllContacts returns the filtered, sorted contacts across every page.
func (ws *Workspace) AllContacts(ctx context.Context) ([]graph.Contact, error) {
	q := ws.Contacts.Query()
	q.Page, q.PageSize = 1, 0
	res, err := ws.contactList.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

func (ws *Workspace) contactParams() (token, source string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.graphToken, ws.contactSource
}

// Closed reports whether Close ran.
func (ws *Workspace) Closed() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.closed
}

// Close cancels uploads and in-flight requests and releases spooled files.
// It is safe to call more than once.
func (ws *Workspace) Close() {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return
	}
	ws.closed = true
	unsubscribe := ws.unsubscribe
	ws.unsubscribe = nil
	ws.mu.Unlock()

	ws.cancel()
	ws.Chat.Reset()
	ws.OCR.Close()
	for _, stop := range []func(){ws.Databases.Stop, ws.S3.Stop, ws.Reports.Stop, ws.CoreBoxes.Stop, ws.Contacts.Stop} {
		stop()
	}
	ws.DatabaseUploads.Close()
	ws.S3Uploads.Close()
	for _, fn := range unsubscribe {
		fn()
	}
	slog.Debug("workspace closed", slog.String("email", ws.Email))
}
