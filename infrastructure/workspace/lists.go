package workspace

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/graph"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
)

// Core box sort fields accepted by the backend.
var CoreBoxSortFields = []string{
	"year",
	"island",
	"work_order",
	"project",
	"engineer",
	"report_submission_date",
	"storage_expiry_date",
}

const (
	CoreBoxDefaultSort   = "report_submission_date"
	CoreBoxMaxPageSize   = 200
	CoreBoxFilterIsland  = "island"
	CoreBoxFilterYear    = "year"
	CoreBoxFilterDone    = "complete"
	CoreBoxFilterKeep    = "keep_or_dump"
	CoreBoxFilterExpired = "expired"
)

// S3FilterPrefix narrows the S3 list to keys under a folder.
const S3FilterPrefix = "prefix"

func newDatabaseSource(b *backend.Client) *listing.LocalSource[string] {
	return listing.NewLocalSource(
		func(ctx context.Context) ([]string, error) {
			dbs, err := b.ListDatabases(ctx)
			if err != nil {
				return nil, err
			}
			return slices.DeleteFunc(dbs, func(db string) bool { return db == ChatHistoryDB }), nil
		},
		func(db string, q listing.Query) bool {
			return listing.ContainsFold(q.SearchText, db, DisplayName(db))
		},
		map[string]listing.CompareFunc[string]{
			"name": listing.ByString(DisplayName),
		},
	)
}

func newS3Source(b *backend.Client) *listing.LocalSource[backend.S3Object] {
	return listing.NewLocalSource(
		b.S3Files,
		func(o backend.S3Object, q listing.Query) bool {
			if prefix := q.Filter(S3FilterPrefix); prefix != "" && !strings.HasPrefix(o.Key, prefix) {
				return false
			}
			return listing.ContainsFold(q.SearchText, o.Key)
		},
		map[string]listing.CompareFunc[backend.S3Object]{
			"name":     listing.ByString(func(o backend.S3Object) string { return o.Key }),
			"modified": listing.ByOrdered(func(o backend.S3Object) int64 { return o.LastModified.UnixNano() }),
			"size":     listing.ByOrdered(func(o backend.S3Object) int64 { return o.Size }),
		},
	)
}

func newReportSource(b *backend.Client) *listing.LocalSource[string] {
	return listing.NewLocalSource(
		b.ReportFiles,
		func(name string, q listing.Query) bool {
			return listing.ContainsFold(q.SearchText, name)
		},
		map[string]listing.CompareFunc[string]{
			"name": listing.ByString(identity),
		},
	)
}

func newContactSource(ws *Workspace) *listing.LocalSource[graph.Contact] {
	return listing.NewLocalSource(
		func(ctx context.Context) ([]graph.Contact, error) {
			token, source := ws.contactParams()
			if ws.graph == nil {
				return nil, graph.ErrNoToken
			}
			return ws.graph.Load(ctx, token, source)
		},
		func(c graph.Contact, q listing.Query) bool {
			return listing.ContainsFold(q.SearchText,
				c.Name, c.Email, c.Title, c.Department, c.Office, c.Mobile, c.Business, c.Company)
		},
		map[string]listing.CompareFunc[graph.Contact]{
			"name":       listing.ByString(func(c graph.Contact) string { return c.Name }),
			"email":      listing.ByString(func(c graph.Contact) string { return c.Email }),
			"mobile":     listing.ByString(func(c graph.Contact) string { return c.Mobile }),
			"business":   listing.ByString(func(c graph.Contact) string { return c.Business }),
			"title":      listing.ByString(func(c graph.Contact) string { return c.Title }),
			"department": listing.ByString(func(c graph.Contact) string { return c.Department }),
			"office":     listing.ByString(func(c graph.Contact) string { return c.Office }),
			"company":    listing.ByString(func(c graph.Contact) string { return c.Company }),
			"source":     listing.ByString(func(c graph.Contact) string { return c.Source }),
		},
	)
}

// ContactKey identifies a contact row for selection.
func ContactKey(c graph.Contact) string {
	switch {
	case c.Email != "":
		return strings.ToLower(c.Email)
	case c.ID != "":
		return c.Source + ":" + c.ID
	default:
		return strings.ToLower(c.Name)
	}
}

// CoreBoxKey identifies a core box row for selection.
func CoreBoxKey(b backend.CoreBox) string {
	if b.ID != 0 {
		return strconv.FormatInt(b.ID, 10)
	}
	return b.WorkOrder
}

// CoreBoxQuery maps list state onto the backend query. Unknown sort fields
// fall back to the default.
func CoreBoxQuery(q listing.Query) backend.CoreBoxQuery {
	sortBy := q.SortField
	if !slices.Contains(CoreBoxSortFields, sortBy) {
		sortBy = CoreBoxDefaultSort
	}
	return backend.CoreBoxQuery{
		Q:           strings.TrimSpace(q.SearchText),
		Island:      q.Filter(CoreBoxFilterIsland),
		Year:        q.Filter(CoreBoxFilterYear),
		Complete:    q.Filter(CoreBoxFilterDone),
		KeepOrDump:  q.Filter(CoreBoxFilterKeep),
		ExpiredOnly: q.Filter(CoreBoxFilterExpired) == "1",
		SortBy:      sortBy,
		SortDir:     strings.ToUpper(string(q.SortDir)),
		Page:        q.Page,
		PageSize:    q.PageSize,
	}
}

func coreBoxFetch(b *backend.Client) listing.FetchFunc[backend.CoreBox] {
	return func(ctx context.Context, q listing.Query) (listing.Result[backend.CoreBox], error) {
		page, err := b.CoreBoxes(ctx, CoreBoxQuery(q))
		if err != nil {
			return listing.Result[backend.CoreBox]{}, err
		}
		return listing.Result[backend.CoreBox]{Rows: page.Rows, Total: page.Total}, nil
	}
}

func identity(s string) string { return s }

func s3Key(o backend.S3Object) string { return o.Key }
