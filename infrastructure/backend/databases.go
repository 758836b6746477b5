package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Ingest modes accepted by ProcessFile.
const (
	ModeNew    = "new"
	ModeAppend = "append"
)

// TableSample is one table returned by InspectDatabase.
type TableSample struct {
	Name       string
	Columns    []string `json:"columns"`
	SampleRows [][]any  `json:"sample_rows"`
}

// IngestResult is the reply to ProcessFile.
type IngestResult struct {
	Message string   `json:"message"`
	Steps   []string `json:"steps"`
}

// UploadHistoryEntry is one row of /api/upload-history.
type UploadHistoryEntry struct {
	User string `json:"user"`
	File string `json:"file"`
	DB   string `json:"db"`
	Time string `json:"time"`
}

// ListDatabases returns every document database name.
func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	var resp struct {
		DBs   []string `json:"dbs"`
		Items []string `json:"items"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/list-dbs", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.DBs != nil {
		return resp.DBs, nil
	}
	if resp.Items != nil {
		return resp.Items, nil
	}
	return []string{}, nil
}

// InspectDatabase returns the tables of a database with their columns and a
// few sample rows, ordered by table name.
func (c *Client) InspectDatabase(ctx context.Context, db string) ([]TableSample, error) {
	var raw map[string]json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/api/inspect-db", nil, map[string]string{"db_name": db}, &raw); err != nil {
		return nil, err
	}
	tables := make([]TableSample, 0, len(raw))
	for name, msg := range raw {
		var t TableSample
		if err := json.Unmarshal(msg, &t); err != nil {
			// Top-level non-table keys such as "error" are ignored.
			continue
		}
		t.Name = name
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables, nil
}

// DeleteDatabase removes a database. confirmation must already match the
// phrase shown to the user; the backend checks it again.
func (c *Client) DeleteDatabase(ctx context.Context, db, confirmation string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	body := map[string]string{"db_name": db, "confirmation_text": confirmation}
	if err := c.doJSON(ctx, http.MethodPost, "/api/delete-db", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ListFiles returns the source files ingested into db.
func (c *Client) ListFiles(ctx context.Context, db string) ([]string, error) {
	var resp struct {
		Files []string `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/list-files", nil, map[string]string{"db_name": db}, &resp); err != nil {
		return nil, err
	}
	if resp.Files == nil {
		return []string{}, nil
	}
	return resp.Files, nil
}

// ProcessFile streams one file into db. user is the acting user recorded by
// the backend in its upload history.
func (c *Client) ProcessFile(ctx context.Context, db, mode, user string, up Upload, progress ProgressFunc) (IngestResult, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != ModeNew && mode != ModeAppend {
		return IngestResult{}, fmt.Errorf("invalid ingest mode %q", mode)
	}
	if user == "" {
		user = c.identity
	}
	var resp IngestResult
	fields := []Field{
		{Name: "db_name", Value: db},
		{Name: "mode", Value: mode},
		{Name: "user", Value: user},
	}
	if err := c.postMultipart(ctx, "/api/process-file", "file", fields, up, progress, &resp); err != nil {
		return IngestResult{}, err
	}
	return resp, nil
}

// UploadHistory returns the backend's ingestion log.
func (c *Client) UploadHistory(ctx context.Context) ([]UploadHistoryEntry, error) {
	var out []UploadHistoryEntry
	if err := c.doJSON(ctx, http.MethodGet, "/api/upload-history", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
