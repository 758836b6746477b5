package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Timestamp decodes the timestamp layouts the backend emits: ISO 8601 with
// or without a zone, and RFC 1123.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		// null or a non-string: leave zero.
		t.Time = time.Time{}
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// S3 indexing modes.
const (
	IndexChunks  = "chunks"
	IndexGeneral = "general"
)

// S3Object is one stored report.
type S3Object struct {
	Key          string    `json:"Key"`
	Size         int64     `json:"Size"`
	LastModified Timestamp `json:"LastModified"`
	URL          string    `json:"url"`
}

// S3UploadOptions are the metadata fields sent with every S3 upload.
type S3UploadOptions struct {
	DB     string
	Prefix string
	Index  bool
	Mode   string
	User   string
}

// S3UploadResult is the reply to S3Upload.
type S3UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// S3Files lists every object the backend exposes.
func (c *Client) S3Files(ctx context.Context) ([]S3Object, error) {
	var resp struct {
		Files []S3Object `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/s3/files", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Files == nil {
		return []S3Object{}, nil
	}
	return resp.Files, nil
}

// S3Upload streams one file into the bucket, optionally indexing it.
func (c *Client) S3Upload(ctx context.Context, opts S3UploadOptions, up Upload, progress ProgressFunc) (S3UploadResult, error) {
	if opts.Mode == "" {
		opts.Mode = IndexChunks
	}
	if opts.User == "" {
		opts.User = c.identity
	}
	fields := []Field{
		{Name: "db_name", Value: opts.DB},
		{Name: "prefix", Value: opts.Prefix},
		{Name: "index", Value: boolFlag(opts.Index)},
		{Name: "mode", Value: opts.Mode},
		{Name: "user", Value: opts.User},
	}
	var resp S3UploadResult
	if err := c.postMultipart(ctx, "/api/s3/upload", "file", fields, up, progress, &resp); err != nil {
		return S3UploadResult{}, err
	}
	return resp, nil
}

// S3Delete removes keys.
func (c *Client) S3Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return errors.New("no keys to delete")
	}
	return c.doJSON(ctx, http.MethodPost, "/api/s3/delete", nil, map[string][]string{"keys": keys}, nil)
}

// S3Move renames src to dst within the bucket.
func (c *Client) S3Move(ctx context.Context, src, dst string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/s3/move", nil, map[string]string{"src_key": src, "dst_key": dst}, nil)
}

// S3Reindex indexes keys into db using mode.
func (c *Client) S3Reindex(ctx context.Context, keys []string, db, mode string) error {
	if len(keys) == 0 {
		return errors.New("no keys to index")
	}
	if mode == "" {
		mode = IndexChunks
	}
	body := map[string]any{"keys": keys, "db_name": db, "mode": mode}
	return c.doJSON(ctx, http.MethodPost, "/api/s3/reindex-batch", nil, body, nil)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
