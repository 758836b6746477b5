package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync/atomic"
)

// ProgressFunc receives the number of file bytes sent so far and the file
// size (-1 when unknown).
type ProgressFunc func(sent, total int64)

// Upload is a file part for a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Field is a plain multipart form field.
type Field struct {
	Name  string
	Value string
}

// postMultipart streams fields plus one file part. The body is assembled
// from a pre-rendered prefix, the counted file reader and the closing
// boundary so Content-Length is exact whenever the file size is known.
func (c *Client) postMultipart(ctx context.Context, path, fileField string, fields []Field, up Upload, progress ProgressFunc, out any) error {
	if up.Body == nil {
		return fmt.Errorf("%s: missing file body", path)
	}

	var prefix bytes.Buffer
	mw := multipart.NewWriter(&prefix)
	for _, f := range fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(fileField), escapeQuotes(up.Name)))
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	if _, err := mw.CreatePart(header); err != nil {
		return fmt.Errorf("write file header: %w", err)
	}
	head := append([]byte(nil), prefix.Bytes()...)

	prefix.Reset()
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}
	tail := append([]byte(nil), prefix.Bytes()...)

	body := io.MultiReader(bytes.NewReader(head), &countingReader{r: up.Body, total: up.Size, progress: progress}, bytes.NewReader(tail))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if up.Size >= 0 {
		req.ContentLength = int64(len(head)) + up.Size + int64(len(tail))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, path, out)
}

type countingReader struct {
	r        io.Reader
	total    int64
	sent     atomic.Int64
	progress ProgressFunc
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 && cr.progress != nil {
		cr.progress(cr.sent.Add(int64(n)), cr.total)
	}
	return n, err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
