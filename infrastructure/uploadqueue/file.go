package uploadqueue

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	pdf "github.com/ledongthuc/pdf"
)

// ErrTooLarge is returned by Spool when the source exceeds the size limit.
var ErrTooLarge = errors.New("file exceeds the upload size limit")

// File is a queued upload source. Open is called once per attempt so a
// retry re-sends the whole body.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
	// Target names the destination, such as a database or an S3 prefix.
	Target string
	// Params carries destination options through to the UploadFunc.
	Params map[string]string
	// Cleanup, when set, runs once the item leaves the queue.
	Cleanup func()
}

// MemoryFile wraps an in-memory body.
func MemoryFile(name string, data []byte) File {
	return File{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentTypeFor(name),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// DiskFile reads the upload from path each attempt.
func DiskFile(path, name string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return File{
		Name:        name,
		Size:        info.Size(),
		ContentType: contentTypeFor(name),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// Spool copies r into dir and returns a File backed by the copy. The copy
// is removed when the item leaves the queue. maxBytes <= 0 means no limit.
func Spool(dir, name string, r io.Reader, maxBytes int64) (File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return File{}, fmt.Errorf("create spool dir: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+filepath.Ext(name))
	f, err := os.Create(path)
	if err != nil {
		return File{}, fmt.Errorf("create spool file: %w", err)
	}
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && maxBytes > 0 && n > maxBytes {
		err = fmt.Errorf("%s: %w", name, ErrTooLarge)
	}
	if err != nil {
		_ = os.Remove(path)
		return File{}, err
	}
	file, err := DiskFile(path, filepath.Base(name))
	if err != nil {
		_ = os.Remove(path)
		return File{}, err
	}
	file.Cleanup = func() { _ = os.Remove(path) }
	return file, nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// CountPages returns the page count of a PDF source, or zero when the file
// is not a readable PDF.
func CountPages(f File) int {
	if f.Open == nil || !strings.EqualFold(filepath.Ext(f.Name), ".pdf") {
		return 0
	}
	rc, err := f.Open()
	if err != nil {
		return 0
	}
	defer rc.Close()

	var (
		ra   io.ReaderAt
		size = f.Size
	)
	if at, ok := rc.(io.ReaderAt); ok && size > 0 {
		ra = at
	} else {
		data, err := io.ReadAll(rc)
		if err != nil {
			return 0
		}
		ra, size = bytes.NewReader(data), int64(len(data))
	}
	return numPages(ra, size)
}

func numPages(ra io.ReaderAt, size int64) (pages int) {
	// The parser panics on some malformed inputs.
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()
	doc, err := pdf.NewReader(ra, size)
	if err != nil {
		return 0
	}
	return doc.NumPage()
}
