package s3files

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/uploads"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
)

// Indexing modes of S3 uploads and reindex.
const (
	ModeChunks  = "chunks"
	ModeGeneral = "general"
)

// EditCode is the resource code that unlocks the editing controls.
const EditCode = "S3_EDIT"

var (
	// ErrConfirmationMismatch is returned when the typed phrase is not
	// exactly "DELETE <n> FILES".
	ErrConfirmationMismatch = errors.New("confirmation text does not match, nothing deleted")
	ErrNothingSelected      = errors.New("select at least one file")
	ErrDatabaseRequired     = errors.New("pick a target database first")
	ErrInvalidDestination   = errors.New("enter a new path")
)

// DeletePhrase is what an editor types to delete n objects.
func DeletePhrase(n int) string {
	return fmt.Sprintf("DELETE %d FILES", n)
}

// CheckDelete validates a bulk delete of n selected objects.
func CheckDelete(n int, typed string) error {
	if n == 0 {
		return ErrNothingSelected
	}
	if typed != DeletePhrase(n) {
		return ErrConfirmationMismatch
	}
	return nil
}

// MoveDestination keeps src under its top-level folder and replaces the
// rest with next, collapsing repeated slashes.
func MoveDestination(src, next string) (string, error) {
	next = strings.Trim(strings.TrimSpace(next), "/")
	if next == "" {
		return "", ErrInvalidDestination
	}
	base, _, _ := strings.Cut(src, "/")
	dst := path.Clean(base + "/" + next)
	if dst == src || dst == base || strings.HasPrefix(dst, "../") || strings.Contains(dst, "/../") {
		return "", ErrInvalidDestination
	}
	return dst, nil
}

// ReindexDatabase is the database a batch reindex targets: the selected
// one, else the top-level folder of the first key.
func ReindexDatabase(selected string, keys []string) string {
	if selected = strings.TrimSpace(selected); selected != "" {
		return selected
	}
	if len(keys) == 0 {
		return ""
	}
	base, _, _ := strings.Cut(keys[0], "/")
	return base
}

// NormalizeMode maps anything other than general onto chunks.
func NormalizeMode(mode string) string {
	if mode == ModeGeneral {
		return ModeGeneral
	}
	return ModeChunks
}

type PageData struct {
	Top       nav.TopNavData
	List      listing.Snapshot[backend.S3Object]
	Prefix    string
	CanEdit   bool
	Databases []string
	Selected  string
	Queue     uploads.StatusResponse
	Accepted  []string

	Status       string
	ErrorMessage string
}
