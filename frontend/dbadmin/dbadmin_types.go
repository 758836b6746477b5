package dbadmin

import (
	"errors"
	"slices"
	"strings"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/uploads"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
	"github.com/Taikiy49/FS-Geolabs/models"
)

const (
	ModeNew    = backend.ModeNew
	ModeAppend = backend.ModeAppend
)

var (
	// ErrConfirmationMismatch is returned when the typed phrase is not
	// exactly "DELETE <db>". The backend is never called in that case.
	ErrConfirmationMismatch = errors.New("confirmation text does not match, deletion cancelled")
	ErrDatabaseRequired     = errors.New("select a database")
	ErrInvalidTitle         = errors.New("enter a database name using letters or numbers")
	ErrDatabaseExists       = errors.New("a database with this name already exists, choose a different name")
	ErrSystemDatabase       = errors.New("system databases cannot be changed here")
)

// ConfirmationPhrase is what an admin must type to delete db.
func ConfirmationPhrase(db string) string {
	return "DELETE " + db
}

// CheckConfirmation compares typed with the phrase for db exactly.
func CheckConfirmation(db, typed string) error {
	if db == "" {
		return ErrDatabaseRequired
	}
	if typed != ConfirmationPhrase(db) {
		return ErrConfirmationMismatch
	}
	return nil
}

// ResolveTarget picks the destination database of an upload. New mode
// slugifies title and refuses names that already exist; append mode needs
// one of existing.
func ResolveTarget(mode, title, selected string, existing []string) (string, error) {
	switch mode {
	case ModeNew:
		db := workspace.DatabaseFileName(title)
		if db == "" {
			return "", ErrInvalidTitle
		}
		if workspace.IsSystemDatabase(db) {
			return "", ErrSystemDatabase
		}
		if slices.Contains(existing, db) {
			return "", ErrDatabaseExists
		}
		return db, nil
	default:
		selected = strings.TrimSpace(selected)
		if selected == "" || !slices.Contains(existing, selected) {
			return "", ErrDatabaseRequired
		}
		return selected, nil
	}
}

type DatabaseView struct {
	Name        string
	DisplayName string
}

type PageData struct {
	Top          nav.TopNavData
	Databases    []DatabaseView
	LoadError    string
	Queue        uploads.StatusResponse
	AcceptedExt  []string
	History      []workspace.UploadBatch
	HistoryError string
	Runs         []models.UploadRun
	Status       string
	ErrorMessage string
}
