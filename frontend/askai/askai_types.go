package askai

import (
	"slices"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

type PageData struct {
	Top          nav.TopNavData
	Databases    []string
	DatabasesErr string
	Selected     string
	Messages     []workspace.Message
	Busy         bool
	CanRegen     bool
	History      []backend.HistoryItem
	HistoryErr   string
	UseCache     bool
	UseWeb       bool

	Status       string
	ErrorMessage string
}

// DocumentDatabases drops the system databases from dbs.
func DocumentDatabases(dbs []string) []string {
	return slices.DeleteFunc(slices.Clone(dbs), workspace.IsSystemDatabase)
}
