package exports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
)

// Serve writes t as a download in format and logs the run for actor.
func Serve(w http.ResponseWriter, r *http.Request, db *sqlite.DB, actor, format string, t Table) {
	name := t.Name + "-" + time.Now().Format("20060102-1504") + "." + format
	switch format {
	case FormatXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+name)
		if err := writeXLSX(w, t); err != nil {
			slog.Error("xlsx export failed", slog.String("type", t.Name), slog.Any("err", err))
			http.Error(w, "failed to export xlsx", http.StatusInternalServerError)
			return
		}
	case FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+name)
		if err := writeCSV(w, t); err != nil {
			slog.Error("csv export failed", slog.String("type", t.Name), slog.Any("err", err))
			http.Error(w, "failed to export csv", http.StatusInternalServerError)
			return
		}
	default:
		http.Error(w, ErrUnknownFormat.Error(), http.StatusBadRequest)
		return
	}
	if db == nil {
		return
	}
	if err := recordExportRun(r.Context(), db, actor, t.Name+"_"+format, len(t.Rows)); err != nil {
		slog.Error("record export run failed", slog.String("type", t.Name), slog.Any("err", err))
	}
}
