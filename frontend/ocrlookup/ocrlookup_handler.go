package ocrlookup

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Taikiy49/FS-Geolabs/frontend/exports"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/ocrwizard"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

const basePath = "/portal/ocr"

func redirectError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, basePath+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func wizard(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, ok := context.GetWorkspaceFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}
	return ws, true
}

// OCRPageQueryHandler renders the current wizard step.
func OCRPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ws, ok := wizard(w, r)
		if !ok {
			return
		}
		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			State:        ws.OCR.State(),
			Status:       r.URL.Query().Get("status"),
			ErrorMessage: r.URL.Query().Get("error"),
		}
		data.Top.SelectedDB = ws.SelectedDatabase()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := OCRPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render OCR page", http.StatusInternalServerError)
			return
		}
	}
}

// SubmitImageCommandHandler takes the photo of a work-order list, runs
// OCR and the first lookup.
func SubmitImageCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := wizard(w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+1<<20)
		if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
			redirectError(w, r, "the image is too large")
			return
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			redirectError(w, r, ocrwizard.ErrNoImage.Error())
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
		if err != nil {
			redirectError(w, r, "could not read the image")
			return
		}
		if len(data) > MaxImageBytes {
			redirectError(w, r, "the image is too large")
			return
		}

		// A new photo always starts a fresh review.
		if ws.OCR.State().Step != ocrwizard.AwaitingImage {
			ws.OCR.StartOver()
		}
		img := ocrwizard.Image{Name: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data}
		if err := ws.OCR.SetImage(img); err != nil {
			redirectError(w, r, err.Error())
			return
		}
		if err := ws.OCR.Submit(r.Context()); err != nil {
			if !errors.Is(err, ocrwizard.ErrNoWorkOrders) {
				slog.Warn("ocr: submit failed", slog.String("image", header.Filename), slog.Any("err", err))
			}
			// The wizard keeps the message for the page.
			http.Redirect(w, r, basePath, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

func index(r *http.Request) (int, error) {
	return strconv.Atoi(r.FormValue("i"))
}

// EditCommandHandler changes one entry; the lookup follows after the
// debounce delay.
func EditCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := wizard(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		i, err := index(r)
		if err != nil {
			redirectError(w, r, "invalid entry")
			return
		}
		if err := ws.OCR.Edit(i, r.FormValue("text")); err != nil {
			redirectError(w, r, err.Error())
			return
		}
		ws.OCR.ScheduleLookup()
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

// AddCommandHandler appends an entry and looks everything up.
func AddCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := wizard(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		if err := ws.OCR.Add(ocrwizard.Normalize(r.FormValue("text"))); err != nil {
			redirectError(w, r, err.Error())
			return
		}
		lookup(w, r, ws)
	}
}

// RemoveCommandHandler deletes an entry and looks the rest up.
func RemoveCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := wizard(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		i, err := index(r)
		if err != nil {
			redirectError(w, r, "invalid entry")
			return
		}
		if err := ws.OCR.Remove(i); err != nil {
			redirectError(w, r, err.Error())
			return
		}
		lookup(w, r, ws)
	}
}

// LookupCommandHandler runs the lookup now.
func LookupCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := wizard(w, r)
		if !ok {
			return
		}
		lookup(w, r, ws)
	}
}

func lookup(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	err := ws.OCR.Lookup(r.Context())
	switch {
	case err == nil, errors.Is(err, ocrwizard.ErrSuperseded), backend.IsCanceled(err):
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	case errors.Is(err, ocrwizard.ErrWrongStep):
		redirectError(w, r, err.Error())
	default:
		slog.Warn("ocr: lookup failed", slog.Any("err", err))
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

// SortCommandHandler toggles the review table order.
func SortCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := wizard(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		ws.OCR.SortBy(r.FormValue("field"))
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

// StartOverCommandHandler discards the image and all entries.
func StartOverCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := wizard(w, r)
		if !ok {
			return
		}
		ws.OCR.StartOver()
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

// ExportQueryHandler downloads the review rows as CSV, or XLSX with
// ?format=xlsx.
func ExportQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := wizard(w, r)
		if !ok {
			return
		}
		format, err := exports.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			redirectError(w, r, err.Error())
			return
		}
		st := ws.OCR.State()
		if st.Step != ocrwizard.Reviewing || len(st.Rows) == 0 {
			redirectError(w, r, "nothing to export yet")
			return
		}
		exports.Serve(w, r, db, ws.Email, format, MatchTable(st.Rows))
	}
}
