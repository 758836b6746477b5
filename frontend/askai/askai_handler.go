package askai

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Taikiy49/FS-Geolabs/frontend/settings"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/audit"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

const basePath = "/portal/ask"

var errHistoryNotFound = errors.New("that question is no longer in the history")

func redirectError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, basePath+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func redirectStatus(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, basePath+"?status="+url.QueryEscape(msg), http.StatusSeeOther)
}

func flag(r *http.Request, name string) bool {
	return r.FormValue(name) == "1"
}

func toggle(q url.Values, name string, def bool) bool {
	if !q.Has(name) {
		return def
	}
	return q.Get(name) == "1"
}

// AskPageQueryHandler renders the chat for the selected database and its
// stored history. The cache and web toggles default to the user's settings.
func AskPageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		query := r.URL.Query()
		prefs, err := settings.LoadPreferences(r.Context(), db, session.Email)
		if err != nil {
			slog.Warn("askai: load preferences failed", slog.String("email", session.Email), slog.Any("err", err))
		}
		data := PageData{
			Top:          nav.BuildTopNavData(session, basePath),
			Selected:     ws.SelectedDatabase(),
			Messages:     ws.Chat.Messages(),
			Busy:         ws.Chat.Busy(),
			CanRegen:     ws.Chat.LastQuestion() != "",
			UseCache:     toggle(query, "cache", prefs.AskUseCache),
			UseWeb:       toggle(query, "web", prefs.AskUseWeb),
			Status:       query.Get("status"),
			ErrorMessage: query.Get("error"),
		}
		data.Top.SelectedDB = data.Selected

		dbs, err := ws.AllDatabases(r.Context())
		if err != nil {
			slog.Warn("askai: list databases failed", slog.Any("err", err))
			data.DatabasesErr = backend.UserMessage(err)
		}
		data.Databases = DocumentDatabases(dbs)

		if data.Selected != "" {
			history, err := ws.Backend.ChatHistory(r.Context(), "", data.Selected)
			if err != nil {
				slog.Warn("askai: chat history failed", slog.String("db", data.Selected), slog.Any("err", err))
				data.HistoryErr = backend.UserMessage(err)
			}
			data.History = history
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := AskPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render ask page", http.StatusInternalServerError)
			return
		}
	}
}

// SelectDatabaseCommandHandler switches the chat to another database.
// System databases are refused.
func SelectDatabaseCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		db := strings.TrimSpace(r.FormValue("db"))
		if workspace.IsSystemDatabase(db) {
			redirectError(w, r, "that database cannot be queried")
			return
		}
		ws.SelectDatabase(db)
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

// AskCommandHandler sends a question and waits for the answer. A stop
// from another request ends it with a "Stopped" message.
func AskCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		opts := workspace.AskOptions{UseCache: flag(r, "cache"), UseWeb: flag(r, "web")}
		_, err := ws.Chat.Ask(r.Context(), ws.SelectedDatabase(), r.FormValue("question"), opts)
		finish(w, r, err)
	}
}

// RegenerateCommandHandler asks the last question again without the
// answer cache.
func RegenerateCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		_, err := ws.Chat.Regenerate(r.Context(), ws.SelectedDatabase(), flag(r, "web"))
		finish(w, r, err)
	}
}

func finish(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil, errors.Is(err, workspace.ErrSuperseded):
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	case backend.IsCanceled(err):
		redirectStatus(w, r, "Stopped")
	case errors.Is(err, workspace.ErrEmptyQuestion),
		errors.Is(err, workspace.ErrNoDatabase),
		errors.Is(err, workspace.ErrNothingToRegenerate):
		redirectError(w, r, err.Error())
	default:
		// The failure is already in the transcript.
		slog.Warn("askai: question failed", slog.Any("err", err))
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

// StopCommandHandler cancels the question in flight.
func StopCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !ws.Chat.Stop() {
			redirectStatus(w, r, "Nothing to stop")
			return
		}
		redirectStatus(w, r, "Stopped")
	}
}

// ResetCommandHandler clears the transcript.
func ResetCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ws.Chat.Reset()
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

func findHistory(items []backend.HistoryItem, question string) (backend.HistoryItem, error) {
	for _, it := range items {
		if it.Question == question {
			return it, nil
		}
	}
	return backend.HistoryItem{}, errHistoryNotFound
}

// LoadHistoryCommandHandler shows a stored exchange in the chat.
func LoadHistoryCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		db := ws.SelectedDatabase()
		if db == "" {
			redirectError(w, r, workspace.ErrNoDatabase.Error())
			return
		}
		items, err := ws.Backend.ChatHistory(r.Context(), "", db)
		if err != nil {
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		item, err := findHistory(items, r.FormValue("question"))
		if err != nil {
			redirectError(w, r, err.Error())
			return
		}
		ws.LoadHistory(item)
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

// DeleteHistoryCommandHandler removes a stored question for the selected
// database.
func DeleteHistoryCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ws, ok := context.GetWorkspaceFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, "invalid form data")
			return
		}
		target := ws.SelectedDatabase()
		question := r.FormValue("question")
		if target == "" || strings.TrimSpace(question) == "" {
			redirectError(w, r, "nothing to delete")
			return
		}
		if err := ws.Backend.DeleteChatHistory(r.Context(), "", target, question); err != nil {
			slog.Error("askai: delete history failed", slog.String("db", target), slog.Any("err", err))
			redirectError(w, r, backend.UserMessage(err))
			return
		}
		if err := auditSvc.Record(r.Context(), db, session.Email, audit.ActionDeleteChatHistory, "chat_history", target, map[string]string{"question": question}, nil); err != nil {
			slog.Error("askai: audit failed", slog.Any("err", err))
		}
		redirectStatus(w, r, "History entry deleted")
	}
}
