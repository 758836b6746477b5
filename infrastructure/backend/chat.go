package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Question is an Ask AI request.
type Question struct {
	Query    string `json:"query"`
	User     string `json:"user"`
	UseCache bool   `json:"use_cache"`
	UseWeb   bool   `json:"use_web"`
	DB       string `json:"db"`
}

// HistoryItem is one stored question/answer pair.
type HistoryItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Ask sends a question against a database and returns the answer text.
func (c *Client) Ask(ctx context.Context, q Question) (string, error) {
	if q.User == "" {
		q.User = c.identity
	}
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/question", nil, q, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// ChatHistory returns the user's recent questions for db, newest first.
func (c *Client) ChatHistory(ctx context.Context, user, db string) ([]HistoryItem, error) {
	if user == "" {
		user = c.identity
	}
	q := url.Values{}
	q.Set("user", user)
	q.Set("db", db)
	var out []HistoryItem
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat_history", q, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []HistoryItem{}
	}
	return out, nil
}

// DeleteChatHistory removes one stored question.
func (c *Client) DeleteChatHistory(ctx context.Context, user, db, question string) error {
	if user == "" {
		user = c.identity
	}
	body := map[string]string{"user": user, "db": db, "question": question}
	return c.doJSON(ctx, http.MethodDelete, "/api/delete-history", nil, body, nil)
}
