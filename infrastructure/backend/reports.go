package backend

import (
	"context"
	"net/http"
)

// RankedFile is one result of RankFiles.
type RankedFile struct {
	File  string  `json:"file"`
	Score float64 `json:"score"`
}

// RankFiles ranks report files against query, keeping between minResults
// and maxResults results.
func (c *Client) RankFiles(ctx context.Context, query string, minResults, maxResults int) ([]RankedFile, error) {
	body := map[string]any{"query": query, "min": minResults, "max": maxResults, "user": c.identity}
	var resp struct {
		RankedFiles []RankedFile `json:"ranked_files"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/rank_only", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.RankedFiles == nil {
		return []RankedFile{}, nil
	}
	return resp.RankedFiles, nil
}

// SingleFileAnswer asks query against one report file.
func (c *Client) SingleFileAnswer(ctx context.Context, query, file string) (string, error) {
	body := map[string]string{"query": query, "file": file, "user": c.identity}
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/single_file_answer", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// QuickView returns text snippets from file that match query.
func (c *Client) QuickView(ctx context.Context, file, query string) ([]string, error) {
	body := map[string]string{"filename": file, "query": query}
	var resp struct {
		Snippets []string `json:"snippets"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/quick_view", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Snippets == nil {
		return []string{}, nil
	}
	return resp.Snippets, nil
}

// ReportFiles lists every indexed report file name.
func (c *Client) ReportFiles(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.doJSON(ctx, http.MethodGet, "/api/files", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
