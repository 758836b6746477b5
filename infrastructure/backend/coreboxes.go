package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// CoreBox is one physical core box record.
type CoreBox struct {
	ID                   int64  `json:"id"`
	Year                 int    `json:"year"`
	Island               string `json:"island"`
	WorkOrder            string `json:"work_order"`
	Project              string `json:"project"`
	Engineer             string `json:"engineer"`
	ReportSubmissionDate string `json:"report_submission_date"`
	StorageExpiryDate    string `json:"storage_expiry_date"`
	Complete             string `json:"complete"`
	KeepOrDump           string `json:"keep_or_dump"`
}

// CoreBoxQuery is the server-side filter, sort and page for CoreBoxes.
type CoreBoxQuery struct {
	Q           string
	Island      string
	Year        string
	Complete    string
	KeepOrDump  string
	ExpiredOnly bool
	SortBy      string
	SortDir     string
	Page        int
	PageSize    int
}

// Values encodes the query the way /api/core-boxes expects.
func (q CoreBoxQuery) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(k, val)
		}
	}
	set("q", q.Q)
	set("island", q.Island)
	set("year", q.Year)
	set("complete", q.Complete)
	set("keep_or_dump", q.KeepOrDump)
	if q.ExpiredOnly {
		v.Set("expired", "1")
	}
	set("sort_by", q.SortBy)
	set("sort_dir", strings.ToUpper(q.SortDir))
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

// CoreBoxPage is one page of core boxes plus the filtered total.
type CoreBoxPage struct {
	Rows  []CoreBox `json:"rows"`
	Total int       `json:"total"`
}

// CoreBoxes returns one filtered, sorted page.
func (c *Client) CoreBoxes(ctx context.Context, q CoreBoxQuery) (CoreBoxPage, error) {
	var resp CoreBoxPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/core-boxes", q.Values(), nil, &resp); err != nil {
		return CoreBoxPage{}, err
	}
	if resp.Rows == nil {
		resp.Rows = []CoreBox{}
	}
	return resp, nil
}

// CoreBoxYears lists the distinct years present in the inventory.
func (c *Client) CoreBoxYears(ctx context.Context) ([]int, error) {
	var resp struct {
		Years []int `json:"years"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/core-boxes/years", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Years, nil
}

// CoreBoxIslands lists the distinct islands present in the inventory.
func (c *Client) CoreBoxIslands(ctx context.Context) ([]string, error) {
	var resp struct {
		Islands []string `json:"islands"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/core-boxes/islands", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Islands, nil
}
