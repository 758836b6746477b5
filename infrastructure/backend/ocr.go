package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// NotFound is the sentinel the lookup endpoint writes into every field of
// an unmatched work order.
const NotFound = "Not Found"

// Recognized is the raw OCR output: either free text or a list.
type Recognized struct {
	Text  string
	Items []string
}

// UnmarshalJSON accepts a string, an array of strings, or null.
func (r *Recognized) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	switch {
	case trimmed == "null" || trimmed == "":
		*r = Recognized{}
		return nil
	case strings.HasPrefix(trimmed, "["):
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return fmt.Errorf("recognized_work_orders list: %w", err)
		}
		*r = Recognized{Items: items}
		return nil
	default:
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return fmt.Errorf("recognized_work_orders text: %w", err)
		}
		*r = Recognized{Text: text}
		return nil
	}
}

// ProjectMatch is the lookup result for one work order.
type ProjectMatch struct {
	WorkOrder string `json:"work_order"`
	ProjectWO string `json:"project_wo"`
	Client    string `json:"client"`
	Project   string `json:"project"`
	PR        string `json:"pr"`
	Date      string `json:"date"`
}

// Found reports whether the lookup matched a project.
func (m ProjectMatch) Found() bool {
	wo := strings.TrimSpace(m.ProjectWO)
	return wo != "" && !strings.EqualFold(wo, NotFound)
}

// RecognizeWorkOrders sends an image to the OCR endpoint.
func (c *Client) RecognizeWorkOrders(ctx context.Context, image Upload) (Recognized, error) {
	var resp struct {
		Recognized Recognized `json:"recognized_work_orders"`
	}
	if err := c.postMultipart(ctx, "/api/ocr-upload", "image", nil, image, nil, &resp); err != nil {
		return Recognized{}, err
	}
	return resp.Recognized, nil
}

// LookupWorkOrders resolves work orders to project records.
func (c *Client) LookupWorkOrders(ctx context.Context, workOrders []string) ([]ProjectMatch, error) {
	if workOrders == nil {
		workOrders = []string{}
	}
	var resp struct {
		Matches []ProjectMatch `json:"matches"`
	}
	body := map[string][]string{"work_orders": workOrders}
	if err := c.doJSON(ctx, http.MethodPost, "/api/lookup-work-orders", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Matches == nil {
		return []ProjectMatch{}, nil
	}
	return resp.Matches, nil
}
