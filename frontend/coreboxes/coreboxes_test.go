package coreboxes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/listing"
)

func TestIsExpired(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		expiry string
		want   bool
	}{
		{"2026-03-09", true},
		{"2026-03-10", false},
		{"2027-01-01", false},
		{"03/01/2026", true},
		{"", false},
		{"soon", false},
	}
	for _, tc := range cases {
		if got := IsExpired(backend.CoreBox{StorageExpiryDate: tc.expiry}, today); got != tc.want {
			t.Errorf("IsExpired(%q) = %v, want %v", tc.expiry, got, tc.want)
		}
	}
}

func TestTable(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	tbl := Table([]backend.CoreBox{
		{Year: 2020, Island: "Oahu", WorkOrder: "8292-05", StorageExpiryDate: "2025-01-01", Complete: "Yes", KeepOrDump: "Dump"},
	}, today)
	if len(tbl.Rows) != 1 || len(tbl.Rows[0]) != len(tbl.Header) {
		t.Fatalf("table shape = %d rows, header %d", len(tbl.Rows), len(tbl.Header))
	}
	if tbl.Rows[0][0] != 2020 || tbl.Rows[0][9] != true {
		t.Fatalf("row = %v", tbl.Rows[0])
	}
}

func TestRenderCoreBoxLabelsPDF(t *testing.T) {
	t.Parallel()

	pdf, err := renderCoreBoxLabelsPDF([]backend.CoreBox{
		{ID: 1, Year: 2023, Island: "Maui", WorkOrder: "8292-05(B)", Project: "Kahului Harbor Pier Expansion Geotechnical Investigation"},
		{ID: 2, WorkOrder: "7711-00"},
	}, time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("renderCoreBoxLabelsPDF returned error: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected pdf bytes, got %q", pdf[:min(len(pdf), 8)])
	}

	if _, err := renderCoreBoxLabelsPDF(nil, time.Now()); err == nil {
		t.Fatalf("expected error for no labels")
	}
	if _, err := renderCoreBoxLabelsPDF([]backend.CoreBox{{ID: 3}}, time.Now()); err == nil {
		t.Fatalf("expected error for a box without work order")
	}
}

func TestCollectAllPages(t *testing.T) {
	const total = 450
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		if r.URL.Query().Get("island") != "Oahu" {
			t.Errorf("filter not forwarded: %s", r.URL.RawQuery)
		}
		var rows []backend.CoreBox
		for i := (page - 1) * size; i < min(page*size, total); i++ {
			rows = append(rows, backend.CoreBox{ID: int64(i + 1), WorkOrder: strconv.Itoa(i)})
		}
		_ = json.NewEncoder(w).Encode(backend.CoreBoxPage{Rows: rows, Total: total})
	}))
	defer srv.Close()

	client, err := backend.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	q := listing.Query{Page: 3, PageSize: 25, Filters: map[string]string{"island": "Oahu"}}

	boxes, err := CollectAll(context.Background(), client, q, MaxExportRows)
	if err != nil {
		t.Fatalf("CollectAll: %v", err)
	}
	if len(boxes) != total || calls != 3 {
		t.Fatalf("got %d boxes in %d calls, want %d in 3", len(boxes), calls, total)
	}

	calls = 0
	boxes, err = CollectAll(context.Background(), client, q, 250)
	if err != nil {
		t.Fatalf("CollectAll limited: %v", err)
	}
	if len(boxes) != 250 || calls != 2 {
		t.Fatalf("limited: got %d boxes in %d calls", len(boxes), calls)
	}
}
