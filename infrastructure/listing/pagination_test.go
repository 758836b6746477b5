package listing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPagination(t *testing.T) {
	cases := []struct {
		name           string
		page, size     int
		total          int
		wantPages      int
		wantFrom       int
		wantTo         int
		wantWindow     []int
		wantPrev, next bool
	}{
		{name: "empty", page: 1, size: 25, total: 0, wantPages: 1, wantFrom: 0, wantTo: 0, wantWindow: []int{1}},
		{name: "first", page: 1, size: 10, total: 95, wantPages: 10, wantFrom: 1, wantTo: 10, wantWindow: []int{1, 2, 3, 4, 5}, next: true},
		{name: "middle", page: 5, size: 10, total: 95, wantPages: 10, wantFrom: 41, wantTo: 50, wantWindow: []int{3, 4, 5, 6, 7}, wantPrev: true, next: true},
		{name: "last partial", page: 10, size: 10, total: 95, wantPages: 10, wantFrom: 91, wantTo: 95, wantWindow: []int{6, 7, 8, 9, 10}, wantPrev: true},
		{name: "out of range", page: 40, size: 10, total: 15, wantPages: 2, wantFrom: 11, wantTo: 15, wantWindow: []int{1, 2}, wantPrev: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.size, tc.total)
			if p.TotalPages != tc.wantPages {
				t.Fatalf("total pages = %d, want %d", p.TotalPages, tc.wantPages)
			}
			if p.From() != tc.wantFrom || p.To() != tc.wantTo {
				t.Fatalf("range = %d-%d, want %d-%d", p.From(), p.To(), tc.wantFrom, tc.wantTo)
			}
			if p.HasPrev() != tc.wantPrev || p.HasNext() != tc.next {
				t.Fatalf("prev/next = %v/%v, want %v/%v", p.HasPrev(), p.HasNext(), tc.wantPrev, tc.next)
			}
			if diff := cmp.Diff(tc.wantWindow, p.Window(5)); diff != "" {
				t.Fatalf("window mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("", "anything") {
		t.Fatalf("empty needle must match")
	}
	if !ContainsFold("EMP", "reports.db", "Employee_Handbook.db") {
		t.Fatalf("expected case-insensitive match")
	}
	if ContainsFold("emp", "reports.db") {
		t.Fatalf("unexpected match")
	}
}
