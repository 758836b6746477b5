package reports

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSearch(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Search
	}{
		{"defaults", "query=+slope+stability+", Search{Query: "slope stability", Min: DefaultMinResults, Max: DefaultMaxResults}},
		{"explicit", "query=x&min=3&max=8&file=a.pdf", Search{Query: "x", Min: 3, Max: 8, File: "a.pdf"}},
		{"clamped", "min=0&max=500", Search{Min: 1, Max: MaxResultsLimit}},
		{"min above max", "min=40&max=10&view=b.pdf", Search{Min: 10, Max: 10, View: "b.pdf"}},
		{"garbage", "min=abc&max=", Search{Min: DefaultMinResults, Max: DefaultMaxResults}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := url.ParseQuery(tc.raw)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, ParseSearch(v.Get)); diff != "" {
				t.Fatalf("ParseSearch mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLinkKeepsSearch(t *testing.T) {
	got := link(Search{Query: "pile load", Min: 2, Max: 9}, "r 1.pdf", "")
	want := basePath + "?file=r+1.pdf&max=9&min=2&query=pile+load"
	if got != want {
		t.Fatalf("link = %q, want %q", got, want)
	}
}
