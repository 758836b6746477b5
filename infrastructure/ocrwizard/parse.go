package ocrwizard

import (
	"regexp"
	"strings"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
)

var (
	bulletPrefix   = regexp.MustCompile(`^[-•*]\s*`)
	trailingLetter = regexp.MustCompile(`^(.*\d)([A-Za-z])$`)
)

// ParseWorkOrders turns raw OCR output into candidate work orders. Text is
// split on newlines with leading bullets stripped; blank entries are
// dropped and duplicates removed keeping first occurrence.
func ParseWorkOrders(rec backend.Recognized) []string {
	var raw []string
	if rec.Items != nil {
		raw = rec.Items
	} else {
		raw = strings.Split(rec.Text, "\n")
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

// Normalize wraps a single trailing letter that follows a digit in
// parentheses: "8292-05B" becomes "8292-05(B)". Anything else is returned
// trimmed but unchanged.
func Normalize(wo string) string {
	wo = strings.TrimSpace(wo)
	return trailingLetter.ReplaceAllString(wo, "$1($2)")
}

// NormalizeAll normalizes every entry and removes duplicates that the
// normalization produced.
func NormalizeAll(wos []string) []string {
	seen := make(map[string]struct{}, len(wos))
	out := make([]string, 0, len(wos))
	for _, wo := range wos {
		n := Normalize(wo)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
