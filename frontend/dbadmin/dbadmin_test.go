package dbadmin

import (
	"errors"
	"testing"
)

func TestCheckConfirmation(t *testing.T) {
	cases := []struct {
		db, typed string
		want      error
	}{
		{"handbook.db", "DELETE handbook.db", nil},
		{"handbook.db", "delete handbook.db", ErrConfirmationMismatch},
		{"handbook.db", "DELETE handbook.db ", ErrConfirmationMismatch},
		{"handbook.db", "DELETE handbook", ErrConfirmationMismatch},
		{"", "DELETE ", ErrDatabaseRequired},
	}
	for _, tc := range cases {
		if err := CheckConfirmation(tc.db, tc.typed); !errors.Is(err, tc.want) {
			t.Errorf("CheckConfirmation(%q, %q) = %v, want %v", tc.db, tc.typed, err, tc.want)
		}
	}
}

func TestResolveTarget(t *testing.T) {
	existing := []string{"handbook.db", "safety_manual.db"}
	cases := []struct {
		name                  string
		mode, title, selected string
		want                  string
		err                   error
	}{
		{name: "new slug", mode: ModeNew, title: "  Project Specs 2024! ", want: "project_specs_2024.db"},
		{name: "new exists", mode: ModeNew, title: "Safety Manual", err: ErrDatabaseExists},
		{name: "new empty", mode: ModeNew, title: "!!!", err: ErrInvalidTitle},
		{name: "new system", mode: ModeNew, title: "Chat History", err: ErrSystemDatabase},
		{name: "append", mode: ModeAppend, selected: "handbook.db", want: "handbook.db"},
		{name: "append unknown", mode: ModeAppend, selected: "missing.db", err: ErrDatabaseRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveTarget(tc.mode, tc.title, tc.selected, existing)
			if !errors.Is(err, tc.err) {
				t.Fatalf("err = %v, want %v", err, tc.err)
			}
			if got != tc.want {
				t.Fatalf("target = %q, want %q", got, tc.want)
			}
		})
	}
}
