package exports

import "errors"

// Download formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Table is a rectangular export. Cells are strings, integers, floats or
// anything fmt can print.
type Table struct {
	// Name is the file name without extension and the export type that is
	// logged.
	Name   string
	Sheet  string
	Header []string
	Rows   [][]any
}

// ParseFormat maps a query value onto a format, defaulting to CSV.
func ParseFormat(s string) (string, error) {
	switch s {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", ErrUnknownFormat
	}
}
