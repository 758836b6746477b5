package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Taikiy49/FS-Geolabs/frontend/exports"
	"github.com/Taikiy49/FS-Geolabs/frontend/ocrlookup"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/ocrwizard"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

var ocrFlags struct {
	user   string
	format string
	sortBy string
}

var ocrCmd = &cobra.Command{
	Use:   "ocr --user EMAIL IMAGE",
	Short: "Read work orders from an image and print the project matches",
	Args:  cobra.ExactArgs(1),
	RunE:  runOCR,
}

func init() {
	f := ocrCmd.Flags()
	f.StringVar(&ocrFlags.user, "user", "", "acting user email")
	f.StringVar(&ocrFlags.format, "format", exports.FormatCSV, "output format: csv or xlsx")
	f.StringVar(&ocrFlags.sortBy, "sort", "", "sort by date, work_order, client or project")
	_ = ocrCmd.MarkFlagRequired("user")
}

func runOCR(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format, err := exports.ParseFormat(ocrFlags.format)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	client, err := newBackend(cfg)
	if err != nil {
		return err
	}

	ws := workspace.New(workspace.Options{
		Email:   ocrFlags.user,
		Backend: client.As(ocrFlags.user),
	})
	defer ws.Close()

	if err := ws.OCR.SetImage(ocrwizard.Image{Name: filepath.Base(args[0]), Data: data}); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	if err := ws.OCR.Submit(ctx); err != nil {
		return err
	}
	if ocrFlags.sortBy != "" {
		ws.OCR.SortBy(ocrFlags.sortBy)
	}
	st := ws.OCR.State()
	if st.LookupErr != "" {
		return fmt.Errorf("lookup failed: %s", st.LookupErr)
	}
	return exports.Write(cmd.OutOrStdout(), format, ocrlookup.MatchTable(st.Rows))
}
