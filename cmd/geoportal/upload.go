package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/uploadqueue"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

var uploadFlags struct {
	db          string
	mode        string
	user        string
	concurrency int
}

var uploadCmd = &cobra.Command{
	Use:   "upload --db NAME --user EMAIL FILES...",
	Short: "Ingest PDFs into a document database",
	Long: `Queue the given files for /api/process-file and run the queue with
bounded concurrency. Each finished file is printed; the command fails when
any file ends in error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	f := uploadCmd.Flags()
	f.StringVar(&uploadFlags.db, "db", "", "target database, such as project_reports.db")
	f.StringVar(&uploadFlags.mode, "mode", backend.ModeAppend, "new or append")
	f.StringVar(&uploadFlags.user, "user", "", "acting user email")
	f.IntVar(&uploadFlags.concurrency, "concurrency", 0, "simultaneous uploads (default from config)")
	_ = uploadCmd.MarkFlagRequired("db")
	_ = uploadCmd.MarkFlagRequired("user")
}

func runUpload(cmd *cobra.Command, paths []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode := strings.ToLower(uploadFlags.mode)
	if mode != backend.ModeNew && mode != backend.ModeAppend {
		return fmt.Errorf("--mode must be %s or %s", backend.ModeNew, backend.ModeAppend)
	}
	db := targetDatabase(uploadFlags.db)
	if db == "" || workspace.IsSystemDatabase(db) {
		return fmt.Errorf("invalid target database %q", uploadFlags.db)
	}
	client, err := newBackend(cfg)
	if err != nil {
		return err
	}
	concurrency := cfg.Upload.Concurrency
	if uploadFlags.concurrency > 0 {
		concurrency = uploadFlags.concurrency
	}

	out := cmd.OutOrStdout()
	ws := workspace.New(workspace.Options{
		Email:             uploadFlags.user,
		Backend:           client.As(uploadFlags.user),
		UploadConcurrency: concurrency,
		AcceptedExt:       cfg.Upload.AcceptedExt,
		OnUploadFinished: func(_ string, it uploadqueue.Item) {
			printItem(out, it)
		},
	})
	defer ws.Close()

	failed, err := runQueue(ws, ws.DatabaseUploads, db, mode, paths, out)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(paths))
	}
	return nil
}

// runQueue enqueues paths for target, runs the queue to completion and
// returns the number of items that did not finish.
func runQueue(ws *workspace.Workspace, q *uploadqueue.Queue, target, mode string, paths []string, out io.Writer) (int, error) {
	var files []uploadqueue.File
	failed := 0
	for _, p := range paths {
		if !q.Accepts(p) {
			fmt.Fprintf(out, "skipped  %s (unsupported type)\n", p)
			failed++
			continue
		}
		f, err := uploadqueue.DiskFile(p, "")
		if err != nil {
			fmt.Fprintf(out, "skipped  %s (%v)\n", p, err)
			failed++
			continue
		}
		f.Target = target
		f.Params = map[string]string{workspace.ParamMode: mode}
		files = append(files, f)
	}
	_, dup := q.Enqueue(files...)
	for _, name := range dup {
		fmt.Fprintf(out, "skipped  %s (duplicate)\n", name)
		failed++
	}
	if err := ws.StartUploads(q); err != nil {
		if errors.Is(err, uploadqueue.ErrNoFiles) {
			return failed, nil
		}
		return failed, err
	}
	q.Wait()
	c := q.Counts()
	fmt.Fprintf(out, "%d done, %d failed, %d canceled\n", c.Done, c.Error, c.Canceled)
	return failed + c.Error + c.Canceled, nil
}

// targetDatabase accepts either a title or a database file name.
func targetDatabase(name string) string {
	return workspace.DatabaseFileName(strings.TrimSuffix(strings.TrimSpace(name), ".db"))
}

func printItem(w io.Writer, it uploadqueue.Item) {
	switch it.Status {
	case uploadqueue.StatusDone:
		fmt.Fprintf(w, "done     %s -> %s", it.Name, it.Target)
		if it.Message != "" {
			fmt.Fprintf(w, " (%s)", it.Message)
		}
		fmt.Fprintln(w)
	case uploadqueue.StatusError:
		fmt.Fprintf(w, "error    %s: %s\n", it.Name, it.Err)
	case uploadqueue.StatusCanceled:
		fmt.Fprintf(w, "canceled %s\n", it.Name)
	}
}
