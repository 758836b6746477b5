package uploads

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/html"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/uploadqueue"
)

// Form renders the file picker. fields carries the destination inputs of
// the screen.
func Form(path string, accept []string, fields templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Textf(`<form method="post" action="%s/uploads" enctype="multipart/form-data" class="uploader" data-dropzone>`, path)
		w.Render(ctx, fields)
		w.Textf(`<label class="drop">Drop files here or <input type="file" name="files" multiple accept="%s"></label>`, strings.Join(accept, ","))
		w.Raw(`<label><input type="checkbox" name="start" value="1" checked> Start now</label>`)
		w.Raw(`<button type="submit">Add to queue</button></form>`)
		return w.Err()
	})
}

// Table renders the queue with per-item and bulk controls. The page script
// polls path/uploads/status while anything is uploading.
func Table(path string, st StatusResponse) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := html.NewWriter(out)
		w.Textf(`<section class="queue" data-upload-status="%s/uploads/status" data-running="%t">`, path, st.Running)
		c := st.Counts
		w.Textf(`<p class="counts">%d ready · %d uploading · %d done · %d failed · %d canceled</p>`,
			c.Ready, c.Uploading, c.Done, c.Error, c.Canceled)

		w.Raw(`<div class="toolbar">`)
		action(w, path, "start", "Run", nil)
		action(w, path, "cancel", "Cancel all", map[string]string{"all": "1"})
		action(w, path, "retry", "Retry failed", map[string]string{"all": "1"})
		action(w, path, "clear", "Clear finished", nil)
		action(w, path, "clear", "Clear all", map[string]string{"which": "all"})
		w.Raw(`</div>`)

		if len(st.Items) == 0 {
			w.Raw(`<p class="empty">No files queued.</p></section>`)
			return w.Err()
		}
		w.Raw(`<table><thead><tr><th>File</th><th>Target</th><th>Size</th><th>Pages</th><th>Progress</th><th>Status</th><th></th></tr></thead><tbody>`)
		for _, it := range st.Items {
			w.Textf(`<tr data-id="%s" class="status-%s">`, it.ID, it.Status)
			w.Textf(`<td>%s</td><td>%s</td><td>%s</td>`, it.Name, it.Target, FormatSize(it.Size))
			if it.Pages > 0 {
				w.Textf(`<td>%d</td>`, it.Pages)
			} else {
				w.Raw(`<td></td>`)
			}
			w.Textf(`<td><progress max="100" value="%d"></progress> %d%%</td>`, it.Progress, it.Progress)
			w.Textf(`<td><span class="badge">%s</span>`, StatusLabel(uploadqueue.Status(it.Status)))
			if it.Error != "" {
				w.Textf(`<div class="error">%s</div>`, it.Error)
			}
			if it.Message != "" {
				w.Textf(`<div class="muted">%s</div>`, it.Message)
			}
			w.Raw(`</td><td>`)
			switch uploadqueue.Status(it.Status) {
			case uploadqueue.StatusUploading:
				action(w, path, "cancel", "Cancel", map[string]string{"id": it.ID})
			case uploadqueue.StatusError, uploadqueue.StatusCanceled:
				action(w, path, "retry", "Retry", map[string]string{"id": it.ID})
				action(w, path, "remove", "Remove", map[string]string{"id": it.ID})
			default:
				action(w, path, "remove", "Remove", map[string]string{"id": it.ID})
			}
			w.Raw(`</td></tr>`)
		}
		w.Raw(`</tbody></table></section>`)
		return w.Err()
	})
}

func action(w *html.Writer, path, cmd, label string, fields map[string]string) {
	w.Textf(`<form method="post" action="%s/uploads/%s" class="inline">`, path, cmd)
	for k, v := range fields {
		w.Textf(`<input type="hidden" name="%s" value="%s">`, k, v)
	}
	w.Textf(`<button type="submit">%s</button></form>`, label)
}

// StatusLabel is the badge text of a status.
func StatusLabel(s uploadqueue.Status) string {
	switch s {
	case uploadqueue.StatusReady:
		return "Ready"
	case uploadqueue.StatusUploading:
		return "Uploading"
	case uploadqueue.StatusDone:
		return "Done"
	case uploadqueue.StatusError:
		return "Failed"
	case uploadqueue.StatusCanceled:
		return "Canceled"
	default:
		return string(s)
	}
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
