package s3storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/config"
)

func TestNewDisabledWithoutCredentials(t *testing.T) {
	if _, err := New(config.S3Config{Endpoint: "s3.example.com"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestPresignDownload(t *testing.T) {
	st, err := New(config.S3Config{
		Endpoint:   "localhost:9000",
		AccessKey:  "geolabs",
		SecretKey:  "geolabs-secret",
		Bucket:     "geolabs-reports",
		Region:     "us-west-2",
		PresignTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	raw, err := st.PresignDownload(context.Background(), "reports/2024/8292-05B.pdf")
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "localhost:9000" || !strings.HasSuffix(u.Path, "/geolabs-reports/reports/2024/8292-05B.pdf") {
		t.Fatalf("unexpected presigned url %s", raw)
	}
	q := u.Query()
	if q.Get("X-Amz-Signature") == "" || q.Get("X-Amz-Expires") != "900" {
		t.Fatalf("missing signature or expiry: %s", raw)
	}
	if !strings.Contains(q.Get("response-content-disposition"), `filename="8292-05B.pdf"`) {
		t.Fatalf("unexpected disposition %q", q.Get("response-content-disposition"))
	}
}
