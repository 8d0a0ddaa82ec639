//go:build integration

package integration

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/sandeepkv93/endorsement-backend/internal/service"
)

func pdfBytes(size int) []byte {
	body := []byte("%PDF-1.4\n")
	return append(body, bytes.Repeat([]byte("x"), size-len(body))...)
}

func TestMinIODocumentStoreLifecycle(t *testing.T) {
	env := newMinIOEnv(t)
	ctx := context.Background()

	if err := env.store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	body := pdfBytes(2048)
	doc, err := env.store.Put(ctx, "rec-1", bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if doc.ContentType != "application/pdf" {
		t.Fatalf("content type = %q", doc.ContentType)
	}
	if !strings.HasPrefix(doc.ObjectKey, "recommendations/rec-1/") || !strings.HasSuffix(doc.ObjectKey, ".pdf") {
		t.Fatalf("unexpected object key %q", doc.ObjectKey)
	}
	if !env.objectExists(t, doc.ObjectKey) {
		t.Fatal("expected object in bucket")
	}

	url, err := env.store.PresignGet(ctx, doc.ObjectKey, "reference.pdf")
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	got, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Equal(got, body) {
		t.Fatalf("download status=%d len=%d", resp.StatusCode, len(got))
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "reference.pdf") {
		t.Fatalf("content disposition = %q", cd)
	}

	if err := env.store.Remove(ctx, doc.ObjectKey); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if env.objectExists(t, doc.ObjectKey) {
		t.Fatal("expected object to be removed")
	}
}

func TestMinIODocumentStoreRejections(t *testing.T) {
	env := newMinIOEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		body []byte
		size int64
		want error
	}{
		{name: "plain text", body: []byte("just some notes"), size: 15, want: service.ErrInvalidFileType},
		{name: "declared too big", body: pdfBytes(64), size: service.MaxDocumentSize + 1, want: service.ErrFileTooBig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.store.Put(ctx, "rec-2", bytes.NewReader(tc.body), tc.size)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if err := env.store.Remove(ctx, "../etc/passwd"); err == nil {
		t.Fatal("expected remove outside the document prefix to fail")
	}
}
