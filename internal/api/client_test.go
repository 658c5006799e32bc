package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"inkpost/internal/models"
	"inkpost/internal/upload"
)

func TestHTTPTimeoutFromEnv(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})

	t.Run("duration format", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "45s")
		if got := httpTimeoutFromEnv(); got != 45*time.Second {
			t.Fatalf("expected 45s timeout, got %v", got)
		}
	})

	t.Run("integer seconds", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "25")
		if got := httpTimeoutFromEnv(); got != 25*time.Second {
			t.Fatalf("expected 25s timeout, got %v", got)
		}
	})

	t.Run("invalid falls back", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "invalid")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})
}

func TestUploadFileStreamsMultipartWithProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("v"), 256<<10)
	var gotCategory, gotMediaType, gotName string
	var gotBytes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/uploads" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		gotCategory = r.FormValue("category")
		gotMediaType = r.FormValue("media_type")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotBytes = len(data)
		gotName = header.Filename

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Upload{ID: "upl-1", Filename: header.Filename, URL: "https://cdn.example.test/post/abc.mp4"})
	}))
	defer srv.Close()

	t.Setenv(apiTokenEnvKey, "secret")
	client := NewClient(srv.URL + "/")

	var percents []int
	file := models.FileFromBytes(`clip "one".mp4`, payload)
	stored, err := client.UploadFile(context.Background(), models.CategoryPost, file, func(p int) {
		percents = append(percents, p)
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if stored.URL != "https://cdn.example.test/post/abc.mp4" {
		t.Fatalf("unexpected upload %+v", stored)
	}
	if gotCategory != "post" || gotMediaType != "video/mp4" || gotBytes != len(payload) || gotName != `clip "one".mp4` {
		t.Fatalf("unexpected form category=%q media=%q bytes=%d name=%q", gotCategory, gotMediaType, gotBytes, gotName)
	}
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Fatalf("expected progress ending at 100, got %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] <= percents[i-1] {
			t.Fatalf("progress must increase, got %v", percents)
		}
	}
}

func TestUploadFileDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "file exceeds 5 MiB", Code: "invalid_argument", ErrorCode: 1002})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.UploadFile(context.Background(), models.CategoryAvatar, models.FileFromBytes("me.png", []byte("png")), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusRequestEntityTooLarge || apiErr.ErrorCode != 1002 || apiErr.Message != "file exceeds 5 MiB" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestDecodeErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Ping(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || apiErr.Code != "" {
		t.Fatalf("expected bare APIError, got %#v", err)
	}
}

func TestTransportReturnsStoredURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Upload{ID: "upl-2"})
	}))
	defer srv.Close()

	transport := NewTransport(NewClient(srv.URL))
	_, err := transport.Upload(context.Background(), upload.Request{
		File:     models.FileFromBytes("a.mp4", []byte("a")),
		Category: models.CategoryPost,
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "no url") {
		t.Fatalf("expected missing url error, got %v", err)
	}
}

func TestUploadsEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/uploads":
			if r.URL.Query().Get("category") != "post" {
				t.Errorf("expected category filter, got %q", r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode([]models.Upload{{ID: "upl-1"}, {ID: "upl-2"}})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/uploads/upl-1":
			_ = json.NewEncoder(w).Encode(models.Upload{ID: "upl-1"})
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/uploads/upl-1":
			_ = json.NewEncoder(w).Encode(DeleteResponse{ID: "upl-1", Deleted: true})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "upload not found", Code: "not_found"})
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := context.Background()

	list, err := client.ListUploads(ctx, url.Values{"category": {"post"}})
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", list, err)
	}
	got, err := client.GetUpload(ctx, "upl-1")
	if err != nil || got.ID != "upl-1" {
		t.Fatalf("get: %+v %v", got, err)
	}
	deleted, err := client.DeleteUpload(ctx, "upl-1")
	if err != nil || !deleted.Deleted {
		t.Fatalf("delete: %+v %v", deleted, err)
	}
	if _, err := client.GetUpload(ctx, "missing"); err == nil || err.Error() != "not_found: upload not found" {
		t.Fatalf("expected not found, got %v", err)
	}
}
