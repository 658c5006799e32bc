package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"inkpost/internal/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testUpload(id, category string, createdAt time.Time) *models.Upload {
	return &models.Upload{
		ID:             id,
		Category:       category,
		Filename:       id + ".mp4",
		MediaType:      "video/mp4",
		SizeBytes:      42,
		SHA256:         "digest-" + id,
		StorageBackend: string(models.StorageBackendLocal),
		BlobKey:        category + "/" + id + ".mp4",
		URL:            "https://forum.example.test/uploads/" + category + "/" + id + ".mp4",
		CreatedAt:      createdAt,
	}
}

func TestCreateAndGetUpload(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	upload := testUpload("up-aaaa0001", "post", now)
	if err := st.CreateUpload(ctx, upload); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetUpload(ctx, upload.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected upload")
	}
	if *got != *upload {
		t.Fatalf("round trip mismatch\nwant %+v\ngot  %+v", *upload, *got)
	}

	byKey, err := st.GetUploadByKey(ctx, upload.BlobKey)
	if err != nil || byKey == nil || byKey.ID != upload.ID {
		t.Fatalf("get by key: %+v %v", byKey, err)
	}

	exists, err := st.UploadExists(ctx, upload.ID)
	if err != nil || !exists {
		t.Fatalf("expected upload to exist: %v", err)
	}

	missing, err := st.GetUpload(ctx, "up-missing")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing upload, got %+v %v", missing, err)
	}
}

func TestCreateUploadRejectsDuplicateKey(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	first := testUpload("up-aaaa0001", "post", time.Now())
	if err := st.CreateUpload(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := testUpload("up-aaaa0002", "post", time.Now())
	second.BlobKey = first.BlobKey
	if err := st.CreateUpload(ctx, second); err == nil {
		t.Fatal("expected unique blob key violation")
	}
}

func TestListUploadsNewestFirstWithFilter(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, spec := range []struct{ id, category string }{
		{"up-00000001", "post"},
		{"up-00000002", "avatar"},
		{"up-00000003", "post"},
		{"up-00000004", "post"},
	} {
		if err := st.CreateUpload(ctx, testUpload(spec.id, spec.category, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("create %s: %v", spec.id, err)
		}
	}

	posts, err := st.ListUploads(ctx, UploadFilter{Category: "post", Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "up-00000004" || posts[1].ID != "up-00000003" {
		t.Fatalf("unexpected posts %+v", posts)
	}

	all, err := st.ListUploads(ctx, UploadFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 uploads, got %d", len(all))
	}

	counts, err := st.CountUploadsByCategory(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["post"] != 3 || counts["avatar"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestDeleteUpload(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	upload := testUpload("up-aaaa0001", "branding", time.Now())
	if err := st.CreateUpload(ctx, upload); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.DeleteUpload(ctx, upload.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	exists, err := st.UploadExists(ctx, upload.ID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected upload removed")
	}
}

func TestPlanReportsAppliedSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	version, err := st.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	_ = st.Close()

	plan, err := Plan(path)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.CurrentVersion != version || len(plan.Pending) != 0 {
		t.Fatalf("unexpected plan %+v for version %d", plan, version)
	}
}
