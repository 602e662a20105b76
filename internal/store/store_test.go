package store

import (
	"context"
	"errors"
	"testing"

	"mediadlapi/internal/models"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	s := &models.DownloadSession{ID: "abc123", URL: "https://youtu.be/x", Cleanup: models.CleanupPending}
	if err := st.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.Create(ctx, s); err == nil {
		t.Error("duplicate Create should fail")
	}

	s.Cleanup = models.CleanupScheduled
	if err := st.Update(ctx, s); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := st.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Cleanup != models.CleanupScheduled {
		t.Errorf("cleanup state = %q, want scheduled", got.Cleanup)
	}
	// Get returns a copy; mutating it must not leak into the store.
	got.URL = "mutated"
	again, _ := st.Get(ctx, "abc123")
	if again.URL != "https://youtu.be/x" {
		t.Errorf("store record mutated through Get copy: %q", again.URL)
	}

	list, err := st.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v entries, err %v; want 1, nil", len(list), err)
	}

	if err := st.Delete(ctx, "abc123"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Get(ctx, "abc123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	st := NewMemoryStore()
	err := st.Update(context.Background(), &models.DownloadSession{ID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing = %v, want ErrNotFound", err)
	}
}
