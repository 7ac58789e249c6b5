package song

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/sydlexius/songproof/internal/database"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func TestCreateAndGet(t *testing.T) {
	svc := NewService(testDB(t))
	ctx := context.Background()

	s := &Song{Title: "Mr. Brightside", Artist: "The Killers", Album: "Hot Fuss"}
	if err := svc.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID == "" {
		t.Fatal("expected ID to be assigned")
	}
	if s.VerificationStatus != StatusUnverified {
		t.Errorf("expected unverified default, got %q", s.VerificationStatus)
	}

	got, err := svc.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Title != "Mr. Brightside" || got.Artist != "The Killers" {
		t.Errorf("unexpected song: %+v", got)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	svc := NewService(testDB(t))
	got, err := svc.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing song, got %+v", got)
	}
}

func TestUpdatePersistsPlatformIDs(t *testing.T) {
	svc := NewService(testDB(t))
	ctx := context.Background()

	s := &Song{Title: "Somebody Told Me", Artist: "The Killers"}
	if err := svc.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	s.VerificationStatus = StatusVerified
	s.VerificationSource = SourceMetadataCatalog
	s.ISRC = "USIR20400274"
	s.SetPlatformRef(PlatformSpotify, PlatformRef{ID: "t1", URL: "https://open.spotify.com/track/t1"})
	if err := svc.Update(ctx, s); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.VerificationStatus != StatusVerified {
		t.Errorf("expected verified, got %q", got.VerificationStatus)
	}
	ref, ok := got.PlatformRef(PlatformSpotify)
	if !ok || ref.ID != "t1" {
		t.Errorf("platform ref not persisted: %+v", got.PlatformIDs)
	}
}

func TestUpdateMissingSongErrors(t *testing.T) {
	svc := NewService(testDB(t))
	err := svc.Update(context.Background(), &Song{ID: "ghost", Title: "x", Artist: "y"})
	if err == nil {
		t.Error("expected error updating missing song")
	}
}

func TestListByStatusAndBatchUpdate(t *testing.T) {
	svc := NewService(testDB(t))
	ctx := context.Background()

	var songs []Song
	for _, title := range []string{"a", "b", "c"} {
		s := &Song{Title: title, Artist: "artist"}
		if err := svc.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
		songs = append(songs, *s)
	}

	songs[0].VerificationStatus = StatusVerified
	songs[1].VerificationStatus = StatusFailed
	songs[1].VerificationError = "no match"
	songs[2].VerificationStatus = StatusVerified
	if err := svc.UpdateBatch(ctx, songs); err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}

	verified, err := svc.ListByStatus(ctx, StatusVerified)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(verified) != 2 {
		t.Errorf("expected 2 verified, got %d", len(verified))
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 songs, got %d", len(all))
	}
}

func TestDelete(t *testing.T) {
	svc := NewService(testDB(t))
	ctx := context.Background()

	s := &Song{Title: "gone", Artist: "soon"}
	if err := svc.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := svc.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("expected song to be deleted")
	}
}
