package song

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// songColumns is the ordered list of columns for SELECT queries.
const songColumns = `id, title, artist, album, year, duration_sec, isrc,
	verification_status, verification_source, verification_error,
	album_art_url, preview_url, preview_source, platform_ids,
	created_at, updated_at`

// Service provides song data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a song service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new song. An empty ID is assigned a fresh UUID and an
// empty status defaults to unverified.
func (s *Service) Create(ctx context.Context, sg *Song) error {
	if sg.ID == "" {
		sg.ID = uuid.New().String()
	}
	if sg.VerificationStatus == "" {
		sg.VerificationStatus = StatusUnverified
	}
	now := time.Now().UTC()
	sg.CreatedAt = now
	sg.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (
			id, title, artist, album, year, duration_sec, isrc,
			verification_status, verification_source, verification_error,
			album_art_url, preview_url, preview_source, platform_ids,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sg.ID, sg.Title, sg.Artist, sg.Album, sg.Year, sg.DurationSec, sg.ISRC,
		sg.VerificationStatus, sg.VerificationSource, sg.VerificationError,
		sg.AlbumArtURL, sg.PreviewURL, sg.PreviewSource, marshalPlatformIDs(sg.PlatformIDs),
		sg.CreatedAt, sg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting song: %w", err)
	}
	return nil
}

// Get returns a song by ID, or nil if not found.
func (s *Service) Get(ctx context.Context, id string) (*Song, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id)
	sg, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting song: %w", err)
	}
	return sg, nil
}

// List returns all songs ordered by creation time.
func (s *Service) List(ctx context.Context) ([]Song, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+songColumns+` FROM songs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var songs []Song
	for rows.Next() {
		sg, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		songs = append(songs, *sg)
	}
	return songs, rows.Err()
}

// ListByStatus returns songs with the given verification status.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Song, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE verification_status = ? ORDER BY created_at, id`, status)
	if err != nil {
		return nil, fmt.Errorf("listing songs by status: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var songs []Song
	for rows.Next() {
		sg, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		songs = append(songs, *sg)
	}
	return songs, rows.Err()
}

// Update persists the mutable fields of a song.
func (s *Service) Update(ctx context.Context, sg *Song) error {
	sg.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE songs SET
			title = ?, artist = ?, album = ?, year = ?, duration_sec = ?, isrc = ?,
			verification_status = ?, verification_source = ?, verification_error = ?,
			album_art_url = ?, preview_url = ?, preview_source = ?, platform_ids = ?,
			updated_at = ?
		WHERE id = ?
	`,
		sg.Title, sg.Artist, sg.Album, sg.Year, sg.DurationSec, sg.ISRC,
		sg.VerificationStatus, sg.VerificationSource, sg.VerificationError,
		sg.AlbumArtURL, sg.PreviewURL, sg.PreviewSource, marshalPlatformIDs(sg.PlatformIDs),
		sg.UpdatedAt, sg.ID,
	)
	if err != nil {
		return fmt.Errorf("updating song: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("song %s not found", sg.ID)
	}
	return nil
}

// UpdateBatch persists a batch of songs in one transaction. Used after a
// verification run so a partial failure does not leave mixed state.
func (s *Service) UpdateBatch(ctx context.Context, songs []Song) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for i := range songs {
		sg := &songs[i]
		sg.UpdatedAt = now
		_, err := tx.ExecContext(ctx, `
			UPDATE songs SET
				title = ?, artist = ?, album = ?, year = ?, duration_sec = ?, isrc = ?,
				verification_status = ?, verification_source = ?, verification_error = ?,
				album_art_url = ?, preview_url = ?, preview_source = ?, platform_ids = ?,
				updated_at = ?
			WHERE id = ?
		`,
			sg.Title, sg.Artist, sg.Album, sg.Year, sg.DurationSec, sg.ISRC,
			sg.VerificationStatus, sg.VerificationSource, sg.VerificationError,
			sg.AlbumArtURL, sg.PreviewURL, sg.PreviewSource, marshalPlatformIDs(sg.PlatformIDs),
			sg.UpdatedAt, sg.ID,
		)
		if err != nil {
			return fmt.Errorf("updating song %s: %w", sg.ID, err)
		}
	}

	return tx.Commit()
}

// Delete removes a song by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting song: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (*Song, error) {
	var sg Song
	var platformIDs string
	err := row.Scan(
		&sg.ID, &sg.Title, &sg.Artist, &sg.Album, &sg.Year, &sg.DurationSec, &sg.ISRC,
		&sg.VerificationStatus, &sg.VerificationSource, &sg.VerificationError,
		&sg.AlbumArtURL, &sg.PreviewURL, &sg.PreviewSource, &platformIDs,
		&sg.CreatedAt, &sg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sg.PlatformIDs = unmarshalPlatformIDs(platformIDs)
	return &sg, nil
}
