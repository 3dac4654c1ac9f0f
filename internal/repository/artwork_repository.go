package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"canvasquest/internal/database"
	"canvasquest/internal/models"
)

const artworkSelect = `
	SELECT a.id, a.title, a.description, a.file_path, a.thumbnail_path, a.file_format, a.file_size,
	       a.width, a.height, a.canvas_data, a.hearts, a.views, a.is_featured, a.is_public,
	       a.artist_id, a.checksum, a.signature, a.created_at, a.updated_at,
	       u.id, u.artist_name, u.email, u.bio, u.avatar_url, u.is_active, u.created_at
	FROM artworks a
	JOIN users u ON u.id = a.artist_id
`

type ArtworkRepository struct {
	db database.DBTX
}

func NewArtworkRepository(db database.DBTX) *ArtworkRepository {
	return &ArtworkRepository{db: db}
}

func (r *ArtworkRepository) Create(ctx context.Context, artwork models.Artwork) (models.Artwork, error) {
	const query = `
		INSERT INTO artworks (
			title, description, file_path, thumbnail_path, file_format, file_size,
			width, height, canvas_data, is_public, artist_id, checksum, signature
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13
		)
		RETURNING id, hearts, views, is_featured, created_at
	`

	err := r.db.QueryRow(ctx, query,
		artwork.Title,
		artwork.Description,
		artwork.FilePath,
		artwork.ThumbnailPath,
		artwork.FileFormat,
		artwork.FileSize,
		artwork.Width,
		artwork.Height,
		artwork.CanvasData,
		artwork.IsPublic,
		artwork.ArtistID,
		artwork.Checksum,
		artwork.Signature,
	).Scan(&artwork.ID, &artwork.Hearts, &artwork.Views, &artwork.IsFeatured, &artwork.CreatedAt)
	if err != nil {
		return models.Artwork{}, err
	}
	return artwork, nil
}

func (r *ArtworkRepository) GetByID(ctx context.Context, id int64) (models.Artwork, error) {
	const query = artworkSelect + ` WHERE a.id = $1`
	return scanArtwork(r.db.QueryRow(ctx, query, id))
}

func (r *ArtworkRepository) IncrementViews(ctx context.Context, id int64) error {
	const query = `UPDATE artworks SET views = views + 1 WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *ArtworkRepository) IncrementHearts(ctx context.Context, id int64) error {
	const query = `UPDATE artworks SET hearts = hearts + 1 WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *ArtworkRepository) ListByArtist(ctx context.Context, artistID int64, includePrivate bool, skip, limit int) ([]models.Artwork, error) {
	const query = artworkSelect + `
		WHERE a.artist_id = $1 AND (a.is_public OR $2)
		ORDER BY a.created_at DESC
		LIMIT $3 OFFSET $4
	`
	return r.list(ctx, query, artistID, includePrivate, limit, skip)
}

func (r *ArtworkRepository) ListPublic(ctx context.Context, featuredOnly bool, skip, limit int) ([]models.Artwork, error) {
	const query = artworkSelect + `
		WHERE a.is_public AND (a.is_featured OR NOT $1)
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, featuredOnly, limit, skip)
}

// ListMissingThumbnails returns raster artworks that have no thumbnail yet.
func (r *ArtworkRepository) ListMissingThumbnails(ctx context.Context, limit int) ([]models.Artwork, error) {
	const query = artworkSelect + `
		WHERE a.thumbnail_path IS NULL AND a.file_format <> 'svg'
		ORDER BY a.id
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *ArtworkRepository) SetThumbnail(ctx context.Context, id int64, thumbnailPath string) error {
	const query = `UPDATE artworks SET thumbnail_path = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, query, id, thumbnailPath)
}

func (r *ArtworkRepository) SetFeatured(ctx context.Context, id int64, featured bool) error {
	const query = `UPDATE artworks SET is_featured = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, query, id, featured)
}

// Delete removes one artwork and returns the blob paths the row held at
// deletion time, including a thumbnail recorded after any earlier read.
func (r *ArtworkRepository) Delete(ctx context.Context, id int64) (models.Artwork, error) {
	const query = `
		DELETE FROM artworks
		WHERE id = $1
		RETURNING id, artist_id, file_path, thumbnail_path
	`
	var artwork models.Artwork
	err := r.db.QueryRow(ctx, query, id).Scan(&artwork.ID, &artwork.ArtistID, &artwork.FilePath, &artwork.ThumbnailPath)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Artwork{}, ErrArtworkNotFound
	}
	if err != nil {
		return models.Artwork{}, err
	}
	return artwork, nil
}

// DeleteByArtist removes every artwork of an artist and returns the blob
// paths that were referenced.
func (r *ArtworkRepository) DeleteByArtist(ctx context.Context, artistID int64) ([]models.Artwork, error) {
	const query = `
		DELETE FROM artworks
		WHERE artist_id = $1
		RETURNING id, file_path, thumbnail_path
	`
	rows, err := r.db.Query(ctx, query, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var removed []models.Artwork
	for rows.Next() {
		artwork := models.Artwork{ArtistID: artistID}
		if err := rows.Scan(&artwork.ID, &artwork.FilePath, &artwork.ThumbnailPath); err != nil {
			return nil, err
		}
		removed = append(removed, artwork)
	}
	return removed, rows.Err()
}

func (r *ArtworkRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrArtworkNotFound
	}
	return nil
}

func (r *ArtworkRepository) list(ctx context.Context, query string, args ...any) ([]models.Artwork, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artworks := make([]models.Artwork, 0)
	for rows.Next() {
		artwork, err := scanArtwork(rows)
		if err != nil {
			return nil, err
		}
		artworks = append(artworks, artwork)
	}
	return artworks, rows.Err()
}

func scanArtwork(row pgx.Row) (models.Artwork, error) {
	var a models.Artwork
	if err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.FilePath,
		&a.ThumbnailPath,
		&a.FileFormat,
		&a.FileSize,
		&a.Width,
		&a.Height,
		&a.CanvasData,
		&a.Hearts,
		&a.Views,
		&a.IsFeatured,
		&a.IsPublic,
		&a.ArtistID,
		&a.Checksum,
		&a.Signature,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.Artist.ID,
		&a.Artist.DisplayName,
		&a.Artist.Email,
		&a.Artist.Bio,
		&a.Artist.AvatarURL,
		&a.Artist.IsActive,
		&a.Artist.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Artwork{}, ErrArtworkNotFound
		}
		return models.Artwork{}, err
	}
	return a, nil
}
