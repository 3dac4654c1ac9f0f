package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"canvasquest/internal/config"
	"canvasquest/internal/ids"
	"canvasquest/internal/media/sniffer"
	"canvasquest/internal/media/svg"
	"canvasquest/internal/media/thumbnail"
	"canvasquest/internal/models"
	"canvasquest/internal/queue"
	"canvasquest/internal/repository"
	"canvasquest/internal/security"
	"canvasquest/internal/storage"
)

const (
	maxTitleLen   = 200
	featuredLimit = 10
)

type ThumbnailQueue interface {
	EnqueueThumbnail(ctx context.Context, task queue.ThumbnailTask) error
}

type UploadInput struct {
	Artist      models.User
	Filename    string
	ContentType string
	Data        []byte
	Title       *string
	Description *string
	Width       *int
	Height      *int
	CanvasData  *string
	IsPublic    bool
}

type GalleryPage struct {
	Artworks []models.Artwork
	Featured []models.Artwork
	Total    int
}

type ArtworkService struct {
	artworks      ArtworkStore
	blobs         storage.Store
	queue         ThumbnailQueue
	uploads       config.UploadConfig
	signingSecret string
	log           zerolog.Logger
}

func NewArtworkService(
	artworks ArtworkStore,
	blobs storage.Store,
	queue ThumbnailQueue,
	uploads config.UploadConfig,
	signingSecret string,
	log zerolog.Logger,
) *ArtworkService {
	return &ArtworkService{
		artworks:      artworks,
		blobs:         blobs,
		queue:         queue,
		uploads:       uploads,
		signingSecret: signingSecret,
		log:           log,
	}
}

func (s *ArtworkService) Upload(ctx context.Context, input UploadInput) (models.Artwork, error) {
	ext := strings.ToLower(filepath.Ext(input.Filename))
	if !s.extensionAllowed(ext) {
		return models.Artwork{}, fmt.Errorf("%w: extension %q not allowed", ErrUnsupportedMedia, ext)
	}
	if len(input.Data) == 0 {
		return models.Artwork{}, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if int64(len(input.Data)) > s.uploads.MaxSizeBytes {
		return models.Artwork{}, ErrFileTooLarge
	}
	if err := validateMetadata(input); err != nil {
		return models.Artwork{}, err
	}

	detected, err := sniffer.Detect(input.Data)
	if err != nil {
		return models.Artwork{}, fmt.Errorf("%w: unrecognised content", ErrUnsupportedMedia)
	}
	claimed, _ := sniffer.TypeForExtension(ext)
	if claimed != detected.Type {
		return models.Artwork{}, fmt.Errorf("%w: %s content with %s extension", ErrUnsupportedMedia, detected.Type, ext)
	}
	if declared := mediaType(input.ContentType); declared != "" && declared != "application/octet-stream" && declared != detected.MIME {
		return models.Artwork{}, fmt.Errorf("%w: declared %s, actual %s", ErrUnsupportedMedia, declared, detected.MIME)
	}

	data := input.Data
	width, height := input.Width, input.Height
	if detected.IsRaster() {
		if width == nil || height == nil {
			w, h, err := thumbnail.Dimensions(data)
			if err != nil {
				return models.Artwork{}, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
			}
			if width == nil {
				width = &w
			}
			if height == nil {
				height = &h
			}
		}
	} else {
		if data, err = svg.Sanitize(data); err != nil {
			return models.Artwork{}, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
		}
	}

	key := "artworks/" + ids.New() + ext
	if err := s.blobs.Put(ctx, key, data, detected.MIME); err != nil {
		return models.Artwork{}, storageFailure(err)
	}

	artwork, err := s.artworks.Create(ctx, models.Artwork{
		Title:       input.Title,
		Description: input.Description,
		FilePath:    key,
		FileFormat:  strings.TrimPrefix(ext, "."),
		FileSize:    int64(len(data)),
		Width:       width,
		Height:      height,
		CanvasData:  input.CanvasData,
		IsPublic:    input.IsPublic,
		ArtistID:    input.Artist.ID,
		Checksum:    security.Checksum(data),
		Signature:   security.SignResource(s.signingSecret, strconv.FormatInt(input.Artist.ID, 10), key),
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.log.Warn().Err(delErr).Str("key", key).Msg("remove orphaned blob")
		}
		return models.Artwork{}, storageFailure(err)
	}
	artwork.Artist = input.Artist

	if detected.IsRaster() && s.queue != nil {
		if err := s.queue.EnqueueThumbnail(ctx, queue.ThumbnailTask{ArtworkID: artwork.ID, FilePath: key}); err != nil {
			// The backfill job picks it up later.
			s.log.Warn().Err(err).Int64("artwork_id", artwork.ID).Msg("enqueue thumbnail failed")
		}
	}

	s.log.Info().
		Int64("artwork_id", artwork.ID).
		Int64("artist_id", artwork.ArtistID).
		Str("format", artwork.FileFormat).
		Int64("bytes", artwork.FileSize).
		Msg("artwork uploaded")
	return artwork, nil
}

// Get returns an artwork and counts the view. Private artworks are visible to
// their owner only.
func (s *ArtworkService) Get(ctx context.Context, id int64, viewer *models.User) (models.Artwork, error) {
	artwork, err := s.load(ctx, id)
	if err != nil {
		return models.Artwork{}, err
	}
	if !artwork.IsPublic && (viewer == nil || !AuthorizeOwner(*viewer, artwork.ArtistID)) {
		return models.Artwork{}, ErrForbidden
	}

	if err := s.artworks.IncrementViews(ctx, id); err != nil {
		if errors.Is(err, repository.ErrArtworkNotFound) {
			return models.Artwork{}, ErrNotFound
		}
		return models.Artwork{}, storageFailure(err)
	}
	artwork.Views++
	return artwork, nil
}

func (s *ArtworkService) ListByArtist(ctx context.Context, artistID int64, viewer *models.User, skip, limit int) ([]models.Artwork, error) {
	includePrivate := viewer != nil && AuthorizeOwner(*viewer, artistID)
	artworks, err := s.artworks.ListByArtist(ctx, artistID, includePrivate, skip, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	return artworks, nil
}

func (s *ArtworkService) Heart(ctx context.Context, id int64) (models.Artwork, error) {
	if err := s.artworks.IncrementHearts(ctx, id); err != nil {
		if errors.Is(err, repository.ErrArtworkNotFound) {
			return models.Artwork{}, ErrNotFound
		}
		return models.Artwork{}, storageFailure(err)
	}
	return s.load(ctx, id)
}

// Delete removes an artwork owned by actor, then its files.
func (s *ArtworkService) Delete(ctx context.Context, id int64, actor models.User) error {
	artwork, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !AuthorizeOwner(actor, artwork.ArtistID) {
		return ErrForbidden
	}

	// Blob paths come from the deleted row: the worker may have recorded a
	// thumbnail since the load above.
	removed, err := s.artworks.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrArtworkNotFound) {
			return ErrNotFound
		}
		return storageFailure(err)
	}

	removeBlobs(ctx, s.blobs, s.log, removed)
	s.log.Info().Int64("artwork_id", id).Int64("artist_id", actor.ID).Msg("artwork deleted")
	return nil
}

// Gallery returns a page of public artworks plus the current featured set.
func (s *ArtworkService) Gallery(ctx context.Context, skip, limit int) (GalleryPage, error) {
	artworks, err := s.artworks.ListPublic(ctx, false, skip, limit)
	if err != nil {
		return GalleryPage{}, storageFailure(err)
	}
	featured, err := s.artworks.ListPublic(ctx, true, 0, featuredLimit)
	if err != nil {
		return GalleryPage{}, storageFailure(err)
	}
	return GalleryPage{Artworks: artworks, Featured: featured, Total: len(artworks)}, nil
}

func (s *ArtworkService) Featured(ctx context.Context, limit int) ([]models.Artwork, error) {
	artworks, err := s.artworks.ListPublic(ctx, true, 0, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	return artworks, nil
}

func (s *ArtworkService) Latest(ctx context.Context, limit int) ([]models.Artwork, error) {
	artworks, err := s.artworks.ListPublic(ctx, false, 0, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	return artworks, nil
}

func (s *ArtworkService) SetFeatured(ctx context.Context, id int64, featured bool) error {
	if err := s.artworks.SetFeatured(ctx, id, featured); err != nil {
		if errors.Is(err, repository.ErrArtworkNotFound) {
			return ErrNotFound
		}
		return storageFailure(err)
	}
	return nil
}

// FileURL is the public URL of a stored blob.
func (s *ArtworkService) FileURL(key string) string {
	return s.blobs.URL(key)
}

// VerifySignature reports whether the stored signature matches the artwork.
func (s *ArtworkService) VerifySignature(artwork models.Artwork) bool {
	return security.VerifyResource(s.signingSecret, artwork.Signature, strconv.FormatInt(artwork.ArtistID, 10), artwork.FilePath)
}

func (s *ArtworkService) load(ctx context.Context, id int64) (models.Artwork, error) {
	artwork, err := s.artworks.GetByID(ctx, id)
	if errors.Is(err, repository.ErrArtworkNotFound) {
		return models.Artwork{}, ErrNotFound
	}
	if err != nil {
		return models.Artwork{}, storageFailure(err)
	}
	return artwork, nil
}

func (s *ArtworkService) extensionAllowed(ext string) bool {
	for _, allowed := range s.uploads.AllowedExtensions {
		if strings.EqualFold(strings.TrimSpace(allowed), ext) {
			return true
		}
	}
	return false
}

func validateMetadata(input UploadInput) error {
	if input.Title != nil && utf8.RuneCountInString(*input.Title) > maxTitleLen {
		return fmt.Errorf("%w: title longer than %d characters", ErrInvalidInput, maxTitleLen)
	}
	if input.CanvasData != nil && !json.Valid([]byte(*input.CanvasData)) {
		return fmt.Errorf("%w: canvas_data is not valid JSON", ErrInvalidInput)
	}
	for _, dim := range []*int{input.Width, input.Height} {
		if dim != nil && *dim <= 0 {
			return fmt.Errorf("%w: dimensions must be positive", ErrInvalidInput)
		}
	}
	return nil
}

func mediaType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
