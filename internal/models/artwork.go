package models

import "time"

type Artwork struct {
	ID            int64
	Title         *string
	Description   *string
	FilePath      string
	ThumbnailPath *string
	FileFormat    string
	FileSize      int64
	Width         *int
	Height        *int
	CanvasData    *string
	Hearts        int64
	Views         int64
	IsFeatured    bool
	IsPublic      bool
	ArtistID      int64
	Checksum      []byte
	Signature     []byte
	CreatedAt     time.Time
	UpdatedAt     *time.Time

	// Artist is populated by read queries that join users.
	Artist User
}
