package handlers

import (
	"time"

	"canvasquest/internal/models"
)

type userResponse struct {
	ID         int64      `json:"id"`
	ArtistName string     `json:"artist_name"`
	Email      *string    `json:"email,omitempty"`
	Bio        *string    `json:"bio,omitempty"`
	AvatarURL  *string    `json:"avatar_url,omitempty"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:         u.ID,
		ArtistName: u.DisplayName,
		Email:      u.Email,
		Bio:        u.Bio,
		AvatarURL:  u.AvatarURL,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

// sessionResponse never carries the token itself.
type sessionResponse struct {
	ID           int64     `json:"id"`
	State        string    `json:"state"`
	Current      bool      `json:"current"`
	IPAddress    *string   `json:"ip_address,omitempty"`
	UserAgent    *string   `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}

type artistSummary struct {
	ID         int64   `json:"id"`
	ArtistName string  `json:"artist_name"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

type artworkResponse struct {
	ID           int64         `json:"id"`
	Title        *string       `json:"title"`
	Description  *string       `json:"description"`
	FileURL      string        `json:"file_url"`
	ThumbnailURL *string       `json:"thumbnail_url"`
	FileFormat   string        `json:"file_format"`
	FileSize     int64         `json:"file_size"`
	Width        *int          `json:"width"`
	Height       *int          `json:"height"`
	Hearts       int64         `json:"hearts"`
	Views        int64         `json:"views"`
	IsFeatured   bool          `json:"is_featured"`
	IsPublic     bool          `json:"is_public"`
	ArtistID     int64         `json:"artist_id"`
	Artist       artistSummary `json:"artist"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    *time.Time    `json:"updated_at,omitempty"`
}

type artworkDetailResponse struct {
	artworkResponse
	CanvasData *string `json:"canvas_data,omitempty"`
	Verified   bool    `json:"verified"`
}

type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func (h HandlerSet) artworkResponse(a models.Artwork) artworkResponse {
	resp := artworkResponse{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		FileURL:     h.artworks.FileURL(a.FilePath),
		FileFormat:  a.FileFormat,
		FileSize:    a.FileSize,
		Width:       a.Width,
		Height:      a.Height,
		Hearts:      a.Hearts,
		Views:       a.Views,
		IsFeatured:  a.IsFeatured,
		IsPublic:    a.IsPublic,
		ArtistID:    a.ArtistID,
		Artist: artistSummary{
			ID:         a.ArtistID,
			ArtistName: a.Artist.DisplayName,
			AvatarURL:  a.Artist.AvatarURL,
		},
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.ThumbnailPath != nil {
		url := h.artworks.FileURL(*a.ThumbnailPath)
		resp.ThumbnailURL = &url
	}
	return resp
}

func (h HandlerSet) artworkList(artworks []models.Artwork) []artworkResponse {
	out := make([]artworkResponse, 0, len(artworks))
	for _, a := range artworks {
		out = append(out, h.artworkResponse(a))
	}
	return out
}
