package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"canvasquest/internal/middleware"
	"canvasquest/internal/service"
)

// multipartOverhead covers form fields and part headers around the file.
const multipartOverhead = 1 << 20

func (h HandlerSet) UploadArtwork(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, service.ErrFileTooLarge)
			return
		}
		h.writeError(c, invalidInput(err))
		return
	}
	if header.Size > h.maxUploadSize {
		h.writeError(c, service.ErrFileTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		h.writeError(c, invalidInput(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		h.writeError(c, invalidInput(err))
		return
	}

	input := service.UploadInput{
		Artist:      user,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Title:       formString(c, "title"),
		Description: formString(c, "description"),
		CanvasData:  formString(c, "canvas_data"),
		IsPublic:    true,
	}
	if input.Width, err = formInt(c, "width"); err != nil {
		h.writeError(c, err)
		return
	}
	if input.Height, err = formInt(c, "height"); err != nil {
		h.writeError(c, err)
		return
	}
	if raw := c.PostForm("is_public"); raw != "" {
		if input.IsPublic, err = strconv.ParseBool(raw); err != nil {
			h.writeError(c, fmt.Errorf("%w: is_public must be a boolean", service.ErrInvalidInput))
			return
		}
	}

	artwork, err := h.artworks.Upload(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.artworkResponse(artwork))
}

func (h HandlerSet) GetArtwork(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	artwork, err := h.artworks.Get(c.Request.Context(), id, middleware.OptionalUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, artworkDetailResponse{
		artworkResponse: h.artworkResponse(artwork),
		CanvasData:      artwork.CanvasData,
		Verified:        h.artworks.VerifySignature(artwork),
	})
}

func (h HandlerSet) ListArtistArtworks(c *gin.Context) {
	artistID, err := pathID(c, "artistId")
	if err != nil {
		h.writeError(c, err)
		return
	}
	skip, limit, err := page(c, artistListSize)
	if err != nil {
		h.writeError(c, err)
		return
	}

	artworks, err := h.artworks.ListByArtist(c.Request.Context(), artistID, middleware.OptionalUser(c), skip, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"artworks": h.artworkList(artworks),
		"skip":     skip,
		"limit":    limit,
	})
}

func (h HandlerSet) HeartArtwork(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	artwork, err := h.artworks.Heart(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.artworkResponse(artwork))
}

func (h HandlerSet) DeleteArtwork(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	user, _ := middleware.CurrentUser(c)

	if err := h.artworks.Delete(c.Request.Context(), id, user); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "artwork deleted", Success: true})
}

func formString(c *gin.Context, name string) *string {
	v, ok := c.GetPostForm(name)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func formInt(c *gin.Context, name string) (*int, error) {
	raw := c.PostForm(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", service.ErrInvalidInput, name)
	}
	return &v, nil
}
