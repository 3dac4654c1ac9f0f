package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) Gallery(c *gin.Context) {
	skip, limit, err := page(c, galleryLimit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.artworks.Gallery(c.Request.Context(), skip, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"artworks": h.artworkList(result.Artworks),
		"featured": h.artworkList(result.Featured),
		"total":    result.Total,
	})
}

func (h HandlerSet) FeaturedArtworks(c *gin.Context) {
	limit, err := queryInt(c, "limit", featuredLimit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	artworks, err := h.artworks.Featured(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.artworkList(artworks))
}

func (h HandlerSet) LatestArtworks(c *gin.Context) {
	limit, err := queryInt(c, "limit", latestLimit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	artworks, err := h.artworks.Latest(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.artworkList(artworks))
}
