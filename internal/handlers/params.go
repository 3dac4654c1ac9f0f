package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"canvasquest/internal/service"
)

type bounds struct {
	def, min, max int
}

var (
	skipBounds     = bounds{def: 0, min: 0, max: 1 << 30}
	galleryLimit   = bounds{def: 50, min: 1, max: 100}
	featuredLimit  = bounds{def: 10, min: 1, max: 50}
	latestLimit    = bounds{def: 20, min: 1, max: 100}
	artistListSize = bounds{def: 20, min: 1, max: 100}
)

// queryInt reads an optional integer query parameter within b.
func queryInt(c *gin.Context, name string, b bounds) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return b.def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < b.min || v > b.max {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", service.ErrInvalidInput, name, b.min, b.max)
	}
	return v, nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", service.ErrInvalidInput, name)
	}
	return id, nil
}

func page(c *gin.Context, limit bounds) (skip, size int, err error) {
	if skip, err = queryInt(c, "skip", skipBounds); err != nil {
		return 0, 0, err
	}
	if size, err = queryInt(c, "limit", limit); err != nil {
		return 0, 0, err
	}
	return skip, size, nil
}
