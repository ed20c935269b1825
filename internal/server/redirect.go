package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ResolvePlate is the public scan surface: a plate's slug resolves to a
// redirect onto its destination URL.
func (s *Server) ResolvePlate(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	plate, err := s.plates.FindBySlug(c.Request.Context(), s.db, slug)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if plate == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.Redirect(http.StatusFound, plate.DestinationURL)
}
