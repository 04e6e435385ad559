package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListMixers handles GET /mixers.
func (s *Server) ListMixers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.tickets.MixerStatus()})
}

// ListAvailableMixers handles GET /mixers/available?product=&technology=.
// Unknown names yield an empty list.
func (s *Server) ListAvailableMixers(c *gin.Context) {
	items := s.tickets.AvailableMixers(c.Query("product"), c.Query("technology"))
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetMixerBusy handles GET /mixers/:name/busy.
func (s *Server) GetMixerBusy(c *gin.Context) {
	name := c.Param("name")
	c.JSON(http.StatusOK, gin.H{"mixer": name, "busy": s.tickets.IsMixerBusy(name)})
}
