package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "batchtrack.io/tracker/internal/pkg/errors"
)

// ClearActiveRequest is the body of POST /admin/clear.
type ClearActiveRequest struct {
	Secret   string `json:"secret" binding:"required"`
	Username string `json:"username"`
}

// ForceCloseRequest is the body of POST /admin/tickets/:id/close.
type ForceCloseRequest struct {
	Username string `json:"username" binding:"required"`
}

// ClearActiveTickets handles POST /admin/clear.
// A wrong secret is answered with 403 and leaves every ticket in place.
func (s *Server) ClearActiveTickets(c *gin.Context) {
	var req ClearActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid request body"))
		return
	}

	res, err := s.admin.ClearActive(c.Request.Context(), req.Secret, req.Username)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !res.Success {
		_ = c.Error(apperrors.Forbidden(apperrors.CodeAdminSecretMismatch, res.Message))
		return
	}
	c.JSON(http.StatusOK, res)
}

// CreateBackup handles POST /admin/backup.
func (s *Server) CreateBackup(c *gin.Context) {
	path, err := s.admin.Backup(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": path})
}

// ForceCloseTicket handles POST /admin/tickets/:id/close.
func (s *Server) ForceCloseTicket(c *gin.Context) {
	var req ForceCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid request body"))
		return
	}

	t, err := s.admin.ForceClose(c.Request.Context(), c.Param("id"), req.Username)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}
