package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"batchtrack.io/tracker/internal/domain"
	apperrors "batchtrack.io/tracker/internal/pkg/errors"
	"batchtrack.io/tracker/internal/service"
)

// TicketActionRequest is the body of POST /tickets/:id/actions. Either
// Action or Status must be set; an annotation-only request carries neither
// and only records Details.
type TicketActionRequest struct {
	Action         string `json:"action"`
	Status         string `json:"status"`
	Username       string `json:"username" binding:"required"`
	Details        string `json:"details"`
	CorrectionNote string `json:"correction_note"`
}

// TicketList wraps ticket collections.
type TicketList struct {
	Items []domain.Ticket `json:"items"`
	Total int             `json:"total"`
}

func ticketList(items []domain.Ticket) TicketList {
	if items == nil {
		items = []domain.Ticket{}
	}
	return TicketList{Items: items, Total: len(items)}
}

// CreateTicket handles POST /tickets.
func (s *Server) CreateTicket(c *gin.Context) {
	var req service.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid request body"))
		return
	}

	t, err := s.tickets.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// ListTickets handles GET /tickets?status=.
func (s *Server) ListTickets(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		c.JSON(http.StatusOK, ticketList(s.tickets.Active()))
		return
	}

	items, err := s.tickets.ByStatus(status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ticketList(items))
}

// ListProductionTickets handles GET /tickets/production.
func (s *Server) ListProductionTickets(c *gin.Context) {
	c.JSON(http.StatusOK, ticketList(s.tickets.Production()))
}

// ListLabTickets handles GET /tickets/lab.
func (s *Server) ListLabTickets(c *gin.Context) {
	c.JSON(http.StatusOK, ticketList(s.tickets.Lab()))
}

// ListArchivedTickets handles GET /archive.
func (s *Server) ListArchivedTickets(c *gin.Context) {
	c.JSON(http.StatusOK, ticketList(s.tickets.Archive()))
}

// GetTicket handles GET /tickets/:id.
func (s *Server) GetTicket(c *gin.Context) {
	t, err := s.tickets.Get(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ApplyTicketAction handles POST /tickets/:id/actions.
func (s *Server) ApplyTicketAction(c *gin.Context) {
	var req TicketActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid request body"))
		return
	}

	t, err := s.tickets.Update(c.Request.Context(), c.Param("id"), domain.Patch{
		Action:         domain.Action(req.Action),
		Status:         domain.Status(req.Status),
		Username:       req.Username,
		Details:        req.Details,
		CorrectionNote: req.CorrectionNote,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// GetTicketTimeout handles GET /tickets/:id/timeout.
func (s *Server) GetTicketTimeout(c *gin.Context) {
	res, err := s.tickets.CheckTimeout(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
