package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photoalbum/internal/export"
	"photoalbum/internal/models"
)

type bugReportRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"required"`
}

type bugReportPatchRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,min=1"`
	Status      *string `json:"status"`
}

var bugReportHeaders = []string{"ID", "User", "Title", "Description", "Status", "Created At"}

func bugReportRow(r models.BugReport) []any {
	return []any{
		strconv.FormatInt(r.ID, 10),
		r.Username,
		r.Title,
		r.Description,
		r.Status,
		r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// loadBugReport hides reports of other users from non-staff callers.
func (s *Server) loadBugReport(c *gin.Context) (*models.BugReport, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	report, err := s.db.GetBugReport(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "server.loadBugReport", err)
		return nil, false
	}
	if !report.VisibleTo(currentUser(c)) {
		abort(c, http.StatusNotFound, msgNotFound)
		return nil, false
	}
	return report, true
}

func (s *Server) handleListBugReports(c *gin.Context) {
	const op = "server.handleListBugReports"

	u := currentUser(c)
	var owner *int64
	if !u.IsStaff {
		owner = &u.ID
	}
	reports, err := s.db.ListBugReports(c.Request.Context(), owner)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) handleCreateBugReport(c *gin.Context) {
	const op = "server.handleCreateBugReport"

	var req bugReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u := currentUser(c)
	report := &models.BugReport{
		UserID:      &u.ID,
		Username:    u.Username,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.BugOpen,
	}
	if err := s.db.CreateBugReport(c.Request.Context(), report); err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (s *Server) handleGetBugReport(c *gin.Context) {
	report, ok := s.loadBugReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleUpdateBugReport(c *gin.Context) {
	const op = "server.handleUpdateBugReport"

	report, ok := s.loadBugReport(c)
	if !ok {
		return
	}
	var req bugReportPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if req.Status != nil {
		if !currentUser(c).IsStaff {
			abort(c, http.StatusForbidden, "only staff can change the status")
			return
		}
		if !models.ValidBugStatus(*req.Status) {
			abort(c, http.StatusBadRequest, "status must be open or closed")
			return
		}
		report.Status = *req.Status
	}
	if req.Title != nil {
		report.Title = *req.Title
	}
	if req.Description != nil {
		report.Description = *req.Description
	}

	if err := s.db.UpdateBugReport(c.Request.Context(), report); err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleDeleteBugReport(c *gin.Context) {
	const op = "server.handleDeleteBugReport"

	report, ok := s.loadBugReport(c)
	if !ok {
		return
	}
	if err := s.db.DeleteBugReport(c.Request.Context(), report.ID); err != nil {
		s.fail(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleExportBugReports sends every bug report as an Excel workbook.
func (s *Server) handleExportBugReports(c *gin.Context) {
	const op = "server.handleExportBugReports"

	reports, err := s.db.ListBugReports(c.Request.Context(), nil)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	wb, err := export.Excel(reports, bugReportHeaders, bugReportRow, "Bug Reports", "bug_reports", s.now())
	if err != nil {
		s.fail(c, op, err)
		return
	}
	if err := wb.Write(c.Writer); err != nil {
		s.log.Warn("write export", zap.Error(err))
		return
	}
	exportsServed.Inc()
}
