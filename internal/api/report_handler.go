package api

import (
	"context"
	"net/http"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/service"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the read-only report views.
type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// StudentReport handles GET /assignments/:id/report/:studentId
func (h *ReportHandler) StudentReport(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	report, err := h.reportService.StudentReport(c.Request.Context(), actor, id, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ClassReport handles GET /reports/class/:classId/student/:studentId
func (h *ReportHandler) ClassReport(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := objectIDParam(c, "classId")
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	rows, err := h.reportService.ClassReportForStudent(c.Request.Context(), actor, classID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// StudentClass handles GET /student/class/:classId
func (h *ReportHandler) StudentClass(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := objectIDParam(c, "classId")
	if !ok {
		return
	}
	rows, err := h.reportService.AssignmentsForClass(c.Request.Context(), actor, classID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Submitted handles GET /student/submitted
func (h *ReportHandler) Submitted(c *gin.Context) {
	h.studentView(c, h.reportService.Submitted)
}

// Pending handles GET /student/pending
func (h *ReportHandler) Pending(c *gin.Context) {
	h.studentView(c, h.reportService.Pending)
}

func (h *ReportHandler) studentView(c *gin.Context, view func(ctx context.Context, actor service.Actor) ([]domain.SubmissionReport, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	rows, err := view(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
