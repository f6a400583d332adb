package api

import (
	"net/http"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmissionHandler serves the submit, unsubmit and evaluate transitions.
type SubmissionHandler struct {
	submissionService service.SubmissionService
}

func NewSubmissionHandler(submissionService service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

type SubmitRequest struct {
	FileLink string `json:"fileLink" binding:"required,max=1024"`
}

type EvaluateRequest struct {
	StudentID string   `json:"studentId" binding:"required,len=24,hexadecimal"`
	Marks     *float64 `json:"marks" binding:"required,gte=0"`
	Rating    *string  `json:"rating" binding:"omitempty,max=50"`
	Remark    *string  `json:"remark" binding:"omitempty,max=2000"`
}

// Submit handles POST /assignments/:id/submit
func (h *SubmissionHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req SubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.submissionService.Submit(c.Request.Context(), actor, id, req.FileLink)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Assignment submitted", "submission": sub})
}

// Unsubmit handles DELETE /assignments/:id/submit
func (h *SubmissionHandler) Unsubmit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.submissionService.Unsubmit(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Submission removed"})
}

// Evaluate handles POST /assignments/:id/evaluate
func (h *SubmissionHandler) Evaluate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req EvaluateRequest
	if !bindJSON(c, &req) {
		return
	}
	studentID, err := primitive.ObjectIDFromHex(req.StudentID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid studentId format")
		return
	}

	sub, err := h.submissionService.Evaluate(c.Request.Context(), actor, id, studentID, domain.Evaluation{
		Marks:  *req.Marks,
		Rating: req.Rating,
		Remark: req.Remark,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
