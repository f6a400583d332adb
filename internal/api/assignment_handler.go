package api

import (
	"net/http"
	"time"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentHandler serves assignment CRUD.
type AssignmentHandler struct {
	assignmentService service.AssignmentService
}

func NewAssignmentHandler(assignmentService service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// --- DTOs ---

type CreateAssignmentRequest struct {
	ClassID     string    `json:"classId" binding:"required,len=24,hexadecimal"`
	Title       string    `json:"title" binding:"required,max=200"`
	Description string    `json:"description" binding:"required,max=10000"`
	DueDate     time.Time `json:"dueDate" binding:"required"`
	TotalMarks  float64   `json:"totalMarks" binding:"required,gt=0"`
	FileLink    string    `json:"fileLink" binding:"omitempty,max=1024"`
}

// UpdateAssignmentRequest is a merge patch: absent fields stay unchanged.
type UpdateAssignmentRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,min=1,max=10000"`
	DueDate     *time.Time `json:"dueDate"`
	TotalMarks  *float64   `json:"totalMarks" binding:"omitempty,gt=0"`
	FileLink    *string    `json:"fileLink" binding:"omitempty,max=1024"`
}

func (r UpdateAssignmentRequest) patch() domain.AssignmentPatch {
	return domain.AssignmentPatch{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		TotalMarks:  r.TotalMarks,
		FileLink:    r.FileLink,
	}
}

// --- Handler Methods ---

// CreateAssignment handles POST /assignments
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req CreateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	classID, err := primitive.ObjectIDFromHex(req.ClassID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid classId format")
		return
	}

	assignment, err := h.assignmentService.Create(c.Request.Context(), actor, service.NewAssignment{
		ClassID:     classID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		TotalMarks:  req.TotalMarks,
		FileLink:    req.FileLink,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// GetAssignment handles GET /assignments/:id
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	assignment, err := h.assignmentService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// UpdateAssignment handles PUT /assignments/:id
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.assignmentService.Update(c.Request.Context(), actor, id, req.patch())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// DeleteAssignment handles DELETE /assignments/:id
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.assignmentService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Assignment deleted"})
}

// TrainerAssignments handles GET /assignments/trainer
func (h *AssignmentHandler) TrainerAssignments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	list, err := h.assignmentService.ListByTrainer(c.Request.Context(), actor, actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ClassAssignments handles GET /assignments/class/:classId
func (h *AssignmentHandler) ClassAssignments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := objectIDParam(c, "classId")
	if !ok {
		return
	}
	list, err := h.assignmentService.ListByClass(c.Request.Context(), actor, classID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Submissions handles GET /assignments/:id/submissions
func (h *AssignmentHandler) Submissions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	subs, err := h.assignmentService.ListSubmissions(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}
