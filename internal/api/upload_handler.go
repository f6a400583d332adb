package api

import (
	"net/http"

	"alcyxob/classroom-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadHandler hands out presigned URLs for direct-to-storage transfers.
type UploadHandler struct {
	uploadService service.UploadService
}

func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

type AssignmentUploadRequest struct {
	ClassID     string `json:"classId" binding:"required,len=24,hexadecimal"`
	FileName    string `json:"fileName" binding:"required,max=255"`
	ContentType string `json:"contentType" binding:"required,max=255"`
}

type SubmissionUploadRequest struct {
	AssignmentID string `json:"assignmentId" binding:"required,len=24,hexadecimal"`
	FileName     string `json:"fileName" binding:"required,max=255"`
	ContentType  string `json:"contentType" binding:"required,max=255"`
}

// AssignmentUpload handles POST /uploads/assignments
func (h *UploadHandler) AssignmentUpload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req AssignmentUploadRequest
	if !bindJSON(c, &req) {
		return
	}
	classID, err := primitive.ObjectIDFromHex(req.ClassID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid classId format")
		return
	}
	ticket, err := h.uploadService.RequestAssignmentUpload(c.Request.Context(), actor, classID, req.FileName, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// SubmissionUpload handles POST /uploads/submissions
func (h *UploadHandler) SubmissionUpload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req SubmissionUploadRequest
	if !bindJSON(c, &req) {
		return
	}
	assignmentID, err := primitive.ObjectIDFromHex(req.AssignmentID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid assignmentId format")
		return
	}
	ticket, err := h.uploadService.RequestSubmissionUpload(c.Request.Context(), actor, assignmentID, req.FileName, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// Download handles GET /uploads/assignments/:id/download?studentId=
func (h *UploadHandler) Download(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var studentID *primitive.ObjectID
	if raw := c.Query("studentId"); raw != "" {
		sid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid studentId format")
			return
		}
		studentID = &sid
	}
	url, err := h.uploadService.DownloadURL(c.Request.Context(), actor, id, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
