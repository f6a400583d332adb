package api

import (
	"net/http"

	"alcyxob/classroom-app/internal/service"

	"github.com/gin-gonic/gin"
)

// ClassHandler serves class creation and membership.
type ClassHandler struct {
	classService service.ClassService
}

func NewClassHandler(classService service.ClassService) *ClassHandler {
	return &ClassHandler{classService: classService}
}

type CreateClassRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Description string `json:"description" binding:"max=2000"`
}

// UpdateClassRequest is a merge patch: absent fields stay unchanged.
type UpdateClassRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=120"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

type EnrollRequest struct {
	JoinCode string `json:"joinCode" binding:"required"`
}

// CreateClass handles POST /classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req CreateClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.classService.CreateClass(c.Request.Context(), actor, req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, class)
}

// MyClasses handles GET /classes/mine
func (h *ClassHandler) MyClasses(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classes, err := h.classService.MyClasses(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, classes)
}

// Enroll handles POST /classes/enroll
func (h *ClassHandler) Enroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.classService.Enroll(c.Request.Context(), actor, req.JoinCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Enrolled", "classId": class.ID.Hex(), "name": class.Name})
}

// GetClass handles GET /classes/:classId
func (h *ClassHandler) GetClass(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := objectIDParam(c, "classId")
	if !ok {
		return
	}
	class, err := h.classService.GetClass(c.Request.Context(), actor, classID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, class)
}

// UpdateClass handles PUT /classes/:classId
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := objectIDParam(c, "classId")
	if !ok {
		return
	}
	var req UpdateClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.classService.UpdateClass(c.Request.Context(), actor, classID, req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, class)
}

// DeleteClass handles DELETE /classes/:classId
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := objectIDParam(c, "classId")
	if !ok {
		return
	}
	if err := h.classService.DeleteClass(c.Request.Context(), actor, classID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Class deleted"})
}

// Classmates handles GET /classes/:classId/classmates
func (h *ClassHandler) Classmates(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classID, ok := objectIDParam(c, "classId")
	if !ok {
		return
	}
	users, err := h.classService.Classmates(c.Request.Context(), actor, classID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUsersToResponse(users))
}

// Unenroll handles DELETE /classes/:classId/students/:studentId
func (h *ClassHandler) Unenroll(c *gin.Context) {
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
	if err := h.classService.Unenroll(c.Request.Context(), actor, classID, studentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student removed from class"})
}
