package api

import (
	"net/http"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves account management for administrators.
type AdminHandler struct {
	authService       service.AuthService
	adminService      service.AdminService
	assignmentService service.AssignmentService
}

func NewAdminHandler(authService service.AuthService, adminService service.AdminService, assignmentService service.AssignmentService) *AdminHandler {
	return &AdminHandler{authService: authService, adminService: adminService, assignmentService: assignmentService}
}

type CreateUserRequest struct {
	Name     string      `json:"name" binding:"required,max=120"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     domain.Role `json:"role" binding:"required,oneof=student trainer admin"`
}

// UpdateUserRequest edits an account's name or email. Roles cannot change.
type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=120"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// ListUsers handles GET /admin/users?role=trainer
func (h *AdminHandler) ListUsers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	users, err := h.adminService.ListUsers(c.Request.Context(), actor, domain.Role(c.Query("role")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUsersToResponse(users))
}

// CreateUser handles POST /admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.authService.CreateUser(c.Request.Context(), actor, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapUserToResponse(user))
}

// UnenrolledStudents handles GET /admin/students/unenrolled
func (h *AdminHandler) UnenrolledStudents(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	users, err := h.adminService.UnenrolledStudents(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUsersToResponse(users))
}

// GetUser handles GET /admin/users/:userId
func (h *AdminHandler) GetUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	userID, ok := objectIDParam(c, "userId")
	if !ok {
		return
	}
	user, err := h.adminService.GetUser(c.Request.Context(), actor, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// UpdateUser handles PUT /admin/users/:userId
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	userID, ok := objectIDParam(c, "userId")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.adminService.UpdateUser(c.Request.Context(), actor, userID, service.UserUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// DeleteUser handles DELETE /admin/users/:userId
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	userID, ok := objectIDParam(c, "userId")
	if !ok {
		return
	}
	if err := h.adminService.DeleteUser(c.Request.Context(), actor, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// TrainerAssignments handles GET /admin/trainers/:trainerId/assignments
func (h *AdminHandler) TrainerAssignments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	trainerID, ok := objectIDParam(c, "trainerId")
	if !ok {
		return
	}
	list, err := h.assignmentService.ListByTrainer(c.Request.Context(), actor, trainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
