package service

import (
	"context"
	"fmt"
	"log"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserUpdate is an admin edit of an account. The role is fixed at creation.
type UserUpdate struct {
	Name  *string
	Email *string
}

// AdminService manages accounts on behalf of administrators.
type AdminService interface {
	ListUsers(ctx context.Context, actor Actor, role domain.Role) ([]domain.User, error)
	// UnenrolledStudents lists students that sit on no class roster.
	UnenrolledStudents(ctx context.Context, actor Actor) ([]domain.User, error)
	GetUser(ctx context.Context, actor Actor, id primitive.ObjectID) (*domain.User, error)
	UpdateUser(ctx context.Context, actor Actor, id primitive.ObjectID, update UserUpdate) (*domain.User, error)
	// DeleteUser removes an account and everything that hangs off it.
	DeleteUser(ctx context.Context, actor Actor, id primitive.ObjectID) error
}

type adminService struct {
	userRepo       repository.UserRepository
	classRepo      repository.ClassRepository
	assignmentRepo repository.AssignmentRepository
	guard          *Guard
}

func NewAdminService(
	userRepo repository.UserRepository,
	classRepo repository.ClassRepository,
	assignmentRepo repository.AssignmentRepository,
	guard *Guard,
) AdminService {
	return &adminService{
		userRepo:       userRepo,
		classRepo:      classRepo,
		assignmentRepo: assignmentRepo,
		guard:          guard,
	}
}

func (s *adminService) ListUsers(ctx context.Context, actor Actor, role domain.Role) ([]domain.User, error) {
	if err := s.guard.Authorize(ctx, actor, ActionListUsers, Resource{TargetRole: role}); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, validationError("unknown role %q", role)
	}
	users, err := s.userRepo.ListByRole(ctx, role)
	if err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *adminService) UnenrolledStudents(ctx context.Context, actor Actor) ([]domain.User, error) {
	students, err := s.ListUsers(ctx, actor, domain.RoleStudent)
	if err != nil {
		return nil, err
	}
	unenrolled := []domain.User{}
	for _, student := range students {
		classes, err := s.classRepo.GetByStudentID(ctx, student.ID)
		if err != nil {
			return nil, translate(err, ErrClassNotFound)
		}
		if len(classes) == 0 {
			unenrolled = append(unenrolled, student)
		}
	}
	return unenrolled, nil
}

// GetUser returns the account to itself or to an admin.
func (s *adminService) GetUser(ctx context.Context, actor Actor, id primitive.ObjectID) (*domain.User, error) {
	if actor.ID != id && actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot view another account", ErrForbidden)
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *adminService) UpdateUser(ctx context.Context, actor Actor, id primitive.ObjectID, update UserUpdate) (*domain.User, error) {
	target, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionUpdateUser, Resource{TargetRole: target.Role}); err != nil {
		return nil, err
	}
	if err := applyIdentity(target, update.Name, update.Email); err != nil {
		return nil, err
	}
	if err := saveUser(ctx, s.userRepo, target); err != nil {
		return nil, err
	}
	log.Printf("INFO: Admin %s updated %s %s", actor.ID.Hex(), target.Role, target.ID.Hex())
	target.PasswordHash = ""
	return target, nil
}

func (s *adminService) DeleteUser(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	target, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return translate(err, ErrUserNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionDeleteUser, Resource{TargetRole: target.Role}); err != nil {
		return err
	}

	switch target.Role {
	case domain.RoleTrainer:
		err = s.cascadeTrainer(ctx, target.ID)
	case domain.RoleStudent:
		err = s.cascadeStudent(ctx, target.ID)
	}
	if err != nil {
		return translate(err, ErrUserNotFound)
	}

	if err := s.userRepo.Delete(ctx, target.ID); err != nil {
		return translate(err, ErrUserNotFound)
	}
	log.Printf("INFO: Admin %s deleted %s %s", actor.ID.Hex(), target.Role, target.ID.Hex())
	return nil
}

// cascadeTrainer drops the trainer's classes and assignments, then unlinks
// the dropped classes from every student.
func (s *adminService) cascadeTrainer(ctx context.Context, trainerID primitive.ObjectID) error {
	n, err := s.assignmentRepo.DeleteByTrainerID(ctx, trainerID)
	if err != nil {
		return err
	}
	classIDs, err := s.classRepo.DeleteByTeacherID(ctx, trainerID)
	if err != nil {
		return err
	}
	if len(classIDs) > 0 {
		if err := s.userRepo.RemoveClassRefsFromAll(ctx, classIDs); err != nil {
			return err
		}
	}
	log.Printf("INFO: Removed %d assignments and %d classes of trainer %s", n, len(classIDs), trainerID.Hex())
	return nil
}

// cascadeStudent removes the student from every roster and submission list.
func (s *adminService) cascadeStudent(ctx context.Context, studentID primitive.ObjectID) error {
	if err := s.classRepo.RemoveStudentFromAll(ctx, studentID); err != nil {
		return err
	}
	return s.assignmentRepo.RemoveStudentSubmissions(ctx, studentID)
}
