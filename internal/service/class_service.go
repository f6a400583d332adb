package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/repository"
	"alcyxob/classroom-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	joinCodeLength   = 7
	joinCodeAttempts = 5
)

// ClassService manages classes and the student <-> class relation.
// It keeps Class.StudentIDs and User.ClassRefs in step.
type ClassService interface {
	MembershipChecker
	CreateClass(ctx context.Context, actor Actor, name, description string) (*domain.Class, error)
	// UpdateClass renames or redescribes a class; nil fields are left alone.
	UpdateClass(ctx context.Context, actor Actor, classID primitive.ObjectID, name, description *string) (*domain.Class, error)
	// DeleteClass removes the class, its assignments and every user's reference to it.
	DeleteClass(ctx context.Context, actor Actor, classID primitive.ObjectID) error
	Enroll(ctx context.Context, actor Actor, joinCode string) (*domain.Class, error)
	Unenroll(ctx context.Context, actor Actor, classID, studentID primitive.ObjectID) error
	IsTeacherOf(ctx context.Context, userID, classID primitive.ObjectID) (bool, error)
	GetClass(ctx context.Context, actor Actor, classID primitive.ObjectID) (*domain.Class, error)
	Classmates(ctx context.Context, actor Actor, classID primitive.ObjectID) ([]domain.User, error)
	ClassesOfStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Class, error)
	ClassesOfTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Class, error)
	// MyClasses lists the classes the actor teaches or is enrolled in.
	MyClasses(ctx context.Context, actor Actor) ([]domain.Class, error)
	Guard() *Guard
}

type classService struct {
	userRepo       repository.UserRepository
	classRepo      repository.ClassRepository
	assignmentRepo repository.AssignmentRepository
	files          storage.FileStorage // Optional
	guard          *Guard
}

// NewClassService creates the class service together with the guard that
// consults it for membership. files may be nil.
func NewClassService(
	userRepo repository.UserRepository,
	classRepo repository.ClassRepository,
	assignmentRepo repository.AssignmentRepository,
	files storage.FileStorage,
) ClassService {
	s := &classService{
		userRepo:       userRepo,
		classRepo:      classRepo,
		assignmentRepo: assignmentRepo,
		files:          files,
	}
	s.guard = NewGuard(s)
	return s
}

func (s *classService) Guard() *Guard { return s.guard }

func newJoinCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:joinCodeLength])
}

func (s *classService) CreateClass(ctx context.Context, actor Actor, name, description string) (*domain.Class, error) {
	if actor.Role != domain.RoleTrainer {
		return nil, fmt.Errorf("%w: only trainers can create classes", ErrForbidden)
	}
	name = sanitize(name)
	if name == "" {
		return nil, validationError("class name is required")
	}

	class := &domain.Class{
		Name:        name,
		Description: sanitize(description),
		TeacherID:   actor.ID,
		StudentIDs:  []primitive.ObjectID{},
	}

	var err error
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		class.JoinCode = newJoinCode()
		_, err = s.classRepo.Create(ctx, class)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		log.Printf("WARN: join code collision on attempt %d, retrying", attempt+1)
	}
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}

	if err := s.userRepo.AddClassRef(ctx, actor.ID, class.ID); err != nil {
		// The class is still reachable through teacherId, which is authoritative.
		log.Printf("WARN: created class %s but could not link it to trainer %s: %v", class.ID.Hex(), actor.ID.Hex(), err)
	}
	log.Printf("INFO: Trainer %s created class %s", actor.ID.Hex(), class.ID.Hex())
	return class, nil
}

func (s *classService) UpdateClass(ctx context.Context, actor Actor, classID primitive.ObjectID, name, description *string) (*domain.Class, error) {
	class, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionUpdateClass, Resource{TrainerID: class.TeacherID, ClassID: class.ID}); err != nil {
		return nil, err
	}
	if name != nil {
		class.Name = sanitize(*name)
		if class.Name == "" {
			return nil, validationError("class name cannot be empty")
		}
	}
	if description != nil {
		class.Description = sanitize(*description)
	}
	if err := s.classRepo.Update(ctx, class); err != nil {
		return nil, translate(err, ErrClassNotFound)
	}
	return class, nil
}

func (s *classService) DeleteClass(ctx context.Context, actor Actor, classID primitive.ObjectID) error {
	class, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return translate(err, ErrClassNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionDeleteClass, Resource{TrainerID: class.TeacherID, ClassID: class.ID}); err != nil {
		return err
	}

	// Assignments go first: left behind they would point at a missing class.
	removed, err := s.assignmentRepo.DeleteByClassID(ctx, class.ID)
	if err != nil {
		return translate(err, ErrAssignmentNotFound)
	}
	if err := s.classRepo.Delete(ctx, class.ID); err != nil {
		return translate(err, ErrClassNotFound)
	}
	if err := s.userRepo.RemoveClassRefsFromAll(ctx, []primitive.ObjectID{class.ID}); err != nil {
		// Rosters are authoritative and the class is gone; stale refs are harmless.
		log.Printf("WARN: deleted class %s but could not unlink it from users: %v", class.ID.Hex(), err)
	}
	for i := range removed {
		deleteAssignmentObjects(ctx, s.files, &removed[i])
	}
	log.Printf("INFO: Class %s deleted by %s (%s) with %d assignments", class.ID.Hex(), actor.ID.Hex(), actor.Role, len(removed))
	return nil
}

func (s *classService) Enroll(ctx context.Context, actor Actor, joinCode string) (*domain.Class, error) {
	if actor.Role != domain.RoleStudent {
		return nil, fmt.Errorf("%w: only students can enroll", ErrForbidden)
	}
	joinCode = strings.ToUpper(strings.TrimSpace(joinCode))
	if joinCode == "" {
		return nil, validationError("join code is required")
	}

	class, err := s.classRepo.GetByJoinCode(ctx, joinCode)
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}

	if err := s.classRepo.AddStudent(ctx, class.ID, actor.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, translate(err, ErrClassNotFound)
	}

	if err := s.userRepo.AddClassRef(ctx, actor.ID, class.ID); err != nil {
		// Compensate so the roster never lists a student whose user record disagrees.
		if cerr := s.classRepo.RemoveStudent(ctx, class.ID, actor.ID); cerr != nil {
			log.Printf("ERROR: enroll compensation failed for student %s in class %s: %v", actor.ID.Hex(), class.ID.Hex(), cerr)
		}
		return nil, fmt.Errorf("%w: link class to student: %v", ErrPersistence, err)
	}

	class.StudentIDs = append(class.StudentIDs, actor.ID)
	log.Printf("INFO: Student %s enrolled in class %s", actor.ID.Hex(), class.ID.Hex())
	return class, nil
}

func (s *classService) Unenroll(ctx context.Context, actor Actor, classID, studentID primitive.ObjectID) error {
	class, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return translate(err, ErrClassNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionUnenroll, Resource{
		TrainerID:  class.TeacherID,
		ClassID:    class.ID,
		StudentID:  studentID,
		TargetRole: domain.RoleStudent,
	}); err != nil {
		// A student who already left fails the membership check; report that as absence.
		if actor.Role == domain.RoleStudent && actor.ID == studentID && !class.HasStudent(studentID) {
			return ErrNotEnrolled
		}
		return err
	}

	if err := s.classRepo.RemoveStudent(ctx, classID, studentID); err != nil {
		return translate(err, ErrNotEnrolled)
	}
	if err := s.userRepo.RemoveClassRef(ctx, studentID, classID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		// Roster is authoritative; ClassesOfStudent already reflects the removal.
		log.Printf("WARN: unenrolled student %s from class %s but could not unlink class ref: %v", studentID.Hex(), classID.Hex(), err)
	}
	log.Printf("INFO: Student %s removed from class %s by %s", studentID.Hex(), classID.Hex(), actor.ID.Hex())
	return nil
}

func (s *classService) IsTeacherOf(ctx context.Context, userID, classID primitive.ObjectID) (bool, error) {
	class, err := s.classRepo.GetByID(ctx, classID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return class.TeacherID == userID, nil
}

func (s *classService) IsMemberOf(ctx context.Context, userID, classID primitive.ObjectID) (bool, error) {
	class, err := s.classRepo.GetByID(ctx, classID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return class.HasStudent(userID), nil
}

func (s *classService) GetClass(ctx context.Context, actor Actor, classID primitive.ObjectID) (*domain.Class, error) {
	class, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionViewClass, Resource{TrainerID: class.TeacherID, ClassID: class.ID}); err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleStudent {
		// Students see the class but not the join code.
		class.JoinCode = ""
	}
	return class, nil
}

func (s *classService) Classmates(ctx context.Context, actor Actor, classID primitive.ObjectID) ([]domain.User, error) {
	class, err := s.GetClass(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(class.StudentIDs))
	for _, id := range class.StudentIDs {
		u, err := s.userRepo.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("WARN: class %s lists unknown student %s", classID.Hex(), id.Hex())
			continue
		}
		if err != nil {
			return nil, translate(err, ErrUserNotFound)
		}
		u.PasswordHash = ""
		users = append(users, *u)
	}
	return users, nil
}

func (s *classService) ClassesOfStudent(ctx context.Context, studentID primitive.ObjectID) ([]domain.Class, error) {
	classes, err := s.classRepo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}
	return classes, nil
}

func (s *classService) ClassesOfTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Class, error) {
	classes, err := s.classRepo.GetByTeacherID(ctx, trainerID)
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}
	return classes, nil
}

func (s *classService) MyClasses(ctx context.Context, actor Actor) ([]domain.Class, error) {
	switch actor.Role {
	case domain.RoleTrainer:
		return s.ClassesOfTrainer(ctx, actor.ID)
	case domain.RoleStudent:
		classes, err := s.ClassesOfStudent(ctx, actor.ID)
		for i := range classes {
			classes[i].JoinCode = ""
		}
		return classes, err
	default:
		return []domain.Class{}, nil
	}
}
