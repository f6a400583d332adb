package service

import (
	"context"
	"log"
	"time"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/lock"
	"alcyxob/classroom-app/internal/repository"
	"alcyxob/classroom-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewAssignment carries the fields a trainer supplies when issuing an assignment.
type NewAssignment struct {
	ClassID     primitive.ObjectID
	Title       string
	Description string
	DueDate     time.Time
	TotalMarks  float64
	FileLink    string
}

// AssignmentService owns assignment CRUD and the ownership rules around it.
type AssignmentService interface {
	Create(ctx context.Context, actor Actor, input NewAssignment) (*domain.Assignment, error)
	GetByID(ctx context.Context, actor Actor, id primitive.ObjectID) (*domain.Assignment, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, patch domain.AssignmentPatch) (*domain.Assignment, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	ListByTrainer(ctx context.Context, actor Actor, trainerID primitive.ObjectID) ([]domain.Assignment, error)
	ListByClass(ctx context.Context, actor Actor, classID primitive.ObjectID) ([]domain.Assignment, error)
	ListSubmissions(ctx context.Context, actor Actor, id primitive.ObjectID) ([]domain.Submission, error)
}

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
	classRepo      repository.ClassRepository
	guard          *Guard
	locker         lock.Locker
	files          storage.FileStorage // Optional
}

// NewAssignmentService creates a new instance of assignmentService.
// locker must be the one the submission ledger uses, so that metadata
// writes and evaluations on one assignment are serialized.
// files may be nil when object storage is not configured.
func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	classRepo repository.ClassRepository,
	guard *Guard,
	locker lock.Locker,
	files storage.FileStorage,
) AssignmentService {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &assignmentService{
		assignmentRepo: assignmentRepo,
		classRepo:      classRepo,
		guard:          guard,
		locker:         locker,
		files:          files,
	}
}

func validateFileLink(link string) error {
	if link != "" && storage.IsManagedKey(link) {
		if err := storage.ValidateKey(link); err != nil {
			return validationError("%v", err)
		}
	}
	return nil
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, input NewAssignment) (*domain.Assignment, error) {
	// 1. Validate input before touching anything
	title := sanitize(input.Title)
	description := sanitize(input.Description)
	switch {
	case input.ClassID.IsZero():
		return nil, validationError("classId is required")
	case title == "":
		return nil, validationError("title is required")
	case description == "":
		return nil, validationError("description is required")
	case input.DueDate.IsZero():
		return nil, validationError("dueDate is required")
	case !finite(input.TotalMarks) || input.TotalMarks <= 0:
		return nil, validationError("totalMarks must be greater than 0")
	}
	if err := validateFileLink(input.FileLink); err != nil {
		return nil, err
	}

	// 2. Resolve the class and check the actor teaches it
	class, err := s.classRepo.GetByID(ctx, input.ClassID)
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionCreateAssignment, Resource{TrainerID: class.TeacherID, ClassID: class.ID}); err != nil {
		return nil, err
	}

	// 3. Persist, binding the owner to the class teacher
	assignment := &domain.Assignment{
		Title:       title,
		Description: description,
		AssignDate:  time.Now().UTC(),
		DueDate:     input.DueDate.UTC(),
		TotalMarks:  input.TotalMarks,
		FileLink:    input.FileLink,
		TrainerID:   class.TeacherID,
		ClassID:     class.ID,
		Submissions: []domain.Submission{},
	}
	if _, err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}

	if err := s.classRepo.AddAssignment(ctx, class.ID, assignment.ID); err != nil {
		log.Printf("WARN: assignment %s created but not linked to class %s: %v", assignment.ID.Hex(), class.ID.Hex(), err)
	}
	log.Printf("INFO: Trainer %s created assignment %s in class %s", actor.ID.Hex(), assignment.ID.Hex(), class.ID.Hex())
	return assignment, nil
}

func (s *assignmentService) load(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	a, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}
	return a, nil
}

func assignmentResource(a *domain.Assignment) Resource {
	return Resource{TrainerID: a.TrainerID, ClassID: a.ClassID}
}

// GetByID returns the assignment with its submissions, to the owner or an admin.
func (s *assignmentService) GetByID(ctx context.Context, actor Actor, id primitive.ObjectID) (*domain.Assignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, actor, ActionViewAssignment, assignmentResource(a)); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *assignmentService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, patch domain.AssignmentPatch) (*domain.Assignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, actor, ActionUpdateAssignment, assignmentResource(a)); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return a, nil
	}

	patch.Title = sanitizePtr(patch.Title)
	patch.Description = sanitizePtr(patch.Description)
	switch {
	case patch.Title != nil && *patch.Title == "":
		return nil, validationError("title cannot be empty")
	case patch.Description != nil && *patch.Description == "":
		return nil, validationError("description cannot be empty")
	case patch.DueDate != nil && patch.DueDate.IsZero():
		return nil, validationError("dueDate cannot be empty")
	case patch.TotalMarks != nil && (!finite(*patch.TotalMarks) || *patch.TotalMarks <= 0):
		return nil, validationError("totalMarks must be greater than 0")
	}
	if patch.FileLink != nil {
		if err := validateFileLink(*patch.FileLink); err != nil {
			return nil, err
		}
	}
	if patch.DueDate != nil {
		due := patch.DueDate.UTC()
		patch.DueDate = &due
	}

	// The marks check and the write share the evaluation lock, so no
	// evaluation can land between them.
	err = withAssignmentLock(ctx, s.locker, a.ID, func() error {
		current, err := s.assignmentRepo.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if patch.TotalMarks != nil {
			for _, sub := range current.Submissions {
				if sub.Marks != nil && *sub.Marks > *patch.TotalMarks {
					return validationError("totalMarks %.2f is below marks already awarded (%.2f)", *patch.TotalMarks, *sub.Marks)
				}
			}
		}
		patch.Apply(current)
		if err := s.assignmentRepo.Update(ctx, current); err != nil {
			return err
		}
		a = current
		return nil
	})
	if err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}
	return a, nil
}

func (s *assignmentService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.Authorize(ctx, actor, ActionDeleteAssignment, assignmentResource(a)); err != nil {
		return err
	}

	if err := s.assignmentRepo.Delete(ctx, a.ID); err != nil {
		return translate(err, ErrAssignmentNotFound)
	}
	if err := s.classRepo.RemoveAssignment(ctx, a.ClassID, a.ID); err != nil {
		log.Printf("WARN: assignment %s deleted but class %s still references it: %v", a.ID.Hex(), a.ClassID.Hex(), err)
	}
	s.deleteObjects(ctx, a)
	log.Printf("INFO: Assignment %s deleted by %s (%s)", a.ID.Hex(), actor.ID.Hex(), actor.Role)
	return nil
}

// deleteObjects removes stored files owned by the assignment. Failures only log.
func (s *assignmentService) deleteObjects(ctx context.Context, a *domain.Assignment) {
	deleteAssignmentObjects(ctx, s.files, a)
}

func deleteAssignmentObjects(ctx context.Context, files storage.FileStorage, a *domain.Assignment) {
	if files == nil {
		return
	}
	keys := make([]string, 0, len(a.Submissions)+1)
	if storage.IsManagedKey(a.FileLink) {
		keys = append(keys, a.FileLink)
	}
	for _, sub := range a.Submissions {
		if storage.IsManagedKey(sub.FileLink) {
			keys = append(keys, sub.FileLink)
		}
	}
	for _, key := range keys {
		if err := files.DeleteObject(ctx, key); err != nil {
			log.Printf("WARN: could not delete object %q of assignment %s: %v", key, a.ID.Hex(), err)
		}
	}
}

// ListByTrainer lists a trainer's assignments. Trainers may only list their own.
func (s *assignmentService) ListByTrainer(ctx context.Context, actor Actor, trainerID primitive.ObjectID) ([]domain.Assignment, error) {
	if err := s.guard.Authorize(ctx, actor, ActionViewAssignment, Resource{TrainerID: trainerID}); err != nil {
		return nil, err
	}
	list, err := s.assignmentRepo.GetByTrainerID(ctx, trainerID)
	if err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}
	return list, nil
}

func (s *assignmentService) ListByClass(ctx context.Context, actor Actor, classID primitive.ObjectID) ([]domain.Assignment, error) {
	class, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return nil, translate(err, ErrClassNotFound)
	}
	if err := s.guard.Authorize(ctx, actor, ActionListClassAssignments, Resource{TrainerID: class.TeacherID, ClassID: class.ID}); err != nil {
		return nil, err
	}
	list, err := s.assignmentRepo.GetByClassID(ctx, classID)
	if err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}
	return list, nil
}

func (s *assignmentService) ListSubmissions(ctx context.Context, actor Actor, id primitive.ObjectID) ([]domain.Submission, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, actor, ActionViewSubmissions, assignmentResource(a)); err != nil {
		return nil, err
	}
	if a.Submissions == nil {
		return []domain.Submission{}, nil
	}
	return a.Submissions, nil
}
