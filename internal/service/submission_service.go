package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/lock"
	"alcyxob/classroom-app/internal/repository"
	"alcyxob/classroom-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmissionService drives the per (assignment, student) submission state machine:
// NotSubmitted -> Submitted -> Evaluated, with unsubmit returning to NotSubmitted.
type SubmissionService interface {
	Submit(ctx context.Context, actor Actor, assignmentID primitive.ObjectID, fileLink string) (*domain.Submission, error)
	Unsubmit(ctx context.Context, actor Actor, assignmentID primitive.ObjectID) error
	Evaluate(ctx context.Context, actor Actor, assignmentID, studentID primitive.ObjectID, eval domain.Evaluation) (*domain.Submission, error)
}

// SubmissionOptions tunes ledger behaviour.
type SubmissionOptions struct {
	// LockEvaluated rejects unsubmit once a submission has been evaluated.
	LockEvaluated bool
}

type submissionService struct {
	assignmentRepo repository.AssignmentRepository
	guard          *Guard
	locker         lock.Locker
	opts           SubmissionOptions
	now            func() time.Time
}

// NewSubmissionService creates the ledger. Mutations on one assignment are
// serialized through locker.
func NewSubmissionService(
	assignmentRepo repository.AssignmentRepository,
	guard *Guard,
	locker lock.Locker,
	opts SubmissionOptions,
) SubmissionService {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &submissionService{
		assignmentRepo: assignmentRepo,
		guard:          guard,
		locker:         locker,
		opts:           opts,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func assignmentLockKey(id primitive.ObjectID) string {
	return "assignment:" + id.Hex()
}

// withAssignmentLock runs fn while holding the assignment's lock.
func withAssignmentLock(ctx context.Context, locker lock.Locker, id primitive.ObjectID, fn func() error) error {
	release, err := locker.Acquire(ctx, assignmentLockKey(id))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: assignment is busy, retry later", ErrConflict)
		}
		return fmt.Errorf("%w: acquire assignment lock: %v", ErrPersistence, err)
	}
	defer release()
	return fn()
}

func (s *submissionService) load(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	a, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrAssignmentNotFound)
	}
	return a, nil
}

func (s *submissionService) Submit(ctx context.Context, actor Actor, assignmentID primitive.ObjectID, fileLink string) (*domain.Submission, error) {
	fileLink = strings.TrimSpace(fileLink)
	if fileLink == "" {
		return nil, validationError("fileLink is required")
	}
	if storage.IsManagedKey(fileLink) {
		// Uploaded files must sit under this student's prefix for this assignment.
		prefix := fmt.Sprintf("submissions/%s/%s/", assignmentID.Hex(), actor.ID.Hex())
		if err := storage.ValidateKey(fileLink); err != nil || !strings.HasPrefix(fileLink, prefix) {
			return nil, validationError("fileLink does not belong to this submission")
		}
	}

	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, actor, ActionSubmit, Resource{ClassID: a.ClassID, StudentID: actor.ID}); err != nil {
		return nil, err
	}

	sub := domain.Submission{
		StudentID:      actor.ID,
		FileLink:       fileLink,
		SubmissionDate: s.now(),
	}
	err = withAssignmentLock(ctx, s.locker, a.ID, func() error {
		return s.assignmentRepo.AppendSubmission(ctx, a.ID, sub)
	})
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrDuplicateSubmission
	case err != nil:
		return nil, translate(err, ErrAssignmentNotFound)
	}

	log.Printf("INFO: Student %s submitted assignment %s", actor.ID.Hex(), a.ID.Hex())
	return &sub, nil
}

func (s *submissionService) Unsubmit(ctx context.Context, actor Actor, assignmentID primitive.ObjectID) error {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return err
	}
	if err := s.guard.Authorize(ctx, actor, ActionUnsubmit, Resource{ClassID: a.ClassID, StudentID: actor.ID}); err != nil {
		return err
	}

	err = withAssignmentLock(ctx, s.locker, a.ID, func() error {
		if s.opts.LockEvaluated {
			// Re-read under the lock: an evaluation may have landed since load.
			current, err := s.assignmentRepo.GetByID(ctx, a.ID)
			if err != nil {
				return err
			}
			if current.StateFor(actor.ID) == domain.StateEvaluated {
				return ErrSubmissionEvaluated
			}
		}
		return s.assignmentRepo.RemoveSubmission(ctx, a.ID, actor.ID)
	})
	if err != nil {
		if errors.Is(err, ErrSubmissionEvaluated) {
			return err
		}
		return translate(err, ErrSubmissionNotFound)
	}

	log.Printf("INFO: Student %s unsubmitted assignment %s", actor.ID.Hex(), a.ID.Hex())
	return nil
}

func (s *submissionService) Evaluate(ctx context.Context, actor Actor, assignmentID, studentID primitive.ObjectID, eval domain.Evaluation) (*domain.Submission, error) {
	if studentID.IsZero() {
		return nil, validationError("studentId is required")
	}
	if !finite(eval.Marks) {
		return nil, validationError("marks must be a finite number")
	}
	if eval.Marks < 0 {
		return nil, validationError("marks cannot be negative")
	}

	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, actor, ActionEvaluateSubmission, assignmentResource(a)); err != nil {
		return nil, err
	}
	eval.Rating = sanitizePtr(eval.Rating)
	eval.Remark = sanitizePtr(eval.Remark)

	var updated *domain.Submission
	err = withAssignmentLock(ctx, s.locker, a.ID, func() error {
		// totalMarks may have been lowered since load.
		current, err := s.assignmentRepo.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if eval.Marks > current.TotalMarks {
			return validationError("marks %.2f exceed totalMarks %.2f", eval.Marks, current.TotalMarks)
		}
		if err := s.assignmentRepo.SetEvaluation(ctx, a.ID, studentID, eval); err != nil {
			return err
		}
		current, err = s.assignmentRepo.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		sub, ok := current.FindSubmission(studentID)
		if !ok {
			return repository.ErrNotFound
		}
		updated = sub
		return nil
	})
	if err != nil {
		return nil, translate(err, ErrSubmissionNotFound)
	}

	log.Printf("INFO: Trainer %s evaluated student %s on assignment %s", actor.ID.Hex(), studentID.Hex(), a.ID.Hex())
	return updated, nil
}
