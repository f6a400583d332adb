package memory

import (
	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/repository"
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type assignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates an assignment repository over db.
func NewAssignmentRepository(db *DB) repository.AssignmentRepository {
	return &assignmentRepository{db: db}
}

func cloneAssignment(a *domain.Assignment) *domain.Assignment {
	out := *a
	out.Submissions = make([]domain.Submission, len(a.Submissions))
	copy(out.Submissions, a.Submissions)
	return &out
}

func (r *assignmentRepository) Create(_ context.Context, assignment *domain.Assignment) (primitive.ObjectID, error) {
	if assignment.TrainerID == primitive.NilObjectID || assignment.ClassID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("assignment requires trainerId and classId")
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	assignment.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if assignment.AssignDate.IsZero() {
		assignment.AssignDate = now
	}
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	if assignment.Submissions == nil {
		assignment.Submissions = []domain.Submission{}
	}
	r.db.assignments[assignment.ID] = cloneAssignment(assignment)
	return assignment.ID, nil
}

func (r *assignmentRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if a, ok := r.db.assignments[id]; ok {
		return cloneAssignment(a), nil
	}
	return nil, repository.ErrNotFound
}

func (r *assignmentRepository) GetByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.Assignment, error) {
	return r.filter(func(a *domain.Assignment) bool { return a.TrainerID == trainerID }), nil
}

func (r *assignmentRepository) GetByClassID(_ context.Context, classID primitive.ObjectID) ([]domain.Assignment, error) {
	return r.filter(func(a *domain.Assignment) bool { return a.ClassID == classID }), nil
}

func (r *assignmentRepository) GetByClassIDs(_ context.Context, classIDs []primitive.ObjectID) ([]domain.Assignment, error) {
	return r.filter(func(a *domain.Assignment) bool { return containsID(classIDs, a.ClassID) }), nil
}

func (r *assignmentRepository) filter(keep func(*domain.Assignment) bool) []domain.Assignment {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	assignments := []domain.Assignment{}
	for _, a := range r.db.assignments {
		if keep(a) {
			assignments = append(assignments, *cloneAssignment(a))
		}
	}
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].DueDate.Equal(assignments[j].DueDate) {
			return assignments[i].ID.Hex() < assignments[j].ID.Hex()
		}
		return assignments[i].DueDate.Before(assignments[j].DueDate)
	})
	return assignments
}

func (r *assignmentRepository) Update(_ context.Context, assignment *domain.Assignment) error {
	if assignment.ID == primitive.NilObjectID {
		return errors.New("assignment ID is required for update")
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	stored, ok := r.db.assignments[assignment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	assignment.UpdatedAt = time.Now().UTC()
	stored.Title = assignment.Title
	stored.Description = assignment.Description
	stored.DueDate = assignment.DueDate
	stored.TotalMarks = assignment.TotalMarks
	stored.FileLink = assignment.FileLink
	stored.UpdatedAt = assignment.UpdatedAt
	return nil
}

func (r *assignmentRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.assignments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.assignments, id)
	return nil
}

func (r *assignmentRepository) DeleteByTrainerID(_ context.Context, trainerID primitive.ObjectID) (int64, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	var n int64
	for id, a := range r.db.assignments {
		if a.TrainerID == trainerID {
			delete(r.db.assignments, id)
			n++
		}
	}
	return n, nil
}

func (r *assignmentRepository) DeleteByClassID(_ context.Context, classID primitive.ObjectID) ([]domain.Assignment, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	removed := []domain.Assignment{}
	for id, a := range r.db.assignments {
		if a.ClassID == classID {
			removed = append(removed, *cloneAssignment(a))
			delete(r.db.assignments, id)
		}
	}
	return removed, nil
}

func (r *assignmentRepository) AppendSubmission(_ context.Context, assignmentID primitive.ObjectID, sub domain.Submission) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	a, ok := r.db.assignments[assignmentID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, exists := a.SubmissionIndex()[sub.StudentID]; exists {
		return repository.ErrDuplicate
	}
	a.Submissions = append(a.Submissions, sub)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *assignmentRepository) RemoveSubmission(_ context.Context, assignmentID, studentID primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	a, ok := r.db.assignments[assignmentID]
	if !ok {
		return repository.ErrNotFound
	}
	i, exists := a.SubmissionIndex()[studentID]
	if !exists {
		return repository.ErrNotFound
	}
	a.Submissions = append(a.Submissions[:i:i], a.Submissions[i+1:]...)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *assignmentRepository) SetEvaluation(_ context.Context, assignmentID, studentID primitive.ObjectID, eval domain.Evaluation) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	a, ok := r.db.assignments[assignmentID]
	if !ok {
		return repository.ErrNotFound
	}
	i, exists := a.SubmissionIndex()[studentID]
	if !exists {
		return repository.ErrNotFound
	}
	marks := eval.Marks
	a.Submissions[i].Marks = &marks
	a.Submissions[i].Rating = copyString(eval.Rating)
	a.Submissions[i].Remark = copyString(eval.Remark)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *assignmentRepository) RemoveStudentSubmissions(_ context.Context, studentID primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, a := range r.db.assignments {
		if i, exists := a.SubmissionIndex()[studentID]; exists {
			a.Submissions = append(a.Submissions[:i:i], a.Submissions[i+1:]...)
		}
	}
	return nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
