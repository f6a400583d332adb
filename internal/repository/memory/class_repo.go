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

type classRepository struct {
	db *DB
}

// NewClassRepository creates a class repository over db.
func NewClassRepository(db *DB) repository.ClassRepository {
	return &classRepository{db: db}
}

func cloneClass(c *domain.Class) *domain.Class {
	out := *c
	out.StudentIDs = copyIDs(c.StudentIDs)
	out.AssignmentIDs = copyIDs(c.AssignmentIDs)
	return &out
}

func (r *classRepository) Create(_ context.Context, class *domain.Class) (primitive.ObjectID, error) {
	if class.TeacherID == primitive.NilObjectID || class.Name == "" || class.JoinCode == "" {
		return primitive.NilObjectID, errors.New("class requires teacherId, name and joinCode")
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, c := range r.db.classes {
		if c.JoinCode == class.JoinCode {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}

	class.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	if class.StudentIDs == nil {
		class.StudentIDs = []primitive.ObjectID{}
	}
	if class.AssignmentIDs == nil {
		class.AssignmentIDs = []primitive.ObjectID{}
	}
	r.db.classes[class.ID] = cloneClass(class)
	return class.ID, nil
}

func (r *classRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Class, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if c, ok := r.db.classes[id]; ok {
		return cloneClass(c), nil
	}
	return nil, repository.ErrNotFound
}

func (r *classRepository) GetByJoinCode(_ context.Context, code string) (*domain.Class, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, c := range r.db.classes {
		if c.JoinCode == code {
			return cloneClass(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *classRepository) GetByTeacherID(_ context.Context, teacherID primitive.ObjectID) ([]domain.Class, error) {
	return r.filter(func(c *domain.Class) bool { return c.TeacherID == teacherID }), nil
}

func (r *classRepository) GetByStudentID(_ context.Context, studentID primitive.ObjectID) ([]domain.Class, error) {
	return r.filter(func(c *domain.Class) bool { return containsID(c.StudentIDs, studentID) }), nil
}

func (r *classRepository) filter(keep func(*domain.Class) bool) []domain.Class {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	classes := []domain.Class{}
	for _, c := range r.db.classes {
		if keep(c) {
			classes = append(classes, *cloneClass(c))
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].CreatedAt.Before(classes[j].CreatedAt) })
	return classes
}

func (r *classRepository) Update(_ context.Context, class *domain.Class) error {
	if class.ID == primitive.NilObjectID {
		return errors.New("class ID is required for update")
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	stored, ok := r.db.classes[class.ID]
	if !ok {
		return repository.ErrNotFound
	}
	class.UpdatedAt = time.Now().UTC()
	stored.Name = class.Name
	stored.Description = class.Description
	stored.UpdatedAt = class.UpdatedAt
	return nil
}

func (r *classRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.classes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.classes, id)
	return nil
}

func (r *classRepository) AddStudent(_ context.Context, classID, studentID primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	c, ok := r.db.classes[classID]
	if !ok {
		return repository.ErrNotFound
	}
	if containsID(c.StudentIDs, studentID) {
		return repository.ErrDuplicate
	}
	c.StudentIDs = append(c.StudentIDs, studentID)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *classRepository) RemoveStudent(_ context.Context, classID, studentID primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	c, ok := r.db.classes[classID]
	if !ok {
		return repository.ErrNotFound
	}
	var removed bool
	c.StudentIDs, removed = removeID(c.StudentIDs, studentID)
	if !removed {
		return repository.ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *classRepository) RemoveStudentFromAll(_ context.Context, studentID primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, c := range r.db.classes {
		c.StudentIDs, _ = removeID(c.StudentIDs, studentID)
	}
	return nil
}

func (r *classRepository) AddAssignment(_ context.Context, classID, assignmentID primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	c, ok := r.db.classes[classID]
	if !ok {
		return repository.ErrNotFound
	}
	if !containsID(c.AssignmentIDs, assignmentID) {
		c.AssignmentIDs = append(c.AssignmentIDs, assignmentID)
	}
	return nil
}

func (r *classRepository) RemoveAssignment(_ context.Context, classID, assignmentID primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if c, ok := r.db.classes[classID]; ok {
		c.AssignmentIDs, _ = removeID(c.AssignmentIDs, assignmentID)
	}
	return nil
}

func (r *classRepository) DeleteByTeacherID(_ context.Context, teacherID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	ids := []primitive.ObjectID{}
	for id, c := range r.db.classes {
		if c.TeacherID == teacherID {
			ids = append(ids, id)
			delete(r.db.classes, id)
		}
	}
	return ids, nil
}
