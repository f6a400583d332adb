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

type userRepository struct {
	db *DB
}

// NewUserRepository creates a user repository over db.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.ClassRefs = copyIDs(u.ClassRefs)
	return &c
}

func (r *userRepository) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user email, password hash, and role are required")
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, u := range r.db.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}

	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ClassRefs == nil {
		user.ClassRefs = []primitive.ObjectID{}
	}
	r.db.users[user.ID] = cloneUser(user)
	return user.ID, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, u := range r.db.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if u, ok := r.db.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	users := []domain.User{}
	for _, u := range r.db.users {
		if role == "" || u.Role == role {
			users = append(users, *cloneUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	if user.ID == primitive.NilObjectID {
		return errors.New("user ID is required for update")
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	stored, ok := r.db.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, u := range r.db.users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.UpdatedAt = time.Now().UTC()
	stored.Name = user.Name
	stored.Email = user.Email
	stored.PasswordHash = user.PasswordHash
	stored.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *userRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.users, id)
	return nil
}

func (r *userRepository) AddClassRef(_ context.Context, userID, classID primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if !containsID(u.ClassRefs, classID) {
		u.ClassRefs = append(u.ClassRefs, classID)
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *userRepository) RemoveClassRef(_ context.Context, userID, classID primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.ClassRefs, _ = removeID(u.ClassRefs, classID)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepository) RemoveClassRefsFromAll(_ context.Context, classIDs []primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, u := range r.db.users {
		for _, classID := range classIDs {
			u.ClassRefs, _ = removeID(u.ClassRefs, classID)
		}
	}
	return nil
}
