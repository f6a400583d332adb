package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/lock"
	"alcyxob/classroom-app/internal/repository"
	"alcyxob/classroom-app/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

// fakeStorage records what was asked of it.
type fakeStorage struct {
	mu      sync.Mutex
	deleted []string
	failDel bool
}

func (f *fakeStorage) GeneratePresignedUploadURL(_ context.Context, key, contentType string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://files.test/put/%s?ct=%s&exp=%d", key, contentType, int(expires.Seconds())), nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://files.test/get/%s?exp=%d", key, int(expires.Seconds())), nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDel {
		return fmt.Errorf("bucket unreachable")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

// hookLocker runs beforeAcquire ahead of taking the lock, standing in for a
// competing write that commits while the caller waits.
type hookLocker struct {
	lock.Locker
	beforeAcquire func()
}

func (h *hookLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if h.beforeAcquire != nil {
		h.beforeAcquire()
	}
	return h.Locker.Acquire(ctx, key)
}

type fixture struct {
	ctx         context.Context
	userRepo    repository.UserRepository
	classRepo   repository.ClassRepository
	assignRepo  repository.AssignmentRepository
	files       *fakeStorage
	locker      lock.Locker
	classes     ClassService
	guard       *Guard
	assignments AssignmentService
	submissions SubmissionService
	reports     ReportService
	admins      AdminService
	uploads     UploadService

	admin        Actor
	trainer      Actor
	otherTrainer Actor
	student      Actor
	outsider     Actor // Student not enrolled in class
	class        *domain.Class
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, SubmissionOptions{})
}

func newFixtureWith(t *testing.T, opts SubmissionOptions) *fixture {
	t.Helper()
	db := memory.Open()
	f := &fixture{
		ctx:        context.Background(),
		userRepo:   memory.NewUserRepository(db),
		classRepo:  memory.NewClassRepository(db),
		assignRepo: memory.NewAssignmentRepository(db),
		files:      &fakeStorage{},
		locker:     lock.NewKeyedMutex(),
	}
	f.classes = NewClassService(f.userRepo, f.classRepo, f.assignRepo, f.files)
	f.guard = f.classes.Guard()
	f.assignments = NewAssignmentService(f.assignRepo, f.classRepo, f.guard, f.locker, f.files)
	f.submissions = NewSubmissionService(f.assignRepo, f.guard, f.locker, opts)
	f.reports = NewReportService(f.assignRepo, f.classRepo, f.guard)
	f.admins = NewAdminService(f.userRepo, f.classRepo, f.assignRepo, f.guard)
	f.uploads = NewUploadService(f.assignRepo, f.classRepo, f.guard, f.files, time.Minute)

	f.admin = f.newUser(t, "Ada Admin", domain.RoleAdmin)
	f.trainer = f.newUser(t, "Tom Trainer", domain.RoleTrainer)
	f.otherTrainer = f.newUser(t, "Tina Trainer", domain.RoleTrainer)
	f.student = f.newUser(t, "Sam Student", domain.RoleStudent)
	f.outsider = f.newUser(t, "Olga Outsider", domain.RoleStudent)

	class, err := f.classes.CreateClass(f.ctx, f.trainer, "Algebra", "Year 1")
	require.NoError(t, err)
	f.class = class
	_, err = f.classes.Enroll(f.ctx, f.student, class.JoinCode)
	require.NoError(t, err)
	return f
}

func (f *fixture) newUser(t *testing.T, name string, role domain.Role) Actor {
	t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
	u := &domain.User{Name: name, Email: email, PasswordHash: "hash", Role: role}
	id, err := f.userRepo.Create(f.ctx, u)
	require.NoError(t, err)
	return Actor{ID: id, Role: role}
}

// enrolledStudent creates a student and enrolls them in the fixture class.
func (f *fixture) enrolledStudent(t *testing.T, name string) Actor {
	t.Helper()
	s := f.newUser(t, name, domain.RoleStudent)
	_, err := f.classes.Enroll(f.ctx, s, f.class.JoinCode)
	require.NoError(t, err)
	return s
}

func (f *fixture) newAssignment(t *testing.T, title string) *domain.Assignment {
	t.Helper()
	a, err := f.assignments.Create(f.ctx, f.trainer, NewAssignment{
		ClassID:     f.class.ID,
		Title:       title,
		Description: "Solve the exercises",
		DueDate:     time.Now().Add(72 * time.Hour),
		TotalMarks:  10,
	})
	require.NoError(t, err)
	return a
}

func ptr[T any](v T) *T { return &v }

