package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/repository"
	"alcyxob/classroom-app/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func userIDs(users []domain.User) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func classIDs(classes []domain.Class) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(classes))
	for i, c := range classes {
		ids[i] = c.ID
	}
	return ids
}

func TestClassService_CreateClass(t *testing.T) {
	f := newFixture(t)
	assert.Len(t, f.class.JoinCode, joinCodeLength)
	assert.Equal(t, f.trainer.ID, f.class.TeacherID)

	trainer, err := f.userRepo.GetByID(f.ctx, f.trainer.ID)
	require.NoError(t, err)
	assert.True(t, trainer.HasClass(f.class.ID))

	_, err = f.classes.CreateClass(f.ctx, f.student, "Nope", "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.classes.CreateClass(f.ctx, f.trainer, "<p></p>", "")
	assert.ErrorIs(t, err, ErrValidation)

	codes := map[string]bool{f.class.JoinCode: true}
	for i := 0; i < 50; i++ {
		c, err := f.classes.CreateClass(f.ctx, f.trainer, "Section", "")
		require.NoError(t, err)
		assert.False(t, codes[c.JoinCode], "join code reused")
		codes[c.JoinCode] = true
	}
}

// collidingClassRepo reports a join code collision on the first n creates.
type collidingClassRepo struct {
	repository.ClassRepository
	collisions int
}

func (r *collidingClassRepo) Create(ctx context.Context, c *domain.Class) (primitive.ObjectID, error) {
	if r.collisions > 0 {
		r.collisions--
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	return r.ClassRepository.Create(ctx, c)
}

func TestClassService_CreateClassRetriesJoinCode(t *testing.T) {
	db := memory.Open()
	users := memory.NewUserRepository(db)
	trainerID, err := users.Create(context.Background(), &domain.User{Email: "t@example.com", PasswordHash: "h", Role: domain.RoleTrainer})
	require.NoError(t, err)
	trainer := Actor{ID: trainerID, Role: domain.RoleTrainer}

	svc := NewClassService(users, &collidingClassRepo{ClassRepository: memory.NewClassRepository(db), collisions: 2}, memory.NewAssignmentRepository(db), nil)
	c, err := svc.CreateClass(context.Background(), trainer, "Physics", "")
	require.NoError(t, err)
	assert.False(t, c.ID.IsZero())

	svc = NewClassService(users, &collidingClassRepo{ClassRepository: memory.NewClassRepository(db), collisions: joinCodeAttempts}, memory.NewAssignmentRepository(db), nil)
	_, err = svc.CreateClass(context.Background(), trainer, "Physics", "")
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestClassService_EnrollAndUnenroll(t *testing.T) {
	f := newFixture(t)
	classmate := f.enrolledStudent(t, "Cara Classmate")

	mates, err := f.classes.Classmates(f.ctx, classmate, f.class.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []primitive.ObjectID{f.student.ID, classmate.ID}, userIDs(mates))

	member, err := f.classes.IsMemberOf(f.ctx, f.student.ID, f.class.ID)
	require.NoError(t, err)
	assert.True(t, member)

	require.NoError(t, f.classes.Unenroll(f.ctx, f.student, f.class.ID, f.student.ID))

	mates, err = f.classes.Classmates(f.ctx, f.trainer, f.class.ID)
	require.NoError(t, err)
	assert.NotContains(t, userIDs(mates), f.student.ID)

	classes, err := f.classes.ClassesOfStudent(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.NotContains(t, classIDs(classes), f.class.ID)

	user, err := f.userRepo.GetByID(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.False(t, user.HasClass(f.class.ID))

	member, err = f.classes.IsMemberOf(f.ctx, f.student.ID, f.class.ID)
	require.NoError(t, err)
	assert.False(t, member)

	assert.ErrorIs(t, f.classes.Unenroll(f.ctx, f.student, f.class.ID, f.student.ID), ErrNotFound)
}

func TestClassService_EnrollChecks(t *testing.T) {
	f := newFixture(t)

	_, err := f.classes.Enroll(f.ctx, f.student, f.class.JoinCode)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.classes.Enroll(f.ctx, f.outsider, "NOPE123")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.classes.Enroll(f.ctx, f.outsider, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.classes.Enroll(f.ctx, f.otherTrainer, f.class.JoinCode)
	assert.ErrorIs(t, err, ErrForbidden)

	// Codes are matched case-insensitively.
	c, err := f.classes.Enroll(f.ctx, f.outsider, "  "+strings.ToLower(f.class.JoinCode)+" ")
	require.NoError(t, err)
	assert.True(t, c.HasStudent(f.outsider.ID))
}

// failingUserRepo fails AddClassRef to exercise enroll compensation.
type failingUserRepo struct {
	repository.UserRepository
}

func (failingUserRepo) AddClassRef(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return errors.New("write timeout")
}

func TestClassService_EnrollCompensatesOnSecondWrite(t *testing.T) {
	f := newFixture(t)
	svc := NewClassService(failingUserRepo{f.userRepo}, f.classRepo, f.assignRepo, nil)

	_, err := svc.Enroll(f.ctx, f.outsider, f.class.JoinCode)
	assert.ErrorIs(t, err, ErrPersistence)

	class, err := f.classRepo.GetByID(f.ctx, f.class.ID)
	require.NoError(t, err)
	assert.False(t, class.HasStudent(f.outsider.ID))
}

func TestClassService_UnenrollPermissions(t *testing.T) {
	f := newFixture(t)
	classmate := f.enrolledStudent(t, "Cara Classmate")

	assert.ErrorIs(t, f.classes.Unenroll(f.ctx, classmate, f.class.ID, f.student.ID), ErrForbidden)
	assert.ErrorIs(t, f.classes.Unenroll(f.ctx, f.otherTrainer, f.class.ID, f.student.ID), ErrForbidden)
	assert.ErrorIs(t, f.classes.Unenroll(f.ctx, f.trainer, primitive.NewObjectID(), f.student.ID), ErrNotFound)
	assert.ErrorIs(t, f.classes.Unenroll(f.ctx, f.trainer, f.class.ID, f.outsider.ID), ErrNotFound)

	assert.NoError(t, f.classes.Unenroll(f.ctx, f.trainer, f.class.ID, f.student.ID))
	assert.NoError(t, f.classes.Unenroll(f.ctx, f.admin, f.class.ID, classmate.ID))

	class, err := f.classRepo.GetByID(f.ctx, f.class.ID)
	require.NoError(t, err)
	assert.Empty(t, class.StudentIDs)
}

func TestClassService_Reads(t *testing.T) {
	f := newFixture(t)

	c, err := f.classes.GetClass(f.ctx, f.student, f.class.ID)
	require.NoError(t, err)
	assert.Empty(t, c.JoinCode)

	c, err = f.classes.GetClass(f.ctx, f.trainer, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, f.class.JoinCode, c.JoinCode)

	_, err = f.classes.GetClass(f.ctx, f.outsider, f.class.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.classes.Classmates(f.ctx, f.otherTrainer, f.class.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.classes.GetClass(f.ctx, f.admin, f.class.ID)
	assert.NoError(t, err)

	teacher, err := f.classes.IsTeacherOf(f.ctx, f.trainer.ID, f.class.ID)
	require.NoError(t, err)
	assert.True(t, teacher)
	teacher, err = f.classes.IsTeacherOf(f.ctx, f.otherTrainer.ID, f.class.ID)
	require.NoError(t, err)
	assert.False(t, teacher)

	mine, err := f.classes.MyClasses(f.ctx, f.trainer)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{f.class.ID}, classIDs(mine))

	mine, err = f.classes.MyClasses(f.ctx, f.student)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Empty(t, mine[0].JoinCode)
}

func TestClassService_UpdateClass(t *testing.T) {
	f := newFixture(t)

	c, err := f.classes.UpdateClass(f.ctx, f.trainer, f.class.ID, ptr("Algebra & Geometry"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Algebra & Geometry", c.Name)
	assert.Equal(t, "Year 1", c.Description)

	stored, err := f.classRepo.GetByID(f.ctx, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra & Geometry", stored.Name)
	assert.Equal(t, f.class.JoinCode, stored.JoinCode)
	assert.True(t, stored.HasStudent(f.student.ID))

	_, err = f.classes.UpdateClass(f.ctx, f.trainer, f.class.ID, ptr("  "), nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.classes.UpdateClass(f.ctx, f.otherTrainer, f.class.ID, ptr("Taken"), nil)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.classes.UpdateClass(f.ctx, f.student, f.class.ID, ptr("Taken"), nil)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.classes.UpdateClass(f.ctx, f.admin, f.class.ID, ptr("Taken"), nil)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.classes.UpdateClass(f.ctx, f.trainer, primitive.NewObjectID(), ptr("x"), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClassService_DeleteClassCascades(t *testing.T) {
	f := newFixture(t)
	a, err := f.assignments.Create(f.ctx, f.trainer, NewAssignment{
		ClassID: f.class.ID, Title: "HW", Description: "d", DueDate: time.Now(), TotalMarks: 5,
		FileLink: "assignments/" + f.class.ID.Hex() + "/sheet.pdf",
	})
	require.NoError(t, err)
	key := "submissions/" + a.ID.Hex() + "/" + f.student.ID.Hex() + "/answer.pdf"
	_, err = f.submissions.Submit(f.ctx, f.student, a.ID, key)
	require.NoError(t, err)

	assert.ErrorIs(t, f.classes.DeleteClass(f.ctx, f.otherTrainer, f.class.ID), ErrForbidden)
	assert.ErrorIs(t, f.classes.DeleteClass(f.ctx, f.student, f.class.ID), ErrForbidden)

	require.NoError(t, f.classes.DeleteClass(f.ctx, f.trainer, f.class.ID))

	_, err = f.classRepo.GetByID(f.ctx, f.class.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.assignRepo.GetByID(f.ctx, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	for _, id := range []primitive.ObjectID{f.trainer.ID, f.student.ID} {
		u, err := f.userRepo.GetByID(f.ctx, id)
		require.NoError(t, err)
		assert.False(t, u.HasClass(f.class.ID))
	}
	assert.ElementsMatch(t, []string{a.FileLink, key}, f.files.deleted)

	assert.ErrorIs(t, f.classes.DeleteClass(f.ctx, f.trainer, f.class.ID), ErrNotFound)

	t.Run("admin may delete", func(t *testing.T) {
		other, err := f.classes.CreateClass(f.ctx, f.otherTrainer, "Biology", "")
		require.NoError(t, err)
		require.NoError(t, f.classes.DeleteClass(f.ctx, f.admin, other.ID))
	})
}
