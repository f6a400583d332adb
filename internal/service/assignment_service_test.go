package service

import (
	"context"
	"math"
	"testing"
	"time"

	"alcyxob/classroom-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAssignmentService_CreateRoundTrip(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

	created, err := f.assignments.Create(f.ctx, f.trainer, NewAssignment{
		ClassID:     f.class.ID,
		Title:       "Tom's HW & Q&A",
		Description: `Use x < y "quoted"`,
		DueDate:     due,
		TotalMarks:  10,
		FileLink:    "https://example.com/hw1.pdf",
	})
	require.NoError(t, err)
	assert.Empty(t, created.Submissions)
	assert.Equal(t, f.trainer.ID, created.TrainerID)

	got, err := f.assignments.GetByID(f.ctx, f.trainer, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tom's HW & Q&A", got.Title)
	assert.Equal(t, `Use x < y "quoted"`, got.Description)
	assert.True(t, due.Equal(got.DueDate))
	assert.Equal(t, 10.0, got.TotalMarks)
	assert.Equal(t, "https://example.com/hw1.pdf", got.FileLink)
	assert.Equal(t, f.class.ID, got.ClassID)
	assert.Equal(t, f.trainer.ID, got.TrainerID)

	class, err := f.classRepo.GetByID(f.ctx, f.class.ID)
	require.NoError(t, err)
	assert.Contains(t, class.AssignmentIDs, created.ID)
}

func TestAssignmentService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	valid := func() NewAssignment {
		return NewAssignment{
			ClassID:     f.class.ID,
			Title:       "HW",
			Description: "Do it",
			DueDate:     time.Now().Add(time.Hour),
			TotalMarks:  1,
		}
	}

	tests := []struct {
		name   string
		mutate func(*NewAssignment)
	}{
		{"zero total marks", func(in *NewAssignment) { in.TotalMarks = 0 }},
		{"negative total marks", func(in *NewAssignment) { in.TotalMarks = -5 }},
		{"missing title", func(in *NewAssignment) { in.Title = "" }},
		{"markup-only title", func(in *NewAssignment) { in.Title = "<b></b>" }},
		{"missing description", func(in *NewAssignment) { in.Description = "  " }},
		{"missing due date", func(in *NewAssignment) { in.DueDate = time.Time{} }},
		{"missing class", func(in *NewAssignment) { in.ClassID = primitive.NilObjectID }},
		{"escaping file key", func(in *NewAssignment) { in.FileLink = "assignments/../x" }},
		{"NaN total marks", func(in *NewAssignment) { in.TotalMarks = math.NaN() }},
		{"infinite total marks", func(in *NewAssignment) { in.TotalMarks = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := f.assignments.Create(f.ctx, f.trainer, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	t.Run("total marks of one is accepted", func(t *testing.T) {
		a, err := f.assignments.Create(f.ctx, f.trainer, valid())
		require.NoError(t, err)
		assert.Equal(t, 1.0, a.TotalMarks)
	})
}

func TestAssignmentService_CreateChecks(t *testing.T) {
	f := newFixture(t)
	in := NewAssignment{ClassID: f.class.ID, Title: "HW", Description: "d", DueDate: time.Now(), TotalMarks: 5}

	_, err := f.assignments.Create(f.ctx, f.otherTrainer, in)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.assignments.Create(f.ctx, f.student, in)
	assert.ErrorIs(t, err, ErrForbidden)

	in.ClassID = primitive.NewObjectID()
	_, err = f.assignments.Create(f.ctx, f.trainer, in)
	assert.ErrorIs(t, err, ErrNotFound)

	// Validation runs before the class lookup.
	in.TotalMarks = 0
	_, err = f.assignments.Create(f.ctx, f.trainer, in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAssignmentService_Create_StripsMarkup(t *testing.T) {
	f := newFixture(t)
	a, err := f.assignments.Create(f.ctx, f.trainer, NewAssignment{
		ClassID: f.class.ID, Title: "<script>alert(1)</script>Essay", Description: "<i>Write</i>",
		DueDate: time.Now(), TotalMarks: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Essay", a.Title)
	assert.Equal(t, "Write", a.Description)
}

func TestAssignmentService_UpdateMergePatch(t *testing.T) {
	f := newFixture(t)
	a := f.newAssignment(t, "HW1")

	updated, err := f.assignments.Update(f.ctx, f.trainer, a.ID, domain.AssignmentPatch{Title: ptr("HW1 revised")})
	require.NoError(t, err)
	assert.Equal(t, "HW1 revised", updated.Title)
	assert.Equal(t, a.Description, updated.Description)
	assert.Equal(t, a.TotalMarks, updated.TotalMarks)

	got, err := f.assignments.GetByID(f.ctx, f.trainer, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "HW1 revised", got.Title)
	assert.True(t, a.DueDate.Equal(got.DueDate))

	unchanged, err := f.assignments.Update(f.ctx, f.trainer, a.ID, domain.AssignmentPatch{})
	require.NoError(t, err)
	assert.Equal(t, "HW1 revised", unchanged.Title)
}

func TestAssignmentService_UpdateChecks(t *testing.T) {
	f := newFixture(t)
	a := f.newAssignment(t, "HW1")

	_, err := f.assignments.Update(f.ctx, f.otherTrainer, a.ID, domain.AssignmentPatch{Title: ptr("mine now")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.assignments.Update(f.ctx, f.admin, a.ID, domain.AssignmentPatch{Title: ptr("admin edit")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.assignments.Update(f.ctx, f.trainer, primitive.NewObjectID(), domain.AssignmentPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.assignments.Update(f.ctx, f.trainer, a.ID, domain.AssignmentPatch{TotalMarks: ptr(0.0)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.assignments.Update(f.ctx, f.trainer, a.ID, domain.AssignmentPatch{Title: ptr("")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.assignments.Update(f.ctx, f.trainer, a.ID, domain.AssignmentPatch{TotalMarks: ptr(math.NaN())})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.assignments.Update(f.ctx, f.trainer, a.ID, domain.AssignmentPatch{TotalMarks: ptr(math.Inf(1))})
	assert.ErrorIs(t, err, ErrValidation)

	// Lowering totalMarks below an awarded mark is rejected.
	_, err = f.submissions.Submit(f.ctx, f.student, a.ID, "https://example.com/answer.pdf")
	require.NoError(t, err)
	_, err = f.submissions.Evaluate(f.ctx, f.trainer, a.ID, f.student.ID, domain.Evaluation{Marks: 8})
	require.NoError(t, err)
	_, err = f.assignments.Update(f.ctx, f.trainer, a.ID, domain.AssignmentPatch{TotalMarks: ptr(5.0)})
	assert.ErrorIs(t, err, ErrValidation)

	// Updates never touch submissions.
	got, err := f.assignments.Update(f.ctx, f.trainer, a.ID, domain.AssignmentPatch{TotalMarks: ptr(20.0)})
	require.NoError(t, err)
	require.Len(t, got.Submissions, 1)
	assert.Equal(t, 8.0, *got.Submissions[0].Marks)
}

func TestAssignmentService_UpdateRechecksMarksUnderLock(t *testing.T) {
	f := newFixture(t)
	a := f.newAssignment(t, "HW1")
	_, err := f.submissions.Submit(f.ctx, f.student, a.ID, "https://example.com/answer.pdf")
	require.NoError(t, err)

	// An evaluation of 9 lands after Update has loaded the assignment.
	locker := &hookLocker{Locker: f.locker, beforeAcquire: func() {
		require.NoError(t, f.assignRepo.SetEvaluation(f.ctx, a.ID, f.student.ID, domain.Evaluation{Marks: 9}))
	}}
	svc := NewAssignmentService(f.assignRepo, f.classRepo, f.guard, locker, f.files)

	_, err = svc.Update(f.ctx, f.trainer, a.ID, domain.AssignmentPatch{TotalMarks: ptr(5.0)})
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := f.assignRepo.GetByID(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, stored.TotalMarks)
}

func TestAssignmentService_UpdateWaitsForAssignmentLock(t *testing.T) {
	f := newFixture(t)
	a := f.newAssignment(t, "HW1")

	release, err := f.locker.Acquire(f.ctx, assignmentLockKey(a.ID))
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(f.ctx, 20*time.Millisecond)
	defer cancel()
	_, err = f.assignments.Update(ctx, f.trainer, a.ID, domain.AssignmentPatch{Title: ptr("HW1 revised")})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAssignmentService_Delete(t *testing.T) {
	f := newFixture(t)

	t.Run("owner deletes and stored files are removed", func(t *testing.T) {
		a, err := f.assignments.Create(f.ctx, f.trainer, NewAssignment{
			ClassID: f.class.ID, Title: "HW", Description: "d", DueDate: time.Now(), TotalMarks: 5,
			FileLink: "assignments/" + f.class.ID.Hex() + "/sheet.pdf",
		})
		require.NoError(t, err)
		key := "submissions/" + a.ID.Hex() + "/" + f.student.ID.Hex() + "/answer.pdf"
		_, err = f.submissions.Submit(f.ctx, f.student, a.ID, key)
		require.NoError(t, err)

		require.NoError(t, f.assignments.Delete(f.ctx, f.trainer, a.ID))

		_, err = f.assignments.GetByID(f.ctx, f.trainer, a.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		class, err := f.classRepo.GetByID(f.ctx, f.class.ID)
		require.NoError(t, err)
		assert.NotContains(t, class.AssignmentIDs, a.ID)
		assert.ElementsMatch(t, []string{a.FileLink, key}, f.files.deleted)
	})

	t.Run("storage failure does not fail the delete", func(t *testing.T) {
		f.files.failDel = true
		defer func() { f.files.failDel = false }()
		a, err := f.assignments.Create(f.ctx, f.trainer, NewAssignment{
			ClassID: f.class.ID, Title: "HW", Description: "d", DueDate: time.Now(), TotalMarks: 5,
			FileLink: "assignments/" + f.class.ID.Hex() + "/sheet.pdf",
		})
		require.NoError(t, err)
		assert.NoError(t, f.assignments.Delete(f.ctx, f.trainer, a.ID))
	})

	t.Run("other trainer is forbidden", func(t *testing.T) {
		a := f.newAssignment(t, "HW")
		assert.ErrorIs(t, f.assignments.Delete(f.ctx, f.otherTrainer, a.ID), ErrForbidden)
		assert.ErrorIs(t, f.assignments.Delete(f.ctx, f.student, a.ID), ErrForbidden)
	})

	t.Run("admin may delete", func(t *testing.T) {
		a := f.newAssignment(t, "HW")
		assert.NoError(t, f.assignments.Delete(f.ctx, f.admin, a.ID))
	})

	t.Run("missing assignment", func(t *testing.T) {
		assert.ErrorIs(t, f.assignments.Delete(f.ctx, f.trainer, primitive.NewObjectID()), ErrNotFound)
	})
}

func TestAssignmentService_Listings(t *testing.T) {
	f := newFixture(t)
	a1 := f.newAssignment(t, "HW1")
	a2 := f.newAssignment(t, "HW2")

	other, err := f.classes.CreateClass(f.ctx, f.otherTrainer, "Biology", "")
	require.NoError(t, err)
	_, err = f.assignments.Create(f.ctx, f.otherTrainer, NewAssignment{
		ClassID: other.ID, Title: "Cells", Description: "d", DueDate: time.Now(), TotalMarks: 3,
	})
	require.NoError(t, err)

	mine, err := f.assignments.ListByTrainer(f.ctx, f.trainer, f.trainer.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.assignments.ListByTrainer(f.ctx, f.otherTrainer, f.trainer.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	byAdmin, err := f.assignments.ListByTrainer(f.ctx, f.admin, f.trainer.ID)
	require.NoError(t, err)
	assert.Len(t, byAdmin, 2)

	inClass, err := f.assignments.ListByClass(f.ctx, f.trainer, f.class.ID)
	require.NoError(t, err)
	require.Len(t, inClass, 2)
	ids := []primitive.ObjectID{inClass[0].ID, inClass[1].ID}
	assert.ElementsMatch(t, []primitive.ObjectID{a1.ID, a2.ID}, ids)

	_, err = f.assignments.ListByClass(f.ctx, f.otherTrainer, f.class.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.assignments.ListByClass(f.ctx, f.trainer, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignmentService_ListSubmissions(t *testing.T) {
	f := newFixture(t)
	a := f.newAssignment(t, "HW1")
	_, err := f.submissions.Submit(f.ctx, f.student, a.ID, "https://example.com/a.pdf")
	require.NoError(t, err)

	subs, err := f.assignments.ListSubmissions(f.ctx, f.trainer, a.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, f.student.ID, subs[0].StudentID)

	_, err = f.assignments.ListSubmissions(f.ctx, f.student, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.assignments.ListSubmissions(f.ctx, f.admin, a.ID)
	assert.NoError(t, err)
}
