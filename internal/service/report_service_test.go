package service

import (
	"testing"

	"alcyxob/classroom-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestReportService_StudentReportWithoutSubmission(t *testing.T) {
	f := newFixture(t)
	a := f.newAssignment(t, "HW1")

	r, err := f.reports.StudentReport(f.ctx, f.student, a.ID, f.student.ID)
	require.NoError(t, err)
	assert.False(t, r.Submitted)
	assert.Equal(t, domain.StateNotSubmitted, r.State)
	assert.Nil(t, r.Marks)
	assert.Nil(t, r.Rating)
	assert.Nil(t, r.Remark)
	assert.Nil(t, r.SubmissionDate)
	assert.Nil(t, r.SubmissionFileLink)
	assert.Equal(t, "HW1", r.Title)
	assert.Equal(t, 10.0, r.TotalMarks)
}

func TestReportService_StudentReportEvaluated(t *testing.T) {
	f := newFixture(t)
	a := f.newAssignment(t, "HW1")
	_, err := f.submissions.Submit(f.ctx, f.student, a.ID, "https://example.com/a.pdf")
	require.NoError(t, err)
	_, err = f.submissions.Evaluate(f.ctx, f.trainer, a.ID, f.student.ID, domain.Evaluation{Marks: 6, Remark: ptr("ok")})
	require.NoError(t, err)

	r, err := f.reports.StudentReport(f.ctx, f.trainer, a.ID, f.student.ID)
	require.NoError(t, err)
	assert.True(t, r.Submitted)
	assert.Equal(t, domain.StateEvaluated, r.State)
	assert.Equal(t, 6.0, *r.Marks)
	assert.Equal(t, "ok", *r.Remark)
	assert.Nil(t, r.Rating)
	assert.Equal(t, "https://example.com/a.pdf", *r.SubmissionFileLink)
	assert.NotNil(t, r.SubmissionDate)
}

func TestReportService_StudentReportAccess(t *testing.T) {
	f := newFixture(t)
	a := f.newAssignment(t, "HW1")
	classmate := f.enrolledStudent(t, "Cara Classmate")

	tests := []struct {
		name    string
		actor   Actor
		student primitive.ObjectID
		want    error
	}{
		{"student self", f.student, f.student.ID, nil},
		{"student other", classmate, f.student.ID, ErrForbidden},
		{"non member self", f.outsider, f.outsider.ID, ErrForbidden},
		{"owner trainer", f.trainer, f.student.ID, nil},
		{"other trainer", f.otherTrainer, f.student.ID, ErrForbidden},
		{"admin", f.admin, f.student.ID, nil},
		{"missing student id", f.trainer, primitive.NilObjectID, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reports.StudentReport(f.ctx, tt.actor, a.ID, tt.student)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	_, err := f.reports.StudentReport(f.ctx, f.admin, primitive.NewObjectID(), f.student.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportService_ClassReport(t *testing.T) {
	f := newFixture(t)
	a1 := f.newAssignment(t, "HW1")
	a2 := f.newAssignment(t, "HW2")
	_, err := f.submissions.Submit(f.ctx, f.student, a1.ID, "https://example.com/a.pdf")
	require.NoError(t, err)

	rows, err := f.reports.ClassReportForStudent(f.ctx, f.trainer, f.class.ID, f.student.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byID := map[primitive.ObjectID]domain.SubmissionReport{}
	for _, r := range rows {
		byID[r.AssignmentID] = r
	}
	assert.True(t, byID[a1.ID].Submitted)
	assert.False(t, byID[a2.ID].Submitted)

	own, err := f.reports.AssignmentsForClass(f.ctx, f.student, f.class.ID)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	_, err = f.reports.AssignmentsForClass(f.ctx, f.outsider, f.class.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.reports.ClassReportForStudent(f.ctx, f.otherTrainer, f.class.ID, f.student.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.reports.ClassReportForStudent(f.ctx, f.trainer, primitive.NewObjectID(), f.student.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportService_SubmittedAndPending(t *testing.T) {
	f := newFixture(t)
	a1 := f.newAssignment(t, "HW1")
	a2 := f.newAssignment(t, "HW2")

	// An assignment in a class the student never joined must not leak in.
	other, err := f.classes.CreateClass(f.ctx, f.otherTrainer, "Biology", "")
	require.NoError(t, err)
	_, err = f.assignments.Create(f.ctx, f.otherTrainer, NewAssignment{
		ClassID: other.ID, Title: "Cells", Description: "d", DueDate: a1.DueDate, TotalMarks: 3,
	})
	require.NoError(t, err)

	_, err = f.submissions.Submit(f.ctx, f.student, a1.ID, "https://example.com/a.pdf")
	require.NoError(t, err)

	submitted, err := f.reports.Submitted(f.ctx, f.student)
	require.NoError(t, err)
	require.Len(t, submitted, 1)
	assert.Equal(t, a1.ID, submitted[0].AssignmentID)

	pending, err := f.reports.Pending(f.ctx, f.student)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a2.ID, pending[0].AssignmentID)

	empty, err := f.reports.Pending(f.ctx, f.outsider)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.reports.Pending(f.ctx, f.trainer)
	assert.ErrorIs(t, err, ErrForbidden)
}
