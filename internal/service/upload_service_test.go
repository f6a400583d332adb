package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUploadService_Unconfigured(t *testing.T) {
	f := newFixture(t)
	svc := NewUploadService(f.assignRepo, f.classRepo, f.guard, nil, 0)

	_, err := svc.RequestAssignmentUpload(f.ctx, f.trainer, f.class.ID, "a.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	_, err = svc.RequestSubmissionUpload(f.ctx, f.student, primitive.NewObjectID(), "a.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestUploadService_AssignmentUpload(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.uploads.RequestAssignmentUpload(f.ctx, f.trainer, f.class.ID, "Sheet.PDF", "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticket.ObjectKey, "assignments/"+f.class.ID.Hex()+"/"))
	assert.True(t, strings.HasSuffix(ticket.ObjectKey, ".pdf"))
	assert.Contains(t, ticket.UploadURL, ticket.ObjectKey)
	assert.WithinDuration(t, time.Now().Add(time.Minute), ticket.ExpiresAt, 5*time.Second)

	_, err = f.uploads.RequestAssignmentUpload(f.ctx, f.otherTrainer, f.class.ID, "a.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.uploads.RequestAssignmentUpload(f.ctx, f.trainer, f.class.ID, "a.pdf", "pdf")
	assert.ErrorIs(t, err, ErrValidation)

	// The returned key is accepted as the assignment file.
	a, err := f.assignments.Create(f.ctx, f.trainer, NewAssignment{
		ClassID: f.class.ID, Title: "HW", Description: "d", DueDate: time.Now(), TotalMarks: 5, FileLink: ticket.ObjectKey,
	})
	require.NoError(t, err)

	url, err := f.uploads.DownloadURL(f.ctx, f.student, a.ID, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://files.test/get/"+ticket.ObjectKey))

	_, err = f.uploads.DownloadURL(f.ctx, f.outsider, a.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUploadService_SubmissionUpload(t *testing.T) {
	f := newFixture(t)
	a := f.newAssignment(t, "HW1")

	ticket, err := f.uploads.RequestSubmissionUpload(f.ctx, f.student, a.ID, "answer.docx", "application/msword")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticket.ObjectKey, "submissions/"+a.ID.Hex()+"/"+f.student.ID.Hex()+"/"))

	_, err = f.uploads.RequestSubmissionUpload(f.ctx, f.outsider, a.ID, "answer.docx", "application/msword")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.submissions.Submit(f.ctx, f.student, a.ID, ticket.ObjectKey)
	require.NoError(t, err)

	studentID := f.student.ID
	url, err := f.uploads.DownloadURL(f.ctx, f.trainer, a.ID, &studentID)
	require.NoError(t, err)
	assert.Contains(t, url, ticket.ObjectKey)

	classmate := f.enrolledStudent(t, "Cara Classmate")
	_, err = f.uploads.DownloadURL(f.ctx, classmate, a.ID, &studentID)
	assert.ErrorIs(t, err, ErrForbidden)

	classmateID := classmate.ID
	_, err = f.uploads.DownloadURL(f.ctx, f.trainer, a.ID, &classmateID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadService_ExternalLinksPassThrough(t *testing.T) {
	f := newFixture(t)
	a, err := f.assignments.Create(f.ctx, f.trainer, NewAssignment{
		ClassID: f.class.ID, Title: "HW", Description: "d", DueDate: time.Now(), TotalMarks: 5,
		FileLink: "https://example.com/sheet.pdf",
	})
	require.NoError(t, err)

	url, err := f.uploads.DownloadURL(f.ctx, f.student, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/sheet.pdf", url)

	plain := f.newAssignment(t, "No file")
	_, err = f.uploads.DownloadURL(f.ctx, f.student, plain.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
