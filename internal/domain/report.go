package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmissionReport merges assignment metadata with one student's submission state.
// Absence of a submission is a valid state: every submission field is then nil.
type SubmissionReport struct {
	AssignmentID primitive.ObjectID `json:"assignmentId"`
	ClassID      primitive.ObjectID `json:"classId"`
	StudentID    primitive.ObjectID `json:"studentId"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	TotalMarks   float64            `json:"totalMarks"`
	DueDate      time.Time          `json:"dueDate"`
	FileLink     string             `json:"fileLink,omitempty"`

	Submitted          bool            `json:"submitted"`
	State              SubmissionState `json:"state"`
	SubmissionDate     *time.Time      `json:"submissionDate"`
	SubmissionFileLink *string         `json:"submissionFileLink"`
	Marks              *float64        `json:"marks"`
	Rating             *string         `json:"rating"`
	Remark             *string         `json:"remark"`
}

// NewSubmissionReport builds the null-safe merge for studentID.
func NewSubmissionReport(a *Assignment, studentID primitive.ObjectID) SubmissionReport {
	r := SubmissionReport{
		AssignmentID: a.ID,
		ClassID:      a.ClassID,
		StudentID:    studentID,
		Title:        a.Title,
		Description:  a.Description,
		TotalMarks:   a.TotalMarks,
		DueDate:      a.DueDate,
		FileLink:     a.FileLink,
		State:        StateNotSubmitted,
	}
	sub, ok := a.FindSubmission(studentID)
	if !ok {
		return r
	}
	date := sub.SubmissionDate
	link := sub.FileLink
	r.Submitted = true
	r.State = sub.State()
	r.SubmissionDate = &date
	r.SubmissionFileLink = &link
	r.Marks = sub.Marks
	r.Rating = sub.Rating
	r.Remark = sub.Remark
	return r
}
