package grading

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
)

// Submission is one piece of work tied to a course. grade/feedback stay
// null on the self-submission path; the teacher-initiated path sets them
// at creation time. Grading history lives in Grade rows, append-only.
type Submission struct {
	ID          int         `json:"id" db:"id"`
	StudentID   int         `json:"student_id" db:"student_id"`
	CourseID    int         `json:"course_id" db:"course_id"`
	Grade       null.Int    `json:"grade" db:"grade"`
	Feedback    null.String `json:"feedback" db:"feedback"`
	FilePath    null.String `json:"file_path" db:"file_path"`
	SubmittedAt time.Time   `json:"submitted_at" db:"submitted_at"` // UTC
}

// Grade is one grading event for a Submission. Re-grading appends a new
// row; rows are never edited in place.
type Grade struct {
	ID           int         `json:"id" db:"id"`
	SubmissionID int         `json:"submission_id" db:"submission_id"`
	CourseID     int         `json:"course_id" db:"course_id"`
	Value        int         `json:"value" db:"value"`
	Feedback     null.String `json:"feedback" db:"feedback"`
	GradedAt     time.Time   `json:"graded_at" db:"graded_at"` // UTC
}

// CourseStudent is one enrolled student with their grading history,
// as seen by the course's teacher.
type CourseStudent struct {
	ID       int     `json:"id"`
	Username string  `json:"username"`
	Grades   []Grade `json:"grades"`
}

// GradeSubmissionInput grades an existing Submission.
type GradeSubmissionInput struct {
	SubmissionID int    `json:"submissionId" validate:"required"`
	Grade        int    `json:"grade" validate:"min=0,max=100"`
	Feedback     string `json:"feedback"`
}

func (in *GradeSubmissionInput) Validate(validate *validator.Validate) error {
	in.Feedback = core.CleanString(in.Feedback)
	return validate.Struct(in)
}

// GradeStudentInput creates a Submission and its first Grade in one action.
type GradeStudentInput struct {
	StudentID int    `json:"student_id" validate:"required"`
	CourseID  int    `json:"course_id" validate:"required"`
	Grade     int    `json:"grade" validate:"min=0,max=100"`
	Feedback  string `json:"feedback"`
}

func (in *GradeStudentInput) Validate(validate *validator.Validate) error {
	in.Feedback = core.CleanString(in.Feedback)
	return validate.Struct(in)
}

// NewSubmission is the student self-submission form (multipart fields
// alongside the uploaded file).
type NewSubmission struct {
	AssignmentID int `json:"assignment_id" validate:"required"`
	StudentID    int `json:"student_id" validate:"required"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}
