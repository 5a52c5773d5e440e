package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

type Course struct {
	ID          int    `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	TeacherID   int    `json:"teacher_id" db:"teacher_id"`
}

// CourseInfo is a Course shaped for listing: annotated with the teacher's
// name and, for students, their own enrollment status.
type CourseInfo struct {
	Course
	TeacherName string `json:"teacher_name"`
	Enrolled    *bool  `json:"enrolled,omitempty"` // student view only
}

type Enrollment struct {
	ID         int       `json:"id" db:"id"`
	StudentID  int       `json:"student_id" db:"student_id"`
	CourseID   int       `json:"course_id" db:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"` // UTC
}

type Assignment struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	CourseID    int       `json:"course_id" db:"course_id"`
	DueDate     time.Time `json:"due_date" db:"due_date"`
}

// NewCourse contains information needed to create a Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// NewEnrollment contains information needed to enroll the calling student.
type NewEnrollment struct {
	CourseID int `json:"course_id" validate:"required"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	return validate.Struct(ne)
}

// NewAssignment contains information needed to add an Assignment to a Course.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}
