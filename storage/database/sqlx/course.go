package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	err := repo.getExec(exec).GetContext(ctx, &crs.ID,
		`INSERT INTO course (title, description, teacher_id)
		 VALUES ($1, $2, $3) RETURNING id`,
		crs.Title, crs.Description, crs.TeacherID)
	if err != nil {
		if isPqError(err, pqForeignKeyViolation) {
			return course.Course{}, core.NewReferentialError("teacher", err)
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id int, exec ...core.DBExecutor) (course.Course, error) {
	var crs course.Course
	err := repo.getExec(exec).GetContext(ctx, &crs, `SELECT * FROM course WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course by ID")
	}
	return crs, nil
}

func (repo courseRepository) QueryCoursesByTeacher(ctx context.Context, teacherID int, exec ...core.DBExecutor) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	err := repo.getExec(exec).SelectContext(ctx, &courses,
		`SELECT * FROM course WHERE teacher_id = $1 ORDER BY id`, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher courses")
	}
	return courses, nil
}

func (repo courseRepository) QueryAllCourses(ctx context.Context, exec ...core.DBExecutor) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	err := repo.getExec(exec).SelectContext(ctx, &courses, `SELECT * FROM course ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

// IsCourseTeacher resolves course ownership with a single lookup.
func (repo courseRepository) IsCourseTeacher(ctx context.Context, courseID, teacherID int) (bool, error) {
	var owns bool
	err := repo.exec.GetContext(ctx, &owns,
		`SELECT EXISTS (SELECT 1 FROM course WHERE id = $1 AND teacher_id = $2)`, courseID, teacherID)
	if err != nil {
		return false, errors.Wrap(err, "checking course ownership")
	}
	return owns, nil
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment, exec ...core.DBExecutor) (course.Enrollment, error) {
	err := repo.getExec(exec).GetContext(ctx, &enr.ID,
		`INSERT INTO enrollment (student_id, course_id, enrolled_at)
		 VALUES ($1, $2, $3) RETURNING id`,
		enr.StudentID, enr.CourseID, enr.EnrolledAt)
	if err != nil {
		if isPqError(err, pqUniqueViolation) {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		if isPqError(err, pqForeignKeyViolation) {
			return course.Enrollment{}, core.NewReferentialError("course", err)
		}
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo courseRepository) EnrollmentExists(ctx context.Context, studentID, courseID int) (bool, error) {
	var exists bool
	err := repo.exec.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)`, studentID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return exists, nil
}

func (repo courseRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]course.Enrollment, error) {
	enrollments := make([]course.Enrollment, 0)
	err := repo.getExec(exec).SelectContext(ctx, &enrollments,
		`SELECT * FROM enrollment WHERE student_id = $1 ORDER BY id`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student enrollments")
	}
	return enrollments, nil
}

func (repo courseRepository) QueryEnrollmentsByCourse(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]course.Enrollment, error) {
	enrollments := make([]course.Enrollment, 0)
	err := repo.getExec(exec).SelectContext(ctx, &enrollments,
		`SELECT * FROM enrollment WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course enrollments")
	}
	return enrollments, nil
}

func (repo courseRepository) CreateAssignment(ctx context.Context, asg course.Assignment, exec ...core.DBExecutor) (course.Assignment, error) {
	err := repo.getExec(exec).GetContext(ctx, &asg.ID,
		`INSERT INTO assignment (title, description, course_id, due_date)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		asg.Title, asg.Description, asg.CourseID, asg.DueDate)
	if err != nil {
		if isPqError(err, pqForeignKeyViolation) {
			return course.Assignment{}, core.NewReferentialError("course", err)
		}
		return course.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo courseRepository) GetAssignmentByID(ctx context.Context, id int, exec ...core.DBExecutor) (course.Assignment, error) {
	var asg course.Assignment
	err := repo.getExec(exec).GetContext(ctx, &asg, `SELECT * FROM assignment WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Assignment{}, course.ErrAssignmentNotFound
		}
		return course.Assignment{}, errors.Wrap(err, "finding assignment by ID")
	}
	return asg, nil
}

func (repo courseRepository) QueryAssignmentsByCourse(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]course.Assignment, error) {
	assignments := make([]course.Assignment, 0)
	err := repo.getExec(exec).SelectContext(ctx, &assignments,
		`SELECT * FROM assignment WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course assignments")
	}
	return assignments, nil
}
