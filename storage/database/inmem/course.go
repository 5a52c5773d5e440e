package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[crs.TeacherID]; !ok {
		return course.Course{}, core.NewReferentialError("teacher", nil)
	}
	repo.db.coursePK++
	crs.ID = repo.db.coursePK
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id int, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCoursesByTeacher(_ context.Context, teacherID int, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for id := 1; id <= repo.db.coursePK; id++ {
		if crs, ok := repo.db.courses[id]; ok && crs.TeacherID == teacherID {
			courses = append(courses, *crs)
		}
	}
	return courses, nil
}

func (repo *courseRepository) QueryAllCourses(_ context.Context, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for id := 1; id <= repo.db.coursePK; id++ {
		if crs, ok := repo.db.courses[id]; ok {
			courses = append(courses, *crs)
		}
	}
	return courses, nil
}

func (repo *courseRepository) IsCourseTeacher(_ context.Context, courseID, teacherID int) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	crs, ok := repo.db.courses[courseID]
	return ok && crs.TeacherID == teacherID, nil
}

func (repo *courseRepository) CreateEnrollment(_ context.Context, enr course.Enrollment, _ ...core.DBExecutor) (course.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[enr.StudentID]; !ok {
		return course.Enrollment{}, core.NewReferentialError("student", nil)
	}
	if _, ok := repo.db.courses[enr.CourseID]; !ok {
		return course.Enrollment{}, core.NewReferentialError("course", nil)
	}
	for _, e := range repo.db.enrollments {
		if e.StudentID == enr.StudentID && e.CourseID == enr.CourseID {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
	}
	repo.db.enrollmentPK++
	enr.ID = repo.db.enrollmentPK
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) EnrollmentExists(_ context.Context, studentID, courseID int) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) QueryEnrollmentsByStudent(_ context.Context, studentID int, _ ...core.DBExecutor) ([]course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for id := 1; id <= repo.db.enrollmentPK; id++ {
		if enr, ok := repo.db.enrollments[id]; ok && enr.StudentID == studentID {
			enrollments = append(enrollments, *enr)
		}
	}
	return enrollments, nil
}

func (repo *courseRepository) QueryEnrollmentsByCourse(_ context.Context, courseID int, _ ...core.DBExecutor) ([]course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for id := 1; id <= repo.db.enrollmentPK; id++ {
		if enr, ok := repo.db.enrollments[id]; ok && enr.CourseID == courseID {
			enrollments = append(enrollments, *enr)
		}
	}
	return enrollments, nil
}

func (repo *courseRepository) CreateAssignment(_ context.Context, asg course.Assignment, _ ...core.DBExecutor) (course.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[asg.CourseID]; !ok {
		return course.Assignment{}, core.NewReferentialError("course", nil)
	}
	repo.db.assignmentPK++
	asg.ID = repo.db.assignmentPK
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *courseRepository) GetAssignmentByID(_ context.Context, id int, _ ...core.DBExecutor) (course.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return *asg, nil
	}
	return course.Assignment{}, course.ErrAssignmentNotFound
}

func (repo *courseRepository) QueryAssignmentsByCourse(_ context.Context, courseID int, _ ...core.DBExecutor) ([]course.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assignments := make([]course.Assignment, 0)
	for id := 1; id <= repo.db.assignmentPK; id++ {
		if asg, ok := repo.db.assignments[id]; ok && asg.CourseID == courseID {
			assignments = append(assignments, *asg)
		}
	}
	return assignments, nil
}
