package inmemdb

import (
	"sync"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/grading"
	"github.com/trezcool/academia/core/user"
)

// DB is a mutex-guarded in-memory store used by tests. It honors the same
// contracts as the sqlx repositories: uniqueness of usernames and
// (student, course) enrollments, referential checks at write time, and an
// atomic submission+grade write.
type DB struct {
	mutex sync.RWMutex

	users       map[int]*user.User
	courses     map[int]*course.Course
	enrollments map[int]*course.Enrollment
	assignments map[int]*course.Assignment
	submissions map[int]*grading.Submission
	grades      map[int]*grading.Grade

	userPK       int
	coursePK     int
	enrollmentPK int
	assignmentPK int
	submissionPK int
	gradePK      int
}

func Open() (*DB, error) {
	db := &DB{
		users:       make(map[int]*user.User),
		courses:     make(map[int]*course.Course),
		enrollments: make(map[int]*course.Enrollment),
		assignments: make(map[int]*course.Assignment),
		submissions: make(map[int]*grading.Submission),
		grades:      make(map[int]*grading.Grade),
	}
	return db, nil
}

// CountSubmissions reports the number of stored Submission rows; tests use
// it to assert rollbacks left no partial writes.
func (db *DB) CountSubmissions() int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return len(db.submissions)
}

// CountGrades reports the number of stored Grade rows.
func (db *DB) CountGrades() int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return len(db.grades)
}
