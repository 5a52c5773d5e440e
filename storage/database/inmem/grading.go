package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/grading"
)

type GradingRepository struct {
	db *DB

	// FailGrades makes every grade insert fail; tests use it to exercise
	// the rollback path of CreateSubmissionGraded.
	FailGrades error
}

var _ grading.Repository = (*GradingRepository)(nil)

func NewGradingRepository(db *DB) *GradingRepository {
	return &GradingRepository{db: db}
}

func (repo *GradingRepository) CreateSubmission(_ context.Context, sub grading.Submission, _ ...core.DBExecutor) (grading.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.createSubmissionLocked(sub)
}

func (repo *GradingRepository) createSubmissionLocked(sub grading.Submission) (grading.Submission, error) {
	if _, ok := repo.db.users[sub.StudentID]; !ok {
		return grading.Submission{}, core.NewReferentialError("student", nil)
	}
	if _, ok := repo.db.courses[sub.CourseID]; !ok {
		return grading.Submission{}, core.NewReferentialError("course", nil)
	}
	repo.db.submissionPK++
	sub.ID = repo.db.submissionPK
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *GradingRepository) GetSubmissionByID(_ context.Context, id int, _ ...core.DBExecutor) (grading.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return *sub, nil
	}
	return grading.Submission{}, grading.ErrSubmissionNotFound
}

func (repo *GradingRepository) GetSubmissionByFilePath(_ context.Context, path string, _ ...core.DBExecutor) (grading.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sub := range repo.db.submissions {
		if sub.FilePath.Valid && sub.FilePath.String == path {
			return *sub, nil
		}
	}
	return grading.Submission{}, grading.ErrSubmissionNotFound
}

func (repo *GradingRepository) QuerySubmissionsByStudent(_ context.Context, studentID int, _ ...core.DBExecutor) ([]grading.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]grading.Submission, 0)
	for id := 1; id <= repo.db.submissionPK; id++ {
		if sub, ok := repo.db.submissions[id]; ok && sub.StudentID == studentID {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (repo *GradingRepository) CreateGrade(_ context.Context, grd grading.Grade, _ ...core.DBExecutor) (grading.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.createGradeLocked(grd)
}

func (repo *GradingRepository) createGradeLocked(grd grading.Grade) (grading.Grade, error) {
	if repo.FailGrades != nil {
		return grading.Grade{}, repo.FailGrades
	}
	if _, ok := repo.db.submissions[grd.SubmissionID]; !ok {
		return grading.Grade{}, core.NewReferentialError("submission", nil)
	}
	repo.db.gradePK++
	grd.ID = repo.db.gradePK
	repo.db.grades[grd.ID] = &grd
	return grd, nil
}

func (repo *GradingRepository) QueryStudentCourseGrades(_ context.Context, studentID, courseID int, _ ...core.DBExecutor) ([]grading.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	grades := make([]grading.Grade, 0)
	for id := 1; id <= repo.db.gradePK; id++ {
		grd, ok := repo.db.grades[id]
		if !ok || grd.CourseID != courseID {
			continue
		}
		if sub, ok := repo.db.submissions[grd.SubmissionID]; ok && sub.StudentID == studentID {
			grades = append(grades, *grd)
		}
	}
	// graded_at DESC; insertion order (id) for ties
	sort.SliceStable(grades, func(i, j int) bool {
		return grades[i].GradedAt.After(grades[j].GradedAt)
	})
	return grades, nil
}

func (repo *GradingRepository) CreateSubmissionGraded(_ context.Context, sub grading.Submission, grd grading.Grade) (grading.Submission, grading.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub, err := repo.createSubmissionLocked(sub)
	if err != nil {
		return grading.Submission{}, grading.Grade{}, err
	}

	grd.SubmissionID = sub.ID
	grd, err = repo.createGradeLocked(grd)
	if err != nil {
		// roll the submission back
		delete(repo.db.submissions, sub.ID)
		repo.db.submissionPK--
		return grading.Submission{}, grading.Grade{}, err
	}
	return sub, grd, nil
}
