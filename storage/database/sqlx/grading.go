package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/grading"
)

type gradingRepository struct {
	db core.DB
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db core.DB) *gradingRepository {
	return &gradingRepository{db: db}
}

func (repo gradingRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

// trapNoRowsErr maps psql "no rows" err to grading.ErrSubmissionNotFound
func (repo gradingRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return grading.ErrSubmissionNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo gradingRepository) CreateSubmission(ctx context.Context, sub grading.Submission, exec ...core.DBExecutor) (grading.Submission, error) {
	err := repo.getExec(exec).GetContext(ctx, &sub.ID,
		`INSERT INTO submission (student_id, course_id, grade, feedback, file_path, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		sub.StudentID, sub.CourseID, sub.Grade, sub.Feedback, sub.FilePath, sub.SubmittedAt)
	if err != nil {
		if isPqError(err, pqForeignKeyViolation) {
			return grading.Submission{}, core.NewReferentialError("student or course", err)
		}
		return grading.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo gradingRepository) GetSubmissionByID(ctx context.Context, id int, exec ...core.DBExecutor) (grading.Submission, error) {
	var sub grading.Submission
	err := repo.getExec(exec).GetContext(ctx, &sub, `SELECT * FROM submission WHERE id = $1`, id)
	if err != nil {
		return grading.Submission{}, repo.trapNoRowsErr(err, "finding submission by ID")
	}
	return sub, nil
}

func (repo gradingRepository) GetSubmissionByFilePath(ctx context.Context, path string, exec ...core.DBExecutor) (grading.Submission, error) {
	var sub grading.Submission
	err := repo.getExec(exec).GetContext(ctx, &sub, `SELECT * FROM submission WHERE file_path = $1`, path)
	if err != nil {
		return grading.Submission{}, repo.trapNoRowsErr(err, "finding submission by file path")
	}
	return sub, nil
}

func (repo gradingRepository) QuerySubmissionsByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]grading.Submission, error) {
	subs := make([]grading.Submission, 0)
	err := repo.getExec(exec).SelectContext(ctx, &subs,
		`SELECT * FROM submission WHERE student_id = $1 ORDER BY id`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student submissions")
	}
	return subs, nil
}

func (repo gradingRepository) CreateGrade(ctx context.Context, grd grading.Grade, exec ...core.DBExecutor) (grading.Grade, error) {
	err := repo.getExec(exec).GetContext(ctx, &grd.ID,
		`INSERT INTO grade (submission_id, course_id, value, feedback, graded_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		grd.SubmissionID, grd.CourseID, grd.Value, grd.Feedback, grd.GradedAt)
	if err != nil {
		if isPqError(err, pqForeignKeyViolation) {
			return grading.Grade{}, core.NewReferentialError("submission or course", err)
		}
		return grading.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return grd, nil
}

func (repo gradingRepository) QueryStudentCourseGrades(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) ([]grading.Grade, error) {
	grades := make([]grading.Grade, 0)
	// graded_at DESC; id keeps insertion order for ties
	err := repo.getExec(exec).SelectContext(ctx, &grades,
		`SELECT g.* FROM grade g
		 JOIN submission s ON s.id = g.submission_id
		 WHERE s.student_id = $1 AND g.course_id = $2
		 ORDER BY g.graded_at DESC, g.id`,
		studentID, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student course grades")
	}
	return grades, nil
}

// CreateSubmissionGraded inserts the Submission and its first Grade in one
// transaction; any failure rolls both back.
func (repo gradingRepository) CreateSubmissionGraded(ctx context.Context, sub grading.Submission, grd grading.Grade) (grading.Submission, grading.Grade, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return grading.Submission{}, grading.Grade{}, errors.Wrap(err, "beginning transaction")
	}

	sub, err = repo.CreateSubmission(ctx, sub, tx)
	if err != nil {
		_ = tx.Rollback()
		return grading.Submission{}, grading.Grade{}, err
	}

	grd.SubmissionID = sub.ID
	grd, err = repo.CreateGrade(ctx, grd, tx)
	if err != nil {
		_ = tx.Rollback()
		return grading.Submission{}, grading.Grade{}, err
	}

	if err = tx.Commit(); err != nil {
		return grading.Submission{}, grading.Grade{}, errors.Wrap(err, "committing transaction")
	}
	return sub, grd, nil
}
