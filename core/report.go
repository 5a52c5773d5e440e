package core

import "context"

// ReportRequest parameterizes a grade-report run for one course.
type ReportRequest struct {
	CourseID int
	Format   string // csv (default) | pdf | xlsx
}

// ReportService delegates report generation to an external generator.
// Implementations must pass parameters as a structured argument list,
// never through a shell command line.
type ReportService interface {
	GenerateGradeReport(ctx context.Context, req ReportRequest) error
}
