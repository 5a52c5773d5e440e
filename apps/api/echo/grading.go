package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/grading"
)

type gradingApi struct {
	svc      grading.ServiceInterface
	validate *validator.Validate
}

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradingApi{
		svc:      deps.GradingSvc,
		validate: deps.Validate,
	}

	ag := g.Group("", jwt)
	ag.POST("/grade-submission", api.gradeSubmission)
	ag.POST("/grade/student", api.gradeStudent)
	ag.GET("/student-submissions/:id", api.studentSubmissions)
	ag.GET("/submissions/:id", api.retrieveSubmission)
	ag.POST("/submit-assignment", api.submitAssignment)
	ag.GET("/download/:filename", api.download)
}

// Handlers

func (api *gradingApi) gradeSubmission(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data grading.GradeSubmissionInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmissionInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.GradeSubmission(ctx.Request().Context(), principal, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Message: "Submission graded successfully"})
}

func (api *gradingApi) gradeStudent(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data grading.GradeStudentInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeStudentInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, _, err := api.svc.GradeStudent(ctx.Request().Context(), principal, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Message: "Student graded successfully"})
}

func (api *gradingApi) studentSubmissions(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	studentID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	subs, err := api.svc.StudentSubmissions(ctx.Request().Context(), principal, studentID)
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []grading.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *gradingApi) retrieveSubmission(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	sub, err := api.svc.GetSubmission(ctx.Request().Context(), principal, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *gradingApi) submitAssignment(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	data, err := bindNewSubmission(ctx)
	if err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(errors.New("No file provided"))
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	if _, err := api.svc.SubmitAssignment(ctx.Request().Context(), principal, data, fileHdr.Filename, file); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Message: "Assignment submitted successfully"})
}

func (api *gradingApi) download(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	storedName := core.SafeFilename(ctx.Param("filename"))
	f, err := api.svc.Download(ctx.Request().Context(), principal, storedName)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+storedName)
	return ctx.Stream(http.StatusOK, echo.MIMEOctetStream, f)
}

// bindNewSubmission reads the multipart form fields accompanying the upload.
func bindNewSubmission(ctx echo.Context) (grading.NewSubmission, error) {
	var data grading.NewSubmission
	asgID, err := strconv.Atoi(ctx.FormValue("assignment_id"))
	if err != nil {
		return data, core.NewValidationError(nil, core.FieldError{Field: "assignment_id", Error: "a valid assignment_id is required"})
	}
	stuID, err := strconv.Atoi(ctx.FormValue("student_id"))
	if err != nil {
		return data, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "a valid student_id is required"})
	}
	data.AssignmentID = asgID
	data.StudentID = stuID
	return data, nil
}
