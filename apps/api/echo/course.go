package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/grading"
)

type courseApi struct {
	svc      course.ServiceInterface
	grdSvc   grading.ServiceInterface
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		grdSvc:   deps.GradingSvc,
		validate: deps.Validate,
	}

	ag := g.Group("", jwt)
	ag.POST("/courses", api.create)
	ag.GET("/courses", api.list)
	ag.POST("/enroll", api.enroll)
	ag.GET("/courses/:id/assignments", api.assignments)
	ag.POST("/courses/:id/assignments", api.createAssignment)
	ag.GET("/courses/:id/students", api.students)
	ag.GET("/courses/:id/student-grades/:studentID", api.studentGrades)
	ag.POST("/export-grades", api.exportGrades)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), principal, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) list(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	infos, err := api.svc.ListForPrincipal(ctx.Request().Context(), principal)
	if err != nil {
		return err
	}
	if infos == nil {
		infos = []course.CourseInfo{}
	}
	return ctx.JSON(http.StatusOK, infos)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data course.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.Enroll(ctx.Request().Context(), principal, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Message: "Enrolled successfully"})
}

func (api *courseApi) assignments(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	courseID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	asgs, err := api.svc.Assignments(ctx.Request().Context(), principal, courseID)
	if err != nil {
		return err
	}
	if asgs == nil {
		asgs = []course.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *courseApi) createAssignment(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	courseID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data course.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.CreateAssignment(ctx.Request().Context(), principal, courseID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *courseApi) students(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	courseID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	students, err := api.grdSvc.CourseStudents(ctx.Request().Context(), principal, courseID)
	if err != nil {
		return err
	}
	if students == nil {
		students = []grading.CourseStudent{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *courseApi) studentGrades(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	courseID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	studentID, err := pathID(ctx, "studentID")
	if err != nil {
		return err
	}

	grades, err := api.grdSvc.StudentCourseGrades(ctx.Request().Context(), principal, courseID, studentID)
	if err != nil {
		return err
	}
	if grades == nil {
		grades = []grading.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *courseApi) exportGrades(ctx echo.Context) error {
	principal, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data ExportGradesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExportGradesRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	if err := api.grdSvc.ExportGrades(ctx.Request().Context(), principal, data.CourseID, data.Format); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Message: "Grade report generation started"})
}

type ExportGradesRequest struct {
	CourseID int    `json:"course_id" validate:"required"`
	Format   string `json:"format"`
}

func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}
