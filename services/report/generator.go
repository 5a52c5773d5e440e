package reportsvc

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var supportedFormats = map[string]bool{
	"csv":  true,
	"pdf":  true,
	"xlsx": true,
}

// generatorService shells out to an external grade-report generator.
// Parameters are passed as a fixed argv, so report formats and course IDs
// can never be interpreted by a shell.
type generatorService struct {
	command string
	logger  core.Logger
}

var _ core.ReportService = (*generatorService)(nil)

func NewGeneratorService(conf *core.Config, logger core.Logger) *generatorService {
	return &generatorService{
		command: conf.Report.Command,
		logger:  logger,
	}
}

func (svc generatorService) GenerateGradeReport(ctx context.Context, req core.ReportRequest) error {
	format := req.Format
	if format == "" {
		format = "csv"
	}
	if !supportedFormats[format] {
		return core.NewValidationError(errors.Errorf("unsupported report format %q", format))
	}

	cmd := exec.CommandContext(ctx, svc.command, strconv.Itoa(req.CourseID), "--format", format)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "generating grade report: %s", out)
	}
	svc.logger.Info(fmt.Sprintf("grade report generated for course %d (%s)", req.CourseID, format))
	return nil
}

// GeneratorServiceMock records requests instead of running the generator.
type GeneratorServiceMock struct {
	mutex    sync.Mutex
	Requests []core.ReportRequest
	Err      error
}

var _ core.ReportService = (*GeneratorServiceMock)(nil)

func NewGeneratorServiceMock() *GeneratorServiceMock {
	return &GeneratorServiceMock{}
}

func (svc *GeneratorServiceMock) GenerateGradeReport(_ context.Context, req core.ReportRequest) error {
	format := req.Format
	if format == "" {
		format = "csv"
	}
	if !supportedFormats[format] {
		return core.NewValidationError(errors.Errorf("unsupported report format %q", format))
	}
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	if svc.Err != nil {
		return svc.Err
	}
	svc.Requests = append(svc.Requests, req)
	return nil
}
