package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"raur/internal/ports"
	"raur/internal/types"
)

// ReportFileAdapter writes the run report as YAML.
type ReportFileAdapter struct {
	Path string
}

func NewReportFileAdapter(path string) ReportFileAdapter {
	return ReportFileAdapter{Path: path}
}

func (a ReportFileAdapter) WriteReport(report types.RunReport) error {
	path, err := a.ensurePath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode run report").
			WithCause(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write run report").
			WithCause(err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func (a ReportFileAdapter) ReadReport() (types.RunReport, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		code := errbuilder.CodeInternal
		if os.IsNotExist(err) {
			code = errbuilder.CodeNotFound
		}
		return types.RunReport{}, errbuilder.New().
			WithCode(code).
			WithMsg("failed to read run report").
			WithCause(err)
	}
	var report types.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return types.RunReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid run report").
			WithCause(err)
	}
	return report, nil
}

func (a ReportFileAdapter) ensurePath() (string, error) {
	if strings.TrimSpace(a.Path) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("report path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(a.Path), 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create report directory").
			WithCause(err)
	}
	return a.Path, nil
}

var _ ports.ReportPort = ReportFileAdapter{}
