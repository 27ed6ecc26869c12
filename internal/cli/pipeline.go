package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/hlsgen/internal/backend"
	"github.com/roach88/hlsgen/internal/datatype"
	"github.com/roach88/hlsgen/internal/diag"
	"github.com/roach88/hlsgen/internal/emit"
	"github.com/roach88/hlsgen/internal/manifest"
	"github.com/roach88/hlsgen/internal/model"
)

// Generation is the result of lowering one manifest to one backend.
type Generation struct {
	Model        *model.Model
	Backend      *backend.Backend
	Defines      string
	Declarations []string
	Types        []datatype.Type
	Warnings     []diag.Diagnostic
}

// stageError tags a pipeline failure with the CLI error code to report.
type stageError struct {
	code string
	err  error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// errorCode returns the code to report for a generate failure. Conversion
// errors report their own code, e.g. UNSUPPORTED_PRECISION_KIND.
func errorCode(err error) string {
	if code := backend.CodeOf(err); code != "" {
		return string(code)
	}
	var se *stageError
	if errors.As(err, &se) {
		return se.code
	}
	return manifest.ErrCodeGeneric
}

// generate converts m for backendName (the manifest's own backend when
// empty) and renders the defines header and declarations. Warnings go to
// logger and are returned in the Generation.
func generate(m *manifest.Manifest, backendName string, logger *slog.Logger) (*Generation, error) {
	mod, err := m.Model()
	if err != nil {
		return nil, &stageError{code: manifest.ErrCodeBuildFailed, err: err}
	}
	if backendName != "" {
		mod.Backend = backendName
	}

	rec := diag.NewRecorder(diag.NewLogSink(logger))
	b, err := backend.Lookup(mod.Backend, rec)
	if err != nil {
		return nil, err
	}
	mod.Backend = b.Name
	logger.Debug("converting model", "model", mod.Name, "backend", b.Name, "family", b.Family,
		"tensors", len(mod.Tensors), "weights", len(mod.Weights))

	if err := model.Prepare(mod, b); err != nil {
		return nil, err
	}

	defines, err := emit.Defines(mod, b)
	if err != nil {
		return nil, &stageError{code: ErrCodeEmit, err: fmt.Errorf("rendering defines: %w", err)}
	}
	decls, err := emit.Declarations(mod, b)
	if err != nil {
		return nil, &stageError{code: ErrCodeEmit, err: fmt.Errorf("rendering declarations: %w", err)}
	}

	return &Generation{
		Model:        mod,
		Backend:      b,
		Defines:      defines,
		Declarations: decls,
		Types:        model.UsedTypes(mod),
		Warnings:     rec.Diagnostics(),
	}, nil
}

// loadIssue is one manifest problem in command output.
type loadIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func toLoadIssues(errs []error) []loadIssue {
	issues := make([]loadIssue, 0, len(errs))
	for _, err := range errs {
		var le *manifest.LoadError
		if errors.As(err, &le) {
			issues = append(issues, loadIssue{Code: le.Code, Message: le.Message, File: le.File, Line: le.Line, Column: le.Column})
			continue
		}
		issues = append(issues, loadIssue{Code: manifest.ErrCodeGeneric, Message: err.Error()})
	}
	return issues
}

// outputLoadErrors reports manifest load errors. They are command errors
// (exit code 2).
func outputLoadErrors(formatter *OutputFormatter, path string, errs []error) error {
	issues := toLoadIssues(errs)
	first := issues[0]

	if formatter.Format == "json" {
		_ = formatter.Error(first.Code, first.Message, issues)
	} else {
		for _, err := range errs {
			fmt.Fprintf(formatter.Writer, "Error: %v\n", err)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %d error(s) loading %s", first.Code, len(issues), path))
}
