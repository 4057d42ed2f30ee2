package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cardflow/internal/compiler"
	"github.com/roach88/cardflow/internal/ir"
)

// LoadResult holds the automations compiled from a rules directory.
// Problems lists every compile and schema error; automations that failed
// to compile are absent from Automations.
type LoadResult struct {
	Automations []ir.Automation
	Problems    []Problem
	FileCount   int
}

// OK reports whether the directory compiled and validated cleanly.
func (r *LoadResult) OK() bool {
	return len(r.Problems) == 0
}

// Problem is one compile or validation error in a rules directory.
type Problem struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Pos     string `json:"pos,omitempty"` // file:line:col
}

func (p Problem) String() string {
	if p.Pos != "" {
		return fmt.Sprintf("%s: %s: %s", p.Pos, p.Code, p.Message)
	}
	return fmt.Sprintf("%s: %s: %s", p.Code, p.Field, p.Message)
}

// LoadError is a failure that prevents loading the directory at all.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRules compiles and validates every .cue file in dir as one CUE
// instance. The returned error is always a *LoadError.
func LoadRules(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	automations, compileErrs := compiler.CompileAll(value)
	result := &LoadResult{Automations: automations, FileCount: len(files)}
	for _, err := range compileErrs {
		result.Problems = append(result.Problems, compileProblem(err))
	}
	result.Problems = append(result.Problems, validationProblems(automations)...)

	if len(automations) == 0 && len(result.Problems) == 0 {
		result.Problems = append(result.Problems, Problem{
			Code:    ErrCodeGeneric,
			Field:   "automation",
			Message: "no automations found in rules",
		})
	}
	return result, nil
}

// validationProblems runs the schema checks over compiled automations.
func validationProblems(automations []ir.Automation) []Problem {
	var problems []Problem
	for _, ve := range compiler.ValidateAll(automations) {
		problems = append(problems, Problem{Code: ve.Code, Field: ve.Field, Message: ve.Message})
	}
	return problems
}

// FindCUEFiles lists the .cue files directly inside dir, matching what
// loading the "." package sees.
func FindCUEFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.cue"))
}

func compileProblem(err error) Problem {
	var compileErr *compiler.CompileError
	if !errors.As(err, &compileErr) {
		return Problem{Code: ErrCodeGeneric, Field: "automation", Message: err.Error()}
	}
	p := Problem{
		Code:    MapFieldToErrorCode(compileErr.Field),
		Field:   compileErr.Field,
		Message: compileErr.Message,
		Pos:     formatPos(compileErr.Pos),
	}
	// CompileAll prefixes the automation label; keep it in the field path.
	if prefix, _, ok := strings.Cut(err.Error(), ": "); ok && strings.HasPrefix(prefix, "automation ") {
		id := strings.Trim(strings.TrimPrefix(prefix, "automation "), `"`)
		p.Field = "automation." + id + "." + compileErr.Field
	}
	return p
}

func formatPos(pos token.Pos) string {
	if !pos.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
}

// Error codes shared by every command. Compile and schema problems reuse
// the compiler's E1xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDatabase    = "E008" // Database open/read/write error
	ErrCodeScenario    = "E009" // Scenario load or execution error

	ErrCodeTestFailed  = "E_TEST_FAILED"
	ErrCodeIntegrity   = "E_INTEGRITY"
	ErrCodeStrictCheck = "E_STRICT"
)

// MapFieldToErrorCode maps a compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "board":
		return compiler.ErrMissingBoard
	case field == "name":
		return compiler.ErrMissingName
	case field == "when", field == "when.type":
		return compiler.ErrMissingTrigger
	case strings.HasPrefix(field, "when."):
		return compiler.ErrInvalidTriggerParam
	case field == "then":
		return compiler.ErrNoActions
	case strings.HasPrefix(field, "then["):
		return compiler.ErrMissingActionParam
	default:
		return ErrCodeGeneric
	}
}
