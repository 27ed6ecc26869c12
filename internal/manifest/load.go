package manifest

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hlsgen/internal/model"
)

//go:embed schema.cue
var schemaSource string

// Format is the source syntax of a manifest.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatYAML Format = "yaml"
)

// Manifest is a loaded and validated model description.
type Manifest struct {
	Path   string
	Format Format

	// Document is the description as written; Resolved has defaults applied.
	Document *Document
	Resolved *Document
}

// Model builds a fresh, unconverted model from the manifest.
func (m *Manifest) Model() (*model.Model, error) {
	return Build(m.Resolved)
}

// Hash returns the content hash of the resolved document.
func (m *Manifest) Hash() (string, error) {
	return Hash(m.Resolved)
}

// LoadError is a manifest problem, with its source position when known.
type LoadError struct {
	Code    string
	Message string
	File    string
	Line    int
	Column  int
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants shared with the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load or YAML parse failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeSchema      = "E008" // Manifest does not match the schema
	ErrCodeUnsupported = "E009" // Unsupported manifest file type

	// Manifest validation errors
	ErrCodeMissingField     = "E201" // Required field missing
	ErrCodeInvalidPrecision = "E202" // Precision does not parse
	ErrCodeInvalidShape     = "E203" // Bad or missing shape
	ErrCodeInvalidPragma    = "E204" // Pragma shorthand does not parse
	ErrCodeInvalidInput     = "E205" // In-place input does not name an earlier tensor
	ErrCodeInvalidWeight    = "E206" // Bad weight encoding, length or storage
	ErrCodeTypeConflict     = "E207" // Type name reused with another layout
	ErrCodeInvalidBackend   = "E208" // Unknown backend
	ErrCodeInvalidIOType    = "E209" // Unknown io type
	ErrCodeDuplicateName    = "E210" // Variable name used twice
)

// MapFieldErrorToCode maps a validation error to an error code.
func MapFieldErrorToCode(e *FieldError) string {
	switch {
	case strings.HasPrefix(e.Message, "duplicate variable"):
		return ErrCodeDuplicateName
	case strings.Contains(e.Path, ".shape"):
		return ErrCodeInvalidShape
	case strings.HasSuffix(e.Message, "is required"):
		return ErrCodeMissingField
	}
	switch e.Field() {
	case "precision", "index_precision", "sign_precision":
		return ErrCodeInvalidPrecision
	case "pragma":
		return ErrCodeInvalidPragma
	case "input":
		return ErrCodeInvalidInput
	case "encoding", "length", "storage":
		return ErrCodeInvalidWeight
	case "type":
		return ErrCodeTypeConflict
	case "backend":
		return ErrCodeInvalidBackend
	case "io_type":
		return ErrCodeInvalidIOType
	case "tensors":
		return ErrCodeMissingField
	default:
		return ErrCodeGeneric
	}
}

// Load reads a manifest from a CUE directory, a .cue file or a .yaml/.yml file
// and validates it. All validation errors are returned, each a *LoadError.
func Load(path string) (*Manifest, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing manifest: %v", err)}}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); {
	case info.IsDir():
		return LoadCUE(path, "")
	case ext == ".cue":
		return LoadCUE(filepath.Dir(path), filepath.Base(path))
	case ext == ".yaml" || ext == ".yml":
		return LoadYAML(path)
	default:
		return nil, []error{&LoadError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("unsupported manifest %s: expected a CUE directory, a .cue file or a .yaml file", path),
		}}
	}
}

// LoadCUE loads the CUE package in dir, or only file when it is set, and
// checks it against the manifest schema.
func LoadCUE(dir, file string) (*Manifest, []error) {
	args := []string{"."}
	source := dir
	if file != "" {
		args = []string{file}
		source = filepath.Join(dir, file)
	} else {
		cueFiles, err := FindCUEFiles(dir)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(cueFiles) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
		}
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueLoadErrors(ErrCodeLoadFailed, inst.Err)
	}

	raw := ctx.BuildInstance(inst)
	if err := raw.Err(); err != nil {
		return nil, cueLoadErrors(ErrCodeBuildFailed, err)
	}

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("compiling manifest schema: %v", err)}}
	}
	value := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(raw)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadErrors(ErrCodeSchema, err)
	}

	doc := &Document{}
	if err := value.Decode(doc); err != nil {
		return nil, cueLoadErrors(ErrCodeSchema, err)
	}

	locate := func(path string) (string, int, int) {
		for p := path; p != ""; p = parentPath(p) {
			v := raw.LookupPath(cue.ParsePath(p))
			if v.Exists() && v.Pos().IsValid() {
				pos := v.Pos()
				return pos.Filename(), pos.Line(), pos.Column()
			}
		}
		return source, 0, 0
	}
	return finish(source, FormatCUE, doc, locate)
}

// LoadYAML loads a single YAML manifest. Unknown fields are rejected.
func LoadYAML(path string) (*Manifest, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading manifest: %v", err)}}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, []error{yamlError(path, ErrCodeLoadFailed, err.Error())}
	}

	doc := &Document{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "manifest is empty", File: path}}
		}
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			errs := make([]error, len(typeErr.Errors))
			for i, msg := range typeErr.Errors {
				errs[i] = yamlError(path, ErrCodeSchema, msg)
			}
			return nil, errs
		}
		return nil, []error{yamlError(path, ErrCodeLoadFailed, err.Error())}
	}

	locate := func(p string) (string, int, int) {
		line, col := locateYAML(&root, p)
		return path, line, col
	}
	return finish(path, FormatYAML, doc, locate)
}

func finish(source string, format Format, doc *Document, locate func(string) (string, int, int)) (*Manifest, []error) {
	resolved, err := Resolve(doc)
	if err != nil {
		var list ErrorList
		if !errors.As(err, &list) {
			return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error()}}
		}
		errs := make([]error, len(list))
		for i, fe := range list {
			file, line, col := locate(fe.Path)
			errs[i] = &LoadError{
				Code:    MapFieldErrorToCode(fe),
				Message: fe.Error(),
				File:    file,
				Line:    line,
				Column:  col,
			}
		}
		return nil, errs
	}
	return &Manifest{Path: source, Format: format, Document: doc, Resolved: resolved}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// cueLoadErrors converts every CUE error to a positioned LoadError.
func cueLoadErrors(code string, err error) []error {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return []error{&LoadError{Code: code, Message: err.Error()}}
	}
	out := make([]error, 0, len(list))
	for _, e := range list {
		le := &LoadError{Code: code, Message: e.Error()}
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			le.File = positions[0].Filename()
			le.Line = positions[0].Line()
			le.Column = positions[0].Column()
		}
		out = append(out, le)
	}
	return out
}

// yamlError pulls the "line N" prefix yaml.v3 puts in its messages.
func yamlError(file, code, msg string) *LoadError {
	le := &LoadError{Code: code, Message: msg, File: file}
	rest := strings.TrimPrefix(msg, "yaml: ")
	if strings.HasPrefix(rest, "line ") {
		num := strings.TrimPrefix(rest, "line ")
		if i := strings.IndexByte(num, ':'); i > 0 {
			if n, err := strconv.Atoi(num[:i]); err == nil {
				le.Line = n
				le.Column = 1
				le.Message = strings.TrimSpace(num[i+1:])
			}
		}
	}
	return le
}

// pathElem is one step of a CUE-style path: a field name or a list index.
type pathElem struct {
	key   string
	index int
}

// splitPath turns "tensors[1].shape[0].size" into its steps.
func splitPath(path string) []pathElem {
	var out []pathElem
	for _, part := range strings.Split(path, ".") {
		for part != "" {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				out = append(out, pathElem{key: part, index: -1})
				break
			}
			if open > 0 {
				out = append(out, pathElem{key: part[:open], index: -1})
			}
			end := strings.IndexByte(part, ']')
			if end < open {
				break
			}
			n, err := strconv.Atoi(part[open+1 : end])
			if err != nil {
				break
			}
			out = append(out, pathElem{index: n})
			part = part[end+1:]
		}
	}
	return out
}

// parentPath drops the last step of a path; "" once nothing is left.
func parentPath(path string) string {
	if strings.HasSuffix(path, "]") {
		if i := strings.LastIndexByte(path, '['); i >= 0 {
			return path[:i]
		}
	}
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return ""
}

// locateYAML returns the line and column of the deepest node along path.
func locateYAML(root *yaml.Node, path string) (int, int) {
	n := root
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	line, col := n.Line, n.Column
	for _, step := range splitPath(path) {
		next := yamlChild(n, step)
		if next == nil {
			break
		}
		n = next
		line, col = n.Line, n.Column
	}
	return line, col
}

func yamlChild(n *yaml.Node, step pathElem) *yaml.Node {
	switch {
	case step.index >= 0 && n.Kind == yaml.SequenceNode:
		if step.index < len(n.Content) {
			return n.Content[step.index]
		}
	case step.index < 0 && n.Kind == yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == step.key {
				return n.Content[i+1]
			}
		}
	}
	return nil
}
