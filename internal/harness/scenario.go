package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/niftimath/internal/cast"
	"github.com/roach88/niftimath/internal/compiler"
	"github.com/roach88/niftimath/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// Scenario defines one conformance case: input images, an expression, and
// the expected output or error.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Images are written to the workspace before evaluation.
	Images []ImageSpec `yaml:"images,omitempty" json:"images,omitempty"`

	// Expr is the RPN token list, without the output path.
	Expr []string `yaml:"expr" json:"expr"`

	// Datatype is the output cast. Default: f64.
	Datatype string `yaml:"datatype,omitempty" json:"datatype,omitempty"`

	// Threads is the worker count. Default: 1.
	Threads int `yaml:"threads,omitempty" json:"threads,omitempty"`

	// Expect specifies the outcome.
	Expect Expect `yaml:"expect" json:"expect"`
}

// ImageSpec is an inline fixture image.
type ImageSpec struct {
	// Name is the file name, ending in .nii or .nii.gz. Tokens in Expr
	// refer to images by this name.
	Name string `yaml:"name" json:"name"`

	Shape []int     `yaml:"shape" json:"shape"`
	Data  []float64 `yaml:"data" json:"data"`

	// Datatype is the on-disk element type. Default: f64.
	Datatype string `yaml:"datatype,omitempty" json:"datatype,omitempty"`
}

// Expect is the expected outcome of a scenario. Either Error is set, or
// any of Shape, Data and Header are compared with the saved output.
type Expect struct {
	Shape []int     `yaml:"shape,omitempty" json:"shape,omitempty"`
	Data  []float64 `yaml:"data,omitempty" json:"data,omitempty"`

	// Tolerance is the maximum absolute difference per element.
	Tolerance float64 `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`

	// Error is the expected ir.ErrorCode, e.g. "SHAPE_MISMATCH".
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	// Header names the input image whose header the output must carry.
	Header string `yaml:"header,omitempty" json:"header,omitempty"`
}

// ScenarioExtensions are the file extensions LoadScenario accepts.
var ScenarioExtensions = []string{".yaml", ".yml", ".cue"}

// IsScenarioFile reports whether path has a scenario extension.
func IsScenarioFile(path string) bool {
	return slices.Contains(ScenarioExtensions, filepath.Ext(path))
}

// LoadScenario reads and parses a scenario file, choosing YAML or CUE by
// extension. Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch filepath.Ext(path) {
	case ".cue":
		scenario, err = ParseCUE(path, data)
	case ".yaml", ".yml":
		scenario, err = ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported scenario extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseYAML decodes a YAML scenario with strict field checking.
func ParseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// ParseCUE compiles a CUE scenario, unifies it with #Scenario and decodes
// the concrete result. filename is used in error positions.
func ParseCUE(filename string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("scenario does not match schema: %w", err)
	}

	var scenario Scenario
	if err := unified.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and cross references.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("name %q must not contain path separators", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Threads < 0 {
		return fmt.Errorf("threads must be positive")
	}
	if s.Datatype != "" {
		if _, err := cast.ParseDataType(s.Datatype); err != nil {
			return fmt.Errorf("datatype: %w", err)
		}
	}

	names := make(map[string]bool, len(s.Images))
	for i, img := range s.Images {
		if !compiler.IsImagePath(img.Name) {
			return fmt.Errorf("images[%d]: name %q must end in .nii or .nii.gz", i, img.Name)
		}
		if filepath.Base(img.Name) != img.Name {
			return fmt.Errorf("images[%d]: name %q must be a plain file name", i, img.Name)
		}
		if names[img.Name] {
			return fmt.Errorf("images[%d]: duplicate name %q", i, img.Name)
		}
		names[img.Name] = true

		if len(img.Shape) == 0 || len(img.Shape) > 7 {
			return fmt.Errorf("images[%d]: shape must have 1 to 7 dimensions", i)
		}
		for _, d := range img.Shape {
			if d < 1 {
				return fmt.Errorf("images[%d]: shape %v has a non-positive extent", i, img.Shape)
			}
		}
		if _, err := ir.NewImageFrom(img.Shape, img.Data); err != nil {
			return fmt.Errorf("images[%d]: %w", i, err)
		}
		if img.Datatype != "" {
			if _, err := cast.ParseDataType(img.Datatype); err != nil {
				return fmt.Errorf("images[%d].datatype: %w", i, err)
			}
		}
	}

	exp := s.Expect
	if exp.Error != "" && (exp.Shape != nil || exp.Data != nil || exp.Header != "") {
		return fmt.Errorf("expect: error excludes shape, data and header")
	}
	if exp.Error == "" && exp.Shape == nil && exp.Data == nil && exp.Header == "" {
		return fmt.Errorf("expect: one of error, shape, data or header is required")
	}
	if exp.Tolerance < 0 {
		return fmt.Errorf("expect.tolerance must be non-negative")
	}
	if exp.Header != "" && !names[exp.Header] {
		return fmt.Errorf("expect.header %q is not one of the scenario images", exp.Header)
	}
	return nil
}
