package structure

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank orders severities from most to least severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Outcome is the result of one validator run.
type Outcome struct {
	Passed  bool
	Message string
	Detail  []string
}

func pass() Outcome { return Outcome{Passed: true} }

func fail(msg string, detail ...string) Outcome {
	return Outcome{Message: msg, Detail: detail}
}

// Check is a pure predicate over the observations of one file.
type Check func(obs *Observations) Outcome

// ValidatorSpec describes a catalog entry.
type ValidatorSpec struct {
	ID          string
	Description string
	Severity    Severity
	// Fatal stops the remaining validators for the same file on failure.
	Fatal bool
	Needs []ObservationKind
	Check Check
}

// Catalog maps validator ids to their specs.
type Catalog struct {
	specs map[string]ValidatorSpec
}

// NewCatalog builds a catalog from the given specs. Later ids win.
func NewCatalog(specs ...ValidatorSpec) *Catalog {
	c := &Catalog{specs: make(map[string]ValidatorSpec, len(specs))}
	for _, s := range specs {
		c.specs[s.ID] = s
	}
	return c
}

// Lookup returns the spec registered under id.
func (c *Catalog) Lookup(id string) (ValidatorSpec, bool) {
	if c == nil {
		return ValidatorSpec{}, false
	}
	s, ok := c.specs[id]
	return s, ok
}

// IDs returns all registered ids, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.specs))
	for id := range c.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var defaultCatalog = NewCatalog(
	ValidatorSpec{
		ID:          "is_valid_toml",
		Description: "manifest parses as TOML",
		Severity:    SeverityError,
		Fatal:       true,
		Needs:       []ObservationKind{ObserveManifest},
		Check:       checkValidTOML,
	},
	ValidatorSpec{
		ID:          "has_valid_name",
		Description: "project.name is a valid distribution name",
		Severity:    SeverityError,
		Needs:       []ObservationKind{ObserveManifest},
		Check:       checkValidName,
	},
	ValidatorSpec{
		ID:          "has_valid_version",
		Description: "project.version is a valid version",
		Severity:    SeverityError,
		Needs:       []ObservationKind{ObserveManifest},
		Check:       checkValidVersion,
	},
	ValidatorSpec{
		ID:          "has_description",
		Description: "project.description is set",
		Severity:    SeverityWarning,
		Needs:       []ObservationKind{ObserveManifest},
		Check:       requireNonEmpty("project.description", "missing project description"),
	},
	ValidatorSpec{
		ID:          "has_authors",
		Description: "project.authors is set",
		Severity:    SeverityWarning,
		Needs:       []ObservationKind{ObserveManifest},
		Check:       requireKey("project.authors", "missing project authors"),
	},
	ValidatorSpec{
		ID:          "has_python_requirement",
		Description: "project.requires-python is set",
		Severity:    SeverityWarning,
		Needs:       []ObservationKind{ObserveManifest},
		Check:       requireKey("project.requires-python", "missing requires-python constraint"),
	},
	ValidatorSpec{
		ID:          "has_cli_setup",
		Description: "project.scripts declares an entry point",
		Severity:    SeverityError,
		Needs:       []ObservationKind{ObserveManifest},
		Check:       requireKey("project.scripts", "missing CLI entry point in [project.scripts]"),
	},
	ValidatorSpec{
		ID:          "has_dev_dependencies",
		Description: "dev extras are declared",
		Severity:    SeverityInfo,
		Needs:       []ObservationKind{ObserveManifest},
		Check:       requireKey("project.optional-dependencies.dev", "no dev dependencies declared"),
	},
	ValidatorSpec{
		ID:          "has_web_framework",
		Description: "dependencies include a web framework",
		Severity:    SeverityWarning,
		Needs:       []ObservationKind{ObserveManifest},
		Check:       requireDependency("no web framework in dependencies", "fastapi", "flask", "django", "starlette"),
	},
	ValidatorSpec{
		ID:          "has_data_stack",
		Description: "dependencies include a data library",
		Severity:    SeverityInfo,
		Needs:       []ObservationKind{ObserveManifest},
		Check:       requireDependency("no data library in dependencies", "numpy", "pandas", "polars"),
	},
	ValidatorSpec{
		ID:          "has_title",
		Description: "document has a level-1 title",
		Severity:    SeverityWarning,
		Needs:       []ObservationKind{ObserveHeaders},
		Check:       checkTitle,
	},
	ValidatorSpec{
		ID:          "has_sections",
		Description: "document has Description, Installation and Usage sections",
		Severity:    SeverityWarning,
		Needs:       []ObservationKind{ObserveHeaders},
		Check:       checkSections,
	},
	ValidatorSpec{
		ID:          "has_version",
		Description: "module assigns __version__",
		Severity:    SeverityWarning,
		Needs:       []ObservationKind{ObserveVersion},
		Check:       checkVersionAssigned,
	},
)

// DefaultCatalog returns the built-in validator catalog.
func DefaultCatalog() *Catalog { return defaultCatalog }

// PEP 508 distribution name.
var nameRe = regexp.MustCompile(`(?i)^([a-z0-9]|[a-z0-9][a-z0-9._-]*[a-z0-9])$`)

// PEP 440 public version with an optional local segment.
var versionRe = regexp.MustCompile(`(?i)^v?(\d+!)?\d+(\.\d+)*((a|b|rc)\d+)?(\.post\d+)?(\.dev\d+)?(\+[a-z0-9]+([._-][a-z0-9]+)*)?$`)

var requiredSections = []string{"Description", "Installation", "Usage"}

func checkValidTOML(obs *Observations) Outcome {
	if obs.Manifest == nil {
		if obs.ManifestError != "" {
			return fail("invalid TOML", obs.ManifestError)
		}
		return fail("invalid TOML")
	}
	return pass()
}

func checkValidName(obs *Observations) Outcome {
	if obs.Manifest == nil {
		return fail("missing project name")
	}
	name, ok := obs.Manifest.String("project.name")
	if !ok || name == "" {
		return fail("missing project name")
	}
	if !nameRe.MatchString(name) {
		return fail(fmt.Sprintf("invalid project name %q", name),
			"use letters, digits, '.', '_' or '-', starting and ending with a letter or digit")
	}
	return pass()
}

func checkValidVersion(obs *Observations) Outcome {
	if obs.Manifest == nil {
		return fail("missing project version")
	}
	if obs.Manifest.Contains("project.dynamic", "version") {
		return pass()
	}
	v, ok := obs.Manifest.String("project.version")
	if !ok || v == "" {
		return fail("missing project version", "set project.version or list it in project.dynamic")
	}
	if !versionRe.MatchString(v) {
		return fail(fmt.Sprintf("invalid project version %q", v), "expected a PEP 440 version such as 1.2.0")
	}
	return pass()
}

func requireKey(key, msg string) Check {
	return func(obs *Observations) Outcome {
		if obs.Manifest == nil || !obs.Manifest.Has(key) {
			return fail(msg, "add "+key)
		}
		return pass()
	}
}

func requireNonEmpty(key, msg string) Check {
	return func(obs *Observations) Outcome {
		if obs.Manifest == nil {
			return fail(msg, "add "+key)
		}
		if s, ok := obs.Manifest.String(key); !ok || strings.TrimSpace(s) == "" {
			return fail(msg, "add "+key)
		}
		return pass()
	}
}

func requireDependency(msg string, candidates ...string) Check {
	return func(obs *Observations) Outcome {
		if obs.Manifest == nil {
			return fail(msg)
		}
		for _, dep := range obs.Manifest.Strings("project.dependencies") {
			name := dependencyName(dep)
			for _, c := range candidates {
				if name == c {
					return pass()
				}
			}
		}
		return fail(msg, "expected one of: "+strings.Join(candidates, ", "))
	}
}

// dependencyName extracts the normalized distribution name from a PEP 508
// requirement string such as "FastAPI[all] >= 0.100".
func dependencyName(req string) string {
	req = strings.TrimSpace(req)
	end := len(req)
	for i, r := range req {
		if !(r == '-' || r == '_' || r == '.' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			end = i
			break
		}
	}
	return strings.ToLower(strings.ReplaceAll(req[:end], "_", "-"))
}

func checkTitle(obs *Observations) Outcome {
	for _, h := range obs.Headers {
		if h.Level == 1 {
			return pass()
		}
	}
	return fail("missing title", "add a level-1 header (# Title)")
}

func checkSections(obs *Observations) Outcome {
	var missing []string
	for _, want := range requiredSections {
		found := false
		for _, h := range obs.Headers {
			if h.Level <= 2 && strings.HasPrefix(strings.ToLower(h.Text), strings.ToLower(want)) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, "add section: "+want)
		}
	}
	if len(missing) > 0 {
		return fail("missing sections", missing...)
	}
	return pass()
}

func checkVersionAssigned(obs *Observations) Outcome {
	if !obs.HasVersion {
		return fail("missing __version__", `add __version__ = "0.1.0"`)
	}
	return pass()
}
