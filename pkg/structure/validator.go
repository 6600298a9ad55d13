package structure

import (
	"strconv"
	"strings"
)

// Finding codes.
const (
	CodeMissingDir        = "missing-dir"
	CodeMissingFile       = "missing-file"
	CodeInvalidFile       = "invalid-file"
	CodeEmptyDir          = "empty-dir"
	CodeRecommendedFields = "recommended-fields"
)

// Finding is one discrepancy between a tree and its schema.
type Finding struct {
	Severity  Severity `json:"severity"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Path      string   `json:"path"`
	Validator string   `json:"validator,omitempty"`
	Detail    []string `json:"detail,omitempty"`
}

// Validator diffs a resolved schema against a snapshot.
type Validator struct {
	Catalog *Catalog
}

// NewValidator returns a validator over catalog, or the default catalog.
func NewValidator(catalog *Catalog) *Validator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Validator{Catalog: catalog}
}

// Diff returns findings ordered as: missing dirs, missing files, invalid
// files, soft checks. Within each group schema declaration order is kept.
func (v *Validator) Diff(schema *ResolvedSchema, snap *Snapshot, module string) []Finding {
	inst := schema.Instantiate(module)

	var dirs, missing, invalid, soft []Finding

	for _, d := range inst.RequiredDirs {
		if !snap.IsDir(d) {
			dirs = append(dirs, Finding{
				Severity: SeverityError,
				Code:     CodeMissingDir,
				Message:  "missing required directory",
				Path:     d,
			})
			continue
		}
		if n, ok := snap.ChildCount(d); ok && n == 0 {
			soft = append(soft, Finding{
				Severity: SeverityWarning,
				Code:     CodeEmptyDir,
				Message:  "empty directory",
				Path:     d,
			})
		}
	}

	for _, f := range inst.RequiredFiles {
		if !snap.IsFile(f.Path) {
			finding := Finding{
				Severity: SeverityError,
				Code:     CodeMissingFile,
				Message:  "missing required file",
				Path:     f.Path,
			}
			if f.Description != "" {
				finding.Detail = []string{f.Description}
			}
			missing = append(missing, finding)
			continue
		}
		invalid = append(invalid, v.runValidators(f, snap.Observations(f.Path))...)
	}
	for _, f := range inst.OptionalFiles {
		if _, required := inst.RequiredFiles.Lookup(f.Path); required {
			continue
		}
		if !snap.IsFile(f.Path) {
			continue
		}
		invalid = append(invalid, v.runValidators(f, snap.Observations(f.Path))...)
	}

	for _, m := range inst.RecommendedFields {
		if !snap.IsFile(m.Path) {
			continue
		}
		manifest := snap.Observations(m.Path).Manifest
		if manifest == nil {
			continue
		}
		var absent []string
		for _, key := range m.Fields {
			if !manifest.Has(key) {
				absent = append(absent, key)
			}
		}
		if len(absent) > 0 {
			soft = append(soft, Finding{
				Severity: SeverityInfo,
				Code:     CodeRecommendedFields,
				Message:  "missing recommended fields",
				Path:     m.Path,
				Detail:   absent,
			})
		}
	}

	out := make([]Finding, 0, len(dirs)+len(missing)+len(invalid)+len(soft))
	out = append(out, dirs...)
	out = append(out, missing...)
	out = append(out, invalid...)
	out = append(out, soft...)
	return out
}

func (v *Validator) runValidators(f FileEntry, obs *Observations) []Finding {
	var out []Finding
	for _, id := range f.Validators {
		spec, ok := v.Catalog.Lookup(id)
		if !ok {
			// Unknown ids are rejected when the schema resolves.
			continue
		}
		res := spec.Check(obs)
		if res.Passed {
			continue
		}
		out = append(out, Finding{
			Severity:  spec.Severity,
			Code:      CodeInvalidFile,
			Message:   res.Message,
			Path:      f.Path,
			Validator: id,
			Detail:    res.Detail,
		})
		if spec.Fatal {
			break
		}
	}
	return out
}

// Passed reports whether findings contain no error.
func Passed(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Summary counts findings per severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Total returns the number of findings counted.
func (s Summary) Total() int { return s.Errors + s.Warnings + s.Infos }

// String renders the summary as "N errors, N warnings, N info".
func (s Summary) String() string {
	return strings.Join([]string{
		plural(s.Errors, "error", "errors"),
		plural(s.Warnings, "warning", "warnings"),
		plural(s.Infos, "info", "info"),
	}, ", ")
}

// Summarize counts findings per severity.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		default:
			s.Infos++
		}
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
