package descriptor

import (
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/ethpandaops/labdesc/pkg/types"
)

// Validate checks d against the descriptor schema and returns every
// violation found.
func Validate(d *types.LabDescriptor) field.ErrorList {
	var errs field.ErrorList

	if blank(d.Title) {
		errs = append(errs, field.Required(field.NewPath("title"), ""))
	}

	if blank(d.Description) {
		errs = append(errs, field.Required(field.NewPath("description"), ""))
	}

	details := field.NewPath("details")
	stepsPath := details.Child("steps")

	switch {
	case d.Details.Steps == nil:
		errs = append(errs, field.Required(stepsPath, ""))
	case len(d.Details.Steps) == 0:
		errs = append(errs, field.Required(stepsPath, "must contain at least one step"))
	}

	for i, step := range d.Details.Steps {
		errs = append(errs, validateStep(step, stepsPath.Index(i))...)
	}

	if d.Details.Intro != nil {
		errs = append(errs, validateSection(d.Details.Intro, details.Child("intro"))...)
	}

	if d.Details.Finish != nil {
		errs = append(errs, validateSection(d.Details.Finish, details.Child("finish"))...)
	}

	return errs
}

func validateStep(step types.Step, p *field.Path) field.ErrorList {
	var errs field.ErrorList

	if blank(step.Title) {
		errs = append(errs, field.Required(p.Child("title"), ""))
	}

	if blank(step.Text) {
		errs = append(errs, field.Required(p.Child("text"), ""))
	}

	if blank(step.Verify) {
		errs = append(errs, field.Required(p.Child("verify"), ""))
	}

	return errs
}

func validateSection(s *types.Section, p *field.Path) field.ErrorList {
	if blank(s.Text) {
		return field.ErrorList{field.Required(p.Child("text"), "")}
	}

	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// checkTypes reports every value of a decoded document whose JSON type does
// not match the descriptor schema. Absent and null values are left to
// Validate.
func checkTypes(raw map[string]any) field.ErrorList {
	c := &typeChecker{}

	c.stringFields(raw, nil, "title", "description")

	backendPath := field.NewPath("backend")
	if backend, ok := c.object(raw["backend"], backendPath); ok {
		c.stringFields(backend, backendPath, "imageid")
	}

	detailsPath := field.NewPath("details")

	details, ok := c.object(raw["details"], detailsPath)
	if !ok {
		return c.errs
	}

	stepsPath := detailsPath.Child("steps")
	if steps, ok := c.array(details["steps"], stepsPath); ok {
		for i, item := range steps {
			p := stepsPath.Index(i)
			if step, ok := c.object(item, p); ok {
				c.stringFields(step, p, "title", "text", "verify", "background", "foreground")
			}
		}
	}

	for _, name := range []string{"intro", "finish"} {
		p := detailsPath.Child(name)
		if section, ok := c.object(details[name], p); ok {
			c.stringFields(section, p, "text", "courseData", "background", "foreground")
		}
	}

	return c.errs
}

type typeChecker struct {
	errs field.ErrorList
}

func (c *typeChecker) object(v any, p *field.Path) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}

	obj, ok := v.(map[string]any)
	if !ok {
		c.errs = append(c.errs, mistyped(p, v, "object"))
	}

	return obj, ok
}

func (c *typeChecker) array(v any, p *field.Path) ([]any, bool) {
	if v == nil {
		return nil, false
	}

	items, ok := v.([]any)
	if !ok {
		c.errs = append(c.errs, mistyped(p, v, "array"))
	}

	return items, ok
}

func (c *typeChecker) stringFields(obj map[string]any, parent *field.Path, keys ...string) {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}

		if _, ok := v.(string); ok {
			continue
		}

		p := field.NewPath(key)
		if parent != nil {
			p = parent.Child(key)
		}

		c.errs = append(c.errs, mistyped(p, v, "string"))
	}
}

func mistyped(p *field.Path, v any, want string) *field.Error {
	switch v.(type) {
	case map[string]any:
		return field.Invalid(p, "<object>", "must be of type "+want)
	case []any:
		return field.Invalid(p, "<array>", "must be of type "+want)
	default:
		return field.Invalid(p, v, "must be of type "+want)
	}
}

// uncovered drops the violations of errs that sit at or below a path already
// reported in reported. A mistyped value decodes as empty and would otherwise
// be reported twice.
func uncovered(errs, reported field.ErrorList) field.ErrorList {
	var out field.ErrorList

	for _, e := range errs {
		if !coveredBy(e.Field, reported) {
			out = append(out, e)
		}
	}

	return out
}

func coveredBy(p string, reported field.ErrorList) bool {
	for _, r := range reported {
		if p == r.Field || strings.HasPrefix(p, r.Field+".") || strings.HasPrefix(p, r.Field+"[") {
			return true
		}
	}

	return false
}
