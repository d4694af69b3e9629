package query

import "fmt"

// ValidationResult lists predicates that are legal but probably mistakes.
type ValidationResult struct {
	// Valid is true when there are no warnings.
	Valid bool

	// Warnings describes each suspicious predicate.
	Warnings []string
}

// Validate inspects a predicate tree without evaluating it.
//
// It flags:
//   - nil entries inside And (they match everything)
//   - Equals with an empty field name (never matches)
//   - Status with an empty value (matches only records without a status)
//   - Text naming an empty field
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validate(p, false)
	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validate(p Predicate, nested bool) {
	switch pred := deref(p).(type) {
	case nil:
		if nested {
			v.addWarning("nil predicate inside And matches every record")
		}
	case Category:
		// Any value is meaningful; "" and "all" are the wildcard.
	case Status:
		v.validateStatus(pred)
	case Text:
		v.validateText(pred)
	case Equals:
		v.validateEquals(pred)
	case And:
		v.validateAnd(pred)
	default:
		v.addWarning("unknown predicate type %T", p)
	}
}

func (v *validator) validateStatus(s Status) {
	if s.Value == "" {
		v.addWarning("status compared to empty value - matches only records without a status")
	}
}

func (v *validator) validateText(t Text) {
	for i, f := range t.Fields {
		if f == "" {
			v.addWarning("text field %d is empty", i)
		}
	}
}

func (v *validator) validateEquals(eq Equals) {
	if eq.Field == "" {
		v.addWarning("equals with empty field name never matches (value %q)", eq.Value)
	}
}

func (v *validator) validateAnd(a And) {
	for _, p := range a.Predicates {
		v.validate(p, true)
	}
}
