package codec

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// shapeValidator checks JSON elements against the embedded definitions.
// A cue.Context is not safe for concurrent use, hence the mutex.
type shapeValidator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
	defs   map[string]cue.Value
}

var (
	validatorOnce sync.Once
	validatorInst *shapeValidator
	validatorErr  error
)

func loadValidator() (*shapeValidator, error) {
	validatorOnce.Do(func() {
		ctx := cuecontext.New()
		schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := schema.Err(); err != nil {
			validatorErr = fmt.Errorf("compile record schema: %s", cueerrors.Details(err, nil))
			return
		}
		validatorInst = &shapeValidator{
			ctx:    ctx,
			schema: schema,
			defs:   make(map[string]cue.Value),
		}
	})
	return validatorInst, validatorErr
}

// validate checks one JSON element against the definition named kind.
func validate(kind string, elem []byte) error {
	v, err := loadValidator()
	if err != nil {
		return err
	}
	return v.check(kind, elem)
}

func (v *shapeValidator) check(kind string, elem []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	def, ok := v.defs[kind]
	if !ok {
		def = v.schema.LookupPath(cue.ParsePath("#" + kind))
		if !def.Exists() {
			return fmt.Errorf("no shape definition for %s", kind)
		}
		v.defs[kind] = def
	}

	data := v.ctx.CompileBytes(elem)
	if err := data.Err(); err != nil {
		return fmt.Errorf("compile element: %s", cueerrors.Details(err, nil))
	}
	if err := def.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return errors.New(cueerrors.Details(err, nil))
	}
	return nil
}

// Kinds lists the record kinds with shape definitions.
func Kinds() []string {
	return []string{
		"CatalogItem", "User", "CrmData", "Form", "FormSubmission",
		"Order", "Purchase", "CourseProgress", "Course",
	}
}
