package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Extras holds fields present in stored data that the Go type does not
// model. They are written back unchanged so newer writers do not lose data
// to older readers.
type Extras map[string]json.RawMessage

// Field returns the extra field as text. JSON strings are unquoted; other
// JSON values are returned verbatim.
func (e Extras) Field(name string) (string, bool) {
	raw, ok := e[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}

var knownFieldCache sync.Map // reflect.Type -> map[string]struct{}

// knownFields returns the lower-cased JSON names of t's exported fields.
// Matching is case-insensitive because encoding/json matches that way.
func knownFields(t reflect.Type) map[string]struct{} {
	if cached, ok := knownFieldCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	known := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		known[strings.ToLower(name)] = struct{}{}
	}
	knownFieldCache.Store(t, known)
	return known
}

// marshalWithExtras encodes v and merges extra into the resulting object.
// v must be a method-less copy of the record type to avoid recursion.
func marshalWithExtras(v any, extra Extras) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, exists := fields[k]; !exists {
			fields[k] = raw
		}
	}
	return json.Marshal(fields)
}

// unmarshalWithExtras decodes data into v (a pointer to a method-less copy of
// the record type) and returns the fields v does not model.
func unmarshalWithExtras(data []byte, v any) (Extras, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	known := knownFields(reflect.TypeOf(v).Elem())
	var extra Extras
	for k, raw := range fields {
		if _, ok := known[strings.ToLower(k)]; ok {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("extra field %q: %w", k, err)
		}
		if extra == nil {
			extra = make(Extras)
		}
		extra[k] = json.RawMessage(buf.Bytes())
	}
	return extra, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (c CatalogItem) MarshalJSON() ([]byte, error) {
	type plain CatalogItem
	return marshalWithExtras(plain(c), c.Extra)
}

func (c *CatalogItem) UnmarshalJSON(data []byte) error {
	type plain CatalogItem
	var p plain
	extra, err := unmarshalWithExtras(data, &p)
	if err != nil {
		return err
	}
	*c = CatalogItem(p)
	c.Extra = extra
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return marshalWithExtras(plain(u), u.Extra)
}

func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	extra, err := unmarshalWithExtras(data, &p)
	if err != nil {
		return err
	}
	*u = User(p)
	u.Extra = extra
	return nil
}

func (c CrmData) MarshalJSON() ([]byte, error) {
	type plain CrmData
	return marshalWithExtras(plain(c), c.Extra)
}

func (c *CrmData) UnmarshalJSON(data []byte) error {
	type plain CrmData
	var p plain
	extra, err := unmarshalWithExtras(data, &p)
	if err != nil {
		return err
	}
	*c = CrmData(p)
	c.Extra = extra
	return nil
}

func (f FormField) MarshalJSON() ([]byte, error) {
	type plain FormField
	return marshalWithExtras(plain(f), f.Extra)
}

func (f *FormField) UnmarshalJSON(data []byte) error {
	type plain FormField
	var p plain
	extra, err := unmarshalWithExtras(data, &p)
	if err != nil {
		return err
	}
	*f = FormField(p)
	f.Extra = extra
	return nil
}

func (f Form) MarshalJSON() ([]byte, error) {
	type plain Form
	return marshalWithExtras(plain(f), f.Extra)
}

func (f *Form) UnmarshalJSON(data []byte) error {
	type plain Form
	var p plain
	extra, err := unmarshalWithExtras(data, &p)
	if err != nil {
		return err
	}
	*f = Form(p)
	f.Extra = extra
	return nil
}

func (s FormSubmission) MarshalJSON() ([]byte, error) {
	type plain FormSubmission
	return marshalWithExtras(plain(s), s.Extra)
}

func (s *FormSubmission) UnmarshalJSON(data []byte) error {
	type plain FormSubmission
	var p plain
	extra, err := unmarshalWithExtras(data, &p)
	if err != nil {
		return err
	}
	*s = FormSubmission(p)
	s.Extra = extra
	return nil
}

func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return marshalWithExtras(plain(o), o.Extra)
}

func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	var p plain
	extra, err := unmarshalWithExtras(data, &p)
	if err != nil {
		return err
	}
	*o = Order(p)
	o.Extra = extra
	return nil
}

func (p Purchase) MarshalJSON() ([]byte, error) {
	type plain Purchase
	return marshalWithExtras(plain(p), p.Extra)
}

func (p *Purchase) UnmarshalJSON(data []byte) error {
	type plain Purchase
	var v plain
	extra, err := unmarshalWithExtras(data, &v)
	if err != nil {
		return err
	}
	*p = Purchase(v)
	p.Extra = extra
	return nil
}

func (p CourseProgress) MarshalJSON() ([]byte, error) {
	type plain CourseProgress
	return marshalWithExtras(plain(p), p.Extra)
}

func (p *CourseProgress) UnmarshalJSON(data []byte) error {
	type plain CourseProgress
	var v plain
	extra, err := unmarshalWithExtras(data, &v)
	if err != nil {
		return err
	}
	*p = CourseProgress(v)
	p.Extra = extra
	return nil
}

func (l Lesson) MarshalJSON() ([]byte, error) {
	type plain Lesson
	return marshalWithExtras(plain(l), l.Extra)
}

func (l *Lesson) UnmarshalJSON(data []byte) error {
	type plain Lesson
	var p plain
	extra, err := unmarshalWithExtras(data, &p)
	if err != nil {
		return err
	}
	*l = Lesson(p)
	l.Extra = extra
	return nil
}

func (m Module) MarshalJSON() ([]byte, error) {
	type plain Module
	return marshalWithExtras(plain(m), m.Extra)
}

func (m *Module) UnmarshalJSON(data []byte) error {
	type plain Module
	var p plain
	extra, err := unmarshalWithExtras(data, &p)
	if err != nil {
		return err
	}
	*m = Module(p)
	m.Extra = extra
	return nil
}

func (c Course) MarshalJSON() ([]byte, error) {
	type plain Course
	return marshalWithExtras(plain(c), c.Extra)
}

func (c *Course) UnmarshalJSON(data []byte) error {
	type plain Course
	var p plain
	extra, err := unmarshalWithExtras(data, &p)
	if err != nil {
		return err
	}
	*c = Course(p)
	c.Extra = extra
	return nil
}
