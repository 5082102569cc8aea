package domains

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// FieldKind is the comparison class of a snapshot column.
type FieldKind int

const (
	KindText FieldKind = iota
	KindInt
	KindBool
	KindTime
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Field describes one persisted Snapshot column.
type Field struct {
	Name  string
	Kind  FieldKind
	index int
}

// Value returns the field of s as stored: a typed pointer, or a string for hostname.
func (f Field) Value(s *Snapshot) any {
	return reflect.ValueOf(s).Elem().Field(f.index).Interface()
}

// Target returns a pointer to the field of s, suitable as a scan destination.
func (f Field) Target(s *Snapshot) any {
	return reflect.ValueOf(s).Elem().Field(f.index).Addr().Interface()
}

// Text returns the field as an optional string.
func (f Field) Text(s *Snapshot) *string {
	switch v := f.Value(s).(type) {
	case string:
		return &v
	case *string:
		return v
	default:
		return nil
	}
}

// Int returns the field as an optional int.
func (f Field) Int(s *Snapshot) *int {
	v, _ := f.Value(s).(*int)
	return v
}

// Bool returns the field as an optional bool.
func (f Field) Bool(s *Snapshot) *bool {
	v, _ := f.Value(s).(*bool)
	return v
}

var (
	snapshotFields []Field
	fieldsByName   map[string]Field
)

func init() {
	t := reflect.TypeOf(Snapshot{})
	fieldsByName = make(map[string]Field, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := sf.Tag.Get("db")
		if name == "" || name == "-" {
			continue
		}

		f := Field{Name: name, Kind: kindOf(sf.Type), index: i}
		snapshotFields = append(snapshotFields, f)
		fieldsByName[name] = f
	}
}

func kindOf(t reflect.Type) FieldKind {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == reflect.TypeOf(time.Time{}):
		return KindTime
	case t.Kind() == reflect.Int:
		return KindInt
	case t.Kind() == reflect.Bool:
		return KindBool
	default:
		return KindText
	}
}

// SnapshotFields returns every persisted column in declaration order.
func SnapshotFields() []Field {
	out := make([]Field, len(snapshotFields))
	copy(out, snapshotFields)
	return out
}

// LookupField finds a column by name, case-insensitively.
func LookupField(name string) (Field, error) {
	f, ok := fieldsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Field{}, fmt.Errorf("unknown device field %q", name)
	}
	return f, nil
}
