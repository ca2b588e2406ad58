package shader

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
)

// ErrLayoutMismatch is returned when a Go record and the WGSL struct it mirrors disagree on layout.
var ErrLayoutMismatch = errors.New("shader: layout mismatch")

// wgslTag is the struct tag naming the WGSL member a Go field mirrors.
const wgslTag = "wgsl"

// LayoutBinding pairs a Go record value with the name of the WGSL struct it mirrors.
type LayoutBinding struct {
	Struct string
	Record any
}

// RecordLayouts lists every fixed-layout record shared with WGSL programs.
var RecordLayouts = []LayoutBinding{
	{Struct: "VertexUniforms", Record: layout.VertexUniforms{}},
	{Struct: "FragmentUniforms", Record: layout.FragmentUniforms{}},
	{Struct: "MeshDescriptor", Record: layout.MeshDescriptor{}},
	{Struct: "IndirectArgs", Record: layout.IndirectArgs{}},
	{Struct: "DrawArgument", Record: layout.DrawArgument{}},
	{Struct: "MaterialRecord", Record: layout.MaterialRecord{}},
	{Struct: "CullUniforms", Record: layout.CullUniforms{}},
}

// RecordSources returns the canonical WGSL sources of every record in RecordLayouts.
func RecordSources() string {
	return strings.Join([]string{
		layout.VertexUniformsSource,
		layout.FragmentUniformsSource,
		layout.MeshDescriptorSource,
		layout.IndirectArgsSource,
		layout.DrawArgumentSource,
		layout.MaterialRecordSource,
		layout.CullUniformsSource,
	}, "\n")
}

// VerifyRecordLayouts checks every shared record against its canonical WGSL definition.
// The renderer runs it once at startup.
//
// Returns:
//   - error: nil when every record agrees, otherwise every mismatch joined, each wrapping ErrLayoutMismatch
func VerifyRecordLayouts() error {
	return VerifyLayouts(RecordSources(), RecordLayouts...)
}

// VerifyLayouts compares the WGSL layout of each named struct in source with the Go layout of its record.
// Members are matched in declaration order; names come from the `wgsl` tag of each Go field.
// Offsets, member sizes and the total struct size must all agree.
//
// Parameters:
//   - source: WGSL source declaring the structs
//   - bindings: the records to check
//
// Returns:
//   - error: nil on agreement, otherwise every mismatch joined, each wrapping ErrLayoutMismatch
func VerifyLayouts(source string, bindings ...LayoutBinding) error {
	layouts := ParseStructLayouts(source)

	var errs []error
	for _, b := range bindings {
		sl, ok := layouts[b.Struct]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: struct %s is not declared in WGSL or has unresolved member types", ErrLayoutMismatch, b.Struct))
			continue
		}
		errs = append(errs, compareLayout(sl, b.Record)...)
	}
	return errors.Join(errs...)
}

func compareLayout(sl StructLayout, record any) []error {
	rt := reflect.TypeOf(record)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return []error{fmt.Errorf("%w: %s: record %T is not a struct", ErrLayoutMismatch, sl.Name, record)}
	}

	var errs []error
	mismatch := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrLayoutMismatch, sl.Name, fmt.Sprintf(format, args...)))
	}

	if rt.NumField() != len(sl.Members) {
		mismatch("Go type %s has %d fields, WGSL has %d members", rt.Name(), rt.NumField(), len(sl.Members))
	}

	for i := 0; i < min(rt.NumField(), len(sl.Members)); i++ {
		f := rt.Field(i)
		m := sl.Members[i]
		name := f.Tag.Get(wgslTag)
		if name == "" {
			mismatch("field %d (%s) has no wgsl tag", i, f.Name)
			continue
		}
		if name != m.Name {
			mismatch("field %d is %q in Go, %q in WGSL", i, name, m.Name)
		}
		if uint64(f.Offset) != m.Offset {
			mismatch("%s at offset %d in Go, %d in WGSL", m.Name, f.Offset, m.Offset)
		}
		if m.Size > 0 && uint64(f.Type.Size()) != m.Size {
			mismatch("%s is %d bytes in Go, %d in WGSL", m.Name, f.Type.Size(), m.Size)
		}
	}

	if uint64(rt.Size()) != sl.Size {
		mismatch("size %d in Go, %d in WGSL", rt.Size(), sl.Size)
	}
	return errs
}
