// Package resolver maps schema type annotations onto the type expressions of
// every generated target, together with the marshalling each platform
// boundary needs.
package resolver

import (
	"fmt"

	"github.com/momo-AUX1/craby/model"
)

// Family is the collapsed shape of a supported annotation. Every numeric
// annotation is a number, every string annotation is a string.
type Family int

const (
	FamilyBoolean Family = iota
	FamilyNumber
	FamilyString
	FamilyVoid
)

func (f Family) String() string {
	switch f {
	case FamilyBoolean:
		return "Boolean"
	case FamilyNumber:
		return "Number"
	case FamilyString:
		return "String"
	case FamilyVoid:
		return "Void"
	default:
		return "unknown"
	}
}

// Families lists every supported family in a fixed order.
var Families = []Family{FamilyBoolean, FamilyNumber, FamilyString, FamilyVoid}

// Target selects which generated file a type expression is written into.
type Target int

const (
	// Host is the Rust trait and module block.
	Host Target = iota
	// Bridge is the Rust side of the cxx bridge.
	Bridge
	// Cxx is the C++ side of the cxx bridge.
	Cxx
	// Android is the Rust JNI shim.
	Android
	// IOS is the Rust C-ABI shim.
	IOS
	// CHeader is the C declaration of the iOS shim.
	CHeader
	// Kotlin is the Kotlin external declaration.
	Kotlin
)

func (t Target) String() string {
	switch t {
	case Host:
		return "host"
	case Bridge:
		return "bridge"
	case Cxx:
		return "cxx"
	case Android:
		return "android"
	case IOS:
		return "ios"
	case CHeader:
		return "c"
	case Kotlin:
		return "kotlin"
	default:
		return "unknown"
	}
}

// baseTypes is indexed by target, then family.
var baseTypes = map[Target][4]string{
	Host:    {"bool", "f64", "String", "()"},
	Bridge:  {"bool", "f64", "String", "()"},
	Cxx:     {"bool", "double", "rust::String", "void"},
	Android: {"jboolean", "jdouble", "jstring", "()"},
	IOS:     {"bool", "c_double", "*const c_char", "()"},
	CHeader: {"bool", "double", "const char *", "void"},
	Kotlin:  {"Boolean", "Double", "String", "Unit"},
}

// Type is a resolved type expression for one target.
type Type struct {
	Family   Family
	Nullable bool
	Target   Target
	Expr     string
}

// IsVoid reports whether the type produces no value.
func (t *Type) IsVoid() bool { return t.Family == FamilyVoid }

// Classify collapses an annotation into its family, unwrapping any number of
// nullable layers.
func Classify(t model.TypeAnnotation) (Family, bool, error) {
	inner, nullable := model.UnwrapNullable(t)
	switch inner.(type) {
	case model.BooleanType:
		return FamilyBoolean, nullable, nil
	case model.NumberType, model.FloatType, model.DoubleType, model.Int32Type, model.NumberLiteralType:
		return FamilyNumber, nullable, nil
	case model.StringType, model.StringLiteralType, model.StringLiteralUnionType:
		return FamilyString, nullable, nil
	case model.VoidType:
		return FamilyVoid, false, nil
	case model.ReservedType, model.EnumDeclaration, model.ArrayType, model.FunctionType,
		model.GenericObjectType, model.ObjectType, model.UnionType, model.MixedType,
		model.TypeAliasType:
		return 0, false, &UnsupportedTypeError{Kind: inner.Kind()}
	default:
		return 0, false, &UnsupportedTypeError{Kind: model.Kind(fmt.Sprintf("%T", inner))}
	}
}

// Resolve maps an annotation onto target. optional and nullable both lower
// to a single nullable wrapper; the wrapper is never nested.
func Resolve(t model.TypeAnnotation, optional bool, target Target) (*Type, error) {
	family, nullable, err := Classify(t)
	if err != nil {
		return nil, err
	}
	if family != FamilyVoid {
		nullable = nullable || optional
	}
	return Expr(family, nullable, target), nil
}

// Expr renders a family on target.
func Expr(family Family, nullable bool, target Target) *Type {
	base := baseTypes[target][family]
	out := &Type{Family: family, Nullable: nullable, Target: target, Expr: base}
	if !nullable || family == FamilyVoid {
		out.Nullable = false
		return out
	}
	switch target {
	case Host:
		out.Expr = "Option<" + base + ">"
	case Bridge:
		out.Expr = NullableStructName(family)
	case Cxx:
		out.Expr = "craby::bridging::" + NullableStructName(family)
	case Kotlin:
		// JNI passes scalars unboxed, so only references can be null.
		if family == FamilyString {
			out.Expr = base + "?"
		}
	}
	return out
}

// NullableStructName is the cxx shared struct carrying an optional value of
// family, e.g. NullableNumber.
func NullableStructName(family Family) string {
	return "Nullable" + family.String()
}
