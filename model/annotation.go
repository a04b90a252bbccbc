package model

import (
	"encoding/json"
	"fmt"
)

// Kind is the discriminator carried in the "type" field of an annotation.
type Kind string

const (
	KindReserved           Kind = "ReservedTypeAnnotation"
	KindString             Kind = "StringTypeAnnotation"
	KindStringLiteral      Kind = "StringLiteralTypeAnnotation"
	KindStringLiteralUnion Kind = "StringLiteralUnionTypeAnnotation"
	KindBoolean            Kind = "BooleanTypeAnnotation"
	KindNumber             Kind = "NumberTypeAnnotation"
	KindFloat              Kind = "FloatTypeAnnotation"
	KindDouble             Kind = "DoubleTypeAnnotation"
	KindInt32              Kind = "Int32TypeAnnotation"
	KindNumberLiteral      Kind = "NumberLiteralTypeAnnotation"
	KindEnum               Kind = "EnumDeclaration"
	KindArray              Kind = "ArrayTypeAnnotation"
	KindFunction           Kind = "FunctionTypeAnnotation"
	KindGenericObject      Kind = "GenericObjectTypeAnnotation"
	KindObject             Kind = "ObjectTypeAnnotation"
	KindUnion              Kind = "UnionTypeAnnotation"
	KindMixed              Kind = "MixedTypeAnnotation"
	KindVoid               Kind = "VoidTypeAnnotation"
	KindNullable           Kind = "NullableTypeAnnotation"
	KindTypeAlias          Kind = "TypeAliasTypeAnnotation"
)

// kindAliases maps alternate spellings found in module documents onto a Kind.
var kindAliases = map[string]Kind{
	"EnumDeclarationWithMembers": KindEnum,
}

// TypeAnnotation is one node of a type-annotation tree. The set of
// implementations is closed; switch over them exhaustively.
type TypeAnnotation interface {
	Kind() Kind
	isTypeAnnotation()
}

type ReservedType struct{ Name string }
type StringType struct{}
type StringLiteralType struct{ Value string }
type StringLiteralUnionType struct{ Values []string }
type BooleanType struct{}
type NumberType struct{}
type FloatType struct{}
type DoubleType struct{}
type Int32Type struct{}
type NumberLiteralType struct{ Value float64 }

// EnumDeclaration is an enum with a member type tag and ordered members.
type EnumDeclaration struct {
	Name       string
	MemberType string
	Members    []EnumMember
}

// EnumMember is one enum entry. Value is the raw decoded JSON value.
type EnumMember struct {
	Name  string
	Value any
}

type ArrayType struct{ ElementType TypeAnnotation }

// FunctionType is the annotation of every method.
type FunctionType struct {
	ReturnType TypeAnnotation
	Params     []Parameter
}

type GenericObjectType struct{}

// ObjectType is an object literal type. Properties is nil when the
// document omitted them.
type ObjectType struct {
	Name       string
	Properties []ObjectProperty
}

// ObjectProperty is one field of an ObjectType.
type ObjectProperty struct {
	Name     string
	Optional bool
	Type     TypeAnnotation
}

type UnionType struct {
	MemberType string
	Types      []TypeAnnotation
}

type MixedType struct{}
type VoidType struct{}
type NullableType struct{ Inner TypeAnnotation }
type TypeAliasType struct{ Name string }

func (ReservedType) Kind() Kind           { return KindReserved }
func (StringType) Kind() Kind             { return KindString }
func (StringLiteralType) Kind() Kind      { return KindStringLiteral }
func (StringLiteralUnionType) Kind() Kind { return KindStringLiteralUnion }
func (BooleanType) Kind() Kind            { return KindBoolean }
func (NumberType) Kind() Kind             { return KindNumber }
func (FloatType) Kind() Kind              { return KindFloat }
func (DoubleType) Kind() Kind             { return KindDouble }
func (Int32Type) Kind() Kind              { return KindInt32 }
func (NumberLiteralType) Kind() Kind      { return KindNumberLiteral }
func (EnumDeclaration) Kind() Kind        { return KindEnum }
func (ArrayType) Kind() Kind              { return KindArray }
func (FunctionType) Kind() Kind           { return KindFunction }
func (GenericObjectType) Kind() Kind      { return KindGenericObject }
func (ObjectType) Kind() Kind             { return KindObject }
func (UnionType) Kind() Kind              { return KindUnion }
func (MixedType) Kind() Kind              { return KindMixed }
func (VoidType) Kind() Kind               { return KindVoid }
func (NullableType) Kind() Kind           { return KindNullable }
func (TypeAliasType) Kind() Kind          { return KindTypeAlias }

func (ReservedType) isTypeAnnotation()           {}
func (StringType) isTypeAnnotation()             {}
func (StringLiteralType) isTypeAnnotation()      {}
func (StringLiteralUnionType) isTypeAnnotation() {}
func (BooleanType) isTypeAnnotation()            {}
func (NumberType) isTypeAnnotation()             {}
func (FloatType) isTypeAnnotation()              {}
func (DoubleType) isTypeAnnotation()             {}
func (Int32Type) isTypeAnnotation()              {}
func (NumberLiteralType) isTypeAnnotation()      {}
func (EnumDeclaration) isTypeAnnotation()        {}
func (ArrayType) isTypeAnnotation()              {}
func (FunctionType) isTypeAnnotation()           {}
func (GenericObjectType) isTypeAnnotation()      {}
func (ObjectType) isTypeAnnotation()             {}
func (UnionType) isTypeAnnotation()              {}
func (MixedType) isTypeAnnotation()              {}
func (VoidType) isTypeAnnotation()               {}
func (NullableType) isTypeAnnotation()           {}
func (TypeAliasType) isTypeAnnotation()          {}

// UnwrapNullable strips every nullable layer and reports whether there was at
// least one.
func UnwrapNullable(t TypeAnnotation) (TypeAnnotation, bool) {
	n, ok := t.(NullableType)
	if !ok {
		return t, false
	}
	inner, _ := UnwrapNullable(n.Inner)
	return inner, true
}

// ---------- decoding ----------

// rawAnnotation is the union of every field any variant may carry.
type rawAnnotation struct {
	Type                 string            `json:"type"`
	Name                 string            `json:"name,omitempty"`
	Value                json.RawMessage   `json:"value,omitempty"`
	Values               []string          `json:"values,omitempty"`
	MemberType           string            `json:"memberType,omitempty"`
	Members              []rawEnumMember   `json:"members,omitempty"`
	ElementType          json.RawMessage   `json:"elementType,omitempty"`
	ReturnTypeAnnotation json.RawMessage   `json:"returnTypeAnnotation,omitempty"`
	Params               []rawParameter    `json:"params,omitempty"`
	Properties           []rawParameter    `json:"properties,omitempty"`
	Types                []json.RawMessage `json:"types,omitempty"`
	TypeAnnotation       json.RawMessage   `json:"typeAnnotation,omitempty"`
}

type rawEnumMember struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type rawParameter struct {
	Name           string          `json:"name"`
	Optional       bool            `json:"optional"`
	TypeAnnotation json.RawMessage `json:"typeAnnotation"`
}

// DecodeAnnotation decodes one annotation tree from JSON.
func DecodeAnnotation(data []byte) (TypeAnnotation, error) {
	var raw rawAnnotation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding type annotation: %w", err)
	}
	return raw.build()
}

func (r *rawAnnotation) build() (TypeAnnotation, error) {
	kind := Kind(r.Type)
	if alias, ok := kindAliases[r.Type]; ok {
		kind = alias
	}

	switch kind {
	case KindReserved:
		return ReservedType{Name: r.Name}, nil
	case KindString:
		return StringType{}, nil
	case KindStringLiteral:
		var v string
		if err := unmarshalValue(r.Value, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return StringLiteralType{Value: v}, nil
	case KindStringLiteralUnion:
		return StringLiteralUnionType{Values: r.Values}, nil
	case KindBoolean:
		return BooleanType{}, nil
	case KindNumber:
		return NumberType{}, nil
	case KindFloat:
		return FloatType{}, nil
	case KindDouble:
		return DoubleType{}, nil
	case KindInt32:
		return Int32Type{}, nil
	case KindNumberLiteral:
		var v float64
		if err := unmarshalValue(r.Value, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return NumberLiteralType{Value: v}, nil
	case KindEnum:
		members := make([]EnumMember, len(r.Members))
		for i, m := range r.Members {
			members[i] = EnumMember{Name: m.Name, Value: m.Value}
		}
		return EnumDeclaration{Name: r.Name, MemberType: r.MemberType, Members: members}, nil
	case KindArray:
		elem, err := decodeChild(r.ElementType, "elementType")
		if err != nil {
			return nil, err
		}
		return ArrayType{ElementType: elem}, nil
	case KindFunction:
		ret, err := decodeChild(r.ReturnTypeAnnotation, "returnTypeAnnotation")
		if err != nil {
			return nil, err
		}
		params, err := buildParams(r.Params)
		if err != nil {
			return nil, err
		}
		return FunctionType{ReturnType: ret, Params: params}, nil
	case KindGenericObject:
		return GenericObjectType{}, nil
	case KindObject:
		var props []ObjectProperty
		if r.Properties != nil {
			params, err := buildParams(r.Properties)
			if err != nil {
				return nil, err
			}
			props = make([]ObjectProperty, len(params))
			for i, p := range params {
				props[i] = ObjectProperty{Name: p.Name, Optional: p.Optional, Type: p.Type}
			}
		}
		return ObjectType{Name: r.Name, Properties: props}, nil
	case KindUnion:
		types := make([]TypeAnnotation, 0, len(r.Types))
		for i, raw := range r.Types {
			t, err := decodeChild(raw, fmt.Sprintf("types[%d]", i))
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
		return UnionType{MemberType: r.MemberType, Types: types}, nil
	case KindMixed:
		return MixedType{}, nil
	case KindVoid:
		return VoidType{}, nil
	case KindNullable:
		inner, err := decodeChild(r.TypeAnnotation, "typeAnnotation")
		if err != nil {
			return nil, err
		}
		return NullableType{Inner: inner}, nil
	case KindTypeAlias:
		return TypeAliasType{Name: r.Name}, nil
	case "":
		return nil, fmt.Errorf("type annotation is missing its \"type\" field")
	default:
		return nil, fmt.Errorf("unknown type annotation %q", r.Type)
	}
}

func decodeChild(data json.RawMessage, field string) (TypeAnnotation, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing %s", field)
	}
	t, err := DecodeAnnotation(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

func buildParams(raws []rawParameter) ([]Parameter, error) {
	params := make([]Parameter, len(raws))
	for i, rp := range raws {
		t, err := decodeChild(rp.TypeAnnotation, "typeAnnotation")
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", rp.Name, err)
		}
		params[i] = Parameter{Name: rp.Name, Optional: rp.Optional, Type: t}
	}
	return params, nil
}

func unmarshalValue(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing value")
	}
	return json.Unmarshal(data, v)
}

// ---------- canonical form ----------

// Canonical renders an annotation as the generic map shape it was decoded
// from. The result is stable and is what hashing and dumping consume.
func Canonical(t TypeAnnotation) map[string]any {
	out := map[string]any{"type": string(t.Kind())}
	switch v := t.(type) {
	case ReservedType:
		out["name"] = v.Name
	case StringLiteralType:
		out["value"] = v.Value
	case StringLiteralUnionType:
		out["values"] = append([]string{}, v.Values...)
	case NumberLiteralType:
		out["value"] = v.Value
	case EnumDeclaration:
		members := make([]any, len(v.Members))
		for i, m := range v.Members {
			members[i] = map[string]any{"name": m.Name, "value": m.Value}
		}
		if v.Name != "" {
			out["name"] = v.Name
		}
		out["memberType"] = v.MemberType
		out["members"] = members
	case ArrayType:
		out["elementType"] = Canonical(v.ElementType)
	case FunctionType:
		out["returnTypeAnnotation"] = Canonical(v.ReturnType)
		out["params"] = canonicalParams(v.Params)
	case ObjectType:
		if v.Name != "" {
			out["name"] = v.Name
		}
		if v.Properties != nil {
			props := make([]any, len(v.Properties))
			for i, p := range v.Properties {
				props[i] = map[string]any{"name": p.Name, "optional": p.Optional, "typeAnnotation": Canonical(p.Type)}
			}
			out["properties"] = props
		}
	case UnionType:
		types := make([]any, len(v.Types))
		for i, m := range v.Types {
			types[i] = Canonical(m)
		}
		out["memberType"] = v.MemberType
		out["types"] = types
	case NullableType:
		out["typeAnnotation"] = Canonical(v.Inner)
	case TypeAliasType:
		out["name"] = v.Name
	}
	return out
}

func canonicalParams(params []Parameter) []any {
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = map[string]any{"name": p.Name, "optional": p.Optional, "typeAnnotation": Canonical(p.Type)}
	}
	return out
}
