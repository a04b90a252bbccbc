package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multiplyDoc = `{
  "moduleName": "MyModule",
  "type": "NativeModule",
  "aliasMap": {},
  "enumMap": {},
  "spec": {
    "eventEmitters": ["onTick"],
    "methods": [{
      "name": "multiply",
      "optional": false,
      "typeAnnotation": {
        "type": "FunctionTypeAnnotation",
        "returnTypeAnnotation": {"type": "NumberTypeAnnotation"},
        "params": [
          {"name": "a", "optional": false, "typeAnnotation": {"type": "NumberTypeAnnotation"}},
          {"name": "b", "optional": false, "typeAnnotation": {"type": "NumberTypeAnnotation"}}
        ]
      }
    }]
  }
}`

func buildDoc(t *testing.T, src string) *Schema {
	t.Helper()
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(src), &doc))
	s, err := doc.Build()
	require.NoError(t, err)
	return s
}

func TestDocumentBuild(t *testing.T) {
	s := buildDoc(t, multiplyDoc)

	assert.Equal(t, "MyModule", s.ModuleName)
	require.Len(t, s.Methods, 1)
	m := s.Methods[0]
	assert.Equal(t, "multiply", m.Name)
	assert.Equal(t, NumberType{}, m.Return())
	require.Len(t, m.Params(), 2)
	assert.Equal(t, "a", m.Params()[0].Name)
	assert.Equal(t, "b", m.Params()[1].Name)
	assert.Equal(t, []Signal{{Name: "onTick"}}, s.Signals)
	assert.True(t, s.HasSignals())
}

func TestDocumentBuild_RejectsNonFunctionMethod(t *testing.T) {
	src := `{"moduleName": "M", "type": "NativeModule", "spec": {"eventEmitters": [], "methods": [
		{"name": "bad", "optional": false, "typeAnnotation": {"type": "NumberTypeAnnotation"}}
	]}}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(src), &doc))
	_, err := doc.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method bad")
}

func TestDocumentBuild_RejectsComponent(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"moduleName": "V", "type": "Component", "spec": {}}`), &doc))
	_, err := doc.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Component")
}

func TestDocumentBuild_SortsAliasesAndEnums(t *testing.T) {
	src := `{"moduleName": "M", "type": "NativeModule",
	  "aliasMap": {
	    "Zed": {"type": "ObjectTypeAnnotation", "properties": []},
	    "Alpha": {"type": "ObjectTypeAnnotation", "properties": []}
	  },
	  "enumMap": {
	    "Size": {"type": "EnumDeclarationWithMembers", "memberType": "NumberTypeAnnotation",
	             "members": [{"name": "Small", "value": 1}, {"name": "Large", "value": 2}]}
	  },
	  "spec": {"eventEmitters": [], "methods": []}}`
	s := buildDoc(t, src)

	require.Len(t, s.Aliases, 2)
	assert.Equal(t, "Alpha", s.Aliases[0].Name)
	assert.Equal(t, "Zed", s.Aliases[1].Name)
	require.Len(t, s.Enums, 1)
	assert.Equal(t, "Size", s.Enums[0].Name)
	assert.Equal(t, []string{"Small", "Large"}, []string{s.Enums[0].Members[0].Name, s.Enums[0].Members[1].Name})
}

func TestDecodeAnnotation_Variants(t *testing.T) {
	tests := []struct {
		src  string
		want TypeAnnotation
	}{
		{`{"type": "StringTypeAnnotation"}`, StringType{}},
		{`{"type": "StringLiteralTypeAnnotation", "value": "x"}`, StringLiteralType{Value: "x"}},
		{`{"type": "StringLiteralUnionTypeAnnotation", "values": ["a", "b"]}`, StringLiteralUnionType{Values: []string{"a", "b"}}},
		{`{"type": "BooleanTypeAnnotation"}`, BooleanType{}},
		{`{"type": "Int32TypeAnnotation"}`, Int32Type{}},
		{`{"type": "NumberLiteralTypeAnnotation", "value": 4}`, NumberLiteralType{Value: 4}},
		{`{"type": "ReservedTypeAnnotation", "name": "RootTag"}`, ReservedType{Name: "RootTag"}},
		{`{"type": "MixedTypeAnnotation"}`, MixedType{}},
		{`{"type": "GenericObjectTypeAnnotation"}`, GenericObjectType{}},
		{`{"type": "TypeAliasTypeAnnotation", "name": "Profile"}`, TypeAliasType{Name: "Profile"}},
		{`{"type": "ArrayTypeAnnotation", "elementType": {"type": "DoubleTypeAnnotation"}}`, ArrayType{ElementType: DoubleType{}}},
		{`{"type": "NullableTypeAnnotation", "typeAnnotation": {"type": "FloatTypeAnnotation"}}`, NullableType{Inner: FloatType{}}},
		{`{"type": "ObjectTypeAnnotation"}`, ObjectType{}},
	}
	for _, tt := range tests {
		got, err := DecodeAnnotation([]byte(tt.src))
		if !assert.NoError(t, err, tt.src) {
			continue
		}
		assert.Equal(t, tt.want, got, tt.src)
	}
}

func TestDecodeAnnotation_Errors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`{"type": "TupleTypeAnnotation"}`, "unknown type annotation"},
		{`{}`, "missing its \"type\""},
		{`{"type": "ArrayTypeAnnotation"}`, "missing elementType"},
		{`{"type": "NullableTypeAnnotation"}`, "missing typeAnnotation"},
		{`{"type": "StringLiteralTypeAnnotation"}`, "missing value"},
	}
	for _, tt := range tests {
		_, err := DecodeAnnotation([]byte(tt.src))
		if assert.Error(t, err, tt.src) {
			assert.Contains(t, err.Error(), tt.want)
		}
	}
}

func TestUnwrapNullable(t *testing.T) {
	inner, nullable := UnwrapNullable(NumberType{})
	assert.Equal(t, NumberType{}, inner)
	assert.False(t, nullable)

	deep := NullableType{Inner: NullableType{Inner: NullableType{Inner: StringType{}}}}
	inner, nullable = UnwrapNullable(deep)
	assert.Equal(t, StringType{}, inner)
	assert.True(t, nullable)
}

func TestHash_Stable(t *testing.T) {
	a := buildDoc(t, multiplyDoc)
	b := buildDoc(t, multiplyDoc)

	ha, err := Hash([]*Schema{a})
	require.NoError(t, err)
	hb, err := Hash([]*Schema{b})
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 16)
	assert.Regexp(t, `^[0-9a-f]{16}$`, ha)
}

func TestHash_Sensitive(t *testing.T) {
	base := buildDoc(t, multiplyDoc)
	baseHash, err := Hash([]*Schema{base})
	require.NoError(t, err)

	mutations := map[string]func(s *Schema){
		"method name": func(s *Schema) { s.Methods[0].Name = "times" },
		"param type":  func(s *Schema) { s.Methods[0].Type.Params[1].Type = StringType{} },
		"return type": func(s *Schema) { s.Methods[0].Type.ReturnType = BooleanType{} },
		"optional":    func(s *Schema) { s.Methods[0].Type.Params[0].Optional = true },
		"signal":      func(s *Schema) { s.Signals[0].Name = "onTock" },
		"no signal":   func(s *Schema) { s.Signals = nil },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			s := buildDoc(t, multiplyDoc)
			mutate(s)
			h, err := Hash([]*Schema{s})
			require.NoError(t, err)
			assert.NotEqual(t, baseHash, h)
		})
	}
}

func TestHash_OrderSensitive(t *testing.T) {
	a := buildDoc(t, multiplyDoc)
	b := buildDoc(t, multiplyDoc)
	b.ModuleName = "Other"

	h1, err := Hash([]*Schema{a, b})
	require.NoError(t, err)
	h2, err := Hash([]*Schema{b, a})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestSchemaMarshalJSON(t *testing.T) {
	s := buildDoc(t, multiplyDoc)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"moduleName":"MyModule"`)
	assert.Contains(t, string(data), `"signals":["onTick"]`)
}
