package resolver

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momo-AUX1/craby/model"
)

var allTargets = []Target{Host, Bridge, Cxx, Android, IOS, CHeader, Kotlin}

func familyMembers() map[Family][]model.TypeAnnotation {
	return map[Family][]model.TypeAnnotation{
		FamilyBoolean: {model.BooleanType{}},
		FamilyNumber: {
			model.NumberType{}, model.FloatType{}, model.DoubleType{},
			model.Int32Type{}, model.NumberLiteralType{Value: 3},
		},
		FamilyString: {
			model.StringType{}, model.StringLiteralType{Value: "a"},
			model.StringLiteralUnionType{Values: []string{"a", "b"}},
		},
		FamilyVoid: {model.VoidType{}},
	}
}

func TestResolve_Totality(t *testing.T) {
	for family, members := range familyMembers() {
		for _, member := range members {
			for _, nullable := range []bool{false, true} {
				for _, optional := range []bool{false, true} {
					var ann model.TypeAnnotation = member
					if nullable {
						ann = model.NullableType{Inner: member}
					}
					for _, target := range allTargets {
						got, err := Resolve(ann, optional, target)
						require.NoError(t, err, "%T nullable=%v optional=%v target=%s", member, nullable, optional, target)
						assert.NotEmpty(t, got.Expr)
						assert.Equal(t, family, got.Family)
						assert.False(t, strings.Contains(got.Expr, "Option<Option<"), got.Expr)
						assert.False(t, strings.HasSuffix(got.Expr, "??"), got.Expr)
					}
				}
			}
		}
	}
}

func TestResolve_Collapse(t *testing.T) {
	for _, member := range familyMembers()[FamilyNumber] {
		got, err := Resolve(member, false, Host)
		require.NoError(t, err)
		assert.Equal(t, "f64", got.Expr)
	}
	for _, member := range familyMembers()[FamilyString] {
		got, err := Resolve(member, false, Host)
		require.NoError(t, err)
		assert.Equal(t, "String", got.Expr)
	}
}

func TestResolve_BaseTable(t *testing.T) {
	tests := []struct {
		ann    model.TypeAnnotation
		target Target
		want   string
	}{
		{model.BooleanType{}, Host, "bool"},
		{model.BooleanType{}, Cxx, "bool"},
		{model.BooleanType{}, Android, "jboolean"},
		{model.BooleanType{}, IOS, "bool"},
		{model.NumberType{}, Bridge, "f64"},
		{model.NumberType{}, Cxx, "double"},
		{model.NumberType{}, Android, "jdouble"},
		{model.NumberType{}, IOS, "c_double"},
		{model.NumberType{}, CHeader, "double"},
		{model.StringType{}, Cxx, "rust::String"},
		{model.StringType{}, Android, "jstring"},
		{model.StringType{}, IOS, "*const c_char"},
		{model.StringType{}, CHeader, "const char *"},
		{model.StringType{}, Kotlin, "String"},
		{model.VoidType{}, Host, "()"},
		{model.VoidType{}, Cxx, "void"},
		{model.VoidType{}, Kotlin, "Unit"},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.ann, false, tt.target)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Expr, "%T on %s", tt.ann, tt.target)
	}
}

func TestResolve_NullableComposition(t *testing.T) {
	nullableNumber := model.NullableType{Inner: model.NumberType{}}
	doubleWrapped := model.NullableType{Inner: nullableNumber}

	tests := []struct {
		name     string
		ann      model.TypeAnnotation
		optional bool
		target   Target
		want     string
	}{
		{"optional host", model.NumberType{}, true, Host, "Option<f64>"},
		{"nullable host", nullableNumber, false, Host, "Option<f64>"},
		{"optional and nullable host", nullableNumber, true, Host, "Option<f64>"},
		{"double nullable host", doubleWrapped, true, Host, "Option<f64>"},
		{"bridge struct", nullableNumber, false, Bridge, "NullableNumber"},
		{"bridge bool", model.BooleanType{}, true, Bridge, "NullableBoolean"},
		{"cxx struct", model.NullableType{Inner: model.StringType{}}, false, Cxx, "craby::bridging::NullableString"},
		{"android unwrapped", nullableNumber, true, Android, "jdouble"},
		{"ios unwrapped", model.NullableType{Inner: model.StringType{}}, false, IOS, "*const c_char"},
		{"kotlin nullable string", model.NullableType{Inner: model.StringType{}}, false, Kotlin, "String?"},
		{"kotlin nullable scalar", nullableNumber, true, Kotlin, "Double"},
		{"nullable void", model.NullableType{Inner: model.VoidType{}}, true, Host, "()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.ann, tt.optional, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Expr)
		})
	}
}

func TestResolve_Unsupported(t *testing.T) {
	unsupported := []model.TypeAnnotation{
		model.ReservedType{Name: "RootTag"},
		model.EnumDeclaration{MemberType: "NumberTypeAnnotation"},
		model.ArrayType{ElementType: model.NumberType{}},
		model.FunctionType{ReturnType: model.VoidType{}},
		model.GenericObjectType{},
		model.ObjectType{},
		model.UnionType{MemberType: "StringTypeAnnotation"},
		model.MixedType{},
		model.TypeAliasType{Name: "Profile"},
		model.NullableType{Inner: model.ArrayType{ElementType: model.StringType{}}},
	}
	for _, ann := range unsupported {
		got, err := Resolve(ann, false, Host)
		assert.Nil(t, got)
		var ute *UnsupportedTypeError
		if assert.True(t, errors.As(err, &ute), "%T", ann) {
			inner, _ := model.UnwrapNullable(ann)
			assert.Equal(t, inner.Kind(), ute.Kind)
		}
	}
}

func TestInterop(t *testing.T) {
	for _, family := range []Family{FamilyBoolean, FamilyNumber, FamilyVoid} {
		for _, p := range []Platform{PlatformAndroid, PlatformIOS} {
			info := Interop(family, false, p)
			assert.False(t, info.NeedsConversion())
			assert.Empty(t, info.Import)
		}
	}

	android := Interop(FamilyString, false, PlatformAndroid)
	assert.Equal(t, "craby_core::android::interop::string::*", android.Import)
	assert.Equal(t, "String::from_native", android.FromNative)
	assert.Equal(t, "to_native", android.ToNative)

	ios := Interop(FamilyString, false, PlatformIOS)
	assert.Equal(t, "craby_core::ios::interop::string::*", ios.Import)
	assert.NotEqual(t, android.Import, ios.Import)

	nullable := Interop(FamilyString, true, PlatformIOS)
	assert.Equal(t, "String::from_native", nullable.FromNative)
	assert.True(t, nullable.Nullable)

	assert.True(t, Interop(FamilyNumber, true, PlatformAndroid).Nullable)
	assert.False(t, Interop(FamilyVoid, true, PlatformAndroid).Nullable)
}

func method(name string, ret model.TypeAnnotation, params ...model.Parameter) *model.Method {
	return &model.Method{Name: name, Type: model.FunctionType{ReturnType: ret, Params: params}}
}

func TestResolveMethod(t *testing.T) {
	m := method("multiply", model.NumberType{},
		model.Parameter{Name: "a", Type: model.NumberType{}},
		model.Parameter{Name: "b", Type: model.StringType{}},
	)

	sig, err := ResolveMethod("MyModule", m, Android)
	require.NoError(t, err)
	require.Len(t, sig.Params, 2)
	assert.Equal(t, "jdouble", sig.Params[0].Type.Expr)
	assert.Equal(t, "jstring", sig.Params[1].Type.Expr)
	assert.Equal(t, "String::from_native", sig.Params[1].Interop.FromNative)
	assert.True(t, sig.Marshals())
	assert.Equal(t, []string{"craby_core::android::interop::string::*"}, sig.Imports())

	host, err := ResolveMethod("MyModule", m, Host)
	require.NoError(t, err)
	assert.False(t, host.Marshals())
	assert.Empty(t, host.Imports())
}

func TestResolveMethod_NoMarshalling(t *testing.T) {
	m := method("multiply", model.NumberType{},
		model.Parameter{Name: "a", Type: model.NumberType{}},
		model.Parameter{Name: "b", Type: model.NumberType{}},
	)
	sig, err := ResolveMethod("MyModule", m, Android)
	require.NoError(t, err)
	assert.False(t, sig.Marshals())
}

func TestResolveMethod_NullableScalarReturnMarshals(t *testing.T) {
	m := method("peek", model.NullableType{Inner: model.NumberType{}})
	sig, err := ResolveMethod("M", m, IOS)
	require.NoError(t, err)
	assert.True(t, sig.Marshals())
	assert.Equal(t, "c_double", sig.Return.Expr)
}

func TestResolveMethod_ErrorLocation(t *testing.T) {
	tests := []struct {
		name      string
		m         *model.Method
		wantParam string
		wantKind  model.Kind
	}{
		{
			"array param",
			method("sum", model.NumberType{}, model.Parameter{Name: "values", Type: model.ArrayType{ElementType: model.NumberType{}}}),
			"values", model.KindArray,
		},
		{
			"object return",
			method("profile", model.ObjectType{}),
			ReturnParam, model.KindObject,
		},
		{
			"void param",
			method("noop", model.VoidType{}, model.Parameter{Name: "nothing", Type: model.VoidType{}}),
			"nothing", model.KindVoid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveMethod("Lists", tt.m, Host)
			var ute *UnsupportedTypeError
			require.True(t, errors.As(err, &ute))
			assert.Equal(t, "Lists", ute.Module)
			assert.Equal(t, tt.m.Name, ute.Method)
			assert.Equal(t, tt.wantParam, ute.Param)
			assert.Equal(t, tt.wantKind, ute.Kind)
			assert.Contains(t, err.Error(), "module Lists")
			assert.Contains(t, err.Error(), tt.m.Name)
		})
	}
}

func TestCheckSchema(t *testing.T) {
	ok := &model.Schema{ModuleName: "Ok", Methods: []model.Method{*method("f", model.BooleanType{})}}
	assert.NoError(t, CheckSchema(ok))

	bad := &model.Schema{ModuleName: "Bad", Methods: []model.Method{*method("g", model.MixedType{})}}
	err := CheckSchema(bad)
	var ute *UnsupportedTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, model.KindMixed, ute.Kind)
}
