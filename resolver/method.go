package resolver

import (
	"errors"
	"fmt"
	"sort"

	"github.com/momo-AUX1/craby/model"
)

// ReturnParam names the return position in an UnsupportedTypeError.
const ReturnParam = "<return>"

// UnsupportedTypeError reports an annotation outside the supported subset and
// where it was found.
type UnsupportedTypeError struct {
	Module string
	Method string
	Param  string
	Kind   model.Kind
}

func (e *UnsupportedTypeError) Error() string {
	where := e.Param
	if where == "" {
		where = "?"
	}
	if where != ReturnParam {
		where = "param " + where
	}
	if e.Module == "" && e.Method == "" {
		return fmt.Sprintf("unsupported type %s", e.Kind)
	}
	return fmt.Sprintf("module %s: method %s: %s: unsupported type %s", e.Module, e.Method, where, e.Kind)
}

// Param is a resolved method parameter.
type Param struct {
	Name    string
	Type    *Type
	Interop InteropInfo
}

// Signature is a method resolved for one target.
type Signature struct {
	Module string
	Method string
	Params []Param
	Return *Type
	// ReturnInterop is zero for non-platform targets.
	ReturnInterop InteropInfo
}

// Marshals reports whether any parameter or the return value needs work at
// the platform boundary beyond passing the value through.
func (s *Signature) Marshals() bool {
	for _, p := range s.Params {
		if p.Interop.FromNative != "" {
			return true
		}
	}
	return s.ReturnInterop.ToNative != "" || s.ReturnInterop.Nullable
}

// Imports returns the sorted, deduplicated interop imports of the signature.
func (s *Signature) Imports() []string {
	seen := map[string]bool{}
	var out []string
	add := func(imp string) {
		if imp != "" && !seen[imp] {
			seen[imp] = true
			out = append(out, imp)
		}
	}
	for _, p := range s.Params {
		add(p.Interop.Import)
	}
	add(s.ReturnInterop.Import)
	sort.Strings(out)
	return out
}

// ResolveMethod resolves every parameter and the return type of a method on
// target. Any unsupported annotation fails with an *UnsupportedTypeError
// naming the module, method and parameter.
func ResolveMethod(module string, m *model.Method, target Target) (*Signature, error) {
	sig := &Signature{Module: module, Method: m.Name}
	platform, isPlatform := platformOf(target)

	for _, p := range m.Params() {
		t, err := Resolve(p.Type, p.Optional, target)
		if err == nil && t.IsVoid() {
			err = &UnsupportedTypeError{Kind: model.KindVoid}
		}
		if err != nil {
			return nil, locate(err, module, m.Name, p.Name)
		}
		param := Param{Name: p.Name, Type: t}
		if isPlatform {
			param.Interop = Interop(t.Family, t.Nullable, platform)
		}
		sig.Params = append(sig.Params, param)
	}

	ret, err := Resolve(m.Return(), false, target)
	if err != nil {
		return nil, locate(err, module, m.Name, ReturnParam)
	}
	sig.Return = ret
	if isPlatform {
		sig.ReturnInterop = Interop(ret.Family, ret.Nullable, platform)
	}
	return sig, nil
}

// CheckSchema resolves every method of a schema on every target.
func CheckSchema(s *model.Schema) error {
	for i := range s.Methods {
		for _, target := range []Target{Host, Bridge, Cxx, Android, IOS, CHeader, Kotlin} {
			if _, err := ResolveMethod(s.ModuleName, &s.Methods[i], target); err != nil {
				return err
			}
		}
	}
	return nil
}

func platformOf(target Target) (Platform, bool) {
	switch target {
	case Android:
		return PlatformAndroid, true
	case IOS:
		return PlatformIOS, true
	default:
		return "", false
	}
}

func locate(err error, module, method, param string) error {
	var ute *UnsupportedTypeError
	if errors.As(err, &ute) {
		return &UnsupportedTypeError{Module: module, Method: method, Param: param, Kind: ute.Kind}
	}
	return fmt.Errorf("module %s: method %s: %s: %w", module, method, param, err)
}
