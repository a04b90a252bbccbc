package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/momo-AUX1/craby/model"
	"github.com/momo-AUX1/craby/naming"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// rustKeywords cannot be used as parameter names in generated Rust.
var rustKeywords = map[string]bool{
	"as": true, "async": true, "await": true, "break": true, "const": true,
	"continue": true, "crate": true, "dyn": true, "else": true, "enum": true,
	"extern": true, "false": true, "fn": true, "for": true, "if": true,
	"impl": true, "in": true, "let": true, "loop": true, "match": true,
	"mod": true, "move": true, "mut": true, "pub": true, "ref": true,
	"return": true, "self": true, "Self": true, "static": true, "struct": true,
	"super": true, "trait": true, "true": true, "type": true, "unsafe": true,
	"use": true, "where": true, "while": true, "yield": true,
}

// kotlinKeywords are the Kotlin hard keywords, which cannot name a parameter
// of an external fun.
var kotlinKeywords = map[string]bool{
	"as": true, "break": true, "class": true, "continue": true, "do": true,
	"else": true, "false": true, "for": true, "fun": true, "if": true,
	"in": true, "interface": true, "is": true, "null": true, "object": true,
	"package": true, "return": true, "super": true, "this": true, "throw": true,
	"true": true, "try": true, "typealias": true, "typeof": true, "val": true,
	"var": true, "when": true, "while": true,
}

// reservedParams are names the generated FFI shims already bind.
var reservedParams = map[string]bool{
	"env": true, "_env": true, "_class": true, "it_": true, "ret": true,
}

// reservedMethods are members every generated Spec trait or C++ module
// class already declares.
var reservedMethods = map[string]bool{
	"new": true, "id": true, "emit": true, "invalidate": true,
}

// ValidationError represents a single semantic validation error.
type ValidationError struct {
	Path    string // e.g., "modules[0].methods[1].params[0].name"
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationResult holds all validation errors.
type ValidationResult struct {
	Errors []ValidationError
}

func (r *ValidationResult) addError(path, message string) {
	r.Errors = append(r.Errors, ValidationError{Path: path, Message: message})
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

// Validate checks a schema set for names that would collide or fail to
// compile once generated. It does not resolve types.
func Validate(schemas []*model.Schema) *ValidationResult {
	result := &ValidationResult{}
	if len(schemas) == 0 {
		result.addError("modules", "no modules to generate")
		return result
	}

	moduleNames := make(map[string]string)
	sanitizedModules := make(map[string]string)
	pascalModules := make(map[string]string)
	// iOS exports every method under its bare sanitized name.
	iosSymbols := make(map[string]string)

	for i, s := range schemas {
		modPath := fmt.Sprintf("modules[%d]", i)

		if !identPattern.MatchString(s.ModuleName) {
			result.addError(modPath+".moduleName", fmt.Sprintf("module name %q is not a valid identifier", s.ModuleName))
			continue
		}
		if prev, ok := moduleNames[s.ModuleName]; ok {
			result.addError(modPath+".moduleName", fmt.Sprintf("duplicate module name %q (also %s)", s.ModuleName, prev))
		}
		moduleNames[s.ModuleName] = modPath

		sanitized := naming.Sanitize(s.ModuleName)
		if sanitized == "" {
			result.addError(modPath+".moduleName", fmt.Sprintf("module name %q has no letters", s.ModuleName))
		} else if other, ok := sanitizedModules[sanitized]; ok && other != s.ModuleName {
			result.addError(modPath+".moduleName", fmt.Sprintf("module %q collides with %q (both become %q)", s.ModuleName, other, sanitized))
		}
		sanitizedModules[sanitized] = s.ModuleName

		pascal := naming.Pascal(s.ModuleName)
		if other, ok := pascalModules[pascal]; ok && other != s.ModuleName {
			result.addError(modPath+".moduleName", fmt.Sprintf("module %q collides with %q (both become class %q)", s.ModuleName, other, naming.CxxModuleName(s.ModuleName)))
		}
		pascalModules[pascal] = s.ModuleName

		validateMethods(result, s, modPath, iosSymbols)
		validateSignals(result, s, modPath)
	}

	return result
}

func validateMethods(result *ValidationResult, s *model.Schema, modPath string, iosSymbols map[string]string) {
	methodNames := make(map[string]bool)
	sanitizedMethods := make(map[string]string)

	for j := range s.Methods {
		m := &s.Methods[j]
		methodPath := fmt.Sprintf("%s.methods[%d]", modPath, j)

		if !identPattern.MatchString(m.Name) {
			result.addError(methodPath+".name", fmt.Sprintf("method name %q is not a valid identifier", m.Name))
			continue
		}
		if methodNames[m.Name] {
			result.addError(methodPath+".name", fmt.Sprintf("duplicate method name %q in module %q", m.Name, s.ModuleName))
			continue
		}
		methodNames[m.Name] = true

		sanitized := naming.Sanitize(m.Name)
		if sanitized == "" {
			result.addError(methodPath+".name", fmt.Sprintf("method name %q has no letters", m.Name))
			continue
		}
		if other, ok := sanitizedMethods[sanitized]; ok {
			result.addError(methodPath+".name", fmt.Sprintf("method %q collides with %q (both become %q)", m.Name, other, sanitized))
		}
		sanitizedMethods[sanitized] = m.Name

		switch {
		case rustKeywords[sanitized]:
			result.addError(methodPath+".name", fmt.Sprintf("method name %q is a Rust keyword", m.Name))
		case reservedMethods[sanitized], reservedMethods[naming.Camel(m.Name)]:
			result.addError(methodPath+".name", fmt.Sprintf("method name %q is reserved by the generated bindings", m.Name))
		}

		if owner, ok := iosSymbols[sanitized]; ok && owner != s.ModuleName {
			result.addError(methodPath+".name", fmt.Sprintf("method %q exports iOS symbol %q already exported by module %q", m.Name, sanitized, owner))
		} else {
			iosSymbols[sanitized] = s.ModuleName
		}

		paramNames := make(map[string]bool)
		for k, p := range m.Params() {
			paramPath := fmt.Sprintf("%s.params[%d].name", methodPath, k)
			switch {
			case !identPattern.MatchString(p.Name):
				result.addError(paramPath, fmt.Sprintf("parameter name %q is not a valid identifier", p.Name))
			case rustKeywords[p.Name]:
				result.addError(paramPath, fmt.Sprintf("parameter name %q is a Rust keyword", p.Name))
			case kotlinKeywords[p.Name]:
				result.addError(paramPath, fmt.Sprintf("parameter name %q is a Kotlin keyword", p.Name))
			case reservedParams[p.Name]:
				result.addError(paramPath, fmt.Sprintf("parameter name %q is reserved by the generated bindings", p.Name))
			case paramNames[p.Name]:
				result.addError(paramPath, fmt.Sprintf("duplicate parameter name %q in method %q", p.Name, m.Name))
			}
			paramNames[p.Name] = true
		}
	}
}

func validateSignals(result *ValidationResult, s *model.Schema, modPath string) {
	seen := make(map[string]bool)
	variants := make(map[string]string)
	// Methods and signals share the C++ member and method-map namespace.
	members := make(map[string]string, len(s.Methods))
	for _, m := range s.Methods {
		members[naming.Camel(m.Name)] = m.Name
	}
	for j, sig := range s.Signals {
		sigPath := fmt.Sprintf("%s.signals[%d]", modPath, j)
		if !identPattern.MatchString(sig.Name) {
			result.addError(sigPath, fmt.Sprintf("signal name %q is not a valid identifier", sig.Name))
			continue
		}
		if seen[sig.Name] {
			result.addError(sigPath, fmt.Sprintf("duplicate signal name %q in module %q", sig.Name, s.ModuleName))
			continue
		}
		seen[sig.Name] = true

		variant := naming.Pascal(sig.Name)
		if other, ok := variants[variant]; ok {
			result.addError(sigPath, fmt.Sprintf("signal %q collides with %q (both become variant %q)", sig.Name, other, variant))
		}
		variants[variant] = sig.Name

		if method, ok := members[naming.Camel(sig.Name)]; ok {
			result.addError(sigPath, fmt.Sprintf("signal %q collides with method %q", sig.Name, method))
		}
	}
}
