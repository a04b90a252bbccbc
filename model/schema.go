package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ModuleKindNative is the only module kind the generator accepts.
const ModuleKindNative = "NativeModule"

// Parameter is a single method parameter.
type Parameter struct {
	Name     string
	Optional bool
	Type     TypeAnnotation
}

// Method is one exposed function of a module.
type Method struct {
	Name     string
	Optional bool
	Type     FunctionType
}

// Params returns the method's ordered parameters.
func (m *Method) Params() []Parameter { return m.Type.Params }

// Return returns the method's return annotation.
func (m *Method) Return() TypeAnnotation { return m.Type.ReturnType }

// Signal is a named event channel pushed from the module to JS listeners.
type Signal struct {
	Name string
}

// Schema is the canonical description of one module. Methods and signals keep
// declaration order; aliases and enums are sorted by name.
type Schema struct {
	ModuleName string
	Aliases    []ObjectType
	Enums      []EnumDeclaration
	Methods    []Method
	Signals    []Signal
}

// HasSignals reports whether the module declares any signal.
func (s *Schema) HasSignals() bool { return len(s.Signals) > 0 }

// ---------- module documents ----------

// Document is the on-disk module schema as produced by the JS codegen step.
type Document struct {
	ModuleName string                     `json:"moduleName"`
	Type       string                     `json:"type"`
	AliasMap   map[string]json.RawMessage `json:"aliasMap"`
	EnumMap    map[string]json.RawMessage `json:"enumMap"`
	Spec       DocumentSpec               `json:"spec"`
}

// DocumentSpec is the "spec" block of a Document.
type DocumentSpec struct {
	EventEmitters []EventEmitter   `json:"eventEmitters"`
	Methods       []DocumentMethod `json:"methods"`
}

// EventEmitter accepts either a bare string or an object with a name.
type EventEmitter struct {
	Name string `json:"name"`
}

func (e *EventEmitter) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		e.Name = name
		return nil
	}
	type plain EventEmitter
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("event emitter: %w", err)
	}
	*e = EventEmitter(p)
	return nil
}

// DocumentMethod is one entry of spec.methods.
type DocumentMethod struct {
	Name           string          `json:"name"`
	Optional       bool            `json:"optional"`
	TypeAnnotation json.RawMessage `json:"typeAnnotation"`
}

// Build converts the document into a Schema.
func (d *Document) Build() (*Schema, error) {
	if d.Type != "" && d.Type != ModuleKindNative {
		return nil, fmt.Errorf("module %s: unsupported module type %q", d.ModuleName, d.Type)
	}

	s := &Schema{ModuleName: d.ModuleName}

	for _, name := range sortedKeys(d.AliasMap) {
		t, err := DecodeAnnotation(d.AliasMap[name])
		if err != nil {
			return nil, fmt.Errorf("module %s: alias %s: %w", d.ModuleName, name, err)
		}
		obj, ok := t.(ObjectType)
		if !ok {
			return nil, fmt.Errorf("module %s: alias %s: expected %s, got %s", d.ModuleName, name, KindObject, t.Kind())
		}
		obj.Name = name
		s.Aliases = append(s.Aliases, obj)
	}

	for _, name := range sortedKeys(d.EnumMap) {
		t, err := DecodeAnnotation(d.EnumMap[name])
		if err != nil {
			return nil, fmt.Errorf("module %s: enum %s: %w", d.ModuleName, name, err)
		}
		enum, ok := t.(EnumDeclaration)
		if !ok {
			return nil, fmt.Errorf("module %s: enum %s: expected %s, got %s", d.ModuleName, name, KindEnum, t.Kind())
		}
		enum.Name = name
		s.Enums = append(s.Enums, enum)
	}

	for _, dm := range d.Spec.Methods {
		t, err := DecodeAnnotation(dm.TypeAnnotation)
		if err != nil {
			return nil, fmt.Errorf("module %s: method %s: %w", d.ModuleName, dm.Name, err)
		}
		fn, ok := t.(FunctionType)
		if !ok {
			return nil, fmt.Errorf("module %s: method %s: expected %s, got %s", d.ModuleName, dm.Name, KindFunction, t.Kind())
		}
		s.Methods = append(s.Methods, Method{Name: dm.Name, Optional: dm.Optional, Type: fn})
	}

	for _, e := range d.Spec.EventEmitters {
		s.Signals = append(s.Signals, Signal{Name: e.Name})
	}

	return s, nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Canonical renders the schema in document shape with deterministic
// ordering.
func (s *Schema) Canonical() map[string]any {
	aliases := make([]any, len(s.Aliases))
	for i, a := range s.Aliases {
		aliases[i] = Canonical(a)
	}
	enums := make([]any, len(s.Enums))
	for i, e := range s.Enums {
		enums[i] = Canonical(e)
	}
	methods := make([]any, len(s.Methods))
	for i, m := range s.Methods {
		methods[i] = map[string]any{
			"name":           m.Name,
			"optional":       m.Optional,
			"typeAnnotation": Canonical(m.Type),
		}
	}
	signals := make([]any, len(s.Signals))
	for i, sig := range s.Signals {
		signals[i] = sig.Name
	}
	return map[string]any{
		"moduleName": s.ModuleName,
		"aliases":    aliases,
		"enums":      enums,
		"methods":    methods,
		"signals":    signals,
	}
}

// MarshalJSON emits the canonical document shape.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Canonical())
}
