// Package naming derives every identifier that appears in more than one
// generated file. Emitters must go through these helpers so that a C++ class
// name, a Rust module path and an exported symbol always agree.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

var (
	nonLetter   = regexp.MustCompile(`[^a-zA-Z]`)
	underscores = regexp.MustCompile(`_+`)
)

// Pascal converts to PascalCase, e.g. "my_module" → "MyModule".
func Pascal(s string) string { return strcase.ToCamel(s) }

// Camel converts to camelCase, e.g. "MyModule" → "myModule".
func Camel(s string) string { return strcase.ToLowerCamel(s) }

// Snake converts to snake_case, e.g. "MyModule" → "my_module".
func Snake(s string) string { return strcase.ToSnake(s) }

// Kebab converts to kebab-case, e.g. "MyModule" → "my-module".
func Kebab(s string) string { return strcase.ToKebab(s) }

// Flat lowercases and drops every character that is not a letter or digit,
// e.g. "my-app" → "myapp".
func Flat(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Sanitize turns an arbitrary name into a snake_case identifier made of
// ASCII letters and single underscores.
// e.g. "MyTestModule" → "my_test_module", "get-value" → "get_value"
func Sanitize(s string) string {
	out := Snake(nonLetter.ReplaceAllString(s, "_"))
	out = underscores.ReplaceAllString(out, "_")
	return strings.Trim(out, "_")
}

// ImplModName is the Rust module holding the user's implementation.
func ImplModName(module string) string { return Snake(module) + "_impl" }

// SpecTraitName is the host-binding trait, e.g. "MyModule" → "MyModuleSpec".
func SpecTraitName(module string) string { return Pascal(module) + "Spec" }

// SignalEnumName is the closed enum of a module's signals.
func SignalEnumName(module string) string { return Pascal(module) + "Signal" }

// CxxNamespace is the root C++ namespace of a project, e.g. "craby::myapp".
func CxxNamespace(project string) string { return "craby::" + Flat(project) }

// CxxModulesNamespace holds the generated TurboModule classes.
func CxxModulesNamespace(project string) string { return CxxNamespace(project) + "::modules" }

// CxxModuleName is the TurboModule class, e.g. "MyModule" → "CxxMyModuleModule".
func CxxModuleName(module string) string { return "Cxx" + Pascal(module) + "Module" }

// CxxModuleQualified is the fully qualified TurboModule class.
func CxxModuleQualified(project, module string) string {
	return CxxModulesNamespace(project) + "::" + CxxModuleName(module)
}

// BridgeFnName is the symbol of a method on the cxx bridge. The Rust side
// is snake_case and the C++ side uses the camelCase form via cxx_name.
// e.g. ("MyModule", "multiply") → "my_module_multiply"
func BridgeFnName(module, method string) string {
	return Sanitize(module) + "_" + Sanitize(method)
}

// BridgeCxxFnName is the C++ spelling of BridgeFnName.
func BridgeCxxFnName(module, method string) string {
	return Camel(BridgeFnName(module, method))
}

// BridgeCreateFn constructs a host-binding instance across the bridge.
func BridgeCreateFn(module string) string { return "create" + Pascal(module) }

func ObjCProviderName(project string) string { return Pascal(project) + "ModuleProvider" }

// PackageClassName is the React Native package class on Android.
func PackageClassName(project string) string { return Pascal(project) + "Package" }

// LibName is the flat library name, e.g. "my-app" → "myapp".
func LibName(project string) string { return Flat(project) }

// DestLibName is the prebuilt static library, e.g. "libmyapp-prebuilt.a".
func DestLibName(project string) string { return "lib" + Flat(project) + "-prebuilt.a" }

// IOSHeaderName is the C header declaring the iOS FFI, e.g. "libmyapp.h".
func IOSHeaderName(project string) string { return "lib" + Flat(project) + ".h" }

func KotlinModuleClass(module string) string { return Pascal(module) + "Module" }

// KotlinNativeFn is the Kotlin external function backing a method.
func KotlinNativeFn(method string) string { return "native" + Pascal(method) }

// JavaPackagePath converts a package to a directory, e.g. "com.myapp" → "com/myapp".
func JavaPackagePath(pkg string) string { return strings.ReplaceAll(pkg, ".", "/") }

// JNIFunctionName is the exported symbol the JVM resolves for a static
// native method.
// e.g. ("com.my_app", "MyModuleModule", "multiply") → "Java_com_my_1app_MyModuleModule_nativeMultiply"
func JNIFunctionName(pkg, class, method string) string {
	parts := strings.Split(pkg, ".")
	for i, p := range parts {
		parts[i] = jniEscape(p)
	}
	return fmt.Sprintf("Java_%s_%s_%s", strings.Join(parts, "_"), jniEscape(class), jniEscape(KotlinNativeFn(method)))
}

// jniEscape applies the JNI short-name mangling.
func jniEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '_':
			b.WriteString("_1")
		case r == ';':
			b.WriteString("_2")
		case r == '[':
			b.WriteString("_3")
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "_0%04x", r)
		}
	}
	return b.String()
}
