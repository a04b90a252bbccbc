package resolver

// Platform is a native FFI boundary.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// Target returns the resolver target of the platform's Rust shim.
func (p Platform) Target() Target {
	if p == PlatformAndroid {
		return Android
	}
	return IOS
}

// InteropInfo describes how a value crosses a platform boundary. Empty
// fields mean no conversion is needed in that direction.
type InteropInfo struct {
	// Import is the Rust use path providing the conversion functions.
	Import string
	// FromNative converts a platform value into the host representation.
	FromNative string
	// ToNative is the method converting a host value into the platform
	// representation.
	ToNative string
	// Nullable is set when the host side carries an Option. A nullable string
	// crosses as a null pointer; a nullable scalar has no absent value on the
	// platform side.
	Nullable bool
}

// NeedsConversion reports whether any conversion function is involved.
func (i InteropInfo) NeedsConversion() bool {
	return i.FromNative != "" || i.ToNative != ""
}

// Interop computes the marshalling policy of a family on platform. The result
// depends on the platform and is never shared between them.
func Interop(family Family, nullable bool, platform Platform) InteropInfo {
	if family != FamilyString {
		return InteropInfo{Nullable: nullable && family != FamilyVoid}
	}
	return InteropInfo{
		Import:     StringInteropImport(platform),
		FromNative: "String::from_native",
		ToNative:   "to_native",
		Nullable:   nullable,
	}
}

// StringInteropImport is the module with the string conversions of platform.
func StringInteropImport(platform Platform) string {
	return "craby_core::" + string(platform) + "::interop::string::*"
}
