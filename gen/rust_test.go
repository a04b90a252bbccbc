package gen

import (
	"strings"
	"testing"
)

func TestRustGenerator_Files(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "MyModule.json")
	files := mustGenerate(t, &RustGenerator{}, ctx)

	want := map[string]bool{
		"crates/lib/src/lib.rs":            true,
		"crates/lib/src/ffi.rs":            true,
		"crates/lib/src/generated.rs":      true,
		"crates/lib/src/types.rs":          true,
		"crates/lib/src/my_module_impl.rs": false,
	}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %d", len(want), len(files))
	}
	for _, f := range files {
		overwrite, ok := want[f.Path]
		if !ok {
			t.Errorf("unexpected file %s", f.Path)
			continue
		}
		if f.Overwrite != overwrite {
			t.Errorf("%s: overwrite = %v, want %v", f.Path, f.Overwrite, overwrite)
		}
	}
}

func TestRustGenerator_Lib(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "Greeter.yaml", "MyModule.json")
	lib := findArtifact(t, mustGenerate(t, &RustGenerator{}, ctx), "crates/lib/src/lib.rs")
	assertContains(t, lib,
		"pub(crate) mod ffi;",
		"#[cfg(target_os = \"android\")]\npub(crate) mod ffi_android;",
		"#[cfg(target_os = \"ios\")]\npub(crate) mod ffi_ios;",
		"pub(crate) mod greeter_impl;",
		"pub(crate) mod my_module_impl;",
	)
}

func TestRustGenerator_SpecTrait(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "Greeter.yaml")
	generated := findArtifact(t, mustGenerate(t, &RustGenerator{}, ctx), "crates/lib/src/generated.rs")
	assertContains(t, generated,
		"use crate::ffi::bridging::*;",
		"pub enum GreeterSignal {\n    OnGreet,\n    OnReset,\n}",
		"pub trait GreeterSpec {",
		"fn emit(&self, signal: GreeterSignal) {",
		"GreeterSignal::OnGreet => manager.emit(self.id(), \"onGreet\"),",
		"fn greet(&mut self, name: String) -> String;",
		"fn set_enabled(&mut self, enabled: bool);",
		"fn lookup(&mut self, key: Option<String>, limit: Option<f64>) -> Option<String>;",
		"impl From<NullableString> for Option<String> {",
		"impl From<Option<f64>> for NullableNumber {",
	)
	if strings.Contains(generated, "NullableBoolean") {
		t.Error("unused nullable family converted")
	}
}

func TestRustGenerator_NoSignals(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "MyModule.json")
	files := mustGenerate(t, &RustGenerator{}, ctx)

	generated := findArtifact(t, files, "crates/lib/src/generated.rs")
	if strings.Contains(generated, "MyModuleSignal") || strings.Contains(generated, "fn emit") {
		t.Error("module without signals must not get a signal enum or emit")
	}
	if strings.Contains(generated, "use crate::ffi::bridging::*;") {
		t.Error("bridging import is only needed for nullable conversions")
	}

	ffi := findArtifact(t, files, "crates/lib/src/ffi.rs")
	if strings.Contains(ffi, "SignalManager") {
		t.Error("signal manager declared without signals")
	}
}

func TestRustGenerator_Bridge(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "Greeter.yaml")
	ffi := findArtifact(t, mustGenerate(t, &RustGenerator{}, ctx), "crates/lib/src/ffi.rs")
	assertContains(t, ffi,
		"use crate::greeter_impl::*;",
		"#[cxx::bridge(namespace = \"craby::bridging\")]",
		"struct NullableString {\n        null: bool,\n        val: String,\n    }",
		"struct NullableNumber {\n        null: bool,\n        val: f64,\n    }",
		"type Greeter;",
		"fn create_greeter(id: usize) -> Box<Greeter>;",
		"fn greeter_lookup(it_: &mut Greeter, key: NullableString, limit: NullableNumber) -> Result<NullableString>;",
		"include!(\"CrabySignals.h\");",
		"catch_panic(|| it_.lookup(key.into(), limit.into()).into())",
		"catch_panic(|| it_.set_enabled(enabled))",
		"fn catch_panic<T>(f: impl FnOnce() -> T) -> Result<T, String> {",
	)
}

func TestRustGenerator_ImplScaffold(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "MyModule.json")
	impl := findArtifact(t, mustGenerate(t, &RustGenerator{}, ctx), "crates/lib/src/my_module_impl.rs")
	assertContains(t, impl,
		"pub struct MyModule {\n    id: usize,\n}",
		"impl MyModuleSpec for MyModule {",
		"fn multiply(&mut self, a: f64, b: f64) -> f64 {\n        unimplemented!();\n    }",
	)
}
