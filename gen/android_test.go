package gen

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/momo-AUX1/craby/model"
)

func TestAndroidGenerator_Files(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "MyModule.json")
	files := mustGenerate(t, &AndroidGenerator{}, ctx)

	want := []string{
		"crates/lib/src/ffi_android.rs",
		"android/src/main/java/com/example/app/MyModuleModule.kt",
		"android/src/main/jni/OnLoad.cpp",
		"android/CMakeLists.txt",
		"android/build.gradle",
		"android/gradle.properties",
		"android/src/main/AndroidManifest.xml",
		"android/src/main/java/com/example/app/MyAppPackage.kt",
	}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %d", len(want), len(files))
	}
	for i, p := range want {
		if files[i].Path != p {
			t.Errorf("file %d = %q, want %q", i, files[i].Path, p)
		}
	}
}

func TestAndroidGenerator_StringParameter(t *testing.T) {
	schema := &model.Schema{
		ModuleName: "MyModule",
		Methods: []model.Method{{
			Name: "multiply",
			Type: model.FunctionType{
				ReturnType: model.NumberType{},
				Params: []model.Parameter{
					{Name: "a", Type: model.NumberType{}},
					{Name: "b", Type: model.StringType{}},
				},
			},
		}},
	}
	ctx := NewContext(testProject, "", testPackage, []*model.Schema{schema})
	shim := findArtifact(t, mustGenerate(t, &AndroidGenerator{}, ctx), "crates/lib/src/ffi_android.rs")

	assertContains(t, shim,
		"use craby_core::android::interop::string::*;",
		"pub extern \"C\" fn Java_com_example_app_MyModuleModule_nativeMultiply(mut env: JNIEnv, _class: JObject, a: jdouble, b: jstring) -> jdouble {",
		"let b = String::from_native(b, &mut env).map_err(|e| format!(\"{:?}\", e))?;",
		"let ret = crate::generated::my_module::multiply(a, b);",
		"Ok(ret)",
		"let _ = env.throw_new(\"java/lang/RuntimeException\", err);",
		"0.0\n",
	)
}

func TestAndroidGenerator_Marshalling(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "Greeter.yaml")
	shim := findArtifact(t, mustGenerate(t, &AndroidGenerator{}, ctx), "crates/lib/src/ffi_android.rs")

	assertContains(t, shim,
		// Plain scalars pass straight through.
		"fn Java_com_example_app_GreeterModule_nativeSetEnabled(_env: JNIEnv, _class: JObject, enabled: jboolean) {\n    crate::generated::greeter::set_enabled(enabled != 0)\n}",
		// A null string becomes None; a scalar can never be absent.
		"let key = if key.is_null() { None } else { Some(String::from_native(key, &mut env)",
		"crate::generated::greeter::lookup(key, Some(limit))",
		"None => Ok(std::ptr::null_mut())",
		"ret.to_native(&mut env)",
	)
	if strings.Count(shim, "#[no_mangle]") != 3 {
		t.Errorf("expected one export per method")
	}
}

func TestAndroidGenerator_Kotlin(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "Greeter.yaml")
	kt := findArtifact(t, mustGenerate(t, &AndroidGenerator{}, ctx), "android/src/main/java/com/example/app/GreeterModule.kt")
	assertContains(t, kt,
		"package com.example.app",
		"object GreeterModule {",
		"System.loadLibrary(\"cxx-my-app\")",
		"@JvmStatic\n  external fun nativeGreet(name: String): String\n",
		"external fun nativeSetEnabled(enabled: Boolean)\n",
		"external fun nativeLookup(key: String?, limit: Double): String?\n",
	)
}

func TestAndroidGenerator_NativeEntry(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "Greeter.yaml", "MyModule.json")
	files := mustGenerate(t, &AndroidGenerator{}, ctx)

	onLoad := findArtifact(t, files, "android/src/main/jni/OnLoad.cpp")
	assertContains(t, onLoad,
		"#include <CxxGreeterModule.hpp>",
		"#include <CxxMyModuleModule.hpp>",
		"return std::make_shared<craby::myapp::modules::CxxMyModuleModule>(jsInvoker);",
		"Java_com_example_app_MyAppPackage_nativeSetDataPath(JNIEnv *env, jclass clazz, jstring jDataPath) {",
		"craby::myapp::modules::CxxGreeterModule::dataPath = dataPath;",
	)

	cmake := findArtifact(t, files, "android/CMakeLists.txt")
	assertContains(t, cmake,
		"add_library(cxx-my-app SHARED",
		"../cpp/CxxGreeterModule.cpp",
		"src/main/jni/libs/${ANDROID_ABI}/libmyapp-prebuilt.a",
		"\"-Wl,--undefined=Java_com_example_app_MyModuleModule_nativeMultiply\"",
	)

	pkg := findArtifact(t, files, "android/src/main/java/com/example/app/MyAppPackage.kt")
	assertContains(t, pkg,
		"class MyAppPackage : BaseReactPackage() {",
		"\"__crabyGreeter_JNI_prepare__\"",
		"private external fun nativeSetDataPath(dataPath: String)",
	)

	gradle := findArtifact(t, files, "android/build.gradle")
	assertContains(t, gradle, "namespace \"com.example.app\"", "targets \"cxx-my-app\"")
	if strings.Contains(gradle, "{pascal}") {
		t.Error("unreplaced placeholder in build.gradle")
	}
	assertContains(t, findArtifact(t, files, "android/gradle.properties"), "MyApp_minSdkVersion=24")
}

func TestAndroidGenerator_Stale(t *testing.T) {
	ctx := NewContext(testProject, "", testPackage, nil)
	fsys := fstest.MapFS{
		"android/src/main/java/com/example/app/OldModule.kt":    {Data: []byte("x")},
		"android/src/main/java/com/example/app/MyAppPackage.kt": {Data: []byte("x")},
		"android/src/main/java/com/other/OtherModule.kt":        {Data: []byte("x")},
	}
	stale, err := (&AndroidGenerator{}).Stale(ctx, fsys)
	if err != nil {
		t.Fatalf("stale failed: %v", err)
	}
	if len(stale) != 1 || stale[0] != "android/src/main/java/com/example/app/OldModule.kt" {
		t.Errorf("unexpected stale set %v", stale)
	}
}
