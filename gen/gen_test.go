package gen

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/momo-AUX1/craby/loader"
	"github.com/momo-AUX1/craby/model"
	"github.com/momo-AUX1/craby/resolver"
)

const (
	testProject = "my-app"
	testPackage = "com.example.app"
)

// loadTestContext builds a context from documents in testdata/<dir>.
func loadTestContext(t *testing.T, dir string, names ...string) *Context {
	t.Helper()
	schemas := make([]*model.Schema, 0, len(names))
	for _, name := range names {
		s, err := loader.LoadSchema(filepath.Join("..", "testdata", dir, name))
		if err != nil {
			t.Fatalf("failed to load %s: %v", name, err)
		}
		schemas = append(schemas, s)
	}
	return NewContext(testProject, "/tmp/my-app", testPackage, schemas)
}

func mustGenerate(t *testing.T, g Generator, ctx *Context) []*Artifact {
	t.Helper()
	files, err := g.Generate(ctx)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	return files
}

func findArtifact(t *testing.T, files []*Artifact, p string) string {
	t.Helper()
	for _, f := range files {
		if f.Path == p {
			return string(f.Content)
		}
	}
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	t.Fatalf("artifact %s not generated; got %v", p, paths)
	return ""
}

func assertContains(t *testing.T, content string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(content, want) {
			t.Errorf("missing %q in:\n%s", want, content)
		}
	}
}

func TestRegistry_Pipeline(t *testing.T) {
	gens, err := Pipeline()
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	var names []string
	for _, g := range gens {
		names = append(names, g.Name())
	}
	if !reflect.DeepEqual(names, []string{"cxx", "rust", "android", "ios"}) {
		t.Errorf("unexpected emitter order %v", names)
	}
	if got := All(); len(got) != 4 {
		t.Errorf("expected 4 registered generators, got %v", got)
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("cxx", func() Generator { return &CxxGenerator{} })
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "MyModule.json")
	plan, err := Run(ctx, fstest.MapFS{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	generated := findArtifact(t, plan.Artifacts, "crates/lib/src/generated.rs")
	assertContains(t, generated,
		"pub mod my_module {",
		"pub fn multiply(a: f64, b: f64) -> f64 {",
		"DEFAULT.lock().unwrap().multiply(a, b)",
	)

	shim := findArtifact(t, plan.Artifacts, "crates/lib/src/ffi_android.rs")
	assertContains(t, shim,
		"pub extern \"C\" fn Java_com_example_app_MyModuleModule_nativeMultiply(_env: JNIEnv, _class: JObject, a: jdouble, b: jdouble) -> jdouble {",
		"crate::generated::my_module::multiply(a, b)",
	)

	cxx := findArtifact(t, plan.Artifacts, "cpp/CxxMyModuleModule.cpp")
	assertContains(t, cxx, "craby::bridging::myModuleMultiply(*it_, arg0, arg1)")

	ffi := findArtifact(t, plan.Artifacts, "crates/lib/src/ffi.rs")
	assertContains(t, ffi,
		"#[cxx_name = \"myModuleMultiply\"]",
		"fn my_module_multiply(it_: &mut MyModule, a: f64, b: f64) -> Result<f64>;",
	)

	want, err := model.Hash(ctx.Schemas)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if plan.Hash != want {
		t.Errorf("plan hash %s, want %s", plan.Hash, want)
	}
	if len(plan.Stale) != 0 {
		t.Errorf("expected no stale files, got %v", plan.Stale)
	}
}

func TestRun_Deterministic(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "Greeter.yaml", "MyModule.json")
	first, err := Run(ctx, fstest.MapFS{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	second, err := Run(ctx, fstest.MapFS{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(first.Artifacts) != len(second.Artifacts) {
		t.Fatalf("artifact count changed: %d vs %d", len(first.Artifacts), len(second.Artifacts))
	}
	for i := range first.Artifacts {
		a, b := first.Artifacts[i], second.Artifacts[i]
		if a.Path != b.Path || !bytes.Equal(a.Content, b.Content) || a.Overwrite != b.Overwrite {
			t.Errorf("artifact %d differs between runs (%s vs %s)", i, a.Path, b.Path)
		}
	}
	if first.Hash != second.Hash {
		t.Errorf("hash changed between runs")
	}
}

func TestContext_Fingerprint(t *testing.T) {
	base := loadTestContext(t, "schemas", "MyModule.json")
	fingerprint := func(ctx *Context) string {
		t.Helper()
		fp, err := ctx.Fingerprint()
		if err != nil {
			t.Fatalf("fingerprint failed: %v", err)
		}
		return fp
	}
	want := fingerprint(base)

	if got := fingerprint(NewContext(base.ProjectName, "/elsewhere", base.AndroidPackage, base.Schemas)); got != want {
		t.Errorf("project root changed the fingerprint: %s vs %s", got, want)
	}

	tests := []struct {
		name string
		ctx  *Context
	}{
		{"android package", NewContext(base.ProjectName, base.Root, "com.changed", base.Schemas)},
		{"project name", NewContext("other-app", base.Root, base.AndroidPackage, base.Schemas)},
		{"schemas", loadTestContext(t, "schemas", "Greeter.yaml")},
	}
	for _, tt := range tests {
		if got := fingerprint(tt.ctx); got == want {
			t.Errorf("%s: fingerprint unchanged (%s)", tt.name, got)
		}
	}

	plan, err := Run(base, fstest.MapFS{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if plan.Fingerprint != want {
		t.Errorf("plan fingerprint %s, want %s", plan.Fingerprint, want)
	}
}

func TestRun_StaleFiles(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "MyModule.json")
	fsys := fstest.MapFS{
		"cpp/CxxOldModule.cpp":                                  {Data: []byte("old")},
		"cpp/CxxOldModule.hpp":                                  {Data: []byte("old")},
		"cpp/CxxMyModuleModule.cpp":                             {Data: []byte("old")},
		"cpp/CrabyUtils.hpp":                                    {Data: []byte("old")},
		"ios/src/Old.mm":                                        {Data: []byte("old")},
		"ios/src/MyAppModuleProvider.mm":                        {Data: []byte("old")},
		"android/src/main/java/com/example/app/OldModule.kt":    {Data: []byte("old")},
		"android/src/main/java/com/example/app/MyAppPackage.kt": {Data: []byte("old")},
		"crates/lib/src/old_impl.rs":                            {Data: []byte("user code")},
	}

	plan, err := Run(ctx, fsys)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := []string{
		"android/src/main/java/com/example/app/OldModule.kt",
		"cpp/CxxOldModule.cpp",
		"cpp/CxxOldModule.hpp",
		"ios/src/Old.mm",
	}
	if !reflect.DeepEqual(plan.Stale, want) {
		t.Errorf("stale = %v, want %v", plan.Stale, want)
	}
}

func TestRun_UnsupportedType(t *testing.T) {
	ctx := loadTestContext(t, "unsupported", "Lists.json")
	plan, err := Run(ctx, fstest.MapFS{})
	if err == nil {
		t.Fatal("expected error for array parameter")
	}
	if plan != nil {
		t.Error("a failed run must not return a plan")
	}

	var ute *resolver.UnsupportedTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("expected UnsupportedTypeError, got %T: %v", err, err)
	}
	if ute.Module != "Lists" || ute.Method != "sum" || ute.Param != "values" {
		t.Errorf("error location = %s.%s(%s)", ute.Module, ute.Method, ute.Param)
	}
	if ute.Kind != model.KindArray {
		t.Errorf("error kind = %s, want %s", ute.Kind, model.KindArray)
	}
}

type dupGenerator struct{ name string }

func (g *dupGenerator) Name() string                            { return g.name }
func (g *dupGenerator) Stale(*Context, fs.FS) ([]string, error) { return nil, nil }
func (g *dupGenerator) Generate(*Context) ([]*Artifact, error) {
	return []*Artifact{{Path: "crates/lib/src/lib.rs", Content: []byte("x"), Overwrite: true}}, nil
}

func TestRun_DuplicatePath(t *testing.T) {
	Register("dup-test", func() Generator { return &dupGenerator{name: "dup-test"} })
	defer func() {
		registryMu.Lock()
		delete(registry, "dup-test")
		registryMu.Unlock()
	}()

	saved := Order
	Order = []string{"rust", "dup-test"}
	defer func() { Order = saved }()

	ctx := loadTestContext(t, "schemas", "MyModule.json")
	_, err := Run(ctx, fstest.MapFS{})
	if err == nil {
		t.Fatal("expected duplicate path error")
	}
	if !strings.Contains(err.Error(), "crates/lib/src/lib.rs") {
		t.Errorf("error should name the path: %v", err)
	}
}

func TestRun_UnknownGenerator(t *testing.T) {
	saved := Order
	Order = []string{"cxx", "nope"}
	defer func() { Order = saved }()

	_, err := Run(loadTestContext(t, "schemas", "MyModule.json"), fstest.MapFS{})
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("expected unregistered generator error, got %v", err)
	}
}

func TestRun_CrossEmitterNames(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "Greeter.yaml")
	plan, err := Run(ctx, fstest.MapFS{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	cxx := findArtifact(t, plan.Artifacts, "cpp/CxxGreeterModule.cpp")
	ffi := findArtifact(t, plan.Artifacts, "crates/lib/src/ffi.rs")
	generated := findArtifact(t, plan.Artifacts, "crates/lib/src/generated.rs")
	android := findArtifact(t, plan.Artifacts, "crates/lib/src/ffi_android.rs")
	ios := findArtifact(t, plan.Artifacts, "crates/lib/src/ffi_ios.rs")
	onLoad := findArtifact(t, plan.Artifacts, "android/src/main/jni/OnLoad.cpp")
	provider := findArtifact(t, plan.Artifacts, "ios/src/MyAppModuleProvider.mm")

	// The C++ bridge calls what the cxx bridge declares.
	assertContains(t, cxx, "craby::bridging::greeterSetEnabled(", "craby::bridging::createGreeter(")
	assertContains(t, ffi, "#[cxx_name = \"greeterSetEnabled\"]", "#[cxx_name = \"createGreeter\"]")

	// Both shims call the module block the host binding defines.
	assertContains(t, generated, "pub mod greeter {", "pub fn set_enabled(enabled: bool) {")
	assertContains(t, android, "crate::generated::greeter::set_enabled(")
	assertContains(t, ios, "crate::generated::greeter::set_enabled(")

	// Both entry points register the same class.
	assertContains(t, onLoad, "craby::myapp::modules::CxxGreeterModule::kModuleName")
	assertContains(t, provider, "craby::myapp::modules::CxxGreeterModule::kModuleName")
}

func TestRun_MarkersAndScaffolds(t *testing.T) {
	ctx := loadTestContext(t, "schemas", "MyModule.json")
	plan, err := Run(ctx, fstest.MapFS{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, a := range plan.Artifacts {
		content := string(a.Content)
		if !strings.HasSuffix(content, "\n") || strings.HasSuffix(content, "\n\n") {
			t.Errorf("%s must end with exactly one newline", a.Path)
		}
		hasMarker := strings.Contains(content, MarkerText)
		if a.Overwrite && Marker(a.Path) != "" && !strings.HasPrefix(content, Marker(a.Path)+"\n") {
			t.Errorf("%s is missing the generated marker", a.Path)
		}
		if !a.Overwrite && hasMarker {
			t.Errorf("scaffold %s must not carry the marker", a.Path)
		}
	}

	for _, a := range plan.Artifacts {
		if a.Path == "crates/lib/src/my_module_impl.rs" && a.Overwrite {
			t.Error("implementation scaffold must not be overwritten")
		}
	}
}
