package gen

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/momo-AUX1/craby/model"
	"github.com/momo-AUX1/craby/naming"
	"github.com/momo-AUX1/craby/resolver"
)

func init() {
	Register("rust", func() Generator { return &RustGenerator{} })
}

// RustGenerator produces the Rust host binding: the crate entry, the cxx
// bridge, the per-module traits and module blocks, shared type aliases and a
// one-time implementation scaffold per module.
type RustGenerator struct{}

func (g *RustGenerator) Name() string { return "rust" }

// Stale returns nothing. Implementation files belong to the user and the
// remaining outputs have fixed names.
func (g *RustGenerator) Stale(*Context, fs.FS) ([]string, error) { return nil, nil }

func (g *RustGenerator) Generate(ctx *Context) ([]*Artifact, error) {
	nullables, err := usedNullables(ctx)
	if err != nil {
		return nil, err
	}

	ffi, err := generateRustFFI(ctx, nullables)
	if err != nil {
		return nil, fmt.Errorf("generating ffi.rs: %w", err)
	}
	generated, err := generateRustGenerated(ctx, nullables)
	if err != nil {
		return nil, fmt.Errorf("generating generated.rs: %w", err)
	}

	files := []*Artifact{
		{Path: path.Join(rustSrcDir, "lib.rs"), Content: []byte(generateRustLib(ctx)), Overwrite: true},
		{Path: path.Join(rustSrcDir, "ffi.rs"), Content: []byte(ffi), Overwrite: true},
		{Path: path.Join(rustSrcDir, "generated.rs"), Content: []byte(generated), Overwrite: true},
		{Path: path.Join(rustSrcDir, "types.rs"), Content: []byte(rustTypes), Overwrite: true},
	}

	for _, s := range ctx.Schemas {
		impl, err := generateRustImpl(s)
		if err != nil {
			return nil, fmt.Errorf("generating implementation of %s: %w", s.ModuleName, err)
		}
		files = append(files, &Artifact{
			Path:    path.Join(rustSrcDir, naming.ImplModName(s.ModuleName)+".rs"),
			Content: []byte(impl),
		})
	}
	return files, nil
}

// generateRustLib produces src/lib.rs with module declarations.
func generateRustLib(ctx *Context) string {
	var b strings.Builder
	b.WriteString("#[rustfmt::skip]\n")
	b.WriteString("pub(crate) mod ffi;\n")
	b.WriteString("pub(crate) mod generated;\n")
	b.WriteString("pub(crate) mod types;\n\n")
	b.WriteString("#[cfg(target_os = \"android\")]\n")
	b.WriteString("pub(crate) mod ffi_android;\n")
	b.WriteString("#[cfg(target_os = \"ios\")]\n")
	b.WriteString("pub(crate) mod ffi_ios;\n")
	if len(ctx.Schemas) > 0 {
		b.WriteString("\n")
	}
	for _, s := range ctx.Schemas {
		fmt.Fprintf(&b, "pub(crate) mod %s;\n", naming.ImplModName(s.ModuleName))
	}
	return b.String()
}

// ---------- cxx bridge ----------

func generateRustFFI(ctx *Context, nullables []resolver.Family) (string, error) {
	var b strings.Builder

	b.WriteString("use crate::generated::*;\n")
	for _, s := range ctx.Schemas {
		fmt.Fprintf(&b, "use crate::%s::*;\n", naming.ImplModName(s.ModuleName))
	}
	b.WriteString("\nuse bridging::*;\n\n")

	bridgeSigs := make([][]*resolver.Signature, len(ctx.Schemas))
	for i, s := range ctx.Schemas {
		sigs, err := resolveSchema(s, resolver.Bridge)
		if err != nil {
			return "", err
		}
		bridgeSigs[i] = sigs
	}

	b.WriteString("#[cxx::bridge(namespace = \"craby::bridging\")]\n")
	b.WriteString("pub mod bridging {\n")
	for _, f := range nullables {
		fmt.Fprintf(&b, "    struct %s {\n", resolver.NullableStructName(f))
		b.WriteString("        null: bool,\n")
		fmt.Fprintf(&b, "        val: %s,\n", resolver.Expr(f, false, resolver.Bridge).Expr)
		b.WriteString("    }\n\n")
	}

	b.WriteString("    extern \"Rust\" {\n")
	for i, s := range ctx.Schemas {
		if i > 0 {
			b.WriteString("\n")
		}
		typ := naming.Pascal(s.ModuleName)
		create := naming.BridgeCreateFn(s.ModuleName)
		fmt.Fprintf(&b, "        type %s;\n\n", typ)
		fmt.Fprintf(&b, "        #[cxx_name = \"%s\"]\n", create)
		fmt.Fprintf(&b, "        fn %s(id: usize) -> Box<%s>;\n", naming.Snake(create), typ)
		for j, sig := range bridgeSigs[i] {
			method := s.Methods[j].Name
			fmt.Fprintf(&b, "\n        #[cxx_name = \"%s\"]\n", naming.BridgeCxxFnName(s.ModuleName, method))
			fmt.Fprintf(&b, "        fn %s(%s) -> Result<%s>;\n",
				naming.BridgeFnName(s.ModuleName, method), bridgeParams(typ, sig), sig.Return.Expr)
		}
	}
	b.WriteString("    }\n")

	if ctx.HasSignals() {
		b.WriteString("\n")
		b.WriteString("    #[namespace = \"craby::signals\"]\n")
		b.WriteString("    unsafe extern \"C++\" {\n")
		b.WriteString("        include!(\"CrabySignals.h\");\n\n")
		b.WriteString("        type SignalManager;\n\n")
		b.WriteString("        fn emit(self: &SignalManager, id: usize, name: &str);\n")
		b.WriteString("        #[rust_name = \"get_signal_manager\"]\n")
		b.WriteString("        fn getSignalManager() -> &'static SignalManager;\n")
		b.WriteString("    }\n")
	}
	b.WriteString("}\n")

	// ---------- wrappers ----------
	for i, s := range ctx.Schemas {
		typ := naming.Pascal(s.ModuleName)
		fmt.Fprintf(&b, "\nfn %s(id: usize) -> Box<%s> {\n", naming.Snake(naming.BridgeCreateFn(s.ModuleName)), typ)
		fmt.Fprintf(&b, "    Box::new(%s::new(id))\n", typ)
		b.WriteString("}\n")

		for j, sig := range bridgeSigs[i] {
			m := &s.Methods[j]
			args := make([]string, len(sig.Params))
			for k, p := range sig.Params {
				args[k] = p.Name
				if p.Type.Nullable {
					args[k] += ".into()"
				}
			}
			call := fmt.Sprintf("it_.%s(%s)", naming.Sanitize(m.Name), strings.Join(args, ", "))
			if sig.Return.Nullable {
				call += ".into()"
			}
			ret := sig.Return.Expr
			if sig.Return.IsVoid() {
				ret = "()"
			}
			fmt.Fprintf(&b, "\nfn %s(%s) -> Result<%s, String> {\n",
				naming.BridgeFnName(s.ModuleName, m.Name), bridgeParams(typ, sig), ret)
			fmt.Fprintf(&b, "    catch_panic(|| %s)\n", call)
			b.WriteString("}\n")
		}
	}

	b.WriteString(rustCatchPanic)
	return b.String(), nil
}

func bridgeParams(typ string, sig *resolver.Signature) string {
	params := "it_: &mut " + typ
	if len(sig.Params) > 0 {
		params += ", " + rustParams(sig)
	}
	return params
}

const rustCatchPanic = `
fn catch_panic<T>(f: impl FnOnce() -> T) -> Result<T, String> {
    std::panic::catch_unwind(std::panic::AssertUnwindSafe(f)).map_err(|err| {
        if let Some(msg) = err.downcast_ref::<&str>() {
            msg.to_string()
        } else if let Some(msg) = err.downcast_ref::<String>() {
            msg.clone()
        } else {
            String::from("native module panicked")
        }
    })
}
`

// ---------- traits and module blocks ----------

func generateRustGenerated(ctx *Context, nullables []resolver.Family) (string, error) {
	var b strings.Builder
	if len(nullables) > 0 {
		b.WriteString("use crate::ffi::bridging::*;\n")
	}

	for _, s := range ctx.Schemas {
		sigs, err := resolveSchema(s, resolver.Host)
		if err != nil {
			return "", err
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		writeRustSpec(&b, s, sigs)
		b.WriteString("\n")
		writeRustModuleBlock(&b, s, sigs)
	}

	for _, f := range nullables {
		writeNullableConversions(&b, f)
	}
	return b.String(), nil
}

// writeRustSpec renders the signal enum and the Spec trait of a module.
func writeRustSpec(b *strings.Builder, s *model.Schema, sigs []*resolver.Signature) {
	enum := naming.SignalEnumName(s.ModuleName)
	if s.HasSignals() {
		fmt.Fprintf(b, "pub enum %s {\n", enum)
		for _, sg := range s.Signals {
			fmt.Fprintf(b, "    %s,\n", naming.Pascal(sg.Name))
		}
		b.WriteString("}\n\n")
	}

	fmt.Fprintf(b, "pub trait %s {\n", naming.SpecTraitName(s.ModuleName))
	b.WriteString("    fn new(id: usize) -> Self;\n")
	b.WriteString("    fn id(&self) -> usize;\n")

	if s.HasSignals() {
		b.WriteString("\n")
		fmt.Fprintf(b, "    fn emit(&self, signal: %s) {\n", enum)
		b.WriteString("        let manager = crate::ffi::bridging::get_signal_manager();\n")
		b.WriteString("        match signal {\n")
		for _, sg := range s.Signals {
			fmt.Fprintf(b, "            %s::%s => manager.emit(self.id(), %q),\n", enum, naming.Pascal(sg.Name), sg.Name)
		}
		b.WriteString("        }\n")
		b.WriteString("    }\n")
	}

	if len(sigs) > 0 {
		b.WriteString("\n")
	}
	for i, sig := range sigs {
		fmt.Fprintf(b, "    %s;\n", rustMethodSig(s.Methods[i].Name, sig))
	}
	b.WriteString("}\n")
}

func rustMethodSig(method string, sig *resolver.Signature) string {
	params := "&mut self"
	if len(sig.Params) > 0 {
		params += ", " + rustParams(sig)
	}
	return fmt.Sprintf("fn %s(%s)%s", naming.Sanitize(method), params, rustReturn(sig.Return))
}

// writeRustModuleBlock renders the FFI-facing module of a schema: a lazily
// created default instance and one free function per method forwarding to it
// with the same argument order.
func writeRustModuleBlock(b *strings.Builder, s *model.Schema, sigs []*resolver.Signature) {
	typ := naming.Pascal(s.ModuleName)
	fmt.Fprintf(b, "pub mod %s {\n", naming.Sanitize(s.ModuleName))
	fmt.Fprintf(b, "    use super::%s;\n", naming.SpecTraitName(s.ModuleName))
	fmt.Fprintf(b, "    use crate::%s::%s;\n", naming.ImplModName(s.ModuleName), typ)
	b.WriteString("    use std::sync::{LazyLock, Mutex};\n\n")
	fmt.Fprintf(b, "    static DEFAULT: LazyLock<Mutex<%s>> = LazyLock::new(|| Mutex::new(%s::new(0)));\n", typ, typ)
	for i, sig := range sigs {
		name := naming.Sanitize(s.Methods[i].Name)
		b.WriteString("\n")
		fmt.Fprintf(b, "    pub fn %s(%s)%s {\n", name, rustParams(sig), rustReturn(sig.Return))
		fmt.Fprintf(b, "        DEFAULT.lock().unwrap().%s(%s)\n", name, paramNames(sig))
		b.WriteString("    }\n")
	}
	b.WriteString("}\n")
}

func writeNullableConversions(b *strings.Builder, f resolver.Family) {
	st := resolver.NullableStructName(f)
	opt := resolver.Expr(f, true, resolver.Host).Expr

	fmt.Fprintf(b, "\nimpl From<%s> for %s {\n", st, opt)
	fmt.Fprintf(b, "    fn from(val: %s) -> Self {\n", st)
	b.WriteString("        if val.null {\n")
	b.WriteString("            None\n")
	b.WriteString("        } else {\n")
	b.WriteString("            Some(val.val)\n")
	b.WriteString("        }\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")

	fmt.Fprintf(b, "\nimpl From<%s> for %s {\n", opt, st)
	fmt.Fprintf(b, "    fn from(val: %s) -> Self {\n", opt)
	b.WriteString("        match val {\n")
	fmt.Fprintf(b, "            Some(val) => %s { null: false, val },\n", st)
	fmt.Fprintf(b, "            None => %s { null: true, val: Default::default() },\n", st)
	b.WriteString("        }\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
}

// ---------- implementation scaffold ----------

func generateRustImpl(s *model.Schema) (string, error) {
	sigs, err := resolveSchema(s, resolver.Host)
	if err != nil {
		return "", err
	}
	typ := naming.Pascal(s.ModuleName)

	var b strings.Builder
	b.WriteString("use crate::generated::*;\n")
	b.WriteString("use crate::types::*;\n\n")
	fmt.Fprintf(&b, "pub struct %s {\n", typ)
	b.WriteString("    id: usize,\n")
	b.WriteString("}\n\n")
	fmt.Fprintf(&b, "impl %s for %s {\n", naming.SpecTraitName(s.ModuleName), typ)
	b.WriteString("    fn new(id: usize) -> Self {\n")
	fmt.Fprintf(&b, "        %s { id }\n", typ)
	b.WriteString("    }\n\n")
	b.WriteString("    fn id(&self) -> usize {\n")
	b.WriteString("        self.id\n")
	b.WriteString("    }\n")
	for i, sig := range sigs {
		b.WriteString("\n")
		fmt.Fprintf(&b, "    %s {\n", rustMethodSig(s.Methods[i].Name, sig))
		b.WriteString("        unimplemented!();\n")
		b.WriteString("    }\n")
	}
	b.WriteString("}\n")
	return b.String(), nil
}

const rustTypes = `pub type Boolean = bool;
pub type Number = f64;
pub type String = std::string::String;
pub type Array<T> = Vec<T>;
pub type Promise<T> = Result<T, anyhow::Error>;
pub type Void = ();

pub mod promise {
    use super::Promise;

    pub fn resolve<T>(val: T) -> Promise<T> {
        Ok(val)
    }

    pub fn rejected<T>(err: impl AsRef<str>) -> Promise<T> {
        Err(anyhow::anyhow!(err.as_ref().to_string()))
    }
}

pub struct Nullable<T> {
    val: Option<T>,
}

impl<T> Nullable<T> {
    pub fn new(val: Option<T>) -> Self {
        Nullable { val }
    }

    pub fn some(val: T) -> Self {
        Nullable { val: Some(val) }
    }

    pub fn none() -> Self {
        Nullable { val: None }
    }

    pub fn value_of(&self) -> Option<&T> {
        self.val.as_ref()
    }

    pub fn into_value(self) -> Option<T> {
        self.val
    }
}

impl<T> From<Option<T>> for Nullable<T> {
    fn from(val: Option<T>) -> Self {
        Nullable { val }
    }
}

impl<T> From<Nullable<T>> for Option<T> {
    fn from(val: Nullable<T>) -> Self {
        val.val
    }
}
`
