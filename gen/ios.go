package gen

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/momo-AUX1/craby/naming"
	"github.com/momo-AUX1/craby/resolver"
)

func init() {
	Register("ios", func() Generator { return &IosGenerator{} })
}

// IosGenerator produces the C-ABI shim of the Rust crate, its C header and
// the Objective-C++ provider that registers the C++ modules at load time.
type IosGenerator struct{}

func (g *IosGenerator) Name() string { return "ios" }

func (g *IosGenerator) Stale(ctx *Context, fsys fs.FS) ([]string, error) {
	return globStale(fsys, iosSrcDir, "*.mm")
}

func (g *IosGenerator) Generate(ctx *Context) ([]*Artifact, error) {
	var shim, header []*resolver.Signature
	for _, s := range ctx.Schemas {
		sigs, err := resolveSchema(s, resolver.IOS)
		if err != nil {
			return nil, fmt.Errorf("generating C-ABI shim: %w", err)
		}
		shim = append(shim, sigs...)

		decls, err := resolveSchema(s, resolver.CHeader)
		if err != nil {
			return nil, fmt.Errorf("generating C header: %w", err)
		}
		header = append(header, decls...)
	}

	return []*Artifact{
		{Path: path.Join(rustSrcDir, "ffi_ios.rs"), Content: []byte(generateCABIShim(shim)), Overwrite: true},
		{Path: path.Join(iosIncDir, naming.IOSHeaderName(ctx.ProjectName)), Content: []byte(generateCHeader(header)), Overwrite: true},
		{Path: path.Join(iosSrcDir, naming.ObjCProviderName(ctx.ProjectName)+".mm"), Content: []byte(generateModuleProvider(ctx)), Overwrite: true},
	}, nil
}

// cSymbol is the exported C name of a method.
func cSymbol(method string) string { return naming.Sanitize(method) }

// ---------- C-ABI shim ----------

const lastErrorStore = `thread_local! {
    static LAST_ERROR: RefCell<Option<CString>> = RefCell::new(None);
}

#[allow(dead_code)]
fn set_last_error(err: String) {
    let msg = CString::new(err).unwrap_or_else(|_| CString::new("error message contains a nul byte").unwrap());
    LAST_ERROR.with(|e| *e.borrow_mut() = Some(msg));
}

#[no_mangle]
pub extern "C" fn craby_last_error() -> *const c_char {
    LAST_ERROR.with(|e| e.borrow().as_ref().map_or(std::ptr::null(), |msg| msg.as_ptr()))
}

#[no_mangle]
pub unsafe extern "C" fn craby_free_string(ptr: *mut c_char) {
    if !ptr.is_null() {
        drop(CString::from_raw(ptr));
    }
}
`

func generateCABIShim(sigs []*resolver.Signature) string {
	var b strings.Builder
	b.WriteString("use std::cell::RefCell;\n")
	b.WriteString("use std::ffi::CString;\n")
	b.WriteString("use std::os::raw::*;\n")
	for _, imp := range shimImports(sigs) {
		fmt.Fprintf(&b, "use %s;\n", imp)
	}
	b.WriteString("\n")
	b.WriteString(lastErrorStore)

	for _, sig := range sigs {
		b.WriteString("\n#[no_mangle]\n")
		fmt.Fprintf(&b, "pub extern \"C\" fn %s(%s)%s {\n",
			cSymbol(sig.Method), strings.Join(shimParams(sig), ", "), rustReturn(sig.Return))
		writeShimBody(&b, iosShim, sig)
		b.WriteString("}\n")
	}
	return b.String()
}

// ---------- C header ----------

// cDecl joins a C type and a name, keeping pointer stars attached to the name.
func cDecl(typ, name string) string {
	if strings.HasSuffix(typ, "*") {
		return typ + name
	}
	return typ + " " + name
}

func generateCHeader(sigs []*resolver.Signature) string {
	var b strings.Builder
	b.WriteString("#pragma once\n\n")
	b.WriteString("#include <stdbool.h>\n\n")
	b.WriteString("#ifdef __cplusplus\n")
	b.WriteString("extern \"C\" {\n")
	b.WriteString("#endif\n\n")

	for _, sig := range sigs {
		params := make([]string, len(sig.Params))
		for i, p := range sig.Params {
			params[i] = cDecl(p.Type.Expr, p.Name)
		}
		list := strings.Join(params, ", ")
		if list == "" {
			list = "void"
		}
		fmt.Fprintf(&b, "%s(%s);\n", cDecl(sig.Return.Expr, cSymbol(sig.Method)), list)
	}
	if len(sigs) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("const char *craby_last_error(void);\n")
	b.WriteString("void craby_free_string(char *ptr);\n\n")
	b.WriteString("#ifdef __cplusplus\n")
	b.WriteString("}\n")
	b.WriteString("#endif\n")
	return b.String()
}

// ---------- module provider ----------

func generateModuleProvider(ctx *Context) string {
	provider := naming.ObjCProviderName(ctx.ProjectName)

	var b strings.Builder
	for _, s := range ctx.Schemas {
		fmt.Fprintf(&b, "#import \"%s.hpp\"\n", naming.CxxModuleName(s.ModuleName))
	}
	b.WriteString("#import <ReactCommon/CxxTurboModuleUtils.h>\n")
	b.WriteString("#include <string>\n\n")

	fmt.Fprintf(&b, "@interface %s : NSObject\n", provider)
	b.WriteString("@end\n\n")
	fmt.Fprintf(&b, "@implementation %s\n\n", provider)

	b.WriteString("+ (void)load {\n")
	b.WriteString("  const char *cDataPath = [[self getDataPath] UTF8String];\n")
	b.WriteString("  std::string dataPath(cDataPath);\n\n")
	for _, s := range ctx.Schemas {
		fmt.Fprintf(&b, "  %s::dataPath = dataPath;\n", naming.CxxModuleQualified(ctx.ProjectName, s.ModuleName))
	}
	if len(ctx.Schemas) > 0 {
		b.WriteString("\n")
	}
	for _, s := range ctx.Schemas {
		writeModuleRegistration(&b, naming.CxxModuleQualified(ctx.ProjectName, s.ModuleName), 2)
	}
	b.WriteString("}\n\n")
	b.WriteString(dataPathMethod)
	b.WriteString("\n@end\n")
	return b.String()
}

const dataPathMethod = `+ (NSString *)getDataPath {
  NSString *appGroupID = [[NSBundle mainBundle] objectForInfoDictionaryKey:@"AppGroupID"];
  NSString *dataPath = nil;

  if (appGroupID != nil) {
    NSFileManager *fileManager = [NSFileManager defaultManager];
    NSURL *containerURL = [fileManager containerURLForSecurityApplicationGroupIdentifier:appGroupID];

    if (containerURL == nil) {
      throw [NSException exceptionWithName:@"CrabyInitializationException"
                                    reason:[NSString stringWithFormat:@"Invalid AppGroup ID: %@", appGroupID]
                                  userInfo:nil];
    }
    dataPath = [containerURL path];
  } else {
    NSArray *paths = NSSearchPathForDirectoriesInDomains(NSDocumentDirectory, NSUserDomainMask, true);
    dataPath = [paths firstObject];
  }

  return dataPath;
}
`
