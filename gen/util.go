package gen

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/momo-AUX1/craby/model"
	"github.com/momo-AUX1/craby/resolver"
)

var log = commonlog.GetLogger("craby.gen")

// Project-relative directories shared by several emitters.
const (
	cppDir        = "cpp"
	rustSrcDir    = "crates/lib/src"
	rustIncDir    = "crates/lib/include"
	androidDir    = "android"
	androidSrcDir = "android/src/main"
	jniDir        = "android/src/main/jni"
	iosIncDir     = "ios/include"
	iosSrcDir     = "ios/src"
)

// indent prefixes every non-empty line of s with n spaces.
func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}

// resolveSchema resolves every method of s on target, in declaration order.
func resolveSchema(s *model.Schema, target resolver.Target) ([]*resolver.Signature, error) {
	sigs := make([]*resolver.Signature, 0, len(s.Methods))
	for i := range s.Methods {
		sig, err := resolver.ResolveMethod(s.ModuleName, &s.Methods[i], target)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// usedNullables returns the families that cross the cxx bridge as a nullable
// struct anywhere in ctx, in Families order. The bridge structs, their From
// conversions and the C++ bridging templates are all emitted from this list.
func usedNullables(ctx *Context) ([]resolver.Family, error) {
	used := map[resolver.Family]bool{}
	for _, s := range ctx.Schemas {
		sigs, err := resolveSchema(s, resolver.Bridge)
		if err != nil {
			return nil, err
		}
		for _, sig := range sigs {
			for _, p := range sig.Params {
				if p.Type.Nullable {
					used[p.Type.Family] = true
				}
			}
			if sig.Return.Nullable {
				used[sig.Return.Family] = true
			}
		}
	}
	var out []resolver.Family
	for _, f := range resolver.Families {
		if used[f] {
			out = append(out, f)
		}
	}
	return out, nil
}

// rustParams renders "a: f64, b: String" for a resolved Rust signature.
func rustParams(sig *resolver.Signature) string {
	parts := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		parts[i] = p.Name + ": " + p.Type.Expr
	}
	return strings.Join(parts, ", ")
}

// rustReturn renders " -> T", or "" for void.
func rustReturn(t *resolver.Type) string {
	if t.IsVoid() {
		return ""
	}
	return " -> " + t.Expr
}

// paramNames renders the parameter names of sig joined by ", ".
func paramNames(sig *resolver.Signature) string {
	names := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

// globStale lists files in dir of fsys whose base name matches pattern.
// A missing dir yields no paths.
func globStale(fsys fs.FS, dir, pattern string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := path.Match(pattern, e.Name())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if ok {
			out = append(out, path.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
