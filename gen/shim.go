package gen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/momo-AUX1/craby/naming"
	"github.com/momo-AUX1/craby/resolver"
)

// shimStyle captures what differs between the two platform FFI shims. The
// body layout, conversion order and error flow are shared.
type shimStyle struct {
	// envArg is appended to conversion calls that need the runtime handle.
	envArg string
	// nullString is the absent value of a string pointer.
	nullString string
	// zero is the value returned after a failure, per family.
	zero map[resolver.Family]string
	// raise reports err to the platform caller.
	raise string
	// boolIn and boolOut convert between the platform boolean and bool.
	boolIn, boolOut string
}

var androidShim = shimStyle{
	envArg:     "&mut env",
	nullString: "std::ptr::null_mut()",
	zero: map[resolver.Family]string{
		resolver.FamilyBoolean: "0",
		resolver.FamilyNumber:  "0.0",
		resolver.FamilyString:  "std::ptr::null_mut()",
		resolver.FamilyVoid:    "()",
	},
	raise:   `let _ = env.throw_new("java/lang/RuntimeException", err);`,
	boolIn:  "%s != 0",
	boolOut: "%s as jboolean",
}

var iosShim = shimStyle{
	nullString: "std::ptr::null()",
	zero: map[resolver.Family]string{
		resolver.FamilyBoolean: "false",
		resolver.FamilyNumber:  "0.0",
		resolver.FamilyString:  "std::ptr::null()",
		resolver.FamilyVoid:    "()",
	},
	raise:   "set_last_error(err);",
	boolIn:  "%s",
	boolOut: "%s",
}

const mapConversionErr = `.map_err(|e| format!("{:?}", e))`

// fromNative renders a conversion call, e.g. String::from_native(b, &mut env).
func (st shimStyle) fromNative(fn, arg string) string {
	if st.envArg == "" {
		return fmt.Sprintf("%s(%s)", fn, arg)
	}
	return fmt.Sprintf("%s(%s, %s)", fn, arg, st.envArg)
}

// arg renders the host argument for a parameter that needs no statement.
func (st shimStyle) arg(p resolver.Param) string {
	v := p.Name
	if p.Type.Family == resolver.FamilyBoolean {
		v = fmt.Sprintf(st.boolIn, v)
	}
	if p.Interop.Nullable && p.Interop.FromNative == "" {
		v = "Some(" + v + ")"
	}
	return v
}

// hostCall renders the call into the module block of the host binding.
func hostCall(module, method string, args []string) string {
	return fmt.Sprintf("crate::generated::%s::%s(%s)", naming.Sanitize(module), naming.Sanitize(method), strings.Join(args, ", "))
}

// writeShimBody renders the body of an exported function. Without any
// marshalling it calls straight through; otherwise conversions run inside a
// fallible closure and a failure is reported to the caller before returning
// the zero value of the FFI return type.
func writeShimBody(b *strings.Builder, st shimStyle, sig *resolver.Signature) {
	ret := sig.Return

	if !sig.Marshals() {
		args := make([]string, len(sig.Params))
		for i, p := range sig.Params {
			args[i] = st.arg(p)
		}
		call := hostCall(sig.Module, sig.Method, args)
		if ret.Family == resolver.FamilyBoolean {
			call = fmt.Sprintf(st.boolOut, call)
		}
		fmt.Fprintf(b, "    %s\n", call)
		return
	}

	retType := ret.Expr
	if ret.IsVoid() {
		retType = "()"
	}
	fmt.Fprintf(b, "    let result = (|| -> Result<%s, String> {\n", retType)

	args := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		if p.Interop.FromNative == "" {
			args[i] = st.arg(p)
			continue
		}
		conv := st.fromNative(p.Interop.FromNative, p.Name) + mapConversionErr + "?"
		if p.Interop.Nullable {
			fmt.Fprintf(b, "        let %s = if %s.is_null() { None } else { Some(%s) };\n", p.Name, p.Name, conv)
		} else {
			fmt.Fprintf(b, "        let %s = %s;\n", p.Name, conv)
		}
		args[i] = p.Name
	}

	call := hostCall(sig.Module, sig.Method, args)
	if ret.IsVoid() {
		fmt.Fprintf(b, "        %s;\n", call)
		b.WriteString("        Ok(())\n")
	} else {
		fmt.Fprintf(b, "        let ret = %s;\n", call)
		fmt.Fprintf(b, "        %s\n", st.returnExpr(sig))
	}
	b.WriteString("    })();\n\n")

	b.WriteString("    match result {\n")
	b.WriteString("        Ok(ret) => ret,\n")
	b.WriteString("        Err(err) => {\n")
	fmt.Fprintf(b, "            %s\n", st.raise)
	fmt.Fprintf(b, "            %s\n", st.zero[ret.Family])
	b.WriteString("        }\n")
	b.WriteString("    }\n")
}

// returnExpr converts the bound host result `ret` into Result<FFI type, String>.
func (st shimStyle) returnExpr(sig *resolver.Signature) string {
	ret := sig.Return
	info := sig.ReturnInterop
	missing := fmt.Sprintf(".ok_or_else(|| String::from(\"%s returned null\"))", sig.Method)

	if info.ToNative != "" {
		conv := func(v string) string {
			if st.envArg == "" {
				return fmt.Sprintf("%s.%s()%s", v, info.ToNative, mapConversionErr)
			}
			return fmt.Sprintf("%s.%s(%s)%s", v, info.ToNative, st.envArg, mapConversionErr)
		}
		if info.Nullable {
			return fmt.Sprintf("match ret { Some(ret) => %s, None => Ok(%s) }", conv("ret"), st.nullString)
		}
		return conv("ret")
	}

	if ret.Family == resolver.FamilyBoolean {
		if info.Nullable {
			if st.boolOut == "%s" {
				return "ret" + missing
			}
			return "ret.map(|v| " + fmt.Sprintf(st.boolOut, "v") + ")" + missing
		}
		return "Ok(" + fmt.Sprintf(st.boolOut, "ret") + ")"
	}
	if info.Nullable {
		return "ret" + missing
	}
	return "Ok(ret)"
}

// shimParams renders the exported parameter list after any fixed leading
// parameters.
func shimParams(sig *resolver.Signature) []string {
	params := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = p.Name + ": " + p.Type.Expr
	}
	return params
}

// shimImports collects the sorted interop imports of every signature.
func shimImports(sigs []*resolver.Signature) []string {
	seen := map[string]bool{}
	var out []string
	for _, sig := range sigs {
		for _, imp := range sig.Imports() {
			if !seen[imp] {
				seen[imp] = true
				out = append(out, imp)
			}
		}
	}
	sort.Strings(out)
	return out
}
