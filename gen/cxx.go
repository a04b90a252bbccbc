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
	Register("cxx", func() Generator { return &CxxGenerator{} })
}

// CxxGenerator produces the C++ side of the native bridge: one TurboModule
// class per schema, the JSI bridging templates, the thread pool utilities and
// the signal manager.
type CxxGenerator struct{}

func (g *CxxGenerator) Name() string { return "cxx" }

// Stale returns the TurboModule sources currently in cpp/.
func (g *CxxGenerator) Stale(_ *Context, fsys fs.FS) ([]string, error) {
	var out []string
	for _, pattern := range []string{"Cxx*Module.cpp", "Cxx*Module.hpp"} {
		found, err := globStale(fsys, cppDir, pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func (g *CxxGenerator) Generate(ctx *Context) ([]*Artifact, error) {
	var files []*Artifact

	for _, s := range ctx.Schemas {
		cpp, hpp, err := generateCxxModule(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("generating C++ module %s: %w", s.ModuleName, err)
		}
		cls := naming.CxxModuleName(s.ModuleName)
		files = append(files,
			&Artifact{Path: path.Join(cppDir, cls+".cpp"), Content: []byte(cpp), Overwrite: true},
			&Artifact{Path: path.Join(cppDir, cls+".hpp"), Content: []byte(hpp), Overwrite: true},
		)
	}

	nullables, err := usedNullables(ctx)
	if err != nil {
		return nil, err
	}
	files = append(files,
		&Artifact{Path: path.Join(cppDir, "bridging-generated.hpp"), Content: []byte(generateCxxBridging(nullables)), Overwrite: true},
		&Artifact{Path: path.Join(cppDir, "CrabyUtils.hpp"), Content: []byte(cxxUtilsHeader), Overwrite: true},
	)

	if ctx.HasSignals() {
		files = append(files, &Artifact{
			Path:      path.Join(rustIncDir, "CrabySignals.h"),
			Content:   []byte(cxxSignalsHeader),
			Overwrite: true,
		})
	}
	return files, nil
}

// ---------- TurboModule class ----------

func generateCxxModule(ctx *Context, s *model.Schema) (cpp, hpp string, err error) {
	sigs, err := resolveSchema(s, resolver.Cxx)
	if err != nil {
		return "", "", err
	}

	ns := naming.CxxModulesNamespace(ctx.ProjectName)
	cls := naming.CxxModuleName(s.ModuleName)
	bridgeType := "craby::bridging::" + naming.Pascal(s.ModuleName)

	hpp = generateCxxModuleHeader(ns, cls, bridgeType, s)

	var b strings.Builder
	fmt.Fprintf(&b, "#include \"%s.hpp\"\n", cls)
	b.WriteString("#include \"cxx.h\"\n")
	b.WriteString("#include \"bridging-generated.hpp\"\n")
	b.WriteString("#include <react/bridging/Bridging.h>\n\n")
	b.WriteString("using namespace facebook;\n\n")
	fmt.Fprintf(&b, "namespace %s {\n\n", ns)

	fmt.Fprintf(&b, "std::string %s::dataPath;\n\n", cls)

	// Constructor
	fmt.Fprintf(&b, "%s::%s(\n", cls, cls)
	b.WriteString("    std::shared_ptr<react::CallInvoker> jsInvoker)\n")
	fmt.Fprintf(&b, "    : TurboModule(%s::kModuleName, jsInvoker) {\n", cls)
	b.WriteString("  callInvoker_ = std::move(jsInvoker);\n")
	fmt.Fprintf(&b, "  module_ = std::shared_ptr<%s>(\n", bridgeType)
	fmt.Fprintf(&b, "    craby::bridging::%s(reinterpret_cast<uintptr_t>(this)).into_raw(),\n", naming.BridgeCreateFn(s.ModuleName))
	fmt.Fprintf(&b, "    [](%s *ptr) { rust::Box<%s>::from_raw(ptr); }\n", bridgeType, bridgeType)
	b.WriteString("  );\n")
	b.WriteString("  threadPool_ = std::make_shared<craby::utils::ThreadPool>(10);\n")
	for i, sig := range sigs {
		fmt.Fprintf(&b, "  methodMap_[\"%s\"] = MethodMetadata{%d, &%s::%s};\n",
			s.Methods[i].Name, len(sig.Params), cls, naming.Camel(s.Methods[i].Name))
	}
	for _, sg := range s.Signals {
		fmt.Fprintf(&b, "  methodMap_[\"%s\"] = MethodMetadata{1, &%s::%s};\n", sg.Name, cls, naming.Camel(sg.Name))
	}
	if s.HasSignals() {
		b.WriteString("\n")
		b.WriteString("  uintptr_t id = reinterpret_cast<uintptr_t>(this);\n")
		b.WriteString("  auto &manager = craby::signals::SignalManager::getInstance();\n")
		fmt.Fprintf(&b, "  manager.registerDelegate(id, std::bind(&%s::emit, this, std::placeholders::_1));\n", cls)
	}
	b.WriteString("}\n\n")

	// Destructor and invalidation
	fmt.Fprintf(&b, "%s::~%s() {\n  invalidate();\n}\n\n", cls, cls)
	fmt.Fprintf(&b, "void %s::invalidate() {\n", cls)
	b.WriteString("  if (invalidated_.exchange(true)) {\n    return;\n  }\n\n")
	b.WriteString("  {\n")
	b.WriteString("    std::lock_guard<std::mutex> lock(listenersMutex_);\n")
	b.WriteString("    listenersMap_.clear();\n")
	b.WriteString("  }\n\n")
	if s.HasSignals() {
		b.WriteString("  uintptr_t id = reinterpret_cast<uintptr_t>(this);\n")
		b.WriteString("  craby::signals::SignalManager::getInstance().unregisterDelegate(id);\n\n")
	}
	b.WriteString("  threadPool_->shutdown();\n")
	b.WriteString("}\n")

	if s.HasSignals() {
		b.WriteString("\n")
		writeCxxEmit(&b, cls)
	}

	for i, sig := range sigs {
		b.WriteString("\n")
		writeCxxMethod(&b, cls, s.ModuleName, s.Methods[i].Name, sig)
	}
	for _, sg := range s.Signals {
		b.WriteString("\n")
		writeCxxSubscribe(&b, cls, sg.Name)
	}

	fmt.Fprintf(&b, "\n} // namespace %s\n", ns)
	return b.String(), hpp, nil
}

func generateCxxModuleHeader(ns, cls, bridgeType string, s *model.Schema) string {
	var b strings.Builder
	b.WriteString("#pragma once\n\n")
	b.WriteString("#include \"CrabyUtils.hpp\"\n")
	b.WriteString("#include \"ffi.rs.h\"\n")
	b.WriteString("#include <ReactCommon/TurboModule.h>\n")
	b.WriteString("#include <jsi/jsi.h>\n")
	b.WriteString("#include <atomic>\n")
	b.WriteString("#include <memory>\n")
	b.WriteString("#include <mutex>\n")
	b.WriteString("#include <string>\n")
	b.WriteString("#include <unordered_map>\n\n")
	fmt.Fprintf(&b, "namespace %s {\n\n", ns)

	fmt.Fprintf(&b, "class JSI_EXPORT %s : public facebook::react::TurboModule {\n", cls)
	b.WriteString("public:\n")
	fmt.Fprintf(&b, "  static constexpr const char *kModuleName = \"%s\";\n", s.ModuleName)
	b.WriteString("  static std::string dataPath;\n\n")
	fmt.Fprintf(&b, "  %s(std::shared_ptr<facebook::react::CallInvoker> jsInvoker);\n", cls)
	fmt.Fprintf(&b, "  ~%s();\n\n", cls)
	b.WriteString("  void invalidate();\n")
	if s.HasSignals() {
		b.WriteString("  void emit(std::string name);\n")
	}

	names := make([]string, 0, len(s.Methods)+len(s.Signals))
	for _, m := range s.Methods {
		names = append(names, naming.Camel(m.Name))
	}
	for _, sg := range s.Signals {
		names = append(names, naming.Camel(sg.Name))
	}
	for _, name := range names {
		b.WriteString("\n")
		b.WriteString("  static facebook::jsi::Value\n")
		fmt.Fprintf(&b, "  %s(facebook::jsi::Runtime &rt,\n", name)
		b.WriteString("      facebook::react::TurboModule &turboModule,\n")
		b.WriteString("      const facebook::jsi::Value args[], size_t count);\n")
	}

	b.WriteString("\nprotected:\n")
	b.WriteString("  std::shared_ptr<facebook::react::CallInvoker> callInvoker_;\n")
	fmt.Fprintf(&b, "  std::shared_ptr<%s> module_;\n", bridgeType)
	b.WriteString("  std::atomic<bool> invalidated_{false};\n")
	b.WriteString("  std::atomic<size_t> nextListenerId_{0};\n")
	b.WriteString("  std::mutex listenersMutex_;\n")
	b.WriteString("  std::unordered_map<\n")
	b.WriteString("    std::string,\n")
	b.WriteString("    std::unordered_map<size_t, std::shared_ptr<facebook::jsi::Function>>>\n")
	b.WriteString("    listenersMap_;\n")
	b.WriteString("  std::shared_ptr<craby::utils::ThreadPool> threadPool_;\n")
	b.WriteString("};\n\n")

	fmt.Fprintf(&b, "} // namespace %s\n", ns)
	return b.String()
}

// writeCxxMethod renders the JSI dispatch of one method: argument count
// check, per-argument conversion, the bridge call and the return conversion.
func writeCxxMethod(b *strings.Builder, cls, module, method string, sig *resolver.Signature) {
	arity := len(sig.Params)
	// Only the trailing run of nullable parameters may be omitted.
	required := 0
	for i, p := range sig.Params {
		if !p.Type.Nullable {
			required = i + 1
		}
	}

	fmt.Fprintf(b, "jsi::Value %s::%s(jsi::Runtime &rt,\n", cls, naming.Camel(method))
	b.WriteString("                              react::TurboModule &turboModule,\n")
	b.WriteString("                              const jsi::Value args[],\n")
	b.WriteString("                              size_t count) {\n")
	fmt.Fprintf(b, "  auto &thisModule = static_cast<%s &>(turboModule);\n", cls)
	b.WriteString("  auto callInvoker = thisModule.callInvoker_;\n")
	b.WriteString("  auto it_ = thisModule.module_;\n\n")
	b.WriteString("  try {\n")
	if required == arity {
		fmt.Fprintf(b, "    if (%d != count) {\n", arity)
		fmt.Fprintf(b, "      throw jsi::JSError(rt, \"Expected %s\");\n", argumentCount(arity))
	} else if required == 0 {
		fmt.Fprintf(b, "    if (count > %d) {\n", arity)
		fmt.Fprintf(b, "      throw jsi::JSError(rt, \"Expected at most %s\");\n", argumentCount(arity))
	} else {
		fmt.Fprintf(b, "    if (count < %d || count > %d) {\n", required, arity)
		fmt.Fprintf(b, "      throw jsi::JSError(rt, \"Expected %d to %d arguments\");\n", required, arity)
	}
	b.WriteString("    }\n\n")

	args := []string{"*it_"}
	for i, p := range sig.Params {
		arg := fmt.Sprintf("arg%d", i)
		from := fmt.Sprintf("react::bridging::fromJs<%s>(rt, args[%d], callInvoker)", p.Type.Expr, i)
		if i >= required {
			fmt.Fprintf(b, "    auto %s = count > %d\n", arg, i)
			fmt.Fprintf(b, "      ? %s\n", from)
			fmt.Fprintf(b, "      : %s{true, {}};\n", p.Type.Expr)
		} else {
			fmt.Fprintf(b, "    auto %s = %s;\n", arg, from)
		}
		args = append(args, arg)
	}
	if arity > 0 {
		b.WriteString("\n")
	}

	call := fmt.Sprintf("craby::bridging::%s(%s)", naming.BridgeCxxFnName(module, method), strings.Join(args, ", "))
	if sig.Return.IsVoid() {
		fmt.Fprintf(b, "    %s;\n\n", call)
		b.WriteString("    return jsi::Value::undefined();\n")
	} else {
		fmt.Fprintf(b, "    auto ret = %s;\n\n", call)
		b.WriteString("    return react::bridging::toJs(rt, ret);\n")
	}
	b.WriteString("  } catch (const jsi::JSError &err) {\n")
	b.WriteString("    throw err;\n")
	b.WriteString("  } catch (const std::exception &err) {\n")
	b.WriteString("    throw jsi::JSError(rt, craby::utils::errorMessage(err));\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
}

func argumentCount(n int) string {
	if n == 1 {
		return "1 argument"
	}
	return fmt.Sprintf("%d arguments", n)
}

func writeCxxEmit(b *strings.Builder, cls string) {
	fmt.Fprintf(b, "void %s::emit(std::string name) {\n", cls)
	b.WriteString("  std::vector<std::shared_ptr<facebook::jsi::Function>> listeners;\n")
	b.WriteString("  {\n")
	b.WriteString("    std::lock_guard<std::mutex> lock(listenersMutex_);\n")
	b.WriteString("    auto it = listenersMap_.find(name);\n")
	b.WriteString("    if (it != listenersMap_.end()) {\n")
	b.WriteString("      for (auto &[_, listener] : it->second) {\n")
	b.WriteString("        listeners.push_back(listener);\n")
	b.WriteString("      }\n")
	b.WriteString("    }\n")
	b.WriteString("  }\n\n")
	b.WriteString("  for (auto &listener : listeners) {\n")
	b.WriteString("    try {\n")
	b.WriteString("      callInvoker_->invokeAsync([listener](jsi::Runtime &rt) {\n")
	b.WriteString("        try {\n")
	b.WriteString("          listener->call(rt);\n")
	b.WriteString("        } catch (...) {\n")
	b.WriteString("          // Listener failures never reach the emitter.\n")
	b.WriteString("        }\n")
	b.WriteString("      });\n")
	b.WriteString("    } catch (const std::exception &err) {\n")
	b.WriteString("      // Noop\n")
	b.WriteString("    }\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
}

// writeCxxSubscribe renders the JS-facing subscription of one signal. It
// returns a cleanup function that removes the listener and is safe to call
// more than once.
func writeCxxSubscribe(b *strings.Builder, cls, signal string) {
	fmt.Fprintf(b, "jsi::Value %s::%s(jsi::Runtime &rt,\n", cls, naming.Camel(signal))
	b.WriteString("                              react::TurboModule &turboModule,\n")
	b.WriteString("                              const jsi::Value args[],\n")
	b.WriteString("                              size_t count) {\n")
	fmt.Fprintf(b, "  auto &thisModule = static_cast<%s &>(turboModule);\n\n", cls)
	b.WriteString("  try {\n")
	b.WriteString("    if (1 != count) {\n")
	b.WriteString("      throw jsi::JSError(rt, \"Expected 1 argument\");\n")
	b.WriteString("    }\n\n")
	b.WriteString("    auto callback = args[0].asObject(rt).asFunction(rt);\n")
	b.WriteString("    auto callbackRef = std::make_shared<jsi::Function>(std::move(callback));\n")
	b.WriteString("    auto id = thisModule.nextListenerId_.fetch_add(1);\n")
	fmt.Fprintf(b, "    std::string name = \"%s\";\n\n", signal)
	b.WriteString("    {\n")
	b.WriteString("      std::lock_guard<std::mutex> lock(thisModule.listenersMutex_);\n")
	b.WriteString("      thisModule.listenersMap_[name].emplace(id, callbackRef);\n")
	b.WriteString("    }\n\n")
	b.WriteString("    auto modulePtr = &thisModule;\n")
	b.WriteString("    auto cleanup = [modulePtr, name, id] {\n")
	b.WriteString("      std::lock_guard<std::mutex> lock(modulePtr->listenersMutex_);\n")
	b.WriteString("      auto eventMap = modulePtr->listenersMap_.find(name);\n")
	b.WriteString("      if (eventMap != modulePtr->listenersMap_.end()) {\n")
	b.WriteString("        eventMap->second.erase(id);\n")
	b.WriteString("      }\n")
	b.WriteString("      return jsi::Value::undefined();\n")
	b.WriteString("    };\n\n")
	b.WriteString("    return jsi::Function::createFromHostFunction(\n")
	b.WriteString("      rt,\n")
	b.WriteString("      jsi::PropNameID::forAscii(rt, \"cleanup\"),\n")
	b.WriteString("      0,\n")
	b.WriteString("      [cleanup](jsi::Runtime &rt, const jsi::Value &, const jsi::Value *, size_t) -> jsi::Value {\n")
	b.WriteString("        return cleanup();\n")
	b.WriteString("      });\n")
	b.WriteString("  } catch (const jsi::JSError &err) {\n")
	b.WriteString("    throw err;\n")
	b.WriteString("  } catch (const std::exception &err) {\n")
	b.WriteString("    throw jsi::JSError(rt, craby::utils::errorMessage(err));\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
}

// ---------- JSI bridging templates ----------

// cxxValueType is the C++ value type carried by a nullable bridge struct.
var cxxValueType = map[resolver.Family]string{
	resolver.FamilyBoolean: "bool",
	resolver.FamilyNumber:  "double",
	resolver.FamilyString:  "rust::String",
}

func generateCxxBridging(nullables []resolver.Family) string {
	var b strings.Builder
	b.WriteString(cxxBridgingPrelude)

	for _, f := range nullables {
		st := "craby::bridging::" + resolver.NullableStructName(f)
		val := cxxValueType[f]
		b.WriteString("\n")
		b.WriteString("template <>\n")
		fmt.Fprintf(&b, "struct Bridging<%s> {\n", st)
		fmt.Fprintf(&b, "  static %s fromJs(jsi::Runtime &rt, const jsi::Value &value, std::shared_ptr<CallInvoker> callInvoker) {\n", st)
		b.WriteString("    if (value.isNull() || value.isUndefined()) {\n")
		fmt.Fprintf(&b, "      return %s{true, {}};\n", st)
		b.WriteString("    }\n")
		fmt.Fprintf(&b, "    return %s{false, react::bridging::fromJs<%s>(rt, value, callInvoker)};\n", st, val)
		b.WriteString("  }\n\n")
		fmt.Fprintf(&b, "  static jsi::Value toJs(jsi::Runtime &rt, const %s &value) {\n", st)
		b.WriteString("    if (value.null) {\n")
		b.WriteString("      return jsi::Value::null();\n")
		b.WriteString("    }\n")
		b.WriteString("    return react::bridging::toJs(rt, value.val);\n")
		b.WriteString("  }\n")
		b.WriteString("};\n")
	}

	b.WriteString("\n} // namespace facebook::react\n")
	return b.String()
}

const cxxBridgingPrelude = `#pragma once

#include "cxx.h"
#include "ffi.rs.h"
#include <react/bridging/Bridging.h>

using namespace facebook;

namespace facebook::react {

template <>
struct Bridging<rust::Str> {
  static rust::Str fromJs(jsi::Runtime &rt, const jsi::Value &value, std::shared_ptr<CallInvoker> callInvoker) {
    auto str = value.asString(rt).utf8(rt);
    return rust::Str(str.data(), str.size());
  }

  static jsi::Value toJs(jsi::Runtime &rt, const rust::Str &value) {
    return react::bridging::toJs(rt, std::string(value.data(), value.size()));
  }
};

template <>
struct Bridging<rust::String> {
  static rust::String fromJs(jsi::Runtime &rt, const jsi::Value &value, std::shared_ptr<CallInvoker> callInvoker) {
    auto str = value.asString(rt).utf8(rt);
    return rust::String(str.data(), str.size());
  }

  static jsi::Value toJs(jsi::Runtime &rt, const rust::String &value) {
    return react::bridging::toJs(rt, std::string(value.data(), value.size()));
  }
};

template <typename T>
struct Bridging<rust::Vec<T>> {
  static rust::Vec<T> fromJs(jsi::Runtime &rt, const jsi::Value &value, std::shared_ptr<CallInvoker> callInvoker) {
    auto arr = value.asObject(rt).asArray(rt);
    size_t len = arr.length(rt);
    rust::Vec<T> vec;
    vec.reserve(len);

    for (size_t i = 0; i < len; i++) {
      auto element = arr.getValueAtIndex(rt, i);
      vec.push_back(react::bridging::fromJs<T>(rt, element, callInvoker));
    }

    return vec;
  }

  static jsi::Array toJs(jsi::Runtime &rt, const rust::Vec<T> &vec) {
    auto arr = jsi::Array(rt, vec.size());

    for (size_t i = 0; i < vec.size(); i++) {
      arr.setValueAtIndex(rt, i, react::bridging::toJs(rt, vec[i]));
    }

    return arr;
  }
};
`

// ---------- static headers ----------

const cxxUtilsHeader = `#pragma once

#include "cxx.h"
#include "ffi.rs.h"
#include <condition_variable>
#include <functional>
#include <mutex>
#include <queue>
#include <string>
#include <thread>
#include <vector>

namespace craby::utils {

class ThreadPool {
private:
  std::vector<std::thread> workers;
  std::queue<std::function<void()>> tasks;
  std::mutex mutex;
  std::condition_variable condition;
  bool stop;

public:
  ThreadPool(size_t num_threads = 10) : stop(false) {
    for (size_t i = 0; i < num_threads; ++i) {
      workers.emplace_back([this] {
        while (true) {
          std::function<void()> task;

          {
            std::unique_lock<std::mutex> lock(this->mutex);
            this->condition.wait(
                lock, [this] { return this->stop || !this->tasks.empty(); });

            if (this->stop && this->tasks.empty()) {
              return;
            }

            task = std::move(this->tasks.front());
            this->tasks.pop();
          }

          task();
        }
      });
    }
  }

  template <class F> void enqueue(F &&f) {
    {
      std::unique_lock<std::mutex> lock(mutex);
      if (stop) {
        return;
      }
      tasks.emplace(std::forward<F>(f));
    }
    condition.notify_one();
  }

  void shutdown() {
    {
      std::unique_lock<std::mutex> lock(mutex);
      stop = true;
      std::queue<std::function<void()>> empty;
      std::swap(tasks, empty);
    }

    condition.notify_all();

    for (std::thread &worker : workers) {
      if (worker.joinable()) {
        worker.join();
      }
    }
  }

  ~ThreadPool() {
    shutdown();
  }
};

inline std::string errorMessage(const std::exception &err) {
  const auto *rs_err = dynamic_cast<const rust::Error *>(&err);
  return std::string(rs_err ? rs_err->what() : err.what());
}

} // namespace craby::utils
`

const cxxSignalsHeader = `#pragma once

#include "rust/cxx.h"
#include <functional>
#include <memory>
#include <mutex>
#include <string>
#include <unordered_map>

namespace craby::signals {

using Delegate = std::function<void(const std::string &signalName)>;

class SignalManager {
public:
  static SignalManager &getInstance() {
    static SignalManager instance;
    return instance;
  }

  void emit(uintptr_t id, rust::Str name) const {
    Delegate delegate;
    {
      std::lock_guard<std::mutex> lock(mutex_);
      auto it = delegates_.find(id);
      if (it == delegates_.end()) {
        return;
      }
      delegate = it->second;
    }
    delegate(std::string(name));
  }

  void registerDelegate(uintptr_t id, Delegate delegate) const {
    std::lock_guard<std::mutex> lock(mutex_);
    delegates_.insert_or_assign(id, delegate);
  }

  void unregisterDelegate(uintptr_t id) const {
    std::lock_guard<std::mutex> lock(mutex_);
    delegates_.erase(id);
  }

private:
  SignalManager() = default;
  mutable std::unordered_map<uintptr_t, Delegate> delegates_;
  mutable std::mutex mutex_;
};

inline const SignalManager &getSignalManager() {
  return SignalManager::getInstance();
}

} // namespace craby::signals
`
