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
	Register("android", func() Generator { return &AndroidGenerator{} })
}

// AndroidGenerator produces the JNI shim of the Rust crate, the Kotlin
// externals calling it, and the Android library project around them.
type AndroidGenerator struct{}

func (g *AndroidGenerator) Name() string { return "android" }

// javaDir is the source directory of the configured Java package.
func javaDir(ctx *Context) string {
	return path.Join(androidSrcDir, "java", naming.JavaPackagePath(ctx.AndroidPackage))
}

// Stale returns the Kotlin module objects in the package directory.
func (g *AndroidGenerator) Stale(ctx *Context, fsys fs.FS) ([]string, error) {
	if ctx.AndroidPackage == "" {
		return nil, nil
	}
	return globStale(fsys, javaDir(ctx), "*Module.kt")
}

func (g *AndroidGenerator) Generate(ctx *Context) ([]*Artifact, error) {
	sigs := make([][]*resolver.Signature, len(ctx.Schemas))
	for i, s := range ctx.Schemas {
		resolved, err := resolveSchema(s, resolver.Android)
		if err != nil {
			return nil, fmt.Errorf("generating JNI shim: %w", err)
		}
		sigs[i] = resolved
	}

	files := []*Artifact{
		{Path: path.Join(rustSrcDir, "ffi_android.rs"), Content: []byte(generateJNIShim(ctx, sigs)), Overwrite: true},
	}

	for _, s := range ctx.Schemas {
		kt, err := generateKotlinModule(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("generating Kotlin module %s: %w", s.ModuleName, err)
		}
		files = append(files, &Artifact{
			Path:      path.Join(javaDir(ctx), naming.KotlinModuleClass(s.ModuleName)+".kt"),
			Content:   []byte(kt),
			Overwrite: true,
		})
	}

	files = append(files,
		&Artifact{Path: path.Join(jniDir, "OnLoad.cpp"), Content: []byte(generateJNIOnLoad(ctx)), Overwrite: true},
		&Artifact{Path: path.Join(androidDir, "CMakeLists.txt"), Content: []byte(generateAndroidCMake(ctx, sigs)), Overwrite: true},
		&Artifact{Path: path.Join(androidDir, "build.gradle"), Content: []byte(generateBuildGradle(ctx)), Overwrite: true},
		&Artifact{Path: path.Join(androidDir, "gradle.properties"), Content: []byte(generateGradleProperties(ctx)), Overwrite: true},
		&Artifact{Path: path.Join(androidSrcDir, "AndroidManifest.xml"), Content: []byte(generateManifest(ctx)), Overwrite: true},
		&Artifact{
			Path:      path.Join(javaDir(ctx), naming.PackageClassName(ctx.ProjectName)+".kt"),
			Content:   []byte(generateRNPackage(ctx)),
			Overwrite: true,
		},
	)
	return files, nil
}

// jniSymbol is the exported name of a method's JNI entry point.
func jniSymbol(ctx *Context, module, method string) string {
	return naming.JNIFunctionName(ctx.AndroidPackage, naming.KotlinModuleClass(module), method)
}

// cxxLibName is the shared library holding the bridge and the JNI shim.
func cxxLibName(ctx *Context) string {
	return "cxx-" + naming.Kebab(ctx.ProjectName)
}

// ---------- JNI shim ----------

func generateJNIShim(ctx *Context, sigs [][]*resolver.Signature) string {
	var b strings.Builder

	b.WriteString("use craby_core::jni::objects::JObject;\n")
	b.WriteString("use craby_core::jni::sys::*;\n")
	b.WriteString("use craby_core::jni::JNIEnv;\n")

	var all []*resolver.Signature
	for _, s := range sigs {
		all = append(all, s...)
	}
	for _, imp := range shimImports(all) {
		fmt.Fprintf(&b, "use %s;\n", imp)
	}

	for i, s := range ctx.Schemas {
		for _, sig := range sigs[i] {
			b.WriteString("\n")
			writeJNIFunction(&b, ctx, s, sig)
		}
	}
	return b.String()
}

func writeJNIFunction(b *strings.Builder, ctx *Context, s *model.Schema, sig *resolver.Signature) {
	env := "_env"
	if sig.Marshals() {
		env = "mut env"
	}
	params := append([]string{env + ": JNIEnv", "_class: JObject"}, shimParams(sig)...)

	b.WriteString("#[no_mangle]\n")
	fmt.Fprintf(b, "pub extern \"C\" fn %s(%s)%s {\n",
		jniSymbol(ctx, s.ModuleName, sig.Method), strings.Join(params, ", "), rustReturn(sig.Return))
	writeShimBody(b, androidShim, sig)
	b.WriteString("}\n")
}

// ---------- Kotlin ----------

func generateKotlinModule(ctx *Context, s *model.Schema) (string, error) {
	sigs, err := resolveSchema(s, resolver.Kotlin)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\n", ctx.AndroidPackage)
	fmt.Fprintf(&b, "object %s {\n", naming.KotlinModuleClass(s.ModuleName))
	b.WriteString("  init {\n")
	fmt.Fprintf(&b, "    System.loadLibrary(%q)\n", cxxLibName(ctx))
	b.WriteString("  }\n")
	for i, sig := range sigs {
		params := make([]string, len(sig.Params))
		for j, p := range sig.Params {
			params[j] = p.Name + ": " + p.Type.Expr
		}
		ret := ""
		if !sig.Return.IsVoid() {
			ret = ": " + sig.Return.Expr
		}
		b.WriteString("\n")
		b.WriteString("  @JvmStatic\n")
		fmt.Fprintf(&b, "  external fun %s(%s)%s\n", naming.KotlinNativeFn(s.Methods[i].Name), strings.Join(params, ", "), ret)
	}
	b.WriteString("}\n")
	return b.String(), nil
}

func generateRNPackage(ctx *Context) string {
	pascal := naming.Pascal(ctx.ProjectName)
	names := make([]string, len(ctx.Schemas))
	for i, s := range ctx.Schemas {
		names[i] = fmt.Sprintf("      \"__craby%s_JNI_prepare__\"", s.ModuleName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\n", ctx.AndroidPackage)
	b.WriteString(`import com.facebook.react.BaseReactPackage
import com.facebook.react.bridge.NativeModule
import com.facebook.react.bridge.ReactApplicationContext
import com.facebook.react.bridge.ReactContextBaseJavaModule
import com.facebook.react.module.model.ReactModuleInfo
import com.facebook.react.module.model.ReactModuleInfoProvider
import com.facebook.react.turbomodule.core.interfaces.TurboModule
import com.facebook.soloader.SoLoader
import javax.annotation.Nonnull

`)
	fmt.Fprintf(&b, "class %sPackage : BaseReactPackage() {\n", pascal)
	b.WriteString("  companion object {\n")
	b.WriteString("    val JNI_PREPARE_MODULE_NAME = setOf(\n")
	b.WriteString(strings.Join(names, ",\n"))
	if len(names) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("    )\n")
	b.WriteString("  }\n\n")
	b.WriteString("  init {\n")
	fmt.Fprintf(&b, "    SoLoader.loadLibrary(%q)\n", cxxLibName(ctx))
	b.WriteString("  }\n\n")
	b.WriteString("  override fun getModule(name: String, reactContext: ReactApplicationContext): NativeModule? {\n")
	b.WriteString("    if (name in JNI_PREPARE_MODULE_NAME) {\n")
	b.WriteString("      nativeSetDataPath(reactContext.filesDir.absolutePath)\n")
	fmt.Fprintf(&b, "      return %sPackage.TurboModulePlaceholder(reactContext, name)\n", pascal)
	b.WriteString("    }\n")
	b.WriteString("    return null\n")
	b.WriteString("  }\n\n")
	b.WriteString(`  override fun getReactModuleInfoProvider(): ReactModuleInfoProvider {
    return ReactModuleInfoProvider {
      val moduleInfos: MutableMap<String, ReactModuleInfo> = HashMap()
      JNI_PREPARE_MODULE_NAME.forEach { name ->
        moduleInfos[name] = ReactModuleInfo(
          name,
          name,
          false, // canOverrideExistingModule
          false, // needsEagerInit
          false, // isCxxModule
          true, // isTurboModule
        )
      }
      moduleInfos
    }
  }

  private external fun nativeSetDataPath(dataPath: String)

  class TurboModulePlaceholder(reactContext: ReactApplicationContext?, private val name: String) :
    ReactContextBaseJavaModule(reactContext),
    TurboModule {
    @Nonnull
    override fun getName(): String {
      return name
    }
  }
}
`)
	return b.String()
}

// ---------- native entry ----------

func generateJNIOnLoad(ctx *Context) string {
	var b strings.Builder
	for _, s := range ctx.Schemas {
		fmt.Fprintf(&b, "#include <%s.hpp>\n", naming.CxxModuleName(s.ModuleName))
	}
	b.WriteString("#include <ReactCommon/CxxTurboModuleUtils.h>\n")
	b.WriteString("#include <jni.h>\n")
	b.WriteString("#include <string>\n\n")

	b.WriteString("jint JNI_OnLoad(JavaVM *vm, void *reserved) {\n")
	for _, s := range ctx.Schemas {
		writeModuleRegistration(&b, naming.CxxModuleQualified(ctx.ProjectName, s.ModuleName), 2)
	}
	b.WriteString("  return JNI_VERSION_1_6;\n")
	b.WriteString("}\n\n")

	setDataPath := naming.JNIFunctionName(ctx.AndroidPackage, naming.PackageClassName(ctx.ProjectName), "setDataPath")
	b.WriteString("extern \"C\"\n")
	b.WriteString("JNIEXPORT void JNICALL\n")
	fmt.Fprintf(&b, "%s(JNIEnv *env, jclass clazz, jstring jDataPath) {\n", setDataPath)
	b.WriteString("  const char *cDataPath = env->GetStringUTFChars(jDataPath, nullptr);\n")
	b.WriteString("  auto dataPath = std::string(cDataPath);\n")
	b.WriteString("  env->ReleaseStringUTFChars(jDataPath, cDataPath);\n")
	for _, s := range ctx.Schemas {
		fmt.Fprintf(&b, "  %s::dataPath = dataPath;\n", naming.CxxModuleQualified(ctx.ProjectName, s.ModuleName))
	}
	b.WriteString("}\n")
	return b.String()
}

// writeModuleRegistration registers a TurboModule class with the global
// C++ module map. Shared by the Android and iOS entry points.
func writeModuleRegistration(b *strings.Builder, qualified string, pad int) {
	var r strings.Builder
	r.WriteString("facebook::react::registerCxxModuleToGlobalModuleMap(\n")
	fmt.Fprintf(&r, "  %s::kModuleName,\n", qualified)
	r.WriteString("  [](std::shared_ptr<facebook::react::CallInvoker> jsInvoker) {\n")
	fmt.Fprintf(&r, "    return std::make_shared<%s>(jsInvoker);\n", qualified)
	r.WriteString("  });\n")
	b.WriteString(indent(r.String(), pad))
}

// ---------- build files ----------

func generateAndroidCMake(ctx *Context, sigs [][]*resolver.Signature) string {
	kebab := naming.Kebab(ctx.ProjectName)
	lib := cxxLibName(ctx)

	var b strings.Builder
	b.WriteString("cmake_minimum_required(VERSION 3.13)\n\n")
	fmt.Fprintf(&b, "project(craby-%s)\n\n", kebab)
	b.WriteString("set (CMAKE_VERBOSE_MAKEFILE ON)\n")
	b.WriteString("set (CMAKE_CXX_STANDARD 20)\n\n")
	b.WriteString("find_package(ReactAndroid REQUIRED CONFIG)\n\n")

	b.WriteString("# Import the pre-built Craby library\n")
	fmt.Fprintf(&b, "add_library(%s-lib STATIC IMPORTED)\n", kebab)
	fmt.Fprintf(&b, "set_target_properties(%s-lib PROPERTIES\n", kebab)
	fmt.Fprintf(&b, "  IMPORTED_LOCATION \"${CMAKE_SOURCE_DIR}/src/main/jni/libs/${ANDROID_ABI}/%s\"\n", naming.DestLibName(ctx.ProjectName))
	b.WriteString(")\n")
	fmt.Fprintf(&b, "target_include_directories(%s-lib INTERFACE\n", kebab)
	b.WriteString("  \"${CMAKE_SOURCE_DIR}/src/main/jni/include\"\n")
	b.WriteString(")\n\n")

	b.WriteString("# Generated C++ source files by Craby\n")
	fmt.Fprintf(&b, "add_library(%s SHARED\n", lib)
	b.WriteString("  src/main/jni/OnLoad.cpp\n")
	b.WriteString("  src/main/jni/src/ffi.rs.cc\n")
	for _, s := range ctx.Schemas {
		fmt.Fprintf(&b, "  ../cpp/%s.cpp\n", naming.CxxModuleName(s.ModuleName))
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "target_include_directories(%s PRIVATE\n", lib)
	b.WriteString("  ../cpp\n")
	b.WriteString(")\n\n")

	fmt.Fprintf(&b, "target_link_libraries(%s\n", lib)
	b.WriteString("  # android\n")
	b.WriteString("  ReactAndroid::reactnative\n")
	b.WriteString("  ReactAndroid::jsi\n")
	fmt.Fprintf(&b, "  # %s-lib\n", kebab)
	fmt.Fprintf(&b, "  %s-lib\n", kebab)
	b.WriteString(")\n")

	var symbols []string
	for i, s := range ctx.Schemas {
		for _, sig := range sigs[i] {
			symbols = append(symbols, jniSymbol(ctx, s.ModuleName, sig.Method))
		}
	}
	if len(symbols) > 0 {
		b.WriteString("\n# Keep the JNI entry points of the static library\n")
		fmt.Fprintf(&b, "target_link_options(%s PRIVATE\n", lib)
		for _, sym := range symbols {
			fmt.Fprintf(&b, "  \"-Wl,--undefined=%s\"\n", sym)
		}
		b.WriteString(")\n")
	}

	b.WriteString(`
# From ReactAndroid/cmake-utils/folly-flags.cmake
`)
	fmt.Fprintf(&b, "target_compile_definitions(%s PRIVATE\n", lib)
	b.WriteString(`  -DFOLLY_NO_CONFIG=1
  -DFOLLY_HAVE_CLOCK_GETTIME=1
  -DFOLLY_USE_LIBCPP=1
  -DFOLLY_CFG_NO_COROUTINES=1
  -DFOLLY_MOBILE=1
  -DFOLLY_HAVE_RECVMMSG=1
  -DFOLLY_HAVE_PTHREAD=1
  -DFOLLY_HAVE_XSI_STRERROR_R=1
)
`)
	return b.String()
}

func generateGradleProperties(ctx *Context) string {
	p := naming.Pascal(ctx.ProjectName)
	var b strings.Builder
	fmt.Fprintf(&b, "%s_kotlinVersion=2.0.21\n", p)
	fmt.Fprintf(&b, "%s_minSdkVersion=24\n", p)
	fmt.Fprintf(&b, "%s_targetSdkVersion=34\n", p)
	fmt.Fprintf(&b, "%s_compileSdkVersion=35\n", p)
	fmt.Fprintf(&b, "%s_ndkVersion=27.1.12297006\n", p)
	return b.String()
}

func generateManifest(ctx *Context) string {
	return fmt.Sprintf("<manifest xmlns:android=\"http://schemas.android.com/apk/res/android\"\n  package=%q>\n</manifest>\n", ctx.AndroidPackage)
}

func generateBuildGradle(ctx *Context) string {
	r := strings.NewReplacer(
		"{pascal}", naming.Pascal(ctx.ProjectName),
		"{lib}", cxxLibName(ctx),
		"{package}", ctx.AndroidPackage,
	)
	return r.Replace(buildGradleTemplate)
}

const buildGradleTemplate = `def reactNativeArchitectures() {
  def value = rootProject.getProperties().get("reactNativeArchitectures")
  return value ? value.split(",") : ["armeabi-v7a", "x86", "x86_64", "arm64-v8a"]
}

buildscript {
  ext.getExtOrDefault = {name ->
    return rootProject.ext.has(name) ? rootProject.ext.get(name) : project.properties['{pascal}_' + name]
  }

  repositories {
    google()
    mavenCentral()
  }

  dependencies {
    classpath "com.android.tools.build:gradle:8.7.2"
    // noinspection DifferentKotlinGradleVersion
    classpath "org.jetbrains.kotlin:kotlin-gradle-plugin:${getExtOrDefault('kotlinVersion')}"
  }
}

apply plugin: "com.android.library"
apply plugin: "kotlin-android"
apply plugin: "com.facebook.react"

def getExtOrIntegerDefault(name) {
  return rootProject.ext.has(name) ? rootProject.ext.get(name) : (project.properties["{pascal}_" + name]).toInteger()
}

android {
  namespace "{package}"

  compileSdkVersion getExtOrIntegerDefault("compileSdkVersion")

  defaultConfig {
    minSdkVersion getExtOrIntegerDefault("minSdkVersion")
    targetSdkVersion getExtOrIntegerDefault("targetSdkVersion")

    externalNativeBuild {
      cmake {
        targets "{lib}"
        cppFlags "-frtti -fexceptions -Wall -Wextra -fstack-protector-all"
        arguments "-DANDROID_STL=c++_shared", "-DANDROID_SUPPORT_FLEXIBLE_PAGE_SIZES=ON"
        abiFilters (*reactNativeArchitectures())
        buildTypes {
          debug {
            cppFlags "-O1 -g"
          }
          release {
            cppFlags "-O2"
          }
        }
      }
    }
  }

  externalNativeBuild {
    cmake {
      path "CMakeLists.txt"
    }
  }

  buildFeatures {
    buildConfig true
    prefab true
  }

  buildTypes {
    debug {
      jniDebuggable true
    }
    release {
      minifyEnabled false
      externalNativeBuild {
        cmake {
          arguments "-DCMAKE_BUILD_TYPE=Release"
        }
      }
    }
  }

  lintOptions {
    disable "GradleCompatible"
  }

  compileOptions {
    sourceCompatibility JavaVersion.VERSION_1_8
    targetCompatibility JavaVersion.VERSION_1_8
  }
}

repositories {
  mavenCentral()
  google()
}

def kotlin_version = getExtOrDefault("kotlinVersion")

dependencies {
  implementation "com.facebook.react:react-android"
  implementation "com.facebook.react:hermes-engine"
  implementation "org.jetbrains.kotlin:kotlin-stdlib:$kotlin_version"
}

react {
  jsRootDir = file("../src/")
  libraryName = "{pascal}_stub"
  codegenJavaPackageName = "{package}"
}
`
