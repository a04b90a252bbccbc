// Package config handles craby.toml project configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/momo-AUX1/craby/naming"
)

// FileName is the project configuration file at the project root.
const FileName = "craby.toml"

var (
	// ErrNotFound is returned when no craby.toml exists.
	ErrNotFound = errors.New("craby.toml not found")
	// ErrExists is returned by Save when craby.toml is already present.
	ErrExists = errors.New("craby.toml already exists")
)

var javaPackagePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "javapkg", func(fl validator.FieldLevel) bool {
		return javaPackagePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "projname", func(fl validator.FieldLevel) bool {
		return naming.Flat(fl.Field().String()) != ""
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("config: registering %s validation: %v", tag, err))
	}
}

// Config represents a craby.toml project configuration.
type Config struct {
	Project Project `toml:"project"`
	Android Android `toml:"android"`

	// Dir is the directory containing the craby.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name      string `toml:"name" validate:"required,projname"`
	SourceDir string `toml:"source_dir" validate:"required"`
}

// Android configures the generated Kotlin and JNI code.
type Android struct {
	PackageName string `toml:"package_name" validate:"required,javapkg"`
}

// Load parses and validates the craby.toml in dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := Validate(&c); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a craby.toml file, then loads
// it. It returns ErrNotFound when the filesystem root is reached first.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("%w in %s or any parent directory", ErrNotFound, startDir)
		}
		dir = parent
	}
}

// Validate checks required fields and formats. Field paths in the returned
// error use the toml keys, e.g. "android.package_name".
func Validate(c *Config) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		field := ve.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		messages = append(messages, field+": "+formatValidationError(ve))
	}
	return errors.New(strings.Join(messages, "; "))
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "is required"
	case "javapkg":
		return fmt.Sprintf("%q is not a valid Java package name", ve.Value())
	case "projname":
		return fmt.Sprintf("%q must contain at least one letter or digit", ve.Value())
	default:
		return "failed " + ve.Tag() + " validation"
	}
}

// Save validates c and writes it as dir/craby.toml. It never overwrites an
// existing file.
func Save(dir string, c *Config) error {
	if err := Validate(c); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding %s: %w", FileName, err)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w at %s", ErrExists, path)
	}
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// SourcePath returns the absolute directory holding module schemas.
func (c *Config) SourcePath() string {
	if filepath.IsAbs(c.Project.SourceDir) {
		return c.Project.SourceDir
	}
	return filepath.Join(c.Dir, c.Project.SourceDir)
}

// ScratchDir returns the path to the .craby directory.
func (c *Config) ScratchDir() string {
	return filepath.Join(c.Dir, ".craby")
}
