package gen

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/momo-AUX1/craby/model"
)

// Context holds everything a generator needs to produce output. It is built
// once per run and never mutated by an emitter.
type Context struct {
	ProjectName    string
	Root           string // Absolute project root, informational only
	AndroidPackage string
	Schemas        []*model.Schema
}

// NewContext creates a new generation context.
func NewContext(projectName, root, androidPackage string, schemas []*model.Schema) *Context {
	return &Context{
		ProjectName:    projectName,
		Root:           root,
		AndroidPackage: androidPackage,
		Schemas:        schemas,
	}
}

// HasSignals reports whether any schema declares a signal.
func (c *Context) HasSignals() bool {
	for _, s := range c.Schemas {
		if s.HasSignals() {
			return true
		}
	}
	return false
}

// Fingerprint hashes every input that shapes the generated output: the
// project name, the Android package and the schema set. Unlike model.Hash it
// changes when only craby.toml changes.
func (c *Context) Fingerprint() (string, error) {
	data, err := model.Serialize(c.Schemas)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 0, len(c.ProjectName)+len(c.AndroidPackage)+len(data)+2)
	buf = append(buf, c.ProjectName...)
	buf = append(buf, 0)
	buf = append(buf, c.AndroidPackage...)
	buf = append(buf, 0)
	buf = append(buf, data...)
	return fmt.Sprintf("%016x", xxh3.Hash(buf)), nil
}
