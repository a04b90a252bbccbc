package cmd

import (
	"fmt"

	"github.com/momo-AUX1/craby/config"
	"github.com/momo-AUX1/craby/gen"
	"github.com/momo-AUX1/craby/loader"
	"github.com/momo-AUX1/craby/model"
	"github.com/momo-AUX1/craby/resolver"
	"github.com/momo-AUX1/craby/validate"
)

// loadProject finds craby.toml from the project flag, then loads and checks
// every module schema in its source directory.
func loadProject() (*config.Config, []*model.Schema, error) {
	cfg, err := config.FindAndLoad(projectDir)
	if err != nil {
		return nil, nil, err
	}

	schemas, err := loader.LoadSchemas(cfg.SourcePath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading schemas: %w", err)
	}

	result := validate.Validate(schemas)
	if !result.IsValid() {
		return nil, nil, fmt.Errorf("validation failed:\n%s", result.Error())
	}
	for _, s := range schemas {
		if err := resolver.CheckSchema(s); err != nil {
			return nil, nil, err
		}
	}
	return cfg, schemas, nil
}

func newContext(cfg *config.Config, schemas []*model.Schema) *gen.Context {
	return gen.NewContext(cfg.Project.Name, cfg.Dir, cfg.Android.PackageName, schemas)
}
