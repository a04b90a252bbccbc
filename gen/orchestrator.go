package gen

import (
	"fmt"
	"io/fs"
	"sort"

	"github.com/momo-AUX1/craby/model"
)

// Plan is the complete outcome of a generation run. Nothing is written until
// a Plan is handed to the writer.
type Plan struct {
	Artifacts []*Artifact
	// Stale lists previously generated files to remove. Paths regenerated in
	// the same run are excluded.
	Stale []string
	// Hash is the content hash of the schema set.
	Hash string
	// Fingerprint covers the whole generation input, see Context.Fingerprint.
	Fingerprint string
}

// Run executes every emitter of the pipeline against ctx. fsys is rooted at
// the project root and is only read. Any failure aborts the whole run.
func Run(ctx *Context, fsys fs.FS) (*Plan, error) {
	gens, err := Pipeline()
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	owner := map[string]string{}
	stale := map[string]bool{}

	for _, g := range gens {
		paths, err := g.Stale(ctx, fsys)
		if err != nil {
			return nil, fmt.Errorf("%s: collecting stale files: %w", g.Name(), err)
		}
		for _, p := range paths {
			stale[p] = true
		}

		artifacts, err := g.Generate(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.Name(), err)
		}
		for _, a := range artifacts {
			if prev, ok := owner[a.Path]; ok {
				return nil, fmt.Errorf("%s: artifact %s already generated by %s", g.Name(), a.Path, prev)
			}
			owner[a.Path] = g.Name()
		}
		log.Debugf("%s: %d artifact(s), %d stale candidate(s)", g.Name(), len(artifacts), len(paths))
		plan.Artifacts = append(plan.Artifacts, artifacts...)
	}

	for p := range stale {
		if _, regenerated := owner[p]; !regenerated {
			plan.Stale = append(plan.Stale, p)
		}
	}
	sort.Strings(plan.Stale)

	Finalize(plan.Artifacts)

	hash, err := model.Hash(ctx.Schemas)
	if err != nil {
		return nil, err
	}
	plan.Hash = hash
	if plan.Fingerprint, err = ctx.Fingerprint(); err != nil {
		return nil, err
	}

	log.Infof("planned %d artifact(s), %d stale file(s), hash %s", len(plan.Artifacts), len(plan.Stale), hash)
	return plan, nil
}
