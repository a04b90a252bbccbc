// Package writer applies a generation plan to a project directory.
//
// Writes are staged next to their destinations before anything is renamed
// into place, so a failure while staging leaves the project untouched. Once
// staging succeeds the commit is renames followed by stale removals; a
// filesystem error part-way through that step is reported but not rolled
// back.
package writer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/momo-AUX1/craby/gen"
)

var log = commonlog.GetLogger("craby.writer")

const (
	// ScratchDir holds preserved outputs and run state, relative to the root.
	ScratchDir = ".craby"
	// HashFile records the schema hash of the last applied plan.
	HashFile = "schema.hash"
	// FingerprintFile records the generation fingerprint of the last applied
	// plan.
	FingerprintFile = "fingerprint"
)

// stageLimit bounds concurrent staging writes.
const stageLimit = 8

// rename is replaced in tests.
var rename = os.Rename

// Options controls how a plan is applied.
type Options struct {
	// Overwrite allows replacing existing overwrite=true artifacts. Scaffolds
	// are never replaced.
	Overwrite bool
	// DryRun computes the Result without touching the filesystem.
	DryRun bool
}

// Result lists project-relative, slash-separated paths by outcome.
type Result struct {
	Written   []string
	Preserved []string
	Unchanged []string
	Removed   []string
}

type action int

const (
	actWrite action = iota
	actPreserve
	actSkip
)

type entry struct {
	artifact *gen.Artifact
	dest     string
	act      action
	staged   string
}

// Apply writes plan under root. Stale files are removed only after every
// write has been staged and renamed into place.
func Apply(root string, plan *gen.Plan, opts Options) (*Result, error) {
	entries, err := classify(root, plan, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, e := range entries {
		switch e.act {
		case actWrite:
			res.Written = append(res.Written, e.artifact.Path)
		case actPreserve:
			res.Preserved = append(res.Preserved, e.artifact.Path)
		case actSkip:
			res.Unchanged = append(res.Unchanged, e.artifact.Path)
		}
	}
	for _, p := range plan.Stale {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(p))); err == nil {
			res.Removed = append(res.Removed, p)
		}
	}

	if opts.DryRun {
		return res, nil
	}

	if err := stage(entries); err != nil {
		return nil, err
	}

	for i, e := range entries {
		if e.act != actWrite {
			continue
		}
		if err := rename(e.staged, e.dest); err != nil {
			discard(entries[i:])
			return nil, fmt.Errorf("committing %s: %w", e.artifact.Path, err)
		}
		log.Debugf("wrote %s", e.artifact.Path)
	}

	for _, p := range res.Removed {
		if err := os.Remove(filepath.Join(root, filepath.FromSlash(p))); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale %s: %w", p, err)
		}
		log.Debugf("removed %s", p)
	}

	for _, e := range entries {
		if e.act != actPreserve {
			continue
		}
		if err := writeFile(filepath.Join(root, ScratchDir, filepath.FromSlash(e.artifact.Path)), e.artifact.Content); err != nil {
			return nil, fmt.Errorf("preserving %s: %w", e.artifact.Path, err)
		}
		log.Infof("preserved existing %s", e.artifact.Path)
	}

	if plan.Hash != "" {
		if err := writeFile(filepath.Join(root, ScratchDir, HashFile), []byte(plan.Hash+"\n")); err != nil {
			return nil, fmt.Errorf("recording schema hash: %w", err)
		}
	}
	if plan.Fingerprint != "" {
		if err := writeFile(filepath.Join(root, ScratchDir, FingerprintFile), []byte(plan.Fingerprint+"\n")); err != nil {
			return nil, fmt.Errorf("recording fingerprint: %w", err)
		}
	}
	return res, nil
}

// ReadHash returns the hash recorded by the last Apply, or "" if none.
func ReadHash(root string) (string, error) {
	return readState(root, HashFile)
}

// ReadFingerprint returns the fingerprint recorded by the last Apply, or ""
// if none.
func ReadFingerprint(root string) (string, error) {
	return readState(root, FingerprintFile)
}

func readState(root, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, ScratchDir, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func classify(root string, plan *gen.Plan, opts Options) ([]*entry, error) {
	entries := make([]*entry, 0, len(plan.Artifacts))
	for _, a := range plan.Artifacts {
		if a.Path == "" || filepath.IsAbs(a.Path) || strings.HasPrefix(filepath.Clean(filepath.FromSlash(a.Path)), "..") {
			return nil, fmt.Errorf("artifact path %q escapes the project root", a.Path)
		}
		e := &entry{artifact: a, dest: filepath.Join(root, filepath.FromSlash(a.Path))}

		current, err := os.ReadFile(e.dest)
		switch {
		case errors.Is(err, os.ErrNotExist):
			e.act = actWrite
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", a.Path, err)
		case bytes.Equal(current, a.Content):
			e.act = actSkip
		case a.Overwrite && opts.Overwrite:
			e.act = actWrite
		default:
			e.act = actPreserve
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// stage writes every pending artifact to a temporary file beside its
// destination. On failure all staged files are removed.
func stage(entries []*entry) error {
	var g errgroup.Group
	g.SetLimit(stageLimit)
	for _, e := range entries {
		if e.act != actWrite {
			continue
		}
		e := e
		g.Go(func() error {
			dir := filepath.Dir(e.dest)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating directory for %s: %w", e.artifact.Path, err)
			}
			f, err := os.CreateTemp(dir, ".craby-stage-*")
			if err != nil {
				return fmt.Errorf("staging %s: %w", e.artifact.Path, err)
			}
			e.staged = f.Name()
			if _, err := f.Write(e.artifact.Content); err != nil {
				f.Close()
				return fmt.Errorf("staging %s: %w", e.artifact.Path, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("staging %s: %w", e.artifact.Path, err)
			}
			return os.Chmod(e.staged, 0o644)
		})
	}
	if err := g.Wait(); err != nil {
		discard(entries)
		return err
	}
	return nil
}

// discard removes staged files that were not committed.
func discard(entries []*entry) {
	for _, e := range entries {
		if e.staged == "" {
			continue
		}
		if err := os.Remove(e.staged); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warningf("could not remove staged file %s: %s", e.staged, err)
		}
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
