// Package pipeline drives specialization end to end: kernel writer, native
// toolchain build, artifact publication and module loading. Published
// binaries are process-wide, name-keyed singletons; rebuilding happens
// transparently when a load fails.
package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sivogel/hydpy-sub000/internal/kernel"
	"github.com/sivogel/hydpy-sub000/internal/kernelgen"
	"github.com/sivogel/hydpy-sub000/internal/model"
)

// Pipeline builds and publishes specialized kernels under one publish root.
type Pipeline struct {
	publishDir string
	builder    Builder

	mu     sync.Mutex
	loaded map[string]*kernel.Native
}

// New builds a pipeline publishing into dir through the given builder.
func New(dir string, builder Builder) *Pipeline {
	return &Pipeline{
		publishDir: dir,
		builder:    builder,
		loaded:     make(map[string]*kernel.Native),
	}
}

// PublishPath is the published binary's location for a model name.
func (p *Pipeline) PublishPath(modelName string) string {
	return filepath.Join(p.publishDir, modelName+DLLSuffix())
}

// Kernel returns the loaded module for d, loading the published binary
// first and rebuilding only when that load fails. Concurrent calls for one
// model name observe the same module.
func (p *Pipeline) Kernel(d *model.Descriptor) (*kernel.Native, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n, ok := p.loaded[d.Name]; ok {
		return n, nil
	}
	if n, err := kernel.OpenNative(p.PublishPath(d.Name), d); err == nil {
		p.loaded[d.Name] = n
		return n, nil
	}
	n, err := p.build(d)
	if err != nil {
		return nil, err
	}
	p.loaded[d.Name] = n
	return n, nil
}

// Rebuild regenerates, compiles and republishes unconditionally. Staleness
// detection against edited sources stays with the caller.
func (p *Pipeline) Rebuild(d *model.Descriptor) (*kernel.Native, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.build(d)
	if err != nil {
		return nil, err
	}
	p.loaded[d.Name] = n
	return n, nil
}

// Publish runs generation, build and publication without loading the
// result. It returns the published binary's path.
func (p *Pipeline) Publish(d *model.Descriptor) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.publish(d); err != nil {
		return "", err
	}
	return p.PublishPath(d.Name), nil
}

func (p *Pipeline) build(d *model.Descriptor) (*kernel.Native, error) {
	if err := p.publish(d); err != nil {
		return nil, err
	}
	return kernel.OpenNative(p.PublishPath(d.Name), d)
}

// publish generates the source unit, runs the toolchain and moves the
// artifact into the publish directory. A generation or build failure
// aborts with nothing published.
func (p *Pipeline) publish(d *model.Descriptor) error {
	if err := os.MkdirAll(p.publishDir, 0755); err != nil {
		return err
	}
	src, err := kernelgen.New(d).WriteSource(p.publishDir)
	if err != nil {
		return err
	}
	if _, err := kernelgen.WriteStub(d, p.publishDir); err != nil {
		// Diagnostic listing only; generation goes on without it.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	// Build inside the publish root so publication is a same-volume move.
	buildDir, err := os.MkdirTemp(p.publishDir, d.Name+"_build_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(buildDir)

	if err := p.builder.Build(src, buildDir, d.Name); err != nil {
		return fmt.Errorf("model %s: %w", d.Name, err)
	}
	artifact, err := findArtifact(buildDir, d.Name)
	if err != nil {
		return err
	}
	target := p.PublishPath(d.Name)
	if err := os.Rename(artifact, target); err != nil {
		return &PublishError{Model: d.Name, Target: target, Wrapped: err}
	}
	return nil
}

// findArtifact scans the build tree for the single output carrying the
// model-name prefix and the platform's dynamic-library suffix.
func findArtifact(root, modelName string) (string, error) {
	want := modelName + DLLSuffix()
	var found string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if strings.HasPrefix(name, modelName) && strings.HasSuffix(name, DLLSuffix()) {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", &ArtifactError{Model: modelName, Expected: want, Root: root}
	}
	return found, nil
}
