package pipeline

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Builder compiles one generated source unit into a shared library placed
// somewhere under outDir. The produced file must carry the model-name
// prefix and the platform library suffix.
type Builder interface {
	Build(srcPath, outDir, modelName string) error
}

// DLLSuffix is the dynamic-library extension for the running platform.
func DLLSuffix() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// CC invokes a C toolchain in one synchronous batch per model.
type CC struct {
	Cmd   string   // compiler binary, e.g. "cc" or "gcc"
	Flags []string // extra flags appended after the defaults
}

// DefaultCC targets the system compiler with position-independent output.
func DefaultCC() *CC {
	return &CC{Cmd: "cc"}
}

// Build compiles srcPath into outDir/<modelName><suffix>. Toolchain
// diagnostics come back verbatim inside the returned error.
func (c *CC) Build(srcPath, outDir, modelName string) error {
	out := filepath.Join(outDir, modelName+DLLSuffix())
	args := []string{"-shared", "-fPIC", "-O2", "-o", out, srcPath, "-lm"}
	args = append(args, c.Flags...)
	cmd := exec.Command(c.Cmd, args...)
	combined, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w\n%s", c.Cmd, args, err, combined)
	}
	return nil
}
