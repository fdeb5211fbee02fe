package pipeline

import "fmt"

// ArtifactError reports a toolchain run that ended without the expected
// output file anywhere under the build root.
type ArtifactError struct {
	Model    string
	Expected string
	Root     string
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("model %s: no build artifact named %s found under %s",
		e.Model, e.Expected, e.Root)
}

// PublishError reports a failed move of a built binary into the publish
// directory, typically because another process holds the target open.
type PublishError struct {
	Model   string
	Target  string
	Wrapped error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("model %s: cannot publish %s (close running processes using the old binary and rebuild): %v",
		e.Model, e.Target, e.Wrapped)
}

func (e *PublishError) Unwrap() error { return e.Wrapped }
