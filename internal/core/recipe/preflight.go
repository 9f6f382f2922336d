package recipe

import (
	"fmt"
	"os"
	"path/filepath"
)

// MissingFileError names the build context file that a recipe needs but could not find.
type MissingFileError struct {
	Path   string
	Reason string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrMissingBuildFile, e.Path, e.Reason)
}

func (e *MissingFileError) Unwrap() error { return ErrMissingBuildFile }

// Preflight checks that contextDir holds everything the recipe copies and installs.
// It never touches the container runtime.
func (r *Recipe) Preflight(contextDir string) error {
	info, err := os.Stat(contextDir)
	if err != nil {
		return fmt.Errorf("build context %s: %w", contextDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("build context %s is not a directory", contextDir)
	}

	for _, rel := range []string{r.DependencyManifest, r.AppModule} {
		if rel == "" {
			continue
		}
		if err := requireRegularFile(contextDir, rel); err != nil {
			return err
		}
	}
	return nil
}

func requireRegularFile(root, rel string) error {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	switch {
	case os.IsNotExist(err):
		return &MissingFileError{Path: rel, Reason: "not found"}
	case err != nil:
		return fmt.Errorf("stat %s: %w", rel, err)
	case !info.Mode().IsRegular():
		return &MissingFileError{Path: rel, Reason: "not a regular file"}
	}
	return nil
}
