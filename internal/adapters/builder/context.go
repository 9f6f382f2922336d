package builder

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/docker/docker/pkg/archive"
	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
	"github.com/opencontainers/go-digest"
)

const (
	dockerignoreFile = ".dockerignore"
	dockerfileName   = "Dockerfile"
)

// BuildContext is a build context directory after ignore rules are applied.
// Files is exactly the set of regular files and links that Tar sends.
type BuildContext struct {
	Dir      string
	Files    []string // slash-separated, sorted
	patterns []string
}

// LoadContext walks dir honouring .dockerignore with the daemon's own matching rules.
// Version control metadata is always skipped.
func LoadContext(dir string) (*BuildContext, error) {
	patterns, err := readIgnoreFile(filepath.Join(dir, dockerignoreFile))
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, ".git")
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", dockerignoreFile, err)
	}

	bc := &BuildContext{Dir: dir, patterns: patterns}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		skip, err := pm.MatchesOrParentMatches(rel)
		if err != nil {
			return err
		}
		if skip {
			// a later !pattern may re-include something below an excluded directory
			if d.IsDir() && !pm.Exclusions() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		bc.Files = append(bc.Files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk build context: %w", err)
	}
	sort.Strings(bc.Files)
	return bc, nil
}

func readIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dockerignoreFile, err)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", dockerignoreFile, err)
	}
	return patterns, nil
}

// HasFile reports whether rel survived the ignore rules.
func (bc *BuildContext) HasFile(rel string) bool {
	i := sort.SearchStrings(bc.Files, rel)
	return i < len(bc.Files) && bc.Files[i] == rel
}

// Digest hashes path, permissions and content of every included file in sorted order.
// An unchanged context always yields the same digest.
func (bc *BuildContext) Digest() (string, error) {
	d := digest.Canonical.Digester()
	h := d.Hash()
	for _, rel := range bc.Files {
		path := filepath.Join(bc.Dir, filepath.FromSlash(rel))
		info, err := os.Lstat(path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00%o\x00", rel, info.Mode().Perm())

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return "", err
			}
			io.WriteString(h, target)
		} else if info.Mode().IsRegular() {
			if err := hashFile(h, path); err != nil {
				return "", err
			}
		}
		h.Write([]byte{0})
	}
	return d.Digest().String(), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// Tar streams the context as a tar archive. When dockerfile is non-empty it is added
// as the context's Dockerfile.
func (bc *BuildContext) Tar(dockerfile string) (io.ReadCloser, error) {
	rc, err := archive.TarWithOptions(bc.Dir, &archive.TarOptions{
		ExcludePatterns: bc.patterns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create build context: %w", err)
	}
	if dockerfile == "" {
		return rc, nil
	}

	content := []byte(dockerfile)
	return archive.ReplaceFileTarWrapper(rc, map[string]archive.TarModifierFunc{
		dockerfileName: func(_ string, _ *tar.Header, _ io.Reader) (*tar.Header, []byte, error) {
			return &tar.Header{
				Name:     dockerfileName,
				Mode:     0o644,
				Typeflag: tar.TypeReg,
			}, content, nil
		},
	}), nil
}
