package artifact

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
)

const archiveExt = ".tar.gz"

// LocalStore keeps artifacts as <root>/<name>.tar.gz files.
type LocalStore struct {
	root string

	mu    sync.RWMutex
	index map[string]Info
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates the root directory and returns a store backed by it.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create artifact root %s", root)
	}
	return &LocalStore{root: root, index: make(map[string]Info)}, nil
}

// Put implements Store.
func (s *LocalStore) Put(ctx context.Context, name, dir string) (Info, error) {
	logger := ctxlog.FromContext(ctx).With("artifact", name)
	if err := checkName(name); err != nil {
		return Info{}, errors.Wrap(err, "publish")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[name]; ok {
		return Info{}, errors.Wrapf(ErrArtifactExists, "publish %q", name)
	}

	st, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, errors.Wrapf(ErrEmptyArtifact, "publish %q: %s does not exist", name, dir)
		}
		return Info{}, errors.Wrapf(err, "publish %q", name)
	}
	if !st.IsDir() {
		return Info{}, errors.Errorf("publish %q: %s is not a directory", name, dir)
	}

	target := filepath.Join(s.root, name+archiveExt)
	tmp := target + ".tmp"
	files, err := writeArchive(ctx, dir, tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return Info{}, errors.Wrapf(err, "publish %q", name)
	}
	if files == 0 {
		_ = os.Remove(tmp)
		return Info{}, errors.Wrapf(ErrEmptyArtifact, "publish %q: %s has no files", name, dir)
	}
	if err := os.Rename(tmp, target); err != nil {
		return Info{}, errors.Wrapf(err, "publish %q", name)
	}

	fi, err := os.Stat(target)
	if err != nil {
		return Info{}, errors.Wrapf(err, "publish %q", name)
	}
	info := Info{Name: name, Path: target, Files: files, Size: fi.Size()}
	s.index[name] = info
	logger.Debug("Artifact stored.", "path", target, "files", files, "bytes", info.Size)
	return info, nil
}

// Get implements Store.
func (s *LocalStore) Get(ctx context.Context, name, dest string) error {
	s.mu.RLock()
	info, ok := s.index[name]
	s.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrArtifactNotFound, "restore %q", name)
	}

	if err := readArchive(ctx, info.Path, dest); err != nil {
		return errors.Wrapf(err, "restore %q", name)
	}
	ctxlog.FromContext(ctx).Debug("Artifact restored.", "artifact", name, "dest", dest)
	return nil
}

// Has implements Store.
func (s *LocalStore) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[name]
	return ok
}

// Names implements Store.
func (s *LocalStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.index))
	for name := range s.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// writeArchive packs dir into a gzip-compressed tar file and returns the
// number of regular files written.
func writeArchive(ctx context.Context, dir, target string) (files int, err error) {
	f, err := os.Create(target)
	if err != nil {
		return 0, errors.Wrap(err, "create archive")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close archive")
		}
	}()

	zw := gzip.NewWriter(f)
	tw := tar.NewWriter(zw)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		if _, err := io.Copy(tw, src); err != nil {
			return err
		}
		files++
		return nil
	})
	if walkErr != nil {
		return 0, errors.Wrapf(walkErr, "archive %s", dir)
	}
	if err := tw.Close(); err != nil {
		return 0, errors.Wrap(err, "close tar stream")
	}
	if err := zw.Close(); err != nil {
		return 0, errors.Wrap(err, "close gzip stream")
	}
	return files, nil
}

// readArchive extracts a gzip-compressed tar file into dest. Entries that
// would land outside dest are rejected.
func readArchive(ctx context.Context, archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return errors.Wrap(err, "open archive")
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "open gzip stream")
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dest)
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", dest)
	}

	tr := tar.NewReader(zr)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read tar entry")
		}

		target, err := safeJoin(root, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrapf(err, "create %s", target)
			}
		case tar.TypeReg:
			if err := extractFile(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if _, err := safeJoin(root, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil || filepath.IsAbs(hdr.Linkname) {
				return errors.Errorf("symlink %q escapes the destination", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, "create %s", filepath.Dir(target))
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return errors.Wrapf(err, "link %s", target)
			}
		}
	}
}

func extractFile(r io.Reader, target string, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(target))
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return errors.Wrapf(err, "create %s", target)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return errors.Wrapf(err, "write %s", target)
	}
	return errors.Wrapf(out.Close(), "close %s", target)
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", errors.Errorf("entry %q escapes the destination", name)
	}
	return target, nil
}

func checkName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}
