package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"github.com/franz/kdex/internal/util"
)

// Kind selects the directory an image is stored under
type Kind string

const (
	KindGroup  Kind = "groups"
	KindMember Kind = "members"
)

// Root is the directory, relative to the store root, holding all images
const Root = "images"

// maxCollisions bounds the _N suffix search
const maxCollisions = 1000

var allowedExt = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpeg",
	".png":  ".png",
}

// Store writes catalog pictures below a root directory
type Store struct {
	fs afero.Fs
}

// NewStore creates a store rooted at dir on the real filesystem
func NewStore(dir string) *Store {
	return NewStoreFs(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// NewStoreFs creates a store on an arbitrary filesystem; paths are
// resolved relative to its root
func NewStoreFs(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// SafeName turns a display name into a file name component
func SafeName(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			if r == '_' && lastUnderscore {
				continue
			}
			b.WriteRune(r)
			lastUnderscore = r == '_'
			continue
		}
		if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}

	return strings.Trim(b.String(), "_")
}

// MemberBase is the base name used for a member picture
func MemberBase(group, stageName string) string {
	return SafeName(group) + "_" + SafeName(stageName)
}

// NormalizeExt validates an image extension and returns it lowercased
// with a leading dot
func NormalizeExt(ext string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(ext))
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	if canonical, ok := allowedExt[e]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: image type %q (want .jpg, .jpeg or .png)", util.ErrUnsupported, ext)
}

// Save copies r into the directory for kind under base+ext and returns the
// slash-separated path relative to the store root. An existing file is
// never overwritten; a _1, _2, ... suffix is appended instead.
func (s *Store) Save(ctx context.Context, kind Kind, base, ext string, r io.Reader) (string, error) {
	if kind != KindGroup && kind != KindMember {
		return "", fmt.Errorf("%w: image kind %q", util.ErrUnsupported, kind)
	}
	ext, err := NormalizeExt(ext)
	if err != nil {
		return "", err
	}
	base = SafeName(base)
	if base == "" {
		return "", fmt.Errorf("%w: empty image name", util.ErrValidation)
	}

	dir := path.Join(Root, string(kind))
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	dest, err := s.freeName(dir, base, ext)
	if err != nil {
		return "", err
	}

	tempPath := dest + ".part"
	f, err := s.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	n, err := copyWithContext(ctx, f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.fs.Remove(tempPath)
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	if err := s.fs.Rename(tempPath, dest); err != nil {
		s.fs.Remove(tempPath)
		return "", fmt.Errorf("failed to rename: %w", err)
	}

	util.DebugLog("Saved image: %s (%s)", dest, util.FormatBytes(n))
	return dest, nil
}

// Open opens a stored image by the relative path Save returned
func (s *Store) Open(rel string) (afero.File, error) {
	return s.fs.Open(path.Clean(rel))
}

// Remove deletes a stored image; a missing file is not an error
func (s *Store) Remove(rel string) error {
	err := s.fs.Remove(path.Clean(rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) freeName(dir, base, ext string) (string, error) {
	candidate := path.Join(dir, base+ext)
	for i := 1; i <= maxCollisions; i++ {
		exists, err := afero.Exists(s.fs, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = path.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
	return "", fmt.Errorf("too many images named %s%s", base, ext)
}

// copyWithContext copies in chunks, stopping when ctx is cancelled
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 64*1024)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			written += int64(nw)
			if ew != nil {
				return written, ew
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if er == io.EOF {
			return written, nil
		}
		if er != nil {
			return written, er
		}
	}
}
