package git

import (
	"errors"
	"os"
	"sync"

	billy "github.com/go-git/go-billy/v5"
)

// ErrRepositoryTooLarge is returned when a clone exceeds the configured limits
var ErrRepositoryTooLarge = errors.New("repository exceeds size limits")

const (
	defaultMaxFiles      = 10 * 1000
	defaultTotalFileSize = 100 * 1024 * 1024
)

// LimitedFs wraps a billy filesystem and bounds the number of files created
// and the total number of bytes written through it.
type LimitedFs struct {
	billy.Filesystem

	MaxFiles      int64
	TotalFileSize int64

	usage *fsUsage
}

type fsUsage struct {
	mu    sync.Mutex
	files int64
	bytes int64
}

// NewLimitedFs wraps fs with the default limits
func NewLimitedFs(fs billy.Filesystem) *LimitedFs {
	return &LimitedFs{
		Filesystem:    fs,
		MaxFiles:      defaultMaxFiles,
		TotalFileSize: defaultTotalFileSize,
		usage:         &fsUsage{},
	}
}

// Create creates the named file, counting it against the file limit
func (l *LimitedFs) Create(filename string) (billy.File, error) {
	return l.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// OpenFile opens the named file. Files opened for creation count against the file limit.
func (l *LimitedFs) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	if flag&os.O_CREATE != 0 {
		if err := l.addFile(); err != nil {
			return nil, err
		}
	}
	f, err := l.Filesystem.OpenFile(filename, flag, perm)
	if err != nil {
		return nil, err
	}
	return &limitedFile{File: f, fs: l}, nil
}

// TempFile creates a temporary file counting against the file limit
func (l *LimitedFs) TempFile(dir, prefix string) (billy.File, error) {
	if err := l.addFile(); err != nil {
		return nil, err
	}
	f, err := l.Filesystem.TempFile(dir, prefix)
	if err != nil {
		return nil, err
	}
	return &limitedFile{File: f, fs: l}, nil
}

// Chroot returns a limited view of a subdirectory sharing this filesystem's usage
func (l *LimitedFs) Chroot(path string) (billy.Filesystem, error) {
	fs, err := l.Filesystem.Chroot(path)
	if err != nil {
		return nil, err
	}
	return &LimitedFs{
		Filesystem:    fs,
		MaxFiles:      l.MaxFiles,
		TotalFileSize: l.TotalFileSize,
		usage:         l.state(),
	}, nil
}

func (l *LimitedFs) state() *fsUsage {
	if l.usage == nil {
		l.usage = &fsUsage{}
	}
	return l.usage
}

func (l *LimitedFs) addFile() error {
	u := l.state()
	u.mu.Lock()
	defer u.mu.Unlock()

	if l.MaxFiles > 0 && u.files >= l.MaxFiles {
		return ErrRepositoryTooLarge
	}
	u.files++
	return nil
}

func (l *LimitedFs) addBytes(n int64) error {
	u := l.state()
	u.mu.Lock()
	defer u.mu.Unlock()

	if l.TotalFileSize > 0 && u.bytes+n > l.TotalFileSize {
		return ErrRepositoryTooLarge
	}
	u.bytes += n
	return nil
}

type limitedFile struct {
	billy.File
	fs *LimitedFs
}

func (f *limitedFile) Write(p []byte) (int, error) {
	if err := f.fs.addBytes(int64(len(p))); err != nil {
		return 0, err
	}
	return f.File.Write(p)
}
