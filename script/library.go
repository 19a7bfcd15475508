package script

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Ext is the file extension brush scripts use.
const Ext = ".tengo"

// Library holds brushes by name and reloads them as their files change.
type Library struct {
	mu      sync.RWMutex
	brushes map[string]*Brush
}

func NewLibrary() *Library {
	return &Library{brushes: make(map[string]*Brush)}
}

func (l *Library) Add(b *Brush) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.brushes[b.Name] = b
}

func (l *Library) Get(name string) (*Brush, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.brushes[name]
	return b, ok
}

func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.brushes))
	for name := range l.brushes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LoadDir compiles every brush script in dir. Scripts that fail to compile
// are skipped and reported together.
func (l *Library) LoadDir(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+Ext))
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range paths {
		b, err := LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l.Add(b)
	}
	return errors.Join(errs...)
}

// Reload recompiles the brush at path, or forgets it if the file is gone.
// A brush that no longer compiles keeps its previous version.
func (l *Library) Reload(path string) error {
	if filepath.Ext(path) != Ext {
		return nil
	}
	name := NameOf(path)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		l.mu.Lock()
		delete(l.brushes, name)
		l.mu.Unlock()
		return nil
	}
	b, err := LoadFile(path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", name, err)
	}
	l.Add(b)
	return nil
}
