package script

import (
	"embed"
	"errors"
	"io/fs"
	"path"
)

//go:embed builtin/*.tengo
var BuiltinFS embed.FS

// LoadFS compiles every brush script at the top of fsys.
func (l *Library) LoadFS(fsys fs.FS) error {
	paths, err := fs.Glob(fsys, "*"+Ext)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range paths {
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b, err := Compile(NameOf(path.Base(p)), src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l.Add(b)
	}
	return errors.Join(errs...)
}

// Builtin returns a library holding the brushes shipped with the editor.
func Builtin() (*Library, error) {
	sub, err := fs.Sub(BuiltinFS, "builtin")
	if err != nil {
		return nil, err
	}
	l := NewLibrary()
	return l, l.LoadFS(sub)
}
