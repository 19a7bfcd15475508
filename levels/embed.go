package levels

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/milk9111/tilemap/chunks"
)

//go:embed *.json
var LevelsFS embed.FS

// LoadFromFS reads a document from fsys, such as LevelsFS.
func LoadFromFS(fsys fs.FS, name string) (*chunks.Snapshot, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
