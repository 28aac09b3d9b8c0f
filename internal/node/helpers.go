package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/txroot/config"
	"github.com/Klingon-tech/txroot/internal/storage"
	"github.com/Klingon-tech/txroot/pkg/merkle"
)

// blockPrefix namespaces block store keys inside the node database.
const blockPrefix = "blocks/"

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// resolveTree builds the merkle tree for the configured hasher name.
// An empty name selects the default.
func resolveTree(name string) (*merkle.Tree, error) {
	if name == "" {
		return merkle.Default, nil
	}
	h, err := merkle.HasherByName(name)
	if err != nil {
		return nil, fmt.Errorf("resolve hasher: %w", err)
	}
	return merkle.New(h), nil
}

// openDB opens the configured storage backend.
func openDB(cfg *config.Config) (storage.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendBadger, "":
		dir := expandHome(cfg.BlocksDir())
		db, err := storage.NewBadger(dir)
		if err != nil {
			return nil, fmt.Errorf("open database at %s: %w", dir, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
