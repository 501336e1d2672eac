package memory

import (
	"testing"

	"github.com/scrypster/lorebinders/internal/storage"
	"github.com/scrypster/lorebinders/internal/storage/storagetest"
)

func TestCacheContract(t *testing.T) {
	store := NewStore()
	storagetest.RunCacheContract(t, func(t *testing.T, workspace string) storage.Cache {
		return store.Workspace(workspace)
	})
}
