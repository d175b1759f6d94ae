package storage

import (
	"testing"

	"github.com/wayfarer-travel/wayfarer-api/internal/adapters/contracttest"
	storageport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/storage"
)

func TestContract_MemoryBackend(t *testing.T) {
	contracttest.RunAll(t, func(t *testing.T) (storageport.Backend, func()) {
		t.Helper()
		return NewBackend(), nil
	})
}
