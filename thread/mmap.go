package thread

import (
	"os"

	"github.com/Adarsh-Kmt/WyvernOS/page_table"
)

// MmapID identifies one memory-mapped file region within a thread.
type MmapID int

// MmapDescriptor records one memory-mapped file region: which file backs it,
// where in the thread's address space it starts, and how many bytes it spans.
type MmapDescriptor struct {
	ID   MmapID
	File *os.File

	// Addr is the user virtual address the file is mapped at.
	Addr page_table.VirtAddr

	// Size is the length of the mapped region in bytes.
	Size int64
}

// RegisterMmap records a new mapped region and returns its ID.
func (t *Thread) RegisterMmap(file *os.File, addr page_table.VirtAddr, size int64) MmapID {

	t.mmapMutex.Lock()
	defer t.mmapMutex.Unlock()

	t.nextMmapId++

	t.mmaps[t.nextMmapId] = &MmapDescriptor{
		ID:   t.nextMmapId,
		File: file,
		Addr: addr,
		Size: size,
	}

	return t.nextMmapId
}

// LookupMmap returns the descriptor registered under an ID.
func (t *Thread) LookupMmap(id MmapID) (*MmapDescriptor, bool) {

	t.mmapMutex.Lock()
	defer t.mmapMutex.Unlock()

	desc, exists := t.mmaps[id]
	return desc, exists
}

// UnregisterMmap retires a descriptor. It reports whether the ID was
// registered.
func (t *Thread) UnregisterMmap(id MmapID) bool {

	t.mmapMutex.Lock()
	defer t.mmapMutex.Unlock()

	if _, exists := t.mmaps[id]; !exists {
		return false
	}

	delete(t.mmaps, id)
	return true
}
