package page_table

import (
	"sync"

	"github.com/Adarsh-Kmt/WyvernOS/physical_memory"
)

// VirtAddr identifies a user virtual page by the address of its first byte.
type VirtAddr uint64

// pageTableEntry records one live translation from a user page to a physical
// frame, along with the recency and modification flags the hardware would
// maintain on a real page table.
type pageTableEntry struct {
	frame    physical_memory.PhysAddr
	accessed bool
	dirty    bool
}

// PageDirectory is the per-owner page table abstraction.
// A page is mapped while an entry for it exists, clearing the mapping removes
// the entry and its flags together.
type PageDirectory struct {
	mutex   *sync.Mutex
	entries map[VirtAddr]*pageTableEntry
}

func NewPageDirectory() *PageDirectory {

	return &PageDirectory{
		mutex:   &sync.Mutex{},
		entries: make(map[VirtAddr]*pageTableEntry),
	}
}

// SetMapping installs a translation from a user page to a physical frame.
// The new mapping starts with clear accessed and dirty flags.
func (pd *PageDirectory) SetMapping(page VirtAddr, frame physical_memory.PhysAddr) {

	pd.mutex.Lock()
	defer pd.mutex.Unlock()

	pd.entries[page] = &pageTableEntry{frame: frame}
}

// ClearMapping removes the translation for a user page.
// Once cleared, any access through the old mapping faults instead of reaching
// the frame. Clearing an unmapped page is a no-op.
func (pd *PageDirectory) ClearMapping(page VirtAddr) {

	pd.mutex.Lock()
	defer pd.mutex.Unlock()

	delete(pd.entries, page)
}

// Lookup returns the frame currently backing a user page.
func (pd *PageDirectory) Lookup(page VirtAddr) (physical_memory.PhysAddr, bool) {

	pd.mutex.Lock()
	defer pd.mutex.Unlock()

	entry, exists := pd.entries[page]

	if !exists {
		return 0, false
	}

	return entry.frame, true
}

// IsAccessed reports whether a page has been touched since its accessed flag
// was last cleared. An unmapped page is never accessed.
func (pd *PageDirectory) IsAccessed(page VirtAddr) bool {

	pd.mutex.Lock()
	defer pd.mutex.Unlock()

	entry, exists := pd.entries[page]

	return exists && entry.accessed
}

// SetAccessed sets or clears the accessed flag of a mapped page.
// The hardware would set the flag on every load or store, here callers set it
// explicitly when they touch the page, and the evictor clears it.
func (pd *PageDirectory) SetAccessed(page VirtAddr, accessed bool) {

	pd.mutex.Lock()
	defer pd.mutex.Unlock()

	if entry, exists := pd.entries[page]; exists {
		entry.accessed = accessed
	}
}

// IsDirty reports whether a page has been written since it was mapped.
func (pd *PageDirectory) IsDirty(page VirtAddr) bool {

	pd.mutex.Lock()
	defer pd.mutex.Unlock()

	entry, exists := pd.entries[page]

	return exists && entry.dirty
}

// SetDirty sets or clears the dirty flag of a mapped page.
func (pd *PageDirectory) SetDirty(page VirtAddr, dirty bool) {

	pd.mutex.Lock()
	defer pd.mutex.Unlock()

	if entry, exists := pd.entries[page]; exists {
		entry.dirty = dirty
	}
}

// MappedPages returns the pages currently mapped in the directory.
func (pd *PageDirectory) MappedPages() []VirtAddr {

	pd.mutex.Lock()
	defer pd.mutex.Unlock()

	pages := make([]VirtAddr, 0, len(pd.entries))

	for page := range pd.entries {
		pages = append(pages, page)
	}

	return pages
}
