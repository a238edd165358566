package page_table

import (
	"sync"

	"github.com/Adarsh-Kmt/WyvernOS/physical_memory"
	"github.com/Adarsh-Kmt/WyvernOS/swap"
)

// PageBacking describes where a page's contents currently live.
type PageBacking int

const (
	BackedByFrame PageBacking = iota
	BackedBySwap
)

// PageStatus is the supplemental record for one user page.
type PageStatus struct {
	Backing PageBacking

	// Frame is valid while Backing is BackedByFrame.
	Frame physical_memory.PhysAddr

	// SwapSlot is valid while Backing is BackedBySwap.
	SwapSlot swap.SlotID
}

// SupplementalPageTable records, per owner, where each of its pages is backed.
// The frame allocator updates it when it evicts a page to swap, the page-fault
// path (external to this subsystem) consults it to bring the page back.
type SupplementalPageTable struct {
	mutex *sync.Mutex
	pages map[VirtAddr]PageStatus
}

func NewSupplementalPageTable() *SupplementalPageTable {

	return &SupplementalPageTable{
		mutex: &sync.Mutex{},
		pages: make(map[VirtAddr]PageStatus),
	}
}

// RecordFrame marks a page as resident in a physical frame.
func (supt *SupplementalPageTable) RecordFrame(page VirtAddr, frame physical_memory.PhysAddr) {

	supt.mutex.Lock()
	defer supt.mutex.Unlock()

	supt.pages[page] = PageStatus{Backing: BackedByFrame, Frame: frame}
}

// RecordSwapLocation marks a page as evicted to the given swap slot.
func (supt *SupplementalPageTable) RecordSwapLocation(page VirtAddr, slot swap.SlotID) {

	supt.mutex.Lock()
	defer supt.mutex.Unlock()

	supt.pages[page] = PageStatus{Backing: BackedBySwap, SwapSlot: slot}
}

// Lookup returns the supplemental record for a page.
func (supt *SupplementalPageTable) Lookup(page VirtAddr) (PageStatus, bool) {

	supt.mutex.Lock()
	defer supt.mutex.Unlock()

	status, exists := supt.pages[page]
	return status, exists
}

// Pages returns every page with a supplemental record, resident or swapped.
func (supt *SupplementalPageTable) Pages() []VirtAddr {

	supt.mutex.Lock()
	defer supt.mutex.Unlock()

	pages := make([]VirtAddr, 0, len(supt.pages))

	for page := range supt.pages {
		pages = append(pages, page)
	}

	return pages
}

// Remove retires the record for a page.
func (supt *SupplementalPageTable) Remove(page VirtAddr) {

	supt.mutex.Lock()
	defer supt.mutex.Unlock()

	delete(supt.pages, page)
}
