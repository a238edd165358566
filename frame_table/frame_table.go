package frame_table

import (
	"container/list"
	"errors"
	"sync"

	"github.com/Adarsh-Kmt/WyvernOS/page_table"
	"github.com/Adarsh-Kmt/WyvernOS/physical_memory"
	"github.com/Adarsh-Kmt/WyvernOS/swap"
)

// ErrFrameTableFull is returned by Allocate when the table cannot track
// another entry. The physical frame is handed back to the source, no state is
// corrupted, and the caller may retry or propagate its own out-of-memory
// condition. This is deliberately softer than physical-frame exhaustion,
// which is resolved by eviction or a fatal fault.
var ErrFrameTableFull = errors.New("frame table cannot track any more frames")

// FrameSource is the raw physical-page source the allocator draws from.
type FrameSource interface {

	// RequestPage returns a free frame address, or false on exhaustion.
	RequestPage() (physical_memory.PhysAddr, bool)

	// ReleasePage returns a frame to the source.
	ReleasePage(addr physical_memory.PhysAddr)
}

// PageDirectory is the slice of an owner's page table the allocator needs:
// invalidating a victim's mapping and inspecting the recency flag.
type PageDirectory interface {
	ClearMapping(page page_table.VirtAddr)
	IsAccessed(page page_table.VirtAddr) bool
	SetAccessed(page page_table.VirtAddr, accessed bool)
}

// SupplementalTable records where an owner's pages are backed once they leave
// physical memory.
type SupplementalTable interface {
	RecordSwapLocation(page page_table.VirtAddr, slot swap.SlotID)
}

// SwapStore persists a victim frame's contents and returns the slot holding
// them. Slot exhaustion and I/O failure are fatal inside the store, the
// eviction sequence has no recovery path once the victim's mapping is gone.
type SwapStore interface {
	WriteOut(frame physical_memory.PhysAddr) swap.SlotID
}

// Context identifies the execution context that owns a frame. The frame table
// holds it as a non-owning back-reference, only to reach the owner's page
// directory and supplemental table during eviction.
type Context interface {
	PageDirectory() PageDirectory
	SupplementalTable() SupplementalTable
}

// frameTableEntry is the bookkeeping record for one physical frame currently
// committed to a user page. Every live entry is simultaneously a registry
// value and a ring node, both memberships are created and destroyed together.
type frameTableEntry struct {

	// addr is the frame address, the registry key. Immutable for the life of the entry.
	addr physical_memory.PhysAddr

	// page is the user virtual page currently backed by the frame.
	page page_table.VirtAddr

	// owner maps the page; its page table is invalidated when the frame is evicted.
	owner Context

	// pinned entries are never selected as eviction victims.
	pinned bool
}

// FrameTable tracks every physical frame committed to a user page and
// reclaims frames under memory pressure with the clock algorithm.
//
// One mutex covers the registry, the ring and the clock hand. Every public
// operation is a single critical section, held across the entire
// eviction-and-swap sequence inside Allocate, so no other thread ever
// observes a partially evicted frame. The cost is head-of-line blocking
// during swap I/O.
type FrameTable struct {
	mutex *sync.Mutex

	// registry maps a frame address to its ring element. The element value is
	// the *frameTableEntry, so one insert or remove always updates both
	// memberships.
	registry map[physical_memory.PhysAddr]*list.Element

	// ring is the insertion-ordered scan sequence for the clock algorithm,
	// treated as circular by the evictor.
	ring *list.List

	// clockHand is the last ring position the evictor visited. nil means
	// unset, the next advance starts at the front. It survives across
	// allocation calls.
	clockHand *list.Element

	// capacity bounds the number of tracked entries. Zero or negative means
	// unbounded.
	capacity int

	source FrameSource
	swap   SwapStore

	evictions uint64
}

// Stats is a point-in-time snapshot of the table.
type Stats struct {
	Tracked   int
	Pinned    int
	Evictions uint64
}

// NewFrameTable establishes the process-wide frame tracking state: empty
// registry, empty ring, unset clock hand, unheld lock. There is no teardown,
// the table lives for the life of the kernel.
func NewFrameTable(capacity int, source FrameSource, swapStore SwapStore) *FrameTable {

	return &FrameTable{
		mutex:    &sync.Mutex{},
		registry: make(map[physical_memory.PhysAddr]*list.Element),
		ring:     list.New(),
		capacity: capacity,
		source:   source,
		swap:     swapStore,
	}
}

// Allocate commits a physical frame to a user page on behalf of ctx and
// returns the frame address. The new entry is tracked and unpinned.
//
// When the physical-page source is exhausted, a victim is evicted to swap
// first and the request is retried, all under the table lock. The only
// recoverable failure is ErrFrameTableFull.
func (ft *FrameTable) Allocate(ctx Context, page page_table.VirtAddr) (physical_memory.PhysAddr, error) {

	ft.mutex.Lock()
	defer ft.mutex.Unlock()

	addr, ok := ft.source.RequestPage()

	if !ok {
		addr = ft.evict()
	}

	if ft.capacity > 0 && ft.ring.Len() >= ft.capacity {

		// the frame itself is fine, only the bookkeeping cannot grow. Hand
		// the page back and report softly.
		ft.source.ReleasePage(addr)
		return 0, ErrFrameTableFull
	}

	entry := &frameTableEntry{
		addr:  addr,
		page:  page,
		owner: ctx,
	}

	ft.registry[addr] = ft.ring.PushBack(entry)

	return addr, nil
}

// evict reclaims one frame: select a victim, invalidate its mapping, persist
// its contents to swap, retire its entry, then re-request a page from the
// source. Must be called with the mutex held and returns the reclaimed frame
// address.
func (ft *FrameTable) evict() physical_memory.PhysAddr {

	victim := ft.pickVictim()

	if victim == nil || victim.owner == nil {
		panic(faultVictimWithoutOwner)
	}

	// The mapping must be gone before the frame is touched again, so that no
	// thread can reach contents that are about to be repurposed through a
	// stale translation.
	victim.owner.PageDirectory().ClearMapping(victim.page)

	slot := ft.swap.WriteOut(victim.addr)
	victim.owner.SupplementalTable().RecordSwapLocation(victim.page, slot)

	ft.removeEntry(victim.addr, true)
	ft.evictions++

	addr, ok := ft.source.RequestPage()

	if !ok {
		panic(faultRetryFailed)
	}

	return addr
}

// Free retires the entry for a frame and releases the underlying physical
// page. Freeing an untracked address is a no-op.
func (ft *FrameTable) Free(addr physical_memory.PhysAddr) {

	ft.mutex.Lock()
	defer ft.mutex.Unlock()

	ft.removeEntry(addr, true)
}

// RemoveEntry retires the entry for a frame but keeps the underlying physical
// page, for callers that take direct ownership of the page's lifecycle.
// Removing an untracked address is a no-op.
func (ft *FrameTable) RemoveEntry(addr physical_memory.PhysAddr) {

	ft.mutex.Lock()
	defer ft.mutex.Unlock()

	ft.removeEntry(addr, false)
}

// removeEntry destroys both memberships of an entry at once and optionally
// releases the physical page. Must be called with the mutex held.
func (ft *FrameTable) removeEntry(addr physical_memory.PhysAddr, releasePage bool) {

	elem, exists := ft.registry[addr]

	if !exists {
		return
	}

	if ft.clockHand == elem {
		// park the hand on the previous element so its next advance lands on
		// the element after the removed one. nil restarts at the front.
		ft.clockHand = elem.Prev()
	}

	ft.ring.Remove(elem)
	delete(ft.registry, addr)

	if releasePage {
		ft.source.ReleasePage(addr)
	}
}

// Pin exempts a frame from eviction, letting a caller guarantee the frame
// survives a longer operation without holding the table lock across it.
// Pinning an untracked frame is a contract violation and a fatal fault.
func (ft *FrameTable) Pin(addr physical_memory.PhysAddr) {
	ft.setPinned(addr, true)
}

// Unpin makes a frame selectable as an eviction victim again.
func (ft *FrameTable) Unpin(addr physical_memory.PhysAddr) {
	ft.setPinned(addr, false)
}

func (ft *FrameTable) setPinned(addr physical_memory.PhysAddr, pinned bool) {

	ft.mutex.Lock()
	defer ft.mutex.Unlock()

	elem, exists := ft.registry[addr]

	if !exists {
		panic(faultPinUntracked)
	}

	elem.Value.(*frameTableEntry).pinned = pinned
}

// Stats returns a snapshot of the table.
func (ft *FrameTable) Stats() Stats {

	ft.mutex.Lock()
	defer ft.mutex.Unlock()

	stats := Stats{
		Tracked:   ft.ring.Len(),
		Evictions: ft.evictions,
	}

	for elem := ft.ring.Front(); elem != nil; elem = elem.Next() {
		if elem.Value.(*frameTableEntry).pinned {
			stats.Pinned++
		}
	}

	return stats
}
