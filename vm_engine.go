package main

import (
	"github.com/Adarsh-Kmt/WyvernOS/frame_table"
	"github.com/Adarsh-Kmt/WyvernOS/monitor"
	"github.com/Adarsh-Kmt/WyvernOS/page_table"
	"github.com/Adarsh-Kmt/WyvernOS/physical_memory"
	"github.com/Adarsh-Kmt/WyvernOS/swap"
	"github.com/Adarsh-Kmt/WyvernOS/thread"
)

// swapStore binds the swap manager to the user pool: it reads a victim
// frame's contents out of pool memory and persists them through the manager.
type swapStore struct {
	pool    *physical_memory.UserPool
	manager swap.Manager
}

// WriteOut persists a victim frame's contents and returns the slot holding
// them. By the time it runs the victim's mapping is already invalidated, so a
// failed write leaves nothing consistent to resume from and halts the kernel.
func (store *swapStore) WriteOut(frame physical_memory.PhysAddr) swap.SlotID {

	slot, err := store.manager.WriteOut(store.pool.FrameData(frame))

	if err != nil {
		panic(err)
	}

	return slot
}

// VMEngine wires the physical-page source, the swap backing store, the frame
// table and the thread manager into one demand-paging subsystem.
type VMEngine struct {
	pool    *physical_memory.UserPool
	swap    swap.Manager
	frames  *frame_table.FrameTable
	threads *thread.Manager
}

func NewVMEngine(numFrames int, swapManager swap.Manager) (*VMEngine, error) {

	pool, err := physical_memory.NewUserPool(numFrames)

	if err != nil {
		return nil, err
	}

	return &VMEngine{
		pool:    pool,
		swap:    swapManager,
		frames:  frame_table.NewFrameTable(0, pool, &swapStore{pool: pool, manager: swapManager}),
		threads: thread.NewManager(),
	}, nil
}

// StartProcess spawns a new execution context.
func (engine *VMEngine) StartProcess(name string) *thread.Thread {
	return engine.threads.Spawn(name)
}

// InstallPage commits a frame to one of t's pages, fills it with data and
// installs the mapping. The frame stays pinned until the installation is
// complete, so an eviction on another thread cannot repurpose it mid-install.
func (engine *VMEngine) InstallPage(t *thread.Thread, page page_table.VirtAddr, data []byte) (physical_memory.PhysAddr, error) {

	frame, err := engine.frames.Allocate(t, page)

	if err != nil {
		return 0, err
	}

	engine.frames.Pin(frame)

	copy(engine.pool.FrameData(frame), data)

	t.PageDir.SetMapping(page, frame)
	t.SUPT.RecordFrame(page, frame)

	engine.frames.Unpin(frame)

	return frame, nil
}

// ReclaimPage tears down one of t's pages. A resident page gives up its
// mapping and its frame, a swapped-out page gives up its slot, and the
// supplemental record goes either way. Reclaiming an unknown page is a no-op.
func (engine *VMEngine) ReclaimPage(t *thread.Thread, page page_table.VirtAddr) {

	if frame, mapped := t.PageDir.Lookup(page); mapped {

		t.PageDir.ClearMapping(page)
		engine.frames.Free(frame)

	} else if status, exists := t.SUPT.Lookup(page); exists && status.Backing == page_table.BackedBySwap {

		engine.swap.Release(status.SwapSlot)
	}

	t.SUPT.Remove(page)
}

// ExitProcess reclaims every page the thread still holds, resident or swapped,
// then retires the thread.
func (engine *VMEngine) ExitProcess(t *thread.Thread) {

	for _, page := range t.SUPT.Pages() {
		engine.ReclaimPage(t, page)
	}

	engine.threads.Exit(t.ID)
}

// VMStats serves the monitor endpoint.
func (engine *VMEngine) VMStats() monitor.VMStats {

	stats := engine.frames.Stats()

	return monitor.VMStats{
		Tracked:    stats.Tracked,
		Pinned:     stats.Pinned,
		Evictions:  stats.Evictions,
		FreeFrames: engine.pool.FreeFrames(),
	}
}

// Close closes the swap backing store.
func (engine *VMEngine) Close() error {
	return engine.swap.Close()
}
