package swap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ncw/directio"
)

// DirectIOSwapManager uses Direct I/O to move page contents between process
// memory and the swap file.

// Direct I/O bypasses the kernel page cache, this is useful because:
// 1. Evicted pages are written to reclaim memory, caching them again in the
//    kernel page cache would defeat the point of the eviction.
// 2. It gives the subsystem complete control over when data reaches the disk.

type DirectIOSwapManager struct {
	file  *os.File
	mutex *sync.Mutex

	// slot IDs released by Release, reused before the file is grown.
	freeSlots []SlotID

	// next never-allocated slot at the end of the file.
	nextSlot SlotID
}

func NewDirectIOSwapManager(filePath string) (*DirectIOSwapManager, error) {

	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		slog.Info("swap file does not exist, creating new file...", "filePath", filePath, "function", "NewDirectIOSwapManager", "at", "DirectIOSwapManager")
	}

	slog.Info("Opening swap file in DIRECT I/O mode", "function", "NewDirectIOSwapManager", "at", "DirectIOSwapManager")

	file, err := openSwapFile(filePath, 0644)

	if err != nil {
		return nil, err
	}

	return &DirectIOSwapManager{
		file:      file,
		mutex:     &sync.Mutex{},
		freeSlots: make([]SlotID, 0),
	}, nil
}

// WriteOut persists one page of data into a free slot and returns its slot ID.
func (swap *DirectIOSwapManager) WriteOut(data []byte) (SlotID, error) {

	if len(data) != PAGE_SIZE {
		return 0, fmt.Errorf("swap write-out requires exactly one page of data, got %d bytes", len(data))
	}

	swap.mutex.Lock()
	defer swap.mutex.Unlock()

	slot := swap.allocateSlot()

	// Direct I/O requires block-aligned buffers, so the page is staged
	// through an aligned block before the write.
	block := directio.AlignedBlock(PAGE_SIZE)
	copy(block, data)

	n, err := swap.file.WriteAt(block, int64(slot)*PAGE_SIZE)

	if err != nil {
		slog.Error("Failed to write slot", "slot", uint64(slot), "error", err.Error(), "function", "WriteOut", "at", "DirectIOSwapManager")
		return 0, err
	}

	if n != PAGE_SIZE {
		return 0, fmt.Errorf("incomplete write")
	}

	slog.Info("page written to swap", "slot", uint64(slot), "function", "WriteOut", "at", "DirectIOSwapManager")

	return slot, nil
}

// ReadIn reads the contents of a slot into buf.
func (swap *DirectIOSwapManager) ReadIn(slot SlotID, buf []byte) error {

	if len(buf) != PAGE_SIZE {
		return fmt.Errorf("swap read-in requires a one page buffer, got %d bytes", len(buf))
	}

	swap.mutex.Lock()
	defer swap.mutex.Unlock()

	block := directio.AlignedBlock(PAGE_SIZE)

	n, err := swap.file.ReadAt(block, int64(slot)*PAGE_SIZE)

	if err != nil {
		slog.Error("Failed to read slot", "slot", uint64(slot), "error", err.Error(), "function", "ReadIn", "at", "DirectIOSwapManager")
		return err
	}

	if n != PAGE_SIZE {
		return fmt.Errorf("incomplete read")
	}

	copy(buf, block)
	return nil
}

// Release marks a slot as free, making it available for future write-outs.
func (swap *DirectIOSwapManager) Release(slot SlotID) {

	swap.mutex.Lock()
	swap.freeSlots = append(swap.freeSlots, slot)
	swap.mutex.Unlock()
}

// Close closes the swap file. Slot contents do not survive a restart.
func (swap *DirectIOSwapManager) Close() error {

	slog.Info("Closing DirectIOSwapManager...", "function", "Close", "at", "DirectIOSwapManager")

	return swap.file.Close()
}

// allocateSlot reuses a released slot if available, otherwise grows the file
// by handing out the next slot ID. Must be called with the mutex held.
func (swap *DirectIOSwapManager) allocateSlot() SlotID {

	if len(swap.freeSlots) > 0 {

		slot := swap.freeSlots[0]
		swap.freeSlots = swap.freeSlots[1:]
		return slot
	}

	slot := swap.nextSlot
	swap.nextSlot++
	return slot
}
