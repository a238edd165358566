package swap

import (
	"fmt"
	"os"
	"sync"
)

// OSBufferedSwapManager moves page contents through the kernel page cache
// with ordinary buffered reads and writes.
type OSBufferedSwapManager struct {
	file  *os.File
	mutex *sync.Mutex

	freeSlots []SlotID
	nextSlot  SlotID
}

func NewOSBufferedSwapManager(filePath string) (*OSBufferedSwapManager, error) {

	f, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)

	if err != nil {
		return nil, err
	}

	return &OSBufferedSwapManager{
		file:      f,
		mutex:     &sync.Mutex{},
		freeSlots: make([]SlotID, 0),
	}, nil
}

// WriteOut persists one page of data into a free slot and returns its slot ID.
func (swap *OSBufferedSwapManager) WriteOut(data []byte) (SlotID, error) {

	if len(data) != PAGE_SIZE {
		return 0, fmt.Errorf("swap write-out requires exactly one page of data, got %d bytes", len(data))
	}

	swap.mutex.Lock()
	defer swap.mutex.Unlock()

	slot := swap.allocateSlot()

	if _, err := swap.file.Seek(int64(slot)*PAGE_SIZE, 0); err != nil {
		return 0, err
	}

	n, err := swap.file.Write(data)

	if err != nil {
		return 0, err
	}

	if n != PAGE_SIZE {
		return 0, fmt.Errorf("incomplete write")
	}

	return slot, nil
}

// ReadIn reads the contents of a slot into buf.
func (swap *OSBufferedSwapManager) ReadIn(slot SlotID, buf []byte) error {

	if len(buf) != PAGE_SIZE {
		return fmt.Errorf("swap read-in requires a one page buffer, got %d bytes", len(buf))
	}

	swap.mutex.Lock()
	defer swap.mutex.Unlock()

	if _, err := swap.file.Seek(int64(slot)*PAGE_SIZE, 0); err != nil {
		return err
	}

	n, err := swap.file.Read(buf)

	if err != nil {
		return err
	}

	if n != PAGE_SIZE {
		return fmt.Errorf("incomplete read")
	}

	return nil
}

// Release marks a slot as free, making it available for future write-outs.
func (swap *OSBufferedSwapManager) Release(slot SlotID) {

	swap.mutex.Lock()
	swap.freeSlots = append(swap.freeSlots, slot)
	swap.mutex.Unlock()
}

// Close closes the swap file.
func (swap *OSBufferedSwapManager) Close() error {
	return swap.file.Close()
}

// allocateSlot reuses a released slot if available, otherwise hands out the
// next slot ID at the end of the file. Must be called with the mutex held.
func (swap *OSBufferedSwapManager) allocateSlot() SlotID {

	if len(swap.freeSlots) > 0 {

		slot := swap.freeSlots[0]
		swap.freeSlots = swap.freeSlots[1:]
		return slot
	}

	slot := swap.nextSlot
	swap.nextSlot++
	return slot
}
