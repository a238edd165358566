package swap

const PAGE_SIZE = 4096

// SlotID identifies one page-sized slot in the swap file.
type SlotID uint64

// Manager is responsible for persisting evicted page contents to the swap
// backing store and bringing them back in.
type Manager interface {

	// WriteOut persists one page of data into a free slot and returns its slot ID.
	WriteOut(data []byte) (SlotID, error)

	// ReadIn reads the contents of a slot into buf.
	ReadIn(slot SlotID, buf []byte) error

	// Release marks a slot as free, making it available for future write-outs.
	Release(slot SlotID)

	// Close closes the swap file.
	Close() error
}
