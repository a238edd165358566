package physical_memory

import (
	"fmt"
	"sync"
)

const PAGE_SIZE = 4096

// PhysAddr identifies a physical frame by the kernel-space address of its first byte.
type PhysAddr uint64

// base address of the user pool, so that address 0 is never a valid frame.
const userPoolBase PhysAddr = 0x100000

// UserPool is the raw physical-page source.
// It owns a fixed region of memory divided into PAGE_SIZE frames,
// and hands frames out and takes them back through a free list.
type UserPool struct {
	mutex *sync.Mutex

	// backing memory for every frame in the pool.
	memory []byte

	// queue of currently free frame addresses.
	freeList []PhysAddr

	// free[i] is true while frame i sits in the free list.
	free []bool

	numFrames int
}

func NewUserPool(numFrames int) (*UserPool, error) {

	if numFrames <= 0 {
		return nil, fmt.Errorf("user pool must contain at least one frame")
	}

	freeList := make([]PhysAddr, 0, numFrames)
	free := make([]bool, numFrames)

	for i := 0; i < numFrames; i++ {
		freeList = append(freeList, userPoolBase+PhysAddr(i*PAGE_SIZE))
		free[i] = true
	}

	return &UserPool{
		mutex:     &sync.Mutex{},
		memory:    make([]byte, numFrames*PAGE_SIZE),
		freeList:  freeList,
		free:      free,
		numFrames: numFrames,
	}, nil
}

// RequestPage removes a frame from the free list and returns its address.
// It returns false when every frame in the pool is handed out.
func (pool *UserPool) RequestPage() (PhysAddr, bool) {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	if len(pool.freeList) == 0 {
		return 0, false
	}

	addr := pool.freeList[0]
	pool.freeList = pool.freeList[1:]
	pool.free[pool.frameIndex(addr)] = false

	return addr, true
}

// ReleasePage zeroes a frame and returns it to the free list.
// Releasing a frame that is already free, or an address outside the pool, is
// a bookkeeping corruption the pool cannot continue past.
func (pool *UserPool) ReleasePage(addr PhysAddr) {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	index := pool.frameIndex(addr)

	if pool.free[index] {
		panic(fmt.Sprintf("physical_memory: double release of frame %#x", uint64(addr)))
	}

	start := index * PAGE_SIZE
	clear(pool.memory[start : start+PAGE_SIZE])

	pool.free[index] = true
	pool.freeList = append(pool.freeList, addr)
}

// FrameData returns the PAGE_SIZE byte view backing a frame.
// The slice aliases pool memory, so writes through it change the frame contents.
func (pool *UserPool) FrameData(addr PhysAddr) []byte {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	start := pool.frameIndex(addr) * PAGE_SIZE
	return pool.memory[start : start+PAGE_SIZE]
}

// FreeFrames returns the number of frames currently in the free list.
func (pool *UserPool) FreeFrames() int {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	return len(pool.freeList)
}

// frameIndex validates an address and maps it to its frame index in the pool.
// Must be called with the mutex held.
func (pool *UserPool) frameIndex(addr PhysAddr) int {

	if addr < userPoolBase || (addr-userPoolBase)%PAGE_SIZE != 0 {
		panic(fmt.Sprintf("physical_memory: %#x is not a frame address in the user pool", uint64(addr)))
	}

	index := int((addr - userPoolBase) / PAGE_SIZE)

	if index >= pool.numFrames {
		panic(fmt.Sprintf("physical_memory: %#x is past the end of the user pool", uint64(addr)))
	}

	return index
}
