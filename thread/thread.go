package thread

import (
	"sync"

	"github.com/Adarsh-Kmt/WyvernOS/frame_table"
	"github.com/Adarsh-Kmt/WyvernOS/page_table"
)

// TID identifies one execution context.
type TID uint64

// Thread is one user execution context: the owner handle the frame table
// keeps as a back-reference. It carries the per-owner page directory and
// supplemental page table, and the thread's memory-mapped file descriptors.
type Thread struct {
	ID   TID
	Name string

	PageDir *page_table.PageDirectory
	SUPT    *page_table.SupplementalPageTable

	mmapMutex  *sync.Mutex
	nextMmapId MmapID
	mmaps      map[MmapID]*MmapDescriptor

	// closed exactly once when the thread exits.
	done     chan struct{}
	exitOnce *sync.Once
}

// PageDirectory exposes the thread's page directory to the frame allocator.
func (t *Thread) PageDirectory() frame_table.PageDirectory {
	return t.PageDir
}

// SupplementalTable exposes the thread's supplemental page table to the frame
// allocator.
func (t *Thread) SupplementalTable() frame_table.SupplementalTable {
	return t.SUPT
}

// Manager owns the thread table and tracks the current execution context.
type Manager struct {
	mutex *sync.Mutex

	threads map[TID]*Thread
	current *Thread
	nextTid TID
}

func NewManager() *Manager {

	return &Manager{
		mutex:   &sync.Mutex{},
		threads: make(map[TID]*Thread),
	}
}

// Spawn creates a thread with a fresh page directory and supplemental page
// table. The first spawned thread becomes the current context.
func (m *Manager) Spawn(name string) *Thread {

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.nextTid++

	t := &Thread{
		ID:   m.nextTid,
		Name: name,

		PageDir: page_table.NewPageDirectory(),
		SUPT:    page_table.NewSupplementalPageTable(),

		mmapMutex: &sync.Mutex{},
		mmaps:     make(map[MmapID]*MmapDescriptor),

		done:     make(chan struct{}),
		exitOnce: &sync.Once{},
	}

	m.threads[t.ID] = t

	if m.current == nil {
		m.current = t
	}

	return t
}

// Current returns the current execution context, nil when no thread is live.
func (m *Manager) Current() *Thread {

	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.current
}

// SetCurrent switches the current execution context.
func (m *Manager) SetCurrent(t *Thread) {

	m.mutex.Lock()
	m.current = t
	m.mutex.Unlock()
}

// Lookup returns the thread registered under a TID.
func (m *Manager) Lookup(tid TID) (*Thread, bool) {

	m.mutex.Lock()
	defer m.mutex.Unlock()

	t, exists := m.threads[tid]
	return t, exists
}

// Exit retires a thread: it leaves the table, waiters are released, and a
// second exit for the same thread is a no-op.
func (m *Manager) Exit(tid TID) {

	m.mutex.Lock()

	t, exists := m.threads[tid]

	if !exists {
		m.mutex.Unlock()
		return
	}

	delete(m.threads, tid)

	if m.current == t {
		m.current = nil
	}

	m.mutex.Unlock()

	t.exitOnce.Do(func() { close(t.done) })
}

// Wait blocks until the thread exits. Waiting on an unknown TID returns
// immediately.
func (m *Manager) Wait(tid TID) {

	m.mutex.Lock()
	t, exists := m.threads[tid]
	m.mutex.Unlock()

	if !exists {
		return
	}

	<-t.done
}
