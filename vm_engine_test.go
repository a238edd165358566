package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Adarsh-Kmt/WyvernOS/page_table"
	"github.com/Adarsh-Kmt/WyvernOS/physical_memory"
	"github.com/Adarsh-Kmt/WyvernOS/swap"
	"github.com/Adarsh-Kmt/WyvernOS/thread"
)

type VMEngineTestSuite struct {
	suite.Suite
	swapManager *swap.OSBufferedSwapManager
	engine      *VMEngine
	proc        *thread.Thread
}

const (
	pageA = page_table.VirtAddr(0x8048000)
	pageB = page_table.VirtAddr(0x8049000)
	pageC = page_table.VirtAddr(0x804a000)
)

func fillPage(b byte) []byte {

	data := make([]byte, physical_memory.PAGE_SIZE)

	for i := range data {
		data[i] = b
	}

	return data
}

func (vs *VMEngineTestSuite) SetupTest() {

	swapManager, err := swap.NewOSBufferedSwapManager("test_file")

	vs.Require().NoError(err)

	vs.swapManager = swapManager

	engine, err := NewVMEngine(2, swapManager)

	vs.Require().NoError(err)

	vs.engine = engine
	vs.proc = engine.StartProcess("init")
}

func (vs *VMEngineTestSuite) TearDownTest() {

	vs.Require().NoError(vs.engine.Close())
	vs.Require().NoError(os.Remove("test_file"))
}

func (vs *VMEngineTestSuite) TestInstallPagePopulatesFrameAndTables() {

	frame, err := vs.engine.InstallPage(vs.proc, pageA, fillPage(0xAA))

	vs.Require().NoError(err)

	mapped, exists := vs.proc.PageDir.Lookup(pageA)

	vs.Require().True(exists)
	vs.Assert().Equal(frame, mapped)

	status, exists := vs.proc.SUPT.Lookup(pageA)

	vs.Require().True(exists)
	vs.Assert().Equal(page_table.BackedByFrame, status.Backing)
	vs.Assert().Equal(frame, status.Frame)

	vs.Assert().Equal(fillPage(0xAA), vs.engine.pool.FrameData(frame))
}

func (vs *VMEngineTestSuite) TestInstallBeyondPhysicalMemorySpillsToSwap() {

	frameA, err := vs.engine.InstallPage(vs.proc, pageA, fillPage(0xAA))
	vs.Require().NoError(err)

	_, err = vs.engine.InstallPage(vs.proc, pageB, fillPage(0xBB))
	vs.Require().NoError(err)

	// third page with only two frames: the oldest unreferenced page goes out.
	frameC, err := vs.engine.InstallPage(vs.proc, pageC, fillPage(0xCC))
	vs.Require().NoError(err)

	// the evicted frame is recycled for the new page.
	vs.Assert().Equal(frameA, frameC)

	_, exists := vs.proc.PageDir.Lookup(pageA)
	vs.Assert().False(exists)

	status, exists := vs.proc.SUPT.Lookup(pageA)

	vs.Require().True(exists)
	vs.Require().Equal(page_table.BackedBySwap, status.Backing)

	swappedOut := make([]byte, physical_memory.PAGE_SIZE)

	vs.Require().NoError(vs.swapManager.ReadIn(status.SwapSlot, swappedOut))
	vs.Assert().Equal(fillPage(0xAA), swappedOut)

	stats := vs.engine.VMStats()

	vs.Assert().Equal(2, stats.Tracked)
	vs.Assert().Equal(0, stats.Pinned)
	vs.Assert().Equal(uint64(1), stats.Evictions)
	vs.Assert().Equal(0, stats.FreeFrames)
}

func (vs *VMEngineTestSuite) TestRecentlyReferencedPageSurvivesEviction() {

	_, err := vs.engine.InstallPage(vs.proc, pageA, fillPage(0xAA))
	vs.Require().NoError(err)

	_, err = vs.engine.InstallPage(vs.proc, pageB, fillPage(0xBB))
	vs.Require().NoError(err)

	// a reference to A gives it a second chance, making B the victim.
	vs.proc.PageDir.SetAccessed(pageA, true)

	_, err = vs.engine.InstallPage(vs.proc, pageC, fillPage(0xCC))
	vs.Require().NoError(err)

	_, exists := vs.proc.PageDir.Lookup(pageA)
	vs.Assert().True(exists)

	_, exists = vs.proc.PageDir.Lookup(pageB)
	vs.Assert().False(exists)

	status, exists := vs.proc.SUPT.Lookup(pageB)

	vs.Require().True(exists)
	vs.Assert().Equal(page_table.BackedBySwap, status.Backing)

	swappedOut := make([]byte, physical_memory.PAGE_SIZE)

	vs.Require().NoError(vs.swapManager.ReadIn(status.SwapSlot, swappedOut))
	vs.Assert().Equal(fillPage(0xBB), swappedOut)
}

func (vs *VMEngineTestSuite) TestReclaimPageReleasesFrame() {

	_, err := vs.engine.InstallPage(vs.proc, pageA, fillPage(0xAA))
	vs.Require().NoError(err)

	vs.engine.ReclaimPage(vs.proc, pageA)

	_, exists := vs.proc.PageDir.Lookup(pageA)
	vs.Assert().False(exists)

	_, exists = vs.proc.SUPT.Lookup(pageA)
	vs.Assert().False(exists)

	stats := vs.engine.VMStats()

	vs.Assert().Equal(0, stats.Tracked)
	vs.Assert().Equal(2, stats.FreeFrames)

	// reclaiming an unmapped page is a no-op.
	vs.Assert().NotPanics(func() { vs.engine.ReclaimPage(vs.proc, pageA) })
}

func (vs *VMEngineTestSuite) TestExitProcessFreesEveryMappedFrame() {

	_, err := vs.engine.InstallPage(vs.proc, pageA, fillPage(0xAA))
	vs.Require().NoError(err)

	_, err = vs.engine.InstallPage(vs.proc, pageB, fillPage(0xBB))
	vs.Require().NoError(err)

	vs.engine.ExitProcess(vs.proc)

	stats := vs.engine.VMStats()

	vs.Assert().Equal(0, stats.Tracked)
	vs.Assert().Equal(2, stats.FreeFrames)

	_, exists := vs.engine.threads.Lookup(vs.proc.ID)
	vs.Assert().False(exists)
}

func (vs *VMEngineTestSuite) TestExitProcessReleasesSwapSlots() {

	_, err := vs.engine.InstallPage(vs.proc, pageA, fillPage(0xAA))
	vs.Require().NoError(err)

	_, err = vs.engine.InstallPage(vs.proc, pageB, fillPage(0xBB))
	vs.Require().NoError(err)

	// evicts A into slot 0.
	_, err = vs.engine.InstallPage(vs.proc, pageC, fillPage(0xCC))
	vs.Require().NoError(err)

	vs.engine.ExitProcess(vs.proc)

	// A's slot is free again, so the next write-out reuses it.
	slot, err := vs.swapManager.WriteOut(fillPage(0x11))

	vs.Require().NoError(err)
	vs.Assert().Equal(swap.SlotID(0), slot)
}

func TestVMEngine(t *testing.T) {

	suite.Run(t, new(VMEngineTestSuite))
}
