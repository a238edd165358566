package page_table

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Adarsh-Kmt/WyvernOS/physical_memory"
	"github.com/Adarsh-Kmt/WyvernOS/swap"
)

type SupplementalPageTableTestSuite struct {
	suite.Suite
	supt *SupplementalPageTable
}

func (ss *SupplementalPageTableTestSuite) SetupTest() {

	ss.supt = NewSupplementalPageTable()
}

func (ss *SupplementalPageTableTestSuite) TestRecordFrame() {

	ss.supt.RecordFrame(0x4000, physical_memory.PhysAddr(0x101000))

	status, exists := ss.supt.Lookup(0x4000)

	ss.Require().True(exists)
	ss.Assert().Equal(BackedByFrame, status.Backing)
	ss.Assert().Equal(physical_memory.PhysAddr(0x101000), status.Frame)
}

func (ss *SupplementalPageTableTestSuite) TestEvictionMovesPageToSwap() {

	ss.supt.RecordFrame(0x4000, physical_memory.PhysAddr(0x101000))

	ss.supt.RecordSwapLocation(0x4000, swap.SlotID(5))

	status, exists := ss.supt.Lookup(0x4000)

	ss.Require().True(exists)
	ss.Assert().Equal(BackedBySwap, status.Backing)
	ss.Assert().Equal(swap.SlotID(5), status.SwapSlot)
}

func (ss *SupplementalPageTableTestSuite) TestRemove() {

	ss.supt.RecordFrame(0x4000, physical_memory.PhysAddr(0x101000))

	ss.supt.Remove(0x4000)

	_, exists := ss.supt.Lookup(0x4000)

	ss.Assert().False(exists)
}

func (ss *SupplementalPageTableTestSuite) TestPagesListsResidentAndSwapped() {

	ss.supt.RecordFrame(0x4000, physical_memory.PhysAddr(0x101000))
	ss.supt.RecordSwapLocation(0x5000, swap.SlotID(2))

	ss.Assert().ElementsMatch([]VirtAddr{0x4000, 0x5000}, ss.supt.Pages())
}

func TestSupplementalPageTable(t *testing.T) {

	suite.Run(t, new(SupplementalPageTableTestSuite))
}
