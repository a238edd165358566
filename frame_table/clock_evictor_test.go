package frame_table

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Adarsh-Kmt/WyvernOS/page_table"
	"github.com/Adarsh-Kmt/WyvernOS/physical_memory"
	"github.com/Adarsh-Kmt/WyvernOS/swap"
)

type ClockEvictorTestSuite struct {
	suite.Suite

	ft     *FrameTable
	source *stubFrameSource
	ctx    *stubContext
	log    *eventLog
}

func (cs *ClockEvictorTestSuite) SetupTest() {

	log := &eventLog{}

	freeList := make([]physical_memory.PhysAddr, 0, 8)

	for i := 0; i < 8; i++ {
		freeList = append(freeList, frameAddr(i))
	}

	cs.log = log
	cs.source = &stubFrameSource{freeList: freeList}
	cs.ctx = &stubContext{
		pd:   &stubPageDirectory{log: log, accessed: map[page_table.VirtAddr]bool{}},
		supt: &stubSupplementalTable{records: map[page_table.VirtAddr]swap.SlotID{}},
	}

	cs.ft = NewFrameTable(0, cs.source, &stubSwapStore{log: log})
}

func (cs *ClockEvictorTestSuite) track(pages ...page_table.VirtAddr) []physical_memory.PhysAddr {

	addrs := make([]physical_memory.PhysAddr, 0, len(pages))

	for _, page := range pages {

		addr, err := cs.ft.Allocate(cs.ctx, page)

		cs.Require().NoError(err)

		addrs = append(addrs, addr)
	}

	return addrs
}

func (cs *ClockEvictorTestSuite) TestEmptyRingIsFatal() {

	cs.Assert().PanicsWithValue(faultEmptyRing, func() { cs.ft.pickVictim() })
}

func (cs *ClockEvictorTestSuite) TestScanFollowsInsertionOrder() {

	cs.track(0x4000, 0x5000, 0x6000)

	// all unreferenced and unpinned: the hand walks the ring round-robin.
	cs.Assert().Equal(page_table.VirtAddr(0x4000), cs.ft.pickVictim().page)
	cs.Assert().Equal(page_table.VirtAddr(0x5000), cs.ft.pickVictim().page)
	cs.Assert().Equal(page_table.VirtAddr(0x6000), cs.ft.pickVictim().page)

	// the hand persists, the next scan wraps instead of restarting.
	cs.Assert().Equal(page_table.VirtAddr(0x4000), cs.ft.pickVictim().page)
}

func (cs *ClockEvictorTestSuite) TestSecondChanceClearsAccessedFlag() {

	cs.track(0x4000, 0x5000)

	cs.ctx.pd.SetAccessed(0x4000, true)

	victim := cs.ft.pickVictim()

	// the referenced frame is skipped once, its flag cleared.
	cs.Assert().Equal(page_table.VirtAddr(0x5000), victim.page)
	cs.Assert().False(cs.ctx.pd.accessed[0x4000])

	// not re-referenced, so it is the next victim.
	cs.Assert().Equal(page_table.VirtAddr(0x4000), cs.ft.pickVictim().page)
}

func (cs *ClockEvictorTestSuite) TestReferencedFrameSelectedOnSecondPass() {

	addrs := cs.track(0x4000, 0x5000, 0x6000)

	// pin everything but the referenced frame: the scan must wrap around and
	// come back to it once its second chance is spent.
	cs.ft.Pin(addrs[1])
	cs.ft.Pin(addrs[2])
	cs.ctx.pd.SetAccessed(0x4000, true)

	victim := cs.ft.pickVictim()

	cs.Assert().Equal(page_table.VirtAddr(0x4000), victim.page)
}

func (cs *ClockEvictorTestSuite) TestPinnedFrameNeverSelected() {

	addrs := cs.track(0x4000, 0x5000, 0x6000)

	cs.ft.Pin(addrs[0])

	for i := 0; i < 6; i++ {
		cs.Assert().NotEqual(addrs[0], cs.ft.pickVictim().addr)
	}

	cs.ft.Unpin(addrs[0])
	cs.ctx.pd.SetAccessed(0x5000, true)
	cs.ctx.pd.SetAccessed(0x6000, true)

	cs.Assert().Equal(addrs[0], cs.ft.pickVictim().addr)
}

func (cs *ClockEvictorTestSuite) TestScanBoundedByTwoPasses() {

	cs.track(0x4000, 0x5000, 0x6000, 0x7000)

	// worst case: every frame holds a second chance, so the scan spends all
	// of them on the first pass and selects on the first step of the second.
	for _, page := range []page_table.VirtAddr{0x4000, 0x5000, 0x6000, 0x7000} {
		cs.ctx.pd.SetAccessed(page, true)
	}

	cs.ctx.pd.isAccessedCalls = 0

	victim := cs.ft.pickVictim()

	cs.Assert().Equal(page_table.VirtAddr(0x4000), victim.page)
	cs.Assert().Equal(5, cs.ctx.pd.isAccessedCalls)
	cs.Assert().LessOrEqual(cs.ctx.pd.isAccessedCalls, 8)
}

func (cs *ClockEvictorTestSuite) TestAllPinnedScanIsFatal() {

	addrs := cs.track(0x4000, 0x5000)

	cs.ft.Pin(addrs[0])
	cs.ft.Pin(addrs[1])

	cs.Assert().PanicsWithValue(faultNoVictim, func() { cs.ft.pickVictim() })
}

func (cs *ClockEvictorTestSuite) TestHandSurvivesVictimRemoval() {

	addrs := cs.track(0x4000, 0x5000, 0x6000)

	victim := cs.ft.pickVictim()

	cs.Require().Equal(addrs[0], victim.addr)

	// retiring the entry under the hand parks the hand so the scan resumes
	// with the next entry.
	cs.ft.Free(victim.addr)

	cs.Assert().Equal(addrs[1], cs.ft.pickVictim().addr)
	cs.Assert().Equal(addrs[2], cs.ft.pickVictim().addr)
}

func TestClockEvictor(t *testing.T) {

	suite.Run(t, new(ClockEvictorTestSuite))
}
