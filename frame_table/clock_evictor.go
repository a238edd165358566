package frame_table

// Clock (second chance) eviction.
//
// The hand walks the ring in insertion order, wrapping past the back to the
// front. A recently accessed frame gets one reprieve: its accessed flag is
// cleared and the hand moves on. The hand persists across calls, so
// consecutive evictions keep scanning forward instead of restarting,
// approximating round-robin fairness between frames.

// pickVictim selects the next eviction victim.
//
// Pinned frames are passed over without consuming their second chance. The
// scan is bounded at 2N steps: in the worst case the first full pass spends
// every frame's second chance, and the second pass is then guaranteed to find
// an unreferenced, unpinned frame or to correctly conclude none exists.
// Recency is read from each candidate's own owner page directory.
// Must be called with the mutex held.
func (ft *FrameTable) pickVictim() *frameTableEntry {

	n := ft.ring.Len()

	if n == 0 {
		panic(faultEmptyRing)
	}

	for it := 0; it < 2*n; it++ {

		entry := ft.nextFrame()

		if entry.pinned {
			continue
		}

		pd := entry.owner.PageDirectory()

		if pd.IsAccessed(entry.page) {
			pd.SetAccessed(entry.page, false)
			continue
		}

		return entry
	}

	panic(faultNoVictim)
}

// nextFrame advances the clock hand one position around the ring.
// Must be called with the mutex held and the ring non-empty.
func (ft *FrameTable) nextFrame() *frameTableEntry {

	if ft.ring.Len() == 0 {
		panic(faultEmptyRing)
	}

	if ft.clockHand == nil {
		ft.clockHand = ft.ring.Front()
	} else if next := ft.clockHand.Next(); next != nil {
		ft.clockHand = next
	} else {
		ft.clockHand = ft.ring.Front()
	}

	return ft.clockHand.Value.(*frameTableEntry)
}
