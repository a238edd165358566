package frame_table

// Fault is an unrecoverable internal fault: a broken invariant the subsystem
// treats as unreachable under correct operation. Faults are delivered via
// panic and must never be converted into ordinary error returns, continuing
// would operate on a provably inconsistent table.
type Fault string

func (f Fault) Error() string { return string(f) }

const (
	faultEmptyRing = Fault("frame_table: victim selection invoked with zero tracked frames, the table is leaking entries somewhere")

	faultNoVictim = Fault("frame_table: no evictable frame after a full second-chance scan, not enough memory")

	faultVictimWithoutOwner = Fault("frame_table: selected victim has no owner")

	faultRetryFailed = Fault("frame_table: physical page request failed immediately after an eviction")

	faultPinUntracked = Fault("frame_table: pin/unpin of a frame that is not tracked")
)
