// access.go - BusAccess value record passed by reference to every target call

package bus

// BusAccess carries everything a BusTarget might need to know about the
// access currently in flight. Callers construct one per operation; targets
// never retain a pointer past the call.
type BusAccess struct {
	Address        Addr
	Value          uint32
	WidthBits      int
	Mode           BusAccessMode
	EmulationFlag  bool
	Intent         AccessIntent
	SourceId       int
	Cycle          Cycle
	Flags          AccessFlags
	PrivilegeLevel PrivilegeLevel
}

// WithAddressOffset derives a copy of the access shifted by n, used when a
// wide access decomposes into successive byte operations.
func (a BusAccess) WithAddressOffset(n Addr) BusAccess {
	a.Address += n
	return a
}

// IsSideEffectFree reports whether the access must not mutate target state.
func (a BusAccess) IsSideEffectFree() bool {
	return a.Flags.Has(NoSideEffects) || a.Intent.IsDebug()
}

// IsAtomicRequested reports whether the caller asked for an atomic wide
// access (subject to the target's actual SupportsWide capability).
func (a BusAccess) IsAtomicRequested() bool {
	return a.Mode == ModeAtomic && !a.Flags.Has(Decompose)
}

// IsDecomposeForced reports whether decomposition was explicitly requested
// regardless of target capability or alignment.
func (a BusAccess) IsDecomposeForced() bool {
	return a.Flags.Has(Decompose)
}

// IsDebugAccess reports whether this is a debug-intent access.
func (a BusAccess) IsDebugAccess() bool { return a.Intent.IsDebug() }

// IsDmaAccess reports whether this is a DMA-intent access.
func (a BusAccess) IsDmaAccess() bool { return a.Intent.IsDma() }

// IsRead reports whether this access reads the target.
func (a BusAccess) IsRead() bool { return a.Intent.IsRead() }

// IsWrite reports whether this access writes the target.
func (a BusAccess) IsWrite() bool { return a.Intent.IsWrite() }
