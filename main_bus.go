// main_bus.go - MainBus: binds PhysicalMemory/targets/PageTable/LayerStack/
// SwapGroupManager/IOPageDispatcher/SlotManager into the single bus surface
// the CPU (and everything else) talks to.
//
// Grounded almost directly on machine_bus.go: its Read32WithFault/
// Write32WithFault fallible pair and Read32/Write32 infallible-wrapping-
// fallible pair are the exact shape spec.md §4.2 asks for, just re-targeted
// at a page table instead of a flat byte array. SealMappings/sealed
// atomic.Bool carry over unchanged in spirit for MainBus.Seal.

package bus

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// ioPageBase is the canonical "$C000-$C0FF" I/O page offset within the
// address space; the page covering it is bound to a CompositeTarget that
// delegates to the IOPageDispatcher.
const ioPageBase Addr = 0xC000

// MainBus binds components A-G of spec.md §2 together and exposes the
// fallible (TryRead8/...) and infallible (Read8/...) surfaces.
type MainBus struct {
	addressSpaceBits int
	pageCount        int

	table      *PageTable
	layers     *LayerStack
	swaps      *SwapGroupManager
	dispatcher *IOPageDispatcher
	slots      *SlotManager

	cycle  Cycle
	sealed atomic.Bool
}

// NewMainBus validates addressSpaceBits (12..32) and constructs an empty
// bus with every page unmapped.
func NewMainBus(addressSpaceBits int) (*MainBus, error) {
	if addressSpaceBits < 12 || addressSpaceBits > 32 {
		return nil, &ArgumentOutOfRangeError{ParamName: "addressSpaceBits", Value: addressSpaceBits}
	}
	pageCount := 1 << (addressSpaceBits - PageShift)
	table := NewPageTable(pageCount)
	layers := NewLayerStack(table)
	swaps := NewSwapGroupManager(table, layers)
	dispatcher := NewIOPageDispatcher()
	slots := NewSlotManager(dispatcher)

	bus := &MainBus{
		addressSpaceBits: addressSpaceBits,
		pageCount:        pageCount,
		table:            table,
		layers:           layers,
		swaps:            swaps,
		dispatcher:       dispatcher,
		slots:            slots,
	}
	return bus, nil
}

// Table, Layers, Swaps, Dispatcher, Slots expose the bound sub-components
// for callers that need to drive them directly (device setup code,
// cmd/ie-monitor, tests).
func (b *MainBus) Table() *PageTable           { return b.table }
func (b *MainBus) Layers() *LayerStack         { return b.layers }
func (b *MainBus) Swaps() *SwapGroupManager    { return b.swaps }
func (b *MainBus) Dispatcher() *IOPageDispatcher { return b.dispatcher }
func (b *MainBus) Slots() *SlotManager         { return b.slots }

// Size returns the address space size in bytes.
func (b *MainBus) Size() Addr { return Addr(b.pageCount) << PageShift }

// CycleCount returns the bus's monotonic cycle counter.
func (b *MainBus) CycleCount() Cycle { return b.cycle }

// ResetCycleCount zeroes the cycle counter.
func (b *MainBus) ResetCycleCount() { b.cycle = 0 }

// Seal marks the bus sealed: after Seal, MainBus.MapRegion and
// InstallIODispatch panic. The PageTable, LayerStack and SwapGroupManager
// reached through Table(), Layers() and Swaps() do not check the seal, so
// MapPage, CreateLayer and CreateSwapGroup on them still succeed, as do
// the bank-switching operations RemapPage, ActivateLayer and
// ActivateSwapVariant.
func (b *MainBus) Seal() { b.sealed.Store(true) }

// IsSealed reports whether the bus has been sealed.
func (b *MainBus) IsSealed() bool { return b.sealed.Load() }

func (b *MainBus) requireUnsealed(op string) {
	if b.sealed.Load() {
		panic(fmt.Sprintf("bus-fabric: %s after Seal()", op))
	}
}

// MapRegion installs a region of the page table. Panics if the bus has been
// sealed.
func (b *MainBus) MapRegion(virtualBase, size Addr, deviceId int, tag RegionTag, perms PagePerms, caps TargetCaps, target BusTarget, physBase Addr) error {
	b.requireUnsealed("MapRegion")
	return b.table.MapRegion(virtualBase, size, deviceId, tag, perms, caps, target, physBase)
}

// InstallIODispatch binds the I/O page (the page containing ioPageBase) to
// a CompositeTarget that routes through the IOPageDispatcher. Must be
// called once during setup, before Seal.
func (b *MainBus) InstallIODispatch(deviceId int) error {
	b.requireUnsealed("InstallIODispatch")
	page := int(ioPageBase >> PageShift)
	target := &ioDispatchTarget{dispatcher: b.dispatcher}
	entry := PageEntry{
		DeviceId:  deviceId,
		RegionTag: RegionIo,
		Perms:     PermRead | PermWrite,
		Caps:      CapSupportsPeek | CapSupportsPoke | CapHasSideEffects,
		Target:    target,
	}
	return b.table.MapPage(page, entry)
}

// ioDispatchTarget adapts the IOPageDispatcher to the CompositeTarget
// contract: per spec.md's "I/O page" section, the page covering ioPageBase
// is itself a CompositeTarget whose ResolveTarget delegates to the
// dispatcher. ResolveTarget always resolves to the target itself, since
// IOPageDispatcher.Read/Write already apply the floating-bus/discarded-
// write contract per offset internally.
type ioDispatchTarget struct {
	dispatcher *IOPageDispatcher
}

func (t *ioDispatchTarget) Capabilities() TargetCaps {
	return CapSupportsPeek | CapSupportsPoke | CapHasSideEffects
}

func (t *ioDispatchTarget) Read8(physAddr Addr, access *BusAccess) byte {
	return t.dispatcher.Read(int(physAddr), access)
}

func (t *ioDispatchTarget) Write8(physAddr Addr, value byte, access *BusAccess) {
	t.dispatcher.Write(int(physAddr), value, access)
}

func (t *ioDispatchTarget) ResolveTarget(offset Addr, intent AccessIntent) BusTarget {
	return t
}

func (t *ioDispatchTarget) GetSubRegionTag(offset Addr) RegionTag {
	return RegionIo
}

// --- fallible access path -------------------------------------------------

func (b *MainBus) resolvePage(a Addr, intent AccessIntent) (PageEntry, BusFault) {
	p := int(a >> PageShift)
	if p >= b.pageCount {
		return PageEntry{}, BusFault{Kind: FaultUnmapped, Address: a, Region: RegionUnknown, Intent: intent}
	}
	entry, err := b.layers.GetEffectiveMapping(a)
	if err != nil || !entry.Mapped() {
		return PageEntry{}, BusFault{Kind: FaultUnmapped, Address: a, Region: RegionUnknown, Intent: intent}
	}
	return entry, BusFault{}
}

func permissionFault(entry PageEntry, a Addr, access *BusAccess) FaultKind {
	switch {
	case access.Intent == InstructionFetch:
		if access.Mode == ModeAtomic && !entry.Perms.Has(PermExecute) {
			return FaultNx
		}
		// Decomposed/legacy mode: execute permission is not enforced
		// (DESIGN NOTES §9, open question (b)).
		return FaultNone
	case access.Intent.IsRead():
		if !entry.Perms.Has(PermRead) {
			return FaultPermission
		}
	case access.Intent.IsWrite():
		if !entry.Perms.Has(PermWrite) {
			return FaultPermission
		}
	}
	return FaultNone
}

func privilegeFault(entry PageEntry, access *BusAccess) FaultKind {
	switch {
	case access.Intent == InstructionFetch:
		if access.PrivilegeLevel > entry.MinExecutePrivilege {
			return FaultPermission
		}
	case access.Intent.IsRead():
		if access.PrivilegeLevel > entry.MinReadPrivilege {
			return FaultPermission
		}
	case access.Intent.IsWrite():
		if access.PrivilegeLevel > entry.MinWritePrivilege {
			return FaultPermission
		}
	}
	return FaultNone
}

// TryRead8 is the fallible byte read. Algorithm per spec.md §4.2.
func (b *MainBus) TryRead8(a Addr, access *BusAccess) BusResult[byte] {
	entry, fault := b.resolvePage(a, access.Intent)
	if !fault.Ok() {
		return faultResult[byte](fault)
	}
	if kind := permissionFault(entry, a, access); kind != FaultNone {
		return faultResult[byte](BusFault{Kind: kind, Address: a, DeviceId: entry.DeviceId, Region: entry.RegionTag, Intent: access.Intent})
	}
	if kind := privilegeFault(entry, access); kind != FaultNone {
		return faultResult[byte](BusFault{Kind: kind, Address: a, DeviceId: entry.DeviceId, Region: entry.RegionTag, Intent: access.Intent})
	}
	off := (a & PageMask) + entry.PhysicalBase
	if ct, ok := entry.Target.(CompositeTarget); ok {
		sub := ct.ResolveTarget(off, access.Intent)
		b.cycle++
		if sub == nil {
			return okResult(byte(FloatingBusValue))
		}
		return okResult(sub.Read8(off, access))
	}
	v := entry.Target.Read8(off, access)
	b.cycle++
	return okResult(v)
}

// TryWrite8 is the fallible byte write.
func (b *MainBus) TryWrite8(a Addr, value byte, access *BusAccess) BusFault {
	entry, fault := b.resolvePage(a, access.Intent)
	if !fault.Ok() {
		return fault
	}
	if kind := permissionFault(entry, a, access); kind != FaultNone {
		return BusFault{Kind: kind, Address: a, DeviceId: entry.DeviceId, Region: entry.RegionTag, Intent: access.Intent}
	}
	if kind := privilegeFault(entry, access); kind != FaultNone {
		return BusFault{Kind: kind, Address: a, DeviceId: entry.DeviceId, Region: entry.RegionTag, Intent: access.Intent}
	}
	off := (a & PageMask) + entry.PhysicalBase
	if ct, ok := entry.Target.(CompositeTarget); ok {
		sub := ct.ResolveTarget(off, access.Intent)
		b.cycle++
		if sub == nil {
			return BusFault{} // floating bus: write discarded, no fault
		}
		sub.Write8(off, value, access)
		return BusFault{}
	}
	entry.Target.Write8(off, value, access)
	b.cycle++
	return BusFault{}
}

func (b *MainBus) defaultAccess(intent AccessIntent, mode BusAccessMode, flags AccessFlags) BusAccess {
	return BusAccess{Intent: intent, Mode: mode, Flags: flags, Cycle: b.cycle}
}

// --- wide access decomposition --------------------------------------------

// wideRead implements the policy from spec.md §4.2: forced decompose wins,
// then page-crossing forces decompose, then atomic wide is used only if
// the target supports it and the caller asked for atomic mode, else
// decompose byte-by-byte in ascending (little-endian) order.
func wideRead[T uint16 | uint32](b *MainBus, a Addr, width int, access *BusAccess) BusResult[T] {
	var zero T
	crosses := (uint32(a) & PageMask) + uint32(width/8) - 1 > PageMask
	if !access.Flags.Has(Decompose) && !crosses {
		entry, fault := b.resolvePage(a, access.Intent)
		if fault.Ok() && entry.Caps.Has(CapSupportsWide) && access.Mode == ModeAtomic {
			if wt, ok := entry.Target.(WideTarget); ok {
				if kind := permissionFault(entry, a, access); kind != FaultNone {
					return faultResult[T](BusFault{Kind: kind, Address: a, DeviceId: entry.DeviceId, Region: entry.RegionTag, Intent: access.Intent})
				}
				if kind := privilegeFault(entry, access); kind != FaultNone {
					return faultResult[T](BusFault{Kind: kind, Address: a, DeviceId: entry.DeviceId, Region: entry.RegionTag, Intent: access.Intent})
				}
				off := (a & PageMask) + entry.PhysicalBase
				switch width {
				case 16:
					v := wt.Read16(off, access)
					b.cycle++
					return okResult(T(v))
				case 32:
					v := wt.Read32(off, access)
					b.cycle++
					return okResult(T(v))
				}
			}
		}
	}

	buf := make([]byte, width/8)
	for i := range buf {
		r := b.TryRead8(a+Addr(i), access)
		if !r.Ok() {
			return faultResult[T](r.Fault)
		}
		buf[i] = r.Value
	}
	switch width {
	case 16:
		return okResult(T(binary.LittleEndian.Uint16(buf)))
	case 32:
		return okResult(T(binary.LittleEndian.Uint32(buf)))
	}
	return okResult(zero)
}

func wideWrite(b *MainBus, a Addr, width int, value uint32, access *BusAccess) BusFault {
	crosses := (uint32(a) & PageMask) + uint32(width/8) - 1 > PageMask
	if !access.Flags.Has(Decompose) && !crosses {
		entry, fault := b.resolvePage(a, access.Intent)
		if fault.Ok() && entry.Caps.Has(CapSupportsWide) && access.Mode == ModeAtomic {
			if wt, ok := entry.Target.(WideTarget); ok {
				if kind := permissionFault(entry, a, access); kind != FaultNone {
					return BusFault{Kind: kind, Address: a, DeviceId: entry.DeviceId, Region: entry.RegionTag, Intent: access.Intent}
				}
				if kind := privilegeFault(entry, access); kind != FaultNone {
					return BusFault{Kind: kind, Address: a, DeviceId: entry.DeviceId, Region: entry.RegionTag, Intent: access.Intent}
				}
				off := (a & PageMask) + entry.PhysicalBase
				switch width {
				case 16:
					wt.Write16(off, uint16(value), access)
				case 32:
					wt.Write32(off, value, access)
				}
				b.cycle++
				return BusFault{}
			}
		}
	}

	buf := make([]byte, width/8)
	switch width {
	case 16:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 32:
		binary.LittleEndian.PutUint32(buf, value)
	}
	for i, byteVal := range buf {
		if fault := b.TryWrite8(a+Addr(i), byteVal, access); !fault.Ok() {
			return fault
		}
	}
	return BusFault{}
}

// TryRead16/TryWrite16/TryRead32/TryWrite32 are the fallible wide accessors.
func (b *MainBus) TryRead16(a Addr, access *BusAccess) BusResult[uint16] {
	return wideRead[uint16](b, a, 16, access)
}
func (b *MainBus) TryWrite16(a Addr, value uint16, access *BusAccess) BusFault {
	return wideWrite(b, a, 16, uint32(value), access)
}
func (b *MainBus) TryRead32(a Addr, access *BusAccess) BusResult[uint32] {
	return wideRead[uint32](b, a, 32, access)
}
func (b *MainBus) TryWrite32(a Addr, value uint32, access *BusAccess) BusFault {
	return wideWrite(b, a, 32, value, access)
}

// --- infallible wrappers ---------------------------------------------------

// Read8 wraps TryRead8, raising *BusFaultError on fault.
func (b *MainBus) Read8(a Addr, intent AccessIntent) (byte, error) {
	access := b.defaultAccess(intent, ModeAtomic, 0)
	r := b.TryRead8(a, &access)
	if !r.Ok() {
		return 0, &BusFaultError{Fault: r.Fault}
	}
	return r.Value, nil
}

// Write8 wraps TryWrite8, raising *BusFaultError on fault.
func (b *MainBus) Write8(a Addr, value byte, intent AccessIntent) error {
	access := b.defaultAccess(intent, ModeAtomic, 0)
	if fault := b.TryWrite8(a, value, &access); !fault.Ok() {
		return &BusFaultError{Fault: fault}
	}
	return nil
}

// Read16/Write16/Read32/Write32 are the infallible wide accessors.
func (b *MainBus) Read16(a Addr, intent AccessIntent) (uint16, error) {
	access := b.defaultAccess(intent, ModeAtomic, 0)
	r := b.TryRead16(a, &access)
	if !r.Ok() {
		return 0, &BusFaultError{Fault: r.Fault}
	}
	return r.Value, nil
}
func (b *MainBus) Write16(a Addr, value uint16, intent AccessIntent) error {
	access := b.defaultAccess(intent, ModeAtomic, 0)
	if fault := b.TryWrite16(a, value, &access); !fault.Ok() {
		return &BusFaultError{Fault: fault}
	}
	return nil
}
func (b *MainBus) Read32(a Addr, intent AccessIntent) (uint32, error) {
	access := b.defaultAccess(intent, ModeAtomic, 0)
	r := b.TryRead32(a, &access)
	if !r.Ok() {
		return 0, &BusFaultError{Fault: r.Fault}
	}
	return r.Value, nil
}
func (b *MainBus) Write32(a Addr, value uint32, intent AccessIntent) error {
	access := b.defaultAccess(intent, ModeAtomic, 0)
	if fault := b.TryWrite32(a, value, &access); !fault.Ok() {
		return &BusFaultError{Fault: fault}
	}
	return nil
}

// ReadWord/WriteWord are spec.md §6 aliases for Read16/Write16, named for
// CPU cores that think in "words" rather than bit widths.
func (b *MainBus) ReadWord(a Addr, intent AccessIntent) (uint16, error) { return b.Read16(a, intent) }
func (b *MainBus) WriteWord(a Addr, value uint16, intent AccessIntent) error {
	return b.Write16(a, value, intent)
}

// Inspect performs a side-effect-free debug read of length bytes starting
// at start, bypassing handler mutation.
func (b *MainBus) Inspect(start Addr, length int) ([]byte, error) {
	out := make([]byte, length)
	access := BusAccess{Intent: DebugRead, Mode: ModeDecomposed, Flags: NoSideEffects, Cycle: b.cycle}
	for i := 0; i < length; i++ {
		r := b.TryRead8(start+Addr(i), &access)
		if !r.Ok() {
			return nil, &BusFaultError{Fault: r.Fault}
		}
		out[i] = r.Value
	}
	return out, nil
}

// Clear wipes every page tagged RegionRam back to zero, leaving ROM and I/O
// pages untouched.
func (b *MainBus) Clear() error {
	for p := 0; p < b.pageCount; p++ {
		entry, err := b.table.Entry(p)
		if err != nil || !entry.Mapped() || entry.RegionTag != RegionRam {
			continue
		}
		base := entry.PhysicalBase
		access := BusAccess{Intent: DebugWrite, Mode: ModeDecomposed, Flags: NoSideEffects}
		for i := Addr(0); i < PageSize; i++ {
			entry.Target.Write8(base+i, 0, &access)
		}
	}
	return nil
}
