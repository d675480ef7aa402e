// targets.go - BusTarget polymorphic contract and its built-in variants
//
// machine_bus.go dispatches I/O through onRead/onWrite closures stored per
// IORegion because it only ever had one flat 32-bit address space to cover.
// The paged/layered model here needs the same "something answers this
// access" idea reusable across RAM, ROM, and per-device targets, so the
// closure pair is promoted to an interface (DESIGN NOTES §9 "dynamic
// dispatch on targets") - same dispatch shape, open for device authors to
// implement their own variant.

package bus

import "encoding/binary"

// BusTarget is the endpoint that answers a read or write at a physical
// offset within its own address range. physAddr is already translated:
// targets never see virtual addresses.
type BusTarget interface {
	Capabilities() TargetCaps
	Read8(physAddr Addr, access *BusAccess) byte
	Write8(physAddr Addr, value byte, access *BusAccess)
}

// WideTarget is an optional extension a BusTarget may implement when it can
// service 16/32-bit accesses as a single operation instead of having the
// bus decompose them into bytes.
type WideTarget interface {
	BusTarget
	Read16(physAddr Addr, access *BusAccess) uint16
	Write16(physAddr Addr, value uint16, access *BusAccess)
	Read32(physAddr Addr, access *BusAccess) uint32
	Write32(physAddr Addr, value uint32, access *BusAccess)
}

// CompositeTarget multiplexes a sub-region to one of several underlying
// targets based on controller state (Apple II "page 0" style regions). It
// embeds BusTarget so a composite value can be mapped into PageEntry.Target
// like any other target; MainBus.TryRead8/TryWrite8 detect CompositeTarget
// and dispatch through ResolveTarget directly rather than through the
// embedded Read8/Write8, which exist so the type is also usable standalone.
// If ResolveTarget returns nil, the access is floating bus: a read returns
// 0xFF, a write is discarded, neither faults.
type CompositeTarget interface {
	BusTarget
	ResolveTarget(offset Addr, intent AccessIntent) BusTarget
	GetSubRegionTag(offset Addr) RegionTag
}

// FloatingBusValue is returned for reads that hit no concrete target.
const FloatingBusValue = 0xFF

// SelectorTarget is a general-purpose CompositeTarget: a set of named
// variant targets with one selected at a time. Selecting an unknown or
// empty name makes the region read as floating bus and discard writes,
// per the nil-ResolveTarget contract.
type SelectorTarget struct {
	variants map[string]BusTarget
	selected string
}

// NewSelectorTarget returns a SelectorTarget with no variants selected.
func NewSelectorTarget() *SelectorTarget {
	return &SelectorTarget{variants: make(map[string]BusTarget)}
}

// AddVariant registers a named sub-target.
func (t *SelectorTarget) AddVariant(name string, target BusTarget) {
	t.variants[name] = target
}

// Select switches the active variant. An unknown name deselects: the
// region reads as floating bus until a known name is selected, or until a
// variant is added under the selected name.
func (t *SelectorTarget) Select(name string) {
	t.selected = name
}

func (t *SelectorTarget) Capabilities() TargetCaps {
	return CapSupportsPeek | CapSupportsPoke
}

func (t *SelectorTarget) ResolveTarget(offset Addr, intent AccessIntent) BusTarget {
	return t.variants[t.selected]
}

func (t *SelectorTarget) GetSubRegionTag(offset Addr) RegionTag {
	return RegionUnknown
}

func (t *SelectorTarget) Read8(physAddr Addr, access *BusAccess) byte {
	sub := t.ResolveTarget(physAddr, access.Intent)
	if sub == nil {
		return FloatingBusValue
	}
	return sub.Read8(physAddr, access)
}

func (t *SelectorTarget) Write8(physAddr Addr, value byte, access *BusAccess) {
	sub := t.ResolveTarget(physAddr, access.Intent)
	if sub == nil {
		return
	}
	sub.Write8(physAddr, value, access)
}

// RamTarget is byte-accurate read/write storage aliasing a PhysicalMemory
// slice. 16/32-bit operations are little-endian.
type RamTarget struct {
	slice []byte
}

// NewRamTarget wraps a slice (typically vended by PhysicalMemory.Slice) as
// a readable/writable target.
func NewRamTarget(slice []byte) *RamTarget {
	return &RamTarget{slice: slice}
}

func (t *RamTarget) Capabilities() TargetCaps {
	return CapSupportsPeek | CapSupportsPoke | CapSupportsWide
}

func (t *RamTarget) Read8(physAddr Addr, access *BusAccess) byte {
	return t.slice[physAddr]
}

func (t *RamTarget) Write8(physAddr Addr, value byte, access *BusAccess) {
	t.slice[physAddr] = value
}

func (t *RamTarget) Read16(physAddr Addr, access *BusAccess) uint16 {
	return binary.LittleEndian.Uint16(t.slice[physAddr:])
}

func (t *RamTarget) Write16(physAddr Addr, value uint16, access *BusAccess) {
	binary.LittleEndian.PutUint16(t.slice[physAddr:], value)
}

func (t *RamTarget) Read32(physAddr Addr, access *BusAccess) uint32 {
	return binary.LittleEndian.Uint32(t.slice[physAddr:])
}

func (t *RamTarget) Write32(physAddr Addr, value uint32, access *BusAccess) {
	binary.LittleEndian.PutUint32(t.slice[physAddr:], value)
}

// RomTarget serves reads from a read-only slice; writes are silently
// ignored, mirroring real ROM hardware rather than faulting.
type RomTarget struct {
	slice []byte
}

// NewRomTarget wraps a slice as a read-only target.
func NewRomTarget(slice []byte) *RomTarget {
	return &RomTarget{slice: slice}
}

func (t *RomTarget) Capabilities() TargetCaps {
	return CapSupportsPeek | CapSupportsWide
}

func (t *RomTarget) Read8(physAddr Addr, access *BusAccess) byte {
	return t.slice[physAddr]
}

func (t *RomTarget) Write8(physAddr Addr, value byte, access *BusAccess) {
	// Writes to ROM are discarded, not faulted - hardware silently ignores them.
}

func (t *RomTarget) Read16(physAddr Addr, access *BusAccess) uint16 {
	return binary.LittleEndian.Uint16(t.slice[physAddr:])
}

func (t *RomTarget) Write16(physAddr Addr, value uint16, access *BusAccess) {}

func (t *RomTarget) Read32(physAddr Addr, access *BusAccess) uint32 {
	return binary.LittleEndian.Uint32(t.slice[physAddr:])
}

func (t *RomTarget) Write32(physAddr Addr, value uint32, access *BusAccess) {}
