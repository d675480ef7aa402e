// page_table.go - PageEntry and the fixed-size PageTable
//
// Grounded on machine_bus.go's MapIO page-stepping loop
// (firstPage := start & PAGE_MASK; for page := firstPage; page <= lastPage;
// page += PAGE_SIZE) generalized from an I/O-only overlay list to the full
// page table, and on SealMappings/sealed atomic.Bool for the
// map-after-seal rejection.

package bus

// PageEntry is an immutable-by-convention descriptor for one page of the
// address space. Replacement is always whole-entry (map/remap write the
// entire struct), so from the single-threaded caller's perspective there
// are no torn entries.
type PageEntry struct {
	DeviceId            int
	RegionTag           RegionTag
	Perms               PagePerms
	Caps                TargetCaps
	Target              BusTarget
	PhysicalBase        Addr
	MinReadPrivilege    PrivilegeLevel
	MinWritePrivilege   PrivilegeLevel
	MinExecutePrivilege PrivilegeLevel
	IsSealed            bool
}

// Mapped reports whether the entry has a target bound to it.
func (e PageEntry) Mapped() bool { return e.Target != nil }

// PageTable is a fixed-size array of PageEntry, indexed by page number
// (address >> PageShift).
type PageTable struct {
	entries []PageEntry
}

// NewPageTable allocates a table with pageCount unmapped entries.
func NewPageTable(pageCount int) *PageTable {
	if pageCount <= 0 {
		panic(&ArgumentOutOfRangeError{ParamName: "pageCount", Value: pageCount})
	}
	return &PageTable{entries: make([]PageEntry, pageCount)}
}

// PageCount returns the number of page slots.
func (t *PageTable) PageCount() int { return len(t.entries) }

func (t *PageTable) checkIndex(index int) error {
	if index < 0 || index >= len(t.entries) {
		return &ArgumentOutOfRangeError{ParamName: "index", Value: index}
	}
	return nil
}

// Entry returns a copy of the page entry at index.
func (t *PageTable) Entry(index int) (PageEntry, error) {
	if err := t.checkIndex(index); err != nil {
		return PageEntry{}, err
	}
	return t.entries[index], nil
}

// MapPage installs entry at the given page index.
func (t *PageTable) MapPage(index int, entry PageEntry) error {
	if err := t.checkIndex(index); err != nil {
		return err
	}
	if t.entries[index].IsSealed {
		return &InvalidOperationError{Reason: "page is sealed"}
	}
	t.entries[index] = entry
	return nil
}

// SetPageEntry is equivalent to MapPage.
func (t *PageTable) SetPageEntry(index int, entry PageEntry) error {
	return t.MapPage(index, entry)
}

// MapPageRange maps count consecutive pages starting at start, each with
// PhysicalBase auto-incremented by PageSize relative to the previous page.
func (t *PageTable) MapPageRange(start, count, deviceId int, tag RegionTag, perms PagePerms, caps TargetCaps, target BusTarget, physBase Addr) error {
	if count < 0 {
		return &ArgumentOutOfRangeError{ParamName: "count", Value: count}
	}
	for i := 0; i < count; i++ {
		entry := PageEntry{
			DeviceId:     deviceId,
			RegionTag:    tag,
			Perms:        perms,
			Caps:         caps,
			Target:       target,
			PhysicalBase: physBase + Addr(i*PageSize),
		}
		if err := t.MapPage(start+i, entry); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAlignment checks that address and size are both page-multiples.
// Public per spec.md §6's "ValidateAlignment(address, size) is public".
func ValidateAlignment(address, size Addr) error {
	if address&PageMask != 0 {
		return &ArgumentError{ParamName: "address", Reason: "must be page-aligned"}
	}
	if size&PageMask != 0 {
		return &ArgumentError{ParamName: "size", Reason: "must be a page-size multiple"}
	}
	return nil
}

// MapRegion validates alignment and coverage, then maps size/PageSize
// consecutive pages starting at virtualBase.
func (t *PageTable) MapRegion(virtualBase, size Addr, deviceId int, tag RegionTag, perms PagePerms, caps TargetCaps, target BusTarget, physBase Addr) error {
	if err := ValidateAlignment(virtualBase, size); err != nil {
		return err
	}
	startPage := int(virtualBase >> PageShift)
	count := int(size >> PageShift)
	if startPage+count > len(t.entries) {
		return &ArgumentOutOfRangeError{ParamName: "virtualBase", Value: virtualBase}
	}
	return t.MapPageRange(startPage, count, deviceId, tag, perms, caps, target, physBase)
}

// MapPageAt maps entry at the page containing virtualAddr.
func (t *PageTable) MapPageAt(virtualAddr Addr, entry PageEntry) error {
	if virtualAddr&PageMask != 0 {
		return &ArgumentError{ParamName: "virtualAddress", Reason: "must be page-aligned"}
	}
	return t.MapPage(int(virtualAddr>>PageShift), entry)
}

// RemapPage rebinds target/physBase on an existing entry, preserving
// DeviceId/RegionTag/Perms/Caps/privilege floors. Rejects sealed pages.
func (t *PageTable) RemapPage(index int, target BusTarget, physBase Addr) error {
	if err := t.checkIndex(index); err != nil {
		return err
	}
	entry := &t.entries[index]
	if entry.IsSealed {
		return &InvalidOperationError{Reason: "cannot remap a sealed page"}
	}
	entry.Target = target
	entry.PhysicalBase = physBase
	return nil
}

// RemapPageFull replaces the whole entry at index, still rejecting sealed
// pages. Named distinctly from RemapPage (which only rebinds target and
// physical base) since Go does not support overloading by argument shape.
func (t *PageTable) RemapPageFull(index int, entry PageEntry) error {
	if err := t.checkIndex(index); err != nil {
		return err
	}
	if t.entries[index].IsSealed {
		return &InvalidOperationError{Reason: "cannot remap a sealed page"}
	}
	t.entries[index] = entry
	return nil
}

// RemapPageRange rebinds target/physBase (auto-incremented) across count
// consecutive pages starting at start.
func (t *PageTable) RemapPageRange(start, count int, target BusTarget, physBase Addr) error {
	for i := 0; i < count; i++ {
		if err := t.RemapPage(start+i, target, physBase+Addr(i*PageSize)); err != nil {
			return err
		}
	}
	return nil
}

// Seal marks the page at index as sealed, rejecting future remaps.
func (t *PageTable) Seal(index int) error {
	if err := t.checkIndex(index); err != nil {
		return err
	}
	t.entries[index].IsSealed = true
	return nil
}
