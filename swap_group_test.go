package bus

import "testing"

// TestLanguageCardBankSwitching implements spec.md §8 scenario 1 directly
// against SwapGroupManager (the LanguageCard soft-switch helper has its own
// test covering the R x2 write-enable latch).
func TestLanguageCardBankSwitching(t *testing.T) {
	const base = 0xD000
	const size = 0x1000
	table := NewPageTable(16)
	layers := NewLayerStack(table)
	swaps := NewSwapGroupManager(table, layers)

	romMem := NewPhysicalMemory(size, "rom")
	romSlice, _ := romMem.Slice(0, size)
	for i := range romSlice {
		romSlice[i] = 0xFF
	}
	rom := NewRomTarget(romSlice)

	bank1Mem := NewPhysicalMemory(size, "bank1")
	bank1Slice, _ := bank1Mem.Slice(0, size)
	bank1 := NewRamTarget(bank1Slice)

	bank2Mem := NewPhysicalMemory(size, "bank2")
	bank2Slice, _ := bank2Mem.Slice(0, size)
	bank2 := NewRamTarget(bank2Slice)

	groupId, err := swaps.CreateSwapGroup("language-card", base, size)
	if err != nil {
		t.Fatalf("CreateSwapGroup: %v", err)
	}
	if err := swaps.AddSwapVariant(groupId, "rom", rom, 0, PermReadExecute); err != nil {
		t.Fatalf("AddSwapVariant rom: %v", err)
	}
	if err := swaps.AddSwapVariant(groupId, "bank1", bank1, 0, PermReadWrite); err != nil {
		t.Fatalf("AddSwapVariant bank1: %v", err)
	}
	if err := swaps.AddSwapVariant(groupId, "bank2", bank2, 0, PermReadWrite); err != nil {
		t.Fatalf("AddSwapVariant bank2: %v", err)
	}
	if err := swaps.ActivateSwapVariant(groupId, "rom"); err != nil {
		t.Fatalf("ActivateSwapVariant rom: %v", err)
	}

	readAt := func(a Addr) byte {
		entry, err := table.Entry(int(a >> PageShift))
		if err != nil {
			t.Fatalf("Entry: %v", err)
		}
		off := (a & PageMask) + entry.PhysicalBase
		return entry.Target.Read8(off, &BusAccess{Intent: DataRead})
	}
	writeAt := func(a Addr, v byte) {
		entry, err := table.Entry(int(a >> PageShift))
		if err != nil {
			t.Fatalf("Entry: %v", err)
		}
		off := (a & PageMask) + entry.PhysicalBase
		entry.Target.Write8(off, v, &BusAccess{Intent: DataWrite})
	}

	if got := readAt(base); got != 0xFF {
		t.Fatalf("initial ROM read: got %#x want 0xFF", got)
	}

	_ = swaps.ActivateSwapVariant(groupId, "bank2")
	if got := readAt(base); got != 0x00 {
		t.Fatalf("bank2 initial read: got %#x want 0x00", got)
	}
	writeAt(base, 0x42)
	if got := readAt(base); got != 0x42 {
		t.Fatalf("bank2 after write: got %#x want 0x42", got)
	}

	_ = swaps.ActivateSwapVariant(groupId, "bank1")
	if got := readAt(base); got != 0x00 {
		t.Fatalf("bank1 initial read: got %#x want 0x00", got)
	}
	writeAt(base, 0x99)

	_ = swaps.ActivateSwapVariant(groupId, "bank2")
	if got := readAt(base); got != 0x42 {
		t.Fatalf("bank2 preserved: got %#x want 0x42", got)
	}

	_ = swaps.ActivateSwapVariant(groupId, "rom")
	if got := readAt(base); got != 0xFF {
		t.Fatalf("rom restored: got %#x want 0xFF", got)
	}

	if name, _ := swaps.GetActiveSwapVariant(groupId); name != "rom" {
		t.Fatalf("GetActiveSwapVariant: got %q want rom", name)
	}
}

func TestSwapGroupUnknownVariantFails(t *testing.T) {
	table := NewPageTable(16)
	layers := NewLayerStack(table)
	swaps := NewSwapGroupManager(table, layers)
	groupId, _ := swaps.CreateSwapGroup("g", 0, PageSize)
	if err := swaps.ActivateSwapVariant(groupId, "nope"); err == nil {
		t.Fatal("expected KeyNotFoundError for unknown variant")
	}
}

func TestSwapGroupUnknownGroupFails(t *testing.T) {
	table := NewPageTable(16)
	layers := NewLayerStack(table)
	swaps := NewSwapGroupManager(table, layers)
	if _, err := swaps.GetActiveSwapVariant(999); err == nil {
		t.Fatal("expected KeyNotFoundError for unknown group")
	}
}

// TestLayerBeatsSwapVariant verifies composition order: an active layer
// mapping a page wins over a swap-group variant covering the same page.
func TestLayerBeatsSwapVariant(t *testing.T) {
	table := NewPageTable(4)
	layers := NewLayerStack(table)
	swaps := NewSwapGroupManager(table, layers)

	swapMem := NewPhysicalMemory(PageSize, "swap")
	swapSlice, _ := swapMem.Slice(0, PageSize)
	swapTarget := NewRamTarget(swapSlice)
	swapSlice[0] = 0x11

	layerMem := NewPhysicalMemory(PageSize, "layer")
	layerSlice, _ := layerMem.Slice(0, PageSize)
	layerTarget := NewRamTarget(layerSlice)
	layerSlice[0] = 0x22

	groupId, _ := swaps.CreateSwapGroup("g", 0, PageSize)
	_ = swaps.AddSwapVariant(groupId, "v", swapTarget, 0, PermReadWrite)
	_ = swaps.ActivateSwapVariant(groupId, "v")

	_ = layers.CreateLayer("override", 5)
	_ = layers.AddLayeredMapping(LayeredMapping{VirtualBase: 0, Size: PageSize, Layer: "override", Perms: PermReadWrite, Target: layerTarget})
	_ = layers.ActivateLayer("override")

	entry, _ := table.Entry(0)
	if entry.Target != layerTarget {
		t.Fatal("expected active layer to win over swap-group variant")
	}
}
