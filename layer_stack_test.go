package bus

import "testing"

// TestAuxiliaryMemoryOverlay implements spec.md §8 scenario 2: a 4 KiB aux
// RAM layer shadows one page of main RAM, toggled by activate/deactivate.
func TestAuxiliaryMemoryOverlay(t *testing.T) {
	const pages = 12
	table := NewPageTable(pages)
	layers := NewLayerStack(table)

	mainMem := NewPhysicalMemory(pages*PageSize, "main")
	mainSlice, _ := mainMem.Slice(0, pages*PageSize)
	mainTarget := NewRamTarget(mainSlice)
	if err := table.MapPageRange(0, pages, 0, RegionRam, PermReadWrite, mainTarget.Capabilities(), mainTarget, 0); err != nil {
		t.Fatalf("MapPageRange: %v", err)
	}
	if err := layers.SaveBaseMappingRange(0, pages); err != nil {
		t.Fatalf("SaveBaseMappingRange: %v", err)
	}

	auxMem := NewPhysicalMemory(PageSize, "aux")
	auxSlice, _ := auxMem.Slice(0, PageSize)
	auxTarget := NewRamTarget(auxSlice)

	if err := layers.CreateLayer("AUX_ZP", 10); err != nil {
		t.Fatalf("CreateLayer: %v", err)
	}
	if err := layers.AddLayeredMapping(LayeredMapping{
		VirtualBase: 0x0000, Size: 0x1000, Layer: "AUX_ZP",
		Perms: PermReadWrite, Caps: auxTarget.Capabilities(), Target: auxTarget,
	}); err != nil {
		t.Fatalf("AddLayeredMapping: %v", err)
	}

	access := &BusAccess{Intent: DataWrite}
	mainTarget.Write8(0x0042, 0xAA, access)

	readAt := func(a Addr) byte {
		entry, err := layers.GetEffectiveMapping(a)
		if err != nil {
			t.Fatalf("GetEffectiveMapping: %v", err)
		}
		off := (a & PageMask) + entry.PhysicalBase
		return entry.Target.Read8(off, &BusAccess{Intent: DataRead})
	}
	writeAt := func(a Addr, v byte) {
		entry, err := layers.GetEffectiveMapping(a)
		if err != nil {
			t.Fatalf("GetEffectiveMapping: %v", err)
		}
		off := (a & PageMask) + entry.PhysicalBase
		entry.Target.Write8(off, v, &BusAccess{Intent: DataWrite})
	}

	if err := layers.ActivateLayer("AUX_ZP"); err != nil {
		t.Fatalf("ActivateLayer: %v", err)
	}
	if got := readAt(0x0042); got != 0x00 {
		t.Fatalf("expected aux zero-page to read 0, got %#x", got)
	}
	writeAt(0x0042, 0xBB)
	if got := readAt(0x0042); got != 0xBB {
		t.Fatalf("expected aux write visible, got %#x", got)
	}

	if err := layers.DeactivateLayer("AUX_ZP"); err != nil {
		t.Fatalf("DeactivateLayer: %v", err)
	}
	if got := readAt(0x0042); got != 0xAA {
		t.Fatalf("expected main RAM restored, got %#x", got)
	}

	if err := layers.ActivateLayer("AUX_ZP"); err != nil {
		t.Fatalf("re-ActivateLayer: %v", err)
	}
	if got := readAt(0x0042); got != 0xBB {
		t.Fatalf("expected aux write preserved across re-activation, got %#x", got)
	}
}

func TestLayerStackGetLayersAtOrdersByPriorityDescending(t *testing.T) {
	table := NewPageTable(4)
	layers := NewLayerStack(table)
	mem := NewPhysicalMemory(PageSize, "ram")
	slice, _ := mem.Slice(0, PageSize)
	target := NewRamTarget(slice)

	_ = layers.CreateLayer("low", 1)
	_ = layers.CreateLayer("high", 100)
	_ = layers.AddLayeredMapping(LayeredMapping{VirtualBase: 0, Size: PageSize, Layer: "low", Target: target})
	_ = layers.AddLayeredMapping(LayeredMapping{VirtualBase: 0, Size: PageSize, Layer: "high", Target: target})
	_ = layers.ActivateLayer("low")
	_ = layers.ActivateLayer("high")

	got := layers.GetLayersAt(0)
	if len(got) != 2 || got[0].Name != "high" || got[1].Name != "low" {
		t.Fatalf("expected [high, low], got %+v", got)
	}
}

func TestLayerStackKeyNotFoundOnMissingLayer(t *testing.T) {
	layers := NewLayerStack(NewPageTable(4))
	if _, err := layers.GetLayer("nope"); err == nil {
		t.Fatal("expected KeyNotFoundError")
	}
}
