package bus

import "testing"

func newTestLanguageCard(t *testing.T) (*MainBus, *LanguageCard) {
	t.Helper()
	mb, err := NewMainBus(16)
	if err != nil {
		t.Fatalf("NewMainBus: %v", err)
	}
	if err := mb.InstallIODispatch(0); err != nil {
		t.Fatalf("InstallIODispatch: %v", err)
	}

	romMem := NewPhysicalMemory(languageCardSize, "lc-rom")
	romSlice, _ := romMem.Slice(0, languageCardSize)
	for i := range romSlice {
		romSlice[i] = 0xFF
	}
	bank1Mem := NewPhysicalMemory(languageCardSize, "lc-bank1")
	bank1Slice, _ := bank1Mem.Slice(0, languageCardSize)
	bank2Mem := NewPhysicalMemory(languageCardSize, "lc-bank2")
	bank2Slice, _ := bank2Mem.Slice(0, languageCardSize)

	lc, err := NewLanguageCard(mb.Swaps(), NewRomTarget(romSlice), NewRamTarget(bank1Slice), NewRamTarget(bank2Slice))
	if err != nil {
		t.Fatalf("NewLanguageCard: %v", err)
	}
	lc.RegisterHandlers(mb.Dispatcher())
	return mb, lc
}

func readSwitch(t *testing.T, mb *MainBus, offset Addr) {
	t.Helper()
	if _, err := mb.Read8(0xC080+offset, DataRead); err != nil {
		t.Fatalf("switch read %#x: %v", 0xC080+offset, err)
	}
}

// TestLanguageCardSoftSwitchProtocol implements spec.md §8 scenario 8,
// driving the card through the real $C080-$C08F dispatcher path (as opposed
// to swap_group_test.go's TestLanguageCardBankSwitching, which exercises
// SwapGroupManager directly and bypasses the R x2 latch entirely).
func TestLanguageCardSoftSwitchProtocol(t *testing.T) {
	mb, _ := newTestLanguageCard(t)

	// Initial state: ROM is active.
	v, err := mb.Read8(languageCardBase, DataRead)
	if err != nil || v != 0xFF {
		t.Fatalf("expected ROM (0xFF) active initially, got %#x err=%v", v, err)
	}

	// First qualifying (odd) read selects bank1 RAM as the read source but
	// does not yet arm write-enable.
	readSwitch(t, mb, 9) // $C089: bit0=1 (ram), bit3=1 (bank1)
	v, err = mb.Read8(languageCardBase, DataRead)
	if err != nil || v != 0x00 {
		t.Fatalf("expected bank1 RAM (zeroed) after first qualifying read, got %#x err=%v", v, err)
	}
	if err := mb.Write8(languageCardBase, 0x55, DataWrite); err == nil {
		t.Fatal("expected a permission fault: write-enable is not yet armed")
	}

	// Second consecutive qualifying read arms write-enable.
	readSwitch(t, mb, 9)
	if err := mb.Write8(languageCardBase, 0x42, DataWrite); err != nil {
		t.Fatalf("expected the write to succeed once write-enable is armed: %v", err)
	}
	v, err = mb.Read8(languageCardBase, DataRead)
	if err != nil || v != 0x42 {
		t.Fatalf("got %#x want 0x42", v)
	}

	// An even-offset read disqualifies write-enable and switches back to ROM.
	readSwitch(t, mb, 0) // $C080: bit0=0 (rom)
	v, err = mb.Read8(languageCardBase, DataRead)
	if err != nil || v != 0xFF {
		t.Fatalf("expected ROM restored after disqualifying read, got %#x err=%v", v, err)
	}

	// Switching back to bank1 (single qualifying read, no write-enable)
	// must show the 0x42 written earlier: bank state is preserved while the
	// switch points elsewhere.
	readSwitch(t, mb, 9)
	v, err = mb.Read8(languageCardBase, DataRead)
	if err != nil || v != 0x42 {
		t.Fatalf("expected bank1 contents preserved across ROM switch-out, got %#x err=%v", v, err)
	}
	if err := mb.Write8(languageCardBase, 0x99, DataWrite); err == nil {
		t.Fatal("a single qualifying read must not re-arm write-enable")
	}
}

func TestLanguageCardWriteAccessClearsWriteEnable(t *testing.T) {
	mb, _ := newTestLanguageCard(t)
	readSwitch(t, mb, 9)
	readSwitch(t, mb, 9) // write-enable now armed, bank1 selected
	if err := mb.Write8(languageCardBase, 0x11, DataWrite); err != nil {
		t.Fatalf("expected armed write to succeed: %v", err)
	}

	// A write to the switch address itself immediately clears the latch.
	if err := mb.Write8(0xC089, 0, DataWrite); err != nil {
		t.Fatalf("switch write: %v", err)
	}
	if err := mb.Write8(languageCardBase, 0x22, DataWrite); err == nil {
		t.Fatal("expected write-enable cleared after a write to the switch address")
	}
}

func TestLanguageCardBank1AndBank2AreIndependentRegions(t *testing.T) {
	mb, _ := newTestLanguageCard(t)

	readSwitch(t, mb, 9) // odd, bit3 set -> bank1
	readSwitch(t, mb, 9)
	if err := mb.Write8(languageCardBase, 0xAA, DataWrite); err != nil {
		t.Fatalf("write bank1: %v", err)
	}

	readSwitch(t, mb, 1) // odd, bit3 clear -> bank2
	readSwitch(t, mb, 1)
	if err := mb.Write8(languageCardBase, 0xBB, DataWrite); err != nil {
		t.Fatalf("write bank2: %v", err)
	}
	v, err := mb.Read8(languageCardBase, DataRead)
	if err != nil || v != 0xBB {
		t.Fatalf("got %#x want 0xBB", v)
	}

	readSwitch(t, mb, 9) // back to bank1
	v, err = mb.Read8(languageCardBase, DataRead)
	if err != nil || v != 0xAA {
		t.Fatalf("expected bank1 contents untouched by bank2 write, got %#x err=%v", v, err)
	}
}
