package bus

import "testing"

func TestPhysicalMemoryZeroInitialised(t *testing.T) {
	mem := NewPhysicalMemory(1024, "test-ram")
	slice, err := mem.Slice(0, 1024)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	for i, b := range slice {
		if b != 0 {
			t.Fatalf("byte %d not zero: %v", i, b)
		}
	}
}

func TestPhysicalMemorySlicesAlias(t *testing.T) {
	mem := NewPhysicalMemory(16, "test-ram")
	a, _ := mem.Slice(0, 16)
	b, _ := mem.Slice(4, 4)
	a[4] = 0x99
	if b[0] != 0x99 {
		t.Fatalf("slices do not alias: got %#x", b[0])
	}
}

func TestPhysicalMemoryOutOfRange(t *testing.T) {
	mem := NewPhysicalMemory(16, "test-ram")
	if _, err := mem.Slice(10, 10); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestPhysicalMemoryWritePhysicalBypassesBus(t *testing.T) {
	mem := NewPhysicalMemory(8, "test-ram")
	if err := mem.WritePhysical(0, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WritePhysical: %v", err)
	}
	got, _ := mem.Slice(0, 3)
	want := []byte{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestPhysicalMemoryFillAndClear(t *testing.T) {
	mem := NewPhysicalMemory(4, "test-ram")
	mem.Fill(0xAA)
	slice, _ := mem.Slice(0, 4)
	for _, b := range slice {
		if b != 0xAA {
			t.Fatalf("Fill: got %#x", b)
		}
	}
	mem.Clear()
	for _, b := range slice {
		if b != 0 {
			t.Fatalf("Clear: got %#x", b)
		}
	}
}
