// provisioning.go - builder-style machine configuration and bus assembly
//
// Grounded on main.go's commented reference wiring sequence
// (NewSystemBus() -> MapIO calls -> device construction), turned from ad
// hoc inline code into a reusable builder value. No file format: the
// teacher never persists configuration either, it constructs Go values
// directly.

package bus

// ProvisioningBundle is a plain value describing how to assemble a
// MainBus: RAM size, named ROM images, devices to install, and address
// overrides for named regions. It imposes no file format.
type ProvisioningBundle struct {
	RamSize             int
	RomImages           map[string][]byte
	Devices             []Peripheral
	LayoutOverrides     map[string]Addr
	EnableDebugFeatures bool

	addressSpaceBits int
}

// NewProvisioningBundle returns a bundle with sane defaults: a 64 KiB
// address space (16 address bits, the canonical machine per spec.md §3)
// and empty maps ready for With* calls.
func NewProvisioningBundle() *ProvisioningBundle {
	return &ProvisioningBundle{
		RomImages:        make(map[string][]byte),
		LayoutOverrides:  make(map[string]Addr),
		addressSpaceBits: 16,
	}
}

// WithRamSize sets RamSize and returns the bundle for chaining.
func (p *ProvisioningBundle) WithRamSize(size int) *ProvisioningBundle {
	p.RamSize = size
	return p
}

// WithAddressSpaceBits overrides the default 16-bit address space.
func (p *ProvisioningBundle) WithAddressSpaceBits(bits int) *ProvisioningBundle {
	p.addressSpaceBits = bits
	return p
}

// WithRomImage attaches a named ROM image and returns the bundle for
// chaining.
func (p *ProvisioningBundle) WithRomImage(name string, data []byte) *ProvisioningBundle {
	p.RomImages[name] = data
	return p
}

// WithDevice appends a device to install once the bus is built.
func (p *ProvisioningBundle) WithDevice(device Peripheral) *ProvisioningBundle {
	p.Devices = append(p.Devices, device)
	return p
}

// WithLayoutOverride pins a named region to a specific address.
func (p *ProvisioningBundle) WithLayoutOverride(name string, addr Addr) *ProvisioningBundle {
	p.LayoutOverrides[name] = addr
	return p
}

// WithDebugFeatures records EnableDebugFeatures and returns the bundle for
// chaining. Build does not read the flag; the assembled bus is the same
// either way.
func (p *ProvisioningBundle) WithDebugFeatures(enabled bool) *ProvisioningBundle {
	p.EnableDebugFeatures = enabled
	return p
}

func (p *ProvisioningBundle) ramBase() Addr {
	if override, ok := p.LayoutOverrides["ram"]; ok {
		return override
	}
	return 0x0000
}

// Build constructs a MainBus from the bundle: allocates RAM and maps it at
// LayoutOverrides["ram"] (default 0x0000), maps every ROM image at
// LayoutOverrides[name] if present (padded with zero bytes up to a whole
// number of pages), installs the I/O dispatcher, installs
// every device into its own slot in Devices order (slot 1, 2, ...), seals
// the bus, and binds a fresh EventContext wiring Scheduler/SignalBus/Bus
// together.
func (p *ProvisioningBundle) Build() (*MainBus, *Scheduler, *SignalBus, error) {
	bits := p.addressSpaceBits
	if bits == 0 {
		bits = 16
	}
	mainBus, err := NewMainBus(bits)
	if err != nil {
		return nil, nil, nil, err
	}

	if p.RamSize > 0 {
		mem := NewPhysicalMemory(p.RamSize, "main-ram")
		slice, err := mem.Slice(0, p.RamSize)
		if err != nil {
			return nil, nil, nil, err
		}
		ramTarget := NewRamTarget(slice)
		if err := mainBus.MapRegion(p.ramBase(), Addr(p.RamSize), 0, RegionRam, PermReadWrite, ramTarget.Capabilities(), ramTarget, 0); err != nil {
			return nil, nil, nil, err
		}
	}

	for name, data := range p.RomImages {
		base, ok := p.LayoutOverrides[name]
		if !ok {
			continue // unplaced ROM images are caller's responsibility to map explicitly
		}
		mapSize := (len(data) + PageSize - 1) &^ PageMask
		mem := NewPhysicalMemory(mapSize, name)
		if err := mem.WritePhysical(0, data); err != nil {
			return nil, nil, nil, err
		}
		slice, err := mem.Slice(0, mapSize)
		if err != nil {
			return nil, nil, nil, err
		}
		romTarget := NewRomTarget(slice)
		if err := mainBus.MapRegion(base, Addr(mapSize), 0, RegionRom, PermReadExecute, romTarget.Capabilities(), romTarget, 0); err != nil {
			return nil, nil, nil, err
		}
	}

	if err := mainBus.InstallIODispatch(0); err != nil {
		return nil, nil, nil, err
	}

	for i, device := range p.Devices {
		slot := i + 1
		if err := mainBus.Slots().Install(slot, device); err != nil {
			return nil, nil, nil, err
		}
	}

	scheduler := NewScheduler()
	signals := NewSignalBus()
	ctx := &EventContext{Scheduler: scheduler, Signals: signals, Bus: mainBus}
	if err := scheduler.SetEventContext(ctx); err != nil {
		return nil, nil, nil, err
	}

	for _, device := range p.Devices {
		device.Initialize(ctx)
	}

	mainBus.Seal()
	return mainBus, scheduler, signals, nil
}
