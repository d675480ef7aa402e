// swap_group.go - named mutually exclusive variants over one virtual range
//
// Grounded on other_examples/7f72fa11_andrewthecodertx-go-nes-emulator's
// Mapper4 (MMC3) bank registers: PRG/CHR bank switching is the same "exactly
// one variant active, switching rewrites a range of pages" shape, adapted
// here to the Apple II Language Card scenario (spec.md §8 scenario 1).

package bus

// SwapVariant is one mutually-exclusive option within a SwapGroup.
type SwapVariant struct {
	Name     string
	Target   BusTarget
	PhysBase Addr
	Perms    PagePerms
}

// SwapGroup is a named family of variants over the same virtual range; at
// most one variant is active at a time.
type SwapGroup struct {
	Id                int
	Name              string
	VirtualBase       Addr
	Size              Addr
	Variants          map[string]SwapVariant
	ActiveVariantName string
}

func (g *SwapGroup) firstPage() int { return int(g.VirtualBase >> PageShift) }
func (g *SwapGroup) pageCount() int { return int(g.Size >> PageShift) }

// SwapGroupManager owns every swap group on a bus and composes them beneath
// the LayerStack: layers first (highest-priority active wins), then swap
// group, then saved base. A layer mapping always wins over a swap-group
// variant, so SwapGroupManager only re-effectuates pages the LayerStack has
// no active opinion about.
type SwapGroupManager struct {
	table        *PageTable
	layers       *LayerStack
	groups       map[int]*SwapGroup
	nextId       int
	currentEntry map[int]PageEntry // last entry this manager wrote per page, for the LayerStack fallback
	hasCurrent   map[int]bool
}

// NewSwapGroupManager creates a manager bound to table, consulting layers
// to respect layer-over-swap composition order, and wires itself in as the
// LayerStack's fallback beneath layers and above saved base.
func NewSwapGroupManager(table *PageTable, layers *LayerStack) *SwapGroupManager {
	m := &SwapGroupManager{
		table:        table,
		layers:       layers,
		groups:       make(map[int]*SwapGroup),
		currentEntry: make(map[int]PageEntry),
		hasCurrent:   make(map[int]bool),
	}
	if layers != nil {
		layers.SetSwapFallback(m.fallbackEntry)
	}
	return m
}

func (m *SwapGroupManager) fallbackEntry(pageIndex int) (PageEntry, bool) {
	if !m.hasCurrent[pageIndex] {
		return PageEntry{}, false
	}
	return m.currentEntry[pageIndex], true
}

// CreateSwapGroup registers a new group with no active variant.
func (m *SwapGroupManager) CreateSwapGroup(name string, virtualBase, size Addr) (int, error) {
	if err := ValidateAlignment(virtualBase, size); err != nil {
		return 0, err
	}
	id := m.nextId
	m.nextId++
	m.groups[id] = &SwapGroup{
		Id:          id,
		Name:        name,
		VirtualBase: virtualBase,
		Size:        size,
		Variants:    make(map[string]SwapVariant),
	}
	return id, nil
}

func (m *SwapGroupManager) group(groupId int) (*SwapGroup, error) {
	g, ok := m.groups[groupId]
	if !ok {
		return nil, &KeyNotFoundError{Key: groupId}
	}
	return g, nil
}

// AddSwapVariant registers one variant of groupId.
func (m *SwapGroupManager) AddSwapVariant(groupId int, name string, target BusTarget, physBase Addr, perms PagePerms) error {
	g, err := m.group(groupId)
	if err != nil {
		return err
	}
	g.Variants[name] = SwapVariant{Name: name, Target: target, PhysBase: physBase, Perms: perms}
	return nil
}

// ActivateSwapVariant atomically replaces every page in the group's range
// with entries built from the named variant.
func (m *SwapGroupManager) ActivateSwapVariant(groupId int, variantName string) error {
	g, err := m.group(groupId)
	if err != nil {
		return err
	}
	variant, ok := g.Variants[variantName]
	if !ok {
		return &KeyNotFoundError{Key: variantName}
	}
	g.ActiveVariantName = variantName
	return m.reeffectuateGroup(g, &variant)
}

// GetActiveSwapVariant returns the name of the currently active variant, or
// "" if none is active.
func (m *SwapGroupManager) GetActiveSwapVariant(groupId int) (string, error) {
	g, err := m.group(groupId)
	if err != nil {
		return "", err
	}
	return g.ActiveVariantName, nil
}

// reeffectuateGroup writes variant (or falls back to saved base / unmapped
// if variant is nil) into every page the group covers, but only for pages
// where no active layer mapping currently wins - a layer mapping always
// takes precedence over a swap-group variant.
func (m *SwapGroupManager) reeffectuateGroup(g *SwapGroup, variant *SwapVariant) error {
	first := g.firstPage()
	for p := first; p < first+g.pageCount(); p++ {
		v := Addr(p) << PageShift

		var entry PageEntry
		if variant == nil {
			entry = PageEntry{}
			if m.layers != nil && m.layers.hasSaved[p] {
				entry = m.layers.savedBase[p]
			}
			m.hasCurrent[p] = false
		} else {
			entry = PageEntry{
				Perms:        variant.Perms,
				Target:       variant.Target,
				PhysicalBase: variant.PhysBase + (v - g.VirtualBase),
			}
			if variant.Target != nil {
				entry.Caps = variant.Target.Capabilities()
			}
			m.currentEntry[p] = entry
			m.hasCurrent[p] = true
		}

		if m.layers != nil && len(m.layers.GetLayersAt(v)) > 0 {
			continue // an active layer already owns this page; it will consult us on deactivation
		}
		if err := m.table.MapPage(p, entry); err != nil {
			return err
		}
	}
	return nil
}
