// layer_stack.go - named prioritised overlays and re-effectuation
//
// No single teacher file does layering; this is the paged generalisation
// of machine_bus.go's I/O region override list (multiple IORegions can
// cover one page, first-match wins) turned into an explicit priority order
// instead of insertion order.

package bus

// MappingLayer is a named, prioritised overlay that can be toggled as a
// unit.
type MappingLayer struct {
	Name     string
	Priority int
	IsActive bool
}

// LayeredMapping is one overlay mapping belonging to a layer.
type LayeredMapping struct {
	VirtualBase Addr
	Size        Addr
	Layer       string
	DeviceId    int
	RegionTag   RegionTag
	Perms       PagePerms
	Caps        TargetCaps
	Target      BusTarget
	PhysBase    Addr
}

// VirtualEnd is the exclusive end address of the mapping.
func (m LayeredMapping) VirtualEnd() Addr { return m.VirtualBase + m.Size }

// ContainsAddress reports whether a falls within [VirtualBase, VirtualEnd).
func (m LayeredMapping) ContainsAddress(a Addr) bool {
	return a >= m.VirtualBase && a < m.VirtualEnd()
}

func (m LayeredMapping) firstPage() int { return int(m.VirtualBase >> PageShift) }
func (m LayeredMapping) pageCount() int { return int(m.Size >> PageShift) }

// LayerStack owns every named layer on a bus, the mappings attached to
// each, and the saved-base snapshot consulted when no overlay applies.
type LayerStack struct {
	table        *PageTable
	layers       map[string]*MappingLayer
	order        []string // insertion order, used to break priority ties
	mappings     map[string][]LayeredMapping
	savedBase    map[int]PageEntry
	hasSaved     map[int]bool
	swapFallback func(pageIndex int) (PageEntry, bool)
}

// SetSwapFallback wires the swap group layer beneath this one: when no
// active layer mapping covers a page, re-effectuation consults fallback
// before falling further back to the saved base, per spec.md §4.4's
// "layers first, then swap group beneath, then saved base" composition
// order.
func (s *LayerStack) SetSwapFallback(fallback func(pageIndex int) (PageEntry, bool)) {
	s.swapFallback = fallback
}

// NewLayerStack creates a layer stack bound to table.
func NewLayerStack(table *PageTable) *LayerStack {
	return &LayerStack{
		table:     table,
		layers:    make(map[string]*MappingLayer),
		mappings:  make(map[string][]LayeredMapping),
		savedBase: make(map[int]PageEntry),
		hasSaved:  make(map[int]bool),
	}
}

// SaveBaseMapping captures the current PageEntry at index as the fallback
// used when no layer or swap variant applies to that page.
func (s *LayerStack) SaveBaseMapping(index int) error {
	entry, err := s.table.Entry(index)
	if err != nil {
		return err
	}
	s.savedBase[index] = entry
	s.hasSaved[index] = true
	return nil
}

// SaveBaseMappingRange saves count consecutive pages starting at start.
func (s *LayerStack) SaveBaseMappingRange(start, count int) error {
	for i := 0; i < count; i++ {
		if err := s.SaveBaseMapping(start + i); err != nil {
			return err
		}
	}
	return nil
}

// CreateLayer registers a new, initially inactive layer. name must be
// unique within the stack.
func (s *LayerStack) CreateLayer(name string, priority int) error {
	if _, exists := s.layers[name]; exists {
		return &InvalidOperationError{Reason: "layer already exists: " + name}
	}
	s.layers[name] = &MappingLayer{Name: name, Priority: priority}
	s.order = append(s.order, name)
	return nil
}

// GetLayer looks up a layer by name.
func (s *LayerStack) GetLayer(name string) (MappingLayer, error) {
	l, ok := s.layers[name]
	if !ok {
		return MappingLayer{}, &KeyNotFoundError{Key: name}
	}
	return *l, nil
}

// IsLayerActive reports whether a layer is currently active.
func (s *LayerStack) IsLayerActive(name string) (bool, error) {
	l, ok := s.layers[name]
	if !ok {
		return false, &KeyNotFoundError{Key: name}
	}
	return l.IsActive, nil
}

// AddLayeredMapping validates alignment and attaches a mapping to its
// (must already exist) layer.
func (s *LayerStack) AddLayeredMapping(m LayeredMapping) error {
	if _, ok := s.layers[m.Layer]; !ok {
		return &KeyNotFoundError{Key: m.Layer}
	}
	if err := ValidateAlignment(m.VirtualBase, m.Size); err != nil {
		return err
	}
	s.mappings[m.Layer] = append(s.mappings[m.Layer], m)
	return nil
}

// ActivateLayer marks a layer active and re-effectuates every page it
// touches.
func (s *LayerStack) ActivateLayer(name string) error {
	l, ok := s.layers[name]
	if !ok {
		return &KeyNotFoundError{Key: name}
	}
	l.IsActive = true
	return s.reeffectuatePages(s.pagesTouchedBy(name))
}

// DeactivateLayer marks a layer inactive and re-effectuates every page it
// touches.
func (s *LayerStack) DeactivateLayer(name string) error {
	l, ok := s.layers[name]
	if !ok {
		return &KeyNotFoundError{Key: name}
	}
	l.IsActive = false
	return s.reeffectuatePages(s.pagesTouchedBy(name))
}

func (s *LayerStack) pagesTouchedBy(layerName string) []int {
	pageSet := make(map[int]struct{})
	for _, m := range s.mappings[layerName] {
		first := m.firstPage()
		for p := first; p < first+m.pageCount(); p++ {
			pageSet[p] = struct{}{}
		}
	}
	pages := make([]int, 0, len(pageSet))
	for p := range pageSet {
		pages = append(pages, p)
	}
	return pages
}

func (s *LayerStack) reeffectuatePages(pages []int) error {
	for _, p := range pages {
		if err := s.reeffectuate(p); err != nil {
			return err
		}
	}
	return nil
}

// reeffectuate recomputes the winning mapping for page index p and writes
// it into the underlying page table, or restores the saved base if no
// active layer mapping covers it.
func (s *LayerStack) reeffectuate(p int) error {
	v := Addr(p) << PageShift

	var winner *LayeredMapping
	for _, name := range s.order {
		l := s.layers[name]
		if !l.IsActive {
			continue
		}
		for i := range s.mappings[name] {
			m := &s.mappings[name][i]
			if !m.ContainsAddress(v) {
				continue
			}
			if winner == nil || l.Priority > s.layers[winner.Layer].Priority {
				winner = m
			}
		}
	}

	if winner == nil {
		if s.swapFallback != nil {
			if entry, ok := s.swapFallback(p); ok {
				return s.table.MapPage(p, entry)
			}
		}
		if entry, ok := s.savedBase[p]; ok && s.hasSaved[p] {
			return s.table.MapPage(p, entry)
		}
		return s.table.MapPage(p, PageEntry{})
	}

	entry := PageEntry{
		DeviceId:     winner.DeviceId,
		RegionTag:    winner.RegionTag,
		Perms:        winner.Perms,
		Caps:         winner.Caps,
		Target:       winner.Target,
		PhysicalBase: winner.PhysBase + (v - winner.VirtualBase),
	}
	return s.table.MapPage(p, entry)
}

// GetEffectiveMapping returns the PageEntry the bus would currently use at
// addr.
func (s *LayerStack) GetEffectiveMapping(addr Addr) (PageEntry, error) {
	return s.table.Entry(int(addr >> PageShift))
}

// GetAllMappingsAt enumerates every overlay (active or not) containing
// addr.
func (s *LayerStack) GetAllMappingsAt(addr Addr) []LayeredMapping {
	var result []LayeredMapping
	for _, name := range s.order {
		for _, m := range s.mappings[name] {
			if m.ContainsAddress(addr) {
				result = append(result, m)
			}
		}
	}
	return result
}

// GetLayersAt returns active layers containing addr, sorted by descending
// priority.
func (s *LayerStack) GetLayersAt(addr Addr) []MappingLayer {
	var result []MappingLayer
	for _, name := range s.order {
		l := s.layers[name]
		if !l.IsActive {
			continue
		}
		for _, m := range s.mappings[name] {
			if m.ContainsAddress(addr) {
				result = append(result, *l)
				break
			}
		}
	}
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j].Priority > result[j-1].Priority; j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	return result
}

// SetLayerPermissions rewrites Perms on every mapping belonging to a layer
// and re-effectuates the touched pages.
func (s *LayerStack) SetLayerPermissions(name string, perms PagePerms) error {
	if _, ok := s.layers[name]; !ok {
		return &KeyNotFoundError{Key: name}
	}
	mappings := s.mappings[name]
	for i := range mappings {
		mappings[i].Perms = perms
	}
	return s.reeffectuatePages(s.pagesTouchedBy(name))
}
