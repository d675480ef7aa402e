// slot_manager.go - slot-card installation and expansion-ROM activation
//
// Grounded on coprocessor_manager.go's worker lifecycle bookkeeping
// (install/remove, per-unit state) generalised to the 7-slot expansion bus,
// and registers.go's documented I/O memory map for the slot/offset
// numbering convention (0x80 + slot*0x10 + offset).

package bus

import "golang.org/x/sync/errgroup"

// Peripheral is the extension point device authors implement to plug a
// card into a slot.
type Peripheral interface {
	Name() string
	DeviceType() string
	Kind() string
	SlotNumber() int
	SetSlotNumber(slot int)
	IOHandlers() ([16]ReadHandlerFunc, [16]WriteHandlerFunc)
	ROMRegion() []byte
	ExpansionROMRegion() []byte
	OnExpansionROMSelected()
	OnExpansionROMDeselected()
	Reset()
	Initialize(ctx *EventContext)
}

// SlotCard is an alias for Peripheral kept for readability at call sites
// that only ever deal in expansion cards (as opposed to motherboard
// devices).
type SlotCard = Peripheral

// MotherboardDevice extends Peripheral with the ability to register its own
// handlers directly against the dispatcher, bypassing the slot numbering
// scheme (used by e.g. the Language Card soft switches).
type MotherboardDevice interface {
	Peripheral
	RegisterHandlers(dispatcher *IOPageDispatcher)
}

// SlotManager wraps an IOPageDispatcher, tracking which of slots 1..7 hold
// a card and which card (if any) currently owns the shared expansion ROM
// window.
type SlotManager struct {
	dispatcher           *IOPageDispatcher
	cards                [8]Peripheral // index 0 unused (reserved for motherboard)
	ActiveExpansionSlot  int           // 0 == none selected
}

// NewSlotManager creates a manager over dispatcher.
func NewSlotManager(dispatcher *IOPageDispatcher) *SlotManager {
	return &SlotManager{dispatcher: dispatcher}
}

func (m *SlotManager) checkSlot(slot int) error {
	if slot < 1 || slot > 7 {
		return &ArgumentOutOfRangeError{ParamName: "slot", Value: slot}
	}
	return nil
}

// Install places card into slot, failing if the slot is already occupied.
func (m *SlotManager) Install(slot int, card Peripheral) error {
	if err := m.checkSlot(slot); err != nil {
		return err
	}
	if m.cards[slot] != nil {
		return &InvalidOperationError{Reason: "slot already occupied"}
	}
	card.SetSlotNumber(slot)
	reads, writes := card.IOHandlers()
	if err := m.dispatcher.InstallSlotHandlers(slot, reads, writes, true); err != nil {
		return err
	}
	m.cards[slot] = card
	return nil
}

// Remove deselects the expansion ROM if it was pointing at slot, clears the
// dispatcher's handler table for that slot, and forgets the card.
// Idempotent: removing an empty slot is a no-op.
func (m *SlotManager) Remove(slot int) error {
	if err := m.checkSlot(slot); err != nil {
		return err
	}
	if m.cards[slot] == nil {
		return nil
	}
	if m.ActiveExpansionSlot == slot {
		if err := m.DeselectExpansionSlot(); err != nil {
			return err
		}
	}
	if err := m.dispatcher.RemoveSlotHandlers(slot); err != nil {
		return err
	}
	m.cards[slot] = nil
	return nil
}

// GetCard returns the card installed in slot, or nil.
func (m *SlotManager) GetCard(slot int) (Peripheral, error) {
	if err := m.checkSlot(slot); err != nil {
		return nil, err
	}
	return m.cards[slot], nil
}

// GetSlotRomRegion returns the card's dedicated 256-byte slot ROM.
func (m *SlotManager) GetSlotRomRegion(slot int) ([]byte, error) {
	card, err := m.GetCard(slot)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, nil
	}
	return card.ROMRegion(), nil
}

// GetExpansionRomRegion returns the card's 2 KiB shared expansion ROM
// window.
func (m *SlotManager) GetExpansionRomRegion(slot int) ([]byte, error) {
	card, err := m.GetCard(slot)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, nil
	}
	return card.ExpansionROMRegion(), nil
}

// SelectExpansionSlot switches the shared expansion ROM window to slot,
// deselecting the previous owner first. Selecting the currently active slot
// again is a no-op (it does not deselect-then-reselect).
func (m *SlotManager) SelectExpansionSlot(slot int) error {
	if err := m.checkSlot(slot); err != nil {
		return err
	}
	if m.ActiveExpansionSlot == slot {
		return nil
	}
	if m.ActiveExpansionSlot != 0 {
		if prev := m.cards[m.ActiveExpansionSlot]; prev != nil {
			prev.OnExpansionROMDeselected()
		}
	}
	m.ActiveExpansionSlot = slot
	if card := m.cards[slot]; card != nil {
		card.OnExpansionROMSelected()
	}
	return nil
}

// DeselectExpansionSlot clears the active expansion slot. Idempotent.
func (m *SlotManager) DeselectExpansionSlot() error {
	if m.ActiveExpansionSlot == 0 {
		return nil
	}
	if card := m.cards[m.ActiveExpansionSlot]; card != nil {
		card.OnExpansionROMDeselected()
	}
	m.ActiveExpansionSlot = 0
	return nil
}

// HandleSlotROMAccess implements the $Cs00-$Cs FF slot-ROM addressing
// convention: an access in slot s's 256-byte window selects that slot's
// expansion ROM; accesses to $C0xx are ignored here (they belong to the
// motherboard I/O page, not a slot ROM).
func (m *SlotManager) HandleSlotROMAccess(addr Addr) error {
	if addr>>12 != 0xC {
		return nil // outside $C000-$CFFF: not a slot-ROM window
	}
	s := int((addr >> 8) & 0x0F)
	if s < 1 || s > 7 {
		return nil
	}
	return m.SelectExpansionSlot(s)
}

// Reset deselects the active expansion slot and then calls Reset on every
// installed card concurrently via errgroup, waiting for all of them.
// Peripheral.Reset returns no error, so after a successful deselect the
// result is always nil. Card background goroutines are not stopped here.
func (m *SlotManager) Reset() error {
	if err := m.DeselectExpansionSlot(); err != nil {
		return err
	}
	var g errgroup.Group
	for _, card := range m.cards {
		if card == nil {
			continue
		}
		card := card
		g.Go(func() error {
			card.Reset()
			return nil
		})
	}
	return g.Wait()
}
