package position

// PositionsSeenMap remembers positions already reported.
type PositionsSeenMap struct {
	positions map[RawPosition]RawPosition
	order     RawPositionArray
}

func NewPositionsSeenMap() *PositionsSeenMap {
	return &PositionsSeenMap{
		positions: make(map[RawPosition]RawPosition),
	}
}

// Add records pos and reports whether it was new.
func (me *PositionsSeenMap) Add(pos RawPosition) bool {
	if _, ok := me.positions[pos]; ok {
		return false
	}
	me.positions[pos] = pos
	me.order = append(me.order, pos)
	return true
}

func (me *PositionsSeenMap) Has(pos RawPosition) bool {
	_, ok := me.positions[pos]
	return ok
}

// Overlaps reports whether any recorded position overlaps pos.
func (me *PositionsSeenMap) Overlaps(pos RawPosition) bool {
	for _, seen := range me.order {
		if seen.HasRangeOverlapWith(pos) {
			return true
		}
	}
	return false
}

func (me *PositionsSeenMap) PositionsWithText(text string) RawPositionArray {
	var positions RawPositionArray
	for _, pos := range me.order {
		if pos.Text == text {
			positions = append(positions, pos)
		}
	}
	return positions
}
