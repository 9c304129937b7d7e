package model

import (
	"golang.org/x/exp/maps"
)

// Selection commands. Combine one of Select, Deselect, Toggle with the modifiers.
type SelectionFlags int32

const (
	NoUpdate SelectionFlags = 0
	Clear    SelectionFlags = 1 << 0
	Select   SelectionFlags = 1 << 1
	Deselect SelectionFlags = 1 << 2
	Toggle   SelectionFlags = 1 << 3
	// the change concerns the current item
	Current SelectionFlags = 1 << 4
	// expand the command to whole rows
	Rows SelectionFlags = 1 << 5
	// expand the command to whole columns
	Columns SelectionFlags = 1 << 6

	SelectCurrent         = Select | Current
	ClearAndSelect        = Clear | Select
	ClearAndSelectCurrent = ClearAndSelect | Current
)

func (self SelectionFlags) Has(flags SelectionFlags) bool {
	return self&flags == flags
}

type CurrentChangeKind int

const (
	CurrentChangeItem CurrentChangeKind = iota
	CurrentChangeRow
	CurrentChangeColumn
)

func (self CurrentChangeKind) String() string {
	switch self {
	case CurrentChangeItem:
		return "item"
	case CurrentChangeRow:
		return "row"
	case CurrentChangeColumn:
		return "column"
	default:
		return "unknown"
	}
}

type SelectionListener interface {
	// the deltas are merged into ranges; either may be empty but not both
	SelectionChanged(selected Selection, deselected Selection)
	// called once with `CurrentChangeItem`, then once per changed row and changed column
	CurrentChanged(current Index, previous Index, kind CurrentChangeKind)
}

type SelectionListenerFuncs struct {
	Selection func(selected Selection, deselected Selection)
	Current   func(current Index, previous Index, kind CurrentChangeKind)
}

func (self *SelectionListenerFuncs) SelectionChanged(selected Selection, deselected Selection) {
	if self.Selection != nil {
		self.Selection(selected, deselected)
	}
}

func (self *SelectionListenerFuncs) CurrentChanged(current Index, previous Index, kind CurrentChangeKind) {
	if self.Current != nil {
		self.Current(current, previous, kind)
	}
}

// comparable
type cellKey struct {
	id     ItemId
	column int
}

func keyOf(index Index) cellKey {
	return cellKey{
		id:     index.id,
		column: index.column,
	}
}

// Tracks which cells of a model are selected and which cell is current.
// Cells are tracked by item identity, so the selection follows rows as the model
// inserts or removes siblings. A reset clears everything without notification.
type SelectionModel struct {
	model ItemModel

	// cell -> index at the cell's current row
	selected map[cellKey]Index
	current  Index

	listeners        CallbackList[SelectionListener]
	unsubscribeModel func()
}

func NewSelectionModel(model ItemModel) *SelectionModel {
	selectionModel := &SelectionModel{
		model:    model,
		selected: map[cellKey]Index{},
	}
	selectionModel.unsubscribeModel = model.AddListener(&ModelListenerFuncs{
		Reset:    selectionModel.modelReset,
		Inserted: selectionModel.rowsInserted,
		Removed:  selectionModel.rowsRemoved,
	})
	return selectionModel
}

func (self *SelectionModel) Model() ItemModel {
	return self.model
}

func (self *SelectionModel) AddListener(listener SelectionListener) func() {
	return self.listeners.Add(listener)
}

func (self *SelectionModel) Close() {
	self.unsubscribeModel()
}

func (self *SelectionModel) CurrentIndex() Index {
	return self.current
}

func (self *SelectionModel) HasSelection() bool {
	return 0 < len(self.selected)
}

func (self *SelectionModel) IsSelected(index Index) bool {
	if !index.IsValid() || index.model != self.model {
		return false
	}
	_, ok := self.selected[keyOf(index)]
	return ok
}

// selected cells ordered by parent, column, row
func (self *SelectionModel) SelectedIndexes() []Index {
	indexes := []Index{}
	for _, r := range self.Selection() {
		indexes = append(indexes, r.Indexes()...)
	}
	return indexes
}

// the current selection merged into ranges
func (self *SelectionModel) Selection() Selection {
	return MergeIndexes(maps.Values(self.selected))
}

func (self *SelectionModel) SelectIndex(index Index, flags SelectionFlags) {
	selection := Selection{}
	if index.IsValid() {
		selection = append(selection, NewIndexRange(index))
	}
	self.Select(selection, flags)
}

func (self *SelectionModel) ClearSelection() {
	self.Select(Selection{}, Clear)
}

func (self *SelectionModel) Select(selection Selection, flags SelectionFlags) {
	if flags == NoUpdate {
		return
	}

	before := maps.Clone(self.selected)

	if flags&Clear != 0 {
		clear(self.selected)
	}

	for _, r := range selection {
		if !r.IsValid() || r.TopLeft.model != self.model {
			continue
		}
		for _, index := range self.expand(r, flags).Indexes() {
			key := keyOf(index)
			switch {
			case flags&Select != 0:
				self.selected[key] = index
			case flags&Deselect != 0:
				delete(self.selected, key)
			case flags&Toggle != 0:
				if _, ok := self.selected[key]; ok {
					delete(self.selected, key)
				} else {
					self.selected[key] = index
				}
			}
		}
	}

	selectedIndexes := []Index{}
	for key, index := range self.selected {
		if _, ok := before[key]; !ok {
			selectedIndexes = append(selectedIndexes, index)
		}
	}
	deselectedIndexes := []Index{}
	for key, index := range before {
		if _, ok := self.selected[key]; !ok {
			deselectedIndexes = append(deselectedIndexes, index)
		}
	}
	if len(selectedIndexes) == 0 && len(deselectedIndexes) == 0 {
		return
	}

	selected := MergeIndexes(selectedIndexes)
	deselected := MergeIndexes(deselectedIndexes)
	for _, listener := range self.listeners.Get() {
		listener.SelectionChanged(selected, deselected)
	}
}

func (self *SelectionModel) expand(r Range, flags SelectionFlags) Range {
	parent := r.Parent()
	top := r.Top()
	bottom := r.Bottom()
	left := r.Left()
	right := r.Right()
	if flags&Rows != 0 {
		left = 0
		right = self.model.ColumnCount(parent) - 1
	}
	if flags&Columns != 0 {
		top = 0
		bottom = self.model.RowCount(parent) - 1
	}
	return NewRange(
		self.model.Index(top, left, parent),
		self.model.Index(bottom, right, parent),
	)
}

// `flags` other than the Current/Rows/Columns modifiers also update the selection
func (self *SelectionModel) SetCurrentIndex(index Index, flags SelectionFlags) {
	if index.IsValid() && index.model != self.model {
		return
	}
	if flags&(Clear|Select|Deselect|Toggle) != 0 {
		self.SelectIndex(index, flags)
	}
	self.setCurrent(index)
}

func (self *SelectionModel) ClearCurrentIndex() {
	self.setCurrent(Index{})
}

func (self *SelectionModel) setCurrent(index Index) {
	previous := self.current
	if previous.SameCell(index) {
		self.current = index
		return
	}
	self.current = index

	rowChanged := previous.Row() != index.Row() || !previous.Parent().SameItem(index.Parent())
	columnChanged := previous.Column() != index.Column() || !previous.Parent().SameItem(index.Parent())

	for _, listener := range self.listeners.Get() {
		listener.CurrentChanged(index, previous, CurrentChangeItem)
	}
	if rowChanged {
		for _, listener := range self.listeners.Get() {
			listener.CurrentChanged(index, previous, CurrentChangeRow)
		}
	}
	if columnChanged {
		for _, listener := range self.listeners.Get() {
			listener.CurrentChanged(index, previous, CurrentChangeColumn)
		}
	}
}

// model notifications

func (self *SelectionModel) modelReset() {
	clear(self.selected)
	self.current = Index{}
}

func (self *SelectionModel) rowsInserted(parent Index, first int, last int) {
	count := last - first + 1
	shift := func(index Index) Index {
		if index.IsValid() && first <= index.row && index.Parent().SameItem(parent) {
			return index.withRow(index.row + count)
		}
		return index
	}
	for key, index := range self.selected {
		self.selected[key] = shift(index)
	}
	self.current = shift(self.current)
}

func (self *SelectionModel) rowsRemoved(parent Index, first int, last int) {
	count := last - first + 1
	shift := func(index Index) Index {
		if index.IsValid() && last < index.row && index.Parent().SameItem(parent) {
			return index.withRow(index.row - count)
		}
		return index
	}
	for key, index := range self.selected {
		index = shift(index)
		if IsLive(index) {
			self.selected[key] = index
		} else {
			// removed with its row or an ancestor
			delete(self.selected, key)
		}
	}

	if self.current.IsValid() {
		current := shift(self.current)
		if IsLive(current) {
			self.current = current
		} else {
			self.setCurrent(Index{})
		}
	}
}
