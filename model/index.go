package model

import (
	"fmt"
)

// Stable identity of one row item within a model.
// Ids survive row insertion and removal around the item. 0 is the invisible root.
type ItemId uint64

const RootItemId ItemId = 0

// A position in an item model, valid for the structural revision it was created in.
// An index is a value, never a reference into model internals. Holders that need
// it across structural changes must re-resolve it against the model.
// comparable
type Index struct {
	row    int
	column int
	id     ItemId
	model  ItemModel
}

// for model implementations
func NewIndex(row int, column int, id ItemId, model ItemModel) Index {
	return Index{
		row:    row,
		column: column,
		id:     id,
		model:  model,
	}
}

func (self Index) IsValid() bool {
	return self.model != nil && 0 <= self.row && 0 <= self.column
}

func (self Index) Row() int {
	if !self.IsValid() {
		return -1
	}
	return self.row
}

func (self Index) Column() int {
	if !self.IsValid() {
		return -1
	}
	return self.column
}

func (self Index) Id() ItemId {
	if !self.IsValid() {
		return RootItemId
	}
	return self.id
}

func (self Index) Model() ItemModel {
	return self.model
}

func (self Index) Parent() Index {
	if !self.IsValid() {
		return Index{}
	}
	return self.model.Parent(self)
}

func (self Index) Sibling(row int, column int) Index {
	if !self.IsValid() {
		return Index{}
	}
	return self.model.Index(row, column, self.Parent())
}

func (self Index) Data() string {
	if !self.IsValid() {
		return ""
	}
	return self.model.Data(self)
}

// same cell, ignoring a stale row number
func (self Index) SameCell(b Index) bool {
	if self.IsValid() != b.IsValid() {
		return false
	}
	if !self.IsValid() {
		return true
	}
	return self.model == b.model && self.id == b.id && self.column == b.column
}

// same row item, ignoring the column
func (self Index) SameItem(b Index) bool {
	if self.IsValid() != b.IsValid() {
		return false
	}
	if !self.IsValid() {
		return true
	}
	return self.model == b.model && self.id == b.id
}

func (self Index) String() string {
	if !self.IsValid() {
		return "(invalid)"
	}
	return fmt.Sprintf("(%d,%d #%d)", self.row, self.column, self.id)
}

// withRow returns a copy moved to another row under the same parent
func (self Index) withRow(row int) Index {
	self.row = row
	return self
}
