package model

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// A rectangular block of cells under one parent.
type Range struct {
	TopLeft     Index
	BottomRight Index
}

func NewRange(topLeft Index, bottomRight Index) Range {
	return Range{
		TopLeft:     topLeft,
		BottomRight: bottomRight,
	}
}

func NewIndexRange(index Index) Range {
	return NewRange(index, index)
}

// both corners valid, in the same model, under the same parent, and ordered
func (self Range) IsValid() bool {
	if !self.TopLeft.IsValid() || !self.BottomRight.IsValid() {
		return false
	}
	if self.TopLeft.model != self.BottomRight.model {
		return false
	}
	if !self.TopLeft.Parent().SameItem(self.BottomRight.Parent()) {
		return false
	}
	return self.TopLeft.row <= self.BottomRight.row && self.TopLeft.column <= self.BottomRight.column
}

func (self Range) Parent() Index {
	return self.TopLeft.Parent()
}

func (self Range) Top() int {
	return self.TopLeft.Row()
}

func (self Range) Bottom() int {
	return self.BottomRight.Row()
}

func (self Range) Left() int {
	return self.TopLeft.Column()
}

func (self Range) Right() int {
	return self.BottomRight.Column()
}

func (self Range) Width() int {
	return self.Right() - self.Left() + 1
}

func (self Range) Height() int {
	return self.Bottom() - self.Top() + 1
}

func (self Range) Contains(index Index) bool {
	if !self.IsValid() || !index.IsValid() {
		return false
	}
	if !index.Parent().SameItem(self.Parent()) {
		return false
	}
	return self.Top() <= index.Row() && index.Row() <= self.Bottom() &&
		self.Left() <= index.Column() && index.Column() <= self.Right()
}

// the cells of the range, row major
func (self Range) Indexes() []Index {
	if !self.IsValid() {
		return nil
	}
	model := self.TopLeft.model
	parent := self.Parent()
	indexes := make([]Index, 0, self.Width()*self.Height())
	for row := self.Top(); row <= self.Bottom(); row += 1 {
		for column := self.Left(); column <= self.Right(); column += 1 {
			index := model.Index(row, column, parent)
			if index.IsValid() {
				indexes = append(indexes, index)
			}
		}
	}
	return indexes
}

func (self Range) String() string {
	return fmt.Sprintf("[%s-%s]", self.TopLeft, self.BottomRight)
}

// An ordered sequence of ranges. The order is insertion order.
type Selection []Range

func (self Selection) IsEmpty() bool {
	return len(self) == 0
}

func (self Selection) Contains(index Index) bool {
	for _, r := range self {
		if r.Contains(index) {
			return true
		}
	}
	return false
}

func (self Selection) Indexes() []Index {
	indexes := []Index{}
	for _, r := range self {
		indexes = append(indexes, r.Indexes()...)
	}
	return indexes
}

func (self Selection) String() string {
	parts := []string{}
	for _, r := range self {
		parts = append(parts, r.String())
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ","))
}

type columnRun struct {
	parent Index
	column int
	top    int
	bottom int
}

// Merges a set of cells into rectangular ranges.
// Runs of consecutive rows in one column are merged first, then runs with the
// same rows in adjacent columns. The output is ordered by parent id, top row, left column.
func MergeIndexes(indexes []Index) Selection {
	cells := slices.DeleteFunc(slices.Clone(indexes), func(index Index) bool {
		return !index.IsValid()
	})
	if len(cells) == 0 {
		return Selection{}
	}

	slices.SortFunc(cells, func(a Index, b Index) int {
		if c := compareItemId(a.Parent().Id(), b.Parent().Id()); c != 0 {
			return c
		}
		if a.column != b.column {
			return a.column - b.column
		}
		return a.row - b.row
	})

	runs := []columnRun{}
	for _, cell := range cells {
		parent := cell.Parent()
		if 0 < len(runs) {
			last := &runs[len(runs)-1]
			if last.parent.SameItem(parent) && last.column == cell.column {
				if cell.row <= last.bottom {
					// duplicate
					continue
				}
				if cell.row == last.bottom+1 {
					last.bottom = cell.row
					continue
				}
			}
		}
		runs = append(runs, columnRun{
			parent: parent,
			column: cell.column,
			top:    cell.row,
			bottom: cell.row,
		})
	}

	slices.SortFunc(runs, func(a columnRun, b columnRun) int {
		if c := compareItemId(a.parent.Id(), b.parent.Id()); c != 0 {
			return c
		}
		if a.top != b.top {
			return a.top - b.top
		}
		if a.bottom != b.bottom {
			return a.bottom - b.bottom
		}
		return a.column - b.column
	})

	model := cells[0].model
	selection := Selection{}
	for i := 0; i < len(runs); {
		run := runs[i]
		right := run.column
		j := i + 1
		for ; j < len(runs); j += 1 {
			next := runs[j]
			if !next.parent.SameItem(run.parent) || next.top != run.top || next.bottom != run.bottom || next.column != right+1 {
				break
			}
			right = next.column
		}
		selection = append(selection, NewRange(
			model.Index(run.top, run.column, run.parent),
			model.Index(run.bottom, right, run.parent),
		))
		i = j
	}
	return selection
}

func compareItemId(a ItemId, b ItemId) int {
	if a < b {
		return -1
	} else if b < a {
		return 1
	} else {
		return 0
	}
}
