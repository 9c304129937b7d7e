package protocol

import (
	"fmt"
	"strings"

	"github.com/bringyour/remoteview/model"
)

type ItemSelectionRange struct {
	TopLeft     ModelIndex
	BottomRight ModelIndex
}

func (self ItemSelectionRange) Equal(b ItemSelectionRange) bool {
	return self.TopLeft.Equal(b.TopLeft) && self.BottomRight.Equal(b.BottomRight)
}

// A selection in wire addresses. Resolve it against a live model with `ToSelection`.
type ItemSelection []ItemSelectionRange

func (self ItemSelection) IsEmpty() bool {
	return len(self) == 0
}

func (self ItemSelection) Equal(b ItemSelection) bool {
	if len(self) != len(b) {
		return false
	}
	for i := range self {
		if !self[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (self ItemSelection) String() string {
	parts := []string{}
	for _, r := range self {
		parts = append(parts, fmt.Sprintf("%s-%s", r.TopLeft, r.BottomRight))
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ","))
}

func FromSelection(selection model.Selection) ItemSelection {
	itemSelection := make(ItemSelection, len(selection))
	for i, r := range selection {
		itemSelection[i] = ItemSelectionRange{
			TopLeft:     FromIndex(r.TopLeft),
			BottomRight: FromIndex(r.BottomRight),
		}
	}
	return itemSelection
}

// Resolves every range against `itemModel`, all or nothing.
// Returns false if any corner of any range does not resolve.
func ToSelection(itemModel model.ItemModel, itemSelection ItemSelection) (model.Selection, bool) {
	selection := make(model.Selection, 0, len(itemSelection))
	for _, r := range itemSelection {
		topLeft := ToIndex(itemModel, r.TopLeft)
		bottomRight := ToIndex(itemModel, r.BottomRight)
		if !topLeft.IsValid() || !bottomRight.IsValid() {
			return nil, false
		}
		selection = append(selection, model.NewRange(topLeft, bottomRight))
	}
	return selection, true
}

// count:int32, then (top left, bottom right) for each range in order
func (self *Payload) WriteItemSelection(itemSelection ItemSelection) {
	self.WriteInt(len(itemSelection))
	for _, r := range itemSelection {
		self.WriteModelIndex(r.TopLeft)
		self.WriteModelIndex(r.BottomRight)
	}
}

func (self *Payload) WriteSelection(selection model.Selection) {
	self.WriteItemSelection(FromSelection(selection))
}

// the inverse of `WriteItemSelection`. A truncated payload returns `ErrPrematureEnd`
// and no ranges
func (self *Payload) ReadSelection() (ItemSelection, error) {
	n := self.ReadCount()
	if self.err != nil {
		return nil, self.err
	}
	// each range is at least two empty indexes
	if self.Remaining() < 8*n {
		self.err = ErrPrematureEnd
		return nil, self.err
	}
	itemSelection := make(ItemSelection, 0, n)
	for i := 0; i < n; i += 1 {
		var r ItemSelectionRange
		r.TopLeft = self.ReadModelIndex()
		r.BottomRight = self.ReadModelIndex()
		if self.err != nil {
			return nil, self.err
		}
		itemSelection = append(itemSelection, r)
	}
	return itemSelection, nil
}
