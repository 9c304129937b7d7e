package protocol

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/bringyour/remoteview/model"
)

type ModelIndexElement struct {
	Row    int
	Column int
}

// Wire address of a model cell: the (row, column) path from the top level
// down to the cell. The empty path is the invisible root, i.e. the invalid index.
// An address is independent of any live model and is resolved with `ToIndex`.
type ModelIndex []ModelIndexElement

func (self ModelIndex) IsEmpty() bool {
	return len(self) == 0
}

func (self ModelIndex) Equal(b ModelIndex) bool {
	return slices.Equal(self, b)
}

func (self ModelIndex) String() string {
	parts := []string{}
	for _, element := range self {
		parts = append(parts, fmt.Sprintf("%d:%d", element.Row, element.Column))
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, "/"))
}

// encodes a live index. lossless for any valid index
func FromIndex(index model.Index) ModelIndex {
	modelIndex := ModelIndex{}
	for i := index; i.IsValid(); i = i.Parent() {
		modelIndex = append(modelIndex, ModelIndexElement{
			Row:    i.Row(),
			Column: i.Column(),
		})
	}
	slices.Reverse(modelIndex)
	return modelIndex
}

// resolves an address against the current state of `itemModel`.
// Returns the invalid index if any step of the path no longer exists.
func ToIndex(itemModel model.ItemModel, modelIndex ModelIndex) model.Index {
	index := model.Index{}
	for _, element := range modelIndex {
		index = itemModel.Index(element.Row, element.Column, index)
		if !index.IsValid() {
			return model.Index{}
		}
	}
	return index
}

func (self *Payload) WriteModelIndex(modelIndex ModelIndex) {
	self.WriteInt(len(modelIndex))
	for _, element := range modelIndex {
		self.WriteInt(element.Row)
		self.WriteInt(element.Column)
	}
}

func (self *Payload) ReadModelIndex() ModelIndex {
	n := self.ReadCount()
	if self.err != nil {
		return nil
	}
	// each element is at least 8 bytes
	if self.Remaining() < 8*n {
		self.err = ErrPrematureEnd
		return nil
	}
	modelIndex := make(ModelIndex, n)
	for i := 0; i < n; i += 1 {
		modelIndex[i].Row = self.ReadInt()
		modelIndex[i].Column = self.ReadInt()
	}
	if self.err != nil {
		return nil
	}
	return modelIndex
}
