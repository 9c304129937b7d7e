package protocol

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/bringyour/remoteview/model"
)

func TestObjectAddress(t *testing.T) {
	a := NewObjectAddress()
	assert.Equal(t, true, a.IsValid())
	assert.Equal(t, false, InvalidObjectAddress.IsValid())

	for i := 0; i < 1024; i++ {
		b := NewObjectAddress()
		assert.Equal(t, b == a, false)
		a = b
	}

	b, err := ObjectAddressFromBytes(a.Bytes())
	assert.Equal(t, err, nil)
	assert.Equal(t, a, b)

	c, err := ParseObjectAddress(a.String())
	assert.Equal(t, err, nil)
	assert.Equal(t, a, c)

	_, err = ObjectAddressFromBytes([]byte{1, 2, 3})
	assert.NotEqual(t, err, nil)
	_, err = ParseObjectAddress("nope")
	assert.NotEqual(t, err, nil)
}

func TestFrameCodec(t *testing.T) {
	address := NewObjectAddress()
	message := NewMessage(address, MessageTypeSelectionModelCurrent)
	message.Payload().WriteInt32(16)
	message.Payload().WriteModelIndex(ModelIndex{{Row: 3, Column: 1}})

	b, err := EncodeFrame(message)
	assert.Equal(t, err, nil)

	decoded, err := DecodeFrame(b)
	assert.Equal(t, err, nil)
	assert.Equal(t, address, decoded.Address)
	assert.Equal(t, MessageTypeSelectionModelCurrent, decoded.Type)
	assert.Equal(t, int32(16), decoded.Payload().ReadInt32())
	assert.Equal(t, true, decoded.Payload().ReadModelIndex().Equal(ModelIndex{{Row: 3, Column: 1}}))
	assert.Equal(t, decoded.Payload().Err(), nil)
	assert.Equal(t, true, decoded.Payload().AtEnd())

	_, err = EncodeFrame(NewMessage(address, MessageType(99)))
	assert.NotEqual(t, err, nil)

	_, err = DecodeFrame(b[:len(b)-1])
	assert.NotEqual(t, err, nil)

	_, err = DecodeFrame([]byte{})
	assert.NotEqual(t, err, nil)
}

func TestPayloadPrematureEnd(t *testing.T) {
	payload := NewPayload(nil)
	payload.WriteInt32(7)
	payload.WriteString("hello")

	reader := NewPayload(payload.Bytes())
	assert.Equal(t, int32(7), reader.ReadInt32())
	assert.Equal(t, "hello", reader.ReadString())
	assert.Equal(t, reader.Err(), nil)

	// past the end, and sticky
	assert.Equal(t, int32(0), reader.ReadInt32())
	assert.Equal(t, ErrPrematureEnd, reader.Err())
	assert.Equal(t, "", reader.ReadString())
	assert.Equal(t, ErrPrematureEnd, reader.Err())

	negative := NewPayload(nil)
	negative.WriteInt32(-1)
	reader = NewPayload(negative.Bytes())
	assert.Equal(t, 0, reader.ReadCount())
	assert.Equal(t, ErrPrematureEnd, reader.Err())
}

func testModel() *model.TreeModel {
	treeModel := model.NewTreeModel(2)
	treeModel.Reset(
		model.NewRow("a", "a.1").WithChildren(
			model.NewRow("a/x", "a/x.1"),
			model.NewRow("a/y", "a/y.1").WithChildren(model.NewRow("a/y/1", "a/y/1.1")),
		),
		model.NewRow("b", "b.1"),
		model.NewRow("c", "c.1"),
	)
	return treeModel
}

func TestModelIndexCodec(t *testing.T) {
	treeModel := testModel()
	a := treeModel.Index(0, 0, model.Index{})
	y := treeModel.Index(1, 0, a)
	y1 := treeModel.Index(0, 1, y)

	modelIndex := FromIndex(y1)
	assert.Equal(t, true, modelIndex.Equal(ModelIndex{{0, 0}, {1, 0}, {0, 1}}))
	assert.Equal(t, y1, ToIndex(treeModel, modelIndex))

	// root
	assert.Equal(t, true, FromIndex(model.Index{}).IsEmpty())
	assert.Equal(t, false, ToIndex(treeModel, ModelIndex{}).IsValid())

	// out of range does not resolve
	assert.Equal(t, false, ToIndex(treeModel, ModelIndex{{5, 0}}).IsValid())
	assert.Equal(t, false, ToIndex(treeModel, ModelIndex{{0, 2}}).IsValid())
	assert.Equal(t, false, ToIndex(treeModel, ModelIndex{{1, 0}, {0, 0}}).IsValid())

	// the address resolves against another model with the same structure
	other := testModel()
	resolved := ToIndex(other, modelIndex)
	assert.Equal(t, true, resolved.IsValid())
	assert.Equal(t, "a/y/1.1", resolved.Data())

	// and stops resolving when the parent is removed
	other.RemoveRows(other.Index(0, 0, model.Index{}), 1, 1)
	assert.Equal(t, false, ToIndex(other, modelIndex).IsValid())
}

func TestSelectionCodec(t *testing.T) {
	treeModel := testModel()
	a := treeModel.Index(0, 0, model.Index{})
	selection := model.Selection{
		model.NewRange(treeModel.Index(1, 0, model.Index{}), treeModel.Index(2, 1, model.Index{})),
		model.NewRange(treeModel.Index(0, 0, a), treeModel.Index(1, 0, a)),
	}

	payload := NewPayload(nil)
	payload.WriteSelection(selection)
	payload.WriteItemSelection(ItemSelection{})

	reader := NewPayload(payload.Bytes())
	itemSelection, err := reader.ReadSelection()
	assert.Equal(t, err, nil)
	assert.Equal(t, true, itemSelection.Equal(FromSelection(selection)))
	empty, err := reader.ReadSelection()
	assert.Equal(t, err, nil)
	assert.Equal(t, true, empty.IsEmpty())
	assert.Equal(t, true, reader.AtEnd())

	// unchanged model resolves back to the same selection
	resolved, ok := ToSelection(treeModel, itemSelection)
	assert.Equal(t, true, ok)
	assert.Equal(t, selection, resolved)

	// all or nothing
	_, ok = ToSelection(treeModel, append(itemSelection, ItemSelectionRange{
		TopLeft:     ModelIndex{{1, 0}},
		BottomRight: ModelIndex{{40, 0}},
	}))
	assert.Equal(t, false, ok)

	// truncated
	reader = NewPayload(payload.Bytes()[:len(payload.Bytes())-10])
	itemSelection, err = reader.ReadSelection()
	assert.Equal(t, ErrPrematureEnd, err)
	assert.Equal(t, 0, len(itemSelection))
}

func TestRowsCodec(t *testing.T) {
	treeModel := testModel()

	payload := NewPayload(nil)
	payload.WriteRows(treeModel.Snapshot())

	rows, err := NewPayload(payload.Bytes()).ReadRows()
	assert.Equal(t, err, nil)
	assert.Equal(t, treeModel.Snapshot(), rows)

	_, err = NewPayload(payload.Bytes()[:5]).ReadRows()
	assert.Equal(t, ErrPrematureEnd, err)
}
