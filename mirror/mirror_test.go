package mirror

import (
	"errors"
	"flag"
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/bringyour/remoteview/model"
	"github.com/bringyour/remoteview/protocol"
	"github.com/bringyour/remoteview/selection"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

type testTransport struct {
	connected bool
	sent      []*protocol.Message
}

func (self *testTransport) IsConnected() bool {
	return self.connected
}

func (self *testTransport) Send(message *protocol.Message) {
	// round trip the frame so the receiver reads a fresh payload
	b := protocol.RequireEncodeFrame(message)
	decoded, err := protocol.DecodeFrame(b)
	if err != nil {
		panic(err)
	}
	self.sent = append(self.sent, decoded)
}

func (self *testTransport) take() []*protocol.Message {
	sent := self.sent
	self.sent = nil
	return sent
}

type testObject interface {
	HandleMessage(message *protocol.Message) error
}

// delivers to the object at the message address until both sides are quiet
func pump(t *testing.T, probeTransport *testTransport, probeObjects []testObject, observerTransport *testTransport, observerObjects []testObject) int {
	deliver := func(messages []*protocol.Message, objects []testObject) {
		for _, message := range messages {
			delivered := false
			for _, object := range objects {
				if err := object.HandleMessage(message); err == nil {
					delivered = true
					break
				} else if !errors.Is(err, ErrMisaddressed) && !errors.Is(err, selection.ErrMisaddressed) {
					t.Fatalf("Unexpected error %s", err)
				}
			}
			if !delivered {
				t.Fatalf("Undelivered %s", message)
			}
		}
	}

	n := 0
	for {
		probeMessages := probeTransport.take()
		observerMessages := observerTransport.take()
		if len(probeMessages) == 0 && len(observerMessages) == 0 {
			return n
		}
		n += len(probeMessages) + len(observerMessages)
		deliver(probeMessages, observerObjects)
		deliver(observerMessages, probeObjects)
	}
}

func testRows(prefix string, n int) []model.Row {
	rows := make([]model.Row, n)
	for i := 0; i < n; i += 1 {
		rows[i] = model.NewRow(fmt.Sprintf("%s%d", prefix, i), fmt.Sprintf("%s%d.1", prefix, i))
	}
	return rows
}

func TestMirror(t *testing.T) {
	probeModel := model.NewTreeModel(2)
	probeModel.Reset(
		model.NewRow("a", "a.1").WithChildren(testRows("a/", 3)...),
		model.NewRow("b", "b.1"),
	)

	probeTransport := &testTransport{connected: true}
	observerTransport := &testTransport{connected: true}

	address := protocol.NewObjectAddress()
	modelServer := NewModelServer("test.model", probeModel, probeTransport)
	defer modelServer.Close()
	modelServer.SetObjectAddress(address)

	remoteModel := NewRemoteModel("test.model", observerTransport)
	remoteModel.SetObjectAddress(address)
	assert.Equal(t, false, remoteModel.IsSynced())

	probeObjects := []testObject{modelServer}
	observerObjects := []testObject{remoteModel}

	// sync request and reset
	assert.Equal(t, 2, pump(t, probeTransport, probeObjects, observerTransport, observerObjects))
	assert.Equal(t, true, remoteModel.IsSynced())
	assert.Equal(t, 2, remoteModel.ColumnCount(model.Index{}))
	assert.Equal(t, probeModel.Snapshot(), remoteModel.Snapshot())

	a := probeModel.Index(0, 0, model.Index{})
	probeModel.InsertRows(a, 1, model.NewRow("a/new", "a/new.1").WithChildren(testRows("a/new/", 2)...))
	probeModel.AppendRows(model.Index{}, testRows("top", 4)...)
	probeModel.RemoveRows(model.Index{}, 1, 2)
	assert.Equal(t, 3, pump(t, probeTransport, probeObjects, observerTransport, observerObjects))
	assert.Equal(t, probeModel.Snapshot(), remoteModel.Snapshot())

	probeModel.Reset(testRows("r", 5)...)
	assert.Equal(t, 1, pump(t, probeTransport, probeObjects, observerTransport, observerObjects))
	assert.Equal(t, probeModel.Snapshot(), remoteModel.Snapshot())
}

func TestRemoteModelResync(t *testing.T) {
	observerTransport := &testTransport{connected: true}
	address := protocol.NewObjectAddress()
	remoteModel := NewRemoteModel("test.model", observerTransport)
	remoteModel.SetObjectAddress(address)
	sent := observerTransport.take()
	assert.Equal(t, 1, len(sent))
	assert.Equal(t, protocol.MessageTypeModelSyncRequest, sent[0].Type)

	insert := func(parent protocol.ModelIndex, first int, rows ...model.Row) *protocol.Message {
		message := protocol.NewMessage(address, protocol.MessageTypeModelRowsInserted)
		message.Payload().WriteModelIndex(parent)
		message.Payload().WriteInt(first)
		message.Payload().WriteRows(rows)
		return protocol.NewMessageWithPayload(address, message.Type, message.Payload().Bytes())
	}

	// ignored before the first reset
	err := remoteModel.HandleMessage(insert(protocol.ModelIndex{}, 0, testRows("x", 2)...))
	assert.Equal(t, err, nil)
	assert.Equal(t, 0, remoteModel.RowCount(model.Index{}))

	reset := protocol.NewMessage(address, protocol.MessageTypeModelReset)
	reset.Payload().WriteInt(2)
	reset.Payload().WriteRows(testRows("r", 3))
	err = remoteModel.HandleMessage(protocol.NewMessageWithPayload(address, reset.Type, reset.Payload().Bytes()))
	assert.Equal(t, err, nil)
	assert.Equal(t, true, remoteModel.IsSynced())
	assert.Equal(t, 3, remoteModel.RowCount(model.Index{}))

	// an insert under a parent that does not exist asks for a new snapshot
	err = remoteModel.HandleMessage(insert(protocol.ModelIndex{{Row: 9, Column: 0}}, 0, testRows("x", 1)...))
	assert.Equal(t, err, nil)
	assert.Equal(t, false, remoteModel.IsSynced())
	sent = observerTransport.take()
	assert.Equal(t, 1, len(sent))
	assert.Equal(t, protocol.MessageTypeModelSyncRequest, sent[0].Type)
	// the content is kept
	assert.Equal(t, 3, remoteModel.RowCount(model.Index{}))

	// malformed
	err = remoteModel.HandleMessage(protocol.NewMessageWithPayload(address, protocol.MessageTypeModelRowsRemoved, []byte{1, 2}))
	assert.NotEqual(t, err, nil)

	err = remoteModel.HandleMessage(protocol.NewMessage(address, protocol.MessageTypeModelSyncRequest))
	assert.Equal(t, true, errors.Is(err, ErrUnexpectedMessage))

	err = remoteModel.HandleMessage(protocol.NewMessage(protocol.NewObjectAddress(), protocol.MessageTypeModelReset))
	assert.Equal(t, true, errors.Is(err, ErrMisaddressed))
}

func TestModelServerNotAddressed(t *testing.T) {
	probeModel := model.NewTreeModel(1)
	probeTransport := &testTransport{connected: true}
	modelServer := NewModelServer("test.model", probeModel, probeTransport)
	defer modelServer.Close()

	probeModel.Reset(testRows("r", 3)...)
	assert.Equal(t, 0, len(probeTransport.take()))

	modelServer.SetObjectAddress(protocol.NewObjectAddress())
	probeTransport.connected = false
	probeModel.AppendRows(model.Index{}, testRows("s", 1)...)
	assert.Equal(t, 0, len(probeTransport.take()))

	err := modelServer.HandleMessage(protocol.NewMessage(modelServer.ObjectAddress(), protocol.MessageTypeModelReset))
	assert.Equal(t, true, errors.Is(err, ErrUnexpectedMessage))
}

// selections follow the mirrored rows
func TestMirroredSelection(t *testing.T) {
	probeModel := model.NewTreeModel(1)
	probeModel.Reset(testRows("r", 10)...)

	probeTransport := &testTransport{connected: true}
	observerTransport := &testTransport{connected: true}

	modelAddress := protocol.NewObjectAddress()
	selectionAddress := protocol.NewObjectAddress()

	modelServer := NewModelServer("test.model", probeModel, probeTransport)
	modelServer.SetObjectAddress(modelAddress)
	probeSelection := selection.NewNetworkSelectionModel("test.selection", probeModel, probeTransport)
	probeSelection.SetObjectAddress(selectionAddress)

	remoteModel := NewRemoteModel("test.model", observerTransport)
	observerSelection := selection.NewNetworkSelectionModel("test.selection", remoteModel.TreeModel, observerTransport)
	observerSelection.SetObjectAddress(selectionAddress)
	remoteModel.SetObjectAddress(modelAddress)

	probeObjects := []testObject{modelServer, probeSelection}
	observerObjects := []testObject{remoteModel, observerSelection}
	pump(t, probeTransport, probeObjects, observerTransport, observerObjects)
	assert.Equal(t, 10, remoteModel.RowCount(model.Index{}))

	probeModel.AppendRows(model.Index{}, testRows("s", 90)...)
	probeSelection.Select(model.Selection{model.NewRange(
		probeModel.Index(40, 0, model.Index{}),
		probeModel.Index(59, 0, model.Index{}),
	)}, model.Select)
	pump(t, probeTransport, probeObjects, observerTransport, observerObjects)

	assert.Equal(t, false, observerSelection.HasPendingSelection())
	assert.Equal(t, 20, len(observerSelection.SelectedIndexes()))
	assert.Equal(t, true, protocol.FromSelection(probeSelection.Selection()).Equal(protocol.FromSelection(observerSelection.Selection())))

	// and back
	observerSelection.SetCurrentIndex(remoteModel.Index(3, 0, model.Index{}), model.ClearAndSelectCurrent)
	pump(t, probeTransport, probeObjects, observerTransport, observerObjects)
	assert.Equal(t, 3, probeSelection.CurrentIndex().Row())
	assert.Equal(t, 1, len(probeSelection.SelectedIndexes()))
}
