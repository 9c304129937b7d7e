// Replicates an item model from the probe to the observer, so the observer has
// a list with the same structure to resolve selections against.
//
// The probe side `ModelServer` answers sync requests with a full snapshot and
// forwards row changes. The observer side `RemoteModel` is a local tree model
// that applies them.
package mirror

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/bringyour/remoteview/model"
	"github.com/bringyour/remoteview/protocol"
)

var ErrMisaddressed = errors.New("Message not addressed to this object")
var ErrUnexpectedMessage = errors.New("Unexpected message type")

type Transport interface {
	IsConnected() bool
	Send(message *protocol.Message)
}

type ModelServer struct {
	objectName string
	itemModel  model.ItemModel
	transport  Transport
	address    protocol.ObjectAddress

	unsubscribe func()
}

func NewModelServer(objectName string, itemModel model.ItemModel, transport Transport) *ModelServer {
	modelServer := &ModelServer{
		objectName: objectName,
		itemModel:  itemModel,
		transport:  transport,
		address:    protocol.InvalidObjectAddress,
	}
	modelServer.unsubscribe = itemModel.AddListener(&model.ModelListenerFuncs{
		Reset:    modelServer.sendReset,
		Inserted: modelServer.sendRowsInserted,
		Removed:  modelServer.sendRowsRemoved,
	})
	return modelServer
}

func (self *ModelServer) ObjectName() string {
	return self.objectName
}

func (self *ModelServer) ObjectAddress() protocol.ObjectAddress {
	return self.address
}

func (self *ModelServer) SetObjectAddress(address protocol.ObjectAddress) {
	self.address = address
}

func (self *ModelServer) Close() {
	self.unsubscribe()
}

func (self *ModelServer) canSend() bool {
	return self.transport.IsConnected() && self.address.IsValid()
}

func (self *ModelServer) HandleMessage(message *protocol.Message) error {
	if message.Address != self.address {
		return fmt.Errorf("%w: %s to %s (%s)", ErrMisaddressed, message, self.objectName, self.address)
	}
	switch message.Type {
	case protocol.MessageTypeModelSyncRequest:
		self.sendReset()
		return nil
	default:
		return fmt.Errorf("%w: %s to %s", ErrUnexpectedMessage, message.Type, self.objectName)
	}
}

// columnCount:int32, rows
func (self *ModelServer) sendReset() {
	if !self.canSend() {
		return
	}
	root := model.Index{}
	message := protocol.NewMessage(self.address, protocol.MessageTypeModelReset)
	message.Payload().WriteInt(self.itemModel.ColumnCount(root))
	message.Payload().WriteRows(SnapshotRows(self.itemModel, root, 0, self.itemModel.RowCount(root)-1))
	glog.V(2).Infof("[ms]%s-> reset\n", self.objectName)
	self.transport.Send(message)
}

// parent, first:int32, rows
func (self *ModelServer) sendRowsInserted(parent model.Index, first int, last int) {
	if !self.canSend() {
		return
	}
	message := protocol.NewMessage(self.address, protocol.MessageTypeModelRowsInserted)
	message.Payload().WriteModelIndex(protocol.FromIndex(parent))
	message.Payload().WriteInt(first)
	message.Payload().WriteRows(SnapshotRows(self.itemModel, parent, first, last))
	glog.V(2).Infof("[ms]%s-> insert %s [%d, %d]\n", self.objectName, parent, first, last)
	self.transport.Send(message)
}

// parent, first:int32, last:int32
func (self *ModelServer) sendRowsRemoved(parent model.Index, first int, last int) {
	if !self.canSend() {
		return
	}
	message := protocol.NewMessage(self.address, protocol.MessageTypeModelRowsRemoved)
	message.Payload().WriteModelIndex(protocol.FromIndex(parent))
	message.Payload().WriteInt(first)
	message.Payload().WriteInt(last)
	glog.V(2).Infof("[ms]%s-> remove %s [%d, %d]\n", self.objectName, parent, first, last)
	self.transport.Send(message)
}

// Rows `first` through `last` under `parent` with all their descendants.
func SnapshotRows(itemModel model.ItemModel, parent model.Index, first int, last int) []model.Row {
	if last < first {
		return nil
	}
	columnCount := itemModel.ColumnCount(parent)
	rows := make([]model.Row, 0, last-first+1)
	for row := first; row <= last; row += 1 {
		values := make([]string, columnCount)
		for column := 0; column < columnCount; column += 1 {
			values[column] = itemModel.Data(itemModel.Index(row, column, parent))
		}
		index := itemModel.Index(row, 0, parent)
		rows = append(rows, model.Row{
			Values:   values,
			Children: SnapshotRows(itemModel, index, 0, itemModel.RowCount(index)-1),
		})
	}
	return rows
}
