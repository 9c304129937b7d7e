// Replicates a selection model between the probe and the observer.
//
// Each side owns a `NetworkSelectionModel` over its own copy of the item model.
// Local changes are sent as wire addresses; remote changes are resolved against
// the local model and applied with the remote flag held, so they are not echoed.
// A remote selection that does not resolve yet (the local model has not caught
// up) is kept as the pending selection and retried whenever rows are inserted.
package selection

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/bringyour/remoteview/model"
	"github.com/bringyour/remoteview/protocol"
)

// the message was routed to the wrong object. fatal to the connection
var ErrMisaddressed = errors.New("Message not addressed to this object")

// the message kind is not part of the selection protocol. fatal to the connection
var ErrUnexpectedMessage = errors.New("Unexpected message type")

// the part of the endpoint the selection model uses
type Transport interface {
	IsConnected() bool
	Send(message *protocol.Message)
}

type NetworkSelectionModel struct {
	*model.SelectionModel

	objectName string
	transport  Transport
	address    protocol.ObjectAddress

	// set while a remote message is applied to the local model
	remote  bool
	pending pendingSelection

	unsubscribes []func()
}

func NewNetworkSelectionModel(objectName string, itemModel model.ItemModel, transport Transport) *NetworkSelectionModel {
	// the selection model subscribes to the item model first,
	// so its rows are current before a pending selection is retried
	selectionModel := model.NewSelectionModel(itemModel)

	networkSelectionModel := &NetworkSelectionModel{
		SelectionModel: selectionModel,
		objectName:     objectName,
		transport:      transport,
		address:        protocol.InvalidObjectAddress,
	}

	networkSelectionModel.unsubscribes = append(
		networkSelectionModel.unsubscribes,
		selectionModel.AddListener(&model.SelectionListenerFuncs{
			Selection: networkSelectionModel.onLocalSelectionChanged,
			Current:   networkSelectionModel.onLocalCurrentChanged,
		}),
		itemModel.AddListener(&model.ModelListenerFuncs{
			AboutToBeReset: networkSelectionModel.clearPendingSelection,
			Inserted: func(parent model.Index, first int, last int) {
				networkSelectionModel.applyPendingSelection()
			},
		}),
	)

	return networkSelectionModel
}

func (self *NetworkSelectionModel) ObjectName() string {
	return self.objectName
}

func (self *NetworkSelectionModel) ObjectAddress() protocol.ObjectAddress {
	return self.address
}

// assigned by the endpoint. `protocol.InvalidObjectAddress` stops outbound traffic
func (self *NetworkSelectionModel) SetObjectAddress(address protocol.ObjectAddress) {
	self.address = address
}

func (self *NetworkSelectionModel) HasPendingSelection() bool {
	return !self.pending.IsEmpty()
}

func (self *NetworkSelectionModel) Close() {
	for _, unsubscribe := range self.unsubscribes {
		unsubscribe()
	}
	self.unsubscribes = nil
	self.SelectionModel.Close()
}

// sets the remote flag until the returned release is called.
// use as `defer self.handlingRemoteMessage()()`
func (self *NetworkSelectionModel) handlingRemoteMessage() func() {
	previous := self.remote
	self.remote = true
	return func() {
		self.remote = previous
	}
}

func (self *NetworkSelectionModel) canSend() bool {
	return !self.remote && self.transport.IsConnected() && self.address.IsValid()
}

func (self *NetworkSelectionModel) onLocalCurrentChanged(current model.Index, previous model.Index, kind model.CurrentChangeKind) {
	if !self.canSend() {
		return
	}
	self.clearPendingSelection()

	flags := model.Current
	switch kind {
	case model.CurrentChangeRow:
		flags |= model.Rows
	case model.CurrentChangeColumn:
		flags |= model.Columns
	}

	message := protocol.NewMessage(self.address, protocol.MessageTypeSelectionModelCurrent)
	message.Payload().WriteInt32(int32(flags))
	message.Payload().WriteModelIndex(protocol.FromIndex(current))
	glog.V(2).Infof("[ns]%s-> current %s %s\n", self.objectName, kind, current)
	self.transport.Send(message)
}

func (self *NetworkSelectionModel) onLocalSelectionChanged(selected model.Selection, deselected model.Selection) {
	if !self.canSend() {
		return
	}
	self.clearPendingSelection()

	message := protocol.NewMessage(self.address, protocol.MessageTypeSelectionModelSelect)
	message.Payload().WriteSelection(selected)
	message.Payload().WriteSelection(deselected)
	glog.V(2).Infof("[ns]%s-> select +%d -%d\n", self.objectName, len(selected), len(deselected))
	self.transport.Send(message)
}

// An error is a protocol violation and the caller should drop the connection.
// Undecodable or unresolvable updates are not errors; they are dropped or deferred.
func (self *NetworkSelectionModel) HandleMessage(message *protocol.Message) error {
	if message.Address != self.address {
		return fmt.Errorf("%w: %s to %s (%s)", ErrMisaddressed, message, self.objectName, self.address)
	}

	switch message.Type {
	case protocol.MessageTypeSelectionModelSelect:
		self.handleSelect(message)
		return nil
	case protocol.MessageTypeSelectionModelCurrent:
		self.handleCurrent(message)
		return nil
	default:
		return fmt.Errorf("%w: %s to %s", ErrUnexpectedMessage, message.Type, self.objectName)
	}
}

func (self *NetworkSelectionModel) handleSelect(message *protocol.Message) {
	defer self.handlingRemoteMessage()()

	payload := message.Payload()

	selected, err := payload.ReadSelection()
	if err != nil {
		// the new message still supersedes the stale pending selection
		self.pending.Clear()
		glog.V(1).Infof("[ns]%s<- select dropped = %s\n", self.objectName, err)
		return
	}
	self.pending.Set(selected)

	// the deselection applies as one batch or not at all
	if deselected, err := payload.ReadSelection(); err != nil {
		glog.V(1).Infof("[ns]%s<- deselect dropped = %s\n", self.objectName, err)
	} else if selection, ok := protocol.ToSelection(self.Model(), deselected); ok && !selection.IsEmpty() {
		self.Select(selection, model.Deselect)
	}

	self.applyPendingSelection()
}

func (self *NetworkSelectionModel) handleCurrent(message *protocol.Message) {
	payload := message.Payload()
	flags := model.SelectionFlags(payload.ReadInt32())
	modelIndex := payload.ReadModelIndex()
	if err := payload.Err(); err != nil {
		glog.V(1).Infof("[ns]%s<- current dropped = %s\n", self.objectName, err)
		return
	}

	index := protocol.ToIndex(self.Model(), modelIndex)
	if !index.IsValid() {
		glog.V(2).Infof("[ns]%s<- current %s does not resolve\n", self.objectName, modelIndex)
		return
	}

	defer self.handlingRemoteMessage()()
	self.SetCurrentIndex(index, flags)
}
