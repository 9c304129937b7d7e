package mirror

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/bringyour/remoteview/model"
	"github.com/bringyour/remoteview/protocol"
)

// The observer copy of a probe model.
// Row changes before the first reset are ignored. A change that does not fit
// the local copy marks it out of sync and asks the probe for a new snapshot.
type RemoteModel struct {
	*model.TreeModel

	objectName string
	transport  Transport
	address    protocol.ObjectAddress

	synced bool
}

func NewRemoteModel(objectName string, transport Transport) *RemoteModel {
	return &RemoteModel{
		TreeModel:  model.NewTreeModel(1),
		objectName: objectName,
		transport:  transport,
		address:    protocol.InvalidObjectAddress,
	}
}

func (self *RemoteModel) ObjectName() string {
	return self.objectName
}

func (self *RemoteModel) ObjectAddress() protocol.ObjectAddress {
	return self.address
}

func (self *RemoteModel) IsSynced() bool {
	return self.synced
}

// A new address is a new session with the probe. The content is kept until
// the new snapshot arrives.
func (self *RemoteModel) SetObjectAddress(address protocol.ObjectAddress) {
	self.address = address
	self.synced = false
	self.requestSync()
}

func (self *RemoteModel) requestSync() {
	self.synced = false
	if !self.transport.IsConnected() || !self.address.IsValid() {
		return
	}
	glog.V(2).Infof("[mr]%s-> sync\n", self.objectName)
	self.transport.Send(protocol.NewMessage(self.address, protocol.MessageTypeModelSyncRequest))
}

// A malformed payload is a protocol violation.
func (self *RemoteModel) HandleMessage(message *protocol.Message) error {
	if message.Address != self.address {
		return fmt.Errorf("%w: %s to %s (%s)", ErrMisaddressed, message, self.objectName, self.address)
	}
	switch message.Type {
	case protocol.MessageTypeModelReset:
		return self.handleReset(message)
	case protocol.MessageTypeModelRowsInserted:
		return self.handleRowsInserted(message)
	case protocol.MessageTypeModelRowsRemoved:
		return self.handleRowsRemoved(message)
	default:
		return fmt.Errorf("%w: %s to %s", ErrUnexpectedMessage, message.Type, self.objectName)
	}
}

func (self *RemoteModel) handleReset(message *protocol.Message) error {
	payload := message.Payload()
	columnCount := payload.ReadCount()
	rows, err := payload.ReadRows()
	if err != nil {
		return err
	}
	if columnCount <= 0 {
		return fmt.Errorf("Bad column count %d", columnCount)
	}
	self.ResetColumns(columnCount, rows...)
	self.synced = true
	glog.V(2).Infof("[mr]%s<- reset %d rows\n", self.objectName, len(rows))
	return nil
}

func (self *RemoteModel) handleRowsInserted(message *protocol.Message) error {
	payload := message.Payload()
	parentModelIndex := payload.ReadModelIndex()
	first := payload.ReadInt()
	rows, err := payload.ReadRows()
	if err != nil {
		return err
	}
	if !self.synced {
		return nil
	}

	parent, ok := self.resolveParent(parentModelIndex)
	if !ok {
		self.outOfSync(fmt.Errorf("insert parent %s does not resolve", parentModelIndex))
		return nil
	}
	if err := self.InsertRows(parent, first, rows...); err != nil {
		self.outOfSync(err)
	}
	return nil
}

func (self *RemoteModel) handleRowsRemoved(message *protocol.Message) error {
	payload := message.Payload()
	parentModelIndex := payload.ReadModelIndex()
	first := payload.ReadInt()
	last := payload.ReadInt()
	if err := payload.Err(); err != nil {
		return err
	}
	if !self.synced {
		return nil
	}

	parent, ok := self.resolveParent(parentModelIndex)
	if !ok {
		self.outOfSync(fmt.Errorf("remove parent %s does not resolve", parentModelIndex))
		return nil
	}
	if err := self.RemoveRows(parent, first, last-first+1); err != nil {
		self.outOfSync(err)
	}
	return nil
}

// the empty address is the root
func (self *RemoteModel) resolveParent(modelIndex protocol.ModelIndex) (model.Index, bool) {
	if modelIndex.IsEmpty() {
		return model.Index{}, true
	}
	parent := protocol.ToIndex(self.TreeModel, modelIndex)
	return parent, parent.IsValid()
}

func (self *RemoteModel) outOfSync(err error) {
	glog.Infof("[mr]%s out of sync = %s\n", self.objectName, err)
	self.requestSync()
}
