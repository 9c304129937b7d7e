package selection

import (
	"github.com/golang/glog"

	"github.com/bringyour/remoteview/model"
	"github.com/bringyour/remoteview/protocol"
)

// Single-slot mailbox for a remote selection that does not resolve locally yet.
// The slot is always replaced or cleared whole, never edited.
type pendingSelection struct {
	selection protocol.ItemSelection
}

func (self *pendingSelection) Set(selection protocol.ItemSelection) {
	self.selection = selection
}

func (self *pendingSelection) Get() protocol.ItemSelection {
	return self.selection
}

func (self *pendingSelection) IsEmpty() bool {
	return len(self.selection) == 0
}

func (self *pendingSelection) Clear() {
	self.selection = nil
}

// Retries the pending selection against the current model, all or nothing.
// Called after a remote Select and whenever the model grows.
func (self *NetworkSelectionModel) applyPendingSelection() {
	if self.pending.IsEmpty() {
		return
	}

	selection, ok := protocol.ToSelection(self.Model(), self.pending.Get())
	if !ok {
		// still out of range, wait for more rows
		glog.V(2).Infof("[ns]%s pending %d ranges deferred\n", self.objectName, len(self.pending.Get()))
		return
	}

	if !selection.IsEmpty() {
		defer self.handlingRemoteMessage()()
		self.Select(selection, model.Select)
	}
	self.pending.Clear()
}

func (self *NetworkSelectionModel) clearPendingSelection() {
	self.pending.Clear()
}
