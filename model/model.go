package model

// A hierarchical list of rows with a fixed number of columns per level.
// The invisible root is addressed by the invalid `Index{}`.
type ItemModel interface {
	// returns the invalid index when (row, column) does not exist under parent
	Index(row int, column int, parent Index) Index
	Parent(child Index) Index
	RowCount(parent Index) int
	ColumnCount(parent Index) int
	Data(index Index) string
	// listeners are notified synchronously, in registration order
	AddListener(listener ModelListener) func()
}

// Structural change notifications.
// Indexes passed to a notification are valid for the revision after the change.
type ModelListener interface {
	ModelAboutToBeReset()
	ModelReset()
	RowsInserted(parent Index, first int, last int)
	RowsRemoved(parent Index, first int, last int)
}

// adapts optional funcs to a `ModelListener`
type ModelListenerFuncs struct {
	AboutToBeReset func()
	Reset          func()
	Inserted       func(parent Index, first int, last int)
	Removed        func(parent Index, first int, last int)
}

func (self *ModelListenerFuncs) ModelAboutToBeReset() {
	if self.AboutToBeReset != nil {
		self.AboutToBeReset()
	}
}

func (self *ModelListenerFuncs) ModelReset() {
	if self.Reset != nil {
		self.Reset()
	}
}

func (self *ModelListenerFuncs) RowsInserted(parent Index, first int, last int) {
	if self.Inserted != nil {
		self.Inserted(parent, first, last)
	}
}

func (self *ModelListenerFuncs) RowsRemoved(parent Index, first int, last int) {
	if self.Removed != nil {
		self.Removed(parent, first, last)
	}
}

// true when `index` still addresses the same item at its recorded row
func IsLive(index Index) bool {
	if !index.IsValid() {
		return false
	}
	live := index.model.Index(index.row, index.column, index.model.Parent(index))
	return live.IsValid() && live.id == index.id
}
