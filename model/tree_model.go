package model

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Snapshot form of a subtree. Used to build, reset and replicate a `TreeModel`.
type Row struct {
	Values   []string
	Children []Row
}

func NewRow(values ...string) Row {
	return Row{
		Values: values,
	}
}

func (self Row) WithChildren(children ...Row) Row {
	self.Children = children
	return self
}

type treeNode struct {
	id       ItemId
	values   []string
	parent   *treeNode
	children []*treeNode
}

func (self *treeNode) row() int {
	if self.parent == nil {
		return -1
	}
	return slices.Index(self.parent.children, self)
}

// In-memory `ItemModel`. Not safe for concurrent use; mutate it from the
// thread that dispatches its notifications.
type TreeModel struct {
	columnCount int
	root        *treeNode
	nodes       map[ItemId]*treeNode
	nextId      ItemId

	listeners CallbackList[ModelListener]
}

func NewTreeModel(columnCount int) *TreeModel {
	if columnCount <= 0 {
		panic(fmt.Errorf("Column count must be positive: %d", columnCount))
	}
	root := &treeNode{
		id: RootItemId,
	}
	return &TreeModel{
		columnCount: columnCount,
		root:        root,
		nodes:       map[ItemId]*treeNode{},
		nextId:      RootItemId + 1,
	}
}

// the node for `index`, or the root for the invalid index
// nil if the index is from another model or its item no longer exists
func (self *TreeModel) node(index Index) *treeNode {
	if !index.IsValid() {
		return self.root
	}
	if index.model != self {
		return nil
	}
	node, ok := self.nodes[index.id]
	if !ok {
		return nil
	}
	return node
}

func (self *TreeModel) indexOf(node *treeNode, column int) Index {
	if node == nil || node == self.root {
		return Index{}
	}
	return NewIndex(node.row(), column, node.id, self)
}

// ItemModel implementation

func (self *TreeModel) Index(row int, column int, parent Index) Index {
	parentNode := self.node(parent)
	if parentNode == nil {
		return Index{}
	}
	if row < 0 || len(parentNode.children) <= row {
		return Index{}
	}
	if column < 0 || self.columnCount <= column {
		return Index{}
	}
	return NewIndex(row, column, parentNode.children[row].id, self)
}

func (self *TreeModel) Parent(child Index) Index {
	if !child.IsValid() || child.model != self {
		return Index{}
	}
	node, ok := self.nodes[child.id]
	if !ok {
		return Index{}
	}
	return self.indexOf(node.parent, 0)
}

func (self *TreeModel) RowCount(parent Index) int {
	parentNode := self.node(parent)
	if parentNode == nil {
		return 0
	}
	return len(parentNode.children)
}

func (self *TreeModel) ColumnCount(parent Index) int {
	if self.node(parent) == nil {
		return 0
	}
	return self.columnCount
}

func (self *TreeModel) Data(index Index) string {
	if !index.IsValid() {
		return ""
	}
	node := self.node(index)
	if node == nil || len(node.values) <= index.column {
		return ""
	}
	return node.values[index.column]
}

func (self *TreeModel) AddListener(listener ModelListener) func() {
	return self.listeners.Add(listener)
}

// mutations

func (self *TreeModel) newNode(row Row, parent *treeNode) *treeNode {
	node := &treeNode{
		id:     self.nextId,
		values: slices.Clone(row.Values),
		parent: parent,
	}
	self.nextId += 1
	self.nodes[node.id] = node
	for _, child := range row.Children {
		node.children = append(node.children, self.newNode(child, node))
	}
	return node
}

func (self *TreeModel) forgetNode(node *treeNode) {
	delete(self.nodes, node.id)
	for _, child := range node.children {
		self.forgetNode(child)
	}
}

// inserts `rows` before `row` under `parent`. `row` may equal the row count to append
func (self *TreeModel) InsertRows(parent Index, row int, rows ...Row) error {
	parentNode := self.node(parent)
	if parentNode == nil {
		return fmt.Errorf("Parent %s does not exist", parent)
	}
	if row < 0 || len(parentNode.children) < row {
		return fmt.Errorf("Row %d out of range [0, %d]", row, len(parentNode.children))
	}
	if len(rows) == 0 {
		return nil
	}

	nodes := make([]*treeNode, len(rows))
	for i, r := range rows {
		nodes[i] = self.newNode(r, parentNode)
	}
	parentNode.children = slices.Insert(parentNode.children, row, nodes...)

	// the parent index is re-derived so its row is current
	parentIndex := self.indexOf(parentNode, 0)
	for _, listener := range self.listeners.Get() {
		listener.RowsInserted(parentIndex, row, row+len(rows)-1)
	}
	return nil
}

func (self *TreeModel) AppendRows(parent Index, rows ...Row) error {
	return self.InsertRows(parent, self.RowCount(parent), rows...)
}

func (self *TreeModel) RemoveRows(parent Index, first int, count int) error {
	parentNode := self.node(parent)
	if parentNode == nil {
		return fmt.Errorf("Parent %s does not exist", parent)
	}
	if count <= 0 {
		return nil
	}
	if first < 0 || len(parentNode.children) < first+count {
		return fmt.Errorf("Rows [%d, %d) out of range [0, %d)", first, first+count, len(parentNode.children))
	}

	for _, node := range parentNode.children[first : first+count] {
		self.forgetNode(node)
	}
	parentNode.children = slices.Delete(parentNode.children, first, first+count)

	parentIndex := self.indexOf(parentNode, 0)
	for _, listener := range self.listeners.Get() {
		listener.RowsRemoved(parentIndex, first, first+count-1)
	}
	return nil
}

// replaces the whole content. all indexes become invalid
func (self *TreeModel) Reset(rows ...Row) {
	self.ResetColumns(self.columnCount, rows...)
}

// replaces the whole content and the column count
func (self *TreeModel) ResetColumns(columnCount int, rows ...Row) {
	if columnCount <= 0 {
		panic(fmt.Errorf("Column count must be positive: %d", columnCount))
	}

	for _, listener := range self.listeners.Get() {
		listener.ModelAboutToBeReset()
	}

	self.columnCount = columnCount
	self.root.children = nil
	clear(self.nodes)
	for _, r := range rows {
		self.root.children = append(self.root.children, self.newNode(r, self.root))
	}

	for _, listener := range self.listeners.Get() {
		listener.ModelReset()
	}
}

func (self *TreeModel) Snapshot() []Row {
	return self.snapshotChildren(self.root)
}

// the subtree rows under `parent`
func (self *TreeModel) SnapshotAt(parent Index) []Row {
	parentNode := self.node(parent)
	if parentNode == nil {
		return nil
	}
	return self.snapshotChildren(parentNode)
}

func (self *TreeModel) snapshotChildren(node *treeNode) []Row {
	if len(node.children) == 0 {
		return nil
	}
	rows := make([]Row, len(node.children))
	for i, child := range node.children {
		rows[i] = Row{
			Values:   slices.Clone(child.values),
			Children: self.snapshotChildren(child),
		}
	}
	return rows
}
