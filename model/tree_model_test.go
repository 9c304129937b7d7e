package model

import (
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"
)

func testRows(n int, prefix string) []Row {
	rows := make([]Row, n)
	for i := 0; i < n; i += 1 {
		rows[i] = NewRow(fmt.Sprintf("%s%d", prefix, i), fmt.Sprintf("%s%d.1", prefix, i))
	}
	return rows
}

func TestTreeModelIndex(t *testing.T) {
	treeModel := NewTreeModel(2)
	treeModel.Reset(
		NewRow("a", "a.1").WithChildren(NewRow("a/x", "a/x.1"), NewRow("a/y", "a/y.1")),
		NewRow("b", "b.1"),
	)

	assert.Equal(t, 2, treeModel.RowCount(Index{}))
	assert.Equal(t, 2, treeModel.ColumnCount(Index{}))

	a := treeModel.Index(0, 0, Index{})
	assert.Equal(t, true, a.IsValid())
	assert.Equal(t, "a", a.Data())
	assert.Equal(t, false, a.Parent().IsValid())
	assert.Equal(t, 2, treeModel.RowCount(a))

	y := treeModel.Index(1, 1, a)
	assert.Equal(t, "a/y.1", y.Data())
	assert.Equal(t, true, y.Parent().SameItem(a))
	assert.Equal(t, 0, y.Parent().Row())

	// out of range
	assert.Equal(t, false, treeModel.Index(2, 0, Index{}).IsValid())
	assert.Equal(t, false, treeModel.Index(0, 2, Index{}).IsValid())
	assert.Equal(t, false, treeModel.Index(-1, 0, Index{}).IsValid())
	assert.Equal(t, false, treeModel.Index(0, 0, treeModel.Index(1, 0, Index{})).IsValid())

	// indexes from another model do not resolve
	other := NewTreeModel(2)
	other.Reset(testRows(3, "o")...)
	assert.Equal(t, false, treeModel.Index(0, 0, other.Index(0, 0, Index{})).IsValid())
}

func TestTreeModelNotifications(t *testing.T) {
	treeModel := NewTreeModel(1)

	events := []string{}
	treeModel.AddListener(&ModelListenerFuncs{
		AboutToBeReset: func() {
			events = append(events, "aboutToReset")
		},
		Reset: func() {
			events = append(events, "reset")
		},
		Inserted: func(parent Index, first int, last int) {
			events = append(events, fmt.Sprintf("inserted %d %d %d", parent.Row(), first, last))
		},
		Removed: func(parent Index, first int, last int) {
			events = append(events, fmt.Sprintf("removed %d %d %d", parent.Row(), first, last))
		},
	})

	treeModel.Reset(testRows(3, "r")...)
	err := treeModel.AppendRows(Index{}, testRows(2, "s")...)
	assert.Equal(t, err, nil)
	err = treeModel.InsertRows(treeModel.Index(1, 0, Index{}), 0, testRows(1, "c")...)
	assert.Equal(t, err, nil)
	err = treeModel.RemoveRows(Index{}, 0, 2)
	assert.Equal(t, err, nil)

	assert.Equal(t, []string{
		"aboutToReset",
		"reset",
		"inserted -1 3 4",
		"inserted 1 0 0",
		"removed -1 0 1",
	}, events)

	assert.Equal(t, 3, treeModel.RowCount(Index{}))
	assert.Equal(t, "r2", treeModel.Index(0, 0, Index{}).Data())

	// errors do not notify
	err = treeModel.RemoveRows(Index{}, 2, 5)
	assert.NotEqual(t, err, nil)
	err = treeModel.InsertRows(Index{}, 10, testRows(1, "x")...)
	assert.NotEqual(t, err, nil)
	assert.Equal(t, 5, len(events))
}

func TestTreeModelIdsAreStable(t *testing.T) {
	treeModel := NewTreeModel(1)
	treeModel.Reset(testRows(3, "r")...)

	r1 := treeModel.Index(1, 0, Index{})
	treeModel.InsertRows(Index{}, 0, testRows(2, "x")...)

	// the stored row is stale, the item is not
	assert.Equal(t, false, IsLive(r1))
	moved := treeModel.Index(3, 0, Index{})
	assert.Equal(t, r1.Id(), moved.Id())
	assert.Equal(t, "r1", moved.Data())

	treeModel.RemoveRows(Index{}, 3, 1)
	assert.Equal(t, false, IsLive(moved))
}

func TestTreeModelSnapshot(t *testing.T) {
	rows := []Row{
		NewRow("a").WithChildren(NewRow("a/x").WithChildren(NewRow("a/x/1"))),
		NewRow("b"),
	}
	treeModel := NewTreeModel(1)
	treeModel.Reset(rows...)
	assert.Equal(t, rows, treeModel.Snapshot())

	copyModel := NewTreeModel(1)
	copyModel.Reset(treeModel.Snapshot()...)
	assert.Equal(t, treeModel.Snapshot(), copyModel.Snapshot())

	a := treeModel.Index(0, 0, Index{})
	assert.Equal(t, rows[0].Children, treeModel.SnapshotAt(a))
}
