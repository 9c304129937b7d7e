package protocol

import (
	"github.com/bringyour/remoteview/model"
)

// deeper snapshots are rejected as malformed
const MaxRowDepth = 256

// count:int32, then per row: value count, values, children
func (self *Payload) WriteRows(rows []model.Row) {
	self.WriteInt(len(rows))
	for _, row := range rows {
		self.WriteInt(len(row.Values))
		for _, value := range row.Values {
			self.WriteString(value)
		}
		self.WriteRows(row.Children)
	}
}

func (self *Payload) ReadRows() ([]model.Row, error) {
	rows := self.readRows(0)
	if self.err != nil {
		return nil, self.err
	}
	return rows, nil
}

func (self *Payload) readRows(depth int) []model.Row {
	if MaxRowDepth < depth {
		self.err = ErrPrematureEnd
		return nil
	}
	n := self.ReadCount()
	if self.err != nil {
		return nil
	}
	// each row is at least two counts
	if self.Remaining() < 8*n {
		self.err = ErrPrematureEnd
		return nil
	}
	if n == 0 {
		return nil
	}
	rows := make([]model.Row, 0, n)
	for i := 0; i < n; i += 1 {
		valueCount := self.ReadCount()
		if self.err != nil {
			return nil
		}
		// each value is at least a one byte length
		if self.Remaining() < valueCount {
			self.err = ErrPrematureEnd
			return nil
		}
		var values []string
		for j := 0; j < valueCount; j += 1 {
			values = append(values, self.ReadString())
		}
		children := self.readRows(depth + 1)
		if self.err != nil {
			return nil
		}
		rows = append(rows, model.Row{
			Values:   values,
			Children: children,
		})
	}
	return rows
}
