package protocol

import (
	"errors"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// a read ran past the end of the payload, or a length prefix was malformed
var ErrPrematureEnd = errors.New("Premature end of payload")

// Sequential message payload.
// Writes append; reads consume from the front. The first read error is sticky:
// every following read returns the zero value and `Err` keeps the first error,
// so a decoder can read a whole structure and check once.
type Payload struct {
	b      []byte
	offset int
	err    error
}

func NewPayload(b []byte) *Payload {
	return &Payload{
		b: b,
	}
}

func (self *Payload) Bytes() []byte {
	return self.b
}

func (self *Payload) Err() error {
	return self.err
}

// unread byte count
func (self *Payload) Remaining() int {
	return len(self.b) - self.offset
}

func (self *Payload) AtEnd() bool {
	return self.Remaining() == 0
}

func (self *Payload) WriteInt32(v int32) {
	self.b = protowire.AppendFixed32(self.b, uint32(v))
}

func (self *Payload) WriteString(v string) {
	self.b = protowire.AppendString(self.b, v)
}

func (self *Payload) WriteBytes(v []byte) {
	self.b = protowire.AppendBytes(self.b, v)
}

// writes an int that must fit in an int32
func (self *Payload) WriteInt(v int) {
	if v < math.MinInt32 || math.MaxInt32 < v {
		panic("Value does not fit in int32.")
	}
	self.WriteInt32(int32(v))
}

func (self *Payload) ReadInt32() int32 {
	if self.err != nil {
		return 0
	}
	v, n := protowire.ConsumeFixed32(self.b[self.offset:])
	if n < 0 {
		self.err = ErrPrematureEnd
		return 0
	}
	self.offset += n
	return int32(v)
}

func (self *Payload) ReadInt() int {
	return int(self.ReadInt32())
}

func (self *Payload) ReadString() string {
	if self.err != nil {
		return ""
	}
	v, n := protowire.ConsumeString(self.b[self.offset:])
	if n < 0 {
		self.err = ErrPrematureEnd
		return ""
	}
	self.offset += n
	return v
}

func (self *Payload) ReadBytes() []byte {
	if self.err != nil {
		return nil
	}
	v, n := protowire.ConsumeBytes(self.b[self.offset:])
	if n < 0 {
		self.err = ErrPrematureEnd
		return nil
	}
	self.offset += n
	return append([]byte{}, v...)
}

// a count prefix for a following sequence
// negative counts are malformed and set the read error
func (self *Payload) ReadCount() int {
	count := self.ReadInt32()
	if self.err != nil {
		return 0
	}
	if count < 0 {
		self.err = ErrPrematureEnd
		return 0
	}
	return int(count)
}

func (self *Payload) WriteObjectAddress(address ObjectAddress) {
	self.WriteBytes(address.Bytes())
}

func (self *Payload) ReadObjectAddress() ObjectAddress {
	b := self.ReadBytes()
	if self.err != nil {
		return InvalidObjectAddress
	}
	address, err := ObjectAddressFromBytes(b)
	if err != nil {
		self.err = err
		return InvalidObjectAddress
	}
	return address
}
