package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// wire values are stable for one protocol version
type MessageType uint32

const (
	MessageTypeInvalid MessageType = 0

	// endpoint control, always sent to `EndpointAddress`
	MessageTypeObjectAdded     MessageType = 1
	MessageTypeObjectRemoved   MessageType = 2
	MessageTypeObjectMonitored MessageType = 3

	// the observer no longer handles an address
	MessageTypeObjectUnmonitored MessageType = 4

	MessageTypeSelectionModelSelect  MessageType = 10
	MessageTypeSelectionModelCurrent MessageType = 11

	MessageTypeModelReset        MessageType = 20
	MessageTypeModelRowsInserted MessageType = 21
	MessageTypeModelRowsRemoved  MessageType = 22
	MessageTypeModelSyncRequest  MessageType = 23
)

func (self MessageType) IsKnown() bool {
	switch self {
	case MessageTypeObjectAdded,
		MessageTypeObjectRemoved,
		MessageTypeObjectMonitored,
		MessageTypeObjectUnmonitored,
		MessageTypeSelectionModelSelect,
		MessageTypeSelectionModelCurrent,
		MessageTypeModelReset,
		MessageTypeModelRowsInserted,
		MessageTypeModelRowsRemoved,
		MessageTypeModelSyncRequest:
		return true
	default:
		return false
	}
}

func (self MessageType) String() string {
	switch self {
	case MessageTypeObjectAdded:
		return "ObjectAdded"
	case MessageTypeObjectRemoved:
		return "ObjectRemoved"
	case MessageTypeObjectMonitored:
		return "ObjectMonitored"
	case MessageTypeObjectUnmonitored:
		return "ObjectUnmonitored"
	case MessageTypeSelectionModelSelect:
		return "SelectionModelSelect"
	case MessageTypeSelectionModelCurrent:
		return "SelectionModelCurrent"
	case MessageTypeModelReset:
		return "ModelReset"
	case MessageTypeModelRowsInserted:
		return "ModelRowsInserted"
	case MessageTypeModelRowsRemoved:
		return "ModelRowsRemoved"
	case MessageTypeModelSyncRequest:
		return "ModelSyncRequest"
	default:
		return fmt.Sprintf("MessageType(%d)", uint32(self))
	}
}

// frame field numbers
const (
	frameAddressField protowire.Number = 1
	frameTypeField    protowire.Number = 2
	framePayloadField protowire.Number = 3
)

// a typed message addressed to one object on the other endpoint
type Message struct {
	Address ObjectAddress
	Type    MessageType
	payload *Payload
}

func NewMessage(address ObjectAddress, messageType MessageType) *Message {
	return &Message{
		Address: address,
		Type:    messageType,
		payload: NewPayload(nil),
	}
}

func NewMessageWithPayload(address ObjectAddress, messageType MessageType, payloadBytes []byte) *Message {
	return &Message{
		Address: address,
		Type:    messageType,
		payload: NewPayload(payloadBytes),
	}
}

// the payload is written by the sender and read sequentially by the receiver
func (self *Message) Payload() *Payload {
	return self.payload
}

func (self *Message) String() string {
	return fmt.Sprintf("%s@%s(%dB)", self.Type, self.Address, len(self.payload.Bytes()))
}

func EncodeFrame(message *Message) ([]byte, error) {
	if !message.Type.IsKnown() {
		return nil, fmt.Errorf("Unknown message type: %s", message.Type)
	}
	var b []byte
	b = protowire.AppendTag(b, frameAddressField, protowire.BytesType)
	b = protowire.AppendBytes(b, message.Address.Bytes())
	b = protowire.AppendTag(b, frameTypeField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(message.Type))
	b = protowire.AppendTag(b, framePayloadField, protowire.BytesType)
	b = protowire.AppendBytes(b, message.payload.Bytes())
	return b, nil
}

func RequireEncodeFrame(message *Message) []byte {
	b, err := EncodeFrame(message)
	if err != nil {
		panic(err)
	}
	return b
}

func DecodeFrame(b []byte) (*Message, error) {
	var address ObjectAddress
	messageType := MessageTypeInvalid
	var payloadBytes []byte

	for 0 < len(b) {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == frameAddressField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			var err error
			address, err = ObjectAddressFromBytes(v)
			if err != nil {
				return nil, err
			}
			b = b[n:]
		case num == frameTypeField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			messageType = MessageType(v)
			b = b[n:]
		case num == framePayloadField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			// copy out of the transport buffer
			payloadBytes = append([]byte{}, v...)
			b = b[n:]
		default:
			// skip unknown fields for forward compatibility
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}

	if !messageType.IsKnown() {
		return nil, fmt.Errorf("Unknown message type: %s", messageType)
	}
	return NewMessageWithPayload(address, messageType, payloadBytes), nil
}
