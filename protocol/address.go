package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// identifies one replicated object on an endpoint
// addresses are assigned by the probe and announced to the observer
// comparable
type ObjectAddress [16]byte

// the zero address. an object without an address must not send
var InvalidObjectAddress = ObjectAddress{}

// messages for the endpoint itself, e.g. object announcements
var EndpointAddress = ObjectAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func NewObjectAddress() ObjectAddress {
	return ObjectAddress(ulid.Make())
}

func ObjectAddressFromBytes(addressBytes []byte) (ObjectAddress, error) {
	if len(addressBytes) != 16 {
		return ObjectAddress{}, errors.New("Object address must be 16 bytes")
	}
	return ObjectAddress(addressBytes), nil
}

func ParseObjectAddress(addressStr string) (ObjectAddress, error) {
	return parseUuid(addressStr)
}

func (self ObjectAddress) IsValid() bool {
	return self != InvalidObjectAddress
}

func (self ObjectAddress) Bytes() []byte {
	return self[0:16]
}

func (self ObjectAddress) String() string {
	return encodeUuid(self)
}

func parseUuid(src string) (dst [16]byte, err error) {
	switch len(src) {
	case 36:
		src = src[0:8] + src[9:13] + src[14:18] + src[19:23] + src[24:]
	case 32:
		// dashes already stripped, assume valid
	default:
		// assume invalid.
		return dst, fmt.Errorf("cannot parse address %v", src)
	}

	buf, err := hex.DecodeString(src)
	if err != nil {
		return dst, err
	}

	copy(dst[:], buf)
	return dst, err
}

func encodeUuid(src [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", src[0:4], src[4:6], src[6:8], src[8:10], src[10:16])
}
