package advert

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Data-type tags observed on the wire. The tag selects the operand
// shape; what the operand means additionally depends on the opcode
// carrying it, which is the caller's concern, not the phrase reader's.
const (
	TypeUint8     = 0x00 // 1 byte, unsigned
	TypeWord      = 0x01 // 4 bytes; u32, IPv4 or 4-char text by opcode
	TypeText      = 0x03 // 2-byte length, then that many bytes of text
	TypeUint16    = 0x06 // 2 bytes, unsigned
	TypeUint8Alt  = 0x07 // 1 byte, unsigned
	TypeUint16Alt = 0x08 // 2 bytes, unsigned
	TypeBlock     = 0x09 // 8 opaque bytes, expected all-zero
)

// Opcode is the 4-character tag opening every phrase. Channel section
// markers embed the channel ordinal in the tag itself (e.g. "S001").
type Opcode string

// Opcodes with known or partially known meaning.
const (
	OpNest            Opcode = "NEST" // opens the preamble section
	OpProtocolVersion Opcode = "PVER"
	OpAdvertType      Opcode = "ADVT"
	OpTerminator      Opcode = "TERM" // ends the preamble; operand is an unenforced section length
	OpSectionCount    Opcode = "INDI" // exact phrase count of the section that follows
	OpSequence        Opcode = "ADVV"
	OpNodeName        Opcode = "ATRN"
	OpNodeAddress     Opcode = "INIP"
	OpUDPPort         Opcode = "UDPC"
	OpHardwareID      Opcode = "HWID"
	OpSourceCount     Opcode = "NUMS" // advisory; real channel count is however many sections appear
	OpChannelID       Opcode = "PSID"
	OpChannelName     Opcode = "PSNM"
	OpShareable       Opcode = "SHAB"
	OpFromSource      Opcode = "FSID"
	OpBackfeed        Opcode = "BSID"
	OpAltChannelID    Opcode = "LPID"
)

// ChannelNumber reports whether the opcode is a channel section marker
// (one letter followed by three digits) and, if so, the channel ordinal
// encoded in its digit suffix.
func (op Opcode) ChannelNumber() (int, bool) {
	if len(op) != 4 {
		return 0, false
	}
	c := op[0]
	if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
		return 0, false
	}
	n := 0
	for i := 1; i < 4; i++ {
		d := op[i]
		if d < '0' || d > '9' {
			return 0, false
		}
		n = n*10 + int(d-'0')
	}
	return n, true
}

// Phrase is one opcode/data-type/operand unit, the protocol's atomic
// element. Operand holds the raw wire bytes; interpretation is selected
// at the call site via the accessor methods, keeping the reader itself
// free of opcode-specific knowledge.
type Phrase struct {
	Opcode   Opcode
	DataType byte
	Operand  []byte
}

// ReadPhrase decodes the phrase at the cursor's current position,
// advancing it by exactly 4 (opcode) + 1 (type tag) + operand length.
// A type tag outside the known set fails with ErrUnknownDataType.
func ReadPhrase(c *Cursor) (Phrase, error) {
	start := c.Offset()

	tag, err := c.ReadExact(4)
	if err != nil {
		return Phrase{}, err
	}
	p := Phrase{Opcode: Opcode(tag)}

	p.DataType, err = c.ReadByte()
	if err != nil {
		return Phrase{}, err
	}

	switch p.DataType {
	case TypeUint8, TypeUint8Alt:
		p.Operand, err = c.ReadExact(1)
	case TypeWord:
		p.Operand, err = c.ReadExact(4)
	case TypeUint16, TypeUint16Alt:
		p.Operand, err = c.ReadExact(2)
	case TypeBlock:
		p.Operand, err = c.ReadExact(8)
	case TypeText:
		var lb []byte
		lb, err = c.ReadExact(2)
		if err != nil {
			return Phrase{}, err
		}
		p.Operand, err = c.ReadExact(int(binary.BigEndian.Uint16(lb)))
	default:
		return Phrase{}, newDecodeError(ErrUnknownDataType, start,
			"opcode %q carries type tag 0x%02x", p.Opcode, p.DataType)
	}
	if err != nil {
		return Phrase{}, err
	}
	return p, nil
}

// Uint returns the operand of a 1- or 2-byte integer phrase, widened.
func (p Phrase) Uint() uint16 {
	switch len(p.Operand) {
	case 1:
		return uint16(p.Operand[0])
	case 2:
		return binary.BigEndian.Uint16(p.Operand)
	}
	return 0
}

// Uint32 returns a 4-byte operand as an unsigned 32-bit integer.
func (p Phrase) Uint32() uint32 {
	if len(p.Operand) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(p.Operand)
}

// IPv4 returns a 4-byte operand rendered as a dotted-quad address.
func (p Phrase) IPv4() string {
	if len(p.Operand) != 4 {
		return ""
	}
	return net.IPv4(p.Operand[0], p.Operand[1], p.Operand[2], p.Operand[3]).String()
}

// Text returns the operand as a string truncated at the first NUL byte.
// Senders have been observed to leave unterminated garbage after the
// NUL inside the declared field length; those bytes are discarded and
// never surfaced.
func (p Phrase) Text() string {
	return cutAtNUL(p.Operand)
}

// Bool interprets a 1-byte operand as a flag.
func (p Phrase) Bool() bool {
	return len(p.Operand) == 1 && p.Operand[0] != 0
}

// IsZeroBlock reports whether an opaque block operand is all-zero, the
// expected (but not required) state of type 0x09 operands.
func (p Phrase) IsZeroBlock() bool {
	for _, b := range p.Operand {
		if b != 0 {
			return false
		}
	}
	return true
}

func (p Phrase) String() string {
	return fmt.Sprintf("%s/0x%02x % x", p.Opcode, p.DataType, p.Operand)
}

// cutAtNUL truncates at the first NUL byte, keeping everything before
// it and discarding everything after.
func cutAtNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
