package advert

import "fmt"

// Magic is the fixed 4-byte preamble every advertisement datagram is
// expected to open with. A mismatch is reported, not fatal, since the
// header's exact semantics are unconfirmed.
var Magic = [4]byte{0x03, 0x00, 0x02, 0x07}

// HeaderSize is the fixed preamble length: magic, counter, padding.
const HeaderSize = 16

// Header is the fixed 16-byte message preamble. The counter appears to
// increment per sender but its purpose is unconfirmed; it is preserved
// opaquely and never validated against history here. Cross-message
// ordering, if wanted, belongs to the caller's store.
type Header struct {
	Magic   [4]byte `json:"-"`
	Counter uint32  `json:"counter"`
	Padding [8]byte `json:"-"`
}

// Advertisement type values with reverse-engineered structure. Types 3
// and 4 are emitted on real networks but their section layout is still
// undocumented.
const (
	TypeSources     = 1 // node identity plus channel sections
	TypeNodeSummary = 2 // node identity only
)

// Advertisement is the decode result for one datagram. It is built in
// a single forward pass and finalized only once the buffer has been
// fully consumed (or deliberately abandoned for undocumented types).
type Advertisement struct {
	Header Header `json:"header"`

	ProtocolVersion uint16 `json:"protocol_version"`
	Type            uint8  `json:"advertisement_type"`

	SequenceNumber      uint32 `json:"sequence_number"`
	NodeName            string `json:"node_name"`
	NodeAddress         string `json:"node_address"`
	UDPPort             uint16 `json:"udp_port"`
	HardwareID          uint16 `json:"hardware_id"`
	DeclaredSourceCount uint16 `json:"declared_source_count"`

	Channels []Channel `json:"channels"`

	// Extra holds known-but-unexplained fields keyed by opcode, raw
	// operand preserved verbatim for forward compatibility.
	Extra map[Opcode][]byte `json:"-"`

	// Warnings collects protocol assumption violations that did not
	// prevent decoding.
	Warnings []Warning `json:"warnings,omitempty"`

	// TrailingBytes counts bytes left unconsumed at the end of the
	// buffer. Non-zero only for advertisement types whose trailing
	// sections are not yet reverse-engineered.
	TrailingBytes int `json:"trailing_bytes,omitempty"`
}

// Channel describes one audio source offered by the advertising node.
type Channel struct {
	// Number is the ordinal parsed from the section marker opcode's
	// digit suffix (e.g. 1 for "S001").
	Number int `json:"number"`

	LivewireChannel uint32 `json:"livewire_channel"`
	Name            string `json:"name"`
	FromSource      string `json:"from_source"`
	Backfeed        string `json:"backfeed"`
	Shareable       bool   `json:"shareable"`

	// Extra holds per-channel flags whose meaning is not yet
	// understood, keyed by opcode, raw operand preserved verbatim.
	Extra map[Opcode][]byte `json:"-"`
}

func (a *Advertisement) warn(offset int, format string, args ...interface{}) {
	a.Warnings = append(a.Warnings, Warning{
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	})
}

func (a *Advertisement) setExtra(op Opcode, operand []byte) {
	if a.Extra == nil {
		a.Extra = make(map[Opcode][]byte)
	}
	a.Extra[op] = append([]byte(nil), operand...)
}

func (c *Channel) setExtra(op Opcode, operand []byte) {
	if c.Extra == nil {
		c.Extra = make(map[Opcode][]byte)
	}
	c.Extra[op] = append([]byte(nil), operand...)
}
