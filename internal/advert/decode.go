package advert

// TraceFunc receives every phrase as it is decoded, with the buffer
// offset it started at. Used to drive the verbose diagnostic channel.
type TraceFunc func(offset int, p Phrase)

// Decoder decodes advertisement datagrams. The zero value is ready to
// use. A Decoder holds no state across calls, so one instance may be
// shared by concurrent goroutines.
type Decoder struct {
	// Trace, when non-nil, is called for every phrase read.
	Trace TraceFunc
}

// Decode is a convenience for (&Decoder{}).Decode.
func Decode(data []byte) (*Advertisement, error) {
	var d Decoder
	return d.Decode(data)
}

// Decode parses one complete advertisement datagram. It returns either
// a fully-formed Advertisement or the first failure encountered; on
// failure no partial record is returned. The input buffer is borrowed
// for the duration of the call and never mutated.
func (d *Decoder) Decode(data []byte) (*Advertisement, error) {
	c := NewCursor(data)
	adv := &Advertisement{}

	if err := d.parseHeader(c, adv); err != nil {
		return nil, err
	}
	if err := d.parseNest(c, adv); err != nil {
		return nil, err
	}

	// Advertisement types 3 and 4 are known to exist but their section
	// structure has not been reverse-engineered; anything unrecognized
	// after the nest is left unconsumed rather than failed, so a
	// long-running listener survives them.
	lenient := adv.Type != TypeSources && adv.Type != TypeNodeSummary

	for !c.AtEnd() {
		mark := c.Offset()
		err := d.parseTopLevel(c, adv)
		if err == nil {
			continue
		}
		if lenient {
			adv.warn(mark, "undocumented type %d section left unconsumed: %v", adv.Type, err)
			adv.TrailingBytes = len(data) - mark
			return adv, nil
		}
		return nil, err
	}
	return adv, nil
}

// parseTopLevel consumes one section at the message's top level: a
// channel section opened by its marker opcode, or a node section opened
// by INDI.
func (d *Decoder) parseTopLevel(c *Cursor, adv *Advertisement) error {
	start := c.Offset()
	p, err := d.readPhrase(c)
	if err != nil {
		return err
	}

	if n, ok := p.Opcode.ChannelNumber(); ok {
		ch, err := d.parseChannelSection(c, adv, p, n)
		if err != nil {
			return err
		}
		adv.Channels = append(adv.Channels, ch)
		return nil
	}
	if p.Opcode == OpSectionCount {
		return d.parseNodeSection(c, adv, int(p.Uint()))
	}
	return newDecodeError(ErrUnknownOpcode, start,
		"unexpected opcode %q at top level", p.Opcode)
}

// parseHeader checks and strips the fixed 16-byte preamble. Since the
// header's purpose is not fully understood, violated assumptions are
// warnings, never failures.
func (d *Decoder) parseHeader(c *Cursor, adv *Advertisement) error {
	b, err := c.ReadExact(HeaderSize)
	if err != nil {
		return err
	}

	copy(adv.Header.Magic[:], b[0:4])
	if adv.Header.Magic != Magic {
		adv.warn(0, "header magic % x, expected % x", b[0:4], Magic[:])
	}

	adv.Header.Counter = uint32(b[4])<<24 | uint32(b[5])<<16 | uint32(b[6])<<8 | uint32(b[7])

	copy(adv.Header.Padding[:], b[8:16])
	for _, pad := range adv.Header.Padding {
		if pad != 0 {
			adv.warn(8, "header padding not zero: % x", b[8:16])
			break
		}
	}
	return nil
}

// parseNest consumes the protocol-version/advertisement-type preamble
// section. The first phrase must be NEST; the remaining fields arrive
// in no guaranteed order, and TERM ends the section. TERM's operand
// declares the byte length of the following section but real senders
// are not consistent about it, so it is preserved, not enforced.
func (d *Decoder) parseNest(c *Cursor, adv *Advertisement) error {
	start := c.Offset()
	p, err := d.readPhrase(c)
	if err != nil {
		return err
	}
	if p.Opcode != OpNest {
		return newDecodeError(ErrProtocolViolation, start,
			"expected %q to open the message, got %q", OpNest, p.Opcode)
	}
	if p.DataType == TypeBlock && !p.IsZeroBlock() {
		adv.warn(start, "%s block not zero: % x", p.Opcode, p.Operand)
	}

	for {
		start = c.Offset()
		if p, err = d.readPhrase(c); err != nil {
			return err
		}

		switch p.Opcode {
		case OpProtocolVersion:
			adv.ProtocolVersion = p.Uint()
		case OpAdvertType:
			t := p.Uint()
			if t < 1 || t > 4 {
				return newDecodeError(ErrInvalidAdvertisementType, start,
					"advertisement type %d outside 1..4", t)
			}
			adv.Type = uint8(t)
		case OpTerminator:
			adv.setExtra(OpTerminator, p.Operand)
			return nil
		case OpSourceCount, OpSequence:
			// Seen at nest level on the wire; meaning there unconfirmed.
			adv.setExtra(p.Opcode, p.Operand)
		default:
			return newDecodeError(ErrUnknownOpcode, start,
				"unexpected opcode %q in nest section", p.Opcode)
		}
	}
}

// parseNodeSection consumes exactly count phrases of node identity
// fields. The count comes from the INDI phrase already read by the
// caller.
func (d *Decoder) parseNodeSection(c *Cursor, adv *Advertisement, count int) error {
	for i := 0; i < count; i++ {
		start := c.Offset()
		p, err := d.readPhrase(c)
		if err != nil {
			return err
		}

		switch p.Opcode {
		case OpSequence:
			adv.SequenceNumber = p.Uint32()
		case OpNodeName:
			adv.NodeName = p.Text()
		case OpNodeAddress:
			adv.NodeAddress = p.IPv4()
		case OpUDPPort:
			adv.UDPPort = p.Uint()
		case OpHardwareID:
			adv.HardwareID = p.Uint()
		case OpSourceCount:
			adv.DeclaredSourceCount = p.Uint()
		default:
			return newDecodeError(ErrUnknownOpcode, start,
				"unexpected opcode %q in node section", p.Opcode)
		}
	}
	return nil
}

// Per-channel opcodes observed on the wire whose meaning has not been
// reverse-engineered. Their operands are preserved verbatim so future
// understanding can be added without touching the wire-level decode.
var opaqueChannelFields = map[Opcode]bool{
	"FAST":         true,
	"FASM":         true,
	"BAST":         true,
	"BASM":         true,
	"STPL":         true,
	"TYPE":         true,
	OpAltChannelID: true,
}

// parseChannelSection consumes one audio-channel descriptor. The marker
// phrase has already been read; the section proper opens with its own
// INDI phrase count and is otherwise structured like the node section.
func (d *Decoder) parseChannelSection(c *Cursor, adv *Advertisement, marker Phrase, number int) (Channel, error) {
	ch := Channel{Number: number}
	ch.setExtra(marker.Opcode, marker.Operand)

	start := c.Offset()
	p, err := d.readPhrase(c)
	if err != nil {
		return ch, err
	}
	if p.Opcode != OpSectionCount {
		return ch, newDecodeError(ErrProtocolViolation, start,
			"channel section %q must open with %q, got %q", marker.Opcode, OpSectionCount, p.Opcode)
	}

	count := int(p.Uint())
	for i := 0; i < count; i++ {
		start = c.Offset()
		if p, err = d.readPhrase(c); err != nil {
			return ch, err
		}

		switch p.Opcode {
		case OpChannelID:
			ch.LivewireChannel = p.Uint32()
		case OpChannelName:
			ch.Name = p.Text()
		case OpFromSource:
			ch.FromSource = p.IPv4()
		case OpBackfeed:
			ch.Backfeed = p.IPv4()
		case OpShareable:
			ch.Shareable = p.Bool()
		default:
			if !opaqueChannelFields[p.Opcode] {
				return ch, newDecodeError(ErrUnknownOpcode, start,
					"unexpected opcode %q in channel section %q", p.Opcode, marker.Opcode)
			}
			if p.DataType == TypeBlock && !p.IsZeroBlock() {
				adv.warn(start, "%s block not zero: % x", p.Opcode, p.Operand)
			}
			ch.setExtra(p.Opcode, p.Operand)
		}
	}
	return ch, nil
}

// readPhrase reads one phrase and feeds the trace callback.
func (d *Decoder) readPhrase(c *Cursor) (Phrase, error) {
	offset := c.Offset()
	p, err := ReadPhrase(c)
	if err != nil {
		return p, err
	}
	if d.Trace != nil {
		d.Trace(offset, p)
	}
	return p, nil
}
