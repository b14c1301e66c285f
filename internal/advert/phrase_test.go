package advert

import (
	"errors"
	"testing"
)

// buildPhrase assembles the wire form of one phrase: 4-byte opcode,
// 1-byte type tag, operand. Text operands get their 2-byte length
// prefix added by the caller.
func buildPhrase(op string, typ byte, operand ...byte) []byte {
	b := append([]byte(op), typ)
	return append(b, operand...)
}

// buildTextPhrase assembles a type 0x03 phrase with the declared field
// length and the given bytes (padded with NULs up to the length).
func buildTextPhrase(op string, fieldLen int, content ...byte) []byte {
	field := make([]byte, fieldLen)
	copy(field, content)
	b := append([]byte(op), TypeText, byte(fieldLen>>8), byte(fieldLen))
	return append(b, field...)
}

func TestReadPhraseAdvancesExactly(t *testing.T) {
	tests := []struct {
		name    string
		wire    []byte
		operand int // expected operand length
	}{
		{"type 0x00 one byte", buildPhrase("SHAB", TypeUint8, 0x01), 1},
		{"type 0x07 one byte", buildPhrase("ADVT", TypeUint8Alt, 0x02), 1},
		{"type 0x01 four bytes", buildPhrase("PSID", TypeWord, 0x00, 0x00, 0x17, 0x8F), 4},
		{"type 0x06 two bytes", buildPhrase("PVER", TypeUint16, 0x00, 0x02), 2},
		{"type 0x08 two bytes", buildPhrase("UDPC", TypeUint16Alt, 0x0F, 0xA0), 2},
		{"type 0x09 eight bytes", buildPhrase("NEST", TypeBlock, 0, 0, 0, 0, 0, 0, 0, 0), 8},
		{"type 0x03 counted text", buildTextPhrase("ATRN", 6, 'n', 'o', 'd', 'e'), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Trailing byte proves the reader stops exactly at the
			// operand boundary.
			c := NewCursor(append(tt.wire, 0xFF))

			p, err := ReadPhrase(c)
			if err != nil {
				t.Fatalf("ReadPhrase failed: %v", err)
			}
			if c.Offset() != len(tt.wire) {
				t.Errorf("Expected cursor at %d, got %d", len(tt.wire), c.Offset())
			}
			if len(p.Operand) != tt.operand {
				t.Errorf("Expected %d operand bytes, got %d", tt.operand, len(p.Operand))
			}
		})
	}
}

func TestReadPhraseDecodedValues(t *testing.T) {
	t.Run("u8", func(t *testing.T) {
		p := mustReadPhrase(t, buildPhrase("ADVT", TypeUint8Alt, 0x03))
		if p.Uint() != 3 {
			t.Errorf("Expected 3, got %d", p.Uint())
		}
	})

	t.Run("u16", func(t *testing.T) {
		p := mustReadPhrase(t, buildPhrase("PVER", TypeUint16, 0x01, 0x02))
		if p.Uint() != 0x0102 {
			t.Errorf("Expected 0x0102, got 0x%04x", p.Uint())
		}
	})

	t.Run("u32", func(t *testing.T) {
		p := mustReadPhrase(t, buildPhrase("PSID", TypeWord, 0x00, 0x00, 0x17, 0x8F))
		if p.Uint32() != 6031 {
			t.Errorf("Expected 6031, got %d", p.Uint32())
		}
	})

	t.Run("dotted quad", func(t *testing.T) {
		p := mustReadPhrase(t, buildPhrase("FSID", TypeWord, 239, 192, 23, 143))
		if p.IPv4() != "239.192.23.143" {
			t.Errorf("Expected 239.192.23.143, got %q", p.IPv4())
		}
	})

	t.Run("four-char text", func(t *testing.T) {
		p := mustReadPhrase(t, buildPhrase("TYPE", TypeWord, 'l', 'i', 'v', 'e'))
		if p.Text() != "live" {
			t.Errorf("Expected %q, got %q", "live", p.Text())
		}
	})

	t.Run("flag", func(t *testing.T) {
		p := mustReadPhrase(t, buildPhrase("SHAB", TypeUint8, 0x00))
		if p.Bool() {
			t.Error("Expected false flag")
		}
	})

	t.Run("zero block", func(t *testing.T) {
		p := mustReadPhrase(t, buildPhrase("STPL", TypeBlock, 0, 0, 0, 0, 0, 0, 0, 0))
		if !p.IsZeroBlock() {
			t.Error("Expected zero block")
		}
	})

	t.Run("non-zero block", func(t *testing.T) {
		p := mustReadPhrase(t, buildPhrase("STPL", TypeBlock, 0, 0, 0, 1, 0, 0, 0, 0))
		if p.IsZeroBlock() {
			t.Error("Expected non-zero block")
		}
	})
}

func TestTextTruncatedAtFirstNUL(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		fieldLen int
		expected string
	}{
		{
			name:     "clean padding",
			content:  []byte("Studio A"),
			fieldLen: 16,
			expected: "Studio A",
		},
		{
			name: "garbage after the NUL is discarded",
			// Senders reuse field buffers without clearing them, so
			// non-NUL garbage after the terminator is normal.
			content:  []byte{'M', 'i', 'c', ' ', '1', 0x00, 'o', 'l', 'd', 'j', 'u', 'n', 'k'},
			fieldLen: 16,
			expected: "Mic 1",
		},
		{
			name:     "no terminator at all",
			content:  []byte("0123456789abcdef"),
			fieldLen: 16,
			expected: "0123456789abcdef",
		},
		{
			name:     "leading NUL yields empty string",
			content:  []byte{0x00, 'x', 'y'},
			fieldLen: 8,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustReadPhrase(t, buildTextPhrase("PSNM", tt.fieldLen, tt.content...))
			if p.Text() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, p.Text())
			}
		})
	}
}

func TestReadPhraseUnknownDataType(t *testing.T) {
	c := NewCursor(buildPhrase("ATRN", 0x42, 0xDE, 0xAD))

	_, err := ReadPhrase(c)
	if !errors.Is(err, ErrUnknownDataType) {
		t.Fatalf("Expected ErrUnknownDataType, got %v", err)
	}
}

func TestReadPhraseTruncatedOperand(t *testing.T) {
	tests := []struct {
		name string
		wire []byte
	}{
		{"cut inside opcode", []byte("NE")},
		{"cut before type tag", []byte("NEST")},
		{"cut inside operand", buildPhrase("PSID", TypeWord, 0x00, 0x00)},
		{"cut inside text length", append([]byte("ATRN"), TypeText, 0x00)},
		{"declared text length exceeds buffer", append([]byte("ATRN"), TypeText, 0x00, 0x20, 'x')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPhrase(NewCursor(tt.wire))
			if !errors.Is(err, ErrTruncated) {
				t.Errorf("Expected ErrTruncated, got %v", err)
			}
		})
	}
}

func TestOpcodeChannelNumber(t *testing.T) {
	tests := []struct {
		op       Opcode
		number   int
		isMarker bool
	}{
		{"S001", 1, true},
		{"S023", 23, true},
		{"s100", 100, true},
		{"D999", 999, true},
		{"NEST", 0, false},
		{"INDI", 0, false},
		{"PSID", 0, false},
		{"1234", 0, false},
		{"S0A1", 0, false},
		{"S01", 0, false},
	}

	for _, tt := range tests {
		n, ok := tt.op.ChannelNumber()
		if ok != tt.isMarker || n != tt.number {
			t.Errorf("ChannelNumber(%q) = (%d, %v), expected (%d, %v)",
				tt.op, n, ok, tt.number, tt.isMarker)
		}
	}
}

func mustReadPhrase(t *testing.T, wire []byte) Phrase {
	t.Helper()
	p, err := ReadPhrase(NewCursor(wire))
	if err != nil {
		t.Fatalf("ReadPhrase failed: %v", err)
	}
	return p
}
