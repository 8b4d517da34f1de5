package xrpl

import (
	"errors"
	"fmt"
)

// Serialized-type codes of the XRPL binary format.
const (
	stUInt16    = 1
	stUInt32    = 2
	stUInt64    = 3
	stHash128   = 4
	stHash256   = 5
	stAmount    = 6
	stBlob      = 7
	stAccountID = 8
	stObject    = 14
	stArray     = 15
	stUInt8     = 16
	stHash160   = 17
	stPathSet   = 18
	stVector256 = 19
)

// Field codes of the signature fields (type Blob).
const (
	fieldSigningPubKey = 3
	fieldTxnSignature  = 4
)

var errTruncated = errors.New("truncated field data")

// Field is one decoded top-level field of a serialized transaction.
type Field struct {
	TypeCode  int
	FieldCode int

	// Start is the offset of the field header, End the offset one past the
	// last value byte. Value excludes the header and any length prefix.
	Start int
	End   int
	Value []byte
}

// Walk decodes the field boundaries of a serialized transaction. Nested
// objects and arrays are consumed but only top-level fields are returned;
// the signature fields always live at the top level.
func Walk(data []byte) ([]Field, error) {
	var fields []Field
	i := 0
	for i < len(data) {
		f, next, err := readField(data, i)
		if err != nil {
			return nil, fmt.Errorf("field at offset %d: %w", i, err)
		}
		fields = append(fields, f)
		i = next
	}
	return fields, nil
}

func readField(data []byte, i int) (Field, int, error) {
	start := i
	typeCode, fieldCode, i, err := readHeader(data, i)
	if err != nil {
		return Field{}, 0, err
	}

	valStart := i
	end, err := skipValue(data, i, typeCode)
	if err != nil {
		return Field{}, 0, err
	}

	value := data[valStart:end]
	if typeCode == stBlob || typeCode == stAccountID || typeCode == stVector256 {
		// Strip the length prefix so Value holds the payload bytes
		n, consumed, err := readVL(data, valStart)
		if err != nil {
			return Field{}, 0, err
		}
		value = data[valStart+consumed : valStart+consumed+n]
	}

	return Field{
		TypeCode:  typeCode,
		FieldCode: fieldCode,
		Start:     start,
		End:       end,
		Value:     value,
	}, end, nil
}

func readHeader(data []byte, i int) (typeCode, fieldCode, next int, err error) {
	if i >= len(data) {
		return 0, 0, 0, errTruncated
	}
	b := data[i]
	i++
	typeCode = int(b >> 4)
	fieldCode = int(b & 0x0F)

	if typeCode == 0 {
		if i >= len(data) {
			return 0, 0, 0, errTruncated
		}
		typeCode = int(data[i])
		i++
	}
	if fieldCode == 0 {
		if i >= len(data) {
			return 0, 0, 0, errTruncated
		}
		fieldCode = int(data[i])
		i++
	}
	return typeCode, fieldCode, i, nil
}

// skipValue returns the offset one past the value of a field of the given
// type starting at i.
func skipValue(data []byte, i, typeCode int) (int, error) {
	need := func(n int) (int, error) {
		if i+n > len(data) {
			return 0, errTruncated
		}
		return i + n, nil
	}

	switch typeCode {
	case stUInt8:
		return need(1)
	case stUInt16:
		return need(2)
	case stUInt32:
		return need(4)
	case stUInt64:
		return need(8)
	case stHash128:
		return need(16)
	case stHash160:
		return need(20)
	case stHash256:
		return need(32)
	case stAmount:
		if i >= len(data) {
			return 0, errTruncated
		}
		// Top bit set marks an issued-currency amount (48 bytes), clear
		// marks a native amount (8 bytes)
		if data[i]&0x80 != 0 {
			return need(48)
		}
		return need(8)
	case stBlob, stAccountID, stVector256:
		n, consumed, err := readVL(data, i)
		if err != nil {
			return 0, err
		}
		i += consumed
		return need(n)
	case stObject:
		return skipObject(data, i)
	case stArray:
		return skipArray(data, i)
	case stPathSet:
		return skipPathSet(data, i)
	default:
		return 0, fmt.Errorf("unsupported serialized type %d", typeCode)
	}
}

func skipObject(data []byte, i int) (int, error) {
	for i < len(data) {
		if data[i] == 0xE1 { // object end marker
			return i + 1, nil
		}
		typeCode, _, next, err := readHeader(data, i)
		if err != nil {
			return 0, err
		}
		i, err = skipValue(data, next, typeCode)
		if err != nil {
			return 0, err
		}
	}
	return 0, errTruncated
}

func skipArray(data []byte, i int) (int, error) {
	for i < len(data) {
		if data[i] == 0xF1 { // array end marker
			return i + 1, nil
		}
		// Array elements are single wrapped objects
		typeCode, _, next, err := readHeader(data, i)
		if err != nil {
			return 0, err
		}
		if typeCode != stObject {
			return 0, fmt.Errorf("unexpected type %d inside array", typeCode)
		}
		i, err = skipObject(data, next)
		if err != nil {
			return 0, err
		}
	}
	return 0, errTruncated
}

func skipPathSet(data []byte, i int) (int, error) {
	for i < len(data) {
		b := data[i]
		i++
		switch b {
		case 0x00: // path set end
			return i, nil
		case 0xFF: // path separator
			continue
		default:
			// Step: each flag bit adds a 20-byte element
			n := 0
			if b&0x01 != 0 {
				n += 20
			}
			if b&0x10 != 0 {
				n += 20
			}
			if b&0x20 != 0 {
				n += 20
			}
			if i+n > len(data) {
				return 0, errTruncated
			}
			i += n
		}
	}
	return 0, errTruncated
}

// readVL decodes a variable-length prefix, returning the payload length and
// the number of prefix bytes consumed.
func readVL(data []byte, i int) (n, consumed int, err error) {
	if i >= len(data) {
		return 0, 0, errTruncated
	}
	b1 := int(data[i])
	switch {
	case b1 <= 192:
		return b1, 1, nil
	case b1 <= 240:
		if i+1 >= len(data) {
			return 0, 0, errTruncated
		}
		b2 := int(data[i+1])
		return 193 + (b1-193)*256 + b2, 2, nil
	case b1 <= 254:
		if i+2 >= len(data) {
			return 0, 0, errTruncated
		}
		b2 := int(data[i+1])
		b3 := int(data[i+2])
		return 12481 + (b1-241)*65536 + b2*256 + b3, 3, nil
	default:
		return 0, 0, fmt.Errorf("invalid length prefix %d", b1)
	}
}
