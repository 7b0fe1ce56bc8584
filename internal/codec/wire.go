package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// Primitive field writers/readers, length-prefixed the way the teacher's
// ITCH encoder pads fixed-width stock/MPID fields — except here fields are
// variable length, so a uint16 length prefix replaces fixed padding.

func writeString(buf *bytes.Buffer, s string) {
	b := []byte(s)
	var lenBytes [2]byte
	binary.BigEndian.PutUint16(lenBytes[:], uint16(len(b)))
	buf.Write(lenBytes[:])
	buf.Write(b)
}

func readString(r *bytes.Reader) (string, error) {
	var lenBytes [2]byte
	if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
		return "", fmt.Errorf("read string length: %w", err)
	}
	n := binary.BigEndian.Uint16(lenBytes[:])
	b := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, b); err != nil {
			return "", fmt.Errorf("read string body: %w", err)
		}
	}
	return string(b), nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func readInt64(r *bytes.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func readBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func writeDecimal(buf *bytes.Buffer, d decimal.Decimal) {
	writeString(buf, d.String())
}

func readDecimal(r *bytes.Reader) (decimal.Decimal, error) {
	s, err := readString(r)
	if err != nil {
		return decimal.Decimal{}, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

