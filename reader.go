package gotiff

import (
	"encoding/binary"
)

// byteReader reads primitives from the whole input buffer in the file's byte order.
// It never reads out of range: every access is checked against the buffer length.
type byteReader struct {
	data      []byte
	byteOrder binary.ByteOrder
}

// readBytes returns the length bytes starting at offset.
// The returned slice aliases the input buffer.
func (br *byteReader) readBytes(offset uint32, length uint64) ([]byte, error) {
	end := uint64(offset) + length
	if end > uint64(len(br.data)) {
		return nil, malformedf("read of %d bytes at offset %d exceeds buffer length %d", length, offset, len(br.data))
	}
	return br.data[offset:end], nil
}

func (br *byteReader) readUint16(offset uint32) (uint16, error) {
	b, err := br.readBytes(offset, 2)
	if err != nil {
		return 0, err
	}
	return br.byteOrder.Uint16(b), nil
}

func (br *byteReader) readUint32(offset uint32) (uint32, error) {
	b, err := br.readBytes(offset, 4)
	if err != nil {
		return 0, err
	}
	return br.byteOrder.Uint32(b), nil
}

// readUint8s, readUint16s and readUint32s widen count consecutive values
// starting at offset to uint32, the element type of a tag table.
func (br *byteReader) readUint8s(offset, count uint32) ([]uint32, error) {
	b, err := br.readBytes(offset, uint64(count))
	if err != nil {
		return nil, err
	}
	values := make([]uint32, count)
	for i := range values {
		values[i] = uint32(b[i])
	}
	return values, nil
}

func (br *byteReader) readUint16s(offset, count uint32) ([]uint32, error) {
	b, err := br.readBytes(offset, uint64(count)*2)
	if err != nil {
		return nil, err
	}
	values := make([]uint32, count)
	for i := range values {
		values[i] = uint32(br.byteOrder.Uint16(b[i*2:]))
	}
	return values, nil
}

func (br *byteReader) readUint32s(offset, count uint32) ([]uint32, error) {
	b, err := br.readBytes(offset, uint64(count)*4)
	if err != nil {
		return nil, err
	}
	values := make([]uint32, count)
	for i := range values {
		values[i] = br.byteOrder.Uint32(b[i*4:])
	}
	return values, nil
}

// cursor is a read position over a byteReader. Each read advances it.
type cursor struct {
	r      *byteReader
	offset uint32
}

func (c *cursor) uint16() (uint16, error) {
	v, err := c.r.readUint16(c.offset)
	if err != nil {
		return 0, err
	}
	c.offset += 2
	return v, nil
}

func (c *cursor) uint32() (uint32, error) {
	v, err := c.r.readUint32(c.offset)
	if err != nil {
		return 0, err
	}
	c.offset += 4
	return v, nil
}

func (c *cursor) skip(n uint32) {
	c.offset += n
}
