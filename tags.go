package gotiff

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/encoding/charmap"
)

// DataType is the field type of an IFD entry.
type DataType uint16

const (
	DTByte      DataType = 1  // 8-bit unsigned integer
	DTASCII     DataType = 2  // 8-bit byte holding 7-bit ASCII, NUL terminated
	DTShort     DataType = 3  // 16-bit unsigned integer
	DTLong      DataType = 4  // 32-bit unsigned integer
	DTRational  DataType = 5  // Two longs: numerator, denominator
	DTSByte     DataType = 6  // 8-bit signed integer
	DTUndefined DataType = 7  // 8-bit undefined
	DTSShort    DataType = 8  // 16-bit signed integer
	DTSLong     DataType = 9  // 32-bit signed integer
	DTSRational DataType = 10 // Two signed longs
	DTFloat     DataType = 11 // 32-bit IEEE floating point
	DTDouble    DataType = 12 // 64-bit IEEE floating point
)

// Size returns the size in bytes of one value of the type.
// Unknown types count as 4 bytes, the width of the value slot.
func (dt DataType) Size() uint32 {
	switch dt {
	case DTByte, DTASCII, DTSByte, DTUndefined:
		return 1
	case DTShort, DTSShort:
		return 2
	case DTLong, DTSLong, DTFloat:
		return 4
	case DTRational, DTSRational, DTDouble:
		return 8
	default:
		return 4
	}
}

// Tag IDs recognized by the decoder.
const (
	TagImageWidth                = 0x0100
	TagImageLength               = 0x0101
	TagBitsPerSample             = 0x0102
	TagCompression               = 0x0103
	TagPhotometricInterpretation = 0x0106
	TagImageDescription          = 0x010e
	TagMake                      = 0x010f
	TagModel                     = 0x0110
	TagStripOffsets              = 0x0111
	TagOrientation               = 0x0112
	TagSamplesPerPixel           = 0x0115
	TagRowsPerStrip              = 0x0116
	TagStripByteCounts           = 0x0117
	TagXResolution               = 0x011a
	TagYResolution               = 0x011b
	TagPlanarConfiguration       = 0x011c
	TagResolutionUnit            = 0x0128
	TagSoftware                  = 0x0131
	TagDateTime                  = 0x0132
	TagArtist                    = 0x013b
	TagColorMap                  = 0x0140
	TagExtraSamples              = 0x0152
	TagSampleFormat              = 0x0153
)

// Compression and photometric values the normalizer understands.
const (
	CompressionNone = 1

	PhotometricWhiteIsZero = 0
	PhotometricBlackIsZero = 1
	PhotometricRGB         = 2
)

// Field is the semantic name a recognized tag is stored under.
type Field string

const (
	FieldImageWidth                Field = "imageWidth"
	FieldImageLength               Field = "imageLength"
	FieldBitsPerSample             Field = "bitsPerSample"
	FieldCompression               Field = "compression"
	FieldPhotometricInterpretation Field = "photometricInterpretation"
	FieldStripOffsets              Field = "stripOffsets"
	FieldOrientation               Field = "orientation"
	FieldSamplesPerPixel           Field = "samplesPerPixel"
	FieldRowsPerStrip              Field = "rowsPerStrip"
	FieldStripByteCounts           Field = "stripByteCounts"
	FieldXResolution               Field = "xResolution"
	FieldYResolution               Field = "yResolution"
	FieldPlanarConfiguration       Field = "planarConfiguration"
	FieldResolutionUnit            Field = "resolutionUnit"
	FieldColorMap                  Field = "colorMap"
	FieldExtraSamples              Field = "extraSamples"
	FieldSampleFormat              Field = "sampleFormat"

	FieldImageDescription Field = "imageDescription"
	FieldMake             Field = "make"
	FieldModel            Field = "model"
	FieldSoftware         Field = "software"
	FieldDateTime         Field = "dateTime"
	FieldArtist           Field = "artist"
)

// fieldForTag maps a numeric tag to its field. ok is false for unrecognized tags.
func fieldForTag(tag uint16) (field Field, ok bool) {
	switch tag {
	case TagImageWidth:
		return FieldImageWidth, true
	case TagImageLength:
		return FieldImageLength, true
	case TagBitsPerSample:
		return FieldBitsPerSample, true
	case TagCompression:
		return FieldCompression, true
	case TagPhotometricInterpretation:
		return FieldPhotometricInterpretation, true
	case TagStripOffsets:
		return FieldStripOffsets, true
	case TagOrientation:
		return FieldOrientation, true
	case TagSamplesPerPixel:
		return FieldSamplesPerPixel, true
	case TagRowsPerStrip:
		return FieldRowsPerStrip, true
	case TagStripByteCounts:
		return FieldStripByteCounts, true
	case TagXResolution:
		return FieldXResolution, true
	case TagYResolution:
		return FieldYResolution, true
	case TagPlanarConfiguration:
		return FieldPlanarConfiguration, true
	case TagResolutionUnit:
		return FieldResolutionUnit, true
	case TagColorMap:
		return FieldColorMap, true
	case TagExtraSamples:
		return FieldExtraSamples, true
	case TagSampleFormat:
		return FieldSampleFormat, true
	case TagImageDescription:
		return FieldImageDescription, true
	case TagMake:
		return FieldMake, true
	case TagModel:
		return FieldModel, true
	case TagSoftware:
		return FieldSoftware, true
	case TagDateTime:
		return FieldDateTime, true
	case TagArtist:
		return FieldArtist, true
	default:
		return "", false
	}
}

// Tags is the numeric tag table of one page.
// RATIONAL values are stored flattened as numerator, denominator pairs.
type Tags map[Field][]uint32

// First returns the first value of field.
func (t Tags) First(field Field) (uint32, bool) {
	values := t[field]
	if len(values) == 0 {
		return 0, false
	}
	return values[0], true
}

// Has reports whether field is present.
func (t Tags) Has(field Field) bool {
	_, ok := t[field]
	return ok
}

// Entry is one 12-byte IFD entry as stored on disk.
type Entry struct {
	Tag   uint16
	Type  DataType
	Count uint32
	// ValueOffset is the buffer position of the 4-byte value slot, not its content.
	ValueOffset uint32
}

// entrySize is the on-disk size of an IFD entry.
const entrySize = 12

var errUnsupportedType = errors.New("unsupported field type")

// readEntry reads the entry under the cursor and moves past it.
func readEntry(c *cursor) (Entry, error) {
	var e Entry
	var err error
	if e.Tag, err = c.uint16(); err != nil {
		return e, err
	}
	typ, err := c.uint16()
	if err != nil {
		return e, err
	}
	e.Type = DataType(typ)
	if e.Count, err = c.uint32(); err != nil {
		return e, err
	}
	e.ValueOffset = c.offset
	c.skip(4)
	return e, nil
}

// valueLocation returns where the entry's value starts. Values longer than
// the 4-byte slot live elsewhere and the slot holds their offset.
func (br *byteReader) valueLocation(e Entry) (uint32, error) {
	length := uint64(e.Count) * uint64(e.Type.Size())
	if length > 4 {
		return br.readUint32(e.ValueOffset)
	}
	return e.ValueOffset, nil
}

// decodeField resolves the numeric values of an entry.
// Types other than BYTE, SHORT, LONG and RATIONAL yield errUnsupportedType.
func (br *byteReader) decodeField(e Entry) ([]uint32, error) {
	switch e.Type {
	case DTByte, DTShort, DTLong, DTRational:
	default:
		return nil, errUnsupportedType
	}

	loc, err := br.valueLocation(e)
	if err != nil {
		return nil, err
	}

	switch e.Type {
	case DTByte:
		return br.readUint8s(loc, e.Count)
	case DTShort:
		return br.readUint16s(loc, e.Count)
	case DTLong:
		return br.readUint32s(loc, e.Count)
	default:
		if e.Count > math.MaxUint32/2 {
			return nil, malformedf("rational count %d overflows", e.Count)
		}
		return br.readUint32s(loc, e.Count*2)
	}
}

// decodeASCII resolves an ASCII entry. TIFF strings are NUL terminated 7-bit
// ASCII, but writers routinely store Latin-1, so bytes are decoded as ISO-8859-1.
func (br *byteReader) decodeASCII(e Entry) (string, error) {
	if e.Type != DTASCII {
		return "", errUnsupportedType
	}
	loc, err := br.valueLocation(e)
	if err != nil {
		return "", err
	}
	b, err := br.readBytes(loc, uint64(e.Count))
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding ASCII value of tag 0x%04x: %w", e.Tag, err)
	}
	return string(s), nil
}
