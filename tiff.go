package gotiff

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TIFF header constants
const (
	tiffMagicLE = 0x4949 // "II" little-endian
	tiffMagicBE = 0x4D4D // "MM" big-endian
	tiffVersion = 42
	headerSize  = 8
)

// Default limits applied when the corresponding Options field is zero.
const (
	DefaultLimitIFDs   = 1024
	DefaultLimitPixels = 1 << 26
	DefaultLimitStrips = 1 << 20

	DefaultLimitTotalPixels = 1 << 28
)

// Options configures a decode. The zero value is ready to use.
type Options struct {
	// LimitIFDs is the maximum number of directories walked in one file.
	LimitIFDs int
	// LimitPixels is the maximum width*height accepted for a page.
	LimitPixels int
	// LimitStrips is the maximum number of strips accepted for a page.
	LimitStrips int
	// LimitTotalPixels is the maximum width*height summed over every page of a file.
	LimitTotalPixels int
	// Strict turns any diagnostic into a decode error.
	Strict bool
	// Warnf, if set, is called once for every diagnostic as it is recorded.
	Warnf func(format string, args ...any)
}

func (o Options) withDefaults() Options {
	if o.LimitIFDs <= 0 {
		o.LimitIFDs = DefaultLimitIFDs
	}
	if o.LimitPixels <= 0 {
		o.LimitPixels = DefaultLimitPixels
	}
	if o.LimitStrips <= 0 {
		o.LimitStrips = DefaultLimitStrips
	}
	if o.LimitTotalPixels <= 0 {
		o.LimitTotalPixels = DefaultLimitTotalPixels
	}
	return o
}

// Page is one image directory of a TIFF file.
type Page struct {
	Index  int
	Offset uint32

	Width  int
	Height int
	Format PixelFormat

	Tags    Tags
	Strings map[Field]string

	// StripData holds the concatenated strips, Width*Height*Format.Samples() bytes.
	// It is nil for metadata-only readers and is released by TIFFReader.Close.
	StripData []byte

	Diagnostics Diagnostics
}

// TIFFReader walks the directory chain of an in-memory TIFF file.
type TIFFReader struct {
	br    *byteReader
	opts  Options
	pages []*Page

	// totalPixels is the pixel count of every page loaded so far.
	totalPixels uint64
}

// NewTIFFReader parses the header and every page of buf, reassembling strip data.
// The reader borrows buf; it must not be modified until Close.
func NewTIFFReader(buf []byte, opts Options) (*TIFFReader, error) {
	return NewTIFFReaderWithFilter(buf, opts, false)
}

// NewTIFFReaderWithFilter is NewTIFFReader with optional metadata-only walking.
// In metadata-only mode tag tables are decoded but support checks and strip
// reassembly are skipped, so files with unsupported features still load.
func NewTIFFReaderWithFilter(buf []byte, opts Options, metadataOnly bool) (*TIFFReader, error) {
	byteOrder, firstIFD, err := readHeader(buf)
	if err != nil {
		return nil, err
	}

	tr := &TIFFReader{
		br:   &byteReader{data: buf, byteOrder: byteOrder},
		opts: opts.withDefaults(),
	}

	if err := tr.readIFDs(firstIFD, metadataOnly); err != nil {
		tr.Close()
		return nil, fmt.Errorf("failed to read IFDs: %w", err)
	}

	return tr, nil
}

// readHeader validates the 8-byte header and returns the byte order and first IFD offset.
func readHeader(buf []byte) (binary.ByteOrder, uint32, error) {
	if len(buf) < 2 {
		return nil, 0, fmt.Errorf("%w: buffer holds %d bytes", ErrInvalidByteOrder, len(buf))
	}

	var byteOrder binary.ByteOrder
	switch magic := binary.LittleEndian.Uint16(buf[0:2]); magic {
	case tiffMagicLE:
		byteOrder = binary.LittleEndian
	case tiffMagicBE:
		byteOrder = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("%w: 0x%04x", ErrInvalidByteOrder, magic)
	}

	if len(buf) < 4 {
		return nil, 0, fmt.Errorf("%w: missing version", ErrNotATiffFile)
	}
	if version := byteOrder.Uint16(buf[2:4]); version != tiffVersion {
		return nil, 0, fmt.Errorf("%w: version %d", ErrNotATiffFile, version)
	}

	if len(buf) < headerSize {
		return nil, 0, malformedf("header truncated at %d bytes", len(buf))
	}
	return byteOrder, byteOrder.Uint32(buf[4:8]), nil
}

// readIFDs walks the chain from offset until a zero next-IFD offset.
func (tr *TIFFReader) readIFDs(offset uint32, metadataOnly bool) error {
	visited := make(map[uint32]bool)

	for offset != 0 {
		if visited[offset] {
			return malformedf("IFD cycle at offset %d", offset)
		}
		if len(tr.pages) >= tr.opts.LimitIFDs {
			return malformedf("more than %d IFDs", tr.opts.LimitIFDs)
		}
		visited[offset] = true

		page, next, err := tr.readIFD(len(tr.pages), offset)
		if err != nil {
			return fmt.Errorf("failed to read IFD %d at offset %d: %w", len(tr.pages), offset, err)
		}
		tr.pages = append(tr.pages, page)

		if !metadataOnly {
			if err := tr.loadPage(page); err != nil {
				return fmt.Errorf("page %d: %w", page.Index, err)
			}
		}

		if tr.opts.Strict && len(page.Diagnostics) > 0 {
			return fmt.Errorf("%w: %w", ErrMalformedInput, page.Diagnostics.Err())
		}

		offset = next
	}

	return nil
}

// readIFD decodes the entries of the directory at offset into a fresh page.
func (tr *TIFFReader) readIFD(index int, offset uint32) (*Page, uint32, error) {
	c := &cursor{r: tr.br, offset: offset}

	count, err := c.uint16()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read entry count: %w", err)
	}
	// entry count + entries + next IFD offset
	if _, err := tr.br.readBytes(offset, 2+uint64(count)*entrySize+4); err != nil {
		return nil, 0, fmt.Errorf("directory with %d entries: %w", count, err)
	}

	page := &Page{
		Index:   index,
		Offset:  offset,
		Tags:    make(Tags),
		Strings: make(map[Field]string),
	}

	for i := uint16(0); i < count; i++ {
		e, err := readEntry(c)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read entry %d: %w", i, err)
		}
		if err := tr.decodeEntry(page, e); err != nil {
			return nil, 0, fmt.Errorf("failed to decode tag 0x%04x: %w", e.Tag, err)
		}
	}

	next, err := c.uint32()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read next IFD offset: %w", err)
	}

	return page, next, nil
}

// decodeEntry stores the value of e in page. Unknown tags and field types are
// recorded as diagnostics and otherwise skipped.
func (tr *TIFFReader) decodeEntry(page *Page, e Entry) error {
	field, ok := fieldForTag(e.Tag)
	if !ok {
		tr.note(page, Diagnostic{Tag: e.Tag, Type: e.Type, Reason: "unknown tag"})
		return nil
	}

	if e.Type == DTASCII {
		s, err := tr.br.decodeASCII(e)
		if err != nil {
			return err
		}
		page.Strings[field] = s
		return nil
	}

	values, err := tr.br.decodeField(e)
	if errors.Is(err, errUnsupportedType) {
		tr.note(page, Diagnostic{Tag: e.Tag, Type: e.Type, Reason: "unsupported field type"})
		return nil
	}
	if err != nil {
		return err
	}
	page.Tags[field] = values
	return nil
}

// loadPage runs the support checks for a walked page and then reassembles its strips.
func (tr *TIFFReader) loadPage(page *Page) error {
	format, err := resolvePixelFormat(page.Tags)
	if err != nil {
		return err
	}
	page.Format = format

	width, err := requireFirst(page.Tags, FieldImageWidth)
	if err != nil {
		return err
	}
	height, err := requireFirst(page.Tags, FieldImageLength)
	if err != nil {
		return err
	}
	pixels := uint64(width) * uint64(height)
	if pixels > uint64(tr.opts.LimitPixels) {
		return malformedf("%dx%d image exceeds the %d pixel limit", width, height, tr.opts.LimitPixels)
	}
	if tr.totalPixels+pixels > uint64(tr.opts.LimitTotalPixels) {
		return malformedf("page %d brings the file past the %d total pixel limit", page.Index, tr.opts.LimitTotalPixels)
	}
	tr.totalPixels += pixels
	page.Width, page.Height = int(width), int(height)

	page.StripData, err = tr.reassembleStrips(page, int(pixels)*format.Samples())
	return err
}

func requireFirst(tags Tags, field Field) (uint32, error) {
	v, ok := tags.First(field)
	if !ok {
		return 0, malformedf("missing required field %s", field)
	}
	return v, nil
}

// note records a diagnostic on page and forwards it to Options.Warnf.
func (tr *TIFFReader) note(page *Page, d Diagnostic) {
	d.Page = page.Index
	page.Diagnostics = append(page.Diagnostics, d)
	if tr.opts.Warnf != nil {
		tr.opts.Warnf("%s", d)
	}
}

// PageCount returns the number of pages in the file.
func (tr *TIFFReader) PageCount() int {
	return len(tr.pages)
}

// GetPage returns the page at index.
func (tr *TIFFReader) GetPage(index int) (*Page, error) {
	if index < 0 || index >= len(tr.pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(tr.pages))
	}
	return tr.pages[index], nil
}

// Diagnostics returns the diagnostics of every page in chain order.
func (tr *TIFFReader) Diagnostics() Diagnostics {
	var all Diagnostics
	for _, page := range tr.pages {
		all = append(all, page.Diagnostics...)
	}
	return all
}

// Close returns pooled strip buffers. Pages keep their tag tables but lose StripData.
func (tr *TIFFReader) Close() error {
	for _, page := range tr.pages {
		if page.StripData != nil {
			PutBuffer(page.StripData)
			page.StripData = nil
		}
	}
	return nil
}
