package gotiff

import "fmt"

// maxShortfall bounds zero fill: at most 1/maxShortfall of a page may be missing.
const maxShortfall = 2

// reassembleStrips concatenates the strips of page, in strip order, into a buffer
// of exactly size bytes. Bytes past size are dropped. A total short by at most
// half of size leaves the tail zeroed and is recorded as a diagnostic; anything
// shorter is malformed. The buffer comes from the pool.
func (tr *TIFFReader) reassembleStrips(page *Page, size int) ([]byte, error) {
	offsets := page.Tags[FieldStripOffsets]
	counts := page.Tags[FieldStripByteCounts]

	if len(offsets) == 0 {
		return nil, malformedf("missing required field %s", FieldStripOffsets)
	}
	if len(counts) == 0 {
		return nil, malformedf("missing required field %s", FieldStripByteCounts)
	}
	if len(offsets) != len(counts) {
		return nil, malformedf("%d strip offsets but %d strip byte counts", len(offsets), len(counts))
	}
	if len(offsets) > tr.opts.LimitStrips {
		return nil, malformedf("%d strips exceed the limit of %d", len(offsets), tr.opts.LimitStrips)
	}

	// Bounds-check every strip and count the usable bytes before allocating.
	avail := 0
	for i, offset := range offsets {
		if _, err := tr.br.readBytes(offset, uint64(counts[i])); err != nil {
			return nil, fmt.Errorf("failed to read strip %d: %w", i, err)
		}
		avail = min(avail+int(counts[i]), size)
	}
	if avail < size-size/maxShortfall {
		return nil, malformedf("strip data holds %d of %d bytes", avail, size)
	}

	out := GetBuffer(size)
	clear(out)

	n := 0
	for i, offset := range offsets {
		strip, _ := tr.br.readBytes(offset, uint64(counts[i]))
		n += copy(out[n:], strip)
	}

	if n < size {
		tr.note(page, Diagnostic{
			Tag:    TagStripByteCounts,
			Type:   DTLong,
			Reason: fmt.Sprintf("strip data holds %d of %d bytes", n, size),
		})
	}

	return out, nil
}
