package gotiff

// Image is a decoded page normalized to 8-bit RGBA.
type Image struct {
	Width  int
	Height int
	// Data holds Width*Height pixels, 4 bytes each, rows top to bottom.
	Data []byte

	Tags        Tags
	Strings     map[Field]string
	Diagnostics Diagnostics
}

// Decode decodes every page of buf and returns the first.
// A single malformed or unsupported page fails the whole call.
func Decode(buf []byte, opts Options) (*Image, error) {
	images, err := DecodeAll(buf, opts)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrNoPagesDecoded
	}
	return images[0], nil
}

// DecodeAll decodes every page of buf in directory chain order.
func DecodeAll(buf []byte, opts Options) ([]*Image, error) {
	tr, err := NewTIFFReader(buf, opts)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	images := make([]*Image, 0, tr.PageCount())
	for _, page := range tr.pages {
		images = append(images, page.image())
		PutBuffer(page.StripData)
		page.StripData = nil
	}
	return images, nil
}

func (p *Page) image() *Image {
	photometric, ok := p.Tags.First(FieldPhotometricInterpretation)
	if !ok {
		photometric = PhotometricBlackIsZero
	}

	return &Image{
		Width:       p.Width,
		Height:      p.Height,
		Data:        normalize(p.Format, photometric, p.StripData, p.Width*p.Height),
		Tags:        p.Tags,
		Strings:     p.Strings,
		Diagnostics: p.Diagnostics,
	}
}
