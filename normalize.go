package gotiff

// PixelFormat is the sample layout of a page, resolved once from BitsPerSample.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatGray
	PixelFormatRGB
	PixelFormatRGBA
)

// Samples returns the number of samples per pixel.
func (f PixelFormat) Samples() int {
	switch f {
	case PixelFormatGray:
		return 1
	case PixelFormatRGB:
		return 3
	case PixelFormatRGBA:
		return 4
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatGray:
		return "gray"
	case PixelFormatRGB:
		return "rgb"
	case PixelFormatRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

const planarSeparate = 2

// resolvePixelFormat checks that a page can be normalized and returns its format.
// Checks run in a fixed order so a page with several unsupported features always
// reports the same one.
func resolvePixelFormat(tags Tags) (PixelFormat, error) {
	if tags.Has(FieldColorMap) {
		return PixelFormatUnknown, unsupported(FeatureColorMap)
	}
	if c, ok := tags.First(FieldCompression); ok && c != CompressionNone {
		return PixelFormatUnknown, unsupported(FeatureCompression)
	}

	bps := tags[FieldBitsPerSample]
	if len(bps) == 0 {
		return PixelFormatUnknown, unsupported(FeatureBilevel)
	}
	if p, ok := tags.First(FieldPlanarConfiguration); ok && p == planarSeparate && len(bps) > 1 {
		return PixelFormatUnknown, unsupported(FeaturePlanarConfiguration)
	}
	for _, b := range bps {
		if b != 8 {
			return PixelFormatUnknown, unsupported(FeatureBitsPerSample)
		}
	}

	switch len(bps) {
	case 1:
		return PixelFormatGray, nil
	case 3:
		return PixelFormatRGB, nil
	case 4:
		return PixelFormatRGBA, nil
	default:
		return PixelFormatUnknown, unsupported(FeatureSamplesPerPixel)
	}
}

// normalize expands raw samples of pixels pixels into a new RGBA8 buffer.
// raw must hold pixels*format.Samples() bytes.
func normalize(format PixelFormat, photometric uint32, raw []byte, pixels int) []byte {
	out := make([]byte, pixels*4)

	switch format {
	case PixelFormatRGBA:
		copy(out, raw[:pixels*4])

	case PixelFormatRGB:
		for i := 0; i < pixels; i++ {
			copy(out[i*4:i*4+3], raw[i*3:i*3+3])
			out[i*4+3] = 0xFF
		}

	case PixelFormatGray:
		invert := photometric == PhotometricWhiteIsZero
		for i := 0; i < pixels; i++ {
			g := raw[i]
			if invert {
				g = 0xFF - g
			}
			out[i*4] = g
			out[i*4+1] = g
			out[i*4+2] = g
			out[i*4+3] = 0xFF
		}
	}

	return out
}

// PixelFormat reports the format a page with these tags decodes to, or the
// unsupported feature that stops it from decoding.
func (t Tags) PixelFormat() (PixelFormat, error) {
	return resolvePixelFormat(t)
}
