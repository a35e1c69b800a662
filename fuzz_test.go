package gotiff

import (
	"encoding/binary"
	"errors"
	"testing"
)

func FuzzDecode(f *testing.F) {
	f.Add(createSimpleTIFF())
	f.Add(buildTIFF(binary.BigEndian, imagePage(2, 2, 3, make([]byte, 12))))
	f.Add(buildTIFF(binary.LittleEndian, imagePage(3, 1, 1, []byte{1, 2, 3}), imagePage(1, 1, 4, []byte{1, 2, 3, 4})))
	f.Add([]byte{'I', 'I', 42, 0, 0, 0, 0, 0})

	known := []error{
		ErrInvalidByteOrder,
		ErrNotATiffFile,
		ErrNoPagesDecoded,
		ErrMalformedInput,
		ErrUnsupportedFeature,
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		img, err := Decode(data, Options{LimitPixels: 1 << 16, LimitIFDs: 64})
		if err != nil {
			for _, target := range known {
				if errors.Is(err, target) {
					return
				}
			}
			t.Fatalf("unclassified error: %v", err)
		}
		if len(img.Data) != img.Width*img.Height*4 {
			t.Fatalf("len(Data) = %d for %dx%d image", len(img.Data), img.Width, img.Height)
		}
	})
}
