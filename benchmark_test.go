package gotiff

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"
)

// Benchmark data generation helpers

// generatePixels creates random sample data for benchmarking
func generatePixels(width, height, samples int) []byte {
	data := make([]byte, width*height*samples)
	for i := range data {
		data[i] = byte(rand.Intn(256))
	}
	return data
}

// createBenchmarkTIFF creates a striped TIFF with the given dimensions, one strip per rowsPerStrip rows
func createBenchmarkTIFF(width, height, samples, rowsPerStrip int) []byte {
	pixels := generatePixels(width, height, samples)
	page := imagePage(width, height, samples, pixels)

	rowBytes := width * samples
	page.strips = nil
	for row := 0; row < height; row += rowsPerStrip {
		end := min(row+rowsPerStrip, height)
		page.strips = append(page.strips, pixels[row*rowBytes:end*rowBytes])
	}
	page.entries[6] = longEntry(TagRowsPerStrip, uint32(rowsPerStrip))
	return buildTIFF(binary.LittleEndian, page)
}

// =============================================================================
// Benchmarks for Decode
// =============================================================================

func BenchmarkDecode_Gray(b *testing.B) {
	benchmarkDecode(b, 512, 512, 1, 512)
}

func BenchmarkDecode_RGB(b *testing.B) {
	benchmarkDecode(b, 512, 512, 3, 512)
}

func BenchmarkDecode_RGBA(b *testing.B) {
	benchmarkDecode(b, 512, 512, 4, 512)
}

func BenchmarkDecode_RGBManyStrips(b *testing.B) {
	benchmarkDecode(b, 512, 512, 3, 8)
}

func BenchmarkDecode_Large(b *testing.B) {
	benchmarkDecode(b, 2048, 2048, 3, 64)
}

func benchmarkDecode(b *testing.B, width, height, samples, rowsPerStrip int) {
	data := createBenchmarkTIFF(width, height, samples, rowsPerStrip)

	b.SetBytes(int64(width * height * 4))
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := Decode(data, Options{}); err != nil {
			b.Fatalf("Failed to decode: %v", err)
		}
	}
}

// =============================================================================
// Benchmarks for sample normalization
// =============================================================================

func BenchmarkNormalize_Gray(b *testing.B) {
	benchmarkNormalize(b, PixelFormatGray)
}

func BenchmarkNormalize_RGB(b *testing.B) {
	benchmarkNormalize(b, PixelFormatRGB)
}

func BenchmarkNormalize_RGBA(b *testing.B) {
	benchmarkNormalize(b, PixelFormatRGBA)
}

func benchmarkNormalize(b *testing.B, format PixelFormat) {
	pixels := 512 * 512
	raw := generatePixels(512, 512, format.Samples())

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = normalize(format, PhotometricBlackIsZero, raw, pixels)
	}
}

// =============================================================================
// Benchmark for TIFF parsing
// =============================================================================

func BenchmarkTIFFReader_Parse(b *testing.B) {
	data := createBenchmarkTIFF(1024, 1024, 3, 16)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		reader, err := NewTIFFReaderWithFilter(data, Options{}, true)
		if err != nil {
			b.Fatalf("Failed to create TIFF reader: %v", err)
		}
		reader.Close()
	}
}

func BenchmarkTIFFReader_ParseMultiPage(b *testing.B) {
	page := imagePage(16, 16, 3, generatePixels(16, 16, 3))
	pages := make([]testPage, 64)
	for i := range pages {
		pages[i] = page
	}
	data := buildTIFF(binary.BigEndian, pages...)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		reader, err := NewTIFFReaderWithFilter(data, Options{}, true)
		if err != nil {
			b.Fatalf("Failed to create TIFF reader: %v", err)
		}
		reader.Close()
	}
}

// =============================================================================
// Benchmarks for byte buffer operations
// =============================================================================

func BenchmarkByteBufferAlloc(b *testing.B) {
	size := 256 * 256 * 3 // Typical strip size

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf := make([]byte, size)
		_ = buf
	}
}

func BenchmarkByteBufferPooled(b *testing.B) {
	size := 256 * 256 * 3 // Typical strip size

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf := GetBuffer(size)
		_ = buf
		PutBuffer(buf)
	}
}

func BenchmarkBytesBufferAlloc(b *testing.B) {
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf := new(bytes.Buffer)
		buf.Grow(256 * 256 * 3)
		_ = buf
	}
}

func BenchmarkBytesBufferPooled(b *testing.B) {
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf := GetBytesBuffer()
		buf.Grow(256 * 256 * 3)
		PutBytesBuffer(buf)
	}
}

// =============================================================================
// Benchmark for PNG output
// =============================================================================

func BenchmarkEncodePNG(b *testing.B) {
	img, err := Decode(createBenchmarkTIFF(512, 512, 3, 64), Options{})
	if err != nil {
		b.Fatalf("Failed to decode: %v", err)
	}
	var buf bytes.Buffer

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := img.EncodePNG(&buf); err != nil {
			b.Fatalf("Failed to encode: %v", err)
		}
	}
}
