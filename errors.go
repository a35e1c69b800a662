package gotiff

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrInvalidByteOrder is returned when the first two bytes are neither "II" nor "MM".
	ErrInvalidByteOrder = errors.New("gotiff: invalid byte order")

	// ErrNotATiffFile is returned when the header magic number is not 42.
	ErrNotATiffFile = errors.New("gotiff: not a TIFF file")

	// ErrNoPagesDecoded is returned by Decode when the IFD chain is empty.
	ErrNoPagesDecoded = errors.New("gotiff: no pages decoded")

	// ErrMalformedInput is returned for offsets or lengths outside the buffer,
	// IFD cycles, missing required fields and declared sizes above the configured limits.
	ErrMalformedInput = errors.New("gotiff: malformed input")

	// ErrUnsupportedFeature matches every *UnsupportedFeatureError with errors.Is.
	ErrUnsupportedFeature = errors.New("gotiff: unsupported feature")
)

// Features reported by UnsupportedFeatureError.
const (
	FeatureColorMap            = "colorMap"
	FeatureCompression         = "compression"
	FeatureBilevel             = "bilevel"
	FeaturePlanarConfiguration = "planarConfiguration"
	FeatureBitsPerSample       = "bitsPerSample"
	FeatureSamplesPerPixel     = "samplesPerPixel"
)

// UnsupportedFeatureError reports an image feature whose decoding is not implemented.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("gotiff: unsupported feature: %s", e.Feature)
}

// Is makes errors.Is(err, ErrUnsupportedFeature) true for any feature.
func (e *UnsupportedFeatureError) Is(target error) bool {
	return target == ErrUnsupportedFeature
}

func unsupported(feature string) error {
	return &UnsupportedFeatureError{Feature: feature}
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

// IsMalformed reports whether err was caused by malformed input.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

// IsUnsupported reports whether err is an UnsupportedFeatureError and returns its feature.
func IsUnsupported(err error) (string, bool) {
	var ufe *UnsupportedFeatureError
	if errors.As(err, &ufe) {
		return ufe.Feature, true
	}
	return "", false
}

// Diagnostic is a non-fatal finding recorded while walking a page.
type Diagnostic struct {
	Page   int
	Tag    uint16
	Type   DataType
	Reason string
}

func (d Diagnostic) String() string {
	if d.Tag == 0 {
		return fmt.Sprintf("page %d: %s", d.Page, d.Reason)
	}
	return fmt.Sprintf("page %d: tag 0x%04x (type %d): %s", d.Page, d.Tag, d.Type, d.Reason)
}

// Diagnostics collects the findings of a decode that did not abort it.
type Diagnostics []Diagnostic

// Err folds the diagnostics into a single error, or nil when there are none.
func (d Diagnostics) Err() error {
	var result *multierror.Error
	for _, diag := range d {
		result = multierror.Append(result, errors.New(diag.String()))
	}
	return result.ErrorOrNil()
}
