package catalog

import (
	"errors"
	"fmt"

	"github.com/amosWeiskopf/mapharvest/pkg/fetcher"
	"github.com/amosWeiskopf/mapharvest/pkg/sizes"
)

// ErrExtraction is matched by every ExtractionError
var ErrExtraction = errors.New("listing format changed")

// ExtractionError reports a page whose markup no longer yields records
type ExtractionError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
}

// Is makes errors.Is(err, ErrExtraction) true for any ExtractionError
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err means the source could not be reached
func IsTransportError(err error) bool {
	return errors.Is(err, fetcher.ErrTransport)
}

// IsSourceFormatError reports whether err means the source was reached but
// its markup or size tokens are no longer understood
func IsSourceFormatError(err error) bool {
	return errors.Is(err, ErrExtraction) || errors.Is(err, sizes.ErrParse)
}
