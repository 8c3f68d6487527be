package imagegen

import (
	"errors"

	"github.com/ByLCY/textimage/cache"
	"github.com/ByLCY/textimage/compose"
	"github.com/ByLCY/textimage/fonts"
	"github.com/ByLCY/textimage/layout"
	"github.com/ByLCY/textimage/renderer"
)

// Error kinds returned by the service. Every returned error wraps exactly one
// of them, so callers classify failures with errors.Is.
var (
	ErrUnsupportedEnvironment = renderer.ErrUnsupportedEnvironment
	ErrInvalidInput           = layout.ErrInvalidInput
	ErrInvalidColour          = layout.ErrInvalidColour
	ErrStorageUnavailable     = cache.ErrStorageUnavailable
	ErrFontUnavailable        = fonts.ErrFontUnavailable
	ErrEncodeFailure          = compose.ErrEncodeFailure
	ErrDestinationUnwritable  = errors.New("destination unwritable")
)
