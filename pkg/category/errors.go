package category

import "errors"

// ErrUnknown indicates a name or value outside the category registry.
var ErrUnknown = errors.New("category: unknown category")
