// Package category is the registry of scan categories. The set is closed and
// ordered; every other package iterates it through All.
package category

import (
	"fmt"
	"strings"

	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/payload"
)

// Category identifies one independent scan kind.
type Category int

const (
	Subdomains Category = iota
	DNSRecords
	URLs
	Technologies
	Ports
	SensitiveFiles
)

// Count is the number of categories in the registry.
const Count = 6

// Descriptor describes a category's remote operation.
type Descriptor struct {
	Category Category
	// Name is the canonical identifier used in JSON views and metrics.
	Name string
	// Title is a human readable label.
	Title string
	// Path is the endpoint under /scan/ on the backend.
	Path string
	// ResultKey is the reply field the payload is read from.
	ResultKey string

	defaultPayload func() payload.Payload
	decode         func([]byte) (payload.Payload, error)
}

// Default returns the empty payload used when the category failed or the
// reply omitted ResultKey.
func (d Descriptor) Default() payload.Payload { return d.defaultPayload() }

// Decode reads the category's payload from a backend reply body.
func (d Descriptor) Decode(body []byte) (payload.Payload, error) { return d.decode(body) }

// Endpoint joins the backend base URL with the category path.
func (d Descriptor) Endpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + defaults.ScanPathPrefix + d.Path
}

var registry = [Count]Descriptor{
	{
		Category: Subdomains, Name: "subdomains", Title: "Subdomains",
		Path: "subdomains", ResultKey: "subdomains",
		defaultPayload: func() payload.Payload { return payload.Subdomains{} },
		decode:         wrap(payload.DecodeSubdomains),
	},
	{
		Category: DNSRecords, Name: "dns", Title: "DNS Records",
		Path: "dns", ResultKey: "dns_records",
		defaultPayload: func() payload.Payload { return payload.DNSRecords{} },
		decode:         wrap(payload.DecodeDNSRecords),
	},
	{
		Category: URLs, Name: "urls", Title: "URLs",
		Path: "urls", ResultKey: "urls",
		defaultPayload: func() payload.Payload {
			return payload.URLs{URLs: []string{}, Parameters: []payload.Parameter{}}
		},
		decode: wrap(payload.DecodeURLs),
	},
	{
		Category: Technologies, Name: "technologies", Title: "Technologies",
		Path: "technologies", ResultKey: "technologies",
		defaultPayload: func() payload.Payload { return payload.Technologies{} },
		decode:         wrap(payload.DecodeTechnologies),
	},
	{
		Category: Ports, Name: "ports", Title: "Ports",
		Path: "ports", ResultKey: "ports",
		defaultPayload: func() payload.Payload { return payload.Ports{} },
		decode:         wrap(payload.DecodePorts),
	},
	{
		Category: SensitiveFiles, Name: "sensitiveFiles", Title: "Sensitive Files",
		Path: "sensitive-files", ResultKey: "sensitive_files",
		defaultPayload: func() payload.Payload { return payload.SensitiveFiles{} },
		decode:         wrap(payload.DecodeSensitiveFiles),
	},
}

func wrap[P payload.Payload](fn func([]byte) (P, error)) func([]byte) (payload.Payload, error) {
	return func(body []byte) (payload.Payload, error) {
		p, err := fn(body)
		return p, err
	}
}

// All returns every category in registry order.
func All() []Category {
	out := make([]Category, Count)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// Valid reports whether c is in the registry.
func (c Category) Valid() bool { return c >= 0 && int(c) < Count }

// Describe returns the descriptor for c. It panics when c is outside the
// registry; use Lookup for values that did not originate in this package.
func Describe(c Category) Descriptor {
	if !c.Valid() {
		panic(fmt.Sprintf("category: unknown category %d", int(c)))
	}
	return registry[c]
}

// Lookup is the non-panicking form of Describe.
func Lookup(c Category) (Descriptor, bool) {
	if !c.Valid() {
		return Descriptor{}, false
	}
	return registry[c], true
}

// Parse resolves a canonical name or backend path, case-insensitively.
func Parse(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, d := range registry {
		if strings.EqualFold(s, d.Name) || strings.EqualFold(s, d.Path) {
			return d.Category, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, s)
}

func (c Category) String() string {
	if d, ok := Lookup(c); ok {
		return d.Name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// MarshalText encodes the canonical name.
func (c Category) MarshalText() ([]byte, error) {
	d, ok := Lookup(c)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(c))
	}
	return []byte(d.Name), nil
}

// UnmarshalText accepts anything Parse accepts.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
