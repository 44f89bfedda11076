// Package payload defines the result shapes returned by each scan category
// and decodes them from backend replies.
//
// Every decoder is tolerant of missing fields: a reply that omits the
// category's field (or sets it to null) yields the empty default rather than
// an error. A field that is present with the wrong JSON type is an error.
package payload

import (
	"maps"
	"slices"
	"sort"
	"strings"
)

// StandardRecordTypes are the DNS record types the backend queries.
var StandardRecordTypes = []string{"A", "AAAA", "MX", "NS", "TXT"}

// Payload is implemented by every category result shape.
type Payload interface {
	// Len reports the number of items found.
	Len() int

	// Clone returns a copy that shares no slices or maps with the receiver.
	Clone() Payload
}

// Subdomains is an ordered list of discovered hostnames.
type Subdomains []string

func (s Subdomains) Len() int { return len(s) }

func (s Subdomains) Clone() Payload { return slices.Clone(s) }

// DNSRecords maps a record type ("A", "MX", ...) to its values.
type DNSRecords map[string][]string

// Len counts record values across all types.
func (d DNSRecords) Len() int {
	n := 0
	for _, v := range d {
		n += len(v)
	}
	return n
}

// Clone copies the map and every value slice.
func (d DNSRecords) Clone() Payload {
	out := maps.Clone(d)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}

// Lookup returns the values for a record type. The type is matched
// case-insensitively. A type the backend did not return yields an empty,
// non-nil slice.
func (d DNSRecords) Lookup(recordType string) []string {
	if v, ok := d[recordType]; ok && v != nil {
		return v
	}
	for k, v := range d {
		if strings.EqualFold(k, recordType) && v != nil {
			return v
		}
	}
	return []string{}
}

// Types returns the record types present, sorted.
func (d DNSRecords) Types() []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Parameter kinds.
const (
	KindQuery = "query"
	KindForm  = "form"
)

// Parameter is a query or form parameter found while crawling.
type Parameter struct {
	Parameter    string `json:"parameter"`
	Type         string `json:"type,omitempty"`
	URL          string `json:"url"`
	Method       string `json:"method,omitempty"`
	ExampleValue string `json:"example_value,omitempty"`
}

// Kind classifies the parameter as KindQuery or KindForm. The backend omits
// the type for query parameters and reports the HTML input type (text,
// hidden, ...) for form fields, which always carry a method.
func (p Parameter) Kind() string {
	switch strings.ToLower(p.Type) {
	case "", KindQuery:
		if p.Method != "" {
			return KindForm
		}
		return KindQuery
	default:
		return KindForm
	}
}

// URLs holds crawled URLs and the parameters found on them.
type URLs struct {
	URLs       []string    `json:"urls"`
	Parameters []Parameter `json:"parameters"`
}

// Len counts URLs; parameters are reported separately.
func (u URLs) Len() int { return len(u.URLs) }

func (u URLs) Clone() Payload {
	return URLs{URLs: slices.Clone(u.URLs), Parameters: slices.Clone(u.Parameters)}
}

// Technologies is an ordered list of fingerprinted technologies.
type Technologies []string

func (t Technologies) Len() int { return len(t) }

func (t Technologies) Clone() Payload { return slices.Clone(t) }

// Port is one open port.
type Port struct {
	Port    int    `json:"port"`
	Service string `json:"service"`
	State   string `json:"state"`
}

// Ports is an ordered list of port findings.
type Ports []Port

func (p Ports) Len() int { return len(p) }

func (p Ports) Clone() Payload { return slices.Clone(p) }

// File is one exposed sensitive path.
type File struct {
	Path   string `json:"path"`
	URL    string `json:"url"`
	Status Status `json:"status"`
}

// SensitiveFiles is an ordered list of exposed paths.
type SensitiveFiles []File

func (s SensitiveFiles) Len() int { return len(s) }

func (s SensitiveFiles) Clone() Payload { return slices.Clone(s) }
