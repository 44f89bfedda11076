package payload

import (
	"fmt"

	"github.com/waftester/reconsuite/pkg/jsonutil"
)

// Each decoder reads one backend reply. Absent or null fields yield the
// empty default; other fields in the reply are ignored.

// DecodeSubdomains reads {"subdomains": [...]}.
func DecodeSubdomains(body []byte) (Subdomains, error) {
	var reply struct {
		Subdomains []string `json:"subdomains"`
	}
	if err := decode(body, &reply); err != nil {
		return Subdomains{}, err
	}
	return Subdomains(nonNil(reply.Subdomains)), nil
}

// DecodeDNSRecords reads {"dns_records": {"A": [...], ...}}.
func DecodeDNSRecords(body []byte) (DNSRecords, error) {
	var reply struct {
		Records map[string][]string `json:"dns_records"`
	}
	if err := decode(body, &reply); err != nil {
		return DNSRecords{}, err
	}
	out := make(DNSRecords, len(reply.Records))
	for k, v := range reply.Records {
		out[k] = nonNil(v)
	}
	return out, nil
}

// DecodeURLs reads {"urls": [...], "parameters": [...]}.
func DecodeURLs(body []byte) (URLs, error) {
	var reply URLs
	if err := decode(body, &reply); err != nil {
		return URLs{URLs: []string{}, Parameters: []Parameter{}}, err
	}
	reply.URLs = nonNil(reply.URLs)
	if reply.Parameters == nil {
		reply.Parameters = []Parameter{}
	}
	return reply, nil
}

// DecodeTechnologies reads {"technologies": [...]}.
func DecodeTechnologies(body []byte) (Technologies, error) {
	var reply struct {
		Technologies []string `json:"technologies"`
	}
	if err := decode(body, &reply); err != nil {
		return Technologies{}, err
	}
	return Technologies(nonNil(reply.Technologies)), nil
}

// DecodePorts reads {"ports": [{"port":..,"service":..,"state":..}, ...]}.
func DecodePorts(body []byte) (Ports, error) {
	var reply struct {
		Ports []Port `json:"ports"`
	}
	if err := decode(body, &reply); err != nil {
		return Ports{}, err
	}
	if reply.Ports == nil {
		return Ports{}, nil
	}
	return Ports(reply.Ports), nil
}

// DecodeSensitiveFiles reads {"sensitive_files": [{"path":..,"url":..,"status":..}, ...]}.
func DecodeSensitiveFiles(body []byte) (SensitiveFiles, error) {
	var reply struct {
		Files []File `json:"sensitive_files"`
	}
	if err := decode(body, &reply); err != nil {
		return SensitiveFiles{}, err
	}
	if reply.Files == nil {
		return SensitiveFiles{}, nil
	}
	return SensitiveFiles(reply.Files), nil
}

// decode requires a JSON object at the top level; `null`, arrays and scalars
// are rejected so a misrouted reply is not mistaken for an empty result.
func decode(body []byte, v any) error {
	if !jsonutil.Valid(body) {
		return fmt.Errorf("reply is not valid JSON (%d bytes)", len(body))
	}
	if first := firstByte(body); first != '{' {
		return fmt.Errorf("reply is not a JSON object")
	}
	return jsonutil.Unmarshal(body, v)
}

func firstByte(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
