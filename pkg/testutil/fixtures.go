package testutil

// Canned backend replies for example.com, keyed by category path.
var (
	SubdomainsReply = map[string]any{
		"subdomains": []string{"www.example.com", "api.example.com"},
	}
	DNSReply = map[string]any{
		"dns_records": map[string][]string{"A": {"93.184.216.34"}},
	}
	URLsReply = map[string]any{
		"urls": []string{"https://example.com/", "https://example.com/login"},
		"parameters": []map[string]any{
			{"parameter": "q", "type": "query", "url": "https://example.com/?q=1", "example_value": "1"},
			{"parameter": "user", "type": "text", "url": "https://example.com/login", "method": "POST"},
		},
	}
	TechnologiesReply = map[string]any{
		"technologies": []string{"nginx", "React"},
	}
	PortsReply = map[string]any{
		"ports": []map[string]any{
			{"port": 80, "service": "http", "state": "open"},
			{"port": 443, "service": "https", "state": "open"},
		},
	}
	SensitiveFilesReply = map[string]any{
		"sensitive_files": []map[string]any{
			{"path": "/.git/config", "url": "https://example.com/.git/config", "status": 200},
		},
	}
)

// Replies maps every category path to its canned reply.
func Replies() map[string]any {
	return map[string]any{
		"subdomains":      SubdomainsReply,
		"dns":             DNSReply,
		"urls":            URLsReply,
		"technologies":    TechnologiesReply,
		"ports":           PortsReply,
		"sensitive-files": SensitiveFilesReply,
	}
}

// ServeAll configures every category path with its canned reply.
func (b *Backend) ServeAll() *Backend {
	for path, reply := range Replies() {
		b.JSON(path, reply)
	}
	return b
}
