package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/reconsuite/pkg/payload"
)

func TestAll_FixedOrder(t *testing.T) {
	assert.Equal(t, []Category{Subdomains, DNSRecords, URLs, Technologies, Ports, SensitiveFiles}, All())
	assert.Len(t, All(), Count)
}

func TestRegistry_IndexMatchesCategory(t *testing.T) {
	for i, d := range registry {
		assert.Equal(t, Category(i), d.Category, "registry slot %d", i)
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Path)
		assert.NotEmpty(t, d.ResultKey)
	}
}

func TestDescribe_Paths(t *testing.T) {
	want := map[Category]string{
		Subdomains:     "subdomains",
		DNSRecords:     "dns",
		URLs:           "urls",
		Technologies:   "technologies",
		Ports:          "ports",
		SensitiveFiles: "sensitive-files",
	}
	for c, path := range want {
		assert.Equal(t, path, Describe(c).Path)
	}
}

func TestDescribe_PanicsOutsideRegistry(t *testing.T) {
	assert.Panics(t, func() { Describe(Category(Count)) })
	assert.Panics(t, func() { Describe(Category(-1)) })

	_, ok := Lookup(Category(Count))
	assert.False(t, ok)
}

func TestDescriptor_DefaultIsEmptyAndNonNil(t *testing.T) {
	for _, c := range All() {
		def := Describe(c).Default()
		require.NotNil(t, def, c.String())
		assert.Zero(t, def.Len(), c.String())
	}
	urls := Describe(URLs).Default().(payload.URLs)
	assert.NotNil(t, urls.URLs)
	assert.NotNil(t, urls.Parameters)
}

func TestDescriptor_DecodeEmptyObjectMatchesDefault(t *testing.T) {
	for _, c := range All() {
		d := Describe(c)
		got, err := d.Decode([]byte(`{}`))
		require.NoError(t, err, c.String())
		assert.Equal(t, d.Default(), got, c.String())
	}
}

func TestDescriptor_Endpoint(t *testing.T) {
	d := Describe(SensitiveFiles)
	assert.Equal(t, "http://localhost:8000/scan/sensitive-files", d.Endpoint("http://localhost:8000"))
	assert.Equal(t, "http://h/api/scan/sensitive-files", d.Endpoint("http://h/api/"))
}

func TestParse(t *testing.T) {
	tests := map[string]Category{
		"subdomains":      Subdomains,
		"DNS":             DNSRecords,
		"sensitiveFiles":  SensitiveFiles,
		"sensitive-files": SensitiveFiles,
		" ports ":         Ports,
	}
	for in, want := range tests {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("whois")
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestCategory_TextRoundTrip(t *testing.T) {
	text, err := Technologies.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "technologies", string(text))

	var c Category
	require.NoError(t, c.UnmarshalText([]byte("sensitive-files")))
	assert.Equal(t, SensitiveFiles, c)

	_, err = Category(42).MarshalText()
	assert.ErrorIs(t, err, ErrUnknown)
	assert.Equal(t, "category(42)", Category(42).String())
}
