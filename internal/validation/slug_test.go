package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"Class of 2010", "class-of-2010"},
		{"  Café Société  ", "cafe-societe"},
		{"C++ & Go", "c-go"},
		{"already-a-slug", "already-a-slug"},
		{"Multiple   spaces__and--dashes", "multiple-spaces-and-dashes"},
		{"---", ""},
		{"日本語", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}

	long := Slugify(strings.Repeat("ab ", 80))
	assert.LessOrEqual(t, len(long), maxSlugLen+1)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestValidateCommunitySlug(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		slug string
		ok   bool
	}{
		{name: "valid", slug: "class-of-2010", ok: true},
		{name: "single char", slug: "a", ok: true},
		{name: "empty", slug: "", ok: false},
		{name: "uppercase", slug: "Alumni", ok: false},
		{name: "underscore", slug: "pc_gaming", ok: false},
		{name: "double hyphen", slug: "a--b", ok: false},
		{name: "leading hyphen", slug: "-alumni", ok: false},
		{name: "trailing hyphen", slug: "alumni-", ok: false},
		{name: "too long", slug: strings.Repeat("a", maxSlugLen+1), ok: false},
		{name: "reserved admin", slug: "admin", ok: false},
		{name: "reserved communities", slug: "communities", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCommunitySlug(tc.slug)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
