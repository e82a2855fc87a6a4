package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Deque", "deque"},
		{"dotted package", "com.example.core", "com-example-core"},
		{"spaces", "My Library", "my-library"},
		{"diacritics", "Café Au Lait", "cafe-au-lait"},
		{"mixed punctuation", "HTTP/2 (client)", "http-2-client"},
		{"underscores", "snake_case_name", "snake-case-name"},
		{"surrounding junk", "  spaced  ", "spaced"},
		{"digits", "utf8Decoder", "utf8decoder"},
		{"no usable characters", "✨✨", "unnamed"},
		{"empty", "", "unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestChildPath(t *testing.T) {
	assert.Equal(t, "pkg", ChildPath("", "pkg"))
	assert.Equal(t, "pkg/deque", ChildPath("pkg", "deque"))
}
