package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"ALL UPPER CASE", "all-upper-case"},
		{"  padded  ", "padded"},
		{"Hello!!! World???", "hello-world"},
		{"foo@bar#baz", "foo-bar-baz"},
		{"--leading and trailing--", "leading-and-trailing"},
		{"USB-C Cable 2m", "usb-c-cable-2m"},
		{"Kadın Giyim", "kadin-giyim"},
		{"Çocuk Ürünleri", "cocuk-urunleri"},
		{"Güneş Gözlüğü", "gunes-gozlugu"},
		{"İstanbul", "istanbul"},
		{"Crème Brûlée", "creme-brulee"},
		{"Straße", "strasse"},
		{"Smørrebrød", "smorrebrod"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	once := Generate("Wireless Noise-Cancelling Headphones")
	assert.Equal(t, once, Generate(once))
}
