package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that do not decompose into a base letter plus a combining mark.
var special = strings.NewReplacer(
	"ı", "i",
	"ß", "ss",
	"æ", "ae",
	"ø", "o",
	"đ", "d",
	"ł", "l",
	"œ", "oe",
)

// Generate creates a URL-friendly slug from s. Accented letters are folded
// to ASCII and every run of other characters becomes a single hyphen.
//
//	"Çocuk Ürünleri" -> "cocuk-urunleri"
//	"Crème Brûlée"   -> "creme-brulee"
//	"Hello   World!" -> "hello-world"
func Generate(s string) string {
	out := strings.ToLower(strings.TrimSpace(s))
	out = special.Replace(out)

	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		out,
	)
	if err == nil {
		out = folded
	}

	out = nonAlnum.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}
