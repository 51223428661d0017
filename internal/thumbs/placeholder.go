package thumbs

import (
	"fmt"
	"strings"
)

// PlaceholderMimeType is the content type of synthesized placeholders.
const PlaceholderMimeType = "image/svg+xml"

const placeholderLabelMax = 24

// Placeholder synthesizes a deterministic SVG still for an asset with no
// pre-generated thumbnail. The UI always expects some image, so this
// path exists precisely to never 404. Same input, same bytes: the
// response stays cacheable.
func Placeholder(assetID string) []byte {
	label := BaseName(assetID)
	if len(label) > placeholderLabelMax {
		label = label[:placeholderLabelMax-1] + "…"
	}
	label = escapeXML(label)

	return []byte(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="640" height="360" viewBox="0 0 640 360">
  <rect width="640" height="360" fill="#1f2933"/>
  <circle cx="320" cy="160" r="48" fill="#323f4b"/>
  <polygon points="305,135 305,185 350,160" fill="#9aa5b1"/>
  <text x="320" y="260" font-family="sans-serif" font-size="22" fill="#9aa5b1" text-anchor="middle">%s</text>
</svg>
`, label))
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
