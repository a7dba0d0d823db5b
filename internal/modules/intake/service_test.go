package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText_StripsScriptsAndCollapsesWhitespace(t *testing.T) {
	html := `
		<html>
		<head><style>body { color: red; }</style></head>
		<body>
			<script>var tracking = true;</script>
			<h1>Markets   Today</h1>
			<p>Stocks rose
			broadly.</p>
			<noscript>enable js</noscript>
		</body>
		</html>`

	text := ExtractText(html)
	assert.Equal(t, "Markets Today Stocks rose broadly.", text)
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "enable js")
}

func TestExtractText_TruncatesLongPages(t *testing.T) {
	html := "<html><body>" + strings.Repeat("word ", 3000) + "</body></html>"
	text := ExtractText(html)
	assert.Len(t, text, maxPageChars)
}

func TestExtractText_EmptyInput(t *testing.T) {
	assert.Equal(t, "", ExtractText(""))
}
