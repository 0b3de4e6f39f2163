package render

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// contentPolicy: разрешённая разметка в тексте комментария.
func contentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements("b", "i", "em", "strong", "a", "p", "br")
	p.AllowAttrs("href", "target", "rel").OnElements("a")

	return p
}

var (
	policy = contentPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize оставляет только b, i, em, strong, a, p, br (у ссылок: href, target, rel).
func Sanitize(s string) string {
	return policy.Sanitize(s)
}

// StripTags убирает любую разметку, оставляя экранированный текст.
func StripTags(s string) string {
	return strict.Sanitize(s)
}

// NL2BR заменяет переводы строк на <br>.
func NL2BR(s string) string {
	return strings.ReplaceAll(s, "\n", "<br>")
}

// ProcessContent: текст комментария, готовый к вставке: Sanitize, затем NL2BR.
func ProcessContent(s string) template.HTML {
	return template.HTML(NL2BR(Sanitize(s))) //nolint:gosec // вывод прошёл через bluemonday
}
