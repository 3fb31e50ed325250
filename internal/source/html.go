package source

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var jsonEntities = strings.NewReplacer(
	"&quot;", `"`,
	"&#39;", "'",
	"&#039;", "'",
	"&amp;", "&",
)

var textEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&quot;", `"`,
	"&#039;", "'",
	"&#39;", "'",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
)

var (
	brRe  = regexp.MustCompile(`(?i)<br\s*/?\s*>`)
	tagRe = regexp.MustCompile(`<[^>]+>`)
)

// decodeText decodes common entities and collapses whitespace.
func decodeText(s string) string {
	return strings.Join(strings.Fields(textEntities.Replace(s)), " ")
}

// stripTags removes markup and returns decoded plain text.
func stripTags(s string) string {
	s = brRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	return decodeText(s)
}

// searchTerms joins the query and optional vintage into the
// plus-separated path segment the search pages expect.
func searchTerms(query string, vintage *int) string {
	terms := strings.Fields(query)
	if vintage != nil {
		terms = append(terms, strconv.Itoa(*vintage))
	}
	for i, t := range terms {
		terms[i] = url.PathEscape(t)
	}
	return strings.Join(terms, "+")
}
