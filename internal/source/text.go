package source

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// shortDescLen is the rune length of descriptions cut from full text.
const shortDescLen = 400

// text returns the whitespace-collapsed text of sel.
func text(sel *goquery.Selection) string {
	return collapse(sel.Text())
}

// textOf returns the text of the first match of selector under sel, or "".
func textOf(sel *goquery.Selection, selector string) string {
	return text(sel.Find(selector).First())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// htmlText converts an HTML fragment to plain text.
func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	return text(doc.Selection)
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// absolute resolves href against base. Unresolvable hrefs are returned as is.
func absolute(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// withQuery returns raw with the given query parameters set.
func withQuery(raw string, params map[string]string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
