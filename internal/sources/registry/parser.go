package registry

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/agentstation/smtindex/pkg/sources"
)

var (
	registryNumberPattern = regexp.MustCompile(`\b(\d{5})\b`)
	digitsPattern         = regexp.MustCompile(`^\d+$`)
	versionPattern        = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?$`)
	fiveDigitsPattern     = regexp.MustCompile(`^\d{5}$`)
)

// Content hub markup. A grid card holds the name in a four-column cell
// followed by number, version, status and links cells.
const (
	cardSelector    = "div.parts__title"
	nameSelector    = ".col-span-4"
	columnSelector  = ".col-span-2"
	downloadsMarker = "Downloads & Links"
	cardMarker      = "Submodel Template"
	boilerplate     = "Each submodel template that passes"
)

// token stream labels that are never template data
var skipTokens = map[string]bool{
	"Submodel Template":    true,
	"IDTA Number":          true,
	"Version":              true,
	"Status":               true,
	"Downloads & Links":    true,
	"Coming soon":          true,
	"Select sorting":       true,
	"Sort by IDTA numbers": true,
	"Sort by name":         true,
}

// Parse extracts registry records from a content hub page. Grid cards are
// preferred; when the page has none, the text stream is scanned instead.
// Relative links are resolved against base. Rows repeating the same
// number, version and name collapse into one record.
func Parse(doc *goquery.Document, base *url.URL) []sources.RegistryRecord {
	records := parseCards(doc, base)
	if len(records) == 0 {
		records = parseTokens(doc, base)
	}
	return dedupe(records)
}

// ParseRegistryNumber returns the registry number in text, or "" for
// external templates and text without one.
func ParseRegistryNumber(text string) string {
	t := strings.TrimSpace(text)
	switch strings.ToLower(t) {
	case "", "extern", "external":
		return ""
	}
	if m := registryNumberPattern.FindStringSubmatch(t); m != nil {
		return m[1]
	}
	if digitsPattern.MatchString(t) {
		return t
	}
	return ""
}

func parseCards(doc *goquery.Document, base *url.URL) []sources.RegistryRecord {
	var records []sources.RegistryRecord
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		name := compact(card.Find(nameSelector).First().Text())
		columns := card.Find(columnSelector)
		if name == "" || columns.Length() < 4 {
			return
		}

		rec := sources.RegistryRecord{
			Name:           name,
			RegistryNumber: ParseRegistryNumber(columns.Eq(0).Text()),
			StatusText:     compact(columns.Eq(2).Text()),
		}
		var pdf string
		columns.Eq(3).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			text := strings.ToLower(a.Text())
			switch {
			case isGitHubLink(href, text):
				rec.RepositoryURL = resolve(base, href)
			case isPDFLink(href, text):
				pdf = resolve(base, href)
			}
		})
		attachVersion(&rec, compact(columns.Eq(1).Text()), pdf)
		records = append(records, rec)
	})
	return records
}

// attachVersion records the row's version with its PDF, or the PDF alone
// when the row names no version.
func attachVersion(rec *sources.RegistryRecord, label, pdf string) {
	if label == "" {
		rec.PDFURL = pdf
		return
	}
	rec.Versions = append(rec.Versions, sources.RegistryVersion{Label: label, PDFURL: pdf})
}

type token struct {
	text string
	href string // set for links
}

func (t token) isLink() bool { return t.href != "" }

// tokens flattens the page body into text and link tokens in document
// order. Text inside links belongs to the link token.
func tokens(doc *goquery.Document) []token {
	var out []token
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := compact(n.Data); t != "" {
				out = append(out, token{text: t})
			}
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "a":
				href := attr(n, "href")
				if text := compact(goquery.NewDocumentFromNode(n).Text()); href != "" && text != "" {
					out = append(out, token{text: text, href: href})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range root.Nodes {
		walk(n)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// parseTokens reads entries of the form
//
//	Downloads & Links, name, number, version, status, details..., Submodel Template
//
// from the token stream.
func parseTokens(doc *goquery.Document, base *url.URL) []sources.RegistryRecord {
	toks := tokens(doc)
	var records []sources.RegistryRecord
	for i := 0; i < len(toks); i++ {
		if toks[i].isLink() || toks[i].text != downloadsMarker {
			continue
		}
		fields, next, ok := nextTexts(toks, i+1, 4)
		if !ok {
			continue
		}
		name, numberText, version, statusText := fields[0], fields[1], fields[2], fields[3]
		if !looksLikeRegistryNumber(numberText) || !versionPattern.MatchString(version) {
			continue
		}

		rec := sources.RegistryRecord{
			Name:           name,
			RegistryNumber: ParseRegistryNumber(numberText),
			StatusText:     statusText,
		}
		var pdf string
		var description []string
		j := next
		for ; j < len(toks); j++ {
			t := toks[j]
			if !t.isLink() && t.text == cardMarker {
				break
			}
			lowerHref, lowerText := strings.ToLower(t.href), strings.ToLower(t.text)
			switch {
			case t.isLink() && pdf == "" && (isPDFLink(lowerHref, lowerText) || strings.HasPrefix(lowerText, "download")):
				pdf = resolve(base, t.href)
			case t.isLink() && rec.RepositoryURL == "" && strings.Contains(lowerHref, "github.com"):
				rec.RepositoryURL = resolve(base, t.href)
			case !t.isLink() && !skipTokens[t.text] && !strings.HasPrefix(t.text, boilerplate):
				description = append(description, t.text)
			}
		}
		rec.Description = compact(strings.Join(description, " "))
		attachVersion(&rec, version, pdf)
		records = append(records, rec)
		i = j - 1
	}
	return records
}

// nextTexts collects the next n text tokens that are not labels.
func nextTexts(toks []token, start, n int) ([]string, int, bool) {
	var out []string
	i := start
	for ; i < len(toks) && len(out) < n; i++ {
		if toks[i].isLink() || skipTokens[toks[i].text] {
			continue
		}
		out = append(out, toks[i].text)
	}
	return out, i, len(out) == n
}

func looksLikeRegistryNumber(text string) bool {
	t := strings.TrimSpace(text)
	return strings.EqualFold(t, "external") || strings.EqualFold(t, "extern") || fiveDigitsPattern.MatchString(t)
}

func isGitHubLink(href, text string) bool {
	return strings.Contains(strings.ToLower(href), "github") || strings.Contains(text, "github")
}

func isPDFLink(href, text string) bool {
	return strings.Contains(strings.ToLower(href), ".pdf") || strings.Contains(text, "pdf")
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type rowKey struct {
	number, version, name string
}

// dedupe keeps the first position of each repeated row and the last
// occurrence's content.
func dedupe(records []sources.RegistryRecord) []sources.RegistryRecord {
	seen := make(map[rowKey]int, len(records))
	out := make([]sources.RegistryRecord, 0, len(records))
	for _, r := range records {
		var version string
		if len(r.Versions) > 0 {
			version = r.Versions[0].Label
		}
		k := rowKey{r.RegistryNumber, version, r.Name}
		if i, ok := seen[k]; ok {
			out[i] = r
			continue
		}
		seen[k] = len(out)
		out = append(out, r)
	}
	return out
}
