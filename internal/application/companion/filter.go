package companion

import (
	"html"
	"strings"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
)

// stripPolicy removes every tag from record bodies before text matching
var stripPolicy = bluemonday.StrictPolicy()

// plainText returns the visible text of an HTML fragment
func plainText(fragment string) string {
	return html.UnescapeString(stripPolicy.Sanitize(fragment))
}

// descriptionHTML renders a plain-text description as record body HTML
func descriptionHTML(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}
	var b strings.Builder
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}
	return b.String()
}

// matcher evaluates listing filters against companions. A Caser keeps state,
// so a matcher must not be shared between goroutines.
type matcher struct {
	fold       cases.Caser
	query      string
	cityGroups [][]string
}

// newMatcher prepares the free-text query and city filter values
func newMatcher(query string, cities []string) *matcher {
	m := &matcher{fold: cases.Fold()}
	m.query = m.normalize(query)
	for _, city := range cities {
		terms := companion.CityTerms(city)
		if len(terms) == 0 {
			continue
		}
		group := make([]string, len(terms))
		for i, t := range terms {
			group[i] = m.normalize(t)
		}
		m.cityGroups = append(m.cityGroups, group)
	}
	return m
}

func (m *matcher) normalize(s string) string {
	return m.fold.String(strings.TrimSpace(s))
}

// Match reports whether c passes both the text and city filters
func (m *matcher) Match(c *companion.Companion) bool {
	return m.matchText(c) && m.matchCity(c)
}

// matchText is a case-insensitive substring match over title, vendor,
// product type, tags and the stripped record body
func (m *matcher) matchText(c *companion.Companion) bool {
	if m.query == "" {
		return true
	}
	for _, field := range []string{c.Title, c.Vendor, c.ProductType, c.Tags, plainText(c.BodyHTML)} {
		if strings.Contains(m.normalize(field), m.query) {
			return true
		}
	}
	return false
}

// matchCity keeps companions whose location contains any spelling of any
// selected city. Companions without a location never match a city filter.
func (m *matcher) matchCity(c *companion.Companion) bool {
	if len(m.cityGroups) == 0 {
		return true
	}
	if !c.HasLocation() {
		return false
	}
	location := m.normalize(c.Profile.Location)
	for _, group := range m.cityGroups {
		for _, term := range group {
			if strings.Contains(location, term) {
				return true
			}
		}
	}
	return false
}
