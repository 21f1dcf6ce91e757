// Package extract turns a search results page into an ordered list of results.
package extract

import (
	"errors"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/go-scripts/kwassist/internal/types"
)

var ErrNoDocument = errors.New("no document to extract from")

// Rules are the CSS selectors describing a results page
type Rules struct {
	// Anchors selects the result title anchors. The interactive executor
	// queries the same selector in the page, so indexes line up.
	Anchors string `yaml:"anchors"`
	// Container is the closest ancestor holding one result
	Container string `yaml:"container"`
	// LandingAttr is a container attribute carrying the real destination
	LandingAttr string `yaml:"landing_attr"`
	// Landing selects the displayed destination inside the container
	Landing string `yaml:"landing"`
}

// DefaultRules match the Baidu results page layout
func DefaultRules() Rules {
	return Rules{
		Anchors:     "#content_left div.c-container h3 a",
		Container:   "div.c-container",
		LandingAttr: "mu",
		Landing:     ".c-showurl, .c-color-gray",
	}
}

// Extractor parses result pages with a fixed set of rules
type Extractor struct {
	rules Rules
}

// New creates an Extractor. Empty rule fields fall back to the defaults.
func New(rules Rules) *Extractor {
	def := DefaultRules()
	if rules.Anchors == "" {
		rules.Anchors = def.Anchors
	}
	if rules.Container == "" {
		rules.Container = def.Container
	}
	if rules.LandingAttr == "" {
		rules.LandingAttr = def.LandingAttr
	}
	if rules.Landing == "" {
		rules.Landing = def.Landing
	}
	return &Extractor{rules: rules}
}

// Rules returns the selectors in use
func (e *Extractor) Rules() Rules {
	return e.rules
}

// ExtractString is Extract for an in-memory page body
func (e *Extractor) ExtractString(body string) ([]types.SearchResult, error) {
	return e.Extract(strings.NewReader(body))
}

// Extract parses the page and returns results in document order.
// A page without results yields an empty slice, not an error.
func (e *Extractor) Extract(r io.Reader) ([]types.SearchResult, error) {
	if r == nil {
		return nil, ErrNoDocument
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	results := make([]types.SearchResult, 0)
	doc.Find(e.rules.Anchors).Each(func(i int, a *goquery.Selection) {
		link, _ := a.Attr("href")
		results = append(results, types.SearchResult{
			Index:           i,
			Title:           collapse(a.Text()),
			Link:            strings.TrimSpace(link),
			LandingFragment: e.landing(a.Closest(e.rules.Container)),
		})
	})

	return results, nil
}

func (e *Extractor) landing(container *goquery.Selection) string {
	if container.Length() == 0 {
		return ""
	}
	if e.rules.LandingAttr != "" {
		if v, ok := container.Attr(e.rules.LandingAttr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return collapse(container.Find(e.rules.Landing).First().Text())
}

// collapse trims and folds internal whitespace runs
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
