package service

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxLinks bounds how many links are taken from one page.
const DefaultMaxLinks = 500

// linkParser extracts outgoing links from an HTML document
type linkParser struct {
	baseURL  *url.URL
	maxLinks int
	seen     map[string]bool
	links    []string
}

// ExtractLinks returns the absolute http(s) targets of every <a href> in body,
// resolved against pageURL, de-duplicated in document order.
func ExtractLinks(pageURL string, body io.Reader, maxLinks int) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	if maxLinks <= 0 {
		maxLinks = DefaultMaxLinks
	}

	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	p := &linkParser{
		baseURL:  base,
		maxLinks: maxLinks,
		seen:     make(map[string]bool),
		links:    make([]string, 0),
	}
	p.traverse(doc)
	return p.links, nil
}

// traverse recursively walks the HTML tree
func (p *linkParser) traverse(n *html.Node) {
	if len(p.links) >= p.maxLinks {
		return
	}

	if n.Type == html.ElementNode && n.Data == "a" {
		p.extractLink(n)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.traverse(c)
	}
}

// extractLink records the target of an <a> tag
func (p *linkParser) extractLink(n *html.Node) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
			break
		}
	}

	// Skip in-page anchors
	if href == "" || strings.HasPrefix(href, "#") {
		return
	}

	abs, ok := p.resolveURL(href)
	if !ok || p.seen[abs] {
		return
	}
	p.seen[abs] = true
	p.links = append(p.links, abs)
}

// resolveURL resolves href against the page and keeps only web URLs
func (p *linkParser) resolveURL(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := p.baseURL.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}
