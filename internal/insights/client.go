// Package insights scrapes aoe2insights.com: player search and resolution of
// insights user IDs to Relic profile IDs.
package insights

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	defaultBaseURL = "https://www.aoe2insights.com"

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// PlayerResult is one search hit.
type PlayerResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client scrapes aoe2insights.com pages.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the site base URL (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient returns an aoe2insights scraper client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("insights request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("insights fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("insights fetch %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("insights read: %w", err)
	}
	return string(body), nil
}

// SearchPlayers scrapes the search page for player name/ID pairs. Results
// are de-duplicated by ID; the site's "login" link is skipped.
func (c *Client) SearchPlayers(ctx context.Context, query string) ([]PlayerResult, error) {
	body, err := c.get(ctx, "/search/?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("insights parse: %w", err)
	}
	return extractPlayers(doc), nil
}

var gameIDRe = regexp.MustCompile(`Game Id: (\d+)`)

// ResolveRelicID finds the Relic profile ID shown on an insights user page
// (the "Game Id" badge). Returns "" when the page has no badge.
func (c *Client) ResolveRelicID(ctx context.Context, insightsID string) (string, error) {
	body, err := c.get(ctx, "/user/"+url.PathEscape(insightsID)+"/")
	if err != nil {
		return "", err
	}
	if m := gameIDRe.FindStringSubmatch(body); m != nil {
		return m[1], nil
	}
	return "", nil
}

// extractPlayers walks the parsed document for /user/<id> anchors. The name
// comes from the enclosing card's .h4 node, falling back to the anchor text,
// its title attribute, then an img alt within the card.
func extractPlayers(doc *html.Node) []PlayerResult {
	var results []PlayerResult
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if id := userIDFromHref(attr(n, "href")); id != "" && !seen[id] {
				container := findParent(n, "div", "card-body")
				if container == nil {
					container = parentElement(n, "div")
				}
				name := ""
				if node := findClass(container, "h4"); node != nil {
					name = textContent(node)
				}
				if name == "" {
					name = textContent(n)
				}
				if name == "" {
					name = attr(n, "title")
				}
				if name == "" {
					if img := findElement(container, "img"); img != nil {
						name = attr(img, "alt")
					}
				}
				name = strings.TrimSpace(name)
				if name != "" && !strings.EqualFold(name, "login") {
					results = append(results, PlayerResult{ID: id, Name: name})
					seen[id] = true
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results
}

// userIDFromHref returns the numeric ID from an href like "/user/12345/",
// or "" when the href is not a user link.
func userIDFromHref(href string) string {
	if !strings.HasPrefix(href, "/user/") {
		return ""
	}
	parts := strings.Split(strings.Trim(href, "/"), "/")
	if len(parts) < 2 || parts[0] != "user" {
		return ""
	}
	id := parts[1]
	for _, r := range id {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if id == "" {
		return ""
	}
	return id
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// findParent walks up to the nearest ancestor element with the given tag and
// class.
func findParent(n *html.Node, tag, class string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag && hasClass(p, class) {
			return p
		}
	}
	return nil
}

func parentElement(n *html.Node, tag string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return p
		}
	}
	return nil
}

// findClass finds the first descendant carrying the given class.
func findClass(root *html.Node, class string) *html.Node {
	if root == nil {
		return nil
	}
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, class) {
			found = n
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return found
}

// findElement finds the first descendant with the given tag.
func findElement(root *html.Node, tag string) *html.Node {
	if root == nil {
		return nil
	}
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return found
}

// textContent concatenates all text nodes under n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
