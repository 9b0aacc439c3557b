package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/michellelee0718/porespective/internal/models"
)

var (
	ErrNoProductsFound  = errors.New("No products found")
	ErrNoIngredientData = errors.New("No ingredient data found")
)

// EWGClient looks up product ingredients on the EWG Skin Deep database:
// a search-results fetch to find the first matching product, then a product
// page fetch to read the ingredient table and hazard scores.
type EWGClient struct {
	BaseURL    string
	HTTPClient *http.Client
	cache      ProductCache
	now        func() time.Time
}

func NewEWGClient(baseURL string, cache ProductCache) *EWGClient {
	return &EWGClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		cache: cache,
		now:   time.Now,
	}
}

// LookupProduct returns ingredient data for the search term, serving from
// the cache when a fresh entry exists. The returned product name falls back
// to the search term when the page has none.
func (c *EWGClient) LookupProduct(ctx context.Context, productName string) (*models.Product, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, productName)
		if err != nil {
			log.Printf("[EWG] cache read failed for %q: %v", productName, err)
		} else if cached != nil && c.now().Sub(cached.LastUpdated) < ProductCacheMaxAge {
			return &cached.Product, nil
		}
	}

	productURL, err := c.findFirstProduct(ctx, productName)
	if err != nil {
		return nil, err
	}

	product, err := c.scrapeProductPage(ctx, productURL)
	if err != nil {
		return nil, err
	}
	if product.ProductName == "" {
		product.ProductName = productName
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, productName, *product); err != nil {
			log.Printf("[EWG] cache write failed for %q: %v", productName, err)
		}
	}
	return product, nil
}

// SearchURL returns the public search URL shown to users alongside results.
func (c *EWGClient) SearchURL(productName string) string {
	return c.BaseURL + "/skindeep/search/?search=" + url.QueryEscape(productName)
}

func (c *EWGClient) findFirstProduct(ctx context.Context, productName string) (string, error) {
	root, err := c.fetchHTML(ctx, c.SearchURL(productName))
	if err != nil {
		return "", err
	}

	// First anchor inside section.product-listings.
	listings := findFirst(root, "section", "product-listings")
	if listings == nil {
		return "", ErrNoProductsFound
	}
	anchor := findFirst(listings, "a", "")
	if anchor == nil {
		return "", ErrNoProductsFound
	}
	href := attr(anchor, "href")
	if href == "" {
		return "", ErrNoProductsFound
	}
	if strings.HasPrefix(href, "/") {
		href = c.BaseURL + href
	}
	return href, nil
}

func (c *EWGClient) scrapeProductPage(ctx context.Context, productURL string) (*models.Product, error) {
	root, err := c.fetchHTML(ctx, productURL)
	if err != nil {
		return nil, err
	}

	product := &models.Product{ProductURL: productURL}

	if nameNode := findFirst(root, "h2", "product-name"); nameNode != nil {
		product.ProductName = strings.TrimSpace(nodeText(nameNode))
	}

	// The overview table interleaves ingredient rows with detail rows:
	// tr.ingredient-overview-tr carries the name and score, the following
	// tr.ingredient-more-info-wrapper carries the concerns.
	var names []string
	var scores []string
	var concerns [][]string

	for _, row := range findAll(root, "tr", "ingredient-overview-tr") {
		nameCell := findFirst(row, "td", "td-ingredient")
		if nameCell == nil {
			continue
		}
		interior := findFirst(nameCell, "div", "td-ingredient-interior")
		if interior == nil {
			interior = nameCell
		}
		names = append(names, strings.TrimSpace(nodeText(interior)))

		score := "N/A"
		if scoreCell := findFirst(row, "td", "td-score"); scoreCell != nil {
			if img := findFirst(scoreCell, "img", "ingredient-score"); img != nil {
				alt := attr(img, "alt")
				score = strings.TrimSpace(strings.TrimPrefix(alt, "Ingredient score: "))
			}
		}
		scores = append(scores, score)
	}

	for _, wrapper := range findAll(root, "tr", "ingredient-more-info-wrapper") {
		concerns = append(concerns, extractConcerns(wrapper))
	}

	if len(names) == 0 {
		return nil, ErrNoIngredientData
	}

	for i, name := range names {
		ing := models.Ingredient{Name: name, Score: "N/A"}
		if i < len(scores) {
			ing.Score = models.HazardScore(scores[i])
		}
		if i < len(concerns) {
			ing.Concerns = concerns[i]
		}
		product.Ingredients = append(product.Ingredients, ing)
	}
	return product, nil
}

// extractConcerns locates the detail row whose first cell reads "CONCERNS"
// and splits the second cell's text into individual concern strings.
func extractConcerns(wrapper *html.Node) []string {
	for _, tr := range findAll(wrapper, "tr", "") {
		cells := findAll(tr, "td", "")
		if len(cells) < 2 {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(nodeText(cells[0]))) != "CONCERNS" {
			continue
		}

		var out []string
		for _, line := range strings.Split(nodeText(cells[1]), "\n") {
			line = strings.TrimSpace(strings.ReplaceAll(line, "•", ""))
			if line != "" {
				out = append(out, line)
			}
		}
		return out
	}
	return nil
}

func (c *EWGClient) fetchHTML(ctx context.Context, rawURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; porespective/1.0)")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ewg fetch http %d for %s", resp.StatusCode, rawURL)
	}
	return html.Parse(resp.Body)
}

// --- minimal HTML helpers ---

func hasClass(n *html.Node, class string) bool {
	if class == "" {
		return true
	}
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, tag, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag && hasClass(n, class) {
			out = append(out, n)
			// Nested same-tag matches are not needed for EWG's markup.
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// nodeText concatenates the text content beneath n, inserting newlines at
// block boundaries so list-ish markup splits cleanly.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "br", "li", "p", "div":
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
