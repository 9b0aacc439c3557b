package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michellelee0718/porespective/internal/models"
)

const searchPageHTML = `<html><body>
<section class="product-listings">
  <a href="/skindeep/products/12345-gentle-cleanser/"><h3>Gentle Cleanser</h3></a>
  <a href="/skindeep/products/67890-other/"><h3>Other</h3></a>
</section>
</body></html>`

const productPageHTML = `<html><body>
<h2 class="product-name"> Gentle Cleanser </h2>
<table>
  <tr class="ingredient-overview-tr">
    <td class="td-ingredient"><div class="td-ingredient-interior">Water</div></td>
    <td class="td-score"><img class="ingredient-score" alt="Ingredient score: 1"></td>
  </tr>
  <tr class="ingredient-more-info-wrapper">
    <td><table>
      <tr><td>CONCERNS</td><td><ul><li>None known</li></ul></td></tr>
    </table></td>
  </tr>
  <tr class="ingredient-overview-tr">
    <td class="td-ingredient"><div class="td-ingredient-interior">Fragrance</div></td>
    <td class="td-score"><img class="ingredient-score" alt="Ingredient score: 8"></td>
  </tr>
  <tr class="ingredient-more-info-wrapper">
    <td><table>
      <tr><td>CONCERNS</td><td><ul><li>Allergies</li><li>Irritation</li></ul></td></tr>
    </table></td>
  </tr>
</table>
</body></html>`

const emptySearchHTML = `<html><body><p>No matches.</p></body></html>`

type memoryProductCache struct {
	entries map[string]*models.CachedProduct
	puts    int
}

func (c *memoryProductCache) Get(ctx context.Context, searchKey string) (*models.CachedProduct, error) {
	return c.entries[searchKey], nil
}

func (c *memoryProductCache) Put(ctx context.Context, searchKey string, product models.Product) error {
	if c.entries == nil {
		c.entries = make(map[string]*models.CachedProduct)
	}
	c.entries[searchKey] = &models.CachedProduct{
		SearchKey:   searchKey,
		Product:     product,
		LastUpdated: time.Now(),
	}
	c.puts++
	return nil
}

func ewgTestServer(t *testing.T, searchHTML string, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		switch r.URL.Path {
		case "/skindeep/search/":
			fmt.Fprint(w, searchHTML)
		case "/skindeep/products/12345-gentle-cleanser/":
			fmt.Fprint(w, productPageHTML)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestLookupProductScrapesSearchAndPage(t *testing.T) {
	srv := ewgTestServer(t, searchPageHTML, nil)
	defer srv.Close()

	client := NewEWGClient(srv.URL, nil)
	product, err := client.LookupProduct(context.Background(), "gentle cleanser")
	require.NoError(t, err)

	assert.Equal(t, "Gentle Cleanser", product.ProductName)
	assert.Equal(t, srv.URL+"/skindeep/products/12345-gentle-cleanser/", product.ProductURL)

	require.Len(t, product.Ingredients, 2)
	assert.Equal(t, models.Ingredient{Name: "Water", Score: "1", Concerns: []string{"None known"}}, product.Ingredients[0])
	assert.Equal(t, models.Ingredient{Name: "Fragrance", Score: "8", Concerns: []string{"Allergies", "Irritation"}}, product.Ingredients[1])
}

func TestLookupProductNoResults(t *testing.T) {
	srv := ewgTestServer(t, emptySearchHTML, nil)
	defer srv.Close()

	client := NewEWGClient(srv.URL, nil)
	_, err := client.LookupProduct(context.Background(), "nothing")
	assert.ErrorIs(t, err, ErrNoProductsFound)
}

func TestLookupProductServesFreshCacheEntry(t *testing.T) {
	var hits int
	srv := ewgTestServer(t, searchPageHTML, &hits)
	defer srv.Close()

	cache := &memoryProductCache{}
	client := NewEWGClient(srv.URL, cache)

	first, err := client.LookupProduct(context.Background(), "gentle cleanser")
	require.NoError(t, err)
	require.Equal(t, 1, cache.puts)
	scrapeHits := hits

	second, err := client.LookupProduct(context.Background(), "gentle cleanser")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, scrapeHits, hits, "cached lookup must not hit the site")
}

func TestLookupProductRefreshesExpiredEntry(t *testing.T) {
	var hits int
	srv := ewgTestServer(t, searchPageHTML, &hits)
	defer srv.Close()

	cache := &memoryProductCache{}
	client := NewEWGClient(srv.URL, cache)

	_, err := client.LookupProduct(context.Background(), "gentle cleanser")
	require.NoError(t, err)
	scrapeHits := hits

	// Age the clock past the cache window; the entry is stale and the site
	// is scraped again.
	client.now = func() time.Time { return time.Now().Add(ProductCacheMaxAge + time.Hour) }

	_, err = client.LookupProduct(context.Background(), "gentle cleanser")
	require.NoError(t, err)
	assert.Greater(t, hits, scrapeHits)
	assert.Equal(t, 2, cache.puts)
}

func TestSearchURLEscapesQuery(t *testing.T) {
	client := NewEWGClient("https://www.ewg.org", nil)
	assert.Equal(t,
		"https://www.ewg.org/skindeep/search/?search=gentle+cleanser+%26+toner",
		client.SearchURL("gentle cleanser & toner"))
}
