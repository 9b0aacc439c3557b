package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michellelee0718/porespective/internal/services"
)

func TestGetIngredientsMissingName(t *testing.T) {
	h := NewProductHandler(services.NewEWGClient("http://127.0.0.1:0", nil))

	req := httptest.NewRequest(http.MethodGet, "/get_ingredients", nil)
	rec := httptest.NewRecorder()
	h.GetIngredients(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Missing product name"}`, rec.Body.String())
}

func TestGetIngredientsAcceptsEitherParam(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("search"))
		// No product listings section: lookup reports no products found.
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer srv.Close()

	h := NewProductHandler(services.NewEWGClient(srv.URL, nil))

	for _, target := range []string{
		"/get_ingredients?product_name=toner",
		"/get_ingredients?product=toner",
	} {
		rec := httptest.NewRecorder()
		h.GetIngredients(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.JSONEq(t, `{"error": "No products found"}`, rec.Body.String(), target)
	}

	require.Equal(t, []string{"toner", "toner"}, queries)
}
