package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/michellelee0718/porespective/internal/services"
)

// ProductHandler serves the ingredient lookup endpoint. Its responses use
// the bare {"error": ...} shape rather than the APIResponse envelope: the
// lookup, recommendation, and mail relay endpoints share a flat contract
// consumed directly by the product page.
type ProductHandler struct {
	ewg *services.EWGClient
}

func NewProductHandler(ewg *services.EWGClient) *ProductHandler {
	return &ProductHandler{ewg: ewg}
}

// GetIngredients looks up a product by name and returns its name, source
// URL, and scored ingredient list. Cached results are served without
// touching the upstream site.
func (h *ProductHandler) GetIngredients(w http.ResponseWriter, r *http.Request) {
	productName := r.URL.Query().Get("product_name")
	if productName == "" {
		productName = r.URL.Query().Get("product")
	}
	if productName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing product name"})
		return
	}

	product, err := h.ewg.LookupProduct(r.Context(), productName)
	if err != nil {
		if errors.Is(err, services.ErrNoProductsFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("[Products] Lookup failed for %q: %v", productName, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to fetch ingredient data"})
		return
	}

	writeJSON(w, http.StatusOK, product)
}
