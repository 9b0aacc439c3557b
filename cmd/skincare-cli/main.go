// Command skincare-cli looks up a product's ingredients, streams an AI
// recommendation for it, and then takes follow-up questions interactively.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/michellelee0718/porespective/internal/models"
	"github.com/michellelee0718/porespective/pkg/streamclient"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "API server base URL")
	product := flag.String("product", "", "product name to look up")
	recommend := flag.Bool("recommend", false, "stream an AI recommendation after lookup")
	summary := flag.Bool("summary", false, "print an AI keyword summary of the ingredients")
	flag.Parse()

	if *product == "" {
		fmt.Fprintln(os.Stderr, "usage: skincare-cli -product <name> [-recommend] [-summary]")
		os.Exit(2)
	}

	ctx := context.Background()

	prod, err := fetchIngredients(ctx, *server, *product)
	if err != nil {
		log.Fatalf("lookup failed: %v", err)
	}

	fmt.Printf("%s\n%s\n\n", prod.ProductName, prod.ProductURL)
	for _, ing := range prod.Ingredients {
		fmt.Printf("  %s (score %s)\n", ing.Name, ing.Score)
		if len(ing.Concerns) > 0 {
			fmt.Printf("    concerns: %s\n", strings.Join(ing.Concerns, ", "))
		}
	}

	if *summary {
		if err := printSummary(ctx, *server, prod.Ingredients); err != nil {
			log.Fatalf("summary failed: %v", err)
		}
	}

	if !*recommend {
		return
	}

	client := streamclient.New(*server)
	printer := newStreamPrinter(client)

	fmt.Println("\n--- recommendation ---")
	if _, err := client.Recommend(ctx, models.RecommendRequest{
		ProductName: prod.ProductName,
		Ingredients: prod.Ingredients,
	}); err != nil {
		log.Fatalf("recommendation failed: %v", err)
	}
	printer.finishLine()

	// Follow-up loop until EOF.
	stdin := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !stdin.Scan() {
			return
		}
		question := strings.TrimSpace(stdin.Text())
		if question == "" {
			continue
		}
		if _, err := client.Send(ctx, question); err != nil {
			log.Printf("chat failed: %v", err)
			continue
		}
		printer.finishLine()
	}
}

// streamPrinter echoes stream fragments to stdout as they arrive by diffing
// successive transcript snapshots.
type streamPrinter struct {
	printed int
}

func newStreamPrinter(client *streamclient.Client) *streamPrinter {
	p := &streamPrinter{}
	client.OnUpdate = func(msgs []streamclient.ChatMessage) {
		last := msgs[len(msgs)-1]
		if last.Role != streamclient.RoleAI {
			return
		}
		if !last.Streaming {
			// A non-streaming AI append is a terminal error message.
			if p.printed == 0 && last.Content != "" {
				fmt.Print(last.Content)
				p.printed = len(last.Content)
			}
			return
		}
		if len(last.Content) > p.printed {
			fmt.Print(last.Content[p.printed:])
			p.printed = len(last.Content)
		}
	}
	return p
}

func (p *streamPrinter) finishLine() {
	fmt.Println()
	p.printed = 0
}

func fetchIngredients(ctx context.Context, server, productName string) (*models.Product, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	reqURL := strings.TrimRight(server, "/") + "/get_ingredients?product_name=" + url.QueryEscape(productName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s", apiErr.Error)
		}
		return nil, fmt.Errorf("lookup returned %s", resp.Status)
	}

	var prod models.Product
	if err := json.NewDecoder(resp.Body).Decode(&prod); err != nil {
		return nil, err
	}
	return &prod, nil
}

func printSummary(ctx context.Context, server string, ingredients []models.Ingredient) error {
	payload, err := json.Marshal(models.SummaryRequest{Ingredients: ingredients})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(server, "/")+"/ingredient-summary", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("summary returned %s", resp.Status)
	}

	var out models.SummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}

	fmt.Println("\n--- key words ---")
	for _, line := range out.Summary {
		fmt.Printf("  - %s\n", line)
	}
	return nil
}
