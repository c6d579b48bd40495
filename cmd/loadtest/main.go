package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result records one HTTP outcome for aggregation.
type Result struct {
	Status int
	Body   string
	Err    error
}

// Exercises stock conservation: many concurrent checkouts against one
// tracked product must never reserve more units than exist.
func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	productID := flag.Uint("product", 1, "product id")
	nUsers := flag.Int("users", 200, "distinct customers")
	concurrency := flag.Int("c", 50, "max concurrency")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Printf("start oversell test: product=%d users=%d concurrency=%d\n", *productID, *nUsers, *concurrency)
	results := runCheckout(client, *baseURL, *productID, *nUsers, *concurrency)
	printSummary("oversell", results)

	ok := 0
	for _, r := range results {
		if r.Err == nil && r.Status == http.StatusOK {
			ok++
		}
	}
	fmt.Printf("successful orders: %d (compare against the product's starting stock)\n", ok)
}

func runCheckout(client *http.Client, baseURL string, productID uint, nUsers, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, nUsers)

	for i := 0; i < nUsers; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = checkoutOnce(client, baseURL, productID, idx+1)
		}(i)
	}

	wg.Wait()
	return results
}

func checkoutOnce(client *http.Client, baseURL string, productID uint, userN int) Result {
	req := map[string]any{
		"customer_name":  fmt.Sprintf("Load Tester %d", userN),
		"customer_email": fmt.Sprintf("loadtest-%d@example.com", userN),
		"fulfillment":    "collection",
		"payment_method": "cash",
		"items": []map[string]any{
			{"product_id": productID, "quantity": 1},
		},
	}
	b, _ := json.Marshal(req)
	url := fmt.Sprintf("%s/api/checkout", baseURL)
	httpReq, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body)}
}

// printSummary aggregates status code distribution.
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 401, 404, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}
