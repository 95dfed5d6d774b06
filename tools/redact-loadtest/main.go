package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/V4T54L/defect-lens/internal/adapter/repository/catalog"
	"github.com/V4T54L/defect-lens/internal/domain"
)

type redactRequest struct {
	Text string `json:"text"`
	Role string `json:"role"`
}

func main() {
	targetURL := flag.String("url", "http://localhost:8000/redact-report", "Target redaction endpoint")
	concurrency := flag.Int("c", 4, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Float64("rps", 10, "Requests per second limit")
	unique := flag.Bool("unique", false, "Append a request id to every text so the redaction cache never hits")
	flag.Parse()

	repo, err := catalog.Default()
	if err != nil {
		log.Fatalf("Failed to load built-in catalog: %v", err)
	}
	defects, _ := repo.List(context.Background())
	if len(defects) == 0 {
		log.Fatal("Built-in catalog is empty")
	}

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %.1f, Unique texts: %t", *concurrency, *duration, *rps, *unique)

	var wg sync.WaitGroup
	var successCount, upstreamErrorCount, errorCount, totalLatency atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), *concurrency)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 70 * time.Second,
			}

			for n := workerID; ; n++ {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				text := defects[n%len(defects)].SafetyReport.OriginalContent
				if *unique {
					text += "\n" + uuid.NewString()
				}
				payload, _ := json.Marshal(redactRequest{Text: text, Role: string(domain.RoleYieldEng)})

				req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewReader(payload))
				if err != nil {
					continue
				}
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-Request-ID", uuid.NewString())

				start := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					errorCount.Add(1)
					continue
				}
				elapsed := int64(time.Since(start))

				switch resp.StatusCode {
				case http.StatusOK:
					successCount.Add(1)
					totalLatency.Add(elapsed)
				case http.StatusBadGateway:
					upstreamErrorCount.Add(1)
					totalLatency.Add(elapsed)
				default:
					errorCount.Add(1)
				}
				resp.Body.Close()
			}
		}(i)
	}

	wg.Wait()

	completed := successCount.Load() + upstreamErrorCount.Load()
	totalRequests := completed + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (200 OK): %d", successCount.Load())
	log.Printf("Upstream failures (502): %d", upstreamErrorCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
	if completed > 0 {
		log.Printf("Mean latency: %s", time.Duration(totalLatency.Load()/completed))
	}
}
