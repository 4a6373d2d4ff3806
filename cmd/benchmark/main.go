package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/punchamoorthee/lockvault/internal/chain"
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/shopspring/decimal"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	accounts    int
)

// Metrics
var (
	totalRequests uint64
	confirmed     uint64
	reverted      uint64 // Ledger rejections (still locked, insufficient, paused)
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "Node base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&accounts, "accounts", 1000, "Number of seeded accounts to spread load over")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	client := chain.NewClient(chain.ClientConfig{BaseURL: targetURL, SubmitRetries: 2, RetryBackoff: 50 * time.Millisecond})

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go worker(&wg, client, start)
	}
	wg.Wait()
	elapsed := time.Since(start)

	report, err := client.Audit(context.Background())
	if err != nil {
		log.Fatalf("Audit failed: %v", err)
	}
	printResults(elapsed, report)
	if !report.Consistent {
		log.Fatalf("Aggregate invariant violated: sum=%s aggregate=%s", report.SumOfBalances, report.AggregateBalance)
	}
}

func worker(wg *sync.WaitGroup, client *chain.Client, start time.Time) {
	defer wg.Done()
	ctx := context.Background()
	gwei := decimal.New(1, 9)

	for time.Since(start) < duration {
		caller := pickAccount()
		amount := gwei.Mul(decimal.NewFromInt(int64(rand.Intn(100) + 1)))

		var (
			hash string
			err  error
		)
		switch r := rand.Float32(); {
		case r < 0.5:
			hash, err = client.Deposit(ctx, caller, amount, 1)
		case r < 0.8:
			hash, err = client.Withdraw(ctx, caller, amount)
		default:
			hash, err = client.ExtendMyLock(ctx, caller, 1)
		}
		atomic.AddUint64(&totalRequests, 1)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		receipt, err := client.WaitForReceipt(ctx, hash)
		switch {
		case err != nil:
			atomic.AddUint64(&failOther, 1)
		case receipt.Status == domain.ReceiptConfirmed:
			atomic.AddUint64(&confirmed, 1)
		default:
			atomic.AddUint64(&reverted, 1)
		}
	}
}

// pickAccount mirrors the seeder's addresses.
func pickAccount() domain.AccountID {
	i := rand.Intn(accounts)
	if workload == "hotspot" && rand.Float32() < 0.90 {
		// Hotspot: 90% of traffic goes to the first two accounts
		i = rand.Intn(2)
	}
	return domain.AccountID(common.BigToAddress(big.NewInt(int64(i + 1))).Hex())
}

func printResults(d time.Duration, report domain.AuditReport) {
	total := atomic.LoadUint64(&totalRequests)
	ok := atomic.LoadUint64(&confirmed)
	rev := atomic.LoadUint64(&reverted)
	fErr := atomic.LoadUint64(&failOther)

	results := map[string]any{
		"workload":         workload,
		"duration_sec":     d.Seconds(),
		"total_requests":   total,
		"throughput_tps":   float64(total) / d.Seconds(),
		"confirmed":        ok,
		"reverted":         rev,
		"revert_rate_pct":  float64(rev) / float64(max(total, 1)) * 100,
		"errors":           fErr,
		"audit_accounts":   report.Accounts,
		"audit_consistent": report.Consistent,
	}

	// Print JSON for the python plotter to consume
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		log.Printf("write %s: %v", filename, err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
