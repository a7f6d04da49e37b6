package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var defaultLoadQueries = []string{
	"#project", "#todo", "#idea", "meeting", "draft", "release notes", "TODO", "#journal",
}

type loadOptions struct {
	url         string
	concurrency int
	duration    time.Duration
	queries     []string
}

// LoadReport summarizes a load run against a searcher.
type LoadReport struct {
	Requests    int           `json:"requests"`
	Errors      int           `json:"errors"`
	StatusCodes map[int]int   `json:"statusCodes"`
	RPS         float64       `json:"rps"`
	P50         time.Duration `json:"p50"`
	P95         time.Duration `json:"p95"`
	P99         time.Duration `json:"p99"`
	Max         time.Duration `json:"max"`
}

func newLoadtestCmd(opts *globalOptions) *cobra.Command {
	lo := &loadOptions{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running searcher with concurrent search requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if len(lo.queries) == 0 {
				lo.queries = defaultLoadQueries
			}
			report, err := runLoad(ctx, lo)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "requests %d, errors %d, %.1f req/s\n", report.Requests, report.Errors, report.RPS)
			fmt.Fprintf(w, "p50 %s  p95 %s  p99 %s  max %s\n", report.P50, report.P95, report.P99, report.Max)
			codes := make([]int, 0, len(report.StatusCodes))
			for c := range report.StatusCodes {
				codes = append(codes, c)
			}
			slices.Sort(codes)
			for _, c := range codes {
				fmt.Fprintf(w, "  %d: %d\n", c, report.StatusCodes[c])
			}
			if report.Requests == 0 {
				return fmt.Errorf("no requests completed against %s", lo.url)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lo.url, "url", "http://localhost:8080", "searcher base URL")
	cmd.Flags().IntVar(&lo.concurrency, "concurrency", 10, "concurrent search sessions")
	cmd.Flags().DurationVar(&lo.duration, "duration", 10*time.Second, "test duration")
	cmd.Flags().StringArrayVar(&lo.queries, "query", nil, "query to send (repeatable)")
	return cmd
}

func runLoad(ctx context.Context, lo *loadOptions) (*LoadReport, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: lo.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(ctx, lo.duration)
	defer cancel()

	var (
		mu        sync.Mutex
		latencies []time.Duration
		report    = &LoadReport{StatusCodes: map[int]int{}}
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := range lo.concurrency {
		// each worker is its own session so requests never supersede one another
		session := fmt.Sprintf("loadtest-%d", w)
		g.Go(func() error {
			for i := w; gctx.Err() == nil; i++ {
				q := lo.queries[i%len(lo.queries)]
				req, err := http.NewRequestWithContext(gctx, http.MethodGet,
					lo.url+"/api/v1/search?q="+url.QueryEscape(q), nil)
				if err != nil {
					return err
				}
				req.Header.Set("X-Search-Session", session)
				t0 := time.Now()
				resp, err := client.Do(req)
				took := time.Since(t0)
				if gctx.Err() != nil {
					return nil
				}
				mu.Lock()
				report.Requests++
				if err != nil {
					report.Errors++
				} else {
					report.StatusCodes[resp.StatusCode]++
					if resp.StatusCode >= 400 {
						report.Errors++
					}
					latencies = append(latencies, took)
				}
				mu.Unlock()
				if resp != nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	if elapsed > 0 {
		report.RPS = float64(report.Requests) / elapsed.Seconds()
	}
	slices.Sort(latencies)
	report.P50 = percentile(latencies, 50)
	report.P95 = percentile(latencies, 95)
	report.P99 = percentile(latencies, 99)
	if n := len(latencies); n > 0 {
		report.Max = latencies[n-1]
	}
	return report, nil
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted)*p+99)/100 - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
