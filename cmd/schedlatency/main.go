// Package main — cmd/schedlatency/main.go
//
// Scheduler deadline-latency report.
//
// Reads a scheduler.csv series written by internal/scheduler (columns: ts,
// task, seq, start_delay_ms, completion_delay_ms, runtime_ms, preemptions,
// deadline_ms) and computes p50/p95/p99 of completion_delay_ms per task, via
// a histogram-bucket percentile computation over the CSV-derived series.
//
// Output: a summary printed to stdout, one line per task.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
)

// bucketCount bounds the histogram to buckets 0-10000 (index =
// milliseconds*10, i.e. 0.1ms resolution up to 1000ms).
const bucketCount = 10001

func main() {
	inputFile := flag.String("input", "logs/scheduler.csv", "Path to scheduler.csv")
	flag.Parse()

	f, err := os.Open(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *inputFile, err)
		os.Exit(1)
	}
	defer f.Close()

	buckets := make(map[string][]int)
	counts := make(map[string]int)

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read header: %v\n", err)
		os.Exit(1)
	}
	cols := columnIndex(header)

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read row: %v\n", err)
			os.Exit(1)
		}

		task := row[cols["task"]]
		completionMs, err := strconv.ParseFloat(row[cols["completion_delay_ms"]], 64)
		if err != nil {
			continue
		}

		bucket, ok := buckets[task]
		if !ok {
			bucket = make([]int, bucketCount)
			buckets[task] = bucket
		}
		idx := int(completionMs * 10)
		if idx < 0 {
			idx = 0
		}
		if idx >= bucketCount {
			idx = bucketCount - 1
		}
		bucket[idx]++
		counts[task]++
	}

	if len(counts) == 0 {
		fmt.Println("no rows found")
		return
	}

	fmt.Printf("Scheduler Deadline Latency Report (%s)\n", *inputFile)
	worstP99 := 0.0
	for task, total := range counts {
		p50, p95, p99 := computePercentiles(buckets[task], total)
		fmt.Printf("  %-20s n=%-6d p50=%6.1fms p95=%6.1fms p99=%6.1fms\n",
			task, total, p50, p95, p99)
		if p99 > worstP99 {
			worstP99 = p99
		}
	}

	// A deadline violation is any positive completion_delay_ms; a non-zero
	// p99 across any task means at least 1% of jobs finished late.
	if worstP99 > 0 {
		fmt.Printf("\nworst p99 completion delay across tasks: %.1fms\n", worstP99)
	}
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}

func computePercentiles(hist []int, total int) (p50, p95, p99 float64) {
	targets := []struct {
		pct float64
		out *float64
	}{
		{0.50, &p50},
		{0.95, &p95},
		{0.99, &p99},
	}
	cumulative := 0
	ti := 0
	for i, count := range hist {
		cumulative += count
		for ti < len(targets) && float64(cumulative) >= targets[ti].pct*float64(total) {
			*targets[ti].out = float64(i) / 10.0
			ti++
		}
		if ti == len(targets) {
			break
		}
	}
	return
}
