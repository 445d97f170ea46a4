package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/pool/aligned"
	"github.com/joshuapare/poolkit/pool/handle"
	"github.com/joshuapare/poolkit/pool/stack"
)

var (
	benchIterations int
	benchSize       int
	benchBatch      int
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVar(&benchIterations, "iterations", 100000, "Allocations per pool")
	cmd.Flags().IntVar(&benchSize, "size", 32, "Object size in bytes")
	cmd.Flags().IntVar(&benchBatch, "batch", 1000, "Objects held live before releasing them")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Time the pools against the Go allocator",
		Long: `The bench command allocates and releases --iterations objects of --size
bytes from each pool, holding --batch objects live at a time, and reports
the elapsed time per allocate/release pair.

Example:
  poolctl bench
  poolctl bench --size 128 --iterations 1000000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
}

// benchResult is the timing of one pool.
type benchResult struct {
	Pool       string        `json:"pool"`
	Iterations int           `json:"iterations"`
	Total      time.Duration `json:"total_ns"`
	NsPerOp    float64       `json:"ns_per_op"`
}

type benchTarget struct {
	name string
	run  func(iterations, size, batch int) error
}

var benchTargets = []benchTarget{
	{"go", benchGo},
	{"aligned", benchAligned},
	{"stack", benchStack},
	{"heap", benchHeap},
}

func runBench() error {
	if benchIterations < 1 || benchSize < 1 || benchBatch < 1 {
		return fmt.Errorf("--iterations, --size and --batch must be >= 1")
	}
	results := make([]benchResult, 0, len(benchTargets))
	for _, t := range benchTargets {
		printVerbose("Timing %s pool\n", t.name)
		start := time.Now()
		if err := t.run(benchIterations, benchSize, benchBatch); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		total := time.Since(start)
		results = append(results, benchResult{
			Pool:       t.name,
			Iterations: benchIterations,
			Total:      total,
			NsPerOp:    float64(total.Nanoseconds()) / float64(benchIterations),
		})
	}

	if jsonOut {
		return printJSON(results)
	}
	if quiet {
		return nil
	}
	fmt.Printf("%s  %d objects of %d bytes, %d live at a time\n",
		render(headingStyle, "Bench"), benchIterations, benchSize, benchBatch)
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Pool, strconv.Itoa(r.Iterations), r.Total.String(), fmt.Sprintf("%.1f", r.NsPerOp)})
	}
	renderTable(os.Stdout, []string{"Pool", "Iterations", "Total", "ns/op"}, rows)
	return nil
}

// batches calls fill with the size of each batch until iterations are used up.
func batches(iterations, batch int, fill func(n int) error) error {
	for done := 0; done < iterations; {
		n := min(batch, iterations-done)
		if err := fill(n); err != nil {
			return err
		}
		done += n
	}
	return nil
}

var sink [][]byte

func benchGo(iterations, size, batch int) error {
	live := make([][]byte, 0, batch)
	err := batches(iterations, batch, func(n int) error {
		for range n {
			live = append(live, make([]byte, size))
		}
		sink = live
		clear(live)
		live = live[:0]
		return nil
	})
	sink = nil
	return err
}

func benchAligned(iterations, size, batch int) error {
	p, err := aligned.New(size, batch, backing.Heap)
	if err != nil {
		return err
	}
	defer p.Close()
	offs := make([]int, 0, batch)
	return batches(iterations, batch, func(n int) error {
		for range n {
			off, _, err := p.Alloc(size)
			if err != nil {
				return err
			}
			offs = append(offs, off)
		}
		for _, off := range offs {
			if err := p.Free(off); err != nil {
				return err
			}
		}
		offs = offs[:0]
		return nil
	})
}

func benchStack(iterations, size, batch int) error {
	p, err := stack.New(batch*(size+2*stack.TrailerSize), backing.Heap)
	if err != nil {
		return err
	}
	defer p.Close()
	return batches(iterations, batch, func(n int) error {
		for range n {
			if _, _, err := p.Alloc(size); err != nil {
				return err
			}
		}
		for range n {
			if err := p.Pop(); err != nil {
				return err
			}
		}
		return nil
	})
}

func benchHeap(iterations, size, batch int) error {
	cfg, err := conf.arenaConfig()
	if err != nil {
		return err
	}
	cfg.Source = backing.Heap
	h, err := handle.New(cfg)
	if err != nil {
		return err
	}
	defer h.Close()
	ids := make([]handle.ID, 0, batch)
	return batches(iterations, batch, func(n int) error {
		for range n {
			id, err := h.Allocate(size, 1)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		for _, id := range ids {
			if err := h.Release(id); err != nil {
				return err
			}
		}
		ids = ids[:0]
		return nil
	})
}
