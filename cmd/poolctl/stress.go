package main

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/internal/logger"
	"github.com/joshuapare/poolkit/pool/arena"
	"github.com/joshuapare/poolkit/pool/handle"
)

var (
	stressOps     int
	stressSeed    uint64
	stressMaxSize int
	stressMaxObj  int
	stressCheck   int
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressOps, "ops", 10000, "Number of operations to run")
	cmd.Flags().Uint64Var(&stressSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 0, "Arena ceiling in bytes (0 = from config)")
	cmd.Flags().IntVar(&stressMaxObj, "max-object", 256, "Largest object payload in bytes")
	cmd.Flags().IntVar(&stressCheck, "check-every", 100, "Validate the heap every N operations")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run a random allocate/release/compact workload",
		Long: `The stress command runs a seeded random workload against the relocating
heap. Every object is filled with a pattern derived from its identifier;
the heap is validated and every live payload is checked periodically.

Example:
  poolctl stress --ops 100000 --seed 7
  poolctl stress --max-size 65536 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
}

// stressResult summarizes a stress run.
type stressResult struct {
	Seed      uint64       `json:"seed"`
	Ops       int          `json:"ops"`
	Allocated int          `json:"allocated"`
	Released  int          `json:"released"`
	NoFit     int          `json:"no_fit"`
	Compacts  int          `json:"compacts"`
	Checks    int          `json:"checks"`
	Live      int          `json:"live"`
	Report    arena.Report `json:"report"`
	Stats     arena.Stats  `json:"stats"`
}

func runStress() error {
	if stressOps < 0 || stressMaxObj < 1 || stressCheck < 1 {
		return fmt.Errorf("--ops must be >= 0, --max-object and --check-every must be >= 1")
	}
	cfg, err := conf.arenaConfig()
	if err != nil {
		return err
	}
	if stressMaxSize > 0 {
		cfg.MaxSize = stressMaxSize
		cfg.InitialSize = min(cfg.InitialSize, stressMaxSize)
	}

	h, err := handle.New(cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	res, err := stress(h, stressSeed, stressOps)
	if err != nil {
		return fmt.Errorf("seed %d: %w", stressSeed, err)
	}

	if jsonOut {
		return printJSON(res)
	}
	printStress(res)
	return nil
}

// pattern fills p with bytes derived from id.
func pattern(id handle.ID, p []byte) {
	for i := range p {
		p[i] = byte(uint64(id)*31 + uint64(i))
	}
}

func stress(h *handle.Heap, seed uint64, ops int) (stressResult, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	res := stressResult{Seed: seed, Ops: ops}
	live := make(map[handle.ID]int)
	var order []handle.ID

	check := func() error {
		res.Checks++
		if err := h.Validate(); err != nil {
			return err
		}
		want := make([]byte, 0, stressMaxObj)
		for id, n := range live {
			want = want[:n]
			pattern(id, want)
			if got := h.Bytes(id); !bytes.Equal(got[:n], want) {
				return errors.Newf("payload of id %d corrupted", id)
			}
		}
		return nil
	}

	for i := range ops {
		switch op := rng.IntN(10); {
		case op < 6 || len(order) == 0:
			size := 1 + rng.IntN(stressMaxObj)
			count := 1
			if rng.IntN(8) == 0 {
				count = 1 + rng.IntN(4)
			}
			first, err := h.Allocate(size, count)
			if errors.Is(err, arena.ErrNoFit) {
				res.NoFit++
				continue
			}
			if err != nil {
				return res, err
			}
			buf := make([]byte, size)
			for k := range count {
				id := first + handle.ID(k)
				pattern(id, buf)
				if _, err := h.Write(id, buf); err != nil {
					return res, err
				}
				live[id] = size
				order = append(order, id)
			}
			res.Allocated += count
		case op < 9:
			k := rng.IntN(len(order))
			id := order[k]
			order[k] = order[len(order)-1]
			order = order[:len(order)-1]
			if err := h.Release(id); err != nil {
				return res, err
			}
			delete(live, id)
			res.Released++
		default:
			if _, err := h.Compact(); err != nil {
				return res, err
			}
			res.Compacts++
		}
		if (i+1)%stressCheck == 0 {
			if err := check(); err != nil {
				return res, errors.Wrapf(err, "after op %d", i+1)
			}
			logger.Debug("stress checkpoint", "op", i+1, "live", len(live), "capacity", h.Arena().Capacity())
		}
	}
	if err := check(); err != nil {
		return res, err
	}

	res.Live = len(live)
	res.Report = h.Report()
	res.Stats = h.Arena().Stats()
	return res, nil
}

func printStress(res stressResult) {
	if quiet {
		return
	}
	fmt.Printf("%s  seed %d, %d operations, %d checks\n",
		render(headingStyle, "Stress"), res.Seed, res.Ops, res.Checks)
	fmt.Printf("occupancy %s\n", occupancyBar(res.Report.Occupancy(), 30))
	s := res.Stats
	rows := [][]string{
		{"allocated objects", strconv.Itoa(res.Allocated)},
		{"released objects", strconv.Itoa(res.Released)},
		{"live objects", strconv.Itoa(res.Live)},
		{"no fit", strconv.Itoa(res.NoFit)},
		{"explicit compacts", strconv.Itoa(res.Compacts)},
		{"arena fast path", strconv.Itoa(s.FastPath)},
		{"arena slow path", strconv.Itoa(s.SlowPath)},
		{"grows", strconv.Itoa(s.Grows)},
		{"compactions", strconv.Itoa(s.Compactions)},
		{"objects moved", strconv.Itoa(s.Moved)},
		{"bytes moved", strconv.Itoa(s.MovedBytes)},
		{"peak used", strconv.Itoa(s.PeakUsed)},
		{"capacity", strconv.Itoa(res.Report.Capacity)},
		{"holes", strconv.Itoa(len(res.Report.Holes))},
	}
	renderTable(os.Stdout, []string{"Metric", "Value"}, rows)
	printVerbose("%s", res.Report.String())
}
