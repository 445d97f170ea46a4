package main

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/internal/format"
	"github.com/joshuapare/poolkit/pool/arena"
	"github.com/joshuapare/poolkit/pool/handle"
)

func init() {
	rootCmd.AddCommand(newScenarioCmd())
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [a|b|c|d|all]...",
		Short: "Run the reference heap scenarios",
		Long: `The scenario command runs the reference workloads for the relocating heap
and prints the resulting free list:

  a  ten 4-byte objects in a 100-byte arena
  b  fragment the heap, then request more than any single hole
  c  force a grow and check the payload written before it
  d  release the same object twice

Example:
  poolctl scenario
  poolctl scenario b c --json`,
		ValidArgs: []string{"a", "b", "c", "d", "all"},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(args)
		},
	}
}

// scenarioResult is the outcome of one scenario.
type scenarioResult struct {
	Name   string       `json:"name"`
	Title  string       `json:"title"`
	Passed bool         `json:"passed"`
	Detail string       `json:"detail"`
	Report arena.Report `json:"report"`
	Stats  arena.Stats  `json:"stats"`
}

type scenario struct {
	name  string
	title string
	run   func(base arena.Config) (*handle.Heap, string, error)
}

var scenarios = []scenario{
	{"a", "ten 4-byte objects in a 100-byte arena", scenarioA},
	{"b", "fragmented request larger than any hole", scenarioB},
	{"c", "grow preserves payloads", scenarioC},
	{"d", "double release", scenarioD},
}

func runScenario(args []string) error {
	base, err := conf.arenaConfig()
	if err != nil {
		return err
	}

	selected := scenarios
	if len(args) > 0 && !slices.Contains(args, "all") {
		selected = slices.DeleteFunc(slices.Clone(scenarios), func(s scenario) bool {
			return !slices.Contains(args, s.name)
		})
	}

	results := make([]scenarioResult, 0, len(selected))
	failed := 0
	for _, s := range selected {
		printVerbose("Running scenario %s: %s\n", s.name, s.title)
		h, detail, err := s.run(base)
		res := scenarioResult{Name: s.name, Title: s.title, Passed: err == nil, Detail: detail}
		if err != nil {
			res.Detail = err.Error()
			failed++
		}
		if h != nil {
			res.Report = h.Report()
			res.Stats = h.Arena().Stats()
			if cerr := h.Close(); cerr != nil {
				return fmt.Errorf("scenario %s: closing heap: %w", s.name, cerr)
			}
		}
		results = append(results, res)
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			printScenario(res)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

func printScenario(res scenarioResult) {
	if quiet {
		return
	}
	fmt.Printf("%s %s  %s\n", passFail(res.Passed),
		render(headingStyle, "Scenario "+strings.ToUpper(res.Name)), res.Title)
	fmt.Printf("  %s\n", res.Detail)
	r := res.Report
	if r.Capacity == 0 {
		fmt.Println()
		return
	}
	fmt.Printf("  occupancy %s  capacity %d, %d live, %d grows, %d compactions\n",
		occupancyBar(r.Occupancy(), 30), r.Capacity, r.Live, res.Stats.Grows, res.Stats.Compactions)
	rows := make([][]string, 0, len(r.Holes))
	for i, h := range r.Holes {
		rows = append(rows, []string{strconv.Itoa(i), strconv.Itoa(h.Off), strconv.Itoa(h.Size)})
	}
	if len(rows) > 0 {
		renderTable(os.Stdout, []string{"Hole", "Offset", "Size"}, rows)
	}
	printVerbose("%s", r.String())
	fmt.Println()
}

func sized(base arena.Config, initial, maxSize int) arena.Config {
	base.InitialSize = initial
	if maxSize > 0 {
		base.MaxSize = maxSize
	}
	return base
}

func scenarioA(base arena.Config) (*handle.Heap, string, error) {
	h, err := handle.New(sized(base, 100, 0))
	if err != nil {
		return nil, "", err
	}
	first, err := h.Allocate(4, 10)
	if err != nil {
		return h, "", err
	}

	seen := make(map[format.Addr]bool, 10)
	live := 0
	for i := range 10 {
		id := first + handle.ID(i)
		addr, ok := h.Table().Get(id)
		if !ok {
			return h, "", errors.Newf("id %d missing", id)
		}
		if seen[addr] {
			return h, "", errors.Newf("id %d shares address %d", id, addr)
		}
		seen[addr] = true
		live += h.Size(id)
	}
	r := h.Report()
	switch {
	case h.Len() != 10:
		return h, "", errors.Newf("%d live objects, want 10", h.Len())
	case live < 40:
		return h, "", errors.Newf("live payload %d < 40 bytes", live)
	case r.Used > r.Capacity:
		return h, "", errors.Newf("used %d exceeds capacity %d", r.Used, r.Capacity)
	}
	return h, fmt.Sprintf("10 distinct objects, %d payload bytes, arena grew from 104 to %d", live, r.Capacity),
		h.Validate()
}

func scenarioB(base arena.Config) (*handle.Heap, string, error) {
	h, err := handle.New(sized(base, 160, 160))
	if err != nil {
		return nil, "", err
	}

	var ids []handle.ID
	for {
		id, err := h.Allocate(8, 1)
		if errors.Is(err, arena.ErrNoFit) {
			break
		}
		if err != nil {
			return h, "", err
		}
		if _, err := h.Write(id, bytes.Repeat([]byte{byte(id)}, 8)); err != nil {
			return h, "", err
		}
		ids = append(ids, id)
	}
	for i, id := range ids {
		if i%2 == 0 {
			if err := h.Release(id); err != nil {
				return h, "", err
			}
		}
	}
	before := h.Report()

	big, err := h.Allocate(before.Largest, 1)
	outcome := "no fit reported"
	switch {
	case err == nil:
		outcome = fmt.Sprintf("compaction made room for %d bytes", h.Size(big))
	case !errors.Is(err, arena.ErrNoFit):
		return h, "", err
	}

	for i, id := range ids {
		if i%2 == 1 && !bytes.Equal(h.Bytes(id)[:8], bytes.Repeat([]byte{byte(id)}, 8)) {
			return h, "", errors.Newf("id %d corrupted", id)
		}
	}
	return h, fmt.Sprintf("%d objects, %d holes of at most %d bytes; %s",
		len(ids), len(before.Holes), before.Largest, outcome), h.Validate()
}

func scenarioC(base arena.Config) (*handle.Heap, string, error) {
	tr := backing.NewTracker(backing.Heap)
	base.Source = tr
	h, err := handle.New(sized(base, 64, 0))
	if err != nil {
		return nil, "", err
	}

	want := []byte("payload written before the grow")
	id, err := h.Allocate(len(want), 1)
	if err != nil {
		return h, "", err
	}
	if _, err := h.Write(id, want); err != nil {
		return h, "", err
	}
	stale := h.Bytes(id)
	capBefore := h.Arena().Capacity()

	if _, err := h.Allocate(capBefore-len(want), 1); err != nil {
		return h, "", err
	}
	switch {
	case h.Arena().Stats().Grows == 0:
		return h, "", errors.New("allocation did not grow the arena")
	case !bytes.Equal(h.Bytes(id)[:len(want)], want):
		return h, "", errors.New("payload changed across grow")
	case !bytes.Equal(stale, bytes.Repeat([]byte{backing.PoisonByte}, len(stale))):
		return h, "", errors.New("old buffer still holds live data")
	case tr.Outstanding() != 1:
		return h, "", errors.Newf("%d backing buffers outstanding, want 1", tr.Outstanding())
	}
	return h, fmt.Sprintf("capacity %d -> %d, payload intact, old buffer released", capBefore, h.Arena().Capacity()),
		h.Validate()
}

func scenarioD(base arena.Config) (*handle.Heap, string, error) {
	h, err := handle.New(sized(base, 256, 0))
	if err != nil {
		return nil, "", err
	}
	id, err := h.Allocate(16, 1)
	if err != nil {
		return h, "", err
	}
	addr, _ := h.Table().Get(id)
	if err := h.Release(id); err != nil {
		return h, "", err
	}

	second := h.Release(id)
	if !errors.Is(second, handle.ErrUnknownIdentifier) {
		return h, "", errors.Newf("second release returned %v", second)
	}
	raw := h.Arena().Free(addr)
	if !errors.Is(raw, arena.ErrForeignAddress) {
		return h, "", errors.Newf("second arena free returned %v", raw)
	}
	r := h.Report()
	if r.Used+r.Free != r.Capacity {
		return h, "", errors.Newf("conservation broken: %d + %d != %d", r.Used, r.Free, r.Capacity)
	}
	return h, "second release and second free both rejected; free list intact", h.Validate()
}
