package main

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/sanspareilsmyn/latencymap/internal/record"
)

const maxExponent = 40

// generator keeps cumulative per-bucket counts and emits them as protocol records,
// the way a tracing connector would.
type generator struct {
	rng    *rand.Rand
	counts map[int]int64

	source string
	unit   string
	label  string

	// meanExp and spread describe the log2 latency distribution of synthetic events.
	meanExp float64
	spread  float64
}

func newGenerator(seed int64, source, unit, label string, meanExp, spread float64) *generator {
	return &generator{
		rng:     rand.New(rand.NewSource(seed)),
		counts:  make(map[int]int64),
		source:  source,
		unit:    unit,
		label:   label,
		meanExp: meanExp,
		spread:  spread,
	}
}

// observe adds events latencies drawn from the configured distribution.
func (g *generator) observe(events int) {
	for i := 0; i < events; i++ {
		exp := int(math.Round(g.meanExp + g.rng.NormFloat64()*g.spread))
		exp = min(max(exp, 0), maxExponent)
		g.counts[exp]++
	}
}

// record renders the current cumulative state stamped with now.
func (g *generator) record(now time.Time) string {
	var b strings.Builder
	b.WriteString(record.BeginTag + "\n")
	fmt.Fprintf(&b, "timestamp,microsec,%d,%s\n", now.UnixMicro(), now.Format(time.ANSIC))
	if g.label != "" {
		fmt.Fprintf(&b, "label,%s\n", g.label)
	}
	fmt.Fprintf(&b, "datasource,%s\n", g.source)
	fmt.Fprintf(&b, "latencyunit,%s\n", g.unit)

	exps := make([]int, 0, len(g.counts))
	for exp := range g.counts {
		exps = append(exps, exp)
	}
	sort.Ints(exps)
	for _, exp := range exps {
		fmt.Fprintf(&b, "%d,%d\n", int64(1)<<exp, g.counts[exp])
	}
	b.WriteString(record.EndTag + "\n")
	return b.String()
}
