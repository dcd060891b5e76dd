package balance

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options control the search. Seed 0 picks a time-based seed, which is
// reported back in Result.Seed so the run can be replayed.
type Options struct {
	Weights            Weights       `json:"weights"`
	Iterations         int           `json:"iterations"`
	StallRounds        int           `json:"stallRounds"`
	Restarts           int           `json:"restarts"`
	Seed               uint64        `json:"seed"`
	InitialTemperature float64       `json:"initialTemperature"`
	Cooling            float64       `json:"cooling"`
	TimeBudget         time.Duration `json:"timeBudget"`
}

// Upper bounds on the search size. Each restart holds its own copy of the
// pool, so Restarts also bounds memory.
const (
	MaxRestarts   = 256
	MaxIterations = 1_000_000
)

func DefaultOptions() Options {
	return Options{
		Weights:            DefaultWeights(),
		Iterations:         4000,
		StallRounds:        800,
		Restarts:           8,
		InitialTemperature: 1.0,
		Cooling:            0.995,
		TimeBudget:         2 * time.Second,
	}
}

func (o Options) Validate() error {
	if err := o.Weights.Validate(); err != nil {
		return err
	}
	switch {
	case o.Iterations <= 0 || o.Iterations > MaxIterations:
		return fmt.Errorf("%w: iterations must be in [1, %d]", ErrInvalidOptions, MaxIterations)
	case o.StallRounds < 0:
		return fmt.Errorf("%w: stall rounds must not be negative", ErrInvalidOptions)
	case o.Restarts <= 0 || o.Restarts > MaxRestarts:
		return fmt.Errorf("%w: restarts must be in [1, %d]", ErrInvalidOptions, MaxRestarts)
	case math.IsNaN(o.InitialTemperature) || o.InitialTemperature < 0:
		return fmt.Errorf("%w: initial temperature must not be negative", ErrInvalidOptions)
	case math.IsNaN(o.Cooling) || o.Cooling <= 0 || o.Cooling > 1:
		return fmt.Errorf("%w: cooling must be in (0, 1]", ErrInvalidOptions)
	case o.TimeBudget <= 0:
		return fmt.Errorf("%w: time budget must be positive", ErrInvalidOptions)
	}
	return nil
}

type Result struct {
	A            []Candidate `json:"a"`
	B            []Candidate `json:"b"`
	Diffs        Diffs       `json:"diffs"`
	Score        float64     `json:"score"`
	InitialScore float64     `json:"initialScore"`
	Seed         uint64      `json:"seed"`
	Restart      int         `json:"restart"`
	Iterations   int         `json:"iterations"`
	Warnings     []Warning   `json:"warnings,omitempty"`
}

// checkEvery is how many moves run between budget checks.
const checkEvery = 64

const epsilon = 1e-12

type restartResult struct {
	onB          []bool
	score        float64
	initialScore float64
	iterations   int
	exhausted    bool
}

// Partition splits pool into teams A and B whose sizes differ by at most one,
// minimising opts.Weights.Score over the resulting Diffs.
//
// Each restart starts from its own random balanced split and runs an annealed
// local search over swap moves, plus relocate moves when the pool is odd so
// the side carrying the extra player is chosen by score. The best restart
// wins; ties go to the lowest restart index. The same pool, options and
// non-zero seed always give the same result unless the time budget or ctx
// cuts the search short.
func Partition(ctx context.Context, pool []Candidate, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if len(pool) < 2 {
		return Result{}, fmt.Errorf("%w: need at least 2, have %d", ErrInsufficientPlayers, len(pool))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) | 1
	}

	budgetCtx, cancel := context.WithTimeout(ctx, opts.TimeBudget)
	defer cancel()

	results := make([]restartResult, opts.Restarts)
	g, gctx := errgroup.WithContext(budgetCtx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for r := 0; r < opts.Restarts; r++ {
		g.Go(func() error {
			s := newSearch(slices.Clone(pool), opts, rand.New(rand.NewPCG(seed, uint64(r))))
			results[r] = s.run(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	best := 0
	for r := 1; r < len(results); r++ {
		if results[r].score < results[best].score-epsilon {
			best = r
		}
	}
	winner := results[best]

	var a, b []Candidate
	for i, c := range pool {
		if winner.onB[i] {
			b = append(b, c)
		} else {
			a = append(a, c)
		}
	}
	byPlayer := func(x, y Candidate) int {
		switch {
		case x.PlayerID < y.PlayerID:
			return -1
		case x.PlayerID > y.PlayerID:
			return 1
		}
		return 0
	}
	slices.SortStableFunc(a, byPlayer)
	slices.SortStableFunc(b, byPlayer)

	diffs := Evaluate(a, b)
	result := Result{
		A:            a,
		B:            b,
		Diffs:        diffs,
		Score:        winner.score,
		InitialScore: winner.initialScore,
		Seed:         seed,
		Restart:      best,
		Iterations:   winner.iterations,
		Warnings:     poolWarnings(pool),
	}

	for _, r := range results {
		if r.exhausted {
			result.Warnings = append(result.Warnings, Warning{
				Kind:    WarningBudgetExhausted,
				Message: "search stopped early, keeping the best split found",
			})
			break
		}
	}

	return result, nil
}

func poolWarnings(pool []Candidate) []Warning {
	var warnings []Warning
	goalies := 0
	for _, c := range pool {
		if !c.Average.Valid {
			warnings = append(warnings, Warning{
				Kind:     WarningIncompleteProfile,
				PlayerID: c.PlayerID,
				Message:  fmt.Sprintf("%s has no ratings, excluded from the average gap", c.Name),
			})
		}
		if !c.Age.Valid {
			warnings = append(warnings, Warning{
				Kind:     WarningUnknownAge,
				PlayerID: c.PlayerID,
				Message:  fmt.Sprintf("%s has no recorded age, excluded from the age gap", c.Name),
			})
		}
		if c.Goalie {
			goalies++
		}
	}
	if goalies < 2 {
		warnings = append(warnings, Warning{
			Kind:    WarningNoGoalie,
			Message: fmt.Sprintf("pool has %d goalie(s), not enough for one per team", goalies),
		})
	}
	return warnings
}

// search is one restart. It owns its pool copy and scratch slices.
type search struct {
	pool []Candidate
	opts Options
	rng  *rand.Rand

	onB  []bool
	a, b []Candidate
}

func newSearch(pool []Candidate, opts Options, rng *rand.Rand) *search {
	return &search{
		pool: pool,
		opts: opts,
		rng:  rng,
		onB:  make([]bool, len(pool)),
		a:    make([]Candidate, 0, len(pool)),
		b:    make([]Candidate, 0, len(pool)),
	}
}

func (s *search) score() float64 {
	s.a, s.b = s.a[:0], s.b[:0]
	for i, c := range s.pool {
		if s.onB[i] {
			s.b = append(s.b, c)
		} else {
			s.a = append(s.a, c)
		}
	}
	return s.opts.Weights.Score(diff(s.a, s.b))
}

// members returns the pool indexes on the given side.
func (s *search) members(onB bool) []int {
	var idx []int
	for i, v := range s.onB {
		if v == onB {
			idx = append(idx, i)
		}
	}
	return idx
}

// move applies a random move and returns a function that undoes it.
func (s *search) move() func() {
	n := len(s.pool)
	sideA, sideB := s.members(false), s.members(true)

	if n%2 == 1 && s.rng.IntN(4) == 0 {
		// Relocate one player from the bigger side to the smaller one. Sizes
		// stay within one of each other.
		from := sideA
		if len(sideB) > len(sideA) {
			from = sideB
		}
		i := from[s.rng.IntN(len(from))]
		s.onB[i] = !s.onB[i]
		return func() { s.onB[i] = !s.onB[i] }
	}

	i := sideA[s.rng.IntN(len(sideA))]
	j := sideB[s.rng.IntN(len(sideB))]
	s.onB[i], s.onB[j] = true, false
	return func() { s.onB[i], s.onB[j] = false, true }
}

func (s *search) run(ctx context.Context) restartResult {
	n := len(s.pool)
	for k, i := range s.rng.Perm(n) {
		s.onB[i] = k >= n/2
	}

	current := s.score()
	res := restartResult{
		onB:          slices.Clone(s.onB),
		score:        current,
		initialScore: current,
	}

	temperature := s.opts.InitialTemperature
	stall := 0
	for it := 0; it < s.opts.Iterations; it++ {
		if it%checkEvery == 0 && ctx.Err() != nil {
			res.exhausted = true
			break
		}
		res.iterations++

		undo := s.move()
		next := s.score()
		delta := next - current
		if delta < 0 || (temperature > 0 && s.rng.Float64() < math.Exp(-delta/temperature)) {
			current = next
		} else {
			undo()
		}

		if current < res.score-epsilon {
			res.score = current
			copy(res.onB, s.onB)
			stall = 0
		} else {
			stall++
		}
		if s.opts.StallRounds > 0 && stall >= s.opts.StallRounds {
			break
		}
		temperature *= s.opts.Cooling
	}

	return res
}
