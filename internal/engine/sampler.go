package engine

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/castor-ai/castor/internal/core"
)

// penaltyWindow is how many of the most recent tokens the repeat penalty
// considers.
const penaltyWindow = 64

// Sampler selects the next token from backend logits, shaped by temperature,
// top-k, top-p, and a repeat penalty over recently accepted tokens. A
// Sampler is bound to one generation; create a fresh one per call.
type Sampler struct {
	temperature   float64
	topP          float64
	topK          int
	repeatPenalty float64

	recent []Token
	rng    *rand.Rand
}

// NewSampler builds a sampler for one generation. The seed makes runs
// reproducible; pass a varying seed for stochastic sampling.
func NewSampler(opts core.Sampling, seed uint64) *Sampler {
	return &Sampler{
		temperature:   opts.Temperature,
		topP:          opts.TopP,
		topK:          opts.TopK,
		repeatPenalty: opts.RepeatPenalty,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

type candidate struct {
	tok   Token
	logit float64
}

// Sample picks the next token from the given vocabulary logits. With
// temperature <= 0 it is greedy argmax.
func (s *Sampler) Sample(logits []float32) Token {
	candidates := make([]candidate, len(logits))
	for i, l := range logits {
		candidates[i] = candidate{tok: Token(i), logit: float64(l)}
	}

	s.applyRepeatPenalty(candidates)

	if s.temperature <= 0 {
		return argmax(candidates)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].logit > candidates[j].logit
	})

	if s.topK > 0 && s.topK < len(candidates) {
		candidates = candidates[:s.topK]
	}

	probs := softmax(candidates, s.temperature)
	probs = truncateTopP(probs, candidates, s.topP)
	candidates = candidates[:len(probs)]

	return s.pick(candidates, probs)
}

// Accept records a sampled token so the repeat penalty can see it.
func (s *Sampler) Accept(tok Token) {
	s.recent = append(s.recent, tok)
	if len(s.recent) > penaltyWindow {
		s.recent = s.recent[len(s.recent)-penaltyWindow:]
	}
}

func (s *Sampler) applyRepeatPenalty(candidates []candidate) {
	if s.repeatPenalty == 0 || s.repeatPenalty == 1 {
		return
	}

	for _, tok := range s.recent {
		idx := int(tok)
		if idx < 0 || idx >= len(candidates) {
			continue
		}

		if candidates[idx].logit > 0 {
			candidates[idx].logit /= s.repeatPenalty
		} else {
			candidates[idx].logit *= s.repeatPenalty
		}
	}
}

func (s *Sampler) pick(candidates []candidate, probs []float64) Token {
	r := s.rng.Float64()
	cum := 0.0

	for i, p := range probs {
		cum += p
		if r < cum {
			return candidates[i].tok
		}
	}

	return candidates[len(candidates)-1].tok
}

func argmax(candidates []candidate) Token {
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].logit > candidates[best].logit {
			best = i
		}
	}

	return candidates[best].tok
}

// softmax converts temperature-scaled logits to probabilities. Candidates
// must already be sorted descending by logit.
func softmax(candidates []candidate, temperature float64) []float64 {
	maxLogit := candidates[0].logit / temperature

	probs := make([]float64, len(candidates))
	sum := 0.0

	for i, c := range candidates {
		p := math.Exp(c.logit/temperature - maxLogit)
		probs[i] = p
		sum += p
	}

	for i := range probs {
		probs[i] /= sum
	}

	return probs
}

// truncateTopP keeps the smallest prefix of the (descending) probability
// list whose cumulative mass reaches topP, then renormalizes.
func truncateTopP(probs []float64, candidates []candidate, topP float64) []float64 {
	if topP <= 0 || topP >= 1 {
		return probs
	}

	cum := 0.0
	cut := len(probs)

	for i, p := range probs {
		cum += p
		if cum >= topP {
			cut = i + 1
			break
		}
	}

	probs = probs[:cut]

	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	for i := range probs {
		probs[i] /= sum
	}

	return probs
}
