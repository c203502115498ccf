package chat

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Answer is the output of the answer-generation collaborator
type Answer struct {
	Text       string
	TokenCount int
	Latency    time.Duration
}

// AnswerGenerator produces an answer for a chat question. The real system
// would call an inference backend; this service only ships a simulator.
type AnswerGenerator interface {
	Generate(ctx context.Context, question string) (*Answer, error)
}

// LatencySource produces a simulated inference delay. Injectable so tests
// can run without sleeping.
type LatencySource func() time.Duration

// RandomLatency simulates inference latency between 300ms and 1200ms. The
// returned source serializes draws, so one generator can serve concurrent
// requests; the rand.Rand must not be shared with other consumers.
func RandomLatency(rng *rand.Rand) LatencySource {
	var mu sync.Mutex
	return func() time.Duration {
		mu.Lock()
		n := rng.Intn(901)
		mu.Unlock()
		return 300*time.Millisecond + time.Duration(n)*time.Millisecond
	}
}

// SimulatedAnswerGenerator is a deterministic mock: it echoes the question
// and counts three tokens per word, after a simulated delay.
type SimulatedAnswerGenerator struct {
	latency LatencySource
}

// NewSimulatedAnswerGenerator creates a simulator with the given latency
// source. A nil source uses the default random 300-1200ms delay.
func NewSimulatedAnswerGenerator(latency LatencySource) *SimulatedAnswerGenerator {
	if latency == nil {
		latency = RandomLatency(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	return &SimulatedAnswerGenerator{latency: latency}
}

// Generate implements AnswerGenerator. It honors context cancellation while
// waiting out the simulated latency.
func (g *SimulatedAnswerGenerator) Generate(ctx context.Context, question string) (*Answer, error) {
	delay := g.latency()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	words := len(strings.Fields(question))

	return &Answer{
		Text:       fmt.Sprintf("Mocked AI answer: %s", question),
		TokenCount: words * 3,
		Latency:    delay,
	}, nil
}
