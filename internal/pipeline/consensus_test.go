package pipeline

import (
	"math/rand"
	"testing"

	"tradearena/internal/market"
)

func sig(dir string, conf int) market.Signal {
	return market.Signal{Direction: dir, Confidence: conf}
}

func TestAggregate_EmptySet(t *testing.T) {
	c := Aggregate(nil)
	if c.Direction != market.DirectionNeutral || c.Confidence != 0 {
		t.Fatalf("empty set: got %s/%d want NEUTRAL/0", c.Direction, c.Confidence)
	}
}

func TestAggregate_StrictMajority(t *testing.T) {
	c := Aggregate([]market.Signal{
		sig(market.DirectionLong, 80),
		sig(market.DirectionLong, 60),
		sig(market.DirectionShort, 40),
	})
	if c.Direction != market.DirectionLong {
		t.Fatalf("direction = %s want LONG", c.Direction)
	}
	if c.Confidence != 60 {
		t.Fatalf("confidence = %d want 60", c.Confidence)
	}
	if c.Votes.Long != 2 || c.Votes.Short != 1 || c.Votes.Neutral != 0 {
		t.Fatalf("votes = %+v", c.Votes)
	}
}

func TestAggregate_TieResolvesNeutral(t *testing.T) {
	c := Aggregate([]market.Signal{
		sig(market.DirectionLong, 90),
		sig(market.DirectionShort, 90),
	})
	if c.Direction != market.DirectionNeutral {
		t.Fatalf("long/short tie: got %s want NEUTRAL", c.Direction)
	}
}

func TestAggregate_NeutralPluralityResolvesNeutral(t *testing.T) {
	c := Aggregate([]market.Signal{
		sig(market.DirectionNeutral, 50),
		sig(market.DirectionNeutral, 50),
		sig(market.DirectionLong, 95),
	})
	if c.Direction != market.DirectionNeutral {
		t.Fatalf("neutral plurality: got %s want NEUTRAL", c.Direction)
	}
}

func TestAggregate_MeanConfidenceRounding(t *testing.T) {
	c := Aggregate([]market.Signal{
		sig(market.DirectionLong, 50),
		sig(market.DirectionLong, 51),
	})
	// 50.5 rounds to nearest integer.
	if c.Confidence != 51 {
		t.Fatalf("confidence = %d want 51", c.Confidence)
	}
}

func TestAggregate_PermutationInvariant(t *testing.T) {
	base := []market.Signal{
		sig(market.DirectionLong, 80),
		sig(market.DirectionShort, 35),
		sig(market.DirectionLong, 62),
		sig(market.DirectionNeutral, 10),
		sig(market.DirectionShort, 55),
		sig(market.DirectionLong, 91),
	}
	want := Aggregate(base)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := make([]market.Signal, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := Aggregate(shuffled)
		if got != want {
			t.Fatalf("permutation %d changed result: got %+v want %+v", i, got, want)
		}
	}
}
