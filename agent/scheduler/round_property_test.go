package scheduler

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/testutil/mocks"
	"pgregory.net/rapid"
)

func TestProperty_SequentialPick(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "participants")
		ranked := make([]conversation.Participant, n)
		for i := range ranked {
			ranked[i] = conversation.Participant{Name: fmt.Sprintf("p%d", i)}
		}
		last := rapid.SampledFrom(append([]string{""}, names(ranked)...)).Draw(rt, "last_speaker")

		got := pickSequential(ranked, last)
		switch {
		case n > 1 && ranked[0].Name == last:
			if got.Name != ranked[1].Name {
				rt.Fatalf("top spoke last, expected runner-up %s, got %s", ranked[1].Name, got.Name)
			}
		default:
			if got.Name != ranked[0].Name {
				rt.Fatalf("expected top %s, got %s", ranked[0].Name, got.Name)
			}
		}
	})
}

// Over random rounds and modes the log only grows, earlier entries never
// change, cursors never decrease, and single-speaker modes add exactly one
// participant message per motivated round.
func TestProperty_RoundsPreserveLogAndCursors(t *testing.T) {
	participants := []string{"alice", "bob", "carol"}

	rapid.Check(t, func(rt *rapid.T) {
		mode := rapid.SampledFrom(conversation.Modes()).Draw(rt, "mode")
		mock := mocks.NewMockRuntime()
		for _, name := range participants {
			each := rapid.IntRange(0, 10).Draw(rt, name+"_each")
			urgency := rapid.IntRange(0, 10).Draw(rt, name+"_urgency")
			group := rapid.IntRange(0, 10).Draw(rt, name+"_group")
			mock.WithAssessment(name, mocks.Ratings(float64(each), float64(urgency), float64(group)))
			if rapid.Bool().Draw(rt, name+"_fails") {
				mock.WithTurnError(name, fmt.Errorf("%s is offline", name))
			}
		}

		ps := make([]conversation.Participant, len(participants))
		for i, name := range participants {
			ps[i] = conversation.Participant{Name: name, Expertise: "testing"}
		}
		s, err := New(Options{Participants: ps, Runtime: mock, Config: testConfig(mode)})
		if err != nil {
			rt.Fatalf("new scheduler: %v", err)
		}
		defer s.Close()

		before := s.Transcript()
		cursors := make(map[string]int)
		for _, name := range participants {
			cursors[name] = -1
		}
		rounds := rapid.IntRange(1, 4).Draw(rt, "rounds")
		for r := 0; r < rounds; r++ {
			if rapid.Bool().Draw(rt, fmt.Sprintf("human_%d", r)) {
				if _, err := s.AppendAndGetIndex(conversation.HumanSender, "next question"); err != nil {
					rt.Fatalf("append: %v", err)
				}
			}

			out, err := s.RunRound(context.Background(), "topic")
			if err != nil {
				rt.Fatalf("round %d: %v", r, err)
			}

			after := s.Transcript()
			if len(after) < len(before) {
				rt.Fatalf("log shrank from %d to %d", len(before), len(after))
			}
			for i := range before {
				if !before[i].Equal(after[i]) {
					rt.Fatalf("entry %d changed", i)
				}
			}
			if out.NoParticipation && len(out.Spoken) != 0 {
				rt.Fatalf("no-participation round produced speakers")
			}
			if mode.SingleSpeaker() && !out.NoParticipation && len(out.Spoken) != 1 {
				rt.Fatalf("%s round produced %d speakers", mode, len(out.Spoken))
			}
			for _, a := range out.Assessments {
				if a.Priority > 0 && a.Motivation < 20 {
					rt.Fatalf("%s has priority without motivation", a.Participant)
				}
			}
			for _, name := range participants {
				c, _ := s.GetCursor(name)
				if c < cursors[name] {
					rt.Fatalf("cursor of %s moved from %d to %d", name, cursors[name], c)
				}
				cursors[name] = c
			}
			before = after
		}
	})
}

func names(ps []conversation.Participant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	sort.Strings(out)
	return out
}
