package fulfillment

import "fmt"

// MatchResult pairs a group member with the destination line it was received into
type MatchResult struct {
	SequenceNumber   int
	SourceLineIndex  int
	DestinationIndex int
}

// MatchOutcome is the result of matching one group against a draft
type MatchOutcome struct {
	Matches     []MatchResult
	Diagnostics []Diagnostic
}

// Received returns the number of members that found a destination line
func (o MatchOutcome) Received() int {
	return len(o.Matches)
}

// Match receives each group member into the first unreceived destination
// line with the same sequence number. Members without a counterpart produce
// a no-match error diagnostic and are left out. Each destination line is
// received at most once.
func Match(group *LocationGroup, f *Fulfillment) MatchOutcome {
	outcome := MatchOutcome{
		Matches:     make([]MatchResult, 0, len(group.Lines)),
		Diagnostics: make([]Diagnostic, 0),
	}

	for _, member := range group.Lines {
		idx := findUnreceived(f, member.SequenceNumber)
		if idx < 0 {
			outcome.Diagnostics = append(outcome.Diagnostics, lineDiagnostic(LevelError, ReasonNoMatch, member.OrderLine,
				fmt.Sprintf("no destination line with sequence %d", member.SequenceNumber)))
			continue
		}
		f.receive(idx, member)
		outcome.Matches = append(outcome.Matches, MatchResult{
			SequenceNumber:   member.SequenceNumber,
			SourceLineIndex:  member.LineIndex,
			DestinationIndex: idx,
		})
	}
	return outcome
}

func findUnreceived(f *Fulfillment, sequence int) int {
	for i := range f.Lines {
		if !f.Lines[i].Received && f.Lines[i].SequenceNumber == sequence {
			return i
		}
	}
	return -1
}
