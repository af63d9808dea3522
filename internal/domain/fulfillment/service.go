package fulfillment

// GroupOutcome is the result of applying one location group to its draft
type GroupOutcome struct {
	Match     MatchOutcome
	Completed bool
	Result    GroupResult
}

// FulfillGroup matches the group against the draft and completes the draft
// when at least one line was received. A draft without lines, or a group
// where nothing matched, yields Completed=false and a diagnostic; the draft
// must then not be saved.
func FulfillGroup(group *LocationGroup, f *Fulfillment, memoPrefix string) GroupOutcome {
	if len(f.Lines) == 0 {
		return GroupOutcome{Match: MatchOutcome{
			Diagnostics: []Diagnostic{GroupDiagnostic(LevelError, ReasonNoDestinationLines, group.LocationID,
				ErrNoDestinationLines.Message)},
		}}
	}

	outcome := GroupOutcome{Match: Match(group, f)}
	if outcome.Match.Received() == 0 {
		outcome.Match.Diagnostics = append(outcome.Match.Diagnostics,
			GroupDiagnostic(LevelWarn, ReasonNothingReceived, group.LocationID, ErrNothingReceived.Message))
		return outcome
	}

	memo := ""
	if group.ShipmentID != "" {
		memo = memoPrefix + group.ShipmentID
	}
	if err := f.Complete(Completion{
		ShipmentID:  group.ShipmentID,
		Memo:        memo,
		ShipDate:    group.ShipDate,
		TotalAmount: group.TotalAmount,
	}); err != nil {
		outcome.Match.Diagnostics = append(outcome.Match.Diagnostics,
			GroupDiagnostic(LevelError, ReasonTransformFailed, group.LocationID, err.Error()))
		return outcome
	}

	outcome.Completed = true
	outcome.Result = NewGroupResult(f)
	return outcome
}
