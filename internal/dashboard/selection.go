package dashboard

import (
	"errors"

	"github.com/swa/agilemetrics/internal/flow"
	"github.com/swa/agilemetrics/internal/validation"
)

/* Defaults are the selection settings used when a viewer supplies none */
type Defaults struct {
	Excluded    []string
	HourlyBound flow.BoundMode
}

// NewDefaults parses configured defaults.
func NewDefaults(excluded []string, hourlyBound string) (Defaults, error) {
	mode, err := flow.ParseBoundMode(hourlyBound)
	if err != nil {
		return Defaults{}, err
	}
	return Defaults{Excluded: excluded, HourlyBound: mode}, nil
}

/* Selection is a resolved viewer filter */
type Selection struct {
	Range       flow.DateRange
	HourlyBound flow.BoundMode
	Excluded    flow.ColumnSet
}

// DefaultSelection covers the full extent with the default exclusions.
func DefaultSelection(snap *Snapshot, defaults Defaults) Selection {
	return Selection{
		Range:       snap.Extent(),
		HourlyBound: defaults.HourlyBound,
		Excluded:    flow.DefaultExclusions(snap.Columns(), defaults.Excluded),
	}
}

/*
 * SelectionRequest is a selection as it arrives over the wire. Empty dates
 * fall back to the snapshot extent. A nil Exclude uses the defaults, an
 * empty one excludes nothing.
 */
type SelectionRequest struct {
	MinDate     string   `json:"min_date"`
	MaxDate     string   `json:"max_date"`
	Exclude     []string `json:"exclude"`
	HourlyBound string   `json:"hourly_bound"`
}

// Resolve validates the request against snap. Errors are
// *validation.ValidationError.
func (r SelectionRequest) Resolve(snap *Snapshot, defaults Defaults) (Selection, error) {
	sel := DefaultSelection(snap, defaults)

	minDate, err := validation.ParseDate("min_date", r.MinDate)
	if err != nil {
		return Selection{}, err
	}
	maxDate, err := validation.ParseDate("max_date", r.MaxDate)
	if err != nil {
		return Selection{}, err
	}
	if !minDate.IsZero() {
		sel.Range.Min = minDate
	}
	if !maxDate.IsZero() {
		sel.Range.Max = maxDate
	}

	if r.HourlyBound != "" {
		mode, err := flow.ParseBoundMode(r.HourlyBound)
		if err != nil {
			return Selection{}, validation.NewError("hourly_bound", "must be inclusive or exclusive, got %q", r.HourlyBound)
		}
		sel.HourlyBound = mode
	}

	if r.Exclude != nil {
		excluded, err := flow.ParseExclusions(snap.Columns(), validation.CleanList(r.Exclude))
		if err != nil {
			if errors.Is(err, flow.ErrUnknownColumn) {
				return Selection{}, validation.NewError("exclude", "%v", err)
			}
			return Selection{}, err
		}
		sel.Excluded = excluded
	}

	return sel, nil
}
