package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mmynk/splitpass/internal/itinerary"
	"github.com/mmynk/splitpass/internal/models"
)

var (
	ErrTooSmall      = errors.New("too few participants to form a group")
	ErrNoSteward     = errors.New("no participant is willing to steward")
	ErrInfeasible    = errors.New("no partition satisfies both size bounds and one steward per group")
	ErrOverflow      = errors.New("participant could not be placed: every group is full")
	ErrInvalidLimits = errors.New("invalid group size limits")
)

// Limits bounds the size of every group.
type Limits struct {
	Min int
	Max int
}

// DefaultLimits are the bounds of a standard multi-rider pass.
var DefaultLimits = Limits{Min: 2, Max: 5}

// Validate checks that the limits describe a usable range.
func (l Limits) Validate() error {
	if l.Min < 2 {
		return fmt.Errorf("%w: min %d must be at least 2", ErrInvalidLimits, l.Min)
	}
	if l.Max < l.Min {
		return fmt.Errorf("%w: max %d is below min %d", ErrInvalidLimits, l.Max, l.Min)
	}
	return nil
}

// PlannedGroup is one group produced by Pack.
type PlannedGroup struct {
	// Members in placement order; the seed steward comes first.
	Members []*models.Participant

	// Steward is the member selected to buy the pass.
	Steward *models.Participant
}

// Plan is the result of packing one itinerary bucket.
type Plan struct {
	Groups    []PlannedGroup
	Ungrouped []*models.Participant
}

// Grouped returns the number of participants placed in a group.
func (p *Plan) Grouped() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Members)
	}
	return n
}

// Pack splits one itinerary bucket into groups within limits, each with
// exactly one steward.
//
// preferred maps participant IDs of previous stewards to their previous
// group number. Preferred candidates seed groups first (lowest number
// first) and win steward selection in whatever group they land in.
// Candidates that seed no group are placed in input order, preferred or
// not. A nil map selects the first steward-willing member of each group.
//
// On error no groups are formed and every participant stays ungrouped.
func Pack(bucket *itinerary.Bucket, limits Limits, preferred map[string]int) (*Plan, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	n := bucket.Size()
	if n < limits.Min {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooSmall, n, limits.Min)
	}
	if len(bucket.StewardCandidates) == 0 {
		return nil, fmt.Errorf("%w: %d participants", ErrNoSteward, n)
	}

	candidates := orderCandidates(bucket.StewardCandidates, preferred)

	// Largest group count that meets the size floor and the one-steward rule.
	numGroups := min(n/limits.Min, len(candidates))
	if numGroups < ceilDiv(n, limits.Max) {
		return nil, fmt.Errorf("%w: %d participants, %d stewards, at most %d groups but need %d",
			ErrInfeasible, n, len(candidates), numGroups, ceilDiv(n, limits.Max))
	}

	groups := make([][]*models.Participant, numGroups)
	seeded := make(map[string]bool, numGroups)
	for i := range groups {
		groups[i] = make([]*models.Participant, 0, limits.Max)
		groups[i] = append(groups[i], candidates[i])
		seeded[candidates[i].ID] = true
	}

	// One cursor for extra stewards and non-stewards keeps sizes within one
	// of each other. Pass price is divided by headcount, so balance is cost.
	cursor := 0
	place := func(p *models.Participant) error {
		for range numGroups {
			g := cursor % numGroups
			cursor++
			if len(groups[g]) < limits.Max {
				groups[g] = append(groups[g], p)
				return nil
			}
		}
		return fmt.Errorf("%w: participant %s", ErrOverflow, p.ID)
	}

	for _, p := range bucket.StewardCandidates {
		if seeded[p.ID] {
			continue
		}
		if err := place(p); err != nil {
			return nil, err
		}
	}

	isCandidate := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		isCandidate[c.ID] = true
	}
	for _, p := range bucket.Participants {
		if isCandidate[p.ID] {
			continue
		}
		if err := place(p); err != nil {
			return nil, err
		}
	}

	plan := &Plan{}
	for _, members := range groups {
		if len(members) < limits.Min {
			plan.Ungrouped = append(plan.Ungrouped, members...)
			continue
		}
		plan.Groups = append(plan.Groups, PlannedGroup{
			Members: members,
			Steward: selectSteward(members, isCandidate, preferred),
		})
	}

	return plan, nil
}

// orderCandidates puts preferred stewards first, by previous group number,
// followed by the remaining candidates in input order.
func orderCandidates(candidates []*models.Participant, preferred map[string]int) []*models.Participant {
	ordered := make([]*models.Participant, len(candidates))
	copy(ordered, candidates)
	if len(preferred) == 0 {
		return ordered
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		ni, iok := preferred[ordered[i].ID]
		nj, jok := preferred[ordered[j].ID]
		if iok != jok {
			return iok
		}
		return iok && ni < nj
	})
	return ordered
}

// selectSteward picks the steward-willing member with the lowest previous
// number, falling back to the first steward-willing member.
func selectSteward(members []*models.Participant, isCandidate map[string]bool, preferred map[string]int) *models.Participant {
	var chosen *models.Participant
	best := 0
	for _, m := range members {
		if !isCandidate[m.ID] {
			continue
		}
		if n, ok := preferred[m.ID]; ok && (chosen == nil || n < best) {
			chosen, best = m, n
		}
	}
	if chosen != nil {
		return chosen
	}
	for _, m := range members {
		if isCandidate[m.ID] {
			return m
		}
	}
	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
