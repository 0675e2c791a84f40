package forum

import (
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
)

type VoteOp string

const (
	VoteIncrement VoteOp = "increment"
	VoteDecrement VoteOp = "decrement"
)

type VoteField string

const (
	FieldUpvotes   VoteField = "upvotes"
	FieldDownvotes VoteField = "downvotes"
)

// voters names the username set that backs the field.
func (f VoteField) voters() string {
	if f == FieldUpvotes {
		return "upvoterUsernames"
	}
	return "downvoterUsernames"
}

// Vote is a single vote operation.
type Vote struct {
	Op    VoteOp
	Field VoteField
}

func ParseVote(op, field string) (Vote, error) {
	v := Vote{Op: VoteOp(op), Field: VoteField(field)}
	if v.Op != VoteIncrement && v.Op != VoteDecrement {
		return Vote{}, apperrors.Invalid(apperrors.ErrInvalidVote, "operation", op, "expected increment or decrement")
	}
	if v.Field != FieldUpvotes && v.Field != FieldDownvotes {
		return Vote{}, apperrors.Invalid(apperrors.ErrInvalidVote, "target", field, "expected upvotes or downvotes")
	}
	return v, nil
}

// VoteState is derived from voter set membership and never stored.
type VoteState int

const (
	VoteNone VoteState = iota
	VoteUpvoted
	VoteDownvoted
)

func (s VoteState) String() string {
	switch s {
	case VoteUpvoted:
		return "upvoted"
	case VoteDownvoted:
		return "downvoted"
	}
	return "none"
}

func (f VoteField) state() VoteState {
	if f == FieldUpvotes {
		return VoteUpvoted
	}
	return VoteDownvoted
}

// StateOf reports how username currently votes on t.
func StateOf(username string, t Target) VoteState {
	if contains(t.UpvoterUsernames, username) {
		return VoteUpvoted
	}
	if contains(t.DownvoterUsernames, username) {
		return VoteDownvoted
	}
	return VoteNone
}

// Check applies the transition rules for voter on t. Existence of t is the
// caller's concern.
func (v Vote) Check(voter string, t Target) error {
	if voter == t.Creator {
		return apperrors.Illegal(voter, "cannot vote on own content")
	}
	state := StateOf(voter, t)
	switch v.Op {
	case VoteIncrement:
		if state == v.Field.state() {
			return apperrors.Invalid(apperrors.ErrDuplicateIncrement, string(v.Field), nil,
				"user has already "+state.String()+" this item")
		}
		if state != VoteNone {
			return apperrors.Invalid(apperrors.ErrMultipleIncrementTargets, string(v.Field), nil,
				"user has already "+state.String()+" this item")
		}
	case VoteDecrement:
		if state == VoteNone {
			return apperrors.Invalid(apperrors.ErrInvalidDecrement, string(v.Field), nil,
				"user has not voted on this item")
		}
		if state != v.Field.state() {
			return apperrors.Invalid(apperrors.ErrMultitargetDecrement, string(v.Field), nil,
				"user has "+state.String()+" this item")
		}
	}
	return nil
}

// Update builds the ops that record the vote on the item p addresses. Only an
// upvote change on the question itself moves the sorter.
func (v Vote) Update(voter string, p Path) Update {
	delta := 1
	membership := AddToSet(v.Field.voters(), voter)
	if v.Op == VoteDecrement {
		delta = -1
		membership = Pull(v.Field.voters(), voter)
	}
	u := Update{Inc(string(v.Field), delta), membership}
	if p.IsRoot() && v.Field == FieldUpvotes {
		u = append(u, SorterShiftOps(delta)...)
	}
	return u
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
