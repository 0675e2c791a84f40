package forum

import (
	"strings"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Sorter scores live on the question root only:
//
//	uvc  = upvotes + views + comments
//	uvac = upvotes + views + answers + comments
//
// Comments on answers are not counted.

// Expected derives the sorter from the raw counters.
func (c Counters) Expected() Sorter {
	return Sorter{
		UVC:  c.Upvotes + c.Views + c.Comments,
		UVAC: c.Upvotes + c.Views + c.Answers + c.Comments,
	}
}

// Consistent reports whether the stored sorter matches the counters.
func (c Counters) Consistent() bool { return c.Sorter == c.Expected() }

// CountersOf extracts the sorter inputs from a full question.
func CountersOf(q *Question) Counters {
	return Counters{Upvotes: q.Upvotes, Views: q.Views, Answers: q.Answers, Comments: q.Comments, Sorter: q.Sorter}
}

// AnswerCountOps adjusts the answer count after an answer is added or removed.
func AnswerCountOps(delta int) Update {
	return Update{
		AtRoot(Inc("answers", delta)),
		AtRoot(Inc("sorter.uvac", delta)),
	}
}

// CommentCountOps adjusts the comment count after a comment directly on the
// question is added or removed.
func CommentCountOps(delta int) Update {
	return Update{
		AtRoot(Inc("comments", delta)),
		AtRoot(Inc("sorter.uvc", delta)),
		AtRoot(Inc("sorter.uvac", delta)),
	}
}

// SorterShiftOps moves both scores by delta.
func SorterShiftOps(delta int) Update {
	return Update{
		AtRoot(Inc("sorter.uvc", delta)),
		AtRoot(Inc("sorter.uvac", delta)),
	}
}

// Views is either a literal view count or the "increment" pseudo-operation.
type Views struct {
	Increment bool
	Value     int
}

const viewsIncrement = "increment"

// ParseViews accepts the string "increment" or a non-negative integer. JSON
// numbers arrive as float64.
func ParseViews(raw interface{}) (*Views, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if v == viewsIncrement {
			return &Views{Increment: true}, nil
		}
	case float64:
		if v >= 0 && v == float64(int(v)) {
			return &Views{Value: int(v)}, nil
		}
	case int:
		if v >= 0 {
			return &Views{Value: v}, nil
		}
	}
	return nil, apperrors.Invalid(apperrors.ErrInvalidInput, "views", raw, `expected a non-negative integer or "increment"`)
}

// QuestionPatch is a partial update of the question root.
type QuestionPatch struct {
	Title   *string
	Text    *string
	Status  *Status
	Views   *Views
	Upvotes *int
}

func (p QuestionPatch) Empty() bool {
	return p.Title == nil && p.Text == nil && p.Status == nil && p.Views == nil && p.Upvotes == nil
}

// TouchesSorter reports whether applying p moves the sorter.
func (p QuestionPatch) TouchesSorter() bool { return p.Views != nil || p.Upvotes != nil }

func (p QuestionPatch) Validate() error {
	if p.Empty() {
		return apperrors.Invalid(apperrors.ErrInvalidInput, "patch", nil, "no fields to update")
	}
	if p.Status != nil && !p.Status.Valid() {
		return apperrors.Invalid(apperrors.ErrInvalidInput, "status", *p.Status, "expected open, closed or protected")
	}
	if p.Upvotes != nil && *p.Upvotes < 0 {
		return apperrors.Invalid(apperrors.ErrInvalidInput, "upvotes", *p.Upvotes, "must not be negative")
	}
	if p.Views != nil && !p.Views.Increment && p.Views.Value < 0 {
		return apperrors.Invalid(apperrors.ErrInvalidInput, "views", p.Views.Value, "must not be negative")
	}
	return nil
}

// Resolve turns p into logical ops given the currently stored counters. Both
// the views and upvotes shifts are measured against cur, never against each
// other. Callers must read cur and apply the result atomically.
func (p QuestionPatch) Resolve(cur Counters) Update {
	u := p.plainSets()
	shift := 0
	if p.Views != nil {
		next := p.Views.Value
		if p.Views.Increment {
			next = cur.Views + 1
		}
		shift += next - cur.Views
		u = append(u, Set("views", next))
	}
	if p.Upvotes != nil {
		shift += *p.Upvotes - cur.Upvotes
		u = append(u, Set("upvotes", *p.Upvotes))
	}
	if shift != 0 {
		u = append(u, SorterShiftOps(shift)...)
	}
	return u
}

func (p QuestionPatch) plainSets() Update {
	var u Update
	if p.Title != nil {
		u = append(u, Set("title", *p.Title), Set("titleLowercase", strings.ToLower(*p.Title)))
	}
	if p.Text != nil {
		u = append(u, Set("text", *p.Text))
	}
	if p.Status != nil {
		u = append(u, Set("status", string(*p.Status)))
	}
	return u
}

// Pipeline renders p as a single-stage update pipeline. Field references in a
// $set stage resolve against the document as it was before the stage, so the
// sorter shift is computed from the stored views and upvotes in the same
// atomic write.
func (p QuestionPatch) Pipeline() mongo.Pipeline {
	set := bson.D{}
	for _, op := range p.plainSets() {
		set = append(set, bson.E{Key: op.Field, Value: bson.M{"$literal": op.Value}})
	}

	var shifts bson.A
	if p.Views != nil {
		next := interface{}(bson.M{"$literal": p.Views.Value})
		if p.Views.Increment {
			next = bson.M{"$add": bson.A{"$views", 1}}
		}
		set = append(set, bson.E{Key: "views", Value: next})
		shifts = append(shifts, bson.M{"$subtract": bson.A{next, "$views"}})
	}
	if p.Upvotes != nil {
		next := bson.M{"$literal": *p.Upvotes}
		set = append(set, bson.E{Key: "upvotes", Value: next})
		shifts = append(shifts, bson.M{"$subtract": bson.A{next, "$upvotes"}})
	}
	if len(shifts) > 0 {
		shift := bson.M{"$add": shifts}
		set = append(set,
			bson.E{Key: "sorter.uvc", Value: bson.M{"$add": bson.A{"$sorter.uvc", shift}}},
			bson.E{Key: "sorter.uvac", Value: bson.M{"$add": bson.A{"$sorter.uvac", shift}}},
		)
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}
