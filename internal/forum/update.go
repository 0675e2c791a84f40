package forum

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OpKind is the closed set of logical update operations.
type OpKind int

const (
	OpSetFields OpKind = iota
	OpIncrement
	OpPushItem
	OpAddToSet
	OpPullItem
)

func (k OpKind) operator() string {
	switch k {
	case OpSetFields:
		return "$set"
	case OpIncrement:
		return "$inc"
	case OpPushItem:
		return "$push"
	case OpAddToSet:
		return "$addToSet"
	case OpPullItem:
		return "$pull"
	}
	panic(fmt.Sprintf("forum: unknown op kind %d", k))
}

func (k OpKind) String() string { return k.operator() }

// Op is one logical operation on a field of the addressed item. Root ops
// always apply to the question document regardless of the path they are
// issued with.
type Op struct {
	Kind  OpKind
	Field string
	Value interface{}
	Root  bool
}

func Set(field string, v interface{}) Op { return Op{Kind: OpSetFields, Field: field, Value: v} }
func Inc(field string, n int) Op         { return Op{Kind: OpIncrement, Field: field, Value: n} }
func Push(field string, v interface{}) Op {
	return Op{Kind: OpPushItem, Field: field, Value: v}
}
func AddToSet(field string, v interface{}) Op {
	return Op{Kind: OpAddToSet, Field: field, Value: v}
}

// Pull removes array elements equal to match. A bson.M match removes the
// elements whose fields equal every entry of the map.
func Pull(field string, match interface{}) Op {
	return Op{Kind: OpPullItem, Field: field, Value: match}
}

// AtRoot marks op as a question root operation.
func AtRoot(op Op) Op {
	op.Root = true
	return op
}

// Update is an ordered list of logical operations applied atomically.
type Update []Op

// Physical translates u into a MongoDB update document whose field paths are
// scoped to p, and the array filters that bind the positional identifiers.
// The transform does not look at field names: every op is prefixed the same way.
func (u Update) Physical(p Path) (bson.D, *options.UpdateOptions) {
	prefix := p.Prefix()
	byOperator := map[OpKind]bson.D{}
	var order []OpKind
	for _, op := range u {
		field := op.Field
		if !op.Root {
			field = prefix + field
		}
		if _, seen := byOperator[op.Kind]; !seen {
			order = append(order, op.Kind)
		}
		byOperator[op.Kind] = append(byOperator[op.Kind], bson.E{Key: field, Value: op.Value})
	}
	doc := make(bson.D, 0, len(order))
	for _, k := range order {
		doc = append(doc, bson.E{Key: k.operator(), Value: byOperator[k]})
	}
	opts := options.Update()
	if filters := p.ArrayFilters(); len(filters) > 0 && u.hasScoped() {
		opts.SetArrayFilters(options.ArrayFilters{Filters: filters})
	}
	return doc, opts
}

func (u Update) hasScoped() bool {
	for _, op := range u {
		if !op.Root {
			return true
		}
	}
	return false
}

// Kinds lists the distinct op kinds in u, for metrics labels.
func (u Update) Kinds() []string {
	seen := map[OpKind]bool{}
	var out []string
	for _, op := range u {
		if !seen[op.Kind] {
			seen[op.Kind] = true
			out = append(out, op.Kind.String())
		}
	}
	return out
}

// MatchResult mirrors the driver's matched count for a single-document update.
type MatchResult struct {
	MatchedCount int64
}
