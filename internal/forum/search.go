package forum

import (
	"regexp"
	"sort"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SortKey selects the listing order. Every order is descending and ties are
// broken by _id descending so pages stay stable.
type SortKey string

const (
	SortInsertion SortKey = ""
	SortUpvotes   SortKey = "u"
	SortUVC       SortKey = "uvc"
	SortUVAC      SortKey = "uvac"
)

func ParseSort(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortInsertion, SortUpvotes, SortUVC, SortUVAC:
		return k, nil
	}
	return "", apperrors.Invalid(apperrors.ErrInvalidMatch, "sort", s, "expected u, uvc or uvac")
}

// Field is the stored field ordered on, empty for insertion order.
func (k SortKey) Field() string {
	switch k {
	case SortUpvotes:
		return "upvotes"
	case SortUVC:
		return "sorter.uvc"
	case SortUVAC:
		return "sorter.uvac"
	}
	return ""
}

// Value reads the sort field from q.
func (k SortKey) Value(q *Question) int {
	switch k {
	case SortUpvotes:
		return q.Upvotes
	case SortUVC:
		return q.Sorter.UVC
	case SortUVAC:
		return q.Sorter.UVAC
	}
	return 0
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindBool
	kindStatus
)

type matchField struct {
	kind fieldKind
	get  func(*Question) interface{}
}

var matchable = map[string]matchField{
	"creator":           {kindString, func(q *Question) interface{} { return q.Creator }},
	"status":            {kindStatus, func(q *Question) interface{} { return string(q.Status) }},
	"hasAcceptedAnswer": {kindBool, func(q *Question) interface{} { return q.HasAcceptedAnswer }},
	"upvotes":           {kindInt, func(q *Question) interface{} { return q.Upvotes }},
	"downvotes":         {kindInt, func(q *Question) interface{} { return q.Downvotes }},
	"views":             {kindInt, func(q *Question) interface{} { return q.Views }},
	"answers":           {kindInt, func(q *Question) interface{} { return q.Answers }},
	"comments":          {kindInt, func(q *Question) interface{} { return q.Comments }},
}

type regexField struct {
	column string
	get    func(*Question) string
}

var regexable = map[string]regexField{
	"title":   {"titleLowercase", func(q *Question) string { return q.TitleLowercase }},
	"text":    {"text", func(q *Question) string { return q.Text }},
	"creator": {"creator", func(q *Question) string { return q.Creator }},
}

var rangeOps = map[string]func(a, b int) bool{
	"$gt":  func(a, b int) bool { return a > b },
	"$gte": func(a, b int) bool { return a >= b },
	"$lt":  func(a, b int) bool { return a < b },
	"$lte": func(a, b int) bool { return a <= b },
}

// SearchQuery is the caller-facing listing request.
type SearchQuery struct {
	AfterID    *primitive.ObjectID
	Match      map[string]interface{}
	RegexMatch map[string]string
	Sort       SortKey
	Limit      int
}

// Cursor is the position of the AfterID document in sort order.
type Cursor struct {
	ID    primitive.ObjectID
	Value int
}

type bound struct {
	op    string
	value int
}

type criterion struct {
	field  string
	get    func(*Question) interface{}
	eq     interface{}
	bounds []bound
}

type regexCriterion struct {
	column  string
	pattern string
	re      *regexp.Regexp
	get     func(*Question) string
}

// Compiled is a validated SearchQuery, renderable as a MongoDB pipeline or
// evaluable against in-memory questions.
type Compiled struct {
	Sort    SortKey
	Limit   int
	AfterID *primitive.ObjectID
	match   []criterion
	regex   []regexCriterion
}

// Compile validates q against the field whitelists.
func Compile(q SearchQuery, defaultLimit int) (*Compiled, error) {
	if _, err := ParseSort(string(q.Sort)); err != nil {
		return nil, err
	}
	c := &Compiled{Sort: q.Sort, Limit: q.Limit, AfterID: q.AfterID}
	if c.Limit <= 0 {
		c.Limit = defaultLimit
	}

	for _, name := range sortedKeys(q.Match) {
		f, ok := matchable[name]
		if !ok {
			return nil, apperrors.Invalid(apperrors.ErrInvalidMatch, "match."+name, nil, "field cannot be matched")
		}
		crit, err := compileMatch(name, f, q.Match[name])
		if err != nil {
			return nil, err
		}
		c.match = append(c.match, crit)
	}

	regexNames := make([]string, 0, len(q.RegexMatch))
	for name := range q.RegexMatch {
		regexNames = append(regexNames, name)
	}
	sort.Strings(regexNames)
	for _, name := range regexNames {
		f, ok := regexable[name]
		if !ok {
			return nil, apperrors.Invalid(apperrors.ErrInvalidMatch, "regexMatch."+name, nil, "field cannot be regex matched")
		}
		pattern := q.RegexMatch[name]
		if pattern == "" {
			return nil, apperrors.Invalid(apperrors.ErrInvalidMatch, "regexMatch."+name, pattern, "empty pattern")
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, apperrors.Invalid(apperrors.ErrInvalidMatch, "regexMatch."+name, pattern, err.Error())
		}
		c.regex = append(c.regex, regexCriterion{column: f.column, pattern: pattern, re: re, get: f.get})
	}
	return c, nil
}

func compileMatch(name string, f matchField, raw interface{}) (criterion, error) {
	crit := criterion{field: name, get: f.get}
	bad := func(reason string) (criterion, error) {
		return criterion{}, apperrors.Invalid(apperrors.ErrInvalidMatch, "match."+name, raw, reason)
	}
	switch f.kind {
	case kindString:
		s, ok := raw.(string)
		if !ok {
			return bad("expected a string")
		}
		crit.eq = s
	case kindStatus:
		s, ok := raw.(string)
		if !ok || !Status(s).Valid() {
			return bad("expected open, closed or protected")
		}
		crit.eq = s
	case kindBool:
		b, ok := raw.(bool)
		if !ok {
			return bad("expected a boolean")
		}
		crit.eq = b
	case kindInt:
		if n, ok := asInt(raw); ok {
			crit.eq = n
			break
		}
		ranges, ok := raw.(map[string]interface{})
		if !ok || len(ranges) == 0 {
			return bad("expected an integer or a range object")
		}
		for _, op := range sortedKeys(ranges) {
			if _, known := rangeOps[op]; !known {
				return bad("unknown range operator " + op)
			}
			n, ok := asInt(ranges[op])
			if !ok {
				return bad("range bound " + op + " must be an integer")
			}
			crit.bounds = append(crit.bounds, bound{op: op, value: n})
		}
	}
	return crit, nil
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// Filter renders the match, regex and cursor conditions.
func (c *Compiled) Filter(cursor *Cursor) bson.D {
	filter := bson.D{}
	for _, m := range c.match {
		if len(m.bounds) == 0 {
			filter = append(filter, bson.E{Key: m.field, Value: m.eq})
			continue
		}
		r := bson.D{}
		for _, b := range m.bounds {
			r = append(r, bson.E{Key: b.op, Value: b.value})
		}
		filter = append(filter, bson.E{Key: m.field, Value: r})
	}
	// regex conditions go under $and so they can share a field with an exact match
	if len(c.regex) > 0 {
		and := bson.A{}
		for _, r := range c.regex {
			and = append(and, bson.M{r.column: primitive.Regex{Pattern: r.pattern, Options: "i"}})
		}
		filter = append(filter, bson.E{Key: "$and", Value: and})
	}
	if cursor != nil {
		field := c.Sort.Field()
		if field == "" {
			filter = append(filter, bson.E{Key: "_id", Value: bson.M{"$lt": cursor.ID}})
		} else {
			filter = append(filter, bson.E{Key: "$or", Value: bson.A{
				bson.M{field: bson.M{"$lt": cursor.Value}},
				bson.M{field: cursor.Value, "_id": bson.M{"$lt": cursor.ID}},
			}})
		}
	}
	return filter
}

// SortSpec is the $sort document.
func (c *Compiled) SortSpec() bson.D {
	if field := c.Sort.Field(); field != "" {
		return bson.D{{Key: field, Value: -1}, {Key: "_id", Value: -1}}
	}
	return bson.D{{Key: "_id", Value: -1}}
}

// Pipeline renders the listing aggregation for the page after cursor.
func (c *Compiled) Pipeline(cursor *Cursor) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: c.Filter(cursor)}},
		{{Key: "$sort", Value: c.SortSpec()}},
		{{Key: "$limit", Value: c.Limit}},
	}
}

// Matches evaluates the match and regex conditions against q.
func (c *Compiled) Matches(q *Question) bool {
	for _, m := range c.match {
		v := m.get(q)
		if len(m.bounds) == 0 {
			if v != m.eq {
				return false
			}
			continue
		}
		n := v.(int)
		for _, b := range m.bounds {
			if !rangeOps[b.op](n, b.value) {
				return false
			}
		}
	}
	for _, r := range c.regex {
		if !r.re.MatchString(r.get(q)) {
			return false
		}
	}
	return true
}

// Less orders a before b in the listing.
func (c *Compiled) Less(a, b *Question) bool {
	if c.Sort != SortInsertion {
		va, vb := c.Sort.Value(a), c.Sort.Value(b)
		if va != vb {
			return va > vb
		}
	}
	return a.ID.Hex() > b.ID.Hex()
}

// After reports whether q comes strictly after cursor in the listing.
func (c *Compiled) After(q *Question, cursor Cursor) bool {
	if c.Sort != SortInsertion {
		v := c.Sort.Value(q)
		if v != cursor.Value {
			return v < cursor.Value
		}
	}
	return q.ID.Hex() < cursor.ID.Hex()
}

// CursorFor positions a cursor on q.
func (c *Compiled) CursorFor(q *Question) Cursor {
	return Cursor{ID: q.ID, Value: c.Sort.Value(q)}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
