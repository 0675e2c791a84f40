package repository

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toDoc converts a struct into the generic BSON document form MemoryRepo stores.
func toDoc(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return normalize(m).(bson.M), nil
}

// fromDoc decodes a stored document into out.
func fromDoc(m bson.M, out interface{}) error {
	raw, err := bson.Marshal(m)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

// toValue converts an arbitrary op value into its stored form.
func toValue(v interface{}) (interface{}, error) {
	wrapped, err := toDoc(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return wrapped["v"], nil
}

// normalize rewrites decoded documents to bson.M and arrays to bson.A at
// every depth so traversal only has two container shapes to handle.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case bson.D:
		m := bson.M{}
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case []interface{}:
		return normalize(bson.A(t))
	}
	return v
}

func cloneDoc(m bson.M) (bson.M, error) { return toDoc(m) }

// findItem returns the first element of doc[array] whose key equals value.
func findItem(doc bson.M, array, key string, value interface{}) bson.M {
	items, _ := doc[array].(bson.A)
	for _, it := range items {
		if m, ok := it.(bson.M); ok && reflect.DeepEqual(m[key], value) {
			return m
		}
	}
	return nil
}

// resolve walks from the question document to the item p addresses, the same
// way the locate pipeline narrows its working document.
func resolve(root bson.M, p forum.Path, opts forum.LocateOptions) bson.M {
	cur := root
	switch {
	case p.AnswerID != nil:
		cur = findItem(cur, "answerItems", "_id", *p.AnswerID)
	case opts.AnswerCreator != "":
		cur = findItem(cur, "answerItems", "creator", opts.AnswerCreator)
	}
	if cur != nil && p.CommentID != nil {
		cur = findItem(cur, "commentItems", "_id", *p.CommentID)
	}
	return cur
}

// project keeps the included top-level fields (and _id unless excluded).
func project(doc bson.M, projection bson.M) bson.M {
	if len(projection) == 0 {
		return doc
	}
	out := bson.M{}
	if v, ok := projection["_id"]; !ok || truthy(v) {
		if id, ok := doc["_id"]; ok {
			out["_id"] = id
		}
	}
	for field, v := range projection {
		if field == "_id" || !truthy(v) {
			continue
		}
		if val, ok := lookup(doc, field); ok {
			setPath(out, field, val)
		}
	}
	return out
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	}
	return true
}

func lookup(doc bson.M, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	cur := doc
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if cur, ok = v.(bson.M); !ok {
			return nil, false
		}
	}
	return nil, false
}

func setPath(doc bson.M, path string, v interface{}) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(bson.M)
		if !ok {
			next = bson.M{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func addNumber(cur interface{}, delta int) (int64, error) {
	switch n := cur.(type) {
	case nil:
		return int64(delta), nil
	case int32:
		return int64(n) + int64(delta), nil
	case int64:
		return n + int64(delta), nil
	case int:
		return int64(n) + int64(delta), nil
	case float64:
		return int64(n) + int64(delta), nil
	}
	return 0, fmt.Errorf("cannot apply $inc to non-numeric value %T", cur)
}

// matchesElement implements $pull semantics: a document condition matches
// elements whose fields equal every entry, anything else matches by equality.
func matchesElement(el, cond interface{}) bool {
	c, ok := cond.(bson.M)
	if !ok {
		return reflect.DeepEqual(el, cond)
	}
	m, ok := el.(bson.M)
	if !ok {
		return false
	}
	for k, want := range c {
		if got, ok := lookup(m, k); !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// applyOp mutates target in place.
func applyOp(target bson.M, op forum.Op) error {
	val, err := toValue(op.Value)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op.Kind, op.Field, err)
	}
	switch op.Kind {
	case forum.OpSetFields:
		setPath(target, op.Field, val)
	case forum.OpIncrement:
		cur, _ := lookup(target, op.Field)
		n, err := addNumber(cur, op.Value.(int))
		if err != nil {
			return fmt.Errorf("%s %s: %w", op.Kind, op.Field, err)
		}
		setPath(target, op.Field, n)
	case forum.OpPushItem, forum.OpAddToSet, forum.OpPullItem:
		cur, found := lookup(target, op.Field)
		arr, ok := cur.(bson.A)
		if found && !ok {
			return fmt.Errorf("%s %s: field is not an array", op.Kind, op.Field)
		}
		switch op.Kind {
		case forum.OpPushItem:
			arr = append(arr, val)
		case forum.OpAddToSet:
			for _, el := range arr {
				if reflect.DeepEqual(el, val) {
					return nil
				}
			}
			arr = append(arr, val)
		case forum.OpPullItem:
			kept := bson.A{}
			for _, el := range arr {
				if !matchesElement(el, val) {
					kept = append(kept, el)
				}
			}
			arr = kept
		}
		setPath(target, op.Field, arr)
	}
	return nil
}

func objectIDOf(doc bson.M) primitive.ObjectID {
	id, _ := doc["_id"].(primitive.ObjectID)
	return id
}
