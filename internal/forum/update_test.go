package forum

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func opDoc(t *testing.T, doc bson.D, operator string) bson.D {
	t.Helper()
	for _, e := range doc {
		if e.Key == operator {
			return e.Value.(bson.D)
		}
	}
	t.Fatalf("operator %s missing from %v", operator, doc)
	return nil
}

func TestPhysicalPrefixesByDepth(t *testing.T) {
	qid, aid, cid := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	u := Update{Set("text", "x"), Inc("upvotes", 1), AddToSet("upvoterUsernames", "bob")}

	cases := []struct {
		name    string
		path    Path
		prefix  string
		filters int
	}{
		{"root", QuestionPath(qid), "", 0},
		{"answer", AnswerPath(qid, aid), "answerItems.$[answer].", 1},
		{"answer comment", CommentPath(qid, &aid, cid), "answerItems.$[answer].commentItems.$[comment].", 2},
		{"question comment", CommentPath(qid, nil, cid), "commentItems.$[comment].", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, opts := u.Physical(tc.path)
			require.Len(t, doc, 3)
			require.Equal(t, tc.prefix+"text", opDoc(t, doc, "$set")[0].Key)
			require.Equal(t, tc.prefix+"upvotes", opDoc(t, doc, "$inc")[0].Key)
			require.Equal(t, tc.prefix+"upvoterUsernames", opDoc(t, doc, "$addToSet")[0].Key)
			if tc.filters == 0 {
				require.Nil(t, opts.ArrayFilters)
				return
			}
			require.NotNil(t, opts.ArrayFilters)
			require.Len(t, opts.ArrayFilters.Filters, tc.filters)
		})
	}
}

func TestPhysicalArrayFiltersBindIDs(t *testing.T) {
	qid, aid, cid := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	_, opts := Update{Inc("downvotes", -1)}.Physical(CommentPath(qid, &aid, cid))
	require.Equal(t, bson.M{"answer._id": aid}, opts.ArrayFilters.Filters[0])
	require.Equal(t, bson.M{"comment._id": cid}, opts.ArrayFilters.Filters[1])
}

func TestPhysicalRootOpsStayUnprefixed(t *testing.T) {
	qid, aid := primitive.NewObjectID(), primitive.NewObjectID()
	u := Update{Set("accepted", true), AtRoot(Set("hasAcceptedAnswer", true))}
	doc, opts := u.Physical(AnswerPath(qid, aid))
	set := opDoc(t, doc, "$set")
	require.Equal(t, "answerItems.$[answer].accepted", set[0].Key)
	require.Equal(t, "hasAcceptedAnswer", set[1].Key)
	require.Len(t, opts.ArrayFilters.Filters, 1)

	// nothing scoped: the filters would be unused and rejected by the server
	_, opts = SorterShiftOps(1).Physical(AnswerPath(qid, aid))
	require.Nil(t, opts.ArrayFilters)
}

func TestPhysicalPushAndPull(t *testing.T) {
	qid, aid := primitive.NewObjectID(), primitive.NewObjectID()
	c := NewComment("bob", "hi", testNow())
	u := Update{Push("commentItems", c), Pull("upvoterUsernames", "amy")}
	doc, _ := u.Physical(AnswerPath(qid, aid))
	require.Equal(t, "answerItems.$[answer].commentItems", opDoc(t, doc, "$push")[0].Key)
	require.Equal(t, "answerItems.$[answer].upvoterUsernames", opDoc(t, doc, "$pull")[0].Key)
	require.ElementsMatch(t, []string{"$push", "$pull"}, u.Kinds())
}
