package forum

import (
	"testing"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseVote(t *testing.T) {
	v, err := ParseVote("increment", "upvotes")
	require.NoError(t, err)
	require.Equal(t, Vote{Op: VoteIncrement, Field: FieldUpvotes}, v)

	_, err = ParseVote("bump", "upvotes")
	require.ErrorIs(t, err, apperrors.ErrInvalidVote)
	_, err = ParseVote("increment", "views")
	require.ErrorIs(t, err, apperrors.ErrInvalidVote)
}

func TestVoteTransitions(t *testing.T) {
	none := Target{Creator: "owner"}
	up := Target{Creator: "owner", UpvoterUsernames: []string{"bob"}}
	down := Target{Creator: "owner", DownvoterUsernames: []string{"bob"}}

	cases := []struct {
		name   string
		vote   Vote
		target Target
		want   error
	}{
		{"upvote from none", Vote{VoteIncrement, FieldUpvotes}, none, nil},
		{"downvote from none", Vote{VoteIncrement, FieldDownvotes}, none, nil},
		{"upvote twice", Vote{VoteIncrement, FieldUpvotes}, up, apperrors.ErrDuplicateIncrement},
		{"downvote while upvoted", Vote{VoteIncrement, FieldDownvotes}, up, apperrors.ErrMultipleIncrementTargets},
		{"upvote while downvoted", Vote{VoteIncrement, FieldUpvotes}, down, apperrors.ErrMultipleIncrementTargets},
		{"undo nothing", Vote{VoteDecrement, FieldDownvotes}, none, apperrors.ErrInvalidDecrement},
		{"undo wrong polarity", Vote{VoteDecrement, FieldDownvotes}, up, apperrors.ErrMultitargetDecrement},
		{"undo upvote", Vote{VoteDecrement, FieldUpvotes}, up, nil},
		{"undo downvote", Vote{VoteDecrement, FieldDownvotes}, down, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.vote.Check("bob", tc.target)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestSelfVoteIsIllegal(t *testing.T) {
	for _, v := range []Vote{{VoteIncrement, FieldUpvotes}, {VoteDecrement, FieldDownvotes}} {
		err := v.Check("owner", Target{Creator: "owner"})
		require.ErrorIs(t, err, apperrors.ErrIllegalOperation)
	}
}

func TestStateOf(t *testing.T) {
	tg := Target{UpvoterUsernames: []string{"a"}, DownvoterUsernames: []string{"b"}}
	require.Equal(t, VoteUpvoted, StateOf("a", tg))
	require.Equal(t, VoteDownvoted, StateOf("b", tg))
	require.Equal(t, VoteNone, StateOf("c", tg))
}

func TestVoteUpdateSorterScoping(t *testing.T) {
	qid, aid := primitive.NewObjectID(), primitive.NewObjectID()

	u := Vote{VoteIncrement, FieldUpvotes}.Update("bob", QuestionPath(qid))
	require.Equal(t, Update{
		Inc("upvotes", 1),
		AddToSet("upvoterUsernames", "bob"),
		AtRoot(Inc("sorter.uvc", 1)),
		AtRoot(Inc("sorter.uvac", 1)),
	}, u)

	u = Vote{VoteDecrement, FieldUpvotes}.Update("bob", AnswerPath(qid, aid))
	require.Equal(t, Update{Inc("upvotes", -1), Pull("upvoterUsernames", "bob")}, u)

	u = Vote{VoteIncrement, FieldDownvotes}.Update("bob", QuestionPath(qid))
	require.Equal(t, Update{Inc("downvotes", 1), AddToSet("downvoterUsernames", "bob")}, u)
}
