package forum

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Path addresses a question, one of its answers, or a comment on either.
type Path struct {
	QuestionID primitive.ObjectID
	AnswerID   *primitive.ObjectID
	CommentID  *primitive.ObjectID
}

// PathKind enumerates the four nesting shapes a Path can take.
type PathKind int

const (
	KindQuestion PathKind = iota
	KindAnswer
	KindQuestionComment
	KindAnswerComment
)

func QuestionPath(qid primitive.ObjectID) Path { return Path{QuestionID: qid} }

func AnswerPath(qid, aid primitive.ObjectID) Path {
	return Path{QuestionID: qid, AnswerID: &aid}
}

func CommentPath(qid primitive.ObjectID, aid *primitive.ObjectID, cid primitive.ObjectID) Path {
	return Path{QuestionID: qid, AnswerID: aid, CommentID: &cid}
}

func (p Path) Kind() PathKind {
	switch {
	case p.AnswerID != nil && p.CommentID != nil:
		return KindAnswerComment
	case p.AnswerID != nil:
		return KindAnswer
	case p.CommentID != nil:
		return KindQuestionComment
	}
	return KindQuestion
}

func (p Path) IsRoot() bool { return p.Kind() == KindQuestion }

// Entity names the addressed item for error messages.
func (p Path) Entity() string {
	switch p.Kind() {
	case KindAnswer:
		return "answer"
	case KindQuestionComment, KindAnswerComment:
		return "comment"
	}
	return "question"
}

// LeafID is the hex id of the addressed item.
func (p Path) LeafID() string {
	switch {
	case p.CommentID != nil:
		return p.CommentID.Hex()
	case p.AnswerID != nil:
		return p.AnswerID.Hex()
	}
	return p.QuestionID.Hex()
}

// Parent drops the innermost component.
func (p Path) Parent() Path {
	switch {
	case p.CommentID != nil:
		return Path{QuestionID: p.QuestionID, AnswerID: p.AnswerID}
	case p.AnswerID != nil:
		return Path{QuestionID: p.QuestionID}
	}
	return p
}

// Prefix is the positional field path under which fields of the addressed
// item live, including the trailing dot.
func (p Path) Prefix() string {
	switch p.Kind() {
	case KindAnswer:
		return "answerItems.$[answer]."
	case KindAnswerComment:
		return "answerItems.$[answer].commentItems.$[comment]."
	case KindQuestionComment:
		return "commentItems.$[comment]."
	}
	return ""
}

// ArrayFilters returns the filters binding the identifiers used by Prefix.
func (p Path) ArrayFilters() []interface{} {
	var filters []interface{}
	if p.AnswerID != nil {
		filters = append(filters, bson.M{"answer._id": *p.AnswerID})
	}
	if p.CommentID != nil {
		filters = append(filters, bson.M{"comment._id": *p.CommentID})
	}
	return filters
}
