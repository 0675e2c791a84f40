// Package service is the entry point to the question store: it validates
// input, runs the existence and permission pre-checks, builds the logical
// updates and keeps users' question and answer references in step.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/config"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum/repository"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/ids"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/models"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/logger"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Points awarded to content creators.
const (
	UpvotePoints   = 1
	DownvotePoints = -1
	AcceptPoints   = 15
)

// Users is the part of the user store that tracks ownership and points.
type Users interface {
	AddQuestion(ctx context.Context, username string, qid primitive.ObjectID) error
	RemoveQuestion(ctx context.Context, username string, qid primitive.ObjectID) error
	AddAnswer(ctx context.Context, username string, ref models.AnswerRef) error
	RemoveAnswer(ctx context.Context, username string, ref models.AnswerRef) error
	PruneAnswers(ctx context.Context, qid primitive.ObjectID) error
	AddPoints(ctx context.Context, username string, delta int) error
}

// ViewDeduper reports whether a view should be counted.
type ViewDeduper interface {
	First(ctx context.Context, qid primitive.ObjectID, viewer string) (bool, error)
}

type countAll struct{}

func (countAll) First(context.Context, primitive.ObjectID, string) (bool, error) { return true, nil }

type Service struct {
	repo   repository.QuestionRepository
	users  Users
	views  ViewDeduper
	limits config.Limits
	now    func() time.Time
}

// NewService wires the question service. A nil views counts every view.
func NewService(repo repository.QuestionRepository, users Users, views ViewDeduper, limits config.Limits) *Service {
	if views == nil {
		views = countAll{}
	}
	return &Service{repo: repo, users: users, views: views, limits: limits, now: time.Now}
}

// rootInfo is what the permission checks need from a question.
type rootInfo struct {
	Creator           string       `bson:"creator"`
	Status            forum.Status `bson:"status"`
	HasAcceptedAnswer bool         `bson:"hasAcceptedAnswer"`
}

var rootProjection = bson.M{"creator": 1, "status": 1, "hasAcceptedAnswer": 1}

// ParsePath decodes the external ids of a question, answer or comment.
// Empty answer and comment ids mean the path does not descend there.
func ParsePath(qid, aid, cid string) (forum.Path, error) {
	q, err := ids.Decode("question_id", qid)
	if err != nil {
		return forum.Path{}, apperrors.FromID(err)
	}
	a, err := ids.DecodeOptional("answer_id", aid)
	if err != nil {
		return forum.Path{}, apperrors.FromID(err)
	}
	c, err := ids.DecodeOptional("comment_id", cid)
	if err != nil {
		return forum.Path{}, apperrors.FromID(err)
	}
	return forum.Path{QuestionID: q, AnswerID: a, CommentID: c}, nil
}

func (s *Service) root(ctx context.Context, qid primitive.ObjectID) (*rootInfo, error) {
	var info rootInfo
	found, err := s.repo.Locate(ctx, forum.QuestionPath(qid), forum.LocateOptions{Projection: rootProjection}, &info)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("question", qid.Hex())
	}
	return &info, nil
}

// locate is Locate with question-not-found told apart from a missing nested
// item. A nil out only checks existence.
func (s *Service) locate(ctx context.Context, p forum.Path, projection bson.M, out interface{}) (*rootInfo, error) {
	info, err := s.root(ctx, p.QuestionID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		if p.IsRoot() {
			return info, nil
		}
		out = &bson.M{}
	}
	found, err := s.repo.Locate(ctx, p, forum.LocateOptions{Projection: projection}, out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound(p.Entity(), p.LeafID())
	}
	return info, nil
}

func (s *Service) mutate(ctx context.Context, p forum.Path, u forum.Update) error {
	res, err := s.repo.Mutate(ctx, p, u)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("question", p.QuestionID.Hex())
	}
	for _, k := range u.Kinds() {
		metrics.Mutations.WithLabelValues(k).Inc()
	}
	return nil
}

func (s *Service) award(ctx context.Context, username string, delta int) {
	if delta == 0 {
		return
	}
	if err := s.users.AddPoints(ctx, username, delta); err != nil {
		logger.Warnw("points not awarded", "user", username, "delta", delta, "error", err)
	}
}

// Select reads the item p addresses, optionally projected, into out.
func (s *Service) Select(ctx context.Context, p forum.Path, projection bson.M, out interface{}) error {
	_, err := s.locate(ctx, p, projection, out)
	return err
}

func (s *Service) CreateQuestion(ctx context.Context, creator, title, text string) (*forum.Question, error) {
	if err := apperrors.CheckText("title", title, s.limits.MaxTitleLength); err != nil {
		return nil, err
	}
	if err := apperrors.CheckText("text", text, s.limits.MaxTextLength); err != nil {
		return nil, err
	}
	q := forum.NewQuestion(creator, title, text, s.now().UTC())
	if err := s.repo.Insert(ctx, q); err != nil {
		return nil, err
	}
	if err := s.users.AddQuestion(ctx, creator, q.ID); err != nil {
		return nil, fmt.Errorf("record question owner: %w", err)
	}
	return q, nil
}

func (s *Service) GetQuestion(ctx context.Context, qid string) (*forum.Question, error) {
	p, err := ParsePath(qid, "", "")
	if err != nil {
		return nil, err
	}
	var q forum.Question
	found, err := s.repo.Locate(ctx, p, forum.LocateOptions{}, &q)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("question", qid)
	}
	return &q, nil
}

// PatchQuestion applies patch to the question root without permission checks.
// Changes to views or upvotes shift the sorter in the same write.
func (s *Service) PatchQuestion(ctx context.Context, qid string, patch forum.QuestionPatch) error {
	p, err := ParsePath(qid, "", "")
	if err != nil {
		return err
	}
	if err := s.checkPatch(patch); err != nil {
		return err
	}
	res, err := s.repo.Patch(ctx, p.QuestionID, patch)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("question", qid)
	}
	metrics.Mutations.WithLabelValues("patch").Inc()
	return nil
}

func (s *Service) checkPatch(patch forum.QuestionPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.Title != nil {
		if err := apperrors.CheckText("title", *patch.Title, s.limits.MaxTitleLength); err != nil {
			return err
		}
	}
	if patch.Text != nil {
		if err := apperrors.CheckText("text", *patch.Text, s.limits.MaxTextLength); err != nil {
			return err
		}
	}
	return nil
}

// EditQuestion lets the question creator change title, text or status.
func (s *Service) EditQuestion(ctx context.Context, editor, qid string, title, text *string, status *forum.Status) error {
	p, err := ParsePath(qid, "", "")
	if err != nil {
		return err
	}
	info, err := s.root(ctx, p.QuestionID)
	if err != nil {
		return err
	}
	if info.Creator != editor {
		return apperrors.Illegal(editor, "only the question creator may edit it")
	}
	return s.PatchQuestion(ctx, qid, forum.QuestionPatch{Title: title, Text: text, Status: status})
}

// ViewQuestion counts a view unless viewer already viewed qid recently. It
// reports whether the view was counted.
func (s *Service) ViewQuestion(ctx context.Context, viewer, qid string) (bool, error) {
	p, err := ParsePath(qid, "", "")
	if err != nil {
		return false, err
	}
	if _, err := s.root(ctx, p.QuestionID); err != nil {
		return false, err
	}
	first, err := s.views.First(ctx, p.QuestionID, viewer)
	if err != nil {
		logger.Warnw("view dedupe unavailable", "question", qid, "error", err)
		first = true
	}
	if !first {
		metrics.ViewsDeduplicated.Inc()
		return false, nil
	}
	return true, s.PatchQuestion(ctx, qid, forum.QuestionPatch{Views: &forum.Views{Increment: true}})
}

// DeleteQuestion removes a question with its answers and comments, then drops
// the references users hold to it.
func (s *Service) DeleteQuestion(ctx context.Context, requester, qid string) error {
	p, err := ParsePath(qid, "", "")
	if err != nil {
		return err
	}
	info, err := s.root(ctx, p.QuestionID)
	if err != nil {
		return err
	}
	if info.Creator != requester {
		return apperrors.Illegal(requester, "only the question creator may delete it")
	}
	q, err := s.repo.Delete(ctx, p.QuestionID)
	if err != nil {
		return err
	}
	if err := s.users.RemoveQuestion(ctx, q.Creator, q.ID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("drop question reference: %w", err)
	}
	if err := s.users.PruneAnswers(ctx, q.ID); err != nil {
		return fmt.Errorf("drop answer references: %w", err)
	}
	logger.Infow("question deleted", "question", qid, "answers", len(q.AnswerItems))
	return nil
}

func (s *Service) ListAnswers(ctx context.Context, qid string) ([]forum.Answer, error) {
	q, err := s.GetQuestion(ctx, qid)
	if err != nil {
		return nil, err
	}
	return q.AnswerItems, nil
}

// AddAnswer appends an answer. Each user may answer a question once.
func (s *Service) AddAnswer(ctx context.Context, creator, qid, text string) (*forum.Answer, error) {
	p, err := ParsePath(qid, "", "")
	if err != nil {
		return nil, err
	}
	if err := apperrors.CheckText("text", text, s.limits.MaxTextLength); err != nil {
		return nil, err
	}
	info, err := s.root(ctx, p.QuestionID)
	if err != nil {
		return nil, err
	}
	if info.Status != forum.StatusOpen {
		return nil, apperrors.Illegal(creator, "question is "+string(info.Status))
	}
	var existing struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	found, err := s.repo.Locate(ctx, p, forum.LocateOptions{AnswerCreator: creator, Projection: bson.M{"_id": 1}}, &existing)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, apperrors.Illegal(creator, "user has already answered this question")
	}

	a := forum.NewAnswer(creator, text, s.now().UTC())
	u := append(forum.Update{forum.Push("answerItems", a)}, forum.AnswerCountOps(1)...)
	if err := s.mutate(ctx, p, u); err != nil {
		return nil, err
	}
	if err := s.users.AddAnswer(ctx, creator, models.AnswerRef{QuestionID: p.QuestionID, AnswerID: a.ID}); err != nil {
		return nil, fmt.Errorf("record answer owner: %w", err)
	}
	return a, nil
}

// PatchAnswer replaces the text of an answer; only its creator may.
func (s *Service) PatchAnswer(ctx context.Context, editor, qid, aid, text string) error {
	p, err := ParsePath(qid, aid, "")
	if err != nil {
		return err
	}
	if p.AnswerID == nil {
		return apperrors.Invalid(apperrors.ErrInvalidObjectID, "answer_id", aid, "required")
	}
	if err := apperrors.CheckText("text", text, s.limits.MaxTextLength); err != nil {
		return err
	}
	var t forum.Target
	if _, err := s.locate(ctx, p, forum.TargetProjection, &t); err != nil {
		return err
	}
	if t.Creator != editor {
		return apperrors.Illegal(editor, "only the answer creator may edit it")
	}
	return s.mutate(ctx, p, forum.Update{forum.Set("text", text)})
}

// RemoveAnswer pulls an answer and its comments from the question.
func (s *Service) RemoveAnswer(ctx context.Context, requester, qid, aid string) error {
	p, err := ParsePath(qid, aid, "")
	if err != nil {
		return err
	}
	if p.AnswerID == nil {
		return apperrors.Invalid(apperrors.ErrInvalidObjectID, "answer_id", aid, "required")
	}
	var a struct {
		Creator  string `bson:"creator"`
		Accepted bool   `bson:"accepted"`
	}
	if _, err := s.locate(ctx, p, bson.M{"creator": 1, "accepted": 1}, &a); err != nil {
		return err
	}
	if a.Creator != requester {
		return apperrors.Illegal(requester, "only the answer creator may remove it")
	}
	root := p.Parent()
	u := append(forum.Update{forum.Pull("answerItems", bson.M{"_id": *p.AnswerID})}, forum.AnswerCountOps(-1)...)
	if a.Accepted {
		u = append(u, forum.Set("hasAcceptedAnswer", false))
	}
	if err := s.mutate(ctx, root, u); err != nil {
		return err
	}
	ref := models.AnswerRef{QuestionID: p.QuestionID, AnswerID: *p.AnswerID}
	if err := s.users.RemoveAnswer(ctx, a.Creator, ref); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("drop answer reference: %w", err)
	}
	return nil
}

// AcceptAnswer marks an answer accepted. Only the question creator may accept,
// and only once per question.
func (s *Service) AcceptAnswer(ctx context.Context, requester, qid, aid string) error {
	p, err := ParsePath(qid, aid, "")
	if err != nil {
		return err
	}
	if p.AnswerID == nil {
		return apperrors.Invalid(apperrors.ErrInvalidObjectID, "answer_id", aid, "required")
	}
	var t forum.Target
	info, err := s.locate(ctx, p, forum.TargetProjection, &t)
	if err != nil {
		return err
	}
	if info.Creator != requester {
		return apperrors.Illegal(requester, "only the question creator may accept an answer")
	}
	if info.HasAcceptedAnswer {
		return apperrors.Illegal(requester, "question already has an accepted answer")
	}
	u := forum.Update{
		forum.Set("accepted", true),
		forum.AtRoot(forum.Set("hasAcceptedAnswer", true)),
	}
	if err := s.mutate(ctx, p, u); err != nil {
		return err
	}
	s.award(ctx, t.Creator, AcceptPoints)
	return nil
}

// ListComments returns the comments on a question, or on one of its answers
// when aid is set.
func (s *Service) ListComments(ctx context.Context, qid, aid string) ([]forum.Comment, error) {
	p, err := ParsePath(qid, aid, "")
	if err != nil {
		return nil, err
	}
	var out struct {
		CommentItems []forum.Comment `bson:"commentItems"`
	}
	if _, err := s.locate(ctx, p, bson.M{"commentItems": 1}, &out); err != nil {
		return nil, err
	}
	if out.CommentItems == nil {
		out.CommentItems = []forum.Comment{}
	}
	return out.CommentItems, nil
}

// AddComment comments on a question, or on one of its answers when aid is set.
// Only comments on the question itself are counted by the sorter.
func (s *Service) AddComment(ctx context.Context, creator, qid, aid, text string) (*forum.Comment, error) {
	p, err := ParsePath(qid, aid, "")
	if err != nil {
		return nil, err
	}
	if err := apperrors.CheckText("text", text, s.limits.MaxCommentLength); err != nil {
		return nil, err
	}
	info, err := s.locate(ctx, p, bson.M{"_id": 1}, nil)
	if err != nil {
		return nil, err
	}
	if info.Status == forum.StatusClosed {
		return nil, apperrors.Illegal(creator, "question is closed")
	}
	c := forum.NewComment(creator, text, s.now().UTC())
	u := forum.Update{forum.Push("commentItems", c)}
	if p.IsRoot() {
		u = append(u, forum.CommentCountOps(1)...)
	}
	if err := s.mutate(ctx, p, u); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveComment pulls a comment from its parent; only its creator may.
func (s *Service) RemoveComment(ctx context.Context, requester, qid, aid, cid string) error {
	p, err := ParsePath(qid, aid, cid)
	if err != nil {
		return err
	}
	if p.CommentID == nil {
		return apperrors.Invalid(apperrors.ErrInvalidObjectID, "comment_id", cid, "required")
	}
	var t forum.Target
	if _, err := s.locate(ctx, p, forum.TargetProjection, &t); err != nil {
		return err
	}
	if t.Creator != requester {
		return apperrors.Illegal(requester, "only the comment creator may remove it")
	}
	parent := p.Parent()
	u := forum.Update{forum.Pull("commentItems", bson.M{"_id": *p.CommentID})}
	if parent.IsRoot() {
		u = append(u, forum.CommentCountOps(-1)...)
	}
	return s.mutate(ctx, parent, u)
}

// ApplyVote runs the vote state machine for voter against the item p
// addresses and records the vote in one write.
func (s *Service) ApplyVote(ctx context.Context, voter string, p forum.Path, v forum.Vote) error {
	var t forum.Target
	info, err := s.locate(ctx, p, forum.TargetProjection, &t)
	if err != nil {
		return err
	}
	if info.Status == forum.StatusClosed {
		metrics.VotesRejected.WithLabelValues("closed").Inc()
		return apperrors.Illegal(voter, "question is closed")
	}
	if err := v.Check(voter, t); err != nil {
		metrics.VotesRejected.WithLabelValues(rejectReason(err)).Inc()
		return err
	}
	if err := s.mutate(ctx, p, v.Update(voter, p)); err != nil {
		return err
	}
	metrics.VotesApplied.WithLabelValues(p.Entity(), string(v.Op)).Inc()
	s.award(ctx, t.Creator, votePoints(v))
	return nil
}

func votePoints(v forum.Vote) int {
	pts := UpvotePoints
	if v.Field == forum.FieldDownvotes {
		pts = DownvotePoints
	}
	if v.Op == forum.VoteDecrement {
		pts = -pts
	}
	return pts
}

func rejectReason(err error) string {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Kind.Error()
	case errors.Is(err, apperrors.ErrIllegalOperation):
		return "self vote"
	}
	return "other"
}

// Search lists questions. Page sizes are capped at the configured
// results per page.
func (s *Service) Search(ctx context.Context, q forum.SearchQuery) ([]*forum.Question, error) {
	if q.Limit <= 0 || q.Limit > s.limits.ResultsPerPage {
		q.Limit = s.limits.ResultsPerPage
	}
	compiled, err := forum.Compile(q, s.limits.ResultsPerPage)
	if err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, compiled)
}
