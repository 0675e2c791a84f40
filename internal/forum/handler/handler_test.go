package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/config"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum/repository"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum/service"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/models"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/users"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/views"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// testAuth trusts the X-User header.
func testAuth(c *gin.Context) {
	user := c.GetHeader("X-User")
	if user == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}
	c.Set(middleware.UsernameKey, user)
	c.Next()
}

// testOptionalAuth trusts X-User when present.
func testOptionalAuth(c *gin.Context) {
	if user := c.GetHeader("X-User"); user != "" {
		c.Set(middleware.UsernameKey, user)
	}
	c.Next()
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return setupRouterWithViews(t, nil)
}

func setupRouterWithViews(t *testing.T, dedupe service.ViewDeduper) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ur := users.NewMemoryUserRepository()
	for _, name := range []string{"amy", "bob", "cal"} {
		require.NoError(t, ur.Create(context.Background(), &models.User{Username: name, Email: name + "@example.com"}))
	}
	svc := service.NewService(repository.NewMemoryRepo(), ur, dedupe, config.DefaultLimits())
	r := gin.New()
	New(svc).Register(r.Group("/api/v1"), testAuth, testOptionalAuth)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, user string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func createQuestion(t *testing.T, r *gin.Engine, user, title string) string {
	t.Helper()
	code, body := do(t, r, http.MethodPost, "/api/v1/questions", user, gin.H{"title": title, "text": "body"})
	require.Equal(t, http.StatusCreated, code, body)
	return body["question"].(map[string]interface{})["question_id"].(string)
}

func TestQuestionLifecycle(t *testing.T) {
	r := setupRouter(t)
	qid := createQuestion(t, r, "amy", "How do channels work?")

	code, body := do(t, r, http.MethodGet, "/api/v1/questions/"+qid, "", nil)
	require.Equal(t, http.StatusOK, code)
	q := body["question"].(map[string]interface{})
	require.Equal(t, "amy", q["creator"])
	require.Equal(t, "open", q["status"])
	require.NotContains(t, q, "answerItems")

	code, _ = do(t, r, http.MethodPatch, "/api/v1/questions/"+qid, "bob", gin.H{"title": "mine now"})
	require.Equal(t, http.StatusForbidden, code)
	code, _ = do(t, r, http.MethodPatch, "/api/v1/questions/"+qid, "amy", gin.H{"status": "archived"})
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, r, http.MethodPatch, "/api/v1/questions/"+qid, "amy", gin.H{"status": "closed"})
	require.Equal(t, http.StatusNoContent, code)

	code, _ = do(t, r, http.MethodDelete, "/api/v1/questions/"+qid, "amy", nil)
	require.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, r, http.MethodGet, "/api/v1/questions/"+qid, "", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestWritesRequireAuth(t *testing.T) {
	r := setupRouter(t)
	code, _ := do(t, r, http.MethodPost, "/api/v1/questions", "", gin.H{"title": "t", "text": "x"})
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestErrorStatuses(t *testing.T) {
	r := setupRouter(t)
	qid := createQuestion(t, r, "amy", "title")

	code, _ := do(t, r, http.MethodGet, "/api/v1/questions/not-an-id", "", nil)
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, r, http.MethodGet, "/api/v1/questions/"+primitive.NewObjectID().Hex(), "", nil)
	require.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/questions/"+qid+"/vote", "amy", gin.H{"operation": "increment", "target": "upvotes"})
	require.Equal(t, http.StatusForbidden, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/questions/"+qid+"/vote", "bob", gin.H{"operation": "bump", "target": "upvotes"})
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/questions/"+qid+"/vote", "bob", gin.H{"operation": "decrement", "target": "downvotes"})
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/questions", "amy", gin.H{"title": "missing text"})
	require.Equal(t, http.StatusBadRequest, code)
}

func TestAnswersCommentsAndVotes(t *testing.T) {
	r := setupRouter(t)
	qid := createQuestion(t, r, "amy", "title")
	base := "/api/v1/questions/" + qid

	code, body := do(t, r, http.MethodPost, base+"/answers", "bob", gin.H{"text": "an answer"})
	require.Equal(t, http.StatusCreated, code)
	aid := body["answer"].(map[string]interface{})["answer_id"].(string)
	code, _ = do(t, r, http.MethodPost, base+"/answers", "bob", gin.H{"text": "again"})
	require.Equal(t, http.StatusForbidden, code)

	code, body = do(t, r, http.MethodPost, base+"/answers/"+aid+"/comments", "cal", gin.H{"text": "nice"})
	require.Equal(t, http.StatusCreated, code)
	cid := body["comment"].(map[string]interface{})["comment_id"].(string)

	code, _ = do(t, r, http.MethodPost, base+"/answers/"+aid+"/comments/"+cid+"/vote", "amy", gin.H{"operation": "increment", "target": "upvotes"})
	require.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, r, http.MethodPost, base+"/answers/"+aid+"/vote", "amy", gin.H{"operation": "increment", "target": "upvotes"})
	require.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, r, http.MethodPost, base+"/answers/"+aid+"/vote", "amy", gin.H{"operation": "increment", "target": "upvotes"})
	require.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, r, http.MethodGet, base+"/answers/"+aid+"/comments", "", nil)
	require.Equal(t, http.StatusOK, code)
	comments := body["comments"].([]interface{})
	require.Len(t, comments, 1)
	require.Equal(t, float64(1), comments[0].(map[string]interface{})["upvotes"])

	code, _ = do(t, r, http.MethodPost, base+"/answers/"+aid+"/accept", "amy", nil)
	require.Equal(t, http.StatusNoContent, code)
	code, body = do(t, r, http.MethodGet, base+"/answers", "", nil)
	require.Equal(t, http.StatusOK, code)
	answer := body["answers"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, true, answer["accepted"])
	require.Equal(t, float64(1), answer["upvotes"])

	code, _ = do(t, r, http.MethodDelete, base+"/answers/"+aid+"/comments/"+cid, "cal", nil)
	require.Equal(t, http.StatusNoContent, code)

	code, body = do(t, r, http.MethodPost, base+"/view", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["counted"])
	code, body = do(t, r, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, code)
	q := body["question"].(map[string]interface{})
	require.Equal(t, float64(1), q["views"])
	require.Equal(t, float64(1), q["answers"])
}

func TestSearchRoute(t *testing.T) {
	r := setupRouter(t)
	createQuestion(t, r, "amy", "Golang generics")
	createQuestion(t, r, "bob", "Rust traits")

	v := url.Values{}
	v.Set("regexMatch", `{"title":"golang"}`)
	code, body := do(t, r, http.MethodGet, "/api/v1/questions?"+v.Encode(), "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["questions"].([]interface{}), 1)

	v = url.Values{}
	v.Set("match", `{"answers":{"$gte":0}}`)
	v.Set("sort", "uvac")
	code, body = do(t, r, http.MethodGet, "/api/v1/questions?"+v.Encode(), "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["questions"].([]interface{}), 2)

	for _, bad := range []url.Values{
		{"sort": {"nope"}},
		{"match": {"notjson"}},
		{"match": {`{"title":"x"}`}},
		{"after": {"123"}},
	} {
		code, _ = do(t, r, http.MethodGet, "/api/v1/questions?"+bad.Encode(), "", nil)
		require.Equal(t, http.StatusBadRequest, code, bad.Encode())
	}
}

func TestViewKeyedBySignedInUser(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	r := setupRouterWithViews(t, views.NewDeduper(rdb, time.Hour))
	base := "/api/v1/questions/" + createQuestion(t, r, "amy", "views")

	counted := func(user string) bool {
		code, body := do(t, r, http.MethodPost, base+"/view", user, nil)
		require.Equal(t, http.StatusOK, code, body)
		return body["counted"].(bool)
	}
	// every httptest request shares one client address
	require.True(t, counted("bob"))
	require.True(t, counted("cal"))
	require.False(t, counted("bob"))
	require.True(t, counted(""))
	require.False(t, counted(""))

	code, body := do(t, r, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(3), body["question"].(map[string]interface{})["views"])
}
