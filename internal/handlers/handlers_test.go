package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/sidechain/views/internal/auth"
	"github.com/zfogg/sidechain/views/internal/middleware"
	"github.com/zfogg/sidechain/views/internal/models"
	"github.com/zfogg/sidechain/views/internal/privacy"
	"github.com/zfogg/sidechain/views/internal/repository"
	"github.com/zfogg/sidechain/views/internal/testutil"
	"github.com/zfogg/sidechain/views/internal/views"
	"github.com/zfogg/sidechain/views/internal/visibility"
	"gorm.io/gorm"
)

// HandlersTestSuite drives the API over HTTP against an in-memory database
type HandlersTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	tokens *auth.Service

	alice *models.User
	bob   *models.User
	post  *models.Post
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (suite *HandlersTestSuite) SetupTest() {
	t := suite.T()
	gin.SetMode(gin.TestMode)

	suite.db = testutil.NewDB(t)
	users := repository.NewUserRepository(suite.db)
	facade := visibility.NewFacade(
		users,
		repository.NewPostRepository(suite.db),
		views.NewLedger(suite.db),
		views.NewAggregator(suite.db, users),
		privacy.NewGate(users, nil),
	)

	var err error
	suite.tokens, err = auth.NewService([]byte("handlers-test-secret"), time.Hour)
	require.NoError(t, err)

	h := NewHandlers(facade, suite.db)
	suite.router = gin.New()
	suite.router.GET("/health", h.Health)
	h.RegisterRoutes(
		suite.router.Group("/api/v1"),
		auth.Middleware(suite.tokens),
		middleware.NewRateLimiter(middleware.ViewRateLimitConfig(1000)).Middleware(),
	)

	suite.alice = testutil.CreateUser(t, suite.db, "alice")
	suite.bob = testutil.CreateUser(t, suite.db, "bob")
	suite.post = testutil.CreatePost(t, suite.db, suite.alice.ID)
}

func (suite *HandlersTestSuite) request(user *models.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t := suite.T()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := suite.tokens.IssueToken(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token.Token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	assert.NotContains(suite.T(), out, "errors")
	return out
}

func (suite *HandlersTestSuite) TestHideUnhideScenario() {
	t := suite.T()
	postPath := "/api/v1/posts/" + suite.post.ID
	alicePath := "/api/v1/users/" + suite.alice.ID

	w := suite.request(suite.bob, http.MethodPost, postPath+"/views", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "first_view", suite.decode(w)["outcome"])

	w = suite.request(suite.alice, http.MethodGet, "/api/v1/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	self := suite.decode(w)
	assert.Equal(t, 1.0, self["postViewedByCount"])
	assert.Equal(t, false, self["viewCountsHidden"])

	w = suite.request(suite.bob, http.MethodGet, alicePath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := suite.decode(w)
	assert.Equal(t, 1.0, profile["postViewedByCount"])
	assert.NotContains(t, profile, "viewCountsHidden")

	w = suite.request(suite.alice, http.MethodPut, "/api/v1/users/me/view-counts-hidden", gin.H{"viewCountsHidden": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, suite.decode(w)["viewCountsHidden"])

	w = suite.request(suite.bob, http.MethodGet, alicePath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile = suite.decode(w)
	assert.Contains(t, profile, "postViewedByCount")
	assert.Nil(t, profile["postViewedByCount"])

	w = suite.request(suite.bob, http.MethodGet, postPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	post := suite.decode(w)
	assert.Contains(t, post, "viewedByCount")
	assert.Nil(t, post["viewedByCount"])
	assert.Contains(t, post, "viewedBy")
	assert.Nil(t, post["viewedBy"])
	assert.Equal(t, "VIEWED", post["viewedStatus"])

	w = suite.request(suite.alice, http.MethodGet, "/api/v1/users/me", nil)
	self = suite.decode(w)
	assert.Equal(t, 1.0, self["postViewedByCount"])
	assert.Equal(t, true, self["viewCountsHidden"])

	w = suite.request(suite.alice, http.MethodPut, "/api/v1/users/"+suite.alice.ID+"/view-counts-hidden", gin.H{"viewCountsHidden": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.request(suite.bob, http.MethodGet, postPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	post = suite.decode(w)
	assert.Equal(t, 1.0, post["viewedByCount"])
	viewedBy, ok := post["viewedBy"].([]interface{})
	require.True(t, ok)
	require.Len(t, viewedBy, 1)
	assert.Equal(t, suite.bob.ID, viewedBy[0].(map[string]interface{})["id"])
}

func (suite *HandlersTestSuite) TestEmptyViewerListIsNotNull() {
	w := suite.request(suite.bob, http.MethodGet, "/api/v1/posts/"+suite.post.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	post := suite.decode(w)
	assert.Equal(suite.T(), 0.0, post["viewedByCount"])
	assert.Equal(suite.T(), []interface{}{}, post["viewedBy"])
	assert.Equal(suite.T(), "NOT_VIEWED", post["viewedStatus"])
}

func (suite *HandlersTestSuite) TestPostListsEveryViewerButViewersPages() {
	t := suite.T()

	n := views.DefaultPageSize + 5
	for i := 0; i < n; i++ {
		viewer := testutil.CreateUser(t, suite.db, fmt.Sprintf("viewer-%02d", i))
		w := suite.request(viewer, http.MethodPost, "/api/v1/posts/"+suite.post.ID+"/views", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// limit is ignored on the post itself
	w := suite.request(suite.bob, http.MethodGet, "/api/v1/posts/"+suite.post.ID+"?limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	post := suite.decode(w)
	assert.Equal(t, float64(n), post["viewedByCount"])
	assert.Len(t, post["viewedBy"], n)

	w = suite.request(suite.bob, http.MethodGet, "/api/v1/posts/"+suite.post.ID+"/viewers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := suite.decode(w)
	assert.Equal(t, float64(n), page["viewedByCount"])
	assert.Len(t, page["viewedBy"], views.DefaultPageSize)

	w = suite.request(suite.bob, http.MethodGet, "/api/v1/posts/"+suite.post.ID+"/viewers?offset=20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, suite.decode(w)["viewedBy"], n-views.DefaultPageSize)
}

func (suite *HandlersTestSuite) TestCannotToggleAnotherUser() {
	w := suite.request(suite.bob, http.MethodPut, "/api/v1/users/"+suite.alice.ID+"/view-counts-hidden", gin.H{"viewCountsHidden": true})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "FORBIDDEN")
}

func (suite *HandlersTestSuite) TestErrors() {
	tests := []struct {
		name   string
		user   *models.User
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"no token", nil, http.MethodGet, "/api/v1/users/me", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed post id", suite.bob, http.MethodGet, "/api/v1/posts/abc", nil, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"missing post", suite.bob, http.MethodGet, "/api/v1/posts/00000000-0000-0000-0000-000000000000", nil, http.StatusNotFound, "NOT_FOUND"},
		{"missing user", suite.bob, http.MethodGet, "/api/v1/users/00000000-0000-0000-0000-000000000000", nil, http.StatusNotFound, "NOT_FOUND"},
		{"view missing post", suite.bob, http.MethodPost, "/api/v1/posts/00000000-0000-0000-0000-000000000000/views", nil, http.StatusNotFound, "NOT_FOUND"},
		{"toggle without body", suite.alice, http.MethodPut, "/api/v1/users/me/view-counts-hidden", gin.H{}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"toggle with string", suite.alice, http.MethodPut, "/api/v1/users/me/view-counts-hidden", gin.H{"viewCountsHidden": "yes"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"empty batch", suite.bob, http.MethodPost, "/api/v1/views/posts", gin.H{"postIds": []string{}}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			w := suite.request(tt.user, tt.method, tt.path, tt.body)
			assert.Equal(suite.T(), tt.status, w.Code, w.Body.String())
			assert.Contains(suite.T(), w.Body.String(), tt.code)
		})
	}
}

func (suite *HandlersTestSuite) TestSelfViewResponse() {
	w := suite.request(suite.alice, http.MethodPost, "/api/v1/posts/"+suite.post.ID+"/views", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), false, body["recorded"])
	assert.Equal(suite.T(), "self_view", body["outcome"])
}

func (suite *HandlersTestSuite) TestBatchViews() {
	t := suite.T()
	second := testutil.CreatePost(t, suite.db, suite.alice.ID)
	missing := "00000000-0000-0000-0000-000000000000"

	w := suite.request(suite.bob, http.MethodPost, "/api/v1/views/posts",
		gin.H{"postIds": []string{suite.post.ID, second.ID, missing}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := suite.decode(w)
	assert.Equal(t, 2.0, body["recorded"])
	assert.Equal(t, []interface{}{missing}, body["notFound"])

	w = suite.request(suite.bob, http.MethodGet, "/api/v1/users/"+suite.alice.ID, nil)
	assert.Equal(t, 2.0, suite.decode(w)["postViewedByCount"])
}

func (suite *HandlersTestSuite) TestCreateViewersAndDelete() {
	t := suite.T()

	w := suite.request(suite.bob, http.MethodPost, "/api/v1/posts", gin.H{"text": "new beat"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := suite.decode(w)
	postID := created["id"].(string)
	assert.Equal(t, 0.0, created["viewedByCount"])

	w = suite.request(suite.alice, http.MethodPost, "/api/v1/posts/"+postID+"/views", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.request(suite.alice, http.MethodGet, "/api/v1/posts/"+postID+"/viewers?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	viewers := suite.decode(w)
	assert.Equal(t, 5.0, viewers["limit"])
	assert.Len(t, viewers["viewedBy"], 1)

	w = suite.request(suite.alice, http.MethodDelete, "/api/v1/posts/"+postID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.request(suite.bob, http.MethodDelete, "/api/v1/posts/"+postID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = suite.request(suite.alice, http.MethodGet, "/api/v1/posts/"+postID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestHealth() {
	w := suite.request(nil, http.MethodGet, "/health", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}
