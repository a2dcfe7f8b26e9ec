package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"

	"github.com/soonab/Soonab-sub000/config"
	"github.com/soonab/Soonab-sub000/moderation"
	"github.com/soonab/Soonab-sub000/ratelimit"
	"github.com/soonab/Soonab-sub000/reputation"
	"github.com/soonab/Soonab-sub000/schema"
	"github.com/soonab/Soonab-sub000/store"
	"github.com/soonab/Soonab-sub000/utils"
)

const adminToken = "secret"

type ServerTestSuite struct {
	suite.Suite
	store  store.Store
	viper  *viper.Viper
	now    time.Time
	hub    *moderation.Hub
	engine *reputation.Engine
	server *Server
}

func (s *ServerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.Require().NoError(utils.InitI18NBundle())
}

func (s *ServerTestSuite) SetupTest() {
	db, err := store.OpenGormStore("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
	s.Require().NoError(err)
	s.store = db

	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	s.viper = viper.New()
	s.viper.Set(config.KeyAdminToken, adminToken)
	cfg := config.New(s.viper)

	s.hub = moderation.NewHub()
	s.engine = reputation.New(db, cfg, reputation.WithClock(clock), reputation.WithNotifier(s.hub))
	s.server = NewServer(s.engine, s.hub, ratelimit.New(ratelimit.WithClock(clock)), cfg)
}

func (s *ServerTestSuite) TearDownTest() {
	s.hub.Close()
	s.store.Close(context.Background())
}

func (s *ServerTestSuite) request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(w, req)
	return w
}

func as(profileID string) map[string]string {
	return map[string]string{headerProfileID: profileID}
}

func (s *ServerTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *ServerTestSuite) errorOf(w *httptest.ResponseRecorder) map[string]interface{} {
	body := s.decode(w)
	e, ok := body["error"].(map[string]interface{})
	s.Require().True(ok, "no error object in %s", w.Body.String())
	return e
}

func (s *ServerTestSuite) rate(rater, target string, value int) *httptest.ResponseRecorder {
	return s.request(http.MethodPost, "/v1/ratings", gin.H{"target": target, "value": value}, as(rater))
}

func (s *ServerTestSuite) TestHealthz() {
	w := s.request(http.MethodGet, "/healthz", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", s.decode(w)["status"])
}

func (s *ServerTestSuite) TestSubmitRating() {
	w := s.rate("a", "profile:b", 5)
	s.Equal(http.StatusOK, w.Code)

	body := s.decode(w)
	s.Equal(true, body["ok"])
	s.InDelta(25.0/6.0, body["bayesian_mean"], 1e-9)
	s.InDelta(25.0/6.0/5*100, body["score_percent"], 1e-9)
}

func (s *ServerTestSuite) TestSubmitPostRating() {
	w := s.request(http.MethodPost, "/v1/ratings", gin.H{
		"surface": "post", "target": "42", "target_author": "profile:author", "value": 1,
	}, as("a"))
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodGet, "/v1/scores/42?surface=post", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("post:42", body["target"])
	s.Equal(float64(1), body["count"])
}

func (s *ServerTestSuite) TestOwnPostCannotBeRated() {
	w := s.request(http.MethodPost, "/v1/posts", nil, as("author"))
	s.Require().Equal(http.StatusCreated, w.Code)
	activity, ok := s.decode(w)["activity"].(map[string]interface{})
	s.Require().True(ok)
	postID, _ := activity["id"].(string)

	w = s.request(http.MethodPost, "/v1/ratings", gin.H{"surface": "post", "target": postID, "value": 5}, as("author"))
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal(string(reputation.RuleSelfAction), s.errorOf(w)["code"])

	w = s.request(http.MethodPost, "/v1/ratings", gin.H{"surface": "post", "target": "no-such-post", "value": 5}, as("reader"))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(string(reputation.RuleInvalidTarget), s.errorOf(w)["code"])
}

func (s *ServerTestSuite) TestIdentityIsRequired() {
	w := s.request(http.MethodPost, "/v1/ratings", gin.H{"target": "profile:b", "value": 5}, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(string(errorMissingIdentity), s.errorOf(w)["code"])

	w = s.request(http.MethodPost, "/v1/ratings", gin.H{"target": "profile:b", "value": 5}, as("a b"))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(string(errorInvalidIdentity), s.errorOf(w)["code"])
}

func (s *ServerTestSuite) TestSessionIdentity() {
	w := s.request(http.MethodPost, "/v1/ratings", gin.H{"target": "profile:b", "value": 4},
		map[string]string{headerSessionID: "s1"})
	s.Equal(http.StatusOK, w.Code)

	r, err := s.store.GetRating(context.Background(), schema.RatingSurfacePeer, "session:s1", "profile:b")
	s.NoError(err)
	s.NotNil(r)
}

func (s *ServerTestSuite) TestMalformedBody() {
	w := s.request(http.MethodPost, "/v1/ratings", "{", as("a"))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.rate("a", "profile:b", 9)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(string(reputation.RuleInvalidValue), s.errorOf(w)["code"])
}

func (s *ServerTestSuite) TestSelfRatingIsLocalised() {
	w := s.request(http.MethodPost, "/v1/ratings?lang=zh-TW", gin.H{"target": "profile:a", "value": 5}, as("a"))
	s.Equal(http.StatusForbidden, w.Code)

	e := s.errorOf(w)
	s.Equal(string(reputation.RuleSelfAction), e["code"])
	s.Equal("您不能為自己評分。", e["message"])

	w = s.request(http.MethodPost, "/v1/ratings", gin.H{"target": "profile:a", "value": 5}, as("a"))
	s.Equal("You cannot rate yourself.", s.errorOf(w)["message"])
}

func (s *ServerTestSuite) TestCooldownHasRetryAfter() {
	s.Equal(http.StatusOK, s.rate("a", "profile:b", 5).Code)

	s.now = s.now.Add(time.Hour)
	w := s.rate("a", "profile:b", 4)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal("82800", w.Header().Get("Retry-After"))

	e := s.errorOf(w)
	s.Equal(string(reputation.RulePairCooldown), e["code"])
	s.Equal(float64(s.now.Add(23*time.Hour).Unix()), e["retry_after"])
}

func (s *ServerTestSuite) TestReadScore() {
	w := s.request(http.MethodGet, "/v1/scores/profile:nobody", nil, nil)
	s.Equal(http.StatusOK, w.Code)

	body := s.decode(w)
	s.Equal(float64(0), body["count"])
	s.Equal(4.0, body["bayesian_mean"])
	s.Equal(string(schema.TierA), body["tier"])

	w = s.request(http.MethodGet, "/v1/scores/profile:nobody?surface=thread", nil, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	for _, path := range []string{"/v1/scores/not-an-identity", "/v1/scores/robot:x", "/v1/scores/a:b?surface=post", "/v1/scores/junk/history"} {
		w = s.request(http.MethodGet, path, nil, nil)
		s.Equal(http.StatusBadRequest, w.Code, path)
		s.Equal(string(reputation.RuleInvalidTarget), s.errorOf(w)["code"], path)
	}

	subjects, err := s.store.ListSubjects(context.Background())
	s.NoError(err)
	s.Len(subjects, 1)
}

func (s *ServerTestSuite) TestScoreHistory() {
	s.Equal(http.StatusOK, s.rate("a", "profile:b", 5).Code)

	path := fmt.Sprintf("/v1/scores/profile:b/history?start=%d&end=%d", s.now.Add(-time.Hour).Unix(), s.now.Unix())
	w := s.request(http.MethodGet, path, nil, nil)
	s.Equal(http.StatusOK, w.Code)
	s.InDelta(25.0/6.0, s.decode(w)["average"], 1e-9)
}

func (s *ServerTestSuite) TestPostQuota() {
	s.viper.Set(config.KeyPriorMean, 2.0)

	w := s.request(http.MethodGet, "/v1/quota", nil, as("author"))
	s.Equal(http.StatusOK, w.Code)
	s.Equal(float64(1), s.decode(w)["remaining"])

	w = s.request(http.MethodPost, "/v1/posts", nil, as("author"))
	s.Equal(http.StatusCreated, w.Code)
	body := s.decode(w)
	s.Equal(float64(0), body["remaining"])
	s.Equal(float64(1), body["used"])

	w = s.request(http.MethodPost, "/v1/posts", nil, as("author"))
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Empty(w.Header().Get("Retry-After"))
	e := s.errorOf(w)
	s.Equal(string(reputation.RuleDailyPostQuota), e["code"])
	s.Equal("You have reached today's post limit of 1.", e["message"])

	w = s.request(http.MethodGet, "/v1/quota", nil, as("author"))
	s.Equal(http.StatusOK, w.Code)
	s.Equal(float64(0), s.decode(w)["remaining"])
}

func (s *ServerTestSuite) TestReplies() {
	w := s.request(http.MethodPost, "/v1/replies", gin.H{"thread_id": "t1", "parent_author": "profile:op"}, as("a"))
	s.Equal(http.StatusCreated, w.Code)
	body := s.decode(w)
	s.Equal(float64(1), body["thread_used"])

	w = s.request(http.MethodPost, "/v1/replies", gin.H{"parent_author": "profile:op"}, as("a"))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(string(reputation.RuleInvalidThread), s.errorOf(w)["code"])
}

func (s *ServerTestSuite) TestBurstGuard() {
	s.viper.Set(config.KeyBurstPerMinute, 2)

	w := s.rate("a", "profile:b", 5)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("1", w.Header().Get(headerRemainingWrites))

	w = s.rate("a", "profile:c", 5)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("0", w.Header().Get(headerRemainingWrites))

	w = s.rate("a", "profile:d", 5)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal("60", w.Header().Get("Retry-After"))
	s.Equal(string(reputation.RuleBurst), s.errorOf(w)["code"])

	s.Equal(http.StatusOK, s.rate("z", "profile:d", 5).Code)

	s.now = s.now.Add(time.Minute)
	s.Equal(http.StatusOK, s.rate("a", "profile:d", 5).Code)
}

func (s *ServerTestSuite) TestClientThrottle() {
	s.viper.Set(config.KeyRequestsPerSecond, 0.5)

	s.Equal(http.StatusOK, s.request(http.MethodGet, "/healthz", nil, nil).Code)
	w := s.request(http.MethodGet, "/healthz", nil, nil)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal(string(errorTooManyRequests), s.errorOf(w)["code"])
}

func (s *ServerTestSuite) TestAdminRequiresToken() {
	w := s.request(http.MethodPost, "/v1/admin/recompute", nil, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.request(http.MethodPost, "/v1/admin/recompute", nil, map[string]string{headerAdminToken: "wrong"})
	s.Equal(http.StatusForbidden, w.Code)

	s.Equal(http.StatusOK, s.rate("a", "profile:b", 5).Code)
	w = s.request(http.MethodPost, "/v1/admin/recompute", nil, map[string]string{headerAdminToken: adminToken})
	s.Equal(http.StatusOK, w.Code)
	s.Equal(float64(1), s.decode(w)["recomputed"])
}

func (s *ServerTestSuite) TestAdminFlagsAndReset() {
	s.viper.Set(config.KeyBrigadeMinRaters, 2)
	admin := map[string]string{headerAdminToken: adminToken}

	s.Equal(http.StatusOK, s.rate("a", "profile:c", 1).Code)
	s.Equal(http.StatusOK, s.rate("b", "profile:c", 1).Code)

	w := s.request(http.MethodGet, "/v1/admin/flags?target=profile:c", nil, admin)
	s.Equal(http.StatusOK, w.Code)
	flags, ok := s.decode(w)["flags"].([]interface{})
	s.Require().True(ok)
	s.Len(flags, 1)

	w = s.request(http.MethodDelete, "/v1/admin/subjects/profile:c", nil, admin)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(float64(2), s.decode(w)["deleted"])

	w = s.request(http.MethodGet, "/v1/scores/profile:c", nil, nil)
	s.Equal(float64(0), s.decode(w)["count"])
}

func (s *ServerTestSuite) TestMergeIdentity() {
	w := s.request(http.MethodPost, "/v1/ratings", gin.H{"target": "profile:b", "value": 4},
		map[string]string{headerSessionID: "s1"})
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodPost, "/v1/identities/merge", nil,
		map[string]string{headerSessionID: "s1", headerProfileID: "p1"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal(float64(1), s.decode(w)["moved"])

	w = s.request(http.MethodPost, "/v1/identities/merge", nil, as("p1"))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(string(reputation.RuleInvalidMerge), s.errorOf(w)["code"])
}

func (s *ServerTestSuite) TestFlagStream() {
	s.viper.Set(config.KeyBrigadeMinRaters, 1)

	server := httptest.NewServer(s.server.Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/admin/flags/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{headerAdminToken: []string{adminToken}})
	s.Require().NoError(err)
	defer conn.Close()

	s.Eventually(func() bool { return s.hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	s.Equal(http.StatusOK, s.rate("a", "profile:b", 2).Code)

	var flag schema.BrigadeFlag
	conn.SetReadDeadline(time.Now().Add(time.Second))
	s.NoError(conn.ReadJSON(&flag))
	s.Equal("profile:b", flag.Target)
	s.Equal(1, flag.DistinctRaters)

	_, _, err = websocket.DefaultDialer.Dial(url, nil)
	s.Error(err)
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
