package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	jwtpkg "mailplatform/backend/internal/auth/jwt"
	"mailplatform/backend/internal/config"
	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/health"
	"mailplatform/backend/internal/monitoring"
	"mailplatform/backend/internal/service"
	"mailplatform/backend/internal/storage/memory"
)

const testSecret = "test-secret-key-for-development-32-chars-long-at-least"

type envelope struct {
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Error   string          `json:"error"`
	Details string          `json:"details"`
	Data    json.RawMessage `json:"data"`
}

type RouterSuite struct {
	suite.Suite

	store    *memory.Store
	counters *memory.CounterStore
	router   *gin.Engine
	jwt      *jwtpkg.Manager

	adminToken string
	userToken  string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Directory: config.DirectoryConfig{
			DefaultForwards:   2000,
			MaxWildcardSuffix: 32,
			DefaultPageLimit:  20,
			MaxPageLimit:      250,
			RenameBatchSize:   100,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	log := zaptest.NewLogger(s.T())
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetricsWithRegistry(reg, reg)

	s.store = memory.NewStore()
	s.counters = memory.NewCounterStore()
	s.jwt = jwtpkg.NewManager(testSecret, "maildir", time.Minute, time.Hour)

	quota := service.NewForwardQuotaTracker(s.counters, "wdf:", cfg.Directory.DefaultForwards, log)
	targets := service.NewTargetResolver(s.store)

	s.router = NewRouter(RouterDependencies{
		Config:             cfg,
		AddressService:     service.NewAddressService(s.store, cfg.Directory, log),
		ForwardedService:   service.NewForwardedService(s.store, targets, quota, cfg.Directory, log),
		Resolver:           service.NewResolver(s.store, quota, cfg.Directory, log),
		DomainAliasService: service.NewDomainAliasService(s.store, cfg.Directory, log),
		RenameMigrator:     service.NewDomainRenameMigrator(s.store, cfg.Directory, log),
		JWTManager:         s.jwt,
		HealthChecker:      health.NewHealthChecker(health.PingFunc(s.store.Health), nil, log),
		Metrics:            metrics,
		Logger:             log,
	})

	s.Require().NoError(s.store.CreateUser(context.Background(), &domain.User{ID: "u1", Username: "alice", Created: time.Now().UTC()}))
	s.adminToken = s.token("root", jwtpkg.RoleAdmin)
	s.userToken = s.token("u1", jwtpkg.RoleUser)
}

func (s *RouterSuite) token(userID string, role jwtpkg.Role) string {
	pair, err := s.jwt.GenerateTokenPair(userID, role)
	s.Require().NoError(err)
	return pair.AccessToken
}

func (s *RouterSuite) do(method, path, token string, body interface{}) (int, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (s *RouterSuite) decode(env envelope, v interface{}) {
	s.Require().NoError(json.Unmarshal(env.Data, v))
}

func (s *RouterSuite) TestRequiresToken() {
	code, _ := s.do(http.MethodGet, "/v1/addresses", "", nil)
	s.Equal(http.StatusUnauthorized, code)
}

func (s *RouterSuite) TestUserAddressLifecycle() {
	code, env := s.do(http.MethodPost, "/v1/users/u1/addresses", s.userToken, map[string]interface{}{
		"address": "Alice@Example.com",
		"tags":    []string{"Work", "work"},
	})
	s.Require().Equal(http.StatusCreated, code, env.Details)

	var created service.UserAddress
	s.decode(env, &created)
	s.Equal("alice@example.com", created.Addrview)
	s.True(created.Main)
	s.Equal([]string{"Work"}, created.Tags)

	code, env = s.do(http.MethodPost, "/v1/users/u1/addresses", s.userToken, map[string]interface{}{
		"address": "alice@example.com",
	})
	s.Equal(http.StatusConflict, code)
	s.Equal("AddressExistsError", env.Error)

	code, env = s.do(http.MethodDelete, "/v1/users/u1/addresses/"+created.ID, s.userToken, nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal("ChangeNotAllowed", env.Error)
	s.Equal("不能删除主地址，请先设置新的主地址", env.Msg)

	code, env = s.do(http.MethodGet, "/v1/users/u1/addresses", s.userToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var list struct {
		Results []service.UserAddress `json:"results"`
	}
	s.decode(env, &list)
	s.Len(list.Results, 1)
}

func (s *RouterSuite) TestOwnerAuthorization() {
	other := s.token("u2", jwtpkg.RoleUser)

	code, env := s.do(http.MethodGet, "/v1/users/u1/addresses", other, nil)
	s.Equal(http.StatusForbidden, code)
	s.Equal("MissingPrivileges", env.Error)

	code, _ = s.do(http.MethodGet, "/v1/users/u1/addresses", s.adminToken, nil)
	s.Equal(http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/v1/addresses", s.userToken, nil)
	s.Equal(http.StatusForbidden, code)
}

func (s *RouterSuite) TestListAddressesPagination() {
	for _, addr := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		code, env := s.do(http.MethodPost, "/v1/users/u1/addresses", s.adminToken, map[string]interface{}{"address": addr})
		s.Require().Equal(http.StatusCreated, code, env.Details)
	}

	code, env := s.do(http.MethodGet, "/v1/addresses?limit=2&query=example", s.adminToken, nil)
	s.Require().Equal(http.StatusOK, code)

	var page struct {
		Query      string           `json:"query"`
		Total      int64            `json:"total"`
		Page       int              `json:"page"`
		Results    []domain.Address `json:"results"`
		HasPrev    bool             `json:"hasPrevious"`
		HasNext    bool             `json:"hasNext"`
		Previous   interface{}      `json:"previousCursor"`
		NextCursor interface{}      `json:"nextCursor"`
	}
	s.decode(env, &page)
	s.Equal("example", page.Query)
	s.EqualValues(3, page.Total)
	s.Equal(1, page.Page)
	s.Len(page.Results, 2)
	s.Equal(false, page.Previous)
	s.False(page.HasPrev)
	s.True(page.HasNext)

	next, ok := page.NextCursor.(string)
	s.Require().True(ok)

	code, env = s.do(http.MethodGet, "/v1/addresses?limit=2&query=example&next="+next, s.adminToken, nil)
	s.Require().Equal(http.StatusOK, code)
	s.decode(env, &page)
	s.Require().Len(page.Results, 1)
	s.Equal("c@example.com", page.Results[0].Addrview)
	s.Equal(false, page.NextCursor)
	s.False(page.HasNext)
	s.True(page.HasPrev)

	code, env = s.do(http.MethodGet, "/v1/addresses?next=garbage!", s.adminToken, nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal("InvalidCursor", env.Error)
}

func (s *RouterSuite) TestForwardedAndResolve() {
	code, env := s.do(http.MethodPost, "/v1/addresses/forwarded", s.adminToken, map[string]interface{}{
		"address": "*@catch.example",
		"targets": []string{"inbox@example.org"},
		"allowWildcard": true,
	})
	s.Require().Equal(http.StatusCreated, code, env.Details)
	var created domain.Address
	s.decode(env, &created)

	s.counters.Set("wdf:"+created.ID, 7, time.Hour)

	code, env = s.do(http.MethodGet, "/v1/addresses/forwarded/"+created.ID, s.adminToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var fwd service.ForwardedAddress
	s.decode(env, &fwd)
	s.Equal(2000, fwd.Limits.Forwards.Allowed)
	s.EqualValues(7, fwd.Limits.Forwards.Used)

	code, env = s.do(http.MethodGet, "/v1/addresses/resolve/someone@catch.example", s.adminToken, nil)
	s.Equal(http.StatusNotFound, code)
	s.Equal("AddressNotFound", env.Error)

	code, env = s.do(http.MethodGet, "/v1/addresses/resolve/someone@catch.example?allowWildcard=true", s.adminToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var resolved service.ResolvedAddress
	s.decode(env, &resolved)
	s.Equal(created.ID, resolved.ID)
	s.Equal(service.MatchWildcard, resolved.Match)
	s.Require().NotNil(resolved.Limits)

	code, _ = s.do(http.MethodGet, "/v1/addresses/resolve/x@catch.example?allowWildcard=maybe", s.adminToken, nil)
	s.Equal(http.StatusBadRequest, code)

	code, env = s.do(http.MethodPost, "/v1/addresses/forwarded", s.adminToken, map[string]interface{}{
		"address": "loop@example.com",
		"targets": []string{"LOOP@example.com"},
	})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("SelfForward", env.Error)

	code, _ = s.do(http.MethodDelete, "/v1/addresses/forwarded/"+created.ID, s.adminToken, nil)
	s.Equal(http.StatusOK, code)
}

func (s *RouterSuite) TestDomainAliases() {
	code, env := s.do(http.MethodPost, "/v1/domainaliases", s.adminToken, map[string]string{
		"alias":  "Alias.Example",
		"domain": "example.com",
	})
	s.Require().Equal(http.StatusCreated, code, env.Details)
	var alias domain.DomainAlias
	s.decode(env, &alias)
	s.Equal("alias.example", alias.Alias)

	code, env = s.do(http.MethodGet, "/v1/domainaliases/resolve/alias.example", s.adminToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var resolved domain.DomainAlias
	s.decode(env, &resolved)
	s.Equal(alias.ID, resolved.ID)

	code, _ = s.do(http.MethodGet, "/v1/domainaliases/"+alias.ID, s.adminToken, nil)
	s.Equal(http.StatusOK, code)

	code, env = s.do(http.MethodPost, "/v1/domainaliases", s.adminToken, map[string]string{
		"alias":  "example.com",
		"domain": "example.com",
	})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("AliasIsDomain", env.Error)

	code, _ = s.do(http.MethodDelete, "/v1/domainaliases/"+alias.ID, s.adminToken, nil)
	s.Equal(http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/v1/domainaliases/"+alias.ID, s.adminToken, nil)
	s.Equal(http.StatusNotFound, code)
	s.Equal("AliasNotFound", env.Error)
}

func (s *RouterSuite) TestRenameDomain() {
	code, env := s.do(http.MethodPost, "/v1/users/u1/addresses", s.adminToken, map[string]interface{}{"address": "a@old.com"})
	s.Require().Equal(http.StatusCreated, code, env.Details)
	code, env = s.do(http.MethodPost, "/v1/users/u1/addresses", s.adminToken, map[string]interface{}{"address": "b@old.com"})
	s.Require().Equal(http.StatusCreated, code, env.Details)

	code, _ = s.do(http.MethodPost, "/v1/domains/rename", s.userToken, map[string]string{"oldDomain": "old.com", "newDomain": "new.com"})
	s.Equal(http.StatusForbidden, code)

	code, env = s.do(http.MethodPost, "/v1/domains/rename", s.adminToken, map[string]string{"oldDomain": "old.com", "newDomain": "new.com"})
	s.Require().Equal(http.StatusOK, code)
	var result service.RenameResult
	s.decode(env, &result)
	s.EqualValues(2, result.ModifiedAddresses)
	s.EqualValues(1, result.ModifiedUsers)
	s.Empty(result.Failures)

	user, err := s.store.GetUser(context.Background(), "u1")
	s.Require().NoError(err)
	s.Equal("a@new.com", user.Address)

	code, env = s.do(http.MethodPost, "/v1/domains/rename", s.adminToken, map[string]string{"oldDomain": "new.com", "newDomain": "NEW.com"})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("SameDomain", env.Error)
}

func (s *RouterSuite) TestRefreshToken() {
	pair, err := s.jwt.GenerateTokenPair("u1", jwtpkg.RoleUser)
	s.Require().NoError(err)

	code, env := s.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	s.Require().Equal(http.StatusOK, code)
	var resp refreshResponse
	s.decode(env, &resp)
	s.NotEmpty(resp.AccessToken)
	s.EqualValues(60, resp.ExpiresIn)

	code, _ = s.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refreshToken": "garbage"})
	s.Equal(http.StatusUnauthorized, code)

	// 访问令牌不能换取新的访问令牌
	code, _ = s.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refreshToken": pair.AccessToken})
	s.Equal(http.StatusUnauthorized, code)

	// 刷新令牌不能直接访问接口
	code, _ = s.do(http.MethodGet, "/v1/addresses", pair.RefreshToken, nil)
	s.Equal(http.StatusUnauthorized, code)
}

func (s *RouterSuite) TestOperationalEndpoints() {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	s.Equal(http.StatusOK, rec.Code)

	s.do(http.MethodGet, "/v1/addresses", s.adminToken, nil)

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `endpoint="/v1/addresses"`)
}
