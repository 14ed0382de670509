package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/internal/service"
)

type routerUsers struct {
	users map[string]models.User
}

func (r routerUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			clone := u
			return &clone, nil
		}
	}
	return nil, errNoUser
}

func (r routerUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errNoUser
	}
	return &u, nil
}

func (routerUsers) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

func (routerUsers) UpdatePassword(context.Context, string, string) error { return nil }

var errNoUser = errors.New("no user")

type fakeAttendanceSrv struct {
	saved int
}

func (f *fakeAttendanceSrv) Sheet(_ context.Context, rawDate, classID string) (*models.AttendanceSheet, error) {
	return &models.AttendanceSheet{ClassID: classID, Records: []models.AttendanceRow{}}, nil
}

func (f *fakeAttendanceSrv) Save(_ context.Context, req service.SaveAttendanceRequest) (*service.SaveAttendanceResult, error) {
	f.saved += len(req.Records)
	return &service.SaveAttendanceResult{Saved: len(req.Records), Dates: []string{req.Date}}, nil
}

func (f *fakeAttendanceSrv) Upsert(context.Context, string, string, service.UpsertAttendanceRequest) (*models.AttendanceRecord, error) {
	return &models.AttendanceRecord{}, nil
}

func (f *fakeAttendanceSrv) StudentHistory(_ context.Context, studentID, _, _ string) (*models.StudentAttendance, error) {
	return &models.StudentAttendance{StudentID: studentID}, nil
}

type fakeHolidaySrv struct{}

func (fakeHolidaySrv) List(context.Context, service.HolidayQuery) ([]models.Holiday, error) {
	return []models.Holiday{}, nil
}

func (fakeHolidaySrv) Create(context.Context, service.HolidayRequest) (*models.Holiday, error) {
	return &models.Holiday{Name: "Eid"}, nil
}

func (fakeHolidaySrv) Update(context.Context, string, service.HolidayRequest) (*models.Holiday, error) {
	return &models.Holiday{}, nil
}

func (fakeHolidaySrv) Delete(context.Context, string) error { return nil }

func (fakeHolidaySrv) Check(context.Context, string) (*models.HolidayCheck, error) {
	return &models.HolidayCheck{}, nil
}

type pingStub struct{ err error }

func (p pingStub) PingContext(context.Context) error { return p.err }

type routerFixture struct {
	router       *gin.Engine
	adminToken   string
	teacherToken string
	attendance   *fakeAttendanceSrv
}

func newRouterFixture(t *testing.T, authEnabled bool, staticDir string, db DatabasePinger) routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	users := routerUsers{users: map[string]models.User{
		"u1": {ID: "u1", Username: "admin", Role: models.RoleAdmin, Active: true, PasswordHash: string(hash)},
		"u2": {ID: "u2", Username: "ustadh", Role: models.RoleTeacher, Active: true, PasswordHash: string(hash)},
	}}
	metrics := service.NewMetricsService()
	auth := service.NewAuthService(users, metrics, nil, nil, service.AuthConfig{AccessTokenSecret: "router-secret", AccessTokenExpiry: time.Hour})
	login := func(username string) string {
		resp, err := auth.Login(context.Background(), models.LoginRequest{Username: username, Password: "secret123"})
		require.NoError(t, err)
		return resp.AccessToken
	}

	attendance := &fakeAttendanceSrv{}
	router := NewRouter(RouterDeps{
		Config: RouterConfig{APIPrefix: "/api", StaticDir: staticDir, AuthEnabled: authEnabled},
		Handlers: Handlers{
			Attendance: NewAttendanceHandler(attendance),
			Holidays:   NewHolidayHandler(fakeHolidaySrv{}),
			Auth:       NewAuthHandler(auth),
			Metrics:    NewMetricsHandler(metrics, db, nil),
		},
		Auth:    auth,
		Limiter: service.NewLoginLimiter(service.LoginLimiterConfig{MaxAttempts: 2}),
		Metrics: metrics,
	})
	return routerFixture{router: router, adminToken: login("admin"), teacherToken: login("ustadh"), attendance: attendance}
}

func (f routerFixture) do(method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouterProtectsMutationsOnly(t *testing.T) {
	f := newRouterFixture(t, true, "", pingStub{})
	body := []byte(`{"date":"2024-03-10","records":[{"student_id":"s1","status":"present"}]}`)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/attendance?date=2024-03-10", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/attendance", "", body).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/attendance", f.teacherToken, body).Code)
	assert.Equal(t, 1, f.attendance.saved)

	holiday := []byte(`{"date":"2024-04-10","name":"Eid"}`)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/holidays", f.teacherToken, holiday).Code)
	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/holidays", f.adminToken, holiday).Code)
}

func TestRouterAuthDisabledAllowsAnonymousWrites(t *testing.T) {
	f := newRouterFixture(t, false, "", pingStub{})
	holiday := []byte(`{"date":"2024-04-10","name":"Eid"}`)
	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/holidays", "", holiday).Code)
}

func TestRouterLoginLockout(t *testing.T) {
	f := newRouterFixture(t, true, "", pingStub{})
	bad := []byte(`{"username":"admin","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/auth/login", "", bad).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/auth/login", "", bad).Code)
	locked := f.do(http.MethodPost, "/api/auth/login", "", []byte(`{"username":"admin","password":"secret123"}`))
	assert.Equal(t, http.StatusTooManyRequests, locked.Code)
	assert.NotEmpty(t, locked.Header().Get("Retry-After"))
}

func TestRouterMeRequiresToken(t *testing.T) {
	f := newRouterFixture(t, true, "", pingStub{})
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/auth/me", "", nil).Code)

	w := f.do(http.MethodGet, "/api/auth/me", f.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", decodeEnvelope(t, w).Data["username"])
}

func TestRouterHealth(t *testing.T) {
	f := newRouterFixture(t, true, "", pingStub{})
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/health", "", nil).Code)

	down := newRouterFixture(t, true, "", pingStub{err: errors.New("connection refused")})
	w := down.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"down"`)
}

func TestRouterServesStaticWithIndexFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>maktab</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600))
	f := newRouterFixture(t, true, dir, pingStub{})

	w := f.do(http.MethodGet, "/app.js", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = f.do(http.MethodGet, "/students/42", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "maktab")

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/unknown", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/metrics", "", nil).Code)
}
