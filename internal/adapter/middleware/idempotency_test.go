package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

var (
	testActor   = strings.Repeat("b", 32)
	testRequest = strings.Repeat("a", 32)
	repayPath   = "/applications/" + strings.Repeat("c", 32) + "/repayments"
)

func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(IdempotencyMiddleware(rdb, ttl))
	e.POST("/applications/:application_id/repayments", handler)
	e.GET("/applications/:application_id", handler)
	return e
}

func doReq(t *testing.T, e *echo.Echo, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close(); mr.Close() })
	return mr, rdb
}

func validHeaders() map[string]string {
	return map[string]string{
		HeaderRequestID: testRequest,
		HeaderRequestAt: time.Now().UTC().Format(time.RFC3339),
		HeaderActorID:   testActor,
	}
}

// countingHandler answers 201 and counts how often it actually ran.
func countingHandler(calls *int32) echo.HandlerFunc {
	return func(c echo.Context) error {
		n := atomic.AddInt32(calls, 1)
		return c.JSON(http.StatusCreated, map[string]any{"run": n})
	}
}

func Test_BypassOnGET_NoHeadersRequired(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))

	rec := doReq(t, e, http.MethodGet, "/applications/"+strings.Repeat("c", 32), "", nil)
	if rec.Code != http.StatusCreated || calls != 1 {
		t.Fatalf("GET should reach handler: code=%d calls=%d", rec.Code, calls)
	}
}

func Test_HeaderValidation(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))

	tests := []struct {
		name   string
		mutate func(h map[string]string)
	}{
		{"missing request id", func(h map[string]string) { delete(h, HeaderRequestID) }},
		{"invalid request id", func(h map[string]string) { h[HeaderRequestID] = "NOT-VALID" }},
		{"invalid request at", func(h map[string]string) { h[HeaderRequestAt] = "not-a-time" }},
		{"skewed request at", func(h map[string]string) {
			h[HeaderRequestAt] = time.Now().UTC().Add(-maxClockSkew - time.Minute).Format(time.RFC3339)
		}},
		{"missing actor", func(h map[string]string) { delete(h, HeaderActorID) }},
		{"invalid actor", func(h map[string]string) { h[HeaderActorID] = "not32hex" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeaders()
			tt.mutate(h)
			rec := doReq(t, e, http.MethodPost, repayPath, `{"amount":"10"}`, h)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d body=%s", rec.Code, rec.Body.String())
			}
		})
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times for rejected requests", calls)
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls))
	h := validHeaders()

	rec1 := doReq(t, e, http.MethodPost, repayPath, `{"amount":"500"}`, h)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first request => want 201, got %d, body: %s", rec1.Code, rec1.Body.String())
	}

	rec2 := doReq(t, e, http.MethodPost, repayPath, `{"amount":"500"}`, h)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay => want 201, got %d, body: %s", rec2.Code, rec2.Body.String())
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get(HeaderReplayed) != "true" || rec1.Header().Get(HeaderReplayed) != "" {
		t.Fatalf("replay header misplaced")
	}
	if !strings.HasPrefix(rec2.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		t.Fatalf("content type = %q", rec2.Header().Get(echo.HeaderContentType))
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func Test_SameRequestID_OtherApplication_RunsAgain(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls))
	h := validHeaders()

	_ = doReq(t, e, http.MethodPost, repayPath, `{"amount":"500"}`, h)
	other := "/applications/" + strings.Repeat("d", 32) + "/repayments"
	rec := doReq(t, e, http.MethodPost, other, `{"amount":"500"}`, h)
	if rec.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("want a second run: code=%d calls=%d", rec.Code, calls)
	}
}

func Test_ServerError_ReleasesKey(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, func(c echo.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"reason": "ledger_post_pending"})
		}
		return c.JSON(http.StatusCreated, map[string]bool{"ok": true})
	})
	h := validHeaders()

	rec := doReq(t, e, http.MethodPost, repayPath, `{"reference":"bank-1"}`, h)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("first => want 503, got %d", rec.Code)
	}
	key := buildKey(http.MethodPost, repayPath, testActor, testRequest)
	if n := rdb.Exists(context.Background(), key).Val(); n != 0 {
		t.Fatalf("key should be released after 5xx")
	}

	rec = doReq(t, e, http.MethodPost, repayPath, `{"reference":"bank-1"}`, h)
	if rec.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("retry should run the handler: code=%d calls=%d", rec.Code, calls)
	}
}

func Test_ClientError_IsReplayed(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, func(c echo.Context) error {
		atomic.AddInt32(&calls, 1)
		return c.JSON(http.StatusConflict, map[string]string{"reason": "stale_version"})
	})
	h := validHeaders()

	_ = doReq(t, e, http.MethodPost, repayPath, `{}`, h)
	rec := doReq(t, e, http.MethodPost, repayPath, `{}`, h)
	if rec.Code != http.StatusConflict || calls != 1 || rec.Header().Get(HeaderReplayed) != "true" {
		t.Fatalf("want replayed 409: code=%d calls=%d", rec.Code, calls)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls))
	body := `{"x":1}`

	key := buildKey(http.MethodPost, repayPath, testActor, testRequest)
	entry := idempEntry{
		InProgress:  true,
		BodySHA256:  bodyHash([]byte(body)),
		RequestID:   testRequest,
		ActorID:     testActor,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}
	if ok, err := provisionalSet(context.Background(), rdb, key, entry); err != nil || !ok {
		t.Fatalf("seed provisional failed, ok=%v err=%v", ok, err)
	}

	rec := doReq(t, e, http.MethodPost, repayPath, body, validHeaders())
	if rec.Code != http.StatusConflict || calls != 0 {
		t.Fatalf("in-progress => want 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func Test_Conflict_When_SameReqID_DifferentBody(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls))

	key := buildKey(http.MethodPost, repayPath, testActor, testRequest)
	final := idempEntry{
		Code:        http.StatusCreated,
		Body:        []byte(`{"ok":true}`),
		BodySHA256:  bodyHash([]byte(`{"x":1}`)),
		RequestID:   testRequest,
		ActorID:     testActor,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := saveFinal(context.Background(), rdb, key, final, 5*time.Minute); err != nil {
		t.Fatalf("seed final failed: %v", err)
	}

	rec := doReq(t, e, http.MethodPost, repayPath, `{"x":2}`, validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("different body same reqID => want 409, got %d", rec.Code)
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	var calls int32
	e := setupEcho(rdb, time.Minute, countingHandler(&calls))

	rec := doReq(t, e, http.MethodPost, repayPath, `{}`, validHeaders())
	if rec.Code != http.StatusServiceUnavailable || calls != 0 {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("idempotency store unavailable")) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
