package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fcc-clone/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

func testConfig() *config.Config {
	return &config.Config{
		DatabaseURL:    "postgres://unused",
		JWTSecret:      []byte("test-secret"),
		TokenTTL:       time.Hour,
		DBTimeout:      time.Second,
		DBMaxOpenConns: 1,
		AllowedOrigins: []string{"http://frontend.test"},
	}
}

// без базы: проверяем только пути, которые отвечают до обращения к ней
func newTestServer(t *testing.T) (*ApiHandler, http.Handler) {
	t.Helper()
	cfg := testConfig()
	h := NewApiHandler(nil, cfg)
	return h, NewServerHandler(h, cfg.AllowedOrigins)
}

func do(t *testing.T, srv http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	msg, _ := body["error"].(string)
	return msg
}

func TestHome(t *testing.T) {
	_, srv := newTestServer(t)
	rec := do(t, srv, "GET", "/", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Running") {
		t.Fatalf("GET / = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestRequestIDIsEchoedWhenValid(t *testing.T) {
	_, srv := newTestServer(t)
	const id = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", id)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != id {
		t.Errorf("X-Request-ID = %q, want %q", got, id)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "not a uuid\n")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got == "not a uuid\n" || got == "" {
		t.Errorf("X-Request-ID = %q, want a fresh id", got)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	_, srv := newTestServer(t)

	cases := []struct {
		name, body, want string
	}{
		{"not json", `{`, "Invalid request payload"},
		{"missing username", `{"question_id": 5, "answer_id": 2}`, "username"},
		{"missing ids", `{"username": "alice"}`, "question_id, answer_id"},
		{"negative id", `{"username": "alice", "question_id": -1, "answer_id": 2}`, "question_id"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := do(t, srv, "POST", "/submit-answer", c.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if msg := errorMessage(t, rec); !strings.Contains(msg, c.want) {
				t.Fatalf("error = %q, want it to mention %q", msg, c.want)
			}
		})
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h, srv := newTestServer(t)

	student, err := h.issueToken(2, "alice", "student")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	routes := []struct{ method, path, body string }{
		{"POST", "/courses", `{"title": "Go"}`},
		{"POST", "/lessons", `{"course_id": 1, "title": "Intro"}`},
		{"POST", "/questions", `{"lesson_id": 1, "question_text": "?"}`},
		{"POST", "/answers", `{"question_id": 1, "answers": [{"text": "a", "is_correct": true}]}`},
		{"DELETE", "/courses/1", ""},
		{"DELETE", "/lessons/10", ""},
		{"DELETE", "/questions/3/delete", ""},
		{"DELETE", "/auth/delete-user/bob", ""},
	}
	for _, rt := range routes {
		if rec := do(t, srv, rt.method, rt.path, rt.body, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", rt.method, rt.path, rec.Code)
		}
		if rec := do(t, srv, rt.method, rt.path, rt.body, student); rec.Code != http.StatusForbidden {
			t.Errorf("%s %s as student = %d, want 403", rt.method, rt.path, rec.Code)
		}
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	h, srv := newTestServer(t)

	expired := &Claims{
		UserID: 1, Username: "root", Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}
	expiredToken, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString(h.jwtKey)

	foreign := &Claims{UserID: 1, Username: "root", Role: "admin"}
	foreignToken, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, foreign).SignedString([]byte("other-key"))

	cases := []struct {
		name, header, want string
	}{
		{"missing", "", "Authorization header required"},
		{"not bearer", "Basic abc", "Invalid Authorization header format"},
		{"expired", "Bearer " + expiredToken, "Token has expired"},
		{"wrong key", "Bearer " + foreignToken, "Invalid token"},
		{"garbage", "Bearer abc.def.ghi", "Invalid token"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest("DELETE", "/courses/1", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if msg := errorMessage(t, rec); msg != c.want {
				t.Fatalf("error = %q, want %q", msg, c.want)
			}
		})
	}
}

func TestAddAnswersRequiresExactlyOneCorrect(t *testing.T) {
	h, srv := newTestServer(t)
	admin, err := h.issueToken(1, "root", "admin")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	for _, body := range []string{
		`{"question_id": 1, "answers": [{"text": "a"}, {"text": "b"}]}`,
		`{"question_id": 1, "answers": [{"text": "a", "is_correct": true}, {"text": "b", "is_correct": true}]}`,
	} {
		rec := do(t, srv, "POST", "/answers", body, admin)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400 for %s", rec.Code, body)
		}
	}

	rec := do(t, srv, "POST", "/answers", `{"question_id": 1, "answers": []}`, admin)
	if rec.Code != http.StatusBadRequest || !strings.Contains(errorMessage(t, rec), "answers") {
		t.Fatalf("empty answers = %d %q", rec.Code, rec.Body.String())
	}
}

func TestDeleteUserRefusesSelf(t *testing.T) {
	h, srv := newTestServer(t)
	admin, _ := h.issueToken(1, "root", "admin")

	rec := do(t, srv, "DELETE", "/auth/delete-user/root", "", admin)
	if rec.Code != http.StatusForbidden || errorMessage(t, rec) != "You cannot delete yourself" {
		t.Fatalf("self delete = %d %q", rec.Code, rec.Body.String())
	}
}

func TestNonNumericIDsDoNotRoute(t *testing.T) {
	_, srv := newTestServer(t)
	if rec := do(t, srv, "GET", "/courses/abc/lessons", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET /courses/abc/lessons = %d, want 404", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, srv := newTestServer(t)
	// браузеры присылают имена заголовков в нижнем регистре
	for _, headers := range []string{"content-type", "authorization,content-type"} {
		req := httptest.NewRequest("OPTIONS", "/courses", nil)
		req.Header.Set("Origin", "http://frontend.test")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", headers)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://frontend.test" {
			t.Fatalf("headers %q: Access-Control-Allow-Origin = %q", headers, got)
		}
	}
}
