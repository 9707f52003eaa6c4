package httpkit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fm_servicios_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type jwtConfig string

func (s jwtConfig) GetJWTAccessSecret() string { return string(s) }

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/staff", AuthRequired(jwtConfig(secret)), RequireRole(RoleAdmin), func(c *gin.Context) {
		id := MustGetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user": id.UserID()})
	})
	return engine
}

func TestAuthRequiredAcceptsAdminAccessToken(t *testing.T) {
	engine := newTestEngine("s3cret")
	token := signToken(t, "s3cret", jwt.MapClaims{
		"sub":   "42",
		"type":  "access",
		"roles": []string{RoleAdmin},
		"exp":   time.Now().Add(time.Minute).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequiredRejectsWrongRoleAndBadTokens(t *testing.T) {
	engine := newTestEngine("s3cret")
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "1", "type": "access"}), http.StatusUnauthorized},
		{"refresh token", "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"sub": "1", "type": "refresh"}), http.StatusUnauthorized},
		{"uuid subject", "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"sub": "6f1c", "type": "access"}), http.StatusUnauthorized},
		{"customer role", "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"sub": "1", "type": "access", "roles": []string{RoleCustomer}}), http.StatusForbidden},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/staff", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestHandleErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{apperr.StateConflict("bad state"), http.StatusConflict},
		{apperr.SchedulingConflict("busy"), http.StatusConflict},
		{apperr.External("gateway down", errors.New("timeout")), http.StatusBadGateway},
		{apperr.Validation("price").WithField("price"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		if !HandleError(c, tc.err) {
			t.Fatalf("expected %v to be handled", tc.err)
		}
		if rec.Code != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}
