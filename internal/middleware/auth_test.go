package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"practice_app_echo/internal/models"
)

type fakeVerifier struct {
	tokens map[string]*auth.Token
}

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f.tokens[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("invalid token")
}

type fakeUsers struct {
	byID  map[uint]*models.User
	byUID map[string]*models.User
}

func (f fakeUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func (f fakeUsers) FindOrCreateByFirebaseUID(_ context.Context, uid, email, name string) (*models.User, error) {
	if u, ok := f.byUID[uid]; ok {
		return u, nil
	}
	u := &models.User{ID: uint(len(f.byUID) + 100), Email: email, Name: name, UserType: models.UserTypeMember}
	f.byUID[uid] = u
	return u, nil
}

func runAuth(t *testing.T, mw echo.MiddlewareFunc, header, value string) (int, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/payments/summary", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c)
	if err != nil {
		code, _ := StatusFor(err)
		return code, c
	}
	return rec.Code, c
}

func TestRequireAPIAuthWithFirebaseToken(t *testing.T) {
	admin := &models.User{ID: 1, UserType: models.UserTypeAdmin}
	verifier := fakeVerifier{tokens: map[string]*auth.Token{
		"good":  {UID: "uid-admin"},
		"fresh": {UID: "uid-new", Claims: map[string]interface{}{"email": "new@example.com"}},
	}}
	users := fakeUsers{byID: map[uint]*models.User{}, byUID: map[string]*models.User{"uid-admin": admin}}
	mw := RequireAPIAuth(verifier, users, false)

	tests := []struct {
		name     string
		header   string
		value    string
		wantCode int
		wantUser uint
	}{
		{"missing header", "", "", http.StatusUnauthorized, 0},
		{"not a bearer token", "Authorization", "Basic abc", http.StatusUnauthorized, 0},
		{"invalid token", "Authorization", "Bearer bad", http.StatusUnauthorized, 0},
		{"known user", "Authorization", "Bearer good", http.StatusNoContent, 1},
		{"first sign-in provisions user", "Authorization", "Bearer fresh", http.StatusNoContent, 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, c := runAuth(t, mw, tt.header, tt.value)
			if code != tt.wantCode {
				t.Fatalf("status = %d; want %d", code, tt.wantCode)
			}
			if tt.wantUser != 0 {
				if got, _ := c.Get(ContextUserID).(uint); got != tt.wantUser {
					t.Errorf("userID = %d; want %d", got, tt.wantUser)
				}
			}
		})
	}
}

func TestRequireAPIAuthDevHeader(t *testing.T) {
	users := fakeUsers{byID: map[uint]*models.User{7: {ID: 7, UserType: models.UserTypeMember}}, byUID: map[string]*models.User{}}

	code, c := runAuth(t, RequireAPIAuth(nil, users, true), "X-User-ID", "7")
	if code != http.StatusNoContent {
		t.Fatalf("status = %d; want 204", code)
	}
	if got, _ := c.Get(ContextUserID).(uint); got != 7 {
		t.Errorf("userID = %d; want 7", got)
	}

	if code, _ := runAuth(t, RequireAPIAuth(nil, users, true), "X-User-ID", "8"); code != http.StatusUnauthorized {
		t.Errorf("unknown dev user status = %d; want 401", code)
	}
	if code, _ := runAuth(t, RequireAPIAuth(nil, users, false), "X-User-ID", "7"); code != http.StatusUnauthorized {
		t.Errorf("dev header without dev mode status = %d; want 401", code)
	}
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	for _, tt := range []struct {
		userType models.UserType
		wantErr  bool
	}{
		{models.UserTypeAdmin, false},
		{models.UserTypeMember, true},
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodPut, "/", nil), httptest.NewRecorder())
		c.Set(ContextUserType, tt.userType)
		err := RequireAdmin(next)(c)
		if (err != nil) != tt.wantErr {
			t.Errorf("RequireAdmin(%s) error = %v; wantErr %v", tt.userType, err, tt.wantErr)
		}
	}
}
