package acceptance

import (
	"net/http"
	"time"

	"github.com/xuniversity/auth-service/internal/dto"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "Str0ngPass!"
)

func (s *Suite) register(email, password string) dto.AuthResponse {
	var out dto.AuthResponse
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:    email,
		Password: password,
		FullName: "Alice Doe",
	}, nil, &out)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	return out
}

func (s *Suite) login(email, password string) (*http.Response, dto.AuthResponse) {
	var out dto.AuthResponse
	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    email,
		Password: password,
	}, nil, nil)
	if resp.StatusCode == http.StatusOK {
		s.decodeBody(resp, &out)
	}
	return resp, out
}

func (s *Suite) TestRegister() {
	auth := s.register(testEmail, testPassword)

	s.NotEmpty(auth.AccessToken)
	s.NotEmpty(auth.RefreshToken)
	s.Equal("Bearer", auth.TokenType)
	s.NotZero(auth.ExpiresIn)
	s.Equal(testEmail, auth.User.Email)
	s.Equal("student", auth.User.Role)
	s.NotEmpty(auth.User.ID)
}

func (s *Suite) TestRegisterNormalizesEmail() {
	auth := s.register("Alice@Example.COM", testPassword)
	s.Equal(testEmail, auth.User.Email)

	// The original casing is the same account
	var errResp dto.ErrorResponse
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:    "alice@EXAMPLE.com",
		Password: testPassword,
		FullName: "Imposter",
	}, nil, &errResp)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("Conflict", errResp.Error)
}

func (s *Suite) TestRegisterWeakPassword() {
	var errResp dto.ErrorResponse
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:    testEmail,
		Password: "password1",
		FullName: "Alice Doe",
	}, nil, &errResp)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLoginWrongPasswordAndUnknownEmailLookAlike() {
	s.register(testEmail, testPassword)

	var wrongPassword, unknownEmail dto.ErrorResponse

	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    testEmail,
		Password: "Wr0ngPass!",
	}, nil, &wrongPassword)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: testPassword,
	}, nil, &unknownEmail)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	s.Equal(wrongPassword.Message, unknownEmail.Message)
}

func (s *Suite) TestLockout() {
	s.register(testEmail, testPassword)

	// Four failures are unauthorized, the fifth locks
	for i := 0; i < 4; i++ {
		resp, _ := s.login(testEmail, "Wr0ngPass!")
		s.Equal(http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
	}

	resp, _ := s.login(testEmail, "Wr0ngPass!")
	s.Equal(http.StatusLocked, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("Retry-After"))

	// The correct password is rejected while locked
	resp, _ = s.login(testEmail, testPassword)
	s.Equal(http.StatusLocked, resp.StatusCode)

	// After the lock elapses the correct password works again
	time.Sleep(2100 * time.Millisecond)

	resp, auth := s.login(testEmail, testPassword)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(auth.AccessToken)
}

func (s *Suite) TestValidate() {
	auth := s.register(testEmail, testPassword)

	var first, second dto.ValidateResponse
	resp := s.get("/api/v1/auth/validate", bearer(auth.AccessToken), &first)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.get("/api/v1/auth/validate", bearer(auth.AccessToken), &second)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	s.Equal(first, second)
	s.Equal(auth.User.ID, first.UserID)
	s.Equal("student", first.Role)
}

func (s *Suite) TestValidateRejectsRefreshToken() {
	auth := s.register(testEmail, testPassword)

	resp := s.get("/api/v1/auth/validate", bearer(auth.RefreshToken), nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestRefreshRotation() {
	auth := s.register(testEmail, testPassword)

	var refreshed dto.AuthResponse
	resp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{
		RefreshToken: auth.RefreshToken,
	}, nil, &refreshed)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(refreshed.AccessToken)
	s.NotEqual(auth.RefreshToken, refreshed.RefreshToken, "rotation issues a new refresh token")

	// The rotated-out token is dead
	resp = s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{
		RefreshToken: auth.RefreshToken,
	}, nil, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	// The replacement works
	resp = s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{
		RefreshToken: refreshed.RefreshToken,
	}, nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestLogoutCurrentSession() {
	auth := s.register(testEmail, testPassword)

	resp := s.postJSON("/api/v1/auth/logout", dto.LogoutRequest{Scope: "one"}, bearer(auth.AccessToken), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{
		RefreshToken: auth.RefreshToken,
	}, nil, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogoutAllSessions() {
	first := s.register(testEmail, testPassword)
	loginResp, second := s.login(testEmail, testPassword)
	s.Require().Equal(http.StatusOK, loginResp.StatusCode)

	resp := s.postJSON("/api/v1/auth/logout", dto.LogoutRequest{Scope: "all"}, bearer(first.AccessToken), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		resp = s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: token}, nil, nil)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	}
}

func (s *Suite) TestSessionListing() {
	auth := s.register(testEmail, testPassword)
	loginResp, _ := s.login(testEmail, testPassword)
	s.Require().Equal(http.StatusOK, loginResp.StatusCode)

	var sessions []dto.SessionResponse
	resp := s.get("/api/v1/auth/sessions", bearer(auth.AccessToken), &sessions)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Len(sessions, 2)
}

func (s *Suite) TestProfile() {
	auth := s.register(testEmail, testPassword)

	var profile dto.UserResponse
	resp := s.get("/api/v1/auth/me", bearer(auth.AccessToken), &profile)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	s.Equal(testEmail, profile.Email)
	s.Equal(1, profile.ActiveSessions)
}

func (s *Suite) TestAdminListingRequiresAdminRole() {
	auth := s.register(testEmail, testPassword)

	resp := s.get("/api/v1/admin/users", bearer(auth.AccessToken), nil)
	s.Equal(http.StatusForbidden, resp.StatusCode, "students cannot list users")
}

func (s *Suite) TestProtectedRoutesRequireToken() {
	for _, path := range []string{"/api/v1/auth/me", "/api/v1/auth/validate", "/api/v1/auth/sessions"} {
		resp := s.get(path, nil, nil)
		s.Equal(http.StatusUnauthorized, resp.StatusCode, "path %s", path)
	}
}
