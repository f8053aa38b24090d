package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"vidhub/config"
	"vidhub/internal/handler"
	"vidhub/internal/model"
	"vidhub/internal/repository"
	"vidhub/internal/service"
	"vidhub/pkg/jwt"
	"vidhub/pkg/media"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

type testServer struct {
	router    *gin.Engine
	users     *repository.MemoryUserRepository
	host      *media.MockHost
	uploadDir string
}

func newTestServer(t *testing.T, subs ...model.Subscription) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	users := repository.NewMemoryUserRepository()
	host := media.NewMockHost(ctrl)
	jwtService := jwt.NewJWTService(config.JWTConfig{
		AccessSecret:  "access-secret",
		AccessExpire:  time.Hour,
		RefreshSecret: "refresh-secret",
		RefreshExpire: 24 * time.Hour,
		Issuer:        "vidhub-test",
	})
	denylist := jwt.NewMemoryDenylist()

	userSvc := service.NewUserService(
		users,
		service.NewTokenService(users, jwtService),
		jwtService,
		media.NewAttacher(host, "vidhub"),
		denylist,
	)
	channelSvc := service.NewChannelService(users, repository.NewMemorySubscriptionRepository(subs...))

	uploadDir := t.TempDir()
	uploads, err := handler.NewUploadStore(uploadDir, 1<<20)
	require.NoError(t, err)

	r := gin.New()
	handler.RegisterUserRoutes(
		r.Group("/api/v1"),
		handler.NewUserHandler(userSvc, uploads, config.CookieConfig{Secure: true, SameSite: "lax"}),
		handler.NewChannelHandler(channelSvc),
		jwtService.AuthMiddleware(denylist),
	)

	return &testServer{router: r, users: users, host: host, uploadDir: uploadDir}
}

func (s *testServer) acceptUploads() {
	s.host.EXPECT().
		Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key string, _ io.Reader, _ int64, _ string) (string, error) {
			return "http://media.test/" + key, nil
		}).
		AnyTimes()
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, path string, body interface{}, accessToken string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string][]byte, accessToken string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, data := range files {
		fw, err := w.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func assertUploadDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary uploads should be removed")
}

var adaFields = map[string]string{
	"fullName": "Ada Lovelace",
	"email":    "ada@x.com",
	"username": "Ada",
	"password": "p@ss1234",
}

type loginData struct {
	User struct {
		ID       uint   `json:"_id"`
		Username string `json:"username"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func registerAndLogin(t *testing.T, s *testServer) loginData {
	t.Helper()
	rec := s.do(multipartRequest(t, "/api/v1/users/register", adaFields, map[string][]byte{"avatar": pngBytes}, ""))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login",
		map[string]string{"username": "ada", "password": "p@ss1234"}, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data loginData
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	return data
}

func TestRegisterThenLogin(t *testing.T) {
	s := newTestServer(t)
	s.acceptUploads()

	rec := s.do(multipartRequest(t, "/api/v1/users/register", adaFields,
		map[string][]byte{"avatar": pngBytes, "coverImage": pngBytes}, ""))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.True(t, env.Success)
	assert.Equal(t, "User registered successfully", env.Message)
	assert.NotContains(t, string(env.Data), "password")
	assert.NotContains(t, string(env.Data), "refreshToken")

	var user struct {
		Username   string `json:"username"`
		Avatar     string `json:"avatar"`
		CoverImage string `json:"coverImage"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "ada", user.Username)
	assert.Contains(t, user.Avatar, "http://media.test/vidhub/")
	assert.Contains(t, user.CoverImage, "http://media.test/vidhub/")
	assertUploadDirEmpty(t, s.uploadDir)

	rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login",
		map[string]string{"username": "ada", "password": "p@ss1234"}, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env = decode(t, rec)
	assert.Equal(t, "User logged in successfully", env.Message)
	assert.NotContains(t, string(env.Data), "password")

	var data loginData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ada", data.User.Username)
	assert.NotEmpty(t, data.AccessToken)
	assert.NotEmpty(t, data.RefreshToken)
	assert.NotEqual(t, data.AccessToken, data.RefreshToken)

	access := cookieByName(rec, jwt.AccessTokenCookie)
	refresh := cookieByName(rec, jwt.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, data.AccessToken, access.Value)
	assert.Equal(t, data.RefreshToken, refresh.Value)

	stored, err := s.users.GetByID(context.Background(), data.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasRefreshToken(data.RefreshToken))
}

func TestRegister_Errors(t *testing.T) {
	t.Run("missing avatar", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(multipartRequest(t, "/api/v1/users/register", adaFields, nil, ""))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, "Avatar file is required", env.Message)
		assert.Equal(t, "null", string(env.Data))
	})

	t.Run("blank field", func(t *testing.T) {
		s := newTestServer(t)
		fields := map[string]string{"fullName": " ", "email": "ada@x.com", "username": "ada", "password": "p"}
		rec := s.do(multipartRequest(t, "/api/v1/users/register", fields, map[string][]byte{"avatar": pngBytes}, ""))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "All fields are required", decode(t, rec).Message)
		assertUploadDirEmpty(t, s.uploadDir)
	})

	t.Run("duplicate user", func(t *testing.T) {
		s := newTestServer(t)
		s.acceptUploads()
		rec := s.do(multipartRequest(t, "/api/v1/users/register", adaFields, map[string][]byte{"avatar": pngBytes}, ""))
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = s.do(multipartRequest(t, "/api/v1/users/register", adaFields, map[string][]byte{"avatar": pngBytes}, ""))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "User with email or username already exists", decode(t, rec).Message)
		assertUploadDirEmpty(t, s.uploadDir)
	})

	t.Run("avatar upload fails", func(t *testing.T) {
		s := newTestServer(t)
		s.host.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", errors.New("host unavailable"))

		rec := s.do(multipartRequest(t, "/api/v1/users/register", adaFields, map[string][]byte{"avatar": pngBytes}, ""))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Avatar file is required", decode(t, rec).Message)
		assertUploadDirEmpty(t, s.uploadDir)
	})
}

func TestLogin_Errors(t *testing.T) {
	s := newTestServer(t)
	s.acceptUploads()
	registerAndLogin(t, s)

	tests := []struct {
		name    string
		body    map[string]string
		status  int
		message string
	}{
		{"no identifier", map[string]string{"password": "p@ss1234"}, http.StatusBadRequest, "Username or email is required"},
		{"unknown user", map[string]string{"username": "bob", "password": "p@ss1234"}, http.StatusBadRequest, "User does not exist"},
		{"wrong password", map[string]string{"email": "ada@x.com", "password": "nope"}, http.StatusUnauthorized, "Invalid user credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", tt.body, ""))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec).Message)
		})
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(jsonRequest(t, http.MethodGet, "/api/v1/users/get-user", nil, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized request", decode(t, rec).Message)

	rec = s.do(jsonRequest(t, http.MethodGet, "/api/v1/users/get-user", nil, "garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid access token", decode(t, rec).Message)
}

func TestGetCurrentUser(t *testing.T) {
	s := newTestServer(t)
	s.acceptUploads()
	login := registerAndLogin(t, s)

	rec := s.do(jsonRequest(t, http.MethodGet, "/api/v1/users/get-user", nil, login.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.Contains(t, string(env.Data), `"username":"ada"`)
	assert.NotContains(t, string(env.Data), "password")
}

func TestRefreshToken_CookieOnly(t *testing.T) {
	s := newTestServer(t)
	s.acceptUploads()
	login := registerAndLogin(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: jwt.RefreshTokenCookie, Value: login.RefreshToken})
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.Equal(t, "Access token refreshed", env.Message)

	var tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	assert.NotEqual(t, login.RefreshToken, tokens.RefreshToken)
	require.NotNil(t, cookieByName(rec, jwt.RefreshTokenCookie))
	assert.Equal(t, tokens.RefreshToken, cookieByName(rec, jwt.RefreshTokenCookie).Value)

	// 已轮换的令牌再次使用
	rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token",
		map[string]string{"refreshToken": login.RefreshToken}, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token is expired or used", decode(t, rec).Message)

	rec = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized request", decode(t, rec).Message)
}

func TestLogout_RevokesSession(t *testing.T) {
	s := newTestServer(t)
	s.acceptUploads()
	login := registerAndLogin(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: jwt.AccessTokenCookie, Value: login.AccessToken})
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.Equal(t, "User logged out", env.Message)
	assert.JSONEq(t, `{}`, string(env.Data))

	cleared := cookieByName(rec, jwt.AccessTokenCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.MaxAge < 0)

	stored, err := s.users.GetByID(context.Background(), login.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	rec = s.do(jsonRequest(t, http.MethodGet, "/api/v1/users/get-user", nil, login.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid access token", decode(t, rec).Message)

	rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token",
		map[string]string{"refreshToken": login.RefreshToken}, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	s.acceptUploads()
	login := registerAndLogin(t, s)

	rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "wrong", "newPassword": "n3w"}, login.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid old password", decode(t, rec).Message)

	rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "p@ss1234", "newPassword": "n3w"}, login.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Password changed successfully", decode(t, rec).Message)

	rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login",
		map[string]string{"username": "ada", "password": "n3w"}, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateAccountDetails(t *testing.T) {
	s := newTestServer(t)
	s.acceptUploads()
	login := registerAndLogin(t, s)

	rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/update-user",
		map[string]string{"fullName": "Ada King"}, login.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", decode(t, rec).Message)

	rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/update-user",
		map[string]string{"fullName": "Ada King", "email": "ada@king.com"}, login.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.Equal(t, "Account details updated successfully", env.Message)
	assert.Contains(t, string(env.Data), `"email":"ada@king.com"`)
}

func TestUpdateAvatar(t *testing.T) {
	s := newTestServer(t)
	s.acceptUploads()
	login := registerAndLogin(t, s)

	before, err := s.users.GetByID(context.Background(), login.User.ID)
	require.NoError(t, err)

	rec := s.do(multipartRequest(t, "/api/v1/users/update-avatar", nil, nil, login.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Avatar file is missing", decode(t, rec).Message)

	rec = s.do(multipartRequest(t, "/api/v1/users/update-avatar", nil,
		map[string][]byte{"avatar": pngBytes}, login.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user struct {
		Avatar string `json:"avatar"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &user))
	assert.NotEqual(t, before.Avatar, user.Avatar)
	assert.NotContains(t, rec.Body.String(), before.Avatar)
	assertUploadDirEmpty(t, s.uploadDir)
}

func TestUpdateCoverImage(t *testing.T) {
	s := newTestServer(t)
	gomock.InOrder(
		s.host.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("http://media.test/avatar.png", nil),
		s.host.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", errors.New("quota exceeded")),
		s.host.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("http://media.test/cover.png", nil),
	)
	login := registerAndLogin(t, s)

	rec := s.do(multipartRequest(t, "/api/v1/users/update-cover-image", nil, nil, login.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cover image file is missing", decode(t, rec).Message)

	rec = s.do(multipartRequest(t, "/api/v1/users/update-cover-image", nil,
		map[string][]byte{"coverImage": pngBytes}, login.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Error while uploading cover image", decode(t, rec).Message)
	assertUploadDirEmpty(t, s.uploadDir)

	rec = s.do(multipartRequest(t, "/api/v1/users/update-cover-image", nil,
		map[string][]byte{"coverImage": pngBytes}, login.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.Equal(t, "Cover image updated successfully", env.Message)
	assert.Contains(t, string(env.Data), `"coverImage":"http://media.test/cover.png"`)
}

func TestChannelProfile(t *testing.T) {
	s := newTestServer(t, model.Subscription{SubscriberID: 2, ChannelID: 1})
	s.acceptUploads()
	login := registerAndLogin(t, s)

	rec := s.do(jsonRequest(t, http.MethodGet, "/api/v1/users/c/ada", nil, login.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile struct {
		Username                  string `json:"username"`
		SubscribersCount          int64  `json:"subscribersCount"`
		ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
		IsSubscribed              bool   `json:"isSubscribed"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &profile))
	assert.Equal(t, "ada", profile.Username)
	assert.Equal(t, int64(1), profile.SubscribersCount)
	assert.Equal(t, int64(0), profile.ChannelsSubscribedToCount)
	assert.False(t, profile.IsSubscribed)

	rec = s.do(jsonRequest(t, http.MethodGet, "/api/v1/users/c/nobody", nil, login.AccessToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Channel does not exist", decode(t, rec).Message)
}
