package main

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"wuyrush.io/valentine/catalog"
	pe "wuyrush.io/valentine/errors"
	md "wuyrush.io/valentine/models"
	st "wuyrush.io/valentine/stores"
)

const (
	testID     = "sweet-rose-0001"
	testPIN    = "4821"
	testIP     = "192.0.2.1"
	testMaxReq = 1 << 20
)

type mockExperienceService struct {
	mock.Mock
}

func errArg(args mock.Arguments, i int) *pe.Err {
	if e, ok := args.Get(i).(*pe.Err); ok {
		return e
	}
	return nil
}

func (m *mockExperienceService) Create(ctx context.Context, draft *md.Experience, creatorIP, customPIN string) (string, string, *pe.Err) {
	args := m.Called(ctx, draft, creatorIP, customPIN)
	return args.String(0), args.String(1), errArg(args, 2)
}

func (m *mockExperienceService) Get(ctx context.Context, uniqueID string) (*md.Experience, *pe.Err) {
	args := m.Called(ctx, uniqueID)
	e, _ := args.Get(0).(*md.Experience)
	return e, errArg(args, 1)
}

func (m *mockExperienceService) Authorize(ctx context.Context, uniqueID, pin string) (md.AccessResult, *md.Experience, *pe.Err) {
	args := m.Called(ctx, uniqueID, pin)
	e, _ := args.Get(1).(*md.Experience)
	return args.Get(0).(md.AccessResult), e, errArg(args, 2)
}

func (m *mockExperienceService) RecordView(ctx context.Context, uniqueID, viewerIP, userAgent string) *pe.Err {
	return errArg(m.Called(ctx, uniqueID, viewerIP, userAgent), 0)
}

func (m *mockExperienceService) CreatorQuota(ctx context.Context, creatorIP string) (int, *pe.Err) {
	args := m.Called(ctx, creatorIP)
	return args.Int(0), errArg(args, 1)
}

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) *pe.Err {
	return errArg(m.Called(ctx), 0)
}

func newTestServer(t *testing.T, es *mockExperienceService, db *mockPinger) (*valentineServer, string) {
	dir := t.TempDir()
	fs, err := st.NewLocalFileStore(dir, testMaxReq)
	require.NoError(t, err)
	s := &valentineServer{
		ES:             es,
		DB:             db,
		FS:             fs,
		AL:             st.NewLocalAttemptLimiter(3, time.Minute, 64),
		Catalog:        catalog.Default(),
		Sessions:       newSessionStore([]byte("test-secret"), false),
		QuotaPerIP:     2,
		MaxReqBodySize: testMaxReq,
	}
	s.SetupMux()
	return s, dir
}

func serveReq(s *valentineServer, r *http.Request) *httptest.ResponseRecorder {
	wrec := httptest.NewRecorder()
	s.ServeHTTP(wrec, r)
	return wrec
}

func testExperience() *md.Experience {
	now := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	return &md.Experience{
		UniqueID:      testID,
		CreatorName:   "Bob",
		RecipientName: "Alice",
		Message:       "Happy Valentine's Day",
		QuestionText:  "Be mine?",
		Theme:         md.Theme{Palette: "romantic_pink"},
		AccessPIN:     testPIN,
		CreatedAt:     now,
		ExpiresAt:     now.AddDate(1, 0, 0),
		ViewCount:     2,
		Active:        true,
	}
}

func genCreateReqBody(t *testing.T, fields map[string]string, video string, data []byte) (io.Reader, string) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if video != "" {
		fw, err := mw.CreateFormFile("video_file", video)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func goodCreateForm() map[string]string {
	return map[string]string{
		"creator_name":     "Bob",
		"recipient_name":   "Alice",
		"personal_message": "Happy Valentine's Day",
		"color_palette":    "romantic_pink",
		"custom_pin":       "7391",
	}
}

func TestHandleGetCreatePage(t *testing.T) {
	s, _ := newTestServer(t, &mockExperienceService{}, &mockPinger{})
	wrec := serveReq(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, wrec.Code, "unexpected response status code")
	assert.Contains(t, wrec.Body.String(), `id="create-form"`)
}

func TestHandleCreateExperience(t *testing.T) {
	draftFromForm := mock.MatchedBy(func(d *md.Experience) bool {
		return d.CreatorName == "Bob" && d.Theme.Palette == "romantic_pink" &&
			d.Metadata["created_from"] == "web_form"
	})
	tcs := []struct {
		name         string
		setup        func(es *mockExperienceService)
		video        string
		videoData    []byte
		expectedCode int
		expectedErr  string
		expectFiles  int
	}{
		{
			name: "HappyCase",
			setup: func(es *mockExperienceService) {
				es.On("CreatorQuota", mock.Anything, testIP).Return(0, nil)
				es.On("Create", mock.Anything, draftFromForm, testIP, "7391").Return(testID, "7391", nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "HappyCaseWithVideo",
			setup: func(es *mockExperienceService) {
				es.On("CreatorQuota", mock.Anything, testIP).Return(0, nil)
				withVideo := mock.MatchedBy(func(d *md.Experience) bool {
					return strings.HasSuffix(d.VideoFilename, "_our_song.mp4")
				})
				es.On("Create", mock.Anything, withVideo, testIP, "7391").Return(testID, "7391", nil)
			},
			video:        "our song.mp4",
			videoData:    []byte("fake video"),
			expectedCode: http.StatusOK,
			expectFiles:  1,
		},
		{
			name: "DisallowedVideoIgnored",
			setup: func(es *mockExperienceService) {
				es.On("CreatorQuota", mock.Anything, testIP).Return(0, nil)
				noVideo := mock.MatchedBy(func(d *md.Experience) bool { return d.VideoFilename == "" })
				es.On("Create", mock.Anything, noVideo, testIP, "7391").Return(testID, "7391", nil)
			},
			video:        "payload.exe",
			videoData:    []byte("MZ"),
			expectedCode: http.StatusOK,
		},
		{
			name: "QuotaExceeded",
			setup: func(es *mockExperienceService) {
				es.On("CreatorQuota", mock.Anything, testIP).Return(2, nil)
			},
			video:        "our_song.mp4",
			videoData:    []byte("fake video"),
			expectedCode: http.StatusTooManyRequests,
			expectedErr:  "Rate limit exceeded. Please try again tomorrow.",
		},
		{
			name: "ValidationFailure",
			setup: func(es *mockExperienceService) {
				es.On("CreatorQuota", mock.Anything, testIP).Return(0, nil)
				es.On("Create", mock.Anything, mock.Anything, testIP, "7391").
					Return("", "", pe.NewValidation("Missing required field: recipient_name"))
			},
			expectedCode: http.StatusBadRequest,
			expectedErr:  "Missing required field: recipient_name",
		},
		{
			name: "ServiceFailureRemovesUpload",
			setup: func(es *mockExperienceService) {
				es.On("CreatorQuota", mock.Anything, testIP).Return(0, nil)
				es.On("Create", mock.Anything, mock.Anything, testIP, "7391").
					Return("", "", pe.NewServiceFailure("db down"))
			},
			video:        "our_song.mp4",
			videoData:    []byte("fake video"),
			expectedCode: http.StatusInternalServerError,
			expectedErr:  msgCreateFailed,
		},
		{
			name:         "OversizedRequest",
			setup:        func(es *mockExperienceService) {},
			video:        "our_song.mp4",
			videoData:    bytes.Repeat([]byte("v"), testMaxReq+1<<10),
			expectedCode: http.StatusRequestEntityTooLarge,
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			// given
			es := &mockExperienceService{}
			c.setup(es)
			s, dir := newTestServer(t, es, &mockPinger{})
			body, contentType := genCreateReqBody(t, goodCreateForm(), c.video, c.videoData)
			r := httptest.NewRequest(http.MethodPost, "/create", body)
			r.Header.Set("Content-Type", contentType)
			// when
			wrec := serveReq(s, r)
			// then
			assert.Equal(t, c.expectedCode, wrec.Code, "unexpected response status code")
			resp := createResp{}
			require.NoError(t, json.NewDecoder(wrec.Body).Decode(&resp))
			if c.expectedCode == http.StatusOK {
				assert.True(t, resp.Success)
				assert.Equal(t, testID, resp.UniqueID)
				assert.Equal(t, "7391", resp.AccessPIN)
				assert.Equal(t, "http://example.com/v/"+testID, resp.URL)
				assert.Equal(t, msgCreated, resp.Message)
			} else {
				assert.False(t, resp.Success)
				assert.NotEmpty(t, resp.Err)
				if c.expectedErr != "" {
					assert.Equal(t, c.expectedErr, resp.Err)
				}
			}
			files, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, files, c.expectFiles, "unexpected uploads left in file store")
			es.AssertExpectations(t)
		})
	}
}

func TestHandleCreateExperience_URLEncoded(t *testing.T) {
	es := &mockExperienceService{}
	es.On("CreatorQuota", mock.Anything, testIP).Return(0, nil)
	fromForm := mock.MatchedBy(func(d *md.Experience) bool {
		return d.RecipientName == "Alice" && d.VideoFilename == "" &&
			d.Theme.Particles == "hearts" && d.Theme.SVGAnimation == "waves"
	})
	es.On("Create", mock.Anything, fromForm, testIP, "").Return(testID, testPIN, nil)
	s, _ := newTestServer(t, es, &mockPinger{})
	form := url.Values{}
	for k, v := range goodCreateForm() {
		form.Set(k, v)
	}
	form.Del("custom_pin")
	form.Set("particle_system", "hearts")
	form.Set("svg_animation", "waves")
	r := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	wrec := serveReq(s, r)

	assert.Equal(t, http.StatusOK, wrec.Code, "unexpected response status code")
	resp := createResp{}
	require.NoError(t, json.NewDecoder(wrec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, testPIN, resp.AccessPIN)
	es.AssertExpectations(t)
}

func TestHandleGetExperience(t *testing.T) {
	tcs := []struct {
		name         string
		path         string
		setup        func(es *mockExperienceService)
		expectedCode int
		expectedBody string
	}{
		{
			name:         "MalformedID",
			path:         "/v/not-an-id",
			setup:        func(es *mockExperienceService) {},
			expectedCode: http.StatusNotFound,
		},
		{
			name: "UnknownID",
			path: "/v/" + testID,
			setup: func(es *mockExperienceService) {
				es.On("Authorize", mock.Anything, testID, "").Return(md.AccessNotFound, nil, nil)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: template.HTMLEscapeString(msgExperienceGone),
		},
		{
			name: "PinRequired",
			path: "/v/" + testID,
			setup: func(es *mockExperienceService) {
				es.On("Authorize", mock.Anything, testID, "").Return(md.AccessPinRequired, nil, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `action="/v/` + testID + `"`,
		},
		{
			name: "InvalidPIN",
			path: "/v/" + testID + "?pin=0000",
			setup: func(es *mockExperienceService) {
				es.On("Authorize", mock.Anything, testID, "0000").Return(md.AccessInvalidPIN, nil, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: msgInvalidPIN,
		},
		{
			name: "Granted",
			path: "/v/" + testID + "?pin=" + testPIN,
			setup: func(es *mockExperienceService) {
				es.On("Authorize", mock.Anything, testID, testPIN).Return(md.AccessGranted, testExperience(), nil)
				es.On("RecordView", mock.Anything, testID, testIP, mock.Anything).Return(nil).Once()
			},
			expectedCode: http.StatusOK,
			expectedBody: "Dear Alice,",
		},
		{
			name: "PaddedQueryPIN",
			path: "/v/" + testID + "?pin=%20" + testPIN + "%20",
			setup: func(es *mockExperienceService) {
				es.On("Authorize", mock.Anything, testID, testPIN).Return(md.AccessGranted, testExperience(), nil)
				es.On("RecordView", mock.Anything, testID, testIP, mock.Anything).Return(nil).Once()
			},
			expectedCode: http.StatusOK,
			expectedBody: "Dear Alice,",
		},
		{
			name: "AmbientLayers",
			path: "/v/" + testID + "?pin=" + testPIN,
			setup: func(es *mockExperienceService) {
				e := testExperience()
				e.Theme.Particles = "petals"
				e.Theme.SVGAnimation = "none"
				es.On("Authorize", mock.Anything, testID, testPIN).Return(md.AccessGranted, e, nil)
				es.On("RecordView", mock.Anything, testID, testIP, mock.Anything).Return(nil).Once()
			},
			expectedCode: http.StatusOK,
			expectedBody: `data-particles="petals" data-svg-animation=""`,
		},
		{
			name: "GrantedDespiteViewRecordFailure",
			path: "/v/" + testID + "?pin=" + testPIN,
			setup: func(es *mockExperienceService) {
				es.On("Authorize", mock.Anything, testID, testPIN).Return(md.AccessGranted, testExperience(), nil)
				es.On("RecordView", mock.Anything, testID, testIP, mock.Anything).
					Return(pe.NewServiceFailure("db down")).Once()
			},
			expectedCode: http.StatusOK,
			expectedBody: "Be mine?",
		},
		{
			name: "StorageFailure",
			path: "/v/" + testID,
			setup: func(es *mockExperienceService) {
				es.On("Authorize", mock.Anything, testID, "").
					Return(md.AccessNotFound, nil, pe.NewServiceFailure("db down"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			es := &mockExperienceService{}
			c.setup(es)
			s, _ := newTestServer(t, es, &mockPinger{})

			wrec := serveReq(s, httptest.NewRequest(http.MethodGet, c.path, nil))

			assert.Equal(t, c.expectedCode, wrec.Code, "unexpected response status code")
			if c.expectedBody != "" {
				assert.Contains(t, wrec.Body.String(), c.expectedBody)
			}
			es.AssertExpectations(t)
		})
	}
}

func TestHandleGetExperience_TooManyWrongPINs(t *testing.T) {
	es := &mockExperienceService{}
	es.On("Authorize", mock.Anything, testID, "0000").Return(md.AccessInvalidPIN, nil, nil)
	s, _ := newTestServer(t, es, &mockPinger{})

	for i := 0; i < 3; i++ {
		wrec := serveReq(s, httptest.NewRequest(http.MethodGet, "/v/"+testID+"?pin=0000", nil))
		assert.Equal(t, http.StatusOK, wrec.Code)
	}
	wrec := serveReq(s, httptest.NewRequest(http.MethodGet, "/v/"+testID+"?pin=0000", nil))
	assert.Equal(t, http.StatusTooManyRequests, wrec.Code)
	assert.Contains(t, wrec.Body.String(), msgTooManyAttempts)
	es.AssertNumberOfCalls(t, "Authorize", 3)

	// other viewers are not affected
	r := httptest.NewRequest(http.MethodGet, "/v/"+testID+"?pin=0000", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.9")
	wrec = serveReq(s, r)
	assert.Equal(t, http.StatusOK, wrec.Code)
}

func TestHandleUnlockExperience(t *testing.T) {
	es := &mockExperienceService{}
	es.On("Authorize", mock.Anything, testID, testPIN).Return(md.AccessGranted, testExperience(), nil)
	es.On("RecordView", mock.Anything, testID, testIP, mock.Anything).Return(nil).Once()
	s, _ := newTestServer(t, es, &mockPinger{})

	// unlock with the PIN entry form
	form := url.Values{"pin": {testPIN}}
	r := httptest.NewRequest(http.MethodPost, "/v/"+testID, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	wrec := serveReq(s, r)
	require.Equal(t, http.StatusSeeOther, wrec.Code, "unexpected response status code")
	assert.Equal(t, "/v/"+testID, wrec.Header().Get("Location"))
	cookies := wrec.Result().Cookies()
	require.NotEmpty(t, cookies, "session cookie should have been set")
	assert.Equal(t, sessionName, cookies[0].Name)

	// follow the redirect with the session only
	r = httptest.NewRequest(http.MethodGet, "/v/"+testID, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	wrec = serveReq(s, r)
	assert.Equal(t, http.StatusOK, wrec.Code, "unexpected response status code")
	assert.Contains(t, wrec.Body.String(), "Dear Alice,")
	es.AssertExpectations(t)
}

func TestHandleUnlockExperience_WrongPIN(t *testing.T) {
	es := &mockExperienceService{}
	es.On("Authorize", mock.Anything, testID, "0000").Return(md.AccessInvalidPIN, nil, nil)
	s, _ := newTestServer(t, es, &mockPinger{})
	post := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/v/"+testID, strings.NewReader("pin=0000"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return serveReq(s, r)
	}

	for i := 0; i < 3; i++ {
		wrec := post()
		assert.Equal(t, http.StatusOK, wrec.Code)
		assert.Contains(t, wrec.Body.String(), msgInvalidPIN)
		assert.Empty(t, wrec.Result().Cookies())
	}
	wrec := post()
	assert.Equal(t, http.StatusTooManyRequests, wrec.Code)
	es.AssertNumberOfCalls(t, "Authorize", 3)
}

func TestHandleGetUpload(t *testing.T) {
	s, _ := newTestServer(t, &mockExperienceService{}, &mockPinger{})
	ref := s.FS.Ref("our song.mp4")
	require.Nil(t, s.FS.Save(ref, strings.NewReader("fake video")))

	wrec := serveReq(s, httptest.NewRequest(http.MethodGet, "/uploads/"+ref, nil))
	assert.Equal(t, http.StatusOK, wrec.Code)
	assert.Equal(t, "video/mp4", wrec.Header().Get("Content-Type"))
	assert.Equal(t, "fake video", wrec.Body.String())

	wrec = serveReq(s, httptest.NewRequest(http.MethodGet, "/uploads/missing.mp4", nil))
	assert.Equal(t, http.StatusNotFound, wrec.Code)
}

func TestHandleGetStats(t *testing.T) {
	tcs := []struct {
		name         string
		setup        func(es *mockExperienceService)
		expectedCode int
		expectedBody string
	}{
		{
			name: "HappyCase",
			setup: func(es *mockExperienceService) {
				es.On("Get", mock.Anything, testID).Return(testExperience(), nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"view_count":2,"created_at":"2026-02-14T09:00:00Z","recipient_name":"Alice"}`,
		},
		{
			name: "NotFound",
			setup: func(es *mockExperienceService) {
				es.On("Get", mock.Anything, testID).Return(nil, pe.NewNotFound("experience not found"))
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"error":"Experience not found"}`,
		},
		{
			name: "StorageFailure",
			setup: func(es *mockExperienceService) {
				es.On("Get", mock.Anything, testID).Return(nil, pe.NewServiceFailure("db down"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"error":"Failed to get stats"}`,
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			es := &mockExperienceService{}
			c.setup(es)
			s, _ := newTestServer(t, es, &mockPinger{})

			wrec := serveReq(s, httptest.NewRequest(http.MethodGet, "/api/stats/"+testID, nil))

			assert.Equal(t, c.expectedCode, wrec.Code, "unexpected response status code")
			assert.JSONEq(t, c.expectedBody, wrec.Body.String())
		})
	}
}

func TestHandleGetCatalog(t *testing.T) {
	s, _ := newTestServer(t, &mockExperienceService{}, &mockPinger{})
	wrec := serveReq(s, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))

	assert.Equal(t, http.StatusOK, wrec.Code)
	assert.Equal(t, "application/json", wrec.Header().Get("Content-Type"))
	tbl := catalog.Table{}
	require.NoError(t, json.NewDecoder(wrec.Body).Decode(&tbl))
	assert.Contains(t, tbl.Palettes, "romantic_pink")
}

func TestHandleHealth(t *testing.T) {
	tcs := []struct {
		name           string
		pingErr        *pe.Err
		expectedCode   int
		expectedStatus string
	}{
		{
			name:           "Healthy",
			expectedCode:   http.StatusOK,
			expectedStatus: "healthy",
		},
		{
			name:           "DatabaseDown",
			pingErr:        pe.NewDependencyFailure("connection refused"),
			expectedCode:   http.StatusInternalServerError,
			expectedStatus: "unhealthy",
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			db := &mockPinger{}
			db.On("Ping", mock.Anything).Return(c.pingErr)
			s, _ := newTestServer(t, &mockExperienceService{}, db)

			wrec := serveReq(s, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, c.expectedCode, wrec.Code, "unexpected response status code")
			resp := map[string]string{}
			require.NoError(t, json.NewDecoder(wrec.Body).Decode(&resp))
			assert.Equal(t, c.expectedStatus, resp["status"])
		})
	}
}

func TestHandleNotFound(t *testing.T) {
	s, _ := newTestServer(t, &mockExperienceService{}, &mockPinger{})
	wrec := serveReq(s, httptest.NewRequest(http.MethodGet, "/no/such/page", nil))

	assert.Equal(t, http.StatusNotFound, wrec.Code)
	assert.Contains(t, wrec.Body.String(), template.HTMLEscapeString(msgPageNotFound))
}

func TestClientIP(t *testing.T) {
	tcs := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{
			name:       "RemoteAddr",
			remoteAddr: "192.0.2.1:1234",
			expected:   "192.0.2.1",
		},
		{
			name:       "ForwardedForFirstHop",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			remoteAddr: "10.0.0.1:1234",
			expected:   "203.0.113.7",
		},
		{
			name:       "RealIP",
			headers:    map[string]string{"X-Real-IP": " 203.0.113.8 "},
			remoteAddr: "10.0.0.1:1234",
			expected:   "203.0.113.8",
		},
		{
			name:       "ForwardedForBeatsRealIP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "203.0.113.8"},
			remoteAddr: "10.0.0.1:1234",
			expected:   "203.0.113.7",
		},
		{
			name:       "RemoteAddrWithoutPort",
			remoteAddr: "192.0.2.1",
			expected:   "192.0.2.1",
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = c.remoteAddr
			for k, v := range c.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, c.expected, clientIP(r))
		})
	}
}

func TestExperienceURL(t *testing.T) {
	s := &valentineServer{}
	r := httptest.NewRequest(http.MethodPost, "/create", nil)
	assert.Equal(t, "http://example.com/v/"+testID, s.experienceURL(r, testID))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://example.com/v/"+testID, s.experienceURL(r, testID))

	s.BaseURL = "https://valentine.example.org/"
	assert.Equal(t, "https://valentine.example.org/v/"+testID, s.experienceURL(r, testID))
}
