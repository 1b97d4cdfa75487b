// internal/handlers/room_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbellerose/skirmish/internal/auth"
	"github.com/nbellerose/skirmish/internal/dice"
	"github.com/nbellerose/skirmish/internal/models"
	"github.com/nbellerose/skirmish/internal/room"
)

func TestMain(m *testing.M) {
	auth.Init()
	os.Exit(m.Run())
}

func newTestServer() *RoomServer {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)
	return NewRoomServerWithRoller(logger, dice.NewSeededRoller(1))
}

func TestCreateRoomHandlerReturnsCode(t *testing.T) {
	rs := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/room/create", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	CreateRoomHandler(rs)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	code := body["code"]
	assert.Len(t, code, 4, "default room codes are four digits")
	assert.True(t, rs.Registry.Exists(code))
}

func TestCreateRoomHandlerSetsSessionCookie(t *testing.T) {
	rs := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/room/create", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	CreateRoomHandler(rs)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var token string
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			token = c.Value
		}
	}
	require.NotEmpty(t, token, "a guest session cookie is minted")
	_, err := auth.VerifyGuestToken(token)
	assert.NoError(t, err)
}

func TestCreateRoomHandlerRejectsGet(t *testing.T) {
	rs := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/room/create", nil)
	rr := httptest.NewRecorder()
	CreateRoomHandler(rs)(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCreateRoomHandlerHonorsCodeLength(t *testing.T) {
	t.Setenv("ROOM_CODE_LENGTH", "6")
	rs := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/room/create", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	CreateRoomHandler(rs)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Len(t, body["code"], 6)
}

func TestCreateRoomHandlerWithPassphrase(t *testing.T) {
	rs := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/room/create",
		strings.NewReader(`{"passphrase":"sesame"}`))
	rr := httptest.NewRecorder()
	CreateRoomHandler(rs)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	code := body["code"]

	_, err := rs.Registry.Join(code, models.NewPlayer("Alice"), "wrong")
	assert.ErrorIs(t, err, room.ErrBadPassphrase)
	_, err = rs.Registry.Join(code, models.NewPlayer("Alice"), "sesame")
	assert.NoError(t, err)
}

func TestListRoomsHandler(t *testing.T) {
	rs := newTestServer()
	require.NoError(t, rs.Registry.CreateRoom("4242", ""))
	_, err := rs.Registry.Join("4242", models.NewPlayer("Alice"), "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/room/list", nil)
	rr := httptest.NewRecorder()
	ListRoomsHandler(rs)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var infos []room.RoomInfo
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "4242", infos[0].Code)
	assert.Equal(t, 1, infos[0].PlayerCount)
	assert.False(t, infos[0].Protected)
	assert.False(t, infos[0].Locked)
}

func TestListRoomsHandlerRejectsPost(t *testing.T) {
	rs := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/room/list", nil)
	rr := httptest.NewRecorder()
	ListRoomsHandler(rs)(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestEnsureGuestReusesValidCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	first, err := EnsureGuest(rr, req)
	require.NoError(t, err)

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req2.AddCookie(c)
	}
	second, err := EnsureGuest(httptest.NewRecorder(), req2)
	require.NoError(t, err)
	assert.Equal(t, first, second, "a valid cookie keeps its guest identity")
}
