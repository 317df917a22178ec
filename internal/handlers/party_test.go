package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"raid-service/internal/coordinator"
	"raid-service/internal/middleware"
	"raid-service/internal/mocks"
	"raid-service/internal/models"
)

func setupPartyRouter(handler *PartyHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextTrainerID, "ash")
		c.Next()
	})
	r.POST("/party", handler.CreateParty)
	r.GET("/parties", handler.ListParties)
	r.GET("/party/:party_id", handler.GetParty)
	r.POST("/party/:party_id/join", handler.JoinParty)
	r.POST("/party/:party_id/added-host", handler.ConfirmAddedHost)
	r.POST("/party/:party_id/ready", handler.MarkReady)
	r.POST("/party/:party_id/leave", handler.LeaveParty)
	r.POST("/party/:party_id/close", handler.CloseParty)
	r.POST("/party/:party_id/kick", handler.KickMember)
	r.GET("/party/:party_id/messages", handler.GetMessages)
	r.POST("/party/:party_id/message", handler.PostMessage)
	return r
}

func TestCreatePartySuccess(t *testing.T) {
	roster := new(mocks.RosterServiceMock)
	handler := NewPartyHandler(roster, new(mocks.ChatServiceMock))
	router := setupPartyRouter(handler)

	roster.On("CreateParty", mock.Anything, "ash", "zapdos", 5, 1, "live").
		Return(models.Party{ID: "p1", BossID: "zapdos", HostTrainerID: "ash"}, nil).Once()

	body := bytes.NewBufferString(`{"boss_id":"zapdos","max_size":5,"additional_trainers":1,"mode":"live"}`)
	req := httptest.NewRequest(http.MethodPost, "/party", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	roster.AssertExpectations(t)
}

func TestCreatePartyInvalidBody(t *testing.T) {
	handler := NewPartyHandler(new(mocks.RosterServiceMock), new(mocks.ChatServiceMock))
	router := setupPartyRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/party", bytes.NewBufferString(`{"max_size":"five"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePartyBadCapacity(t *testing.T) {
	roster := new(mocks.RosterServiceMock)
	handler := NewPartyHandler(roster, new(mocks.ChatServiceMock))
	router := setupPartyRouter(handler)

	roster.On("CreateParty", mock.Anything, "ash", "zapdos", 25, 0, "").
		Return(models.Party{}, coordinator.ErrInvalidCapacity).Once()

	body := bytes.NewBufferString(`{"boss_id":"zapdos","max_size":25}`)
	req := httptest.NewRequest(http.MethodPost, "/party", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	roster.AssertExpectations(t)
}

func TestJoinPartyFullConflict(t *testing.T) {
	roster := new(mocks.RosterServiceMock)
	handler := NewPartyHandler(roster, new(mocks.ChatServiceMock))
	router := setupPartyRouter(handler)

	roster.On("JoinParty", mock.Anything, "p1", "ash").
		Return(models.PartyMember{}, coordinator.ErrPartyFull).Once()

	req := httptest.NewRequest(http.MethodPost, "/party/p1/join", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	roster.AssertExpectations(t)
}

func TestConfirmAddedHostGateExpired(t *testing.T) {
	roster := new(mocks.RosterServiceMock)
	handler := NewPartyHandler(roster, new(mocks.ChatServiceMock))
	router := setupPartyRouter(handler)

	roster.On("ConfirmAddedHost", mock.Anything, "p1", "ash").
		Return(coordinator.ErrGateExpired).Once()

	req := httptest.NewRequest(http.MethodPost, "/party/p1/added-host", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	roster.AssertExpectations(t)
}

func TestMarkReadySuccess(t *testing.T) {
	roster := new(mocks.RosterServiceMock)
	handler := NewPartyHandler(roster, new(mocks.ChatServiceMock))
	router := setupPartyRouter(handler)

	roster.On("MarkReady", mock.Anything, "p1", "ash").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/party/p1/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	roster.AssertExpectations(t)
}

func TestKickMemberForbiddenForGuest(t *testing.T) {
	roster := new(mocks.RosterServiceMock)
	handler := NewPartyHandler(roster, new(mocks.ChatServiceMock))
	router := setupPartyRouter(handler)

	roster.On("KickMember", mock.Anything, "p1", "ash", "gary").
		Return(coordinator.ErrNotHost).Once()

	body := bytes.NewBufferString(`{"trainer_id":"gary"}`)
	req := httptest.NewRequest(http.MethodPost, "/party/p1/kick", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	roster.AssertExpectations(t)
}

func TestGetPartySnapshot(t *testing.T) {
	roster := new(mocks.RosterServiceMock)
	handler := NewPartyHandler(roster, new(mocks.ChatServiceMock))
	router := setupPartyRouter(handler)

	roster.On("Snapshot", mock.Anything, "p1").Return(coordinator.PartySnapshot{
		Party:      models.Party{ID: "p1", BossID: "zapdos"},
		StatusText: coordinator.StatusLobbyFilling,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/party/p1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Lobby filling.")
	roster.AssertExpectations(t)
}

func TestPostMessageTooLong(t *testing.T) {
	chat := new(mocks.ChatServiceMock)
	handler := NewPartyHandler(new(mocks.RosterServiceMock), chat)
	router := setupPartyRouter(handler)

	chat.On("PostMessage", mock.Anything, "p1", "ash", "way too long").
		Return(models.PartyMessage{}, coordinator.ErrMessageTooLong).Once()

	body := bytes.NewBufferString(`{"text":"way too long"}`)
	req := httptest.NewRequest(http.MethodPost, "/party/p1/message", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	chat.AssertExpectations(t)
}

func TestGetMessagesNotMember(t *testing.T) {
	chat := new(mocks.ChatServiceMock)
	handler := NewPartyHandler(new(mocks.RosterServiceMock), chat)
	router := setupPartyRouter(handler)

	chat.On("ListMessages", mock.Anything, "p1", "ash").
		Return(nil, coordinator.ErrNotMember).Once()

	req := httptest.NewRequest(http.MethodGet, "/party/p1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	chat.AssertExpectations(t)
}

func TestLeavePartyTwiceConflict(t *testing.T) {
	roster := new(mocks.RosterServiceMock)
	handler := NewPartyHandler(roster, new(mocks.ChatServiceMock))
	router := setupPartyRouter(handler)

	roster.On("LeaveParty", mock.Anything, "p1", "ash").
		Return(coordinator.ErrInvalidState).Once()

	req := httptest.NewRequest(http.MethodPost, "/party/p1/leave", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	roster.AssertExpectations(t)
}
