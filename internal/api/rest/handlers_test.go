package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/api/rest"
	"github.com/arenabid/live-auction-backend/internal/domain/errors"
	"github.com/arenabid/live-auction-backend/internal/domain/lot"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/auth"
	"github.com/arenabid/live-auction-backend/internal/service/engine"
	"github.com/arenabid/live-auction-backend/internal/testutil/fixtures"
	"github.com/arenabid/live-auction-backend/internal/testutil/mocks"
)

type mockController struct {
	mock.Mock
}

func (m *mockController) StartAuction(ctx context.Context, auctionID uuid.UUID) error {
	return m.Called(ctx, auctionID).Error(0)
}

func (m *mockController) PauseAuction(ctx context.Context, auctionID uuid.UUID) error {
	return m.Called(ctx, auctionID).Error(0)
}

func (m *mockController) ResumeAuction(ctx context.Context, auctionID uuid.UUID) error {
	return m.Called(ctx, auctionID).Error(0)
}

func (m *mockController) EndAuction(ctx context.Context, auctionID uuid.UUID) error {
	return m.Called(ctx, auctionID).Error(0)
}

func (m *mockController) PutOnBlock(ctx context.Context, auctionID, lotID uuid.UUID) error {
	return m.Called(ctx, auctionID, lotID).Error(0)
}

func (m *mockController) EndBidding(ctx context.Context, auctionID, lotID uuid.UUID) error {
	return m.Called(ctx, auctionID, lotID).Error(0)
}

func (m *mockController) GetSnapshot(ctx context.Context, auctionID uuid.UUID) (*engine.Snapshot, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.Snapshot), args.Error(1)
}

type restHarness struct {
	controller  *mockController
	auctionRepo *mocks.AuctionRepository
	lotRepo     *mocks.LotRepository
	teamRepo    *mocks.TeamRepository
	bidRepo     *mocks.BidRepository
	tokens      *auth.TokenService
	mux         *http.ServeMux
}

func newRestHarness(t *testing.T) *restHarness {
	t.Helper()
	h := &restHarness{
		controller:  &mockController{},
		auctionRepo: &mocks.AuctionRepository{},
		lotRepo:     &mocks.LotRepository{},
		teamRepo:    &mocks.TeamRepository{},
		bidRepo:     &mocks.BidRepository{},
		tokens: auth.NewTokenService(auth.Config{
			Secret: []byte("test-secret-at-least-32-bytes-long"),
			Issuer: "arenabid-test",
		}),
		mux: http.NewServeMux(),
	}
	handler := rest.NewHandler(h.controller, h.auctionRepo, h.lotRepo, h.teamRepo, h.bidRepo, h.tokens, zap.NewNop())
	handler.RegisterRoutes(h.mux, h.tokens)
	return h
}

func (h *restHarness) adminToken(t *testing.T, auctionID uuid.UUID) string {
	t.Helper()
	token, err := h.tokens.GenerateToken(auctionID, auth.RoleAdmin, nil, "operator")
	require.NoError(t, err)
	return token
}

func (h *restHarness) viewerToken(t *testing.T, auctionID uuid.UUID) string {
	t.Helper()
	token, err := h.tokens.GenerateToken(auctionID, auth.RoleViewer, nil, "watcher")
	require.NoError(t, err)
	return token
}

func (h *restHarness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	h := newRestHarness(t)
	auctionID := uuid.New()

	rec := h.do(t, http.MethodGet, "/api/v1/auctions/"+auctionID.String()+"/lots", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/auctions/"+auctionID.String()+"/start", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoleRequired(t *testing.T) {
	h := newRestHarness(t)
	auctionID := uuid.New()

	rec := h.do(t, http.MethodPost, "/api/v1/auctions/"+auctionID.String()+"/start", h.viewerToken(t, auctionID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminTokenScopedToAuction(t *testing.T) {
	h := newRestHarness(t)
	tokenAuction, targetAuction := uuid.New(), uuid.New()

	rec := h.do(t, http.MethodPost, "/api/v1/auctions/"+targetAuction.String()+"/start", h.adminToken(t, tokenAuction), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	h.controller.AssertNotCalled(t, "StartAuction", mock.Anything, mock.Anything)
}

func TestLifecycleEndpoints(t *testing.T) {
	h := newRestHarness(t)
	auctionID, lotID := uuid.New(), uuid.New()
	token := h.adminToken(t, auctionID)

	h.controller.On("StartAuction", mock.Anything, auctionID).Return(nil).Once()
	h.controller.On("PutOnBlock", mock.Anything, auctionID, lotID).Return(nil).Once()
	h.controller.On("EndBidding", mock.Anything, auctionID, lotID).Return(nil).Once()
	h.controller.On("EndAuction", mock.Anything, auctionID).Return(nil).Once()

	base := "/api/v1/auctions/" + auctionID.String()
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, base+"/start", token, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, base+"/lots/"+lotID.String()+"/on-block", token, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, base+"/lots/"+lotID.String()+"/end-bidding", token, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, base+"/end", token, nil).Code)
	h.controller.AssertExpectations(t)
}

func TestLifecycleErrorMapping(t *testing.T) {
	h := newRestHarness(t)
	auctionID := uuid.New()
	token := h.adminToken(t, auctionID)

	h.controller.On("StartAuction", mock.Anything, auctionID).Return(errors.ErrAuctionAlreadyEnded).Once()

	rec := h.do(t, http.MethodPost, "/api/v1/auctions/"+auctionID.String()+"/start", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "AUCTION_ENDED")
}

func TestListLots(t *testing.T) {
	h := newRestHarness(t)
	a := fixtures.NewAuctionBuilder().Build(t)
	lots := []*lot.Lot{
		fixtures.NewLotBuilder(a).WithSequence(1).Build(t),
		fixtures.NewLotBuilder(a).WithSequence(2).Build(t),
	}
	h.lotRepo.On("ListByAuction", mock.Anything, a.ID).Return(lots, nil).Once()

	rec := h.do(t, http.MethodGet, "/api/v1/auctions/"+a.ID.String()+"/lots", h.viewerToken(t, a.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Lots []json.RawMessage `json:"lots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Lots, 2)
}

func TestGetSnapshot(t *testing.T) {
	h := newRestHarness(t)
	auctionID := uuid.New()
	h.controller.On("GetSnapshot", mock.Anything, auctionID).Return(&engine.Snapshot{
		AuctionID: auctionID,
		Status:    "live",
	}, nil).Once()

	rec := h.do(t, http.MethodGet, "/api/v1/auctions/"+auctionID.String()+"/snapshot", h.viewerToken(t, auctionID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"live"`)
}

func TestIssueToken(t *testing.T) {
	h := newRestHarness(t)
	a := fixtures.NewAuctionBuilder().Build(t)
	tm := fixtures.NewTeamBuilder(a).Build(t)
	token := h.adminToken(t, a.ID)

	t.Run("bidder token requires an existing team", func(t *testing.T) {
		h.teamRepo.On("GetByID", mock.Anything, tm.ID).Return(tm, nil).Once()

		rec := h.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/tokens", token, map[string]interface{}{
			"role":    "bidder",
			"team_id": tm.ID,
			"name":    tm.Name,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		claims, err := h.tokens.ValidateToken(body["token"])
		require.NoError(t, err)
		assert.Equal(t, auth.RoleBidder, claims.Role)
		require.NotNil(t, claims.TeamID)
		assert.Equal(t, tm.ID, *claims.TeamID)
	})

	t.Run("bidder token without team is rejected", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/tokens", token, map[string]interface{}{
			"role": "bidder",
			"name": "no team",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin role cannot be minted", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/tokens", token, map[string]interface{}{
			"role": "admin",
			"name": "sneaky",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
