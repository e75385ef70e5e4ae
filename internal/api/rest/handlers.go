package rest

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/domain/errors"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/auth"
	"github.com/arenabid/live-auction-backend/internal/service/engine"
)

// AuctionController is the slice of the engine the admin surface drives.
type AuctionController interface {
	StartAuction(ctx context.Context, auctionID uuid.UUID) error
	PauseAuction(ctx context.Context, auctionID uuid.UUID) error
	ResumeAuction(ctx context.Context, auctionID uuid.UUID) error
	EndAuction(ctx context.Context, auctionID uuid.UUID) error
	PutOnBlock(ctx context.Context, auctionID, lotID uuid.UUID) error
	EndBidding(ctx context.Context, auctionID, lotID uuid.UUID) error
	GetSnapshot(ctx context.Context, auctionID uuid.UUID) (*engine.Snapshot, error)
}

// TokenIssuer mints room tokens for participants.
type TokenIssuer interface {
	GenerateToken(auctionID uuid.UUID, role auth.Role, teamID *uuid.UUID, name string) (string, error)
}

// Handler serves the administrative control surface and the browse reads.
type Handler struct {
	controller  AuctionController
	auctionRepo engine.AuctionRepository
	lotRepo     engine.LotRepository
	teamRepo    engine.TeamRepository
	bidRepo     engine.BidRepository
	tokens      TokenIssuer
	logger      *zap.Logger
}

// NewHandler creates the REST handler.
func NewHandler(
	controller AuctionController,
	auctionRepo engine.AuctionRepository,
	lotRepo engine.LotRepository,
	teamRepo engine.TeamRepository,
	bidRepo engine.BidRepository,
	tokens TokenIssuer,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		controller:  controller,
		auctionRepo: auctionRepo,
		lotRepo:     lotRepo,
		teamRepo:    teamRepo,
		bidRepo:     bidRepo,
		tokens:      tokens,
		logger:      logger,
	}
}

// RegisterRoutes wires all routes onto the mux. Browse reads need any valid
// token; lifecycle operations need the admin role.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, tokens TokenValidator) {
	authed := AuthMiddleware(tokens)
	admin := func(fn http.HandlerFunc) http.Handler {
		return Chain(fn, authed, RequireRole(auth.RoleAdmin))
	}
	read := func(fn http.HandlerFunc) http.Handler {
		return Chain(fn, authed)
	}

	mux.Handle("GET /api/v1/auctions/{id}", read(h.getAuction))
	mux.Handle("GET /api/v1/auctions/{id}/snapshot", read(h.getSnapshot))
	mux.Handle("GET /api/v1/auctions/{id}/lots", read(h.listLots))
	mux.Handle("GET /api/v1/auctions/{id}/teams", read(h.listTeams))
	mux.Handle("GET /api/v1/lots/{id}/bids", read(h.listBids))

	mux.Handle("POST /api/v1/auctions/{id}/start", admin(h.startAuction))
	mux.Handle("POST /api/v1/auctions/{id}/pause", admin(h.pauseAuction))
	mux.Handle("POST /api/v1/auctions/{id}/resume", admin(h.resumeAuction))
	mux.Handle("POST /api/v1/auctions/{id}/end", admin(h.endAuction))
	mux.Handle("POST /api/v1/auctions/{id}/lots/{lotID}/on-block", admin(h.putOnBlock))
	mux.Handle("POST /api/v1/auctions/{id}/lots/{lotID}/end-bidding", admin(h.endBidding))
	mux.Handle("POST /api/v1/auctions/{id}/tokens", admin(h.issueToken))
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

// auctionFromPath parses {id} and, for admin operations, pins it to the
// auction the token was minted for.
func (h *Handler) auctionFromPath(w http.ResponseWriter, r *http.Request, enforceScope bool) (uuid.UUID, bool) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeBadRequest(w, "auction id is not a valid UUID")
		return uuid.Nil, false
	}
	if enforceScope {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.AuctionID != id {
			writeError(w, errors.NewForbiddenError("token is not valid for this auction"))
			return uuid.Nil, false
		}
	}
	return id, true
}

func (h *Handler) getAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.auctionFromPath(w, r, false)
	if !ok {
		return
	}
	a, err := h.auctionRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.auctionFromPath(w, r, false)
	if !ok {
		return
	}
	snap, err := h.controller.GetSnapshot(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) listLots(w http.ResponseWriter, r *http.Request) {
	id, ok := h.auctionFromPath(w, r, false)
	if !ok {
		return
	}
	lots, err := h.lotRepo.ListByAuction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lots": lots})
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	id, ok := h.auctionFromPath(w, r, false)
	if !ok {
		return
	}
	teams, err := h.teamRepo.ListByAuction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}

func (h *Handler) listBids(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeBadRequest(w, "lot id is not a valid UUID")
		return
	}
	bids, err := h.bidRepo.ListByLot(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bids": bids})
}

func (h *Handler) startAuction(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.controller.StartAuction)
}

func (h *Handler) pauseAuction(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.controller.PauseAuction)
}

func (h *Handler) resumeAuction(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.controller.ResumeAuction)
}

func (h *Handler) endAuction(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.controller.EndAuction)
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, auctionID uuid.UUID) error) {
	id, ok := h.auctionFromPath(w, r, true)
	if !ok {
		return
	}
	if err := op(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) putOnBlock(w http.ResponseWriter, r *http.Request) {
	h.lotLifecycle(w, r, h.controller.PutOnBlock)
}

func (h *Handler) endBidding(w http.ResponseWriter, r *http.Request) {
	h.lotLifecycle(w, r, h.controller.EndBidding)
}

func (h *Handler) lotLifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, auctionID, lotID uuid.UUID) error) {
	auctionID, ok := h.auctionFromPath(w, r, true)
	if !ok {
		return
	}
	lotID, ok := pathUUID(r, "lotID")
	if !ok {
		writeBadRequest(w, "lot id is not a valid UUID")
		return
	}
	if err := op(r.Context(), auctionID, lotID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type issueTokenRequest struct {
	Role   string     `json:"role"`
	TeamID *uuid.UUID `json:"team_id,omitempty"`
	Name   string     `json:"name"`
}

// issueToken mints a room token for a bidder or viewer. Admin tokens are
// provisioned out of band, never through the API.
func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := h.auctionFromPath(w, r, true)
	if !ok {
		return
	}
	var req issueTokenRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	role := auth.Role(req.Role)
	switch role {
	case auth.RoleBidder:
		if req.TeamID == nil {
			writeBadRequest(w, "bidder tokens require a team_id")
			return
		}
		if _, err := h.teamRepo.GetByID(r.Context(), *req.TeamID); err != nil {
			writeError(w, err)
			return
		}
	case auth.RoleViewer:
		req.TeamID = nil
	default:
		writeBadRequest(w, "role must be bidder or viewer")
		return
	}

	token, err := h.tokens.GenerateToken(auctionID, role, req.TeamID, req.Name)
	if err != nil {
		writeError(w, errors.NewInternalError("mint token").WithCause(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}
