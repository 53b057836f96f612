package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/engine"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/hub"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/room"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/storage"
)

type API struct {
	hub       *hub.Hub
	db        *storage.DB
	records   *storage.Records
	jwtSecret string
	tokenTTL  time.Duration
	opTime    time.Duration
	log       *zap.SugaredLogger
}

func New(h *hub.Hub, db *storage.DB, records *storage.Records, jwtSecret string, tokenTTL, opTime time.Duration, log *zap.SugaredLogger) *API {
	return &API{
		hub:       h,
		db:        db,
		records:   records,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		opTime:    opTime,
		log:       log.Named("httpapi"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// POST /api/admin/login
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request")
		return
	}

	admin, err := a.db.AdminByUsername(req.Username)
	if err != nil || !checkPassword(admin.PasswordHash, req.Password) {
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := generateToken(a.jwtSecret, admin.Username, a.tokenTTL)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "username": admin.Username})
}

// POST /api/admin/rooms
func (a *API) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomName   string `json:"room_name"`
		TeamAName  string `json:"team_a_name"`
		TeamBName  string `json:"team_b_name"`
		MaxPerTeam int    `json:"max_per_team"`
		MapPoolID  *uint  `json:"map_pool_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.TeamAName == "" {
		req.TeamAName = "Team A"
	}
	if req.TeamBName == "" {
		req.TeamBName = "Team B"
	}
	if req.MaxPerTeam <= 0 {
		req.MaxPerTeam = 5
	}

	rm := &storage.Room{
		RoomName:   req.RoomName,
		TeamAName:  req.TeamAName,
		TeamBName:  req.TeamBName,
		MaxPerTeam: req.MaxPerTeam,
		MapPoolID:  req.MapPoolID,
		Status:     storage.RoomWaiting,
	}
	if err := a.db.CreateRoom(rm); err != nil {
		a.log.Errorw("create room", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	// spin up the actor right away so players can join and pick teams
	a.hub.Ensure(rm.RoomCode, a.roomOptions(rm))
	writeJSON(w, http.StatusCreated, rm)
}

// GET /api/admin/rooms
func (a *API) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.db.ListRooms()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(rooms), "items": rooms})
}

// GET /api/admin/rooms/{id}
func (a *API) RoomDetail(w http.ResponseWriter, r *http.Request) {
	rm, ok := a.roomFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

// GET /api/admin/rooms/{id}/bp-record
func (a *API) BPRecord(w http.ResponseWriter, r *http.Request) {
	rm, ok := a.roomFromPath(w, r)
	if !ok {
		return
	}

	rec, err := a.records.ByRoom(rm.ID)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "no record for room")
		return
	} else if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load record")
		return
	}

	ops, err := a.records.OperationsByRoom(rm.ID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load operations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": rec, "operation_logs": ops})
}

// POST /api/admin/mappools
func (a *API) CreateMapPool(w http.ResponseWriter, r *http.Request) {
	var req storage.MapPool
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if len(req.Maps) != 7 {
		writeJSONError(w, http.StatusBadRequest, "a map pool holds exactly 7 maps")
		return
	}
	req.ID = 0
	if err := a.db.CreateMapPool(&req); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to create map pool")
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// GET /api/admin/mappools
func (a *API) ListMapPools(w http.ResponseWriter, r *http.Request) {
	pools, err := a.db.ListMapPools()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list map pools")
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

// GET /api/rooms/{code} — public lookup by the human-readable code
func (a *API) RoomByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rm, err := a.db.RoomByCode(code)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "room not found")
		return
	} else if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load room")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room": rm,
		"maps": a.poolFor(rm),
	})
}

// POST /api/admin/rooms/{id}/bp/start — admin gate moving the room into the roll
func (a *API) StartBP(w http.ResponseWriter, r *http.Request) {
	rm, ok := a.roomFromPath(w, r)
	if !ok {
		return
	}

	actor := a.hub.Ensure(rm.RoomCode, a.roomOptions(rm))
	reply := make(chan error, 1)
	actor.Inbox() <- room.Start{Reply: reply}
	if err := <-reply; err != nil {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}

	if err := a.db.SetRoomStatus(rm.ID, storage.RoomInProgress); err != nil {
		a.log.Errorw("set room status", "room", rm.ID, "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"started": true})
}

func (a *API) roomOptions(rm *storage.Room) room.Options {
	return room.Options{
		Code:          rm.RoomCode,
		Maps:          a.poolFor(rm),
		MaxPerTeam:    rm.MaxPerTeam,
		OperationTime: a.opTime,
		Recorder:      storage.NewRoomRecorder(a.records, rm.ID),
		Logger:        a.log,
	}
}

func (a *API) poolFor(rm *storage.Room) []engine.MapCard {
	if rm.MapPoolID != nil {
		if pool, err := a.db.MapPoolByID(*rm.MapPoolID); err == nil && len(pool.Maps) == 7 {
			return pool.Cards()
		}
		a.log.Warnw("configured map pool unusable, falling back to default", "room", rm.ID)
	}
	return engine.DefaultPool()
}

func (a *API) roomFromPath(w http.ResponseWriter, r *http.Request) (*storage.Room, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad room id")
		return nil, false
	}
	rm, err := a.db.RoomByID(uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "room not found")
		return nil, false
	} else if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load room")
		return nil, false
	}
	return rm, true
}
