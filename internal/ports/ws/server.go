package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"jhitster/internal/app"
	"jhitster/internal/packs"
	"jhitster/internal/protocol"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/sync/errgroup"
)

const maxFrameBytes = 64 << 10

// Server exposes rooms over HTTP and websockets.
type Server struct {
	r       *chi.Mux
	rooms   *Manager
	catalog *packs.Catalog
	logger  runtime.Logger
}

type createRoomReq struct {
	Packs []string `json:"packs"`
}

type roomRes struct {
	Code      string `json:"code"`
	Stage     string `json:"stage,omitempty"`
	Players   int    `json:"players"`
	OpenSeats int    `json:"openSeats"`
}

// NewServer installs middleware and registers routes.
func NewServer(rooms *Manager, catalog *packs.Catalog, logger runtime.Logger) *Server {
	s := &Server{r: chi.NewRouter(), rooms: rooms, catalog: catalog, logger: logger}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "rooms": s.rooms.Len()})
	})
	s.r.Get("/packs", s.handleListPacks)
	s.r.Route("/rooms", func(r chi.Router) {
		r.Post("/", s.handleCreateRoom)
		r.Get("/{code}", s.handleGetRoom)
		r.Get("/{code}/ws", s.handleConnect)
	})
	return s
}

// Router exposes the router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) handleListPacks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Packs())
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
	}

	room, err := s.rooms.Create(r.Context(), req.Packs)
	switch {
	case errors.Is(err, packs.ErrUnknownPack):
		writeError(w, http.StatusBadRequest, "unknown_pack")
		return
	case errors.Is(err, ErrNoPacks):
		writeError(w, http.StatusBadRequest, "no_packs")
		return
	case err != nil:
		s.logger.Error("CreateRoom: %v", err)
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, roomRes{Code: room.Code, Stage: string(app.StageLobby), OpenSeats: s.rooms.opts.Game.MaxPlayers})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.rooms.Get(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusNotFound, "room_not_found")
		return
	}

	res := roomRes{Code: room.Code}
	if err := room.Runner.Do(r.Context(), func(h *app.Host) {
		res.Stage = string(h.Stage())
		res.Players = len(h.Seats())
		res.OpenSeats = h.OpenSeats()
	}); err != nil {
		writeError(w, http.StatusGone, "room_closed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleConnect upgrades to a websocket and relays guest intents to the room until either side
// goes away.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	room, err := s.rooms.Get(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusNotFound, "room_not_found")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Warn("Connect: failed to accept: %v", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	p := &peer{id: uuid.NewString(), conn: conn, send: make(chan []byte, peerQueueSize)}
	logger := s.logger.WithFields(map[string]interface{}{"room": room.Code, "peer": p.id})
	room.Hub.add(p)
	room.touch(time.Now())
	logger.Debug("Connect: peer connected.")

	eg, ctx := errgroup.WithContext(r.Context())
	eg.Go(func() error { return p.writeLoop(ctx) })
	eg.Go(func() error { return s.readLoop(ctx, room, p, logger) })
	err = eg.Wait()

	room.Hub.remove(p.id)
	room.touch(time.Now())
	if err := room.Runner.PeerLeft(p.id); err != nil {
		logger.Warn("Connect: could not report leave: %v", err)
	}
	status := websocket.CloseStatus(err)
	if status == -1 {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
	logger.Debug("Connect: peer disconnected (%v).", err)
}

func (s *Server) readLoop(ctx context.Context, room *Room, p *peer, logger runtime.Logger) error {
	for {
		_, data, err := p.conn.Read(ctx)
		if err != nil {
			return err
		}
		msg, err := protocol.DecodeGuest(data)
		if err != nil {
			logger.Warn("ReadLoop: bad frame: %v", err)
			_ = room.Hub.SendTo(p.id, protocol.Error{Code: app.CodeBadRequest, Message: err.Error()})
			continue
		}
		if err := room.Runner.PeerMessage(p.id, msg); err != nil {
			if errors.Is(err, app.ErrStopped) {
				return err
			}
			logger.Warn("ReadLoop: dropped %s: %v", msg.MessageType(), err)
			_ = room.Hub.SendTo(p.id, protocol.Error{Code: http.StatusServiceUnavailable, Message: err.Error()})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
