// Package hub owns the registry of live room actors, itself an actor so
// lookups and creation never race.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/room"
)

type HubMsg interface{ isHubMsg() }

type EnsureRoom struct {
	Code  string
	Opts  room.Options // only used if creation happens
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	log    *zap.SugaredLogger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, log *zap.SugaredLogger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		log:    log.Named("hub"),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Ensure is a convenience wrapper around EnsureRoom for the HTTP layer.
func (h *Hub) Ensure(code string, opts room.Options) *room.Room {
	reply := make(chan *room.Room, 1)
	h.inbox <- EnsureRoom{Code: code, Opts: opts, Reply: reply}
	return <-reply
}

// Get returns the live actor for code, or nil.
func (h *Hub) Get(code string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.inbox <- GetRoom{Code: code, Reply: reply}
	return <-reply
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if r := h.rooms[msg.Code]; r != nil {
					msg.Reply <- r
					break
				}
				r := room.New(h.ctx, msg.Opts)
				h.rooms[msg.Code] = r
				h.log.Infow("room actor created", "code", msg.Code)
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case RemoveRoom:
				if r := h.rooms[msg.Code]; r != nil {
					r.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.Code)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, r := range h.rooms {
		r.Inbox() <- room.Shutdown{}
	}
	clear(h.rooms)
	h.cancel()
}
