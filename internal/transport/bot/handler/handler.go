package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"dkp_bot/internal/domain/service/lookup"
	"dkp_bot/internal/domain/service/reconcile"
)

// Syncer запускает проход вручную и хранит его последний итог.
type Syncer interface {
	RunPass(ctx context.Context) (reconcile.Report, error)
	LastReport() (reconcile.Report, bool)
}

type Handler struct {
	dialog   *lookup.Dialog
	syncer   Syncer
	sessions *cache.Cache
}

func New(dialog *lookup.Dialog, syncer Syncer, sessionTTL time.Duration) *Handler {
	return &Handler{
		dialog:   dialog,
		syncer:   syncer,
		sessions: cache.New(sessionTTL, 2*sessionTTL),
	}
}

func (h *Handler) session(chatID int64) lookup.Session {
	if v, ok := h.sessions.Get(sessionKey(chatID)); ok {
		if s, ok := v.(lookup.Session); ok {
			return s
		}
	}
	return lookup.Session{}
}

func (h *Handler) save(chatID int64, res lookup.Result) {
	if res.Done {
		h.sessions.Delete(sessionKey(chatID))
		return
	}
	h.sessions.Set(sessionKey(chatID), res.Session, cache.DefaultExpiration)
}

func sessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
