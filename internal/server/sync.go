package server

import (
	"context"
	"fmt"
	"net/http"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/service/reconcile"
	"dkp_bot/pkg/errcodes"
	"dkp_bot/pkg/httpx/reply"
)

type syncer interface {
	RunPass(ctx context.Context) (reconcile.Report, error)
	LastReport() (reconcile.Report, bool)
}

type SyncServer struct {
	syncer syncer
}

func NewSyncServer(syncer syncer) SyncServer {
	return SyncServer{
		syncer: syncer,
	}
}

// postV1Sync запускает проход и отвечает его итогом. Проход не прерывается,
// если клиент отключился.
func (s SyncServer) postV1Sync(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	report, err := s.syncer.RunPass(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("syncer.RunPass: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTSyncReport(report))

	return nil
}

func (s SyncServer) getV1SyncLast(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	report, ok := s.syncer.LastReport()
	if !ok {
		return domain.NewError(errcodes.NotFound, "no sync pass yet")
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTSyncReport(report))

	return nil
}
