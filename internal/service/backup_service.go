package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/foyer/internal/state"
)

// BackupServiceName is the Connect service of backups.
const BackupServiceName = "BackupService"

// BackupService implements the Connect BackupService.
type BackupService struct {
	household *Household
	now       func() time.Time
}

// NewBackupService creates a BackupService backed by the given household.
func NewBackupService(household *Household) *BackupService {
	return &BackupService{household: household, now: time.Now}
}

// NewBackupServiceHandler returns the path prefix and handler serving svc.
func NewBackupServiceHandler(svc *BackupService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	return mount(BackupServiceName,
		unary(BackupServiceName, "Export", svc.Export, opts),
		unary(BackupServiceName, "Import", svc.Import, opts),
		unary(BackupServiceName, "Reset", svc.Reset, opts),
	)
}

// Export returns a JSON backup of everything and resets the unsaved counter.
func (s *BackupService) Export(ctx context.Context, _ *emptypb.Empty) (*FileResponse, error) {
	var (
		data []byte
		err  error
	)
	s.household.do(func(st *state.State) bool {
		data, err = st.Export(ctx)
		return err == nil
	})
	if err != nil {
		slog.Error("Export failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return &FileResponse{
		Filename:    fmt.Sprintf("foyer-%s.json", s.now().Format("2006-01-02")),
		ContentType: "application/json",
		Content:     data,
	}, nil
}

// Import replaces everything with a backup.
func (s *BackupService) Import(ctx context.Context, req *ImportRequest) (*Result, error) {
	slog.Info("Import request received", "bytes", len(req.Content))
	res := s.household.do(func(st *state.State) bool {
		return st.Import(ctx, req.Content)
	})
	return &res, nil
}

// Reset deletes everything.
func (s *BackupService) Reset(ctx context.Context, _ *emptypb.Empty) (*Result, error) {
	slog.Info("Reset request received")
	res := s.household.do(func(st *state.State) bool {
		return st.Reset(ctx)
	})
	return &res, nil
}
