// Package grpc serves the RecordStore service over gRPC. Every call except
// Ping is scoped to the user named in the access token.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/logging"
	"github.com/dmitrijs2005/taskseal/internal/rpc"
	"google.golang.org/grpc"
)

// RecordService is the business layer the handlers delegate to.
type RecordService interface {
	List(ctx context.Context, userID string) ([]models.Task, error)
	Get(ctx context.Context, userID, id string) (*models.Task, error)
	Create(ctx context.Context, userID string, t models.Task) (*models.Task, error)
	Patch(ctx context.Context, userID, id string, p models.ContentPatch) error
	SetDone(ctx context.Context, userID, id string, done bool) error
	Delete(ctx context.Context, userID, id string) error
	Settings(ctx context.Context, userID string) (*models.EncryptionSettings, error)
	SetSettings(ctx context.Context, userID, credentialID, keyCheck string) error
	ClearSettings(ctx context.Context, userID string) error
}

type GRPCServer struct {
	address   string
	records   RecordService
	logger    logging.Logger
	jwtSecret []byte
}

var _ rpc.RecordStoreServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, rs RecordService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		records:   rs,
		jwtSecret: []byte(secretKey),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	rpc.RegisterRecordStoreServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
