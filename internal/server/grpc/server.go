// Package grpc exposes the ledger service over gRPC with the JSON codec
// from ledgerapi, protecting private methods with JWT access tokens.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/melonmail/internal/ledgerapi"
	"github.com/dmitrijs2005/melonmail/internal/logging"
	"github.com/dmitrijs2005/melonmail/internal/server/models"
	"github.com/dmitrijs2005/melonmail/internal/server/services"
	"google.golang.org/grpc"
)

// Ledger is the business logic served by GRPCServer.
type Ledger interface {
	Register(ctx context.Context, mailAddress, address, publicKey string) (*models.Account, error)
	Challenge(ctx context.Context, address string) (id, sealed string, err error)
	Login(ctx context.Context, address, challengeID, answer string) (string, *models.Account, error)
	ResolveAddress(ctx context.Context, mailAddress string) (*models.Account, error)
	LatestBlock(ctx context.Context) (int64, error)
	GetThread(ctx context.Context, threadID string, afterBlock int64) (*models.MailEvent, error)
	GetMails(ctx context.Context, address string, folder models.Folder, fetchToBlock *int64, batchSize, startingBlock int64) ([]models.MailEvent, int64, error)
	SendMail(ctx context.Context, from, to, mailHash, threadHash, threadID string) (*models.MailEvent, error)
	Subscribe(address string) (<-chan services.TaggedEvent, func())
}

type GRPCServer struct {
	address   string
	ledger    Ledger
	logger    logging.Logger
	jwtSecret []byte
}

var (
	_ ledgerapi.LedgerServiceServer = (*GRPCServer)(nil)
	_ Ledger                        = (*services.LedgerService)(nil)
)

// NewGRPCServer builds a server for ledger on address a; access tokens are
// verified with secretKey.
func NewGRPCServer(a string, l logging.Logger, ledger Ledger, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		ledger:    ledger,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	ledgerapi.RegisterLedgerServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}
