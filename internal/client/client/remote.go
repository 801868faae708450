package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/settings"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/tasks"
	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/dmitrijs2005/taskseal/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// caller is the part of rpc.RecordStoreClient RemoteStore uses.
type caller interface {
	Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// RemoteStore is a task and settings store backed by the RecordStore gRPC
// service. The server scopes every call to the user in the access token, so
// the userID arguments of the repository methods are not sent.
type RemoteStore struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      caller

	mu          sync.RWMutex
	accessToken string
}

var (
	_ tasks.Repository    = (*RemoteStore)(nil)
	_ settings.Repository = (*RemoteStore)(nil)
)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *RemoteStore) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	s.mu.RLock()
	token := s.accessToken
	s.mu.RUnlock()

	if token != "" {
		ctx = withAccessToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewRemoteStore connects to the RecordStore service at endpointURL.
// timeout bounds each call; zero means no limit beyond the caller's context.
// Extra dial options are appended to the defaults.
func NewRemoteStore(endpointURL, accessToken string, timeout time.Duration, opts ...grpc.DialOption) (*RemoteStore, error) {
	s := &RemoteStore{endpointURL: endpointURL, accessToken: accessToken, timeout: timeout}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)
	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	s.client = rpc.NewRecordStoreClient(conn)
	return s, nil
}

// SetAccessToken replaces the token sent with subsequent calls.
func (s *RemoteStore) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

func (s *RemoteStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *RemoteStore) call(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out, err := s.client.Call(ctx, method, in)
	if err != nil {
		return nil, s.mapError(err)
	}
	return out, nil
}

func (s *RemoteStore) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

// Ping checks that the server is up.
func (s *RemoteStore) Ping(ctx context.Context) error {
	out, err := s.call(ctx, rpc.MethodPing, nil)
	if err != nil {
		return err
	}
	if rpc.DecodeStatus(out) != rpc.StatusOK {
		return ErrUnavailable
	}
	return nil
}

func (s *RemoteStore) List(ctx context.Context, _ string) ([]models.Task, error) {
	out, err := s.call(ctx, rpc.MethodListRecords, nil)
	if err != nil {
		return nil, err
	}
	return rpc.DecodeTaskList(out)
}

func (s *RemoteStore) GetByID(ctx context.Context, _ string, id string) (*models.Task, error) {
	out, err := s.call(ctx, rpc.MethodGetRecord, rpc.EncodeID(id))
	if err != nil {
		return nil, err
	}
	t, err := rpc.DecodeTask(out)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create stores t and copies the id and timestamps assigned by the server
// back into it.
func (s *RemoteStore) Create(ctx context.Context, t *models.Task) error {
	out, err := s.call(ctx, rpc.MethodCreateRecord, rpc.EncodeTask(*t))
	if err != nil {
		return err
	}
	created, err := rpc.DecodeTask(out)
	if err != nil {
		return err
	}
	t.ID = created.ID
	t.UserID = created.UserID
	t.CreatedAt = created.CreatedAt
	t.UpdatedAt = created.UpdatedAt
	return nil
}

func (s *RemoteStore) Patch(ctx context.Context, _ string, id string, p models.ContentPatch) error {
	_, err := s.call(ctx, rpc.MethodPatchRecord, rpc.EncodePatch(id, p))
	return err
}

func (s *RemoteStore) SetDone(ctx context.Context, _ string, id string, done bool) error {
	_, err := s.call(ctx, rpc.MethodSetDone, rpc.EncodeSetDone(id, done))
	return err
}

func (s *RemoteStore) Delete(ctx context.Context, _ string, id string) error {
	_, err := s.call(ctx, rpc.MethodDeleteRecord, rpc.EncodeID(id))
	return err
}

func (s *RemoteStore) Get(ctx context.Context, _ string) (*models.EncryptionSettings, error) {
	out, err := s.call(ctx, rpc.MethodGetSettings, nil)
	if err != nil {
		return nil, err
	}
	return rpc.DecodeSettings(out)
}

func (s *RemoteStore) Set(ctx context.Context, _ string, credentialID, keyCheck string) error {
	_, err := s.call(ctx, rpc.MethodSetSettings, rpc.EncodeSetSettings(credentialID, keyCheck))
	return err
}

func (s *RemoteStore) Clear(ctx context.Context, _ string) error {
	_, err := s.call(ctx, rpc.MethodClearSettings, nil)
	return err
}
