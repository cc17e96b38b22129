package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName полное имя gRPC сервиса
const ServiceName = "truthmeter.v1.TruthMeter"

// TruthMeterServer серверная часть сервиса TruthMeter
type TruthMeterServer interface {
	CreateSecret(context.Context, *CreateSecretRequest) (*CreateSecretResponse, error)
	ListSecrets(context.Context, *ListSecretsRequest) (*SecretsResponse, error)
	GetRandomSecret(context.Context, *GetRandomSecretRequest) (*SecretResponse, error)
	RecordVote(context.Context, *RecordVoteRequest) (*TallyResponse, error)
	ListCategories(context.Context, *ListCategoriesRequest) (*CategoriesResponse, error)
	RegisterUser(context.Context, *RegisterUserRequest) (*UserResponse, error)
	GetUserByNickname(context.Context, *GetUserByNicknameRequest) (*UserResponse, error)
	ListUsersWithStats(context.Context, *ListUsersWithStatsRequest) (*UsersResponse, error)
	SetUserAdmin(context.Context, *SetUserAdminRequest) (*SimpleResponse, error)
	DeleteUser(context.Context, *DeleteUserRequest) (*SimpleResponse, error)
	DeleteSecret(context.Context, *DeleteSecretRequest) (*SimpleResponse, error)
	ListAllSecrets(context.Context, *ListAllSecretsRequest) (*SecretsResponse, error)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryMethod собирает MethodDesc для метода с запросом Req и ответом Resp
func unaryMethod[Req, Resp any](name string, call func(TruthMeterServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TruthMeterServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(TruthMeterServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// TruthMeterServiceDesc описание сервиса для grpc.Server.RegisterService
var TruthMeterServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TruthMeterServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateSecret", TruthMeterServer.CreateSecret),
		unaryMethod("ListSecrets", TruthMeterServer.ListSecrets),
		unaryMethod("GetRandomSecret", TruthMeterServer.GetRandomSecret),
		unaryMethod("RecordVote", TruthMeterServer.RecordVote),
		unaryMethod("ListCategories", TruthMeterServer.ListCategories),
		unaryMethod("RegisterUser", TruthMeterServer.RegisterUser),
		unaryMethod("GetUserByNickname", TruthMeterServer.GetUserByNickname),
		unaryMethod("ListUsersWithStats", TruthMeterServer.ListUsersWithStats),
		unaryMethod("SetUserAdmin", TruthMeterServer.SetUserAdmin),
		unaryMethod("DeleteUser", TruthMeterServer.DeleteUser),
		unaryMethod("DeleteSecret", TruthMeterServer.DeleteSecret),
		unaryMethod("ListAllSecrets", TruthMeterServer.ListAllSecrets),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterTruthMeterServer регистрирует реализацию сервиса
func RegisterTruthMeterServer(s grpc.ServiceRegistrar, srv TruthMeterServer) {
	s.RegisterService(&TruthMeterServiceDesc, srv)
}

// TruthMeterClient клиент сервиса TruthMeter, сообщения кодируются в JSON
type TruthMeterClient struct {
	cc grpc.ClientConnInterface
}

// NewTruthMeterClient создает клиента поверх соединения
func NewTruthMeterClient(cc grpc.ClientConnInterface) *TruthMeterClient {
	return &TruthMeterClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TruthMeterClient) CreateSecret(ctx context.Context, in *CreateSecretRequest, opts ...grpc.CallOption) (*CreateSecretResponse, error) {
	return invoke[CreateSecretResponse](ctx, c.cc, "CreateSecret", in, opts)
}

func (c *TruthMeterClient) ListSecrets(ctx context.Context, in *ListSecretsRequest, opts ...grpc.CallOption) (*SecretsResponse, error) {
	return invoke[SecretsResponse](ctx, c.cc, "ListSecrets", in, opts)
}

func (c *TruthMeterClient) GetRandomSecret(ctx context.Context, in *GetRandomSecretRequest, opts ...grpc.CallOption) (*SecretResponse, error) {
	return invoke[SecretResponse](ctx, c.cc, "GetRandomSecret", in, opts)
}

func (c *TruthMeterClient) RecordVote(ctx context.Context, in *RecordVoteRequest, opts ...grpc.CallOption) (*TallyResponse, error) {
	return invoke[TallyResponse](ctx, c.cc, "RecordVote", in, opts)
}

func (c *TruthMeterClient) ListCategories(ctx context.Context, in *ListCategoriesRequest, opts ...grpc.CallOption) (*CategoriesResponse, error) {
	return invoke[CategoriesResponse](ctx, c.cc, "ListCategories", in, opts)
}

func (c *TruthMeterClient) RegisterUser(ctx context.Context, in *RegisterUserRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	return invoke[UserResponse](ctx, c.cc, "RegisterUser", in, opts)
}

func (c *TruthMeterClient) GetUserByNickname(ctx context.Context, in *GetUserByNicknameRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	return invoke[UserResponse](ctx, c.cc, "GetUserByNickname", in, opts)
}

func (c *TruthMeterClient) ListUsersWithStats(ctx context.Context, in *ListUsersWithStatsRequest, opts ...grpc.CallOption) (*UsersResponse, error) {
	return invoke[UsersResponse](ctx, c.cc, "ListUsersWithStats", in, opts)
}

func (c *TruthMeterClient) SetUserAdmin(ctx context.Context, in *SetUserAdminRequest, opts ...grpc.CallOption) (*SimpleResponse, error) {
	return invoke[SimpleResponse](ctx, c.cc, "SetUserAdmin", in, opts)
}

func (c *TruthMeterClient) DeleteUser(ctx context.Context, in *DeleteUserRequest, opts ...grpc.CallOption) (*SimpleResponse, error) {
	return invoke[SimpleResponse](ctx, c.cc, "DeleteUser", in, opts)
}

func (c *TruthMeterClient) DeleteSecret(ctx context.Context, in *DeleteSecretRequest, opts ...grpc.CallOption) (*SimpleResponse, error) {
	return invoke[SimpleResponse](ctx, c.cc, "DeleteSecret", in, opts)
}

func (c *TruthMeterClient) ListAllSecrets(ctx context.Context, in *ListAllSecretsRequest, opts ...grpc.CallOption) (*SecretsResponse, error) {
	return invoke[SecretsResponse](ctx, c.cc, "ListAllSecrets", in, opts)
}
