package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// Package is the protobuf-style package every service lives in.
const Package = "foyer.v1"

// Procedure returns the Connect path of a method, e.g. /foyer.v1.BudgetService/AddUser.
func Procedure(service, method string) string {
	return "/" + Package + "." + service + "/" + method
}

// HandlerOptions registers the JSON codec under the names Connect clients use,
// followed by extra.
func HandlerOptions(extra ...connect.HandlerOption) []connect.HandlerOption {
	opts := []connect.HandlerOption{
		connect.WithCodec(NewJSONCodec(CodecName)),
		connect.WithCodec(NewJSONCodec(CodecName + "; charset=utf-8")),
	}
	return append(opts, extra...)
}

// ClientOptions configures a Connect client for the JSON codec, followed by extra.
func ClientOptions(extra ...connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(NewJSONCodec(CodecName))}, extra...)
}

type route struct {
	procedure string
	handler   http.Handler
}

func unary[Req, Res any](service, method string, fn func(context.Context, *Req) (*Res, error), opts []connect.HandlerOption) route {
	procedure := Procedure(service, method)
	handler := connect.NewUnaryHandler(procedure, func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
		res, err := fn(ctx, req.Msg)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(res), nil
	}, opts...)
	return route{procedure: procedure, handler: handler}
}

// mount serves routes under the path prefix of service.
func mount(service string, routes ...route) (string, http.Handler) {
	mux := http.NewServeMux()
	for _, r := range routes {
		mux.Handle(r.procedure, r.handler)
	}
	return "/" + Package + "." + service + "/", mux
}
