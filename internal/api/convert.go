package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/timeline"
)

// toStruct converts v through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode reply: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode reply: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return s, nil
}

// toValue is toStruct for payloads that may not be objects.
func toValue(v any) (*structpb.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return nil, err
	}
	return structpb.NewValue(x)
}

func invalid(format string, args ...any) error {
	return grpcstatus.Errorf(codes.InvalidArgument, format, args...)
}

// intField reads a required integral number.
func intField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, invalid("%s is required", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, invalid("%s must be an integer", name)
	}
	// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
	if n.NumberValue < math.MinInt64 || n.NumberValue >= math.MaxInt64 {
		return 0, invalid("%s is out of range", name)
	}
	return int64(n.NumberValue), nil
}

// optionalID reads an id that may be absent or null. present reports
// whether the field was sent at all.
func optionalID(req *structpb.Struct, name string) (id *int64, present bool, err error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, false, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, true, nil
	}
	n, err := intField(req, name)
	if err != nil {
		return nil, true, err
	}
	return &n, true, nil
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func stringList(req *structpb.Struct, name string) []string {
	var out []string
	for _, v := range req.GetFields()[name].GetListValue().GetValues() {
		if s := v.GetStringValue(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// toStatus maps core and backend errors onto gRPC codes.
func toStatus(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}
	msg := backend.ErrorMessage(err, fallback)
	var be *backend.Error
	switch {
	case errors.Is(err, timeline.ErrConversationClosed):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, timeline.ErrSendInProgress):
		return grpcstatus.Error(codes.Aborted, err.Error())
	case errors.Is(err, timeline.ErrNotLoaded):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, msg)
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, msg)
	case errors.As(err, &be):
		switch {
		case be.StatusCode == http.StatusNotFound:
			return grpcstatus.Error(codes.NotFound, msg)
		case be.StatusCode == http.StatusBadRequest || be.StatusCode == http.StatusUnprocessableEntity:
			return grpcstatus.Error(codes.InvalidArgument, msg)
		case be.StatusCode >= 500:
			return grpcstatus.Error(codes.Unavailable, msg)
		}
		return grpcstatus.Error(codes.FailedPrecondition, msg)
	}
	return grpcstatus.Error(codes.Unavailable, fmt.Sprintf("%s: %v", fallback, err))
}
