package api

import (
	"context"
	"log/slog"

	"github.com/swayhq/sway/internal/core/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ValidationService implements ValidationServer over compiled schemas.
type ValidationService struct {
	schemas *Schemas
	logger  *slog.Logger
}

// NewValidationService creates the admin validation service.
func NewValidationService(schemas *Schemas, logger *slog.Logger) *ValidationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationService{schemas: schemas, logger: logger}
}

// Validate checks req.value against the schema named by req.schema.
//
// Request:  {"schema": "User", "value": {...}, "query": false}
// Response: {"violations": [...], "coerced": ...}
//
// Violations are data, not RPC errors; an empty list means the value passed.
func (s *ValidationService) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	name := fields["schema"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "schema is required")
	}

	schema, err := s.schemas.Find(name)
	if err != nil {
		return nil, statusFromError(err)
	}

	var value any
	if v, ok := fields["value"]; ok {
		value = v.AsInterface()
	}
	coerced, violations := s.schemas.Check(schema, value, fields["query"].GetBoolValue())

	s.logger.Debug("admin validate",
		"schema", schema.Name,
		"violations", len(violations),
		"key_id", auth.KeyIDFromContext(ctx),
	)

	list := make([]any, len(violations))
	for i, v := range violations {
		list[i] = v
	}
	resp, err := structpb.NewStruct(map[string]any{
		"violations": list,
		"coerced":    coerced,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return resp, nil
}

// ListSchemas returns the name and rule-tree statistics of every schema.
//
// Response: {"schemas": [{"name", "rules", "alternatives", "depth", "cost"}]}
func (s *ValidationService) ListSchemas(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	all := s.schemas.All()
	list := make([]any, 0, len(all))
	for _, schema := range all {
		list = append(list, map[string]any{
			"name":         schema.Name,
			"rules":        schema.Stats.Rules,
			"alternatives": schema.Stats.Alternatives,
			"depth":        schema.Stats.Depth,
			"cost":         schema.Stats.Cost,
		})
	}
	resp, err := structpb.NewStruct(map[string]any{"schemas": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return resp, nil
}
