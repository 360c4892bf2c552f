package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldBackend is the structured log field key for the similarity backend name.
	FieldBackend = "similarity_backend"
	// FieldModel is the structured log field key for the embedding model identifier.
	FieldModel     = "similarity_model"
	FieldProfileID = "profile_id"
	FieldJobID     = "job_id"
	FieldRunID     = "run_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to logger, falling back to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// BackendFields describes the similarity backend and model. Empty values are skipped.
func BackendFields(backend, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldBackend, Value: backend},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithBackendFields(logger *zap.Logger, backend, model string) *zap.Logger {
	return WithFields(logger, BackendFields(backend, model)...)
}

// PairFields identifies one profile/job pair.
func PairFields(profileID, jobID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProfileID, Value: profileID},
		StringField{Key: FieldJobID, Value: jobID},
	)
}
