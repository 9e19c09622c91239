package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldIdentityID is the structured log field key for the principal id.
	FieldIdentityID = "identity_id"
	// FieldOwner is the structured log field key for the profile owner key.
	FieldOwner = "owner"
	// FieldLoadState is the structured log field key for the session load state.
	FieldLoadState = "load_state"
	// FieldProvider is the structured log field key for the identity provider.
	FieldProvider = "identity_provider"
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

// WithFields attaches fields to the logger, falling back to a no-op logger
// when nil is passed.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// SessionFields describes a session without leaking the email: the owner key
// is masked down to its first character and domain.
func SessionFields(identityID, owner, loadState string) []zap.Field {
	return StringFields(
		StringField{Key: FieldIdentityID, Value: identityID},
		StringField{Key: FieldOwner, Value: MaskEmail(owner)},
		StringField{Key: FieldLoadState, Value: loadState},
	)
}

// MaskEmail keeps the first rune of the local part and the domain.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}

	local := []rune(email[:at])
	return string(local[0]) + "***" + email[at:]
}
