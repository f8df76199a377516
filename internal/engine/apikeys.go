package engine

import (
	"crypto/subtle"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/lay-engine/internal/models"
)

const apiKeyPrefix = "chm_"

// GenerateAPIKey mints a new control-surface key. The raw key is
// returned exactly once; listings only ever show the masked preview.
func (e *Engine) GenerateAPIKey(label string) (models.APIKey, OpResult) {
	label = strings.TrimSpace(label)
	if label == "" {
		return models.APIKey{}, opFail("empty_label")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := models.APIKey{
		KeyID:     uuid.NewString(),
		Key:       apiKeyPrefix + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		Label:     label,
		CreatedAt: e.now(),
	}
	e.st.apiKeys = append(e.st.apiKeys, key)
	e.logger.WithField("key_id", key.KeyID).Info("api key generated")
	return key, opOK(key.KeyID)
}

// ListAPIKeys returns the masked key listings
func (e *Engine) ListAPIKeys() []models.APIKeyListing {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.APIKeyListing, 0, len(e.st.apiKeys))
	for _, k := range e.st.apiKeys {
		out = append(out, models.APIKeyListing{
			KeyID:      k.KeyID,
			Label:      k.Label,
			KeyPreview: k.Preview(),
			CreatedAt:  k.CreatedAt,
			LastUsed:   k.LastUsed,
		})
	}
	return out
}

// RevokeAPIKey removes a key by id
func (e *Engine) RevokeAPIKey(keyID string) OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, k := range e.st.apiKeys {
		if k.KeyID == keyID {
			e.st.apiKeys = append(e.st.apiKeys[:i], e.st.apiKeys[i+1:]...)
			e.logger.WithField("key_id", keyID).Info("api key revoked")
			return opOK(keyID)
		}
	}
	return opFail("not_found")
}

// ValidateAPIKey checks a presented key and stamps its last-used time.
// Comparison is constant time so key validation leaks nothing about
// stored values.
func (e *Engine) ValidateAPIKey(presented string) bool {
	if !strings.HasPrefix(presented, apiKeyPrefix) {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.st.apiKeys {
		if subtle.ConstantTimeCompare([]byte(e.st.apiKeys[i].Key), []byte(presented)) == 1 {
			t := e.now()
			e.st.apiKeys[i].LastUsed = &t
			return true
		}
	}
	return false
}
