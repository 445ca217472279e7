package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

// API key credential format: "tcx_<keyID>_<secret>". The key ID is not a
// secret; it exists so verification can look up the owning principal
// directly instead of hashing the secret against every stored principal.
const apiKeyPrefix = "tcx"

// GenerateAPIKey returns a new credential string together with its
// embedded key ID. Only a one-way hash of the full credential is stored.
func GenerateAPIKey() (credential string, keyID types.APIKeyID, err error) {
	idBytes := make([]byte, 8)
	if _, err := rand.Read(idBytes); err != nil {
		return "", "", goerr.Wrap(err, "failed to generate API key ID")
	}
	secretBytes := make([]byte, 24)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", "", goerr.Wrap(err, "failed to generate API key secret")
	}

	keyID = types.APIKeyID(hex.EncodeToString(idBytes))
	credential = fmt.Sprintf("%s_%s_%s", apiKeyPrefix, keyID, hex.EncodeToString(secretBytes))
	return credential, keyID, nil
}

// ParseAPIKey extracts the key ID from a credential string. It returns
// false when the string is not in API key format, which lets the resolver
// skip the lookup without treating it as an error.
func ParseAPIKey(credential string) (types.APIKeyID, bool) {
	parts := strings.SplitN(credential, "_", 3)
	if len(parts) != 3 || parts[0] != apiKeyPrefix || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return types.APIKeyID(parts[1]), true
}
