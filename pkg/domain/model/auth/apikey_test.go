package auth_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/teamctx-lab/teamctx/pkg/domain/model/auth"
)

func TestGenerateAPIKey(t *testing.T) {
	credential, keyID, err := auth.GenerateAPIKey()
	gt.NoError(t, err).Required()

	gt.Bool(t, strings.HasPrefix(credential, "tcx_")).True()
	gt.NoError(t, keyID.Validate())

	parsed, ok := auth.ParseAPIKey(credential)
	gt.Bool(t, ok).True()
	gt.Value(t, parsed).Equal(keyID)

	// Each call produces an independent credential
	other, otherID, err := auth.GenerateAPIKey()
	gt.NoError(t, err).Required()
	gt.Number(t, len(other)).Greater(0)
	gt.Bool(t, other == credential).False()
	gt.Bool(t, otherID == keyID).False()
}

func TestParseAPIKey(t *testing.T) {
	cases := []struct {
		name       string
		credential string
		ok         bool
	}{
		{"well formed", "tcx_abcd1234_secretsecret", true},
		{"wrong prefix", "sk_abcd1234_secretsecret", false},
		{"missing key ID", "tcx__secretsecret", false},
		{"missing secret", "tcx_abcd1234_", false},
		{"not a key at all", "some.jwt.token", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := auth.ParseAPIKey(tc.credential)
			gt.Value(t, ok).Equal(tc.ok)
		})
	}
}

func TestTokenType_Validate(t *testing.T) {
	gt.NoError(t, auth.TokenTypeAccess.Validate())
	gt.NoError(t, auth.TokenTypeRefresh.Validate())
	gt.Error(t, auth.TokenType("session").Validate())
}
