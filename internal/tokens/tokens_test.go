package tokens

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/config"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	return cfg
}

func testUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Username: "amy", Email: "amy@example.com"}
}

func TestGenerateAndVerify(t *testing.T) {
	cfg := testConfig("test-secret-32-bytes-should-be-long-enough")
	u := testUser()
	raw, err := GenerateAccessToken(cfg, u, 2*time.Minute)
	require.NoError(t, err)

	tok, err := NewVerifier(cfg.JWT.Secret).Verify(context.Background(), raw)
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "amy", claims["sub"])
	require.Equal(t, u.ID.Hex(), claims["uid"])
	require.Equal(t, "qoverflow", claims["iss"])
}

func TestVerifyRejectsExpired(t *testing.T) {
	cfg := testConfig("another-secret-32-bytes-longgggg")
	raw, err := GenerateAccessToken(cfg, testUser(), -time.Minute)
	require.NoError(t, err)
	_, err = NewVerifier(cfg.JWT.Secret).Verify(context.Background(), raw)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := GenerateAccessToken(testConfig("secret-one-32-bytes-xxxxxxxxxxxxxxxx"), testUser(), time.Minute)
	require.NoError(t, err)
	_, err = NewVerifier("different-secret-xxxxxxxxxxxxxxxx").Verify(context.Background(), raw)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	_, err := NewVerifier("x").Verify(context.Background(), "not.a.jwt")
	require.Error(t, err)
}

func TestVerifyRejectsAlgNone(t *testing.T) {
	header := (&jwt.Token{}).EncodeSegment([]byte(`{"alg":"none"}`))
	payload := (&jwt.Token{}).EncodeSegment([]byte(`{"sub":"amy","iss":"qoverflow","exp":9999999999}`))
	_, err := NewVerifier("x").Verify(context.Background(), header+"."+payload+".")
	require.Error(t, err)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	cfg := testConfig("tamper-test-secret-32-bytes-xxxxxxx")
	raw, err := GenerateAccessToken(cfg, testUser(), 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	require.NoError(t, err)
	parts[1] = (&jwt.Token{}).EncodeSegment([]byte(strings.Replace(string(payload), `"amy"`, `"mallory"`, 1)))

	_, err = NewVerifier(cfg.JWT.Secret).Verify(context.Background(), strings.Join(parts, "."))
	require.Error(t, err)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	secret := "issuer-secret-32-bytes-xxxxxxxxxxxxx"
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "someone-else", "sub": "amy", "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = NewVerifier(secret).Verify(context.Background(), raw)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}
