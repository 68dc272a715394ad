// internal/services/auth_service_test.go
package services

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storyline-backend/internal/config"
	"github.com/javajoker/storyline-backend/internal/utils"
)

func signMessage(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func newTestAuthService() *AuthService {
	return NewAuthService(NewMemoryNonceStore(), config.JWTConfig{SecretKey: "test", AccessTokenTTL: 1})
}

func TestAuthService_SignInRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	wallet := crypto.PubkeyToAddress(key.PublicKey).Hex()
	svc := newTestAuthService()
	ctx := context.Background()

	challenge, err := svc.IssueNonce(ctx, NonceRequest{WalletAddress: wallet})
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(wallet), challenge.WalletAddress)
	assert.Contains(t, challenge.Message, challenge.Nonce)

	resp, err := svc.Login(ctx, LoginRequest{WalletAddress: wallet, Signature: signMessage(t, key, challenge.Message)})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(wallet), claims.WalletAddress)
}

func TestAuthService_NonceIsSingleUse(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	wallet := crypto.PubkeyToAddress(key.PublicKey).Hex()
	svc := newTestAuthService()
	ctx := context.Background()

	challenge, err := svc.IssueNonce(ctx, NonceRequest{WalletAddress: wallet})
	require.NoError(t, err)
	sig := signMessage(t, key, challenge.Message)

	_, err = svc.Login(ctx, LoginRequest{WalletAddress: wallet, Signature: sig})
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginRequest{WalletAddress: wallet, Signature: sig})
	assert.True(t, utils.IsUnauthorized(err))
}

func TestAuthService_WrongSignerIsRejected(t *testing.T) {
	owner, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	wallet := crypto.PubkeyToAddress(owner.PublicKey).Hex()
	svc := newTestAuthService()
	ctx := context.Background()

	challenge, err := svc.IssueNonce(ctx, NonceRequest{WalletAddress: wallet})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{WalletAddress: wallet, Signature: signMessage(t, other, challenge.Message)})
	assert.True(t, utils.IsUnauthorized(err))
}

func TestAuthService_MalformedInput(t *testing.T) {
	svc := newTestAuthService()
	ctx := context.Background()

	_, err := svc.IssueNonce(ctx, NonceRequest{WalletAddress: "0x123"})
	assert.True(t, utils.IsValidationError(err))

	_, err = svc.Login(ctx, LoginRequest{WalletAddress: testReader, Signature: "0xdead"})
	assert.True(t, utils.IsValidationError(err))
}

func TestMemoryNonceStore_Expires(t *testing.T) {
	store := NewMemoryNonceStore()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testReader, "n1", time.Minute))
	now = now.Add(2 * time.Minute)

	_, ok, err := store.Take(ctx, testReader)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisNonceStore_TakeOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisNonceStore(client, "test")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testReader, "n1", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("test:nonce:"+testReader))

	nonce, ok, err := store.Take(ctx, testReader)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "n1", nonce)

	_, ok, err = store.Take(ctx, testReader)
	require.NoError(t, err)
	assert.False(t, ok)
}
