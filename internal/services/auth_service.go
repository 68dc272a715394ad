// internal/services/auth_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/javajoker/storyline-backend/internal/config"
	"github.com/javajoker/storyline-backend/internal/utils"
)

// NonceTTL bounds how long a sign-in challenge stays valid.
const NonceTTL = 5 * time.Minute

// AuthService signs wallets in with an EIP-191 personal_sign challenge and
// issues JWTs bound to the wallet address.
type AuthService struct {
	nonces NonceStore
	cfg    config.JWTConfig
	now    func() time.Time
}

type NonceRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

type NonceResponse struct {
	WalletAddress string    `json:"wallet_address"`
	Nonce         string    `json:"nonce"`
	Message       string    `json:"message"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type LoginRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

type AuthResponse struct {
	WalletAddress string `json:"wallet_address"`
	AccessToken   string `json:"access_token"`
	TokenType     string `json:"token_type"`
	ExpiresIn     int    `json:"expires_in"` // in seconds
}

func NewAuthService(nonces NonceStore, cfg config.JWTConfig) *AuthService {
	return &AuthService{
		nonces: nonces,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SignInMessage is the exact text the wallet signs.
func SignInMessage(wallet, nonce string) string {
	return fmt.Sprintf("Sign in to Storyline\nWallet: %s\nNonce: %s", wallet, nonce)
}

func (s *AuthService) IssueNonce(ctx context.Context, req NonceRequest) (*NonceResponse, error) {
	if err := utils.ValidateWalletAddress("wallet_address", req.WalletAddress); err != nil {
		return nil, err
	}
	wallet := strings.ToLower(req.WalletAddress)
	nonce := uuid.NewString()

	if err := s.nonces.Put(ctx, wallet, nonce, NonceTTL); err != nil {
		return nil, err
	}

	return &NonceResponse{
		WalletAddress: wallet,
		Nonce:         nonce,
		Message:       SignInMessage(wallet, nonce),
		ExpiresAt:     s.now().Add(NonceTTL).UTC(),
	}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateWalletAddress("wallet_address", req.WalletAddress); err != nil {
		return nil, err
	}
	wallet := strings.ToLower(req.WalletAddress)

	sig, err := hexutil.Decode(req.Signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return nil, utils.NewValidationError("signature", "signature must be a 65-byte hex string")
	}

	nonce, ok, err := s.nonces.Take(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &utils.UnauthorizedError{Action: "sign in", Reason: "no pending sign-in challenge; request a new nonce"}
	}

	signer, err := recoverSigner(SignInMessage(wallet, nonce), sig)
	if err != nil || signer != common.HexToAddress(wallet) {
		return nil, &utils.UnauthorizedError{Action: "sign in", Reason: "signature does not match wallet"}
	}

	token, err := utils.GenerateJWT(wallet, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		WalletAddress: wallet,
		AccessToken:   token,
		TokenType:     "Bearer",
		ExpiresIn:     s.cfg.AccessTokenTTL * 3600,
	}, nil
}

func recoverSigner(message string, sig []byte) (common.Address, error) {
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
