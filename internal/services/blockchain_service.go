// internal/services/blockchain_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storyline-backend/internal/config"
	"github.com/javajoker/storyline-backend/internal/metrics"
	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

// MaxLicenseTokenScan bounds how many of a holder's license tokens are
// inspected when looking for one issued by a given IP asset.
const MaxLicenseTokenScan = 50

// BookRegistryABI covers the read functions of the book registry contract.
// unlockChapter is listed for completeness; this service never sends it.
const BookRegistryABI = `[
	{
		"type": "function",
		"name": "isBookActive",
		"inputs": [{"name": "bookId", "type": "bytes32"}],
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "hasUnlockedChapter",
		"inputs": [
			{"name": "user", "type": "address"},
			{"name": "bookId", "type": "bytes32"},
			{"name": "chapterNumber", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "books",
		"inputs": [{"name": "bookId", "type": "bytes32"}],
		"outputs": [
			{"name": "curator", "type": "address"},
			{"name": "isDerivative", "type": "bool"},
			{"name": "parentBookId", "type": "bytes32"},
			{"name": "totalChapters", "type": "uint256"},
			{"name": "isActive", "type": "bool"},
			{"name": "metadataHash", "type": "string"}
		],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "unlockChapter",
		"inputs": [
			{"name": "bookId", "type": "bytes32"},
			{"name": "chapterNumber", "type": "uint256"}
		],
		"outputs": [],
		"stateMutability": "payable"
	}
]`

// LicenseTokenABI is the enumerable subset of the license token contract.
const LicenseTokenABI = `[
	{
		"type": "function",
		"name": "balanceOf",
		"inputs": [{"name": "owner", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "tokenOfOwnerByIndex",
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "index", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "getLicensorIpId",
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"outputs": [{"name": "", "type": "address"}],
		"stateMutability": "view"
	}
]`

var errNoCaller = errors.New("no contract caller configured")

// ChainRegistry is the read-only view of the chain the access path needs.
type ChainRegistry interface {
	IsBookActive(ctx context.Context, bookID string) (bool, error)
	HasUnlockedChapter(ctx context.Context, userAddress, bookID string, chapterNumber int) (bool, error)
	HoldsLicenseToken(ctx context.Context, holderAddress, ipAssetID string) (bool, error)
	GetBook(ctx context.Context, bookID string) (*models.BookRegistration, error)
}

type BlockchainService struct {
	caller       bind.ContractCaller
	registryABI  abi.ABI
	tokenABI     abi.ABI
	registry     common.Address
	licenseToken common.Address
	callTimeout  time.Duration
	log          *logrus.Logger
}

// DialBlockchain opens an RPC client usable as a bind.ContractCaller.
func DialBlockchain(ctx context.Context, cfg config.BlockchainConfig) (*ethclient.Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("blockchain RPC URL is not configured")
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial blockchain RPC: %w", err)
	}
	return client, nil
}

func NewBlockchainService(cfg config.BlockchainConfig, caller bind.ContractCaller, log *logrus.Logger) (*BlockchainService, error) {
	registryABI, err := abi.JSON(strings.NewReader(BookRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}
	tokenABI, err := abi.JSON(strings.NewReader(LicenseTokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse license token ABI: %w", err)
	}

	timeout := cfg.CallTimeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &BlockchainService{
		caller:       caller,
		registryABI:  registryABI,
		tokenABI:     tokenABI,
		registry:     common.HexToAddress(cfg.RegistryAddress),
		licenseToken: common.HexToAddress(cfg.LicenseTokenAddress),
		callTimeout:  timeout,
		log:          log,
	}, nil
}

func (s *BlockchainService) IsBookActive(ctx context.Context, bookID string) (bool, error) {
	out, err := s.call(ctx, s.registry, s.registryABI, "isBookActive", utils.BookIDHash(bookID))
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (s *BlockchainService) HasUnlockedChapter(ctx context.Context, userAddress, bookID string, chapterNumber int) (bool, error) {
	if !common.IsHexAddress(userAddress) {
		return false, utils.NewValidationError("user_address", "invalid wallet address")
	}
	out, err := s.call(ctx, s.registry, s.registryABI, "hasUnlockedChapter",
		common.HexToAddress(userAddress), utils.BookIDHash(bookID), big.NewInt(int64(chapterNumber)))
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// HoldsLicenseToken walks the holder's license tokens looking for one whose
// licensor is ipAssetID. The whole scan shares one call timeout, so a slow
// node cannot stretch it to one timeout per token.
func (s *BlockchainService) HoldsLicenseToken(ctx context.Context, holderAddress, ipAssetID string) (bool, error) {
	if s.licenseToken == (common.Address{}) {
		return false, nil
	}
	if !common.IsHexAddress(holderAddress) {
		return false, utils.NewValidationError("user_address", "invalid wallet address")
	}
	if !common.IsHexAddress(ipAssetID) {
		return false, utils.NewValidationError("ip_asset_id", "ip_asset_id must be an address")
	}

	holder := common.HexToAddress(holderAddress)
	licensor := common.HexToAddress(ipAssetID)

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	out, err := s.call(ctx, s.licenseToken, s.tokenABI, "balanceOf", holder)
	if err != nil {
		return false, err
	}
	balance := out[0].(*big.Int)
	limit := int64(MaxLicenseTokenScan)
	if balance.IsInt64() && balance.Int64() < limit {
		limit = balance.Int64()
	}

	for i := int64(0); i < limit; i++ {
		out, err := s.call(ctx, s.licenseToken, s.tokenABI, "tokenOfOwnerByIndex", holder, big.NewInt(i))
		if err != nil {
			return false, err
		}
		tokenID := out[0].(*big.Int)

		out, err = s.call(ctx, s.licenseToken, s.tokenABI, "getLicensorIpId", tokenID)
		if err != nil {
			return false, err
		}
		if out[0].(common.Address) == licensor {
			return true, nil
		}
	}
	return false, nil
}

func (s *BlockchainService) GetBook(ctx context.Context, bookID string) (*models.BookRegistration, error) {
	key := utils.BookIDHash(bookID)
	out, err := s.call(ctx, s.registry, s.registryABI, "books", key)
	if err != nil {
		return nil, err
	}

	book := &models.BookRegistration{
		BookID:        bookID,
		BookHash:      common.Hash(key),
		Curator:       out[0].(common.Address),
		IsDerivative:  out[1].(bool),
		ParentBookID:  common.Hash(out[2].([32]byte)),
		TotalChapters: out[3].(*big.Int),
		IsActive:      out[4].(bool),
		MetadataHash:  out[5].(string),
	}
	if !book.IsActive && book.TotalChapters.Sign() == 0 && !book.HasCurator() {
		return nil, &utils.NotFoundError{Resource: "book", ID: bookID, Hint: "Register the book on chain before enabling paid chapters"}
	}
	return book, nil
}

func (s *BlockchainService) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if s.caller == nil {
		return nil, utils.NewExternalDependencyError("blockchain", method, errNoCaller)
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.caller.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: data}, nil)
	metrics.ChainCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"method":   method,
			"contract": to.Hex(),
		}).WithError(err).Debug("Contract call failed")
		return nil, utils.NewExternalDependencyError("blockchain", method, err)
	}

	out, err := parsed.Unpack(method, result)
	if err != nil {
		return nil, utils.NewExternalDependencyError("blockchain", method, fmt.Errorf("failed to unpack result: %w", err))
	}
	return out, nil
}
