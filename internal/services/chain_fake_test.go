// internal/services/chain_fake_test.go
package services

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storyline-backend/internal/config"
)

var (
	testRegistryAddr     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testLicenseTokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type callHandler func(args []interface{}) ([]interface{}, error)

// fakeChain answers CallContract by decoding the selector against the real
// ABIs and packing handler results with the method's output arguments.
type fakeChain struct {
	mu       sync.Mutex
	registry abi.ABI
	token    abi.ABI
	handlers map[string]callHandler
	calls    []string
	hang     map[string]bool
	delay    map[string]time.Duration
}

func newFakeChain() *fakeChain {
	registry, err := abi.JSON(strings.NewReader(BookRegistryABI))
	if err != nil {
		panic(err)
	}
	token, err := abi.JSON(strings.NewReader(LicenseTokenABI))
	if err != nil {
		panic(err)
	}
	return &fakeChain{
		registry: registry,
		token:    token,
		handlers: make(map[string]callHandler),
		hang:     make(map[string]bool),
		delay:    make(map[string]time.Duration),
	}
}

func (f *fakeChain) on(method string, h callHandler) *fakeChain {
	f.handlers[method] = h
	return f
}

func (f *fakeChain) returns(method string, values ...interface{}) *fakeChain {
	return f.on(method, func([]interface{}) ([]interface{}, error) { return values, nil })
}

func (f *fakeChain) fails(method string, err error) *fakeChain {
	return f.on(method, func([]interface{}) ([]interface{}, error) { return nil, err })
}

// hangs makes the method block until the caller's deadline expires.
func (f *fakeChain) hangs(method string) *fakeChain {
	f.hang[method] = true
	return f
}

// slow makes every call to method take d, or less if the deadline hits first.
func (f *fakeChain) slow(method string, d time.Duration) *fakeChain {
	f.delay[method] = d
	return f
}

func (f *fakeChain) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeChain) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (f *fakeChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	parsed := f.registry
	if call.To != nil && *call.To == testLicenseTokenAddr {
		parsed = f.token
	}

	method, err := parsed.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, method.Name)
	hang := f.hang[method.Name]
	handler, ok := f.handlers[method.Name]
	delay := f.delay[method.Name]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !ok {
		return nil, fmt.Errorf("unexpected call to %s", method.Name)
	}

	out, err := handler(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testChainConfig() config.BlockchainConfig {
	return config.BlockchainConfig{
		RegistryAddress:     testRegistryAddr.Hex(),
		LicenseTokenAddress: testLicenseTokenAddr.Hex(),
		CallTimeoutMs:       50,
	}
}

func newTestBlockchainService(chain *fakeChain) *BlockchainService {
	svc, err := NewBlockchainService(testChainConfig(), chain, testLogger())
	if err != nil {
		panic(err)
	}
	return svc
}
