package onchain

// ctf.go — Read-only resolution checks against the Conditional Token
// Framework contract on Polygon.
//
// A market is resolved iff payoutDenominator(conditionId) != 0; the
// per-outcome payoutNumerators give the payout weights. Both are plain
// eth_call views, no gas and no signer needed.

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// CTF contract on Polygon — holds conditional tokens and resolution state.
const CTFAddress = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"

var ctfABI abi.ABI

func init() {
	var err error
	ctfABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "payoutDenominator",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "conditionId", "type": "bytes32"}],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "payoutNumerators",
			"type": "function",
			"stateMutability": "view",
			"inputs": [
				{"name": "conditionId", "type": "bytes32"},
				{"name": "index", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		}
	]`))
	if err != nil {
		panic("ctf abi parse: " + err.Error())
	}
}

// CTFReader implements ports.ChainReader against a Polygon RPC endpoint.
type CTFReader struct {
	client *ethclient.Client
	ctf    common.Address
}

// NewCTFReader dials the given RPC URL.
func NewCTFReader(rpcURL string) (*CTFReader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain.NewCTFReader: dial %s: %w", rpcURL, err)
	}
	return &CTFReader{client: client, ctf: common.HexToAddress(CTFAddress)}, nil
}

// PayoutDenominator returns the resolution denominator for a condition.
func (r *CTFReader) PayoutDenominator(ctx context.Context, conditionID string) (uint64, error) {
	cond, err := hexToBytes32(conditionID)
	if err != nil {
		return 0, fmt.Errorf("onchain.PayoutDenominator: %w", err)
	}

	callData, err := ctfABI.Pack("payoutDenominator", cond)
	if err != nil {
		return 0, fmt.Errorf("onchain.PayoutDenominator: pack: %w", err)
	}

	return r.callUint(ctx, "payoutDenominator", callData)
}

// PayoutNumerator returns the payout numerator for one outcome index.
func (r *CTFReader) PayoutNumerator(ctx context.Context, conditionID string, index int) (uint64, error) {
	cond, err := hexToBytes32(conditionID)
	if err != nil {
		return 0, fmt.Errorf("onchain.PayoutNumerator: %w", err)
	}

	callData, err := ctfABI.Pack("payoutNumerators", cond, big.NewInt(int64(index)))
	if err != nil {
		return 0, fmt.Errorf("onchain.PayoutNumerator: pack: %w", err)
	}

	return r.callUint(ctx, "payoutNumerators", callData)
}

// callUint executes an eth_call and unpacks a single uint256 result.
func (r *CTFReader) callUint(ctx context.Context, method string, callData []byte) (uint64, error) {
	result, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &r.ctf,
		Data: callData,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("onchain.%s: call: %w", method, err)
	}

	vals, err := ctfABI.Unpack(method, result)
	if err != nil || len(vals) == 0 {
		return 0, fmt.Errorf("onchain.%s: unpack: %w", method, err)
	}
	return vals[0].(*big.Int).Uint64(), nil
}

// hexToBytes32 converts a 0x-prefixed hex string to [32]byte.
func hexToBytes32(s string) ([32]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return [32]byte{}, fmt.Errorf("expected 64 hex chars, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return [32]byte{}, err
	}
	var arr [32]byte
	copy(arr[:], b)
	return arr, nil
}
