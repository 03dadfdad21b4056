package settlement

// calldata.go — ABI encoding for CTF redemptions.
//
// redeemPositions(collateralToken, parentCollectionId, conditionId, indexSets)
// burns the winning conditional tokens and pays out collateral. Polymarket
// binary markets always use USDC.e as collateral, the zero parent collection,
// and index sets [1, 2] (both outcome slots; the losing one redeems to zero).

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// CTF contract on Polygon — target of every redemption call.
	CTFAddress = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"
	// USDC.e on Polygon — the collateral token of every Polymarket market.
	USDCAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
)

var redeemABI abi.ABI

func init() {
	var err error
	redeemABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "redeemPositions",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "collateralToken", "type": "address"},
				{"name": "parentCollectionId", "type": "bytes32"},
				{"name": "conditionId", "type": "bytes32"},
				{"name": "indexSets", "type": "uint256[]"}
			],
			"outputs": []
		}
	]`))
	if err != nil {
		panic("redeem abi parse: " + err.Error())
	}
}

// RedeemCalldata encodes the redeemPositions calldata for one condition.
// Selector 0x01b7037c plus four ABI-encoded arguments.
func RedeemCalldata(conditionID string) (string, error) {
	cond, err := hexToBytes32(conditionID)
	if err != nil {
		return "", fmt.Errorf("settlement.RedeemCalldata: %w", err)
	}

	data, err := redeemABI.Pack("redeemPositions",
		common.HexToAddress(USDCAddress),
		[32]byte{}, // root collection
		cond,
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
	)
	if err != nil {
		return "", fmt.Errorf("settlement.RedeemCalldata: pack: %w", err)
	}

	return "0x" + hex.EncodeToString(data), nil
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
