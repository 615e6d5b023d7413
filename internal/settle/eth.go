package settle

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// settle(bytes32 sessionKey, address winner, uint256 amount)
var settleSelector = crypto.Keccak256([]byte("settle(bytes32,address,uint256)"))[:4]

const settleGasLimit = 120_000

// EthLedger submits payouts to the settlement contract over JSON-RPC, signing
// with the operator key. It is safe for concurrent use; the underlying client
// pools connections.
type EthLedger struct {
	client   *ethclient.Client
	key      *ecdsa.PrivateKey
	from     common.Address
	contract common.Address
	chainID  *big.Int
}

func NewEthLedger(rpcURL, operatorKeyHex, contractHex string, chainID int64) (*EthLedger, error) {
	if rpcURL == "" || operatorKeyHex == "" || contractHex == "" {
		return nil, errors.New("settlement_not_configured")
	}
	if !common.IsHexAddress(contractHex) {
		return nil, errors.New("bad_contract_address")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(operatorKeyHex, "0x"))
	if err != nil {
		return nil, err
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}
	return &EthLedger{
		client:   client,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		contract: common.HexToAddress(contractHex),
		chainID:  big.NewInt(chainID),
	}, nil
}

func (l *EthLedger) SubmitPayout(ctx context.Context, sessionID, winner string, amount int64) (string, error) {
	nonce, err := l.client.PendingNonceAt(ctx, l.from)
	if err != nil {
		return "", err
	}
	gasPrice, err := l.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", err
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &l.contract,
		Gas:      settleGasLimit,
		GasPrice: gasPrice,
		Data:     packSettleCall(sessionID, common.HexToAddress(winner), big.NewInt(amount)),
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(l.chainID), l.key)
	if err != nil {
		return "", err
	}
	if err := l.client.SendTransaction(ctx, signed); err != nil {
		return "", err
	}
	return signed.Hash().Hex(), nil
}

func (l *EthLedger) Receipt(ctx context.Context, txHash string) (bool, bool, error) {
	receipt, err := l.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, receipt.Status == types.ReceiptStatusSuccessful, nil
}

// packSettleCall ABI-encodes the settle call by hand: 4-byte selector, then
// three 32-byte words. Session ids are free-form strings, so the bytes32 key
// is their keccak hash.
func packSettleCall(sessionID string, winner common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+3*32)
	data = append(data, settleSelector...)
	data = append(data, crypto.Keccak256([]byte(sessionID))...)
	data = append(data, common.LeftPadBytes(winner.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}
