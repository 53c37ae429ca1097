package registry

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/provenir/provenir/digest"
)

// registryABI is the contract surface: register/resolve plus the
// ContentRegistered event used to recover the original tx hash.
const registryABI = `[
  {"type":"function","name":"register","stateMutability":"nonpayable","inputs":[{"name":"contentHash","type":"bytes32"},{"name":"manifestUri","type":"string"}],"outputs":[]},
  {"type":"function","name":"resolve","stateMutability":"view","inputs":[{"name":"contentHash","type":"bytes32"}],"outputs":[{"name":"manifestUri","type":"string"},{"name":"creator","type":"address"},{"name":"registeredAt","type":"uint256"}]},
  {"type":"event","name":"ContentRegistered","inputs":[{"name":"contentHash","type":"bytes32","indexed":true},{"name":"creator","type":"address","indexed":true},{"name":"manifestUri","type":"string","indexed":false}],"anonymous":false}
]`

// Timeout bounds for chain calls. Reads are quick RPC round trips; Register
// also waits for the transaction to be mined, so its budget is generous —
// but finite, so a stuck RPC endpoint cannot hang callers indefinitely.
const (
	defaultCallTimeout     = 30 * time.Second
	defaultRegisterTimeout = 5 * time.Minute
)

// EthClient talks to the registry contract over JSON-RPC.
type EthClient struct {
	ec       *ethclient.Client
	abi      abi.ABI
	contract common.Address
	chainID  *big.Int
	key      *ecdsa.PrivateKey // nil for read-only use
	log      *slog.Logger
}

var _ Client = (*EthClient)(nil)

type EthOptions struct {
	RPCURL          string
	ContractAddress common.Address
	// Key signs register transactions; leave nil for verify-only clients.
	Key    *ecdsa.PrivateKey
	Logger *slog.Logger
}

// DialEth connects, fetches the chain id, and returns a registry client.
func DialEth(ctx context.Context, opts EthOptions) (*EthClient, error) {
	if opts.RPCURL == "" {
		return nil, &ChainError{Reason: ReasonUnreachable, Cause: errors.New("empty rpc url")}
	}
	if opts.ContractAddress == (common.Address{}) {
		return nil, errors.New("registry: zero contract address")
	}
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("registry: parsing abi: %w", err)
	}
	ec, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, &ChainError{Reason: ReasonUnreachable, Cause: err}
	}
	chainID, err := ec.ChainID(ctx)
	if err != nil {
		ec.Close()
		return nil, &ChainError{Reason: ReasonUnreachable, Cause: err}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EthClient{
		ec:       ec,
		abi:      parsed,
		contract: opts.ContractAddress,
		chainID:  chainID,
		key:      opts.Key,
		log:      log,
	}, nil
}

func (c *EthClient) Close() { c.ec.Close() }

// ChainID returns the connected chain's id.
func (c *EthClient) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *EthClient) Resolve(ctx context.Context, hash digest.Digest) (*Entry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	input, err := c.abi.Pack("resolve", [32]byte(hash))
	if err != nil {
		return nil, false, fmt.Errorf("registry: packing resolve: %w", err)
	}
	out, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: input}, nil)
	if err != nil {
		return nil, false, classify(err)
	}
	vals, err := c.abi.Unpack("resolve", out)
	if err != nil || len(vals) != 3 {
		return nil, false, fmt.Errorf("registry: unpacking resolve: %w", err)
	}
	manifestURI := vals[0].(string)
	creator := vals[1].(common.Address)
	registeredAt := vals[2].(*big.Int)

	if creator == (common.Address{}) {
		return nil, false, nil
	}

	entry := &Entry{
		ContentHash:    hash,
		ManifestURI:    manifestURI,
		CreatorAddress: creator,
		ChainID:        c.ChainID(),
		RegisteredAt:   time.Unix(registeredAt.Int64(), 0).UTC(),
	}
	if tx, err := c.lookupTxHash(ctx, hash); err == nil {
		entry.TxHash = tx
	} else {
		c.log.Debug("registry: tx hash lookup failed", "contentHash", hash.Hex(), "err", err)
	}
	return entry, true, nil
}

// lookupTxHash scans ContentRegistered logs for the hash's original tx.
// Best effort: some RPC endpoints cap log ranges.
func (c *EthClient) lookupTxHash(ctx context.Context, hash digest.Digest) (common.Hash, error) {
	event := c.abi.Events["ContentRegistered"]
	logs, err := c.ec.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{event.ID}, {common.Hash(hash)}},
	})
	if err != nil {
		return common.Hash{}, err
	}
	if len(logs) == 0 {
		return common.Hash{}, errors.New("no ContentRegistered log")
	}
	return logs[0].TxHash, nil
}

func (c *EthClient) Register(ctx context.Context, hash digest.Digest, manifestURI string) (*Entry, error) {
	if c.key == nil {
		return nil, &ChainError{Reason: ReasonNoSigningKey, Cause: errors.New("registry client is read-only")}
	}
	ctx, cancel := context.WithTimeout(ctx, defaultRegisterTimeout)
	defer cancel()

	input, err := c.abi.Pack("register", [32]byte(hash), manifestURI)
	if err != nil {
		return nil, fmt.Errorf("registry: packing register: %w", err)
	}

	from := crypto.PubkeyToAddress(c.key.PublicKey)
	nonce, err := c.ec.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, classify(err)
	}
	gasPrice, err := c.ec.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classify(err)
	}
	gasLimit, err := c.ec.EstimateGas(ctx, ethereum.CallMsg{
		From: from, To: &c.contract, Data: input, GasPrice: gasPrice,
	})
	if err != nil {
		return nil, classify(err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     input,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("registry: signing tx: %w", err)
	}
	if err := c.ec.SendTransaction(ctx, signed); err != nil {
		return nil, classify(err)
	}
	c.log.Info("registry: register submitted",
		"contentHash", hash.Hex(), "tx", signed.Hash().Hex(), "chainId", c.chainID.String())

	receipt, err := bind.WaitMined(ctx, c.ec, signed)
	if err != nil {
		return nil, classify(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &ChainError{Reason: ReasonReverted, Cause: fmt.Errorf("tx %s reverted", signed.Hash().Hex())}
	}

	header, err := c.ec.HeaderByHash(ctx, receipt.BlockHash)
	registeredAt := time.Now().UTC()
	if err == nil {
		registeredAt = time.Unix(int64(header.Time), 0).UTC()
	}

	return &Entry{
		ContentHash:    hash,
		ManifestURI:    manifestURI,
		CreatorAddress: from,
		TxHash:         signed.Hash(),
		ChainID:        c.ChainID(),
		RegisteredAt:   registeredAt,
	}, nil
}

// classify folds RPC failures into the stable ChainError reasons.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return &ChainError{Reason: ReasonInsufficientFunds, Cause: err}
	case strings.Contains(msg, "revert"):
		return &ChainError{Reason: ReasonReverted, Cause: err}
	default:
		return &ChainError{Reason: ReasonUnreachable, Cause: err}
	}
}
