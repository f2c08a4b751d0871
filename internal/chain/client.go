package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"walletScope/internal/model"
)

// TransferTopic is topic0 of the ERC-20 Transfer event.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// CodeAt returns the contract code at the given block.
func (c *Client) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CodeAt(ctx, contract, blockNumber)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// FindContractCreation locates the block a contract first has code in by
// binary search, then scans that block for the creation transaction.
func (c *Client) FindContractCreation(ctx context.Context, contract common.Address) (model.ContractCreation, error) {
	latest, err := c.LatestBlockNumber(ctx)
	if err != nil {
		return model.ContractCreation{}, fmt.Errorf("latest block: %w", err)
	}

	code, err := c.CodeAt(ctx, contract, new(big.Int).SetUint64(latest))
	if err != nil {
		return model.ContractCreation{}, fmt.Errorf("code at head: %w", err)
	}
	if len(code) == 0 {
		return model.ContractCreation{}, fmt.Errorf("no code at %s", contract.Hex())
	}

	// First block where the contract has code.
	lo, hi := uint64(0), latest
	for lo < hi {
		mid := lo + (hi-lo)/2
		code, err := c.CodeAt(ctx, contract, new(big.Int).SetUint64(mid))
		if err != nil {
			return model.ContractCreation{}, fmt.Errorf("code at %d: %w", mid, err)
		}
		if len(code) > 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	return c.creationInBlock(ctx, contract, lo)
}

func (c *Client) creationInBlock(ctx context.Context, contract common.Address, number uint64) (model.ContractCreation, error) {
	block, err := c.ethClient.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return model.ContractCreation{}, fmt.Errorf("block %d: %w", number, err)
	}

	for _, tx := range block.Transactions() {
		if tx.To() != nil {
			continue
		}
		receipt, err := c.ethClient.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			return model.ContractCreation{}, fmt.Errorf("receipt %s: %w", tx.Hash().Hex(), err)
		}
		if receipt.ContractAddress != contract {
			continue
		}
		sender, err := c.ethClient.TransactionSender(ctx, tx, block.Hash(), receipt.TransactionIndex)
		if err != nil {
			return model.ContractCreation{}, fmt.Errorf("sender %s: %w", tx.Hash().Hex(), err)
		}
		return model.ContractCreation{
			Deployer:  canonical(sender),
			TxHash:    tx.Hash().Hex(),
			Block:     number,
			Timestamp: block.Time(),
		}, nil
	}

	// Contracts created by another contract have no top-level creation tx.
	return model.ContractCreation{
		Block:     number,
		Timestamp: block.Time(),
	}, nil
}

// FilterTransfers returns decoded ERC-20 transfers of a token within a
// block range. Logs that do not decode as transfers are skipped.
func (c *Client) FilterTransfers(ctx context.Context, token common.Address, fromBlock, toBlock uint64) ([]model.TransferEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{token},
		Topics:    [][]common.Hash{{TransferTopic}},
	}
	logs, err := c.ethClient.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter transfers: %w", err)
	}

	events := make([]model.TransferEvent, 0, len(logs))
	for _, log := range logs {
		ev, ok := decodeTransfer(log)
		if !ok {
			continue
		}
		ts, err := c.BlockTimestamp(ctx, log.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("timestamp for block %d: %w", log.BlockNumber, err)
		}
		ev.Timestamp = ts
		events = append(events, ev)
	}
	return events, nil
}

func decodeTransfer(log types.Log) (model.TransferEvent, bool) {
	if len(log.Topics) != 3 || log.Topics[0] != TransferTopic {
		return model.TransferEvent{}, false
	}
	if len(log.Data) != 32 {
		return model.TransferEvent{}, false
	}
	return model.TransferEvent{
		From:  canonical(common.BytesToAddress(log.Topics[1].Bytes())),
		To:    canonical(common.BytesToAddress(log.Topics[2].Bytes())),
		Value: new(big.Int).SetBytes(log.Data),
		Block: log.BlockNumber,
	}, true
}

func canonical(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
