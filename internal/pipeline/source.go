package pipeline

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"walletScope/internal/chain"
	"walletScope/internal/model"
)

// RPCSource reads token data straight from a node instead of an explorer
// API. Account history endpoints have no RPC equivalent, so it only covers
// the transfer-and-creation slice of ChainData; cmd wiring composes it
// with an explorer client for the rest.
type RPCSource struct {
	client *chain.Client
	// BlockWindow bounds the transfer scan from the creation block.
	window uint64
}

func NewRPCSource(client *chain.Client, blockWindow uint64) (*RPCSource, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if blockWindow == 0 {
		blockWindow = 100_000
	}
	return &RPCSource{client: client, window: blockWindow}, nil
}

// TokenTransfers scans the window after the token's creation block.
func (s *RPCSource) TokenTransfers(ctx context.Context, token string) ([]model.TransferEvent, error) {
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("invalid token address: %s", token)
	}
	addr := common.HexToAddress(token)

	creation, err := s.client.FindContractCreation(ctx, addr)
	if err != nil {
		return nil, err
	}

	latest, err := s.client.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}
	to := creation.Block + s.window
	if to > latest {
		to = latest
	}
	return s.client.FilterTransfers(ctx, addr, creation.Block, to)
}

// ContractCreation resolves the creation record from the node.
func (s *RPCSource) ContractCreation(ctx context.Context, contract string) (model.ContractCreation, error) {
	if !common.IsHexAddress(contract) {
		return model.ContractCreation{}, fmt.Errorf("invalid contract address: %s", contract)
	}
	return s.client.FindContractCreation(ctx, common.HexToAddress(contract))
}

type hybridSource struct {
	ChainData
	rpc *RPCSource
}

// NewHybridSource serves account history from the explorer and token data
// from the node, which is both cheaper and not subject to explorer lag.
func NewHybridSource(explorer ChainData, rpc *RPCSource) ChainData {
	return hybridSource{ChainData: explorer, rpc: rpc}
}

func (h hybridSource) TokenTransfers(ctx context.Context, token string) ([]model.TransferEvent, error) {
	return h.rpc.TokenTransfers(ctx, token)
}

func (h hybridSource) ContractCreation(ctx context.Context, contract string) (model.ContractCreation, error) {
	return h.rpc.ContractCreation(ctx, contract)
}
