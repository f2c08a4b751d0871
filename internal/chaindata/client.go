package chaindata

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"walletScope/internal/model"
	"walletScope/internal/normalize"
	"walletScope/internal/ratelimit"
)

// Client talks to an etherscan-compatible account API. Every call passes
// through the rate limiter first; explorer keys are throttled hard.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    ratelimit.Limiter
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, limiter ratelimit.Limiter, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("explorer base url is required")
	}
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// NewClientWithHTTP creates a client with a custom HTTP client, for tests.
func NewClientWithHTTP(httpClient *http.Client, baseURL, apiKey string, limiter ratelimit.Limiter, logger *zap.Logger) (*Client, error) {
	c, err := NewClient(baseURL, apiKey, limiter, logger)
	if err != nil {
		return nil, err
	}
	c.httpClient = httpClient
	return c, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Explorer records carry every numeric field as a decimal string.
type txRecord struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
}

type creationRecord struct {
	ContractAddress string `json:"contractAddress"`
	ContractCreator string `json:"contractCreator"`
	TxHash          string `json:"txHash"`
}

// NormalTransactions lists external transactions sent or received by an
// address, oldest first.
func (c *Client) NormalTransactions(ctx context.Context, address string) ([]model.TransactionRecord, error) {
	params := url.Values{
		"module":  {"account"},
		"action":  {"txlist"},
		"address": {address},
		"sort":    {"asc"},
	}
	return c.fetchTransactions(ctx, params)
}

// InternalTransactions lists internal transactions for an address. Factory
// deployments surface here: the created token appears as contractAddress.
func (c *Client) InternalTransactions(ctx context.Context, address string) ([]model.TransactionRecord, error) {
	params := url.Values{
		"module":  {"account"},
		"action":  {"txlistinternal"},
		"address": {address},
		"sort":    {"asc"},
	}
	return c.fetchTransactions(ctx, params)
}

// TokenTransfers lists ERC-20 transfers of one token contract, oldest
// first. Records that do not parse are skipped.
func (c *Client) TokenTransfers(ctx context.Context, token string) ([]model.TransferEvent, error) {
	params := url.Values{
		"module":          {"account"},
		"action":          {"tokentx"},
		"contractaddress": {token},
		"sort":            {"asc"},
	}

	var records []txRecord
	if err := c.call(ctx, params, &records); err != nil {
		return nil, err
	}

	events := make([]model.TransferEvent, 0, len(records))
	for _, rec := range records {
		value, ok := new(big.Int).SetString(rec.Value, 10)
		if !ok {
			c.logger.Debug("skipping transfer with bad value", zap.String("hash", rec.Hash))
			continue
		}
		block, err1 := strconv.ParseUint(rec.BlockNumber, 10, 64)
		ts, err2 := strconv.ParseUint(rec.TimeStamp, 10, 64)
		if err1 != nil || err2 != nil {
			c.logger.Debug("skipping transfer with bad block fields", zap.String("hash", rec.Hash))
			continue
		}
		events = append(events, model.TransferEvent{
			From:      rec.From,
			To:        rec.To,
			Value:     value,
			Block:     block,
			Timestamp: ts,
		})
	}
	return events, nil
}

// ContractCreation resolves the deployer and creation tx of a contract.
func (c *Client) ContractCreation(ctx context.Context, contract string) (model.ContractCreation, error) {
	params := url.Values{
		"module":            {"contract"},
		"action":            {"getcontractcreation"},
		"contractaddresses": {contract},
	}

	var records []creationRecord
	if err := c.call(ctx, params, &records); err != nil {
		return model.ContractCreation{}, err
	}
	if len(records) == 0 {
		return model.ContractCreation{}, fmt.Errorf("no creation record for %s", contract)
	}

	deployer, err := normalize.Address(records[0].ContractCreator)
	if err != nil {
		return model.ContractCreation{}, fmt.Errorf("creation record for %s: %w", contract, err)
	}
	return model.ContractCreation{
		Deployer: deployer,
		TxHash:   records[0].TxHash,
	}, nil
}

func (c *Client) fetchTransactions(ctx context.Context, params url.Values) ([]model.TransactionRecord, error) {
	var records []txRecord
	if err := c.call(ctx, params, &records); err != nil {
		return nil, err
	}

	out := make([]model.TransactionRecord, 0, len(records))
	for _, rec := range records {
		value, ok := new(big.Int).SetString(rec.Value, 10)
		if !ok {
			value = big.NewInt(0)
		}
		block, err1 := strconv.ParseUint(rec.BlockNumber, 10, 64)
		ts, err2 := strconv.ParseUint(rec.TimeStamp, 10, 64)
		if err1 != nil || err2 != nil {
			c.logger.Debug("skipping tx with bad block fields", zap.String("hash", rec.Hash))
			continue
		}
		out = append(out, model.TransactionRecord{
			Hash:            rec.Hash,
			From:            rec.From,
			To:              rec.To,
			ContractAddress: rec.ContractAddress,
			Value:           value,
			Block:           block,
			Timestamp:       ts,
		})
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	endpoint := c.baseURL + "/api?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	// The explorer reports an empty result set as status 0.
	if env.Status != "1" {
		if env.Message == "No transactions found" || string(env.Result) == `[]` {
			return nil
		}
		return fmt.Errorf("explorer error: %s", env.Message)
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}
