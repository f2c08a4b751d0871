package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"walletScope/internal/model"
)

// ZeroAddress is the canonical burn address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Address returns the canonical (lowercase hex) form of a wallet address.
// All maps and sets keyed by address must use this form.
func Address(input string) (string, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return "", fmt.Errorf("invalid address: %s", input)
	}
	return strings.ToLower(common.HexToAddress(input).Hex()), nil
}

// Addresses canonicalizes a list, dropping duplicates while preserving order.
func Addresses(inputs []string) ([]string, error) {
	out := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		addr, err := Address(input)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}

// IsZero reports whether addr is the canonical burn address.
func IsZero(addr string) bool {
	return strings.ToLower(addr) == ZeroAddress
}

// Events canonicalizes transfer events and drops zero-value or malformed
// records. The result is sorted ascending by timestamp, then block.
func Events(events []model.TransferEvent) []model.TransferEvent {
	out := make([]model.TransferEvent, 0, len(events))
	for _, ev := range events {
		if ev.Value == nil || ev.Value.Sign() <= 0 {
			continue
		}
		from, err := Address(ev.From)
		if err != nil {
			continue
		}
		to, err := Address(ev.To)
		if err != nil {
			continue
		}
		ev.From = from
		ev.To = to
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].Block < out[j].Block
	})

	return out
}

// Transactions canonicalizes transaction records, dropping malformed ones.
// Creation transactions keep an empty To and a canonical ContractAddress.
func Transactions(records []model.TransactionRecord) []model.TransactionRecord {
	out := make([]model.TransactionRecord, 0, len(records))
	for _, rec := range records {
		if rec.Hash == "" {
			continue
		}
		from, err := Address(rec.From)
		if err != nil {
			continue
		}
		rec.From = from

		if rec.To != "" {
			to, err := Address(rec.To)
			if err != nil {
				continue
			}
			rec.To = to
		}
		if rec.ContractAddress != "" {
			created, err := Address(rec.ContractAddress)
			if err != nil {
				continue
			}
			rec.ContractAddress = created
		}
		out = append(out, rec)
	}
	return out
}
