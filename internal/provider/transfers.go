package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Asset-transfer categories understood by the indexing service.
const (
	CategoryExternal = "external"
	CategoryInternal = "internal"
	CategoryERC20    = "erc20"
	CategoryERC721   = "erc721"
	CategoryERC1155  = "erc1155"
)

// AllCategories is the full category set scanned by default.
var AllCategories = []string{
	CategoryExternal, CategoryInternal, CategoryERC20, CategoryERC721, CategoryERC1155,
}

// TransferQuery selects asset transfers by direction and block range.
// Exactly one of FromAddress or ToAddress should be set.
type TransferQuery struct {
	FromBlock   string          `json:"fromBlock"`
	ToBlock     string          `json:"toBlock"`
	FromAddress *common.Address `json:"fromAddress,omitempty"`
	ToAddress   *common.Address `json:"toAddress,omitempty"`
	Categories  []string        `json:"category"`
}

// Transfer is one raw transfer row from the indexing service.
// Value is kept as the service's decimal representation.
type Transfer struct {
	BlockNum hexutil.Uint64  `json:"blockNum"`
	Hash     common.Hash     `json:"hash"`
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to"`
	Value    json.Number     `json:"value"`
	Asset    string          `json:"asset"`
}

// transferResult is the result envelope of alchemy_getAssetTransfers.
type transferResult struct {
	Transfers []Transfer `json:"transfers"`
	PageKey   string     `json:"pageKey,omitempty"`
}

// AssetTransfers queries the ledger-indexing service for transfers matching
// q, following pagination until the full range is returned.
func (c *Client) AssetTransfers(ctx context.Context, q TransferQuery) ([]Transfer, error) {
	if q.FromBlock == "" {
		q.FromBlock = "0x0"
	}
	if q.ToBlock == "" {
		q.ToBlock = "latest"
	}
	if len(q.Categories) == 0 {
		q.Categories = AllCategories
	}

	params := map[string]interface{}{
		"fromBlock": q.FromBlock,
		"toBlock":   q.ToBlock,
		"category":  q.Categories,
	}
	if q.FromAddress != nil {
		params["fromAddress"] = q.FromAddress
	}
	if q.ToAddress != nil {
		params["toAddress"] = q.ToAddress
	}

	var all []Transfer
	for {
		callCtx, cancel := c.withDeadline(ctx)
		var result transferResult
		err := c.rpc.CallContext(callCtx, &result, "alchemy_getAssetTransfers", params)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("alchemy_getAssetTransfers: %w", err)
		}

		all = append(all, result.Transfers...)
		if result.PageKey == "" {
			return all, nil
		}
		params["pageKey"] = result.PageKey
	}
}
