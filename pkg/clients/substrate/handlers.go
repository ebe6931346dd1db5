package substrate

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

type ResponseParserFunc[T any] func(res json.RawMessage) (T, error)

type RequestResponseHandler[T any] struct {
	RequestMethod  *RequestMethod
	ResponseParser ResponseParserFunc[T]
}

var ErrBlockNotFound = errors.New("block not found")

type Header struct {
	ParentHash     string
	Number         uint64
	StateRoot      string
	ExtrinsicsRoot string
}

type rawHeader struct {
	ParentHash     string `json:"parentHash"`
	Number         string `json:"number"`
	StateRoot      string `json:"stateRoot"`
	ExtrinsicsRoot string `json:"extrinsicsRoot"`
}

// parseOptionalHex parses a result that is either null or a 0x prefixed hex
// string.
func parseOptionalHex(res json.RawMessage) (*string, error) {
	var value *string
	if err := json.Unmarshal(res, &value); err != nil {
		return nil, err
	}
	return value, nil
}

var (
	RPCMethod_getBlockHash = &RequestResponseHandler[string]{
		RequestMethod: &RequestMethod{
			Name:    "chain_getBlockHash",
			Timeout: time.Second * 10,
		},
		ResponseParser: func(res json.RawMessage) (string, error) {
			hash, err := parseOptionalHex(res)
			if err != nil {
				return "", err
			}
			// null for heights the chain has not produced yet
			if hash == nil {
				return "", ErrBlockNotFound
			}
			return *hash, nil
		},
	}
	RPCMethod_getStorage = &RequestResponseHandler[[]byte]{
		RequestMethod: &RequestMethod{
			Name:    "state_getStorage",
			Timeout: time.Second * 10,
		},
		ResponseParser: func(res json.RawMessage) ([]byte, error) {
			value, err := parseOptionalHex(res)
			if err != nil {
				return nil, err
			}
			if value == nil {
				return nil, nil
			}
			return hexutil.Decode(*value)
		},
	}
	RPCMethod_getFinalizedHead = &RequestResponseHandler[string]{
		RequestMethod: &RequestMethod{
			Name:    "chain_getFinalizedHead",
			Timeout: time.Second * 10,
		},
		ResponseParser: func(res json.RawMessage) (string, error) {
			var hash string
			if err := json.Unmarshal(res, &hash); err != nil {
				return "", err
			}
			return hash, nil
		},
	}
	RPCMethod_getHeader = &RequestResponseHandler[*Header]{
		RequestMethod: &RequestMethod{
			Name:    "chain_getHeader",
			Timeout: time.Second * 10,
		},
		ResponseParser: func(res json.RawMessage) (*Header, error) {
			var raw *rawHeader
			if err := json.Unmarshal(res, &raw); err != nil {
				return nil, err
			}
			if raw == nil {
				return nil, ErrBlockNotFound
			}
			number, err := hexutil.DecodeUint64(raw.Number)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid header number '%s'", raw.Number)
			}
			return &Header{
				ParentHash:     raw.ParentHash,
				Number:         number,
				StateRoot:      raw.StateRoot,
				ExtrinsicsRoot: raw.ExtrinsicsRoot,
			}, nil
		},
	}
)

func GetBlockHashRequest(blockNumber uint64, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getBlockHash.RequestMethod.Name,
		Params:  []interface{}{blockNumber},
		ID:      id,
	}
}

func GetStorageRequest(key string, blockHash string, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getStorage.RequestMethod.Name,
		Params:  []interface{}{key, blockHash},
		ID:      id,
	}
}

func GetFinalizedHeadRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getFinalizedHead.RequestMethod.Name,
		Params:  []interface{}{},
		ID:      id,
	}
}

func GetHeaderRequest(blockHash string, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getHeader.RequestMethod.Name,
		Params:  []interface{}{blockHash},
		ID:      id,
	}
}
