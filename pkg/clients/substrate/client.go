package substrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type RequestMethod struct {
	Name    string
	Timeout time.Duration
}

type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint   `json:"id"`
}

type RPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint           `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

var jsonRPCVersion = "2.0"

type SubstrateClientConfig struct {
	BaseUrl        string
	RequestTimeout time.Duration
}

// Client talks JSON-RPC over HTTP to a Substrate node. Historical state reads
// need an archive node.
type Client struct {
	Logger       *zap.Logger
	httpClient   *http.Client
	clientConfig *SubstrateClientConfig
	nextId       atomic.Uint64
}

func NewClient(cfg *SubstrateClientConfig, l *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client := &http.Client{
		Timeout: timeout,
	}

	l.Sugar().Debugw("Creating new Substrate client", zap.Any("config", cfg))

	return &Client{
		httpClient:   client,
		Logger:       l,
		clientConfig: cfg,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) requestId() uint {
	return uint(c.nextId.Add(1))
}

func (c *Client) GetBlockHash(ctx context.Context, blockNumber uint64) (string, error) {
	res, err := c.Call(ctx, GetBlockHashRequest(blockNumber, c.requestId()), RPCMethod_getBlockHash.RequestMethod.Timeout)
	if err != nil {
		return "", err
	}
	hash, err := RPCMethod_getBlockHash.ResponseParser(res.Result)
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return "", errors.Wrapf(err, "block %d", blockNumber)
		}
		c.Logger.Sugar().Errorw("failed to parse block hash",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return "", err
	}
	return hash, nil
}

// GetStorage returns the raw storage value at key as of blockHash, or nil if
// the key is empty.
func (c *Client) GetStorage(ctx context.Context, key string, blockHash string) ([]byte, error) {
	res, err := c.Call(ctx, GetStorageRequest(key, blockHash, c.requestId()), RPCMethod_getStorage.RequestMethod.Timeout)
	if err != nil {
		return nil, err
	}
	value, err := RPCMethod_getStorage.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to parse storage value",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return nil, err
	}
	return value, nil
}

func (c *Client) GetFinalizedHead(ctx context.Context) (string, error) {
	res, err := c.Call(ctx, GetFinalizedHeadRequest(c.requestId()), RPCMethod_getFinalizedHead.RequestMethod.Timeout)
	if err != nil {
		return "", err
	}
	return RPCMethod_getFinalizedHead.ResponseParser(res.Result)
}

func (c *Client) GetHeader(ctx context.Context, blockHash string) (*Header, error) {
	res, err := c.Call(ctx, GetHeaderRequest(blockHash, c.requestId()), RPCMethod_getHeader.RequestMethod.Timeout)
	if err != nil {
		return nil, err
	}
	header, err := RPCMethod_getHeader.ResponseParser(res.Result)
	if err != nil {
		if !errors.Is(err, ErrBlockNotFound) {
			c.Logger.Sugar().Errorw("failed to parse header",
				zap.Error(err),
				zap.Any("raw response", res.Result),
			)
		}
		return nil, err
	}
	return header, nil
}

// GetFinalizedBlockNumber resolves the height of the latest finalized block.
func (c *Client) GetFinalizedBlockNumber(ctx context.Context) (uint64, error) {
	hash, err := c.GetFinalizedHead(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to fetch finalized head")
	}
	header, err := c.GetHeader(ctx, hash)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to fetch header %s", hash)
	}
	return header.Number, nil
}

// Call performs a single request. Retrying is left to the caller.
func (c *Client) Call(ctx context.Context, rpcRequest *RPCRequest, timeout time.Duration) (*RPCResponse, error) {
	requestBody, err := json.Marshal(rpcRequest)
	if err != nil {
		return nil, err
	}
	c.Logger.Sugar().Debugw("Request body", zap.String("requestBody", string(requestBody)))

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.clientConfig.BaseUrl, bytes.NewReader(requestBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to make request")
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrapf(err, "%s request failed", rpcRequest.Method)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read body")
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received http error code %+v", response.StatusCode)
	}

	destination := &RPCResponse{}
	if err := json.Unmarshal(responseBody, destination); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}
	if destination.Error != nil {
		return nil, errors.Wrapf(destination.Error, "%s returned an error", rpcRequest.Method)
	}
	return destination, nil
}
