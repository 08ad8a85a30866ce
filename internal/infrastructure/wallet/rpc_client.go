package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
)

// RPCError is an error reported by the JSON-RPC backend itself, as opposed
// to a transport failure. The backend's message is preserved verbatim for
// operator diagnosis.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     int64         `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     int64           `json:"id"`
}

// rpcClient is a minimal Bitcoin-core style JSON-RPC client: HTTP POST with
// basic auth, sequential request ids, one configurable timeout per call.
type rpcClient struct {
	url  string
	user string
	pass string
	seq  atomic.Int64
	http *http.Client
}

func newRPCClient(s *FullNodeSettings) *rpcClient {
	scheme := "http"
	if s.TLS {
		scheme = "https"
	}
	path := strings.TrimPrefix(s.Path, "/")
	url := scheme + "://" + s.Host + ":" + strconv.Itoa(s.Port) + "/" + path
	return &rpcClient{
		url:  url,
		user: s.User,
		pass: s.Pass,
		http: &http.Client{
			Timeout: s.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
	}
}

// Call performs one RPC round trip. A non-2xx HTTP status or a non-empty
// error field is a failure; out, when non-nil, receives the decoded result.
func (c *rpcClient) Call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: c.seq.Add(1)})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.user, c.pass)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc call %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rpc call %s: read response: %w", method, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("rpc call %s: http status %d", method, resp.StatusCode)
		}
		return fmt.Errorf("rpc call %s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rpc call %s: http status %d", method, resp.StatusCode)
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("rpc call %s: decode result: %w", method, err)
		}
	}
	return nil
}
