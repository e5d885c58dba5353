package substrate

import (
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

const testBlockHash = "0x6e1f0e4c3c6a0c7f5f0a9c1f6f1c2d9a3b8e7d6c5b4a39281706f5e4d3c2b1a0"

// fakeNode is an in-process Substrate JSON-RPC endpoint backed by a storage map.
type fakeNode struct {
	t *testing.T

	mu         sync.Mutex
	storage    map[string]string
	failMethod string
	blockSeen  []string
	calls      map[string]int
}

func newFakeNode(t *testing.T) *fakeNode {
	return &fakeNode{t: t, storage: make(map[string]string), calls: make(map[string]int)}
}

func (n *fakeNode) setDividend(netuid uint16, accountID []byte, value uint64) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint64(raw, value)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.storage[encodeHex(dividendKey(netuid, accountID))] = encodeHex(raw)
}

func (n *fakeNode) callCount(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *fakeNode) start() string {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			n.t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()

		for {
			var req rpcRequest
			var rawParams struct {
				Params []json.RawMessage `json:"params"`
			}
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if json.Unmarshal(msg, &req) != nil || json.Unmarshal(msg, &rawParams) != nil {
				return
			}
			if err := conn.WriteJSON(n.handle(req.ID, req.Method, rawParams.Params)); err != nil {
				return
			}
		}
	}))
	n.t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (n *fakeNode) handle(id uint64, method string, params []json.RawMessage) map[string]any {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls[method]++
	resp := map[string]any{"jsonrpc": "2.0", "id": id}

	if method == n.failMethod {
		resp["error"] = map[string]any{"code": -32000, "message": "node unavailable"}
		return resp
	}

	str := func(i int) string {
		var s string
		_ = json.Unmarshal(params[i], &s)
		return s
	}

	switch method {
	case "chain_getHead":
		resp["result"] = testBlockHash

	case "state_getStorage":
		n.blockSeen = append(n.blockSeen, str(1))
		if v, ok := n.storage[str(0)]; ok {
			resp["result"] = v
		} else {
			resp["result"] = nil
		}

	case "state_getKeysPaged":
		n.blockSeen = append(n.blockSeen, str(3))
		prefix, start := str(0), str(2)
		var count int
		_ = json.Unmarshal(params[1], &count)

		var keys []string
		for k := range n.storage {
			if strings.HasPrefix(k, prefix) && k > start {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		if len(keys) > count {
			keys = keys[:count]
		}
		resp["result"] = keys

	case "state_queryStorageAt":
		n.blockSeen = append(n.blockSeen, str(1))
		var keys []string
		_ = json.Unmarshal(params[0], &keys)
		changes := make([][2]any, 0, len(keys))
		for _, k := range keys {
			changes = append(changes, [2]any{k, n.storage[k]})
		}
		resp["result"] = []map[string]any{{"block": str(1), "changes": changes}}

	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}

	return resp
}
