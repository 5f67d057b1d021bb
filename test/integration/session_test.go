package integration_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gin-gonic/gin"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walletsession "github.com/x402-foundation/walletsession"
	sessionhttp "github.com/x402-foundation/walletsession/http"
	"github.com/x402-foundation/walletsession/mcp"
	sessiongin "github.com/x402-foundation/walletsession/pkg/gin"
	"github.com/x402-foundation/walletsession/providers/evm"
)

const (
	testKey0     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress0 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testKey1     = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	testAddress1 = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

type ethService struct {
	balances map[common.Address]*big.Int
}

func (s *ethService) GetBalance(address common.Address, block string) (*hexutil.Big, error) {
	if balance, ok := s.balances[address]; ok {
		return (*hexutil.Big)(balance), nil
	}
	return (*hexutil.Big)(new(big.Int)), nil
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// TestSessionOverHTTPAndMCP drives one session through the gin routes and an
// MCP client over SSE, both served from the same listener.
func TestSessionOverHTTPAndMCP(t *testing.T) {
	// ========================================================================
	// In-process node and key-backed wallet
	// ========================================================================
	node := rpc.NewServer()
	require.NoError(t, node.RegisterName("eth", &ethService{balances: map[common.Address]*big.Int{
		common.HexToAddress(testAddress0): ether(3),
		common.HexToAddress(testAddress1): big.NewInt(1),
	}}))
	client := rpc.DialInProc(node)
	defer node.Stop()

	wallet, err := evm.NewKeyProvider([]string{testKey0, testKey1}, evm.WithRPCClient(client))
	require.NoError(t, err)
	defer wallet.Close()

	manager := walletsession.NewManager(walletsession.StaticEnvironment{EVM: wallet})
	defer manager.Close()

	// ========================================================================
	// HTTP + MCP on one server
	// ========================================================================
	gin.SetMode(gin.TestMode)
	router := gin.New()
	sessiongin.RegisterRoutes(router, manager)
	router.Any("/sse", gin.WrapH(mcp.NewSSEHandler(mcp.NewServer(manager))))

	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "integration", Version: "1.0.0"}, nil)
	session, err := mcpClient.Connect(ctx, &mcpsdk.SSEClientTransport{Endpoint: server.URL + "/sse"}, nil)
	require.NoError(t, err)
	defer session.Close()

	httpClient := sessionhttp.NewClient(&sessionhttp.ClientConfig{URL: server.URL})

	// ========================================================================
	// Connect over HTTP
	// ========================================================================
	resp, err := httpClient.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, testAddress0, resp.Session.Account)

	require.Eventually(t, func() bool {
		return manager.Session().Balance == "3"
	}, 5*time.Second, 5*time.Millisecond)

	// ========================================================================
	// Observe over MCP
	// ========================================================================
	callStatus := func() sessionhttp.SessionResponse {
		result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: mcp.ToolStatus, Arguments: map[string]interface{}{}})
		require.NoError(t, err)
		require.NotEmpty(t, result.Content)
		var status sessionhttp.SessionResponse
		require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcpsdk.TextContent).Text), &status))
		return status
	}

	status := callStatus()
	assert.Equal(t, "Connected: "+testAddress0+" (3 ETH)", status.Status.String())

	// ========================================================================
	// Wallet-side account switch and lock
	// ========================================================================
	require.NoError(t, wallet.SwitchAccount(1))
	require.Eventually(t, func() bool {
		s := manager.Session()
		return s.Account == testAddress1 && s.Balance == "0.000000000000000001"
	}, 5*time.Second, 5*time.Millisecond)

	wallet.Lock()
	status = callStatus()
	assert.Equal(t, walletsession.StateDisconnected, status.State)
	assert.True(t, status.Status.CanConnect)

	// ========================================================================
	// Disconnect over HTTP is idempotent
	// ========================================================================
	for i := 0; i < 2; i++ {
		resp, err = httpClient.Disconnect(ctx)
		require.NoError(t, err)
		assert.Equal(t, walletsession.StateDisconnected, resp.State)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+sessionhttp.SessionPath, nil)
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, "application/json; charset=utf-8", raw.Header.Get("Content-Type"))
}
