package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	walletsession "github.com/x402-foundation/walletsession"
	sessionhttp "github.com/x402-foundation/walletsession/http"
	"github.com/x402-foundation/walletsession/pkg/config"
	"github.com/x402-foundation/walletsession/test/mocks/wallet"
)

const hardhatKey0 = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestBuildEnvironment(t *testing.T) {
	t.Run("no wallets", func(t *testing.T) {
		env, closeAll, err := buildEnvironment(context.Background(), &config.Config{}, zap.NewNop())
		require.NoError(t, err)
		defer closeAll()

		assert.Equal(t, walletsession.ProviderNone, walletsession.DetectProvider(env).Kind())
	})

	t.Run("evm and svm", func(t *testing.T) {
		cfg := &config.Config{
			EVM: config.EVMConfig{RPCURL: "http://127.0.0.1:1", PrivateKeys: []string{hardhatKey0}},
			SVM: config.SVMConfig{RPCURL: "http://127.0.0.1:1", PrivateKeys: []string{solana.NewWallet().PrivateKey.String()}},
		}
		env, closeAll, err := buildEnvironment(context.Background(), cfg, zap.NewNop())
		require.NoError(t, err)
		defer closeAll()

		_, hasEVM := env.Ethereum()
		_, hasSVM := env.Solana()
		assert.True(t, hasEVM)
		assert.True(t, hasSVM)
		assert.Equal(t, walletsession.ProviderEVM, walletsession.DetectProvider(env).Kind())
	})

	t.Run("bad key", func(t *testing.T) {
		cfg := &config.Config{EVM: config.EVMConfig{RPCURL: "http://127.0.0.1:1", PrivateKeys: []string{"nothex"}}}
		_, closeAll, err := buildEnvironment(context.Background(), cfg, zap.NewNop())
		assert.Error(t, err)
		closeAll()
	})
}

func TestNewHandler_Routers(t *testing.T) {
	for _, router := range []string{config.RouterGin, config.RouterEcho, config.RouterStdlib} {
		t.Run(router, func(t *testing.T) {
			w := wallet.New("0xABC")
			m := walletsession.NewManager(walletsession.StaticEnvironment{EVM: w})
			defer m.Close()

			handler := newHandler(&config.Config{Router: router, MCPPath: "-"}, m, zap.NewNop())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, sessionhttp.ConnectPath, nil))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp sessionhttp.SessionResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "0xABC", resp.Session.Account)

			rec = httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, sessionhttp.SessionPath, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestNewHandler_MountsMCP(t *testing.T) {
	m := walletsession.NewManager(nil)
	defer m.Close()

	server := httptest.NewServer(newHandler(&config.Config{}, m, zap.NewNop()))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+config.DefaultMCPPath, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
}

func TestServeListener_DrainsSSEClients(t *testing.T) {
	for _, router := range []string{config.RouterGin, config.RouterEcho, config.RouterStdlib} {
		t.Run(router, func(t *testing.T) {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- serveListener(ctx, &config.Config{Router: router, LogLevel: "error"}, listener)
			}()

			req, err := http.NewRequest(http.MethodGet, "http://"+listener.Addr().String()+config.DefaultMCPPath, nil)
			require.NoError(t, err)
			req.Header.Set("Accept", "text/event-stream")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			start := time.Now()
			cancel()

			select {
			case err := <-done:
				assert.NoError(t, err)
				assert.Less(t, time.Since(start), shutdownTimeout)
			case <-time.After(2 * shutdownTimeout):
				t.Fatal("serve did not return after cancel")
			}
		})
	}
}

func TestClientCommands(t *testing.T) {
	w := wallet.New("0xABC")
	w.SetEther("0xABC", 1)
	m := walletsession.NewManager(walletsession.StaticEnvironment{EVM: w})
	defer m.Close()

	server := httptest.NewServer(newHandler(&config.Config{Router: config.RouterStdlib, MCPPath: "-"}, m, zap.NewNop()))
	defer server.Close()

	run := func(args ...string) (string, error) {
		root := NewRootCommand()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append(args, "--url", server.URL))
		err := root.Execute()
		return out.String(), err
	}

	out, err := run("status")
	require.NoError(t, err)
	assert.Equal(t, "Not Connected\n", out)

	out, err = run("connect")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected: 0xABC")

	require.Eventually(t, func() bool { return m.Session().Balance == "1" }, time.Second, 2*time.Millisecond)
	out, err = run("status", "--json")
	require.NoError(t, err)
	var resp sessionhttp.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "1", resp.Session.Balance)

	out, err = run("disconnect")
	require.NoError(t, err)
	assert.Equal(t, "Not Connected\n", out)
}

func TestClientCommands_ReportsSessionError(t *testing.T) {
	m := walletsession.NewManager(nil)
	defer m.Close()

	server := httptest.NewServer(newHandler(&config.Config{Router: config.RouterStdlib, MCPPath: "-"}, m, zap.NewNop()))
	defer server.Close()

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"connect", "--url", server.URL})

	err := root.Execute()
	assert.ErrorIs(t, err, walletsession.ErrNoProviderFound)
	assert.Contains(t, out.String(), walletsession.NoProviderHint)
}
