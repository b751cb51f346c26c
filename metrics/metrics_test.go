package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestStartServer_LogsBindFailure(t *testing.T) {
	// Hold the port so the metrics server cannot bind it
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	port := strconv.Itoa(listener.Addr().(*net.TCPAddr).Port)

	hook := test.NewGlobal()
	defer hook.Reset()

	srv := StartServer(port, func(ctx context.Context) error { return nil })
	defer srv.Close()

	require.Eventually(t, func() bool {
		for _, entry := range hook.AllEntries() {
			if entry.Level == logrus.ErrorLevel && entry.Message == "Metrics server stopped" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "bind failure should be logged")
}

func TestStartServer_ServesHealth(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := strconv.Itoa(listener.Addr().(*net.TCPAddr).Port)
	require.NoError(t, listener.Close())

	srv := StartServer(port, func(ctx context.Context) error { return nil })
	defer srv.Close()

	url := fmt.Sprintf("http://127.0.0.1:%s/healthz", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
}
