package docker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine поднимает HTTP-сервер, отвечающий как Docker Engine API.
func fakeEngine(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := client.NewClientWithOpts(
		client.WithHost("tcp://"+strings.TrimPrefix(srv.URL, "http://")),
		client.WithVersion("1.45"),
		WithStatusCapture(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { api.Close() })

	return NewFromClient(api, nil)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestContainerInspect_Success(t *testing.T) {
	a := fakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/containers/abc/json"), r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"Id":    "abc",
			"State": map[string]any{"Status": "running", "Running": true},
		})
	})

	info, err := a.Container("abc").Inspect(context.Background())
	require.NoError(t, err)

	b, err := json.Marshal(info)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"Status":"running"`)
}

func TestRemoteErrors_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		call   func(a *Adapter) error
	}{
		{"container not found", http.StatusNotFound, func(a *Adapter) error {
			_, err := a.Container("abc").Inspect(context.Background())
			return err
		}},
		{"rename conflict", http.StatusConflict, func(a *Adapter) error {
			_, err := a.Container("abc").Rename(context.Background(), map[string]any{"name": "taken"})
			return err
		}},
		{"volume in use", http.StatusConflict, func(a *Adapter) error {
			_, err := a.Volume("data").Remove(context.Background(), nil)
			return err
		}},
		{"config server error", http.StatusInternalServerError, func(a *Adapter) error {
			_, err := a.Config("cfg").Remove(context.Background())
			return err
		}},
		{"list bad parameter", http.StatusBadRequest, func(a *Adapter) error {
			_, err := a.ListContainers(context.Background(), nil)
			return err
		}},
		{"bad gateway", http.StatusBadGateway, func(a *Adapter) error {
			_, err := a.Container("abc").Inspect(context.Background())
			return err
		}},
		{"gateway timeout", http.StatusGatewayTimeout, func(a *Adapter) error {
			_, err := a.Container("abc").Stop(context.Background(), nil)
			return err
		}},
		{"precondition failed", http.StatusPreconditionFailed, func(a *Adapter) error {
			_, err := a.Volume("data").Inspect(context.Background())
			return err
		}},
		{"unprocessable entity", http.StatusUnprocessableEntity, func(a *Adapter) error {
			_, err := a.CreateVolume(context.Background(), map[string]any{"Name": "data"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := fakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"message": "daemon says no"})
			})

			err := tt.call(a)
			require.Error(t, err)

			var remote *RemoteError
			require.True(t, errors.As(err, &remote), "expected RemoteError, got %T", err)
			assert.Equal(t, tt.status, remote.StatusCode)
			assert.Equal(t, "daemon says no", remote.Reason)

			code, reason, ok := StatusOf(err)
			assert.True(t, ok)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, "daemon says no", reason)
		})
	}
}

func TestRemoteErrors_FallbackToErrdefs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"message": "upstream down"})
	}))
	t.Cleanup(srv.Close)

	// Без WithStatusCapture статус восстанавливается только по классу ошибки.
	api, err := client.NewClientWithOpts(
		client.WithHost("tcp://"+strings.TrimPrefix(srv.URL, "http://")),
		client.WithVersion("1.45"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { api.Close() })

	_, err = NewFromClient(api, nil).Container("abc").Inspect(context.Background())
	code, reason, ok := StatusOf(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "upstream down", reason)
}

func TestRemoteErrors_StatusOfLastResponse(t *testing.T) {
	// Update: inspect отвечает 200, update — 502. Ошибка несёт статус второго ответа.
	a := fakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/configs/cfg") {
			writeJSON(w, http.StatusOK, map[string]any{"ID": "cfg", "Version": map[string]any{"Index": 3}})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"message": "swarm manager unreachable"})
	})

	_, err := a.Config("cfg").Update(context.Background(), map[string]any{"Labels": map[string]any{"a": "b"}})
	code, _, ok := StatusOf(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestStatusOf_NonRemote(t *testing.T) {
	_, _, ok := StatusOf(errors.New("boom"))
	assert.False(t, ok)

	_, _, ok = StatusOf(&RemoteError{Reason: "unclassified"})
	assert.False(t, ok)
}

func TestRename_RequiresName(t *testing.T) {
	a := fakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL.Path)
	})

	_, err := a.Container("abc").Rename(context.Background(), map[string]any{})
	code, _, ok := StatusOf(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateVolume_DecodesOptions(t *testing.T) {
	var body map[string]any
	a := fakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/volumes/create"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, map[string]any{"Name": body["Name"], "Driver": "local"})
	})

	_, err := a.CreateVolume(context.Background(), map[string]any{
		"name":   "data",
		"Labels": map[string]any{"team": "ops"},
	})
	require.NoError(t, err)
	assert.Equal(t, "data", body["Name"])
	assert.Equal(t, map[string]any{"team": "ops"}, body["Labels"])
}

func TestContainerStats_Stream(t *testing.T) {
	a := fakeEngine(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/containers/abc/stats"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"read\":\"1\"}\n{\"read\":\"2\"}\n"))
	})

	rc, err := a.Container("abc").Stats(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	var frames []string
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		frames = append(frames, sc.Text())
	}
	assert.Equal(t, []string{`{"read":"1"}`, `{"read":"2"}`}, frames)
}

func TestDemux(t *testing.T) {
	var muxed bytes.Buffer
	_, err := stdcopy.NewStdWriter(&muxed, stdcopy.Stdout).Write([]byte("hello\n"))
	require.NoError(t, err)
	_, err = stdcopy.NewStdWriter(&muxed, stdcopy.Stderr).Write([]byte("oops\n"))
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	a := &Adapter{}
	require.NoError(t, a.Demux(&stdout, &stderr, &muxed))
	assert.Equal(t, "hello\n", stdout.String())
	assert.Equal(t, "oops\n", stderr.String())
}

func TestFiltersFrom(t *testing.T) {
	args, err := filtersFrom(map[string]any{
		"filters": map[string]any{
			"label":  []any{"app=web", "tier=front"},
			"status": "exited",
		},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app=web", "tier=front"}, args.Get("label"))
	assert.Equal(t, []string{"exited"}, args.Get("status"))

	_, err = filtersFrom(map[string]any{"filters": "label=x"})
	code, _, _ := StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, code)

	args, err = filtersFrom(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, args.Len())
}

func TestStopOptions(t *testing.T) {
	opts := stopOptions(map[string]any{"t": 5.0, "signal": "SIGTERM"})
	require.NotNil(t, opts.Timeout)
	assert.Equal(t, 5, *opts.Timeout)
	assert.Equal(t, "SIGTERM", opts.Signal)

	opts = stopOptions(nil)
	assert.Nil(t, opts.Timeout)
}
