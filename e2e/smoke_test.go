//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/go-connections/nat"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	repoRootRel = ".."
	mainPkgRel  = "./cmd"
	topicPrefix = "cloudpico/e2e"
)

var mqttPort = nat.Port("1883/tcp")

func TestSmoke_WeatherPassThroughAndPublish(t *testing.T) {
	repoRoot := repoRootPath(t)
	brokerHost, brokerPort := startMosquitto(t)
	upstream := startUpstream(t)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin, "serve", "--env-file=")
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=debug",
		"HTTP_ADDR="+addr,
		"WEATHER_API_KEY=e2e-key",
		"WEATHER_BASE_URL="+upstream.URL,
		"SQLITE_DRIVER=sqlite3",
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "forecast.db"),
		"MQTT_BROKER="+brokerHost,
		"MQTT_PORT="+brokerPort,
		"MQTT_CLIENT_ID=cloudpico-forecast-e2e",
		"MQTT_TOPIC_PREFIX="+topicPrefix,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr

	waitForOK(t, client, base+"/healthz", 15*time.Second)

	t.Run("current weather is passed through", func(t *testing.T) {
		resp, err := client.Get(base + "/api/v1/weather/current?city=London")
		if err != nil {
			t.Fatalf("GET current: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
		}
		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode json: %v", err)
		}
		if body["name"] != "London" {
			t.Fatalf("body.name=%v want London", body["name"])
		}
	})

	t.Run("upstream 404 message is propagated", func(t *testing.T) {
		resp, err := client.Get(base + "/api/v1/weather/forecast?city=Atlantis")
		if err != nil {
			t.Fatalf("GET forecast: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusNotFound)
		}
		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode json: %v", err)
		}
		if body["message"] != "city not found" {
			t.Fatalf("message=%q want city not found", body["message"])
		}
	})

	t.Run("lookups are recorded", func(t *testing.T) {
		resp, err := client.Get(base + "/api/v1/lookups?limit=10")
		if err != nil {
			t.Fatalf("GET lookups: %v", err)
		}
		defer resp.Body.Close()
		var lookups []map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&lookups); err != nil {
			t.Fatalf("decode json: %v", err)
		}
		if len(lookups) != 2 {
			t.Fatalf("len(lookups)=%d want 2", len(lookups))
		}
	})

	t.Run("retained message is published", func(t *testing.T) {
		msg := readRetained(t, brokerHost, brokerPort, topicPrefix+"/current/london")
		var envelope struct {
			Kind    string         `json:"kind"`
			City    string         `json:"city"`
			Payload map[string]any `json:"payload"`
		}
		if err := json.Unmarshal(msg, &envelope); err != nil {
			t.Fatalf("decode mqtt message: %v", err)
		}
		if envelope.Kind != "current" || envelope.City != "London" {
			t.Fatalf("envelope kind=%q city=%q", envelope.Kind, envelope.City)
		}
		if envelope.Payload["name"] != "London" {
			t.Fatalf("payload.name=%v want London", envelope.Payload["name"])
		}
	})

	stopServer(t, cmd)
}

func startUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("appid") != "e2e-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
			return
		}
		city := r.URL.Query().Get("q")
		if city == "Atlantis" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
			return
		}
		b, _ := json.Marshal(map[string]any{"name": city, "main": map[string]any{"temp": 12.3}})
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func startMosquitto(t *testing.T) (host, port string) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err = c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, mapped.Port()
}

func readRetained(t *testing.T, host, port, topic string) []byte {
	t.Helper()

	p, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("port %q: %v", port, err)
	}
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", host, p)).
		SetClientID("cloudpico-forecast-e2e-reader")
	c := mqtt.NewClient(opts)
	if token := c.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("reader connect: %v", token.Error())
	}
	defer c.Disconnect(100)

	got := make(chan []byte, 1)
	token := c.Subscribe(topic, 1, func(_ mqtt.Client, m mqtt.Message) {
		select {
		case got <- m.Payload():
		default:
		}
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscribe %s: %v", topic, token.Error())
	}

	select {
	case msg := <-got:
		return msg
	case <-time.After(10 * time.Second):
		t.Fatalf("no retained message on %s", topic)
		return nil
	}
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), "cloudpico-forecast")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	err := backoff.Retry(func() error {
		resp, err := client.Get(url)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		t.Fatalf("server not healthy after %s: %s: %v", timeout, url, err)
	}
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
