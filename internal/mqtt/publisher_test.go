package mqtt

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"cloudpico-forecast/internal/config"
	"cloudpico-forecast/internal/modules/weather/types"
)

func testConfig() config.Config {
	return config.Config{
		MQTTBroker:      "127.0.0.1",
		MQTTPort:        1,
		MQTTClientID:    "test",
		MQTTTopicPrefix: "cloudpico/weather",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTopic(t *testing.T) {
	tests := []struct {
		name string
		kind types.Kind
		city string
		want string
	}{
		{name: "simple", kind: types.KindCurrent, city: "London", want: "cloudpico/weather/current/london"},
		{name: "spaces and country", kind: types.KindForecast, city: " New York, US ", want: "cloudpico/weather/forecast/new-york-us"},
		{name: "unicode kept", kind: types.KindCurrent, city: "São Paulo", want: "cloudpico/weather/current/são-paulo"},
		{name: "wildcards stripped", kind: types.KindCurrent, city: "a/+#b", want: "cloudpico/weather/current/a-b"},
		{name: "empty city", kind: types.KindCurrent, city: "", want: "cloudpico/weather/current/_"},
		{name: "only symbols", kind: types.KindCurrent, city: "#/+", want: "cloudpico/weather/current/_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Topic("cloudpico/weather", tt.kind, tt.city); got != tt.want {
				t.Errorf("Topic() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestPublish_NotConnected(t *testing.T) {
	p := NewPublisher(testConfig(), discardLogger())
	if p.IsConnected() {
		t.Fatal("new publisher reports connected")
	}
	if err := p.Publish(types.KindCurrent, "Oslo", types.Response{"name": "Oslo"}); err == nil {
		t.Fatal("Publish() error = nil; want not connected")
	}
}

func TestConnect_RespectsContext(t *testing.T) {
	p := NewPublisher(testConfig(), discardLogger())
	defer p.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Connect(ctx)
	if err == nil {
		t.Fatal("Connect() error = nil; want failure against closed port")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Connect() took %v; want it bounded by ctx", time.Since(start))
	}
}

func TestConnect_AfterDisconnect(t *testing.T) {
	p := NewPublisher(testConfig(), discardLogger())
	p.Disconnect()
	p.Disconnect()

	if err := p.Connect(context.Background()); err == nil {
		t.Fatal("Connect() after Disconnect: error = nil; want stopped")
	}
}
