package natskv_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/volley-go/volley/cache/natskv"
	"github.com/volley-go/volley/cachetest"
)

func startNATSServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{JetStream: true, Port: -1, Host: "127.0.0.1"})
	if err != nil {
		t.Fatalf("start embedded NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(4 * time.Second) {
		t.Fatal("embedded NATS server did not start in time")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestCache(t *testing.T) {
	ns := startNATSServer(t)

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}

	kv, err := js.CreateKeyValue(context.Background(), jetstream.KeyValueConfig{Bucket: "test-cache"})
	if err != nil {
		t.Fatalf("create bucket: %v", err)
	}

	cachetest.Cache(t, natskv.NewWithKeyValue(kv))
}
