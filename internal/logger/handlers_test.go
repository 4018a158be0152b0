package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

func TestPlainConvertsNonScalarValues(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []struct {
		in   slog.Value
		want any
	}{
		{slog.AnyValue(errors.New("boom")), "boom"},
		{slog.DurationValue(1500 * time.Millisecond), "1.5s"},
		{slog.TimeValue(at), "2024-01-02T03:04:05Z"},
		{slog.IntValue(7), int64(7)},
		{slog.AnyValue(net.IPv4(10, 0, 0, 1)), "10.0.0.1"},
		{slog.AnyValue(struct{ N int }{3}), "{N:3}"},
	}
	for _, c := range cases {
		if got := plain(c.in); got != c.want {
			t.Errorf("plain(%v) = %#v, want %#v", c.in, got, c.want)
		}
	}
	g, ok := plain(slog.GroupValue(slog.Any("err", io.EOF))).(map[string]any)
	if !ok || g["err"] != "EOF" {
		t.Fatalf("group not flattened to strings: %#v", g)
	}
}

func TestFluentHandlerPostsErrorAttrs(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("no loopback listener: %v", err)
	}
	defer ln.Close()
	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var buf bytes.Buffer
		chunk := make([]byte, 4096)
		for !bytes.Contains(buf.Bytes(), []byte("boom")) {
			n, err := conn.Read(chunk)
			buf.Write(chunk[:n])
			if err != nil {
				break
			}
		}
		got <- buf.Bytes()
	}()

	client, err := fluent.New(fluent.Config{
		FluentNetwork: "tcp",
		FluentHost:    "127.0.0.1",
		FluentPort:    ln.Addr().(*net.TCPAddr).Port,
		Timeout:       time.Second,
	})
	if err != nil {
		t.Fatalf("fluent client: %v", err)
	}
	defer client.Close()

	h := (&fluentHandler{client: client, tag: "listing-api", level: slog.LevelInfo}).
		WithAttrs([]slog.Attr{slog.Duration("uptime", time.Second)})
	r := slog.NewRecord(time.Now(), slog.LevelWarn, "photo rejected", 0)
	r.AddAttrs(slog.Any("err", errors.New("boom")), slog.Int("index", 2))
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}

	select {
	case b := <-got:
		if !bytes.Contains(b, []byte("boom")) || !bytes.Contains(b, []byte("photo rejected")) {
			t.Fatalf("record not forwarded: %q", b)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no record received")
	}
}
