package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ErlanBelekov/anonbox/internal/reqctx"
)

func TestContextHandlerAddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil))).With("component", "test")

	ctx := reqctx.WithAccountID(reqctx.WithRequestID(context.Background(), "req-9"), "acct-3")
	logger.InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["request_id"] != "req-9" || rec["account_id"] != "acct-3" || rec["component"] != "test" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestContextHandlerOmitsMissingIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := rec["request_id"]; ok {
		t.Fatal("unexpected request_id")
	}
	if _, ok := rec["account_id"]; ok {
		t.Fatal("unexpected account_id")
	}
}

func TestContextHandlerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil))).With("token", "eyJ.secret")

	logger.Info("sign in", "password", "hunter2", slog.Group("account", "credential_hash", "$2a$10$x", "handle", "abc"))

	out := buf.String()
	for _, secret := range []string{"eyJ.secret", "hunter2", "$2a$10$x"} {
		if bytes.Contains([]byte(out), []byte(secret)) {
			t.Fatalf("secret %q leaked: %s", secret, out)
		}
	}

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	account, _ := rec["account"].(map[string]any)
	if account["handle"] != "abc" {
		t.Fatalf("non-secret attribute lost: %v", rec)
	}
}
