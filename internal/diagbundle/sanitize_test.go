package diagbundle_test

import (
	"encoding/json"
	"strings"
	"testing"

	"feishu-tray/internal/diagbundle"
)

func TestSanitize(t *testing.T) {
	input := `{
		"appSecret": "s3cr3t",
		"encryptKey": "",
		"cwd": "/home/me/secret-project",
		"port": 8080,
		"bots": [
			{"id": "b1", "webhookUrl": "https://hooks.example.com/abc", "verificationToken": "tok"},
			{"id": "b2", "Token": 42}
		],
		"push": {"clientSecretRef": {"accessToken": "inner", "note": "kept"}}
	}`
	out, err := diagbundle.SanitizeJSON([]byte(input))
	if err != nil {
		t.Fatalf("SanitizeJSON returned error: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("decode sanitized output: %v", err)
	}
	if doc["appSecret"] != diagbundle.Mask {
		t.Fatalf("expected appSecret masked, got %v", doc["appSecret"])
	}
	if doc["encryptKey"] != "" {
		t.Fatalf("expected empty encryptKey untouched, got %v", doc["encryptKey"])
	}
	if doc["cwd"] != "/home/me/secret-project" {
		t.Fatalf("expected non-matching key untouched, got %v", doc["cwd"])
	}
	if doc["port"] != float64(8080) {
		t.Fatalf("expected number preserved, got %v", doc["port"])
	}

	bots := doc["bots"].([]any)
	first := bots[0].(map[string]any)
	if first["webhookUrl"] != diagbundle.Mask || first["verificationToken"] != diagbundle.Mask {
		t.Fatalf("expected array entries masked, got %v", first)
	}
	if first["id"] != "b1" {
		t.Fatalf("expected id untouched, got %v", first["id"])
	}
	if second := bots[1].(map[string]any); second["Token"] != float64(42) {
		t.Fatalf("expected non-string sensitive value untouched, got %v", second["Token"])
	}

	nested := doc["push"].(map[string]any)["clientSecretRef"].(map[string]any)
	if nested["accessToken"] != diagbundle.Mask {
		t.Fatalf("expected recursion under sensitive key, got %v", nested["accessToken"])
	}
	if nested["note"] != "kept" {
		t.Fatalf("expected note untouched, got %v", nested["note"])
	}
}

func TestSanitizeIsCaseSensitive(t *testing.T) {
	out := diagbundle.Sanitize(map[string]any{"SECRET": "x", "TOKEN_ID": "y", "mySecret": "z"}).(map[string]any)
	if out["SECRET"] != "x" || out["TOKEN_ID"] != "y" {
		t.Fatalf("expected upper-case keys untouched, got %v", out)
	}
	if out["mySecret"] != diagbundle.Mask {
		t.Fatalf("expected mySecret masked, got %v", out["mySecret"])
	}
}

func TestSanitizeDoesNotModifyInput(t *testing.T) {
	in := map[string]any{"token": "abc"}
	_ = diagbundle.Sanitize(in)
	if in["token"] != "abc" {
		t.Fatal("input was modified")
	}
}

func TestSanitizeJSONRejectsInvalid(t *testing.T) {
	if _, err := diagbundle.SanitizeJSON([]byte(`{"token":`)); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
