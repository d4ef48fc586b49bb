package llm

import (
	"reflect"
	"testing"
)

func TestParseJSONResponsePlain(t *testing.T) {
	result := ParseJSONResponse(`{"key": "value", "num": 42}`)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
	if result["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestParseJSONResponseWithCodeFence(t *testing.T) {
	for _, text := range []string{
		"```json\n{\"key\": \"value\"}\n```",
		"```\n{\"key\": \"value\"}\n```",
	} {
		result := ParseJSONResponse(text)
		if result == nil {
			t.Fatalf("expected non-nil result for %q", text)
		}
		if result["key"] != "value" {
			t.Errorf("expected key='value', got %v", result["key"])
		}
	}
}

func TestParseJSONResponseInvalid(t *testing.T) {
	if ParseJSONResponse("not json at all") != nil {
		t.Error("expected nil for invalid JSON")
	}
	if ParseJSONResponse("") != nil {
		t.Error("expected nil for empty string")
	}
}

func TestParseJSONResponseWhitespace(t *testing.T) {
	result := ParseJSONResponse("  \n  {\"key\": \"value\"}  \n  ")
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
}

func TestGetString(t *testing.T) {
	parsed := map[string]any{"verdict": "  EXPAND  ", "count": float64(3)}
	if got := GetString(parsed, "verdict"); got != "EXPAND" {
		t.Errorf("GetString = %q", got)
	}
	if got := GetString(parsed, "count"); got != "" {
		t.Errorf("non-string field should be empty, got %q", got)
	}
	if got := GetString(nil, "verdict"); got != "" {
		t.Errorf("nil map should be empty, got %q", got)
	}
}

func TestGetStrings(t *testing.T) {
	parsed := map[string]any{
		"moves": []any{"fix crashes", "  ", "lower price", float64(1)},
	}
	got := GetStrings(parsed, "moves")
	want := []string{"fix crashes", "lower price"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetStrings = %v, want %v", got, want)
	}
	if GetStrings(parsed, "missing") != nil {
		t.Error("missing key should be nil")
	}
}
