package wamp

import "testing"

func TestDictValueWalksNestedPath(t *testing.T) {
	d := Dict{
		"roles": Dict{
			"caller": Dict{
				"features": Dict{
					"progressive_call_results": true,
				},
			},
		},
	}

	v, err := DictValue(d, []string{"roles", "caller", "features", "progressive_call_results"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, _ := v.(bool); !b {
		t.Fatal("expected the walked value to be true")
	}
}

func TestDictValueMissingKey(t *testing.T) {
	d := Dict{"roles": Dict{}}
	if _, err := DictValue(d, []string{"roles", "caller"}); err == nil {
		t.Fatal("expected an error for a missing key")
	}
}

func TestDictValueEmptyPath(t *testing.T) {
	if _, err := DictValue(Dict{}, nil); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestOptionString(t *testing.T) {
	d := Dict{"agent": "tornwamp-client/1.0"}
	if got := OptionString(d, "agent"); got != "tornwamp-client/1.0" {
		t.Fatalf("expected agent string, got %q", got)
	}
	if got := OptionString(d, "missing"); got != "" {
		t.Fatalf("expected empty string for missing key, got %q", got)
	}
	if got := OptionString(Dict{"agent": 5}, "agent"); got != "" {
		t.Fatalf("expected empty string for a non-string value, got %q", got)
	}
}
