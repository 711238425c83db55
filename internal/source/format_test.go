package source

import "testing"

func TestDetectByExtension(t *testing.T) {
	cases := map[string]Format{
		"schema.graphql": FormatSDL,
		"schema.gql":     FormatSDL,
		"config.json":    FormatJSON,
		"config.yaml":    FormatYAML,
		"config.yml":     FormatYAML,
	}
	for name, want := range cases {
		if got := Detect(name, nil); got != want {
			t.Errorf("Detect(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDetectBySniffing(t *testing.T) {
	if got := Detect("unknownext", []byte(`{"schema": {}}`)); got != FormatJSON {
		t.Errorf("expected JSON sniff, got %v", got)
	}
	if got := Detect("unknownext", []byte("type Query { foo: Int }")); got != FormatSDL {
		t.Errorf("expected SDL sniff, got %v", got)
	}
	if got := Detect("unknownext", []byte("schema:\n  query: Query\n")); got != FormatYAML {
		t.Errorf("expected YAML sniff, got %v", got)
	}
}
