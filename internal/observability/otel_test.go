package observability

import "testing"

func TestOtelEnabled_RecognizesTruthyValues(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on"} {
		t.Setenv("OTEL_ENABLED", v)
		if !otelEnabled() {
			t.Fatalf("expected OTEL_ENABLED=%q to enable tracing", v)
		}
	}
}

func TestOtelEnabled_DefaultsOffWhenUnset(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	if otelEnabled() {
		t.Fatalf("expected tracing disabled when OTEL_ENABLED is unset")
	}
}

func TestOtelSampleRatio_DefaultsAndClamps(t *testing.T) {
	t.Setenv("OTEL_SAMPLER_RATIO", "")
	if got := otelSampleRatio(); got != 0.1 {
		t.Fatalf("default sample ratio = %v, want 0.1", got)
	}

	t.Setenv("OTEL_SAMPLER_RATIO", "2.5")
	if got := otelSampleRatio(); got != 1 {
		t.Fatalf("ratio above 1 should clamp to 1, got %v", got)
	}

	t.Setenv("OTEL_SAMPLER_RATIO", "-0.5")
	if got := otelSampleRatio(); got != 0 {
		t.Fatalf("ratio below 0 should clamp to 0, got %v", got)
	}

	t.Setenv("OTEL_SAMPLER_RATIO", "0.42")
	if got := otelSampleRatio(); got != 0.42 {
		t.Fatalf("ratio = %v, want 0.42", got)
	}
}

func TestOtelHeaders_ParsesCommaSeparatedPairs(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc123, x-env = prod")
	headers := otelHeaders()
	if headers["x-api-key"] != "abc123" {
		t.Fatalf("unexpected headers %v", headers)
	}
	if headers["x-env"] != "prod" {
		t.Fatalf("unexpected headers %v", headers)
	}
}

func TestOtelHeaders_EmptyWhenUnset(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")
	if headers := otelHeaders(); headers != nil {
		t.Fatalf("expected nil headers, got %v", headers)
	}
}
