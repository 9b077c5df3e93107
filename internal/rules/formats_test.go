package rules

import "testing"

func TestFormats(t *testing.T) {
	cache := &patternCache{}

	tests := []struct {
		format string
		value  string
		want   bool
	}{
		{"email", "ann@example.com", true},
		{"email", "ann@", false},
		{"EMAIL", "ann@example.com", true},
		{"uuid", "0190a0e4-5b7e-7cc4-a3a8-5b1f0a1c2d3e", true},
		{"uuid", "urn:uuid:0190a0e4-5b7e-7cc4-a3a8-5b1f0a1c2d3e", true},
		{"uuid", "0190a0e4", false},
		{"date", "2024-02-29", true},
		{"date", "2024-2-29", false},
		{"time", "13:45:00Z", true},
		{"time", "13:45", false},
		{"date-time", "2024-02-29T13:45:00.123+02:00", true},
		{"date-time", "2024-02-29 13:45:00Z", true},
		{"date-time", "2024-02-29", false},
		{"duration", "P3Y6M4DT12H30M5S", true},
		{"duration", "PT5M", true},
		{"duration", "P2W", true},
		{"duration", "P", false},
		{"duration", "PT", false},
		{"duration", "P1DT", false},
		{"url", "https://example.com/path?q=1", true},
		{"url", "http://8.8.8.8", true},
		{"url", "http://127.0.0.1", false},
		{"url", "http://10.1.2.3/x", false},
		{"url", "http://192.168.0.1", false},
		{"url", "http://172.20.0.1", false},
		{"url", "http://169.254.1.1", false},
		{"url", "ftp://files.example.org", true},
		{"url", "mailto:ann@example.com", false},
		{"uri", "urn:isbn:0451450523", true},
		{"uri", "/relative/path", false},
		{"uri-reference", "/relative/path", true},
		{"uri-template", "http://example.com/{id}", true},
		{"uri-template", "http://example.com/{id", false},
		{"hostname", "api.example.com", true},
		{"hostname", "-bad.example.com", false},
		{"ipv4", "192.168.1.1", true},
		{"ipv4", "256.1.1.1", false},
		{"ipv6", "::1", true},
		{"ipv6", "1.2.3.4", false},
		{"idn-email", "ann@exämple.com", true},
		{"^[A-Z]{3}$", "ABC", true},
		{"^[A-Z]{3}$", "abc", false},
		{"(?=bad)", "bad", false},
	}

	for _, tt := range tests {
		if got := cache.matchFormat(tt.format, tt.value); got != tt.want {
			t.Errorf("matchFormat(%q, %q) = %v, want %v", tt.format, tt.value, got, tt.want)
		}
	}
}

func TestFormats_HostnameLength(t *testing.T) {
	label := "abcdefghij"
	host := label
	for len(host) < 260 {
		host += "." + label
	}
	if (&patternCache{}).matchFormat("hostname", host) {
		t.Errorf("matchFormat(hostname, %d chars) = true, want false", len(host))
	}
}

func TestIsNamedFormat(t *testing.T) {
	if !IsNamedFormat("Date-Time") {
		t.Errorf("IsNamedFormat(Date-Time) = false, want true")
	}
	if IsNamedFormat("^x$") {
		t.Errorf("IsNamedFormat(^x$) = true, want false")
	}
	if len(FormatNames()) != len(formats) {
		t.Errorf("FormatNames() = %d names, want %d", len(FormatNames()), len(formats))
	}
}
