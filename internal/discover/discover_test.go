package discover

import (
	"testing"
)

func TestFirstIPv4(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single address", "172.20.153.45", "172.20.153.45"},
		{"trailing newline", "172.20.153.45\n", "172.20.153.45"},
		{"multiple addresses", "172.20.153.45 10.255.255.254", "172.20.153.45"},
		{"ipv6 first", "fe80::215:5dff:fe34:101 172.20.153.45", "172.20.153.45"},
		{"only ipv6", "fe80::215:5dff:fe34:101", ""},
		{"garbage tokens", "hostname: not-an-ip 172.20.0.1", "172.20.0.1"},
		{"empty", "", ""},
		{"whitespace only", "  \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstIPv4(tt.input)
			if tt.want == "" {
				if got != nil {
					t.Errorf("FirstIPv4(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("FirstIPv4(%q) = %v, want %s", tt.input, got, tt.want)
			}
		})
	}
}
