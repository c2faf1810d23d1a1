package relay

import (
	"net"
	"testing"
)

func TestParseSubnetFilter_Empty(t *testing.T) {
	f, err := ParseSubnetFilter("")
	if err != nil {
		t.Fatalf("ParseSubnetFilter error = %v", err)
	}

	for _, ip := range []string{"10.0.0.5", "192.168.1.5", "127.0.0.1"} {
		if !f.Accepts(net.ParseIP(ip)) {
			t.Errorf("empty filter should accept %s", ip)
		}
	}

	if f.String() != "any" {
		t.Errorf("String() = %q, want \"any\"", f.String())
	}
}

func TestParseSubnetFilter_Invalid(t *testing.T) {
	for _, cidr := range []string{"not-a-cidr", "10.0.0.0", "10.0.0.0/33", "300.0.0.0/8"} {
		if _, err := ParseSubnetFilter(cidr); err == nil {
			t.Errorf("ParseSubnetFilter(%q) should fail", cidr)
		}
	}
}

func TestSubnetFilter_Accepts(t *testing.T) {
	f, err := ParseSubnetFilter("10.0.0.0/24")
	if err != nil {
		t.Fatalf("ParseSubnetFilter error = %v", err)
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.5", true},
		{"10.0.0.255", true},
		{"10.0.1.5", false},
		{"192.168.1.5", false},
		{"127.0.0.1", false},
	}

	for _, tt := range tests {
		if got := f.Accepts(net.ParseIP(tt.ip)); got != tt.want {
			t.Errorf("Accepts(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestSubnetFilter_NilAcceptsAll(t *testing.T) {
	var f *SubnetFilter
	if !f.Accepts(net.ParseIP("192.168.1.5")) {
		t.Error("nil filter should accept everything")
	}
	if f.String() != "any" {
		t.Errorf("nil filter String() = %q, want \"any\"", f.String())
	}
}
