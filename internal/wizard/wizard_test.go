package wizard

import (
	"reflect"
	"testing"
)

func TestParsePorts(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []uint16
		wantErr bool
	}{
		{"single", "2368", []uint16{2368}, false},
		{"space separated", "2368 2369", []uint16{2368, 2369}, false},
		{"comma separated", "2368,2369", []uint16{2368, 2369}, false},
		{"mixed separators", "2368, 2369\t2370", []uint16{2368, 2369, 2370}, false},
		{"empty", "", []uint16{}, false},
		{"not a number", "lidar", nil, true},
		{"port zero", "0", nil, true},
		{"out of range", "70000", nil, true},
		{"negative", "-1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePorts(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParsePorts(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePorts(%q) error = %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePorts(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
