package kafka

import (
	"reflect"
	"testing"
)

func TestSplitBrokers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"localhost:9092", []string{"localhost:9092"}},
		{"a:9092, b:9092", []string{"a:9092", "b:9092"}},
		{"a:9092,,", []string{"a:9092"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := splitBrokers(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitBrokers(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
