package attendance

import (
	"strings"
	"testing"
)

func TestListStudentsQuery(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset int
		suffix        string
		args          []any
	}{
		{name: "no limit", limit: 0, offset: 0, suffix: "ORDER BY index_number", args: nil},
		{name: "negative limit", limit: -1, offset: 0, suffix: "ORDER BY index_number", args: nil},
		{name: "offset only", limit: 0, offset: 600, suffix: "OFFSET $1", args: []any{600}},
		{name: "page", limit: 50, offset: 100, suffix: "LIMIT $1 OFFSET $2", args: []any{50, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := listStudentsQuery(tt.limit, tt.offset)
			if !strings.HasSuffix(query, tt.suffix) {
				t.Fatalf("query %q does not end with %q", query, tt.suffix)
			}
			if tt.limit <= 0 && strings.Contains(query, "LIMIT") {
				t.Fatalf("unbounded listing must not carry a LIMIT: %q", query)
			}
			if len(args) != len(tt.args) {
				t.Fatalf("args = %v, want %v", args, tt.args)
			}
			for i := range args {
				if args[i] != tt.args[i] {
					t.Fatalf("args = %v, want %v", args, tt.args)
				}
			}
		})
	}
}
