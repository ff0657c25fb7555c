// internal/infrastructure/persistence/postgres/repository/signal/repository_test.go
package signal_repo

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
)

func TestInsertIgnoresSameID(t *testing.T) {
	if !strings.Contains(insertSignalQuery, "ON CONFLICT (id) DO NOTHING") {
		t.Errorf("insert must tolerate a replayed id:\n%s", insertSignalQuery)
	}
}

func TestIsOpenConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"open signal index", &pq.Error{Code: "23505", Constraint: "uq_signals_open_symbol_direction"}, true},
		{"wrapped", fmt.Errorf("retry: %w", &pq.Error{Code: "23505", Constraint: openSignalIndex}), true},
		{"primary key", &pq.Error{Code: "23505", Constraint: "signals_pkey"}, false},
		{"serialization failure", &pq.Error{Code: "40001", Constraint: openSignalIndex}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOpenConflict(tt.err); got != tt.want {
				t.Errorf("isOpenConflict(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
