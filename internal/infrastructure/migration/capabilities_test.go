package migration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVersion struct {
	version uint
	dirty   bool
	err     error
}

func (s stubVersion) Version() (uint, bool, error) {
	return s.version, s.dirty, s.err
}

func TestResolveCapabilities(t *testing.T) {
	tests := []struct {
		name      string
		reader    VersionReader
		mode      string
		wantPaid  bool
		wantIssue bool
		wantErr   bool
	}{
		{name: "auto at version 1", reader: stubVersion{version: 1}, mode: "auto"},
		{name: "auto at version 2", reader: stubVersion{version: 2}, mode: "auto", wantPaid: true, wantIssue: true},
		{name: "empty mode behaves as auto", reader: stubVersion{version: 5}, wantPaid: true, wantIssue: true},
		{name: "fresh database", reader: stubVersion{version: 0}, mode: "auto"},
		{name: "full override", reader: stubVersion{version: 1}, mode: "full", wantPaid: true, wantIssue: true},
		{name: "legacy override", reader: stubVersion{version: 9}, mode: "legacy"},
		{name: "nil reader", mode: "auto"},
		{name: "dirty schema", reader: stubVersion{version: 2, dirty: true}, mode: "auto", wantErr: true},
		{name: "reader error", reader: stubVersion{err: errors.New("boom")}, mode: "auto", wantErr: true},
		{name: "unknown mode", reader: stubVersion{version: 2}, mode: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps, err := ResolveCapabilities(tt.reader, tt.mode)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPaid, caps.FineDates.PaidAt)
			assert.Equal(t, tt.wantIssue, caps.FineDates.IssuedAt)
		})
	}
}

func TestCapabilitiesForVersion_Columns(t *testing.T) {
	assert.Equal(t, []string{"fecha_vencimiento"}, CapabilitiesForVersion(1).FineDates.Columns())
	assert.Equal(t, []string{"fecha_pago", "fecha_emision", "fecha_vencimiento"}, CapabilitiesForVersion(2).FineDates.Columns())
}
