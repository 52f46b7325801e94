package migration

import (
	"fmt"

	"github.com/condoportal/backend/internal/domain/ledger"
)

// VersionFineDates is the first schema version whose multas table carries
// fecha_emision and fecha_pago.
const VersionFineDates uint = 2

// Fine date column modes accepted by schema.fine_date_columns
const (
	FineDatesAuto   = "auto"
	FineDatesFull   = "full"
	FineDatesLegacy = "legacy"
)

// Capabilities describes optional schema features, resolved once at startup
type Capabilities struct {
	Version   uint
	FineDates ledger.FineDateColumns
}

// VersionReader is satisfied by Migrator
type VersionReader interface {
	Version() (uint, bool, error)
}

// ResolveCapabilities derives the schema capabilities from the applied
// migration version. A non-auto mode overrides the version for deployments
// whose schema was altered outside the migration history.
func ResolveCapabilities(reader VersionReader, mode string) (Capabilities, error) {
	switch mode {
	case FineDatesFull:
		return Capabilities{FineDates: ledger.FineDateColumns{PaidAt: true, IssuedAt: true}}, nil
	case FineDatesLegacy:
		return Capabilities{}, nil
	case "", FineDatesAuto:
	default:
		return Capabilities{}, fmt.Errorf("unknown fine date column mode %q", mode)
	}

	if reader == nil {
		return Capabilities{}, nil
	}
	version, dirty, err := reader.Version()
	if err != nil {
		return Capabilities{}, err
	}
	if dirty {
		return Capabilities{}, fmt.Errorf("schema version %d is dirty, fix it with 'migrate force'", version)
	}
	return CapabilitiesForVersion(version), nil
}

// CapabilitiesForVersion maps a schema version to its capabilities
func CapabilitiesForVersion(version uint) Capabilities {
	full := version >= VersionFineDates
	return Capabilities{
		Version:   version,
		FineDates: ledger.FineDateColumns{PaidAt: full, IssuedAt: full},
	}
}
