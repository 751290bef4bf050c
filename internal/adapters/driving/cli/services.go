package cli

import (
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/core/ports/driving"
)

// Services holds the ports and settings commands work with.
type Services struct {
	Ingestion driving.IngestionService
	Query     driving.QueryService
	Themes    driving.ThemeService
	Settings  *domain.AppSettings
	Config    driven.ConfigStore

	// Close releases everything built for these services. May be nil.
	Close func()
}

var (
	servicesMu sync.Mutex
	active     *Services

	// buildServices constructs the default wiring. Replaced in tests.
	buildServices = NewServices
)

// SetServices injects pre-built services, bypassing the default wiring.
func SetServices(s *Services) {
	servicesMu.Lock()
	defer servicesMu.Unlock()
	active = s
}

// requireServices returns the active services, building them on first use.
func requireServices(cmd *cobra.Command) (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	if active != nil {
		return active, nil
	}
	s, err := buildServices(Options{ConfigDir: configDir, DataDir: dataDir})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("services not configured")
	}
	active = s
	return active, nil
}

func closeServices() {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	if active != nil && active.Close != nil {
		active.Close()
	}
	active = nil
}
