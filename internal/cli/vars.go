package cli

import (
	"github.com/valter-silva-au/priority-os/internal/core"
	"github.com/valter-silva-au/priority-os/internal/observability"
	"github.com/valter-silva-au/priority-os/internal/server"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	// BasePath is the directory holding .posconfig and the local task files.
	BasePath string

	// Config is the loaded .posconfig.
	Config *models.Config

	TaskMgr core.TaskManager

	// RemoteEnabled reports whether remote.url is configured.
	RemoteEnabled bool

	// NewTaskService builds the remote authority service for `pos serve`.
	NewTaskService func() (*server.Service, error)
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
)
