package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/valter-silva-au/priority-os/internal/server"
)

func TestServeCmd_NotInitialized(t *testing.T) {
	orig := NewTaskService
	defer func() { NewTaskService = orig }()
	NewTaskService = nil

	err := serveCmd.RunE(serveCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "task service not initialized") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServeCmd_FactoryError(t *testing.T) {
	orig := NewTaskService
	defer func() { NewTaskService = orig }()
	NewTaskService = func() (*server.Service, error) {
		return nil, errors.New("data file unreadable")
	}

	err := serveCmd.RunE(serveCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "data file unreadable") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMCPServeCmd_NilTaskManager(t *testing.T) {
	origTaskMgr := TaskMgr
	defer func() { TaskMgr = origTaskMgr }()
	TaskMgr = nil

	if err := mcpServeCmd.RunE(mcpServeCmd, nil); err == nil {
		t.Fatal("expected error when TaskMgr is nil")
	}
}
