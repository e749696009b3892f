// Package cmd provides common initialization for the command-line
// binaries.
package cmd

import (
	"log/slog"
	"os"

	"github.com/jobdeck/automata/pkg/actions/email"
	"github.com/jobdeck/automata/pkg/actions/sms"
	"github.com/jobdeck/automata/pkg/actions/task"
	"github.com/jobdeck/automata/pkg/actions/updaterecord"
	"github.com/jobdeck/automata/pkg/edge"
	"github.com/jobdeck/automata/pkg/registry"
)

// NewRegistry builds the action catalog: the built-in actions bound to the
// edge function collaborators, plus any .so plugins found in pluginsPath.
func NewRegistry(logger *slog.Logger, pluginsPath string) *registry.Registry {
	reg := registry.NewRegistry(logger)

	edgeClient := edge.NewClient(
		os.Getenv("EDGE_FUNCTIONS_URL"),
		os.Getenv("EDGE_FUNCTIONS_KEY"),
		logger,
	)
	collaborators := edgeClient.Collaborators()

	reg.RegisterAction(email.NewActionFactory(collaborators.Mailer))
	reg.RegisterAction(sms.NewActionFactory(collaborators.Texter))
	reg.RegisterAction(task.NewActionFactory(collaborators.TaskCreator))
	reg.RegisterAction(updaterecord.NewActionFactory(collaborators.RecordUpdater))

	registerActionPlugins(reg, pluginsPath)

	return reg
}

func registerActionPlugins(reg *registry.Registry, pluginsPath string) {
	if pluginsPath == "" {
		return
	}

	actionPlugins, err := reg.LoadActionPlugins(pluginsPath)
	if err != nil {
		panic(err)
	}

	for _, plugin := range actionPlugins {
		reg.RegisterAction(plugin)
	}
}
