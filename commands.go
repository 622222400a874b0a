package lightwave

type Commands struct {
	app *App
}

func (cmd *Commands) ChangeState(newState State) *Commands {
	cmd.app.changeState(newState)
	return cmd
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// Exit stops Run after the current step.
func (cmd *Commands) Exit() {
	cmd.app.exiting = true
}

func (cmd *Commands) Logger() Logger {
	return cmd.app.Logger()
}
