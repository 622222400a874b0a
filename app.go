package lightwave

import (
	"fmt"
	"reflect"
	"runtime"
	"slices"
)

type systemFn any

// Module installs resources and systems into an App.
type Module interface {
	Install(app *App, cmd *Commands)
}

type App struct {
	stateful           bool
	stateTransitioning bool
	initialState       State
	finalState         State
	nextState          State
	state              State
	stages             []Stage
	systems            map[string]map[State]map[statePhase][]systemFn
	systemsStateless   map[string][]systemFn
	resources          map[reflect.Type]any

	exiting  bool
	shutdown []func()
}

func newApp() *App {
	app := &App{
		systems:          make(map[string]map[State]map[statePhase][]systemFn),
		systemsStateless: make(map[string][]systemFn),
		resources:        make(map[reflect.Type]any),
	}
	app.stages = slices.Clone(defaultStages)
	return app
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

// UseModules installs modules in order.
func (app *App) UseModules(modules ...Module) *App {
	cmd := app.Commands()
	for _, m := range modules {
		m.Install(app, cmd)
	}
	return app
}

// OnShutdown registers fn to run when Run returns. Callbacks run in reverse
// registration order.
func (app *App) OnShutdown(fn func()) {
	app.shutdown = append(app.shutdown, fn)
}

// Run ticks the app until a system calls Commands.Exit or a stateful app
// reaches its final state.
func (app *App) Run() {
	app.start()
	defer app.stop()
	for app.Step() {
	}
}

func (app *App) start() {
	if app.stateful {
		app.Logger().Debugf("running in stateful mode")
		app.state = app.initialState
		app.callSystems(app.state, enter)
	}
}

func (app *App) stop() {
	for i := len(app.shutdown) - 1; i >= 0; i-- {
		app.shutdown[i]()
	}
	app.shutdown = nil
}

// Step runs every stage once. It reports whether the app keeps running.
func (app *App) Step() bool {
	app.callSystems(app.state, execute)

	if app.stateful {
		if app.stateTransitioning {
			app.stateTransitioning = false
			app.executeChangeState(app.nextState)
		}
		if app.state == app.finalState {
			app.callSystems(app.state, exit)
			return false
		}
	}
	return !app.exiting
}

func (app *App) callSystems(state State, phase statePhase) {
	for _, stage := range app.stages {
		if execute == phase {
			for _, system := range app.systemsStateless[stage.Name] {
				app.callSystem(system)
			}
		}

		if !app.stateful {
			continue
		}
		if inStage, ok := app.systems[stage.Name]; ok {
			if inState, ok := inStage[state]; ok {
				for _, system := range inState[phase] {
					app.callSystem(system)
				}
			}
		}
	}
}

func (app *App) changeState(newState State) {
	app.nextState = newState
	app.stateTransitioning = true
}

func (app *App) executeChangeState(newState State) {
	app.callSystems(app.state, exit)
	app.state = newState
	app.callSystems(app.state, enter)
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}
		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type *T.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())
	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, ok := app.resources[underlyingType]; ok {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("unable to resolve system dependency\nsystem: %s\nsystem type: %s\ndependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				systemType,
				argType,
			)
			app.Logger().Criticalf("%s", msg)
			panic(msg)
		}
	}
	systemValue.Call(args)
}
