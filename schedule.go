package lightwave

import (
	"fmt"
	"slices"
)

type State int

type Stage struct {
	Name string
}

var (
	Prelude    = Stage{Name: "Prelude"}
	PreUpdate  = Stage{Name: "PreUpdate"}
	Update     = Stage{Name: "Update"}
	PostUpdate = Stage{Name: "PostUpdate"}
	PreRender  = Stage{Name: "PreRender"}
	Render     = Stage{Name: "Render"}
	PostRender = Stage{Name: "PostRender"}
	Finale     = Stage{Name: "Finale"}
)

var defaultStages = []Stage{Prelude, PreUpdate, Update, PostUpdate, PreRender, Render, PostRender, Finale}

type statePhase int

const (
	enter statePhase = iota
	execute
	exit
)

type stateSchedule struct {
	state  State
	phase  statePhase
	always bool
}

func OnEnter(state State) stateSchedule   { return stateSchedule{state: state, phase: enter} }
func OnExecute(state State) stateSchedule { return stateSchedule{state: state, phase: execute} }
func OnExit(state State) stateSchedule    { return stateSchedule{state: state, phase: exit} }
func Always() stateSchedule               { return stateSchedule{always: true} }

// SystemSchedule places a system function in a stage and, optionally, a state phase.
type SystemSchedule struct {
	system   systemFn
	stage    Stage
	state    stateSchedule
	hasState bool
}

// System schedules fn in the Update stage of every state. fn takes pointers
// to resources and optionally *Commands.
func System(fn systemFn) SystemSchedule {
	return SystemSchedule{system: fn, stage: Update}
}

func (s SystemSchedule) InStage(stage Stage) SystemSchedule {
	s.stage = stage
	return s
}

func (s SystemSchedule) InState(state stateSchedule) SystemSchedule {
	s.state = state
	s.hasState = true
	return s
}

func (s SystemSchedule) RunAlways() SystemSchedule {
	s.state = Always()
	s.hasState = true
	return s
}

type stagePosition int

const (
	stageBefore stagePosition = iota
	stageAfter
)

type StagePosition struct {
	position stagePosition
	target   Stage
}

func BeforeStage(s Stage) StagePosition { return StagePosition{position: stageBefore, target: s} }
func AfterStage(s Stage) StagePosition  { return StagePosition{position: stageAfter, target: s} }

func (app *App) stageIndex(name string) int {
	return slices.IndexFunc(app.stages, func(s Stage) bool { return s.Name == name })
}

// UseStage inserts a custom stage relative to an existing one.
func (app *App) UseStage(stage Stage, where StagePosition) *App {
	idx := app.stageIndex(where.target.Name)
	if idx < 0 {
		panic(fmt.Sprintf("stage %v not found", where.target.Name))
	}
	if app.stageIndex(stage.Name) >= 0 {
		panic(fmt.Sprintf("stage %v already exists", stage.Name))
	}
	if where.position == stageAfter {
		idx++
	}
	app.stages = slices.Insert(app.stages, idx, stage)
	return app
}

func (app *App) UseSystem(s SystemSchedule) *App {
	if app.stageIndex(s.stage.Name) < 0 {
		panic(fmt.Sprintf("stage %v doesn't exist", s.stage.Name))
	}
	if !s.hasState || s.state.always {
		app.systemsStateless[s.stage.Name] = append(app.systemsStateless[s.stage.Name], s.system)
		return app
	}
	if !app.stateful {
		panic("trying to use a stateful system in a stateless app")
	}
	if s.state.state < app.initialState || s.state.state > app.finalState {
		panic(fmt.Sprintf("state %v doesn't exist", s.state.state))
	}

	inStage, ok := app.systems[s.stage.Name]
	if !ok {
		inStage = make(map[State]map[statePhase][]systemFn)
		app.systems[s.stage.Name] = inStage
	}
	inState, ok := inStage[s.state.state]
	if !ok {
		inState = make(map[statePhase][]systemFn)
		inStage[s.state.state] = inState
	}
	inState[s.state.phase] = append(inState[s.state.phase], s.system)
	return app
}
