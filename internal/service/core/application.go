package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/device-core/internal/audio"
	"github.com/oshokin/device-core/internal/board"
	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/loop"
	"github.com/oshokin/device-core/internal/mcp"
	"github.com/oshokin/device-core/internal/service/scheduler"
	"github.com/oshokin/device-core/internal/service/statemachine"
	"github.com/oshokin/device-core/internal/service/tools"
	"github.com/oshokin/device-core/internal/transport"
)

const (
	// clockInterval is the period of the clock tick.
	clockInterval = time.Second
	// statusBarEvery is how many clock ticks pass between status bar refreshes.
	statusBarEvery = 5
	// syncedYear is the first year treated as a synchronized clock.
	syncedYear = 2020
)

var (
	// ErrRebootDisabled is returned when reboots are not allowed by configuration.
	ErrRebootDisabled = errors.New("reboot is disabled")
	// ErrNoRebooter is returned when no reboot implementation is wired.
	ErrNoRebooter = errors.New("no reboot implementation")
)

// Audio is the audio pipeline the application drives.
type Audio interface {
	audio.Pipeline
	SetNotifier(notifier audio.Notifier)
}

// RebootFunc restarts the host.
type RebootFunc func(ctx context.Context) error

// Dependencies are the collaborators of an Application.
type Dependencies struct {
	// Board provides display, indicator, codec and music.
	Board *board.Board
	// Transport is the session channel.
	Transport transport.Transport
	// Audio is the capture and playback pipeline.
	Audio Audio
	// Classroom is the classroom controller, nil when disabled.
	Classroom tools.Classroom
	// Car is the smart car controller, nil when disabled.
	Car tools.Car
	// Reboot restarts the host, nil disables reboots.
	Reboot RebootFunc
}

// Settings are the behavior switches of an Application.
type Settings struct {
	// FirmwareVersion is reported in tool initialization.
	FirmwareVersion string
	// Location is the alarm time zone.
	Location *time.Location
	// AecMode selects where echo cancellation runs.
	AecMode device.AecMode
	// WakeWordWhileSpeaking keeps wake word detection armed while speaking.
	WakeWordWhileSpeaking bool
	// AllowReboot lets the server restart the host.
	AllowReboot bool
	// QueryDelay is the settle time of sensor tools.
	QueryDelay time.Duration
	// ListBudget bounds tools/list pages.
	ListBudget int
	// DefaultStackSize is the worker budget of calls without stackSize.
	DefaultStackSize int
	// TotalStackBudget bounds concurrently running tool workers.
	TotalStackBudget int
}

// Option customizes an Application.
type Option func(*Application)

// WithClock replaces time.Now for the clock tick and alarms.
func WithClock(now func() time.Time) Option {
	return func(a *Application) {
		if now != nil {
			a.now = now
		}
	}
}

// Application is the device core.
type Application struct {
	// deps are the collaborators.
	deps Dependencies
	// settings are the behavior switches.
	settings Settings
	// now returns the current time.
	now func() time.Time

	// loop serializes every state change.
	loop *loop.Loop
	// machine holds the device state.
	machine *statemachine.Machine
	// session builds session messages.
	session *transport.Session
	// absorber plays external PCM.
	absorber *audio.Absorber
	// registry is the tool catalog.
	registry *mcp.Registry
	// pool runs tool calls.
	pool *mcp.WorkerPool
	// tools answers tool envelopes.
	tools *mcp.Server
	// alarms owns the alarm list.
	alarms *scheduler.Scheduler

	// aec is the current device.AecMode.
	aec atomic.Int32
	// localID numbers tool calls made by the device itself.
	localID atomic.Int64
	// errMu guards lastError.
	errMu sync.Mutex
	// lastError is the message of the last network error.
	lastError string

	// The fields below are touched by the loop only.

	// aborted is set when speech was aborted and cleared on the next tts start.
	aborted bool
	// clockTicks counts clock ticks since start.
	clockTicks int64
	// clockSynced remembers the last clock sync decision.
	clockSynced bool
}

// New wires an application. Call Run to start it.
func New(ctx context.Context, deps Dependencies, settings Settings, opts ...Option) *Application {
	a := &Application{
		deps:     deps,
		settings: settings,
		now:      time.Now,
		session:  transport.NewSession(deps.Transport),
		absorber: audio.NewAbsorber(deps.Board.Codec),
		registry: mcp.NewRegistry(),
		pool:     mcp.NewWorkerPool(settings.TotalStackBudget),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.aec.Store(int32(settings.AecMode))

	a.loop = loop.New(loop.Handlers{
		OnTransportError:       a.onTransportError,
		OnAudioReadyToSend:     a.onAudioReadyToSend,
		OnWakeWordDetected:     a.onWakeWordDetected,
		OnVoiceActivityChanged: a.onVoiceActivityChanged,
	})

	a.machine = statemachine.New(statemachine.Dependencies{
		Audio:                 deps.Audio,
		Announcer:             a.session,
		Display:               deps.Board.Display,
		Indicator:             deps.Board.Indicator,
		Music:                 deps.Board.Music,
		WakeWordWhileSpeaking: settings.WakeWordWhileSpeaking,
	})

	a.alarms = scheduler.New(a.loop, a,
		scheduler.WithLocation(settings.Location),
		scheduler.WithClock(a.now),
	)

	a.tools = mcp.NewServer(a.registry, a.pool,
		mcp.ServerInfo{Name: deps.Board.Name, Version: settings.FirmwareVersion},
		mcp.WithListBudget(settings.ListBudget),
		mcp.WithDefaultStackSize(settings.DefaultStackSize),
		mcp.WithCapabilitiesHandler(func(ctx context.Context, caps mcp.Capabilities) {
			logger.InfoKV(ctx, "client offered vision", "url", caps.VisionURL)
		}),
	)

	catalogOpts := []tools.Option{
		tools.WithBoard(deps.Board),
		tools.WithAlarms(a.alarms),
		tools.WithStatusReporter(a),
	}

	if deps.Classroom != nil {
		catalogOpts = append(catalogOpts, tools.WithClassroom(deps.Classroom, settings.QueryDelay))
	}

	if deps.Car != nil {
		catalogOpts = append(catalogOpts, tools.WithCar(deps.Car))
	}

	tools.New(catalogOpts...).Register(ctx, a.registry)

	deps.Audio.SetNotifier(audio.Notifier{
		OnSendReady:     func() { a.loop.Raise(loop.BitAudioReadyToSend) },
		OnWakeWord:      func() { a.loop.Raise(loop.BitWakeWordDetected) },
		OnVoiceActivity: func(bool) { a.loop.Raise(loop.BitVoiceActivityChanged) },
	})

	deps.Transport.SetCallbacks(transport.Callbacks{
		OnIncomingJSON:  a.onIncomingJSON,
		OnIncomingAudio: a.onIncomingAudio,
		OnChannelOpened: a.onChannelOpened,
		OnChannelClosed: a.onChannelClosed,
		OnNetworkError:  a.onNetworkError,
	})

	return a
}

// Registry returns the tool catalog, for registering extra tools before Run.
func (a *Application) Registry() *mcp.Registry {
	return a.registry
}

// Alarms returns the alarm scheduler.
func (a *Application) Alarms() *scheduler.Scheduler {
	return a.alarms
}

// Run starts the device and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "core")

	a.start(ctx)

	if err := a.alarms.Start(ctx); err != nil {
		return fmt.Errorf("start alarms: %w", err)
	}

	var wg sync.WaitGroup

	wg.Go(func() { a.runClock(ctx) })

	err := a.loop.Run(ctx)

	wg.Wait()
	<-a.alarms.Stop().Done()

	shutdown := context.WithoutCancel(ctx)
	if a.deps.Transport.IsChannelOpen() {
		a.deps.Transport.CloseChannel(shutdown)
	}

	a.deps.Audio.Stop()
	a.pool.Wait()

	logger.Info(ctx, "device core stopped")

	return err
}

// start moves the device to Idle. It runs before the loop, on the same goroutine.
func (a *Application) start(ctx context.Context) {
	a.machine.Set(ctx, device.StateStarting)
	a.applyAecMode(ctx, a.aecMode(), false)
	a.machine.Set(ctx, device.StateIdle)

	display := a.deps.Board.Display
	display.ShowNotification("Version " + a.settings.FirmwareVersion)
	display.SetChatMessage("system", "")

	logger.InfoKV(ctx, "device core started",
		"board", a.deps.Board.Name,
		"version", a.settings.FirmwareVersion,
		"tools", a.registry.Len(),
	)
}

func (a *Application) runClock(ctx context.Context) {
	ticker := time.NewTicker(clockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.loop.Submit(a.onClock)
		}
	}
}

// onClock advances the state age and refreshes the status bar.
func (a *Application) onClock(ctx context.Context) {
	a.clockTicks++
	a.machine.Tick()

	now := a.now().In(a.location())

	synced := now.Year() >= syncedYear
	switch {
	case synced && !a.clockSynced:
		logger.Info(ctx, "clock synchronized, alarm checks are active")
	case !synced && a.clockSynced:
		logger.Warn(ctx, "clock synchronization lost")
	}

	a.clockSynced = synced

	if a.clockTicks%statusBarEvery == 0 {
		a.deps.Board.Display.UpdateStatusBar(now.Format("15:04"))
	}
}

func (a *Application) location() *time.Location {
	if a.settings.Location == nil {
		return time.Local
	}

	return a.settings.Location
}

func (a *Application) aecMode() device.AecMode {
	return device.AecMode(a.aec.Load())
}
