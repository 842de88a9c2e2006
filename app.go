package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"airvoice/internal/bootstrap"
	"airvoice/internal/config"
	"airvoice/internal/domain"
	"airvoice/internal/keypad"
	"airvoice/internal/usecase"
)

const (
	eventFrame = "airvoice:frame"
	eventError = "airvoice:error"
)

const uiSource = "ui"

// App is the Wails application root. It owns the controller lifecycle and
// relays snapshots to the frontend as events.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger

	controller *usecase.OverlayController
	cfg        config.Config
	bootErr    error
}

func NewApp(log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{log: log}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, a.log)
	if err != nil {
		a.bootErr = err
		a.emitError(err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go services.Controller.Run(runCtx)
	if services.Voice != nil {
		go services.Voice.Run(runCtx)
	}
	if services.Gesture != nil {
		go services.Gesture.Run(runCtx)
	}
}

func (a *App) shutdown(_ context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
}

// Frame relays one overlay snapshot to the frontend.
func (a *App) Frame(snap domain.Snapshot) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventFrame, snap)
}

// GetSnapshot returns the overlay state as of the last tick.
func (a *App) GetSnapshot() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	return a.controller.Snapshot(), nil
}

// GetDiagnostics returns the core's counters.
func (a *App) GetDiagnostics() (usecase.Diagnostics, error) {
	if err := a.requireReady(); err != nil {
		return usecase.Diagnostics{}, err
	}
	return a.controller.Diagnostics(), nil
}

// Theme is the styling the frontend applies to the painted layers.
type Theme struct {
	Colors     domain.ColorScheme `json:"colors"`
	ToastWidth int                `json:"toastWidth"`
}

func themeFromConfig(cfg config.Config) Theme {
	return Theme{Colors: cfg.Overlay.Colors, ToastWidth: cfg.Overlay.ToastWidth}
}

// GetTheme returns the configured palette and toast sizing.
func (a *App) GetTheme() (Theme, error) {
	if err := a.requireReady(); err != nil {
		return Theme{}, err
	}
	return themeFromConfig(a.cfg), nil
}

// GetKeypadLayout returns the configured key grid for rendering.
func (a *App) GetKeypadLayout() (keypad.Layout, error) {
	if err := a.requireReady(); err != nil {
		return keypad.Layout{}, err
	}
	return a.controller.KeypadLayout(), nil
}

// SetPlacement changes where the overlay anchors on screen.
func (a *App) SetPlacement(mode string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	sig := domain.NewSignal(domain.SignalPlacementChanged, uiSource)
	sig.Placement = domain.PlacementMode(mode)
	a.controller.Publish(sig)
	return nil
}

// SetAccessibilityMode switches the outward rendering policy.
func (a *App) SetAccessibilityMode(mode string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	sig := domain.NewSignal(domain.SignalAccessibilityChanged, uiSource)
	sig.Accessibility = domain.AccessibilityMode(mode)
	a.controller.Publish(sig)
	return nil
}

// RequestKeypad opens the on-screen keypad.
func (a *App) RequestKeypad() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Publish(domain.NewSignal(domain.SignalKeypadRequested, uiSource))
	return nil
}

// SelectKey highlights the given key while the keypad is open.
func (a *App) SelectKey(code string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Publish(domain.NewText(domain.SignalKeypadKeySelected, uiSource, code))
	return nil
}

// DismissKeypad closes the on-screen keypad.
func (a *App) DismissKeypad() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Publish(domain.NewSignal(domain.SignalKeypadDismissed, uiSource))
	return nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"placement":     string(a.cfg.Overlay.Placement),
		"accessibility": string(a.cfg.Overlay.Accessibility),
		"screen":        fmt.Sprintf("%dx%d", a.cfg.Overlay.ScreenWidth, a.cfg.Overlay.ScreenHeight),
		"voice":         strconv.FormatBool(a.cfg.Voice.Enabled),
		"gesture":       strconv.FormatBool(a.cfg.Gesture.Enabled),
		"model":         a.cfg.Deepgram.Model,
		"language":      a.cfg.Deepgram.Language,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) emitError(detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{"message": detail})
}
