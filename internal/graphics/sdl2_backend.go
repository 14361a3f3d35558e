//go:build !headless && sdl2
// +build !headless,sdl2

package graphics

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"
)

// SDL2Backend implements the Backend interface with go-sdl2, an alternate
// windowed presentation path alongside EbitengineBackend. Selected via
// VideoConfig.Backend = "sdl2".
type SDL2Backend struct {
	initialized bool
	config      Config
}

// SDL2Window implements the Window interface for an SDL2 window + renderer.
type SDL2Window struct {
	backend  *SDL2Backend
	title    string
	width    int
	height   int
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	running  bool
}

// NewSDL2Backend creates a new SDL2 graphics backend.
func NewSDL2Backend() Backend {
	return &SDL2Backend{}
}

func init() {
	newSDL2Backend = NewSDL2Backend
}

// Initialize brings up the SDL2 video subsystem.
func (b *SDL2Backend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("SDL2 backend already initialized")
	}
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %w", err)
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates an SDL2 window, renderer, and streaming texture sized
// for the 256x240 NES frame buffer.
func (b *SDL2Backend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	flags := uint32(sdl.WINDOW_SHOWN)
	if b.config.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN
	}

	win, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height), flags)
	if err != nil {
		return nil, fmt.Errorf("failed to create SDL2 window: %w", err)
	}

	rendererFlags := uint32(sdl.RENDERER_ACCELERATED)
	if b.config.VSync {
		rendererFlags |= sdl.RENDERER_PRESENTVSYNC
	}
	renderer, err := sdl.CreateRenderer(win, -1, rendererFlags)
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("failed to create SDL2 renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, 256, 240)
	if err != nil {
		renderer.Destroy()
		win.Destroy()
		return nil, fmt.Errorf("failed to create SDL2 texture: %w", err)
	}

	window := &SDL2Window{
		backend:  b,
		title:    title,
		width:    width,
		height:   height,
		window:   win,
		renderer: renderer,
		texture:  texture,
		running:  true,
	}
	return window, nil
}

// Cleanup shuts down SDL2.
func (b *SDL2Backend) Cleanup() error {
	sdl.Quit()
	b.initialized = false
	return nil
}

// IsHeadless is always false for SDL2.
func (b *SDL2Backend) IsHeadless() bool { return false }

// GetName returns the backend name.
func (b *SDL2Backend) GetName() string { return "SDL2" }

// SetTitle updates the SDL2 window title.
func (w *SDL2Window) SetTitle(title string) {
	w.title = title
	w.window.SetTitle(title)
}

// GetSize returns window dimensions.
func (w *SDL2Window) GetSize() (width, height int) {
	return w.window.GetSize()
}

// ShouldClose reports whether a quit event has been observed.
func (w *SDL2Window) ShouldClose() bool {
	return !w.running
}

// SwapBuffers presents the renderer.
func (w *SDL2Window) SwapBuffers() {
	w.renderer.Present()
}

// PollEvents drains the SDL2 event queue into the backend-neutral InputEvent
// form, mapping the same key set EbitengineBackend understands.
func (w *SDL2Window) PollEvents() []InputEvent {
	var events []InputEvent
	for {
		event := sdl.PollEvent()
		if event == nil {
			break
		}
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.running = false
			events = append(events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
		case *sdl.KeyboardEvent:
			if key, ok := sdlKeyMap[e.Keysym.Sym]; ok {
				events = append(events, InputEvent{
					Type:    InputEventTypeKey,
					Key:     key,
					Pressed: e.Type == sdl.KEYDOWN,
				})
			}
			if e.Keysym.Sym == sdl.K_ESCAPE && e.Type == sdl.KEYDOWN {
				w.running = false
			}
		}
	}
	return events
}

var sdlKeyMap = map[sdl.Keycode]Key{
	sdl.K_ESCAPE: KeyEscape,
	sdl.K_RETURN: KeyEnter,
	sdl.K_SPACE:  KeySpace,
	sdl.K_UP:     KeyUp,
	sdl.K_DOWN:   KeyDown,
	sdl.K_LEFT:   KeyLeft,
	sdl.K_RIGHT:  KeyRight,
	sdl.K_w:      KeyW,
	sdl.K_a:      KeyA,
	sdl.K_s:      KeyS,
	sdl.K_d:      KeyD,
	sdl.K_j:      KeyJ,
	sdl.K_k:      KeyK,
	sdl.K_x:      KeyX,
	sdl.K_z:      KeyZ,
}

// RenderFrame uploads the NES frame buffer into the streaming texture and
// draws it stretched to the window.
func (w *SDL2Window) RenderFrame(frameBuffer [256 * 240]uint32) error {
	pixels, pitch, err := w.texture.Lock(nil)
	if err != nil {
		return fmt.Errorf("failed to lock SDL2 texture: %w", err)
	}
	dst := (*[256 * 240]uint32)(unsafe.Pointer(&pixels[0]))
	rowWords := pitch / 4
	for y := 0; y < 240; y++ {
		copy(dst[y*rowWords:y*rowWords+256], frameBuffer[y*256:y*256+256])
	}
	w.texture.Unlock()

	w.renderer.Clear()
	w.renderer.Copy(w.texture, nil, nil)
	return nil
}

// Cleanup destroys the SDL2 texture, renderer, and window.
func (w *SDL2Window) Cleanup() error {
	w.running = false
	if w.texture != nil {
		w.texture.Destroy()
	}
	if w.renderer != nil {
		w.renderer.Destroy()
	}
	if w.window != nil {
		w.window.Destroy()
	}
	return nil
}
