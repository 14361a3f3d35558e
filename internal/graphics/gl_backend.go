//go:build !headless && gl
// +build !headless,gl

package graphics

import (
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// GLBackend implements the Backend interface with raw go-gl + glfw: a
// texture-upload-and-blit path for hosts that want to avoid both
// ebitengine's and SDL2's higher-level event loops.
type GLBackend struct {
	initialized bool
	config      Config
}

// GLWindow implements the Window interface over a glfw window rendering a
// single textured quad.
type GLWindow struct {
	title       string
	width       int
	height      int
	glfwWindow  *glfw.Window
	program     uint32
	textureID   uint32
	running     bool
	imageBuffer *image.RGBA
}

const (
	glVertexShader = `
#version 330
attribute vec3 position;
attribute vec2 uv;
varying vec2 vuv;
void main(void){
  gl_Position = vec4(position, 1.0);
  vuv = uv;
}
` + "\x00"

	glFragmentShader = `
#version 330
varying vec2 vuv;
uniform sampler2D tex;
void main(void){
  gl_FragColor = texture2D(tex, vuv);
}
` + "\x00"
)

var (
	glVertexPosition = []float32{1, 1, -1, 1, -1, -1, 1, -1}
	glVertexUV       = []float32{1, 0, 0, 0, 0, 1, 1, 1}
)

// NewGLBackend creates a new raw-OpenGL graphics backend.
func NewGLBackend() Backend {
	return &GLBackend{}
}

func init() {
	newGLBackend = NewGLBackend
}

// Initialize brings up GLFW.
func (b *GLBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("GL backend already initialized")
	}
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates a glfw window, compiles the blit shader program, and
// allocates the texture the NES frame buffer is uploaded into each frame.
func (b *GLBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	glfwWindow, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	glfwWindow.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize gl: %w", err)
	}

	program, err := compileGLProgram()
	if err != nil {
		return nil, err
	}
	gl.UseProgram(program)

	var textureID uint32
	gl.GenTextures(1, &textureID)

	return &GLWindow{
		title:       title,
		width:       width,
		height:      height,
		glfwWindow:  glfwWindow,
		program:     program,
		textureID:   textureID,
		running:     true,
		imageBuffer: image.NewRGBA(image.Rect(0, 0, 256, 240)),
	}, nil
}

// Cleanup terminates GLFW.
func (b *GLBackend) Cleanup() error {
	glfw.Terminate()
	b.initialized = false
	return nil
}

// IsHeadless is always false.
func (b *GLBackend) IsHeadless() bool { return false }

// GetName returns the backend name.
func (b *GLBackend) GetName() string { return "GL" }

func compileGLShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	ccode, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, ccode, nil)
	free()
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
		logStr := strings.Repeat("\x00", int(length+1))
		gl.GetShaderInfoLog(shader, length, nil, gl.Str(logStr))
		return 0, fmt.Errorf("failed to compile shader: %s", logStr)
	}
	return shader, nil
}

func compileGLProgram() (uint32, error) {
	vs, err := compileGLShader(glVertexShader, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fs, err := compileGLShader(glFragmentShader, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)
		logStr := strings.Repeat("\x00", int(length+1))
		gl.GetProgramInfoLog(program, length, nil, gl.Str(logStr))
		return 0, fmt.Errorf("failed to link program: %s", logStr)
	}
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)
	return program, nil
}

// SetTitle updates the glfw window title.
func (w *GLWindow) SetTitle(title string) {
	w.title = title
	w.glfwWindow.SetTitle(title)
}

// GetSize returns window dimensions.
func (w *GLWindow) GetSize() (width, height int) {
	return w.glfwWindow.GetSize()
}

// ShouldClose reports the glfw window's close flag.
func (w *GLWindow) ShouldClose() bool {
	return w.glfwWindow.ShouldClose()
}

// SwapBuffers presents the frame.
func (w *GLWindow) SwapBuffers() {
	w.glfwWindow.SwapBuffers()
}

// PollEvents pumps glfw's event queue; key state is read directly by the
// host via GLFW's polling API rather than buffered here.
func (w *GLWindow) PollEvents() []InputEvent {
	glfw.PollEvents()
	if w.glfwWindow.ShouldClose() {
		return []InputEvent{{Type: InputEventTypeQuit, Pressed: true}}
	}
	return nil
}

// RenderFrame uploads the NES frame buffer as a texture and draws the
// textured quad.
func (w *GLWindow) RenderFrame(frameBuffer [256 * 240]uint32) error {
	img := w.imageBuffer
	for y := 0; y < 240; y++ {
		for x := 0; x < 256; x++ {
			pixel := frameBuffer[y*256+x]
			offset := img.PixOffset(x, y)
			img.Pix[offset] = uint8((pixel >> 16) & 0xFF)
			img.Pix[offset+1] = uint8((pixel >> 8) & 0xFF)
			img.Pix[offset+2] = uint8(pixel & 0xFF)
			img.Pix[offset+3] = 0xFF
		}
	}

	gl.BindTexture(gl.TEXTURE_2D, w.textureID)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(img.Rect.Size().X), int32(img.Rect.Size().Y),
		0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	positionLoc := uint32(gl.GetAttribLocation(w.program, gl.Str("position\x00")))
	uvLoc := uint32(gl.GetAttribLocation(w.program, gl.Str("uv\x00")))
	texLoc := gl.GetUniformLocation(w.program, gl.Str("tex\x00"))
	gl.EnableVertexAttribArray(positionLoc)
	gl.EnableVertexAttribArray(uvLoc)
	gl.Uniform1i(texLoc, 0)
	gl.VertexAttribPointer(positionLoc, 2, gl.FLOAT, false, 0, gl.Ptr(glVertexPosition))
	gl.VertexAttribPointer(uvLoc, 2, gl.FLOAT, false, 0, gl.Ptr(glVertexUV))
	gl.DrawArrays(gl.TRIANGLE_FAN, 0, 4)
	return nil
}

// Cleanup destroys the glfw window.
func (w *GLWindow) Cleanup() error {
	w.running = false
	w.glfwWindow.Destroy()
	return nil
}
