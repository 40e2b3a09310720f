package gles

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v3.1/gles2"

	"github.com/gogpu/glscene/backend"
)

// Every fragment program assumes premultiplied input.

const vertexShader = `
uniform vec2 u_resolution;
uniform mat4 u_matrix;
attribute vec2 pos;
attribute vec2 uv;
varying vec2 v_uv;
void main()
{
  vec4 p = u_matrix * vec4(pos, 0, 1);
  vec4 zeroToOne = p / vec4(u_resolution, u_resolution.x, 1);
  vec4 zeroToTwo = zeroToOne * vec4(2.0, 2.0, 1, 1);
  vec4 clipSpace = zeroToTwo - vec4(1.0, 1.0, 0, 0);
  clipSpace.w = 1.0 + clipSpace.z;
  gl_Position = clipSpace * vec4(1, -1, 1, 1);
  v_uv = uv;
}
` + "\x00"

const solidFragmentShader = `
#ifdef GL_ES
precision mediump float;
#endif
uniform float u_alpha;
uniform vec4 u_color;
void main()
{
  gl_FragColor = u_color * u_alpha;
}
` + "\x00"

const textureFragmentShader = `
#ifdef GL_ES
precision mediump float;
#endif
uniform sampler2D s_texture;
uniform float u_alpha;
varying vec2 v_uv;
void main()
{
  gl_FragColor = texture2D(s_texture, v_uv) * u_alpha;
}
` + "\x00"

const alphaTextureFragmentShader = `
#ifdef GL_ES
precision mediump float;
#endif
uniform sampler2D s_texture;
uniform float u_alpha;
uniform vec4 u_color;
varying vec2 v_uv;
void main()
{
  float a = u_alpha * texture2D(s_texture, v_uv).a;
  gl_FragColor = u_color * a;
}
` + "\x00"

const maskedFragmentShader = `
#ifdef GL_ES
precision mediump float;
#endif
uniform sampler2D s_texture;
uniform sampler2D s_mask;
uniform float u_alpha;
varying vec2 v_uv;
void main()
{
  float a = u_alpha * texture2D(s_mask, v_uv).a;
  gl_FragColor = texture2D(s_texture, v_uv) * a;
}
` + "\x00"

// Fixed attribute locations shared by all programs.
const (
	attribPos = 0
	attribUV  = 1
)

// program is a linked shader program with its uniform locations.
// Locations are -1 when the program does not declare the uniform.
type program struct {
	id         uint32
	resolution int32
	matrix     int32
	alpha      int32
	color      int32
	texture    int32
	mask       int32
}

func fragmentSource(p backend.Program) string {
	switch p {
	case backend.ProgramTexture:
		return textureFragmentShader
	case backend.ProgramAlphaTexture:
		return alphaTextureFragmentShader
	case backend.ProgramTextureMasked:
		return maskedFragmentShader
	default:
		return solidFragmentShader
	}
}

func newProgram(vertexSource, fragmentSource string) (*program, error) {
	vs, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	fs, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return nil, err
	}

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	gl.BindAttribLocation(id, attribPos, gl.Str("pos\x00"))
	gl.BindAttribLocation(id, attribUV, gl.Str("uv\x00"))
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteProgram(id)
		gl.DeleteShader(vs)
		gl.DeleteShader(fs)
		return nil, fmt.Errorf("gles: link program: %v", log)
	}

	gl.DetachShader(id, vs)
	gl.DetachShader(id, fs)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	return &program{
		id:         id,
		resolution: gl.GetUniformLocation(id, gl.Str("u_resolution\x00")),
		matrix:     gl.GetUniformLocation(id, gl.Str("u_matrix\x00")),
		alpha:      gl.GetUniformLocation(id, gl.Str("u_alpha\x00")),
		color:      gl.GetUniformLocation(id, gl.Str("u_color\x00")),
		texture:    gl.GetUniformLocation(id, gl.Str("s_texture\x00")),
		mask:       gl.GetUniformLocation(id, gl.Str("s_mask\x00")),
	}, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("gles: compile shader: %v", log)
	}
	return shader, nil
}
