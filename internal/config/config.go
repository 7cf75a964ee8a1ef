// Package config loads the greeting's settings: YAML file first, then
// environment overrides, then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the complete greeting configuration.
type Config struct {
	Intro  IntroConfig  `yaml:"intro"`
	Card   CardConfig   `yaml:"card"`
	Audio  AudioConfig  `yaml:"audio"`
	Render RenderConfig `yaml:"render"`
	SSH    SSHConfig    `yaml:"ssh"`
	Web    WebConfig    `yaml:"web"`
}

// IntroConfig configures the intro overlay.
type IntroConfig struct {
	Duration time.Duration `yaml:"duration"` // How long the fireworks run
	Grace    time.Duration `yaml:"grace"`    // Extra time before the overlay hides itself
	Colors   []string      `yaml:"colors"`
	Title    string        `yaml:"title"`
	Subtitle string        `yaml:"subtitle"`
	Hint     string        `yaml:"hint"`
}

// CardConfig configures the card and its message.
type CardConfig struct {
	Badge             string        `yaml:"badge"`
	HintClosed        string        `yaml:"hint_closed"`
	HintOpen          string        `yaml:"hint_open"`
	Eyebrow           string        `yaml:"eyebrow"`
	Heading           string        `yaml:"heading"`
	Greeting          string        `yaml:"greeting"`
	Paragraphs        []string      `yaml:"paragraphs"`
	Signature         string        `yaml:"signature"`
	LeftPhoto         string        `yaml:"left_photo"`
	RightPhoto        string        `yaml:"right_photo"`
	RevealDuration    time.Duration `yaml:"reveal_duration"`
	CelebrationColors []string      `yaml:"celebration_colors"`
}

// AudioConfig selects the background music output.
type AudioConfig struct {
	Kind   string  `yaml:"kind"` // speaker, bell or none
	Path   string  `yaml:"path"` // MP3 file; empty plays the built-in melody
	Volume float64 `yaml:"volume"`
}

// RenderConfig tunes the frame loop and the confetti load.
type RenderConfig struct {
	FPS          int     `yaml:"fps"`
	Density      float64 `yaml:"density"` // Fraction of burst particles spawned
	MaxParticles int     `yaml:"max_particles"`
	MaxWidth     int     `yaml:"max_width"`
	MaxHeight    int     `yaml:"max_height"`
}

// SSHConfig configures the SSH server.
type SSHConfig struct {
	Host        string        `yaml:"host"`
	Port        string        `yaml:"port"`
	HostKeyPath string        `yaml:"host_key_path"`
	Inactivity  time.Duration `yaml:"inactivity"` // Idle time before a viewer is disconnected
	Audio       string        `yaml:"audio"`      // Audio kind for remote viewers
}

// WebConfig configures the landing page server.
type WebConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	DisplayHost string `yaml:"display_host"` // Host name shown in the ssh command
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Intro: IntroConfig{
			Duration: 3500 * time.Millisecond,
			Grace:    300 * time.Millisecond,
			Colors:   []string{"#fecaca", "#fbbf24", "#fb7185", "#e0f2fe", "#c4b5fd"},
			Title:    "HAPPY BIRTHDAY",
			Subtitle: "To the most special woman in our lives",
			Hint:     "(Press space to open your card & start the music)",
		},
		Card: CardConfig{
			Badge:      "♥ For the most special woman ♥",
			HintClosed: "Press space to open your birthday surprise.",
			HintOpen:   "Press space to gently close it again.",
			Eyebrow:    "HAPPY BIRTHDAY, MOM",
			Heading:    "To the heart of our family",
			Greeting:   "Dear Mom,",
			Paragraphs: []string{
				"On your special day, I just want to say thank you for your endless love, your patience, and your strength. You are the heart of our family and the person who has always believed in me.",
				"I am so grateful to call you my mother, and I love you more than words can ever say.",
			},
			Signature:         "With all my love, your child ♥",
			RevealDuration:    700 * time.Millisecond,
			CelebrationColors: []string{"#fb7185", "#f472b6", "#fbbf24", "#fde68a", "#fff1f2"},
		},
		Audio: AudioConfig{
			Kind:   "speaker",
			Volume: -0.5,
		},
		Render: RenderConfig{
			FPS:          30,
			Density:      0.5,
			MaxParticles: 3000,
			MaxWidth:     160,
			MaxHeight:    50,
		},
		SSH: SSHConfig{
			Host:        "::",
			Port:        "2222",
			HostKeyPath: ".ssh/greeting_host_key",
			Inactivity:  10 * time.Minute,
			Audio:       "bell",
		},
		Web: WebConfig{
			Host:        "0.0.0.0",
			Port:        "8080",
			DisplayHost: "localhost",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from GREETING_* and the SSH_/WEB_ variables.
func (c *Config) ApplyEnv() {
	c.Intro.Duration = GetEnvDuration("GREETING_INTRO_DURATION", c.Intro.Duration)
	c.Intro.Grace = GetEnvDuration("GREETING_INTRO_GRACE", c.Intro.Grace)
	c.Audio.Kind = GetEnv("GREETING_AUDIO", c.Audio.Kind)
	c.Audio.Path = GetEnv("GREETING_AUDIO_PATH", c.Audio.Path)
	c.Card.LeftPhoto = GetEnv("GREETING_LEFT_PHOTO", c.Card.LeftPhoto)
	c.Card.RightPhoto = GetEnv("GREETING_RIGHT_PHOTO", c.Card.RightPhoto)
	c.Render.FPS = GetEnvInt("GREETING_FPS", c.Render.FPS)

	c.SSH.Host = GetEnv("SSH_HOST", c.SSH.Host)
	c.SSH.Port = GetEnv("SSH_PORT", c.SSH.Port)
	c.SSH.HostKeyPath = GetEnv("SSH_HOST_KEY", c.SSH.HostKeyPath)
	c.SSH.Inactivity = GetEnvDuration("SSH_INACTIVITY", c.SSH.Inactivity)

	c.Web.Host = GetEnv("WEB_HOST", c.Web.Host)
	c.Web.Port = GetEnv("WEB_PORT", c.Web.Port)
	c.Web.DisplayHost = GetEnv("SSH_DISPLAY_HOST", c.Web.DisplayHost)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Intro.Duration > 0, "intro.duration must be positive, got %s", c.Intro.Duration)
	check(c.Intro.Grace >= 0, "intro.grace must not be negative, got %s", c.Intro.Grace)
	check(c.Card.RevealDuration > 0, "card.reveal_duration must be positive, got %s", c.Card.RevealDuration)
	check(c.Render.FPS > 0 && c.Render.FPS <= 120, "render.fps must be in 1..120, got %d", c.Render.FPS)
	check(c.Render.Density > 0 && c.Render.Density <= 1, "render.density must be in (0,1], got %g", c.Render.Density)
	check(c.Render.MaxParticles > 0, "render.max_particles must be positive, got %d", c.Render.MaxParticles)
	check(c.Render.MaxWidth >= 40 && c.Render.MaxHeight >= 16, "render.max_width/max_height too small: %dx%d", c.Render.MaxWidth, c.Render.MaxHeight)
	check(c.SSH.Inactivity >= 0, "ssh.inactivity must not be negative, got %s", c.SSH.Inactivity)
	for _, kind := range []string{c.Audio.Kind, c.SSH.Audio} {
		check(kind == "speaker" || kind == "bell" || kind == "none", "unknown audio kind %q", kind)
	}
	return errors.Join(errs...)
}

// FrameTime returns the target duration of one frame.
func (c Config) FrameTime() time.Duration {
	return time.Second / time.Duration(c.Render.FPS)
}
