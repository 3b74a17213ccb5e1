package config

import (
	"time"
)

// Config is a deck layout document.
type Config struct {
	Version     string   `yaml:"version" validate:"required,semver"`
	Name        string   `yaml:"name" validate:"required,min=1,max=100"`
	Description string   `yaml:"description,omitempty"`
	Settings    Settings `yaml:"settings,omitempty"`
	Pages       []Page   `yaml:"pages" validate:"required,min=1,dive"`

	// BaseDir is the directory image paths are resolved against.
	BaseDir string `yaml:"-"`
}

// Settings holds deck wide options.
type Settings struct {
	Brightness int           `yaml:"brightness,omitempty" validate:"omitempty,min=1,max=100"`
	Verbose    bool          `yaml:"verbose,omitempty"`
	Debounce   time.Duration `yaml:"debounce,omitempty" validate:"omitempty,min=0s,max=10s"`
	StartPage  string        `yaml:"start_page,omitempty" validate:"omitempty,page_name"`
	// Deck selects the simulator layout.
	Deck string `yaml:"deck,omitempty" validate:"omitempty,oneof=mini original xl"`
}

// Page is one screen of keys.
type Page struct {
	Name string `yaml:"name" validate:"required,page_name"`
	Keys []Key  `yaml:"keys,omitempty" validate:"omitempty,dive"`
}

// Key describes a single key. Without a position the key takes its index in the page.
type Key struct {
	Position *int    `yaml:"position,omitempty" validate:"omitempty,min=0"`
	Color    string  `yaml:"color,omitempty" validate:"omitempty,hex_color"`
	Image    string  `yaml:"image,omitempty"`
	OnPress  *Action `yaml:"on_press,omitempty"`
}

// Action is what a key press does: switch page or run a command.
type Action struct {
	Page    string `yaml:"page,omitempty" validate:"omitempty,page_name"`
	Command string `yaml:"command,omitempty"`
}

// Slot returns the key's effective position within its page.
func (k Key) Slot(index int) int {
	if k.Position != nil {
		return *k.Position
	}
	return index
}

// StartPage returns the page shown first.
func (c *Config) StartPage() string {
	if c.Settings.StartPage != "" {
		return c.Settings.StartPage
	}
	if len(c.Pages) == 0 {
		return ""
	}
	return c.Pages[0].Name
}

// Page looks up a page by name.
func (c *Config) Page(name string) (Page, bool) {
	for _, p := range c.Pages {
		if p.Name == name {
			return p, true
		}
	}
	return Page{}, false
}
