// Package layout turns a layout file into deck trees and handles key actions.
package layout

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/deckr/internal/config"
	"github.com/alexisbeaulieu97/deckr/internal/logger"
	"github.com/alexisbeaulieu97/deckr/pkg/deck"
	"github.com/alexisbeaulieu97/deckr/pkg/deckr"
	deckerrors "github.com/alexisbeaulieu97/deckr/pkg/errors"
)

// Options configures a Controller.
type Options struct {
	Runner Runner
	Logger *logger.Logger
	// Debounce delays page switches triggered by presses. Zero renders immediately.
	Debounce time.Duration
	// StartPage overrides the layout's start page when it names an existing page.
	StartPage string
	// OnPageChange is called after every page switch.
	OnPageChange func(page string)
}

// Controller shows the pages of one layout on one device.
type Controller struct {
	cfg      *config.Config
	renderer *deckr.Renderer
	device   deck.Device
	runner   Runner
	log      *logger.Logger
	debounce time.Duration
	start    string
	onChange func(page string)

	mu   sync.Mutex
	ctx  context.Context
	page string

	commands sync.WaitGroup
}

// New returns a controller. Nothing is drawn until Start.
func New(cfg *config.Config, r *deckr.Renderer, device deck.Device, opts Options) *Controller {
	c := &Controller{
		cfg:      cfg,
		renderer: r,
		device:   device,
		runner:   opts.Runner,
		log:      opts.Logger,
		debounce: opts.Debounce,
		start:    cfg.StartPage(),
		onChange: opts.OnPageChange,
		ctx:      context.Background(),
	}
	if _, ok := cfg.Page(opts.StartPage); ok {
		c.start = opts.StartPage
	}
	if c.runner == nil {
		c.runner = ShellRunner{Dir: cfg.BaseDir}
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

// Start draws the start page. Commands started by presses are bound to ctx.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	tree, err := c.Tree(c.start)
	if err != nil {
		return err
	}
	c.setPage(c.start)
	c.renderer.Render(tree, c.device)
	return nil
}

// Show switches to page.
func (c *Controller) Show(page string) error {
	tree, err := c.Tree(page)
	if err != nil {
		return err
	}
	c.setPage(page)
	c.log.WithFields(map[string]any{"page": page}).Debug("showing page")
	if c.onChange != nil {
		c.onChange(page)
	}

	if c.debounce > 0 {
		c.renderer.RenderAfter(tree, c.device, c.debounce)
		return nil
	}
	c.renderer.Render(tree, c.device)
	return nil
}

// Page returns the page currently shown.
func (c *Controller) Page() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Wait blocks until commands started by presses have exited.
func (c *Controller) Wait() {
	c.commands.Wait()
}

// Tree builds the element tree for page. Keys are keyed by page so a page
// switch replaces every instance instead of patching the previous page's keys.
func (c *Controller) Tree(page string) (deckr.Element, error) {
	p, ok := c.cfg.Page(page)
	if !ok {
		return deckr.Element{}, fmt.Errorf("unknown page %q", page)
	}

	children := make([]deckr.Element, 0, len(p.Keys))
	for i, k := range p.Keys {
		slot := k.Slot(i)
		props := deckr.KeyProps{
			Position: deckr.At(slot),
			Color:    k.Color,
			Image:    c.resolveImage(k.Image),
		}
		if k.OnPress != nil {
			props.OnPress = c.action(page, slot, *k.OnPress)
		}
		children = append(children, deckr.Keyed(fmt.Sprintf("%s/%d", page, slot), deckr.LcdKey(props)))
	}
	return deckr.Fragment(children...), nil
}

func (c *Controller) action(page string, index int, a config.Action) func() {
	if a.Page != "" {
		target := a.Page
		return func() {
			if err := c.Show(target); err != nil {
				c.log.Error(deckerrors.NewActionError(page, index, err), "page switch failed")
			}
		}
	}

	command := a.Command
	return func() {
		c.mu.Lock()
		ctx := c.ctx
		c.mu.Unlock()

		c.commands.Add(1)
		go func() {
			defer c.commands.Done()
			log := c.log.WithFields(map[string]any{"page": page, "key": index, "command": command})
			res, err := c.runner.Run(ctx, command)
			if err != nil {
				log.Error(deckerrors.NewActionError(page, index, err), "key command failed")
				return
			}
			if out := res.PrimaryOutput(); out != "" {
				log.WithFields(map[string]any{"output": out}).Debug("key command finished")
				return
			}
			log.Debug("key command finished")
		}()
	}
}

func (c *Controller) resolveImage(path string) string {
	if path == "" || filepath.IsAbs(path) || c.cfg.BaseDir == "" {
		return path
	}
	return filepath.Join(c.cfg.BaseDir, path)
}

func (c *Controller) setPage(page string) {
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
}
