package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"gogvault/internal/config"
	"gogvault/internal/logging"
	"gogvault/internal/manifest"
	"gogvault/internal/update"
)

type commandContext struct {
	configFlag   *string
	manifestFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, manifestFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		manifestFlag: manifestFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.manifestFlag != nil && strings.TrimSpace(*c.manifestFlag) != "" {
			expanded, err := config.ExpandPath(strings.TrimSpace(*c.manifestFlag))
			if err != nil {
				c.configErr = err
				return
			}
			cfg.Paths.ManifestPath = expanded
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) newStore(logger *slog.Logger) (*manifest.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return manifest.NewStore(cfg.Paths.ManifestPath, logger), nil
}

// loadManifest returns the stored manifest, or an empty one on first use.
func loadManifest(store *manifest.Store) (*manifest.Manifest, error) {
	m, err := store.Load()
	if errors.Is(err, manifest.ErrNotFound) {
		return manifest.New(), nil
	}
	return m, err
}

// stdinConfirmer asks questions on stdout and reads answers from stdin.
// Without a terminal every question is answered no, so scripted runs never
// destroy a checkpoint implicitly.
func stdinConfirmer() update.Confirmer {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return func(string) bool { return false }
	}
	reader := bufio.NewReader(os.Stdin)
	return func(question string) bool {
		fmt.Printf("%s [y/N]: ", question)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
