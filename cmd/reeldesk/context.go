package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"reeldesk/internal/config"
	"reeldesk/internal/ipc"
	"reeldesk/internal/store"
)

type commandContext struct {
	socketFlag    *string
	configFlag    *string
	staffFlag     *string
	staffNameFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag, staffFlag, staffNameFlag *string) *commandContext {
	return &commandContext{
		socketFlag:    socketFlag,
		configFlag:    configFlag,
		staffFlag:     staffFlag,
		staffNameFlag: staffNameFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil {
		if socket := strings.TrimSpace(*c.socketFlag); socket != "" {
			return socket
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.SocketPath()
	}
	return filepath.Join(os.TempDir(), "reeldesk.sock")
}

// actor resolves the staff identity CLI writes are attributed to.
func (c *commandContext) actor() (ipc.Actor, error) {
	id := ""
	if c.staffFlag != nil {
		id = strings.TrimSpace(*c.staffFlag)
	}
	if id == "" {
		id = strings.TrimSpace(os.Getenv("REELDESK_STAFF_ID"))
	}
	if id == "" {
		id = strings.TrimSpace(os.Getenv("USER"))
	}
	if id == "" {
		return ipc.Actor{}, errors.New("staff id unknown; pass --staff or set REELDESK_STAFF_ID")
	}
	name := ""
	if c.staffNameFlag != nil {
		name = strings.TrimSpace(*c.staffNameFlag)
	}
	return ipc.Actor{StaffID: id, StaffName: name}, nil
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

// withDesk runs fn against the daemon when it is reachable and against the
// database otherwise.
func (c *commandContext) withDesk(fn func(deskAPI) error) error {
	client, err := ipc.Dial(c.socketPath())
	if err == nil {
		defer client.Close()
		return fn(&deskIPCAdapter{client: client})
	}
	if !daemonOffline(err) {
		return wrapDialError(err, c.socketPath())
	}

	cfg, cfgErr := c.ensureConfig()
	if cfgErr != nil {
		return cfgErr
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()
	return fn(newDeskStoreAdapter(cfg, st))
}

func daemonOffline(err error) bool {
	return errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED) || os.IsNotExist(err)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `reeldesk serve`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
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
