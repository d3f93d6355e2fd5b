// Package service installs a phoenix daemon (the nudge scheduler or the
// Discord bot) as a launchd user agent.
package service

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/chris/phoenix/config"
	"github.com/chris/phoenix/internal/store"
	"github.com/joho/godotenv"
)

const (
	labelPrefix    = "com.phoenix."
	DefaultBinPath = "/usr/local/bin/phoenix"
)

// Commands that can run under launchd.
const (
	CommandRemind = "remind"
	CommandBot    = "bot"
)

type Service struct {
	Command string
	BinPath string
	Home    string
	// Executable is the binary copied to BinPath; empty means the running one.
	Executable string
	Out        io.Writer

	launchctl func(args ...string) (string, error)
}

func New(command string, out io.Writer) (*Service, error) {
	if command != CommandRemind && command != CommandBot {
		return nil, fmt.Errorf("unknown service %q (want %s or %s)", command, CommandRemind, CommandBot)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return &Service{
		Command:   command,
		BinPath:   DefaultBinPath,
		Home:      home,
		Out:       out,
		launchctl: launchctl,
	}, nil
}

func (s *Service) Label() string     { return labelPrefix + s.Command }
func (s *Service) PlistPath() string { return filepath.Join(s.Home, "Library", "LaunchAgents", s.Label()+".plist") }

func (s *Service) logPath(stream string) string {
	return filepath.Join(s.Home, "Library", "Logs", fmt.Sprintf("phoenix-%s-%s.log", s.Command, stream))
}

// Install copies the binary to BinPath, seeds ~/.phoenix/config from .env
// if needed, writes the launchd plist and loads it.
func (s *Service) Install() error {
	exe, err := s.executable()
	if err != nil {
		return err
	}

	input, err := os.ReadFile(exe)
	if err != nil {
		return fmt.Errorf("reading binary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.BinPath), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(s.BinPath), err)
	}
	if err := os.WriteFile(s.BinPath, input, 0755); err != nil {
		return fmt.Errorf("copying binary to %s: %w", s.BinPath, err)
	}
	fmt.Fprintf(s.Out, "installed binary to %s\n", s.BinPath)

	if err := s.seedConfig(); err != nil {
		return err
	}

	plist, err := s.renderPlist(resolveWorkDir())
	if err != nil {
		return fmt.Errorf("generating plist: %w", err)
	}

	// Unload existing plist if present (ignore errors)
	if _, err := os.Stat(s.PlistPath()); err == nil {
		_, _ = s.launchctl("unload", s.PlistPath())
	}

	if err := os.MkdirAll(filepath.Dir(s.PlistPath()), 0755); err != nil {
		return fmt.Errorf("creating LaunchAgents dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.logPath("stdout")), 0755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	if err := os.WriteFile(s.PlistPath(), []byte(plist), 0644); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}
	fmt.Fprintf(s.Out, "wrote plist to %s\n", s.PlistPath())

	if _, err := s.launchctl("load", s.PlistPath()); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}
	fmt.Fprintf(s.Out, "%s loaded and will start on login\n", s.Label())
	return nil
}

func (s *Service) executable() (string, error) {
	if s.Executable != "" {
		return s.Executable, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolving executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks: %w", err)
	}
	return exe, nil
}

func (s *Service) seedConfig() error {
	configFile := config.ConfigFile()
	if _, err := os.Stat(configFile); err == nil {
		fmt.Fprintf(s.Out, "config already exists at %s\n", configFile)
		return nil
	}
	envData, err := os.ReadFile(".env")
	if err != nil {
		return nil
	}
	if err := os.MkdirAll(config.ConfigDir(), 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(configFile, envData, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(s.Out, "seeded config from .env -> %s\n", configFile)
	return nil
}

// resolveWorkDir picks the daemon's working directory. A relative JSON or
// SQLite store path (the default is one) is resolved against the directory
// install was run from; otherwise ~/.phoenix is used.
func resolveWorkDir() string {
	envVars, _ := godotenv.Read(config.ConfigFile())
	dsn, ok := envVars["STORE_DSN"]
	if !ok {
		dsn = "./agent_phoenix_memory.json"
	}
	switch store.DetectDSNType(dsn) {
	case store.TypeFile, store.TypeSQLite:
		if !filepath.IsAbs(strings.TrimPrefix(dsn, "sqlite://")) {
			if wd, err := os.Getwd(); err == nil {
				return wd
			}
		}
	}
	return config.ConfigDir()
}

// Uninstall unloads and removes the plist. The binary is removed only when
// no other phoenix service still has a plist pointing at it.
func (s *Service) Uninstall() error {
	if _, err := os.Stat(s.PlistPath()); err == nil {
		if _, err := s.launchctl("unload", s.PlistPath()); err != nil {
			fmt.Fprintf(s.Out, "warning: unload failed: %v\n", err)
		}
		if err := os.Remove(s.PlistPath()); err != nil {
			return fmt.Errorf("removing plist: %w", err)
		}
		fmt.Fprintf(s.Out, "removed %s\n", s.PlistPath())
	} else {
		fmt.Fprintln(s.Out, "plist not found, skipping")
	}

	if s.otherInstalled() {
		fmt.Fprintf(s.Out, "another phoenix service is installed, keeping %s\n", s.BinPath)
	} else if _, err := os.Stat(s.BinPath); err == nil {
		if err := os.Remove(s.BinPath); err != nil {
			return fmt.Errorf("removing binary: %w", err)
		}
		fmt.Fprintf(s.Out, "removed %s\n", s.BinPath)
	}

	fmt.Fprintln(s.Out, "uninstalled")
	return nil
}

func (s *Service) otherInstalled() bool {
	for _, cmd := range []string{CommandRemind, CommandBot} {
		if cmd == s.Command {
			continue
		}
		other := *s
		other.Command = cmd
		if _, err := os.Stat(other.PlistPath()); err == nil {
			return true
		}
	}
	return false
}

func (s *Service) Start() error {
	_, err := s.launchctl("start", s.Label())
	return err
}

func (s *Service) Stop() error {
	_, err := s.launchctl("stop", s.Label())
	return err
}

func (s *Service) Restart() error {
	_ = s.Stop()
	return s.Start()
}

func (s *Service) Status() error {
	out, err := s.launchctl("list", s.Label())
	if err != nil {
		fmt.Fprintf(s.Out, "%s is not loaded\n", s.Label())
		return nil
	}
	fmt.Fprint(s.Out, out)
	return nil
}

// Logs tails both stdout and stderr log files.
func (s *Service) Logs() error {
	cmd := exec.Command("tail", "-f", s.logPath("stdout"), s.logPath("stderr"))
	cmd.Stdout = s.Out
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func launchctl(args ...string) (string, error) {
	cmd := exec.Command("launchctl", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("launchctl %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinPath}}</string>
		<string>{{.Command}}</string>
	</array>
	<key>WorkingDirectory</key>
	<string>{{.WorkDir}}</string>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.StdoutLog}}</string>
	<key>StandardErrorPath</key>
	<string>{{.StderrLog}}</string>
</dict>
</plist>
`))

type plistData struct {
	Label     string
	BinPath   string
	Command   string
	WorkDir   string
	StdoutLog string
	StderrLog string
}

func (s *Service) renderPlist(workDir string) (string, error) {
	var buf bytes.Buffer
	err := plistTemplate.Execute(&buf, plistData{
		Label:     s.Label(),
		BinPath:   s.BinPath,
		Command:   s.Command,
		WorkDir:   workDir,
		StdoutLog: s.logPath("stdout"),
		StderrLog: s.logPath("stderr"),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
