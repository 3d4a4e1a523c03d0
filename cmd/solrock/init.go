// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/config"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/secrets"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// initWizardStep tracks which step of the wizard is active.
type initWizardStep int

const (
	stepProvider initWizardStep = iota // select provider
	stepAPIKey                         // enter API key
	stepSaving                         // storing key and writing config (spinner)
	stepDone                           // wizard complete
	stepError                          // terminal error
)

// initResult holds the collected wizard configuration.
type initResult struct {
	Provider string
	APIKey   string
}

// --- bubbletea messages ---

type (
	keyRejectedMsg   struct{ err error }
	configWrittenMsg struct{ path string }
)

var (
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// initModel is the bubbletea model for the init wizard.
type initModel struct {
	step           initWizardStep
	providers      []string
	providerIdx    int
	apiKeyInput    textinput.Model
	spinner        spinner.Model
	result         initResult
	validationErr  string
	configPath     string
	secretStore    secrets.Store
	errFinal       error
	forceOverwrite bool
}

func newInitModel(store secrets.Store, configPath string) initModel {
	apiKey := textinput.New()
	apiKey.Placeholder = "paste API key here"
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return initModel{
		step:        stepProvider,
		providers:   config.KnownProviders(),
		apiKeyInput: apiKey,
		spinner:     sp,
		configPath:  configPath,
		secretStore: store,
	}
}

func (m initModel) Init() tea.Cmd {
	return nil
}

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case keyRejectedMsg:
		m.validationErr = msg.err.Error()
		m.step = stepAPIKey
		m.apiKeyInput.Focus()
		return m, nil

	case configWrittenMsg:
		m.step = stepDone
		m.configPath = msg.path
		return m, tea.Quit

	case error:
		m.step = stepError
		m.errFinal = msg
		return m, tea.Quit
	}

	if m.step == stepAPIKey {
		var cmd tea.Cmd
		m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m initModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.step {
	case stepProvider:
		return m.handleProviderKey(msg)
	case stepAPIKey:
		return m.handleAPIKeyInput(msg)
	}
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) handleProviderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.providerIdx > 0 {
			m.providerIdx--
		}
	case "down", "j":
		if m.providerIdx < len(m.providers)-1 {
			m.providerIdx++
		}
	case "enter":
		m.result.Provider = m.providers[m.providerIdx]
		m.step = stepAPIKey
		m.validationErr = ""
		m.apiKeyInput.SetValue("")
		m.apiKeyInput.Focus()
		return m, textinput.Blink
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) handleAPIKeyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		key := strings.TrimSpace(m.apiKeyInput.Value())
		if key == "" {
			m.validationErr = "API key must not be empty"
			return m, nil
		}
		m.result.APIKey = key
		m.validationErr = ""
		m.step = stepSaving
		return m, tea.Batch(
			m.spinner.Tick,
			saveCmd(m.result, m.secretStore, m.configPath, m.forceOverwrite),
		)
	case "esc":
		m.step = stepProvider
		m.validationErr = ""
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
	return m, cmd
}

func (m initModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Solrock Setup  ") + "\n\n")

	switch m.step {
	case stepProvider:
		b.WriteString(promptStyle.Render("Choose your LLM provider") + "\n\n")
		for i, p := range m.providers {
			if i == m.providerIdx {
				b.WriteString(selectedStyle.Render("  > "+p) + "\n")
			} else {
				b.WriteString(dimStyle.Render("    "+p) + "\n")
			}
		}
		b.WriteString("\n" + dimStyle.Render("↑/↓ to navigate  enter to select  q to quit"))

	case stepAPIKey:
		b.WriteString(promptStyle.Render(m.result.Provider+" API key") + "\n\n")
		b.WriteString(m.apiKeyInput.View() + "\n")
		if m.validationErr != "" {
			b.WriteString("\n" + errorStyle.Render("  "+m.validationErr) + "\n")
		}
		b.WriteString("\n" + dimStyle.Render("enter to continue  esc to go back  ctrl+c to quit"))

	case stepSaving:
		b.WriteString(m.spinner.View() + " Saving " + m.result.Provider + " API key…\n")

	case stepDone:
		b.WriteString(successStyle.Render("  Setup complete!  ") + "\n\n")
		if m.configPath != "" {
			b.WriteString(dimStyle.Render("Config written to: "+m.configPath) + "\n\n")
		}
		b.WriteString("Run " + promptStyle.Render("solrock chat") + " or " + promptStyle.Render("solrock serve") + " to get started.\n")
		b.WriteString("Run " + promptStyle.Render("solrock doctor") + " to verify setup.\n")

	case stepError:
		b.WriteString(errorStyle.Render("Setup failed: "+m.errFinal.Error()) + "\n")
	}

	return boxStyle.Render(b.String())
}

func saveCmd(result initResult, store secrets.Store, path string, forceOverwrite bool) tea.Cmd {
	return func() tea.Msg {
		if err := checkProviderKey(result); err != nil {
			return keyRejectedMsg{err: err}
		}
		written, err := storeSecretAndWriteConfig(result, store, path, forceOverwrite)
		if err != nil {
			return err
		}
		return configWrittenMsg{path: written}
	}
}

// checkProviderKey builds the provider client with the key to catch values
// the SDK rejects before anything is stored.
func checkProviderKey(result initResult) error {
	factory, ok := providerFactories[result.Provider]
	if !ok {
		return solerr.Errorf(solerr.CodeCLIInputInvalid, "provider %q is not supported", result.Provider)
	}
	p, err := factory(config.ProviderConfig{APIKey: result.APIKey})
	if err != nil {
		return err
	}
	return p.Close()
}

// defaultModelForProvider returns a sensible default model string for a provider.
func defaultModelForProvider(p string) string {
	switch p {
	case "github":
		return "github/openai/gpt-4.1-mini"
	case "openai":
		return "openai/gpt-4.1-mini"
	case "openrouter":
		return "openrouter/openai/gpt-4.1-mini"
	case "anthropic":
		return "anthropic/claude-sonnet-4-5"
	case "google":
		return "google/gemini-2.0-flash"
	default:
		return p + "/default"
	}
}

// secretKeyName is the keyring entry holding a provider's API key.
func secretKeyName(p string) string {
	return p + "-api-key"
}

// GenerateConfigYAML renders a complete config for the wizard result. The
// API key is referenced through the keyring and never written in plain text.
func GenerateConfigYAML(result initResult) ([]byte, error) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("model", defaultModelForProvider(result.Provider))
	v.Set("providers."+result.Provider+".api_key",
		fmt.Sprintf("keyring://%s/%s", secrets.DefaultService, secretKeyName(result.Provider)))

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	body, err := cfg.RenderYAML()
	if err != nil {
		return nil, err
	}
	return append([]byte("# Solrock configuration, generated by solrock init\n\n"), body...), nil
}

// storeSecretAndWriteConfig saves the API key to the keyring and writes the
// config YAML to path.
//
// When forceOverwrite is false and the config file already exists,
// CodeConfigAlreadyExists is returned. A key stored before a failed write
// stays in the keyring and is replaced on the next run.
func storeSecretAndWriteConfig(result initResult, store secrets.Store, path string, forceOverwrite bool) (string, error) {
	if !forceOverwrite {
		if _, statErr := os.Stat(path); statErr == nil {
			return "", solerr.Errorf(solerr.CodeConfigAlreadyExists,
				"config file already exists at %s; use --force to overwrite", path)
		}
	}

	if err := store.Set(secrets.DefaultService, secretKeyName(result.Provider), result.APIKey); err != nil {
		return "", solerr.Wrapf(err, solerr.CodeSecretStoreFailure, "storing %s API key", result.Provider)
	}

	yml, err := GenerateConfigYAML(result)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", solerr.Errorf(solerr.CodeConfigLoadReadFailure, "creating config directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, yml, 0o600); err != nil {
		return "", solerr.Errorf(solerr.CodeConfigLoadReadFailure, "writing config to %s: %w", path, err)
	}

	return path, nil
}

// configPathForWrite resolves where init writes: --config when given,
// otherwise the default path. A variable so tests can override it.
var configPathForWrite = func(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, nil
	}
	return config.DefaultConfigPath()
}

// --- Cobra command ---

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard for Solrock",
		Long: `Run an interactive wizard that picks an LLM provider and stores its
API key in the OS keyring. The generated config refers to the key with a
keyring:// reference, so no secret is written in plain text.

After completion, run:
  solrock chat     start a chat session
  solrock serve    serve the HTTP API
  solrock doctor   verify your setup`,
		Annotations: map[string]string{annotationCreatesConfig: "true"},
		RunE:        runInit,
	}

	cmd.Flags().Bool("force", false, "Overwrite existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(f) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(),
			"solrock init requires an interactive terminal.\n"+
				"To configure Solrock non-interactively, run 'solrock config init' and 'solrock secret set'.")
		return solerr.New(solerr.CodeCLISetupFailure, "solrock init: not an interactive terminal")
	}

	path, err := configPathForWrite(cmd)
	if err != nil {
		return err
	}
	forceOverwrite, _ := cmd.Flags().GetBool("force")

	m := newInitModel(secretStoreFactory(), path)
	m.forceOverwrite = forceOverwrite

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return solerr.Errorf(solerr.CodeCLISetupFailure, "init wizard error: %w", err)
	}

	fm, ok := finalModel.(initModel)
	if !ok {
		return solerr.New(solerr.CodeCLISetupFailure, "unexpected model type after wizard")
	}

	if fm.errFinal != nil {
		return solerr.Wrapf(fm.errFinal, solerr.CodeCLISetupFailure, "init failed")
	}
	if fm.step == stepDone {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", fm.configPath)
	}
	return nil
}

// isTerminal reports whether f is a terminal file descriptor.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
