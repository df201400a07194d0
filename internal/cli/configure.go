package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/config"
)

// ErrIncompleteCredentials is returned when configure ends without all three secrets
var ErrIncompleteCredentials = errors.New("refresh token, client ID and client secret are all required")

// Prompter asks questions on a console. Secrets are read without echo when
// the input is a terminal.
type Prompter struct {
	reader   *bufio.Reader
	out      io.Writer
	secretFD int
}

// NewPrompter creates a prompter reading from in
func NewPrompter(in *os.File, out io.Writer) *Prompter {
	p := newPrompter(in, out)
	if fd := int(in.Fd()); term.IsTerminal(fd) {
		p.secretFD = fd
	}
	return p
}

func newPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{reader: bufio.NewReader(in), out: out, secretFD: -1}
}

// Ask prints label and returns the trimmed answer, or def when it is empty
func (p *Prompter) Ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// AskSecret is Ask without echo and without showing a default.
// An empty answer returns "".
func (p *Prompter) AskSecret(label string) (string, error) {
	if p.secretFD < 0 {
		return p.Ask(label, "")
	}

	fmt.Fprintf(p.out, "%s: ", label)
	secret, err := term.ReadPassword(p.secretFD)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// RunConfigure asks for SP-API credentials and saves them to the env file.
// Leaving a secret blank keeps the value already stored there.
func RunConfigure(flags *ConfigureFlags, p *Prompter, out io.Writer) error {
	existing, marketplace, err := config.CredentialsFromEnvFile(flags.EnvFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Configuring SP-API credentials in %s\n", flags.EnvFile)
	if existing.Complete() {
		fmt.Fprintln(out, "Credentials already exist; leave a field blank to keep it.")
	}

	var creds spapi.Credentials
	if creds.RefreshToken, err = p.AskSecret("Refresh token"); err != nil {
		return err
	}
	if creds.ClientID, err = p.Ask("Client ID", ""); err != nil {
		return err
	}
	if creds.ClientSecret, err = p.AskSecret("Client secret"); err != nil {
		return err
	}
	if marketplace, err = p.Ask("Marketplace ID", marketplace); err != nil {
		return err
	}

	merged := mergeCredentials(existing, creds)
	if !merged.Complete() {
		return ErrIncompleteCredentials
	}

	if err := config.SaveCredentials(flags.EnvFile, creds, marketplace); err != nil {
		return err
	}

	fmt.Fprintf(out, "Saved credentials to %s\n", flags.EnvFile)
	fmt.Fprintln(out, "Run 'buybox test-connection' to verify them.")
	return nil
}

func mergeCredentials(base, update spapi.Credentials) spapi.Credentials {
	if update.RefreshToken != "" {
		base.RefreshToken = update.RefreshToken
	}
	if update.ClientID != "" {
		base.ClientID = update.ClientID
	}
	if update.ClientSecret != "" {
		base.ClientSecret = update.ClientSecret
	}
	return base
}
