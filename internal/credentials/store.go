// Package credentials stores hub passwords encrypted at rest with age.
//
// The store is a directory holding an X25519 identity (identity.txt, mode
// 0600, in age-keygen format) and credentials.age, an age-encrypted JSON
// object mapping profile names to passwords.
package credentials

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"filippo.io/age"

	"github.com/hubctl/hubctl/internal/atomicfile"
)

const (
	identityFile = "identity.txt"
	secretsFile  = "credentials.age"
)

// ErrNoPassword is returned when a profile has no stored password.
var ErrNoPassword = errors.New("no password stored")

// Store is an encrypted password store rooted at a directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. Nothing is created until the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// SetPassword stores the password for profile, replacing any previous one.
func (s *Store) SetPassword(profile, password string) error {
	if strings.TrimSpace(profile) == "" {
		return fmt.Errorf("profile name is required")
	}
	if password == "" {
		return fmt.Errorf("password is empty")
	}

	identity, err := s.identity(true)
	if err != nil {
		return err
	}
	secrets, err := s.load(identity)
	if err != nil {
		return err
	}
	secrets[profile] = password
	return s.save(identity, secrets)
}

// Password returns the stored password for profile.
func (s *Store) Password(profile string) (string, error) {
	identity, err := s.identity(false)
	if err != nil {
		return "", err
	}
	if identity == nil {
		return "", fmt.Errorf("%w for profile '%s'", ErrNoPassword, profile)
	}
	secrets, err := s.load(identity)
	if err != nil {
		return "", err
	}
	password, ok := secrets[profile]
	if !ok {
		return "", fmt.Errorf("%w for profile '%s'", ErrNoPassword, profile)
	}
	return password, nil
}

// Remove deletes the password for profile. Removing a missing entry is not
// an error.
func (s *Store) Remove(profile string) error {
	identity, err := s.identity(false)
	if err != nil || identity == nil {
		return err
	}
	secrets, err := s.load(identity)
	if err != nil {
		return err
	}
	if _, ok := secrets[profile]; !ok {
		return nil
	}
	delete(secrets, profile)
	return s.save(identity, secrets)
}

// Profiles returns the names with a stored password, sorted.
func (s *Store) Profiles() ([]string, error) {
	identity, err := s.identity(false)
	if err != nil || identity == nil {
		return nil, err
	}
	secrets, err := s.load(identity)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(secrets))
	for name := range secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// identity loads the store's identity, generating it when create is set and
// none exists. A nil identity with a nil error means the store is empty.
func (s *Store) identity(create bool) (*age.X25519Identity, error) {
	path := filepath.Join(s.dir, identityFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if !create {
			return nil, nil
		}
		return s.generateIdentity(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity %s: %w", path, err)
	}
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("identity %s holds no X25519 key", path)
}

func (s *Store) generateIdentity(path string) (*age.X25519Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age identity: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating credentials directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# created: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, "# public key: %s\n", identity.Recipient())
	fmt.Fprintf(&buf, "%s\n", identity)
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("writing identity: %w", err)
	}
	return identity, nil
}

func (s *Store) load(identity *age.X25519Identity) (map[string]string, error) {
	secrets := make(map[string]string)

	path := filepath.Join(s.dir, secretsFile)
	ciphertext, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return secrets, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", path, err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted credentials: %w", err)
	}
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return secrets, nil
}

func (s *Store) save(identity *age.X25519Identity, secrets map[string]string) error {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing age encryption: %w", err)
	}

	return atomicfile.WriteFile(filepath.Join(s.dir, secretsFile), ciphertext.Bytes(), 0o600)
}

// ReadPasswordFile reads a password from path, or from stdin when path is
// "-". Trailing newlines are stripped so files written by echo work.
func ReadPasswordFile(path string, stdin io.Reader) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	password := strings.TrimRight(string(data), "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}
	return password, nil
}
