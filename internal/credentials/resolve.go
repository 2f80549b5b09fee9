package credentials

import (
	"github.com/hubctl/hubctl/internal/config"
)

// Credentials are the connection settings of one resolved profile.
type Credentials struct {
	Profile  string
	WSURL    string
	Email    string
	Password string
	Serial   string
}

// Resolve combines a profile's config entry with its stored password.
func Resolve(cfg *config.Config, store *Store, profile string) (*Credentials, error) {
	p, ok := cfg.Profiles[profile]
	if !ok {
		return nil, &config.ProfileNotFoundError{Name: profile}
	}
	password, err := store.Password(profile)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		Profile:  profile,
		WSURL:    p.WSURL,
		Email:    p.Email,
		Password: password,
		Serial:   p.Serial,
	}, nil
}
