package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

var ErrNotFound = errors.New("credentials not found")

// UserPass is a resolved username/password pair. The password is plaintext
// and must never reach a log or the build output sink.
type UserPass struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Store reads a credentials file of the form
//
//	credentials:
//	  mf-prod:
//	    username: USER1
//	    password: $MF_PROD_PASSWORD
//	scopes:
//	  nightly-build:
//	    mf-prod:
//	      username: NIGHTLY
//	      password: $MF_NIGHTLY_PASSWORD
//
// Values prefixed with $ are expanded from the environment at resolve time,
// so secrets stay out of the file itself.
type Store struct {
	v *viper.Viper
}

func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	return &Store{v: v}, nil
}

// Resolve returns the credentials for id, preferring a scope-specific entry
// over the shared one. ErrNotFound when neither exists.
func (s *Store) Resolve(scope, id string) (UserPass, error) {
	keys := []string{
		"credentials." + id,
	}
	if scope != "" {
		keys = append([]string{"scopes." + scope + "." + id}, keys...)
	}

	for _, key := range keys {
		if !s.v.IsSet(key) {
			continue
		}
		var up UserPass
		if err := s.v.UnmarshalKey(key, &up); err != nil {
			return UserPass{}, fmt.Errorf("decoding credentials %q: %w", id, err)
		}
		up.Username = expand(up.Username)
		up.Password = expand(up.Password)
		return up, nil
	}
	return UserPass{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func expand(v string) string {
	if strings.HasPrefix(v, "$") {
		return os.ExpandEnv(v)
	}
	return v
}
