// Package botconfig holds the configuration shared by both bots and
// constructs the API clients they use.
package botconfig

import (
	"context"
	"fmt"
	"tfaprotbot/lib/configutil"
	"tfaprotbot/lib/lastrun"
	"tfaprotbot/lib/mwapi"
	"tfaprotbot/lib/restyutil"
	"time"

	"dario.cat/mergo"
)

type WikiConfig struct {
	ApiUrl   string `json:"api_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type TfaConfig struct {
	// days ahead that are always checked
	Lookahead int `json:"lookahead"`
	// days ahead that are never passed
	MaxLookahead int    `json:"max_lookahead"`
	StatusFile   string `json:"status_file"`
	Reason       string `json:"reason"`
}

type PotdConfig struct {
	// page listing the main page titles whose images are handled
	WatchPage string `json:"watch_page"`
	// empty disables the status file
	StatusFile string `json:"status_file"`
	// where downloads are stored before being uploaded, empty for the
	// system temp dir
	TempDir string `json:"temp_dir"`
}

type Config struct {
	Wiki      WikiConfig `json:"wiki"`
	Commons   WikiConfig `json:"commons"`
	UserAgent string     `json:"user_agent"`
	// seconds, 0 disables maxlag
	Maxlag int `json:"maxlag"`
	// seconds
	Timeout int `json:"timeout"`
	// additional JSON log file, empty to log to stderr only
	LogFile string `json:"log_file"`
	// directory that receives full http dumps when debug logging is on
	HttpDump string     `json:"http_dump"`
	Tfa      TfaConfig  `json:"tfa"`
	Potd     PotdConfig `json:"potd"`
}

// credentials may be passed through TFAPROT_USERNAME and TFAPROT_PASSWORD
// instead of the config file
type envConfig struct {
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
}

const EnvPrefix = "TFAPROT"

const DefaultTfaReason = "Upcoming TFA ([[WP:BOT|bot protection]])"

func Default() Config {
	return Config{
		Wiki: WikiConfig{
			ApiUrl: "https://en.wikipedia.org/w/api.php",
		},
		Commons: WikiConfig{
			ApiUrl: "https://commons.wikimedia.org/w/api.php",
		},
		UserAgent: "tfaprotbot (https://en.wikipedia.org/wiki/User:TFA_Protector_Bot)",
		Timeout:   30,
		HttpDump:  "<dev_state>/http_dump",
		Tfa: TfaConfig{
			Lookahead:    35,
			MaxLookahead: 60,
			StatusFile:   lastrun.DefaultPath,
			Reason:       DefaultTfaReason,
		},
		Potd: PotdConfig{
			WatchPage: "User:TFA Protector Bot/watch.js",
		},
	}
}

// Load reads the config file at path (and its .local override), falling
// back to the defaults for anything unset, then applies credentials from
// the environment.
func Load(path string) (Config, error) {
	config, err := configutil.ReadConfigWithDefaults(path, Default())
	if err != nil {
		return Config{}, err
	}

	env, err := configutil.ReadEnv[envConfig](EnvPrefix)
	if err != nil {
		return Config{}, err
	}
	err = mergo.Merge(&config.Wiki, WikiConfig{
		Username: env.Username,
		Password: env.Password,
	}, mergo.WithOverride)
	if err != nil {
		return Config{}, err
	}

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

var ErrNoCredentials = fmt.Errorf("wiki credentials are not configured (set wiki.username/wiki.password or %s_USERNAME/%s_PASSWORD)", EnvPrefix, EnvPrefix)

func (c Config) Validate() error {
	if c.Wiki.ApiUrl == "" || c.Commons.ApiUrl == "" {
		return fmt.Errorf("api urls must not be empty")
	}
	if c.Tfa.Lookahead < 1 {
		return fmt.Errorf("tfa.lookahead must be positive")
	}
	if c.Tfa.MaxLookahead < c.Tfa.Lookahead {
		return fmt.Errorf("tfa.max_lookahead must not be less than tfa.lookahead")
	}
	return nil
}

func (c Config) clientOptions(apiUrl string, dump restyutil.InstrumentOutput) mwapi.ClientOptions {
	return mwapi.ClientOptions{
		ApiUrl:    apiUrl,
		UserAgent: c.UserAgent,
		Maxlag:    c.Maxlag,
		Timeout:   time.Duration(c.Timeout) * time.Second,
		Dump:      dump,
	}
}

// NewWikiClient returns a client for the local wiki, logged in with the
// configured credentials.
func (c Config) NewWikiClient(ctx context.Context, dump restyutil.InstrumentOutput) (*mwapi.Client, error) {
	if c.Wiki.Username == "" || c.Wiki.Password == "" {
		return nil, ErrNoCredentials
	}
	client, err := mwapi.NewClient(ctx, c.clientOptions(c.Wiki.ApiUrl, dump))
	if err != nil {
		return nil, err
	}
	err = client.Login(ctx, c.Wiki.Username, c.Wiki.Password)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewCommonsClient returns an anonymous client for the shared media
// repository.
func (c Config) NewCommonsClient(ctx context.Context, dump restyutil.InstrumentOutput) (*mwapi.Client, error) {
	return mwapi.NewClient(ctx, c.clientOptions(c.Commons.ApiUrl, dump))
}
