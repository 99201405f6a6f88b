// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the whole application configuration. Every selector,
// phrase, threshold and timeout the components consume lives here so
// they can be tuned without touching code.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Portal  PortalConfig  `mapstructure:"portal" yaml:"portal"`
	Captcha CaptchaConfig `mapstructure:"captcha" yaml:"captcha"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// LoggerConfig mirrors the observability package's knobs.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for console log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the chromedp session.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// PortalConfig names the portal's login surface: the URL, the element
// selectors, and the rejection phrases the outcome classifier matches.
// The phrases are a known fragility (portal copy changes break them),
// which is exactly why they are configuration.
type PortalConfig struct {
	LoginURL       string         `mapstructure:"login_url" yaml:"login_url"`
	LoginURLMarker string         `mapstructure:"login_url_marker" yaml:"login_url_marker"`
	Selectors      SelectorConfig `mapstructure:"selectors" yaml:"selectors"`

	// The body and the popup carry different error copy, so each
	// surface gets its own captcha phrase list. The login page's own
	// static label contains "Güvenlik Kodu", which is why the bare
	// word belongs to the popup list only.
	BodyCaptchaPhrases  []string `mapstructure:"body_captcha_phrases" yaml:"body_captcha_phrases"`
	PopupCaptchaPhrases []string `mapstructure:"popup_captcha_phrases" yaml:"popup_captcha_phrases"`

	CredentialHints CredentialHints `mapstructure:"credential_hints" yaml:"credential_hints"`
	ResultsLinkText string          `mapstructure:"results_link_text" yaml:"results_link_text"`
}

// SelectorConfig holds the CSS selectors of the portal elements the
// state machine touches.
type SelectorConfig struct {
	Username      string `mapstructure:"username" yaml:"username"`
	Password      string `mapstructure:"password" yaml:"password"`
	CaptchaImage  string `mapstructure:"captcha_image" yaml:"captcha_image"`
	CaptchaField  string `mapstructure:"captcha_field" yaml:"captcha_field"`
	LoginButton   string `mapstructure:"login_button" yaml:"login_button"`
	LoginEnabled  string `mapstructure:"login_enabled" yaml:"login_enabled"`
	PopupBody     string `mapstructure:"popup_body" yaml:"popup_body"`
	PopupConfirm  string `mapstructure:"popup_confirm" yaml:"popup_confirm"`
	GradesTableID string `mapstructure:"grades_table_id" yaml:"grades_table_id"`
}

// CredentialHints describe the credentials-rejected signal. The body
// must contain RejectWord plus at least one of SubjectWords; a popup
// is rejection copy already, so a subject word alone is enough there.
type CredentialHints struct {
	SubjectWords []string `mapstructure:"subject_words" yaml:"subject_words"`
	RejectWord   string   `mapstructure:"reject_word" yaml:"reject_word"`
}

// CaptchaConfig tunes the segmentation heuristics and selects the
// classifier artifact. The split thresholds are calibrated to one
// observed captcha font; treat them as tunables, not invariants.
type CaptchaConfig struct {
	MinBlobHeight     int     `mapstructure:"min_blob_height" yaml:"min_blob_height"`
	OperatorMaxHeight int     `mapstructure:"operator_max_height" yaml:"operator_max_height"`
	OperatorCenterTol int     `mapstructure:"operator_center_tol" yaml:"operator_center_tol"`
	OperatorAspectMin float64 `mapstructure:"operator_aspect_min" yaml:"operator_aspect_min"`
	OperatorAspectMax float64 `mapstructure:"operator_aspect_max" yaml:"operator_aspect_max"`
	SplitWidth        int     `mapstructure:"split_width" yaml:"split_width"`
	TripleSplitWidth  int     `mapstructure:"triple_split_width" yaml:"triple_split_width"`
	MaxDigits         int     `mapstructure:"max_digits" yaml:"max_digits"`
	CropPadding       int     `mapstructure:"crop_padding" yaml:"crop_padding"`

	// Classifier selects the scoring backend: "digitnet" loads the
	// trained weights file, "tesseract" shells out to the system OCR.
	Classifier  string `mapstructure:"classifier" yaml:"classifier"`
	WeightsPath string `mapstructure:"weights_path" yaml:"weights_path"`
}

// AuthConfig bounds every wait the state machine performs. An
// unbounded wait is a defect, so each point gets its own knob.
type AuthConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollBudget        int           `mapstructure:"poll_budget" yaml:"poll_budget"`
	ButtonEnableWait  time.Duration `mapstructure:"button_enable_wait" yaml:"button_enable_wait"`
	ResultsLinkWait   time.Duration `mapstructure:"results_link_wait" yaml:"results_link_wait"`
	PopupDismissWait  time.Duration `mapstructure:"popup_dismiss_wait" yaml:"popup_dismiss_wait"`
	TableDiscoverWait time.Duration `mapstructure:"table_discover_wait" yaml:"table_discover_wait"`
}

// StoreConfig locates the credential store on disk. Empty Dir means
// the platform data directory.
type StoreConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults seeds viper with the values the tool ships with. The
// portal defaults describe the OBS login page as observed; the captcha
// thresholds are the ones the classifier was trained against.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "obspull")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.navigation_timeout", 30*time.Second)

	v.SetDefault("portal.login_url", "https://obs.ozal.edu.tr/oibs/std/login.aspx")
	v.SetDefault("portal.login_url_marker", "login.aspx")
	v.SetDefault("portal.selectors.username", "#txtParamT01")
	v.SetDefault("portal.selectors.password", "#txtParamT02")
	v.SetDefault("portal.selectors.captcha_image", "#imgCaptchaImg")
	v.SetDefault("portal.selectors.captcha_field", "#txtSecCode")
	v.SetDefault("portal.selectors.login_button", "#btnLogin")
	v.SetDefault("portal.selectors.login_enabled", "#btnLogin:not(.disabled)")
	v.SetDefault("portal.selectors.popup_body", ".swal2-content")
	v.SetDefault("portal.selectors.popup_confirm", "button.swal2-confirm")
	v.SetDefault("portal.selectors.grades_table_id", "grd_not_listesi")
	v.SetDefault("portal.body_captcha_phrases", []string{"güvenlik kodu hatalı", "hatalı girildi"})
	v.SetDefault("portal.popup_captcha_phrases", []string{"güvenlik"})
	v.SetDefault("portal.credential_hints.subject_words", []string{"kullanıcı adı", "şifre", "kullanıcı"})
	v.SetDefault("portal.credential_hints.reject_word", "hatalı")
	v.SetDefault("portal.results_link_text", "Not Listesi")

	v.SetDefault("captcha.min_blob_height", 18)
	v.SetDefault("captcha.operator_max_height", 22)
	v.SetDefault("captcha.operator_center_tol", 25)
	v.SetDefault("captcha.operator_aspect_min", 0.7)
	v.SetDefault("captcha.operator_aspect_max", 1.4)
	v.SetDefault("captcha.split_width", 28)
	v.SetDefault("captcha.triple_split_width", 45)
	v.SetDefault("captcha.max_digits", 3)
	v.SetDefault("captcha.crop_padding", 3)
	v.SetDefault("captcha.classifier", "digitnet")
	v.SetDefault("captcha.weights_path", "digit_model.json")

	v.SetDefault("auth.poll_interval", 500*time.Millisecond)
	v.SetDefault("auth.poll_budget", 20)
	v.SetDefault("auth.button_enable_wait", 15*time.Second)
	v.SetDefault("auth.results_link_wait", 10*time.Second)
	v.SetDefault("auth.popup_dismiss_wait", 2*time.Second)
	v.SetDefault("auth.table_discover_wait", 2*time.Second)
}

// Load reads the config file (if any), layers OBSPULL_* environment
// variables on top, and unmarshals into a Config.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("OBSPULL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults plus env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
