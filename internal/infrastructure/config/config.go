package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/spinbook/internal/application/usecases"
	"github.com/example/spinbook/internal/domain/booking"
	"github.com/example/spinbook/internal/domain/ui"
	"github.com/example/spinbook/internal/retry"
)

// EnvPrefix namespaces environment overrides, e.g. SPINBOOK_BOOKING_LOCATION.
const EnvPrefix = "SPINBOOK"

type Config struct {
	Booking     BookingConfig     `mapstructure:"booking" yaml:"booking"`
	Site        SiteConfig        `mapstructure:"site" yaml:"site"`
	Gate        GateConfig        `mapstructure:"gate" yaml:"gate"`
	Retry       retry.Policy      `mapstructure:"retry" yaml:"retry"`
	Timeouts    TimeoutsConfig    `mapstructure:"timeouts" yaml:"timeouts"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Report      ReportConfig      `mapstructure:"report" yaml:"report"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
}

// BookingConfig is the class to book and when its booking window opens.
type BookingConfig struct {
	Day      string        `mapstructure:"day" yaml:"day"`
	Start    string        `mapstructure:"start" yaml:"start"`
	End      string        `mapstructure:"end" yaml:"end"`
	Timezone string        `mapstructure:"timezone" yaml:"timezone"`
	Location string        `mapstructure:"location" yaml:"location"`
	Session  SessionConfig `mapstructure:"session" yaml:"session"`
	Seats    []string      `mapstructure:"seats" yaml:"seats"`
}

type SessionConfig struct {
	ID         string `mapstructure:"id" yaml:"id"`
	Location   string `mapstructure:"location" yaml:"location"`
	Instructor string `mapstructure:"instructor" yaml:"instructor"`
	Time       string `mapstructure:"time" yaml:"time"`
	Duration   string `mapstructure:"duration" yaml:"duration"`
	Selector   string `mapstructure:"selector" yaml:"selector"`
}

// SiteConfig holds the studio's selectors. Templates take one %s which is
// replaced by a quoted XPath literal.
type SiteConfig struct {
	LoginURL           string   `mapstructure:"login_url" yaml:"login_url"`
	Email              string   `mapstructure:"email" yaml:"email"`
	Password           string   `mapstructure:"password" yaml:"password"`
	Submit             string   `mapstructure:"submit" yaml:"submit"`
	Landmark           string   `mapstructure:"landmark" yaml:"landmark"`
	Rejection          string   `mapstructure:"rejection" yaml:"rejection"`
	BookMenu           string   `mapstructure:"book_menu" yaml:"book_menu"`
	MenuReveal         string   `mapstructure:"menu_reveal" yaml:"menu_reveal"`
	LocationItem       string   `mapstructure:"location_item" yaml:"location_item"`
	SessionItem        string   `mapstructure:"session_item" yaml:"session_item"`
	SeatItem           string   `mapstructure:"seat_item" yaml:"seat_item"`
	SeatMap            string   `mapstructure:"seat_map" yaml:"seat_map"`
	Confirm            string   `mapstructure:"confirm" yaml:"confirm"`
	Success            string   `mapstructure:"success" yaml:"success"`
	NoSeries           string   `mapstructure:"no_series" yaml:"no_series"`
	UnavailableClasses []string `mapstructure:"unavailable_classes" yaml:"unavailable_classes"`
	UnavailableColor   string   `mapstructure:"unavailable_color" yaml:"unavailable_color"`
}

type GateConfig struct {
	Interval  time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxChecks int           `mapstructure:"max_checks" yaml:"max_checks"`
}

type TimeoutsConfig struct {
	Element time.Duration `mapstructure:"element" yaml:"element"`
	Login   time.Duration `mapstructure:"login" yaml:"login"`
	Outcome time.Duration `mapstructure:"outcome" yaml:"outcome"`
}

type BrowserConfig struct {
	// Driver is "chromedp" or "playwright".
	Driver   string   `mapstructure:"driver" yaml:"driver"`
	Headless bool     `mapstructure:"headless" yaml:"headless"`
	ExecPath string   `mapstructure:"exec_path" yaml:"exec_path"`
	Args     []string `mapstructure:"args" yaml:"args"`
	// Prelaunch starts the browser before the gate opens.
	Prelaunch bool `mapstructure:"prelaunch" yaml:"prelaunch"`
	// Install downloads the playwright browsers on first use.
	Install bool `mapstructure:"install" yaml:"install"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

type DatabaseConfig struct {
	// URL enables the Postgres attempt log when set.
	URL string `mapstructure:"url" yaml:"url"`
}

type ReportConfig struct {
	// Dir receives one JSON file per run. Empty disables the file log.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

func SetDefaults(v *viper.Viper) {
	// -- Booking --
	v.SetDefault("booking.day", "")
	v.SetDefault("booking.start", "")
	v.SetDefault("booking.end", "")
	v.SetDefault("booking.timezone", "Local")
	v.SetDefault("booking.location", "")
	v.SetDefault("booking.session.id", "")
	v.SetDefault("booking.session.location", "")
	v.SetDefault("booking.session.instructor", "")
	v.SetDefault("booking.session.time", "")
	v.SetDefault("booking.session.duration", "")
	v.SetDefault("booking.session.selector", "")
	v.SetDefault("booking.seats", []string{})

	// -- Site --
	v.SetDefault("site.login_url", "")
	v.SetDefault("site.email", "//input[@placeholder='Email']")
	v.SetDefault("site.password", "//input[@placeholder='Password']")
	v.SetDefault("site.submit", "//button[text()='Sign In']")
	v.SetDefault("site.landmark", "//button[text()='Book Now']")
	v.SetDefault("site.rejection", "//*[contains(text(), 'Sorry, that username/password was not recognized.')]")
	v.SetDefault("site.book_menu", "//button[text()='Book Now']")
	v.SetDefault("site.menu_reveal", "hover")
	v.SetDefault("site.location_item", "//*[text()=%s]")
	v.SetDefault("site.session_item", "//*[@data-session-id=%s]")
	v.SetDefault("site.seat_item", "//*[text()=%s]")
	v.SetDefault("site.seat_map", "")
	v.SetDefault("site.confirm", "")
	v.SetDefault("site.success", "//*[contains(text(), 'You have been successfully enrolled in the class highlighted below.')]")
	v.SetDefault("site.no_series", `//*[contains(text(), "You don't have a series in your account that's applicable for this class.")]`)
	v.SetDefault("site.unavailable_classes", []string{})
	v.SetDefault("site.unavailable_color", "")

	// -- Gate --
	v.SetDefault("gate.interval", "5s")
	v.SetDefault("gate.max_checks", 0)

	// -- Retry --
	def := retry.Default()
	v.SetDefault("retry.max_attempts", def.MaxAttempts)
	v.SetDefault("retry.backoff", def.Backoff.String())
	v.SetDefault("retry.multiplier", def.Multiplier)
	v.SetDefault("retry.max_backoff", "0s")

	// -- Timeouts --
	v.SetDefault("timeouts.element", "10s")
	v.SetDefault("timeouts.login", "10s")
	v.SetDefault("timeouts.outcome", "10s")

	// -- Browser --
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.prelaunch", true)
	v.SetDefault("browser.install", false)

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "spinbook")
	v.SetDefault("logger.log_file", "logs/spinbook.log")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Persistence --
	v.SetDefault("database.url", "")
	v.SetDefault("report.dir", "attempts")

	// -- Credentials --
	v.SetDefault("credentials.email_env", "CRU_BOOKING_EMAIL")
	v.SetDefault("credentials.password_env", "CRU_BOOKING_PASSWORD")
	v.SetDefault("credentials.env_file", ".env")
}

// NewViper returns a viper instance with defaults and SPINBOOK_ env
// overrides. An explicit file must exist; otherwise ./config.yaml is
// optional.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		return v, nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals v without validating it. Commands that only need the
// logger or the attempt log use it so an unfinished booking section does
// not block them.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// NewConfigFromViper decodes v and validates the result.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks everything a run needs, so bad config fails before the
// browser starts.
func (c *Config) Validate() error {
	if _, err := c.Request(); err != nil {
		return fmt.Errorf("booking: %w", err)
	}
	if _, err := c.SiteSpec(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	switch c.Browser.Driver {
	case DriverChromedp, DriverPlaywright:
	default:
		return fmt.Errorf("browser.driver must be %q or %q, got %q", DriverChromedp, DriverPlaywright, c.Browser.Driver)
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	if c.Gate.MaxChecks < 0 {
		return errors.New("gate.max_checks must not be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	return nil
}

// Window parses the weekly booking window.
func (c *Config) Window() (booking.Window, error) {
	b := c.Booking
	day, err := booking.ParseWeekday(b.Day)
	if err != nil {
		return booking.Window{}, err
	}
	start, err := booking.ParseClock(b.Start)
	if err != nil {
		return booking.Window{}, fmt.Errorf("start: %w", err)
	}
	end, err := booking.ParseClock(b.End)
	if err != nil {
		return booking.Window{}, fmt.Errorf("end: %w", err)
	}
	tz := b.Timezone
	if tz == "" {
		tz = "Local"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return booking.Window{}, fmt.Errorf("timezone: %w", err)
	}
	w := booking.Window{Day: day, Start: start, End: end, Loc: loc}
	return w, w.Validate()
}

// Request builds the immutable booking request for one run.
func (c *Config) Request() (booking.Request, error) {
	w, err := c.Window()
	if err != nil {
		return booking.Request{}, err
	}
	s := c.Booking.Session
	req := booking.Request{
		Window:   w,
		Location: strings.TrimSpace(c.Booking.Location),
		Session: booking.SessionTarget{
			ID:         s.ID,
			Location:   s.Location,
			Instructor: s.Instructor,
			Time:       s.Time,
			Duration:   s.Duration,
			Selector:   s.Selector,
		},
		Seats: c.Booking.Seats,
	}
	return req, req.Validate()
}

// SiteSpec parses the selector strings into a usecases.Site.
func (c *Config) SiteSpec() (usecases.Site, error) {
	s := c.Site
	if strings.TrimSpace(s.LoginURL) == "" {
		return usecases.Site{}, errors.New("login_url required")
	}
	site := usecases.Site{
		LoginURL:           s.LoginURL,
		UnavailableClasses: s.UnavailableClasses,
		UnavailableColor:   s.UnavailableColor,
	}

	selectors := []struct {
		name     string
		raw      string
		dst      *ui.Selector
		required bool
	}{
		{"email", s.Email, &site.Email, true},
		{"password", s.Password, &site.Password, true},
		{"submit", s.Submit, &site.Submit, true},
		{"landmark", s.Landmark, &site.Landmark, true},
		{"rejection", s.Rejection, &site.Rejection, false},
		{"book_menu", s.BookMenu, &site.BookMenu, true},
		{"seat_map", s.SeatMap, &site.SeatMap, false},
		{"confirm", s.Confirm, &site.Confirm, false},
		{"success", s.Success, &site.Success, false},
		{"no_series", s.NoSeries, &site.NoSeries, false},
	}
	for _, sel := range selectors {
		parsed, err := ui.ParseSelector(sel.raw)
		if err != nil {
			return usecases.Site{}, fmt.Errorf("%s: %w", sel.name, err)
		}
		if sel.required && parsed.IsZero() {
			return usecases.Site{}, fmt.Errorf("%s selector required", sel.name)
		}
		*sel.dst = parsed
	}

	templates := []struct {
		name string
		raw  string
		dst  *ui.TextTemplate
	}{
		{"location_item", s.LocationItem, &site.LocationItem},
		{"session_item", s.SessionItem, &site.SessionItem},
		{"seat_item", s.SeatItem, &site.SeatItem},
	}
	for _, tpl := range templates {
		if strings.Count(tpl.raw, "%s") != 1 || strings.Count(tpl.raw, "%") != 1 {
			return usecases.Site{}, fmt.Errorf("%s must contain exactly one %%s: %q", tpl.name, tpl.raw)
		}
		*tpl.dst = ui.TextTemplate(tpl.raw)
	}

	reveal, err := ui.ParseReveal(s.MenuReveal)
	if err != nil {
		return usecases.Site{}, err
	}
	site.MenuReveal = reveal
	return site, nil
}

func (c *Config) UseCaseTimeouts() usecases.Timeouts {
	return usecases.Timeouts{Element: c.Timeouts.Element, Login: c.Timeouts.Login, Outcome: c.Timeouts.Outcome}
}
