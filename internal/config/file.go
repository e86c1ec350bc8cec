package config

import (
	"fmt"
	"time"

	"github.com/nao1215/zapreport/internal/model"
)

// File represents the structure of the zapreport configuration file.
// Every field is optional; unset fields keep the value they had before
// the file was applied.
type File struct {
	// WorkDir overrides the working directory.
	WorkDir string `yaml:"workdir,omitempty"`

	// Targets replaces the built-in target list.
	Targets []string `yaml:"targets,omitempty"`

	// Policy is "continue" or "abort".
	Policy string `yaml:"policy,omitempty"`

	// Scan configures the scanner container.
	Scan ScanSection `yaml:"scan,omitempty"`

	// Mail configures the relay and the message.
	Mail MailSection `yaml:"mail,omitempty"`

	// History configures the run history store.
	History HistorySection `yaml:"history,omitempty"`
}

// ScanSection holds the scanner settings of the configuration file.
type ScanSection struct {
	Image            string        `yaml:"image,omitempty"`
	Docker           string        `yaml:"docker,omitempty"`
	DockerArgs       []string      `yaml:"dockerArgs,omitempty"`
	Passes           []string      `yaml:"passes,omitempty"`
	Debug            *bool         `yaml:"debug,omitempty"`
	AjaxSpider       *bool         `yaml:"ajaxSpider,omitempty"`
	APIFormat        string        `yaml:"apiFormat,omitempty"`
	AlertsAreSuccess *bool         `yaml:"alertsAreSuccess,omitempty"`
	PassTimeout      time.Duration `yaml:"passTimeout,omitempty"`
	Parallel         int           `yaml:"parallel,omitempty"`
}

// MailSection holds the mail settings of the configuration file.
// Credentials are deliberately absent: they are read from the environment only.
type MailSection struct {
	Enabled       *bool         `yaml:"enabled,omitempty"`
	Host          string        `yaml:"host,omitempty"`
	Port          int           `yaml:"port,omitempty"`
	Auth          string        `yaml:"auth,omitempty"`
	Proxy         string        `yaml:"proxy,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
	From          string        `yaml:"from,omitempty"`
	To            []string      `yaml:"to,omitempty"`
	ReplyTo       string        `yaml:"replyTo,omitempty"`
	SubjectPrefix string        `yaml:"subjectPrefix,omitempty"`
	Signature     string        `yaml:"signature,omitempty"`
}

// HistorySection holds the history store settings of the configuration file.
type HistorySection struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Driver  string `yaml:"driver,omitempty"`
	DSN     string `yaml:"dsn,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ApplyFile overlays the non-zero values of the configuration file on c.
// It returns an error for unknown policies or pass names.
func (c *Config) ApplyFile(f *File) error {
	if f == nil {
		return nil
	}

	if f.WorkDir != "" {
		c.WorkDir = f.WorkDir
	}
	if len(f.Targets) > 0 {
		c.Targets = append([]string(nil), f.Targets...)
	}
	if f.Policy != "" {
		policy, err := model.ParseFailurePolicy(f.Policy)
		if err != nil {
			return err
		}
		c.Policy = policy
	}

	if err := c.applyScan(f.Scan); err != nil {
		return err
	}
	c.applyMail(f.Mail)
	c.applyHistory(f.History)

	return nil
}

func (c *Config) applyScan(s ScanSection) error {
	if s.Image != "" {
		c.Image = s.Image
	}
	if s.Docker != "" {
		c.DockerBinary = s.Docker
	}
	if len(s.DockerArgs) > 0 {
		c.DockerArgs = append([]string(nil), s.DockerArgs...)
	}
	if len(s.Passes) > 0 {
		passes, err := ParsePasses(s.Passes)
		if err != nil {
			return err
		}
		c.Passes = passes
	}
	if s.Debug != nil {
		c.Debug = *s.Debug
	}
	if s.AjaxSpider != nil {
		c.AjaxSpider = *s.AjaxSpider
	}
	if s.APIFormat != "" {
		c.APIFormat = s.APIFormat
	}
	if s.AlertsAreSuccess != nil {
		c.AlertsAreSuccess = *s.AlertsAreSuccess
	}
	if s.PassTimeout != 0 {
		c.PassTimeout = s.PassTimeout
	}
	if s.Parallel != 0 {
		c.Parallel = s.Parallel
	}
	return nil
}

func (c *Config) applyMail(m MailSection) {
	if m.Enabled != nil {
		c.MailEnabled = *m.Enabled
	}
	if m.Host != "" {
		c.SMTPHost = m.Host
	}
	if m.Port != 0 {
		c.SMTPPort = m.Port
	}
	if m.Auth != "" {
		c.SMTPAuth = m.Auth
	}
	if m.Proxy != "" {
		c.SMTPProxy = m.Proxy
	}
	if m.Timeout != 0 {
		c.SMTPTimeout = m.Timeout
	}
	if m.From != "" {
		c.MailFrom = m.From
	}
	if len(m.To) > 0 {
		c.MailTo = append([]string(nil), m.To...)
	}
	if m.ReplyTo != "" {
		c.ReplyTo = m.ReplyTo
	}
	if m.SubjectPrefix != "" {
		c.SubjectPrefix = m.SubjectPrefix
	}
	if m.Signature != "" {
		c.Signature = m.Signature
	}
}

func (c *Config) applyHistory(h HistorySection) {
	if h.Enabled != nil {
		c.HistoryEnabled = *h.Enabled
	}
	if h.Driver != "" {
		c.HistoryDriver = h.Driver
	}
	if h.DSN != "" {
		c.HistoryDSN = h.DSN
	}
	if h.Dir != "" {
		c.DBDir = h.Dir
	}
}

// ParsePasses parses pass names, dropping duplicates and returning them
// in execution order regardless of the input order.
func ParsePasses(names []string) ([]model.PassKind, error) {
	enabled := make(map[model.PassKind]bool, len(names))
	for _, name := range names {
		kind, err := model.ParsePassKind(name)
		if err != nil {
			return nil, fmt.Errorf("invalid scan pass list: %w", err)
		}
		enabled[kind] = true
	}

	passes := make([]model.PassKind, 0, len(enabled))
	for _, kind := range model.AllPassKinds() {
		if enabled[kind] {
			passes = append(passes, kind)
		}
	}
	return passes, nil
}
